package signing

import (
	"context"
	"log/slog"
	"strings"

	"github.com/your-org/kinfolk/internal/models"
	"github.com/your-org/kinfolk/internal/observability"
)

// Signer turns a storage path into a time-limited URL.
type Signer interface {
	SignURL(ctx context.Context, path string) (string, error)
}

// Materializer rewrites stored media paths into signed URLs on a copy of the
// person. Signing failures null the affected field and are only logged.
type Materializer struct {
	signer Signer
}

func NewMaterializer(signer Signer) *Materializer {
	return &Materializer{signer: signer}
}

func (m *Materializer) Materialize(ctx context.Context, p models.Person) models.Person {
	out := p.Clone()
	for ci := range out.Things {
		for si := range out.Things[ci].ChildItems {
			data := out.Things[ci].ChildItems[si].Data
			for i := range data {
				data[i].Body = m.signBody(ctx, data[i].ID, data[i].Body)
			}
		}
	}
	return out
}

func (m *Materializer) MaterializeAll(ctx context.Context, persons []models.Person) []models.Person {
	out := make([]models.Person, 0, len(persons))
	for _, p := range persons {
		out = append(out, m.Materialize(ctx, p))
	}
	return out
}

// MaterializeItems signs a loose list of items, such as a fresh upload batch.
func (m *Materializer) MaterializeItems(ctx context.Context, items []models.MediaItem) []models.MediaItem {
	out := make([]models.MediaItem, 0, len(items))
	for _, item := range items {
		item = item.Clone()
		item.Body = m.signBody(ctx, item.ID, item.Body)
		out = append(out, item)
	}
	return out
}

func (m *Materializer) signBody(ctx context.Context, itemID string, body models.MediaBody) models.MediaBody {
	switch b := body.(type) {
	case models.VideoBody:
		b.URL = m.sign(ctx, itemID, b.URL)
		return b
	case models.AudioBody:
		b.URL = m.sign(ctx, itemID, b.URL)
		return b
	case models.NoteBody:
		if b.Audio != nil {
			b.Audio.URL = m.sign(ctx, itemID, b.Audio.URL)
		}
		if b.Image != nil {
			b.Image.URL = m.sign(ctx, itemID, b.Image.URL)
		}
		return b
	default:
		// image and pdf items are served as stored
		return body
	}
}

func (m *Materializer) sign(ctx context.Context, itemID string, path *string) *string {
	if path == nil || *path == "" {
		return path
	}
	if isAbsoluteURL(*path) {
		observability.URLSignings.WithLabelValues("passthrough").Inc()
		return path
	}

	signed, err := m.signer.SignURL(ctx, *path)
	if err != nil {
		observability.URLSignings.WithLabelValues("error").Inc()
		slog.Error("sign media url", "item", itemID, "path", *path, "error", err)
		return nil
	}
	observability.URLSignings.WithLabelValues("ok").Inc()
	return &signed
}

// isAbsoluteURL tells stored object keys apart from URLs that are already
// public. Keys may start with "http" when the person's name does.
func isAbsoluteURL(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
