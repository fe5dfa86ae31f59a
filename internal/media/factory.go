package media

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/kinfolk/internal/models"
)

var (
	ErrUnsupportedType = errors.New("unsupported media type")
	ErrFileRequired    = errors.New("media file is required")
	ErrCategoryMissing = errors.New("category is required")
)

// Fields are the free-form request attributes that accompany an upload.
type Fields struct {
	Category    string
	Title       string
	Description string
	Tags        string
	Creator     string
	Text        string
	Lat         string
	Lng         string
	Remind      string
}

// ParseType validates a media type header value.
func ParseType(s string) (models.MediaType, error) {
	t := models.MediaType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, s)
	}
	return t, nil
}

// Factory builds media items. Now and NewID are swappable for tests.
// Image and pdf items are served publicly under PublicBaseURL; the other
// kinds keep the bare object key and are signed on read.
type Factory struct {
	Now           func() time.Time
	NewID         func() string
	PublicBaseURL string
}

func NewFactory() *Factory {
	return &Factory{
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: func() string { return uuid.NewString() },
	}
}

// Build creates one item. Non-note items take their storage reference from
// files[0]; notes pick the first audio and first image file, if any.
func (f *Factory) Build(t models.MediaType, files []models.UploadedFile, fields Fields) (models.MediaItem, error) {
	if !t.Valid() {
		return models.MediaItem{}, fmt.Errorf("%w: %q", ErrUnsupportedType, t)
	}
	if fields.Category == "" {
		return models.MediaItem{}, ErrCategoryMissing
	}

	item := models.MediaItem{
		ID:          fmt.Sprintf("%s-%s", t, f.NewID()),
		Title:       fields.Title,
		Description: fields.Description,
		Category:    fields.Category,
		Tags:        ParseTags(fields.Tags),
		Creator:     fields.Creator,
		CreatedAt:   f.Now(),
	}

	if t == models.MediaNote {
		item.Body = noteBody(files, fields)
		return item, nil
	}

	if len(files) == 0 {
		return models.MediaItem{}, ErrFileRequired
	}
	file := files[0]
	if item.Title == "" {
		item.Title = file.OriginalName
	}
	key := file.Path
	public := f.PublicURL(file.Path)

	switch t {
	case models.MediaVideo:
		item.Body = models.VideoBody{URL: &key}
	case models.MediaImage:
		item.Body = models.ImageBody{URL: &public}
	case models.MediaAudio:
		item.Body = models.AudioBody{URL: &key}
	case models.MediaPDF:
		item.Body = models.PDFBody{URL: &public}
	default:
		return models.MediaItem{}, fmt.Errorf("%w: %q", ErrUnsupportedType, t)
	}
	return item, nil
}

// PublicURL is the absolute URL of an object key under PublicBaseURL. Without
// a base the key is returned as is.
func (f *Factory) PublicURL(key string) string {
	if f.PublicBaseURL == "" {
		return key
	}
	return strings.TrimRight(f.PublicBaseURL, "/") + "/" + strings.TrimLeft(key, "/")
}

// BuildAll fans a batch out: one note for the whole batch, otherwise one item
// per file.
func (f *Factory) BuildAll(t models.MediaType, files []models.UploadedFile, fields Fields) ([]models.MediaItem, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, t)
	}
	if t == models.MediaNote {
		item, err := f.Build(t, files, fields)
		if err != nil {
			return nil, err
		}
		return []models.MediaItem{item}, nil
	}

	if len(files) == 0 {
		return nil, ErrFileRequired
	}
	items := make([]models.MediaItem, 0, len(files))
	for _, file := range files {
		item, err := f.Build(t, []models.UploadedFile{file}, fields)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func noteBody(files []models.UploadedFile, fields Fields) models.NoteBody {
	body := models.NoteBody{
		Text:   fields.Text,
		Lat:    fields.Lat,
		Lng:    fields.Lng,
		Remind: strings.EqualFold(strings.TrimSpace(fields.Remind), "true"),
	}

	for _, file := range files {
		switch {
		case body.Audio == nil && strings.HasPrefix(file.ContentType, "audio/"):
			url := file.Path
			body.Audio = &models.NoteMedia{Type: string(models.MediaAudio), URL: &url}
		case body.Image == nil && strings.HasPrefix(file.ContentType, "image/"):
			url := file.Path
			body.Image = &models.NoteMedia{Type: string(models.MediaImage), URL: &url}
		}
		if body.Audio != nil && body.Image != nil {
			break
		}
	}
	return body
}

// ParseTags splits a comma-separated list, trimming entries and dropping empties.
func ParseTags(raw string) []string {
	tags := []string{}
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
