// Package catalog maintains the category tree embedded in each person
// document: person → categories → sub-categories → media items.
//
// Nodes are located by label (first match wins) and created lazily with
// key = position at creation time. Nothing is ever removed, so keys stay
// stable. Writes use the store's version check; a lost race reloads the
// document and re-applies the mutation.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/your-org/kinfolk/internal/models"
	"github.com/your-org/kinfolk/internal/observability"
	"github.com/your-org/kinfolk/internal/storage"
)

// DefaultSubCategory is the label every upload is filed under.
const DefaultSubCategory = "Things"

var ErrConflict = errors.New("too many concurrent updates to person")

// Attach appends items under category/subCategory, creating either node if
// missing. It only mutates p; persisting is up to the caller.
func Attach(p *models.Person, category, subCategory string, items []models.MediaItem) {
	if p.Things == nil {
		p.Things = []models.Category{}
	}

	ci := -1
	for i := range p.Things {
		if p.Things[i].Val == category {
			ci = i
			break
		}
	}
	if ci < 0 {
		p.Things = append(p.Things, models.Category{
			Key:        len(p.Things),
			Val:        category,
			ChildItems: []models.SubCategory{},
		})
		ci = len(p.Things) - 1
	}
	cat := &p.Things[ci]

	si := -1
	for i := range cat.ChildItems {
		if cat.ChildItems[i].Val == subCategory {
			si = i
			break
		}
	}
	if si < 0 {
		cat.ChildItems = append(cat.ChildItems, models.SubCategory{
			Key:  len(cat.ChildItems),
			Val:  subCategory,
			Data: []models.MediaItem{},
		})
		si = len(cat.ChildItems) - 1
	}
	sub := &cat.ChildItems[si]

	sub.Data = append(sub.Data, items...)
}

// Repository is the part of the person store the service writes through.
type Repository interface {
	GetPerson(ctx context.Context, idNumber string) (*models.Person, error)
	ReplacePerson(ctx context.Context, p *models.Person, expectedVersion int64) error
}

type Service struct {
	repo        Repository
	maxAttempts int
}

func NewService(repo Repository, maxAttempts int) *Service {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Service{repo: repo, maxAttempts: maxAttempts}
}

// AttachMedia files items under category on the person and persists the
// whole document atomically. It returns the updated person.
func (s *Service) AttachMedia(ctx context.Context, idNumber, category string, items []models.MediaItem) (*models.Person, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		person, err := s.repo.GetPerson(ctx, idNumber)
		if err != nil {
			return nil, fmt.Errorf("load person %s: %w", idNumber, err)
		}
		if person == nil {
			return nil, models.ErrPersonNotFound
		}

		expected := person.Version
		Attach(person, category, DefaultSubCategory, items)

		err = s.repo.ReplacePerson(ctx, person, expected)
		if err == nil {
			for _, item := range items {
				observability.MediaItemsAttached.WithLabelValues(string(item.Type())).Inc()
			}
			return person, nil
		}
		if !errors.Is(err, storage.ErrVersionConflict) {
			return nil, fmt.Errorf("save person %s: %w", idNumber, err)
		}

		observability.AttachConflicts.Inc()
		slog.Warn("concurrent update, retrying attach", "person", idNumber, "attempt", attempt)

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return nil, ErrConflict
}
