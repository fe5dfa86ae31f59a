// Package family derives genealogy relations from the parent references
// stored on each person. Nothing is precomputed; every call queries the store.
package family

import (
	"context"
	"fmt"

	"github.com/your-org/kinfolk/internal/models"
)

// Store is the subset of the person repository the resolver needs.
type Store interface {
	GetPerson(ctx context.Context, idNumber string) (*models.Person, error)
	FindChildren(ctx context.Context, parentKeys ...string) ([]models.Person, error)
	FindByMother(ctx context.Context, motherID string) ([]models.Person, error)
	FindByFather(ctx context.Context, fatherID string) ([]models.Person, error)
	FindSharingParent(ctx context.Context, motherID, fatherID, excludeIDNumber string) ([]models.Person, error)
}

type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Children returns every person whose mother or father reference is parentKey.
func (r *Resolver) Children(ctx context.Context, parentKey string) ([]models.Person, error) {
	children, err := r.store.FindChildren(ctx, parentKey)
	if err != nil {
		return nil, fmt.Errorf("find children of %s: %w", parentKey, err)
	}
	return children, nil
}

// Family resolves the person and the children recorded through the parent
// role their gender implies. A person of unspecified gender has no family.
func (r *Resolver) Family(ctx context.Context, personKey string) (*models.Person, []models.Person, error) {
	person, err := r.store.GetPerson(ctx, personKey)
	if err != nil {
		return nil, nil, fmt.Errorf("get person %s: %w", personKey, err)
	}
	if person == nil {
		return nil, nil, models.ErrPersonNotFound
	}

	var family []models.Person
	switch person.Gender {
	case models.GenderFemale:
		family, err = r.store.FindByMother(ctx, person.IDNumber)
	case models.GenderMale:
		family, err = r.store.FindByFather(ctx, person.IDNumber)
	default:
		return person, []models.Person{}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("find family of %s: %w", personKey, err)
	}
	if family == nil {
		family = []models.Person{}
	}
	return person, family, nil
}

// Siblings returns persons sharing a present, equal parent reference with p.
// A person without parent references has no discoverable siblings.
func (r *Resolver) Siblings(ctx context.Context, p *models.Person) ([]models.Person, error) {
	if p == nil || !p.HasParents() {
		return nil, nil
	}
	siblings, err := r.store.FindSharingParent(ctx, p.MotherID, p.FatherID, p.IDNumber)
	if err != nil {
		return nil, fmt.Errorf("find siblings of %s: %w", p.IDNumber, err)
	}
	return siblings, nil
}

// Cousins returns the children of the person's aunts and uncles. The person
// and their own siblings are never included. Unknown keys yield no cousins.
func (r *Resolver) Cousins(ctx context.Context, personKey string) ([]models.Person, error) {
	person, err := r.store.GetPerson(ctx, personKey)
	if err != nil {
		return nil, fmt.Errorf("get person %s: %w", personKey, err)
	}
	if person == nil {
		return []models.Person{}, nil
	}

	auntsUncles := make(map[string]struct{})
	for _, parentKey := range []string{person.MotherID, person.FatherID} {
		if parentKey == "" {
			continue
		}
		parent, err := r.store.GetPerson(ctx, parentKey)
		if err != nil {
			return nil, fmt.Errorf("get parent %s: %w", parentKey, err)
		}
		siblings, err := r.Siblings(ctx, parent)
		if err != nil {
			return nil, err
		}
		for _, s := range siblings {
			auntsUncles[s.IDNumber] = struct{}{}
		}
	}
	// a parent is never their own child's aunt or uncle
	delete(auntsUncles, person.MotherID)
	delete(auntsUncles, person.FatherID)
	if len(auntsUncles) == 0 {
		return []models.Person{}, nil
	}

	keys := make([]string, 0, len(auntsUncles))
	for k := range auntsUncles {
		keys = append(keys, k)
	}
	candidates, err := r.store.FindChildren(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("find cousins of %s: %w", personKey, err)
	}

	cousins := make([]models.Person, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if c.IDNumber == person.IDNumber || sharesParent(c, person) {
			continue
		}
		if _, dup := seen[c.IDNumber]; dup {
			continue
		}
		seen[c.IDNumber] = struct{}{}
		cousins = append(cousins, c)
	}
	return cousins, nil
}

func sharesParent(a models.Person, b *models.Person) bool {
	return (a.MotherID != "" && a.MotherID == b.MotherID) ||
		(a.FatherID != "" && a.FatherID == b.FatherID)
}
