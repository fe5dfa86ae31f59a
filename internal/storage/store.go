package storage

import (
	"context"
	"errors"

	"github.com/your-org/kinfolk/internal/models"
)

var (
	ErrDuplicateIDNumber = errors.New("id_number already exists")
	ErrVersionConflict   = errors.New("person was modified concurrently")
)

// PersonStore is the persistence boundary for person documents. Lookups
// return (nil, nil) when nothing matches.
type PersonStore interface {
	InsertPerson(ctx context.Context, p *models.Person) error
	GetPerson(ctx context.Context, idNumber string) (*models.Person, error)
	ListPersons(ctx context.Context) ([]models.Person, error)
	FindChildren(ctx context.Context, parentKeys ...string) ([]models.Person, error)
	FindByMother(ctx context.Context, motherID string) ([]models.Person, error)
	FindByFather(ctx context.Context, fatherID string) ([]models.Person, error)
	// FindSharingParent matches persons whose mother_id or father_id equals the
	// given non-empty reference. Empty references match nothing.
	FindSharingParent(ctx context.Context, motherID, fatherID, excludeIDNumber string) ([]models.Person, error)
	// ReplacePerson writes the whole document if its stored version still
	// equals expectedVersion, and bumps p.Version on success.
	ReplacePerson(ctx context.Context, p *models.Person, expectedVersion int64) error
	Ping(ctx context.Context) error
}
