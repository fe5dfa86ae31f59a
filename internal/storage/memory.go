package storage

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/your-org/kinfolk/internal/models"
)

// MemoryStore keeps person documents in process. Query semantics match
// MongoStore; every read returns a deep copy.
type MemoryStore struct {
	mu      sync.RWMutex
	persons []models.Person
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func (s *MemoryStore) InsertPerson(_ context.Context, p *models.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.persons {
		if existing.IDNumber == p.IDNumber {
			return ErrDuplicateIDNumber
		}
	}

	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.Version = 0
	p.CreatedAt = now
	p.UpdatedAt = now
	s.persons = append(s.persons, p.Clone())
	return nil
}

func (s *MemoryStore) GetPerson(_ context.Context, idNumber string) (*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.persons {
		if p.IDNumber == idNumber {
			c := p.Clone()
			return &c, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ListPersons(context.Context) ([]models.Person, error) {
	return s.filter(func(models.Person) bool { return true }), nil
}

func (s *MemoryStore) FindChildren(_ context.Context, parentKeys ...string) ([]models.Person, error) {
	keys := make(map[string]struct{}, len(parentKeys))
	for _, k := range nonEmpty(parentKeys) {
		keys[k] = struct{}{}
	}
	if len(keys) == 0 {
		return nil, nil
	}
	return s.filter(func(p models.Person) bool {
		_, m := keys[p.MotherID]
		_, f := keys[p.FatherID]
		return m || f
	}), nil
}

func (s *MemoryStore) FindByMother(_ context.Context, motherID string) ([]models.Person, error) {
	if motherID == "" {
		return nil, nil
	}
	return s.filter(func(p models.Person) bool { return p.MotherID == motherID }), nil
}

func (s *MemoryStore) FindByFather(_ context.Context, fatherID string) ([]models.Person, error) {
	if fatherID == "" {
		return nil, nil
	}
	return s.filter(func(p models.Person) bool { return p.FatherID == fatherID }), nil
}

func (s *MemoryStore) FindSharingParent(_ context.Context, motherID, fatherID, excludeIDNumber string) ([]models.Person, error) {
	if motherID == "" && fatherID == "" {
		return nil, nil
	}
	return s.filter(func(p models.Person) bool {
		if p.IDNumber == excludeIDNumber {
			return false
		}
		return (motherID != "" && p.MotherID == motherID) ||
			(fatherID != "" && p.FatherID == fatherID)
	}), nil
}

func (s *MemoryStore) ReplacePerson(_ context.Context, p *models.Person, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.persons {
		if existing.ID != p.ID {
			continue
		}
		if existing.Version != expectedVersion {
			return ErrVersionConflict
		}
		p.Version = expectedVersion + 1
		p.UpdatedAt = time.Now().UTC()
		s.persons[i] = p.Clone()
		return nil
	}
	return ErrVersionConflict
}

func (s *MemoryStore) filter(match func(models.Person) bool) []models.Person {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Person
	for _, p := range s.persons {
		if match(p) {
			out = append(out, p.Clone())
		}
	}
	return out
}
