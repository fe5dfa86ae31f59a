package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/your-org/kinfolk/internal/config"
	"github.com/your-org/kinfolk/internal/models"
)

type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoStore(cfg config.MongoConfig) (*MongoStore, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(cfg.Timeout).
		SetSocketTimeout(cfg.Timeout)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	slog.Info("connected to mongo", "database", cfg.Database, "collection", cfg.Collection)

	return &MongoStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// EnsureIndexes creates the identity and parent-reference indexes.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id_number", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "mother_id", Value: 1}}},
		{Keys: bson.D{{Key: "father_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) InsertPerson(ctx context.Context, p *models.Person) error {
	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.Version = 0
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.collection.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateIDNumber
		}
		return fmt.Errorf("insert person: %w", err)
	}
	return nil
}

func (s *MongoStore) GetPerson(ctx context.Context, idNumber string) (*models.Person, error) {
	var p models.Person
	err := s.collection.FindOne(ctx, bson.M{"id_number": idNumber}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get person: %w", err)
	}
	return &p, nil
}

func (s *MongoStore) ListPersons(ctx context.Context) ([]models.Person, error) {
	return s.find(ctx, bson.M{})
}

func (s *MongoStore) FindChildren(ctx context.Context, parentKeys ...string) ([]models.Person, error) {
	keys := nonEmpty(parentKeys)
	if len(keys) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"$or": bson.A{
		bson.M{"mother_id": bson.M{"$in": keys}},
		bson.M{"father_id": bson.M{"$in": keys}},
	}})
}

func (s *MongoStore) FindByMother(ctx context.Context, motherID string) ([]models.Person, error) {
	if motherID == "" {
		return nil, nil
	}
	return s.find(ctx, bson.M{"mother_id": motherID})
}

func (s *MongoStore) FindByFather(ctx context.Context, fatherID string) ([]models.Person, error) {
	if fatherID == "" {
		return nil, nil
	}
	return s.find(ctx, bson.M{"father_id": fatherID})
}

func (s *MongoStore) FindSharingParent(ctx context.Context, motherID, fatherID, excludeIDNumber string) ([]models.Person, error) {
	var or bson.A
	if motherID != "" {
		or = append(or, bson.M{"mother_id": motherID})
	}
	if fatherID != "" {
		or = append(or, bson.M{"father_id": fatherID})
	}
	if len(or) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{
		"id_number": bson.M{"$ne": excludeIDNumber},
		"$or":       or,
	})
}

func (s *MongoStore) ReplacePerson(ctx context.Context, p *models.Person, expectedVersion int64) error {
	filter := bson.M{"_id": p.ID, "version": expectedVersion}
	if expectedVersion == 0 {
		// documents written before versioning carry no version field
		filter = bson.M{"_id": p.ID, "$or": bson.A{
			bson.M{"version": 0},
			bson.M{"version": bson.M{"$exists": false}},
		}}
	}

	next := *p
	next.Version = expectedVersion + 1
	next.UpdatedAt = time.Now().UTC()

	res, err := s.collection.ReplaceOne(ctx, filter, &next)
	if err != nil {
		return fmt.Errorf("replace person: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrVersionConflict
	}

	p.Version = next.Version
	p.UpdatedAt = next.UpdatedAt
	return nil
}

func (s *MongoStore) find(ctx context.Context, filter bson.M) ([]models.Person, error) {
	cur, err := s.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find persons: %w", err)
	}

	var persons []models.Person
	if err := cur.All(ctx, &persons); err != nil {
		return nil, fmt.Errorf("decode persons: %w", err)
	}
	return persons, nil
}

func nonEmpty(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
