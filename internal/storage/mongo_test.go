package storage

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/your-org/kinfolk/internal/config"
	"github.com/your-org/kinfolk/internal/models"
)

const (
	mongoImage = "mongo:7"
	mongoPort  = "27017/tcp"
)

var (
	mongoOnce sync.Once
	mongoURI  string
	mongoErr  error
)

// startMongo runs one container for the whole package. The testcontainers
// reaper removes it when the test binary exits.
func startMongo() (string, error) {
	mongoOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        mongoImage,
				ExposedPorts: []string{mongoPort},
				WaitingFor:   wait.ForListeningPort(mongoPort).WithStartupTimeout(90 * time.Second),
			},
			Started: true,
		})
		if err != nil {
			mongoErr = fmt.Errorf("create mongo container: %w", err)
			return
		}

		host, err := container.Host(ctx)
		if err != nil {
			mongoErr = fmt.Errorf("get container host: %w", err)
			return
		}
		port, err := container.MappedPort(ctx, mongoPort)
		if err != nil {
			mongoErr = fmt.Errorf("get mapped port: %w", err)
			return
		}
		mongoURI = fmt.Sprintf("mongodb://%s:%s", host, port.Port())
	})
	return mongoURI, mongoErr
}

func dockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, "docker", "info").Run() == nil
}

// newMongoStore connects to the shared container with a collection per test.
func newMongoStore(t *testing.T) *MongoStore {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping mongo integration test in short mode")
	}
	if !dockerAvailable() {
		t.Skip("Skipping test: Docker not available")
	}

	uri, err := startMongo()
	require.NoError(t, err)

	collection := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := NewMongoStore(config.MongoConfig{
		URI:        uri,
		Database:   "kinfolk_test",
		Collection: collection,
		Timeout:    30 * time.Second,
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.EnsureIndexes(ctx))
	t.Cleanup(func() {
		if err := s.collection.Drop(ctx); err != nil {
			t.Logf("Warning: failed to drop collection: %v", err)
		}
		if err := s.Close(ctx); err != nil {
			t.Logf("Warning: failed to disconnect: %v", err)
		}
	})
	return s
}

func TestMongoStore(t *testing.T) {
	testPersonStore(t, func(t *testing.T) PersonStore { return newMongoStore(t) })
}

func TestMongoStoreReplacesUnversionedDocument(t *testing.T) {
	ctx := context.Background()
	s := newMongoStore(t)

	// written before the version field existed
	_, err := s.collection.InsertOne(ctx, bson.M{
		"_id":       primitive.NewObjectID(),
		"id_number": "OLD",
		"name":      "Legacy",
		"gender":    "female",
	})
	require.NoError(t, err)

	p, err := s.GetPerson(ctx, "OLD")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(0), p.Version)

	stale := *p

	p.Name = "Legacy Updated"
	require.NoError(t, s.ReplacePerson(ctx, p, 0))
	assert.Equal(t, int64(1), p.Version)

	stale.Name = "Lost Update"
	assert.ErrorIs(t, s.ReplacePerson(ctx, &stale, 0), ErrVersionConflict)

	stored, err := s.GetPerson(ctx, "OLD")
	require.NoError(t, err)
	assert.Equal(t, "Legacy Updated", stored.Name)
	assert.Equal(t, int64(1), stored.Version)
}

func TestMongoStoreStoresMediaFlat(t *testing.T) {
	ctx := context.Background()
	s := newMongoStore(t)
	seed(t, s, models.Person{IDNumber: "A1", Name: "Alice"})

	p, err := s.GetPerson(ctx, "A1")
	require.NoError(t, err)
	url := "A1/pdf/d.pdf"
	p.Things = []models.Category{{Val: "MEDICAL", ChildItems: []models.SubCategory{{
		Val:  "Things",
		Data: []models.MediaItem{{ID: "pdf-1", Body: models.PDFBody{URL: &url, PageCount: 7}}},
	}}}}
	require.NoError(t, s.ReplacePerson(ctx, p, p.Version))

	var raw bson.Raw
	require.NoError(t, s.collection.FindOne(ctx, bson.M{"id_number": "A1"}).Decode(&raw))

	item := []string{"things", "0", "childItems", "0", "data", "0"}
	assert.Equal(t, "pdf", raw.Lookup(append(item, "type")...).StringValue())
	assert.Equal(t, url, raw.Lookup(append(item, "url")...).StringValue())
	assert.EqualValues(t, 7, raw.Lookup(append(item, "pageCount")...).AsInt64())
	assert.Equal(t, int64(1), raw.Lookup("version").AsInt64())
}
