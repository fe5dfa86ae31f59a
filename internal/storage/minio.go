package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/your-org/kinfolk/internal/config"
	"github.com/your-org/kinfolk/internal/observability"
)

const signerBreakerName = "minio-presign"

type MinIOStore struct {
	client  *minio.Client
	bucket  string
	expiry  time.Duration
	breaker *gobreaker.CircuitBreaker[string]
}

func NewMinIOStore(cfg config.MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinIOStore{
		client:  client,
		bucket:  cfg.Bucket,
		expiry:  cfg.URLExpiry,
		breaker: newSignerBreaker(),
	}, nil
}

// newSignerBreaker opens after 5 consecutive presign failures and lets a
// request through after 30s.
func newSignerBreaker() *gobreaker.CircuitBreaker[string] {
	observability.CircuitBreakerState.WithLabelValues(signerBreakerName).Set(0)

	return gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        signerBreakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			observability.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
}

// publicKinds are the per-person directories readable without a signature.
var publicKinds = []string{"image", "pdf"}

// EnsureBucket creates the bucket if it doesn't exist and opens anonymous
// reads on the image and pdf directories.
func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}

	policy, err := publicReadPolicy(s.bucket, publicKinds)
	if err != nil {
		return err
	}
	if err := s.client.SetBucketPolicy(ctx, s.bucket, policy); err != nil {
		return fmt.Errorf("set bucket policy: %w", err)
	}
	return nil
}

type policyStatement struct {
	Effect    string              `json:"Effect"`
	Principal map[string][]string `json:"Principal"`
	Action    []string            `json:"Action"`
	Resource  []string            `json:"Resource"`
}

type bucketPolicy struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

func publicReadPolicy(bucket string, kinds []string) (string, error) {
	resources := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		resources = append(resources, fmt.Sprintf("arn:aws:s3:::%s/*/%s/*", bucket, kind))
	}
	raw, err := json.Marshal(bucketPolicy{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Effect:    "Allow",
			Principal: map[string][]string{"AWS": {"*"}},
			Action:    []string{"s3:GetObject"},
			Resource:  resources,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal bucket policy: %w", err)
	}
	return string(raw), nil
}

// PutFile uploads a file from local disk under the given key.
func (s *MinIOStore) PutFile(ctx context.Context, key, path, contentType string) error {
	_, err := s.client.FPutObject(ctx, s.bucket, key, path, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// DeleteObjects removes multiple objects from MinIO in a single batch request.
func (s *MinIOStore) DeleteObjects(ctx context.Context, keys []string) error {
	objectsCh := make(chan minio.ObjectInfo, len(keys))
	for _, key := range keys {
		objectsCh <- minio.ObjectInfo{Key: key}
	}
	close(objectsCh)
	return drainRemoveErrors(s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}))
}

// drainRemoveErrors reads results until the channel closes, so the sender is
// never left blocked, and returns the first failure.
func drainRemoveErrors(results <-chan minio.RemoveObjectError) error {
	var first error
	for result := range results {
		if result.Err != nil && first == nil {
			first = fmt.Errorf("delete object %s: %w", result.ObjectName, result.Err)
		}
	}
	return first
}

// SignURL returns a presigned GET URL for key. While the breaker is open it
// fails immediately without calling MinIO.
func (s *MinIOStore) SignURL(ctx context.Context, key string) (string, error) {
	return s.breaker.Execute(func() (string, error) {
		u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.expiry, nil)
		if err != nil {
			return "", fmt.Errorf("presign %s: %w", key, err)
		}
		return u.String(), nil
	})
}

// Ping checks MinIO connectivity.
func (s *MinIOStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}
