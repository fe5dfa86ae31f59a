package storage

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrainRemoveErrorsConsumesEveryResult(t *testing.T) {
	results := make(chan minio.RemoveObjectError)
	sent := make(chan int)
	go func() {
		n := 0
		for _, r := range []minio.RemoveObjectError{
			{ObjectName: "a", Err: errors.New("denied")},
			{ObjectName: "b", Err: errors.New("gone")},
			{ObjectName: "c"},
		} {
			results <- r
			n++
		}
		close(results)
		sent <- n
	}()

	err := drainRemoveErrors(results)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete object a")
	assert.Equal(t, 3, <-sent)
}

func TestDrainRemoveErrorsNoFailures(t *testing.T) {
	results := make(chan minio.RemoveObjectError, 1)
	results <- minio.RemoveObjectError{ObjectName: "a"}
	close(results)

	assert.NoError(t, drainRemoveErrors(results))
}

func TestPublicReadPolicy(t *testing.T) {
	raw, err := publicReadPolicy("media", publicKinds)
	require.NoError(t, err)

	var policy bucketPolicy
	require.NoError(t, json.Unmarshal([]byte(raw), &policy))
	require.Len(t, policy.Statement, 1)
	assert.Equal(t, []string{"s3:GetObject"}, policy.Statement[0].Action)
	assert.Equal(t, []string{"arn:aws:s3:::media/*/image/*", "arn:aws:s3:::media/*/pdf/*"}, policy.Statement[0].Resource)
}
