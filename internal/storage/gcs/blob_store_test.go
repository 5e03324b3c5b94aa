package gcs

import (
	"context"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	require.EqualError(t, err, "storage client is required")

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	_, err = New(client, Config{})
	require.EqualError(t, err, "bucket name is required")

	store, err := New(client, Config{Bucket: "models-mirror"})
	require.NoError(t, err)
	assert.Equal(t, "models-mirror", store.bucket)
}

func TestPutRequiresKey(t *testing.T) {
	t.Parallel()

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store, err := New(client, Config{Bucket: "b"})
	require.NoError(t, err)
	assert.Error(t, store.Put(context.Background(), " ", nil))
}
