package storage

import (
	"context"
	"testing"

	infraconfig "github.com/omnisync/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryArchive(t *testing.T) {
	ctx := context.Background()
	archive := NewMemoryArchive(2)

	key, err := archive.Archive(ctx, "a.csv", []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, "memory/a.csv", key)

	_, err = archive.Archive(ctx, "b.csv", []byte("b"))
	require.NoError(t, err)
	_, err = archive.Archive(ctx, "c.csv", []byte("c"))
	require.NoError(t, err)

	assert.Equal(t, 2, archive.Len())
	_, ok := archive.Get("memory/a.csv")
	assert.False(t, ok, "oldest payload should be evicted")
	data, ok := archive.Get("memory/c.csv")
	require.True(t, ok)
	assert.Equal(t, []byte("c"), data)

	_, err = archive.Archive(ctx, "", nil)
	assert.Error(t, err)
}

func TestMemoryArchive_CopiesData(t *testing.T) {
	archive := NewMemoryArchive(0)
	buf := []byte("abc")
	key, err := archive.Archive(context.Background(), "x.csv", buf)
	require.NoError(t, err)
	buf[0] = 'z'

	data, _ := archive.Get(key)
	assert.Equal(t, []byte("abc"), data)
}

func TestNewArchive(t *testing.T) {
	a, err := NewArchive(&infraconfig.StorageConfig{Enabled: false})
	require.NoError(t, err)
	assert.IsType(t, &MemoryArchive{}, a)

	a, err = NewArchive(&infraconfig.StorageConfig{
		Enabled: true, Endpoint: "http://localhost:9000", Bucket: "b", AccessKey: "a", SecretKey: "s",
	})
	require.NoError(t, err)
	assert.IsType(t, &S3Archive{}, a)

	_, err = NewArchive(&infraconfig.StorageConfig{Enabled: true})
	assert.Error(t, err)
}
