package tasks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBlob(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBlob()

	_, ok, err := b.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	payload := []byte(`[]`)
	require.NoError(t, b.Save(ctx, payload))
	payload[0] = 'x'

	data, ok, err := b.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", string(data))
}

func TestFileBlob(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "tasks.json")
	b := NewFileBlob(path)

	_, ok, err := b.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Save(ctx, []byte(`[{"id":"1","title":"x"}]`)))

	data, ok, err := b.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"1","title":"x"}]`, string(data))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileBlob_EmptyFileIsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, ok, err := NewFileBlob(path).Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileBlob_Backup(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.json")
	b := NewFileBlob(path)

	backup, err := b.Backup(ctx)
	require.NoError(t, err)
	assert.Empty(t, backup)

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
	_, err = Open(ctx, b)
	require.ErrorIs(t, err, ErrMalformedStorage)

	backup, err = b.Backup(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(backup, path+".corrupt."))

	kept, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, "garbage", string(kept))

	s, err := Reset(ctx, b)
	require.NoError(t, err)
	assert.Zero(t, s.Len())
}
