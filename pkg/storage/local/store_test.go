package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/angelmondragon/auction-archive/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorePutDeleteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, "/static/images")
	require.NoError(t, err)

	ctx := context.Background()
	key := "SOROLLA/artwork_123_cuadro.png"
	require.NoError(t, store.Put(ctx, storage.Object{Key: key, ContentType: "image/png", Data: []byte("png")}))

	data, err := os.ReadFile(filepath.Join(dir, "SOROLLA", "artwork_123_cuadro.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
	assert.Equal(t, "/static/images/SOROLLA/artwork_123_cuadro.png", store.URL(key))

	require.NoError(t, store.Delete(ctx, key))
	err = store.Delete(ctx, key)
	assert.True(t, storage.IsNotFound(err), "expected not found, got %v", err)
}

func TestStoreRejectsEscapingKeys(t *testing.T) {
	store, err := New(t.TempDir(), "")
	require.NoError(t, err)

	for _, key := range []string{"../outside.png", "/etc/passwd", ""} {
		err := store.Put(context.Background(), storage.Object{Key: key, Data: []byte("x")})
		assert.Error(t, err, "key %q", key)
	}
}

func TestStorePingAndCanceledContext(t *testing.T) {
	store, err := New(t.TempDir(), "")
	require.NoError(t, err)
	require.NoError(t, store.Ping(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, store.Put(ctx, storage.Object{Key: "a.png", Data: []byte("x")}))
}
