package credentials

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "ppdb.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAPIKeyAbsent(t *testing.T) {
	store := openStore(t)
	key, err := store.APIKey(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestSetAPIKeyRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	require.NoError(t, store.SetAPIKey(ctx, "", " abc123 "))
	key, err := store.APIKey(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "abc123", key)

	require.NoError(t, store.SetAPIKey(ctx, "", "def456"))
	key, err = store.APIKey(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "def456", key)
}

func TestSetEmptyKeyDeletes(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	require.NoError(t, store.SetAPIKey(ctx, "", "abc123"))
	require.NoError(t, store.SetAPIKey(ctx, "", "   "))

	key, err := store.APIKey(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestScopesAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	require.NoError(t, store.SetAPIKey(ctx, "tg:42", "user-key"))
	require.NoError(t, store.SetAPIKey(ctx, "", "local-key"))
	require.NoError(t, store.DeleteAPIKey(ctx, ""))

	key, err := store.APIKey(ctx, "tg:42")
	require.NoError(t, err)
	assert.Equal(t, "user-key", key)

	key, err = store.APIKey(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestKeySurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ppdb.db")

	store, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.SetAPIKey(ctx, "", "persisted"))
	require.NoError(t, store.Close())

	store, err = Open(ctx, path)
	require.NoError(t, err)
	defer store.Close()

	key, err := store.APIKey(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "persisted", key)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", Mask(""))
	assert.Equal(t, "•••", Mask("abc"))
	assert.Equal(t, "••••••••wxyz", Mask("AIzaSyabcdwxyz"))
}
