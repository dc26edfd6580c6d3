package matchstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/kraken/internal/kraken"
	"github.com/JakeFAU/kraken/internal/matchstore"
)

func newStore(t *testing.T) *matchstore.Store {
	t.Helper()
	store, err := matchstore.New(matchstore.Config{Dir: t.TempDir()})
	require.NoError(t, err)
	return store
}

func collect(t *testing.T, store *matchstore.Store) []string {
	t.Helper()
	var ids []string
	for e, err := range store.List() {
		require.NoError(t, err)
		ids = append(ids, e.MatchID)
	}
	return ids
}

func TestNew(t *testing.T) {
	t.Run("CreatesMissingDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "matches")
		store, err := matchstore.New(matchstore.Config{Dir: dir})
		require.NoError(t, err)
		assert.Equal(t, dir, store.Dir())
		assert.DirExists(t, dir)
	})

	t.Run("MissingDir", func(t *testing.T) {
		_, err := matchstore.New(matchstore.Config{})
		assert.ErrorIs(t, err, kraken.ErrConfiguration)
	})

	t.Run("DirIsAFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
		_, err := matchstore.New(matchstore.Config{Dir: path})
		assert.ErrorIs(t, err, kraken.ErrStorage)
	})

	t.Run("DirNotWritable", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("root bypasses directory permissions")
		}
		dir := t.TempDir()
		// #nosec G302 -- directory permissions adjusted intentionally for test coverage.
		require.NoError(t, os.Chmod(dir, 0o500))
		t.Cleanup(func() {
			// #nosec G302 -- reverting permissions to allow cleanup in the test environment.
			_ = os.Chmod(dir, 0o700)
		})
		_, err := matchstore.New(matchstore.Config{Dir: dir})
		assert.ErrorIs(t, err, kraken.ErrStorage)
	})
}

func TestPutThenExists(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()

	exists, err := store.Exists("EUW1_100")
	require.NoError(t, err)
	assert.False(t, exists)

	res, err := store.Put(ctx, "EUW1_100", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, store.Path("EUW1_100"), res.Path)
	assert.Contains(t, res.Digest, "sha256:")

	exists, err = store.Exists("EUW1_100")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := store.Get("EUW1_100")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(got))
}

func TestPutIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, "EUW1_1", []byte(`{"first":true}`))
	require.NoError(t, err)
	res, err := store.Put(ctx, "EUW1_1", []byte(`{"second":true}`))
	require.NoError(t, err)
	assert.False(t, res.Created)

	got, err := store.Get("EUW1_1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"first":true}`, string(got))
	assert.Equal(t, []string{"EUW1_1"}, collect(t, store))
}

func TestPutRejectsUnsafeIDs(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	for _, id := range []string{"", "../escape", "a/b", ".hidden"} {
		_, err := store.Put(context.Background(), id, []byte(`{}`))
		assert.ErrorIs(t, err, kraken.ErrParse, id)
	}
}

func TestPutHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.Put(ctx, "EUW1_5", []byte(`{}`))
	require.ErrorIs(t, err, context.Canceled)
	exists, err := store.Exists("EUW1_5")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestListIsSortedRestartableAndSkipsTemps(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()
	for _, id := range []string{"EUW1_3", "EUW1_1", "EUW1_2"} {
		_, err := store.Put(ctx, id, []byte(`{}`))
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "EUW1_9-123.tmp"), []byte(`{`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "notes.txt"), []byte(`x`), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(store.Dir(), "older"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "older", "EUW1_0.json"), []byte(`{}`), 0o600))

	want := []string{"EUW1_1", "EUW1_2", "EUW1_3", "EUW1_0"}
	assert.Equal(t, want, collect(t, store))
	assert.Equal(t, want, collect(t, store), "second pass should yield the same sequence")

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	for e, err := range store.List() {
		require.NoError(t, err)
		assert.Equal(t, "EUW1_1", e.MatchID)
		data, err := matchstore.ReadFile(e)
		require.NoError(t, err)
		assert.Equal(t, "{}", string(data))
		break
	}
}

func TestGetMissing(t *testing.T) {
	t.Parallel()

	_, err := newStore(t).Get("EUW1_404")
	assert.ErrorIs(t, err, kraken.ErrNotFound)
}
