package badger

import (
	"testing"

	"nessdb/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ storage.Store = (*Store)(nil)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{InMemory: true, BlockCacheSize: 1 << 20})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_Basic(t *testing.T) {
	s := openTestStore(t)

	val, found, err := s.Get([]byte("a"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, val)

	require.NoError(t, s.Put([]byte("a"), []byte("1")))
	val, found, err = s.Get([]byte("a"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("1"), val)

	ok, err := s.Exists([]byte("a"))
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Remove([]byte("a")))
	require.NoError(t, s.Remove([]byte("never")))

	ok, err = s.Exists([]byte("a"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_EmptyValue(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put([]byte("k"), nil))
	val, found, err := s.Get([]byte("k"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.NotNil(t, val)
	assert.Empty(t, val)
}

func TestStore_EmptyKey(t *testing.T) {
	s := openTestStore(t)
	assert.ErrorIs(t, s.Put(nil, []byte("v")), storage.ErrEmptyKey)
}

func TestStore_PersistsOnDisk(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(Options{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, s.Put([]byte("x"), []byte("42")))
	require.NoError(t, s.Close())

	s, err = Open(Options{Dir: dir})
	require.NoError(t, err)
	defer s.Close()

	val, found, err := s.Get([]byte("x"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("42"), val)
	assert.Contains(t, s.Stats(), "dir:"+dir)
}

func TestStore_Stats(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put([]byte("a"), []byte("1")))

	stats := s.Stats()
	assert.Contains(t, stats, "engine:badger")
	assert.Contains(t, stats, "lsm_size:")
	assert.LessOrEqual(t, len(stats), storage.MaxStatsSize)
}

func TestStore_Closed(t *testing.T) {
	s, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Put([]byte("a"), []byte("1"))
	assert.ErrorIs(t, err, storage.ErrClosed)
}
