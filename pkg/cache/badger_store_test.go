package cache

import (
	"testing"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRaw(s *BadgerStore, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey, value)
	})
}

// TestBadgerStore_SaveLoad verifies basic store and load operations
func TestBadgerStore_SaveLoad(t *testing.T) {
	store := NewBadgerStore(t.TempDir(), nil)
	closeFn, err := store.Open()
	require.NoError(t, err)
	defer closeFn()

	data := NewData("/data", testFiles(), time.Now())
	require.NoError(t, store.Save(data))

	loaded, found, err := store.Load()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, data.Metadata.ScannedDirectoryPath, loaded.Metadata.ScannedDirectoryPath)
	assert.Equal(t, data.Metadata.FileCount, loaded.Metadata.FileCount)
	assert.Equal(t, data.Files, loaded.Files)
}

// TestBadgerStore_Persistence verifies that the snapshot survives reopening
func TestBadgerStore_Persistence(t *testing.T) {
	dir := t.TempDir()

	store := NewBadgerStore(dir, nil)
	closeFn, err := store.Open()
	require.NoError(t, err)
	require.NoError(t, store.Save(NewData("/data", testFiles(), time.Now())))
	closeFn()
	assert.False(t, store.IsOpen())

	store2 := NewBadgerStore(dir, nil)
	closeFn2, err := store2.Open()
	require.NoError(t, err)
	defer closeFn2()

	loaded, found, err := store2.Load()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, loaded.Metadata.FileCount)
}

// TestBadgerStore_LoadMissing verifies that empty database is a miss
func TestBadgerStore_LoadMissing(t *testing.T) {
	store := NewBadgerStore(t.TempDir(), nil)
	closeFn, err := store.Open()
	require.NoError(t, err)
	defer closeFn()

	loaded, found, err := store.Load()
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, loaded)
}

// TestBadgerStore_Delete verifies deletion
func TestBadgerStore_Delete(t *testing.T) {
	store := NewBadgerStore(t.TempDir(), nil)
	closeFn, err := store.Open()
	require.NoError(t, err)
	defer closeFn()

	assert.NoError(t, store.Delete())

	require.NoError(t, store.Save(NewData("/data", testFiles(), time.Now())))
	require.NoError(t, store.Delete())

	_, found, err := store.Load()
	assert.NoError(t, err)
	assert.False(t, found)
}

// TestBadgerStore_Corrupted verifies that undecodable snapshot is removed
func TestBadgerStore_Corrupted(t *testing.T) {
	logger, hook := test.NewNullLogger()
	store := NewBadgerStore(t.TempDir(), logger)
	closeFn, err := store.Open()
	require.NoError(t, err)
	defer closeFn()

	require.NoError(t, setRaw(store, []byte("definitely not gob")))

	_, found, err := store.Load()
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NotEmpty(t, hook.AllEntries())

	// second load sees nothing at all
	_, found, err = store.Load()
	assert.NoError(t, err)
	assert.False(t, found)
}

// TestBadgerStore_NotOpen verifies that methods fail instead of panicking
func TestBadgerStore_NotOpen(t *testing.T) {
	store := NewBadgerStore(t.TempDir(), nil)

	_, found, err := store.Load()
	assert.False(t, found)
	assert.True(t, errors.Is(err, ErrStorageRead))
	assert.Contains(t, err.Error(), "storage is not open")

	err = store.Save(NewData("/data", testFiles(), time.Now()))
	assert.True(t, errors.Is(err, ErrStorageWrite))

	err = store.Delete()
	assert.True(t, errors.Is(err, ErrStorageWrite))
}

// TestBadgerStore_OpenFailure verifies error message for unusable path
func TestBadgerStore_OpenFailure(t *testing.T) {
	dir := t.TempDir()
	store := NewBadgerStore(dir, nil)
	closeFn, err := store.Open()
	require.NoError(t, err)
	defer closeFn()

	// second handle on the same directory cannot take the lock
	other := NewBadgerStore(dir, nil)
	_, err = other.Open()
	assert.Error(t, err)
	assert.False(t, other.IsOpen())
}
