package cache

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONStore_SaveLoad(t *testing.T) {
	logger, _ := test.NewNullLogger()
	store := NewJSONStore(filepath.Join(t.TempDir(), "nested", "cache"), logger)

	data := NewData("/data", testFiles(), time.Now())
	require.NoError(t, store.Save(data))

	loaded, found, err := store.Load()
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, data.Metadata.ScannedDirectoryPath, loaded.Metadata.ScannedDirectoryPath)
	assert.Equal(t, data.Metadata.FileCount, loaded.Metadata.FileCount)
	assert.True(t, data.Metadata.ScanDateTimeUtc.Equal(loaded.Metadata.ScanDateTimeUtc))
	assert.Equal(t, data.Files, loaded.Files)
}

func TestJSONStore_Layout(t *testing.T) {
	store := NewJSONStore(t.TempDir(), nil)
	require.NoError(t, store.Save(NewData("/data", testFiles(), time.Now())))

	content, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	for _, key := range []string{
		`"metadata"`, `"scannedDirectoryPath"`, `"scanDateTimeUtc"`, `"fileCount": 2`,
		`"cacheVersionNumber": 1`, `"files"`, `"fullPath"`, `"fileName"`, `"extension": ".log"`,
		`"directoryName"`, `"sizeBytes": 5000`, `"createdUtc"`, `"lastModifiedUtc"`, `"isReadOnly": true`,
	} {
		assert.Contains(t, string(content), key)
	}
}

func TestJSONStore_SaveReplaces(t *testing.T) {
	store := NewJSONStore(t.TempDir(), nil)
	require.NoError(t, store.Save(NewData("/first", testFiles(), time.Now())))
	require.NoError(t, store.Save(NewData("/second", testFiles()[:1], time.Now())))

	loaded, found, err := store.Load()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "/second", loaded.Metadata.ScannedDirectoryPath)
	assert.Len(t, loaded.Files, 1)

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files should not be left behind")
}

func TestJSONStore_LoadMissing(t *testing.T) {
	store := NewJSONStore(t.TempDir(), nil)

	loaded, found, err := store.Load()
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, loaded)
}

func TestJSONStore_CorruptedIsRemoved(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"garbage", "{not json"},
		{"count mismatch", `{"metadata":{"scannedDirectoryPath":"/data","fileCount":3},"files":[]}`},
		{"empty path", `{"metadata":{"fileCount":0},"files":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, hook := test.NewNullLogger()
			store := NewJSONStore(t.TempDir(), logger)
			require.NoError(t, os.WriteFile(store.Path(), []byte(tt.content), 0o644))

			loaded, found, err := store.Load()
			assert.NoError(t, err)
			assert.False(t, found)
			assert.Nil(t, loaded)

			_, err = os.Stat(store.Path())
			assert.True(t, os.IsNotExist(err), "corrupted cache should be removed")

			require.NotNil(t, hook.LastEntry())
			assert.Equal(t, log.ErrorLevel, hook.LastEntry().Level)
		})
	}
}

func TestJSONStore_Delete(t *testing.T) {
	store := NewJSONStore(t.TempDir(), nil)

	assert.NoError(t, store.Delete(), "deleting missing cache is not an error")

	require.NoError(t, store.Save(NewData("/data", testFiles(), time.Now())))
	assert.NoError(t, store.Delete())

	_, found, err := store.Load()
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestJSONStore_SaveFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// cache directory cannot be created below a regular file
	store := NewJSONStore(filepath.Join(blocker, "cache"), nil)
	err := store.Save(NewData("/data", testFiles(), time.Now()))
	assert.True(t, errors.Is(err, ErrStorageWrite))
}

func TestJSONStore_ReadFailure(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permissions are not enforced")
	}

	store := NewJSONStore(t.TempDir(), nil)
	require.NoError(t, store.Save(NewData("/data", testFiles(), time.Now())))
	require.NoError(t, os.Chmod(store.Path(), 0o000))

	_, found, err := store.Load()
	assert.False(t, found)
	assert.True(t, errors.Is(err, ErrStorageRead))
}

func TestDefaultDir(t *testing.T) {
	assert.Equal(t, filepath.Join(os.TempDir(), "topfiles"), DefaultDir())
	assert.Equal(t, filepath.Join(DefaultDir(), DefaultFileName), NewJSONStore("", nil).Path())
}
