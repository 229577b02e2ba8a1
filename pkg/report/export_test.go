package report

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dundee/topfiles/pkg/cache"
	"github.com/dundee/topfiles/pkg/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testData() *cache.Data {
	return cache.NewData("/data", []fs.FileEntry{
		{FullPath: "/data/a.log", FileName: "a.log", Extension: ".log", DirectoryPath: "/data", SizeBytes: 100},
		{FullPath: "/data/b.txt", FileName: "b.txt", Extension: ".txt", DirectoryPath: "/data", SizeBytes: 5},
	}, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
}

func TestExportImport(t *testing.T) {
	for _, compress := range []bool{false, true} {
		buff := &bytes.Buffer{}
		require.NoError(t, Export(buff, testData(), compress))

		if compress {
			assert.True(t, bytes.HasPrefix(buff.Bytes(), xzMagic))
		} else {
			assert.Contains(t, buff.String(), `"scannedDirectoryPath": "/data"`)
		}

		data, err := Import(buff)
		require.NoError(t, err)
		assert.Equal(t, testData().Metadata, data.Metadata)
		assert.Equal(t, testData().Files, data.Files)
	}
}

func TestExportImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json.xz")
	require.NoError(t, ExportFile(path, testData()))

	data, err := ImportFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, data.Metadata.FileCount)
}

func TestImportInvalid(t *testing.T) {
	_, err := Import(strings.NewReader("not json"))
	assert.Error(t, err)

	_, err = Import(strings.NewReader(`{"metadata":{"scannedDirectoryPath":"/x","fileCount":1},"files":[]}`))
	assert.Error(t, err)

	_, err = Import(strings.NewReader(""))
	assert.Error(t, err)

	_, err = ImportFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
