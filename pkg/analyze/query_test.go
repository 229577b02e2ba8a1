package analyze

import (
	"context"
	"testing"
	"time"

	"github.com/dundee/topfiles/pkg/cache"
	"github.com/dundee/topfiles/pkg/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanVirtual(t *testing.T, files map[string]uint64, order []string) *Analyzer {
	t.Helper()

	p := fs.NewVirtualProvider()
	require.NoError(t, p.AddDirectory("/data"))
	for _, name := range order {
		require.NoError(t, p.AddFile("/data/"+name, files[name], time.Now()))
	}

	a := CreateAnalyzer(cache.NewMemoryStore(), AnalyzerOptions{Provider: p})
	require.NoError(t, a.ScanDirectory(context.Background(), "/data"))
	return a
}

func TestGetTopLargestFiles_Sorted(t *testing.T) {
	a := scanVirtual(t,
		map[string]uint64{"a": 10, "b": 300, "c": 20, "d": 300, "e": 1},
		[]string{"a", "b", "c", "d", "e"},
	)

	top, err := a.GetTopLargestFiles(DefaultTopCount, "")
	require.NoError(t, err)
	assert.Equal(t, []uint64{300, 300, 20, 10, 1}, sizes(top))
	// equal sizes keep discovery order
	assert.Equal(t, []string{"b", "d", "c", "a", "e"}, names(top))

	top, err = a.GetTopLargestFiles(2, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d"}, names(top))
}

func TestGetTopLargestFiles_CountOverSize(t *testing.T) {
	a := scanVirtual(t, map[string]uint64{"a": 1, "b": 2}, []string{"a", "b"})

	top, err := a.GetTopLargestFiles(100, "")
	require.NoError(t, err)
	assert.Len(t, top, 2)
}

func TestGetTopLargestFiles_ExactExtension(t *testing.T) {
	a := scanVirtual(t,
		map[string]uint64{"a.log": 1, "a.log.bak": 2, "a.log.gz": 3},
		[]string{"a.log", "a.log.bak", "a.log.gz"},
	)

	for _, filter := range []string{".log", "log", ".LOG"} {
		top, err := a.GetTopLargestFiles(10, filter)
		require.NoError(t, err)
		assert.Equal(t, []string{"a.log"}, names(top), "filter %q", filter)
	}
}

func TestGetTopLargestFiles_CaseInsensitive(t *testing.T) {
	a := scanVirtual(t,
		map[string]uint64{"FILE.LOG": 10, "other.txt": 20},
		[]string{"FILE.LOG", "other.txt"},
	)

	top, err := a.GetTopLargestFiles(10, ".log")
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "FILE.LOG", top[0].FileName)
	assert.Equal(t, ".LOG", top[0].Extension)
}

func TestGetTopLargestFiles_NoMatch(t *testing.T) {
	a := scanVirtual(t, map[string]uint64{"a.txt": 1}, []string{"a.txt"})

	top, err := a.GetTopLargestFiles(10, ".exe")
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestGetExtensionSummary(t *testing.T) {
	a := scanVirtual(t,
		map[string]uint64{"a.log": 10, "B.LOG": 20, "c.txt": 30, "d": 5, "e.v10": 1, "f.v9": 1},
		[]string{"a.log", "B.LOG", "c.txt", "d", "e.v10", "f.v9"},
	)

	summary, err := a.GetExtensionSummary()
	require.NoError(t, err)

	assert.Equal(t, []ExtensionSummary{
		{Extension: ".log", FileCount: 2, TotalBytes: 30},
		{Extension: ".txt", FileCount: 1, TotalBytes: 30},
		{Extension: "", FileCount: 1, TotalBytes: 5},
		{Extension: ".v9", FileCount: 1, TotalBytes: 1},
		{Extension: ".v10", FileCount: 1, TotalBytes: 1},
	}, summary)
}
