package analyze

import (
	"github.com/dundee/topfiles/pkg/fs"
	"github.com/maruel/natural"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// DefaultTopCount is the number of files returned when the caller has no preference
const DefaultTopCount = 10

// ExtensionSummary aggregates scanned files with the same extension
type ExtensionSummary struct {
	Extension  string
	FileCount  int
	TotalBytes uint64
}

// GetTopLargestFiles returns up to count largest files.
//
// Non-empty extension limits the result to files whose extension equals it,
// ignoring case and the leading dot. Files of equal size keep discovery order.
func (a *Analyzer) GetTopLargestFiles(count int, extension string) ([]fs.FileEntry, error) {
	a.m.RLock()
	defer a.m.RUnlock()

	state, err := a.scanned()
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "count must be positive, got %d", count)
	}

	return topLargest(state.files, count, fs.NormalizeExtension(extension)), nil
}

// GetExtensionSummary returns count and total size per extension, largest first
func (a *Analyzer) GetExtensionSummary() ([]ExtensionSummary, error) {
	a.m.RLock()
	defer a.m.RUnlock()

	state, err := a.scanned()
	if err != nil {
		return nil, err
	}

	byExt := make(map[string]*ExtensionSummary)
	for _, f := range state.files {
		ext := fs.NormalizeExtension(f.Extension)
		summary, ok := byExt[ext]
		if !ok {
			summary = &ExtensionSummary{Extension: ext}
			byExt[ext] = summary
		}
		summary.FileCount++
		summary.TotalBytes += f.SizeBytes
	}

	exts := maps.Keys(byExt)
	slices.SortFunc(exts, func(x, y string) int {
		sx, sy := byExt[x], byExt[y]
		switch {
		case sx.TotalBytes > sy.TotalBytes:
			return -1
		case sx.TotalBytes < sy.TotalBytes:
			return 1
		case natural.Less(x, y):
			return -1
		case natural.Less(y, x):
			return 1
		}
		return 0
	})

	result := make([]ExtensionSummary, 0, len(exts))
	for _, ext := range exts {
		result = append(result, *byExt[ext])
	}
	return result, nil
}

// topLargest selects matching files and sorts them by size, keeping
// discovery order for equal sizes
func topLargest(files []fs.FileEntry, count int, extension string) []fs.FileEntry {
	selected := make([]fs.FileEntry, 0, len(files))
	for _, f := range files {
		if extension != "" && fs.NormalizeExtension(f.Extension) != extension {
			continue
		}
		selected = append(selected, f)
	}

	slices.SortStableFunc(selected, func(a, b fs.FileEntry) int {
		switch {
		case a.SizeBytes > b.SizeBytes:
			return -1
		case a.SizeBytes < b.SizeBytes:
			return 1
		}
		return 0
	})

	if len(selected) > count {
		selected = selected[:count]
	}
	return selected
}
