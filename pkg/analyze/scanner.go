package analyze

import (
	"context"
	"runtime"
	"time"
	"unicode/utf8"

	"github.com/dundee/topfiles/pkg/fs"
	"github.com/dustin/go-humanize"
	"github.com/pbnjay/memory"
	log "github.com/sirupsen/logrus"
)

// DefaultMaxDepth is the deepest directory level a scan descends into
const DefaultMaxDepth = 5000

const (
	fileCountModerate = 200_000
	fileCountHigh     = 500_000
	fileCountCritical = 1_000_000
)

// ScannerOptions contains configuration for Scanner.
// Zero values are replaced by defaults.
type ScannerOptions struct {
	MaxDepth           int
	PathWarnLength     int
	PathCriticalLength int
	MemoryModerateMB   uint64
	MemoryHighMB       uint64
	MemoryTargetMB     uint64
	Throttle           *IOThrottle
}

// DefaultScannerOptions returns options used when nothing is configured
func DefaultScannerOptions() ScannerOptions {
	return ScannerOptions{
		MaxDepth:           DefaultMaxDepth,
		PathWarnLength:     600,
		PathCriticalLength: 800,
		MemoryModerateMB:   200,
		MemoryHighMB:       400,
		MemoryTargetMB:     500,
	}
}

func (o ScannerOptions) withDefaults() ScannerOptions {
	def := DefaultScannerOptions()
	if o.MaxDepth <= 0 {
		o.MaxDepth = def.MaxDepth
	}
	if o.PathWarnLength <= 0 {
		o.PathWarnLength = def.PathWarnLength
	}
	if o.PathCriticalLength <= 0 {
		o.PathCriticalLength = def.PathCriticalLength
	}
	if o.MemoryModerateMB == 0 {
		o.MemoryModerateMB = def.MemoryModerateMB
	}
	if o.MemoryHighMB == 0 {
		o.MemoryHighMB = def.MemoryHighMB
	}
	if o.MemoryTargetMB == 0 {
		o.MemoryTargetMB = def.MemoryTargetMB
	}
	return o
}

// Scanner walks a directory tree and collects metadata of all files in it
type Scanner struct {
	provider fs.Provider
	logger   log.FieldLogger
	opts     ScannerOptions
}

type dirVisit struct {
	dir   fs.DirectoryHandle
	depth int
}

// NewScanner returns scanner walking over given provider
func NewScanner(provider fs.Provider, logger log.FieldLogger, opts ScannerOptions) *Scanner {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Scanner{
		provider: provider,
		logger:   logger,
		opts:     opts.withDefaults(),
	}
}

// Options returns effective options of the scanner
func (s *Scanner) Options() ScannerOptions {
	return s.opts
}

// Scan walks the tree under root and returns files in discovery order.
//
// Directories are visited depth first using an explicit stack, files of a
// directory come before the content of its subdirectories. Failures below the
// root are logged and skipped, only failure of the root itself or
// cancellation of ctx is returned.
func (s *Scanner) Scan(ctx context.Context, root string) ([]fs.FileEntry, *ScanStats, error) {
	stats := NewScanStats()

	rootDir, err := s.provider.GetDirectoryInfo(root)
	if err != nil {
		return nil, stats, err
	}

	s.opts.Throttle.Reset()

	stats.ScanStartTime = time.Now()
	stats.MemoryBefore = heapAlloc()

	files := make([]fs.FileEntry, 0)
	stack := []dirVisit{{dir: rootDir, depth: 0}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		visit := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visit.depth > s.opts.MaxDepth {
			stats.HitDepthLimit()
			s.logger.WithFields(log.Fields{
				"path":  visit.dir.FullPath(),
				"depth": visit.depth,
			}).Warnf("Maximum directory depth %d exceeded, not descending into %s",
				s.opts.MaxDepth, visit.dir.FullPath())
			continue
		}

		if err := s.opts.Throttle.Acquire(ctx); err != nil {
			return nil, stats, err
		}

		var subdirs []fs.DirectoryHandle
		files, subdirs, err = s.processDir(visit, files, stats)
		if err != nil {
			if visit.depth == 0 {
				return nil, stats, err
			}
			stats.SkipDir(err)
			s.logger.WithField("path", visit.dir.FullPath()).
				Warnf("Skipping directory %s: %v", visit.dir.FullPath(), err)
			continue
		}

		// pushed in reverse so that the first subdirectory is visited next
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, dirVisit{dir: subdirs[i], depth: visit.depth + 1})
		}
	}

	stats.MemoryAfter = heapAlloc()
	stats.ScanEndTime = time.Now()
	stats.TotalScanTime = stats.ScanEndTime.Sub(stats.ScanStartTime)

	s.reportTelemetry(root, stats)

	return files, stats, nil
}

// processDir lists one directory and appends its files.
// Nothing is appended if the directory cannot be listed.
func (s *Scanner) processDir(
	visit dirVisit, files []fs.FileEntry, stats *ScanStats,
) ([]fs.FileEntry, []fs.DirectoryHandle, error) {
	fileHandles, err := visit.dir.ListFiles()
	if err != nil {
		return files, nil, err
	}
	subdirs, err := visit.dir.ListSubdirectories()
	if err != nil {
		return files, nil, err
	}

	stats.AddDir(visit.depth)

	for _, f := range fileHandles {
		info, err := f.Stat()
		if err != nil {
			stats.SkipFile(err)
			s.logger.WithField("path", f.FullPath()).
				Warnf("Skipping file %s: %v", f.FullPath(), err)
			continue
		}

		entry := info.ToEntry()
		stats.AddFile(
			utf8.RuneCountInString(entry.FullPath),
			entry.SizeBytes,
			s.opts.PathWarnLength,
			s.opts.PathCriticalLength,
		)
		files = append(files, entry)
	}

	return files, subdirs, nil
}

// reportTelemetry assigns severity tiers and logs values over thresholds
func (s *Scanner) reportTelemetry(root string, stats *ScanStats) {
	logger := s.logger.WithField("path", root)

	stats.mu.Lock()
	defer stats.mu.Unlock()

	stats.FileCountLevel = fileCountLevel(stats.FilesScanned)
	switch stats.FileCountLevel {
	case LevelCritical:
		logger.Warnf("Scanned %d files, over %d files queries and cache files become very large",
			stats.FilesScanned, fileCountCritical)
	case LevelHigh:
		logger.Warnf("Scanned %d files, over %d files memory usage is high",
			stats.FilesScanned, fileCountHigh)
	case LevelModerate:
		logger.Warnf("Scanned %d files, over %d files consider scanning a smaller directory",
			stats.FilesScanned, fileCountModerate)
	}

	switch {
	case stats.PathsOverCritical > 0:
		stats.PathLengthLevel = LevelHigh
		logger.Warnf("%d paths are longer than %d characters (max %d)",
			stats.PathsOverCritical, s.opts.PathCriticalLength, stats.MaxPathLength)
	case stats.PathsOverWarn > 0:
		stats.PathLengthLevel = LevelModerate
		logger.Warnf("%d paths are longer than %d characters (max %d)",
			stats.PathsOverWarn, s.opts.PathWarnLength, stats.MaxPathLength)
	}

	var delta uint64
	if stats.MemoryAfter > stats.MemoryBefore {
		delta = stats.MemoryAfter - stats.MemoryBefore
	}
	deltaMB := delta / (1024 * 1024)

	stats.MemoryLevel = s.opts.memoryLevel(deltaMB)
	switch stats.MemoryLevel {
	case LevelCritical:
		logger.Warnf("Scan used %s of memory, over the target of %d MB (system total %s)",
			humanize.IBytes(delta), s.opts.MemoryTargetMB, humanize.IBytes(memory.TotalMemory()))
	case LevelHigh:
		logger.Warnf("Scan used %s of memory, over %d MB (system total %s)",
			humanize.IBytes(delta), s.opts.MemoryHighMB, humanize.IBytes(memory.TotalMemory()))
	case LevelModerate:
		logger.Infof("Scan used %s of memory, over %d MB",
			humanize.IBytes(delta), s.opts.MemoryModerateMB)
	}

	var avgPath float64
	if stats.FilesScanned > 0 {
		avgPath = float64(stats.TotalPathLength) / float64(stats.FilesScanned)
	}
	logger.WithField("throttled", s.opts.Throttle.IsEnabled()).
		Debugf("Scanned %d files in %d directories in %v (avg path length %.1f, max %d, max depth %d)",
			stats.FilesScanned, stats.DirsScanned, stats.TotalScanTime,
			avgPath, stats.MaxPathLength, stats.MaxDepthReached)
}

func fileCountLevel(files int64) Level {
	switch {
	case files >= fileCountCritical:
		return LevelCritical
	case files >= fileCountHigh:
		return LevelHigh
	case files >= fileCountModerate:
		return LevelModerate
	}
	return LevelNormal
}

// memoryLevel classifies memory growth of a scan in MB
func (o ScannerOptions) memoryLevel(deltaMB uint64) Level {
	switch {
	case deltaMB > o.MemoryTargetMB:
		return LevelCritical
	case deltaMB > o.MemoryHighMB:
		return LevelHigh
	case deltaMB > o.MemoryModerateMB:
		return LevelModerate
	}
	return LevelNormal
}

func heapAlloc() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapAlloc
}
