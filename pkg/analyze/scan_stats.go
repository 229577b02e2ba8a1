package analyze

import (
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
)

// maxCollectedErrors bounds the number of skipped errors kept in memory
const maxCollectedErrors = 100

// Level is the severity tier of a telemetry value
type Level int

const (
	// LevelNormal means no threshold was reached
	LevelNormal Level = iota
	// LevelModerate is advisory only
	LevelModerate
	// LevelHigh means the value is close to the supported limits
	LevelHigh
	// LevelCritical means the value is over the supported limits
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelModerate:
		return "moderate"
	case LevelHigh:
		return "high"
	case LevelCritical:
		return "critical"
	default:
		return "normal"
	}
}

// ScanStats tracks telemetry of a single directory walk
type ScanStats struct {
	FilesScanned      int64
	FilesSkipped      int64
	DirsScanned       int64
	DirsSkipped       int64
	DepthLimitHits    int64
	MaxDepthReached   int
	MaxPathLength     int
	TotalPathLength   int64
	PathsOverWarn     int64
	PathsOverCritical int64
	TotalBytes        uint64
	MemoryBefore      uint64
	MemoryAfter       uint64
	ScanStartTime     time.Time
	ScanEndTime       time.Time
	TotalScanTime     time.Duration

	// Severity tiers assigned when the walk finishes
	FileCountLevel  Level
	PathLengthLevel Level
	MemoryLevel     Level

	skipped      *multierror.Error
	skippedCount int
	mu           sync.RWMutex
}

// NewScanStats creates a new ScanStats instance
func NewScanStats() *ScanStats {
	return &ScanStats{}
}

// AddFile records one collected file with its path length in characters
func (s *ScanStats) AddFile(pathLength int, size uint64, warnLength, criticalLength int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.FilesScanned++
	s.TotalBytes += size
	s.TotalPathLength += int64(pathLength)
	if pathLength > s.MaxPathLength {
		s.MaxPathLength = pathLength
	}
	if pathLength > criticalLength {
		s.PathsOverCritical++
	}
	if pathLength > warnLength {
		s.PathsOverWarn++
	}
}

// AddDir records one visited directory
func (s *ScanStats) AddDir(depth int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.DirsScanned++
	if depth > s.MaxDepthReached {
		s.MaxDepthReached = depth
	}
}

// SkipFile records file whose metadata could not be read
func (s *ScanStats) SkipFile(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.FilesSkipped++
	s.collect(err)
}

// SkipDir records directory branch which was not walked
func (s *ScanStats) SkipDir(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.DirsSkipped++
	s.collect(err)
}

// HitDepthLimit records branch cut off by the depth guard
func (s *ScanStats) HitDepthLimit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DepthLimitHits++
}

func (s *ScanStats) collect(err error) {
	if err == nil {
		return
	}
	s.skippedCount++
	if s.skippedCount <= maxCollectedErrors {
		s.skipped = multierror.Append(s.skipped, err)
	}
}

// SkippedErrors returns the errors recovered during the walk or nil.
// Only the first errors are kept, SkippedCount returns the total.
func (s *ScanStats) SkippedErrors() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.skipped.ErrorOrNil()
}

// SkippedCount returns number of all recovered errors
func (s *ScanStats) SkippedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.skippedCount
}

// AveragePathLength returns average length of collected file paths
func (s *ScanStats) AveragePathLength() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.FilesScanned == 0 {
		return 0
	}
	return float64(s.TotalPathLength) / float64(s.FilesScanned)
}

// MemoryDelta returns growth of the heap during the walk in bytes
func (s *ScanStats) MemoryDelta() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.MemoryAfter < s.MemoryBefore {
		return 0
	}
	return s.MemoryAfter - s.MemoryBefore
}

// MemoryDeltaMB returns growth of the heap during the walk in megabytes
func (s *ScanStats) MemoryDeltaMB() float64 {
	return float64(s.MemoryDelta()) / (1024 * 1024)
}

// String returns a formatted string representation of statistics
func (s *ScanStats) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return fmt.Sprintf(`Scan Statistics:
  Files:            %d collected, %d skipped (%s)
  Directories:      %d visited, %d skipped, %d cut by depth limit
  Path length:      max %d, over limits %d/%d
  Memory:           %s before, %s after
  Performance:      %v`,
		s.FilesScanned,
		s.FilesSkipped,
		humanize.IBytes(s.TotalBytes),
		s.DirsScanned,
		s.DirsSkipped,
		s.DepthLimitHits,
		s.MaxPathLength,
		s.PathsOverWarn,
		s.PathsOverCritical,
		humanize.IBytes(s.MemoryBefore),
		humanize.IBytes(s.MemoryAfter),
		s.TotalScanTime,
	)
}
