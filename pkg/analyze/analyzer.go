package analyze

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dundee/topfiles/pkg/cache"
	"github.com/dundee/topfiles/pkg/fs"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// AnalyzerOptions contains configuration for Analyzer
type AnalyzerOptions struct {
	// Provider defaults to the OS file system
	Provider fs.Provider
	// Logger defaults to the standard logrus logger
	Logger  log.FieldLogger
	Scanner ScannerOptions
	// MaxCacheAge makes older snapshots count as a miss, zero means no expiry
	MaxCacheAge time.Duration
	// ForceRescan ignores any stored snapshot
	ForceRescan bool
}

// scannedState holds the result set of the last successful scan
type scannedState struct {
	metadata  cache.Metadata
	files     []fs.FileEntry
	stats     *ScanStats
	fromCache bool
}

// Analyzer scans a directory once and answers queries over the result.
//
// It is either unscanned (state is nil) or scanned. Queries issued while
// unscanned fail with ErrNotScanned.
type Analyzer struct {
	store       cache.Store
	provider    fs.Provider
	scanner     *Scanner
	logger      log.FieldLogger
	maxCacheAge time.Duration
	forceRescan bool

	state *scannedState
	m     sync.RWMutex
}

// CreateAnalyzer returns a new Analyzer persisting scans into store.
// Nil store means a JSONStore in the default cache directory.
func CreateAnalyzer(store cache.Store, opts AnalyzerOptions) *Analyzer {
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	provider := opts.Provider
	if provider == nil {
		provider = fs.NewOSProvider()
	}
	if store == nil {
		store = cache.NewJSONStore("", logger)
	}

	return &Analyzer{
		store:       store,
		provider:    provider,
		scanner:     NewScanner(provider, logger, opts.Scanner),
		logger:      logger,
		maxCacheAge: opts.MaxCacheAge,
		forceRescan: opts.ForceRescan,
	}
}

// ScanDirectory makes the files under path available for queries.
// Any previous result set is dropped first, also when the scan fails.
// A stored snapshot of the same directory is reused, otherwise the directory
// is walked and the new snapshot replaces the stored one.
func (a *Analyzer) ScanDirectory(ctx context.Context, path string) error {
	a.m.Lock()
	defer a.m.Unlock()

	a.state = nil

	if strings.TrimSpace(path) == "" {
		return errors.Wrap(ErrInvalidArgument, "directory path must not be empty")
	}

	normalized, err := fs.NormalizePath(path)
	if err != nil {
		return errors.Wrapf(ErrInvalidArgument, "%v", err)
	}
	if !a.provider.DirectoryExists(normalized) {
		return errors.Wrapf(fs.ErrNotFound, "%s", normalized)
	}
	if err := a.provider.ValidateDirectoryAccess(normalized); err != nil {
		return err
	}

	if !a.forceRescan {
		if data, ok := a.loadCache(normalized); ok {
			a.state = &scannedState{
				metadata:  data.Metadata,
				files:     data.Files,
				fromCache: true,
			}
			return nil
		}
	}

	files, stats, err := a.scanner.Scan(ctx, normalized)
	if err != nil {
		return err
	}

	data := cache.NewData(normalized, files, time.Now())
	if err := a.store.Save(data); err != nil {
		return err
	}

	a.state = &scannedState{
		metadata: data.Metadata,
		files:    data.Files,
		stats:    stats,
	}
	return nil
}

// loadCache returns stored snapshot if it can be used for path
func (a *Analyzer) loadCache(path string) (*cache.Data, bool) {
	logger := a.logger.WithField("path", path)

	data, found, err := a.store.Load()
	if err != nil {
		logger.Warnf("Reading cache failed, directory will be scanned: %v", err)
		return nil, false
	}
	if !found {
		logger.Debugf("No cached scan found for %s", path)
		return nil, false
	}

	meta := data.Metadata
	if !fs.EqualFold(meta.ScannedDirectoryPath, path) {
		logger.Warnf("Cached scan belongs to %s, not %s, directory will be scanned",
			meta.ScannedDirectoryPath, path)
		return nil, false
	}
	if meta.CacheVersionNumber != cache.CurrentVersion {
		logger.Warnf("Cached scan has version %d, expected %d, directory will be scanned",
			meta.CacheVersionNumber, cache.CurrentVersion)
		return nil, false
	}
	if a.maxCacheAge > 0 && time.Since(meta.ScanDateTimeUtc) > a.maxCacheAge {
		logger.Infof("Cached scan from %s is older than %v, directory will be scanned",
			meta.ScanDateTimeUtc.Format(time.RFC3339), a.maxCacheAge)
		return nil, false
	}

	logger.Infof("Using cached scan of %s from %s with %d files",
		path, meta.ScanDateTimeUtc.Format(time.RFC3339), meta.FileCount)
	return data, true
}

func (a *Analyzer) scanned() (*scannedState, error) {
	if a.state == nil {
		return nil, ErrNotScanned
	}
	return a.state, nil
}

// GetScannedFileCount returns number of files of the scanned directory
func (a *Analyzer) GetScannedFileCount() (int, error) {
	a.m.RLock()
	defer a.m.RUnlock()

	state, err := a.scanned()
	if err != nil {
		return 0, err
	}
	return len(state.files), nil
}

// GetScannedDirectoryPath returns normalized path of the scanned directory
func (a *Analyzer) GetScannedDirectoryPath() (string, error) {
	a.m.RLock()
	defer a.m.RUnlock()

	state, err := a.scanned()
	if err != nil {
		return "", err
	}
	return state.metadata.ScannedDirectoryPath, nil
}

// GetCacheMetadata returns provenance of the current result set, nil if unscanned
func (a *Analyzer) GetCacheMetadata() *cache.Metadata {
	a.m.RLock()
	defer a.m.RUnlock()

	if a.state == nil {
		return nil
	}
	meta := a.state.metadata
	return &meta
}

// GetScanStats returns telemetry of the last walk.
// It is nil when unscanned or when the result came from the cache.
func (a *Analyzer) GetScanStats() *ScanStats {
	a.m.RLock()
	defer a.m.RUnlock()

	if a.state == nil {
		return nil
	}
	return a.state.stats
}

// IsScanComplete returns true once a scan succeeded
func (a *Analyzer) IsScanComplete() bool {
	a.m.RLock()
	defer a.m.RUnlock()
	return a.state != nil
}

// IsFromCache returns true if the current result set was loaded from the cache
func (a *Analyzer) IsFromCache() bool {
	a.m.RLock()
	defer a.m.RUnlock()
	return a.state != nil && a.state.fromCache
}

// Snapshot returns the current result set in its persisted form
func (a *Analyzer) Snapshot() (*cache.Data, error) {
	a.m.RLock()
	defer a.m.RUnlock()

	state, err := a.scanned()
	if err != nil {
		return nil, err
	}
	data := &cache.Data{Metadata: state.metadata}
	data.Files = append(make([]fs.FileEntry, 0, len(state.files)), state.files...)
	return data, nil
}

// ClearCache drops the in-memory result set, the stored snapshot is kept
func (a *Analyzer) ClearCache() {
	a.m.Lock()
	defer a.m.Unlock()
	a.state = nil
}

// ClearCacheFromDisk drops the in-memory result set and the stored snapshot
func (a *Analyzer) ClearCacheFromDisk() error {
	a.ClearCache()
	return a.store.Delete()
}
