// Package cache persists the result of a directory scan so that
// later runs can answer queries without walking the tree again.
package cache

import (
	"time"

	"github.com/dundee/topfiles/pkg/fs"
	"github.com/pkg/errors"
)

// CurrentVersion is the version of the snapshot layout written by this package
const CurrentVersion = 1

var (
	// ErrStorageRead is returned when a stored snapshot cannot be read
	ErrStorageRead = errors.New("cache storage read failed")
	// ErrStorageWrite is returned when a snapshot cannot be persisted
	ErrStorageWrite = errors.New("cache storage write failed")
)

// Metadata describes the provenance of a cached file list
type Metadata struct {
	ScannedDirectoryPath string    `json:"scannedDirectoryPath"`
	ScanDateTimeUtc      time.Time `json:"scanDateTimeUtc"`
	FileCount            int       `json:"fileCount"`
	CacheVersionNumber   int       `json:"cacheVersionNumber"`
}

// Data pairs metadata with the files of one scan.
// It is always stored and loaded as a whole.
type Data struct {
	Metadata Metadata       `json:"metadata"`
	Files    []fs.FileEntry `json:"files"`
}

// NewData creates snapshot of a completed scan
func NewData(path string, files []fs.FileEntry, scannedAt time.Time) *Data {
	if files == nil {
		files = []fs.FileEntry{}
	}
	return &Data{
		Metadata: Metadata{
			ScannedDirectoryPath: path,
			ScanDateTimeUtc:      scannedAt.UTC(),
			FileCount:            len(files),
			CacheVersionNumber:   CurrentVersion,
		},
		Files: files,
	}
}

// Validate checks that the snapshot is internally consistent
func (d *Data) Validate() error {
	if d.Metadata.ScannedDirectoryPath == "" {
		return errors.New("empty scanned directory path")
	}
	if d.Metadata.FileCount != len(d.Files) {
		return errors.Errorf(
			"file count %d does not match number of files %d",
			d.Metadata.FileCount, len(d.Files),
		)
	}
	return nil
}

// Store persists a single snapshot
type Store interface {
	// Load returns the stored snapshot.
	// found is false when nothing is stored or the stored data was corrupted (and removed).
	// err wraps ErrStorageRead when the storage could not be read at all.
	Load() (data *Data, found bool, err error)
	// Save replaces the stored snapshot
	Save(data *Data) error
	// Delete removes the stored snapshot, it is not an error if there is none
	Delete() error
}
