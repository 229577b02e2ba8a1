package cache

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// DefaultFileName is the name of the snapshot file inside the cache directory
const DefaultFileName = "cache.json"

// DefaultDir returns the default cache directory inside the system temp directory
func DefaultDir() string {
	return filepath.Join(os.TempDir(), "topfiles")
}

// JSONStore stores the snapshot as a single indented JSON document
type JSONStore struct {
	dir    string
	logger log.FieldLogger
}

// NewJSONStore returns store writing into given directory.
// Empty dir means DefaultDir, nil logger means the standard logrus logger.
func NewJSONStore(dir string, logger log.FieldLogger) *JSONStore {
	if dir == "" {
		dir = DefaultDir()
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &JSONStore{
		dir:    dir,
		logger: logger,
	}
}

// Path returns path of the snapshot file
func (s *JSONStore) Path() string {
	return filepath.Join(s.dir, DefaultFileName)
}

// Load reads the snapshot file
func (s *JSONStore) Load() (*Data, bool, error) {
	path := s.Path()

	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(ErrStorageRead, "reading %s: %v", path, err)
	}

	data := &Data{}
	if err := json.Unmarshal(content, data); err != nil {
		s.dropCorrupted(path, err)
		return nil, false, nil
	}
	if err := data.Validate(); err != nil {
		s.dropCorrupted(path, err)
		return nil, false, nil
	}

	s.logger.Debugf("Loaded cache of %s with %d files from %s",
		data.Metadata.ScannedDirectoryPath, data.Metadata.FileCount, path)
	return data, true, nil
}

// Save writes the snapshot to a temporary file and renames it over the old one
func (s *JSONStore) Save(data *Data) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrapf(ErrStorageWrite, "creating cache directory %s: %v", s.dir, err)
	}

	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errors.Wrapf(ErrStorageWrite, "encoding cache: %v", err)
	}

	tmp, err := os.CreateTemp(s.dir, DefaultFileName+".*.tmp")
	if err != nil {
		return errors.Wrapf(ErrStorageWrite, "creating temporary file in %s: %v", s.dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrapf(ErrStorageWrite, "writing %s: %v", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(ErrStorageWrite, "closing %s: %v", tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.Path()); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(ErrStorageWrite, "replacing %s: %v", s.Path(), err)
	}

	s.logger.Debugf("Saved cache of %s with %d files to %s",
		data.Metadata.ScannedDirectoryPath, data.Metadata.FileCount, s.Path())
	return nil
}

// Delete removes the snapshot file
func (s *JSONStore) Delete() error {
	err := os.Remove(s.Path())
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(ErrStorageWrite, "removing %s: %v", s.Path(), err)
	}
	return nil
}

func (s *JSONStore) dropCorrupted(path string, cause error) {
	s.logger.Errorf("Cache file %s is corrupted and will be removed: %v", path, cause)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Errorf("Removing corrupted cache file %s: %v", path, err)
	}
}
