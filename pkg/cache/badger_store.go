package cache

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var snapshotKey = []byte("topfiles:snapshot")

// BadgerStore keeps the snapshot in an embedded BadgerDB
type BadgerStore struct {
	db          *badger.DB
	storagePath string
	logger      log.FieldLogger
	m           sync.RWMutex
}

// NewBadgerStore creates a new store, Open must be called before use
func NewBadgerStore(storagePath string, logger log.FieldLogger) *BadgerStore {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &BadgerStore{
		storagePath: storagePath,
		logger:      logger,
	}
}

// IsOpen returns true if BadgerDB is open
func (s *BadgerStore) IsOpen() bool {
	s.m.RLock()
	defer s.m.RUnlock()
	return s.db != nil
}

// Open opens the database and returns function closing it
func (s *BadgerStore) Open() (func(), error) {
	options := badger.DefaultOptions(s.storagePath)
	options.Logger = nil

	db, err := badger.Open(options)
	if err != nil {
		errMsg := err.Error()

		if os.IsPermission(err) {
			return nil, fmt.Errorf("permission denied opening cache at %s: %w", s.storagePath, err)
		}

		if strings.Contains(errMsg, "no space left") {
			return nil, fmt.Errorf("insufficient disk space for cache at %s: %w", s.storagePath, err)
		}

		if strings.Contains(errMsg, "Cannot acquire directory lock") ||
			strings.Contains(errMsg, "resource temporarily unavailable") {
			return nil, fmt.Errorf("cache database at %s is locked by another process: %w", s.storagePath, err)
		}

		if strings.Contains(errMsg, "manifest") || strings.Contains(errMsg, "checksum") {
			return nil, fmt.Errorf("cache database corrupted at %s (try deleting it with: rm -rf %s): %w",
				s.storagePath, s.storagePath, err)
		}

		return nil, fmt.Errorf("failed to open cache database at %s: %w", s.storagePath, err)
	}

	s.m.Lock()
	s.db = db
	s.m.Unlock()

	return func() {
		s.m.Lock()
		defer s.m.Unlock()
		if s.db != nil {
			s.db.Close()
			s.db = nil
		}
	}, nil
}

// Load reads the snapshot from the database
func (s *BadgerStore) Load() (*Data, bool, error) {
	s.m.RLock()
	defer s.m.RUnlock()

	if s.db == nil {
		return nil, false, errors.Wrap(ErrStorageRead, "storage is not open")
	}

	var (
		data      Data
		decodeErr error
	)

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			decodeErr = gob.NewDecoder(bytes.NewBuffer(val)).Decode(&data)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(ErrStorageRead, "reading snapshot: %v", err)
	}

	if decodeErr == nil {
		decodeErr = data.Validate()
	}
	if decodeErr != nil {
		s.logger.Errorf("Cached snapshot in %s is corrupted and will be removed: %v", s.storagePath, decodeErr)
		if err := s.delete(); err != nil {
			s.logger.Errorf("Removing corrupted snapshot: %v", err)
		}
		return nil, false, nil
	}

	return &data, true, nil
}

// Save replaces the snapshot in the database
func (s *BadgerStore) Save(data *Data) error {
	s.m.RLock()
	defer s.m.RUnlock()

	if s.db == nil {
		return errors.Wrap(ErrStorageWrite, "storage is not open")
	}

	b := &bytes.Buffer{}
	if err := gob.NewEncoder(b).Encode(data); err != nil {
		return errors.Wrapf(ErrStorageWrite, "encoding snapshot: %v", err)
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey, b.Bytes())
	})
	if err != nil {
		return errors.Wrapf(ErrStorageWrite, "storing snapshot: %v", err)
	}

	// old versions of the value are left in the value log
	s.db.RunValueLogGC(0.5) //nolint:errcheck // ErrNoRewrite is expected most of the time
	return nil
}

// Delete removes the snapshot from the database
func (s *BadgerStore) Delete() error {
	s.m.RLock()
	defer s.m.RUnlock()

	if s.db == nil {
		return errors.Wrap(ErrStorageWrite, "storage is not open")
	}
	return s.delete()
}

func (s *BadgerStore) delete() error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(snapshotKey)
	})
	if err != nil {
		return errors.Wrapf(ErrStorageWrite, "deleting snapshot: %v", err)
	}
	return nil
}

