package cache

import "sync"

// MemoryStore keeps the snapshot in memory.
// It is meant for tests and for runs where nothing should be persisted.
type MemoryStore struct {
	data  *Data
	Saves int
	m     sync.Mutex
}

// NewMemoryStore returns empty memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns copy of the stored snapshot
func (s *MemoryStore) Load() (*Data, bool, error) {
	s.m.Lock()
	defer s.m.Unlock()

	if s.data == nil {
		return nil, false, nil
	}
	return s.data.clone(), true, nil
}

// Save stores copy of the snapshot
func (s *MemoryStore) Save(data *Data) error {
	s.m.Lock()
	defer s.m.Unlock()

	s.data = data.clone()
	s.Saves++
	return nil
}

// Delete drops the stored snapshot
func (s *MemoryStore) Delete() error {
	s.m.Lock()
	defer s.m.Unlock()

	s.data = nil
	return nil
}

func (d *Data) clone() *Data {
	c := &Data{Metadata: d.Metadata}
	c.Files = append(c.Files, d.Files...)
	return c
}
