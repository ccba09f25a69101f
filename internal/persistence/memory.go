package persistence

import (
	"bytes"
	"io"
	"sync"

	"github.com/markusressel/controlbox/internal/cbox"
)

// MemoryStorage keeps records in memory. It is used when persistence is
// disabled and in tests.
type MemoryStorage struct {
	mu      sync.Mutex
	records map[cbox.ObjectID][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{records: map[cbox.ObjectID][]byte{}}
}

func (s *MemoryStorage) Init() error {
	return nil
}

func (s *MemoryStorage) StoreObject(id cbox.ObjectID, write func(w io.Writer) error) error {
	data, persist, err := bufferRecord(write)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !persist {
		delete(s.records, id)
		return nil
	}
	s.records[id] = data
	return nil
}

func (s *MemoryStorage) RetrieveObject(id cbox.ObjectID, read func(r io.Reader) error) error {
	s.mu.Lock()
	data, ok := s.records[id]
	s.mu.Unlock()
	if !ok {
		return cbox.ErrPersistedObjectNotFound
	}
	return read(bytes.NewReader(data))
}

func (s *MemoryStorage) RetrieveObjects(read func(id cbox.ObjectID, r io.Reader) error) error {
	s.mu.Lock()
	records := make([]record, 0, len(s.records))
	for id, data := range s.records {
		records = append(records, record{id: id, data: data})
	}
	s.mu.Unlock()
	sortRecords(records)
	return replay(records, read)
}

func (s *MemoryStorage) DisposeObject(id cbox.ObjectID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[id]
	delete(s.records, id)
	return ok
}

func (s *MemoryStorage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = map[cbox.ObjectID][]byte{}
	return nil
}
