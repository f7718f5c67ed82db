package declaration

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// ErrNoRecord is returned by SessionStore.Load when nothing was saved.
var ErrNoRecord = errors.New("declaration: no saved record")

// SessionStore keeps the most recently submitted record for one owner.
type SessionStore interface {
	Save(ctx context.Context, rec Record) error
	Load(ctx context.Context) (Record, error)
}

// MemoryStore is a SessionStore that round-trips records through JSON, the
// same way a browser session or database column would.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (Record, error) {
	s.mu.Lock()
	data := s.data
	s.mu.Unlock()
	if data == nil {
		return Record{}, ErrNoRecord
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}
