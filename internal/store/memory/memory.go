package memory

import (
	"context"
	"sync"

	"github.com/DoyleJ11/inhouse-queue/internal/ledger"
)

// RecordStore keeps ledger records in process memory. Values are copied in
// and out so callers never share a map with the store.
type RecordStore struct {
	scopes map[string]ledger.Records
	mu     sync.RWMutex
}

// NewRecordStore creates an empty store
func NewRecordStore() *RecordStore {
	return &RecordStore{
		scopes: make(map[string]ledger.Records),
	}
}

// Load returns a copy of the scope's records, empty if none were saved.
func (s *RecordStore) Load(ctx context.Context, scope string) (ledger.Records, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scopes[scope].Clone(), nil
}

// Save replaces the scope's records.
func (s *RecordStore) Save(ctx context.Context, scope string, records ledger.Records) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scopes[scope] = records.Clone()
	return nil
}

