package memory

import (
	"context"
	"sync"

	"github.com/techstore/storefront/application/port/outbound"
	"github.com/techstore/storefront/domain/entity"
)

// RefreshStore guards each call with a mutex but holds no lock between a
// find and the following update.
type RefreshStore struct {
	mu      sync.Mutex
	records map[string]entity.RefreshRecord
}

func NewRefreshStore() *RefreshStore {
	return &RefreshStore{records: make(map[string]entity.RefreshRecord)}
}

func (s *RefreshStore) FindRefreshPointer(ctx context.Context, principalID string) (*entity.RefreshRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[principalID]
	if !ok {
		return nil, outbound.ErrRefreshRecordNotFound
	}
	return &record, nil
}

func (s *RefreshStore) UpdateRefreshPointer(ctx context.Context, record *entity.RefreshRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.PrincipalID] = *record
	return nil
}

func (s *RefreshStore) ClearRefreshPointer(ctx context.Context, principalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, principalID)
	return nil
}
