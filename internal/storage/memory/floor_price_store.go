package memory

import (
	"context"
	"sort"
	"sync"

	"nft-floor-lab/internal/domain"
	"nft-floor-lab/internal/storage"
)

// FloorPriceStore is an in-memory implementation of storage.FloorPriceStore.
type FloorPriceStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FloorPriceEstimate // keyed by estimate_id
}

// NewFloorPriceStore creates a new in-memory floor price store.
func NewFloorPriceStore() *FloorPriceStore {
	return &FloorPriceStore{
		data: make(map[string]*domain.FloorPriceEstimate),
	}
}

// InsertBulk adds estimates atomically. Fails entire batch on any duplicate.
func (s *FloorPriceStore) InsertBulk(_ context.Context, estimates []*domain.FloorPriceEstimate) error {
	if len(estimates) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(estimates))
	for _, e := range estimates {
		if e == nil || e.EstimateID == "" || e.RunID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[e.EstimateID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[e.EstimateID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[e.EstimateID] = struct{}{}
	}

	for _, e := range estimates {
		copy := *e
		s.data[e.EstimateID] = &copy
	}
	return nil
}

// GetByRunID retrieves all estimates of a run, ordered by (chain_id, contract_address).
func (s *FloorPriceStore) GetByRunID(_ context.Context, runID string) ([]*domain.FloorPriceEstimate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FloorPriceEstimate
	for _, e := range s.data {
		if e.RunID == runID {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CollectionKey().Less(result[j].CollectionKey())
	})
	return result, nil
}

// GetLatest retrieves the most recent estimate for a collection by computed_at,
// then last_block_number. Returns ErrNotFound if none.
func (s *FloorPriceStore) GetLatest(_ context.Context, key domain.CollectionKey) (*domain.FloorPriceEstimate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.FloorPriceEstimate
	for _, e := range s.data {
		if e.ChainID != key.ChainID || e.ContractAddress != key.ContractAddress {
			continue
		}
		if latest == nil || newer(e, latest) {
			latest = e
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}

	copy := *latest
	return &copy, nil
}

func newer(a, b *domain.FloorPriceEstimate) bool {
	if a.ComputedAt != b.ComputedAt {
		return a.ComputedAt > b.ComputedAt
	}
	if a.LastBlockNumber != b.LastBlockNumber {
		return a.LastBlockNumber > b.LastBlockNumber
	}
	return a.EstimateID > b.EstimateID
}

var _ storage.FloorPriceStore = (*FloorPriceStore)(nil)
