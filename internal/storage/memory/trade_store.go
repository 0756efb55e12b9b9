package memory

import (
	"context"
	"sync"

	"nft-floor-lab/internal/domain"
	"nft-floor-lab/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
// Rows are kept in insertion order.
type TradeStore struct {
	mu   sync.RWMutex
	rows []domain.TradeRecord
}

// NewTradeStore creates a new in-memory trade store, optionally seeded with rows.
func NewTradeStore(seed ...domain.TradeRecord) *TradeStore {
	s := &TradeStore{}
	s.rows = append(s.rows, seed...)
	return s
}

// InsertBulk appends trades. Rejects trades without a contract or token id.
func (s *TradeStore) InsertBulk(_ context.Context, trades []domain.TradeRecord) error {
	for _, t := range trades {
		if t.ContractAddress == "" || t.TokenID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range trades {
		s.rows = append(s.rows, copyTrade(t))
	}
	return nil
}

// LoadTrades returns a copy of every row in insertion order.
func (s *TradeStore) LoadTrades(_ context.Context) ([]domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.TradeRecord, len(s.rows))
	for i, t := range s.rows {
		out[i] = copyTrade(t)
	}
	return out, nil
}

// copyTrade detaches the nullable benchmark pointer.
func copyTrade(t domain.TradeRecord) domain.TradeRecord {
	if t.TwapBid != nil {
		v := *t.TwapBid
		t.TwapBid = &v
	}
	return t
}

var _ storage.TradeStore = (*TradeStore)(nil)
