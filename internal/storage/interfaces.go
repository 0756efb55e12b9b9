package storage

import (
	"context"

	"nft-floor-lab/internal/domain"
)

// TradeSource delivers the raw trade table for one run.
type TradeSource interface {
	// LoadTrades returns every trade in a stable row order.
	LoadTrades(ctx context.Context) ([]domain.TradeRecord, error)
}

// TradeStore is a TradeSource that can also be written to (fixtures, backfills).
type TradeStore interface {
	TradeSource

	// InsertBulk appends trades atomically.
	InsertBulk(ctx context.Context, trades []domain.TradeRecord) error
}

// FloorPriceStore provides access to floor price estimate storage.
type FloorPriceStore interface {
	// InsertBulk adds estimates atomically. Fails entire batch on any duplicate estimate_id.
	InsertBulk(ctx context.Context, estimates []*domain.FloorPriceEstimate) error

	// GetByRunID retrieves all estimates of a run, ordered by (chain_id, contract_address).
	GetByRunID(ctx context.Context, runID string) ([]*domain.FloorPriceEstimate, error)

	// GetLatest retrieves the most recent estimate for a collection. Returns ErrNotFound if none.
	GetLatest(ctx context.Context, key domain.CollectionKey) (*domain.FloorPriceEstimate, error)
}
