package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nft-floor-lab/internal/domain"
	"nft-floor-lab/internal/storage"
)

func testEstimate(id, runID string, chainID int64, contract string, computedAt int64) *domain.FloorPriceEstimate {
	return &domain.FloorPriceEstimate{
		EstimateID:      id,
		RunID:           runID,
		ChainID:         chainID,
		ContractAddress: contract,
		FloorPriceETH:   4.2,
		LogPriceAdj:     1.435,
		NominalTarget:   0.05,
		AdjustedTarget:  0.0725,
		ObservedHitRate: 0.005,
		BacktestSize:    800,
		LookbackSize:    138,
		TradeCount:      940,
		LastBlockNumber: 19_000_000,
		ComputedAt:      computedAt,
	}
}

func TestFloorPriceStore_InsertAndGetByRunID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFloorPriceStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.FloorPriceEstimate{
		testEstimate("e2", "run-1", 1, "0xbbb", 1000),
		testEstimate("e1", "run-1", 1, "0xaaa", 1000),
		testEstimate("e3", "run-2", 1, "0xaaa", 2000),
	}))

	got, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "0xaaa", got[0].ContractAddress)
	assert.Equal(t, "0xbbb", got[1].ContractAddress)
	assert.Equal(t, *testEstimate("e1", "run-1", 1, "0xaaa", 1000), *got[0])

	none, err := store.GetByRunID(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFloorPriceStore_DuplicateRollsBack(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFloorPriceStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.FloorPriceEstimate{testEstimate("e1", "run-1", 1, "0xaaa", 1000)}))

	err := store.InsertBulk(ctx, []*domain.FloorPriceEstimate{
		testEstimate("e2", "run-2", 1, "0xbbb", 1000),
		testEstimate("e1", "run-1", 1, "0xaaa", 1000),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByRunID(ctx, "run-2")
	require.NoError(t, err)
	assert.Empty(t, got, "batch must be all-or-nothing")
}

func TestFloorPriceStore_GetLatest(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFloorPriceStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.FloorPriceEstimate{
		testEstimate("old", "run-1", 1, "0xaaa", 1000),
		testEstimate("new", "run-2", 1, "0xaaa", 2000),
		testEstimate("other", "run-2", 1, "0xbbb", 3000),
	}))

	got, err := store.GetLatest(ctx, domain.CollectionKey{ChainID: 1, ContractAddress: "0xaaa"})
	require.NoError(t, err)
	assert.Equal(t, "new", got.EstimateID)

	_, err = store.GetLatest(ctx, domain.CollectionKey{ChainID: 2, ContractAddress: "0xaaa"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
