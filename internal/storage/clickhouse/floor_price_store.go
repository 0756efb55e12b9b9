package clickhouse

import (
	"context"
	"fmt"

	"nft-floor-lab/internal/domain"
	"nft-floor-lab/internal/storage"
)

const floorPriceSelect = `
	SELECT estimate_id, run_id, chain_id, contract_address,
		floor_price_eth, log_price_adj, nominal_target, adjusted_target,
		observed_hit_rate, backtest_size, lookback_size, trade_count,
		last_block_number, computed_at
	FROM floor_price_history FINAL
`

// FloorPriceStore implements storage.FloorPriceStore on floor_price_history.
type FloorPriceStore struct {
	conn *Conn
}

// NewFloorPriceStore creates a new FloorPriceStore.
func NewFloorPriceStore(conn *Conn) *FloorPriceStore {
	return &FloorPriceStore{conn: conn}
}

var _ storage.FloorPriceStore = (*FloorPriceStore)(nil)

// InsertBulk appends estimates. Fails the whole batch if any estimate_id
// repeats within the batch or already exists.
func (s *FloorPriceStore) InsertBulk(ctx context.Context, estimates []*domain.FloorPriceEstimate) error {
	if len(estimates) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(estimates))
	for _, e := range estimates {
		if e == nil || e.EstimateID == "" {
			return storage.ErrInvalidInput
		}
		if _, ok := seen[e.EstimateID]; ok {
			return storage.ErrDuplicateKey
		}
		seen[e.EstimateID] = struct{}{}
	}

	for _, e := range estimates {
		exists, err := s.exists(ctx, e.EstimateID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO floor_price_history (
			estimate_id, run_id, chain_id, contract_address,
			floor_price_eth, log_price_adj, nominal_target, adjusted_target,
			observed_hit_rate, backtest_size, lookback_size, trade_count,
			last_block_number, computed_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	return sendBatch(batch, len(estimates), func(i int) []any {
		e := estimates[i]
		return []any{
			e.EstimateID, e.RunID, e.ChainID, e.ContractAddress,
			e.FloorPriceETH, e.LogPriceAdj, e.NominalTarget, e.AdjustedTarget,
			e.ObservedHitRate, int64(e.BacktestSize), int64(e.LookbackSize), int64(e.TradeCount),
			e.LastBlockNumber, e.ComputedAt,
		}
	})
}

// GetByRunID returns all estimates of a run ordered by (chain_id, contract_address).
func (s *FloorPriceStore) GetByRunID(ctx context.Context, runID string) ([]*domain.FloorPriceEstimate, error) {
	rows, err := s.conn.Query(ctx, floorPriceSelect+`
		WHERE run_id = ?
		ORDER BY chain_id ASC, contract_address ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	return scanFloorPrices(rows)
}

// GetLatest returns the most recent estimate for a collection.
func (s *FloorPriceStore) GetLatest(ctx context.Context, key domain.CollectionKey) (*domain.FloorPriceEstimate, error) {
	rows, err := s.conn.Query(ctx, floorPriceSelect+`
		WHERE chain_id = ? AND contract_address = ?
		ORDER BY computed_at DESC, last_block_number DESC, estimate_id DESC
		LIMIT 1
	`, key.ChainID, key.ContractAddress)
	if err != nil {
		return nil, fmt.Errorf("query latest: %w", err)
	}
	defer rows.Close()

	estimates, err := scanFloorPrices(rows)
	if err != nil {
		return nil, err
	}
	if len(estimates) == 0 {
		return nil, storage.ErrNotFound
	}
	return estimates[0], nil
}

func (s *FloorPriceStore) exists(ctx context.Context, estimateID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count(*) FROM floor_price_history WHERE estimate_id = ?
	`, estimateID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanFloorPrices(rows chRows) ([]*domain.FloorPriceEstimate, error) {
	var estimates []*domain.FloorPriceEstimate
	for rows.Next() {
		var e domain.FloorPriceEstimate
		var backtestSize, lookbackSize, tradeCount int64

		err := rows.Scan(
			&e.EstimateID, &e.RunID, &e.ChainID, &e.ContractAddress,
			&e.FloorPriceETH, &e.LogPriceAdj, &e.NominalTarget, &e.AdjustedTarget,
			&e.ObservedHitRate, &backtestSize, &lookbackSize, &tradeCount,
			&e.LastBlockNumber, &e.ComputedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan floor price row: %w", err)
		}

		e.BacktestSize = int(backtestSize)
		e.LookbackSize = int(lookbackSize)
		e.TradeCount = int(tradeCount)
		estimates = append(estimates, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate floor price rows: %w", err)
	}
	return estimates, nil
}
