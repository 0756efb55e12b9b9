package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"nft-floor-lab/internal/domain"
	"nft-floor-lab/internal/storage"
)

// FloorPriceStore implements storage.FloorPriceStore over floor_price_estimates.
type FloorPriceStore struct {
	pool *Pool
}

// NewFloorPriceStore creates a new FloorPriceStore.
func NewFloorPriceStore(pool *Pool) *FloorPriceStore {
	return &FloorPriceStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FloorPriceStore = (*FloorPriceStore)(nil)

const floorPriceSelect = `
	SELECT
		estimate_id, run_id, chain_id, contract_address,
		floor_price_eth, log_price_adj, nominal_target, adjusted_target, observed_hit_rate,
		backtest_size, lookback_size, trade_count, last_block_number,
		computed_at
	FROM floor_price_estimates
`

// InsertBulk adds estimates atomically. Fails entire batch on any duplicate.
func (s *FloorPriceStore) InsertBulk(ctx context.Context, estimates []*domain.FloorPriceEstimate) error {
	if len(estimates) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO floor_price_estimates (
			estimate_id, run_id, chain_id, contract_address,
			floor_price_eth, log_price_adj, nominal_target, adjusted_target, observed_hit_rate,
			backtest_size, lookback_size, trade_count, last_block_number,
			computed_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9,
			$10, $11, $12, $13,
			$14
		)
	`

	for _, e := range estimates {
		if e == nil || e.EstimateID == "" || e.RunID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			e.EstimateID, e.RunID, e.ChainID, e.ContractAddress,
			e.FloorPriceETH, e.LogPriceAdj, e.NominalTarget, e.AdjustedTarget, e.ObservedHitRate,
			e.BacktestSize, e.LookbackSize, e.TradeCount, e.LastBlockNumber,
			e.ComputedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert floor price estimate: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByRunID retrieves all estimates of a run, ordered by (chain_id, contract_address).
func (s *FloorPriceStore) GetByRunID(ctx context.Context, runID string) ([]*domain.FloorPriceEstimate, error) {
	query := floorPriceSelect + `
		WHERE run_id = $1
		ORDER BY chain_id ASC, contract_address ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get floor price estimates by run id: %w", err)
	}
	defer rows.Close()

	var estimates []*domain.FloorPriceEstimate
	for rows.Next() {
		e, err := scanFloorPriceEstimate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan floor price estimate row: %w", err)
		}
		estimates = append(estimates, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate floor price estimate rows: %w", err)
	}
	return estimates, nil
}

// GetLatest retrieves the most recent estimate for a collection. Returns ErrNotFound if none.
func (s *FloorPriceStore) GetLatest(ctx context.Context, key domain.CollectionKey) (*domain.FloorPriceEstimate, error) {
	query := floorPriceSelect + `
		WHERE chain_id = $1 AND contract_address = $2
		ORDER BY computed_at DESC, last_block_number DESC, estimate_id DESC
		LIMIT 1
	`

	e, err := scanFloorPriceEstimate(s.pool.QueryRow(ctx, query, key.ChainID, key.ContractAddress))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest floor price estimate: %w", err)
	}
	return e, nil
}

// scanFloorPriceEstimate scans a single row. pgx.Rows satisfies pgx.Row.
func scanFloorPriceEstimate(row pgx.Row) (*domain.FloorPriceEstimate, error) {
	var e domain.FloorPriceEstimate
	err := row.Scan(
		&e.EstimateID, &e.RunID, &e.ChainID, &e.ContractAddress,
		&e.FloorPriceETH, &e.LogPriceAdj, &e.NominalTarget, &e.AdjustedTarget, &e.ObservedHitRate,
		&e.BacktestSize, &e.LookbackSize, &e.TradeCount, &e.LastBlockNumber,
		&e.ComputedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
