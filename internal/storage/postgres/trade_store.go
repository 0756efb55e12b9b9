package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"nft-floor-lab/internal/domain"
	"nft-floor-lab/internal/storage"
)

// TradeStore implements storage.TradeStore over the nft_trades table.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

var tradeColumns = []string{
	"chain_id", "contract_address", "token_id", "block_number", "price_eth", "twap_bid",
}

// InsertBulk appends trades with COPY. The id sequence preserves slice order.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []domain.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}
	for _, t := range trades {
		if t.ContractAddress == "" || t.TokenID == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"nft_trades"},
		tradeColumns,
		pgx.CopyFromSlice(len(trades), func(i int) ([]any, error) {
			t := trades[i]
			return []any{t.ChainID, t.ContractAddress, t.TokenID, t.BlockNumber, t.PriceETH, t.TwapBid}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy nft trades: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// LoadTrades returns every trade in insertion order.
func (s *TradeStore) LoadTrades(ctx context.Context) ([]domain.TradeRecord, error) {
	query := `
		SELECT chain_id, contract_address, token_id, block_number, price_eth, twap_bid
		FROM nft_trades
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load nft trades: %w", err)
	}
	defer rows.Close()

	var trades []domain.TradeRecord
	for rows.Next() {
		var t domain.TradeRecord
		if err := rows.Scan(&t.ChainID, &t.ContractAddress, &t.TokenID, &t.BlockNumber, &t.PriceETH, &t.TwapBid); err != nil {
			return nil, fmt.Errorf("scan nft trade row: %w", err)
		}
		t.ContractAddress = domain.NormalizeContract(t.ContractAddress)
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nft trade rows: %w", err)
	}

	return trades, nil
}
