package clickhouse

import (
	"context"
	"fmt"

	"nft-floor-lab/internal/domain"
	"nft-floor-lab/internal/storage"
)

// TradeStore implements storage.TradeStore on the nft_trades table.
type TradeStore struct {
	conn *Conn
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(conn *Conn) *TradeStore {
	return &TradeStore{conn: conn}
}

var _ storage.TradeStore = (*TradeStore)(nil)

// InsertBulk appends trades in a single batch. Each row receives a row_seq
// continuing from the current maximum, so LoadTrades returns insertion order.
// Not safe for concurrent writers.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []domain.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}
	for _, t := range trades {
		if t.ContractAddress == "" || t.TokenID == "" {
			return storage.ErrInvalidInput
		}
	}

	var next uint64
	if err := s.conn.QueryRow(ctx, `SELECT max(row_seq) + 1 FROM nft_trades`).Scan(&next); err != nil {
		return fmt.Errorf("read next row_seq: %w", err)
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO nft_trades (
			row_seq, chain_id, contract_address, token_id,
			block_number, price_eth, twap_bid
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	return sendBatch(batch, len(trades), func(i int) []any {
		t := trades[i]
		return []any{
			next + uint64(i), t.ChainID, t.ContractAddress, t.TokenID,
			t.BlockNumber, t.PriceETH, t.TwapBid,
		}
	})
}

// LoadTrades returns every trade in insertion order.
func (s *TradeStore) LoadTrades(ctx context.Context) ([]domain.TradeRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT chain_id, contract_address, token_id, block_number, price_eth, twap_bid
		FROM nft_trades
		ORDER BY row_seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

func scanTrades(rows chRows) ([]domain.TradeRecord, error) {
	var trades []domain.TradeRecord
	for rows.Next() {
		var t domain.TradeRecord
		if err := rows.Scan(
			&t.ChainID, &t.ContractAddress, &t.TokenID,
			&t.BlockNumber, &t.PriceETH, &t.TwapBid,
		); err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		t.ContractAddress = domain.NormalizeContract(t.ContractAddress)
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return trades, nil
}
