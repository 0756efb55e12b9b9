package sanitize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nft-floor-lab/internal/config"
	"nft-floor-lab/internal/domain"
)

func ptr[T any](v T) *T {
	return &v
}

func trade(chain int64, contract, token string, block int64, price float64, twap *float64) domain.TradeRecord {
	return domain.TradeRecord{
		ChainID:         chain,
		ContractAddress: contract,
		TokenID:         token,
		BlockNumber:     block,
		PriceETH:        price,
		TwapBid:         twap,
	}
}

func TestFilter_DropsInvalidPrices(t *testing.T) {
	trades := []domain.TradeRecord{
		trade(1, "0xabc", "1", 10, 0, ptr(1.0)),
		trade(1, "0xabc", "2", 11, -1, ptr(1.0)),
		trade(1, "0xabc", "3", 12, math.NaN(), ptr(1.0)),
		trade(1, "0xabc", "4", 13, math.Inf(1), ptr(1.0)),
		trade(1, "0xabc", "5", 14, 1.5, ptr(1.0)),
	}

	res := Filter(trades, Options{TwapBufferPct: 0.95})

	assert.Equal(t, 4, res.Stats.NonPositivePrice)
	assert.Equal(t, 1, res.Stats.Kept)
	require.Len(t, res.Collections[domain.CollectionKey{ChainID: 1, ContractAddress: "0xabc"}], 1)
}

func TestFilter_TwapBuffer(t *testing.T) {
	trades := []domain.TradeRecord{
		trade(1, "0xabc", "1", 10, 0.94, ptr(1.0)), // below 95% of bid
		trade(1, "0xabc", "2", 11, 0.95, ptr(1.0)), // exactly at buffer: kept
		trade(1, "0xabc", "3", 12, 2.00, nil),      // benchmark missing
		trade(1, "0xabc", "4", 13, 2.00, ptr(math.NaN())),
		trade(1, "0xabc", "5", 14, 1.20, ptr(1.0)),
	}

	res := Filter(trades, Options{TwapBufferPct: 0.95})

	assert.Equal(t, 1, res.Stats.BelowTwap)
	assert.Equal(t, 2, res.Stats.MissingTwap)
	assert.Equal(t, 2, res.Stats.Kept)
}

func TestFilter_BufferDisabled(t *testing.T) {
	trades := []domain.TradeRecord{
		trade(1, "0xabc", "1", 10, 0.01, ptr(100.0)),
		trade(1, "0xabc", "2", 11, 2.00, nil),
		trade(1, "0xabc", "3", 12, 3.00, ptr(math.NaN())),
	}

	res := Filter(trades, Options{TwapBufferPct: 0})

	assert.Equal(t, 0, res.Stats.MissingTwap)
	assert.Equal(t, 0, res.Stats.BelowTwap)
	assert.Equal(t, 3, res.Stats.Kept)
	require.Len(t, res.Collections[domain.CollectionKey{ChainID: 1, ContractAddress: "0xabc"}], 3)
}

func TestFilter_DedupKeepsLatestBlock(t *testing.T) {
	trades := []domain.TradeRecord{
		trade(1, "0xabc", "7", 30, 3.0, ptr(0.0)),
		trade(1, "0xabc", "7", 10, 1.0, ptr(0.0)),
		trade(1, "0xabc", "7", 20, 2.0, ptr(0.0)),
		trade(1, "0xabc", "8", 15, 5.0, ptr(0.0)),
		trade(2, "0xabc", "7", 5, 9.0, ptr(0.0)), // other chain, other token key
	}

	res := Filter(trades, Options{})

	assert.Equal(t, 2, res.Stats.Superseded)
	assert.Equal(t, 2, res.Stats.Collections)

	group := res.Collections[domain.CollectionKey{ChainID: 1, ContractAddress: "0xabc"}]
	require.Len(t, group, 2)

	// Dedup invariant: at most one record per token, with the max block number.
	maxBlock := map[domain.TokenKey]int64{}
	for _, tr := range trades {
		if tr.BlockNumber > maxBlock[tr.TokenKey()] {
			maxBlock[tr.TokenKey()] = tr.BlockNumber
		}
	}
	seen := map[domain.TokenKey]bool{}
	for _, groupTrades := range res.Collections {
		for _, tr := range groupTrades {
			assert.False(t, seen[tr.TokenKey()], "duplicate token %v", tr.TokenKey())
			seen[tr.TokenKey()] = true
			assert.Equal(t, maxBlock[tr.TokenKey()], tr.BlockNumber)
		}
	}
}

func TestFilter_DedupTieKeepsLaterRow(t *testing.T) {
	trades := []domain.TradeRecord{
		trade(1, "0xabc", "7", 10, 1.0, ptr(0.0)),
		trade(1, "0xabc", "7", 10, 2.0, ptr(0.0)),
	}

	res := Filter(trades, Options{})

	group := res.Collections[domain.CollectionKey{ChainID: 1, ContractAddress: "0xabc"}]
	require.Len(t, group, 1)
	assert.Equal(t, 2.0, group[0].PriceETH)
}

func TestFilter_SortedByBlockAndCapped(t *testing.T) {
	var trades []domain.TradeRecord
	for i := 10; i >= 1; i-- {
		trades = append(trades, trade(1, "0xabc", string(rune('a'+i)), int64(i), float64(i), ptr(0.0)))
	}

	res := Filter(trades, Options{MaxPerCollection: 4})

	group := res.Collections[domain.CollectionKey{ChainID: 1, ContractAddress: "0xabc"}]
	require.Len(t, group, 4)
	assert.Equal(t, 6, res.Stats.Capped)
	for i, want := range []int64{7, 8, 9, 10} {
		assert.Equal(t, want, group[i].BlockNumber)
	}
}

func TestFilter_CapTiesByRowOrder(t *testing.T) {
	trades := []domain.TradeRecord{
		trade(1, "0xabc", "1", 5, 1.0, ptr(0.0)),
		trade(1, "0xabc", "2", 5, 2.0, ptr(0.0)),
		trade(1, "0xabc", "3", 5, 3.0, ptr(0.0)),
	}

	res := Filter(trades, Options{MaxPerCollection: 2})

	group := res.Collections[domain.CollectionKey{ChainID: 1, ContractAddress: "0xabc"}]
	require.Len(t, group, 2)
	assert.Equal(t, "2", group[0].TokenID)
	assert.Equal(t, "3", group[1].TokenID)
}

func TestFilter_DoesNotModifyInput(t *testing.T) {
	trades := []domain.TradeRecord{
		trade(1, "0xabc", "2", 20, 2.0, ptr(0.0)),
		trade(1, "0xabc", "1", 10, 1.0, ptr(0.0)),
	}

	Filter(trades, Options{})

	assert.Equal(t, int64(20), trades[0].BlockNumber)
	assert.Equal(t, int64(10), trades[1].BlockNumber)
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.DefaultEstimation())
	assert.Equal(t, 0.95, opts.TwapBufferPct)
	assert.Equal(t, 2*(800+140), opts.MaxPerCollection)
}

func TestResult_KeysSorted(t *testing.T) {
	trades := []domain.TradeRecord{
		trade(2, "0xaaa", "1", 1, 1.0, ptr(0.0)),
		trade(1, "0xbbb", "1", 1, 1.0, ptr(0.0)),
		trade(1, "0xaaa", "1", 1, 1.0, ptr(0.0)),
	}

	keys := Filter(trades, Options{}).Keys()

	require.Len(t, keys, 3)
	assert.Equal(t, domain.CollectionKey{ChainID: 1, ContractAddress: "0xaaa"}, keys[0])
	assert.Equal(t, domain.CollectionKey{ChainID: 1, ContractAddress: "0xbbb"}, keys[1])
	assert.Equal(t, domain.CollectionKey{ChainID: 2, ContractAddress: "0xaaa"}, keys[2])
}
