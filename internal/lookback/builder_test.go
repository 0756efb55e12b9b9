package lookback

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nft-floor-lab/internal/domain"
)

func tradesWithPrices(prices ...float64) []domain.TradeRecord {
	trades := make([]domain.TradeRecord, len(prices))
	for i, p := range prices {
		trades[i] = domain.TradeRecord{
			ChainID:         1,
			ContractAddress: "0xabc",
			TokenID:         string(rune('a' + i)),
			BlockNumber:     int64(i + 1),
			PriceETH:        p,
		}
	}
	return trades
}

func logs(prices ...float64) []float64 {
	out := make([]float64, len(prices))
	for i, p := range prices {
		out[i] = math.Log(p)
	}
	return out
}

func TestBuild_InclusiveTrailingWindows(t *testing.T) {
	windows := Build(tradesWithPrices(1, 2, 3, 4, 5), 3)
	require.Len(t, windows, 5)

	expected := [][]float64{
		logs(1),
		logs(1, 2),
		logs(1, 2, 3),
		logs(2, 3, 4),
		logs(3, 4, 5),
	}
	for i, want := range expected {
		assert.InDeltaSlice(t, want, windows[i].LogPrices, 1e-12, "window %d", i)
		assert.InDelta(t, want[len(want)-1], windows[i].LogPrice, 1e-12)
		assert.Equal(t, int64(i+1), windows[i].Trade.BlockNumber)
	}
}

func TestBuild_Causality(t *testing.T) {
	prices := []float64{5, 1, 8, 2, 2, 9, 3, 7, 4, 6, 10, 1.5}
	trades := tradesWithPrices(prices...)
	windows := Build(trades, 4)

	blockByLog := map[float64]int64{}
	for _, tr := range trades {
		lp := math.Log(tr.PriceETH)
		if _, ok := blockByLog[lp]; !ok {
			blockByLog[lp] = tr.BlockNumber
		}
	}

	for _, w := range windows {
		assert.LessOrEqual(t, len(w.LogPrices), 4)
		for _, lp := range w.LogPrices {
			// earliest trade with this price must not be after the window's trade
			assert.LessOrEqual(t, blockByLog[lp], w.Trade.BlockNumber)
		}
	}
}

func TestBuild_WindowsAreIndependentCopies(t *testing.T) {
	windows := Build(tradesWithPrices(1, 2, 3, 4), 2)
	windows[2].LogPrices[0] = 99

	assert.InDelta(t, math.Log(3), windows[3].LogPrices[0], 1e-12)
}

func TestBuild_SizeOne(t *testing.T) {
	windows := Build(tradesWithPrices(2, 4, 8), 1)
	for i, p := range []float64{2, 4, 8} {
		assert.InDeltaSlice(t, logs(p), windows[i].LogPrices, 1e-12)
	}
}

func TestBuild_Empty(t *testing.T) {
	assert.Nil(t, Build(nil, 3))
	assert.Nil(t, Build(tradesWithPrices(1), 0))
}

func TestTrim(t *testing.T) {
	windows := Build(tradesWithPrices(1, 2, 3, 4, 5), 3)

	last2 := Trim(windows, 2)
	require.Len(t, last2, 2)
	assert.Equal(t, int64(4), last2[0].Trade.BlockNumber)
	assert.Equal(t, int64(5), last2[1].Trade.BlockNumber)

	assert.Len(t, Trim(windows, 10), 5, "short history keeps every window")
	assert.Nil(t, Trim(windows, 0))
}

func TestRing_Wraparound(t *testing.T) {
	r := newRing(3)
	for i := 1; i <= 7; i++ {
		r.push(float64(i))
	}
	assert.Equal(t, []float64{5, 6, 7}, r.snapshot())
}
