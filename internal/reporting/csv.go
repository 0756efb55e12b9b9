package reporting

import (
	"encoding/csv"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var csvHeader = []string{
	"chain_id", "contract_address", "floor_price_eth", "adjusted_target",
	"observed_hit_rate", "backtest_size", "trade_count", "last_block_number",
}

// RenderCSV renders estimate rows as CSV string, one row per collection.
func RenderCSV(rows []EstimateRow) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	// strings.Builder writes never fail, so Write errors are not checked.
	_ = w.Write(csvHeader)
	for _, r := range rows {
		_ = w.Write([]string{
			strconv.FormatInt(r.ChainID, 10),
			r.ContractAddress,
			formatFixed(r.FloorPriceETH, 9),
			formatFixed(r.AdjustedTarget, 6),
			formatFixed(r.ObservedHitRate, 6),
			strconv.Itoa(r.BacktestSize),
			strconv.Itoa(r.TradeCount),
			strconv.FormatInt(r.LastBlockNumber, 10),
		})
	}
	w.Flush()

	return sb.String()
}

// formatFixed renders v with exactly places decimals, half away from zero.
// decimal.NewFromFloat panics on NaN and Inf, so those fall back to strconv.
func formatFixed(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}
