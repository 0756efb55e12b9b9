package domain

// LookbackWindow is the causal trailing sample of log-prices ending at Trade.
// LogPrices is chronological and its last element is LogPrice.
type LookbackWindow struct {
	Trade     TradeRecord
	LogPrice  float64   // log(Trade.PriceETH)
	LogPrices []float64 // len <= LOOKBACK, only trades at or before Trade
}
