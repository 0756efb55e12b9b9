package domain

// QuantileState is the per-collection controller state for one run.
// Recomputed from scratch every run; never persisted.
type QuantileState struct {
	Target          float64 // adjusted quantile in [PctTargetMin, PctTargetMax]
	ObservedHitRate float64 // fraction of backtest trades at/under their nominal estimate
}

// FloorPriceEstimate is the output record for one collection in one run.
// Corresponds to floor_price_estimates table (PostgreSQL) and
// floor_price_history table (ClickHouse).
type FloorPriceEstimate struct {
	EstimateID      string // deterministic hash of (run_id, chain_id, contract_address)
	RunID           string // run identifier (uuid)
	ChainID         int64
	ContractAddress string

	FloorPriceETH   float64 // exp(LogPriceAdj)
	LogPriceAdj     float64 // adjusted quantile of the latest window, log space
	NominalTarget   float64 // configured PCT_TARGET
	AdjustedTarget  float64 // controller output
	ObservedHitRate float64 // realized hit-rate over the backtest horizon

	BacktestSize    int   // windows in the backtest horizon
	LookbackSize    int   // log-prices in the latest window after outlier removal
	TradeCount      int   // trades surviving sanitization
	LastBlockNumber int64 // block of the most recent surviving trade

	ComputedAt int64 // Unix timestamp in milliseconds
}

// CollectionKey returns the collection the estimate belongs to.
func (e *FloorPriceEstimate) CollectionKey() CollectionKey {
	return CollectionKey{ChainID: e.ChainID, ContractAddress: e.ContractAddress}
}
