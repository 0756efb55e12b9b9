package reporting

import "time"

// Output file names written by WriteFiles.
const (
	CSVFileName      = "floor_prices.csv"
	MarkdownFileName = "FLOOR_PRICE_REPORT.md"
)

// Report is the per-run floor price report.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string

	// Model parameters; nil when rendering a stored run.
	Parameters *Parameters

	// Sanitization outcome; nil when rendering a stored run.
	Sanitization *SanitizationSummary

	// Estimates (sorted by chain_id, contract_address)
	Estimates []EstimateRow

	// Collections omitted from the output
	Failures []FailureRow
}

// Parameters echoes the estimation configuration of the run.
type Parameters struct {
	Lookback      int
	Backtest      int
	PctTarget     float64
	PctTargetMin  float64
	PctTargetMax  float64
	Speed         float64
	TwapBufferPct float64
}

// SanitizationSummary describes what the trade filter kept and dropped.
type SanitizationSummary struct {
	Input       int
	Kept        int
	Collections int
	Drops       []DropRow // fixed reason order
}

// DropRow is one drop reason with its count.
type DropRow struct {
	Reason string
	Count  int
}

// EstimateRow represents one row in the estimates table.
type EstimateRow struct {
	ChainID         int64
	ContractAddress string
	FloorPriceETH   float64
	AdjustedTarget  float64
	ObservedHitRate float64
	BacktestSize    int
	TradeCount      int
	LastBlockNumber int64
}

// FailureRow lists a skipped collection.
type FailureRow struct {
	ChainID         int64
	ContractAddress string
	Reason          string
	Error           string
}
