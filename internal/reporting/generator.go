package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"nft-floor-lab/internal/config"
	"nft-floor-lab/internal/domain"
	"nft-floor-lab/internal/floorprice"
	"nft-floor-lab/internal/sanitize"
	"nft-floor-lab/internal/storage"
)

// Generator produces reports from run output or stored estimates.
type Generator struct {
	store storage.FloorPriceStore
	now   func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. store may be nil when only
// FromRun is used.
func NewGenerator(store storage.FloorPriceStore) *Generator {
	return &Generator{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds a report for a persisted run. Returns storage.ErrNotFound
// if the run has no estimates.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	if g.store == nil {
		return nil, fmt.Errorf("generate report: no floor price store configured")
	}

	estimates, err := g.store.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	if len(estimates) == 0 {
		return nil, fmt.Errorf("run %s: %w", runID, storage.ErrNotFound)
	}

	return &Report{
		GeneratedAt: g.now(),
		RunID:       runID,
		Estimates:   estimateRows(estimates),
	}, nil
}

// FromRun builds a report from the output of an estimation run.
func (g *Generator) FromRun(
	runID string,
	params config.Estimation,
	filter sanitize.Stats,
	estimates []*domain.FloorPriceEstimate,
	failures []floorprice.Failure,
) *Report {
	return &Report{
		GeneratedAt: g.now(),
		RunID:       runID,
		Parameters: &Parameters{
			Lookback:      params.Lookback,
			Backtest:      params.Backtest,
			PctTarget:     params.PctTarget,
			PctTargetMin:  params.PctTargetMin,
			PctTargetMax:  params.PctTargetMax,
			Speed:         params.Speed,
			TwapBufferPct: params.TwapBufferPct,
		},
		Sanitization: sanitizationSummary(filter),
		Estimates:    estimateRows(estimates),
		Failures:     failureRows(failures),
	}
}

// dropOrder fixes the row order of the drops table.
var dropOrder = []string{
	sanitize.ReasonNonPositivePrice,
	sanitize.ReasonMissingTwap,
	sanitize.ReasonBelowTwap,
	sanitize.ReasonSuperseded,
	sanitize.ReasonCapped,
}

func sanitizationSummary(s sanitize.Stats) *SanitizationSummary {
	dropped := s.Dropped()
	drops := make([]DropRow, 0, len(dropOrder))
	for _, reason := range dropOrder {
		drops = append(drops, DropRow{Reason: reason, Count: dropped[reason]})
	}
	return &SanitizationSummary{
		Input:       s.Input,
		Kept:        s.Kept,
		Collections: s.Collections,
		Drops:       drops,
	}
}

func estimateRows(estimates []*domain.FloorPriceEstimate) []EstimateRow {
	rows := make([]EstimateRow, 0, len(estimates))
	for _, e := range estimates {
		rows = append(rows, EstimateRow{
			ChainID:         e.ChainID,
			ContractAddress: e.ContractAddress,
			FloorPriceETH:   e.FloorPriceETH,
			AdjustedTarget:  e.AdjustedTarget,
			ObservedHitRate: e.ObservedHitRate,
			BacktestSize:    e.BacktestSize,
			TradeCount:      e.TradeCount,
			LastBlockNumber: e.LastBlockNumber,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ChainID != rows[j].ChainID {
			return rows[i].ChainID < rows[j].ChainID
		}
		return rows[i].ContractAddress < rows[j].ContractAddress
	})
	return rows
}

func failureRows(failures []floorprice.Failure) []FailureRow {
	rows := make([]FailureRow, 0, len(failures))
	for _, f := range failures {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		rows = append(rows, FailureRow{
			ChainID:         f.Key.ChainID,
			ContractAddress: f.Key.ContractAddress,
			Reason:          f.Reason,
			Error:           msg,
		})
	}
	return rows
}
