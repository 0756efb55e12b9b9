// Package orchestrator provides end-to-end run orchestration.
// It coordinates: load trades → estimate → persist → report
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"nft-floor-lab/internal/config"
	"nft-floor-lab/internal/domain"
	"nft-floor-lab/internal/floorprice"
	"nft-floor-lab/internal/idhash"
	"nft-floor-lab/internal/observability"
	"nft-floor-lab/internal/reporting"
	"nft-floor-lab/internal/sanitize"
	"nft-floor-lab/internal/storage"
)

// Run status labels for the run duration metric.
const (
	statusOK    = "ok"
	statusError = "error"
)

// Orchestrator coordinates one estimation run.
type Orchestrator struct {
	source    storage.TradeSource
	sink      storage.FloorPriceStore
	sinkName  string
	estimator *floorprice.Estimator
	reportDir string

	logger  zerolog.Logger
	metrics *observability.Metrics

	now      func() time.Time
	newRunID func() string
}

// Options for creating Orchestrator.
type Options struct {
	// Required
	Source     storage.TradeSource
	Estimation config.Estimation

	// Optional: nil Sink skips persistence, empty ReportDir skips report files
	Sink      storage.FloorPriceStore
	SinkName  string // metric label for the sink backend
	ReportDir string

	Logger  zerolog.Logger
	Metrics *observability.Metrics // nil disables metrics

	// Injectable for deterministic tests
	Now      func() time.Time
	NewRunID func() string
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		source:    opts.Source,
		sink:      opts.Sink,
		sinkName:  opts.SinkName,
		estimator: floorprice.New(opts.Estimation),
		reportDir: opts.ReportDir,
		logger:    opts.Logger.With().Str("component", "orchestrator").Logger(),
		metrics:   opts.Metrics,
		now:       opts.Now,
		newRunID:  opts.NewRunID,
	}
	if o.now == nil {
		o.now = func() time.Time { return time.Now().UTC() }
	}
	if o.newRunID == nil {
		o.newRunID = func() string { return uuid.NewString() }
	}
	if o.sinkName == "" {
		o.sinkName = "unknown"
	}
	return o
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	RunID        string
	TradesLoaded int
	Filter       sanitize.Stats
	Estimates    []*domain.FloorPriceEstimate // sorted by (chain_id, contract_address)
	Failures     []floorprice.Failure
	Persisted    bool
	ReportFiles  []string
}

// Run executes the full pipeline.
// Phases:
//  1. Load trades from the source
//  2. Sanitize and estimate every collection
//  3. Persist estimates to the sink
//  4. Write report files
//
// A collection that cannot be estimated is reported in Failures and does not
// fail the run. Load, persist and report errors do.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	result, err := o.run(ctx)

	status := statusOK
	if err != nil {
		status = statusError
	}
	o.metrics.ObserveRun(status, time.Since(start).Seconds())
	return result, err
}

func (o *Orchestrator) run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{RunID: o.newRunID()}
	logger := o.logger.With().Str("run_id", result.RunID).Logger()

	// Phase 1: Load
	logger.Info().Msg("reading data")
	trades, err := o.source.LoadTrades(ctx)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (load trades) failed: %w", err)
	}
	result.TradesLoaded = len(trades)
	o.metrics.RecordLoaded(len(trades))
	logger.Info().Int("trades", len(trades)).Msg("trades loaded")

	// Phase 2: Estimate
	logger.Info().Msg("estimating floor prices")
	batch, err := o.estimator.EstimateAll(ctx, trades, logger)
	if err != nil {
		return nil, fmt.Errorf("phase 2 (estimate) failed: %w", err)
	}
	result.Filter = batch.Filter
	result.Failures = batch.Failures
	o.metrics.RecordDropped(batch.Filter.Dropped())
	for _, f := range batch.Failures {
		o.metrics.RecordSkipped(f.Reason)
	}

	computedAt := o.now().UnixMilli()
	result.Estimates = make([]*domain.FloorPriceEstimate, 0, len(batch.Results))
	for _, r := range batch.Results {
		e := toEstimate(result.RunID, computedAt, r)
		result.Estimates = append(result.Estimates, e)
		o.metrics.RecordEstimate(e.ObservedHitRate, e.AdjustedTarget)

		logger.Info().
			Int64("chain_id", e.ChainID).
			Str("contract_address", e.ContractAddress).
			Float64("floor_price_eth", e.FloorPriceETH).
			Float64("adjusted_target", e.AdjustedTarget).
			Float64("observed_hit_rate", e.ObservedHitRate).
			Msgf("Floor price estimate for %s (in ETH): %v", e.ContractAddress, e.FloorPriceETH)
	}
	logger.Info().
		Int("estimated", len(result.Estimates)).
		Int("skipped", len(result.Failures)).
		Msg("estimation complete")

	// Phase 3: Persist
	if o.sink != nil && len(result.Estimates) > 0 {
		if err := o.persist(ctx, result.Estimates); err != nil {
			return result, fmt.Errorf("phase 3 (persist) failed: %w", err)
		}
		result.Persisted = true
		logger.Info().Str("sink", o.sinkName).Int("estimates", len(result.Estimates)).Msg("estimates persisted")
	}

	// Phase 4: Report
	if o.reportDir != "" {
		report := reporting.NewGenerator(nil).
			WithClock(o.now).
			FromRun(result.RunID, o.estimator.Config(), batch.Filter, result.Estimates, batch.Failures)
		paths, err := reporting.WriteFiles(o.reportDir, report)
		result.ReportFiles = paths
		if err != nil {
			return result, fmt.Errorf("phase 4 (report) failed: %w", err)
		}
		logger.Info().Strs("files", paths).Msg("report written")
	}

	return result, nil
}

// persist writes estimates in one batch. A duplicate estimate_id means the
// run was already persisted and is surfaced as an error.
func (o *Orchestrator) persist(ctx context.Context, estimates []*domain.FloorPriceEstimate) error {
	start := time.Now()
	err := o.sink.InsertBulk(ctx, estimates)
	o.metrics.ObserveStoreWrite(o.sinkName, time.Since(start).Seconds())

	if errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("estimates already stored: %w", err)
	}
	return err
}

func toEstimate(runID string, computedAt int64, r *floorprice.Result) *domain.FloorPriceEstimate {
	return &domain.FloorPriceEstimate{
		EstimateID:      idhash.ComputeEstimateID(runID, r.Key),
		RunID:           runID,
		ChainID:         r.Key.ChainID,
		ContractAddress: r.Key.ContractAddress,
		FloorPriceETH:   r.FloorPriceETH,
		LogPriceAdj:     r.LogPriceAdj,
		NominalTarget:   r.NominalTarget,
		AdjustedTarget:  r.State.Target,
		ObservedHitRate: r.State.ObservedHitRate,
		BacktestSize:    r.BacktestSize,
		LookbackSize:    r.LookbackSize,
		TradeCount:      r.TradeCount,
		LastBlockNumber: r.LastBlockNumber,
		ComputedAt:      computedAt,
	}
}
