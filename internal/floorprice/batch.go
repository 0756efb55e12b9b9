package floorprice

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"nft-floor-lab/internal/domain"
	"nft-floor-lab/internal/sanitize"
	"nft-floor-lab/internal/stats"
)

// Skip reasons, used as metric labels.
const (
	SkipNoWindows        = "no_windows"
	SkipInsufficientData = "insufficient_data"
	SkipError            = "error"
)

// Failure records a collection omitted from the output.
type Failure struct {
	Key    domain.CollectionKey
	Reason string
	Err    error
}

// Batch is the outcome of estimating every collection in a trade set.
type Batch struct {
	Results  []*Result // sorted by (chain_id, contract_address)
	Failures []Failure // sorted by (chain_id, contract_address)
	Filter   sanitize.Stats
}

// EstimateAll sanitizes trades and estimates every collection in parallel.
// A failing collection is recorded in Failures and does not abort the batch;
// only context cancellation does.
func (e *Estimator) EstimateAll(ctx context.Context, trades []domain.TradeRecord, logger zerolog.Logger) (*Batch, error) {
	filtered := sanitize.Filter(trades, sanitize.OptionsFromConfig(e.cfg))
	logger.Info().
		Int("input", filtered.Stats.Input).
		Int("kept", filtered.Stats.Kept).
		Int("collections", filtered.Stats.Collections).
		Msg("preprocessing complete")

	keys := filtered.Keys()
	results := make([]*Result, len(keys))
	failures := make([]*Failure, len(keys))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.WorkerCount())

	for i, key := range keys {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}

			res, err := e.estimate(key, filtered.Collections[key])
			if err != nil {
				failures[i] = &Failure{Key: key, Reason: classify(err), Err: err}
				logger.Warn().Err(err).Str("collection", key.String()).Msg("skipping collection")
				return nil
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("estimate collections: %w", err)
	}

	batch := &Batch{Filter: filtered.Stats}
	for i := range keys {
		if results[i] != nil {
			batch.Results = append(batch.Results, results[i])
		}
		if failures[i] != nil {
			batch.Failures = append(batch.Failures, *failures[i])
		}
	}
	return batch, nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, ErrNoWindows):
		return SkipNoWindows
	case errors.Is(err, stats.ErrInsufficientData):
		return SkipInsufficientData
	default:
		return SkipError
	}
}
