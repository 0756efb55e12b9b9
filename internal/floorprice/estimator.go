// Package floorprice estimates a per-collection floor price from trade history.
//
// For each collection: build causal lookback windows, keep the backtest horizon,
// strip outliers per window, read the nominal quantile, measure the hit-rate,
// run one controller step, then read the adjusted quantile of the latest window.
package floorprice

import (
	"errors"
	"fmt"
	"math"

	"nft-floor-lab/internal/calibration"
	"nft-floor-lab/internal/config"
	"nft-floor-lab/internal/domain"
	"nft-floor-lab/internal/lookback"
	"nft-floor-lab/internal/stats"
)

// ErrNoWindows is returned when a collection has no trades left to build windows from.
var ErrNoWindows = errors.New("no lookback windows")

// Result is the estimate for one collection.
type Result struct {
	Key             domain.CollectionKey
	FloorPriceETH   float64
	LogPriceAdj     float64
	NominalTarget   float64
	State           domain.QuantileState
	BacktestSize    int
	LookbackSize    int // latest window size after outlier removal
	TradeCount      int
	LastBlockNumber int64
}

// Estimator runs the per-collection pipeline. Safe for concurrent use.
type Estimator struct {
	cfg config.Estimation

	// estimate is the per-collection step used by EstimateAll.
	estimate func(domain.CollectionKey, []domain.TradeRecord) (*Result, error)
}

// New creates an Estimator. cfg must already be validated.
func New(cfg config.Estimation) *Estimator {
	e := &Estimator{cfg: cfg}
	e.estimate = e.EstimateCollection
	return e
}

// Config returns the estimation parameters.
func (e *Estimator) Config() config.Estimation {
	return e.cfg
}

// EstimateCollection estimates the floor price of one collection.
// trades must be sanitized and sorted by block_number ASC.
// Returns ErrNoWindows for an empty collection and a stats.ErrInsufficientData
// error if a quantile cannot be computed.
func (e *Estimator) EstimateCollection(key domain.CollectionKey, trades []domain.TradeRecord) (*Result, error) {
	windows := lookback.Trim(lookback.Build(trades, e.cfg.Lookback), e.cfg.Backtest)
	if len(windows) == 0 {
		return nil, fmt.Errorf("collection %s: %w", key, ErrNoWindows)
	}

	observed := make([]float64, len(windows))
	nominal := make([]float64, len(windows))
	for i, w := range windows {
		q, err := stats.Quantile(stats.RemoveOutliers(w.LogPrices), e.cfg.PctTarget)
		if err != nil {
			return nil, fmt.Errorf("collection %s: nominal estimate at block %d: %w", key, w.Trade.BlockNumber, err)
		}
		observed[i] = w.LogPrice
		nominal[i] = q
	}

	hitRate := calibration.HitRate(observed, nominal)
	target := calibration.Adjust(
		e.cfg.PctTarget,
		e.cfg.PctTarget,
		hitRate,
		e.cfg.Speed,
		e.cfg.PctTargetMin,
		e.cfg.PctTargetMax,
	)

	latest := windows[len(windows)-1]
	cleaned := stats.RemoveOutliers(latest.LogPrices)
	logPriceAdj, err := stats.Quantile(cleaned, target)
	if err != nil {
		return nil, fmt.Errorf("collection %s: adjusted estimate: %w", key, err)
	}

	return &Result{
		Key:           key,
		FloorPriceETH: math.Exp(logPriceAdj),
		LogPriceAdj:   logPriceAdj,
		NominalTarget: e.cfg.PctTarget,
		State: domain.QuantileState{
			Target:          target,
			ObservedHitRate: hitRate,
		},
		BacktestSize:    len(windows),
		LookbackSize:    len(cleaned),
		TradeCount:      len(trades),
		LastBlockNumber: latest.Trade.BlockNumber,
	}, nil
}
