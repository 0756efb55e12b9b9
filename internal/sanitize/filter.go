// Package sanitize removes invalid, manipulated and superseded trades before estimation.
package sanitize

import (
	"math"
	"sort"

	"nft-floor-lab/internal/config"
	"nft-floor-lab/internal/domain"
)

// Drop reasons, used as metric labels.
const (
	ReasonNonPositivePrice = "non_positive_price"
	ReasonMissingTwap      = "missing_twap"
	ReasonBelowTwap        = "below_twap"
	ReasonSuperseded       = "superseded"
	ReasonCapped           = "capped"
)

// Options controls the filter.
type Options struct {
	TwapBufferPct    float64 // minimum price_eth / twap_bid ratio; 0 disables the whole twap check
	MaxPerCollection int     // most recent trades kept per collection; <= 0 disables the cap
}

// OptionsFromConfig derives filter options from the estimation parameters.
func OptionsFromConfig(e config.Estimation) Options {
	return Options{
		TwapBufferPct:    e.TwapBufferPct,
		MaxPerCollection: e.MaxTradesPerCollection(),
	}
}

// Stats counts what the filter dropped. Drops are expected, not failures.
type Stats struct {
	Input            int
	NonPositivePrice int
	MissingTwap      int
	BelowTwap        int
	Superseded       int
	Capped           int
	Kept             int
	Collections      int
}

// Dropped returns the counts keyed by reason.
func (s Stats) Dropped() map[string]int {
	return map[string]int{
		ReasonNonPositivePrice: s.NonPositivePrice,
		ReasonMissingTwap:      s.MissingTwap,
		ReasonBelowTwap:        s.BelowTwap,
		ReasonSuperseded:       s.Superseded,
		ReasonCapped:           s.Capped,
	}
}

// Result holds the surviving trades grouped by collection.
type Result struct {
	Collections map[domain.CollectionKey][]domain.TradeRecord // each slice sorted by block_number ASC (stable)
	Stats       Stats
}

// Keys returns the collection keys in deterministic order.
func (r *Result) Keys() []domain.CollectionKey {
	keys := make([]domain.CollectionKey, 0, len(r.Collections))
	for k := range r.Collections {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// Filter applies, in order:
//  1. drop price_eth <= 0 (and non-finite prices)
//  2. drop trades without a twap_bid, and trades with price_eth < twap_bid * TwapBufferPct
//     (skipped entirely when TwapBufferPct is 0)
//  3. keep one trade per token: highest block_number, later row on ties
//  4. keep the MaxPerCollection most recent trades per collection, ties by row order
//
// The input slice is not modified.
func Filter(trades []domain.TradeRecord, opts Options) *Result {
	stats := Stats{Input: len(trades)}

	// Steps 1-3. best maps each token to the index of its surviving trade.
	best := make(map[domain.TokenKey]int)
	for i := range trades {
		t := &trades[i]

		if !validPrice(t.PriceETH) {
			stats.NonPositivePrice++
			continue
		}
		if opts.TwapBufferPct > 0 {
			if t.TwapBid == nil || math.IsNaN(*t.TwapBid) {
				stats.MissingTwap++
				continue
			}
			if t.PriceETH < *t.TwapBid*opts.TwapBufferPct {
				stats.BelowTwap++
				continue
			}
		}

		key := t.TokenKey()
		prev, seen := best[key]
		if !seen {
			best[key] = i
			continue
		}
		stats.Superseded++
		if t.BlockNumber >= trades[prev].BlockNumber {
			best[key] = i
		}
	}

	// Survivors in original row order so later sorts stay stable w.r.t. input.
	indices := make([]int, 0, len(best))
	for _, idx := range best {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	collections := make(map[domain.CollectionKey][]domain.TradeRecord)
	for _, idx := range indices {
		key := trades[idx].CollectionKey()
		collections[key] = append(collections[key], trades[idx])
	}

	// Step 4.
	for key, group := range collections {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].BlockNumber < group[j].BlockNumber
		})
		if opts.MaxPerCollection > 0 && len(group) > opts.MaxPerCollection {
			stats.Capped += len(group) - opts.MaxPerCollection
			group = group[len(group)-opts.MaxPerCollection:]
		}
		collections[key] = group
		stats.Kept += len(group)
	}
	stats.Collections = len(collections)

	return &Result{Collections: collections, Stats: stats}
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0)
}
