// Package lookback builds causal trailing windows of log-prices.
package lookback

import (
	"math"

	"nft-floor-lab/internal/domain"
)

// Build returns one window per trade. trades must belong to one collection and be
// sorted by block_number ASC. Each window holds the log-prices of the last size
// trades ending at and including its own trade, oldest first.
// Early windows are shorter than size.
func Build(trades []domain.TradeRecord, size int) []domain.LookbackWindow {
	if size <= 0 || len(trades) == 0 {
		return nil
	}

	windows := make([]domain.LookbackWindow, len(trades))
	ring := newRing(size)

	for i, t := range trades {
		lp := math.Log(t.PriceETH)
		ring.push(lp)
		windows[i] = domain.LookbackWindow{
			Trade:     t,
			LogPrice:  lp,
			LogPrices: ring.snapshot(),
		}
	}

	return windows
}

// Trim keeps the last backtest windows. Fewer windows are returned unchanged.
func Trim(windows []domain.LookbackWindow, backtest int) []domain.LookbackWindow {
	if backtest <= 0 {
		return nil
	}
	if len(windows) <= backtest {
		return windows
	}
	return windows[len(windows)-backtest:]
}

// ring is a fixed-capacity FIFO of float64.
type ring struct {
	buf   []float64
	start int
	n     int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]float64, capacity)}
}

func (r *ring) push(v float64) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = v
		r.n++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// snapshot copies the contents oldest first.
func (r *ring) snapshot() []float64 {
	out := make([]float64, r.n)
	first := copy(out, r.buf[r.start:min(r.start+r.n, len(r.buf))])
	copy(out[first:], r.buf[:r.n-first])
	return out
}
