package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Floor Price Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: `%s` | Collections estimated: %d | Skipped: %d\n\n",
		r.RunID, len(r.Estimates), len(r.Failures)))

	if p := r.Parameters; p != nil {
		sb.WriteString("## Parameters\n\n")
		sb.WriteString("| Parameter | Value |\n")
		sb.WriteString("|-----------|-------|\n")
		sb.WriteString(fmt.Sprintf("| LOOKBACK | %d |\n", p.Lookback))
		sb.WriteString(fmt.Sprintf("| BACKTEST | %d |\n", p.Backtest))
		sb.WriteString(fmt.Sprintf("| PCT_TARGET | %s |\n", formatFixed(p.PctTarget, 4)))
		sb.WriteString(fmt.Sprintf("| PCT_TARGET range | [%s, %s] |\n",
			formatFixed(p.PctTargetMin, 4), formatFixed(p.PctTargetMax, 4)))
		sb.WriteString(fmt.Sprintf("| SPEED | %s |\n", formatFixed(p.Speed, 4)))
		sb.WriteString(fmt.Sprintf("| TWAP_BUFFER_PCT | %s |\n", formatFixed(p.TwapBufferPct, 4)))
		sb.WriteString("\n")
	}

	if s := r.Sanitization; s != nil {
		sb.WriteString("## Sanitization\n\n")
		sb.WriteString(fmt.Sprintf("Input trades: %d | Kept: %d | Collections: %d\n\n", s.Input, s.Kept, s.Collections))
		sb.WriteString("| Dropped | Count |\n")
		sb.WriteString("|---------|-------|\n")
		for _, d := range s.Drops {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", d.Reason, d.Count))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Estimates\n\n")
	if len(r.Estimates) > 0 {
		sb.WriteString("| Chain | Contract | Floor (ETH) | Target | Hit Rate | Backtest | Trades | Last Block |\n")
		sb.WriteString("|-------|----------|-------------|--------|----------|----------|--------|------------|\n")
		for _, e := range r.Estimates {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %d | %d | %d |\n",
				e.ChainID, e.ContractAddress,
				formatFixed(e.FloorPriceETH, 6),
				formatFixed(e.AdjustedTarget, 4),
				formatFixed(e.ObservedHitRate, 4),
				e.BacktestSize, e.TradeCount, e.LastBlockNumber))
		}
	} else {
		sb.WriteString("No estimates available.\n")
	}
	sb.WriteString("\n")

	if len(r.Failures) > 0 {
		sb.WriteString("## Skipped Collections\n\n")
		for _, f := range r.Failures {
			line := fmt.Sprintf("- %d:%s (%s)", f.ChainID, f.ContractAddress, f.Reason)
			if f.Error != "" {
				line += ": " + f.Error
			}
			sb.WriteString(line + "\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
