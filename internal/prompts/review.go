package prompts

import (
	"fmt"
	"strings"

	"github.com/aristath/arduino-trader/internal/store"
)

// BuildReviewPrompt assembles Phase 5's per-trade review prompt: entry/exit, P&L, spot
// at each, and the AI's original rationale, requesting the ===REVIEW=== grammar.
func BuildReviewPrompt(trade store.Trade, scan *store.MarketScan) string {
	var b strings.Builder

	b.WriteString("You are reviewing a closed options trade to extract a lesson for future selections.\n\n")
	fmt.Fprintf(&b, "Ticker: %s\n", trade.Ticker)
	fmt.Fprintf(&b, "Strategy: %s\n", trade.Strategy)
	fmt.Fprintf(&b, "Entry price: $%.2f on %s (spot $%.2f)\n", trade.EntryPrice, trade.EntryDate.Format("2006-01-02"), trade.EntrySpot)

	if trade.ExitPrice != nil {
		fmt.Fprintf(&b, "Exit price: $%.2f", *trade.ExitPrice)
		if trade.ExitDate != nil {
			fmt.Fprintf(&b, " on %s", trade.ExitDate.Format("2006-01-02"))
		}
		if trade.ExitSpot != nil {
			fmt.Fprintf(&b, " (spot $%.2f)", *trade.ExitSpot)
		}
		b.WriteString("\n")
	}
	if trade.ExitReason != nil {
		fmt.Fprintf(&b, "Exit reason: %s\n", *trade.ExitReason)
	}
	if trade.PnLDollars != nil {
		fmt.Fprintf(&b, "P&L: $%.2f (%.1f%%)\n", *trade.PnLDollars, valueOrZero(trade.PnLPercent))
	}
	if trade.AIRationale != "" {
		fmt.Fprintf(&b, "\nOriginal rationale: %s\n", trade.AIRationale)
	}
	if scan != nil {
		fmt.Fprintf(&b, "\nMarket mood at entry: %s\n", scan.MarketMood)
	}

	b.WriteString("\nRespond using exactly this structure:\n\n")
	b.WriteString("===REVIEW===\n")
	b.WriteString("WHAT_WORKED: ...\n")
	b.WriteString("WHAT_FAILED: ...\n")
	b.WriteString("LESSON: ...\n")
	b.WriteString("SHOULD_REPEAT: YES|NO\n")
	b.WriteString("NEW_RULE: ... | NONE\n")
	b.WriteString("RULE_CATEGORY: entry|exit|risk|sector|timing|general\n")
	b.WriteString("FULL_REVIEW: ...\n")
	b.WriteString("===END_REVIEW===\n")

	return b.String()
}

func valueOrZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
