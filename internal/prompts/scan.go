// Package prompts implements the Prompt Builders (C5): pure functions that assemble the
// four prompt kinds from store and live data. Builders are deterministic given their
// inputs so replaying a day yields the same prompt.
package prompts

import (
	"fmt"
	"strings"
)

// BuildScanPrompt assembles Phase 1's sentiment/discovery prompt and requests the
// ===MARKET_MOOD===/===TRENDING_TICKERS===/===SECTOR_MOMENTUM===/===CAUTION_FLAGS===/
// ===NARRATIVE=== grammar of spec §6.3.
func BuildScanPrompt(spy, vix float64, trending, mostActive []string) string {
	var b strings.Builder
	b.WriteString("You are a market-sentiment analyst producing a daily options-trading briefing.\n\n")
	fmt.Fprintf(&b, "SPY: %.2f\n", spy)
	fmt.Fprintf(&b, "VIX: %.2f\n", vix)
	fmt.Fprintf(&b, "Trending tickers: %s\n", joinOrNone(trending))
	fmt.Fprintf(&b, "Most active tickers: %s\n", joinOrNone(mostActive))

	b.WriteString("\nUse live web and X search to ground your assessment of today's market mood, ")
	b.WriteString("notable sector momentum, and any tickers likely to see elevated options volume.\n\n")

	b.WriteString("Respond using exactly this structure:\n\n")
	b.WriteString("===MARKET_MOOD===\n")
	b.WriteString("bullish|bearish|neutral|mixed\n")
	b.WriteString("===END_MOOD===\n")
	b.WriteString("===TRENDING_TICKERS===\n")
	b.WriteString("AAA, BBB, CCC\n")
	b.WriteString("===END_TICKERS===\n")
	b.WriteString("===SECTOR_MOMENTUM===\n")
	b.WriteString("Technology: bullish\n")
	b.WriteString("Finance: neutral\n")
	b.WriteString("===END_SECTORS===\n")
	b.WriteString("===CAUTION_FLAGS===\n")
	b.WriteString("- item\n")
	b.WriteString("===END_CAUTIONS===\n")
	b.WriteString("===NARRATIVE===\n")
	b.WriteString("A short narrative summary.\n")
	b.WriteString("===END_NARRATIVE===\n")

	return b.String()
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
