package prompts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aristath/arduino-trader/internal/risk"
	"github.com/aristath/arduino-trader/internal/runtimeconfig"
	"github.com/aristath/arduino-trader/internal/store"
)

// Candidate is one ticker in Phase 2's candidate pool, enriched with live quote data.
type Candidate struct {
	Ticker        string
	Price         float64
	ChangePercent float64
	RangePosition float64
	RSI           *float64 // optional momentum context (pkg/formulas.CalculateRSI)
}

// BuildSelectionPrompt assembles Phase 2's trade-selection prompt: constraints on DTE,
// strategies, and min spread width; the credit-spread bias; explicit sector
// diversification and margin-preservation rules; and the ===TRADE_N=== output grammar.
func BuildSelectionPrompt(scan *store.MarketScan, candidates []Candidate, performanceContext string, cfg runtimeconfig.Snapshot, cautions []string, margin risk.MarginState) string {
	var b strings.Builder

	b.WriteString("You are an options-trading strategist selecting today's trade candidates for a paper account.\n\n")

	if scan != nil {
		fmt.Fprintf(&b, "Market mood: %s\n", scan.MarketMood)
		if len(scan.SectorMomentum) > 0 {
			b.WriteString("Sector momentum:\n")
			sectors := make([]string, 0, len(scan.SectorMomentum))
			for sector := range scan.SectorMomentum {
				sectors = append(sectors, sector)
			}
			sort.Strings(sectors)
			for _, sector := range sectors {
				fmt.Fprintf(&b, "  %s: %s\n", sector, scan.SectorMomentum[sector])
			}
		}
	}
	if len(cautions) > 0 {
		b.WriteString("Caution flags:\n")
		for _, c := range cautions {
			fmt.Fprintf(&b, "  - %s\n", c)
		}
	}

	b.WriteString("\nCandidates:\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "  %s: price $%.2f, change %.2f%%, 52w range position %.2f", c.Ticker, c.Price, c.ChangePercent, c.RangePosition)
		if c.RSI != nil {
			fmt.Fprintf(&b, ", RSI %.1f", *c.RSI)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n=== CONSTRAINTS ===\n")
	minDTE := cfg.Int(runtimeconfig.KeyMinDTE, 1)
	maxDTE := cfg.Int(runtimeconfig.KeyMaxDTE, 45)
	minSpread := cfg.Float(runtimeconfig.KeyMinSpreadWidth, 5)
	allowed := cfg.StringList(runtimeconfig.KeyAllowedStrategies, []string{"short_put", "credit_spread", "covered_call"})
	fmt.Fprintf(&b, "Allowed strategies: %s\n", strings.Join(allowed, ", "))
	fmt.Fprintf(&b, "DTE window: %d to %d days\n", minDTE, maxDTE)
	fmt.Fprintf(&b, "Minimum spread width for credit spreads: $%.2f\n", minSpread)
	b.WriteString("Prefer credit_spread: at least 3 of your 5 picks should be credit_spread strategies.\n")
	b.WriteString("Diversify across at least 3 distinct sectors, no more than 2 picks per sector.\n")

	fmt.Fprintf(&b, "\nCurrent committed margin: $%.2f (%.1f%% of balance). Available headroom before the cap: $%.2f.\n",
		margin.Total, margin.PctOfBalance, margin.Available)
	b.WriteString("Do not propose trades that would push committed margin past the available headroom.\n")

	if performanceContext != "" {
		b.WriteString("\n=== RECENT PERFORMANCE & LEARNED RULES ===\n")
		b.WriteString(performanceContext)
		b.WriteString("\n")
	}

	b.WriteString("\nRespond with one block per trade, using exactly this structure:\n\n")
	b.WriteString("===TRADE_1===\n")
	b.WriteString("TICKER: AAA\n")
	b.WriteString("STRATEGY: credit_spread\n")
	b.WriteString("STRIKE: 180\n")
	b.WriteString("EXPIRY: YYYY-MM-DD\n")
	b.WriteString("DTE: 38\n")
	b.WriteString("CONTRACTS: 1\n")
	b.WriteString("ESTIMATED_PREMIUM: 1.20\n")
	b.WriteString("SPREAD_WIDTH: 5\n")
	b.WriteString("STRIKE_SELL: 180\n")
	b.WriteString("STRIKE_BUY: 175\n")
	b.WriteString("CONFIDENCE: 78\n")
	b.WriteString("SECTOR: Tech\n")
	b.WriteString("RATIONALE: ...\n")
	b.WriteString("===END_TRADE_1===\n")

	return b.String()
}
