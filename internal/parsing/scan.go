// Package parsing implements the Parsers (C6): lenient readers for the delimited
// grammars of spec §6.3. Parsers never raise on malformed input; they return partial
// records with nulls/zero-values rather than error, since LLM output is inherently
// unstable (spec §9).
package parsing

import (
	"regexp"
	"strings"
)

// ScanResult is the structured record recovered from a Phase 1 sentiment response.
type ScanResult struct {
	MarketMood      string
	TrendingTickers []string
	SectorMomentum  map[string]string
	CautionFlags    []string
}

var (
	moodBlockRe      = regexp.MustCompile(`(?is)===MARKET_MOOD===(.*?)===END_MOOD===`)
	tickersBlockRe   = regexp.MustCompile(`(?is)===TRENDING_TICKERS===(.*?)===END_TICKERS===`)
	sectorsBlockRe   = regexp.MustCompile(`(?is)===SECTOR_MOMENTUM===(.*?)===END_SECTORS===`)
	cautionsBlockRe  = regexp.MustCompile(`(?is)===CAUTION_FLAGS===(.*?)===END_CAUTIONS===`)
	sectorLineRe     = regexp.MustCompile(`(?i)^\s*([A-Za-z ]+?)\s*:\s*(bullish|bearish|neutral)\s*$`)
	cautionLineRe    = regexp.MustCompile(`^\s*-\s*(.+)$`)
	validMoods       = map[string]bool{"bullish": true, "bearish": true, "neutral": true, "mixed": true}
)

// ParseScan recovers a ScanResult from raw LLM text. Fields it cannot find are left at
// their zero value; market_mood defaults to "neutral" per the Degraded error kind's
// placeholder rule (spec §7).
func ParseScan(text string) ScanResult {
	result := ScanResult{
		MarketMood:     "neutral",
		SectorMomentum: make(map[string]string),
	}

	if m := moodBlockRe.FindStringSubmatch(text); m != nil {
		mood := strings.ToLower(strings.TrimSpace(m[1]))
		if validMoods[mood] {
			result.MarketMood = mood
		}
	}

	if m := tickersBlockRe.FindStringSubmatch(text); m != nil {
		result.TrendingTickers = parseTickerList(m[1])
	}

	if m := sectorsBlockRe.FindStringSubmatch(text); m != nil {
		for _, line := range splitLines(m[1]) {
			if sub := sectorLineRe.FindStringSubmatch(line); sub != nil {
				name := strings.TrimSpace(sub[1])
				result.SectorMomentum[name] = strings.ToLower(sub[2])
			}
		}
	}

	if m := cautionsBlockRe.FindStringSubmatch(text); m != nil {
		for _, line := range splitLines(m[1]) {
			if sub := cautionLineRe.FindStringSubmatch(line); sub != nil {
				flag := strings.TrimSpace(sub[1])
				if flag != "" {
					result.CautionFlags = append(result.CautionFlags, flag)
				}
			}
		}
	}

	return result
}

// parseTickerList splits on comma or newline, upper-cases, and rejects tokens longer
// than 5 characters (spec §4.6).
func parseTickerList(raw string) []string {
	fields := regexp.MustCompile(`[,\n]`).Split(raw, -1)
	var out []string
	for _, f := range fields {
		t := strings.ToUpper(strings.TrimSpace(f))
		if t == "" || len(t) > 5 {
			continue
		}
		out = append(out, t)
	}
	return out
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
