package parsing

import (
	"regexp"
	"strconv"
	"strings"
)

// ParsedTrade is one recovered trade block from a Phase 2 selection response.
type ParsedTrade struct {
	Ticker           string
	Strategy         string
	Strike           *float64
	StrikeSell       *float64
	StrikeBuy        *float64
	SpreadWidth      *float64
	Expiry           string
	DTE              int
	Contracts        int
	EstimatedPremium float64
	Confidence       float64
	Sector           string
	Rationale        string
}

var (
	tradeBlockWithEndRe = regexp.MustCompile(`(?is)===TRADE_(\d+)===(.*?)===END_TRADE_\d*===`)
	tradeMarkerRe       = regexp.MustCompile(`(?i)===TRADE_\d+===`)
	tickerLineRe        = regexp.MustCompile(`(?im)^TICKER:\s*(.+)$`)
	fieldLineRe         = regexp.MustCompile(`(?im)^([A-Z_]+):\s*(.*)$`)
)

// ParseSelection recovers ParsedTrade records from raw LLM text, tolerating three
// framings in order (spec §4.6): delimited blocks with end markers, delimited blocks
// without end markers, and a fallback split on standalone TICKER: lines. Blocks missing
// a required field (ticker or strategy) are discarded rather than inserted incomplete
// (spec §9).
func ParseSelection(text string) []ParsedTrade {
	if blocks := tradeBlockWithEndRe.FindAllStringSubmatch(text, -1); len(blocks) > 0 {
		var out []ParsedTrade
		for _, b := range blocks {
			if t, ok := parseTradeBlock(b[2]); ok {
				out = append(out, t)
			}
		}
		return out
	}

	if locs := tradeMarkerRe.FindAllStringIndex(text, -1); len(locs) > 0 {
		var out []ParsedTrade
		for i, loc := range locs {
			start := loc[1]
			end := len(text)
			if i+1 < len(locs) {
				end = locs[i+1][0]
			}
			if t, ok := parseTradeBlock(text[start:end]); ok {
				out = append(out, t)
			}
		}
		return out
	}

	if locs := tickerLineRe.FindAllStringIndex(text, -1); len(locs) > 0 {
		var out []ParsedTrade
		for i, loc := range locs {
			start := loc[0]
			end := len(text)
			if i+1 < len(locs) {
				end = locs[i+1][0]
			}
			if t, ok := parseTradeBlock(text[start:end]); ok {
				out = append(out, t)
			}
		}
		return out
	}

	return nil
}

func parseTradeBlock(block string) (ParsedTrade, bool) {
	fields := make(map[string]string)
	for _, m := range fieldLineRe.FindAllStringSubmatch(block, -1) {
		key := strings.ToUpper(strings.TrimSpace(m[1]))
		fields[key] = strings.TrimSpace(m[2])
	}

	ticker := strings.ToUpper(fields["TICKER"])
	strategy := strings.ToLower(fields["STRATEGY"])
	if ticker == "" || strategy == "" {
		return ParsedTrade{}, false
	}

	t := ParsedTrade{
		Ticker:   ticker,
		Strategy: strategy,
		Expiry:   fields["EXPIRY"],
		Sector:   fields["SECTOR"],
		Rationale: fields["RATIONALE"],
	}

	t.Strike = parseOptionalFloat(fields["STRIKE"])
	t.StrikeSell = parseOptionalFloat(fields["STRIKE_SELL"])
	t.StrikeBuy = parseOptionalFloat(fields["STRIKE_BUY"])
	t.SpreadWidth = parseOptionalFloat(fields["SPREAD_WIDTH"])

	if t.Strike == nil && t.StrikeSell != nil {
		t.Strike = t.StrikeSell
	}

	if dte, err := strconv.Atoi(cleanNumeric(fields["DTE"])); err == nil {
		t.DTE = dte
	}
	if contracts, err := strconv.Atoi(cleanNumeric(fields["CONTRACTS"])); err == nil {
		t.Contracts = contracts
	} else {
		t.Contracts = 1
	}
	if premium, err := strconv.ParseFloat(cleanNumeric(fields["ESTIMATED_PREMIUM"]), 64); err == nil {
		t.EstimatedPremium = premium
	}
	if confidence, err := strconv.ParseFloat(cleanNumeric(fields["CONFIDENCE"]), 64); err == nil {
		t.Confidence = confidence
	}

	return t, true
}

func parseOptionalFloat(raw string) *float64 {
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(cleanNumeric(raw), 64)
	if err != nil {
		return nil
	}
	return &f
}

// cleanNumeric strips a leading $ and a trailing % (and surrounding whitespace) that
// LLMs commonly prepend/append to numeric fields.
func cleanNumeric(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSuffix(s, "%")
	return strings.TrimSpace(s)
}
