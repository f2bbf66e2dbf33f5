package risk

// sectorMap is the curated ticker->sector mapping spec §4.8/§9 requires. It is
// intentionally small and static, grounded the way the teacher's planning module
// (internal/modules/planning) keeps curated static lookups in Go source rather than a
// table, since the mapping changes rarely and ships with the binary.
var sectorMap = map[string]string{
	"AAPL": "Technology",
	"MSFT": "Technology",
	"GOOGL": "Technology",
	"GOOG":  "Technology",
	"META":  "Technology",
	"NVDA":  "Technology",
	"AMD":   "Technology",
	"INTC":  "Technology",
	"CRM":   "Technology",
	"ORCL":  "Technology",
	"ADBE":  "Technology",
	"CSCO":  "Technology",

	"JPM":  "Finance",
	"BAC":  "Finance",
	"WFC":  "Finance",
	"GS":   "Finance",
	"MS":   "Finance",
	"C":    "Finance",
	"AXP":  "Finance",
	"BLK":  "Finance",
	"SCHW": "Finance",

	"JNJ":  "Healthcare",
	"PFE":  "Healthcare",
	"UNH":  "Healthcare",
	"ABBV": "Healthcare",
	"MRK":  "Healthcare",
	"LLY":  "Healthcare",
	"TMO":  "Healthcare",
	"ABT":  "Healthcare",

	"AMZN": "Consumer",
	"TSLA": "Consumer",
	"HD":   "Consumer",
	"NKE":  "Consumer",
	"MCD":  "Consumer",
	"SBUX": "Consumer",
	"TGT":  "Consumer",
	"WMT":  "Consumer",
	"COST": "Consumer",

	"XOM":  "Energy",
	"CVX":  "Energy",
	"COP":  "Energy",
	"SLB":  "Energy",

	"BA":   "Industrial",
	"CAT":  "Industrial",
	"HON":  "Industrial",
	"UPS":  "Industrial",
	"GE":   "Industrial",
	"LMT":  "Industrial",

	"SPY": "Index",
	"QQQ": "Index",
	"IWM": "Index",
	"DIA": "Index",
	"VIX": "Index",
}

// UnknownSector is the fallback bucket for any ticker not in the curated map; it is
// always accounted for in its own sector cap like any other sector.
const UnknownSector = "Unknown"

// SectorFor returns the curated sector for ticker, or UnknownSector if not mapped.
func SectorFor(ticker string) string {
	if s, ok := sectorMap[ticker]; ok {
		return s
	}
	return UnknownSector
}

// BuiltinCandidates is the curated ticker list unioned with the parsed trending list
// to seed Phase 2's candidate pool (spec §4.7 Phase 2).
var BuiltinCandidates = []string{
	"AAPL", "MSFT", "GOOGL", "META", "NVDA", "AMD", "INTC", "CRM", "ORCL", "ADBE",
	"JPM", "BAC", "WFC", "GS", "MS", "C", "AXP", "BLK", "SCHW",
	"JNJ", "PFE", "UNH", "ABBV", "MRK", "LLY", "TMO",
	"AMZN", "TSLA", "HD", "NKE", "MCD", "SBUX", "TGT", "WMT", "COST",
	"XOM", "CVX", "COP", "SLB",
	"BA", "CAT", "HON", "UPS", "GE", "LMT",
	"SPY", "QQQ", "IWM",
}
