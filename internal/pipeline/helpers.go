package pipeline

import (
	"time"

	"github.com/aristath/arduino-trader/internal/marketdata"
	"github.com/aristath/arduino-trader/internal/store"
)

// marketdataRightFor maps a strategy to the option side the Monitor and Phase 3 quote
// against: covered_call sells a call, everything else in this core sells a put.
func marketdataRightFor(strategy store.Strategy) marketdata.Right {
	if strategy == store.StrategyCoveredCall {
		return marketdata.Call
	}
	return marketdata.Put
}

// parseExpiry parses an ISO expiry date, the format every pick and trade record uses.
func parseExpiry(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
