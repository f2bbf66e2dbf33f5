// Package marketdata implements the Market Data Gateway (C3): an outbound adapter to
// quote, option-chain, and trending-ticker providers. Every operation fails with a
// recoverable error; callers (the pipeline, the monitor) tolerate per-ticker failure by
// skipping that one item rather than aborting a batch.
package marketdata

import (
	"sync"
	"time"

	"github.com/aristath/arduino-trader/internal/clients/yahoo"
	"github.com/aristath/arduino-trader/internal/perrors"
	"github.com/rs/zerolog"
)

// maxConcurrentFetches bounds batch fan-out at a small degree per spec §4.3.
const maxConcurrentFetches = 5

// Quote is the normalized quote result.
type Quote struct {
	Ticker        string
	Price         float64
	ChangePercent float64
	RangePosition float64
	High52        float64
	Low52         float64
	Source        string
}

// OptionPremium is the normalized option-contract result.
type OptionPremium struct {
	Bid   float64
	Ask   float64
	Mid   float64
	IV    float64
	Delta float64
}

// Right is an option contract's call/put side.
type Right string

const (
	Call Right = "call"
	Put  Right = "put"
)

// Gateway implements C3 on top of the Yahoo client. Other providers could be wired in
// behind the same interface; this core retrieves only what the teacher's yahoo client
// already speaks plus the option-chain/trending endpoints added alongside it.
type Gateway struct {
	client *yahoo.Client
	log    zerolog.Logger
}

// New returns a Gateway backed by a Yahoo Finance client.
func New(client *yahoo.Client, log zerolog.Logger) *Gateway {
	return &Gateway{client: client, log: log.With().Str("component", "marketdata").Logger()}
}

// GetQuote fetches a single ticker's quote.
func (g *Gateway) GetQuote(ticker string) (*Quote, error) {
	q, err := g.client.GetQuote(ticker)
	if err != nil {
		return nil, perrors.NewRecoverable("get_quote:"+ticker, err)
	}
	return &Quote{
		Ticker:        ticker,
		Price:         q.Price,
		ChangePercent: q.ChangePercent,
		RangePosition: q.RangePosition,
		High52:        q.High52,
		Low52:         q.Low52,
		Source:        "yahoo",
	}, nil
}

// GetQuotesBatch fetches quotes for every ticker concurrently, at most
// maxConcurrentFetches in flight at once, and never fails the batch on a single
// ticker's failure: failed tickers are simply absent from the result map.
func (g *Gateway) GetQuotesBatch(tickers []string) map[string]Quote {
	results := make(map[string]Quote)
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxConcurrentFetches)

	for _, ticker := range tickers {
		ticker := ticker
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			q, err := g.GetQuote(ticker)
			if err != nil {
				g.log.Debug().Err(err).Str("ticker", ticker).Msg("quote fetch failed, skipping")
				return
			}
			mu.Lock()
			results[ticker] = *q
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

// GetOptionPremium fetches the bid/ask/mid/iv for a specific strike/expiry/right.
func (g *Gateway) GetOptionPremium(ticker string, strike float64, expiry time.Time, right Right) (*OptionPremium, error) {
	oc, err := g.client.GetOptionChain(ticker, expiry.Unix(), strike, string(right))
	if err != nil {
		return nil, perrors.NewRecoverable("get_option_premium:"+ticker, err)
	}
	if oc == nil {
		return nil, perrors.NewRecoverable("get_option_premium:"+ticker, errNoContract)
	}
	return &OptionPremium{Bid: oc.Bid, Ask: oc.Ask, Mid: oc.Mid, IV: oc.IV}, nil
}

var errNoContract = recoverableNoContract("no matching option contract")

type recoverableNoContract string

func (e recoverableNoContract) Error() string { return string(e) }

// GetHistoricalCloses fetches the last `days` daily closes for ticker, used by Phase 2
// to compute the momentum (RSI) context it passes to the selection prompt.
func (g *Gateway) GetHistoricalCloses(ticker string, days int) ([]float64, error) {
	closes, err := g.client.GetHistoricalCloses(ticker, days)
	if err != nil {
		return nil, perrors.NewRecoverable("get_historical_closes:"+ticker, err)
	}
	return closes, nil
}

// GetTrendingTickers fetches the day's trending US symbols.
func (g *Gateway) GetTrendingTickers() ([]string, error) {
	tickers, err := g.client.GetTrendingTickers("US")
	if err != nil {
		return nil, perrors.NewRecoverable("get_trending", err)
	}
	return tickers, nil
}

// GetMostActiveTickers fetches the day's most-active US symbols.
func (g *Gateway) GetMostActiveTickers() ([]string, error) {
	tickers, err := g.client.GetMostActiveTickers()
	if err != nil {
		return nil, perrors.NewRecoverable("get_most_active", err)
	}
	return tickers, nil
}
