package yahoo

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// MarketQuote is the subset of a Yahoo quote response the options trader's Market Data
// Gateway needs: last price, day change, 52-week range, and a range-position ratio.
type MarketQuote struct {
	Symbol        string
	Price         float64
	ChangePercent float64
	High52        float64
	Low52         float64
	RangePosition float64 // 0 = at 52w low, 1 = at 52w high
}

// GetQuote fetches a single real-time quote.
func (c *Client) GetQuote(symbol string) (*MarketQuote, error) {
	info, err := c.getQuoteInfo(symbol)
	if err != nil {
		return nil, fmt.Errorf("get quote %s: %w", symbol, err)
	}

	price := getFloat64OrZero(info, "regularMarketPrice")
	if price == 0 {
		price = getFloat64OrZero(info, "currentPrice")
	}
	changePct := getFloat64OrZero(info, "regularMarketChangePercent")
	high52 := getFloat64OrZero(info, "fiftyTwoWeekHigh")
	low52 := getFloat64OrZero(info, "fiftyTwoWeekLow")

	q := &MarketQuote{
		Symbol:        symbol,
		Price:         price,
		ChangePercent: changePct,
		High52:        high52,
		Low52:         low52,
	}
	if high52 > low52 {
		q.RangePosition = (price - low52) / (high52 - low52)
	}
	return q, nil
}

// OptionQuote is a single strike/expiry/right's bid/ask/mid/iv/delta.
type OptionQuote struct {
	Bid   float64
	Ask   float64
	Mid   float64
	IV    float64
	Delta float64
}

// yahooOptionsResponse mirrors the shape of Yahoo's v7/finance/options endpoint closely
// enough to extract the fields the trader needs; unused fields are dropped.
type yahooOptionsResponse struct {
	OptionChain struct {
		Result []struct {
			Options []struct {
				Calls []yahooOptionContract `json:"calls"`
				Puts  []yahooOptionContract `json:"puts"`
			} `json:"options"`
		} `json:"result"`
	} `json:"optionChain"`
}

type yahooOptionContract struct {
	Strike            float64 `json:"strike"`
	Bid               float64 `json:"bid"`
	Ask               float64 `json:"ask"`
	ImpliedVolatility float64 `json:"impliedVolatility"`
}

// GetOptionChain fetches the option chain for symbol/expiry (unix seconds) and returns
// the contract matching strike and right ("call" or "put"), or nil if not found.
func (c *Client) GetOptionChain(symbol string, expiryUnix int64, strike float64, right string) (*OptionQuote, error) {
	url := fmt.Sprintf("https://query2.finance.yahoo.com/v7/finance/options/%s?date=%d", symbol, expiryUnix)

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("build option chain request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch option chain %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read option chain body: %w", err)
	}

	var parsed yahooOptionsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse option chain: %w", err)
	}
	if len(parsed.OptionChain.Result) == 0 || len(parsed.OptionChain.Result[0].Options) == 0 {
		return nil, fmt.Errorf("no option chain data for %s", symbol)
	}

	contracts := parsed.OptionChain.Result[0].Options[0].Calls
	if right == "put" {
		contracts = parsed.OptionChain.Result[0].Options[0].Puts
	}

	for _, contract := range contracts {
		if contract.Strike == strike {
			mid := (contract.Bid + contract.Ask) / 2
			return &OptionQuote{Bid: contract.Bid, Ask: contract.Ask, Mid: mid, IV: contract.ImpliedVolatility}, nil
		}
	}
	return nil, nil
}

// trendingResponse mirrors Yahoo's v1/finance/trending endpoint.
type trendingResponse struct {
	Finance struct {
		Result []struct {
			Quotes []struct {
				Symbol string `json:"symbol"`
			} `json:"quotes"`
		} `json:"result"`
	} `json:"finance"`
}

// GetTrendingTickers fetches the day's trending symbol list for a region.
func (c *Client) GetTrendingTickers(region string) ([]string, error) {
	url := fmt.Sprintf("https://query1.finance.yahoo.com/v1/finance/trending/%s", region)
	body, err := c.fetchRaw(url)
	if err != nil {
		return nil, fmt.Errorf("fetch trending: %w", err)
	}

	var parsed trendingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse trending: %w", err)
	}
	if len(parsed.Finance.Result) == 0 {
		return nil, nil
	}

	out := make([]string, 0, len(parsed.Finance.Result[0].Quotes))
	for _, q := range parsed.Finance.Result[0].Quotes {
		out = append(out, q.Symbol)
	}
	return out, nil
}

// mostActiveResponse mirrors Yahoo's v1/finance/screener/predefined/saved endpoint.
type mostActiveResponse struct {
	Finance struct {
		Result []struct {
			Quotes []struct {
				Symbol string `json:"symbol"`
			} `json:"quotes"`
		} `json:"result"`
	} `json:"finance"`
}

// GetMostActiveTickers fetches the day's most-active symbol list.
func (c *Client) GetMostActiveTickers() ([]string, error) {
	url := "https://query1.finance.yahoo.com/v1/finance/screener/predefined/saved?scrIds=most_actives&count=25"
	body, err := c.fetchRaw(url)
	if err != nil {
		return nil, fmt.Errorf("fetch most active: %w", err)
	}

	var parsed mostActiveResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse most active: %w", err)
	}
	if len(parsed.Finance.Result) == 0 {
		return nil, nil
	}

	out := make([]string, 0, len(parsed.Finance.Result[0].Quotes))
	for _, q := range parsed.Finance.Result[0].Quotes {
		out = append(out, q.Symbol)
	}
	return out, nil
}

// chartResponse mirrors Yahoo's v8/finance/chart endpoint closely enough to extract a
// daily close series.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

// GetHistoricalCloses fetches the last `days` daily closes for symbol, oldest first,
// skipping any null bars (market holidays, partial sessions) that Yahoo leaves empty.
func (c *Client) GetHistoricalCloses(symbol string, days int) ([]float64, error) {
	url := fmt.Sprintf("https://query1.finance.yahoo.com/v8/finance/chart/%s?range=%dd&interval=1d", symbol, days+10)
	body, err := c.fetchRaw(url)
	if err != nil {
		return nil, fmt.Errorf("fetch chart %s: %w", symbol, err)
	}

	var parsed chartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse chart %s: %w", symbol, err)
	}
	if len(parsed.Chart.Result) == 0 || len(parsed.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no chart data for %s", symbol)
	}

	var closes []float64
	for _, c := range parsed.Chart.Result[0].Indicators.Quote[0].Close {
		if c != nil {
			closes = append(closes, *c)
		}
	}
	return closes, nil
}

func (c *Client) fetchRaw(url string) ([]byte, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return io.ReadAll(resp.Body)
}
