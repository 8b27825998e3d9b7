// Package yahoo provides a client for the Yahoo Finance v8 chart API.
package yahoo

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"momentor/internal/domain"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// Client fetches daily history and quotes from Yahoo Finance.
type Client struct {
	baseURL    string
	client     *http.Client
	log        zerolog.Logger
	maxRetries int
}

// NewClient creates a new Yahoo Finance client.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		log:        log.With().Str("client", "yahoo").Logger(),
		maxRetries: 2,
	}
}

// SetBaseURL overrides the API base URL (used in tests).
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// chartResponse is the response structure from the Yahoo Finance chart API.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// DailyHistory fetches daily candles for a symbol between start and end.
// Rows with missing or non-positive prices are dropped, so the returned
// series contains only valid observations, sorted by date ascending.
func (c *Client) DailyHistory(symbol string, start, end time.Time) ([]domain.Candle, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&period1=%d&period2=%d",
		c.baseURL, url.PathEscape(symbol), start.Unix(), end.Unix())
	return c.fetchChart(symbol, u)
}

// Quote fetches the most recent daily close for a symbol.
func (c *Client) Quote(symbol string) (decimal.Decimal, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=5d",
		c.baseURL, url.PathEscape(symbol))

	candles, err := c.fetchChart(symbol, u)
	if err != nil {
		return decimal.Zero, err
	}
	if len(candles) == 0 {
		return decimal.Zero, fmt.Errorf("%w: no recent close for %s", domain.ErrMarketDataUnavailable, symbol)
	}
	return decimal.NewFromFloat(candles[len(candles)-1].Close), nil
}

// Quotes fetches current prices for a list of symbols. Symbols that cannot
// be quoted are omitted from the result; the error is non-nil only when no
// symbol could be quoted at all.
func (c *Client) Quotes(symbols []string) (domain.PriceMap, error) {
	prices := make(domain.PriceMap, len(symbols))
	var lastErr error

	for _, symbol := range symbols {
		price, err := c.Quote(symbol)
		if err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Quote fetch failed")
			lastErr = err
			continue
		}
		prices[symbol] = price
	}

	if len(prices) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return prices, nil
}

func (c *Client) fetchChart(symbol, u string) ([]domain.Candle, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff between attempts
			time.Sleep(time.Duration(1<<(attempt-1)) * time.Second)
		}

		candles, err := c.fetchChartOnce(symbol, u)
		if err == nil {
			return candles, nil
		}
		lastErr = err
		c.log.Warn().Err(err).Str("symbol", symbol).Int("attempt", attempt+1).Msg("Chart fetch failed")
	}

	return nil, fmt.Errorf("%w: %v", domain.ErrMarketDataUnavailable, lastErr)
}

func (c *Client) fetchChartOnce(symbol, u string) ([]domain.Candle, error) {
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	// Yahoo rejects requests without a browser-like User-Agent
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chart fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("chart read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart: status %d for %s", resp.StatusCode, symbol)
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("chart decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("chart api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart: no data returned for %s", symbol)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	candles := make([]domain.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		candle := domain.Candle{
			Date:   time.Unix(ts, 0).UTC(),
			Open:   deref(at(quote.Open, i)),
			High:   deref(at(quote.High, i)),
			Low:    deref(at(quote.Low, i)),
			Close:  deref(at(quote.Close, i)),
			Volume: deref(at(quote.Volume, i)),
		}
		// Drop rows with missing or invalid price data
		if !candle.Valid() {
			continue
		}
		candles = append(candles, candle)
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Date.Before(candles[j].Date)
	})

	return candles, nil
}

func at(values []*float64, i int) *float64 {
	if i < 0 || i >= len(values) {
		return nil
	}
	return values[i]
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
