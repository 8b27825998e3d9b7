// Package wikipedia scrapes index constituent tables from Wikipedia.
package wikipedia

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// Index identifies a reference index whose constituents can be fetched.
type Index string

const (
	IndexSP500     Index = "sp500"
	IndexNasdaq100 Index = "nasdaq100"
)

var indexPages = map[Index]string{
	IndexSP500:     "/wiki/List_of_S%26P_500_companies",
	IndexNasdaq100: "/wiki/Nasdaq-100",
}

// Client fetches index constituent lists by scraping the "constituents"
// table on the index's Wikipedia page.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new Wikipedia constituents client.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: "https://en.wikipedia.org",
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log.With().Str("client", "wikipedia").Logger(),
	}
}

// SetBaseURL overrides the base URL (used in tests).
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// GetConstituents returns a symbol-to-name map for the given index.
// On failure an empty map is returned together with the error; callers treat
// an empty map as "no data", not as an empty index.
func (c *Client) GetConstituents(index Index) (map[string]string, error) {
	page, ok := indexPages[index]
	if !ok {
		return map[string]string{}, fmt.Errorf("unknown index %q", index)
	}

	req, err := http.NewRequest(http.MethodGet, c.baseURL+page, nil)
	if err != nil {
		return map[string]string{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return map[string]string{}, fmt.Errorf("constituents fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return map[string]string{}, fmt.Errorf("constituents: status %d for %s", resp.StatusCode, index)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return map[string]string{}, fmt.Errorf("constituents parse: %w", err)
	}

	constituents := c.parseTable(doc)
	if len(constituents) == 0 {
		return map[string]string{}, fmt.Errorf("constituents table not found for %s", index)
	}

	c.log.Debug().
		Str("index", string(index)).
		Int("count", len(constituents)).
		Msg("Fetched constituents")

	return constituents, nil
}

// parseTable extracts {symbol: name} pairs from the constituents table.
// The table is located by its id, falling back to the first wikitable that
// carries both a ticker and a company-name column.
func (c *Client) parseTable(doc *goquery.Document) map[string]string {
	table := doc.Find("table#constituents").First()
	if table.Length() == 0 {
		table = doc.Find("table.wikitable").First()
	}
	if table.Length() == 0 {
		return nil
	}

	// Locate the ticker and name columns from the header row
	symbolCol, nameCol := -1, -1
	table.Find("tr").First().Find("th").Each(func(i int, th *goquery.Selection) {
		header := strings.TrimSpace(th.Text())
		switch header {
		case "Symbol", "Ticker":
			symbolCol = i
		case "Security", "Company":
			nameCol = i
		}
	})
	if symbolCol < 0 || nameCol < 0 {
		return nil
	}

	constituents := make(map[string]string)
	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() <= symbolCol || cells.Length() <= nameCol {
			return
		}
		symbol := normalizeSymbol(cells.Eq(symbolCol).Text())
		name := strings.TrimSpace(cells.Eq(nameCol).Text())
		if symbol != "" && name != "" {
			constituents[symbol] = name
		}
	})

	return constituents
}

// normalizeSymbol converts share-class dots to the dash notation used by
// market data providers (e.g. BRK.B -> BRK-B).
func normalizeSymbol(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ".", "-")
}
