package marketdata

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"momentor/internal/domain"
)

const (
	// quoteCacheTTL is how long an in-memory quote stays fresh.
	quoteCacheTTL = 5 * time.Minute
	// historyCacheTTL is how long a cached daily-history series stays fresh.
	historyCacheTTL = 12 * time.Hour
)

// MarketClient is the upstream market data provider.
type MarketClient interface {
	DailyHistory(symbol string, start, end time.Time) ([]domain.Candle, error)
	Quote(symbol string) (decimal.Decimal, error)
}

type cachedQuote struct {
	price decimal.Decimal
	at    time.Time
}

// Service serves quotes and daily history with caching on top of the
// upstream client. The in-memory quote cache absorbs repeated lookups
// within a run; the persistent cache supplies last-good prices when the
// upstream is down. The service is constructed per process and injected
// into its consumers - there is no hidden global cache.
type Service struct {
	client MarketClient
	cache  *CacheRepository
	log    zerolog.Logger

	mu     sync.Mutex
	quotes map[string]cachedQuote
	now    func() time.Time
}

// NewService creates a new market data service.
func NewService(client MarketClient, cache *CacheRepository, log zerolog.Logger) *Service {
	return &Service{
		client: client,
		cache:  cache,
		quotes: make(map[string]cachedQuote),
		log:    log.With().Str("service", "marketdata").Logger(),
		now:    time.Now,
	}
}

// GetQuotes returns current prices for the given symbols. Symbols whose
// live quote fails fall back to the last cached good price; symbols with
// neither are omitted. The error is non-nil only when no price could be
// resolved for any requested symbol.
func (s *Service) GetQuotes(symbols []string) (domain.PriceMap, error) {
	prices := make(domain.PriceMap, len(symbols))
	now := s.now()

	for _, symbol := range symbols {
		if price, ok := s.freshQuote(symbol, now); ok {
			prices[symbol] = price
			continue
		}

		price, err := s.client.Quote(symbol)
		if err == nil {
			prices[symbol] = price
			s.storeQuote(symbol, price, now)
			continue
		}

		if cached, ok := s.cache.GetPrice(symbol); ok {
			s.log.Warn().Str("symbol", symbol).Msg("Live quote failed, using last cached price")
			prices[symbol] = cached
			continue
		}

		s.log.Warn().Err(err).Str("symbol", symbol).Msg("No price available")
	}

	if len(symbols) > 0 && len(prices) == 0 {
		return nil, fmt.Errorf("%w: no prices for %d symbols", domain.ErrMarketDataUnavailable, len(symbols))
	}
	return prices, nil
}

// DailyHistory returns daily candles for a symbol, cached per
// (symbol, start, end) tuple with a TTL.
func (s *Service) DailyHistory(symbol string, start, end time.Time) ([]domain.Candle, error) {
	key := fmt.Sprintf("%s|%s|%s", symbol, start.UTC().Format("2006-01-02"), end.UTC().Format("2006-01-02"))
	now := s.now()

	if candles, ok := s.cache.GetHistory(key, historyCacheTTL, now); ok {
		return candles, nil
	}

	candles, err := s.client.DailyHistory(symbol, start, end)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SaveHistory(key, candles, now); err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache history")
	}
	return candles, nil
}

func (s *Service) freshQuote(symbol string, now time.Time) (decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached, ok := s.quotes[symbol]
	if !ok || now.Sub(cached.at) >= quoteCacheTTL {
		return decimal.Zero, false
	}
	return cached.price, true
}

func (s *Service) storeQuote(symbol string, price decimal.Decimal, now time.Time) {
	s.mu.Lock()
	s.quotes[symbol] = cachedQuote{price: price, at: now}
	s.mu.Unlock()

	if err := s.cache.SavePrice(symbol, price, now); err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache price")
	}
}
