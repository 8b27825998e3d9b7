// Package scoring narrows the universe with a per-symbol trend filter and
// ranks the survivors by a momentum/volatility score.
package scoring

import (
	"time"

	"github.com/rs/zerolog"

	"momentor/internal/domain"
	"momentor/pkg/formulas"
)

// smaWindow is the trend filter's moving-average window in trading sessions.
const smaWindow = 220

// HistoryProvider supplies daily candles for a symbol.
type HistoryProvider interface {
	DailyHistory(symbol string, start, end time.Time) ([]domain.Candle, error)
}

// TrendFilter admits symbols whose latest close is above their 220-session
// simple moving average.
type TrendFilter struct {
	history HistoryProvider
	log     zerolog.Logger
}

// NewTrendFilter creates a new trend filter.
func NewTrendFilter(history HistoryProvider, log zerolog.Logger) *TrendFilter {
	return &TrendFilter{
		history: history,
		log:     log.With().Str("module", "trend_filter").Logger(),
	}
}

// Filter returns the symbols that pass the trend condition, preserving the
// input order. Any per-symbol fetch or computation failure silently drops
// that symbol. Returns domain.ErrNoEligibleSymbols when nothing survives.
func (f *TrendFilter) Filter(symbols []string, now time.Time) ([]string, error) {
	eligible := make([]string, 0, len(symbols))

	for _, symbol := range symbols {
		if f.passes(symbol, now) {
			eligible = append(eligible, symbol)
		}
	}

	if len(eligible) == 0 {
		return nil, domain.ErrNoEligibleSymbols
	}

	f.log.Info().
		Int("candidates", len(symbols)).
		Int("eligible", len(eligible)).
		Msg("Trend filter applied")

	return eligible, nil
}

func (f *TrendFilter) passes(symbol string, now time.Time) bool {
	candles, err := f.history.DailyHistory(symbol, now.AddDate(-1, 0, 0), now)
	if err != nil {
		f.log.Debug().Err(err).Str("symbol", symbol).Msg("History unavailable, symbol dropped")
		return false
	}

	closes := make([]float64, 0, len(candles))
	for _, candle := range candles {
		if candle.Valid() {
			closes = append(closes, candle.Close)
		}
	}

	if len(closes) < smaWindow {
		return false
	}

	sma := formulas.CalculateSMA(closes, smaWindow)
	if sma == nil {
		return false
	}

	return closes[len(closes)-1] > *sma
}
