// Package market_regime gates algorithm runs on a market-wide trend
// condition that is independent of any individual stock.
package market_regime

import (
	"time"

	"github.com/rs/zerolog"

	"momentor/internal/domain"
	"momentor/pkg/formulas"
)

// smaWindow is the moving-average window in trading sessions.
const smaWindow = 220

// HistoryProvider supplies daily candles for the benchmark instrument.
type HistoryProvider interface {
	DailyHistory(symbol string, start, end time.Time) ([]domain.Candle, error)
}

// Detector evaluates whether the benchmark trades above its long moving
// average. A negative or unknown answer vetoes the entire run.
type Detector struct {
	history   HistoryProvider
	benchmark string
	log       zerolog.Logger
}

// NewDetector creates a new regime detector for the given benchmark symbol.
func NewDetector(history HistoryProvider, benchmark string, log zerolog.Logger) *Detector {
	return &Detector{
		history:   history,
		benchmark: benchmark,
		log:       log.With().Str("module", "market_regime").Logger(),
	}
}

// IsBullish reports whether the benchmark's latest close is strictly above
// its 220-session simple moving average. Fail-closed: a fetch failure or
// insufficient history counts as "condition not met" rather than an error,
// so a data outage can never trigger a run that the regime should veto.
func (d *Detector) IsBullish(now time.Time) bool {
	candles, err := d.history.DailyHistory(d.benchmark, now.AddDate(-1, 0, 0), now)
	if err != nil {
		d.log.Warn().Err(err).Str("benchmark", d.benchmark).Msg("Benchmark history unavailable, treating as bearish")
		return false
	}

	closes := make([]float64, 0, len(candles))
	for _, candle := range candles {
		if candle.Valid() {
			closes = append(closes, candle.Close)
		}
	}

	if len(closes) < smaWindow {
		d.log.Warn().
			Str("benchmark", d.benchmark).
			Int("sessions", len(closes)).
			Msg("Insufficient benchmark history for moving average")
		return false
	}

	sma := formulas.CalculateSMA(closes, smaWindow)
	if sma == nil {
		return false
	}

	latest := closes[len(closes)-1]
	bullish := latest > *sma

	d.log.Info().
		Str("benchmark", d.benchmark).
		Float64("close", latest).
		Float64("sma220", *sma).
		Bool("bullish", bullish).
		Msg("Regime check")

	return bullish
}
