package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"momentor/internal/domain"
	"momentor/pkg/formulas"
)

const (
	// historyDays is 2.5 years of daily history (2.5 * 365.25).
	historyDays = 913
	// minMonthly is the minimum number of monthly observations to score.
	minMonthly = 8
	// momentumWindow is the number of trailing monthly returns averaged.
	momentumWindow = 3
	// atrPeriod is the Wilder smoothing period and trailing ATR window.
	atrPeriod = 8
)

// Scorer computes momentum/volatility ranking scores from monthly series.
type Scorer struct {
	history HistoryProvider
	log     zerolog.Logger
}

// NewScorer creates a new momentum/volatility scorer.
func NewScorer(history HistoryProvider, log zerolog.Logger) *Scorer {
	return &Scorer{
		history: history,
		log:     log.With().Str("module", "scorer").Logger(),
	}
}

// ScoreAll scores every symbol against the last fully closed month relative
// to runDate. Symbols that cannot be scored carry a nil score; input order
// is preserved. Returns domain.ErrNoScorableSymbols when no symbol scored.
func (s *Scorer) ScoreAll(symbols []string, runDate time.Time) ([]domain.ScoredSymbol, error) {
	end := LastClosedMonthEnd(runDate)

	scored := make([]domain.ScoredSymbol, 0, len(symbols))
	scorable := 0

	for _, symbol := range symbols {
		score := s.score(symbol, end)
		if score != nil {
			scorable++
		}
		scored = append(scored, domain.ScoredSymbol{Symbol: symbol, Score: score})
	}

	if scorable == 0 {
		return nil, domain.ErrNoScorableSymbols
	}

	s.log.Info().
		Int("candidates", len(symbols)).
		Int("scored", scorable).
		Time("month_end", end).
		Msg("Scoring complete")

	return scored, nil
}

// score computes momentum / volatility for one symbol, or nil when the
// symbol cannot be scored. Per-symbol failures never abort the run.
func (s *Scorer) score(symbol string, end time.Time) *float64 {
	start := end.AddDate(0, 0, -historyDays)

	daily, err := s.history.DailyHistory(symbol, start, end)
	if err != nil {
		s.log.Debug().Err(err).Str("symbol", symbol).Msg("History unavailable, symbol unscored")
		return nil
	}

	monthly := ResampleMonthly(daily)
	if len(monthly) < minMonthly {
		return nil
	}

	closes := make([]float64, len(monthly))
	highs := make([]float64, len(monthly))
	lows := make([]float64, len(monthly))
	for i, candle := range monthly {
		closes[i] = candle.Close
		highs[i] = candle.High
		lows[i] = candle.Low
	}

	// Momentum: mean month-over-month return across the trailing window
	returns := formulas.CalculateReturns(closes)
	momentum := formulas.Mean(returns[len(returns)-momentumWindow:])

	// Volatility: Wilder ATR smoothed over the whole monthly series, then
	// averaged over the trailing window. Smoothing first, trailing mean
	// second - the ATR values deliberately depend on pre-window history.
	atr := formulas.WilderATR(highs, lows, closes, atrPeriod)
	volatility := formulas.Mean(atr[len(atr)-atrPeriod:])

	if math.IsNaN(momentum) || math.IsNaN(volatility) || math.IsInf(volatility, 0) || volatility == 0 {
		return nil
	}

	score := momentum / volatility
	return &score
}

// Rank orders scored symbols descending by score and returns the top n.
// Unscored symbols are excluded, never treated as zero. Ties keep the input
// (universe) order: the sort is stable and the universe iterates
// lexicographically, so rankings are reproducible across runs.
func Rank(scored []domain.ScoredSymbol, n int) []domain.ScoredSymbol {
	ranked := make([]domain.ScoredSymbol, 0, len(scored))
	for _, sym := range scored {
		if sym.Score != nil {
			ranked = append(ranked, sym)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return *ranked[i].Score > *ranked[j].Score
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
