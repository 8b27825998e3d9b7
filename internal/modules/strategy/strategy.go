// Package strategy chains the filtering, scoring and allocation stages into
// the momentum strategy that produces a run's target allocation.
package strategy

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"momentor/internal/clients/wikipedia"
	"momentor/internal/domain"
	"momentor/internal/market_regime"
	"momentor/internal/modules/allocation"
	"momentor/internal/modules/scoring"
	"momentor/internal/modules/universe"
)

// ConstituentsProvider supplies index membership maps.
type ConstituentsProvider interface {
	GetConstituents(index wikipedia.Index) (map[string]string, error)
}

// Strategy produces target allocations for a capital amount at a run date.
// Each invocation is independent and reentrant; the strategy holds no
// mutable state between runs.
type Strategy interface {
	GetAllocations(capital decimal.Decimal, runDate time.Time) ([]domain.Allocation, decimal.Decimal, error)
}

// MomentumVola selects the top momentum/volatility symbols from the
// S&P 500 / NASDAQ-100 intersection, behind a market regime gate, and pairs
// them with a fixed anchor allocation.
type MomentumVola struct {
	constituents ConstituentsProvider
	resolver     *universe.Resolver
	regime       *market_regime.Detector
	trendFilter  *scoring.TrendFilter
	scorer       *scoring.Scorer
	builder      *allocation.Builder
	topN         int
	log          zerolog.Logger
}

// NewMomentumVola creates the production momentum strategy.
func NewMomentumVola(
	constituents ConstituentsProvider,
	resolver *universe.Resolver,
	regime *market_regime.Detector,
	trendFilter *scoring.TrendFilter,
	scorer *scoring.Scorer,
	builder *allocation.Builder,
	topN int,
	log zerolog.Logger,
) *MomentumVola {
	return &MomentumVola{
		constituents: constituents,
		resolver:     resolver,
		regime:       regime,
		trendFilter:  trendFilter,
		scorer:       scorer,
		builder:      builder,
		topN:         topN,
		log:          log.With().Str("strategy", "momentum_vola").Logger(),
	}
}

// GetAllocations runs the full pipeline: universe resolution, regime gate,
// trend filter, scoring, ranking and allocation. The returned residual is
// the weight fraction left unallocated when no symbol could be selected at
// all (the anchor-only case).
//
// Veto conditions surface as the typed errors in the domain package; they
// stop the run but are expected outcomes, not faults.
func (s *MomentumVola) GetAllocations(capital decimal.Decimal, runDate time.Time) ([]domain.Allocation, decimal.Decimal, error) {
	sp500, err := s.constituents.GetConstituents(wikipedia.IndexSP500)
	if err != nil {
		s.log.Warn().Err(err).Msg("S&P 500 constituents unavailable")
	}
	nasdaq100, err := s.constituents.GetConstituents(wikipedia.IndexNasdaq100)
	if err != nil {
		s.log.Warn().Err(err).Msg("NASDAQ-100 constituents unavailable")
	}

	// An empty map from either provider empties the intersection, which the
	// resolver reports as an empty universe
	universeSet, err := s.resolver.Resolve(sp500, nasdaq100)
	if err != nil {
		return nil, decimal.Zero, err
	}

	if !s.regime.IsBullish(runDate) {
		return nil, decimal.Zero, domain.ErrMarketConditionNotMet
	}

	eligible, err := s.trendFilter.Filter(universeSet.Symbols(), runDate)
	if err != nil {
		return nil, decimal.Zero, err
	}

	scored, err := s.scorer.ScoreAll(eligible, runDate)
	if err != nil {
		return nil, decimal.Zero, err
	}

	selected := scoring.Rank(scored, s.topN)
	if len(selected) < s.topN {
		s.log.Warn().
			Int("selected", len(selected)).
			Int("requested", s.topN).
			Msg("Fewer scorable symbols than requested, proceeding with available selection")
	}

	allocations, residual := s.builder.Build(selected, universeSet.Name)

	s.log.Info().
		Int("universe", universeSet.Size()).
		Int("eligible", len(eligible)).
		Int("selected", len(selected)).
		Str("capital", capital.String()).
		Msg("Allocations computed")

	return allocations, residual, nil
}
