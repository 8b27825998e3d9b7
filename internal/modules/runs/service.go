package runs

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"momentor/internal/domain"
	"momentor/internal/modules/portfolio"
	"momentor/internal/modules/rebalancing"
	"momentor/internal/modules/strategy"
)

// QuoteProvider supplies current prices for the move planner.
type QuoteProvider interface {
	GetQuotes(symbols []string) (domain.PriceMap, error)
}

// ErrRunInProgress is returned when a generation is requested while another
// one is still running. Runs race to read the last completed run, so only
// one may be in flight at a time.
var ErrRunInProgress = errors.New("a run generation is already in progress")

// Service generates algorithm runs.
type Service struct {
	strategy    strategy.Strategy
	portfolio   *portfolio.Service
	positions   *portfolio.PositionRepository
	quotes      QuoteProvider
	rebalancing *rebalancing.Service
	repo        *Repository
	log         zerolog.Logger

	mu sync.Mutex
}

// NewService creates a new run generation service.
func NewService(
	strat strategy.Strategy,
	portfolioSvc *portfolio.Service,
	positions *portfolio.PositionRepository,
	quotes QuoteProvider,
	rebalancingSvc *rebalancing.Service,
	repo *Repository,
	log zerolog.Logger,
) *Service {
	return &Service{
		strategy:    strat,
		portfolio:   portfolioSvc,
		positions:   positions,
		quotes:      quotes,
		rebalancing: rebalancingSvc,
		repo:        repo,
		log:         log.With().Str("service", "runs").Logger(),
	}
}

// Generate produces and persists a new run: capital, allocations, and both
// trade plans. manualCapital overrides the derived capital and is required
// for the very first run. Only one generation may be in flight at a time.
func (s *Service) Generate(trigger TriggerType, manualCapital *decimal.Decimal, runDate time.Time) (*Detail, error) {
	if !s.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.mu.Unlock()

	total, uninvested, err := s.capitalBase(manualCapital)
	if err != nil {
		return nil, err
	}

	allocations, residualWeight, err := s.strategy.GetAllocations(total, runDate)
	if err != nil {
		return nil, err
	}
	residualCash := total.Mul(residualWeight).Round(2)

	previousPositions, err := s.previousPositions()
	if err != nil {
		return nil, err
	}

	prices := s.fetchPrices(allocations, previousPositions)

	detail := &Detail{
		Run: Run{
			ID:             uuid.New().String(),
			RunDate:        runDate.UTC(),
			Trigger:        trigger,
			Status:         StatusPending,
			TotalCapital:   total,
			UninvestedCash: uninvested,
			ResidualCash:   residualCash,
			CreatedAt:      time.Now().UTC(),
		},
		CashflowMoves: s.rebalancing.CashflowPlan(previousPositions, allocations, prices, total),
		SwapMoves:     s.rebalancing.SwapPlan(previousPositions, allocations, prices, total),
	}

	for _, alloc := range allocations {
		detail.Allocations = append(detail.Allocations, AllocationRecord{
			Symbol:       alloc.Symbol,
			Name:         alloc.Name,
			Percentage:   alloc.Percentage,
			TargetAmount: total.Mul(alloc.Percentage).Round(2),
		})
	}

	if err := s.repo.Create(detail); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("run_id", detail.Run.ID).
		Str("trigger", string(trigger)).
		Str("capital", total.String()).
		Int("allocations", len(detail.Allocations)).
		Int("cashflow_moves", len(detail.CashflowMoves)).
		Int("swap_moves", len(detail.SwapMoves)).
		Msg("Run generated")

	return detail, nil
}

// capitalBase resolves the capital for this run: a manual override, or the
// value derived from the last completed run.
func (s *Service) capitalBase(manualCapital *decimal.Decimal) (total, uninvested decimal.Decimal, err error) {
	if manualCapital != nil {
		return *manualCapital, decimal.Zero, nil
	}

	total, uninvested, err = s.portfolio.NextCapital()
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if total.IsZero() {
		return decimal.Zero, decimal.Zero, domain.ErrNoCapital
	}
	return total, uninvested, nil
}

func (s *Service) previousPositions() ([]domain.Position, error) {
	runID, ok, err := s.positions.LastCompletedRunID()
	if err != nil || !ok {
		return nil, err
	}
	return s.positions.GetForRun(runID)
}

// fetchPrices quotes the union of target and held symbols. A total quote
// failure degrades to an empty price map: the planner then works from
// stored average prices, which can produce stale-priced suggestions - the
// run is still generated and the caller surfaces the degraded mode.
func (s *Service) fetchPrices(allocations []domain.Allocation, positions []domain.Position) domain.PriceMap {
	seen := make(map[string]struct{})
	symbols := make([]string, 0, len(allocations)+len(positions))

	for _, alloc := range allocations {
		if _, ok := seen[alloc.Symbol]; !ok {
			seen[alloc.Symbol] = struct{}{}
			symbols = append(symbols, alloc.Symbol)
		}
	}
	for _, pos := range positions {
		if _, ok := seen[pos.Symbol]; !ok {
			seen[pos.Symbol] = struct{}{}
			symbols = append(symbols, pos.Symbol)
		}
	}

	prices, err := s.quotes.GetQuotes(symbols)
	if err != nil {
		s.log.Warn().Err(err).Msg("Price fetch failed, planning from stored prices")
		return domain.PriceMap{}
	}
	return prices
}
