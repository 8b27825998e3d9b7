package portfolio

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"momentor/internal/domain"
)

// QuoteProvider supplies current prices.
type QuoteProvider interface {
	GetQuotes(symbols []string) (domain.PriceMap, error)
}

// RunCapitalProvider supplies the theoretical capital recorded on a run,
// used when no actual positions were confirmed for it.
type RunCapitalProvider interface {
	Capital(runID string) (total, uninvested decimal.Decimal, err error)
}

// PositionValuation is one holding valued at current prices.
type PositionValuation struct {
	Symbol       string          `json:"symbol"`
	Shares       int64           `json:"shares"`
	EntryPrice   decimal.Decimal `json:"entry_price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	EntryValue   decimal.Decimal `json:"entry_value"`
	CurrentValue decimal.Decimal `json:"current_value"`
	PnL          decimal.Decimal `json:"pnl"`
	PnLPercent   decimal.Decimal `json:"pnl_percent"`
}

// Valuation is the current portfolio with profit and loss.
type Valuation struct {
	HasPortfolio    bool                `json:"has_portfolio"`
	RunID           string              `json:"run_id,omitempty"`
	Positions       []PositionValuation `json:"positions,omitempty"`
	UninvestedCash  decimal.Decimal     `json:"uninvested_cash"`
	TotalEntryValue decimal.Decimal     `json:"total_entry_value"`
	TotalValue      decimal.Decimal     `json:"total_current_value"`
	TotalPnL        decimal.Decimal     `json:"total_pnl"`
	TotalPnLPercent decimal.Decimal     `json:"total_pnl_percent"`
}

// Service values the confirmed portfolio and derives the capital base for
// the next run.
type Service struct {
	positions *PositionRepository
	quotes    QuoteProvider
	capital   RunCapitalProvider
	log       zerolog.Logger
}

// NewService creates a new portfolio service.
func NewService(positions *PositionRepository, quotes QuoteProvider, capital RunCapitalProvider, log zerolog.Logger) *Service {
	return &Service{
		positions: positions,
		quotes:    quotes,
		capital:   capital,
		log:       log.With().Str("service", "portfolio").Logger(),
	}
}

// NextCapital computes the capital base for the next run: the confirmed
// positions of the last completed run valued at live prices, plus the
// confirmed uninvested cash. Falls back to stored position values when
// quotes fail, and to the run's theoretical capital when nothing was
// confirmed. Returns zeros when no run has completed yet (the first run
// needs manual capital).
func (s *Service) NextCapital() (total, uninvested decimal.Decimal, err error) {
	runID, ok, err := s.positions.LastCompletedRunID()
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if !ok {
		return decimal.Zero, decimal.Zero, nil
	}

	positions, err := s.positions.GetForRun(runID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	cash, hasCash, err := s.positions.GetCashForRun(runID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	if len(positions) == 0 && !hasCash {
		// Nothing confirmed: use the values the run was generated with
		return s.capital.Capital(runID)
	}

	total = decimal.Zero
	if len(positions) > 0 {
		prices := s.livePrices(positions)
		for _, pos := range positions {
			if price, ok := prices[pos.Symbol]; ok {
				total = total.Add(decimal.NewFromInt(pos.Shares).Mul(price))
			} else {
				total = total.Add(pos.Value)
			}
		}
	}

	return total.Add(cash), cash, nil
}

// CurrentValuation returns the confirmed portfolio valued at live prices
// with per-position and total PnL.
func (s *Service) CurrentValuation() (*Valuation, error) {
	runID, ok, err := s.positions.LastCompletedRunID()
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Valuation{HasPortfolio: false}, nil
	}

	positions, err := s.positions.GetForRun(runID)
	if err != nil {
		return nil, err
	}
	cash, _, err := s.positions.GetCashForRun(runID)
	if err != nil {
		return nil, err
	}

	if len(positions) == 0 {
		return &Valuation{HasPortfolio: false}, nil
	}

	prices := s.livePrices(positions)

	valuation := &Valuation{
		HasPortfolio:   true,
		RunID:          runID,
		UninvestedCash: cash,
	}

	totalCurrent := cash
	totalEntry := cash

	for _, pos := range positions {
		price, ok := prices[pos.Symbol]
		if !ok {
			price = pos.AvgPrice
		}
		currentValue := decimal.NewFromInt(pos.Shares).Mul(price)
		entryValue := pos.Value

		pnl := currentValue.Sub(entryValue)
		pnlPercent := decimal.Zero
		if entryValue.IsPositive() {
			pnlPercent = pnl.Div(entryValue).Mul(decimal.NewFromInt(100)).Round(2)
		}

		valuation.Positions = append(valuation.Positions, PositionValuation{
			Symbol:       pos.Symbol,
			Shares:       pos.Shares,
			EntryPrice:   pos.AvgPrice,
			CurrentPrice: price,
			EntryValue:   entryValue,
			CurrentValue: currentValue,
			PnL:          pnl,
			PnLPercent:   pnlPercent,
		})

		totalCurrent = totalCurrent.Add(currentValue)
		totalEntry = totalEntry.Add(entryValue)
	}

	valuation.TotalValue = totalCurrent
	valuation.TotalEntryValue = totalEntry
	valuation.TotalPnL = totalCurrent.Sub(totalEntry)
	if totalEntry.IsPositive() {
		valuation.TotalPnLPercent = valuation.TotalPnL.Div(totalEntry).Mul(decimal.NewFromInt(100)).Round(2)
	}

	return valuation, nil
}

// livePrices fetches quotes for the positions' symbols, returning an empty
// map when the fetch fails entirely (callers fall back to stored values).
func (s *Service) livePrices(positions []domain.Position) domain.PriceMap {
	symbols := make([]string, 0, len(positions))
	for _, pos := range positions {
		symbols = append(symbols, pos.Symbol)
	}

	prices, err := s.quotes.GetQuotes(symbols)
	if err != nil {
		s.log.Warn().Err(err).Int("symbols", len(symbols)).Msg("Quotes unavailable, using stored values")
		return domain.PriceMap{}
	}
	return prices
}
