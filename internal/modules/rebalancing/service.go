// Package rebalancing translates the difference between previous holdings
// and a target allocation into concrete trade plans.
package rebalancing

import (
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"momentor/internal/domain"
)

// holding is a (shares, value) pair on either side of the rebalance.
type holding struct {
	shares int64
	value  decimal.Decimal
}

// Service computes the two alternative trade plans for a run. Both plans
// operate on the same current/target holdings snapshot, so their implied net
// per-symbol share changes always agree even though the trade sequences
// differ.
type Service struct {
	log zerolog.Logger
}

// NewService creates a new rebalancing service.
func NewService(log zerolog.Logger) *Service {
	return &Service{log: log.With().Str("service", "rebalancing").Logger()}
}

// currentHoldings builds the symbol -> (shares, value) map for previous
// positions. When a symbol is missing from the price map its stored average
// price is used instead; the plan proceeds on stale values rather than
// failing, and callers surface this degraded mode to the user.
func currentHoldings(positions []domain.Position, prices domain.PriceMap) map[string]holding {
	current := make(map[string]holding, len(positions))
	for _, pos := range positions {
		price, ok := prices[pos.Symbol]
		if !ok {
			price = pos.AvgPrice
		}
		current[pos.Symbol] = holding{
			shares: pos.Shares,
			value:  decimal.NewFromInt(pos.Shares).Mul(price),
		}
	}
	return current
}

// targetHoldings builds the symbol -> (shares, value) map for the target
// allocation. Share counts are whole shares truncated toward zero. A symbol
// with no positive price gets no target entry at all - it is effectively a
// zero target, and any existing position in it will be fully sold.
func targetHoldings(allocations []domain.Allocation, prices domain.PriceMap, totalCapital decimal.Decimal) map[string]holding {
	target := make(map[string]holding, len(allocations))
	for _, alloc := range allocations {
		price, ok := prices[alloc.Symbol]
		if !ok || !price.IsPositive() {
			continue
		}
		targetValue := totalCapital.Mul(alloc.Percentage)
		shares := targetValue.Div(price).IntPart()
		target[alloc.Symbol] = holding{
			shares: shares,
			value:  decimal.NewFromInt(shares).Mul(price),
		}
	}
	return target
}

// sortedSymbols returns map keys in lexicographic order so plans are
// reproducible run to run.
func sortedSymbols(holdings map[string]holding) []string {
	symbols := make([]string, 0, len(holdings))
	for symbol := range holdings {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// CashflowPlan produces the liquidation-first plan: every SELL needed to
// reach the target, then every BUY, with a dense 1-based order index. No
// SELL ever carries a higher order index than a BUY.
func (s *Service) CashflowPlan(
	positions []domain.Position,
	allocations []domain.Allocation,
	prices domain.PriceMap,
	totalCapital decimal.Decimal,
) []domain.CashflowMove {
	current := currentHoldings(positions, prices)
	target := targetHoldings(allocations, prices, totalCapital)

	moves := make([]domain.CashflowMove, 0)
	orderIndex := 1

	// Sell phase: reduce or eliminate positions above target
	for _, symbol := range sortedSymbols(current) {
		cur := current[symbol]
		tgt, hasTarget := target[symbol]

		switch {
		case !hasTarget:
			moves = append(moves, domain.CashflowMove{
				Symbol:     symbol,
				Action:     domain.ActionSell,
				Shares:     cur.shares,
				Value:      cur.value,
				OrderIndex: orderIndex,
			})
			orderIndex++
		case tgt.shares < cur.shares:
			sellShares := cur.shares - tgt.shares
			moves = append(moves, domain.CashflowMove{
				Symbol:     symbol,
				Action:     domain.ActionSell,
				Shares:     sellShares,
				Value:      decimal.NewFromInt(sellShares).Mul(prices[symbol]),
				OrderIndex: orderIndex,
			})
			orderIndex++
		}
	}

	// Buy phase: create or increase positions below target
	for _, symbol := range sortedSymbols(target) {
		tgt := target[symbol]
		cur, hasCurrent := current[symbol]

		switch {
		case !hasCurrent:
			moves = append(moves, domain.CashflowMove{
				Symbol:     symbol,
				Action:     domain.ActionBuy,
				Shares:     tgt.shares,
				Value:      tgt.value,
				OrderIndex: orderIndex,
			})
			orderIndex++
		case tgt.shares > cur.shares:
			buyShares := tgt.shares - cur.shares
			moves = append(moves, domain.CashflowMove{
				Symbol:     symbol,
				Action:     domain.ActionBuy,
				Shares:     buyShares,
				Value:      decimal.NewFromInt(buyShares).Mul(prices[symbol]),
				OrderIndex: orderIndex,
			})
			orderIndex++
		}
	}

	s.log.Debug().Int("moves", len(moves)).Msg("Cashflow plan built")

	return moves
}

// imbalance is one side of a swap pairing.
type imbalance struct {
	symbol string
	shares int64
	value  decimal.Decimal
}

// SwapPlan produces the value-matched plan: excess positions are paired
// directly against deficits, largest imbalance first, so the biggest
// rebalancing needs cancel against each other and the trade count stays
// small. Leftover excess becomes pure sells, leftover deficit pure buys.
// Greedy O(n log n), not a cost-optimal matching.
func (s *Service) SwapPlan(
	positions []domain.Position,
	allocations []domain.Allocation,
	prices domain.PriceMap,
	totalCapital decimal.Decimal,
) []domain.SwapMove {
	current := currentHoldings(positions, prices)
	target := targetHoldings(allocations, prices, totalCapital)

	var excess, deficit []imbalance

	for _, symbol := range sortedSymbols(current) {
		cur := current[symbol]
		tgt := target[symbol] // zero holding when absent
		if cur.shares > tgt.shares {
			diffShares := cur.shares - tgt.shares
			price, ok := prices[symbol]
			if !ok {
				// Priced at the stored average via the current value
				price = cur.value.Div(decimal.NewFromInt(cur.shares))
			}
			excess = append(excess, imbalance{
				symbol: symbol,
				shares: diffShares,
				value:  decimal.NewFromInt(diffShares).Mul(price),
			})
		}
	}

	for _, symbol := range sortedSymbols(target) {
		tgt := target[symbol]
		cur := current[symbol] // zero holding when absent
		if tgt.shares > cur.shares {
			deficit = append(deficit, imbalance{
				symbol: symbol,
				shares: tgt.shares - cur.shares,
				value:  tgt.value.Sub(cur.value),
			})
		}
	}

	// Largest imbalance first; symbols already lexicographic for equal values
	sort.SliceStable(excess, func(i, j int) bool {
		return excess[i].value.GreaterThan(excess[j].value)
	})
	sort.SliceStable(deficit, func(i, j int) bool {
		return deficit[i].value.GreaterThan(deficit[j].value)
	})

	moves := make([]domain.SwapMove, 0, len(excess)+len(deficit))
	orderIndex := 1

	for _, from := range excess {
		if len(deficit) > 0 {
			to := deficit[0]
			deficit = deficit[1:]
			moves = append(moves, domain.SwapMove{
				FromSymbol: ptr(from.symbol),
				ToSymbol:   ptr(to.symbol),
				SharesFrom: ptrInt(from.shares),
				SharesTo:   ptrInt(to.shares),
				Value:      decimal.Min(from.value, to.value),
				OrderIndex: orderIndex,
			})
		} else {
			moves = append(moves, domain.SwapMove{
				FromSymbol: ptr(from.symbol),
				SharesFrom: ptrInt(from.shares),
				Value:      from.value,
				OrderIndex: orderIndex,
			})
		}
		orderIndex++
	}

	// Remaining deficits have no matching excess: pure buys
	for _, to := range deficit {
		moves = append(moves, domain.SwapMove{
			ToSymbol:   ptr(to.symbol),
			SharesTo:   ptrInt(to.shares),
			Value:      to.value,
			OrderIndex: orderIndex,
		})
		orderIndex++
	}

	s.log.Debug().Int("moves", len(moves)).Msg("Swap plan built")

	return moves
}

func ptr(s string) *string { return &s }

func ptrInt(v int64) *int64 { return &v }
