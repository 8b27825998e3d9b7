// Package allocation converts a ranked symbol selection into target
// portfolio weights.
package allocation

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"momentor/internal/domain"
)

// weightScale is the decimal precision of allocation percentages.
const weightScale = 4

var one = decimal.NewFromInt(1)

// Builder produces allocation sets with a fixed anchor instrument and the
// remaining weight split evenly across the selected symbols.
type Builder struct {
	anchorSymbol string
	anchorName   string
	anchorWeight decimal.Decimal
	log          zerolog.Logger
}

// NewBuilder creates an allocation builder. anchorWeight is the fixed
// fraction (e.g. 0.30) always assigned to the anchor instrument.
func NewBuilder(anchorSymbol, anchorName string, anchorWeight float64, log zerolog.Logger) *Builder {
	return &Builder{
		anchorSymbol: anchorSymbol,
		anchorName:   anchorName,
		anchorWeight: decimal.NewFromFloat(anchorWeight).Round(weightScale),
		log:          log.With().Str("module", "allocation").Logger(),
	}
}

// Build returns the allocation set for the selected symbols plus the
// unallocated weight fraction.
//
// The anchor always receives its fixed weight. The remainder is divided
// evenly among the selection, each weight floor-quantized to 4 decimals -
// except the last symbol, which takes the exact remainder so the set sums to
// exactly 1.0000 despite the rounding. With an empty selection only the
// anchor is produced and the remainder is returned as residual weight for
// the caller to surface as uninvested cash, never silently dropped.
//
// names maps symbols to display names and may be nil.
func (b *Builder) Build(selected []domain.ScoredSymbol, names func(string) string) ([]domain.Allocation, decimal.Decimal) {
	if names == nil {
		names = func(symbol string) string { return symbol }
	}

	allocations := []domain.Allocation{{
		Symbol:     b.anchorSymbol,
		Name:       b.anchorName,
		Percentage: b.anchorWeight,
	}}

	remaining := one.Sub(b.anchorWeight)
	if len(selected) == 0 {
		b.log.Warn().
			Str("residual", remaining.StringFixed(weightScale)).
			Msg("Empty selection, anchor-only allocation")
		return allocations, remaining
	}

	perSymbol := remaining.
		Div(decimal.NewFromInt(int64(len(selected)))).
		RoundFloor(weightScale)

	allocated := decimal.Zero
	for i, sym := range selected {
		weight := perSymbol
		if i == len(selected)-1 {
			// Exact remainder keeps the invariant sum == 1.0000
			weight = remaining.Sub(allocated)
		}
		allocated = allocated.Add(weight)

		allocations = append(allocations, domain.Allocation{
			Symbol:     sym.Symbol,
			Name:       names(sym.Symbol),
			Percentage: weight,
		})
	}

	return allocations, decimal.Zero
}
