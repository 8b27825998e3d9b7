// Package domain contains the pure value types shared across modules.
// Nothing in this package touches infrastructure; every type is computed
// fresh per run and never mutated after construction.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoveAction is the direction of a cashflow move.
type MoveAction string

const (
	ActionBuy  MoveAction = "BUY"
	ActionSell MoveAction = "SELL"
)

// Candle is one daily OHLCV observation.
type Candle struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Valid reports whether the candle carries usable price data. Rows with
// non-positive or NaN-coerced values are dropped before any indicator math.
func (c Candle) Valid() bool {
	return c.Close > 0 && c.High > 0 && c.Low > 0
}

// Allocation is one target portfolio entry. Across one allocation set the
// percentages sum to exactly 1.0000 at 4-decimal precision.
type Allocation struct {
	Symbol     string
	Name       string
	Percentage decimal.Decimal
}

// ScoredSymbol carries a symbol's momentum/volatility ranking score.
// A nil score means the symbol could not be scored (insufficient or invalid
// history) and is excluded from ranking, not treated as zero.
type ScoredSymbol struct {
	Symbol string
	Score  *float64
}

// Position is one confirmed holding from a previous run. Owned by the
// persistence layer; the engines only read it.
type Position struct {
	Symbol   string
	Shares   int64
	AvgPrice decimal.Decimal
	Value    decimal.Decimal
}

// PriceMap maps symbols to a positive price as of a single coherent
// timestamp. A missing symbol means "unknown price", never zero.
type PriceMap map[string]decimal.Decimal

// CashflowMove is one step of the liquidation-first trade plan.
// All SELL moves precede all BUY moves and OrderIndex is a dense 1-based
// sequence with no gaps.
type CashflowMove struct {
	Symbol     string
	Action     MoveAction
	Shares     int64
	Value      decimal.Decimal
	OrderIndex int
}

// SwapMove pairs a sell directly against a buy. FromSymbol is nil for a pure
// buy, ToSymbol is nil for a pure sell; at least one side is always present.
type SwapMove struct {
	FromSymbol *string
	ToSymbol   *string
	SharesFrom *int64
	SharesTo   *int64
	Value      decimal.Decimal
	OrderIndex int
}
