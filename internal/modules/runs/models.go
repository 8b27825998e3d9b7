// Package runs generates and persists algorithm runs: the target
// allocation, both trade plans, and the run's capital bookkeeping.
package runs

import (
	"time"

	"github.com/shopspring/decimal"

	"momentor/internal/domain"
)

// TriggerType records what started a run.
type TriggerType string

const (
	TriggerAuto   TriggerType = "auto"
	TriggerManual TriggerType = "manual"
	TriggerTest   TriggerType = "test"
)

// Status is the lifecycle state of a run. A run stays pending until the
// user confirms the positions actually taken.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Run is one algorithm run record.
type Run struct {
	ID             string          `json:"id"`
	RunDate        time.Time       `json:"run_date"`
	Trigger        TriggerType     `json:"trigger_type"`
	Status         Status          `json:"status"`
	TotalCapital   decimal.Decimal `json:"total_capital"`
	UninvestedCash decimal.Decimal `json:"uninvested_cash"`
	ResidualCash   decimal.Decimal `json:"residual_cash"`
	CreatedAt      time.Time       `json:"created_at"`
}

// AllocationRecord is a persisted target allocation line.
type AllocationRecord struct {
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	Percentage   decimal.Decimal `json:"percentage"`
	TargetAmount decimal.Decimal `json:"target_amount"`
}

// Detail is a run with all of its computed artifacts.
type Detail struct {
	Run           Run                   `json:"run"`
	Allocations   []AllocationRecord    `json:"allocations"`
	CashflowMoves []domain.CashflowMove `json:"cashflow_moves"`
	SwapMoves     []domain.SwapMove     `json:"swap_moves"`
}
