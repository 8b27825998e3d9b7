package runs

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"momentor/internal/domain"
)

// Repository persists runs and their artifacts.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new runs repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "runs").Logger(),
	}
}

// Create stores a run together with its allocations and both trade plans in
// a single transaction. Downstream consumers rely on the stored order_index
// values verbatim, so they are persisted exactly as computed.
func (r *Repository) Create(detail *Detail) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	run := detail.Run
	_, err = tx.Exec(`
		INSERT INTO runs (id, run_date, trigger_type, status, total_capital, uninvested_cash, residual_cash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.RunDate.UTC().Format(time.RFC3339),
		string(run.Trigger),
		string(run.Status),
		run.TotalCapital.String(),
		run.UninvestedCash.String(),
		run.ResidualCash.String(),
		run.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, alloc := range detail.Allocations {
		_, err = tx.Exec(`
			INSERT INTO run_allocations (run_id, symbol, name, percentage, target_amount)
			VALUES (?, ?, ?, ?, ?)`,
			run.ID, alloc.Symbol, alloc.Name, alloc.Percentage.String(), alloc.TargetAmount.String())
		if err != nil {
			return fmt.Errorf("failed to insert allocation %s: %w", alloc.Symbol, err)
		}
	}

	for _, move := range detail.CashflowMoves {
		_, err = tx.Exec(`
			INSERT INTO cashflow_moves (run_id, symbol, action, shares, value, order_index)
			VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, move.Symbol, string(move.Action), move.Shares, move.Value.String(), move.OrderIndex)
		if err != nil {
			return fmt.Errorf("failed to insert cashflow move: %w", err)
		}
	}

	for _, move := range detail.SwapMoves {
		_, err = tx.Exec(`
			INSERT INTO swap_moves (run_id, from_symbol, to_symbol, shares_from, shares_to, value, order_index)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, move.FromSymbol, move.ToSymbol, move.SharesFrom, move.SharesTo, move.Value.String(), move.OrderIndex)
		if err != nil {
			return fmt.Errorf("failed to insert swap move: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	r.log.Info().Str("run_id", run.ID).Msg("Run persisted")
	return nil
}

// Get returns a run with all artifacts, or nil when it does not exist.
func (r *Repository) Get(id string) (*Detail, error) {
	run, err := r.scanRun(r.db.QueryRow(`
		SELECT id, run_date, trigger_type, status, total_capital, uninvested_cash, residual_cash, created_at
		FROM runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	detail := &Detail{Run: *run}

	if detail.Allocations, err = r.allocations(id); err != nil {
		return nil, err
	}
	if detail.CashflowMoves, err = r.cashflowMoves(id); err != nil {
		return nil, err
	}
	if detail.SwapMoves, err = r.swapMoves(id); err != nil {
		return nil, err
	}

	return detail, nil
}

// List returns runs newest first.
func (r *Repository) List(limit int) ([]Run, error) {
	rows, err := r.db.Query(`
		SELECT id, run_date, trigger_type, status, total_capital, uninvested_cash, residual_cash, created_at
		FROM runs ORDER BY run_date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var result []Run
	for rows.Next() {
		run, err := r.scanRun(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *run)
	}
	return result, rows.Err()
}

// Capital returns the theoretical capital recorded on a run.
func (r *Repository) Capital(runID string) (decimal.Decimal, decimal.Decimal, error) {
	var totalRaw, cashRaw string
	err := r.db.QueryRow(`SELECT total_capital, uninvested_cash FROM runs WHERE id = ?`, runID).
		Scan(&totalRaw, &cashRaw)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to query run capital: %w", err)
	}

	total, err := decimal.NewFromString(totalRaw)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("invalid total_capital: %w", err)
	}
	cash, err := decimal.NewFromString(cashRaw)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("invalid uninvested_cash: %w", err)
	}
	return total, cash, nil
}

// LogSchedulerRun records a scheduler trigger outcome.
func (r *Repository) LogSchedulerRun(at time.Time, status string, runErr error) error {
	var errMsg *string
	if runErr != nil {
		msg := runErr.Error()
		if len(msg) > 500 {
			msg = msg[:500]
		}
		errMsg = &msg
	}

	_, err := r.db.Exec(`INSERT INTO scheduler_logs (run_date, status, error) VALUES (?, ?, ?)`,
		at.UTC().Format(time.RFC3339), status, errMsg)
	if err != nil {
		return fmt.Errorf("failed to log scheduler run: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanRun(row rowScanner) (*Run, error) {
	var run Run
	var runDate, createdAt, total, cash, residual string

	err := row.Scan(&run.ID, &runDate, (*string)(&run.Trigger), (*string)(&run.Status),
		&total, &cash, &residual, &createdAt)
	if err != nil {
		return nil, err
	}

	if run.RunDate, err = time.Parse(time.RFC3339, runDate); err != nil {
		return nil, fmt.Errorf("invalid run_date: %w", err)
	}
	if run.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}
	if run.TotalCapital, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("invalid total_capital: %w", err)
	}
	if run.UninvestedCash, err = decimal.NewFromString(cash); err != nil {
		return nil, fmt.Errorf("invalid uninvested_cash: %w", err)
	}
	if run.ResidualCash, err = decimal.NewFromString(residual); err != nil {
		return nil, fmt.Errorf("invalid residual_cash: %w", err)
	}
	return &run, nil
}

func (r *Repository) allocations(runID string) ([]AllocationRecord, error) {
	rows, err := r.db.Query(`
		SELECT symbol, name, percentage, target_amount
		FROM run_allocations WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	var records []AllocationRecord
	for rows.Next() {
		var rec AllocationRecord
		var pct, amount string
		if err := rows.Scan(&rec.Symbol, &rec.Name, &pct, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		if rec.Percentage, err = decimal.NewFromString(pct); err != nil {
			return nil, fmt.Errorf("invalid percentage: %w", err)
		}
		if rec.TargetAmount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid target_amount: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *Repository) cashflowMoves(runID string) ([]domain.CashflowMove, error) {
	rows, err := r.db.Query(`
		SELECT symbol, action, shares, value, order_index
		FROM cashflow_moves WHERE run_id = ? ORDER BY order_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cashflow moves: %w", err)
	}
	defer rows.Close()

	var moves []domain.CashflowMove
	for rows.Next() {
		var move domain.CashflowMove
		var value string
		if err := rows.Scan(&move.Symbol, (*string)(&move.Action), &move.Shares, &value, &move.OrderIndex); err != nil {
			return nil, fmt.Errorf("failed to scan cashflow move: %w", err)
		}
		if move.Value, err = decimal.NewFromString(value); err != nil {
			return nil, fmt.Errorf("invalid move value: %w", err)
		}
		moves = append(moves, move)
	}
	return moves, rows.Err()
}

func (r *Repository) swapMoves(runID string) ([]domain.SwapMove, error) {
	rows, err := r.db.Query(`
		SELECT from_symbol, to_symbol, shares_from, shares_to, value, order_index
		FROM swap_moves WHERE run_id = ? ORDER BY order_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query swap moves: %w", err)
	}
	defer rows.Close()

	var moves []domain.SwapMove
	for rows.Next() {
		var move domain.SwapMove
		var value string
		if err := rows.Scan(&move.FromSymbol, &move.ToSymbol, &move.SharesFrom, &move.SharesTo, &value, &move.OrderIndex); err != nil {
			return nil, fmt.Errorf("failed to scan swap move: %w", err)
		}
		if move.Value, err = decimal.NewFromString(value); err != nil {
			return nil, fmt.Errorf("invalid move value: %w", err)
		}
		moves = append(moves, move)
	}
	return moves, rows.Err()
}
