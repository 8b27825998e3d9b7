// Package portfolio tracks confirmed holdings and values them.
package portfolio

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"momentor/internal/domain"
)

// PositionRepository handles confirmed position and cash persistence.
// Positions are recorded against the run they confirm; the engines only
// ever read them.
type PositionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPositionRepository creates a new position repository.
func NewPositionRepository(db *sql.DB, log zerolog.Logger) *PositionRepository {
	return &PositionRepository{
		db:  db,
		log: log.With().Str("repo", "position").Logger(),
	}
}

// GetForRun returns the confirmed positions for a run.
func (r *PositionRepository) GetForRun(runID string) ([]domain.Position, error) {
	rows, err := r.db.Query(`
		SELECT symbol, shares, avg_price, total_value
		FROM positions WHERE run_id = ? ORDER BY symbol`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		var pos domain.Position
		var avgPrice, value string
		if err := rows.Scan(&pos.Symbol, &pos.Shares, &avgPrice, &value); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		if pos.AvgPrice, err = decimal.NewFromString(avgPrice); err != nil {
			return nil, fmt.Errorf("invalid avg_price for %s: %w", pos.Symbol, err)
		}
		if pos.Value, err = decimal.NewFromString(value); err != nil {
			return nil, fmt.Errorf("invalid total_value for %s: %w", pos.Symbol, err)
		}
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

// GetCashForRun returns the confirmed uninvested cash for a run, or false
// when none was recorded.
func (r *PositionRepository) GetCashForRun(runID string) (decimal.Decimal, bool, error) {
	var raw string
	err := r.db.QueryRow(`SELECT amount FROM cash WHERE run_id = ?`, runID).Scan(&raw)
	if err == sql.ErrNoRows {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to query cash: %w", err)
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("invalid cash amount: %w", err)
	}
	return amount, true, nil
}

// Confirm records the user-confirmed positions and cash for a run and marks
// the run completed, atomically.
func (r *PositionRepository) Confirm(runID string, positions []domain.Position, cash decimal.Decimal, at time.Time) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	confirmedAt := at.UTC().Format(time.RFC3339)

	if _, err := tx.Exec(`DELETE FROM positions WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to clear positions: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM cash WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to clear cash: %w", err)
	}

	for _, pos := range positions {
		_, err := tx.Exec(`
			INSERT INTO positions (run_id, symbol, shares, avg_price, total_value, confirmed_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			runID, pos.Symbol, pos.Shares, pos.AvgPrice.String(), pos.Value.String(), confirmedAt)
		if err != nil {
			return fmt.Errorf("failed to insert position %s: %w", pos.Symbol, err)
		}
	}

	_, err = tx.Exec(`INSERT INTO cash (run_id, amount, confirmed_at) VALUES (?, ?, ?)`,
		runID, cash.String(), confirmedAt)
	if err != nil {
		return fmt.Errorf("failed to insert cash: %w", err)
	}

	result, err := tx.Exec(`UPDATE runs SET status = 'completed' WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check run update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s not found", runID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit confirmation: %w", err)
	}

	r.log.Info().Str("run_id", runID).Int("positions", len(positions)).Msg("Positions confirmed")
	return nil
}

// LastCompletedRunID returns the id of the most recent completed run, or
// false when no run has been completed yet.
func (r *PositionRepository) LastCompletedRunID() (string, bool, error) {
	var id string
	err := r.db.QueryRow(`
		SELECT id FROM runs WHERE status = 'completed'
		ORDER BY run_date DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query last completed run: %w", err)
	}
	return id, true, nil
}
