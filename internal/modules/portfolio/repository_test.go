package portfolio

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"momentor/internal/database"
	"momentor/internal/domain"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(database.Schema("momentor"))
	require.NoError(t, err)

	return db
}

func insertRun(t *testing.T, db *sql.DB, id string, runDate time.Time) {
	_, err := db.Exec(`
		INSERT INTO runs (id, run_date, trigger_type, status, total_capital, uninvested_cash, residual_cash, created_at)
		VALUES (?, ?, 'manual', 'pending', '10000', '0', '0', ?)`,
		id, runDate.UTC().Format(time.RFC3339), runDate.UTC().Format(time.RFC3339))
	require.NoError(t, err)
}

func TestPositionRepository_ConfirmAndGetForRun(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPositionRepository(db, zerolog.Nop())
	insertRun(t, db, "run-1", time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC))

	positions := []domain.Position{
		{Symbol: "MSFT", Shares: 4, AvgPrice: decimal.RequireFromString("418.20"), Value: decimal.RequireFromString("1672.80")},
		{Symbol: "AAPL", Shares: 10, AvgPrice: decimal.RequireFromString("230.15"), Value: decimal.RequireFromString("2301.50")},
	}
	cash := decimal.RequireFromString("25.70")
	require.NoError(t, repo.Confirm("run-1", positions, cash, time.Now().UTC()))

	got, err := repo.GetForRun("run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Positions come back ordered by symbol regardless of insert order.
	assert.Equal(t, "AAPL", got[0].Symbol)
	assert.Equal(t, int64(10), got[0].Shares)
	assert.True(t, got[0].AvgPrice.Equal(decimal.RequireFromString("230.15")))
	assert.True(t, got[0].Value.Equal(decimal.RequireFromString("2301.50")))
	assert.Equal(t, "MSFT", got[1].Symbol)

	gotCash, ok, err := repo.GetCashForRun("run-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, gotCash.Equal(cash))

	var status string
	require.NoError(t, db.QueryRow(`SELECT status FROM runs WHERE id = 'run-1'`).Scan(&status))
	assert.Equal(t, "completed", status)
}

func TestPositionRepository_ConfirmReplacesPrevious(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPositionRepository(db, zerolog.Nop())
	insertRun(t, db, "run-1", time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC))

	first := []domain.Position{
		{Symbol: "AAPL", Shares: 10, AvgPrice: decimal.RequireFromString("230"), Value: decimal.RequireFromString("2300")},
	}
	require.NoError(t, repo.Confirm("run-1", first, decimal.Zero, time.Now().UTC()))

	second := []domain.Position{
		{Symbol: "NVDA", Shares: 3, AvgPrice: decimal.RequireFromString("120"), Value: decimal.RequireFromString("360")},
	}
	require.NoError(t, repo.Confirm("run-1", second, decimal.RequireFromString("5"), time.Now().UTC()))

	got, err := repo.GetForRun("run-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "NVDA", got[0].Symbol)

	cash, ok, err := repo.GetCashForRun("run-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, cash.Equal(decimal.RequireFromString("5")))
}

func TestPositionRepository_ConfirmUnknownRun(t *testing.T) {
	repo := NewPositionRepository(setupTestDB(t), zerolog.Nop())

	err := repo.Confirm("ghost", nil, decimal.Zero, time.Now().UTC())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPositionRepository_GetCashForRunMissing(t *testing.T) {
	repo := NewPositionRepository(setupTestDB(t), zerolog.Nop())

	cash, ok, err := repo.GetCashForRun("run-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, cash.IsZero())
}

func TestPositionRepository_LastCompletedRunID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPositionRepository(db, zerolog.Nop())

	id, ok, err := repo.LastCompletedRunID()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, id)

	insertRun(t, db, "run-old", time.Date(2026, 7, 1, 11, 0, 0, 0, time.UTC))
	insertRun(t, db, "run-new", time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC))
	insertRun(t, db, "run-newest-pending", time.Date(2026, 8, 15, 11, 0, 0, 0, time.UTC))

	require.NoError(t, repo.Confirm("run-old", nil, decimal.Zero, time.Now().UTC()))
	require.NoError(t, repo.Confirm("run-new", nil, decimal.Zero, time.Now().UTC()))

	id, ok, err = repo.LastCompletedRunID()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "run-new", id)
}
