package runs

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

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func sampleDetail(id string, runDate time.Time) *Detail {
	return &Detail{
		Run: Run{
			ID:             id,
			RunDate:        runDate,
			Trigger:        TriggerManual,
			Status:         StatusPending,
			TotalCapital:   decimal.RequireFromString("10000"),
			UninvestedCash: decimal.Zero,
			ResidualCash:   decimal.RequireFromString("12.50"),
			CreatedAt:      runDate,
		},
		Allocations: []AllocationRecord{
			{Symbol: "VUSA.AS", Name: "Anchor", Percentage: decimal.RequireFromString("0.3"), TargetAmount: decimal.RequireFromString("3000")},
			{Symbol: "AAPL", Name: "Apple Inc.", Percentage: decimal.RequireFromString("0.175"), TargetAmount: decimal.RequireFromString("1750")},
		},
		CashflowMoves: []domain.CashflowMove{
			{Symbol: "OLD", Action: domain.ActionSell, Shares: 10, Value: decimal.RequireFromString("600"), OrderIndex: 1},
			{Symbol: "AAPL", Action: domain.ActionBuy, Shares: 8, Value: decimal.RequireFromString("1744"), OrderIndex: 2},
		},
		SwapMoves: []domain.SwapMove{
			{FromSymbol: strPtr("OLD"), ToSymbol: strPtr("AAPL"), SharesFrom: int64Ptr(10), SharesTo: int64Ptr(8), Value: decimal.RequireFromString("600"), OrderIndex: 1},
		},
	}
}

func TestRepository_CreateAndGet(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	runDate := time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(sampleDetail("run-1", runDate)))

	detail, err := repo.Get("run-1")
	require.NoError(t, err)
	require.NotNil(t, detail)

	assert.Equal(t, "run-1", detail.Run.ID)
	assert.Equal(t, TriggerManual, detail.Run.Trigger)
	assert.Equal(t, StatusPending, detail.Run.Status)
	assert.True(t, detail.Run.RunDate.Equal(runDate))
	assert.True(t, detail.Run.TotalCapital.Equal(decimal.RequireFromString("10000")))
	assert.True(t, detail.Run.ResidualCash.Equal(decimal.RequireFromString("12.50")))

	require.Len(t, detail.Allocations, 2)
	assert.Equal(t, "VUSA.AS", detail.Allocations[0].Symbol)
	assert.True(t, detail.Allocations[0].Percentage.Equal(decimal.RequireFromString("0.3")))

	require.Len(t, detail.CashflowMoves, 2)
	assert.Equal(t, domain.ActionSell, detail.CashflowMoves[0].Action)
	assert.Equal(t, 1, detail.CashflowMoves[0].OrderIndex)
	assert.Equal(t, 2, detail.CashflowMoves[1].OrderIndex)

	require.Len(t, detail.SwapMoves, 1)
	require.NotNil(t, detail.SwapMoves[0].FromSymbol)
	assert.Equal(t, "OLD", *detail.SwapMoves[0].FromSymbol)
	require.NotNil(t, detail.SwapMoves[0].SharesTo)
	assert.Equal(t, int64(8), *detail.SwapMoves[0].SharesTo)
}

func TestRepository_GetMissing(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	detail, err := repo.Get("does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, detail)
}

func TestRepository_ListNewestFirst(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	older := time.Date(2026, 7, 1, 11, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(sampleDetail("run-old", older)))
	require.NoError(t, repo.Create(sampleDetail("run-new", newer)))

	list, err := repo.List(10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "run-new", list[0].ID)
	assert.Equal(t, "run-old", list[1].ID)

	limited, err := repo.List(1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "run-new", limited[0].ID)
}

func TestRepository_Capital(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	runDate := time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(sampleDetail("run-1", runDate)))

	total, cash, err := repo.Capital("run-1")
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("10000")))
	assert.True(t, cash.IsZero())
}

func TestRepository_InvalidTriggerRejected(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	detail := sampleDetail("run-1", time.Now().UTC())
	detail.Run.Trigger = TriggerType("cron")
	assert.Error(t, repo.Create(detail))
}

func TestRepository_LogSchedulerRun(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())

	require.NoError(t, repo.LogSchedulerRun(time.Now(), "success", nil))
	require.NoError(t, repo.LogSchedulerRun(time.Now(), "failure", assert.AnError))

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM scheduler_logs`).Scan(&count))
	assert.Equal(t, 2, count)

	var errMsg sql.NullString
	require.NoError(t, db.QueryRow(`SELECT error FROM scheduler_logs WHERE status = 'failure'`).Scan(&errMsg))
	assert.True(t, errMsg.Valid)
	assert.Equal(t, assert.AnError.Error(), errMsg.String)
}
