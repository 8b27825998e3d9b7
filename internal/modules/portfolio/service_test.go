package portfolio

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momentor/internal/domain"
)

type fakeQuotes struct {
	prices domain.PriceMap
	err    error
}

func (f *fakeQuotes) GetQuotes(symbols []string) (domain.PriceMap, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.prices, nil
}

type fakeCapital struct {
	total      decimal.Decimal
	uninvested decimal.Decimal
}

func (f *fakeCapital) Capital(runID string) (decimal.Decimal, decimal.Decimal, error) {
	return f.total, f.uninvested, nil
}

func TestNextCapital_NoCompletedRun(t *testing.T) {
	repo := NewPositionRepository(setupTestDB(t), zerolog.Nop())
	svc := NewService(repo, &fakeQuotes{}, &fakeCapital{}, zerolog.Nop())

	total, uninvested, err := svc.NextCapital()
	require.NoError(t, err)
	assert.True(t, total.IsZero())
	assert.True(t, uninvested.IsZero())
}

func TestNextCapital_LivePrices(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPositionRepository(db, zerolog.Nop())
	insertRun(t, db, "run-1", time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC))

	positions := []domain.Position{
		{Symbol: "AAPL", Shares: 10, AvgPrice: decimal.RequireFromString("230"), Value: decimal.RequireFromString("2300")},
	}
	require.NoError(t, repo.Confirm("run-1", positions, decimal.RequireFromString("100"), time.Now().UTC()))

	quotes := &fakeQuotes{prices: domain.PriceMap{"AAPL": decimal.RequireFromString("250")}}
	svc := NewService(repo, quotes, &fakeCapital{}, zerolog.Nop())

	total, uninvested, err := svc.NextCapital()
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("2600")), "total was %s", total)
	assert.True(t, uninvested.Equal(decimal.RequireFromString("100")))
}

func TestNextCapital_QuoteFailureUsesStoredValues(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPositionRepository(db, zerolog.Nop())
	insertRun(t, db, "run-1", time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC))

	positions := []domain.Position{
		{Symbol: "AAPL", Shares: 10, AvgPrice: decimal.RequireFromString("230"), Value: decimal.RequireFromString("2300")},
	}
	require.NoError(t, repo.Confirm("run-1", positions, decimal.Zero, time.Now().UTC()))

	svc := NewService(repo, &fakeQuotes{err: errors.New("upstream down")}, &fakeCapital{}, zerolog.Nop())

	total, _, err := svc.NextCapital()
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("2300")), "total was %s", total)
}

func TestNextCapital_NothingConfirmedFallsBackToRunCapital(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPositionRepository(db, zerolog.Nop())
	insertRun(t, db, "run-1", time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC))

	// Completed but with no positions and no cash recorded: the cash row
	// is removed so the run's theoretical capital is the only source left.
	require.NoError(t, repo.Confirm("run-1", nil, decimal.Zero, time.Now().UTC()))
	_, err := db.Exec(`DELETE FROM cash WHERE run_id = 'run-1'`)
	require.NoError(t, err)

	capital := &fakeCapital{
		total:      decimal.RequireFromString("10000"),
		uninvested: decimal.RequireFromString("40"),
	}
	svc := NewService(repo, &fakeQuotes{}, capital, zerolog.Nop())

	total, uninvested, err := svc.NextCapital()
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("10000")))
	assert.True(t, uninvested.Equal(decimal.RequireFromString("40")))
}

func TestCurrentValuation_PnL(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPositionRepository(db, zerolog.Nop())
	insertRun(t, db, "run-1", time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC))

	positions := []domain.Position{
		{Symbol: "AAPL", Shares: 10, AvgPrice: decimal.RequireFromString("200"), Value: decimal.RequireFromString("2000")},
	}
	require.NoError(t, repo.Confirm("run-1", positions, decimal.RequireFromString("50"), time.Now().UTC()))

	quotes := &fakeQuotes{prices: domain.PriceMap{"AAPL": decimal.RequireFromString("220")}}
	svc := NewService(repo, quotes, &fakeCapital{}, zerolog.Nop())

	valuation, err := svc.CurrentValuation()
	require.NoError(t, err)
	require.True(t, valuation.HasPortfolio)
	require.Len(t, valuation.Positions, 1)

	pos := valuation.Positions[0]
	assert.True(t, pos.CurrentValue.Equal(decimal.RequireFromString("2200")))
	assert.True(t, pos.PnL.Equal(decimal.RequireFromString("200")))
	assert.True(t, pos.PnLPercent.Equal(decimal.RequireFromString("10")), "pnl pct was %s", pos.PnLPercent)

	assert.True(t, valuation.TotalValue.Equal(decimal.RequireFromString("2250")))
	assert.True(t, valuation.TotalPnL.Equal(decimal.RequireFromString("200")))
}

func TestCurrentValuation_NoPortfolio(t *testing.T) {
	repo := NewPositionRepository(setupTestDB(t), zerolog.Nop())
	svc := NewService(repo, &fakeQuotes{}, &fakeCapital{}, zerolog.Nop())

	valuation, err := svc.CurrentValuation()
	require.NoError(t, err)
	assert.False(t, valuation.HasPortfolio)
}
