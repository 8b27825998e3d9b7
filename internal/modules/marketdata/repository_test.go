package marketdata

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

func setupCacheDB(t *testing.T) *CacheRepository {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(database.Schema("cache"))
	require.NoError(t, err)

	return NewCacheRepository(db, zerolog.Nop())
}

func TestCacheRepository_PriceRoundTrip(t *testing.T) {
	repo := setupCacheDB(t)
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	_, ok := repo.GetPrice("AAPL")
	assert.False(t, ok)

	require.NoError(t, repo.SavePrice("AAPL", decimal.RequireFromString("230.15"), now))

	price, ok := repo.GetPrice("AAPL")
	require.True(t, ok)
	assert.True(t, price.Equal(decimal.RequireFromString("230.15")))

	// Upsert replaces the stored price.
	require.NoError(t, repo.SavePrice("AAPL", decimal.RequireFromString("231.40"), now.Add(time.Minute)))

	price, ok = repo.GetPrice("AAPL")
	require.True(t, ok)
	assert.True(t, price.Equal(decimal.RequireFromString("231.40")))
}

func TestCacheRepository_HistoryRoundTrip(t *testing.T) {
	repo := setupCacheDB(t)
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	candles := []domain.Candle{
		{Date: time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), Open: 100, High: 102, Low: 99, Close: 101, Volume: 1_000_000},
		{Date: time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), Open: 101, High: 104, Low: 100, Close: 103, Volume: 900_000},
	}
	require.NoError(t, repo.SaveHistory("AAPL|2025-08-30|2026-08-30", candles, now))

	got, ok := repo.GetHistory("AAPL|2025-08-30|2026-08-30", time.Hour, now.Add(30*time.Minute))
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, 101.0, got[0].Close)
	assert.True(t, got[1].Date.Equal(candles[1].Date))
}

func TestCacheRepository_HistoryExpiry(t *testing.T) {
	repo := setupCacheDB(t)
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	candles := []domain.Candle{{Date: now, Open: 1, High: 1, Low: 1, Close: 1, Volume: 1}}
	require.NoError(t, repo.SaveHistory("key", candles, now))

	_, ok := repo.GetHistory("key", time.Hour, now.Add(2*time.Hour))
	assert.False(t, ok)

	_, ok = repo.GetHistory("missing", time.Hour, now)
	assert.False(t, ok)
}
