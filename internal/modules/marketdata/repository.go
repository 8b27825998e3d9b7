// Package marketdata provides cached access to quotes and daily history.
package marketdata

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"

	"momentor/internal/domain"
)

// CacheRepository persists last-good prices and history series in the cache
// database. Everything here is ephemeral and safe to delete.
type CacheRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewCacheRepository creates a new cache repository.
func NewCacheRepository(db *sql.DB, log zerolog.Logger) *CacheRepository {
	return &CacheRepository{
		db:  db,
		log: log.With().Str("repo", "marketdata_cache").Logger(),
	}
}

// SavePrice stores the last known good price for a symbol.
func (r *CacheRepository) SavePrice(symbol string, price decimal.Decimal, at time.Time) error {
	_, err := r.db.Exec(`
		INSERT INTO price_cache (symbol, price, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (symbol) DO UPDATE SET price = excluded.price, updated_at = excluded.updated_at`,
		symbol, price.String(), at.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save cached price for %s: %w", symbol, err)
	}
	return nil
}

// GetPrice returns the last known good price for a symbol, or ok=false when
// none is cached.
func (r *CacheRepository) GetPrice(symbol string) (decimal.Decimal, bool) {
	var raw string
	err := r.db.QueryRow(`SELECT price FROM price_cache WHERE symbol = ?`, symbol).Scan(&raw)
	if err != nil {
		return decimal.Zero, false
	}

	price, err := decimal.NewFromString(raw)
	if err != nil {
		r.log.Warn().Err(err).Str("symbol", symbol).Msg("Corrupt cached price, ignoring")
		return decimal.Zero, false
	}
	return price, true
}

// SaveHistory stores a candle series as a msgpack blob under the given key.
func (r *CacheRepository) SaveHistory(key string, candles []domain.Candle, at time.Time) error {
	payload, err := msgpack.Marshal(candles)
	if err != nil {
		return fmt.Errorf("failed to encode history for %s: %w", key, err)
	}

	_, err = r.db.Exec(`
		INSERT INTO history_cache (cache_key, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		key, payload, at.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save cached history for %s: %w", key, err)
	}
	return nil
}

// GetHistory returns a cached candle series no older than maxAge, or
// ok=false on miss, expiry or decode failure.
func (r *CacheRepository) GetHistory(key string, maxAge time.Duration, now time.Time) ([]domain.Candle, bool) {
	var payload []byte
	var updatedAt string
	err := r.db.QueryRow(`SELECT payload, updated_at FROM history_cache WHERE cache_key = ?`, key).
		Scan(&payload, &updatedAt)
	if err != nil {
		return nil, false
	}

	stored, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil || now.Sub(stored) > maxAge {
		return nil, false
	}

	var candles []domain.Candle
	if err := msgpack.Unmarshal(payload, &candles); err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("Corrupt cached history, ignoring")
		return nil, false
	}
	return candles, true
}
