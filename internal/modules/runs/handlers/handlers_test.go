package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"momentor/internal/database"
	"momentor/internal/domain"
	"momentor/internal/modules/portfolio"
	"momentor/internal/modules/rebalancing"
	"momentor/internal/modules/runs"
)

type stubStrategy struct {
	allocations []domain.Allocation
	err         error
}

func (s *stubStrategy) GetAllocations(capital decimal.Decimal, runDate time.Time) ([]domain.Allocation, decimal.Decimal, error) {
	return s.allocations, decimal.Zero, s.err
}

type stubQuotes struct {
	prices domain.PriceMap
}

func (s *stubQuotes) GetQuotes(symbols []string) (domain.PriceMap, error) {
	return s.prices, nil
}

func newTestRouter(t *testing.T, strat *stubStrategy) *chi.Mux {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(database.Schema("momentor"))
	require.NoError(t, err)

	log := zerolog.Nop()
	repo := runs.NewRepository(db, log)
	positions := portfolio.NewPositionRepository(db, log)
	quotes := &stubQuotes{prices: domain.PriceMap{
		"VUSA.AS": decimal.RequireFromString("100"),
		"AAPL":    decimal.RequireFromString("200"),
	}}
	portfolioSvc := portfolio.NewService(positions, quotes, repo, log)
	service := runs.NewService(strat, portfolioSvc, positions, quotes, rebalancing.NewService(log), repo, log)

	r := chi.NewRouter()
	NewHandler(service, repo, log).RegisterRoutes(r)
	return r
}

func bullishStrategy() *stubStrategy {
	return &stubStrategy{allocations: []domain.Allocation{
		{Symbol: "VUSA.AS", Name: "Vanguard S&P 500 UCITS ETF", Percentage: decimal.RequireFromString("0.3")},
		{Symbol: "AAPL", Name: "Apple Inc.", Percentage: decimal.RequireFromString("0.7")},
	}}
}

func TestHandleGenerateRun(t *testing.T) {
	router := newTestRouter(t, bullishStrategy())

	req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(`{"capital":"10000"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var detail runs.Detail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, runs.TriggerManual, detail.Run.Trigger)
	assert.Len(t, detail.Allocations, 2)
	assert.NotEmpty(t, detail.CashflowMoves)
}

func TestHandleGenerateRun_TestTrigger(t *testing.T) {
	router := newTestRouter(t, bullishStrategy())

	req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(`{"capital":"10000","test":true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var detail runs.Detail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, runs.TriggerTest, detail.Run.Trigger)
}

func TestHandleGenerateRun_InvalidCapital(t *testing.T) {
	router := newTestRouter(t, bullishStrategy())

	for _, body := range []string{`{"capital":"-5"}`, `{"capital":"abc"}`, `{"capital":"0"}`} {
		req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)
	}
}

func TestHandleGenerateRun_NoCapital(t *testing.T) {
	router := newTestRouter(t, bullishStrategy())

	req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGenerateRun_BearishRegime(t *testing.T) {
	router := newTestRouter(t, &stubStrategy{err: domain.ErrMarketConditionNotMet})

	req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(`{"capital":"10000"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleListRuns(t *testing.T) {
	router := newTestRouter(t, bullishStrategy())

	req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(`{"capital":"10000"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var list []runs.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetRun_NotFound(t *testing.T) {
	router := newTestRouter(t, bullishStrategy())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/ghost", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
