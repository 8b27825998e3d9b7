// Package handlers provides HTTP handlers for run generation and inspection.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"momentor/internal/domain"
	"momentor/internal/modules/runs"
)

// Handler handles run HTTP requests.
type Handler struct {
	service *runs.Service
	repo    *runs.Repository
	log     zerolog.Logger
}

// NewHandler creates a new runs handler.
func NewHandler(service *runs.Service, repo *runs.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		repo:    repo,
		log:     log.With().Str("handler", "runs").Logger(),
	}
}

// RegisterRoutes registers run routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/runs", func(r chi.Router) {
		r.Get("/", h.HandleListRuns)
		r.Post("/", h.HandleGenerateRun)
		r.Get("/{id}", h.HandleGetRun)
	})
}

type generateRequest struct {
	// Capital overrides the derived capital. Required for the first run.
	Capital *string `json:"capital,omitempty"`
	// Test marks the run as a dry exercise rather than a manual rebalance.
	Test bool `json:"test,omitempty"`
}

// HandleGenerateRun triggers a new run.
// POST /api/runs
func (h *Handler) HandleGenerateRun(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var manualCapital *decimal.Decimal
	if req.Capital != nil {
		capital, err := decimal.NewFromString(*req.Capital)
		if err != nil || capital.LessThanOrEqual(decimal.Zero) {
			h.writeError(w, http.StatusBadRequest, "capital must be a positive decimal string")
			return
		}
		manualCapital = &capital
	}

	trigger := runs.TriggerManual
	if req.Test {
		trigger = runs.TriggerTest
	}

	detail, err := h.service.Generate(trigger, manualCapital, time.Now().UTC())
	if err != nil {
		h.writeGenerateError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, detail)
}

// writeGenerateError maps generation failures to HTTP statuses. Expected
// strategy outcomes (bearish regime, nothing scorable) are client-visible
// conditions, not server faults.
func (h *Handler) writeGenerateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, runs.ErrRunInProgress):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNoCapital):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrMarketConditionNotMet),
		errors.Is(err, domain.ErrNoEligibleSymbols),
		errors.Is(err, domain.ErrNoScorableSymbols),
		errors.Is(err, domain.ErrEmptyUniverse):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.Error().Err(err).Msg("Run generation failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// HandleListRuns returns recent runs, newest first.
// GET /api/runs?limit=20
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			h.writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	list, err := h.repo.List(limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, list)
}

// HandleGetRun returns one run with its allocations and both move plans.
// GET /api/runs/{id}
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	detail, err := h.repo.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if detail == nil {
		h.writeError(w, http.StatusNotFound, "run not found")
		return
	}

	h.writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
