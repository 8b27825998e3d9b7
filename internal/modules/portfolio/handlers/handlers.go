// Package handlers provides HTTP handlers for portfolio state.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"momentor/internal/domain"
	"momentor/internal/modules/portfolio"
	"momentor/internal/modules/runs"
)

// Handler handles portfolio HTTP requests.
type Handler struct {
	service      *portfolio.Service
	positionRepo *portfolio.PositionRepository
	runRepo      *runs.Repository
	log          zerolog.Logger
}

// NewHandler creates a new portfolio handler.
func NewHandler(
	service *portfolio.Service,
	positionRepo *portfolio.PositionRepository,
	runRepo *runs.Repository,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service:      service,
		positionRepo: positionRepo,
		runRepo:      runRepo,
		log:          log.With().Str("handler", "portfolio").Logger(),
	}
}

// RegisterRoutes registers portfolio routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/", h.HandleGetValuation)
		r.Get("/capital", h.HandleGetCapital)
		r.Post("/positions", h.HandleConfirmPositions)
	})
}

// HandleGetValuation returns the live valuation of the confirmed portfolio.
// GET /api/portfolio
func (h *Handler) HandleGetValuation(w http.ResponseWriter, r *http.Request) {
	valuation, err := h.service.CurrentValuation()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, valuation)
}

// HandleGetCapital returns the capital the next run would start from.
// GET /api/portfolio/capital
func (h *Handler) HandleGetCapital(w http.ResponseWriter, r *http.Request) {
	total, uninvested, err := h.service.NextCapital()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"total_capital":   total.String(),
		"uninvested_cash": uninvested.String(),
	})
}

type confirmPositionRequest struct {
	Symbol   string `json:"symbol"`
	Shares   int64  `json:"shares"`
	AvgPrice string `json:"avg_price"`
}

type confirmRequest struct {
	RunID     string                   `json:"run_id"`
	Positions []confirmPositionRequest `json:"positions"`
	Cash      string                   `json:"cash"`
}

// HandleConfirmPositions records what was actually executed after a run:
// the held positions and the leftover cash. Completing the run this way
// makes it the capital basis for the next one.
// POST /api/portfolio/positions
func (h *Handler) HandleConfirmPositions(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RunID == "" {
		h.writeError(w, http.StatusBadRequest, "run_id is required")
		return
	}

	detail, err := h.runRepo.Get(req.RunID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if detail == nil {
		h.writeError(w, http.StatusNotFound, "run not found")
		return
	}

	cash := decimal.Zero
	if req.Cash != "" {
		parsed, err := decimal.NewFromString(req.Cash)
		if err != nil || parsed.IsNegative() {
			h.writeError(w, http.StatusBadRequest, "cash must be a non-negative decimal string")
			return
		}
		cash = parsed
	}

	positions := make([]domain.Position, 0, len(req.Positions))
	for _, pos := range req.Positions {
		if pos.Symbol == "" || pos.Shares <= 0 {
			h.writeError(w, http.StatusBadRequest, "each position needs a symbol and positive shares")
			return
		}
		avgPrice, err := decimal.NewFromString(pos.AvgPrice)
		if err != nil || avgPrice.LessThanOrEqual(decimal.Zero) {
			h.writeError(w, http.StatusBadRequest, "avg_price must be a positive decimal string")
			return
		}
		positions = append(positions, domain.Position{
			Symbol:   pos.Symbol,
			Shares:   pos.Shares,
			AvgPrice: avgPrice,
			Value:    avgPrice.Mul(decimal.NewFromInt(pos.Shares)),
		})
	}

	if err := h.positionRepo.Confirm(req.RunID, positions, cash, time.Now().UTC()); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.log.Info().
		Str("run_id", req.RunID).
		Int("positions", len(positions)).
		Str("cash", cash.String()).
		Msg("Positions confirmed")

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
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
