package loyalty

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/drishti-pos/drishti-pos/internal/shared"
)

// Handler wires HTTP endpoints for privilege cards.
type Handler struct {
	logger   *slog.Logger
	repo     *Repository
	cache    *PointsCache
	validate *validator.Validate
}

// NewHandler constructs loyalty handler.
func NewHandler(logger *slog.Logger, repo *Repository, cache *PointsCache) *Handler {
	return &Handler{logger: logger, repo: repo, cache: cache, validate: validator.New()}
}

// MountRoutes registers privilege card routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/privilege-cards/{card}", h.handleGet)
	r.Get("/privilege-cards/{card}/points", h.handlePoints)
	r.Post("/privilege-cards", h.handleCreate)
}

type accountResponse struct {
	CardNumber    string  `json:"card_number"`
	CustomerName  string  `json:"customer_name"`
	Phone         *string `json:"phone,omitempty"`
	BranchCode    string  `json:"branch_code"`
	CurrentPoints int64   `json:"current_points"`
	IsActive      bool    `json:"is_active"`
}

func toAccountResponse(acc *Account) accountResponse {
	return accountResponse{
		CardNumber:    acc.CardNumber,
		CustomerName:  acc.CustomerName,
		Phone:         acc.Phone,
		BranchCode:    acc.BranchCode,
		CurrentPoints: acc.CurrentPoints,
		IsActive:      acc.IsActive,
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	card := chi.URLParam(r, "card")
	acc, err := h.repo.GetByCard(r.Context(), card)
	if err != nil {
		h.logger.Warn("get privilege card", slog.String("card", card), slog.Any("error", err))
		shared.WriteError(w, err)
		return
	}
	h.cache.Set(r.Context(), acc.CardNumber, acc.CurrentPoints)
	shared.WriteJSON(w, http.StatusOK, toAccountResponse(acc))
}

type pointsResponse struct {
	CardNumber string `json:"card_number"`
	Points     int64  `json:"points"`
}

// handlePoints serves the balance shown while a card is being keyed in.
// Served from redis when warm; misses fall through to postgres.
func (h *Handler) handlePoints(w http.ResponseWriter, r *http.Request) {
	card := chi.URLParam(r, "card")
	if points, ok := h.cache.Get(r.Context(), card); ok {
		shared.WriteJSON(w, http.StatusOK, pointsResponse{CardNumber: card, Points: points})
		return
	}
	acc, err := h.repo.GetByCard(r.Context(), card)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	h.cache.Set(r.Context(), acc.CardNumber, acc.CurrentPoints)
	shared.WriteJSON(w, http.StatusOK, pointsResponse{CardNumber: acc.CardNumber, Points: acc.CurrentPoints})
}

type createAccountRequest struct {
	CardNumber    string  `json:"card_number" validate:"required,max=32"`
	CustomerName  string  `json:"customer_name" validate:"required,max=200"`
	Phone         *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	BranchCode    string  `json:"branch_code" validate:"required,max=10"`
	OpeningPoints int64   `json:"opening_points" validate:"gte=0"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, shared.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.WriteError(w, shared.ErrValidation)
		return
	}

	acc, err := h.repo.Create(r.Context(), Account{
		CardNumber:    req.CardNumber,
		CustomerName:  req.CustomerName,
		Phone:         req.Phone,
		BranchCode:    req.BranchCode,
		CurrentPoints: req.OpeningPoints,
	})
	if err != nil {
		h.logger.Error("create privilege card", slog.Any("error", err))
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toAccountResponse(acc))
}
