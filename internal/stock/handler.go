package stock

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/drishti-pos/drishti-pos/internal/shared"
)

// Handler wires HTTP endpoints for stock queries and manual adjustments.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs stock handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/stock", h.handleList)
	r.Get("/stock/{product}", h.handleGet)
	r.Post("/stock/adjustments", h.handleAdjust)
}

type levelResponse struct {
	ProductID  string `json:"product_id"`
	BranchCode string `json:"branch_code"`
	Quantity   int64  `json:"quantity"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	branch := r.URL.Query().Get("branch")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	levels, err := h.service.ListLevels(r.Context(), branch, limit, offset)
	if err != nil {
		h.logger.Error("list stock", slog.String("branch", branch), slog.Any("error", err))
		shared.WriteError(w, err)
		return
	}
	out := make([]levelResponse, 0, len(levels))
	for _, lvl := range levels {
		out = append(out, levelResponse{ProductID: lvl.ProductID, BranchCode: lvl.BranchCode, Quantity: lvl.Quantity})
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	product := chi.URLParam(r, "product")
	branch := r.URL.Query().Get("branch")

	lvl, err := h.service.GetLevel(r.Context(), product, branch)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, levelResponse{ProductID: lvl.ProductID, BranchCode: lvl.BranchCode, Quantity: lvl.Quantity})
}

type adjustRequest struct {
	ProductID  string `json:"product_id" validate:"required,max=64"`
	BranchCode string `json:"branch_code" validate:"required,max=10"`
	Change     int64  `json:"change" validate:"required"`
	Note       string `json:"note" validate:"max=500"`
}

func (h *Handler) handleAdjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, shared.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.WriteError(w, shared.ErrValidation)
		return
	}

	input := AdjustmentInput{
		ProductID:  req.ProductID,
		BranchCode: req.BranchCode,
		Change:     req.Change,
		Note:       req.Note,
	}
	if term := shared.TerminalFromContext(r.Context()); term != nil {
		input.TerminalID = term.ID
	}

	lvl, err := h.service.Adjust(r.Context(), input)
	if err != nil {
		h.logger.Warn("stock adjustment failed", slog.String("product", req.ProductID), slog.Any("error", err))
		if errors.Is(err, ErrStockInsufficient) || errors.Is(err, ErrInvalidQuantity) {
			shared.WriteJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, levelResponse{ProductID: lvl.ProductID, BranchCode: lvl.BranchCode, Quantity: lvl.Quantity})
}
