package catalog

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/drishti-pos/drishti-pos/internal/shared"
)

// Handler wires read endpoints for products and branches.
type Handler struct {
	logger *slog.Logger
	repo   *Repository
}

// NewHandler constructs catalog handler.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products", h.handleListProducts)
	r.Get("/products/{id}", h.handleGetProduct)
	r.Get("/branches", h.handleListBranches)
}

type productResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	MRP      string `json:"mrp"`
	HSNCode  string `json:"hsn_code"`
}

func toProductResponse(p *Product) productResponse {
	return productResponse{
		ID:       p.ID,
		Name:     p.Name,
		Category: p.Category,
		MRP:      p.MRP.StringFixed(2),
		HSNCode:  p.HSNCode,
	}
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	products, err := h.repo.ListProducts(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		shared.WriteError(w, err)
		return
	}
	out := make([]productResponse, 0, len(products))
	for i := range products {
		out = append(out, toProductResponse(&products[i]))
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.repo.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toProductResponse(p))
}

type branchResponse struct {
	Code  string  `json:"code"`
	Name  string  `json:"name"`
	City  string  `json:"city"`
	Phone *string `json:"phone,omitempty"`
}

func (h *Handler) handleListBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.repo.ListBranches(r.Context())
	if err != nil {
		h.logger.Error("list branches", slog.Any("error", err))
		shared.WriteError(w, err)
		return
	}
	out := make([]branchResponse, 0, len(branches))
	for _, b := range branches {
		out = append(out, branchResponse{Code: b.Code, Name: b.Name, City: b.City, Phone: b.Phone})
	}
	shared.WriteJSON(w, http.StatusOK, out)
}
