package orders

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/drishti-pos/drishti-pos/internal/shared"
	"github.com/drishti-pos/drishti-pos/internal/stock"
)

// Handler wires HTTP endpoints for orders.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	receipts *ReceiptPrinter
	validate *validator.Validate
}

// NewHandler constructs orders handler.
func NewHandler(logger *slog.Logger, service *Service, receipts *ReceiptPrinter) *Handler {
	return &Handler{logger: logger, service: service, receipts: receipts, validate: validator.New()}
}

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/orders", h.handleCreate)
	r.Get("/orders", h.handleList)
	r.Get("/orders/{id}", h.handleGet)
	r.Patch("/orders/{id}", h.handleUpdate)
	r.Post("/orders/{id}/complete", h.handleComplete)
	r.Post("/orders/{id}/cancel", h.handleCancel)
	r.Get("/orders/{id}/receipt", h.handleReceipt)
}

type orderLineResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	HSNCode     string `json:"hsn_code"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int64  `json:"quantity"`
}

type orderResponse struct {
	ID                int64               `json:"id"`
	Ref               string              `json:"ref"`
	Number            string              `json:"number"`
	Kind              Kind                `json:"kind"`
	Status            Status              `json:"status"`
	BranchCode        string              `json:"branch_code"`
	CustomerName      string              `json:"customer_name"`
	CustomerPhone     *string             `json:"customer_phone,omitempty"`
	LoyaltyCard       *string             `json:"loyalty_card,omitempty"`
	AdjustedSubtotal  string              `json:"adjusted_subtotal"`
	AdvancePaid       string              `json:"advance_paid"`
	DiscountApplied   string              `json:"discount_applied"`
	PrivilegeDiscount string              `json:"privilege_discount"`
	CGST              string              `json:"cgst"`
	SGST              string              `json:"sgst"`
	FinalAmount       string              `json:"final_amount"`
	PointsRedeemed    int64               `json:"points_redeemed"`
	PointsAccrued     int64               `json:"points_accrued"`
	DueDate           *time.Time          `json:"due_date,omitempty"`
	Notes             *string             `json:"notes,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	Lines             []orderLineResponse `json:"lines,omitempty"`
}

func toOrderResponse(o *Order) orderResponse {
	out := orderResponse{
		ID:                o.ID,
		Ref:               o.Ref.String(),
		Number:            o.Number,
		Kind:              o.Kind,
		Status:            o.Status,
		BranchCode:        o.BranchCode,
		CustomerName:      o.CustomerName,
		CustomerPhone:     o.CustomerPhone,
		LoyaltyCard:       o.LoyaltyCard,
		AdjustedSubtotal:  o.AdjustedSubtotal.StringFixed(2),
		AdvancePaid:       o.AdvancePaid.StringFixed(2),
		DiscountApplied:   o.DiscountApplied.StringFixed(2),
		PrivilegeDiscount: o.PrivilegeDiscount.StringFixed(2),
		CGST:              o.CGST.StringFixed(2),
		SGST:              o.SGST.StringFixed(2),
		FinalAmount:       o.FinalAmount.StringFixed(2),
		PointsRedeemed:    o.PointsRedeemed,
		PointsAccrued:     o.PointsAccrued,
		DueDate:           o.DueDate,
		Notes:             o.Notes,
		CreatedAt:         o.CreatedAt,
	}
	for _, line := range o.Lines {
		out.Lines = append(out.Lines, orderLineResponse{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			HSNCode:     line.HSNCode,
			UnitPrice:   line.UnitPrice.StringFixed(2),
			Quantity:    line.Quantity,
		})
	}
	return out
}

// writeOrderError folds order lifecycle and stock errors into the shared taxonomy.
func writeOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, stock.ErrStockInsufficient):
		shared.WriteJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrUnknownKind):
		shared.WriteJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		shared.WriteError(w, err)
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, shared.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.WriteError(w, shared.ErrValidation)
		return
	}

	term := shared.TerminalFromContext(r.Context())
	var terminalID int64
	if term != nil {
		terminalID = term.ID
	}

	order, err := h.service.Create(r.Context(), req, terminalID)
	if err != nil {
		h.logger.Warn("create order",
			slog.String("branch", req.BranchCode),
			slog.String("kind", req.Kind),
			slog.Any("error", err))
		writeOrderError(w, err)
		return
	}
	h.logger.Info("order settled",
		slog.String("number", order.Number),
		slog.String("branch", order.BranchCode),
		slog.String("final_amount", order.FinalAmount.StringFixed(2)))
	shared.WriteJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page <= 0 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("per_page"))
	if limit <= 0 {
		limit = 50
	}

	req := ListOrdersRequest{
		BranchCode: q.Get("branch"),
		Limit:      limit,
		Offset:     (page - 1) * limit,
	}
	if v := q.Get("kind"); v != "" {
		kind := Kind(v)
		req.Kind = &kind
	}
	if v := q.Get("status"); v != "" {
		status := Status(v)
		req.Status = &status
	}

	orders, total, err := h.service.List(r.Context(), req)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	items := make([]orderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, toOrderResponse(&orders[i]))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"items":      items,
		"pagination": shared.NewPagination(page, limit, total),
	})
}

func (h *Handler) orderID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ErrValidation
	}
	return id, nil
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := h.orderID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := h.orderID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req UpdateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, shared.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.WriteError(w, shared.ErrValidation)
		return
	}

	order, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.logger.Warn("update order", slog.Int64("id", id), slog.Any("error", err))
		writeOrderError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	id, err := h.orderID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	order, err := h.service.Complete(r.Context(), id)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := h.orderID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	order, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		h.logger.Warn("cancel order", slog.Int64("id", id), slog.Any("error", err))
		writeOrderError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) handleReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := h.orderID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(h.receipts.Render(order)))
}
