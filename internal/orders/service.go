package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/drishti-pos/drishti-pos/internal/catalog"
	"github.com/drishti-pos/drishti-pos/internal/db"
	"github.com/drishti-pos/drishti-pos/internal/loyalty"
	"github.com/drishti-pos/drishti-pos/internal/pricing"
	"github.com/drishti-pos/drishti-pos/internal/sequence"
	"github.com/drishti-pos/drishti-pos/internal/shared"
	"github.com/drishti-pos/drishti-pos/internal/stock"
)

// TxRunner opens the transaction every settlement's external writes share.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(context.Context, db.DBTX) error) error
}

// Repository persists orders and their lines.
type Repository interface {
	Insert(ctx context.Context, q db.DBTX, o *Order) (int64, error)
	InsertLines(ctx context.Context, q db.DBTX, orderID int64, lines []OrderLine) error
	DeleteLines(ctx context.Context, q db.DBTX, orderID int64) error
	UpdateSettlement(ctx context.Context, q db.DBTX, o *Order) error
	UpdateStatus(ctx context.Context, q db.DBTX, id int64, status Status) error
	GetForUpdate(ctx context.Context, q db.DBTX, id int64) (*Order, error)
	Get(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error)
}

// CatalogPort verifies branches and resolves cart lines against the catalog.
type CatalogPort interface {
	GetBranch(ctx context.Context, code string) (*catalog.Branch, error)
	GetProducts(ctx context.Context, ids []string) (map[string]*catalog.Product, error)
}

// LoyaltyPort reads and writes privilege card balances.
type LoyaltyPort interface {
	GetByCard(ctx context.Context, card string) (*loyalty.Account, error)
	GetForUpdate(ctx context.Context, q db.DBTX, card string) (*loyalty.Account, error)
	UpdatePoints(ctx context.Context, q db.DBTX, id int64, newBalance int64) error
}

// StockPort applies reconciled deltas inside the settlement transaction.
type StockPort interface {
	Apply(ctx context.Context, q db.DBTX, branchCode string, deltas []stock.Delta) error
}

// SequencePort assigns order numbers.
type SequencePort interface {
	Next(ctx context.Context, q db.DBTX, branchCode string, kind sequence.Kind) (sequence.OrderNumber, error)
}

// IdempotencyPort guards against double submission.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// AuditPort records completed settlements.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CachePort invalidates cached card balances after commit.
type CachePort interface {
	Invalidate(ctx context.Context, card string)
}

// MetricsPort counts settled orders.
type MetricsPort interface {
	CountSettlement(branch, kind string)
}

// Service runs the settlement flow: price the cart, settle loyalty, move
// stock, assign the order number and persist — all inside one transaction,
// retried as a whole when a concurrent writer wins.
type Service struct {
	logger      *slog.Logger
	repo        Repository
	catalog     CatalogPort
	loyalty     LoyaltyPort
	stock       StockPort
	seq         SequencePort
	tx          TxRunner
	idempotency IdempotencyPort
	audit       AuditPort
	cache       CachePort
	metrics     MetricsPort
	retry       shared.RetryConfig
}

// ServiceParams groups the service dependencies.
type ServiceParams struct {
	Logger      *slog.Logger
	Repo        Repository
	Catalog     CatalogPort
	Loyalty     LoyaltyPort
	Stock       StockPort
	Sequence    SequencePort
	Tx          TxRunner
	Idempotency IdempotencyPort
	Audit       AuditPort
	Cache       CachePort
	Metrics     MetricsPort
}

// NewService constructs the settlement service.
func NewService(p ServiceParams) *Service {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:      logger,
		repo:        p.Repo,
		catalog:     p.Catalog,
		loyalty:     p.Loyalty,
		stock:       p.Stock,
		seq:         p.Sequence,
		tx:          p.Tx,
		idempotency: p.Idempotency,
		audit:       p.Audit,
		cache:       p.Cache,
		metrics:     p.Metrics,
		retry:       shared.DefaultRetry,
	}
}

// settlementSession is the short-lived working state of one attempt. It is
// rebuilt from scratch on every retry so each attempt re-reads the world.
type settlementSession struct {
	kind         Kind
	branch       string
	pricingLines []pricing.Line
	stockLines   []stock.Line
	orderLines   []OrderLine
	advance      decimal.Decimal
	discount     decimal.Decimal
	redeem       decimal.Decimal
	account      *loyalty.Account // pre-transaction snapshot
	result       pricing.Result
	settlement   loyalty.Settlement
}

// Create settles a new order.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest, terminalID int64) (*Order, error) {
	kind := Kind(req.Kind)
	if kind != KindWork && kind != KindSales {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
	}

	advance, err := parseAmount("advance_paid", req.AdvancePaid)
	if err != nil {
		return nil, err
	}
	discount, err := parseAmount("discount_amount", req.DiscountAmount)
	if err != nil {
		return nil, err
	}
	redeem, err := parseAmount("redeem_points", req.RedeemPoints)
	if err != nil {
		return nil, err
	}

	if redeem.IsPositive() && req.LoyaltyCard == nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrValidation, loyalty.ErrAccountRequired)
	}
	if kind == KindWork && (req.LoyaltyCard != nil || redeem.IsPositive()) {
		return nil, fmt.Errorf("%w: privilege cards settle on sales orders only", shared.ErrValidation)
	}

	if _, err := s.catalog.GetBranch(ctx, req.BranchCode); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown branch %s", shared.ErrValidation, req.BranchCode)
		}
		return nil, fmt.Errorf("verify branch: %w", err)
	}

	sess := &settlementSession{
		kind:     kind,
		branch:   req.BranchCode,
		advance:  advance,
		discount: discount,
		redeem:   redeem,
	}
	if err := s.resolveLines(ctx, req.Lines, sess); err != nil {
		return nil, err
	}

	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, req.SubmissionKey, "orders"); err != nil {
			return nil, err
		}
	}

	var orderID int64
	err = shared.WithRetry(ctx, s.retry, func(ctx context.Context) error {
		id, attemptErr := s.attemptCreate(ctx, req, sess, terminalID)
		if attemptErr != nil {
			return attemptErr
		}
		orderID = id
		return nil
	})
	if err != nil {
		if s.idempotency != nil {
			_ = s.idempotency.Delete(ctx, req.SubmissionKey)
		}
		return nil, err
	}

	if req.LoyaltyCard != nil && s.cache != nil {
		s.cache.Invalidate(ctx, *req.LoyaltyCard)
	}
	if s.metrics != nil {
		s.metrics.CountSettlement(req.BranchCode, string(kind))
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			TerminalID: terminalID,
			Action:     fmt.Sprintf("orders:create:%s", kind),
			Entity:     "order",
			EntityID:   fmt.Sprintf("%d", orderID),
			Meta: map[string]any{
				"branch":       req.BranchCode,
				"final_amount": sess.result.FinalAmount.StringFixed(2),
				"lines":        len(req.Lines),
			},
		})
	}
	return s.repo.Get(ctx, orderID)
}

// resolveLines checks every cart line against the catalog and builds the
// session's pricing, stock and persistence views of the cart.
func (s *Service) resolveLines(ctx context.Context, lines []CreateOrderLineReq, sess *settlementSession) error {
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: quantity for %s must be positive", shared.ErrValidation, line.ProductID)
		}
		ids = append(ids, line.ProductID)
	}
	products, err := s.catalog.GetProducts(ctx, ids)
	if err != nil {
		return fmt.Errorf("resolve products: %w", err)
	}

	sess.pricingLines = sess.pricingLines[:0]
	sess.stockLines = sess.stockLines[:0]
	sess.orderLines = sess.orderLines[:0]
	for i, line := range lines {
		p, ok := products[line.ProductID]
		if !ok {
			return fmt.Errorf("%w: %s (%w)", shared.ErrValidation, line.ProductID, ErrUnknownProduct)
		}
		if !p.IsActive {
			return fmt.Errorf("%w: product %s is inactive", shared.ErrValidation, line.ProductID)
		}
		sess.pricingLines = append(sess.pricingLines, pricing.Line{
			ProductID: p.ID,
			UnitPrice: p.MRP,
			Quantity:  line.Quantity,
			HSNCode:   p.HSNCode,
		})
		sess.stockLines = append(sess.stockLines, stock.Line{ProductID: p.ID, Quantity: line.Quantity})
		sess.orderLines = append(sess.orderLines, OrderLine{
			ProductID:   p.ID,
			ProductName: p.Name,
			HSNCode:     p.HSNCode,
			UnitPrice:   p.MRP,
			Quantity:    line.Quantity,
			LineOrder:   i + 1,
		})
	}
	return nil
}

// attemptCreate runs one full settlement attempt. Everything that writes
// happens inside the transaction; a conflict anywhere rolls the whole
// attempt back and the retry loop re-reads from scratch.
func (s *Service) attemptCreate(ctx context.Context, req CreateOrderRequest, sess *settlementSession, terminalID int64) (int64, error) {
	sess.account = nil
	if req.LoyaltyCard != nil {
		acc, err := s.loyalty.GetByCard(ctx, *req.LoyaltyCard)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return 0, fmt.Errorf("%w: unknown privilege card", shared.ErrValidation)
			}
			return 0, fmt.Errorf("read privilege card: %w", err)
		}
		if !acc.IsActive {
			return 0, fmt.Errorf("%w: %s", shared.ErrValidation, loyalty.ErrAccountInactive)
		}
		sess.account = acc
	}

	in := pricing.Input{
		Lines:           sess.pricingLines,
		AdvancePaid:     sess.advance,
		DiscountAmount:  sess.discount,
		RedeemRequested: sess.redeem,
	}
	if sess.account != nil {
		in.LoyaltyAttached = true
		in.LoyaltyPoints = sess.account.CurrentPoints
	}
	result, err := pricing.Compute(in)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", shared.ErrValidation, err)
	}
	sess.result = result

	var orderID int64
	err = s.tx.WithTx(ctx, func(ctx context.Context, q db.DBTX) error {
		sess.settlement = loyalty.Settlement{}
		if sess.account != nil {
			locked, err := s.loyalty.GetForUpdate(ctx, q, sess.account.CardNumber)
			if err != nil {
				return fmt.Errorf("lock privilege card: %w", err)
			}
			// Another terminal settled against this card between our read
			// and the lock; the pricing cap may be stale. Start over.
			if locked.CurrentPoints != sess.account.CurrentPoints {
				return fmt.Errorf("privilege card moved: %w", shared.ErrConflict)
			}
			// The points actually spent are the privilege discount the
			// calculator let through, not the raw request.
			sess.settlement = loyalty.Settle(result.AdjustedSubtotal, result.PrivilegeDiscount, locked)
			if err := s.loyalty.UpdatePoints(ctx, q, locked.ID, sess.settlement.NewPointBalance); err != nil {
				return fmt.Errorf("update privilege points: %w", err)
			}
		}

		number, err := s.seq.Next(ctx, q, sess.branch, sess.kind.SequenceKind())
		if err != nil {
			return err
		}

		deltas := stock.Reconcile(nil, sess.stockLines)
		if err := s.stock.Apply(ctx, q, sess.branch, deltas); err != nil {
			return err
		}

		status := StatusCompleted
		if sess.kind == KindWork {
			status = StatusDraft
		}
		order := &Order{
			Ref:               uuid.New(),
			Number:            number.Display(),
			Kind:              sess.kind,
			Status:            status,
			BranchCode:        sess.branch,
			CustomerName:      req.CustomerName,
			CustomerPhone:     req.CustomerPhone,
			LoyaltyCard:       req.LoyaltyCard,
			AdjustedSubtotal:  result.AdjustedSubtotal,
			AdvancePaid:       sess.advance,
			DiscountAmount:    sess.discount,
			DiscountApplied:   result.DiscountApplied,
			PrivilegeDiscount: result.PrivilegeDiscount,
			CGST:              result.CGST,
			SGST:              result.SGST,
			FinalAmount:       result.FinalAmount,
			PointsRedeemed:    sess.settlement.PointsRedeemed,
			PointsAccrued:     sess.settlement.PointsAccrued,
			DueDate:           req.DueDate,
			Notes:             req.Notes,
			TerminalID:        terminalID,
		}
		id, err := s.repo.Insert(ctx, q, order)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		if err := s.repo.InsertLines(ctx, q, id, sess.orderLines); err != nil {
			return fmt.Errorf("insert order lines: %w", err)
		}
		orderID = id
		return nil
	})
	if err != nil {
		return 0, shared.MapStoreError(err)
	}
	return orderID, nil
}

// Update edits the lines of a draft work order, reconciling stock against
// the original snapshot. Sales orders settle once and cannot be edited.
func (s *Service) Update(ctx context.Context, id int64, req UpdateOrderRequest) (*Order, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if existing.Kind != KindWork || existing.Status != StatusDraft {
		return nil, fmt.Errorf("%w: only draft work orders can be edited", ErrInvalidStatus)
	}

	discount := existing.DiscountAmount
	if req.DiscountAmount != nil {
		discount, err = parseAmount("discount_amount", *req.DiscountAmount)
		if err != nil {
			return nil, err
		}
	}

	sess := &settlementSession{
		kind:     existing.Kind,
		branch:   existing.BranchCode,
		advance:  existing.AdvancePaid,
		discount: discount,
	}
	lineReqs := make([]CreateOrderLineReq, 0)
	if req.Lines != nil {
		lineReqs = *req.Lines
	} else {
		for _, line := range existing.Lines {
			lineReqs = append(lineReqs, CreateOrderLineReq{ProductID: line.ProductID, Quantity: line.Quantity})
		}
	}
	if err := s.resolveLines(ctx, lineReqs, sess); err != nil {
		return nil, err
	}

	result, err := pricing.Compute(pricing.Input{
		Lines:          sess.pricingLines,
		AdvancePaid:    sess.advance,
		DiscountAmount: sess.discount,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrValidation, err)
	}

	err = shared.WithRetry(ctx, s.retry, func(ctx context.Context) error {
		txErr := s.tx.WithTx(ctx, func(ctx context.Context, q db.DBTX) error {
			locked, err := s.repo.GetForUpdate(ctx, q, id)
			if err != nil {
				return err
			}
			if locked.Status != StatusDraft {
				return fmt.Errorf("%w: order is no longer a draft", ErrInvalidStatus)
			}

			original := make([]stock.Line, 0, len(locked.Lines))
			for _, line := range locked.Lines {
				original = append(original, stock.Line{ProductID: line.ProductID, Quantity: line.Quantity})
			}
			deltas := stock.Reconcile(original, sess.stockLines)
			if err := s.stock.Apply(ctx, q, locked.BranchCode, deltas); err != nil {
				return err
			}

			if err := s.repo.DeleteLines(ctx, q, id); err != nil {
				return err
			}
			if err := s.repo.InsertLines(ctx, q, id, sess.orderLines); err != nil {
				return err
			}

			updated := *locked
			updated.DiscountAmount = sess.discount
			updated.AdjustedSubtotal = result.AdjustedSubtotal
			updated.DiscountApplied = result.DiscountApplied
			updated.PrivilegeDiscount = result.PrivilegeDiscount
			updated.CGST = result.CGST
			updated.SGST = result.SGST
			updated.FinalAmount = result.FinalAmount
			if req.DueDate != nil {
				updated.DueDate = req.DueDate
			}
			if req.Notes != nil {
				updated.Notes = req.Notes
			}
			return s.repo.UpdateSettlement(ctx, q, &updated)
		})
		return shared.MapStoreError(txErr)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Complete collects the balance on a draft work order.
func (s *Service) Complete(ctx context.Context, id int64) (*Order, error) {
	err := s.tx.WithTx(ctx, func(ctx context.Context, q db.DBTX) error {
		locked, err := s.repo.GetForUpdate(ctx, q, id)
		if err != nil {
			return err
		}
		if locked.Status != StatusDraft {
			return fmt.Errorf("%w: only draft orders can be completed", ErrInvalidStatus)
		}
		return s.repo.UpdateStatus(ctx, q, id, StatusCompleted)
	})
	if err != nil {
		return nil, shared.MapStoreError(err)
	}
	return s.repo.Get(ctx, id)
}

// Cancel voids an order and returns its items to inventory. The assigned
// number stays burned. Loyalty points already settled are left untouched;
// the shops reconcile those by hand.
func (s *Service) Cancel(ctx context.Context, id int64) (*Order, error) {
	err := shared.WithRetry(ctx, s.retry, func(ctx context.Context) error {
		txErr := s.tx.WithTx(ctx, func(ctx context.Context, q db.DBTX) error {
			locked, err := s.repo.GetForUpdate(ctx, q, id)
			if err != nil {
				return err
			}
			if locked.Status == StatusCancelled {
				return fmt.Errorf("%w: order is already cancelled", ErrInvalidStatus)
			}

			sold := make([]stock.Line, 0, len(locked.Lines))
			for _, line := range locked.Lines {
				sold = append(sold, stock.Line{ProductID: line.ProductID, Quantity: line.Quantity})
			}
			deltas := stock.Reconcile(sold, nil)
			if err := s.stock.Apply(ctx, q, locked.BranchCode, deltas); err != nil {
				return err
			}
			return s.repo.UpdateStatus(ctx, q, id, StatusCancelled)
		})
		return shared.MapStoreError(txErr)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Get fetches one order with lines.
func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.repo.Get(ctx, id)
}

// List lists branch orders.
func (s *Service) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	if req.BranchCode == "" {
		return nil, 0, fmt.Errorf("%w: branch required", shared.ErrValidation)
	}
	return s.repo.List(ctx, req)
}
