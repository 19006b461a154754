package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/drishti-pos/drishti-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	GetLevel(ctx context.Context, productID, branchCode string) (Level, error)
	ListLevels(ctx context.Context, branchCode string, limit, offset int) ([]Level, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates stock mutations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// ApplyDeltas validates and applies a full order's deltas as one unit against
// the transaction behind ts. Validation runs across every delta before any
// quantity is written: either the whole order's stock movement is possible,
// or nothing is applied. A missing level row counts as zero stock.
func (s *Service) ApplyDeltas(ctx context.Context, ts TxStore, branchCode string, deltas []Delta) error {
	newQty := make([]int64, len(deltas))
	for i, d := range deltas {
		lvl, err := ts.GetLevelForUpdate(ctx, d.ProductID, branchCode)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		remaining := lvl.Quantity - d.Change
		if remaining < 0 {
			return fmt.Errorf("%w: product %s has %d, needs %d", ErrStockInsufficient, d.ProductID, lvl.Quantity, d.Change)
		}
		newQty[i] = remaining
	}
	for i, d := range deltas {
		if err := ts.SetQuantity(ctx, d.ProductID, branchCode, newQty[i]); err != nil {
			return err
		}
	}
	return nil
}

// Adjust posts a manual correction or inbound receipt in its own transaction.
func (s *Service) Adjust(ctx context.Context, input AdjustmentInput) (Level, error) {
	if input.ProductID == "" || input.BranchCode == "" {
		return Level{}, fmt.Errorf("%w: product and branch required", shared.ErrValidation)
	}
	if input.Change == 0 {
		return Level{}, ErrInvalidQuantity
	}

	var result Level
	err := s.repo.WithTx(ctx, func(ctx context.Context, ts TxStore) error {
		lvl, err := ts.GetLevelForUpdate(ctx, input.ProductID, input.BranchCode)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		qty := lvl.Quantity + input.Change
		if qty < 0 {
			return fmt.Errorf("%w: product %s has %d", ErrStockInsufficient, input.ProductID, lvl.Quantity)
		}
		if err := ts.SetQuantity(ctx, input.ProductID, input.BranchCode, qty); err != nil {
			return err
		}
		result = Level{ProductID: input.ProductID, BranchCode: input.BranchCode, Quantity: qty}
		return nil
	})
	if err != nil {
		return Level{}, shared.MapStoreError(err)
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			TerminalID: input.TerminalID,
			Action:     "stock:adjust",
			Entity:     "stock_level",
			EntityID:   fmt.Sprintf("%s:%s", input.BranchCode, input.ProductID),
			Meta: map[string]any{
				"change": input.Change,
				"note":   input.Note,
			},
		})
	}
	return result, nil
}

// GetLevel returns the current quantity for one product at a branch.
func (s *Service) GetLevel(ctx context.Context, productID, branchCode string) (Level, error) {
	if productID == "" || branchCode == "" {
		return Level{}, fmt.Errorf("%w: product and branch required", shared.ErrValidation)
	}
	return s.repo.GetLevel(ctx, productID, branchCode)
}

// ListLevels lists branch stock.
func (s *Service) ListLevels(ctx context.Context, branchCode string, limit, offset int) ([]Level, error) {
	if branchCode == "" {
		return nil, fmt.Errorf("%w: branch required", shared.ErrValidation)
	}
	return s.repo.ListLevels(ctx, branchCode, limit, offset)
}
