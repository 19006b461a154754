package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/drishti-pos/drishti-pos/internal/catalog"
	"github.com/drishti-pos/drishti-pos/internal/loyalty"
	"github.com/drishti-pos/drishti-pos/internal/stock"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskIdempotencyCleanup reclaims processed submission keys past retention.
	TaskIdempotencyCleanup = "idempotency:cleanup"
	// TaskLoyaltyCacheWarmup pre-loads card balances into redis before opening.
	TaskLoyaltyCacheWarmup = "loyalty:cache_warmup"
	// TaskLowStockScan flags products running low at any branch.
	TaskLowStockScan = "stock:low_scan"
)

// KeyCleaner reclaims processed submission keys past their retention.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// CardLister enumerates active privilege cards for warmup.
type CardLister interface {
	ListActive(ctx context.Context) ([]loyalty.Account, error)
}

// BalanceCache holds card point balances.
type BalanceCache interface {
	Set(ctx context.Context, cardNumber string, points int64)
}

// BranchLister enumerates the branches to scan.
type BranchLister interface {
	ListBranches(ctx context.Context) ([]catalog.Branch, error)
}

// LevelLister pages through a branch's stock levels.
type LevelLister interface {
	ListLevels(ctx context.Context, branchCode string, limit, offset int) ([]stock.Level, error)
}

// Tasks bundles the dependencies the background handlers need.
type Tasks struct {
	Logger      *slog.Logger
	Idempotency KeyCleaner
	Loyalty     CardLister
	Cache       BalanceCache
	Catalog     BranchLister
	Stock       LevelLister

	IdempotencyTTL time.Duration
	LowStockFloor  int64
}

type cleanupPayload struct {
	TTLSeconds int64 `json:"ttl_seconds"`
}

// NewIdempotencyCleanupTask constructs the cleanup task with its retention.
func NewIdempotencyCleanupTask(ttl time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(cleanupPayload{TTLSeconds: int64(ttl.Seconds())})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}

// HandleIdempotencyCleanup drops submission keys older than the retention
// window; by then the till has long since given up retrying.
func (t *Tasks) HandleIdempotencyCleanup(ctx context.Context, task *asynq.Task) error {
	var payload cleanupPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	ttl := time.Duration(payload.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = t.IdempotencyTTL
	}
	if err := t.Idempotency.Cleanup(ctx, ttl); err != nil {
		t.Logger.Error("idempotency cleanup", slog.Any("error", err))
		return err
	}
	t.Logger.Info("idempotency cleanup done", slog.Duration("ttl", ttl))
	return nil
}

// HandleLoyaltyCacheWarmup loads every active card balance into redis so the
// first lookups of the day do not all fall through to postgres.
func (t *Tasks) HandleLoyaltyCacheWarmup(ctx context.Context, _ *asynq.Task) error {
	accounts, err := t.Loyalty.ListActive(ctx)
	if err != nil {
		t.Logger.Error("loyalty warmup list", slog.Any("error", err))
		return err
	}
	for _, acc := range accounts {
		t.Cache.Set(ctx, acc.CardNumber, acc.CurrentPoints)
	}
	t.Logger.Info("loyalty cache warmed", slog.Int("accounts", len(accounts)))
	return nil
}

// lowStockPageSize bounds one levels query; the scan walks every page so a
// branch carrying more SKUs than one page is still covered end to end.
const lowStockPageSize = 200

// HandleLowStockScan logs every branch/product pair at or below the floor.
// Branches are scanned concurrently; one slow branch should not stall the rest.
func (t *Tasks) HandleLowStockScan(ctx context.Context, _ *asynq.Task) error {
	floor := t.LowStockFloor
	if floor <= 0 {
		floor = 2
	}
	branches, err := t.Catalog.ListBranches(ctx)
	if err != nil {
		return err
	}

	var flagged atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, b := range branches {
		branch := b
		g.Go(func() error {
			for offset := 0; ; offset += lowStockPageSize {
				levels, err := t.Stock.ListLevels(gctx, branch.Code, lowStockPageSize, offset)
				if err != nil {
					return fmt.Errorf("scan branch %s: %w", branch.Code, err)
				}
				for _, lvl := range levels {
					if lvl.Quantity <= floor {
						flagged.Add(1)
						t.Logger.Warn("low stock",
							slog.String("branch", branch.Code),
							slog.String("product", lvl.ProductID),
							slog.Int64("quantity", lvl.Quantity))
					}
				}
				if len(levels) < lowStockPageSize {
					return nil
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	t.Logger.Info("low stock scan done", slog.Int64("flagged", flagged.Load()))
	return nil
}
