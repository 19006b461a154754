package stock

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/drishti-pos/drishti-pos/internal/shared"
)

type memoryStore struct {
	levels map[string]int64
	writes int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{levels: make(map[string]int64)}
}

func levelKey(productID, branchCode string) string {
	return fmt.Sprintf("%s:%s", branchCode, productID)
}

func (m *memoryStore) GetLevelForUpdate(ctx context.Context, productID, branchCode string) (Level, error) {
	qty, ok := m.levels[levelKey(productID, branchCode)]
	if !ok {
		return Level{ProductID: productID, BranchCode: branchCode}, shared.ErrNotFound
	}
	return Level{ProductID: productID, BranchCode: branchCode, Quantity: qty}, nil
}

func (m *memoryStore) SetQuantity(ctx context.Context, productID, branchCode string, qty int64) error {
	m.levels[levelKey(productID, branchCode)] = qty
	m.writes++
	return nil
}

func (m *memoryStore) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return fn(ctx, m)
}

func (m *memoryStore) GetLevel(ctx context.Context, productID, branchCode string) (Level, error) {
	return m.GetLevelForUpdate(ctx, productID, branchCode)
}

func (m *memoryStore) ListLevels(ctx context.Context, branchCode string, limit, offset int) ([]Level, error) {
	var out []Level
	for key, qty := range m.levels {
		out = append(out, Level{ProductID: key, BranchCode: branchCode, Quantity: qty})
	}
	return out, nil
}

func TestApplyDeltasMovesStock(t *testing.T) {
	store := newMemoryStore()
	store.levels[levelKey("A", "NTA")] = 5
	store.levels[levelKey("B", "NTA")] = 2
	svc := NewService(store, nil)

	err := svc.ApplyDeltas(context.Background(), store, "NTA", []Delta{
		{ProductID: "A", Change: -2},
		{ProductID: "B", Change: 2},
	})
	require.NoError(t, err)
	require.Equal(t, int64(7), store.levels[levelKey("A", "NTA")])
	require.Equal(t, int64(0), store.levels[levelKey("B", "NTA")])
}

func TestApplyDeltasAllOrNothing(t *testing.T) {
	store := newMemoryStore()
	store.levels[levelKey("A", "NTA")] = 5
	svc := NewService(store, nil)

	err := svc.ApplyDeltas(context.Background(), store, "NTA", []Delta{
		{ProductID: "A", Change: 3},
		{ProductID: "B", Change: 1}, // no stock row: zero on hand
	})
	require.ErrorIs(t, err, ErrStockInsufficient)
	require.Zero(t, store.writes, "no quantity may be written when any delta fails validation")
	require.Equal(t, int64(5), store.levels[levelKey("A", "NTA")])
}

func TestApplyDeltasZeroStockLineRejected(t *testing.T) {
	store := newMemoryStore()
	store.levels[levelKey("A", "NTA")] = 0
	svc := NewService(store, nil)

	err := svc.ApplyDeltas(context.Background(), store, "NTA", []Delta{{ProductID: "A", Change: 1}})
	require.ErrorIs(t, err, ErrStockInsufficient)
}

func TestAdjustInboundCreatesLevel(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, nil)

	lvl, err := svc.Adjust(context.Background(), AdjustmentInput{ProductID: "FR-9", BranchCode: "KLM", Change: 10, Note: "GRN"})
	require.NoError(t, err)
	require.Equal(t, int64(10), lvl.Quantity)
}

func TestAdjustRejectsNegativeResult(t *testing.T) {
	store := newMemoryStore()
	store.levels[levelKey("FR-9", "KLM")] = 3
	svc := NewService(store, nil)

	_, err := svc.Adjust(context.Background(), AdjustmentInput{ProductID: "FR-9", BranchCode: "KLM", Change: -4})
	require.ErrorIs(t, err, ErrStockInsufficient)
}

func TestAdjustRejectsZeroChange(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, nil)

	_, err := svc.Adjust(context.Background(), AdjustmentInput{ProductID: "FR-9", BranchCode: "KLM", Change: 0})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}
