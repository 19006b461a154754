package sequence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/drishti-pos/drishti-pos/internal/db"
)

type memoryValues struct {
	counters map[string]int64
}

func newMemoryValues() *memoryValues {
	return &memoryValues{counters: make(map[string]int64)}
}

func (m *memoryValues) NextValue(ctx context.Context, _ db.DBTX, branchCode string, kind Kind, fiscalYear string) (int64, error) {
	key := fmt.Sprintf("%s:%s:%s", branchCode, kind, fiscalYear)
	m.counters[key]++
	return m.counters[key], nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNextIsStrictlyIncreasingPerBranch(t *testing.T) {
	seq := NewSequencer(newMemoryValues())
	ctx := context.Background()

	var last int64
	for i := 0; i < 25; i++ {
		n, err := seq.Next(ctx, nil, "NTA", KindSalesOrder)
		require.NoError(t, err)
		require.Greater(t, n.Value, last)
		last = n.Value
	}
}

func TestNextIsIndependentPerBranchAndKind(t *testing.T) {
	seq := NewSequencer(newMemoryValues())
	ctx := context.Background()

	a, err := seq.Next(ctx, nil, "NTA", KindSalesOrder)
	require.NoError(t, err)
	b, err := seq.Next(ctx, nil, "KLM", KindSalesOrder)
	require.NoError(t, err)
	c, err := seq.Next(ctx, nil, "NTA", KindWorkOrder)
	require.NoError(t, err)

	require.Equal(t, int64(1), a.Value)
	require.Equal(t, int64(1), b.Value)
	require.Equal(t, int64(1), c.Value)
}

func TestNextContinuesExistingSequence(t *testing.T) {
	values := newMemoryValues()
	seq := NewSequencer(values)
	seq.now = fixedClock(time.Date(2025, time.September, 1, 10, 0, 0, 0, time.UTC))

	// Branch NTA already issued sales order 2570.
	values.counters["NTA:SO:"+PerennialYear] = 2570

	n, err := seq.Next(context.Background(), nil, "NTA", KindSalesOrder)
	require.NoError(t, err)
	require.Equal(t, int64(2571), n.Value)
	require.Equal(t, "2571", n.Display())
}

func TestSalesNumbersContinueAcrossFiscalYears(t *testing.T) {
	values := newMemoryValues()
	seq := NewSequencer(values)
	ctx := context.Background()

	values.counters["NTA:SO:"+PerennialYear] = 2570

	seq.now = fixedClock(time.Date(2026, time.March, 31, 22, 0, 0, 0, time.UTC))
	before, err := seq.Next(ctx, nil, "NTA", KindSalesOrder)
	require.NoError(t, err)
	require.Equal(t, "2571", before.Display())

	// First sale of the new fiscal year must not restart the counter:
	// a bare numeric display leaves no year to disambiguate a reissue.
	seq.now = fixedClock(time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC))
	after, err := seq.Next(ctx, nil, "NTA", KindSalesOrder)
	require.NoError(t, err)
	require.Equal(t, "2572", after.Display())
	require.Greater(t, after.Value, before.Value)
}

func TestWorkOrderCountersResetWithFiscalYear(t *testing.T) {
	values := newMemoryValues()
	seq := NewSequencer(values)
	ctx := context.Background()

	seq.now = fixedClock(time.Date(2026, time.March, 31, 22, 0, 0, 0, time.UTC))
	before, err := seq.Next(ctx, nil, "NTA", KindWorkOrder)
	require.NoError(t, err)
	require.Equal(t, "WO(NTA)-1-2025-26", before.Display())

	seq.now = fixedClock(time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC))
	after, err := seq.Next(ctx, nil, "NTA", KindWorkOrder)
	require.NoError(t, err)
	require.Equal(t, "WO(NTA)-1-2026-27", after.Display())
}

func TestWorkOrderDisplayFormat(t *testing.T) {
	seq := NewSequencer(newMemoryValues())
	seq.now = fixedClock(time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC))

	n, err := seq.Next(context.Background(), nil, "NTA", KindWorkOrder)
	require.NoError(t, err)
	require.Equal(t, "WO(NTA)-1-2025-26", n.Display())
}

func TestNextRequiresBranch(t *testing.T) {
	seq := NewSequencer(newMemoryValues())
	_, err := seq.Next(context.Background(), nil, "", KindSalesOrder)
	require.Error(t, err)
}

func TestFiscalYearLabel(t *testing.T) {
	cases := []struct {
		at   time.Time
		want string
	}{
		{time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), "2025-26"},
		{time.Date(2026, time.March, 31, 23, 59, 0, 0, time.UTC), "2025-26"},
		{time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC), "2026-27"},
		{time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC), "2024-25"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, FiscalYearLabel(tc.at), "at %s", tc.at)
	}
}
