package sequence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/drishti-pos/drishti-pos/internal/db"
)

// Kind selects which branch sequence an identifier is drawn from.
type Kind string

const (
	// KindWorkOrder numbers custom fabrication jobs.
	KindWorkOrder Kind = "WO"
	// KindSalesOrder numbers immediate retail sales.
	KindSalesOrder Kind = "SO"
)

// OrderNumber is one assigned identifier. Numbers are never reused, even
// when the order they were assigned to is later voided.
type OrderNumber struct {
	Kind       Kind
	BranchCode string
	FiscalYear string
	Value      int64
}

// Display renders the public identifier. Work orders carry the branch and
// fiscal year; sales orders use the bare numeric segment.
func (n OrderNumber) Display() string {
	if n.Kind == KindWorkOrder {
		return fmt.Sprintf("%s(%s)-%d-%s", n.Kind, n.BranchCode, n.Value, n.FiscalYear)
	}
	return strconv.FormatInt(n.Value, 10)
}

// ValuePort abstracts the sequence storage for tests.
type ValuePort interface {
	NextValue(ctx context.Context, q db.DBTX, branchCode string, kind Kind, fiscalYear string) (int64, error)
}

// Sequencer assigns branch-scoped, strictly increasing order numbers.
type Sequencer struct {
	repo ValuePort
	now  func() time.Time
}

// NewSequencer constructs Sequencer.
func NewSequencer(repo ValuePort) *Sequencer {
	return &Sequencer{repo: repo, now: time.Now}
}

// PerennialYear is the storage key used instead of a fiscal-year label for
// counters that must run continuously across fiscal years.
const PerennialYear = "ALL"

// Next draws the next identifier for (branch, kind) within the caller's
// transaction, so an aborted settlement does not burn visible gaps beyond
// the rolled-back increment.
//
// Work-order counters are keyed by fiscal year; the year is part of the
// displayed number, so restarting at 1 each April cannot collide. Sales
// numbers display as a bare numeric segment, so their counter is keyed
// perennially and never resets.
func (s *Sequencer) Next(ctx context.Context, q db.DBTX, branchCode string, kind Kind) (OrderNumber, error) {
	if branchCode == "" {
		return OrderNumber{}, fmt.Errorf("sequence: branch code required")
	}
	fy := FiscalYearLabel(s.now())
	yearKey := fy
	if kind == KindSalesOrder {
		yearKey = PerennialYear
	}
	value, err := s.repo.NextValue(ctx, q, branchCode, kind, yearKey)
	if err != nil {
		return OrderNumber{}, fmt.Errorf("next %s number for %s: %w", kind, branchCode, err)
	}
	return OrderNumber{Kind: kind, BranchCode: branchCode, FiscalYear: fy, Value: value}, nil
}
