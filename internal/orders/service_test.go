package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/drishti-pos/drishti-pos/internal/catalog"
	"github.com/drishti-pos/drishti-pos/internal/db"
	"github.com/drishti-pos/drishti-pos/internal/loyalty"
	"github.com/drishti-pos/drishti-pos/internal/sequence"
	"github.com/drishti-pos/drishti-pos/internal/shared"
	"github.com/drishti-pos/drishti-pos/internal/stock"
)

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(context.Context, db.DBTX) error) error {
	return fn(ctx, nil)
}

type memOrders struct {
	nextID int64
	orders map[int64]*Order
}

func newMemOrders() *memOrders {
	return &memOrders{orders: map[int64]*Order{}}
}

func (m *memOrders) Insert(_ context.Context, _ db.DBTX, o *Order) (int64, error) {
	m.nextID++
	cp := *o
	cp.ID = m.nextID
	cp.CreatedAt = time.Now()
	m.orders[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memOrders) InsertLines(_ context.Context, _ db.DBTX, orderID int64, lines []OrderLine) error {
	o, ok := m.orders[orderID]
	if !ok {
		return shared.ErrNotFound
	}
	o.Lines = append([]OrderLine(nil), lines...)
	return nil
}

func (m *memOrders) DeleteLines(_ context.Context, _ db.DBTX, orderID int64) error {
	o, ok := m.orders[orderID]
	if !ok {
		return shared.ErrNotFound
	}
	o.Lines = nil
	return nil
}

func (m *memOrders) UpdateSettlement(_ context.Context, _ db.DBTX, o *Order) error {
	stored, ok := m.orders[o.ID]
	if !ok {
		return shared.ErrNotFound
	}
	lines := stored.Lines
	cp := *o
	cp.Lines = lines
	m.orders[o.ID] = &cp
	return nil
}

func (m *memOrders) UpdateStatus(_ context.Context, _ db.DBTX, id int64, status Status) error {
	o, ok := m.orders[id]
	if !ok {
		return shared.ErrNotFound
	}
	o.Status = status
	return nil
}

func (m *memOrders) GetForUpdate(ctx context.Context, _ db.DBTX, id int64) (*Order, error) {
	return m.Get(ctx, id)
}

func (m *memOrders) Get(_ context.Context, id int64) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *o
	cp.Lines = append([]OrderLine(nil), o.Lines...)
	return &cp, nil
}

func (m *memOrders) List(_ context.Context, req ListOrdersRequest) ([]Order, int, error) {
	var out []Order
	for _, o := range m.orders {
		if o.BranchCode == req.BranchCode {
			out = append(out, *o)
		}
	}
	return out, len(out), nil
}

type fakeCatalog struct {
	branches map[string]*catalog.Branch
	products map[string]*catalog.Product
}

func (f *fakeCatalog) GetBranch(_ context.Context, code string) (*catalog.Branch, error) {
	b, ok := f.branches[code]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return b, nil
}

func (f *fakeCatalog) GetProducts(_ context.Context, ids []string) (map[string]*catalog.Product, error) {
	out := map[string]*catalog.Product{}
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type fakeLoyalty struct {
	account *loyalty.Account
	// driftOnce simulates another terminal settling between the snapshot
	// read and the row lock: the first lock sees a lower balance.
	driftOnce   int64
	lockCalls   int
	pointWrites []int64
}

func (f *fakeLoyalty) GetByCard(_ context.Context, card string) (*loyalty.Account, error) {
	if f.account == nil || f.account.CardNumber != card {
		return nil, shared.ErrNotFound
	}
	cp := *f.account
	return &cp, nil
}

func (f *fakeLoyalty) GetForUpdate(ctx context.Context, _ db.DBTX, card string) (*loyalty.Account, error) {
	f.lockCalls++
	if f.driftOnce != 0 {
		f.account.CurrentPoints -= f.driftOnce
		f.driftOnce = 0
	}
	return f.GetByCard(ctx, card)
}

func (f *fakeLoyalty) UpdatePoints(_ context.Context, _ db.DBTX, id int64, newBalance int64) error {
	if f.account == nil || f.account.ID != id {
		return shared.ErrNotFound
	}
	f.account.CurrentPoints = newBalance
	f.pointWrites = append(f.pointWrites, newBalance)
	return nil
}

type fakeStock struct {
	levels map[string]int64 // productID -> qty
}

func (f *fakeStock) Apply(_ context.Context, _ db.DBTX, _ string, deltas []stock.Delta) error {
	next := make(map[string]int64, len(deltas))
	for _, d := range deltas {
		remaining := f.levels[d.ProductID] - d.Change
		if remaining < 0 {
			return fmt.Errorf("%w: product %s", stock.ErrStockInsufficient, d.ProductID)
		}
		next[d.ProductID] = remaining
	}
	for id, qty := range next {
		f.levels[id] = qty
	}
	return nil
}

type fakeSeq struct {
	counters map[string]int64
}

func (f *fakeSeq) Next(_ context.Context, _ db.DBTX, branchCode string, kind sequence.Kind) (sequence.OrderNumber, error) {
	if f.counters == nil {
		f.counters = map[string]int64{}
	}
	key := branchCode + ":" + string(kind)
	f.counters[key]++
	return sequence.OrderNumber{
		Kind:       kind,
		BranchCode: branchCode,
		FiscalYear: "2025-26",
		Value:      f.counters[key],
	}, nil
}

type fixture struct {
	service *Service
	orders  *memOrders
	loyalty *fakeLoyalty
	stock   *fakeStock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mrp := decimal.RequireFromString("1120.00")
	orders := newMemOrders()
	loy := &fakeLoyalty{}
	stk := &fakeStock{levels: map[string]int64{"LENS-CR39": 10, "FRAME-TITAN": 5}}
	svc := NewService(ServiceParams{
		Repo: orders,
		Catalog: &fakeCatalog{
			branches: map[string]*catalog.Branch{
				"NTA": {Code: "NTA", Name: "Nashik Main", City: "Nashik", IsActive: true},
			},
			products: map[string]*catalog.Product{
				"LENS-CR39":   {ID: "LENS-CR39", Name: "CR-39 Lens Pair", MRP: mrp, HSNCode: "9001", IsActive: true},
				"FRAME-TITAN": {ID: "FRAME-TITAN", Name: "Titanium Frame", MRP: decimal.RequireFromString("2240.00"), HSNCode: "9003", IsActive: true},
			},
		},
		Loyalty:  loy,
		Stock:    stk,
		Sequence: &fakeSeq{},
		Tx:       fakeTx{},
	})
	return &fixture{service: svc, orders: orders, loyalty: loy, stock: stk}
}

func salesRequest() CreateOrderRequest {
	return CreateOrderRequest{
		Kind:          "SALES",
		BranchCode:    "NTA",
		CustomerName:  "R. Kulkarni",
		SubmissionKey: "sub-1",
		Lines:         []CreateOrderLineReq{{ProductID: "LENS-CR39", Quantity: 2}},
	}
}

func TestCreateSalesOrderSettlesEndToEnd(t *testing.T) {
	f := newFixture(t)
	card := "PC-1001"
	f.loyalty.account = &loyalty.Account{ID: 7, CardNumber: card, CurrentPoints: 500, IsActive: true}

	req := salesRequest()
	req.LoyaltyCard = &card
	req.RedeemPoints = "300"

	order, err := f.service.Create(context.Background(), req, 3)
	require.NoError(t, err)

	// 2 x 1120 inclusive = 2000 exclusive; 300 points off, 6%+6% GST back on.
	require.Equal(t, "2000.00", order.AdjustedSubtotal.StringFixed(2))
	require.Equal(t, "300.00", order.PrivilegeDiscount.StringFixed(2))
	require.Equal(t, "102.00", order.CGST.StringFixed(2))
	require.Equal(t, "102.00", order.SGST.StringFixed(2))
	require.Equal(t, "1904.00", order.FinalAmount.StringFixed(2))

	// 300 redeemed, 5% of 2000 accrued.
	require.Equal(t, int64(300), order.PointsRedeemed)
	require.Equal(t, int64(100), order.PointsAccrued)
	require.Equal(t, int64(300), f.loyalty.account.CurrentPoints)

	require.Equal(t, StatusCompleted, order.Status)
	require.Equal(t, "1", order.Number)
	require.Equal(t, int64(8), f.stock.levels["LENS-CR39"])
	require.Len(t, order.Lines, 1)
	require.Equal(t, int64(3), order.TerminalID)
}

func TestCreateWorkOrderStaysDraftWithAdvance(t *testing.T) {
	f := newFixture(t)
	due := time.Now().AddDate(0, 0, 7)

	req := salesRequest()
	req.Kind = "WORK"
	req.AdvancePaid = "500"
	req.DueDate = &due

	order, err := f.service.Create(context.Background(), req, 1)
	require.NoError(t, err)

	require.Equal(t, StatusDraft, order.Status)
	require.Equal(t, "WO(NTA)-1-2025-26", order.Number)
	// 2000 exclusive - 500 advance = 1500 taxable, final 1680.
	require.Equal(t, "1680.00", order.FinalAmount.StringFixed(2))
	require.NotNil(t, order.DueDate)
	require.Equal(t, int64(8), f.stock.levels["LENS-CR39"])
}

func TestCreateRejectsLoyaltyOnWorkOrders(t *testing.T) {
	f := newFixture(t)
	card := "PC-1001"
	f.loyalty.account = &loyalty.Account{ID: 7, CardNumber: card, CurrentPoints: 500, IsActive: true}

	req := salesRequest()
	req.Kind = "WORK"
	req.LoyaltyCard = &card

	_, err := f.service.Create(context.Background(), req, 1)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateRejectsRedemptionWithoutCard(t *testing.T) {
	f := newFixture(t)

	req := salesRequest()
	req.RedeemPoints = "100"

	_, err := f.service.Create(context.Background(), req, 1)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateInsufficientStockAbortsWholeOrder(t *testing.T) {
	f := newFixture(t)
	f.stock.levels["FRAME-TITAN"] = 1

	req := salesRequest()
	req.Lines = []CreateOrderLineReq{
		{ProductID: "LENS-CR39", Quantity: 2},
		{ProductID: "FRAME-TITAN", Quantity: 2},
	}

	_, err := f.service.Create(context.Background(), req, 1)
	require.ErrorIs(t, err, stock.ErrStockInsufficient)

	require.Empty(t, f.orders.orders)
	require.Equal(t, int64(10), f.stock.levels["LENS-CR39"])
	require.Equal(t, int64(1), f.stock.levels["FRAME-TITAN"])
}

func TestCreateRetriesWhenCardBalanceMoves(t *testing.T) {
	f := newFixture(t)
	card := "PC-1001"
	f.loyalty.account = &loyalty.Account{ID: 7, CardNumber: card, CurrentPoints: 500, IsActive: true}
	f.loyalty.driftOnce = 100 // first lock sees 400, not the snapshotted 500

	req := salesRequest()
	req.LoyaltyCard = &card
	req.RedeemPoints = "450"

	order, err := f.service.Create(context.Background(), req, 1)
	require.NoError(t, err)

	// Second attempt re-reads 400 and caps the redemption there.
	require.Equal(t, 2, f.loyalty.lockCalls)
	require.Equal(t, int64(400), order.PointsRedeemed)
	require.Equal(t, "400.00", order.PrivilegeDiscount.StringFixed(2))
}

func TestCreateRejectsUnknownProduct(t *testing.T) {
	f := newFixture(t)

	req := salesRequest()
	req.Lines = []CreateOrderLineReq{{ProductID: "NOPE", Quantity: 1}}

	_, err := f.service.Create(context.Background(), req, 1)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateDraftReconcilesStock(t *testing.T) {
	f := newFixture(t)

	req := salesRequest()
	req.Kind = "WORK"
	created, err := f.service.Create(context.Background(), req, 1)
	require.NoError(t, err)
	require.Equal(t, int64(8), f.stock.levels["LENS-CR39"])

	lines := []CreateOrderLineReq{{ProductID: "LENS-CR39", Quantity: 1}}
	updated, err := f.service.Update(context.Background(), created.ID, UpdateOrderRequest{Lines: &lines})
	require.NoError(t, err)

	// One unit went back on the shelf and totals follow the new cart.
	require.Equal(t, int64(9), f.stock.levels["LENS-CR39"])
	require.Equal(t, "1000.00", updated.AdjustedSubtotal.StringFixed(2))
	require.Equal(t, "1120.00", updated.FinalAmount.StringFixed(2))
	require.Len(t, updated.Lines, 1)
}

func TestUpdateRejectsCompletedOrders(t *testing.T) {
	f := newFixture(t)

	created, err := f.service.Create(context.Background(), salesRequest(), 1)
	require.NoError(t, err)

	lines := []CreateOrderLineReq{{ProductID: "LENS-CR39", Quantity: 1}}
	_, err = f.service.Update(context.Background(), created.ID, UpdateOrderRequest{Lines: &lines})
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCompleteDraftWorkOrder(t *testing.T) {
	f := newFixture(t)

	req := salesRequest()
	req.Kind = "WORK"
	created, err := f.service.Create(context.Background(), req, 1)
	require.NoError(t, err)

	completed, err := f.service.Complete(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)

	_, err = f.service.Complete(context.Background(), created.ID)
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCancelRestoresStockAndBurnsNumber(t *testing.T) {
	f := newFixture(t)

	created, err := f.service.Create(context.Background(), salesRequest(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(8), f.stock.levels["LENS-CR39"])

	cancelled, err := f.service.Cancel(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.Equal(t, int64(10), f.stock.levels["LENS-CR39"])

	// The next sale takes a fresh number; the cancelled one is never reused.
	next, err := f.service.Create(context.Background(), salesRequest(), 1)
	require.NoError(t, err)
	require.NotEqual(t, cancelled.Number, next.Number)
}
