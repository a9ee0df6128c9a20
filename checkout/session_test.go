package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ucp "github.com/lilly-ofek/WooUCP"
	"github.com/lilly-ofek/WooUCP/store"
)

func testCatalog() *MemoryCatalog {
	catalog := NewMemoryCatalog()
	catalog.AddProduct(ucp.Product{ID: "prod_mug", Title: "Mug", Price: 1500, Currency: "USD", Stock: ucp.StockInStock})
	catalog.AddProduct(ucp.Product{ID: "prod_tee", Title: "Tee", Price: 2500, Currency: "USD", Stock: ucp.StockInStock})
	catalog.AddProduct(ucp.Product{ID: "prod_gone", Title: "Poster", Price: 900, Currency: "USD", Stock: ucp.StockOutOfStock})
	catalog.AddProduct(ucp.Product{ID: "prod_later", Title: "Chair", Price: 9900, Currency: "USD", Stock: ucp.StockOnBackorder})
	catalog.AddCoupon(Coupon{Code: "TENOFF", Kind: CouponPercent, Amount: 10})
	return catalog
}

func newTestManager(t *testing.T, cfg Config) (*Manager, *store.MemoryOrderStore) {
	t.Helper()
	if cfg.PaymentMethod == "" {
		cfg.PaymentMethod = "mock_payment_handler"
	}
	orders := store.NewMemoryOrderStore()
	m := NewManager(orders, testCatalog(), cfg, nil)
	return m, orders
}

func simpleRequest() ucp.CheckoutRequest {
	return ucp.CheckoutRequest{
		LineItems:    []ucp.LineItem{{Item: ucp.Item{ID: "prod_mug"}, Quantity: 2}},
		AgentProfile: "https://agent.example/profile",
	}
}

func TestCreateSession(t *testing.T) {
	m, orders := newTestManager(t, Config{})
	ctx := context.Background()

	id, err := m.CreateSession(ctx, simpleRequest())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, err := orders.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.OrderStatusProcessing, rec.Status)
	assert.Equal(t, "USD", rec.Currency)
	assert.Equal(t, int64(3000), rec.Total)
	assert.Equal(t, "https://agent.example/profile", rec.AgentProfile)
	assert.Equal(t, "mock_payment_handler", rec.PaymentMethod)
	require.Len(t, rec.Lines, 1)
	assert.Equal(t, int64(3000), rec.Lines[0].Subtotal)
}

func TestCreateSessionIdempotency(t *testing.T) {
	m, orders := newTestManager(t, Config{})
	ctx := context.Background()

	req := simpleRequest()
	req.IdempotencyKey = "key-1"

	first, err := m.CreateSession(ctx, req)
	require.NoError(t, err)

	// A replay returns the same order without creating another, even when
	// the replayed payload would now fail validation.
	replay := ucp.CheckoutRequest{IdempotencyKey: "key-1"}
	second, err := m.CreateSession(ctx, replay)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, orders.Len())
}

func TestCreateSessionGatewayDisabled(t *testing.T) {
	orders := store.NewMemoryOrderStore()
	m := NewManager(orders, testCatalog(), Config{PaymentMethod: ""}, nil)

	_, err := m.CreateSession(context.Background(), simpleRequest())
	requireUCPError(t, err, ucp.GatewayUnavailable, ucp.CapabilityDisabled)
	assert.Equal(t, 0, orders.Len())
}

func TestCreateSessionEmptyLines(t *testing.T) {
	m, orders := newTestManager(t, Config{})

	_, err := m.CreateSession(context.Background(), ucp.CheckoutRequest{})
	requireUCPError(t, err, ucp.InvalidRequest, ucp.ValidationFailed)
	assert.Equal(t, 0, orders.Len())
}

func TestCreateSessionLineFailures(t *testing.T) {
	tests := []struct {
		name      string
		productID string
		wantCode  ucp.ErrorCode
		wantMsg   string
	}{
		{name: "unknown product", productID: "prod_missing", wantCode: ucp.ProductNotFound, wantMsg: "not found"},
		{name: "out of stock", productID: "prod_gone", wantCode: ucp.OutOfStock, wantMsg: "out of stock"},
		{name: "backordered", productID: "prod_later", wantCode: ucp.OutOfStock, wantMsg: "not available"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, orders := newTestManager(t, Config{})

			// A good line before the bad one must not leak a partial order.
			req := ucp.CheckoutRequest{LineItems: []ucp.LineItem{
				{Item: ucp.Item{ID: "prod_mug"}, Quantity: 1},
				{Item: ucp.Item{ID: tt.productID}, Quantity: 1},
			}}
			_, err := m.CreateSession(context.Background(), req)
			requireUCPError(t, err, ucp.InvalidRequest, tt.wantCode)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Equal(t, 0, orders.Len())
		})
	}
}

func TestCreateSessionCouponsBestEffort(t *testing.T) {
	m, orders := newTestManager(t, Config{})
	m.SetCouponResolver(testCatalog())
	ctx := context.Background()

	req := simpleRequest()
	req.Discounts = []ucp.Discount{{Code: "TENOFF"}, {Code: "BOGUS"}}

	id, err := m.CreateSession(ctx, req)
	require.NoError(t, err)

	rec, err := orders.GetByID(ctx, id)
	require.NoError(t, err)
	// 3000 - 10% = 2700; the unknown code is skipped, not fatal.
	assert.Equal(t, int64(2700), rec.Total)
	assert.Equal(t, []string{"TENOFF"}, rec.CouponCodes)
}

func TestCreateSessionSpendLimit(t *testing.T) {
	m, orders := newTestManager(t, Config{MaxOrderTotal: 2000})

	_, err := m.CreateSession(context.Background(), simpleRequest())
	requireUCPError(t, err, ucp.InvalidRequest, ucp.LimitExceeded)
	assert.Equal(t, 0, orders.Len(), "draft over the limit must be discarded")

	under, _ := newTestManager(t, Config{MaxOrderTotal: 3000})
	_, err = under.CreateSession(context.Background(), simpleRequest())
	assert.NoError(t, err, "a total equal to the limit is allowed")
}

func TestCreateSessionCurrencyAndBuyer(t *testing.T) {
	m, orders := newTestManager(t, Config{DefaultCurrency: "EUR"})
	ctx := context.Background()

	req := simpleRequest()
	req.Buyer = &ucp.Buyer{FullName: "Ada Lovelace", Email: "ada@example.com"}
	id, err := m.CreateSession(ctx, req)
	require.NoError(t, err)

	rec, err := orders.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "EUR", rec.Currency)
	assert.Equal(t, "Ada Lovelace", rec.BuyerName)
	assert.Equal(t, "ada@example.com", rec.BuyerEmail)

	req2 := simpleRequest()
	req2.Currency = "GBP"
	id2, err := m.CreateSession(ctx, req2)
	require.NoError(t, err)
	rec2, err := orders.GetByID(ctx, id2)
	require.NoError(t, err)
	assert.Equal(t, "GBP", rec2.Currency)
}

type conflictingStore struct {
	*store.MemoryOrderStore
	hideOnce bool
}

// FindByIdempotencyKey pretends the key is unseen exactly once so Create
// hits the storage-level conflict path.
func (s *conflictingStore) FindByIdempotencyKey(ctx context.Context, key string) (*store.OrderRecord, error) {
	if s.hideOnce {
		s.hideOnce = false
		return nil, store.ErrNotFound
	}
	return s.MemoryOrderStore.FindByIdempotencyKey(ctx, key)
}

func TestCreateSessionConflictReturnsExisting(t *testing.T) {
	backing := store.NewMemoryOrderStore()
	ctx := context.Background()

	seeded := &store.OrderRecord{IdempotencyKey: "key-1", Status: store.OrderStatusProcessing}
	require.NoError(t, backing.Create(ctx, seeded))

	m := NewManager(&conflictingStore{MemoryOrderStore: backing, hideOnce: true}, testCatalog(),
		Config{PaymentMethod: "mock_payment_handler"}, nil)

	req := simpleRequest()
	req.IdempotencyKey = "key-1"
	id, err := m.CreateSession(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, id)
	assert.Equal(t, 1, backing.Len())
}

type recordingNotifier struct {
	events []ucp.OrderEvent
	err    error
}

func (n *recordingNotifier) NotifyOrder(_ context.Context, event ucp.OrderEvent) error {
	n.events = append(n.events, event)
	return n.err
}

func TestOrderLifecycleNotifications(t *testing.T) {
	m, orders := newTestManager(t, Config{})
	notifier := &recordingNotifier{}
	m.SetNotifier(notifier)
	ctx := context.Background()

	id, err := m.CreateSession(ctx, simpleRequest())
	require.NoError(t, err)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, ucp.OrderEventCreated, notifier.events[0].Type)
	assert.Equal(t, id, notifier.events[0].CheckoutID)

	require.NoError(t, m.UpdateOrderStatus(ctx, id, store.OrderStatusCompleted))
	require.Len(t, notifier.events, 2)
	assert.Equal(t, ucp.OrderEventUpdated, notifier.events[1].Type)
	assert.Equal(t, string(store.OrderStatusCompleted), notifier.events[1].Status)

	rec, err := orders.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.OrderStatusCompleted, rec.Status)
}

func TestNotifierFailureDoesNotFailCheckout(t *testing.T) {
	m, orders := newTestManager(t, Config{})
	m.SetNotifier(&recordingNotifier{err: errors.New("webhook down")})

	id, err := m.CreateSession(context.Background(), simpleRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, orders.Len())
}

func requireUCPError(t *testing.T, err error, wantType ucp.ErrorType, wantCode ucp.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	var payload *ucp.Error
	require.ErrorAs(t, err, &payload)
	assert.Equal(t, wantType, payload.Type)
	assert.Equal(t, wantCode, payload.Code)
}
