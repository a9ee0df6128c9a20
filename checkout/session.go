// Package checkout turns validated checkout payloads into persisted orders,
// enforcing the idempotency, inventory, and spend-limit invariants that
// make agent-initiated purchases safe to accept.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	ucp "github.com/lilly-ofek/WooUCP"
	"github.com/lilly-ofek/WooUCP/store"
	"go.uber.org/zap"
)

// Config is the read-only settings snapshot the manager consumes.
type Config struct {
	// PaymentMethod is the registered payment backend identifier. Empty
	// means no backend is registered and checkout is unavailable.
	PaymentMethod string
	// DefaultCurrency is used when the request names none. Defaults to USD.
	DefaultCurrency string
	// DefaultStatus is given to newly created orders.
	DefaultStatus store.OrderStatus
	// MaxOrderTotal caps a single agent-initiated order, in minor units.
	// Zero means unlimited.
	MaxOrderTotal int64
}

// Manager implements the session-creation contract consumed by the
// protocol gateway.
type Manager struct {
	orders   store.OrderStore
	catalog  ProductResolver
	coupons  CouponResolver
	pricer   Pricer
	notifier ucp.OrderNotifier
	cfg      Config
	logger   *zap.Logger
}

// NewManager wires the session manager against an order store and product
// catalog.
func NewManager(orders store.OrderStore, catalog ProductResolver, cfg Config, logger *zap.Logger) *Manager {
	if orders == nil {
		panic("checkout: order store is required")
	}
	if catalog == nil {
		panic("checkout: product catalog is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "USD"
	}
	if cfg.DefaultStatus == "" {
		cfg.DefaultStatus = store.OrderStatusProcessing
	}
	return &Manager{
		orders:  orders,
		catalog: catalog,
		pricer:  FlatPricer{},
		cfg:     cfg,
		logger:  logger,
	}
}

// SetCouponResolver enables best-effort coupon application.
func (m *Manager) SetCouponResolver(coupons CouponResolver) {
	m.coupons = coupons
}

// SetNotifier registers the order lifecycle extension point.
func (m *Manager) SetNotifier(n ucp.OrderNotifier) {
	m.notifier = n
}

// SetPricer replaces the default pricing engine.
func (m *Manager) SetPricer(p Pricer) {
	if p != nil {
		m.pricer = p
	}
}

// CreateSession creates an order for the request and returns its id. The
// operation is idempotent under the request's idempotency key: a replay
// returns the original order id without re-validation or re-pricing. A
// failing line item aborts the whole operation; nothing is persisted until
// every invariant has passed.
func (m *Manager) CreateSession(ctx context.Context, req ucp.CheckoutRequest) (string, error) {
	if req.IdempotencyKey != "" {
		existing, err := m.orders.FindByIdempotencyKey(ctx, req.IdempotencyKey)
		switch {
		case err == nil:
			m.logger.Info("returning existing order for idempotency key",
				zap.String("order_id", existing.ID),
				zap.String("idempotency_key", req.IdempotencyKey),
			)
			return existing.ID, nil
		case !errors.Is(err, store.ErrNotFound):
			m.logger.Error("idempotency lookup failed", zap.Error(err))
			return "", ucp.NewProcessingError("order store unavailable")
		}
	}

	if m.cfg.PaymentMethod == "" {
		return "", ucp.NewGatewayUnavailableError("UCP payment gateway is disabled")
	}

	if len(req.LineItems) == 0 {
		return "", ucp.NewValidationError("no line items provided")
	}

	lines := make([]store.OrderLine, 0, len(req.LineItems))
	for _, li := range req.LineItems {
		product, err := m.catalog.Product(ctx, li.Item.ID)
		if err != nil {
			return "", ucp.NewHTTPError(http.StatusBadRequest, ucp.InvalidRequest, ucp.ProductNotFound,
				fmt.Sprintf("Product %s not found", li.Item.ID))
		}
		if product.Stock == ucp.StockOutOfStock {
			return "", ucp.NewStockError(fmt.Sprintf("Product %q is out of stock", product.Title))
		}
		if product.Stock != ucp.StockInStock {
			return "", ucp.NewStockError(fmt.Sprintf("Product %q is not available", product.Title))
		}
		lines = append(lines, store.OrderLine{
			ProductID: product.ID,
			Title:     product.Title,
			Quantity:  li.Quantity,
			UnitPrice: product.Price,
			Subtotal:  product.Price * int64(li.Quantity),
		})
	}

	// Coupons are best-effort: a bad code is logged and skipped, never a
	// reason to abort the session.
	var applied []Coupon
	var codes []string
	for _, d := range req.Discounts {
		if d.Code == "" {
			continue
		}
		if m.coupons == nil {
			m.logger.Warn("coupon skipped, no coupon resolver configured", zap.String("code", d.Code))
			continue
		}
		coupon, err := m.coupons.Coupon(ctx, d.Code)
		if err != nil {
			m.logger.Warn("coupon rejected", zap.String("code", d.Code), zap.Error(err))
			continue
		}
		applied = append(applied, *coupon)
		codes = append(codes, coupon.Code)
		m.logger.Info("coupon applied", zap.String("code", coupon.Code))
	}

	currency := req.Currency
	if currency == "" {
		currency = m.cfg.DefaultCurrency
	}

	totals := m.pricer.Price(lines, applied, currency)

	if m.cfg.MaxOrderTotal > 0 && totals.Total > m.cfg.MaxOrderTotal {
		m.logger.Warn("discarding draft order over spend limit",
			zap.Int64("total", totals.Total),
			zap.Int64("max_order_total", m.cfg.MaxOrderTotal),
			zap.String("agent_profile", req.AgentProfile),
		)
		return "", ucp.NewLimitExceededError(
			fmt.Sprintf("Order total exceeds the maximum allowed limit (%d)", m.cfg.MaxOrderTotal))
	}

	rec := &store.OrderRecord{
		IdempotencyKey: req.IdempotencyKey,
		AgentProfile:   req.AgentProfile,
		Status:         m.cfg.DefaultStatus,
		Currency:       currency,
		Total:          totals.Total,
		Lines:          lines,
		CouponCodes:    codes,
		PaymentMethod:  m.cfg.PaymentMethod,
	}
	if req.Buyer != nil {
		rec.BuyerName = req.Buyer.FullName
		rec.BuyerEmail = req.Buyer.Email
	}

	if err := m.orders.Create(ctx, rec); err != nil {
		// A storage-level conflict means a concurrent request with the
		// same key won the race; return its order instead of failing.
		if errors.Is(err, store.ErrConflict) && req.IdempotencyKey != "" {
			existing, lookupErr := m.orders.FindByIdempotencyKey(ctx, req.IdempotencyKey)
			if lookupErr == nil {
				return existing.ID, nil
			}
		}
		m.logger.Error("order persistence failed", zap.Error(err))
		return "", ucp.NewProcessingError("unable to persist order")
	}

	m.notify(ctx, ucp.OrderEventCreated, rec)
	return rec.ID, nil
}

// UpdateOrderStatus transitions an order and fires the order_updated
// extension point. The external payment/fulfillment flow calls this after
// capture.
func (m *Manager) UpdateOrderStatus(ctx context.Context, id string, status store.OrderStatus) error {
	if err := m.orders.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	rec, err := m.orders.GetByID(ctx, id)
	if err != nil {
		return err
	}
	m.notify(ctx, ucp.OrderEventUpdated, rec)
	return nil
}

func (m *Manager) notify(ctx context.Context, eventType ucp.OrderEventType, rec *store.OrderRecord) {
	if m.notifier == nil {
		return
	}
	event := ucp.OrderEvent{
		Type:         eventType,
		CheckoutID:   rec.ID,
		Status:       string(rec.Status),
		Total:        rec.Total,
		Currency:     rec.Currency,
		AgentProfile: rec.AgentProfile,
	}
	if err := m.notifier.NotifyOrder(ctx, event); err != nil {
		m.logger.Warn("order notification failed",
			zap.String("order_id", rec.ID),
			zap.String("event", string(eventType)),
			zap.Error(err),
		)
	}
}
