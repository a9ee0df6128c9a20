// Package store persists the order records created by agent checkouts. Two
// implementations ship: a mutex-guarded in-memory store and a Postgres
// store backed by pgx. Both guarantee at most one order per non-empty
// idempotency key.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound reports a lookup that matched nothing.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict reports a create that collided with an existing
	// idempotency key. Callers resolve it by returning the existing order.
	ErrConflict = errors.New("store: idempotency key conflict")
)

// OrderStatus is the lifecycle state of an order. Transitions after
// creation belong to the external payment/fulfillment flow.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusOnHold     OrderStatus = "on-hold"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// OrderLine is one priced line of an order. Amounts are minor units.
type OrderLine struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Subtotal  int64  `json:"subtotal"`
}

// OrderRecord is the persisted unit. ID is assigned by the store on create
// when empty.
type OrderRecord struct {
	ID             string
	IdempotencyKey string
	AgentProfile   string
	Status         OrderStatus
	Currency       string
	Total          int64
	Lines          []OrderLine
	CouponCodes    []string
	BuyerName      string
	BuyerEmail     string
	PaymentMethod  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OrderStore is the persistence contract the session manager consumes.
type OrderStore interface {
	// Create persists a new record, assigning ID and timestamps. It
	// returns ErrConflict when the record's non-empty idempotency key
	// already belongs to another order.
	Create(ctx context.Context, rec *OrderRecord) error
	// GetByID fetches a record or ErrNotFound.
	GetByID(ctx context.Context, id string) (*OrderRecord, error)
	// FindByIdempotencyKey fetches the record holding the given non-empty
	// key, or ErrNotFound.
	FindByIdempotencyKey(ctx context.Context, key string) (*OrderRecord, error)
	// UpdateStatus transitions an order's status.
	UpdateStatus(ctx context.Context, id string, status OrderStatus) error
}
