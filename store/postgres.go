package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the Postgres error code raised by the partial unique
// index on idempotency_key (see schema.sql).
const uniqueViolation = "23505"

// PostgresOrderStore persists orders in Postgres. Idempotency is enforced
// by the storage layer: a conflicting insert surfaces as ErrConflict and
// the caller returns the existing order instead of failing.
type PostgresOrderStore struct {
	db *pgxpool.Pool
}

// NewPostgresOrderStore wraps the given pool.
func NewPostgresOrderStore(db *pgxpool.Pool) *PostgresOrderStore {
	return &PostgresOrderStore{db: db}
}

// Create implements [OrderStore].
func (s *PostgresOrderStore) Create(ctx context.Context, rec *OrderRecord) error {
	if rec.ID == "" {
		rec.ID = "ord_" + uuid.NewString()
	}
	lines, err := json.Marshal(rec.Lines)
	if err != nil {
		return fmt.Errorf("store: marshal order lines: %w", err)
	}

	err = s.db.QueryRow(ctx,
		`INSERT INTO ucp_orders (id, idempotency_key, agent_profile, status, currency, total, lines, coupon_codes, buyer_name, buyer_email, payment_method)
		 VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at, updated_at`,
		rec.ID, rec.IdempotencyKey, rec.AgentProfile, string(rec.Status), rec.Currency,
		rec.Total, lines, rec.CouponCodes, rec.BuyerName, rec.BuyerEmail, rec.PaymentMethod,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrConflict
		}
		return err
	}
	return nil
}

// GetByID implements [OrderStore].
func (s *PostgresOrderStore) GetByID(ctx context.Context, id string) (*OrderRecord, error) {
	return s.scanOne(ctx,
		`SELECT id, COALESCE(idempotency_key, ''), agent_profile, status, currency, total, lines, coupon_codes, buyer_name, buyer_email, payment_method, created_at, updated_at
		 FROM ucp_orders WHERE id = $1 AND deleted_at IS NULL`, id)
}

// FindByIdempotencyKey implements [OrderStore].
func (s *PostgresOrderStore) FindByIdempotencyKey(ctx context.Context, key string) (*OrderRecord, error) {
	if key == "" {
		return nil, ErrNotFound
	}
	return s.scanOne(ctx,
		`SELECT id, COALESCE(idempotency_key, ''), agent_profile, status, currency, total, lines, coupon_codes, buyer_name, buyer_email, payment_method, created_at, updated_at
		 FROM ucp_orders WHERE idempotency_key = $1 AND deleted_at IS NULL
		 LIMIT 1`, key)
}

// UpdateStatus implements [OrderStore].
func (s *PostgresOrderStore) UpdateStatus(ctx context.Context, id string, status OrderStatus) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE ucp_orders SET status = $2, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`,
		id, string(status),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresOrderStore) scanOne(ctx context.Context, query string, arg any) (*OrderRecord, error) {
	rec := &OrderRecord{}
	var status string
	var lines []byte
	err := s.db.QueryRow(ctx, query, arg).Scan(
		&rec.ID, &rec.IdempotencyKey, &rec.AgentProfile, &status, &rec.Currency,
		&rec.Total, &lines, &rec.CouponCodes, &rec.BuyerName, &rec.BuyerEmail,
		&rec.PaymentMethod, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rec.Status = OrderStatus(status)
	if len(lines) > 0 {
		if err := json.Unmarshal(lines, &rec.Lines); err != nil {
			return nil, fmt.Errorf("store: unmarshal order lines: %w", err)
		}
	}
	return rec, nil
}
