package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	ucp "github.com/lilly-ofek/WooUCP"
)

var (
	// ErrProductNotFound reports a line item referencing an unknown product.
	ErrProductNotFound = errors.New("checkout: product not found")
	// ErrCouponNotFound reports an unknown coupon code.
	ErrCouponNotFound = errors.New("checkout: coupon not found")
)

// ProductResolver looks up products referenced by checkout line items.
type ProductResolver interface {
	Product(ctx context.Context, id string) (*ucp.Product, error)
}

// CouponResolver looks up coupon codes referenced by checkout discounts.
type CouponResolver interface {
	Coupon(ctx context.Context, code string) (*Coupon, error)
}

// MemoryCatalog is an in-process product and coupon catalog. It stands in
// for the external commerce backend's catalog and serves both line-item
// resolution and the public product listing.
type MemoryCatalog struct {
	mu       sync.RWMutex
	products map[string]ucp.Product
	coupons  map[string]Coupon
}

// NewMemoryCatalog builds an empty catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		products: make(map[string]ucp.Product),
		coupons:  make(map[string]Coupon),
	}
}

// AddProduct registers or replaces a product. A zero CreatedAt is stamped
// with the current time so the listing stays recency-ordered.
func (c *MemoryCatalog) AddProduct(p ucp.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	c.products[p.ID] = p
}

// AddCoupon registers or replaces a coupon.
func (c *MemoryCatalog) AddCoupon(coupon Coupon) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.coupons[coupon.Code] = coupon
}

// Product implements [ProductResolver].
func (c *MemoryCatalog) Product(_ context.Context, id string) (*ucp.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

// Coupon implements [CouponResolver].
func (c *MemoryCatalog) Coupon(_ context.Context, code string) (*Coupon, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	coupon, ok := c.coupons[code]
	if !ok {
		return nil, ErrCouponNotFound
	}
	return &coupon, nil
}

// ListProducts returns up to limit products, newest first.
func (c *MemoryCatalog) ListProducts(_ context.Context, limit int) ([]ucp.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]ucp.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type catalogFile struct {
	Products []ucp.Product `json:"products"`
	Coupons  []Coupon      `json:"coupons,omitempty"`
}

// LoadCatalogFile reads a JSON catalog of products and coupons from disk.
func LoadCatalogFile(path string) (*MemoryCatalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("checkout: read catalog file: %w", err)
	}
	var file catalogFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("checkout: parse catalog file: %w", err)
	}
	catalog := NewMemoryCatalog()
	for _, p := range file.Products {
		catalog.AddProduct(p)
	}
	for _, c := range file.Coupons {
		catalog.AddCoupon(c)
	}
	return catalog, nil
}
