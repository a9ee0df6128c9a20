package ucp

import "time"

// StockStatus describes a product's availability.
type StockStatus string

const (
	StockInStock     StockStatus = "instock"
	StockOutOfStock  StockStatus = "outofstock"
	StockOnBackorder StockStatus = "onbackorder"
)

// Item identifies a product within a line item.
type Item struct {
	ID string `json:"id" validate:"required"`
}

// LineItem is one product/quantity pair in a checkout request.
type LineItem struct {
	Item     Item `json:"item"`
	Quantity int  `json:"quantity" validate:"gt=0"`
}

// Buyer carries optional purchaser metadata.
type Buyer struct {
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
}

// Discount is a coupon code applied best-effort during pricing.
type Discount struct {
	Code string `json:"code" validate:"required"`
}

// CheckoutRequest is the body of POST /ucp/v1/checkout-sessions. The
// idempotency key may arrive in the body or via the idempotency-key header;
// the header wins. AgentProfile is derived from the verified UCP-Agent
// header and never read from the payload.
type CheckoutRequest struct {
	LineItems      []LineItem `json:"line_items" validate:"required,min=1,dive"`
	Buyer          *Buyer     `json:"buyer,omitempty"`
	Discounts      []Discount `json:"discounts,omitempty" validate:"omitempty,dive"`
	Currency       string     `json:"currency,omitempty" validate:"omitempty,currency"`
	IdempotencyKey string     `json:"idempotency_key,omitempty"`

	AgentProfile string `json:"-"`
}

// CheckoutResponse is returned with 201 on session creation.
type CheckoutResponse struct {
	CheckoutID string `json:"checkout_id"`
}

// ShippingRateRequest is the body of POST /ucp/v1/shipping-rates.
type ShippingRateRequest struct {
	Currency string `json:"currency,omitempty" validate:"omitempty,currency"`
}

// ShippingRate is one quoted shipping option. Amount is in minor units.
type ShippingRate struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// ShippingRatesResponse wraps the quoted options as a catalog.
type ShippingRatesResponse struct {
	Rates []ShippingRate `json:"rates"`
}

// Product is the summary served to agents via GET /ucp/v1/products.
// Price is in minor units of Currency.
type Product struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Price       int64       `json:"price"`
	Currency    string      `json:"currency"`
	URL         string      `json:"url,omitempty"`
	Image       string      `json:"image,omitempty"`
	Stock       StockStatus `json:"stock"`

	// CreatedAt orders the public listing by recency; it is not part of
	// the wire format.
	CreatedAt time.Time `json:"-"`
}

// ProductsResponse wraps the bounded product listing.
type ProductsResponse struct {
	Products []Product `json:"products"`
}
