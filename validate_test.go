package ucp

import (
	"errors"
	"testing"
)

func TestCheckoutRequestValidate(t *testing.T) {
	valid := CheckoutRequest{
		LineItems: []LineItem{{Item: Item{ID: "prod_1"}, Quantity: 1}},
	}

	tests := []struct {
		name      string
		mutate    func(*CheckoutRequest)
		wantErr   bool
		wantParam string
	}{
		{
			name:   "minimal valid request",
			mutate: func(*CheckoutRequest) {},
		},
		{
			name: "full valid request",
			mutate: func(r *CheckoutRequest) {
				r.Buyer = &Buyer{FullName: "Ada Lovelace", Email: "ada@example.com"}
				r.Discounts = []Discount{{Code: "WELCOME10"}}
				r.Currency = "EUR"
				r.IdempotencyKey = "key-1"
			},
		},
		{
			name:      "missing line items",
			mutate:    func(r *CheckoutRequest) { r.LineItems = nil },
			wantErr:   true,
			wantParam: "line_items",
		},
		{
			name:      "zero quantity",
			mutate:    func(r *CheckoutRequest) { r.LineItems[0].Quantity = 0 },
			wantErr:   true,
			wantParam: "line_items[0].quantity",
		},
		{
			name:      "missing product id",
			mutate:    func(r *CheckoutRequest) { r.LineItems[0].Item.ID = "" },
			wantErr:   true,
			wantParam: "line_items[0].item.id",
		},
		{
			name:      "lowercase currency",
			mutate:    func(r *CheckoutRequest) { r.Currency = "usd" },
			wantErr:   true,
			wantParam: "currency",
		},
		{
			name:      "bad buyer email",
			mutate:    func(r *CheckoutRequest) { r.Buyer = &Buyer{Email: "not-an-email"} },
			wantErr:   true,
			wantParam: "buyer.email",
		},
		{
			name:      "empty discount code",
			mutate:    func(r *CheckoutRequest) { r.Discounts = []Discount{{}} },
			wantErr:   true,
			wantParam: "discounts[0].code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			req.LineItems = []LineItem{{Item: Item{ID: "prod_1"}, Quantity: 1}}
			tt.mutate(&req)

			err := req.Validate()
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("expected request to be valid, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected a validation error")
			}
			var payload *Error
			if !errors.As(err, &payload) {
				t.Fatalf("expected a typed error payload, got %T", err)
			}
			if payload.Code != ValidationFailed {
				t.Fatalf("expected code %q, got %q", ValidationFailed, payload.Code)
			}
			if payload.Param == nil || *payload.Param != tt.wantParam {
				t.Fatalf("expected param %q, got %v", tt.wantParam, payload.Param)
			}
		})
	}
}

func TestShippingRateRequestValidate(t *testing.T) {
	if err := (ShippingRateRequest{}).Validate(); err != nil {
		t.Fatalf("expected empty request to be valid, got %v", err)
	}
	if err := (ShippingRateRequest{Currency: "GBP"}).Validate(); err != nil {
		t.Fatalf("expected GBP to be valid, got %v", err)
	}
	if err := (ShippingRateRequest{Currency: "pounds"}).Validate(); err == nil {
		t.Fatal("expected an error for a malformed currency")
	}
}
