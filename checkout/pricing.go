package checkout

import "github.com/lilly-ofek/WooUCP/store"

// CouponKind selects how a coupon's amount is applied.
type CouponKind string

const (
	// CouponPercent discounts Amount percent of the items subtotal.
	CouponPercent CouponKind = "percent"
	// CouponFixed discounts Amount minor units.
	CouponFixed CouponKind = "fixed"
)

// Coupon is a discount applied best-effort during pricing.
type Coupon struct {
	Code   string     `json:"code"`
	Kind   CouponKind `json:"kind"`
	Amount int64      `json:"amount"`
}

// Totals is the priced breakdown of a draft order, in minor units.
type Totals struct {
	Subtotal int64
	Discount int64
	Tax      int64
	Shipping int64
	Total    int64
}

// Pricer computes order totals from line items and applied coupons.
type Pricer interface {
	Price(lines []store.OrderLine, coupons []Coupon, currency string) Totals
}

// FlatPricer is the default pricing engine: line subtotals, coupon
// discounts capped at the subtotal, an optional flat tax rate in basis
// points, and an optional flat shipping charge.
type FlatPricer struct {
	TaxBasisPoints int64
	ShippingFlat   int64
}

// Price implements [Pricer].
func (p FlatPricer) Price(lines []store.OrderLine, coupons []Coupon, _ string) Totals {
	var subtotal int64
	for _, l := range lines {
		subtotal += l.Subtotal
	}

	var discount int64
	for _, c := range coupons {
		switch c.Kind {
		case CouponPercent:
			discount += subtotal * c.Amount / 100
		case CouponFixed:
			discount += c.Amount
		}
	}
	if discount > subtotal {
		discount = subtotal
	}

	taxable := subtotal - discount
	tax := taxable * p.TaxBasisPoints / 10000

	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Shipping: p.ShippingFlat,
		Total:    taxable + tax + p.ShippingFlat,
	}
}
