package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceBreakdown is the monetary result of pricing one room for one stay.
type PriceBreakdown struct {
	Days           int64
	BaseAmount     decimal.Decimal
	DiscountAmount decimal.Decimal
	Subtotal       decimal.Decimal
	Tax            decimal.Decimal
	Total          decimal.Decimal
}

// SettlementBreakdown is the charge for a guest leaving before the booked
// check-out.
type SettlementBreakdown struct {
	Days           int64
	MinimumCharge  bool
	DiscountAmount decimal.Decimal
	Subtotal       decimal.Decimal
	Tax            decimal.Decimal
	Total          decimal.Decimal
}

// ComputePrice prices a stay: basePrice per started 24h block (minimum one),
// minus a discount capped at MaxDiscountRatio of the base, plus tax when
// enabled. Amounts are only rounded when the tax is computed.
func (p Policy) ComputePrice(basePrice decimal.Decimal, checkIn, checkOut time.Time, discount decimal.Decimal, taxEnabled bool) PriceBreakdown {
	days := BillableDays(checkIn, checkOut)
	base := basePrice.Mul(decimal.NewFromInt(days))

	discountAmount := discount
	if discountAmount.IsNegative() {
		discountAmount = decimal.Zero
	}
	if ceiling := base.Mul(p.MaxDiscountRatio); discountAmount.GreaterThan(ceiling) {
		discountAmount = ceiling
	}

	subtotal := base.Sub(discountAmount)
	tax := p.tax(subtotal, taxEnabled)
	return PriceBreakdown{
		Days:           days,
		BaseAmount:     base,
		DiscountAmount: discountAmount,
		Subtotal:       subtotal,
		Tax:            tax,
		Total:          subtotal.Add(tax),
	}
}

// ComputeEarlySettlement charges a half-day floor when the guest stayed less
// than the minimum stay, otherwise basePrice per started 24h block up to
// billableEnd. The booked discount still applies, capped like ComputePrice.
func (p Policy) ComputeEarlySettlement(checkIn, billableEnd time.Time, basePrice, discount decimal.Decimal, taxEnabled bool) SettlementBreakdown {
	var out SettlementBreakdown
	charge := decimal.Zero
	if billableEnd.Sub(checkIn) < p.MinimumStay {
		out.MinimumCharge = true
		charge = basePrice.Mul(p.EarlyFloorRatio)
	} else {
		out.Days = BillableDays(checkIn, billableEnd)
		charge = basePrice.Mul(decimal.NewFromInt(out.Days))
	}

	out.DiscountAmount = decimal.Max(discount, decimal.Zero)
	if ceiling := charge.Mul(p.MaxDiscountRatio); out.DiscountAmount.GreaterThan(ceiling) {
		out.DiscountAmount = ceiling
	}
	out.Subtotal = charge.Sub(out.DiscountAmount)
	out.Tax = p.tax(out.Subtotal, taxEnabled)
	out.Total = out.Subtotal.Add(out.Tax)
	return out
}

func (p Policy) tax(subtotal decimal.Decimal, enabled bool) decimal.Decimal {
	if !enabled {
		return decimal.Zero
	}
	return subtotal.Mul(p.TaxRate).Round(p.TaxRoundPlaces)
}

// SplitDiscount distributes a batch discount across rooms in proportion to
// their base amounts. Shares are truncated to cents; the last room absorbs
// the remainder so the shares always sum to the discount and none is
// negative.
func SplitDiscount(discount decimal.Decimal, bases []decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(bases))
	for i := range shares {
		shares[i] = decimal.Zero
	}
	if len(bases) == 0 || !discount.IsPositive() {
		return shares
	}

	total := decimal.Zero
	for _, b := range bases {
		total = total.Add(b)
	}
	if !total.IsPositive() {
		return shares
	}

	allocated := decimal.Zero
	for i, b := range bases {
		if i == len(bases)-1 {
			shares[i] = discount.Sub(allocated)
			break
		}
		shares[i] = discount.Mul(b).Div(total).RoundDown(2)
		allocated = allocated.Add(shares[i])
	}
	return shares
}
