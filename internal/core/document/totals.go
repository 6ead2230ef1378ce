package document

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PurchaseTotal is the tax-exclusive, post-discount total of the items, rounded to cents.
// Negative line results are floored at zero.
func PurchaseTotal(items []PurchaseItem, dt DiscountType) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		line := it.Quantity.Mul(it.Price)
		if it.Discount != nil && !it.Discount.IsZero() {
			discount := *it.Discount
			if dt == DiscountPercentage {
				discount = line.Mul(discount).Div(hundred)
			}
			line = line.Sub(discount)
		}
		if line.IsNegative() {
			line = decimal.Zero
		}
		total = total.Add(line)
	}
	return total.Round(2)
}

// PaymentsTotal sums payment values, rounded to cents.
func PaymentsTotal(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Value)
	}
	return total.Round(2)
}

// ReconcilePayments makes the payments add up to total. When they already do they are
// returned untouched; otherwise they collapse into one payment for the whole total, keeping
// the first payment's id or defaultID. The boolean reports whether an override happened.
func ReconcilePayments(payments []Payment, total decimal.Decimal, dueDate string, defaultID int64) ([]Payment, bool) {
	if len(payments) > 0 && PaymentsTotal(payments).Equal(total) {
		return payments, false
	}
	if len(payments) == 0 && total.IsZero() {
		return payments, false
	}

	id := FlexInt(defaultID)
	if len(payments) > 0 && payments[0].ID > 0 {
		id = payments[0].ID
	}
	return []Payment{{ID: id, Value: total, DueDate: dueDate}}, true
}

// WithPaymentReceiptTotal adds total = Σ|items[].value| to a raw payment receipt.
// Siigo does not report a total for RP documents; item values are signed by movement.
func WithPaymentReceiptTotal(raw json.RawMessage) (json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode payment receipt: %w", err)
	}

	total := decimal.Zero
	items, _ := doc["items"].([]any)
	for _, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			continue
		}
		total = total.Add(amountOf(fields["value"]).Abs())
	}
	doc["total"] = json.Number(total.String())

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode payment receipt: %w", err)
	}
	return out, nil
}

func amountOf(v any) decimal.Decimal {
	var s string
	switch val := v.(type) {
	case json.Number:
		s = val.String()
	case string:
		s = val
	default:
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
