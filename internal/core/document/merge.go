package document

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PurchaseRecord is a purchase invoice as Siigo returns it, reduced to what an update
// needs to carry over.
type PurchaseRecord struct {
	Document        DocumentRef      `json:"document"`
	Date            string           `json:"date"`
	Supplier        *PartyInput      `json:"supplier"`
	CostCenter      FlexInt          `json:"cost_center"`
	ProviderInvoice *ProviderInvoice `json:"provider_invoice"`
	Currency        *Currency        `json:"currency"`
	Observations    *string          `json:"observations"`
	DiscountType    string           `json:"discount_type"`
	SupplierByItem  *bool            `json:"supplier_by_item"`
	TaxIncluded     *bool            `json:"tax_included"`
	Items           []RecordItem     `json:"items"`
	Payments        []Payment        `json:"payments"`
}

// RecordItem is the part of a stored line needed to inherit taxes.
type RecordItem struct {
	Code  FlexString `json:"code"`
	Taxes []TaxRef   `json:"taxes"`
}

// MergePurchaseUpdate builds the full PUT body for a purchase invoice from a partial update
// and the stored document. Siigo replaces the whole document on PUT, so every field the
// caller omits is carried over from current. today is used when neither side has a date.
func MergePurchaseUpdate(in PurchaseRequest, current PurchaseRecord, today string, defaultPaymentID int64) (PurchasePayload, error) {
	docID := current.Document.ID.Int64()
	if in.Document != nil && in.Document.ID != 0 {
		docID = in.Document.ID.Int64()
	}
	if docID <= 0 {
		return PurchasePayload{}, &ValidationError{Field: "document.id", Message: "Documento (document.id) inválido o no determinado para FC"}
	}

	supplier, ok := mergeSupplier(in.Supplier, current.Supplier)
	if !ok {
		return PurchasePayload{}, &ValidationError{Field: "supplier", Message: "Proveedor no determinado para la actualización de FC"}
	}

	date := firstNonEmpty(in.Date, current.Date, today)
	dtRaw := firstNonEmpty(in.DiscountType, current.DiscountType)
	dt := DiscountValue
	if strings.EqualFold(dtRaw, string(DiscountPercentage)) {
		dt = DiscountPercentage
	}

	items := inheritTaxes(purchaseItems(in.Items), current.Items)
	total := PurchaseTotal(items, dt)

	paymentID := defaultPaymentID
	switch {
	case len(in.Payments) > 0 && in.Payments[0].ID > 0:
		paymentID = in.Payments[0].ID.Int64()
	case len(current.Payments) > 0 && current.Payments[0].ID > 0:
		paymentID = current.Payments[0].ID.Int64()
	}
	dueDate := date
	if len(in.Payments) > 0 && in.Payments[0].DueDate != "" {
		dueDate = in.Payments[0].DueDate
	}

	payload := PurchasePayload{
		Document:       DocumentRef{ID: FlexInt(docID)},
		Date:           date,
		Supplier:       supplier,
		DiscountType:   dt,
		SupplierByItem: firstBool(in.SupplierByItem, current.SupplierByItem),
		TaxIncluded:    firstBool(in.TaxIncluded, current.TaxIncluded),
		Items:          items,
		Payments:       []Payment{{ID: FlexInt(paymentID), Value: total, DueDate: dueDate}},
	}

	costCenter := current.CostCenter
	if in.CostCenter != 0 {
		costCenter = in.CostCenter
	}
	if costCenter > 0 {
		payload.CostCenter = int64Ptr(costCenter.Int64())
	}

	switch {
	case in.ProviderInvoice != nil:
		pi := *in.ProviderInvoice
		payload.ProviderInvoice = &pi
	case current.ProviderInvoice != nil:
		pi := *current.ProviderInvoice
		payload.ProviderInvoice = &pi
	}

	switch {
	case in.Currency != nil && in.Currency.Code != "":
		c := *in.Currency
		payload.Currency = &c
	case current.Currency != nil && current.Currency.Code != "" && current.Currency.Code != "COP":
		c := *current.Currency
		if c.ExchangeRate.IsZero() {
			c.ExchangeRate = decimal.NewFromInt(1)
		}
		payload.Currency = &c
	}

	switch {
	case in.Observations != nil:
		payload.Observations = *in.Observations
	case current.Observations != nil:
		payload.Observations = *current.Observations
	}

	return payload, nil
}

func mergeSupplier(in, current *PartyInput) (Party, bool) {
	src := in
	if src == nil {
		src = current
	}
	if src == nil || src.Identification == "" {
		return Party{}, false
	}
	p := Party{Identification: src.Identification}
	if src.BranchOffice > 0 {
		p.BranchOffice = int64Ptr(src.BranchOffice.Int64())
	}
	return p, true
}

// inheritTaxes fills taxes on items that have none from the stored item with the same code.
func inheritTaxes(items []PurchaseItem, current []RecordItem) []PurchaseItem {
	for i := range items {
		if len(items[i].Taxes) > 0 {
			continue
		}
		code := strings.TrimSpace(items[i].Code)
		for _, ci := range current {
			if strings.TrimSpace(ci.Code.String()) == code && len(ci.Taxes) > 0 {
				items[i].Taxes = append([]TaxRef(nil), ci.Taxes...)
				break
			}
		}
	}
	return items
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstBool(values ...*bool) bool {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return false
}
