package document

import (
	"github.com/shopspring/decimal"
)

func init() {
	// Siigo rejects quoted amounts.
	decimal.MarshalJSONWithoutQuotes = true
}

// DiscountType tells Siigo how to read item discounts.
type DiscountType string

const (
	DiscountValue      DiscountType = "Value"
	DiscountPercentage DiscountType = "Percentage"
)

func normalizeDiscountType(raw string) DiscountType {
	if raw == string(DiscountPercentage) {
		return DiscountPercentage
	}
	return DiscountValue
}

// ItemType is the purchase line classification Siigo accepts.
type ItemType string

const (
	ItemProduct    ItemType = "Product"
	ItemFixedAsset ItemType = "FixedAsset"
	ItemAccount    ItemType = "Account"
)

// NormalizeItemType maps caller item types onto the ones the purchases endpoint accepts.
// Services are booked against an account; anything unknown is a product.
func NormalizeItemType(raw string) ItemType {
	switch raw {
	case string(ItemProduct), string(ItemFixedAsset), string(ItemAccount):
		return ItemType(raw)
	case "Service":
		return ItemAccount
	default:
		return ItemProduct
	}
}

// DocumentRef points at a Siigo document type configuration.
type DocumentRef struct {
	ID FlexInt `json:"id"`
}

// Party identifies a supplier or customer.
type Party struct {
	Identification FlexString `json:"identification"`
	BranchOffice   *int64     `json:"branch_office,omitempty"`
}

// PartyInput is a supplier or customer as callers send it.
type PartyInput struct {
	Identification FlexString `json:"identification"`
	BranchOffice   FlexInt    `json:"branch_office"`
}

// ProviderInvoice is the supplier's own invoice reference.
type ProviderInvoice struct {
	Prefix FlexString `json:"prefix"`
	Number FlexString `json:"number"`
}

// Currency is a foreign currency with its exchange rate.
type Currency struct {
	Code         string          `json:"code"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
}

// TaxRef references a configured tax by id.
type TaxRef struct {
	ID FlexInt `json:"id"`
}

// Payment is one means of payment applied to a document.
type Payment struct {
	ID      FlexInt         `json:"id"`
	Value   decimal.Decimal `json:"value"`
	DueDate string          `json:"due_date,omitempty"`
}

// ItemInput is a line item as callers send it.
type ItemInput struct {
	Type        string           `json:"type"`
	Code        FlexString       `json:"code"`
	Description string           `json:"description"`
	Quantity    decimal.Decimal  `json:"quantity"`
	Price       decimal.Decimal  `json:"price"`
	Discount    *decimal.Decimal `json:"discount,omitempty"`
	Taxes       []TaxRef         `json:"taxes,omitempty"`
	Warehouse   FlexInt          `json:"warehouse,omitempty"`
}

// PurchaseItem is a line of a purchase payload.
type PurchaseItem struct {
	Type        ItemType         `json:"type"`
	Code        string           `json:"code"`
	Description string           `json:"description,omitempty"`
	Quantity    decimal.Decimal  `json:"quantity"`
	Price       decimal.Decimal  `json:"price"`
	Discount    *decimal.Decimal `json:"discount,omitempty"`
	Taxes       []TaxRef         `json:"taxes,omitempty"`
	Warehouse   *int64           `json:"warehouse,omitempty"`
}

// PurchaseRequest is the caller body for creating (and updating) a purchase invoice.
type PurchaseRequest struct {
	Document        *DocumentInput   `json:"document"`
	Number          FlexInt          `json:"number"`
	Consecutive     FlexInt          `json:"consecutive"`
	Date            string           `json:"date"`
	Supplier        *PartyInput      `json:"supplier"`
	CostCenter      FlexInt          `json:"cost_center"`
	ProviderInvoice *ProviderInvoice `json:"provider_invoice"`
	Currency        *Currency        `json:"currency"`
	Observations    *string          `json:"observations"`
	DiscountType    string           `json:"discount_type"`
	SupplierByItem  *bool            `json:"supplier_by_item"`
	TaxIncluded     *bool            `json:"tax_included"`
	Items           []ItemInput      `json:"items"`
	Payments        []Payment        `json:"payments"`
	IncludePayments *bool            `json:"include_payments"`
}

// DocumentInput is the document block of a caller body.
type DocumentInput struct {
	ID     FlexInt `json:"id"`
	Number FlexInt `json:"number"`
}

// RequestedNumber is the document number the caller asked for, if any.
// It looks at number, document.number and consecutive in that order.
func (r PurchaseRequest) RequestedNumber() (int64, bool) {
	if r.Number > 0 {
		return r.Number.Int64(), true
	}
	if r.Document != nil && r.Document.Number > 0 {
		return r.Document.Number.Int64(), true
	}
	if r.Consecutive > 0 {
		return r.Consecutive.Int64(), true
	}
	return 0, false
}

// PurchasePayload is the body POSTed to the Siigo purchases endpoint.
type PurchasePayload struct {
	Document        DocumentRef      `json:"document"`
	Number          *int64           `json:"number,omitempty"`
	Date            string           `json:"date"`
	Supplier        Party            `json:"supplier"`
	CostCenter      *int64           `json:"cost_center,omitempty"`
	ProviderInvoice *ProviderInvoice `json:"provider_invoice,omitempty"`
	Currency        *Currency        `json:"currency,omitempty"`
	Observations    string           `json:"observations,omitempty"`
	DiscountType    DiscountType     `json:"discount_type"`
	SupplierByItem  bool             `json:"supplier_by_item"`
	TaxIncluded     bool             `json:"tax_included"`
	Items           []PurchaseItem   `json:"items"`
	Payments        []Payment        `json:"payments,omitempty"`

	// IncludePayments is not sent; it tells the create flow whether to reconcile payments.
	IncludePayments bool `json:"-"`
}

// PurchaseDefaults carries configured fallbacks for purchase payloads.
type PurchaseDefaults struct {
	DocumentID int64
}

// BuildPurchase validates a purchase request and shapes it into a Siigo payload.
func BuildPurchase(req PurchaseRequest, defaults PurchaseDefaults) (PurchasePayload, error) {
	if req.Date == "" {
		return PurchasePayload{}, missing("date")
	}
	if req.Supplier == nil || req.Supplier.Identification == "" {
		return PurchasePayload{}, missing("supplier.identification")
	}
	if len(req.Items) == 0 {
		return PurchasePayload{}, &ValidationError{Field: "items", Message: "Debe incluir al menos un ítem"}
	}

	docID := defaults.DocumentID
	if req.Document != nil && req.Document.ID > 0 {
		docID = req.Document.ID.Int64()
	}
	if docID <= 0 {
		return PurchasePayload{}, missing("document.id")
	}

	payload := PurchasePayload{
		Document: DocumentRef{ID: FlexInt(docID)},
		Date:     req.Date,
		Supplier: Party{
			Identification: req.Supplier.Identification,
			BranchOffice:   int64Ptr(req.Supplier.BranchOffice.Int64()),
		},
		DiscountType:    normalizeDiscountType(req.DiscountType),
		SupplierByItem:  req.SupplierByItem != nil && *req.SupplierByItem,
		TaxIncluded:     req.TaxIncluded != nil && *req.TaxIncluded,
		Items:           purchaseItems(req.Items),
		IncludePayments: req.IncludePayments == nil || *req.IncludePayments,
	}
	if req.CostCenter > 0 {
		payload.CostCenter = int64Ptr(req.CostCenter.Int64())
	}
	if req.ProviderInvoice != nil && (req.ProviderInvoice.Prefix != "" || req.ProviderInvoice.Number != "") {
		pi := *req.ProviderInvoice
		payload.ProviderInvoice = &pi
	}
	if req.Currency != nil && req.Currency.Code != "" {
		c := *req.Currency
		payload.Currency = &c
	}
	if req.Observations != nil {
		payload.Observations = *req.Observations
	}
	if payload.IncludePayments {
		payload.Payments = append([]Payment(nil), req.Payments...)
	}
	return payload, nil
}

func purchaseItems(in []ItemInput) []PurchaseItem {
	out := make([]PurchaseItem, 0, len(in))
	for _, it := range in {
		item := PurchaseItem{
			Type:        NormalizeItemType(it.Type),
			Code:        it.Code.String(),
			Description: it.Description,
			Quantity:    it.Quantity,
			Price:       it.Price,
			Discount:    it.Discount,
			Taxes:       it.Taxes,
		}
		if it.Warehouse > 0 {
			item.Warehouse = int64Ptr(it.Warehouse.Int64())
		}
		out = append(out, item)
	}
	return out
}

// SaleRequest is the caller body for a sale invoice (FV).
type SaleRequest struct {
	Document     *DocumentInput `json:"document"`
	Number       FlexInt        `json:"number"`
	Date         string         `json:"date"`
	Customer     *PartyInput    `json:"customer"`
	CostCenter   FlexInt        `json:"cost_center"`
	Seller       FlexInt        `json:"seller"`
	Observations string         `json:"observations"`
	Items        []ItemInput    `json:"items"`
	Payments     []Payment      `json:"payments"`
}

// SaleItem is a line of a sale invoice.
type SaleItem struct {
	Code        string           `json:"code"`
	Description string           `json:"description,omitempty"`
	Quantity    decimal.Decimal  `json:"quantity"`
	Price       decimal.Decimal  `json:"price"`
	Discount    *decimal.Decimal `json:"discount,omitempty"`
	Taxes       []TaxRef         `json:"taxes,omitempty"`
}

// SalePayload is the body POSTed to the Siigo invoices endpoint.
type SalePayload struct {
	Document     DocumentRef `json:"document"`
	Number       *int64      `json:"number,omitempty"`
	Date         string      `json:"date"`
	Customer     Party       `json:"customer"`
	CostCenter   *int64      `json:"cost_center,omitempty"`
	Seller       *int64      `json:"seller,omitempty"`
	Observations string      `json:"observations,omitempty"`
	Items        []SaleItem  `json:"items"`
	Payments     []Payment   `json:"payments"`
}

// BuildSale validates a sale invoice request and shapes it into a Siigo payload.
func BuildSale(req SaleRequest) (SalePayload, error) {
	if req.Document == nil || req.Document.ID <= 0 {
		return SalePayload{}, missing("document.id")
	}
	if req.Date == "" {
		return SalePayload{}, missing("date")
	}
	if req.Customer == nil || req.Customer.Identification == "" {
		return SalePayload{}, missing("customer.identification")
	}
	if len(req.Items) == 0 {
		return SalePayload{}, &ValidationError{Field: "items", Message: "Debe incluir al menos un ítem"}
	}
	if len(req.Payments) == 0 {
		return SalePayload{}, &ValidationError{Field: "payments", Message: "Debe incluir al menos una forma de pago"}
	}

	payload := SalePayload{
		Document:     DocumentRef{ID: req.Document.ID},
		Date:         req.Date,
		Customer:     Party{Identification: req.Customer.Identification, BranchOffice: int64Ptr(req.Customer.BranchOffice.Int64())},
		Observations: req.Observations,
		Payments:     req.Payments,
	}
	if req.Number > 0 {
		payload.Number = int64Ptr(req.Number.Int64())
	}
	if req.CostCenter > 0 {
		payload.CostCenter = int64Ptr(req.CostCenter.Int64())
	}
	if req.Seller > 0 {
		payload.Seller = int64Ptr(req.Seller.Int64())
	}
	for _, it := range req.Items {
		if it.Code == "" {
			return SalePayload{}, missing("items.code")
		}
		payload.Items = append(payload.Items, SaleItem{
			Code:        it.Code.String(),
			Description: it.Description,
			Quantity:    it.Quantity,
			Price:       it.Price,
			Discount:    it.Discount,
			Taxes:       it.Taxes,
		})
	}
	return payload, nil
}

// VoucherType is the kind of cash receipt.
type VoucherType string

const (
	VoucherDetailedPayment VoucherType = "DetailedPayment"
	VoucherAdvancePayment  VoucherType = "AdvancePayment"
)

// Due identifies the receivable a cash receipt line pays.
type Due struct {
	Prefix      string  `json:"prefix"`
	Consecutive FlexInt `json:"consecutive"`
	Quote       FlexInt `json:"quote"`
	Date        string  `json:"date,omitempty"`
}

// VoucherItem is one receivable settled by a cash receipt.
type VoucherItem struct {
	Due   *Due            `json:"due,omitempty"`
	Value decimal.Decimal `json:"value"`
}

// VoucherPayment is the single means of payment of a cash receipt.
type VoucherPayment struct {
	ID    FlexInt         `json:"id"`
	Value decimal.Decimal `json:"value"`
}

// CashReceiptRequest is the caller body for a cash receipt (RC).
type CashReceiptRequest struct {
	Document     *DocumentInput  `json:"document"`
	Date         string          `json:"date"`
	Type         string          `json:"type"`
	Customer     *PartyInput     `json:"customer"`
	CostCenter   FlexInt         `json:"cost_center"`
	Items        []VoucherItem   `json:"items"`
	Payment      *VoucherPayment `json:"payment"`
	Observations string          `json:"observations"`
}

// CashReceiptPayload is the body POSTed to the Siigo vouchers endpoint.
type CashReceiptPayload struct {
	Document     DocumentRef    `json:"document"`
	Date         string         `json:"date"`
	Type         VoucherType    `json:"type"`
	Customer     Party          `json:"customer"`
	CostCenter   *int64         `json:"cost_center,omitempty"`
	Items        []VoucherItem  `json:"items,omitempty"`
	Payment      VoucherPayment `json:"payment"`
	Observations string         `json:"observations,omitempty"`
}

// BuildCashReceipt validates a cash receipt request. A payment without value takes the
// sum of the settled items.
func BuildCashReceipt(req CashReceiptRequest) (CashReceiptPayload, error) {
	if req.Document == nil || req.Document.ID <= 0 {
		return CashReceiptPayload{}, missing("document.id")
	}
	if req.Date == "" {
		return CashReceiptPayload{}, missing("date")
	}
	if req.Customer == nil || req.Customer.Identification == "" {
		return CashReceiptPayload{}, missing("customer.identification")
	}
	if req.Payment == nil || req.Payment.ID <= 0 {
		return CashReceiptPayload{}, missing("payment.id")
	}

	vt := VoucherType(req.Type)
	switch vt {
	case "":
		vt = VoucherDetailedPayment
	case VoucherDetailedPayment, VoucherAdvancePayment:
	default:
		return CashReceiptPayload{}, &ValidationError{Field: "type", Message: "Tipo de recibo no válido: use DetailedPayment o AdvancePayment"}
	}
	if vt == VoucherDetailedPayment && len(req.Items) == 0 {
		return CashReceiptPayload{}, &ValidationError{Field: "items", Message: "Un recibo detallado debe incluir al menos un ítem"}
	}

	payload := CashReceiptPayload{
		Document:     DocumentRef{ID: req.Document.ID},
		Date:         req.Date,
		Type:         vt,
		Customer:     Party{Identification: req.Customer.Identification, BranchOffice: int64Ptr(req.Customer.BranchOffice.Int64())},
		Items:        req.Items,
		Payment:      *req.Payment,
		Observations: req.Observations,
	}
	if req.CostCenter > 0 {
		payload.CostCenter = int64Ptr(req.CostCenter.Int64())
	}
	if payload.Payment.Value.IsZero() {
		total := decimal.Zero
		for _, it := range req.Items {
			total = total.Add(it.Value)
		}
		payload.Payment.Value = total.Round(2)
	}
	return payload, nil
}
