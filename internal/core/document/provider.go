package document

import (
	"context"
	"encoding/json"
)

// ListQuery selects a page of documents of one kind.
type ListQuery struct {
	Kind                Kind
	Page                int
	PageSize            int
	IncludeDependencies bool
}

// Page is one page of a Siigo listing. Results are kept raw so that fields the gateway does
// not model reach the caller unchanged.
type Page struct {
	Results      []json.RawMessage `json:"results"`
	Pagination   json.RawMessage   `json:"pagination,omitempty"`
	TotalResults int               `json:"-"`
}

// VoucherQuery selects a page of cash receipts. Page is 0-based.
type VoucherQuery struct {
	Page     int
	PageSize int
}

// Provider is the outbound port to the accounting platform.
type Provider interface {
	ListDocuments(ctx context.Context, query ListQuery) (*Page, error)
	GetDocument(ctx context.Context, kind Kind, id string) (json.RawMessage, error)
	UpdateDocument(ctx context.Context, kind Kind, id string, body any) (json.RawMessage, error)
	DeleteDocument(ctx context.Context, kind Kind, id string) (json.RawMessage, error)

	CreatePurchase(ctx context.Context, payload PurchasePayload) (json.RawMessage, error)
	CreateSale(ctx context.Context, payload SalePayload) (json.RawMessage, error)

	ListVouchers(ctx context.Context, query VoucherQuery) (*Page, error)
	CreateVoucher(ctx context.Context, payload CashReceiptPayload) (json.RawMessage, error)

	ListDocumentTypes(ctx context.Context, kind Kind) ([]DocumentType, error)
	ListDocumentTypesRaw(ctx context.Context, kind Kind) (json.RawMessage, error)
	ListPaymentTypes(ctx context.Context, documentType string) (json.RawMessage, error)
	ListTaxes(ctx context.Context) (json.RawMessage, error)
}
