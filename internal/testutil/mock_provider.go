package testutil

import (
	"context"
	"encoding/json"

	"3tcapital/ms_siigo_gateway/internal/core/document"
)

// MockProvider is a mock implementation of document.Provider for testing.
type MockProvider struct {
	ListDocumentsFunc     func(ctx context.Context, query document.ListQuery) (*document.Page, error)
	GetDocumentFunc       func(ctx context.Context, kind document.Kind, id string) (json.RawMessage, error)
	UpdateDocumentFunc    func(ctx context.Context, kind document.Kind, id string, body any) (json.RawMessage, error)
	DeleteDocumentFunc    func(ctx context.Context, kind document.Kind, id string) (json.RawMessage, error)
	CreatePurchaseFunc    func(ctx context.Context, payload document.PurchasePayload) (json.RawMessage, error)
	CreateSaleFunc        func(ctx context.Context, payload document.SalePayload) (json.RawMessage, error)
	ListVouchersFunc      func(ctx context.Context, query document.VoucherQuery) (*document.Page, error)
	CreateVoucherFunc     func(ctx context.Context, payload document.CashReceiptPayload) (json.RawMessage, error)
	ListDocumentTypesFunc func(ctx context.Context, kind document.Kind) ([]document.DocumentType, error)
	ListPaymentTypesFunc  func(ctx context.Context, documentType string) (json.RawMessage, error)
	ListTaxesFunc         func(ctx context.Context) (json.RawMessage, error)

	ListDocumentTypesRawFunc func(ctx context.Context, kind document.Kind) (json.RawMessage, error)
}

var _ document.Provider = (*MockProvider)(nil)

// ListDocuments calls the mock function if set, otherwise returns an empty page.
func (m *MockProvider) ListDocuments(ctx context.Context, query document.ListQuery) (*document.Page, error) {
	if m.ListDocumentsFunc != nil {
		return m.ListDocumentsFunc(ctx, query)
	}
	return &document.Page{Results: []json.RawMessage{}}, nil
}

// GetDocument calls the mock function if set, otherwise returns an empty object.
func (m *MockProvider) GetDocument(ctx context.Context, kind document.Kind, id string) (json.RawMessage, error) {
	if m.GetDocumentFunc != nil {
		return m.GetDocumentFunc(ctx, kind, id)
	}
	return json.RawMessage(`{}`), nil
}

// UpdateDocument calls the mock function if set, otherwise returns an empty object.
func (m *MockProvider) UpdateDocument(ctx context.Context, kind document.Kind, id string, body any) (json.RawMessage, error) {
	if m.UpdateDocumentFunc != nil {
		return m.UpdateDocumentFunc(ctx, kind, id, body)
	}
	return json.RawMessage(`{}`), nil
}

// DeleteDocument calls the mock function if set, otherwise returns nil data.
func (m *MockProvider) DeleteDocument(ctx context.Context, kind document.Kind, id string) (json.RawMessage, error) {
	if m.DeleteDocumentFunc != nil {
		return m.DeleteDocumentFunc(ctx, kind, id)
	}
	return nil, nil
}

// CreatePurchase calls the mock function if set, otherwise returns an empty object.
func (m *MockProvider) CreatePurchase(ctx context.Context, payload document.PurchasePayload) (json.RawMessage, error) {
	if m.CreatePurchaseFunc != nil {
		return m.CreatePurchaseFunc(ctx, payload)
	}
	return json.RawMessage(`{}`), nil
}

// CreateSale calls the mock function if set, otherwise returns an empty object.
func (m *MockProvider) CreateSale(ctx context.Context, payload document.SalePayload) (json.RawMessage, error) {
	if m.CreateSaleFunc != nil {
		return m.CreateSaleFunc(ctx, payload)
	}
	return json.RawMessage(`{}`), nil
}

// ListVouchers calls the mock function if set, otherwise returns an empty page.
func (m *MockProvider) ListVouchers(ctx context.Context, query document.VoucherQuery) (*document.Page, error) {
	if m.ListVouchersFunc != nil {
		return m.ListVouchersFunc(ctx, query)
	}
	return &document.Page{Results: []json.RawMessage{}}, nil
}

// CreateVoucher calls the mock function if set, otherwise returns an empty object.
func (m *MockProvider) CreateVoucher(ctx context.Context, payload document.CashReceiptPayload) (json.RawMessage, error) {
	if m.CreateVoucherFunc != nil {
		return m.CreateVoucherFunc(ctx, payload)
	}
	return json.RawMessage(`{}`), nil
}

// ListDocumentTypes calls the mock function if set, otherwise returns an empty slice.
func (m *MockProvider) ListDocumentTypes(ctx context.Context, kind document.Kind) ([]document.DocumentType, error) {
	if m.ListDocumentTypesFunc != nil {
		return m.ListDocumentTypesFunc(ctx, kind)
	}
	return []document.DocumentType{}, nil
}

// ListDocumentTypesRaw calls the mock function if set, otherwise encodes the result of
// ListDocumentTypes.
func (m *MockProvider) ListDocumentTypesRaw(ctx context.Context, kind document.Kind) (json.RawMessage, error) {
	if m.ListDocumentTypesRawFunc != nil {
		return m.ListDocumentTypesRawFunc(ctx, kind)
	}
	types, err := m.ListDocumentTypes(ctx, kind)
	if err != nil {
		return nil, err
	}
	return json.Marshal(types)
}

// ListPaymentTypes calls the mock function if set, otherwise returns an empty array.
func (m *MockProvider) ListPaymentTypes(ctx context.Context, documentType string) (json.RawMessage, error) {
	if m.ListPaymentTypesFunc != nil {
		return m.ListPaymentTypesFunc(ctx, documentType)
	}
	return json.RawMessage(`[]`), nil
}

// ListTaxes calls the mock function if set, otherwise returns an empty array.
func (m *MockProvider) ListTaxes(ctx context.Context) (json.RawMessage, error) {
	if m.ListTaxesFunc != nil {
		return m.ListTaxesFunc(ctx)
	}
	return json.RawMessage(`[]`), nil
}
