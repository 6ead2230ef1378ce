package siigo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"3tcapital/ms_siigo_gateway/internal/core/document"
)

// Paths overrides Siigo endpoints. Empty fields use the standard collections; values may
// be relative to the base URL or absolute.
type Paths struct {
	Purchases       string
	PurchasesCreate string
	Vouchers        string
}

func (p Paths) withDefaults() Paths {
	if p.Purchases == "" {
		p.Purchases = "purchases"
	}
	if p.PurchasesCreate == "" {
		p.PurchasesCreate = p.Purchases
	}
	if p.Vouchers == "" {
		p.Vouchers = "vouchers"
	}
	return p
}

// Requester executes Siigo API requests.
type Requester interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// Client implements document.Provider against the Siigo REST API.
type Client struct {
	exec  Requester
	paths Paths
	log   *slog.Logger
}

// NewClient creates a Siigo provider client.
func NewClient(exec Requester, paths Paths, log *slog.Logger) *Client {
	return &Client{exec: exec, paths: paths.withDefaults(), log: log}
}

var _ document.Provider = (*Client)(nil)

const (
	collectionPurchases     = "purchases"
	collectionInvoices      = "invoices"
	collectionVouchers      = "vouchers"
	collectionDocumentTypes = "document-types"
	collectionPaymentTypes  = "payment-types"
	collectionTaxes         = "taxes"
)

// collection returns the path that serves kind and the fixed name that labels it.
// The label ignores path overrides so metric series stay bounded.
func (c *Client) collection(kind document.Kind, forList bool) (path, label string) {
	if kind == document.KindPurchaseInvoice || (forList && kind.FiltersByDocumentType()) {
		return c.paths.Purchases, collectionPurchases
	}
	if forList {
		return kind.ListCollection(), kind.ListCollection()
	}
	return kind.ResourceCollection(), kind.ResourceCollection()
}

func (c *Client) resource(method string, kind document.Kind, id string) Request {
	path, label := c.collection(kind, false)
	return Request{Method: method, Path: path + "/" + url.PathEscape(id), Collection: label}
}

// ListDocuments fetches one page of documents of a kind.
func (c *Client) ListDocuments(ctx context.Context, query document.ListQuery) (*document.Page, error) {
	q := url.Values{}
	if query.Kind.FiltersByDocumentType() {
		q.Set("document_type", query.Kind.String())
	}
	if query.Page > 0 {
		q.Set("page", strconv.Itoa(query.Page))
	}
	if query.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(query.PageSize))
	}
	if query.IncludeDependencies {
		q.Set("include_dependencies", "true")
	}

	path, label := c.collection(query.Kind, true)
	res, err := c.exec.Do(ctx, Request{Method: http.MethodGet, Path: path, Collection: label, Query: q})
	if err != nil {
		return nil, fmt.Errorf("list %s documents: %w", query.Kind, err)
	}
	return decodePage(res.Data)
}

// GetDocument fetches one document with its dependencies.
func (c *Client) GetDocument(ctx context.Context, kind document.Kind, id string) (json.RawMessage, error) {
	req := c.resource(http.MethodGet, kind, id)
	req.Query = url.Values{"include_dependencies": {"true"}}
	res, err := c.exec.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("get %s document %s: %w", kind, id, err)
	}
	return res.Data, nil
}

// UpdateDocument replaces a document.
func (c *Client) UpdateDocument(ctx context.Context, kind document.Kind, id string, body any) (json.RawMessage, error) {
	req := c.resource(http.MethodPut, kind, id)
	req.Body = body
	res, err := c.exec.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("update %s document %s: %w", kind, id, err)
	}
	return res.Data, nil
}

// DeleteDocument deletes a document. A 204 answer yields nil data.
func (c *Client) DeleteDocument(ctx context.Context, kind document.Kind, id string) (json.RawMessage, error) {
	res, err := c.exec.Do(ctx, c.resource(http.MethodDelete, kind, id))
	if err != nil {
		return nil, fmt.Errorf("delete %s document %s: %w", kind, id, err)
	}
	return res.Data, nil
}

// CreatePurchase posts a purchase invoice.
func (c *Client) CreatePurchase(ctx context.Context, payload document.PurchasePayload) (json.RawMessage, error) {
	res, err := c.exec.Do(ctx, Request{Method: http.MethodPost, Path: c.paths.PurchasesCreate, Collection: collectionPurchases, Body: payload})
	if err != nil {
		return nil, fmt.Errorf("create purchase: %w", err)
	}
	return res.Data, nil
}

// CreateSale posts a sale invoice.
func (c *Client) CreateSale(ctx context.Context, payload document.SalePayload) (json.RawMessage, error) {
	res, err := c.exec.Do(ctx, Request{Method: http.MethodPost, Path: "invoices", Collection: collectionInvoices, Body: payload})
	if err != nil {
		return nil, fmt.Errorf("create sale invoice: %w", err)
	}
	return res.Data, nil
}

// ListVouchers fetches one page of cash receipts.
func (c *Client) ListVouchers(ctx context.Context, query document.VoucherQuery) (*document.Page, error) {
	q := url.Values{
		"numberPage":    {strconv.Itoa(query.Page)},
		"pageSize":      {strconv.Itoa(query.PageSize)},
		"document_type": {document.KindCashReceipt.String()},
	}
	res, err := c.exec.Do(ctx, Request{Method: http.MethodGet, Path: c.paths.Vouchers, Collection: collectionVouchers, Query: q})
	if err != nil {
		return nil, fmt.Errorf("list vouchers: %w", err)
	}
	return decodePage(res.Data)
}

// CreateVoucher posts a cash receipt.
func (c *Client) CreateVoucher(ctx context.Context, payload document.CashReceiptPayload) (json.RawMessage, error) {
	res, err := c.exec.Do(ctx, Request{Method: http.MethodPost, Path: c.paths.Vouchers, Collection: collectionVouchers, Body: payload})
	if err != nil {
		return nil, fmt.Errorf("create voucher: %w", err)
	}
	return res.Data, nil
}

// ListDocumentTypesRaw fetches the document-type configurations for a kind as Siigo
// returns them.
func (c *Client) ListDocumentTypesRaw(ctx context.Context, kind document.Kind) (json.RawMessage, error) {
	res, err := c.exec.Do(ctx, Request{
		Method:     http.MethodGet,
		Path:       "document-types",
		Collection: collectionDocumentTypes,
		Query:      url.Values{"type": {kind.String()}},
	})
	if err != nil {
		return nil, fmt.Errorf("list %s document types: %w", kind, err)
	}
	return res.Data, nil
}

// ListDocumentTypes fetches the document-type configurations for a kind.
func (c *Client) ListDocumentTypes(ctx context.Context, kind document.Kind) ([]document.DocumentType, error) {
	data, err := c.ListDocumentTypesRaw(ctx, kind)
	if err != nil {
		return nil, err
	}

	var types []document.DocumentType
	if err := json.Unmarshal(data, &types); err != nil {
		page, perr := decodePage(data)
		if perr != nil {
			return nil, fmt.Errorf("decode document types: %w", err)
		}
		for _, r := range page.Results {
			var t document.DocumentType
			if err := json.Unmarshal(r, &t); err != nil {
				return nil, fmt.Errorf("decode document type: %w", err)
			}
			types = append(types, t)
		}
	}
	return types, nil
}

// ListPaymentTypes fetches the payment methods valid for a document type.
func (c *Client) ListPaymentTypes(ctx context.Context, documentType string) (json.RawMessage, error) {
	res, err := c.exec.Do(ctx, Request{
		Method:     http.MethodGet,
		Path:       "payment-types",
		Collection: collectionPaymentTypes,
		Query:      url.Values{"document_type": {documentType}},
	})
	if err != nil {
		return nil, fmt.Errorf("list payment types: %w", err)
	}
	return res.Data, nil
}

// ListTaxes fetches the configured taxes.
func (c *Client) ListTaxes(ctx context.Context) (json.RawMessage, error) {
	res, err := c.exec.Do(ctx, Request{Method: http.MethodGet, Path: "taxes", Collection: collectionTaxes})
	if err != nil {
		return nil, fmt.Errorf("list taxes: %w", err)
	}
	return res.Data, nil
}

type pageEnvelope struct {
	Results    []json.RawMessage `json:"results"`
	Pagination json.RawMessage   `json:"pagination"`
}

type paginationCounts struct {
	TotalResults      *int `json:"total_results"`
	TotalResultsCamel *int `json:"totalResults"`
}

// decodePage accepts both a bare array and the {results, pagination} envelope.
func decodePage(data json.RawMessage) (*document.Page, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return &document.Page{Results: []json.RawMessage{}}, nil
	}
	if trimmed[0] == '[' {
		var results []json.RawMessage
		if err := json.Unmarshal(trimmed, &results); err != nil {
			return nil, fmt.Errorf("decode results: %w", err)
		}
		return &document.Page{Results: results, TotalResults: len(results)}, nil
	}

	var env pageEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	page := &document.Page{Results: env.Results, Pagination: env.Pagination}
	if page.Results == nil {
		page.Results = []json.RawMessage{}
	}
	if len(env.Pagination) > 0 {
		var counts paginationCounts
		if err := json.Unmarshal(env.Pagination, &counts); err == nil {
			switch {
			case counts.TotalResults != nil:
				page.TotalResults = *counts.TotalResults
			case counts.TotalResultsCamel != nil:
				page.TotalResults = *counts.TotalResultsCamel
			}
		}
	}
	return page, nil
}
