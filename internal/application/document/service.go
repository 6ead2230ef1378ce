package document

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	coredocument "3tcapital/ms_siigo_gateway/internal/core/document"
	"3tcapital/ms_siigo_gateway/internal/core/upstream"
)

const (
	defaultListPageSize      = 50
	defaultNumberingPageSize = 50
	defaultMaxNumberAttempts = 5
	defaultVoucherPageSize   = 100
	dateLayout               = "2006-01-02"
)

// Settings holds the account specific defaults of the document flows.
type Settings struct {
	// PurchaseDocumentID is the FC document type used when the caller sends none.
	PurchaseDocumentID int64
	// DefaultPaymentID is the payment method used when a synthetic payment is built.
	DefaultPaymentID  int64
	NumberingPageSize int
	MaxNumberAttempts int
	VoucherPageSize   int
}

func (s Settings) withDefaults() Settings {
	if s.NumberingPageSize <= 0 {
		s.NumberingPageSize = defaultNumberingPageSize
	}
	if s.MaxNumberAttempts <= 0 {
		s.MaxNumberAttempts = defaultMaxNumberAttempts
	}
	if s.VoucherPageSize <= 0 {
		s.VoucherPageSize = defaultVoucherPageSize
	}
	return s
}

// Service orchestrates the document use cases on top of a Siigo provider.
type Service struct {
	provider coredocument.Provider
	settings Settings
	log      *slog.Logger
	now      func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the clock used to date merged updates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a document service.
func NewService(provider coredocument.Provider, settings Settings, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		settings: settings.withDefaults(),
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListResult is one page of documents as returned to the UI.
type ListResult struct {
	Documents  []json.RawMessage
	Pagination json.RawMessage
	Kind       coredocument.Kind
}

// ListDocuments lists documents of one kind. Payment receipts get a computed total.
func (s *Service) ListDocuments(ctx context.Context, query coredocument.ListQuery) (*ListResult, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.PageSize <= 0 {
		query.PageSize = defaultListPageSize
	}

	page, err := s.provider.ListDocuments(ctx, query)
	if err != nil {
		return nil, err
	}

	docs := page.Results
	if query.Kind == coredocument.KindPaymentReceipt {
		docs = make([]json.RawMessage, 0, len(page.Results))
		for _, raw := range page.Results {
			withTotal, err := coredocument.WithPaymentReceiptTotal(raw)
			if err != nil {
				s.log.Warn("Skipping total for unreadable payment receipt", "error", err)
				withTotal = raw
			}
			docs = append(docs, withTotal)
		}
	}

	return &ListResult{Documents: docs, Pagination: page.Pagination, Kind: query.Kind}, nil
}

// GetDocument fetches one document with its dependencies.
func (s *Service) GetDocument(ctx context.Context, kind coredocument.Kind, id string) (json.RawMessage, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	return s.provider.GetDocument(ctx, kind, id)
}

// DeleteDocument deletes one document. Siigo usually answers 204, giving nil data.
func (s *Service) DeleteDocument(ctx context.Context, kind coredocument.Kind, id string) (json.RawMessage, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	return s.provider.DeleteDocument(ctx, kind, id)
}

// UpdateDocument replaces a document. Purchase invoices are merged with their current
// state so that partial edits keep taxes, payments and header fields consistent. Other
// kinds are sent as received.
func (s *Service) UpdateDocument(ctx context.Context, kind coredocument.Kind, id string, body json.RawMessage) (json.RawMessage, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 || !json.Valid(body) {
		return nil, &coredocument.ValidationError{Field: "body", Message: "El cuerpo de la solicitud no es un JSON válido"}
	}

	if kind != coredocument.KindPurchaseInvoice {
		return s.provider.UpdateDocument(ctx, kind, id, body)
	}

	var in coredocument.PurchaseRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, &coredocument.ValidationError{Field: "body", Message: fmt.Sprintf("Cuerpo inválido: %v", err)}
	}

	raw, err := s.provider.GetDocument(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	var current coredocument.PurchaseRecord
	if err := json.Unmarshal(raw, &current); err != nil {
		return nil, fmt.Errorf("decode current purchase %s: %w", id, err)
	}

	payload, err := coredocument.MergePurchaseUpdate(in, current, s.now().Format(dateLayout), s.settings.DefaultPaymentID)
	if err != nil {
		return nil, err
	}

	s.log.Debug("Updating purchase invoice",
		"id", id,
		"document_id", payload.Document.ID,
		"items", len(payload.Items),
	)
	return s.provider.UpdateDocument(ctx, kind, id, payload)
}

// CreatePurchaseInvoice creates an FC purchase invoice. Without an explicit number and
// with a manually numbered document type, the next number is computed beforehand. A
// number rejected as missing or duplicated is replaced by the next free one, within
// MaxNumberAttempts retries.
func (s *Service) CreatePurchaseInvoice(ctx context.Context, req coredocument.PurchaseRequest) (json.RawMessage, error) {
	payload, err := coredocument.BuildPurchase(req, coredocument.PurchaseDefaults{DocumentID: s.settings.PurchaseDocumentID})
	if err != nil {
		return nil, err
	}

	requested, explicit := req.RequestedNumber()
	if explicit {
		payload.Number = &requested
	} else if n, ok := s.preflightNumber(ctx, &payload); ok {
		payload.Number = &n
	}

	if payload.IncludePayments {
		total := coredocument.PurchaseTotal(payload.Items, payload.DiscountType)
		if payments, changed := coredocument.ReconcilePayments(payload.Payments, total, payload.Date, s.settings.DefaultPaymentID); changed {
			s.log.Info("Purchase payments adjusted to items total",
				"requested", coredocument.PaymentsTotal(payload.Payments).String(),
				"total", total.String(),
			)
			payload.Payments = payments
		}
	}

	created, err := s.createPurchase(ctx, payload)
	if err == nil || explicit {
		return created, err
	}

	missingNumber, numberTaken := numberErrors(err)
	if !missingNumber && !numberTaken {
		return nil, err
	}

	var next int64
	if numberTaken && payload.Number != nil {
		next = *payload.Number + 1
	} else {
		next = s.nextFromList(ctx, payload.Document.ID.Int64())
	}
	return s.retryWithNumbers(ctx, payload, next)
}

func (s *Service) retryWithNumbers(ctx context.Context, payload coredocument.PurchasePayload, next int64) (json.RawMessage, error) {
	var lastErr error
	for attempt := 1; attempt <= s.settings.MaxNumberAttempts; attempt++ {
		n := next
		payload.Number = &n
		s.log.Info("Retrying purchase creation with a new number", "number", n, "attempt", attempt)

		created, err := s.createPurchase(ctx, payload)
		if err == nil {
			return created, nil
		}
		if _, taken := numberErrors(err); !taken {
			return nil, err
		}
		lastErr = err
		next++
	}

	return nil, &coredocument.NumberingError{
		Attempts:   s.settings.MaxNumberAttempts,
		LastNumber: next - 1,
		Err:        lastErr,
	}
}

func (s *Service) createPurchase(ctx context.Context, payload coredocument.PurchasePayload) (json.RawMessage, error) {
	created, err := s.provider.CreatePurchase(ctx, payload)
	if err != nil {
		return nil, err
	}
	if isEmptyDocument(created) {
		return nil, upstream.ErrEmptyResponse
	}
	return created, nil
}

// preflightNumber decides the number of a purchase before it is sent. It also swaps an
// inactive or unknown document type for the first active one. Failures are logged and
// leave the number to Siigo.
func (s *Service) preflightNumber(ctx context.Context, payload *coredocument.PurchasePayload) (int64, bool) {
	types, err := s.provider.ListDocumentTypes(ctx, coredocument.KindPurchaseInvoice)
	if err != nil {
		s.log.Warn("Could not read FC document types, sending without number", "error", err)
		return 0, false
	}

	wanted := payload.Document.ID.Int64()
	dt := coredocument.SelectDocumentType(types, wanted)
	if dt == nil {
		s.log.Warn("No active FC document type in Siigo")
		return 0, false
	}
	if dt.ID.Int64() != wanted {
		s.log.Warn("FC document type inactive or unknown, using first active one",
			"requested", wanted,
			"used", dt.ID.Int64(),
			"name", dt.Name,
		)
		payload.Document.ID = dt.ID
	}
	if dt.AutomaticNumber {
		return 0, false
	}

	computed := s.nextFromList(ctx, dt.ID.Int64())
	return coredocument.ReconcileConsecutive(computed, dt.Consecutive.Int64()), true
}

// nextFromList is one past the highest number among the latest FC purchases of the
// document type. It falls back to 1 when the listing fails.
func (s *Service) nextFromList(ctx context.Context, documentID int64) int64 {
	page, err := s.provider.ListDocuments(ctx, coredocument.ListQuery{
		Kind:     coredocument.KindPurchaseInvoice,
		Page:     1,
		PageSize: s.settings.NumberingPageSize,
	})
	if err != nil {
		s.log.Warn("Could not list purchases to compute next number", "error", err)
		return 1
	}

	summaries := make([]coredocument.Summary, 0, len(page.Results))
	for _, raw := range page.Results {
		var sum coredocument.Summary
		if err := json.Unmarshal(raw, &sum); err != nil {
			continue
		}
		summaries = append(summaries, sum)
	}
	return coredocument.NextNumber(summaries, documentID)
}

// CreateSaleInvoice creates an FV sale invoice.
func (s *Service) CreateSaleInvoice(ctx context.Context, req coredocument.SaleRequest) (json.RawMessage, error) {
	payload, err := coredocument.BuildSale(req)
	if err != nil {
		return nil, err
	}
	return s.provider.CreateSale(ctx, payload)
}

// VoucherPagination describes a cash receipt page in the UI's terms.
type VoucherPagination struct {
	CurrentPage  int `json:"currentPage"`
	PageSize     int `json:"pageSize"`
	TotalResults int `json:"totalResults"`
	TotalPages   int `json:"totalPages"`
}

// VoucherPage is one page of cash receipts.
type VoucherPage struct {
	Vouchers   []json.RawMessage `json:"vouchers"`
	Pagination VoucherPagination `json:"pagination"`
}

// ListVouchers lists cash receipts. Pages are 0-based.
func (s *Service) ListVouchers(ctx context.Context, page int) (*VoucherPage, error) {
	if page < 0 {
		page = 0
	}
	size := s.settings.VoucherPageSize

	res, err := s.provider.ListVouchers(ctx, coredocument.VoucherQuery{Page: page, PageSize: size})
	if err != nil {
		return nil, err
	}

	return &VoucherPage{
		Vouchers: res.Results,
		Pagination: VoucherPagination{
			CurrentPage:  page,
			PageSize:     size,
			TotalResults: res.TotalResults,
			TotalPages:   (res.TotalResults + size - 1) / size,
		},
	}, nil
}

// CreateVoucher creates an RC cash receipt.
func (s *Service) CreateVoucher(ctx context.Context, req coredocument.CashReceiptRequest) (json.RawMessage, error) {
	payload, err := coredocument.BuildCashReceipt(req)
	if err != nil {
		return nil, err
	}
	return s.provider.CreateVoucher(ctx, payload)
}

// numberErrors classifies a rejected create: Siigo requiring a number, or refusing one
// already in use.
func numberErrors(err error) (missingNumber, numberTaken bool) {
	var httpErr *upstream.UpstreamHTTPError
	if !errors.As(err, &httpErr) {
		return false, false
	}
	errs := httpErr.Errors()
	return upstream.HasError(errs, "parameter_required", "number"),
		upstream.HasError(errs, "already_exists", "number")
}

func isEmptyDocument(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null")) || bytes.Equal(t, []byte("{}"))
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return &coredocument.ValidationError{Field: "id", Message: "El identificador del documento es requerido"}
	}
	return nil
}
