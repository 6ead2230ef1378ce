package invoice

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	appdocument "3tcapital/ms_siigo_gateway/internal/application/document"
	coredocument "3tcapital/ms_siigo_gateway/internal/core/document"
	ctxutil "3tcapital/ms_siigo_gateway/internal/infrastructure/context"
	httperrors "3tcapital/ms_siigo_gateway/internal/infrastructure/http"
	"3tcapital/ms_siigo_gateway/internal/infrastructure/http/middleware"
)

const (
	purchaseDescription    = "Facturas de Compra"
	purchaseCreatedMessage = "Factura de compra creada exitosamente"
	saleCreatedMessage     = "Factura de venta creada exitosamente"
)

// Handler bridges HTTP traffic with the invoice use cases of the document service.
type Handler struct {
	service *appdocument.Service
	log     *slog.Logger
}

// NewHandler creates a new invoice HTTP handler.
func NewHandler(service *appdocument.Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Register mounts the invoice routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/invoices", func(r chi.Router) {
		r.Get("/fc", h.ListPurchases)
		r.Post("/fc", h.CreatePurchase)
		r.Post("/fv", h.CreateSale)
	})
}

// ListPurchases handles GET /invoices/fc.
func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListDocuments(r.Context(), coredocument.ListQuery{
		Kind:     coredocument.KindPurchaseInvoice,
		Page:     httperrors.QueryInt(r, "page", 1),
		PageSize: httperrors.QueryInt(r, "page_size", httperrors.QueryInt(r, "pageSize", 0)),
	})
	if err != nil {
		httperrors.WriteFailure(w, err, h.log)
		return
	}

	docs := result.Documents
	if docs == nil {
		docs = []json.RawMessage{}
	}
	extra := map[string]any{
		"type":        coredocument.KindPurchaseInvoice,
		"description": purchaseDescription,
	}
	if len(result.Pagination) > 0 {
		extra["pagination"] = result.Pagination
	}
	httperrors.WriteSuccess(w, http.StatusOK, docs, extra, h.log)
}

// CreatePurchase handles POST /invoices/fc.
func (h *Handler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	var req coredocument.PurchaseRequest
	if err := httperrors.DecodeJSON(w, r, &req); err != nil {
		httperrors.WriteFailure(w, err, h.log)
		return
	}

	log := h.requestLogger(r)
	log.Info("Creating purchase invoice", "items", len(req.Items), "date", req.Date)

	created, err := h.service.CreatePurchaseInvoice(r.Context(), req)
	if err != nil {
		httperrors.WriteFailure(w, err, log)
		return
	}

	log.Info("Purchase invoice created")
	httperrors.WriteSuccess(w, http.StatusCreated, created, map[string]any{
		"message": purchaseCreatedMessage,
	}, h.log)
}

// CreateSale handles POST /invoices/fv.
func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req coredocument.SaleRequest
	if err := httperrors.DecodeJSON(w, r, &req); err != nil {
		httperrors.WriteFailure(w, err, h.log)
		return
	}

	log := h.requestLogger(r)
	log.Info("Creating sale invoice", "items", len(req.Items), "date", req.Date)

	created, err := h.service.CreateSaleInvoice(r.Context(), req)
	if err != nil {
		httperrors.WriteFailure(w, err, log)
		return
	}

	httperrors.WriteSuccess(w, http.StatusCreated, created, map[string]any{
		"message": saleCreatedMessage,
	}, h.log)
}

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	return h.log.With(
		"correlation_id", ctxutil.GetCorrelationID(r.Context()),
		"subject", middleware.Subject(r.Context()),
	)
}
