package catalog

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	appcatalog "3tcapital/ms_siigo_gateway/internal/application/catalog"
	"3tcapital/ms_siigo_gateway/internal/core/document"
	httperrors "3tcapital/ms_siigo_gateway/internal/infrastructure/http"
)

// Handler serves the cached Siigo catalogs.
type Handler struct {
	service *appcatalog.Service
	log     *slog.Logger
}

// NewHandler creates a catalog HTTP handler.
func NewHandler(service *appcatalog.Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Register mounts the catalog routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/taxes", h.Taxes)
	r.Get("/payment-methods", h.PaymentMethods)
	r.Get("/document-types", h.DocumentTypes)
}

// Taxes handles GET /taxes.
func (h *Handler) Taxes(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.Taxes(r.Context())
	if err != nil {
		httperrors.WriteFailure(w, err, h.log)
		return
	}
	httperrors.WriteSuccess(w, http.StatusOK, data, nil, h.log)
}

// PaymentMethods handles GET /payment-methods?document_type. FV when absent.
func (h *Handler) PaymentMethods(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.PaymentTypes(r.Context(), r.URL.Query().Get("document_type"))
	if err != nil {
		httperrors.WriteFailure(w, err, h.log)
		return
	}
	httperrors.WriteSuccess(w, http.StatusOK, data, nil, h.log)
}

// DocumentTypes handles GET /document-types?type. FC when absent.
func (h *Handler) DocumentTypes(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("type")
	if strings.TrimSpace(raw) == "" {
		raw = document.KindPurchaseInvoice.String()
	}
	kind, err := document.ParseKind(raw)
	if err != nil {
		httperrors.WriteFailure(w, err, h.log)
		return
	}

	data, err := h.service.DocumentTypes(r.Context(), kind)
	if err != nil {
		httperrors.WriteFailure(w, err, h.log)
		return
	}
	httperrors.WriteSuccess(w, http.StatusOK, data, map[string]any{"type": kind}, h.log)
}
