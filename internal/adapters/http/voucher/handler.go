package voucher

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	appdocument "3tcapital/ms_siigo_gateway/internal/application/document"
	coredocument "3tcapital/ms_siigo_gateway/internal/core/document"
	httperrors "3tcapital/ms_siigo_gateway/internal/infrastructure/http"
)

const createdMessage = "Recibo de caja creado exitosamente"

// Handler exposes cash receipts (RC).
type Handler struct {
	service *appdocument.Service
	log     *slog.Logger
}

// NewHandler creates a voucher HTTP handler.
func NewHandler(service *appdocument.Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Register mounts the voucher routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/vouchers", h.List)
	r.Post("/vouchers", h.Create)
}

// List handles GET /vouchers?page. Pages are 0-based.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ListVouchers(r.Context(), httperrors.QueryInt(r, "page", 0))
	if err != nil {
		httperrors.WriteFailure(w, err, h.log)
		return
	}

	vouchers := page.Vouchers
	if vouchers == nil {
		vouchers = []json.RawMessage{}
	}
	httperrors.WriteSuccess(w, http.StatusOK, nil, map[string]any{
		"vouchers":   vouchers,
		"pagination": page.Pagination,
	}, h.log)
}

// Create handles POST /vouchers.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req coredocument.CashReceiptRequest
	if err := httperrors.DecodeJSON(w, r, &req); err != nil {
		httperrors.WriteFailure(w, err, h.log)
		return
	}

	created, err := h.service.CreateVoucher(r.Context(), req)
	if err != nil {
		httperrors.WriteFailure(w, err, h.log)
		return
	}

	httperrors.WriteSuccess(w, http.StatusCreated, created, map[string]any{
		"message": createdMessage,
	}, h.log)
}
