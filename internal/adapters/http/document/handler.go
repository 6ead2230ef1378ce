package document

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	appdocument "3tcapital/ms_siigo_gateway/internal/application/document"
	coredocument "3tcapital/ms_siigo_gateway/internal/core/document"
	httperrors "3tcapital/ms_siigo_gateway/internal/infrastructure/http"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
)

// Handler exposes generic document listing and single-document operations.
type Handler struct {
	service *appdocument.Service
	log     *slog.Logger
}

// NewHandler creates a document HTTP handler.
func NewHandler(service *appdocument.Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Register mounts the document routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/documents", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// List handles GET /documents?type&page&pageSize&includeDependencies.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	rawType := q.Get("type")
	if strings.TrimSpace(rawType) == "" {
		rawType = coredocument.KindPurchaseInvoice.String()
	}
	kind, err := coredocument.ParseKind(rawType)
	if err != nil {
		httperrors.WriteFailure(w, err, h.log)
		return
	}

	result, err := h.service.ListDocuments(r.Context(), coredocument.ListQuery{
		Kind:                kind,
		Page:                httperrors.QueryInt(r, "page", defaultPage),
		PageSize:            httperrors.QueryInt(r, "pageSize", defaultPageSize),
		IncludeDependencies: q.Get("includeDependencies") == "true",
	})
	if err != nil {
		httperrors.WriteFailure(w, err, h.log)
		return
	}

	docs := result.Documents
	if docs == nil {
		docs = []json.RawMessage{}
	}
	var pagination any
	if len(result.Pagination) > 0 {
		pagination = result.Pagination
	}

	httperrors.WriteSuccess(w, http.StatusOK, docs, map[string]any{
		"pagination": pagination,
		"type":       result.Kind,
	}, h.log)
}

// Get handles GET /documents/{id}?type.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.resourceKind(w, r)
	if !ok {
		return
	}

	data, err := h.service.GetDocument(r.Context(), kind, chi.URLParam(r, "id"))
	if err != nil {
		httperrors.WriteFailure(w, err, h.log)
		return
	}
	httperrors.WriteSuccess(w, http.StatusOK, data, nil, h.log)
}

// Update handles PUT /documents/{id}?type. Purchase invoices are merged with their
// current state; other kinds are forwarded as sent.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.resourceKind(w, r)
	if !ok {
		return
	}

	body, err := httperrors.ReadBody(w, r)
	if err != nil {
		httperrors.WriteFailure(w, err, h.log)
		return
	}

	data, err := h.service.UpdateDocument(r.Context(), kind, chi.URLParam(r, "id"), body)
	if err != nil {
		httperrors.WriteFailure(w, err, h.log)
		return
	}
	httperrors.WriteSuccess(w, http.StatusOK, data, nil, h.log)
}

// Delete handles DELETE /documents/{id}?type. A 204 from Siigo yields data null.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.resourceKind(w, r)
	if !ok {
		return
	}

	data, err := h.service.DeleteDocument(r.Context(), kind, chi.URLParam(r, "id"))
	if err != nil {
		httperrors.WriteFailure(w, err, h.log)
		return
	}
	httperrors.WriteSuccess(w, http.StatusOK, data, nil, h.log)
}

func (h *Handler) resourceKind(w http.ResponseWriter, r *http.Request) (coredocument.Kind, bool) {
	kind, err := coredocument.ParseResourceKind(r.URL.Query().Get("type"))
	if err != nil {
		httperrors.WriteFailure(w, err, h.log)
		return "", false
	}
	return kind, true
}
