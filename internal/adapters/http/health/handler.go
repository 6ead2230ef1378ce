package health

import (
	"log/slog"
	"net/http"

	apphealth "3tcapital/ms_siigo_gateway/internal/application/health"
	httperrors "3tcapital/ms_siigo_gateway/internal/infrastructure/http"
)

// Handler bridges HTTP traffic with the health application service.
type Handler struct {
	service *apphealth.Service
	log     *slog.Logger
}

func NewHandler(service *apphealth.Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// ServeHTTP answers 200 even when degraded; dependency state is in the body.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	httperrors.WriteJSON(w, http.StatusOK, h.service.Status(r.Context()), h.log)
}
