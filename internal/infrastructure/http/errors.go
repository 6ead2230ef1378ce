package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"3tcapital/ms_siigo_gateway/internal/core/document"
	"3tcapital/ms_siigo_gateway/internal/core/upstream"
)

// ErrorResponse represents a standardized error response format.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// WriteError writes a standardized JSON error response to the HTTP response writer.
// It sets the appropriate Content-Type header, status code, and encodes the error response.
func WriteError(w http.ResponseWriter, statusCode int, message string, details any, log *slog.Logger) {
	WriteJSON(w, statusCode, ErrorResponse{
		Success: false,
		Error:   message,
		Details: details,
	}, log)
}

// WriteSuccess writes {success:true, data} plus any extra top level fields.
func WriteSuccess(w http.ResponseWriter, statusCode int, data any, extra map[string]any, log *slog.Logger) {
	body := make(map[string]any, len(extra)+2)
	for k, v := range extra {
		body[k] = v
	}
	body["success"] = true
	if data != nil {
		body["data"] = data
	}
	WriteJSON(w, statusCode, body, log)
}

// WriteJSON encodes v with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, v any, log *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		// If encoding fails, log the error but don't try to write again
		// as the status code has already been written
		if log != nil {
			log.Error("failed to encode response", "error", err)
		}
	}
}

// WriteFailure maps an error from the document services to its status code and envelope.
func WriteFailure(w http.ResponseWriter, err error, log *slog.Logger) {
	status, message, details := classify(err)

	if log != nil {
		if status >= http.StatusInternalServerError {
			log.Error("Request failed", "status", status, "error", err)
		} else {
			log.Warn("Request rejected", "status", status, "error", err)
		}
	}

	WriteError(w, status, message, details, log)
}

func classify(err error) (int, string, any) {
	var (
		validationErr *document.ValidationError
		numberingErr  *document.NumberingError
		upstreamErr   *upstream.UpstreamHTTPError
		rateLimitErr  *upstream.AuthRateLimitedError
		authErr       *upstream.AuthError
		configErr     *upstream.ConfigurationError
	)

	switch {
	case errors.As(err, &validationErr):
		var details any
		if validationErr.Field != "" {
			details = map[string]string{"field": validationErr.Field}
		}
		return http.StatusBadRequest, validationErr.Error(), details
	case errors.As(err, &numberingErr):
		details := map[string]any{
			"attempts":   numberingErr.Attempts,
			"lastNumber": numberingErr.LastNumber,
		}
		if errors.As(numberingErr.Err, &upstreamErr) {
			details["siigo"] = upstreamDetails(upstreamErr)
		}
		return http.StatusBadRequest, numberingErr.Error(), details
	case errors.As(err, &upstreamErr):
		message := upstreamErr.Message()
		if message == "" {
			message = fmt.Sprintf("Siigo respondió con estado %d", upstreamErr.Status)
		}
		status := upstreamErr.Status
		if status < http.StatusBadRequest || status > 599 {
			status = http.StatusBadGateway
		}
		return status, message, upstreamDetails(upstreamErr)
	case errors.As(err, &rateLimitErr):
		return http.StatusTooManyRequests, "Siigo limitó las solicitudes de autenticación, intente nuevamente", rawDetails(rateLimitErr.Body)
	case errors.As(err, &authErr):
		return http.StatusBadGateway, "Error de autenticación con Siigo: " + authErr.Message, rawDetails(authErr.Body)
	case errors.As(err, &configErr):
		return http.StatusInternalServerError, "Credenciales de Siigo no configuradas", map[string]any{"missing": configErr.Missing}
	case errors.Is(err, upstream.ErrEmptyResponse):
		return http.StatusBadGateway, upstream.ErrEmptyResponse.Error(), nil
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "La operación con Siigo excedió el tiempo máximo de espera", nil
	default:
		return http.StatusInternalServerError, "Error interno del servidor", nil
	}
}

func upstreamDetails(e *upstream.UpstreamHTTPError) any {
	if len(e.Body) > 0 {
		return e.Body
	}
	if e.Raw != "" {
		return e.Raw
	}
	return nil
}

func rawDetails(body json.RawMessage) any {
	if len(body) == 0 {
		return nil
	}
	return body
}
