package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"3tcapital/ms_siigo_gateway/internal/core/document"
)

// MaxBodyBytes bounds inbound JSON bodies.
const MaxBodyBytes = 1 << 20

// DecodeJSON decodes the request body into v. Malformed or oversized bodies come back
// as *document.ValidationError so WriteFailure answers 400.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	raw, err := ReadBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &document.ValidationError{Field: "body", Message: fmt.Sprintf("Cuerpo inválido: %v", err)}
	}
	return nil
}

// ReadBody returns the raw JSON body, rejecting empty or invalid payloads.
func ReadBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &document.ValidationError{Field: "body", Message: "El cuerpo de la solicitud es demasiado grande"}
		}
		return nil, &document.ValidationError{Field: "body", Message: "No fue posible leer el cuerpo de la solicitud"}
	}
	if len(strings.TrimSpace(string(raw))) == 0 || !json.Valid(raw) {
		return nil, &document.ValidationError{Field: "body", Message: "El cuerpo de la solicitud no es un JSON válido"}
	}
	return raw, nil
}

// QueryInt reads an integer query parameter, returning fallback when absent or invalid.
func QueryInt(r *http.Request, key string, fallback int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
