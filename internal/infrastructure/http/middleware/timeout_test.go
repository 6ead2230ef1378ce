package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRequestTimeout(t *testing.T) {
	var deadline time.Time
	var hasDeadline bool
	handler := RequestTimeout(2 * time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, hasDeadline = r.Context().Deadline()
	}))

	start := time.Now()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/invoices/fc", nil))

	if !hasDeadline {
		t.Fatal("expected request context to carry a deadline")
	}
	if remaining := deadline.Sub(start); remaining > 2*time.Second || remaining < time.Second {
		t.Errorf("expected deadline about 2s away, got %v", remaining)
	}
}

func TestRequestTimeout_Disabled(t *testing.T) {
	var hasDeadline bool
	handler := RequestTimeout(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/documents", nil))

	if hasDeadline {
		t.Error("expected no deadline when disabled")
	}
}
