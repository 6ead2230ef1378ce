package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
)

// TestingT is the subset of testing.T the helpers need.
type TestingT interface {
	Errorf(format string, args ...interface{})
	FailNow()
}

// ReadJSONResponse checks the status of a ResponseRecorder and unmarshals its JSON body.
func ReadJSONResponse(t TestingT, w *httptest.ResponseRecorder, wantStatus int, v interface{}) {
	if w.Code != wantStatus {
		t.Errorf("expected status %d, got %d: %s", wantStatus, w.Code, w.Body.String())
		t.FailNow()
	}

	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Errorf("failed to decode JSON response: %v", err)
		t.FailNow()
	}
}

// ReadErrorResponse reads an error envelope from a ResponseRecorder.
func ReadErrorResponse(t TestingT, w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Errorf("failed to decode error response: %v", err)
		t.FailNow()
	}
	return response
}

// CreateRequest creates an HTTP request with optional body and headers. A string or
// []byte body is sent as is, anything else is JSON encoded.
func CreateRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var payload []byte
	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	case []byte:
		payload = b
	default:
		payload, _ = json.Marshal(b)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}
