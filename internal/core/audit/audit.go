package audit

import (
	"context"
	"encoding/json"
	"time"
)

// Endpoints a Call can target.
const (
	EndpointAuth = "auth"
	EndpointAPI  = "api"
)

// Call is one HTTP exchange with Siigo as stored in the audit trail. Headers and bodies
// are sanitized before they reach this struct.
type Call struct {
	ID              int64
	CorrelationID   string
	Endpoint        string
	Operation       string // Method and collection, e.g. "POST purchases"
	RequestMethod   string
	RequestURL      string
	RequestHeaders  map[string]string
	RequestBody     json.RawMessage
	ResponseStatus  *int
	ResponseHeaders map[string]string
	ResponseBody    json.RawMessage
	DurationMs      int64
	ErrorMessage    string
	CreatedAt       time.Time
}

// Failed reports whether the exchange errored or Siigo answered with a non-2xx status.
func (c Call) Failed() bool {
	if c.ErrorMessage != "" || c.ResponseStatus == nil {
		return true
	}
	return *c.ResponseStatus < 200 || *c.ResponseStatus > 299
}

// Repository persists and retrieves audit calls.
type Repository interface {
	Save(ctx context.Context, call Call) error

	// FindByCorrelationID returns every call made while serving one inbound request,
	// most recent first.
	FindByCorrelationID(ctx context.Context, correlationID string) ([]Call, error)
}
