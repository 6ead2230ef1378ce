package upstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyResponse means Siigo answered a create call with success but no document.
var ErrEmptyResponse = errors.New("la respuesta de Siigo está vacía o es inválida")

// ConfigurationError reports Siigo credentials that are missing from the environment.
// It is raised before any network call is attempted.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return "siigo credentials not configured: missing " + strings.Join(e.Missing, ", ")
}

// AuthError is a non-rate-limit failure of the Siigo auth endpoint.
type AuthError struct {
	Status  int
	Message string
	Body    json.RawMessage
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("siigo authentication failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("siigo authentication failed (status %d): %s", e.Status, e.Message)
}

func (e *AuthError) Unwrap() error { return e.Err }

// AuthRateLimitedError means the auth endpoint kept answering 429 after the retry.
type AuthRateLimitedError struct {
	Body json.RawMessage
}

func (e *AuthRateLimitedError) Error() string {
	return "siigo authentication rate limited (429) after retry"
}

// UpstreamHTTPError carries a non-2xx Siigo API response once the retry policy is exhausted.
// Body holds the parsed JSON payload when the response was valid JSON, Raw always holds the text.
type UpstreamHTTPError struct {
	Method string
	Path   string
	Status int
	Body   json.RawMessage
	Raw    string
}

func (e *UpstreamHTTPError) Error() string {
	msg := e.Message()
	if msg == "" {
		msg = strings.TrimSpace(e.Raw)
	}
	return fmt.Sprintf("siigo %s %s returned status %d: %s", e.Method, e.Path, e.Status, msg)
}

// Message extracts the human-readable message Siigo put in the error body.
func (e *UpstreamHTTPError) Message() string {
	return DescribeBody(e.Body)
}

// Errors returns the structured error entries of the response body.
func (e *UpstreamHTTPError) Errors() []APIError {
	return ParseErrors(e.Body)
}

// APIError is one entry of the "errors"/"Errors" array Siigo returns on validation failures.
type APIError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Params  []string `json:"params,omitempty"`
}

// Mentions reports whether the entry refers to the given request parameter, either through
// its params list or its message text.
func (a APIError) Mentions(param string) bool {
	for _, p := range a.Params {
		if strings.EqualFold(p, param) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(a.Message), strings.ToLower(param))
}

// HasError reports whether errs contains an entry with the given code about param.
// An empty param matches any entry with the code.
func HasError(errs []APIError, code, param string) bool {
	for _, e := range errs {
		if e.Code != code {
			continue
		}
		if param == "" || e.Mentions(param) {
			return true
		}
	}
	return false
}

// ParseErrors decodes the errors array of a Siigo response body. Siigo is inconsistent
// about casing, so both "errors"/"Errors" and their lower or upper case fields are accepted.
func ParseErrors(body []byte) []APIError {
	if len(body) == 0 {
		return nil
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}
	raw, ok := envelope["errors"]
	if !ok {
		raw, ok = envelope["Errors"]
	}
	if !ok {
		return nil
	}

	var entries []map[string]any
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}

	out := make([]APIError, 0, len(entries))
	for _, entry := range entries {
		out = append(out, APIError{
			Code:    firstString(entry, "code", "Code"),
			Message: firstString(entry, "message", "Message"),
			Params:  stringList(entry, "params", "Params"),
		})
	}
	return out
}

// DescribeBody picks the message of a Siigo error body. The first errors entry wins,
// then the OAuth style error_description and error fields, then a top level message.
func DescribeBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}
	for _, e := range ParseErrors(body) {
		if e.Message != "" {
			return e.Message
		}
	}
	return firstString(fields, "error_description", "error", "message", "Message")
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func stringList(m map[string]any, keys ...string) []string {
	for _, k := range keys {
		items, ok := m[k].([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
