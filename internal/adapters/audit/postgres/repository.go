package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"3tcapital/ms_siigo_gateway/internal/core/audit"
)

const insertCall = `
	INSERT INTO provider_audit_log (
		correlation_id, endpoint, operation, request_method, request_url,
		request_headers, request_body, response_status, response_headers,
		response_body, duration_ms, error_message
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

const selectByCorrelationID = `
	SELECT id, correlation_id, endpoint, operation, request_method, request_url,
	       request_headers, request_body, response_status, response_headers,
	       response_body, duration_ms, error_message, created_at
	FROM provider_audit_log
	WHERE correlation_id = $1
	ORDER BY created_at DESC, id DESC
`

// Repository stores Siigo calls in the provider_audit_log table.
type Repository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

var _ audit.Repository = (*Repository)(nil)

// NewRepository creates a PostgreSQL audit repository. log may be nil.
func NewRepository(pool *pgxpool.Pool, log *slog.Logger) *Repository {
	return &Repository{pool: pool, log: log}
}

// Save inserts one call.
func (r *Repository) Save(ctx context.Context, call audit.Call) error {
	args, err := insertArgs(call)
	if err != nil {
		return err
	}

	if _, err := r.pool.Exec(ctx, insertCall, args...); err != nil {
		if r.log != nil {
			r.log.Error("Failed to insert audit log",
				"correlation_id", call.CorrelationID,
				"operation", call.Operation,
				"error", err,
			)
		}
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// insertArgs maps a call to the insertCall parameters. Empty bodies become NULL.
func insertArgs(call audit.Call) ([]any, error) {
	requestHeaders, err := json.Marshal(call.RequestHeaders)
	if err != nil {
		return nil, fmt.Errorf("marshal request headers: %w", err)
	}
	responseHeaders, err := json.Marshal(call.ResponseHeaders)
	if err != nil {
		return nil, fmt.Errorf("marshal response headers: %w", err)
	}

	return []any{
		call.CorrelationID,
		call.Endpoint,
		call.Operation,
		call.RequestMethod,
		call.RequestURL,
		requestHeaders,
		nullableJSON(call.RequestBody),
		call.ResponseStatus,
		responseHeaders,
		nullableJSON(call.ResponseBody),
		call.DurationMs,
		call.ErrorMessage,
	}, nil
}

func nullableJSON(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}

// FindByCorrelationID returns the calls made for one inbound request, most recent first.
func (r *Repository) FindByCorrelationID(ctx context.Context, correlationID string) ([]audit.Call, error) {
	rows, err := r.pool.Query(ctx, selectByCorrelationID, correlationID)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()

	var calls []audit.Call
	for rows.Next() {
		var (
			call                            audit.Call
			requestHeaders, responseHeaders []byte
			requestBody, responseBody       []byte
		)
		if err := rows.Scan(
			&call.ID,
			&call.CorrelationID,
			&call.Endpoint,
			&call.Operation,
			&call.RequestMethod,
			&call.RequestURL,
			&requestHeaders,
			&requestBody,
			&call.ResponseStatus,
			&responseHeaders,
			&responseBody,
			&call.DurationMs,
			&call.ErrorMessage,
			&call.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}

		if err := unmarshalHeaders(requestHeaders, &call.RequestHeaders); err != nil {
			return nil, fmt.Errorf("unmarshal request headers: %w", err)
		}
		if err := unmarshalHeaders(responseHeaders, &call.ResponseHeaders); err != nil {
			return nil, fmt.Errorf("unmarshal response headers: %w", err)
		}
		call.RequestBody = requestBody
		call.ResponseBody = responseBody

		calls = append(calls, call)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return calls, nil
}

func unmarshalHeaders(raw []byte, dst *map[string]string) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
