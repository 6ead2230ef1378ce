package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"3tcapital/ms_siigo_gateway/internal/core/audit"
	ctxutil "3tcapital/ms_siigo_gateway/internal/infrastructure/context"
	"3tcapital/ms_siigo_gateway/internal/infrastructure/security"
)

const (
	providerName = "siigo"

	// defaultTimeout matches the default SIIGO_API_TIMEOUT.
	defaultTimeout           = 30 * time.Second
	defaultMaxConnsPerHost   = 50
	minResponseHeaderTimeout = 60 * time.Second
)

// TracedClient wraps an HTTP client to log every Siigo exchange and persist it to the
// audit trail. Headers, URLs and bodies are sanitized before they are logged or stored.
type TracedClient struct {
	client       *http.Client
	log          *slog.Logger
	auditRepo    audit.Repository
	auditEnabled bool
	logReqBody   bool
	logRespBody  bool
	maxBodySize  int
	saveTimeout  time.Duration
}

// TracedClientConfig holds configuration for the traced HTTP client.
type TracedClientConfig struct {
	Timeout         time.Duration // 0 means 30s
	AuditEnabled    bool
	LogRequestBody  bool
	LogResponseBody bool
	MaxBodySize     int
	MaxConnsPerHost int // 0 means 50
}

// NewTracedClient creates a traced client with its own pooled transport. auditRepo may be
// nil, in which case nothing is persisted.
func NewTracedClient(cfg TracedClientConfig, log *slog.Logger, auditRepo audit.Repository) *TracedClient {
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = 102400
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &TracedClient{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: newTransport(cfg),
		},
		log:          log,
		auditRepo:    auditRepo,
		auditEnabled: cfg.AuditEnabled,
		logReqBody:   cfg.LogRequestBody,
		logRespBody:  cfg.LogResponseBody,
		maxBodySize:  cfg.MaxBodySize,
		saveTimeout:  10 * time.Second,
	}
}

// newTransport sizes the connection pool for one upstream host. Response headers get
// at least minResponseHeaderTimeout because Siigo can be slow to answer large purchase
// creations.
func newTransport(cfg TracedClientConfig) *http.Transport {
	maxConnsPerHost := cfg.MaxConnsPerHost
	if maxConnsPerHost <= 0 {
		maxConnsPerHost = defaultMaxConnsPerHost
	}
	responseHeaderTimeout := cfg.Timeout
	if responseHeaderTimeout < minResponseHeaderTimeout {
		responseHeaderTimeout = minResponseHeaderTimeout
	}

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   maxConnsPerHost,
		MaxConnsPerHost:       maxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: responseHeaderTimeout,
		ExpectContinueTimeout: time.Second,
	}
}

// exchange is what one traced round trip leaves behind for logging and audit.
type exchange struct {
	correlationID string
	endpoint      string
	operation     string
	method        string
	url           string
	reqHeaders    http.Header
	reqBody       []byte
	resp          *http.Response
	respBody      []byte
	err           error
	duration      time.Duration
}

// Do executes req, logging the request and the response and persisting the exchange.
// Requests without a correlation ID get a fresh one so auth and API calls can be joined
// in the audit trail.
func (c *TracedClient) Do(req *http.Request) (*http.Response, error) {
	ctx, correlationID := ctxutil.EnsureCorrelationID(req.Context())
	req = req.WithContext(ctx)
	req.Header.Set(ctxutil.HeaderCorrelationID, correlationID)

	collection := ctxutil.GetCollection(ctx)
	ex := &exchange{
		correlationID: correlationID,
		endpoint:      audit.EndpointAPI,
		operation:     req.Method + " " + collection,
		method:        req.Method,
		url:           security.SanitizeURL(req.URL.String()),
		reqHeaders:    req.Header.Clone(),
	}
	if collection == ctxutil.CollectionAuth {
		ex.endpoint = audit.EndpointAuth
	}

	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			c.log.Error("Failed to read request body for tracing",
				"error", err,
				"correlation_id", correlationID,
			)
		}
		ex.reqBody = body
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	c.logRequest(ex)

	start := time.Now()
	resp, err := c.client.Do(req)
	ex.duration = time.Since(start)
	ex.resp, ex.err = resp, err

	if resp != nil && resp.Body != nil {
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		ex.respBody = body
		if readErr != nil {
			ex.err = fmt.Errorf("read response body: %w", readErr)
			resp, err = nil, ex.err
		} else {
			resp.Body = io.NopCloser(bytes.NewReader(body))
		}
	}

	c.logResponse(ex)

	if c.auditEnabled && c.auditRepo != nil {
		go c.persist(ex)
	}

	return resp, err
}

func (c *TracedClient) baseAttrs(ex *exchange) []any {
	return []any{
		"correlation_id", ex.correlationID,
		"provider", providerName,
		"endpoint", ex.endpoint,
		"operation", ex.operation,
		"method", ex.method,
		"url", ex.url,
	}
}

func (c *TracedClient) logRequest(ex *exchange) {
	attrs := c.baseAttrs(ex)
	if c.logReqBody && len(ex.reqBody) > 0 {
		attrs = append(attrs, "request_body", string(security.SanitizeBody(ex.reqBody, c.maxBodySize)))
	}
	c.log.Info("provider_request", attrs...)
}

func (c *TracedClient) logResponse(ex *exchange) {
	attrs := append(c.baseAttrs(ex), "duration_ms", ex.duration.Milliseconds())

	if ex.err != nil {
		if ex.resp != nil {
			attrs = append(attrs, "status", ex.resp.StatusCode)
		}
		attrs = append(attrs, "error", ex.err.Error())
		c.log.Error("provider_request_failed", attrs...)
		return
	}

	attrs = append(attrs,
		"status", ex.resp.StatusCode,
		"response_size_bytes", len(ex.respBody),
	)
	if c.logRespBody && len(ex.respBody) > 0 {
		attrs = append(attrs, "response_body", string(security.SanitizeBody(ex.respBody, c.maxBodySize)))
	}

	switch {
	case ex.resp.StatusCode >= 500:
		c.log.Error("provider_response", attrs...)
	case ex.resp.StatusCode >= 400:
		c.log.Warn("provider_response", attrs...)
	default:
		c.log.Info("provider_response", attrs...)
	}
}

// persist runs detached from the request context, which is usually cancelled by the
// time the audit insert runs.
func (c *TracedClient) persist(ex *exchange) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Panic in audit log persistence",
				"panic", r,
				"correlation_id", ex.correlationID,
				"operation", ex.operation,
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), c.saveTimeout)
	defer cancel()

	call := audit.Call{
		CorrelationID:  ex.correlationID,
		Endpoint:       ex.endpoint,
		Operation:      ex.operation,
		RequestMethod:  ex.method,
		RequestURL:     ex.url,
		RequestHeaders: security.SanitizeHeaders(ex.reqHeaders),
		DurationMs:     ex.duration.Milliseconds(),
	}
	if len(ex.reqBody) > 0 {
		call.RequestBody = security.SanitizeBody(ex.reqBody, c.maxBodySize)
	}
	if ex.resp != nil {
		status := ex.resp.StatusCode
		call.ResponseStatus = &status
		call.ResponseHeaders = security.SanitizeHeaders(ex.resp.Header)
		if len(ex.respBody) > 0 {
			call.ResponseBody = security.SanitizeBody(ex.respBody, c.maxBodySize)
		}
	}
	if ex.err != nil {
		call.ErrorMessage = ex.err.Error()
	}

	if err := c.auditRepo.Save(ctx, call); err != nil {
		c.log.Error("Failed to persist audit log",
			"error", err,
			"correlation_id", ex.correlationID,
			"operation", ex.operation,
			"response_status", call.ResponseStatus,
		)
		return
	}
	c.log.Debug("Audit log persisted",
		"correlation_id", ex.correlationID,
		"operation", ex.operation,
	)
}
