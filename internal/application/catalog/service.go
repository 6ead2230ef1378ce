package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"3tcapital/ms_siigo_gateway/internal/core/document"
	"3tcapital/ms_siigo_gateway/internal/infrastructure/cache"
)

const (
	// DefaultTTL is how long catalog reads are served from the cache.
	DefaultTTL = 10 * time.Minute

	defaultPaymentDocumentType = "FV"
	loadTimeout                = 30 * time.Second
)

// Service serves the slow-changing Siigo catalogs (taxes, payment types, document
// types) from a cache. A nil store disables caching.
type Service struct {
	provider document.Provider
	store    cache.Store
	ttl      time.Duration
	group    singleflight.Group
	log      *slog.Logger
}

// NewService creates a catalog service. A non-positive ttl means DefaultTTL.
func NewService(provider document.Provider, store cache.Store, ttl time.Duration, log *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{provider: provider, store: store, ttl: ttl, log: log}
}

// Taxes returns the configured taxes.
func (s *Service) Taxes(ctx context.Context) (json.RawMessage, error) {
	return s.cached(ctx, "catalog:taxes", func(ctx context.Context) (json.RawMessage, error) {
		return s.provider.ListTaxes(ctx)
	})
}

// PaymentTypes returns the payment methods valid for a document type, FV by default.
func (s *Service) PaymentTypes(ctx context.Context, documentType string) (json.RawMessage, error) {
	documentType = strings.ToUpper(strings.TrimSpace(documentType))
	if documentType == "" {
		documentType = defaultPaymentDocumentType
	}
	return s.cached(ctx, "catalog:payment-types:"+documentType, func(ctx context.Context) (json.RawMessage, error) {
		return s.provider.ListPaymentTypes(ctx, documentType)
	})
}

// DocumentTypes returns the document-type configurations of a kind exactly as Siigo
// sent them.
func (s *Service) DocumentTypes(ctx context.Context, kind document.Kind) (json.RawMessage, error) {
	return s.cached(ctx, "catalog:document-types:"+kind.String(), func(ctx context.Context) (json.RawMessage, error) {
		return s.provider.ListDocumentTypesRaw(ctx, kind)
	})
}

func (s *Service) cached(ctx context.Context, key string, load func(context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	if s.store == nil {
		return load(ctx)
	}
	if b, ok := s.store.Get(key); ok {
		return json.RawMessage(b), nil
	}

	ch := s.group.DoChan(key, func() (any, error) {
		// Waiters share this load, so it outlives the caller that started it.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		if b, ok := s.store.Get(key); ok {
			return json.RawMessage(b), nil
		}
		data, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		s.store.Set(key, data, s.ttl)
		return data, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.log.Debug("Catalog load shared", "key", key)
		}
		return res.Val.(json.RawMessage), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
