package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	auditpostgres "3tcapital/ms_siigo_gateway/internal/adapters/audit/postgres"
	"3tcapital/ms_siigo_gateway/internal/adapters/siigo"
	appcatalog "3tcapital/ms_siigo_gateway/internal/application/catalog"
	appdocument "3tcapital/ms_siigo_gateway/internal/application/document"
	apphealth "3tcapital/ms_siigo_gateway/internal/application/health"
	"3tcapital/ms_siigo_gateway/internal/core/audit"
	corehealth "3tcapital/ms_siigo_gateway/internal/core/health"
	"3tcapital/ms_siigo_gateway/internal/infrastructure/cache"
	"3tcapital/ms_siigo_gateway/internal/infrastructure/config"
	"3tcapital/ms_siigo_gateway/internal/infrastructure/database"
	httpclient "3tcapital/ms_siigo_gateway/internal/infrastructure/http"
)

// gateway holds the wired components shared by the CLI commands.
type gateway struct {
	cfg config.AppConfig
	log *slog.Logger

	pool      *pgxpool.Pool
	auditRepo audit.Repository
	redis     *cache.Redis
	store     cache.Store

	tokens    *siigo.TokenManager
	documents *appdocument.Service
	catalog   *appcatalog.Service
	checkers  []corehealth.Checker
}

type gatewayOptions struct {
	// withDatabase connects the audit database when one is configured.
	withDatabase bool
	// withCache connects Redis when one is configured.
	withCache bool
}

func newGateway(ctx context.Context, cfg config.AppConfig, log *slog.Logger, opts gatewayOptions) *gateway {
	g := &gateway{cfg: cfg, log: log}

	if opts.withDatabase {
		g.connectDatabase(ctx)
	}
	g.logAuditStatus()

	if opts.withCache {
		g.connectCache(ctx)
	}
	if g.store == nil {
		g.store = cache.NewMemory(cfg.Cache.CatalogTTL)
	}

	traced := httpclient.NewTracedClient(httpclient.TracedClientConfig{
		Timeout:         cfg.Siigo.APITimeout,
		AuditEnabled:    cfg.Audit.Enabled && g.auditRepo != nil,
		LogRequestBody:  cfg.Audit.LogRequestBody,
		LogResponseBody: cfg.Audit.LogResponseBody,
		MaxBodySize:     cfg.Audit.MaxBodySize,
		MaxConnsPerHost: cfg.Siigo.MaxConcurrent,
	}, log, g.auditRepo)

	creds := siigo.Credentials{
		Username:  cfg.Siigo.Username,
		AccessKey: cfg.Siigo.AccessKey,
		PartnerID: cfg.Siigo.PartnerID,
	}
	g.tokens = siigo.NewTokenManager(cfg.Siigo.AuthURL, creds, traced, log)

	executor := siigo.NewExecutor(siigo.ExecutorConfig{
		BaseURL:            cfg.Siigo.BaseURL,
		PartnerID:          cfg.Siigo.PartnerID,
		OperationTimeout:   cfg.Siigo.OperationTimeout,
		AuthRateLimitPause: cfg.Siigo.AuthRateLimitPause,
	}, g.tokens, traced, log,
		siigo.WithLimiter(siigo.NewRequestLimiter(cfg.Siigo.MaxConcurrent, cfg.Siigo.RateLimitRPS)),
	)

	provider := siigo.NewClient(executor, siigo.Paths{
		Purchases:       cfg.Siigo.PurchasesPath,
		PurchasesCreate: cfg.Siigo.PurchasesCreateURL,
		Vouchers:        cfg.Siigo.VouchersPath,
	}, log)

	g.documents = appdocument.NewService(provider, appdocument.Settings{
		PurchaseDocumentID: cfg.Siigo.PurchaseDocumentID,
		DefaultPaymentID:   cfg.Siigo.DefaultPaymentID,
	}, log)
	g.catalog = appcatalog.NewService(provider, g.store, cfg.Cache.CatalogTTL, log)

	if missing := creds.Missing(); len(missing) > 0 {
		log.Warn("Siigo credentials incomplete, requests will fail until configured", "missing", missing)
	}

	return g
}

// connectDatabase opens the audit database. Failures leave the audit trail disabled
// instead of stopping the gateway.
func (g *gateway) connectDatabase(ctx context.Context) {
	db := g.cfg.Database
	if !db.Enabled() {
		g.log.Info("Database not configured, audit trail will be disabled",
			"audit_enabled_config", g.cfg.Audit.Enabled,
		)
		return
	}

	pool, err := database.NewPool(ctx, db)
	if err != nil {
		g.log.Warn("Failed to connect to database, audit trail will be disabled",
			"error", err,
			"host", db.Host,
			"database", db.Database,
			"user", db.User,
			"password_set", db.Password != "",
		)
		return
	}
	if err := database.RunMigrations(ctx, pool, g.log); err != nil {
		pool.Close()
		g.log.Warn("Failed to migrate database, audit trail will be disabled", "error", err)
		return
	}

	g.pool = pool
	g.auditRepo = auditpostgres.NewRepository(pool, g.log)
	g.checkers = append(g.checkers, apphealth.CheckFunc{Label: "database", Fn: pool.Ping})
	g.log.Info("Database connection established", "database", db.Database)
}

func (g *gateway) logAuditStatus() {
	switch {
	case !g.cfg.Audit.Enabled:
		g.log.Info("Audit trail configuration: DISABLED - Audit not enabled in configuration")
	case g.auditRepo == nil:
		g.log.Warn("Audit trail configuration: DISABLED - Database connection required",
			"audit_enabled_config", g.cfg.Audit.Enabled,
		)
	default:
		g.log.Info("Audit trail configuration: ENABLED",
			"max_body_size", g.cfg.Audit.MaxBodySize,
		)
	}
}

// connectCache switches the catalog cache to Redis when configured. Failures fall back
// to the in-memory store.
func (g *gateway) connectCache(ctx context.Context) {
	c := g.cfg.Cache
	if c.RedisAddr == "" {
		return
	}
	r, err := cache.NewRedis(ctx, cache.RedisConfig{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
		Prefix:   c.RedisPrefix,
	})
	if err != nil {
		g.log.Warn("Failed to connect to Redis, using in-memory catalog cache", "error", err, "addr", c.RedisAddr)
		return
	}
	g.redis = r
	g.store = r
	g.checkers = append(g.checkers, apphealth.CheckFunc{Label: "redis", Fn: r.Ping})
	g.log.Info("Catalog cache backed by Redis", "addr", c.RedisAddr, "ttl", c.CatalogTTL)
}

func (g *gateway) Close() {
	if g.redis != nil {
		if err := g.redis.Close(); err != nil {
			g.log.Warn("Failed to close Redis client", "error", err)
		}
	}
	if g.pool != nil {
		g.pool.Close()
	}
}

func (g *gateway) requireAuditRepo() error {
	if g.auditRepo == nil {
		return fmt.Errorf("audit trail unavailable: configure DB_HOST and DB_NAME")
	}
	return nil
}
