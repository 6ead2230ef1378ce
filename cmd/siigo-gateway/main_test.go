package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"3tcapital/ms_siigo_gateway/internal/infrastructure/config"
	"3tcapital/ms_siigo_gateway/internal/testutil"
)

func testConfig() config.AppConfig {
	return config.AppConfig{
		App:   config.AppSettings{Name: "ms_siigo_gateway", Environment: "test", Version: "test"},
		Log:   config.LogSettings{Level: "error"},
		Audit: config.AuditSettings{Enabled: true},
		Siigo: config.SiigoSettings{
			BaseURL:            "http://127.0.0.1:1/v1",
			AuthURL:            "http://127.0.0.1:1/auth",
			OperationTimeout:   time.Second,
			PurchaseDocumentID: 7291,
			DefaultPaymentID:   8467,
		},
		Cache: config.CacheSettings{CatalogTTL: time.Minute},
	}
}

func staticConfig(cfg config.AppConfig) configLoader {
	return func() (config.AppConfig, error) { return cfg, nil }
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd(staticConfig(testConfig()))

	for _, name := range []string{"serve", "token", "audit"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	token, _, _ := root.Find([]string{"token"})
	assert.NotNil(t, token.Flags().Lookup("force"))
}

func TestRootCmd_ConfigErrorStopsCommand(t *testing.T) {
	root := newRootCmd(func() (config.AppConfig, error) {
		return config.AppConfig{}, errors.New("invalid config: SIIGO_BASE_URL cannot be empty")
	})
	root.SetArgs([]string{"token"})

	err := root.ExecuteContext(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestTokenCmd_MissingCredentials(t *testing.T) {
	root := newRootCmd(staticConfig(testConfig()))
	root.SetArgs([]string{"token", "--force"})

	err := root.ExecuteContext(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SIIGO_USERNAME")
}

func TestAuditCmd_RequiresDatabase(t *testing.T) {
	root := newRootCmd(staticConfig(testConfig()))
	root.SetArgs([]string{"audit", "req-123"})

	err := root.ExecuteContext(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit trail unavailable")
}

func TestAuditCmd_RequiresCorrelationID(t *testing.T) {
	root := newRootCmd(staticConfig(testConfig()))
	root.SetArgs([]string{"audit"})

	assert.Error(t, root.ExecuteContext(context.Background()))
}

func TestNewGateway_WithoutInfrastructure(t *testing.T) {
	g := newGateway(context.Background(), testConfig(), testutil.NewNullLogger(), gatewayOptions{withDatabase: true, withCache: true})
	defer g.Close()

	assert.Nil(t, g.pool)
	assert.Nil(t, g.auditRepo)
	assert.Nil(t, g.redis)
	assert.NotNil(t, g.store, "falls back to the in-memory cache")
	assert.NotNil(t, g.documents)
	assert.NotNil(t, g.catalog)
	assert.Empty(t, g.checkers)
}

func TestNewGateway_UnreachableRedisFallsBack(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.RedisAddr = "127.0.0.1:1"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	g := newGateway(ctx, cfg, testutil.NewNullLogger(), gatewayOptions{withCache: true})
	defer g.Close()

	assert.Nil(t, g.redis)
	assert.NotNil(t, g.store)
}

func TestPrintTokenStatus(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	var buf bytes.Buffer

	require.NoError(t, printTokenStatus(&buf, now.Add(55*time.Minute), now))

	assert.Equal(t, "token ok, expira 2025-01-15T10:55:00Z (en 55m0s)\n", buf.String())
}
