package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	catalogapi "3tcapital/ms_siigo_gateway/internal/adapters/http/catalog"
	documentapi "3tcapital/ms_siigo_gateway/internal/adapters/http/document"
	healthapi "3tcapital/ms_siigo_gateway/internal/adapters/http/health"
	invoiceapi "3tcapital/ms_siigo_gateway/internal/adapters/http/invoice"
	voucherapi "3tcapital/ms_siigo_gateway/internal/adapters/http/voucher"
	apphealth "3tcapital/ms_siigo_gateway/internal/application/health"
	"3tcapital/ms_siigo_gateway/internal/infrastructure/config"
	"3tcapital/ms_siigo_gateway/internal/infrastructure/http/server"
	"3tcapital/ms_siigo_gateway/internal/infrastructure/logger"
	"3tcapital/ms_siigo_gateway/internal/infrastructure/metrics"
)

func main() {
	if err := newRootCmd(config.Load).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "siigo-gateway: %v\n", err)
		os.Exit(1)
	}
}

type configLoader func() (config.AppConfig, error)

func newRootCmd(load configLoader) *cobra.Command {
	root := &cobra.Command{
		Use:           "siigo-gateway",
		Short:         "Gateway HTTP hacia la API de Siigo",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(commandContext(cmd), load)
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Inicia el servidor HTTP (comando por defecto)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(commandContext(cmd), load)
			},
		},
		newTokenCmd(load),
		newAuditCmd(load),
	)
	return root
}

func newTokenCmd(load configLoader) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Obtiene un token de Siigo con las credenciales configuradas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(load)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(commandContext(cmd), cfg.Siigo.OperationTimeout)
			defer cancel()

			g := newGateway(ctx, cfg, log, gatewayOptions{})
			defer g.Close()

			if _, err := g.tokens.Token(ctx, force); err != nil {
				return fmt.Errorf("acquire token: %w", err)
			}
			return printTokenStatus(cmd.OutOrStdout(), g.tokens.ExpiresAt(), time.Now())
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "ignora el token en caché y solicita uno nuevo")
	return cmd
}

func newAuditCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "audit <correlation-id>",
		Short: "Muestra las llamadas a Siigo registradas para un correlation id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(load)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)

			g := newGateway(ctx, cfg, log, gatewayOptions{withDatabase: true})
			defer g.Close()
			if err := g.requireAuditRepo(); err != nil {
				return err
			}

			calls, err := g.auditRepo.FindByCorrelationID(ctx, args[0])
			if err != nil {
				return fmt.Errorf("find audit calls: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(calls)
		},
	}
}

func runServe(ctx context.Context, load configLoader) error {
	cfg, log, err := setup(load)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g := newGateway(ctx, cfg, log, gatewayOptions{withDatabase: true, withCache: true})
	defer g.Close()

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		metricsHandler = metrics.Handler(prometheus.DefaultGatherer)
	}

	health := apphealth.NewService(apphealth.Metadata{
		Service:     cfg.App.Name,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
	}, g.checkers...)

	srv, err := server.New(server.Options{
		Config:         cfg,
		Logger:         log,
		HealthHandler:  healthapi.NewHandler(health, log),
		MetricsHandler: metricsHandler,
		Routes: []server.RouteRegistrar{
			documentapi.NewHandler(g.documents, log),
			invoiceapi.NewHandler(g.documents, log),
			voucherapi.NewHandler(g.documents, log),
			catalogapi.NewHandler(g.catalog, log),
		},
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	defer srv.Close()

	log.Info("Starting HTTP server",
		"port", cfg.HTTP.Port,
		"siigo_base_url", cfg.Siigo.BaseURL,
		"auth_enabled", cfg.Auth.Enabled,
	)
	return srv.Run(ctx)
}

func setup(load configLoader) (config.AppConfig, *slog.Logger, error) {
	cfg, err := load()
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logger.New(cfg.App.Name, cfg.Log.Level, cfg.App.Environment), nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printTokenStatus(w io.Writer, expiresAt, now time.Time) error {
	_, err := fmt.Fprintf(w, "token ok, expira %s (en %s)\n",
		expiresAt.Format(time.RFC3339),
		expiresAt.Sub(now).Round(time.Second),
	)
	return err
}
