package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/mailrules/internal/auth"
	"github.com/teemow/mailrules/internal/engine"
	"github.com/teemow/mailrules/internal/instrumentation"
	"github.com/teemow/mailrules/internal/logging"
	"github.com/teemow/mailrules/internal/mail"
	"github.com/teemow/mailrules/internal/rules"
	"github.com/teemow/mailrules/internal/server"
)

// ServeConfig holds the configuration assembled from flags and
// environment for serve mode.
type ServeConfig struct {
	// Addr is the API server address (e.g., ":8080").
	Addr string

	// DBPath is the SQLite database path. Empty runs on an in-memory
	// store that does not survive a restart.
	DBPath string

	// GoogleClientID and GoogleClientSecret are the OAuth client
	// credentials used for token refresh.
	GoogleClientID     string
	GoogleClientSecret string

	// Metrics configures the dedicated Prometheus scrape port.
	Metrics MetricsConfig

	// Debug enables debug logging.
	Debug bool
}

// MetricsConfig holds configuration for the metrics server.
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	var config ServeConfig

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the JSON HTTP server",
		Long: `Start the JSON HTTP server that processes incoming email against stored
rules and exposes rule management endpoints.

Endpoints:
  POST   /v1/process     Evaluate an email against the caller's rules
  GET    /v1/rules       List rules
  POST   /v1/rules       Create a rule
  PUT    /v1/rules/{id}  Replace a rule
  DELETE /v1/rules/{id}  Delete a rule
  GET    /healthz        Liveness probe
  GET    /readyz         Readiness probe

Every API request names its identity via the X-User-Key header.

OAuth Configuration:
  --google-client-id and --google-client-secret flags
  OR GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars
  Required for automatic token refresh; without them tokens fail once
  they expire (~1 hour).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config.GoogleClientID, config.GoogleClientSecret = googleCredentials(config.GoogleClientID, config.GoogleClientSecret)

			// Load metrics config from environment if not set via flags
			if config.Metrics.Addr == server.DefaultMetricsAddr {
				if addr := os.Getenv("METRICS_ADDR"); addr != "" {
					config.Metrics.Addr = addr
				}
			}
			if os.Getenv("METRICS_ENABLED") == "false" {
				config.Metrics.Enabled = false
			}

			return runServe(config)
		},
	}

	cmd.Flags().BoolVar(&config.Debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&config.Addr, "http-addr", server.DefaultAddr, "HTTP server address")
	cmd.Flags().StringVar(&config.DBPath, "db", "", "SQLite database path. Empty runs on an in-memory store.")
	cmd.Flags().StringVar(&config.GoogleClientID, "google-client-id", "", "Google OAuth Client ID for token refresh. Can also use GOOGLE_CLIENT_ID env var.")
	cmd.Flags().StringVar(&config.GoogleClientSecret, "google-client-secret", "", "Google OAuth Client Secret for token refresh. Can also use GOOGLE_CLIENT_SECRET env var.")
	cmd.Flags().BoolVar(&config.Metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&config.Metrics.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

func runServe(config ServeConfig) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := logging.Setup(config.Debug)

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.Enabled = config.Metrics.Enabled
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Error("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	st, err := openStore(config.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	exchanger := auth.NewGoogleExchanger(config.GoogleClientID, config.GoogleClientSecret, "")
	refresher := auth.NewRefresher(st.Credentials, exchanger, logger, provider.Metrics())
	repository := rules.NewRepository(st.Rules, logger)
	gmailProvider := mail.NewGmailProvider(logger, mail.WithMetrics(provider.Metrics()))
	resolver := mail.NewResolver(gmailProvider, st.Folders, logger)
	executor := engine.NewExecutor(gmailProvider, resolver, logger, provider.Metrics())
	eng := engine.New(refresher, repository, executor, logger, provider.Metrics())

	// Start metrics server if enabled
	var metricsServer *server.MetricsServer
	if config.Metrics.Enabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    config.Metrics.Addr,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		// Confirm the metrics listener is up before serving traffic
		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		select {
		case <-metricsReady:
			logger.Info("metrics server started", slog.String("addr", metricsServer.Addr()))
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}
	}

	apiServer := server.New(server.Config{Addr: config.Addr}, eng, repository, logger, provider.Metrics())

	serveErr := make(chan error, 1)
	go func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("api server failed: %w", err)
	case <-shutdownCtx.Done():
	}

	logger.Info("shutdown signal received")
	drainCtx, drainCancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer drainCancel()

	if err := apiServer.Shutdown(drainCtx); err != nil {
		logger.Error("api server shutdown failed", logging.Err(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(drainCtx); err != nil {
			logger.Error("metrics server shutdown failed", logging.Err(err))
		}
	}
	return nil
}
