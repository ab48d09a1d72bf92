package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/slotproxy/internal/calendar"
	"github.com/teemow/slotproxy/internal/config"
	"github.com/teemow/slotproxy/internal/google"
	"github.com/teemow/slotproxy/internal/instrumentation"
	"github.com/teemow/slotproxy/internal/logging"
	"github.com/teemow/slotproxy/internal/server"
	"github.com/teemow/slotproxy/internal/slots"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

// serveOptions collects the serve command flags.
type serveOptions struct {
	configPath string
	httpAddr   string
	debugMode  bool
	logFormat  string
	metrics    MetricsConfig
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the slot API server",
		Long: `Start the HTTP server that lists calendar slots and manages the runtime
slot configuration.

Configuration:
  Settings are read from the file given with --config (YAML or JSON) and
  from SLOTPROXY_* environment variables, for example:
    SLOTPROXY_CREDENTIALS_FILE=/secrets/service-account.json
    SLOTPROXY_SLOTS_CALENDAR_ID=team@example.com
    SLOTPROXY_STATE_TYPE=valkey
    SLOTPROXY_STATE_VALKEY_URL=valkey:6379

Endpoints:
  GET  /slots           Slot choices for the configured calendar
  GET  /config          The current mutable slot configuration
  POST /config/update   Replace the mutable slot configuration
  GET  /healthz, /readyz, /healthz/detailed, /calserv/

Metrics are served on a dedicated port (--metrics-addr) when enabled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			loadLogFormatEnvVar(cmd, &opts.logFormat)
			loadMetricsEnvVars(cmd, &opts.metrics)
			return runServe(opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to a YAML or JSON config file. Can also use SLOTPROXY_* env vars.")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", "", "HTTP server address. Defaults to the configured port (e.g. :4000).")
	cmd.Flags().BoolVar(&opts.debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", logging.FormatText, "Log output format: text or json. Can also use LOG_FORMAT env var.")

	// Metrics server flags
	cmd.Flags().BoolVar(&opts.metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&opts.metrics.Addr, "metrics-addr", ":9090", "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

func runServe(opts serveOptions) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewLogger(os.Stderr, opts.logFormat, opts.debugMode)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	credential, err := google.LoadCredentialFile(cfg.CredentialsFile)
	if err != nil {
		return fmt.Errorf("failed to load service account credentials: %w", err)
	}

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Error("error during instrumentation shutdown", logging.Err(err))
		}
	}()
	metrics := provider.Metrics()

	signer, err := google.NewSigner(credential, google.CalendarReadonlyScope)
	if err != nil {
		return fmt.Errorf("failed to create assertion signer: %w", err)
	}
	exchanger := google.NewExchanger(google.ExchangerConfig{
		TokenURL: credential.TokenURL(),
		Timeout:  cfg.UpstreamTimeout,
		Metrics:  metrics,
	})
	tokens := google.NewTokenProviderWithMetrics(signer, exchanger, cfg.TokenCache, metrics)

	store, closeStore, err := newConfigStore(shutdownCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	service := slots.NewService(slots.ServiceConfig{
		Configs: store,
		Tokens:  tokens,
		Events: calendar.NewClient(calendar.ClientConfig{
			Endpoint: cfg.CalendarEndpoint,
			Timeout:  cfg.UpstreamTimeout,
			Metrics:  metrics,
		}),
		Logger:  logger,
		Metrics: metrics,
	})

	// Start metrics server if enabled. Push exporters have nothing to scrape.
	if opts.metrics.Enabled && provider.Enabled() && provider.PrometheusHandler() != nil {
		metricsServer, err := startMetricsServer(provider, opts.metrics.Addr, logger)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Error("error during metrics server shutdown", logging.Err(err))
			}
		}()
	}

	serverContext, err := server.NewServerContext(shutdownCtx, server.ServerContextConfig{
		Slots:   service,
		Configs: store,
		Logger:  logger,
		Metrics: metrics,
		Audit:   provider.AuditLogger(logger),
	})
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}

	httpServer, err := server.NewHTTPServer(serverContext, server.HTTPServerConfig{
		Addr:    resolveHTTPAddr(opts.httpAddr, cfg.Port),
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	serverReady := make(chan struct{})
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.StartWithReadySignal(serverReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-serverReady:
		current := store.Current()
		logger.Info("slotproxy started",
			slog.String("version", version),
			logging.Calendar(current.CalendarID),
			slog.String("locale", current.Locale),
			slog.String("time_zone", current.Location.String()),
			slog.Bool("token_cache", cfg.TokenCache))
	case err := <-serverDone:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	}

	select {
	case <-shutdownCtx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		logger.Info("HTTP server stopped normally")
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}

// newConfigStore builds the config store on the configured persistence
// backend and restores any previously saved slot configuration. The returned
// func releases the backend.
func newConfigStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*config.Store, func(), error) {
	snapshot, err := cfg.Snapshot()
	if err != nil {
		return nil, nil, err
	}

	persister, err := config.NewPersister(cfg.State)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s state backend: %w", cfg.State.Type, err)
	}
	closeStore := func() {}
	if closer, ok := persister.(interface{ Close() }); ok {
		closeStore = closer.Close
	}

	store := config.NewStore(snapshot, persister, logger)
	restored, err := store.Restore(ctx)
	switch {
	case err != nil:
		logger.Warn("ignoring persisted slot config, using startup config",
			slog.String("state", cfg.State.Type), logging.Err(err))
	case restored:
		logger.Info("using persisted slot config", slog.String("state", cfg.State.Type))
	}

	if err := store.Mutable().Validate(); err != nil {
		logger.Warn("slot config is incomplete, /slots will fail until it is set via /config/update",
			logging.Err(err))
	}

	return store, closeStore, nil
}

// startMetricsServer starts the metrics server and waits until it listens.
func startMetricsServer(provider *instrumentation.Provider, addr string, logger *slog.Logger) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		Enabled:                 true,
		InstrumentationProvider: provider,
		Logger:                  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Use ready channel to confirm metrics server started successfully
	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	// Wait for metrics server to be ready or fail
	select {
	case <-metricsReady:
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

// resolveHTTPAddr returns the explicit address if set, else ":<port>".
func resolveHTTPAddr(addr string, port int) string {
	if addr != "" {
		return addr
	}
	return fmt.Sprintf(":%d", port)
}

// loadMetricsEnvVars loads metrics server configuration from environment variables.
// Environment variables only override flag values when the flag was not explicitly set.
func loadMetricsEnvVars(cmd *cobra.Command, config *MetricsConfig) {
	if !cmd.Flags().Changed("metrics-enabled") {
		if v := os.Getenv("METRICS_ENABLED"); v != "" {
			if enabled, err := strconv.ParseBool(v); err == nil {
				config.Enabled = enabled
			}
		}
	}

	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			config.Addr = addr
		}
	}
}

// loadLogFormatEnvVar applies LOG_FORMAT unless --log-format was set.
func loadLogFormatEnvVar(cmd *cobra.Command, format *string) {
	if cmd.Flags().Changed("log-format") {
		return
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		*format = v
	}
}
