package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/cache"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/calendar"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/google"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/instrumentation"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/logging"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/mutation"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/server"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/store"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/syncer"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/tokens"
)

func newServeCmd() *cobra.Command {
	var (
		debugMode          bool
		httpAddr           string
		dbPath             string
		googleClientID     string
		googleClientSecret string
		redirectURL        string
		staleThreshold     time.Duration
		windowMonths       int
		eventPageSize      int64
		metricsEnabled     bool
		metricsAddr        string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the calendar API server",
		Long: `Start the famsyncd HTTP API server.

The server aggregates Google calendars and household calendars into a
cached snapshot per user and serves it to dashboards and wall displays.

Google Configuration:
  Account connection and token refresh need OAuth client credentials:
    --google-client-id and --google-client-secret flags
    OR GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars
  Without them the server still serves household calendars, but connected
  Google accounts are skipped once their access tokens expire.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(debugMode)

			if googleClientID == "" {
				googleClientID = os.Getenv("GOOGLE_CLIENT_ID")
			}
			if googleClientSecret == "" {
				googleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
			}

			shutdownCtx, cancel := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer cancel()

			instrConfig := instrumentation.DefaultConfig()
			instrConfig.ServiceVersion = version
			if !metricsEnabled {
				instrConfig.Enabled = false
			}
			if err := instrConfig.Validate(); err != nil {
				return fmt.Errorf("invalid instrumentation config: %w", err)
			}
			provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
			if err != nil {
				return fmt.Errorf("failed to initialize instrumentation: %w", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := provider.Shutdown(ctx); err != nil {
					logger.Error("failed to shutdown instrumentation", logging.Err(err))
				}
			}()
			metrics := provider.Metrics()

			st, err := store.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			var oauthFlow *google.OAuth
			var refresher tokens.Refresher = disabledRefresher{}
			if googleClientID != "" && googleClientSecret != "" {
				oauthFlow, err = google.NewOAuth(googleClientID, googleClientSecret, redirectURL)
				if err != nil {
					return fmt.Errorf("failed to configure Google OAuth: %w", err)
				}
				refresher = oauthFlow
			} else {
				logger.Warn("Google OAuth credentials not configured, account connection and token refresh are disabled")
			}

			tokenManager := tokens.NewManager(refresher, st, logger, tokens.WithMetrics(metrics))

			clientOpts := []calendar.ClientOption{
				calendar.WithPageSize(eventPageSize),
				calendar.WithMetrics(metrics),
			}
			orchestrator := syncer.NewOrchestrator(st, tokenManager,
				func(ctx context.Context, accountID, accessToken string) (syncer.ProviderClient, error) {
					return calendar.NewGoogleClient(ctx, accountID, accessToken, clientOpts...)
				},
				logger,
				syncer.WithMetrics(metrics),
				syncer.WithMonthsAhead(windowMonths),
			)
			gateway := cache.NewGateway(st, orchestrator, logger,
				cache.WithStaleThreshold(staleThreshold))
			mutator := mutation.NewService(st, tokenManager,
				func(ctx context.Context, accountID, accessToken string) (mutation.WriteClient, error) {
					return calendar.NewGoogleClient(ctx, accountID, accessToken, clientOpts...)
				},
				orchestrator,
				logger,
				mutation.WithMetrics(metrics),
			)

			serverOpts := []server.Option{
				server.WithMetrics(metrics),
				server.WithProviderAccess(tokenManager,
					func(ctx context.Context, accountID, accessToken string) (server.ProviderClient, error) {
						return calendar.NewGoogleClient(ctx, accountID, accessToken, clientOpts...)
					}),
			}
			if oauthFlow != nil {
				serverOpts = append(serverOpts, server.WithOAuth(oauthFlow))
			}
			apiServer := server.NewServer(server.Config{Addr: httpAddr},
				st, gateway, orchestrator, mutator, logger, serverOpts...)

			var metricsServer *server.MetricsServer
			if metricsEnabled && provider.Enabled() {
				metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
					Addr:                    metricsAddr,
					Enabled:                 true,
					InstrumentationProvider: provider,
				})
				if err != nil {
					return fmt.Errorf("failed to create metrics server: %w", err)
				}
				go func() {
					if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("metrics server failed", logging.Err(err))
					}
				}()
			}

			errCh := make(chan error, 1)
			go func() {
				if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case <-shutdownCtx.Done():
				logger.Info("shutdown signal received")
			case err := <-errCh:
				return fmt.Errorf("API server failed: %w", err)
			}

			if metricsServer != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				if err := metricsServer.Shutdown(ctx); err != nil {
					logger.Error("failed to shutdown metrics server", logging.Err(err))
				}
				cancel()
			}

			ctx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancelShutdown()
			if err := apiServer.Shutdown(ctx); err != nil {
				return fmt.Errorf("failed to shutdown API server: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&httpAddr, "http-addr", server.DefaultAddr, "Address for the HTTP API server")
	cmd.Flags().StringVar(&dbPath, "db-path", "", "Path to the SQLite database (default ~/.famsync/data/famsync.db)")
	cmd.Flags().StringVar(&googleClientID, "google-client-id", "", "Google OAuth client ID (or GOOGLE_CLIENT_ID env var)")
	cmd.Flags().StringVar(&googleClientSecret, "google-client-secret", "", "Google OAuth client secret (or GOOGLE_CLIENT_SECRET env var)")
	cmd.Flags().StringVar(&redirectURL, "redirect-url", "", "OAuth redirect URL (default out-of-band)")
	cmd.Flags().DurationVar(&staleThreshold, "stale-threshold", cache.DefaultStaleThreshold, "Snapshot age beyond which reads trigger a fresh sync")
	cmd.Flags().IntVar(&windowMonths, "window-months", syncer.DefaultMonthsAhead, "How many months ahead the sync window covers")
	cmd.Flags().Int64Var(&eventPageSize, "event-page-size", 0, "Events fetched per Google API page (0 uses the client default)")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the Prometheus metrics server")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Address for the metrics server")

	return cmd
}

// disabledRefresher stands in when no OAuth client credentials are
// configured. Refresh attempts fail as transient so accounts are skipped
// rather than flagged for re-auth.
type disabledRefresher struct{}

func (disabledRefresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	return nil, errors.New("google OAuth client credentials are not configured")
}
