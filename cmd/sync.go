package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/calendar"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/google"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/store"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/syncer"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/tokens"
)

func newSyncCmd() *cobra.Command {
	var (
		debugMode          bool
		dbPath             string
		userID             string
		googleClientID     string
		googleClientSecret string
		windowMonths       int
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a one-shot sync cycle",
		Long: `Run a full sync cycle outside the server, for cron jobs and debugging.

Syncs a single user when --user is given, otherwise every user in the
database. Each sync aggregates the user's Google and household calendars
into a fresh snapshot.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(debugMode)

			if googleClientID == "" {
				googleClientID = os.Getenv("GOOGLE_CLIENT_ID")
			}
			if googleClientSecret == "" {
				googleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
			}

			st, err := store.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			var refresher tokens.Refresher = disabledRefresher{}
			if googleClientID != "" && googleClientSecret != "" {
				oauthFlow, err := google.NewOAuth(googleClientID, googleClientSecret, "")
				if err != nil {
					return fmt.Errorf("failed to configure Google OAuth: %w", err)
				}
				refresher = oauthFlow
			}

			tokenManager := tokens.NewManager(refresher, st, logger)
			orchestrator := syncer.NewOrchestrator(st, tokenManager,
				func(ctx context.Context, accountID, accessToken string) (syncer.ProviderClient, error) {
					return calendar.NewGoogleClient(ctx, accountID, accessToken)
				},
				logger,
				syncer.WithMonthsAhead(windowMonths),
			)

			ctx := cmd.Context()
			var userIDs []string
			if userID != "" {
				userIDs = []string{userID}
			} else {
				users, err := st.ListUsers(ctx)
				if err != nil {
					return fmt.Errorf("failed to list users: %w", err)
				}
				for _, u := range users {
					userIDs = append(userIDs, u.ID)
				}
			}
			if len(userIDs) == 0 {
				fmt.Println("No users to sync")
				return nil
			}

			var failed int
			for _, id := range userIDs {
				snap, err := orchestrator.SyncUser(ctx, id)
				if err != nil {
					failed++
					fmt.Fprintf(os.Stderr, "sync failed for user %s: %v\n", id, err)
					continue
				}
				fmt.Printf("synced user %s: %d calendars, %d events\n",
					id, len(snap.Calendars), len(snap.Events))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d syncs failed", failed, len(userIDs))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&dbPath, "db-path", "", "Path to the SQLite database (default ~/.famsync/data/famsync.db)")
	cmd.Flags().StringVar(&userID, "user", "", "Sync only this user ID")
	cmd.Flags().StringVar(&googleClientID, "google-client-id", "", "Google OAuth client ID (or GOOGLE_CLIENT_ID env var)")
	cmd.Flags().StringVar(&googleClientSecret, "google-client-secret", "", "Google OAuth client secret (or GOOGLE_CLIENT_SECRET env var)")
	cmd.Flags().IntVar(&windowMonths, "window-months", syncer.DefaultMonthsAhead, "How many months ahead the sync window covers")

	return cmd
}
