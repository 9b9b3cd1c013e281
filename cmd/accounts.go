package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/calendar"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/google"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/store"
)

func newAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage connected Google accounts",
	}
	cmd.AddCommand(newAccountsListCmd())
	cmd.AddCommand(newAccountsConnectCmd())
	cmd.AddCommand(newAccountsDisconnectCmd())
	return cmd
}

func newAccountsListCmd() *cobra.Command {
	var (
		dbPath string
		userID string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List connected accounts for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			accounts, err := st.ListAccounts(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}
			if len(accounts) == 0 {
				fmt.Println("No connected accounts")
				return nil
			}
			for _, a := range accounts {
				status := "ok"
				if a.NeedsReauth() {
					status = "reauth required (" + a.AuthError + ")"
				} else if a.AuthError != store.AuthErrorNone {
					status = a.AuthError
				}
				fmt.Printf("%s  %s  %s  %s\n", a.ID, a.Provider, a.Email, status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db-path", "", "Path to the SQLite database")
	cmd.Flags().StringVar(&userID, "user", "", "User ID whose accounts to list")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newAccountsConnectCmd() *cobra.Command {
	var (
		dbPath             string
		userID             string
		googleClientID     string
		googleClientSecret string
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect a Google account via the out-of-band OAuth flow",
		Long: `Connect a Google account to a user.

Prints a consent URL, waits for the authorization code to be pasted back,
then exchanges and stores the account's tokens. Requires OAuth client
credentials via flags or GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if googleClientID == "" {
				googleClientID = os.Getenv("GOOGLE_CLIENT_ID")
			}
			if googleClientSecret == "" {
				googleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
			}

			oauthFlow, err := google.NewOAuth(googleClientID, googleClientSecret, "")
			if err != nil {
				return fmt.Errorf("failed to configure Google OAuth: %w", err)
			}

			st, err := store.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			ctx := cmd.Context()
			if _, err := st.GetUser(ctx, userID); err != nil {
				return fmt.Errorf("failed to load user %s: %w", userID, err)
			}

			fmt.Printf("Visit the URL below, grant access, then paste the code here.\n\n%s\n\nCode: ",
				oauthFlow.AuthURL(uuid.NewString()))

			reader := bufio.NewReader(os.Stdin)
			code, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read authorization code: %w", err)
			}
			code = strings.TrimSpace(code)
			if code == "" {
				return fmt.Errorf("authorization code is required")
			}

			tok, err := oauthFlow.Exchange(ctx, code)
			if err != nil {
				return fmt.Errorf("failed to exchange authorization code: %w", err)
			}
			email, err := oauthFlow.FetchEmail(ctx, tok)
			if err != nil {
				return fmt.Errorf("failed to fetch account email: %w", err)
			}

			account := &store.Account{
				ID:           uuid.NewString(),
				UserID:       userID,
				Provider:     calendar.ProviderGoogle,
				Email:        email,
				AccessToken:  tok.AccessToken,
				RefreshToken: tok.RefreshToken,
				TokenExpiry:  tok.Expiry,
				Scopes:       oauthFlow.Scopes(),
			}
			if err := st.SaveAccount(ctx, account); err != nil {
				return fmt.Errorf("failed to save account: %w", err)
			}

			fmt.Printf("Connected %s as account %s\n", email, account.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db-path", "", "Path to the SQLite database")
	cmd.Flags().StringVar(&userID, "user", "", "User ID to connect the account to")
	cmd.Flags().StringVar(&googleClientID, "google-client-id", "", "Google OAuth client ID (or GOOGLE_CLIENT_ID env var)")
	cmd.Flags().StringVar(&googleClientSecret, "google-client-secret", "", "Google OAuth client secret (or GOOGLE_CLIENT_SECRET env var)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newAccountsDisconnectCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "disconnect <account-id>",
		Short: "Disconnect an account and delete its tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			accountID := args[0]
			if _, err := st.GetAccount(cmd.Context(), accountID); err != nil {
				return fmt.Errorf("failed to load account %s: %w", accountID, err)
			}
			if err := st.DeleteAccount(cmd.Context(), accountID); err != nil {
				return fmt.Errorf("failed to delete account: %w", err)
			}
			fmt.Printf("Disconnected account %s\n", accountID)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db-path", "", "Path to the SQLite database")
	return cmd
}
