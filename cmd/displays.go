package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/store"
)

func newDisplaysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "displays",
		Short: "Manage wall displays",
	}
	cmd.AddCommand(newDisplaysCreateCmd())
	cmd.AddCommand(newDisplaysListCmd())
	return cmd
}

func newDisplaysCreateCmd() *cobra.Command {
	var (
		dbPath string
		userID string
		name   string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a display and print its token",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			ctx := cmd.Context()
			if _, err := st.GetUser(ctx, userID); err != nil {
				return fmt.Errorf("failed to load user %s: %w", userID, err)
			}

			display := &store.Display{
				ID:     uuid.NewString(),
				UserID: userID,
				Name:   name,
				Token:  uuid.NewString(),
				Active: true,
			}
			if err := st.SaveDisplay(ctx, display); err != nil {
				return fmt.Errorf("failed to save display: %w", err)
			}

			fmt.Printf("Created display %s\nDisplay token: %s\n", display.ID, display.Token)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db-path", "", "Path to the SQLite database")
	cmd.Flags().StringVar(&userID, "user", "", "User ID that owns the display")
	cmd.Flags().StringVar(&name, "name", "", "Human-readable display name")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newDisplaysListCmd() *cobra.Command {
	var (
		dbPath string
		userID string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List displays for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			displays, err := st.ListDisplays(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("failed to list displays: %w", err)
			}
			if len(displays) == 0 {
				fmt.Println("No displays")
				return nil
			}
			for _, d := range displays {
				status := "active"
				if !d.Active {
					status = "inactive"
				}
				fmt.Printf("%s  %s  %s\n", d.ID, d.Name, status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db-path", "", "Path to the SQLite database")
	cmd.Flags().StringVar(&userID, "user", "", "User ID whose displays to list")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
