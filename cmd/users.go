package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/store"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage dashboard users",
	}
	cmd.AddCommand(newUsersCreateCmd())
	cmd.AddCommand(newUsersListCmd())
	return cmd
}

func newUsersCreateCmd() *cobra.Command {
	var (
		dbPath   string
		email    string
		licensed bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user and print their API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			user := &store.User{
				ID:            uuid.NewString(),
				Email:         email,
				APIToken:      uuid.NewString(),
				LicenseActive: licensed,
			}
			if err := st.SaveUser(cmd.Context(), user); err != nil {
				return fmt.Errorf("failed to save user: %w", err)
			}

			fmt.Printf("Created user %s\nAPI token: %s\n", user.ID, user.APIToken)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db-path", "", "Path to the SQLite database")
	cmd.Flags().StringVar(&email, "email", "", "Email address of the user")
	cmd.Flags().BoolVar(&licensed, "licensed", true, "Whether the user's license is active")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newUsersListCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			users, err := st.ListUsers(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}
			if len(users) == 0 {
				fmt.Println("No users")
				return nil
			}
			for _, u := range users {
				license := "licensed"
				if !u.LicenseActive {
					license = "unlicensed"
				}
				fmt.Printf("%s  %s  %s\n", u.ID, u.Email, license)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db-path", "", "Path to the SQLite database")
	return cmd
}
