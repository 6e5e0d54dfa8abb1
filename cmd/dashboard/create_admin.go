package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/app"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/service"
)

var createAdminFlags struct {
	username    string
	password    string
	displayName string
}

// createAdminCmd adds an admin account directly in the database. It works
// on a populated database too, for recovering a locked-out install.
var createAdminCmd = &cobra.Command{
	Use:     "create-admin",
	Short:   "Create an admin user",
	Example: `  dashboard create-admin --username ops --password 's3cret!' --display-name "Ops Lead"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := app.LoadConfig()
		if err := cfg.Validate(); err != nil {
			return err
		}

		db, err := app.OpenStore(cmd.Context(), cfg, app.NewLogger(cfg))
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		svc := &service.BootstrapService{Store: db}
		admin, err := svc.CreateAdmin(cmd.Context(),
			createAdminFlags.username,
			createAdminFlags.password,
			createAdminFlags.displayName,
		)
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", admin.Username, admin.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createAdminCmd)

	createAdminCmd.Flags().StringVar(&createAdminFlags.username, "username", "", "login name (3-64 characters, no spaces)")
	createAdminCmd.Flags().StringVar(&createAdminFlags.password, "password", "", "password (at least 6 characters)")
	createAdminCmd.Flags().StringVar(&createAdminFlags.displayName, "display-name", "", "display name (defaults to the username)")
	_ = createAdminCmd.MarkFlagRequired("username")
	_ = createAdminCmd.MarkFlagRequired("password")
}
