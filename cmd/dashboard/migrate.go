package main

import (
	"github.com/spf13/cobra"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/app"
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := app.LoadConfig()
		if err := cfg.Validate(); err != nil {
			return err
		}

		db, err := app.OpenStore(cmd.Context(), cfg, app.NewLogger(cfg))
		if err != nil {
			return err
		}
		return db.Close()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
}
