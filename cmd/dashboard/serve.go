package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/app"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the dashboard API server",
	Long: `Starts the dashboard API server. Configuration comes from the environment
(and .env in dev). Usage:

	dashboard serve
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := app.LoadConfig()

		application, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}

		return application.Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
