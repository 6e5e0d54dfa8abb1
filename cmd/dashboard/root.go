package main

import (
	"github.com/spf13/cobra"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/app"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "dashboard",
	Short:   "IT Ops Dashboard API server and admin tools",
	Version: app.BuildVersion,

	SilenceUsage: true,
}
