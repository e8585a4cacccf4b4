package main

import (
	"fmt"
	"os"

	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/config"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/pkg/logger"
	"github.com/spf13/cobra"
)

var Version = "dev"

var outputFormat string

func main() {
	rootCmd := &cobra.Command{
		Use:           "quickpayctl",
		Short:         "Operator tool for QuickPayLink Guard rate limits, risk scores and migrations",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch outputFormat {
			case formatTable, formatJSON:
			default:
				return fmt.Errorf("unknown --output-format %q (want table|json)", outputFormat)
			}
			// stdout carries table/json output only
			logger.InitWriter(cmd.ErrOrStderr(), "warn", "text")
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output-format", "o", formatTable, "Output format (table, json)")

	rootCmd.AddCommand(ratelimitCmd())
	rootCmd.AddCommand(riskCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
