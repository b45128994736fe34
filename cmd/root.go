/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/tenantdesk/apiserver/config"
	"github.com/tenantdesk/apiserver/internal/logger"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "tenantdesk",
	Short: "Multi-tenant project management backend",
	Long: `tenantdesk serves the multi-tenant project management API and ships
the operational commands around it: migrations, super-admin bootstrap and
event inspection.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadRuntime reads the configuration and builds the logger every command uses.
func loadRuntime() (config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	log := logger.New(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty || cfg.Env == "dev",
		Output: os.Stderr,
	})
	return cfg, log, nil
}
