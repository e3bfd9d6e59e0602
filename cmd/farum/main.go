// Package main provides the farum CLI entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/farum-chat/internal/config"
)

var (
	version    = "0.2.0"
	configPath string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "farum",
		Short: "Farum - a small conversational companion",
		Long: `Farum keeps one conversation per session token and answers every message,
through a remote model when one is configured and a local mood classifier otherwise.

  farum serve                 Run the JSON API
  farum chat --session <id>   Talk to Farum from the terminal`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("FARUM_CONFIG"), "TOML config file")

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(chatCmd())
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
