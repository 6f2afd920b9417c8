package main

import (
	"fmt"
	"os"

	"github.com/docwise/medkb/internal/cli"
	"github.com/docwise/medkb/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "medkb",
		Short: "medkb CLI - Medical knowledge retrieval client",
		Long: `medkb CLI provides commands to query, search, and manage the medical knowledge engine.

Environment variables:
  MEDKB_API_KEY   API key for authentication (required)
  MEDKB_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().StringP("output", "o", "text", "Output format (text or json)")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.QueryCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.IngestCmd())
	rootCmd.AddCommand(client.ReindexCmd())
	rootCmd.AddCommand(client.AuthCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
