// Package main provides the entry point for the codex extraction agent.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configPath  string
	apiKey      string
	databaseURL string
	redisURL    string
	codexDir    string
	useBrowser  bool
	logJSON     bool
	debug       bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:           "codex_agent",
		Short:         "Codex-driven document extraction and résumé tailoring",
		Long:          "codex_agent turns job postings and résumés into structured records described by versioned codexes, and tailors résumés to job records.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to JSON config file")
	flags.StringVar(&opts.apiKey, "api-key", "", "Gemini API key (overrides GEMINI_API_KEY env var)")
	flags.StringVar(&opts.databaseURL, "db-url", "", "PostgreSQL URL (overrides DATABASE_URL); empty uses an in-memory store")
	flags.StringVar(&opts.redisURL, "redis-url", "", "Redis URL (overrides REDIS_URL)")
	flags.StringVar(&opts.codexDir, "codex-dir", "", "Directory of extra codex JSON files to load")
	flags.BoolVar(&opts.useBrowser, "use-browser", false, "Render script-heavy pages with headless Chrome")
	flags.BoolVar(&opts.logJSON, "log-json", false, "Emit JSON logs")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newExtractCmd(opts),
		newBatchCmd(opts),
		newTailorCmd(opts),
		newCodexCmd(opts),
		newTokenCmd(opts),
	)
	return rootCmd
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
