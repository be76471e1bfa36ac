// Package main provides the entry point for the contract auditor CLI and HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	databaseURL string
	rulesPath   string
	apiKey      string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "contract_auditor",
	Short: "Legal contract auditor",
	Long: "Contract auditor extracts structured facts from contract documents with an LLM, " +
		"validates them against a rule table and routes doubtful contracts to human review.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to JSON config file")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "db", "", "Database URL (postgres://, sqlite://path, memory://); overrides DATABASE_URL")
	rootCmd.PersistentFlags().StringVar(&rulesPath, "rules", "", "Path to YAML rule table; overrides AUDIT_RULES_PATH")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Gemini API key (overrides GEMINI_API_KEY env var)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
