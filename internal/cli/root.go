package cli

import (
	"fmt"
	"log/slog"
	"os"

	"fincheck/config"
	"fincheck/internal/adapter/logging"
	"fincheck/internal/app"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	logLevel string
	appl     *app.App
)

var rootCmd = &cobra.Command{
	Use:   "fincheck",
	Short: "Fact-check financial claims against a local evidence corpus",
	Long: `fincheck retrieves evidence for a financial claim from a local corpus of
news and filings, falls back to recent online news when local evidence is weak,
and asks a language model for a verdict with reasoning and citations.

Example usage:
  fincheck ingest --feeds                  # Pull feed articles into the corpus
  fincheck index                           # Embed the corpus
  fincheck check "Apple raised its dividend by 4%"
  fincheck serve                           # HTTP API on :8000`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		cfg, err = config.Resolve(rootDir, cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
		slog.SetDefault(logger)
		appl = app.New(cfg, logger)
		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	if appl != nil {
		if cerr := appl.Close(); cerr != nil {
			slog.Error("failed to close resources", "error", cerr)
		}
	}
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = Version
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./fincheck.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

// GetApp returns the component graph built for the current command.
func GetApp() *app.App {
	return appl
}
