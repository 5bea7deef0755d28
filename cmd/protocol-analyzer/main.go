// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the protocol-analyzer CLI and HTTP
// server.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/protocol-analyzer/internal/analysis"
	"github.com/pdiddy/protocol-analyzer/internal/ingest"
	"github.com/pdiddy/protocol-analyzer/internal/logging"
	"github.com/pdiddy/protocol-analyzer/internal/report"
	"github.com/pdiddy/protocol-analyzer/internal/research"
	"github.com/pdiddy/protocol-analyzer/internal/secrets"
	"github.com/pdiddy/protocol-analyzer/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// cfg is populated from defaults, the config file, the environment and
// .secrets/ before any subcommand runs.
var cfg types.Config

var rootCmd = &cobra.Command{
	Use:   "protocol-analyzer",
	Short: "Extract drugs from clinical protocols and cross-reference them",
	Long: `protocol-analyzer reads a clinical protocol document, asks a generative
model to list the medications it prescribes, and cross-references each drug
against PubMed, ClinicalTrials.gov and openFDA.

Run "serve" for the HTTP API and web frontend, or use "analyze" and
"research" directly from the command line.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}

		if err := viper.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("decoding config: %w", err)
		}

		s, err := secrets.Load(".secrets/", os.Stderr)
		if err != nil {
			return err
		}
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		s.Apply(&cfg, os.Getenv)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./protocol-analyzer.yaml or ~/.config/protocol-analyzer/config.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	setDefaults()
}

func setDefaults() {
	viper.SetDefault("debug", false)

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 5000)
	viper.SetDefault("server.cors_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	viper.SetDefault("server.max_upload_bytes", int64(16<<20))
	viper.SetDefault("server.static_dir", "static")
	viper.SetDefault("server.allowed_extensions", ingest.DefaultExtensions)

	viper.SetDefault("ai.provider", string(types.ProviderGemini))
	viper.SetDefault("ai.model", "")
	viper.SetDefault("ai.api_key", "")
	viper.SetDefault("ai.timeout", analysis.DefaultTimeout)

	viper.SetDefault("research.timeout", research.DefaultTimeout)
	viper.SetDefault("research.user_agent", research.DefaultUserAgent)
	viper.SetDefault("research.ncbi_api_key", "")
	viper.SetDefault("research.ncbi_email", "")
	viper.SetDefault("research.openfda_api_key", "")

	viper.SetDefault("report.dir", report.DefaultDir)
	viper.SetDefault("report.font_path", "")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("protocol-analyzer")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "protocol-analyzer"))
		}
	}

	viper.SetEnvPrefix("PROTOCOL_ANALYZER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newLogger() (*zap.Logger, error) {
	logger, err := logging.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return logger, nil
}

// newAnalyzer builds the extractor. Without a usable AI provider the
// extractor is still returned and every analysis fails with
// ErrAIUnavailable.
func newAnalyzer(logger *zap.Logger) (*analysis.Extractor, bool) {
	gen, err := analysis.NewGenerator(cfg.AI)
	if err != nil {
		logger.Warn("AI provider not configured", zap.String("provider", string(cfg.AI.Provider)), zap.Error(err))
		return analysis.NewExtractor(nil, logger), false
	}
	return analysis.NewExtractor(gen, logger), true
}

// shutdownTimeout bounds graceful server shutdown.
const shutdownTimeout = 15 * time.Second

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
