package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kozaktomas/face-matcher/internal/config"
	"github.com/kozaktomas/face-matcher/internal/logging"
	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "face-matcher",
	Short: "Detect, align and match faces with SCRFD and ArcFace models",
	Long: `Face Matcher detects faces with an SCRFD model, aligns them to the ArcFace
template and compares their embeddings. Registered faces can be kept in
PostgreSQL (pgvector) or MariaDB and served over HTTP.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()

	cfg := config.Load()
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	if err := logging.Init(logging.Options{Level: level, File: cfg.Log.File}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}
