package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fystack/identity-minter/pkg/common/config"
	"github.com/fystack/identity-minter/pkg/common/logger"
)

var version = "dev"

var (
	configPath string
	envFile    string
	debug      bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "identity",
	Short:         "Cardano identity NFT minter",
	Long:          "Upload an identity image to IPFS and mint it as a CIP-25 NFT under a single-signature policy.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		level := logger.ParseLevel(cfg.LogLevel)
		if debug {
			level = slog.LevelDebug
		}
		logger.Init(&logger.Options{
			Level:      level,
			TimeFormat: time.RFC3339,
		})
		logger.Debug("Config loaded", "network", cfg.Network, "blockfrost", cfg.Blockfrost.URL)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file with API keys")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logs")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
