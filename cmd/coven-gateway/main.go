// ABOUTME: Entry point for coven-gateway, the coven-chat development server
// ABOUTME: Serves the chat REST API and realtime sockets, and mints user tokens

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/2389/coven-chat/internal/config"
)

// Version is set by goreleaser at build time.
var version = "dev"

// jwtSecretEnvVar supplies dev.jwt_secret when the config file leaves it empty.
const jwtSecretEnvVar = "COVEN_CHAT_JWT_SECRET"

const banner = `
                                            _
  ___ _____   _____ _ __        __ _  __ _| |_ _____      ____ _ _   _
 / __/ _ \ \ / / _ \ '_ \ _____/ _' |/ _' | __/ _ \ \ /\ / / _' | | | |
| (_| (_) \ V /  __/ | | |_____| (_| | (_| | ||  __/\ V  V / (_| | |_| |
 \___\___/ \_/ \___|_| |_|      \__, |\__,_|\__\___| \_/\_/ \__,_|\__, |
                                |___/                             |___/
`

var flagConfig string

var rootCmd = &cobra.Command{
	Use:           "coven-gateway",
	Short:         "Development server for coven-chat",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file (default: $"+config.ConfigEnvVar+" or ./coven-chat.yaml)")
	rootCmd.AddCommand(newServeCmd(), newTokenCmd(), newInitCmd(), newHealthCmd())
}

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves the config file and fills the dev secret from the
// environment when the file does not set one.
func loadConfig() (*config.Config, string, error) {
	cfg, path, err := config.LoadOrDefault(flagConfig)
	if err != nil {
		return nil, path, fmt.Errorf("loading config: %w", err)
	}
	if cfg.Dev.JWTSecret == "" {
		cfg.Dev.JWTSecret = os.Getenv(jwtSecretEnvVar)
	}
	return cfg, path, nil
}
