// ABOUTME: serve command: runs the gateway until interrupted
// ABOUTME: Optionally seeds demo users into a fresh database first

package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/coven-chat/internal/gateway"
	"github.com/2389/coven-chat/internal/logging"
	"github.com/2389/coven-chat/internal/store"
)

func newServeCmd() *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cyan := color.New(color.FgCyan)
			cyan.Print(banner)

			gray := color.New(color.FgHiBlack)
			gray.Printf("    version: %s\n\n", version)

			cfg, configPath, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateDev(); err != nil {
				return fmt.Errorf("%w (set dev.jwt_secret or $%s)", err, jwtSecretEnvVar)
			}

			logger := logging.New(cfg.Logging, os.Stdout)

			if configPath == "" {
				configPath = "(defaults)"
			}
			green := color.New(color.FgGreen)
			green.Print("    ▶ ")
			fmt.Printf("Config:    %s\n", configPath)
			green.Print("    ▶ ")
			fmt.Printf("HTTP:      %s\n", cfg.Dev.Addr)
			green.Print("    ▶ ")
			fmt.Printf("Database:  %s (%s)\n", cfg.Dev.DatabasePath, cfg.Dev.Store)
			fmt.Println()

			if seed {
				if err := seedDatabase(cmd, cfg.Dev.Store, cfg.Dev.DatabasePath); err != nil {
					return err
				}
			}

			logger.Info("starting coven-gateway",
				"config", configPath,
				"http_addr", cfg.Dev.Addr,
				"database", cfg.Dev.DatabasePath,
			)

			gw, err := gateway.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("creating gateway: %w", err)
			}

			return gw.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&seed, "seed", false, "create demo users before serving")
	return cmd
}

func seedDatabase(cmd *cobra.Command, backend, path string) error {
	s, err := store.Open(backend, path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	n, err := gateway.Seed(cmd.Context(), s)
	if err != nil {
		return err
	}

	yellow := color.New(color.FgYellow)
	yellow.Print("    ★ ")
	fmt.Printf("Seeded %d demo users\n\n", n)
	return nil
}
