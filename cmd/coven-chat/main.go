// ABOUTME: Entry point for coven-chat, an interactive terminal chat client
// ABOUTME: Loads config and token, then runs the chat loop or saves a login token

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

	"github.com/2389/coven-chat/internal/auth"
	"github.com/2389/coven-chat/internal/config"
	"github.com/2389/coven-chat/internal/logging"
	"github.com/2389/coven-chat/internal/notify"
)

// Version is set by goreleaser at build time.
var version = "dev"

var (
	flagConfig  string
	flagToken   string
	flagBaseURL string
)

var rootCmd = &cobra.Command{
	Use:           "coven-chat",
	Short:         "Chat with other coven users from the terminal",
	Version:       version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runChat,
}

var loginCmd = &cobra.Command{
	Use:   "login <token>",
	Short: "Save a bearer token for later sessions",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogin,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&flagConfig, "config", "c", "", "config file (default: $"+config.ConfigEnvVar+" or ./coven-chat.yaml)")
	flags.StringVar(&flagToken, "token", "", "bearer token (default: $"+auth.TokenEnvVar+" or the saved token)")
	flags.StringVar(&flagBaseURL, "base-url", "", "API base URL, overrides server.base_url")
	rootCmd.AddCommand(loginCmd)
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

func loadConfig() (*config.Config, error) {
	cfg, _, err := config.LoadOrDefault(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if flagBaseURL != "" {
		cfg.Server.BaseURL = flagBaseURL
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if !cfg.UI.Color {
		color.NoColor = true
	}
	return cfg, nil
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	token, err := auth.LoadToken(firstNonEmpty(flagToken, cfg.Auth.Token), cfg.Auth.TokenFile)
	if err != nil {
		return fmt.Errorf("%w: pass --token, set $%s, or run coven-chat login", err, auth.TokenEnvVar)
	}

	logger := logging.New(cfg.Logging, os.Stderr)
	a, err := newApp(cfg, token, os.Stdout, logger)
	if err != nil {
		return err
	}

	me := a.session.User()
	fmt.Printf("coven-chat connected to %s as %s\n", cfg.Server.BaseURL, me.FullName)
	fmt.Println("Type a message and press Enter. /help for commands. Ctrl+C to quit.")
	fmt.Println()

	if err := a.run(cmd.Context(), os.Stdin); err != nil {
		return err
	}

	fmt.Println("\nGoodbye!")
	return nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	user, err := auth.ParseIdentity(args[0])
	if err != nil {
		return err
	}

	path := firstNonEmpty(cfg.Auth.TokenFile, auth.DefaultTokenPath())
	if path == "" {
		return fmt.Errorf("no token path: set auth.token_file")
	}
	if err := auth.SaveToken(path, args[0]); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}

	notify.NewTerminal(cmd.OutOrStdout()).Success(
		fmt.Sprintf("Logged in as %s (%s); token saved to %s", user.FullName, user.ID, path))
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
