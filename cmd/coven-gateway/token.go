// ABOUTME: token command: signs a bearer token for an existing user
// ABOUTME: Prints the JWT so it can be saved with coven-chat login

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/2389/coven-chat/internal/auth"
	"github.com/2389/coven-chat/internal/store"
)

func newTokenCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Print a signed token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateDev(); err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Dev.TokenTTL
			}

			s, err := store.Open(cfg.Dev.Store, cfg.Dev.DatabasePath)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer s.Close()

			user, err := s.GetUser(cmd.Context(), args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no user %q (run serve --seed to create demo users)", args[0])
			}
			if err != nil {
				return err
			}

			token, err := auth.NewJWTVerifier([]byte(cfg.Dev.JWTSecret)).Generate(user.Identity(), ttl)
			if err != nil {
				return fmt.Errorf("signing token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default: dev.token_ttl)")
	return cmd
}
