package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/lovabuddy/internal/relay/auth"
	relayconfig "github.com/yungbote/lovabuddy/internal/relay/config"
)

func newTokenCmd() *cobra.Command {
	var (
		ttl      time.Duration
		noExpiry bool
		save     bool
	)
	cmd := &cobra.Command{
		Use:   "token <client-id>",
		Short: "Mint a relay bearer token from the relay's configured secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := relayconfig.Load()
			if err != nil {
				return fmt.Errorf("load relay config: %w", err)
			}
			if !rc.AuthEnabled() {
				return errors.New("RELAY_JWT_SECRET is not set; the relay does not require tokens")
			}
			switch {
			case noExpiry:
				ttl = 0
			case !cmd.Flags().Changed("ttl"):
				ttl = rc.Auth.TokenTTL.Duration
			case ttl <= 0:
				return errors.New("--ttl must be positive")
			}
			tok, err := auth.Issue(rc.Auth.JWTSecret, rc.Auth.Issuer, args[0], ttl)
			if err != nil {
				return err
			}
			if save {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				cfg.Token = tok
				if err := cfg.Save(); err != nil {
					return fmt.Errorf("save config: %w", err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to the relay's token_ttl)")
	cmd.Flags().BoolVar(&noExpiry, "no-expiry", false, "issue a token that never expires")
	cmd.Flags().BoolVar(&save, "save", false, "store the token in the buddy config")
	return cmd
}
