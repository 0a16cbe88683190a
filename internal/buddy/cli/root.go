package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/lovabuddy/internal/buddy/config"
	"github.com/yungbote/lovabuddy/internal/client"
)

type options struct {
	RelayURL string
	Token    string
	Timeout  time.Duration
}

var opts options

// NewRootCmd builds the buddy command tree. Running it bare starts the interactive flow.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "buddy",
		Short:         "LovaBuddy helps you describe a website and hands the prompt to a builder.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runTUI,
	}
	root.PersistentFlags().StringVar(&opts.RelayURL, "relay", "", "relay base URL (overrides the config file)")
	root.PersistentFlags().StringVar(&opts.Token, "token", "", "relay bearer token (overrides the config file)")
	root.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 0, "per-request timeout")
	addRunFlags(root)

	root.AddCommand(
		newRunCmd(),
		newTokenCmd(),
		newSpeakCmd(),
		newHandoffCmd(),
		newConfigCmd(),
	)
	return root
}

func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// loadConfig reads the buddy config and applies command line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.RelayURL != "" {
		cfg.RelayURL = opts.RelayURL
	}
	if opts.Token != "" {
		cfg.Token = opts.Token
	}
	if opts.Timeout > 0 {
		cfg.Timeout = opts.Timeout
	}
	return cfg, nil
}

func newClient(cfg *config.Config) (*client.Client, error) {
	return client.New(client.Options{
		BaseURL:    cfg.RelayURL,
		Token:      cfg.Token,
		Timeout:    cfg.Timeout,
		MaxRetries: 1,
	})
}
