package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/lovabuddy/internal/buddy/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or edit ~/.config/lovabuddy/config.yaml",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			shown := *cfg
			if shown.Token != "" {
				shown.Token = "(set)"
			}
			raw, err := yaml.Marshal(&shown)
			if err != nil {
				return err
			}
			path, _ := config.ConfigPath()
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", path, raw)
			return nil
		},
	}

	var (
		relay   string
		voice   string
		tts     bool
		player  string
		logMode string
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Update config values and save",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			f := cmd.Flags()
			if f.Changed("relay-url") {
				cfg.RelayURL = relay
			}
			if f.Changed("voice") {
				if !config.ValidVoice(voice) {
					return fmt.Errorf("unknown voice %q, want one of %v", voice, config.Voices)
				}
				cfg.TTS.Voice = voice
			}
			if f.Changed("tts") {
				cfg.TTS.Enabled = tts
			}
			if f.Changed("player") {
				cfg.TTS.Player = player
			}
			if f.Changed("log-mode") {
				cfg.LogMode = logMode
			}
			return cfg.Save()
		},
	}
	set.Flags().StringVar(&relay, "relay-url", "", "relay base URL")
	set.Flags().StringVar(&voice, "voice", "", "read-aloud voice")
	set.Flags().BoolVar(&tts, "tts", false, "read questions aloud")
	set.Flags().StringVar(&player, "player", "", "WAV player command")
	set.Flags().StringVar(&logMode, "log-mode", "", "development or production")

	cmd.AddCommand(set)
	return cmd
}
