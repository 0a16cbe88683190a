package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
)

func newSpeakCmd() *cobra.Command {
	var (
		outDir string
		voice  string
	)
	cmd := &cobra.Command{
		Use:   "speak <text>...",
		Short: "Synthesize lines through the relay and save them as WAV files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			c, err := newClient(cfg)
			if err != nil {
				return err
			}
			if voice == "" {
				voice = cfg.TTS.Voice
			}
			items, err := c.SpeakBatch(cmd.Context(), args, voice)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0755); err != nil {
				return err
			}

			failed := 0
			for i, it := range items {
				if it.Err != "" {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "line %d: %s\n", i+1, it.Err)
					continue
				}
				path := filepath.Join(outDir, "line-"+strconv.Itoa(i+1)+".wav")
				if err := os.WriteFile(path, it.Audio, 0644); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			if failed == len(items) {
				return fmt.Errorf("no line could be synthesized")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory for the WAV files")
	cmd.Flags().StringVar(&voice, "voice", "", "voice name (Fenrir or Zephyr)")
	return cmd
}
