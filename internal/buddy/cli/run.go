package cli

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/yungbote/lovabuddy/internal/buddy/tui"
	"github.com/yungbote/lovabuddy/internal/client"
	"github.com/yungbote/lovabuddy/internal/flow"
	"github.com/yungbote/lovabuddy/internal/platform/logger"
)

var runFlags struct {
	Drawing string
	DOM     string
	NoVoice bool
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&runFlags.Drawing, "drawing", "d", "", "image file sent along with your idea")
	cmd.Flags().StringVar(&runFlags.DOM, "dom", "", "HTML snapshot of the generated page, used when improving")
	cmd.Flags().BoolVar(&runFlags.NoVoice, "quiet", false, "do not read questions aloud")
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the interactive question flow",
		RunE:  runTUI,
	}
	addRunFlags(cmd)
	return cmd
}

func runTUI(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logPath, err := cfg.LogPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return err
	}
	log, err := logger.NewFile(cfg.LogMode, logPath)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer log.Sync()

	c, err := newClient(cfg)
	if err != nil {
		return err
	}
	if err := checkRelay(cmd.Context(), c); err != nil {
		return err
	}

	appOpts := tui.Options{
		Session: flow.New(c, log),
		Voice:   cfg.TTS.Voice,
		Player:  cfg.TTS.Player,
		Log:     log,
	}
	if cfg.TTS.Enabled && !runFlags.NoVoice {
		appOpts.Speech = c
	}
	if runFlags.Drawing != "" {
		if appOpts.Drawing, err = dataURL(runFlags.Drawing); err != nil {
			return err
		}
	}
	if runFlags.DOM != "" {
		raw, err := os.ReadFile(runFlags.DOM)
		if err != nil {
			return fmt.Errorf("read dom snapshot: %w", err)
		}
		appOpts.DOM = string(raw)
	}

	log.Info("buddy starting", "relay", c.BaseURL(), "tts", appOpts.Speech != nil)
	p := tea.NewProgram(tui.NewApp(appOpts), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	_, err = p.Run()
	return err
}

// checkRelay fails fast when the relay is down, before the alt screen takes over the terminal.
func checkRelay(ctx context.Context, c *client.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Ready(ctx); err != nil {
		return fmt.Errorf("relay %s is not ready: %w", c.BaseURL(), err)
	}
	return nil
}

// dataURL reads an image file into a base64 data URL.
func dataURL(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read drawing: %w", err)
	}
	mime := http.DetectContentType(raw)
	switch mime {
	case "image/png", "image/jpeg", "image/gif", "image/webp":
	default:
		return "", fmt.Errorf("drawing %s is %s, want a png, jpeg, gif or webp image", path, mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}
