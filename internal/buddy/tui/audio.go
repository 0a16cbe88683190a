package tui

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Speaker fetches spoken audio. *client.Client satisfies it.
type Speaker interface {
	Speak(ctx context.Context, text, speaker string) ([]byte, error)
}

const prefetchConcurrency = 4

var errNoPlayer = errors.New("no audio player found")

// prefetch synthesizes every text concurrently. Failed items are left out; the
// question can still be read on demand later.
func prefetch(ctx context.Context, sp Speaker, voice string, texts []string) map[string][]byte {
	var (
		mu  sync.Mutex
		out = make(map[string][]byte, len(texts))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(prefetchConcurrency)
	for _, text := range texts {
		g.Go(func() error {
			audio, err := sp.Speak(gctx, text, voice)
			if err != nil || len(audio) == 0 {
				return nil
			}
			mu.Lock()
			out[text] = audio
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// detectPlayer picks a command line WAV player available on this machine.
func detectPlayer() string {
	candidates := []string{"aplay", "paplay", "ffplay"}
	if runtime.GOOS == "darwin" {
		candidates = []string{"afplay"}
	}
	for _, c := range candidates {
		if p, err := exec.LookPath(c); err == nil {
			return p
		}
	}
	return ""
}

func playerArgs(player, file string) []string {
	switch filepath.Base(player) {
	case "ffplay":
		return []string{"-nodisp", "-autoexit", "-loglevel", "quiet", file}
	case "aplay":
		return []string{"-q", file}
	}
	return []string{file}
}

// play writes the clip to a temp file and blocks until the player exits or ctx ends.
func play(ctx context.Context, player string, wav []byte) error {
	if player == "" {
		return errNoPlayer
	}
	f, err := os.CreateTemp("", "lovabuddy-*.wav")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(wav); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, player, playerArgs(player, f.Name())...)
	err = cmd.Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
