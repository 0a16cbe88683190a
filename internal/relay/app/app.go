// Package app assembles the relay from configuration and runs it until shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yungbote/lovabuddy/internal/observability"
	"github.com/yungbote/lovabuddy/internal/platform/logger"
	"github.com/yungbote/lovabuddy/internal/relay/config"
	"github.com/yungbote/lovabuddy/internal/relay/engine"
	"github.com/yungbote/lovabuddy/internal/relay/engine/gemini"
	"github.com/yungbote/lovabuddy/internal/relay/engine/mock"
	"github.com/yungbote/lovabuddy/internal/relay/handoff"
	"github.com/yungbote/lovabuddy/internal/relay/httpapi"
	"github.com/yungbote/lovabuddy/internal/relay/service"
	"github.com/yungbote/lovabuddy/internal/relay/tts"
)

const purgeEvery = 30 * time.Minute

type App struct {
	Log    *logger.Logger
	Config *config.Config

	server   *http.Server
	handoffs *handoff.Store
	speech   *tts.Service
	closers  []io.Closer
	otelStop func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &App{Log: log, Config: cfg}
	a.otelStop = observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "lovabuddy-relay",
		Environment: cfg.Env,
		Version:     cfg.Version,
	})
	metrics := observability.NewMetrics()

	var (
		eng     engine.Engine
		speaker tts.Speaker
	)
	switch cfg.LLM.Engine {
	case "mock":
		eng = mock.New()
	default:
		client, err := gemini.New(ctx, cfg.LLM, log, metrics)
		if err != nil {
			return nil, fmt.Errorf("init gemini: %w", err)
		}
		eng, speaker = client, client
	}

	a.handoffs, err = handoff.Open(cfg.Handoff, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.handoffs)

	synth, err := a.newSynth(ctx, speaker)
	if err != nil {
		a.close()
		return nil, err
	}
	a.speech = tts.NewService(log, metrics, synth, a.newCache(ctx), cfg.TTS, cfg.Cache.KeyPrefix)
	a.closers = append(a.closers, a.speech)

	relay := service.New(log, metrics, eng, a.handoffs, cfg)
	a.server = httpapi.NewServer(cfg, log, httpapi.Deps{
		Relay:    relay,
		Speech:   a.speech,
		Handoffs: a.handoffs,
		Metrics:  metrics,
		Ready:    a.handoffs.Ping,
	})

	log.Info("relay configured",
		"addr", cfg.HTTP.Addr,
		"engine", cfg.LLM.Engine,
		"model", cfg.LLM.Model,
		"final_model", cfg.LLM.FinalModel,
		"tts", cfg.TTS.Provider,
		"tts_enabled", a.speech.Enabled(),
		"handoff_driver", cfg.Handoff.Driver,
		"auth", cfg.AuthEnabled(),
	)
	return a, nil
}

func (a *App) newSynth(ctx context.Context, speaker tts.Speaker) (tts.Synthesizer, error) {
	switch a.Config.TTS.Provider {
	case "gemini":
		if speaker == nil {
			a.Log.Warn("gemini tts needs the gemini engine; text-to-speech disabled")
			return nil, nil
		}
		return &tts.GeminiSynth{Speaker: speaker, Model: a.Config.TTS.Model, LanguageCode: a.Config.TTS.LanguageCode}, nil
	case "gcp":
		s, err := tts.NewGCPSynth(ctx, a.Config.TTS.LanguageCode)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s)
		return s, nil
	default:
		return nil, nil
	}
}

// newCache prefers Redis and falls back to an in-process cache when it is absent or unreachable.
func (a *App) newCache(ctx context.Context) tts.Cache {
	if a.Config.Cache.RedisAddr == "" {
		return tts.NewMemoryCache(a.Config.TTS.CacheTTL.Duration)
	}
	c, err := tts.NewRedisCache(ctx, a.Config.Cache)
	if err != nil {
		a.Log.Warn("redis unavailable; using in-process audio cache", "addr", a.Config.Cache.RedisAddr, "error", err)
		return tts.NewMemoryCache(a.Config.TTS.CacheTTL.Duration)
	}
	return c
}

func (a *App) Run(ctx context.Context) error {
	defer a.Log.Sync()
	defer a.close()

	go a.handoffs.RunPurger(ctx, purgeEvery)

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("relay listening", "addr", a.server.Addr)
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		a.Log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout.Duration)
		defer cancel()
		_ = a.server.Shutdown(shutdownCtx)
		if err := a.otelStop(shutdownCtx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.Log.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
