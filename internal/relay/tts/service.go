package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/lovabuddy/internal/observability"
	"github.com/yungbote/lovabuddy/internal/platform/logger"
	"github.com/yungbote/lovabuddy/internal/relay/config"
)

var (
	ErrDisabled     = errors.New("text-to-speech is disabled")
	ErrEmptyText    = errors.New("text is required")
	ErrUnknownVoice = errors.New("unknown voice")
	ErrTextTooLong  = errors.New("text is too long")
	ErrBatchTooBig  = errors.New("too many texts in batch")
)

type Item struct {
	Text  string
	Audio []byte
	Err   error
}

// Service reads text aloud, consulting the cache before the synthesizer.
type Service struct {
	log     *logger.Logger
	metrics *observability.Metrics
	synth   Synthesizer
	cache   Cache
	cfg     config.TTSConfig
	prefix  string
}

// NewService wires a synthesizer and cache. A nil synth yields a service that reports ErrDisabled.
func NewService(log *logger.Logger, m *observability.Metrics, synth Synthesizer, cache Cache, cfg config.TTSConfig, keyPrefix string) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if cache == nil {
		cache = NewMemoryCache(cfg.CacheTTL.Duration)
	}
	return &Service{
		log:     log.With("service", "TTSService"),
		metrics: m,
		synth:   synth,
		cache:   cache,
		cfg:     cfg,
		prefix:  keyPrefix,
	}
}

func (s *Service) Enabled() bool { return s != nil && s.synth != nil }

func (s *Service) DefaultVoice() string { return s.cfg.DefaultVoice }

// ResolveVoice returns the canonical voice name, or the default when voice is blank.
func (s *Service) ResolveVoice(voice string) (string, error) {
	voice = strings.TrimSpace(voice)
	if voice == "" {
		return s.cfg.DefaultVoice, nil
	}
	for _, v := range s.cfg.Voices {
		if strings.EqualFold(v, voice) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownVoice, voice)
}

// Speak returns WAV audio for text.
func (s *Service) Speak(ctx context.Context, text, voice string) ([]byte, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if s.cfg.MaxTextChars > 0 && len([]rune(text)) > s.cfg.MaxTextChars {
		return nil, fmt.Errorf("%w (max %d characters)", ErrTextTooLong, s.cfg.MaxTextChars)
	}
	voice, err := s.ResolveVoice(voice)
	if err != nil {
		return nil, err
	}

	key := cacheKey(s.prefix, voice, text)
	if audio, ok, err := s.cache.Get(ctx, key); err != nil {
		s.log.Warn("tts cache get failed", "backend", s.cache.Backend(), "error", err)
	} else if ok {
		s.metrics.TTSCache(s.cache.Backend(), true)
		return audio, nil
	}
	s.metrics.TTSCache(s.cache.Backend(), false)

	if s.cfg.Timeout.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout.Duration)
		defer cancel()
	}
	start := time.Now()
	audio, err := s.synth.Synthesize(ctx, text, voice)
	if err != nil {
		return nil, err
	}
	s.log.Debug("speech synthesized", "provider", s.synth.Name(), "voice", voice, "bytes", len(audio), "duration_ms", time.Since(start).Milliseconds())

	if err := s.cache.Set(context.WithoutCancel(ctx), key, audio, s.cfg.CacheTTL.Duration); err != nil {
		s.log.Warn("tts cache set failed", "backend", s.cache.Backend(), "error", err)
	}
	return audio, nil
}

// Batch preloads several texts concurrently. Individual failures are reported per item and do
// not fail the batch; duplicate texts are synthesized once.
func (s *Service) Batch(ctx context.Context, texts []string, voice string) ([]Item, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}
	if s.cfg.MaxBatchItems > 0 && len(texts) > s.cfg.MaxBatchItems {
		return nil, fmt.Errorf("%w (max %d)", ErrBatchTooBig, s.cfg.MaxBatchItems)
	}
	if _, err := s.ResolveVoice(voice); err != nil {
		return nil, err
	}

	unique := make([]string, 0, len(texts))
	index := map[string]int{}
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := index[t]; ok {
			continue
		}
		index[t] = len(unique)
		unique = append(unique, t)
	}

	items := make([]Item, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.BatchConcurrency)
	for i, t := range unique {
		i, t := i, t
		g.Go(func() error {
			audio, err := s.Speak(gctx, t, voice)
			items[i] = Item{Text: t, Audio: audio, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) Close() error {
	if s == nil || s.cache == nil {
		return nil
	}
	return s.cache.Close()
}
