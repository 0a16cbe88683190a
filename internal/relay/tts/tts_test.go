package tts

import (
	"context"
	"encoding/binary"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/lovabuddy/internal/relay/config"
)

type fakeSpeaker struct {
	calls int32
	mime  string
}

func (f *fakeSpeaker) Speak(ctx context.Context, model, text, voice, lang string) ([]byte, string, error) {
	atomic.AddInt32(&f.calls, 1)
	if strings.Contains(text, "fail") {
		return nil, "", errors.New("boom")
	}
	return []byte(voice + ":" + text), f.mime, nil
}

func testConfig() config.TTSConfig {
	return config.TTSConfig{
		DefaultVoice:     "Fenrir",
		Voices:           []string{"Fenrir", "Zephyr"},
		MaxTextChars:     50,
		CacheTTL:         config.Duration{Duration: time.Minute},
		BatchConcurrency: 2,
		MaxBatchItems:    5,
	}
}

func newTestService(sp *fakeSpeaker) *Service {
	synth := &GeminiSynth{Speaker: sp, Model: "tts", LanguageCode: "en-US"}
	return NewService(nil, nil, synth, NewMemoryCache(time.Minute), testConfig(), "t:")
}

func TestWrapPCMHeader(t *testing.T) {
	t.Parallel()

	pcm := make([]byte, 100)
	wav := WrapPCM(pcm, 24000)
	if len(wav) != 144 || !IsWAV(wav) {
		t.Fatalf("len=%d wav=%v", len(wav), IsWAV(wav))
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 24000 {
		t.Fatalf("sample rate=%d", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != 100 {
		t.Fatalf("data size=%d", got)
	}
	if got := sampleRateFromMIME("audio/L16;codec=pcm;rate=16000"); got != 16000 {
		t.Fatalf("rate=%d", got)
	}
}

func TestSpeakCachesByVoiceAndText(t *testing.T) {
	t.Parallel()

	sp := &fakeSpeaker{mime: "audio/L16;rate=24000"}
	s := newTestService(sp)
	ctx := context.Background()

	a, err := s.Speak(ctx, "Pick a color", "")
	if err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if !IsWAV(a) {
		t.Fatalf("expected wav output")
	}
	if _, err := s.Speak(ctx, "Pick a color", "fenrir"); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if got := atomic.LoadInt32(&sp.calls); got != 1 {
		t.Fatalf("calls=%d, second call should hit cache", got)
	}
	if _, err := s.Speak(ctx, "Pick a color", "Zephyr"); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if got := atomic.LoadInt32(&sp.calls); got != 2 {
		t.Fatalf("calls=%d, other voice must not share cache entry", got)
	}
}

func TestSpeakValidation(t *testing.T) {
	t.Parallel()

	s := newTestService(&fakeSpeaker{})
	ctx := context.Background()
	if _, err := s.Speak(ctx, "  ", ""); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("err=%v", err)
	}
	if _, err := s.Speak(ctx, "hi", "Robot"); !errors.Is(err, ErrUnknownVoice) {
		t.Fatalf("err=%v", err)
	}
	if _, err := s.Speak(ctx, strings.Repeat("a", 51), ""); !errors.Is(err, ErrTextTooLong) {
		t.Fatalf("err=%v", err)
	}

	disabled := NewService(nil, nil, nil, nil, testConfig(), "")
	if _, err := disabled.Speak(ctx, "hi", ""); !errors.Is(err, ErrDisabled) {
		t.Fatalf("err=%v", err)
	}
}

func TestBatchDedupesAndReportsPerItem(t *testing.T) {
	t.Parallel()

	sp := &fakeSpeaker{}
	s := newTestService(sp)
	items, err := s.Batch(context.Background(), []string{"one", "two", "one", "fail now", ""}, "Zephyr")
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("items=%d", len(items))
	}
	failed := 0
	for _, it := range items {
		if it.Err != nil {
			failed++
		}
	}
	if failed != 1 {
		t.Fatalf("failed=%d", failed)
	}
	if _, err := s.Batch(context.Background(), make([]string, 6), ""); !errors.Is(err, ErrBatchTooBig) {
		t.Fatalf("err=%v", err)
	}
}

func TestGCPVoiceName(t *testing.T) {
	t.Parallel()

	if got := gcpVoiceName("en-US", "Fenrir"); got != "en-US-Chirp3-HD-Fenrir" {
		t.Fatalf("got=%q", got)
	}
	if got := gcpVoiceName("en-US", "en-GB-Neural2-A"); got != "en-GB-Neural2-A" {
		t.Fatalf("got=%q", got)
	}
}
