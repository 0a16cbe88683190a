package service

import (
	"context"
	"errors"
	"strings"

	"github.com/yungbote/lovabuddy/internal/platform/apierr"
	"github.com/yungbote/lovabuddy/internal/prompts"
	"github.com/yungbote/lovabuddy/internal/relay/engine"
)

// FallbackConcept is returned for drawings that are blank or that the model could not caption.
const FallbackConcept = "Creative idea"

// Describe condenses a typed idea into a base idea. Empty model output falls back to the input.
func (s *Service) Describe(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apierr.BadRequest("text is required")
	}
	resp, err := s.generate(ctx, "describe", engine.GenerateRequest{
		Model:       s.llm.Model,
		Parts:       []engine.Part{{Text: prompts.Describe(text)}},
		Temperature: f32(0.6),
	})
	if err != nil {
		if errors.Is(err, ErrEmptyResponse) {
			return text, nil
		}
		return "", err
	}
	s.ok("describe")
	if out := cleanPhrase(resp.Text); out != "" {
		return out, nil
	}
	return text, nil
}

// AnalyzeImage captions a drawing. Blank canvases return FallbackConcept without an upstream call.
func (s *Service) AnalyzeImage(ctx context.Context, img *Image) (string, error) {
	if img == nil {
		return "", apierr.BadRequest("imageDataUrl is required")
	}
	if img.IsBlank() {
		s.metrics.RelayOutcome("drawing", "blank")
		return FallbackConcept, nil
	}
	resp, err := s.generate(ctx, "drawing", engine.GenerateRequest{
		Model: s.llm.Model,
		Parts: []engine.Part{
			{Text: prompts.Drawing()},
			{Data: img.Data, MIMEType: img.MIMEType},
		},
		Temperature: f32(0.6),
	})
	if err != nil {
		if errors.Is(err, ErrEmptyResponse) {
			return FallbackConcept, nil
		}
		return "", err
	}
	s.ok("drawing")
	if out := cleanPhrase(resp.Text); out != "" {
		return out, nil
	}
	return FallbackConcept, nil
}

// cleanPhrase keeps the first line of a short answer and drops wrapping quotes.
func cleanPhrase(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return strings.Trim(s, "\"'` ")
}
