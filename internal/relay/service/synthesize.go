package service

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yungbote/lovabuddy/internal/domain/design"
	"github.com/yungbote/lovabuddy/internal/platform/apierr"
	"github.com/yungbote/lovabuddy/internal/prompts"
	"github.com/yungbote/lovabuddy/internal/relay/engine"
	"github.com/yungbote/lovabuddy/internal/relay/handoff"
)

type Final struct {
	Prompt    string
	Context   design.PromptContext
	HandoffID string
}

type ImproveInput struct {
	OriginalPrompt string
	Improvement    string
	CurrentDOM     string
	Drawing        *Image
}

type Improved struct {
	Prompt    string
	HandoffID string
}

// SynthesizeFinal turns the collected context into a builder prompt and stores it for hand-off.
func (s *Service) SynthesizeFinal(ctx context.Context, pc design.PromptContext) (*Final, error) {
	if pc.BaseIdea == "" {
		pc = pc.With(design.FieldBaseIdea, prompts.DefaultBaseIdea)
	}
	resp, err := s.generate(ctx, "final", engine.GenerateRequest{
		Model:       s.llm.FinalModel,
		Parts:       []engine.Part{{Text: prompts.Final(pc.Details())}},
		Temperature: f32(0.6),
	})
	if err != nil {
		return nil, err
	}
	prompt, err := s.sanitized(ctx, "final", resp)
	if err != nil {
		return nil, err
	}
	s.ok("final")
	return &Final{
		Prompt:    prompt,
		Context:   pc,
		HandoffID: s.storeHandoff(ctx, handoff.KindFinal, prompt, &pc),
	}, nil
}

// Improve writes a follow-up prompt for a site that was already generated.
func (s *Service) Improve(ctx context.Context, in ImproveInput) (*Improved, error) {
	feedback := strings.TrimSpace(in.Improvement)
	if feedback == "" {
		return nil, apierr.BadRequest("improvement is required")
	}
	drawing := in.Drawing
	if drawing != nil && drawing.IsBlank() {
		drawing = nil
	}
	parts := []engine.Part{{Text: prompts.Improve(feedback, capDOM(in.CurrentDOM, s.improve.MaxDOMBytes), drawing != nil)}}
	if drawing != nil {
		parts = append(parts, engine.Part{Data: drawing.Data, MIMEType: drawing.MIMEType})
	}

	resp, err := s.generate(ctx, "improve", engine.GenerateRequest{
		Model:       s.llm.FinalModel,
		System:      prompts.ImproveSystem(in.OriginalPrompt),
		Parts:       parts,
		Temperature: f32(0.6),
	})
	if err != nil {
		return nil, err
	}
	prompt, err := s.sanitized(ctx, "improve", resp)
	if err != nil {
		return nil, err
	}
	s.ok("improve")
	return &Improved{
		Prompt:    prompt,
		HandoffID: s.storeHandoff(ctx, handoff.KindImprove, prompt, nil),
	}, nil
}

func (s *Service) sanitized(ctx context.Context, op string, resp *engine.GenerateResponse) (string, error) {
	prompt := Sanitize(resp.Text)
	if prompt == "" {
		e := apierr.WithRaw(http.StatusUnprocessableEntity, "empty_response", ErrEmptyResponse, truncate(string(resp.Raw), maxRawDump))
		s.fail(ctx, op, e)
		return "", e
	}
	return prompt, nil
}

var (
	leadingFence  = regexp.MustCompile("^```[a-zA-Z0-9_-]*\\s*\\n?")
	trailingFence = regexp.MustCompile("\\n?```\\s*$")
	preambleRe    = regexp.MustCompile(`(?i)^(here is|here's|based on|of course|sure|certainly|i'll|i will|let me)\b`)
)

// Sanitize strips code fences and a leading meta sentence ("Here is the prompt:") from model output.
// A first line that opens with a meta phrase but carries the instruction itself is kept.
func Sanitize(raw string) string {
	t := stripFences(raw)
	for {
		m := preambleRe.FindStringIndex(t)
		if m == nil {
			return t
		}
		line, rest, multi := strings.Cut(t, "\n")
		if multi && metaLine(line) {
			t = stripFences(rest)
			continue
		}
		// "Sure! Create ..." / "Of course: Create ...": cut through the first break after the phrase.
		i := strings.IndexAny(line[m[1]:], ":!.")
		if i < 0 {
			return t
		}
		tail := strings.TrimSpace(line[m[1]+i+1:])
		if tail == "" {
			return t
		}
		if multi {
			tail += "\n" + rest
		}
		t = stripFences(tail)
	}
}

const maxMetaLine = 80

var metaWords = []string{"prompt", "here", "write", "help", "happy", "below"}

// metaLine reports whether a line only announces what follows.
func metaLine(line string) bool {
	line = strings.TrimSpace(line)
	if strings.HasSuffix(line, ":") {
		return true
	}
	if utf8.RuneCountInString(line) > maxMetaLine {
		return false
	}
	lower := strings.ToLower(line)
	for _, w := range metaWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = leadingFence.ReplaceAllString(s, "")
	s = trailingFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// capDOM truncates a DOM snapshot to max bytes on a rune boundary. Zero disables the cap.
func capDOM(dom string, max int) string {
	dom = strings.TrimSpace(dom)
	if max <= 0 || len(dom) <= max {
		return dom
	}
	cut := dom[:max]
	for !utf8.ValidString(cut) && len(cut) > 0 {
		cut = cut[:len(cut)-1]
	}
	return cut
}
