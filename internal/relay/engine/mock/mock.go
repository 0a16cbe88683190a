package mock

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/yungbote/lovabuddy/internal/domain/design"
	"github.com/yungbote/lovabuddy/internal/relay/engine"
)

// Engine answers without any network. Plan requests (those carrying a schema) get a fixed
// three-step plan; image requests get a fixed caption; everything else gets a builder-style prompt.
// Func, when set, replaces the canned behavior.
type Engine struct {
	Func func(ctx context.Context, req engine.GenerateRequest) (*engine.GenerateResponse, error)

	mu    sync.Mutex
	calls []engine.GenerateRequest
}

func New() *Engine { return &Engine{} }

func (e *Engine) Generate(ctx context.Context, req engine.GenerateRequest) (*engine.GenerateResponse, error) {
	e.mu.Lock()
	e.calls = append(e.calls, req)
	e.mu.Unlock()

	if e.Func != nil {
		return e.Func(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch {
	case req.Schema != nil:
		b, _ := json.Marshal(SamplePlan())
		return &engine.GenerateResponse{Text: string(b), FinishReason: "STOP"}, nil
	case hasImage(req.Parts):
		return &engine.GenerateResponse{Text: "A rocket flying past the moon", FinishReason: "STOP"}, nil
	default:
		return &engine.GenerateResponse{Text: "Create a website for " + firstLine(req.Parts), FinishReason: "STOP"}, nil
	}
}

// Calls returns a copy of every request seen so far.
func (e *Engine) Calls() []engine.GenerateRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]engine.GenerateRequest(nil), e.calls...)
}

// SamplePlan is the plan the mock returns for schema-constrained requests.
func SamplePlan() design.Plan {
	return design.Plan{Steps: []design.Step{
		{
			Question:      "Which colors should your site wear?",
			ExpectedField: design.FieldPalette,
			Choices: []design.Choice{
				{Label: "Sunset Dreams", Emoji: "🌅", Value: "#ff7e5f,#feb47b,#ffd86f", Type: design.ChoiceColor},
				{Label: "Ocean Breeze", Emoji: "🌊", Value: "#2193b0,#6dd5ed", Type: design.ChoiceColor},
				{Label: "Forest Friends", Emoji: "🌲", Value: "#134e5e,#71b280,#c9e4ca", Type: design.ChoiceColor},
			},
		},
		{
			Question:      "How should the pages be laid out?",
			ExpectedField: design.FieldLayout,
			Choices: []design.Choice{
				{Label: "Picture grid", Value: "card-grid", Type: design.ChoiceLayout},
				{Label: "One long story", Value: "long-scroll", Type: design.ChoiceLayout},
				{Label: "Big welcome", Value: "hero-split", Type: design.ChoiceLayout},
			},
		},
		{
			Question:      "Pick a letter style",
			ExpectedField: design.FieldFont,
			Choices: []design.Choice{
				{Label: "Round and soft", Value: "Nunito", Type: design.ChoiceText},
				{Label: "Bold and clean", Value: "Poppins", Type: design.ChoiceText},
				{Label: "Fancy", Value: "Playfair Display", Type: design.ChoiceText},
				{Label: "Robot", Value: "Roboto Mono", Type: design.ChoiceText},
			},
		},
	}}
}

func hasImage(parts []engine.Part) bool {
	for _, p := range parts {
		if len(p.Data) > 0 {
			return true
		}
	}
	return false
}

func firstLine(parts []engine.Part) string {
	for _, p := range parts {
		if t := strings.TrimSpace(p.Text); t != "" {
			if i := strings.IndexByte(t, '\n'); i > 0 {
				t = t[:i]
			}
			return t
		}
	}
	return "a fun website"
}
