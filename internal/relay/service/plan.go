package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/yungbote/lovabuddy/internal/domain/design"
	"github.com/yungbote/lovabuddy/internal/platform/apierr"
	"github.com/yungbote/lovabuddy/internal/platform/ctxutil"
	"github.com/yungbote/lovabuddy/internal/prompts"
	"github.com/yungbote/lovabuddy/internal/relay/engine"
	"github.com/yungbote/lovabuddy/internal/relay/jsonx"
)

// PlanQuestions asks the model for the remaining questions about pc. A blank drawing is ignored.
func (s *Service) PlanQuestions(ctx context.Context, pc design.PromptContext, drawing *Image) (design.Plan, error) {
	if drawing != nil && drawing.IsBlank() {
		drawing = nil
	}
	parts := []engine.Part{{Text: prompts.Plan(pc.BaseIdea, pc.Details(), drawing != nil)}}
	if drawing != nil {
		parts = append(parts, engine.Part{Data: drawing.Data, MIMEType: drawing.MIMEType})
	}

	resp, err := s.generate(ctx, "plan", engine.GenerateRequest{
		Model:       s.llm.Model,
		System:      prompts.System(),
		Parts:       parts,
		Temperature: f32(0.5),
		TopK:        f32(30),
		TopP:        f32(0.95),
		JSON:        true,
		Schema:      PlanSchema(),
	})
	if err != nil {
		return design.Plan{}, err
	}

	raw := strings.TrimSpace(resp.Text)
	if raw == "" {
		e := apierr.WithRaw(http.StatusUnprocessableEntity, "empty_response", ErrEmptyResponse, truncate(string(resp.Raw), maxRawDump))
		s.fail(ctx, "plan", e)
		return design.Plan{}, e
	}
	body, err := jsonx.Extract(raw)
	if err != nil {
		e := apierr.WithRaw(http.StatusUnprocessableEntity, "invalid_json", ErrInvalidJSON, truncate(raw, maxRawDump))
		s.fail(ctx, "plan", e)
		return design.Plan{}, e
	}
	plan, err := design.DecodePlan(body)
	if err != nil {
		e := apierr.WithRaw(http.StatusUnprocessableEntity, "malformed_plan", errors.Join(ErrMalformedPlan, err), truncate(raw, maxRawDump))
		s.fail(ctx, "plan", e)
		return design.Plan{}, e
	}

	s.ok("plan")
	s.log.Debug("plan ready", append(ctxutil.LogFields(ctx), "steps", len(plan.Steps), "missing", pc.Missing())...)
	return plan, nil
}

// PlanSchema is the response schema sent with planning requests. Field and type enums mirror the
// values DecodePlan accepts.
func PlanSchema() *engine.Schema {
	fields := make([]string, len(design.FieldPriority))
	for i, f := range design.FieldPriority {
		fields[i] = string(f)
	}
	types := make([]string, len(design.ChoiceTypes))
	for i, t := range design.ChoiceTypes {
		types[i] = string(t)
	}
	str := func() *engine.Schema { return &engine.Schema{Type: engine.TypeString} }

	choice := &engine.Schema{
		Type: engine.TypeObject,
		Properties: map[string]*engine.Schema{
			"label": str(),
			"emoji": str(),
			"value": str(),
			"type":  {Type: engine.TypeString, Enum: types},
		},
		Order:    []string{"label", "emoji", "value", "type"},
		Required: []string{"label", "value", "type"},
	}
	step := &engine.Schema{
		Type: engine.TypeObject,
		Properties: map[string]*engine.Schema{
			"question":       str(),
			"expected_field": {Type: engine.TypeString, Enum: fields},
			"choices": {
				Type:     engine.TypeArray,
				Items:    choice,
				MinItems: design.MinChoices,
				MaxItems: design.MaxChoices,
			},
		},
		Order:    []string{"question", "expected_field", "choices"},
		Required: []string{"question", "expected_field", "choices"},
	}
	return &engine.Schema{
		Type: engine.TypeObject,
		Properties: map[string]*engine.Schema{
			"steps": {Type: engine.TypeArray, Items: step, MaxItems: design.MaxSteps},
		},
		Required: []string{"steps"},
	}
}
