package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"strings"
	"testing"

	"github.com/yungbote/lovabuddy/internal/domain/design"
	"github.com/yungbote/lovabuddy/internal/platform/apierr"
	"github.com/yungbote/lovabuddy/internal/relay/config"
	"github.com/yungbote/lovabuddy/internal/relay/engine"
	"github.com/yungbote/lovabuddy/internal/relay/engine/mock"
	"github.com/yungbote/lovabuddy/internal/relay/handoff"
)

type fakeHandoffs struct {
	prompts []string
}

func (f *fakeHandoffs) Create(_ context.Context, kind handoff.Kind, prompt string, _ *design.PromptContext, _ string) (*handoff.Handoff, error) {
	f.prompts = append(f.prompts, prompt)
	return &handoff.Handoff{ID: "h-1", Kind: kind, Prompt: prompt}, nil
}

func newTestService(eng engine.Engine, h Handoffs) *Service {
	cfg := config.Default()
	cfg.LLM.Engine = "mock"
	cfg.Improve.MaxDOMBytes = 32
	return New(nil, nil, eng, h, cfg)
}

func answer(text string) func(context.Context, engine.GenerateRequest) (*engine.GenerateResponse, error) {
	return func(context.Context, engine.GenerateRequest) (*engine.GenerateResponse, error) {
		return &engine.GenerateResponse{Text: text, FinishReason: "STOP"}, nil
	}
}

func pngDataURL(t *testing.T, drawLine bool) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for x := 0; x < 40; x++ {
		for y := 0; y < 40; y++ {
			img.Set(x, y, color.White)
		}
	}
	if drawLine {
		for x := 0; x < 40; x++ {
			for y := 18; y < 22; y++ {
				img.Set(x, y, color.Black)
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func requireCode(t *testing.T, err error, status int, code string) *apierr.Error {
	t.Helper()
	var ae *apierr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected *apierr.Error, got %T (%v)", err, err)
	}
	if ae.Status != status || ae.Code != code {
		t.Fatalf("status=%d code=%q, want %d %q", ae.Status, ae.Code, status, code)
	}
	return ae
}

func TestDescribeFallsBackToInput(t *testing.T) {
	t.Parallel()

	eng := mock.New()
	eng.Func = answer("   ")
	s := newTestService(eng, nil)
	got, err := s.Describe(context.Background(), "a game about cats")
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if got != "a game about cats" {
		t.Fatalf("got=%q", got)
	}

	eng.Func = answer("\"Cat adventure game\"\nextra")
	got, _ = s.Describe(context.Background(), "a game about cats")
	if got != "Cat adventure game" {
		t.Fatalf("got=%q", got)
	}

	if _, err := s.Describe(context.Background(), " "); err == nil {
		t.Fatalf("expected error for blank text")
	}
}

func TestAnalyzeImageBlankSkipsUpstream(t *testing.T) {
	t.Parallel()

	eng := mock.New()
	s := newTestService(eng, nil)
	img, err := ParseDataURL(pngDataURL(t, false))
	if err != nil {
		t.Fatalf("ParseDataURL: %v", err)
	}
	got, err := s.AnalyzeImage(context.Background(), img)
	if err != nil || got != FallbackConcept {
		t.Fatalf("got=%q err=%v", got, err)
	}
	if n := len(eng.Calls()); n != 0 {
		t.Fatalf("calls=%d", n)
	}

	img, _ = ParseDataURL(pngDataURL(t, true))
	got, err = s.AnalyzeImage(context.Background(), img)
	if err != nil || got != "A rocket flying past the moon" {
		t.Fatalf("got=%q err=%v", got, err)
	}
	calls := eng.Calls()
	if len(calls) != 1 || len(calls[0].Parts) != 2 || calls[0].Parts[1].MIMEType != "image/png" {
		t.Fatalf("unexpected request: %+v", calls)
	}
}

func canvasDataURL(t *testing.T, stroke func(*image.NRGBA)) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 900, 420))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if stroke != nil {
		stroke(img)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestIsBlankSeesThinStrokes(t *testing.T) {
	t.Parallel()

	for x0 := 90; x0 < 120; x0++ {
		img, err := ParseDataURL(canvasDataURL(t, func(m *image.NRGBA) {
			for x := x0; x < x0+3; x++ {
				for y := 100; y < 300; y++ {
					m.Set(x, y, color.Black)
				}
			}
		}))
		if err != nil {
			t.Fatalf("ParseDataURL: %v", err)
		}
		if img.IsBlank() {
			t.Fatalf("3px stroke at x=%d classified blank", x0)
		}
	}

	dot, _ := ParseDataURL(canvasDataURL(t, func(m *image.NRGBA) { m.Set(451, 207, color.NRGBA{R: 40, G: 90, B: 200, A: 255}) }))
	if dot.IsBlank() {
		t.Fatalf("single pixel classified blank")
	}

	white, _ := ParseDataURL(canvasDataURL(t, nil))
	if !white.IsBlank() {
		t.Fatalf("white canvas not blank")
	}
	transparent, _ := ParseDataURL(canvasDataURL(t, func(m *image.NRGBA) {
		draw.Draw(m, m.Bounds(), image.Transparent, image.Point{}, draw.Src)
	}))
	if !transparent.IsBlank() {
		t.Fatalf("transparent canvas not blank")
	}
}

func TestAnalyzeImageThinStrokeCallsUpstream(t *testing.T) {
	t.Parallel()

	eng := mock.New()
	s := newTestService(eng, nil)
	img, _ := ParseDataURL(canvasDataURL(t, func(m *image.NRGBA) {
		for x := 107; x < 110; x++ {
			for y := 50; y < 370; y++ {
				m.Set(x, y, color.Black)
			}
		}
	}))
	got, err := s.AnalyzeImage(context.Background(), img)
	if err != nil || got != "A rocket flying past the moon" || len(eng.Calls()) != 1 {
		t.Fatalf("got=%q err=%v calls=%d", got, err, len(eng.Calls()))
	}
}

func TestAnalyzeImageEmptyCandidatesFallsBack(t *testing.T) {
	t.Parallel()

	eng := mock.New()
	eng.Func = func(context.Context, engine.GenerateRequest) (*engine.GenerateResponse, error) {
		return nil, &engine.EmptyError{Raw: []byte(`{"candidates":[]}`)}
	}
	s := newTestService(eng, nil)
	img, _ := ParseDataURL(pngDataURL(t, true))
	got, err := s.AnalyzeImage(context.Background(), img)
	if err != nil || got != FallbackConcept {
		t.Fatalf("got=%q err=%v", got, err)
	}
}

func TestParseDataURL(t *testing.T) {
	t.Parallel()

	if img, err := ParseDataURL(""); img != nil || err != nil {
		t.Fatalf("empty: img=%v err=%v", img, err)
	}
	for _, bad := range []string{"http://x/y.png", "data:image/png,abc", "data:image/png;base64,%%%"} {
		if _, err := ParseDataURL(bad); !errors.Is(err, ErrBadDataURL) {
			t.Fatalf("%q: err=%v", bad, err)
		}
	}
}

func TestPlanQuestionsSendsSchemaAndDecodes(t *testing.T) {
	t.Parallel()

	eng := mock.New()
	s := newTestService(eng, nil)
	pc := design.PromptContext{BaseIdea: "a space explorer game"}
	plan, err := s.PlanQuestions(context.Background(), pc, nil)
	if err != nil {
		t.Fatalf("PlanQuestions: %v", err)
	}
	if len(plan.Steps) != 3 || plan.Steps[0].ExpectedField != design.FieldPalette {
		t.Fatalf("plan=%+v", plan)
	}

	req := eng.Calls()[0]
	if !req.JSON || req.Schema == nil || req.System == "" {
		t.Fatalf("request not schema constrained: %+v", req)
	}
	enum := req.Schema.Properties["steps"].Items.Properties["expected_field"].Enum
	if len(enum) != len(design.FieldPriority) {
		t.Fatalf("enum=%v", enum)
	}
	if !strings.Contains(req.Parts[0].Text, "a space explorer game") {
		t.Fatalf("prompt missing base idea")
	}
}

func TestPlanQuestionsFencedOutput(t *testing.T) {
	t.Parallel()

	b, _ := json.Marshal(mock.SamplePlan())
	eng := mock.New()
	eng.Func = answer("Here you go:\n```json\n" + string(b) + "\n```")
	s := newTestService(eng, nil)
	plan, err := s.PlanQuestions(context.Background(), design.PromptContext{}, nil)
	if err != nil {
		t.Fatalf("PlanQuestions: %v", err)
	}
	if len(plan.Steps) != 3 {
		t.Fatalf("steps=%d", len(plan.Steps))
	}
}

func TestPlanQuestionsErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		fn     func(context.Context, engine.GenerateRequest) (*engine.GenerateResponse, error)
		status int
		code   string
	}{
		{
			name: "empty candidates",
			fn: func(context.Context, engine.GenerateRequest) (*engine.GenerateResponse, error) {
				return nil, &engine.EmptyError{Raw: []byte(strings.Repeat("x", 3000))}
			},
			status: http.StatusUnprocessableEntity,
			code:   "empty_response",
		},
		{name: "not json", fn: answer("I cannot help with that"), status: http.StatusUnprocessableEntity, code: "invalid_json"},
		{name: "missing steps", fn: answer(`{"questions":[]}`), status: http.StatusUnprocessableEntity, code: "malformed_plan"},
		{
			name:   "unknown field",
			fn:     answer(`{"steps":[{"question":"q","expected_field":"music","choices":[]}]}`),
			status: http.StatusUnprocessableEntity,
			code:   "malformed_plan",
		},
		{
			name: "upstream",
			fn: func(context.Context, engine.GenerateRequest) (*engine.GenerateResponse, error) {
				return nil, &engine.UpstreamError{StatusCode: 429, Message: "quota"}
			},
			status: http.StatusBadGateway,
			code:   "upstream_error",
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			eng := mock.New()
			eng.Func = tc.fn
			s := newTestService(eng, nil)
			_, err := s.PlanQuestions(context.Background(), design.PromptContext{}, nil)
			ae := requireCode(t, err, tc.status, tc.code)
			if len(ae.Raw) > maxRawDump {
				t.Fatalf("raw dump too long: %d", len(ae.Raw))
			}
		})
	}
}

func TestPlanQuestionsEmptyPlanIsValid(t *testing.T) {
	t.Parallel()

	eng := mock.New()
	eng.Func = answer(`{"steps":[]}`)
	s := newTestService(eng, nil)
	plan, err := s.PlanQuestions(context.Background(), design.PromptContext{BaseIdea: "x"}, nil)
	if err != nil || !plan.Empty() {
		t.Fatalf("plan=%+v err=%v", plan, err)
	}
}

func TestSynthesizeFinalSanitizesAndStores(t *testing.T) {
	t.Parallel()

	eng := mock.New()
	eng.Func = answer("Here is the prompt:\n```\nCreate a website for space explorers.\n```")
	h := &fakeHandoffs{}
	s := newTestService(eng, h)
	pc := design.PromptContext{BaseIdea: "a space explorer game", Palette: []string{"#000000", "#ffffff"}}
	out, err := s.SynthesizeFinal(context.Background(), pc)
	if err != nil {
		t.Fatalf("SynthesizeFinal: %v", err)
	}
	if out.Prompt != "Create a website for space explorers." {
		t.Fatalf("prompt=%q", out.Prompt)
	}
	if out.HandoffID != "h-1" || len(h.prompts) != 1 {
		t.Fatalf("handoff=%q stored=%v", out.HandoffID, h.prompts)
	}
	req := eng.Calls()[0]
	if req.Model != config.Default().LLM.FinalModel {
		t.Fatalf("model=%q", req.Model)
	}
	if !strings.Contains(req.Parts[0].Text, "#ffffff") {
		t.Fatalf("details not templated")
	}
}

func TestSynthesizeFinalEmptyAfterSanitize(t *testing.T) {
	t.Parallel()

	eng := mock.New()
	eng.Func = answer("```\n```")
	s := newTestService(eng, nil)
	_, err := s.SynthesizeFinal(context.Background(), design.PromptContext{BaseIdea: "x"})
	requireCode(t, err, http.StatusUnprocessableEntity, "empty_response")
}

func TestImproveCapsDOMAndRequiresFeedback(t *testing.T) {
	t.Parallel()

	eng := mock.New()
	eng.Func = answer("Update the website to use a blue header.")
	s := newTestService(eng, nil)

	_, err := s.Improve(context.Background(), ImproveInput{OriginalPrompt: "p"})
	requireCode(t, err, http.StatusBadRequest, "invalid_request")

	out, err := s.Improve(context.Background(), ImproveInput{
		OriginalPrompt: "Create a website for cats",
		Improvement:    "make the header blue",
		CurrentDOM:     "<header class=\"top\">" + strings.Repeat("x", 200) + "</header>",
	})
	if err != nil {
		t.Fatalf("Improve: %v", err)
	}
	if out.Prompt != "Update the website to use a blue header." || out.HandoffID != "" {
		t.Fatalf("out=%+v", out)
	}
	req := eng.Calls()[0]
	if !strings.Contains(req.System, "Create a website for cats") {
		t.Fatalf("system missing original prompt")
	}
	if strings.Contains(req.Parts[0].Text, "</header>") {
		t.Fatalf("DOM was not capped")
	}
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"```markdown\nCreate a site\n```":                      "Create a site",
		"Sure! Here is your prompt:\n\nCreate a site":          "Create a site",
		"Of course: Create a site with a grid":                 "Create a site with a grid",
		"Create a website for cats":                            "Create a website for cats",
		"Certainly, I'll write it.\n```\nUpdate the site\n```": "Update the site",
		"Sure! Create a website for a space explorer game.":    "Create a website for a space explorer game.",
		"Here is a prompt for a bakery: Create a warm site":    "Create a warm site",
		"Based on the space explorer idea, create a responsive single-page website with a starry hero.\n- Use the palette #2193b0, #6dd5ed.\n- Use Poppins.": "Based on the space explorer idea, create a responsive single-page website with a starry hero.\n- Use the palette #2193b0, #6dd5ed.\n- Use Poppins.",
		"Based on your idea, create a cat site.": "Based on your idea, create a cat site.",
	}
	for in, want := range cases {
		if got := Sanitize(in); got != want {
			t.Fatalf("Sanitize(%q)=%q want %q", in, got, want)
		}
	}
}

func TestCapDOMRuneBoundary(t *testing.T) {
	t.Parallel()

	if got := capDOM("ééé", 3); got != "é" {
		t.Fatalf("got=%q", got)
	}
	if got := capDOM("abc", 0); got != "abc" {
		t.Fatalf("got=%q", got)
	}
}
