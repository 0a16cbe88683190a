package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/lovabuddy/internal/client"
	"github.com/yungbote/lovabuddy/internal/domain/design"
	"github.com/yungbote/lovabuddy/internal/relay/config"
	"github.com/yungbote/lovabuddy/internal/relay/engine"
	"github.com/yungbote/lovabuddy/internal/relay/engine/mock"
	"github.com/yungbote/lovabuddy/internal/relay/handoff"
	"github.com/yungbote/lovabuddy/internal/relay/httpapi"
	"github.com/yungbote/lovabuddy/internal/relay/service"
)

type fakeBackend struct {
	mu sync.Mutex

	caption    string
	captionErr error
	plan       design.Plan
	planErr    error
	finalErr   error

	plannedWith design.PromptContext
	finalWith   []design.PromptContext
	improveWith []client.ImproveRequest
}

func (f *fakeBackend) AnalyzeDrawing(context.Context, string) (string, error) {
	return f.caption, f.captionErr
}

func (f *fakeBackend) Plan(_ context.Context, pc design.PromptContext, _ string) (design.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plannedWith = pc
	return f.plan, f.planErr
}

func (f *fakeBackend) Final(_ context.Context, pc design.PromptContext) (client.Final, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalWith = append(f.finalWith, pc)
	if f.finalErr != nil {
		return client.Final{}, f.finalErr
	}
	return client.Final{Prompt: "Build " + pc.BaseIdea, Context: pc, HandoffID: "h-final"}, nil
}

func (f *fakeBackend) Improve(_ context.Context, req client.ImproveRequest) (client.Improved, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.improveWith = append(f.improveWith, req)
	return client.Improved{Prompt: req.OriginalPrompt + " with " + req.Improvement, HandoffID: "h-improve"}, nil
}

func answerAll(t *testing.T, s *Session, pick int) *Op {
	t.Helper()
	for {
		_, ok := s.Current()
		require.True(t, ok, "state=%s", s.State())
		require.NoError(t, s.Select(pick))
		op, err := s.Next()
		require.NoError(t, err)
		if op != nil {
			return op
		}
	}
}

func TestSessionHappyPath(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{plan: mock.SamplePlan()}
	s := New(b, nil)

	op, err := s.Submit("  a space explorer game ", "")
	require.NoError(t, err)
	require.Equal(t, StatePlanning, s.State())
	require.NoError(t, s.Do(context.Background(), op))
	require.Equal(t, StateAnswering, s.State())
	require.Equal(t, "a space explorer game", b.plannedWith.BaseIdea)
	require.Equal(t, "1/3 ●○○", s.ProgressLabel())

	fin := answerAll(t, s, 0)
	require.Equal(t, StateFinalizing, s.State())
	require.Contains(t, s.LoadingMessages(), "Building your fiery colors…")
	require.NoError(t, s.Do(context.Background(), fin))

	require.Equal(t, StateDone, s.State())
	require.Equal(t, "Build a space explorer game", s.Prompt())
	require.Equal(t, "h-final", s.HandoffID())
	got := s.Context()
	require.Equal(t, []string{"#ff7e5f", "#feb47b", "#ffd86f"}, got.Palette)
	require.Equal(t, "card-grid", got.Layout)
	require.Equal(t, "Nunito", got.Font)
}

func TestSelectTwiceLeavesContextUntilNext(t *testing.T) {
	t.Parallel()

	s := New(&fakeBackend{plan: mock.SamplePlan()}, nil)
	op, err := s.Submit("zoo", "")
	require.NoError(t, err)
	require.NoError(t, s.Do(context.Background(), op))
	before := s.Context()

	require.NoError(t, s.Select(1))
	require.NoError(t, s.Select(1))
	require.Equal(t, before, s.Context())
	sel, ok := s.Selection()
	require.True(t, ok)
	require.Equal(t, "#2193b0,#6dd5ed", sel.Value)

	require.NoError(t, s.Select(0))
	require.ErrorIs(t, s.Select(7), ErrBadChoice)

	_, err = s.Next()
	require.NoError(t, err)
	require.Equal(t, []string{"#ff7e5f", "#feb47b", "#ffd86f"}, s.Context().Palette)
	_, ok = s.Selection()
	require.False(t, ok, "selection clears on advance")

	_, err = s.Next()
	require.ErrorIs(t, err, ErrNoSelection)
}

func TestPaletteMergeRoundTrip(t *testing.T) {
	t.Parallel()

	plan := design.Plan{Steps: []design.Step{{
		Question:      "Colors?",
		ExpectedField: design.FieldPalette,
		Choices: []design.Choice{
			{Label: "RG", Value: " #ff0000 , ,#00ff00", Type: design.ChoiceColor},
			{Label: "B", Value: "#0000ff", Type: design.ChoiceColor},
			{Label: "K", Value: "#000000", Type: design.ChoiceColor},
		},
	}}}
	b := &fakeBackend{plan: plan}
	s := New(b, nil)
	op, _ := s.Submit("art", "")
	require.NoError(t, s.Do(context.Background(), op))
	require.NoError(t, s.Do(context.Background(), answerAll(t, s, 0)))
	require.Equal(t, []string{"#ff0000", "#00ff00"}, b.finalWith[0].Palette)
}

func TestEmptyPlanFinalizesWithUnmodifiedContext(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{}
	s := New(b, nil)
	op, err := s.Submit("a bakery", "")
	require.NoError(t, err)

	next, fresh := s.Apply(op.Run(context.Background()))
	require.True(t, fresh)
	require.NotNil(t, next)
	require.Equal(t, OpFinal, next.Kind)
	require.Equal(t, StateFinalizing, s.State())

	require.NoError(t, s.Do(context.Background(), next))
	require.Len(t, b.finalWith, 1)
	require.Equal(t, design.PromptContext{BaseIdea: "a bakery"}, b.finalWith[0])
	require.Equal(t, StateDone, s.State())
}

func TestStaleResponsesAreDropped(t *testing.T) {
	t.Parallel()

	s := New(&fakeBackend{plan: mock.SamplePlan()}, nil)
	first, err := s.Submit("first", "")
	require.NoError(t, err)

	_, err = s.Submit("again", "")
	require.ErrorIs(t, err, ErrBusy)

	s.Reset()
	second, err := s.Submit("second", "")
	require.NoError(t, err)
	require.Greater(t, second.Gen, first.Gen)

	_, fresh := s.Apply(first.Run(context.Background()))
	require.False(t, fresh)
	require.Equal(t, StatePlanning, s.State())
	require.Empty(t, s.Context().BaseIdea)

	_, fresh = s.Apply(second.Run(context.Background()))
	require.True(t, fresh)
	require.Equal(t, "second", s.Context().BaseIdea)

	// Delivering the same outcome twice is a no-op.
	_, fresh = s.Apply(second.Run(context.Background()))
	require.False(t, fresh)
}

func TestFailureSurfacesMessageAndRetries(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{planErr: &client.HTTPError{StatusCode: 422, Code: "malformed_plan", Message: "model returned an unusable plan"}}
	s := New(b, nil)
	op, _ := s.Submit("robots", "")
	err := s.Do(context.Background(), op)
	require.EqualError(t, err, "model returned an unusable plan")
	require.Equal(t, StateFailed, s.State())
	require.Equal(t, OpPlan, s.Failed())
	require.Empty(t, s.Context().BaseIdea, "context is not touched on failure")

	b.planErr = nil
	b.plan = mock.SamplePlan()
	retry, err := s.Retry()
	require.NoError(t, err)
	require.NoError(t, s.Do(context.Background(), retry))
	require.Equal(t, StateAnswering, s.State())
	require.Equal(t, "robots", s.Context().BaseIdea)

	_, err = s.Retry()
	require.ErrorIs(t, err, ErrNothingToRetry)
}

func TestFinalFailureKeepsAnswers(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{plan: mock.SamplePlan(), finalErr: context.DeadlineExceeded}
	s := New(b, nil)
	op, _ := s.Submit("pets", "")
	require.NoError(t, s.Do(context.Background(), op))
	require.Error(t, s.Do(context.Background(), answerAll(t, s, 2)))
	require.Equal(t, "That took too long. Please try again.", s.Error())
	require.Equal(t, OpFinal, s.Failed())
	require.Equal(t, "Playfair Display", s.Context().Font)
	require.Equal(t, "hero-split", s.Context().Layout)

	b.finalErr = nil
	retry, err := s.Retry()
	require.NoError(t, err)
	require.NoError(t, s.Do(context.Background(), retry))
	require.Equal(t, StateDone, s.State())
	require.Len(t, b.finalWith, 2)
	require.Equal(t, b.finalWith[0], b.finalWith[1])
}

func TestDrawingCaptionMerged(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		idea       string
		caption    string
		captionErr error
		want       string
	}{
		{"text stays primary", "a space game", "a rocket", nil, "a space game (drawing: a rocket)"},
		{"drawing only", "", "a rocket", nil, "a rocket"},
		{"caption failure ignored", "a space game", "", errors.New("boom"), "a space game"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			b := &fakeBackend{plan: mock.SamplePlan(), caption: tc.caption, captionErr: tc.captionErr}
			s := New(b, nil)
			op, err := s.Submit(tc.idea, "data:image/png;base64,AAAA")
			require.NoError(t, err)
			require.NoError(t, s.Do(context.Background(), op))
			require.Equal(t, tc.want, b.plannedWith.BaseIdea)
			require.Equal(t, tc.want, s.Context().BaseIdea)
		})
	}
}

func TestSubmitValidation(t *testing.T) {
	t.Parallel()

	s := New(&fakeBackend{}, nil)
	_, err := s.Submit("   ", "")
	require.ErrorIs(t, err, ErrEmptyIdea)
	require.ErrorIs(t, s.Select(0), ErrWrongState)
	_, err = s.Next()
	require.ErrorIs(t, err, ErrWrongState)
	_, err = s.Improve("bigger", "", "")
	require.ErrorIs(t, err, ErrWrongState)
}

func TestImprove(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{}
	s := New(b, nil)
	op, _ := s.Submit("a bakery", "")
	require.NoError(t, s.Do(context.Background(), op))
	require.Equal(t, StateDone, s.State())

	_, err := s.Improve("  ", "", "")
	require.ErrorIs(t, err, ErrEmptyFeedback)

	imp, err := s.Improve("make the title bigger", "<h1>Bakery</h1>", "")
	require.NoError(t, err)
	require.Equal(t, StateImprovement, s.State())
	require.Equal(t, improvingMessages, s.LoadingMessages())
	require.NoError(t, s.Do(context.Background(), imp))

	require.Equal(t, StateDone, s.State())
	require.Equal(t, "Build a bakery with make the title bigger", s.Prompt())
	require.Equal(t, "h-improve", s.HandoffID())
	require.Equal(t, "<h1>Bakery</h1>", b.improveWith[0].CurrentDOM)
	require.Equal(t, "Build a bakery", b.improveWith[0].OriginalPrompt)
}

func TestVibe(t *testing.T) {
	t.Parallel()

	require.Equal(t, "fiery colors", Vibe([]string{"#3b82f6", "#ef4444"}))
	require.Equal(t, "cool palette", Vibe([]string{"#3b82f6", "#22c55e"}))
	require.Equal(t, "cool palette", Vibe([]string{"teal"}))
	require.Equal(t, "chosen style", Vibe([]string{"#808080"}))
	require.Equal(t, "chosen style", Vibe(nil))
}

func TestReadAloudTexts(t *testing.T) {
	t.Parallel()

	s := New(&fakeBackend{plan: mock.SamplePlan()}, nil)
	op, _ := s.Submit("zoo", "")
	require.NoError(t, s.Do(context.Background(), op))
	texts := s.ReadAloudTexts()
	require.Len(t, texts, 3)
	require.Equal(t, "Which colors should your site wear?. Option 1: Sunset Dreams. Option 2: Ocean Breeze. Option 3: Forest Friends", texts[0])
}

// TestEndToEndThroughRelay drives a session against the real relay handler with a
// scripted model.
func TestEndToEndThroughRelay(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.LLM.Engine = "mock"
	cfg.Handoff.DSN = fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	store, err := handoff.Open(cfg.Handoff, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	eng := mock.New()
	eng.Func = func(_ context.Context, req engine.GenerateRequest) (*engine.GenerateResponse, error) {
		if req.Schema != nil {
			b, _ := json.Marshal(mock.SamplePlan())
			return &engine.GenerateResponse{Text: "```json\n" + string(b) + "\n```", FinishReason: "STOP"}, nil
		}
		return &engine.GenerateResponse{
			Text:         "Here is your prompt:\n```\nBuild a space explorer game with a starry palette.\n```",
			FinishReason: "STOP",
		}, nil
	}
	h := httpapi.NewHandler(cfg, nil, httpapi.Deps{Relay: service.New(nil, nil, eng, store, cfg), Handoffs: store})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := client.New(client.Options{BaseURL: srv.URL})
	require.NoError(t, err)

	s := New(c, nil)
	op, err := s.Submit("a space explorer game", "")
	require.NoError(t, err)
	require.NoError(t, s.Do(context.Background(), op))

	var fields []design.Field
	for _, st := range s.Plan().Steps {
		fields = append(fields, st.ExpectedField)
	}
	require.Equal(t, []design.Field{design.FieldPalette, design.FieldLayout, design.FieldFont}, fields)

	require.NoError(t, s.Do(context.Background(), answerAll(t, s, 1)))
	require.Equal(t, StateDone, s.State())
	require.False(t, strings.HasPrefix(s.Prompt(), "Here is"), "prompt=%q", s.Prompt())
	require.Equal(t, "Build a space explorer game with a starry palette.", s.Prompt())

	got := s.Context()
	require.Equal(t, "a space explorer game", got.BaseIdea)
	require.Equal(t, []string{"#2193b0", "#6dd5ed"}, got.Palette)
	require.Equal(t, "long-scroll", got.Layout)
	require.Equal(t, "Poppins", got.Font)

	prompt, err := c.Consume(context.Background(), s.HandoffID())
	require.NoError(t, err)
	require.Equal(t, s.Prompt(), prompt)
	_, err = c.Consume(context.Background(), s.HandoffID())
	require.Equal(t, "conflict", client.CodeOf(err))
}
