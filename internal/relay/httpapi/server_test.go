package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lovabuddy/internal/observability"
	"github.com/yungbote/lovabuddy/internal/relay/auth"
	"github.com/yungbote/lovabuddy/internal/relay/config"
	"github.com/yungbote/lovabuddy/internal/relay/engine"
	"github.com/yungbote/lovabuddy/internal/relay/engine/mock"
	"github.com/yungbote/lovabuddy/internal/relay/handoff"
	"github.com/yungbote/lovabuddy/internal/relay/service"
	"github.com/yungbote/lovabuddy/internal/relay/tts"
)

type fakeSynth struct{}

func (fakeSynth) Name() string { return "fake" }

func (fakeSynth) Synthesize(_ context.Context, text, _ string) ([]byte, error) {
	if text == "shh" {
		return nil, &engine.EmptyError{Raw: []byte(`{"candidates":[]}`)}
	}
	return tts.WrapPCM([]byte(text), 24000), nil
}

type testEnv struct {
	handler http.Handler
	engine  *mock.Engine
	cfg     *config.Config
}

func testHandler(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.LLM.Engine = "mock"
	cfg.HTTP.MaxRequestBytes = 64 << 10
	cfg.Handoff.DSN = fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	if mutate != nil {
		mutate(cfg)
	}

	store, err := handoff.Open(cfg.Handoff, nil)
	if err != nil {
		t.Fatalf("handoff.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	m := observability.NewMetrics()
	eng := mock.New()
	speech := tts.NewService(nil, m, fakeSynth{}, nil, cfg.TTS, "t:")
	deps := Deps{
		Relay:    service.New(nil, m, eng, store, cfg),
		Speech:   speech,
		Handoffs: store,
		Metrics:  m,
		Ready:    store.Ping,
	}
	return &testEnv{handler: NewHandler(cfg, nil, deps), engine: eng, cfg: cfg}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealthAndRequestIDs(t *testing.T) {
	env := testHandler(t, nil)

	rec := env.do(t, http.MethodGet, "/healthz", nil, headerRequestID, "req-123")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if got := rec.Header().Get(headerRequestID); got != "req-123" {
		t.Fatalf("request id=%q", got)
	}
	if rec.Header().Get(headerTraceID) == "" {
		t.Fatalf("missing trace id")
	}
	if rec := env.do(t, http.MethodGet, "/readyz", nil); rec.Code != http.StatusOK {
		t.Fatalf("readyz=%d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/metrics", nil); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "lovabuddy_http_requests_total") {
		t.Fatalf("metrics=%d", rec.Code)
	}
}

type planBody struct {
	Steps []struct {
		ExpectedField string `json:"expected_field"`
	} `json:"steps"`
}

func TestDescribeAndPlan(t *testing.T) {
	env := testHandler(t, nil)

	rec := env.do(t, http.MethodPost, "/analyze/describe", map[string]string{"text": "a space explorer game"})
	if rec.Code != http.StatusOK {
		t.Fatalf("describe=%d %s", rec.Code, rec.Body.String())
	}
	if got := decode[baseIdeaResponse](t, rec).BaseIdea; got == "" {
		t.Fatalf("empty base idea")
	}

	rec = env.do(t, http.MethodPost, "/conversation/plan", map[string]any{"context": map[string]string{"base_idea": "a space explorer game"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("plan=%d %s", rec.Code, rec.Body.String())
	}
	plan := decode[planBody](t, rec)
	if len(plan.Steps) != 3 || plan.Steps[0].ExpectedField != "palette" {
		t.Fatalf("plan=%+v", plan)
	}
}

func TestErrorEnvelope(t *testing.T) {
	env := testHandler(t, nil)
	env.engine.Func = func(context.Context, engine.GenerateRequest) (*engine.GenerateResponse, error) {
		return &engine.GenerateResponse{Text: "no json here"}, nil
	}

	cases := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
	}{
		{"bad body", "/conversation/plan", "{", http.StatusBadRequest, "invalid_request"},
		{"bad image", "/analyze/drawing", map[string]string{"imageDataUrl": "nope"}, http.StatusBadRequest, "invalid_request"},
		{"invalid json", "/conversation/plan", map[string]any{"context": map[string]string{}}, http.StatusUnprocessableEntity, "invalid_json"},
		{"unknown route", "/nope", nil, http.StatusNotFound, "not_found"},
		{"too large", "/analyze/describe", map[string]string{"text": strings.Repeat("a", 70<<10)}, http.StatusRequestEntityTooLarge, "invalid_request"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, tc.path, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("status=%d want %d body=%s", rec.Code, tc.status, rec.Body.String())
			}
			got := decode[errorEnvelope](t, rec)
			if got.Error.Code != tc.code || got.Error.Message == "" {
				t.Fatalf("envelope=%+v", got)
			}
			if tc.code == "invalid_json" && got.Error.Raw != "no json here" {
				t.Fatalf("raw=%q", got.Error.Raw)
			}
		})
	}
}

func TestFinalHandoffLifecycle(t *testing.T) {
	env := testHandler(t, nil)
	env.engine.Func = func(context.Context, engine.GenerateRequest) (*engine.GenerateResponse, error) {
		return &engine.GenerateResponse{Text: "Here is your prompt:\nCreate a website for space explorers."}, nil
	}

	rec := env.do(t, http.MethodPost, "/conversation/final", map[string]any{
		"context": map[string]any{"base_idea": "a space explorer game", "palette": []string{"#000000"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("final=%d %s", rec.Code, rec.Body.String())
	}
	final := decode[finalResponse](t, rec)
	if final.Prompt != "Create a website for space explorers." || final.HandoffID == "" {
		t.Fatalf("final=%+v", final)
	}
	if final.JSON.BaseIdea != "a space explorer game" {
		t.Fatalf("context not echoed: %+v", final.JSON)
	}

	rec = env.do(t, http.MethodGet, "/handoff/"+final.HandoffID, nil)
	if rec.Code != http.StatusOK || decode[handoffResponse](t, rec).Prompt != final.Prompt {
		t.Fatalf("get=%d %s", rec.Code, rec.Body.String())
	}
	if rec := env.do(t, http.MethodPost, "/handoff/"+final.HandoffID+"/consume", nil); rec.Code != http.StatusOK {
		t.Fatalf("consume=%d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/handoff/"+final.HandoffID+"/consume", nil); rec.Code != http.StatusConflict {
		t.Fatalf("second consume=%d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/handoff/missing", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing=%d", rec.Code)
	}
}

func TestSpeech(t *testing.T) {
	env := testHandler(t, nil)

	rec := env.do(t, http.MethodPost, "/tts", map[string]string{"text": "Pick a color", "speaker": "Zephyr"})
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "audio/wav" || !tts.IsWAV(rec.Body.Bytes()) {
		t.Fatalf("tts=%d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if rec := env.do(t, http.MethodPost, "/tts", map[string]string{"text": "hi", "speaker": "Robot"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown voice=%d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/tts", map[string]string{"text": "shh"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty audio=%d %s", rec.Code, rec.Body.String())
	}
	if got := decode[errorEnvelope](t, rec); got.Error.Code != "empty_response" || got.Error.Raw == "" {
		t.Fatalf("envelope=%+v", got)
	}

	rec = env.do(t, http.MethodPost, "/tts/batch", map[string]any{"texts": []string{"one", "two", "one"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("batch=%d %s", rec.Code, rec.Body.String())
	}
	batch := decode[batchResponse](t, rec)
	if batch.Speaker != "Fenrir" || len(batch.Items) != 2 || batch.Items[0].AudioBase64 == "" {
		t.Fatalf("batch=%+v", batch)
	}
}

func TestRenderCard(t *testing.T) {
	env := testHandler(t, nil)

	rec := env.do(t, http.MethodPost, "/cards/render", map[string]any{
		"field":    "palette",
		"choice":   map[string]string{"label": "Sunset", "value": "#ff7e5f,#feb47b", "type": "color"},
		"selected": true,
	})
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("render=%d %s", rec.Code, rec.Body.String())
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("not a png")
	}
	rec = env.do(t, http.MethodPost, "/cards/render", map[string]any{"choice": map[string]string{"label": "x", "type": "sparkle"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad type=%d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	env := testHandler(t, func(c *config.Config) {
		c.Auth.JWTSecret = "s3cret"
	})

	rec := env.do(t, http.MethodPost, "/analyze/describe", map[string]string{"text": "cats"})
	if rec.Code != http.StatusUnauthorized || decode[errorEnvelope](t, rec).Error.Code != "unauthorized" {
		t.Fatalf("no token=%d %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodPost, "/analyze/describe", map[string]string{"text": "cats"}, "Authorization", "Bearer junk")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("junk token=%d", rec.Code)
	}

	tok, err := auth.Issue("s3cret", env.cfg.Auth.Issuer, "laptop", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	rec = env.do(t, http.MethodPost, "/analyze/describe", map[string]string{"text": "cats"}, "Authorization", "Bearer "+tok)
	if rec.Code != http.StatusOK {
		t.Fatalf("with token=%d %s", rec.Code, rec.Body.String())
	}
	if rec := env.do(t, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz must stay public: %d", rec.Code)
	}
}
