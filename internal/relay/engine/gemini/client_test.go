package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/lovabuddy/internal/relay/config"
	"github.com/yungbote/lovabuddy/internal/relay/engine"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, v any) *http.Response {
	b, _ := json.Marshal(v)
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(b)),
	}
}

func candidate(text, finish string) map[string]any {
	return map[string]any{
		"candidates": []any{map[string]any{
			"content":      map[string]any{"role": "model", "parts": []any{map[string]any{"text": text}}},
			"finishReason": finish,
		}},
	}
}

func testConfig() config.LLMConfig {
	return config.LLMConfig{
		APIKey:               "test-key",
		BaseURL:              "http://upstream",
		APIVersion:           "v1beta",
		Timeout:              config.Duration{Duration: 2 * time.Second},
		RetryMaxOutputTokens: 2048,
	}
}

func newTestClient(t *testing.T, rt roundTripperFunc) *Client {
	t.Helper()
	c, err := NewWithHTTPClient(context.Background(), testConfig(), &http.Client{Transport: rt}, nil, nil)
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	return c
}

func TestGenerateSendsSchemaAndSystem(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if !strings.HasSuffix(req.URL.Path, "/v1beta/models/m-fast:generateContent") {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		var payload map[string]any
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			t.Fatalf("decode req: %v", err)
		}
		if _, ok := payload["systemInstruction"]; !ok {
			t.Fatalf("missing systemInstruction")
		}
		gen, _ := payload["generationConfig"].(map[string]any)
		if gen["responseMimeType"] != "application/json" {
			t.Fatalf("responseMimeType=%v", gen["responseMimeType"])
		}
		schema, _ := gen["responseSchema"].(map[string]any)
		if schema["type"] != "OBJECT" {
			t.Fatalf("schema=%v", schema)
		}
		return jsonResponse(http.StatusOK, candidate(`{"steps":[]}`, "STOP")), nil
	})

	out, err := c.Generate(context.Background(), engine.GenerateRequest{
		Model:  "m-fast",
		System: "be kind",
		Parts:  []engine.Part{{Text: "plan"}},
		Schema: &engine.Schema{Type: engine.TypeObject, Properties: map[string]*engine.Schema{
			"steps": {Type: engine.TypeArray, Items: &engine.Schema{Type: engine.TypeString}, MaxItems: 6},
		}, Required: []string{"steps"}},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out.Text != `{"steps":[]}` || out.Retried {
		t.Fatalf("out=%+v", out)
	}
}

func TestGenerateRetriesOnceOnMaxTokens(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		n := atomic.AddInt32(&calls, 1)
		var payload map[string]any
		_ = json.NewDecoder(req.Body).Decode(&payload)
		gen, _ := payload["generationConfig"].(map[string]any)
		if n == 1 {
			if _, ok := gen["maxOutputTokens"]; ok {
				t.Fatalf("first attempt should not set maxOutputTokens")
			}
			return jsonResponse(http.StatusOK, candidate(`{"steps":[`, "MAX_TOKENS")), nil
		}
		if gen["maxOutputTokens"] != float64(2048) {
			t.Fatalf("retry maxOutputTokens=%v", gen["maxOutputTokens"])
		}
		return jsonResponse(http.StatusOK, candidate(`{"steps":[]}`, "MAX_TOKENS")), nil
	})

	out, err := c.Generate(context.Background(), engine.GenerateRequest{Model: "m", Parts: []engine.Part{{Text: "x"}}})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("calls=%d", got)
	}
	if !out.Retried || out.Text != `{"steps":[]}` {
		t.Fatalf("out=%+v", out)
	}
}

func TestGenerateEmptyCandidates(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, map[string]any{"promptFeedback": map[string]any{"blockReason": "SAFETY"}}), nil
	})

	_, err := c.Generate(context.Background(), engine.GenerateRequest{Model: "m", Parts: []engine.Part{{Text: "x"}}})
	if !errors.Is(err, engine.ErrEmptyCandidates) {
		t.Fatalf("err=%v", err)
	}
	var ee *engine.EmptyError
	if !errors.As(err, &ee) || !strings.Contains(string(ee.Raw), "SAFETY") {
		t.Fatalf("raw dump missing: %v", err)
	}
}

func TestGenerateUpstreamErrorNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return jsonResponse(http.StatusTooManyRequests, map[string]any{
			"error": map[string]any{"code": 429, "message": "quota", "status": "RESOURCE_EXHAUSTED"},
		}), nil
	})

	_, err := c.Generate(context.Background(), engine.GenerateRequest{Model: "m", Parts: []engine.Part{{Text: "x"}}})
	var ue *engine.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("err=%T %v", err, err)
	}
	if ue.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status=%d", ue.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("calls=%d", got)
	}
}

func TestSpeakReturnsInlineAudio(t *testing.T) {
	pcm := []byte{1, 2, 3, 4}
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		var payload map[string]any
		_ = json.NewDecoder(req.Body).Decode(&payload)
		gen, _ := payload["generationConfig"].(map[string]any)
		speech, _ := gen["speechConfig"].(map[string]any)
		if speech == nil {
			t.Fatalf("missing speechConfig: %v", gen)
		}
		return jsonResponse(http.StatusOK, map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{map[string]any{
					"inlineData": map[string]any{"mimeType": "audio/L16;codec=pcm;rate=24000", "data": pcm},
				}}},
			}},
		}), nil
	})

	data, mime, err := c.Speak(context.Background(), "tts-model", "hello", "Fenrir", "en-US")
	if err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if !bytes.Equal(data, pcm) || !strings.Contains(mime, "rate=24000") {
		t.Fatalf("data=%v mime=%q", data, mime)
	}
}
