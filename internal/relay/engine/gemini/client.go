package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/yungbote/lovabuddy/internal/observability"
	"github.com/yungbote/lovabuddy/internal/platform/logger"
	"github.com/yungbote/lovabuddy/internal/relay/config"
	"github.com/yungbote/lovabuddy/internal/relay/engine"
)

type Client struct {
	log     *logger.Logger
	metrics *observability.Metrics

	genai       *genai.Client
	limiter     *rate.Limiter
	timeout     time.Duration
	retryTokens int32
}

func New(ctx context.Context, cfg config.LLMConfig, log *logger.Logger, m *observability.Metrics) (*Client, error) {
	return NewWithHTTPClient(ctx, cfg, &http.Client{}, log, m)
}

func NewWithHTTPClient(ctx context.Context, cfg config.LLMConfig, httpClient *http.Client, log *logger.Logger, m *observability.Metrics) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    strings.TrimRight(cfg.BaseURL, "/") + "/",
			APIVersion: cfg.APIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	retry := cfg.RetryMaxOutputTokens
	if retry <= 0 {
		retry = 2048
	}
	return &Client{
		log:         log.With("component", "GeminiEngine"),
		metrics:     m,
		genai:       gc,
		limiter:     rate.NewLimiter(limit, burst),
		timeout:     cfg.Timeout.Duration,
		retryTokens: retry,
	}, nil
}

// Generate runs one generateContent call. A MAX_TOKENS finish is retried exactly once with the
// configured larger output budget; every other upstream failure is returned as-is.
func (c *Client) Generate(ctx context.Context, req engine.GenerateRequest) (*engine.GenerateResponse, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		return nil, errors.New("gemini: model is required")
	}
	gcfg := buildConfig(req)
	contents := []*genai.Content{genai.NewContentFromParts(buildParts(req.Parts), genai.RoleUser)}

	resp, err := c.call(ctx, "generate", model, contents, gcfg)
	if err != nil {
		return nil, err
	}
	retried := false
	if finishReason(resp) == genai.FinishReasonMaxTokens {
		c.log.Warn("output truncated, retrying with larger budget", "model", model, "max_output_tokens", c.retryTokens)
		retryCfg := *gcfg
		retryCfg.MaxOutputTokens = c.retryTokens
		if resp, err = c.call(ctx, "generate_retry", model, contents, &retryCfg); err != nil {
			return nil, err
		}
		retried = true
	}

	raw, _ := json.Marshal(resp)
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, &engine.EmptyError{Raw: raw}
	}
	return &engine.GenerateResponse{
		Text:         candidateText(resp.Candidates[0]),
		FinishReason: string(resp.Candidates[0].FinishReason),
		Raw:          raw,
		Retried:      retried,
	}, nil
}

// Speak asks a speech-capable model to read text with a prebuilt voice and returns the inline
// audio bytes with their MIME type (raw PCM for the Gemini TTS models).
func (c *Client) Speak(ctx context.Context, model, text, voice, languageCode string) ([]byte, string, error) {
	gcfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityAudio)},
		SpeechConfig: &genai.SpeechConfig{
			LanguageCode: languageCode,
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}
	resp, err := c.call(ctx, "speak", model, genai.Text(text), gcfg)
	if err != nil {
		return nil, "", err
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		raw, _ := json.Marshal(resp)
		return nil, "", &engine.EmptyError{Raw: raw}
	}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && p.InlineData != nil && len(p.InlineData.Data) > 0 {
			return p.InlineData.Data, p.InlineData.MIMEType, nil
		}
	}
	raw, _ := json.Marshal(resp)
	return nil, "", &engine.EmptyError{Raw: raw}
}

func (c *Client) call(ctx context.Context, op, model string, contents []*genai.Content, gcfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.genai.Models.GenerateContent(ctx, model, contents, gcfg)
	status := "ok"
	if err != nil {
		status = "error"
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			status = fmt.Sprintf("%d", apiErr.Code)
			err = &engine.UpstreamError{StatusCode: apiErr.Code, Status: apiErr.Status, Message: apiErr.Message}
		}
	}
	c.metrics.ObserveUpstream(op, model, status, time.Since(start))
	if err != nil {
		c.log.Error("gemini call failed", "op", op, "model", model, "error", err)
		return nil, err
	}
	return resp, nil
}

func buildConfig(req engine.GenerateRequest) *genai.GenerateContentConfig {
	gcfg := &genai.GenerateContentConfig{
		Temperature:     req.Temperature,
		TopK:            req.TopK,
		TopP:            req.TopP,
		MaxOutputTokens: req.MaxOutputTokens,
	}
	if s := strings.TrimSpace(req.System); s != "" {
		gcfg.SystemInstruction = genai.NewContentFromText(s, genai.RoleUser)
	}
	if req.JSON || req.Schema != nil {
		gcfg.ResponseMIMEType = "application/json"
	}
	if req.Schema != nil {
		gcfg.ResponseSchema = toSchema(req.Schema)
	}
	return gcfg
}

func buildParts(in []engine.Part) []*genai.Part {
	out := make([]*genai.Part, 0, len(in))
	for _, p := range in {
		switch {
		case len(p.Data) > 0:
			out = append(out, genai.NewPartFromBytes(p.Data, p.MIMEType))
		case p.Text != "":
			out = append(out, genai.NewPartFromText(p.Text))
		}
	}
	return out
}

func toSchema(s *engine.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Enum:             s.Enum,
		Required:         s.Required,
		PropertyOrdering: s.Order,
		Items:            toSchema(s.Items),
	}
	switch s.Type {
	case engine.TypeObject:
		out.Type = genai.TypeObject
	case engine.TypeArray:
		out.Type = genai.TypeArray
	default:
		out.Type = genai.TypeString
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = toSchema(v)
		}
	}
	if s.MinItems > 0 {
		out.MinItems = genai.Ptr(int64(s.MinItems))
	}
	if s.MaxItems > 0 {
		out.MaxItems = genai.Ptr(int64(s.MaxItems))
	}
	return out
}

func finishReason(resp *genai.GenerateContentResponse) genai.FinishReason {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return ""
	}
	return resp.Candidates[0].FinishReason
}

func candidateText(c *genai.Candidate) string {
	if c == nil || c.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range c.Content.Parts {
		if p != nil && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	return strings.TrimSpace(b.String())
}
