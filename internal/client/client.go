package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yungbote/lovabuddy/internal/domain/design"
)

const maxResponseBytes = 16 << 20

type Options struct {
	BaseURL string
	Token   string

	Timeout time.Duration
	// MaxRetries covers speech, hand-off lookups and readiness. Model calls are sent once.
	MaxRetries int

	HTTPClient *http.Client
}

// Client talks to the LovaBuddy relay.
type Client struct {
	baseURL    string
	token      string
	timeout    time.Duration
	maxRetries int
	httpClient *http.Client
}

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("missing relay base url")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, err
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		baseURL:    baseURL,
		token:      strings.TrimSpace(opts.Token),
		timeout:    timeout,
		maxRetries: maxRetries,
		httpClient: hc,
	}, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

// Describe turns free text into a one-line base idea.
func (c *Client) Describe(ctx context.Context, text string) (string, error) {
	var out struct {
		BaseIdea string `json:"base_idea"`
	}
	if err := c.doJSON(ctx, 0, http.MethodPost, "/analyze/describe", map[string]string{"text": text}, &out); err != nil {
		return "", err
	}
	return out.BaseIdea, nil
}

// AnalyzeDrawing sends a data URL and returns the concept the model saw.
func (c *Client) AnalyzeDrawing(ctx context.Context, dataURL string) (string, error) {
	var out struct {
		BaseIdea string `json:"base_idea"`
	}
	if err := c.doJSON(ctx, 0, http.MethodPost, "/analyze/drawing", map[string]string{"imageDataUrl": dataURL}, &out); err != nil {
		return "", err
	}
	return out.BaseIdea, nil
}

type planRequest struct {
	Context      design.PromptContext `json:"context"`
	DrawingImage string               `json:"drawingImage,omitempty"`
}

func (c *Client) Plan(ctx context.Context, pc design.PromptContext, drawing string) (design.Plan, error) {
	var out design.Plan
	err := c.doJSON(ctx, 0, http.MethodPost, "/conversation/plan", planRequest{Context: pc, DrawingImage: drawing}, &out)
	return out, err
}

type Final struct {
	Prompt    string               `json:"prompt"`
	Context   design.PromptContext `json:"json"`
	HandoffID string               `json:"handoff_id,omitempty"`
}

func (c *Client) Final(ctx context.Context, pc design.PromptContext) (Final, error) {
	var out Final
	err := c.doJSON(ctx, 0, http.MethodPost, "/conversation/final", map[string]any{"context": pc}, &out)
	return out, err
}

type ImproveRequest struct {
	OriginalPrompt string `json:"originalPrompt"`
	Improvement    string `json:"improvement"`
	CurrentDOM     string `json:"currentDom,omitempty"`
	DrawingImage   string `json:"drawingImage,omitempty"`
}

type Improved struct {
	Prompt    string `json:"prompt"`
	HandoffID string `json:"handoff_id,omitempty"`
}

func (c *Client) Improve(ctx context.Context, req ImproveRequest) (Improved, error) {
	var out Improved
	err := c.doJSON(ctx, 0, http.MethodPost, "/conversation/improve", req, &out)
	return out, err
}

// Speak returns WAV audio for one line.
func (c *Client) Speak(ctx context.Context, text, speaker string) ([]byte, error) {
	body := map[string]string{"text": text}
	if speaker != "" {
		body["speaker"] = speaker
	}
	return c.doBytes(ctx, c.maxRetries, http.MethodPost, "/tts", body)
}

type SpeechItem struct {
	Text  string
	Audio []byte
	Err   string
}

// SpeakBatch synthesizes several lines; per-item failures land in SpeechItem.Err.
func (c *Client) SpeakBatch(ctx context.Context, texts []string, speaker string) ([]SpeechItem, error) {
	req := struct {
		Texts   []string `json:"texts"`
		Speaker string   `json:"speaker,omitempty"`
	}{Texts: texts, Speaker: speaker}
	var out struct {
		Items []struct {
			Text        string `json:"text"`
			AudioBase64 string `json:"audio_base64"`
			Error       string `json:"error"`
		} `json:"items"`
	}
	if err := c.doJSON(ctx, c.maxRetries, http.MethodPost, "/tts/batch", req, &out); err != nil {
		return nil, err
	}
	items := make([]SpeechItem, len(out.Items))
	for i, it := range out.Items {
		items[i] = SpeechItem{Text: it.Text, Err: it.Error}
		if it.AudioBase64 == "" {
			continue
		}
		audio, err := base64.StdEncoding.DecodeString(it.AudioBase64)
		if err != nil {
			items[i].Err = "bad audio payload"
			continue
		}
		items[i].Audio = audio
	}
	return items, nil
}

type Handoff struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Prompt     string          `json:"prompt"`
	Context    json.RawMessage `json:"context,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	ExpiresAt  time.Time       `json:"expires_at"`
	ConsumedAt *time.Time      `json:"consumed_at,omitempty"`
}

func (c *Client) Handoff(ctx context.Context, id string) (Handoff, error) {
	var out Handoff
	err := c.doJSON(ctx, c.maxRetries, http.MethodGet, "/handoff/"+url.PathEscape(id), nil, &out)
	return out, err
}

// Consume claims a hand-off; a second claim fails with 409.
func (c *Client) Consume(ctx context.Context, id string) (string, error) {
	var out struct {
		Prompt string `json:"prompt"`
	}
	if err := c.doJSON(ctx, 0, http.MethodPost, "/handoff/"+url.PathEscape(id)+"/consume", nil, &out); err != nil {
		return "", err
	}
	return out.Prompt, nil
}

func (c *Client) Ready(ctx context.Context) error {
	_, err := c.do(ctx, c.maxRetries, http.MethodGet, "/readyz", nil, "application/json")
	return err
}

// doJSON sends body and decodes the reply into out. Model calls and hand-off claims pass
// retries=0: their failures surface to the user instead of being re-sent.
func (c *Client) doJSON(ctx context.Context, retries int, method, path string, body any, out any) error {
	raw, err := c.do(ctx, retries, method, path, body, "application/json")
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func (c *Client) doBytes(ctx context.Context, retries int, method, path string, body any) ([]byte, error) {
	return c.do(ctx, retries, method, path, body, "*/*")
}

func (c *Client) do(ctx context.Context, retries int, method, path string, body any, accept string) ([]byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	ctx2, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var lastErr error
	backoff := 250 * time.Millisecond
	for attempt := 0; attempt <= retries; attempt++ {
		if ctx2.Err() != nil {
			return nil, ctx2.Err()
		}

		req, err := http.NewRequestWithContext(ctx2, method, c.baseURL+path, bytes.NewReader(buf.Bytes()))
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", accept)
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			_ = resp.Body.Close()
			if readErr != nil {
				return nil, readErr
			}
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return raw, nil
			}
			lastErr = parseHTTPError(resp.StatusCode, raw)
			if !retryable(resp.StatusCode) {
				return nil, lastErr
			}
		}

		if attempt < retries {
			select {
			case <-ctx2.Done():
				return nil, ctx2.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	if lastErr == nil {
		lastErr = errors.New("request failed")
	}
	return nil, lastErr
}

// retryable reports whether a status is worth another attempt. Client errors
// and model output failures are not.
func retryable(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusTooManyRequests:
		return true
	}
	return false
}
