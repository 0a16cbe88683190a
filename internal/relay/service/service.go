// Package service implements the relay operations between the question flow and the model APIs.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/yungbote/lovabuddy/internal/domain/design"
	"github.com/yungbote/lovabuddy/internal/observability"
	"github.com/yungbote/lovabuddy/internal/platform/apierr"
	"github.com/yungbote/lovabuddy/internal/platform/ctxutil"
	"github.com/yungbote/lovabuddy/internal/platform/logger"
	"github.com/yungbote/lovabuddy/internal/relay/config"
	"github.com/yungbote/lovabuddy/internal/relay/engine"
	"github.com/yungbote/lovabuddy/internal/relay/handoff"
)

var (
	ErrEmptyResponse = errors.New("model returned an empty response")
	ErrInvalidJSON   = errors.New("invalid JSON from model")
	ErrMalformedPlan = errors.New("malformed plan from model")
)

const maxRawDump = 2000

// Handoffs is the subset of the hand-off store the service writes to.
type Handoffs interface {
	Create(ctx context.Context, kind handoff.Kind, prompt string, pc *design.PromptContext, clientID string) (*handoff.Handoff, error)
}

type Service struct {
	log      *logger.Logger
	metrics  *observability.Metrics
	engine   engine.Engine
	handoffs Handoffs
	llm      config.LLMConfig
	improve  config.ImproveConfig
}

// New builds the relay service. handoffs may be nil, in which case prompts are returned without an id.
func New(log *logger.Logger, m *observability.Metrics, eng engine.Engine, handoffs Handoffs, cfg *config.Config) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		log:      log.With("service", "RelayService"),
		metrics:  m,
		engine:   eng,
		handoffs: handoffs,
		llm:      cfg.LLM,
		improve:  cfg.Improve,
	}
}

func (s *Service) generate(ctx context.Context, op string, req engine.GenerateRequest) (*engine.GenerateResponse, error) {
	ctx, span := observability.StartSpan(ctx, "relay."+op)
	defer span.End()

	resp, err := s.engine.Generate(ctx, req)
	if err != nil {
		return nil, s.classify(ctx, op, err)
	}
	if resp.Retried {
		s.log.Info("generation retried with larger budget", append(ctxutil.LogFields(ctx), "op", op)...)
	}
	return resp, nil
}

// classify maps engine failures onto API errors.
func (s *Service) classify(ctx context.Context, op string, err error) error {
	var (
		empty    *engine.EmptyError
		upstream *engine.UpstreamError
		out      *apierr.Error
	)
	switch {
	case errors.As(err, &empty):
		out = apierr.WithRaw(http.StatusUnprocessableEntity, "empty_response", ErrEmptyResponse, truncate(string(empty.Raw), maxRawDump))
	case errors.As(err, &upstream):
		out = apierr.New(http.StatusBadGateway, "upstream_error", err)
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		out = apierr.New(http.StatusGatewayTimeout, "upstream_error", fmt.Errorf("model call timed out: %w", err))
	default:
		out = apierr.From(err)
	}
	s.fail(ctx, op, out)
	return out
}

func (s *Service) fail(ctx context.Context, op string, e *apierr.Error) {
	s.metrics.RelayOutcome(op, e.Code)
	s.log.Warn("relay call failed", append(ctxutil.LogFields(ctx), "op", op, "code", e.Code, "error", e.Err)...)
}

func (s *Service) ok(op string) { s.metrics.RelayOutcome(op, "ok") }

func (s *Service) storeHandoff(ctx context.Context, kind handoff.Kind, prompt string, pc *design.PromptContext) string {
	if s.handoffs == nil {
		return ""
	}
	clientID := ""
	if td := ctxutil.GetTraceData(ctx); td != nil {
		clientID = td.ClientID
	}
	h, err := s.handoffs.Create(ctx, kind, prompt, pc, clientID)
	if err != nil {
		s.metrics.Handoff(string(kind), "error")
		s.log.Warn("handoff not stored", append(ctxutil.LogFields(ctx), "kind", kind, "error", err)...)
		return ""
	}
	s.metrics.Handoff(string(kind), "created")
	return h.ID
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func f32(v float32) *float32 { return &v }
