package flow

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/lovabuddy/internal/client"
	"github.com/yungbote/lovabuddy/internal/domain/design"
	"github.com/yungbote/lovabuddy/internal/platform/logger"
)

// Backend is the relay surface the controller drives. *client.Client satisfies it.
type Backend interface {
	AnalyzeDrawing(ctx context.Context, dataURL string) (string, error)
	Plan(ctx context.Context, pc design.PromptContext, drawing string) (design.Plan, error)
	Final(ctx context.Context, pc design.PromptContext) (client.Final, error)
	Improve(ctx context.Context, req client.ImproveRequest) (client.Improved, error)
}

type OpKind string

const (
	OpPlan    OpKind = "plan"
	OpFinal   OpKind = "final"
	OpImprove OpKind = "improve"
)

// Op is one backend request issued by a Session. Run may execute on any goroutine;
// its Outcome must be handed back to Session.Apply on the owner.
type Op struct {
	Gen  uint64
	Kind OpKind
	run  func(ctx context.Context) Outcome
}

func (o *Op) Run(ctx context.Context) Outcome {
	out := o.run(ctx)
	out.Gen, out.Kind = o.Gen, o.Kind
	return out
}

// Outcome carries a finished request back to the Session.
type Outcome struct {
	Gen  uint64
	Kind OpKind

	Context   design.PromptContext
	Plan      design.Plan
	Prompt    string
	HandoffID string
	Err       error
}

// Session is the question-flow controller for one user. It is not safe for concurrent
// use: a single goroutine owns it, and only Op.Run leaves that goroutine.
type Session struct {
	ID string

	log     *logger.Logger
	backend Backend

	state State
	gen   uint64

	ctx     design.PromptContext
	drawing string

	plan      design.Plan
	step      int
	selection *design.Choice

	prompt    string
	handoffID string
	errMsg    string
	failed    OpKind
	retry     func() *Op
}

func New(b Backend, log *logger.Logger) *Session {
	if log == nil {
		log = logger.Nop()
	}
	id := uuid.NewString()
	return &Session{
		ID:      id,
		log:     log.With("component", "flow", "session_id", id),
		backend: b,
	}
}

func (s *Session) State() State                  { return s.state }
func (s *Session) Context() design.PromptContext { return s.ctx.Clone() }
func (s *Session) Plan() design.Plan             { return s.plan }
func (s *Session) Prompt() string                { return s.prompt }
func (s *Session) HandoffID() string             { return s.handoffID }
func (s *Session) Error() string                 { return s.errMsg }

// Failed names the request behind the current error.
func (s *Session) Failed() OpKind { return s.failed }

// Current returns the step being answered.
func (s *Session) Current() (design.Step, bool) {
	if s.state != StateAnswering || s.step >= len(s.plan.Steps) {
		return design.Step{}, false
	}
	return s.plan.Steps[s.step], true
}

// Selection returns the value picked for the current step, if any.
func (s *Session) Selection() (design.Choice, bool) {
	if s.selection == nil {
		return design.Choice{}, false
	}
	return *s.selection, true
}

// Reset returns to entry with an empty context. Outstanding responses become stale.
func (s *Session) Reset() {
	s.gen++
	s.state = StateEntry
	s.ctx = design.PromptContext{}
	s.drawing = ""
	s.plan = design.Plan{}
	s.step = 0
	s.selection = nil
	s.prompt, s.handoffID = "", ""
	s.clearFailure()
	s.log.Debug("session reset", "gen", s.gen)
}

// Submit starts planning from the entry step. The drawing, if any, is a data URL and is
// captioned before planning; a captioning failure is ignored.
func (s *Session) Submit(idea, drawing string) (*Op, error) {
	if s.state.Busy() {
		return nil, ErrBusy
	}
	if s.state != StateEntry && s.state != StateFailed {
		return nil, ErrWrongState
	}
	idea = strings.TrimSpace(idea)
	drawing = strings.TrimSpace(drawing)
	if idea == "" && drawing == "" {
		return nil, ErrEmptyIdea
	}

	s.clearFailure()
	s.ctx = design.PromptContext{}
	s.plan, s.step, s.selection = design.Plan{}, 0, nil
	s.prompt, s.handoffID = "", ""
	s.drawing = drawing
	entry := design.PromptContext{}.With(design.FieldBaseIdea, idea)
	return s.startPlanning(entry), nil
}

func (s *Session) startPlanning(entry design.PromptContext) *Op {
	s.state = StatePlanning
	op := s.newOp(OpPlan)
	b, drawing := s.backend, s.drawing
	op.run = func(ctx context.Context) Outcome {
		pc := entry
		if drawing != "" {
			caption, err := b.AnalyzeDrawing(ctx, drawing)
			if err == nil {
				pc = mergeCaption(pc, caption)
			}
		}
		plan, err := b.Plan(ctx, pc, drawing)
		return Outcome{Context: pc, Plan: plan, Err: err}
	}
	s.retry = func() *Op { return s.startPlanning(entry) }
	return op
}

// mergeCaption folds a drawing caption into the entry context. Typed text stays primary.
func mergeCaption(pc design.PromptContext, caption string) design.PromptContext {
	caption = strings.TrimSpace(caption)
	if caption == "" {
		return pc
	}
	if pc.BaseIdea == "" {
		return pc.With(design.FieldBaseIdea, caption)
	}
	return pc.With(design.FieldBaseIdea, pc.BaseIdea+" (drawing: "+caption+")")
}

// Select records the choice at index i for the current step. Picking again replaces the
// selection; the context is untouched until Next.
func (s *Session) Select(i int) error {
	step, ok := s.Current()
	if !ok {
		return ErrWrongState
	}
	if i < 0 || i >= len(step.Choices) {
		return ErrBadChoice
	}
	c := step.Choices[i]
	s.selection = &c
	return nil
}

// Next merges the selection under the step's field and advances. After the last step it
// returns the final-synthesis request; otherwise the returned Op is nil.
func (s *Session) Next() (*Op, error) {
	step, ok := s.Current()
	if !ok {
		return nil, ErrWrongState
	}
	if s.selection == nil {
		return nil, ErrNoSelection
	}
	s.ctx = s.ctx.With(step.ExpectedField, s.selection.Value)
	s.selection = nil
	s.step++
	s.log.Debug("step answered", "field", step.ExpectedField, "step", s.step, "steps", len(s.plan.Steps))
	if s.step < len(s.plan.Steps) {
		return nil, nil
	}
	return s.startFinal(), nil
}

func (s *Session) startFinal() *Op {
	s.state = StateFinalizing
	op := s.newOp(OpFinal)
	b, pc := s.backend, s.ctx.Clone()
	op.run = func(ctx context.Context) Outcome {
		out, err := b.Final(ctx, pc)
		return Outcome{Context: out.Context, Prompt: out.Prompt, HandoffID: out.HandoffID, Err: err}
	}
	s.retry = s.startFinal
	return op
}

// Improve asks for a revised prompt from a finished session.
func (s *Session) Improve(feedback, dom, drawing string) (*Op, error) {
	if s.state.Busy() {
		return nil, ErrBusy
	}
	if s.prompt == "" || (s.state != StateDone && s.state != StateFailed) {
		return nil, ErrWrongState
	}
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return nil, ErrEmptyFeedback
	}
	s.clearFailure()
	return s.startImprove(client.ImproveRequest{
		OriginalPrompt: s.prompt,
		Improvement:    feedback,
		CurrentDOM:     dom,
		DrawingImage:   strings.TrimSpace(drawing),
	}), nil
}

func (s *Session) startImprove(req client.ImproveRequest) *Op {
	s.state = StateImprovement
	op := s.newOp(OpImprove)
	b := s.backend
	op.run = func(ctx context.Context) Outcome {
		out, err := b.Improve(ctx, req)
		return Outcome{Prompt: out.Prompt, HandoffID: out.HandoffID, Err: err}
	}
	s.retry = func() *Op { return s.startImprove(req) }
	return op
}

// Retry reissues the request that last failed.
func (s *Session) Retry() (*Op, error) {
	if s.state != StateFailed || s.retry == nil {
		return nil, ErrNothingToRetry
	}
	s.errMsg = ""
	return s.retry(), nil
}

// Apply folds a finished request into the session. Stale outcomes are dropped and
// reported as false. A non-nil Op is a follow-up request to run next.
func (s *Session) Apply(o Outcome) (*Op, bool) {
	if o.Gen != s.gen || !s.state.Busy() {
		s.log.Debug("dropping stale response", "kind", o.Kind, "gen", o.Gen, "current", s.gen)
		return nil, false
	}
	if o.Err != nil {
		s.fail(o.Kind, o.Err)
		return nil, true
	}

	switch o.Kind {
	case OpPlan:
		s.ctx = s.ctx.Merge(o.Context)
		s.plan = o.Plan
		s.step = 0
		s.selection = nil
		if o.Plan.Empty() {
			s.log.Info("empty plan, finalizing directly")
			return s.startFinal(), true
		}
		s.state = StateAnswering
		s.log.Info("plan ready", "steps", len(o.Plan.Steps))
	case OpFinal:
		s.ctx = s.ctx.Merge(o.Context)
		s.prompt, s.handoffID = o.Prompt, o.HandoffID
		s.state = StateDone
		s.log.Info("final prompt ready", "handoff_id", o.HandoffID)
	case OpImprove:
		s.prompt, s.handoffID = o.Prompt, o.HandoffID
		s.state = StateDone
		s.log.Info("improved prompt ready", "handoff_id", o.HandoffID)
	}
	s.retry = nil
	return nil, true
}

// Do runs op synchronously along with any follow-up it triggers.
func (s *Session) Do(ctx context.Context, op *Op) error {
	for op != nil {
		next, _ := s.Apply(op.Run(ctx))
		op = next
	}
	if s.state == StateFailed {
		return errors.New(s.errMsg)
	}
	return nil
}

func (s *Session) newOp(kind OpKind) *Op {
	s.gen++
	return &Op{Gen: s.gen, Kind: kind}
}

func (s *Session) fail(kind OpKind, err error) {
	s.state = StateFailed
	s.failed = kind
	s.errMsg = Humanize(err)
	s.log.Warn("request failed", "kind", kind, "code", client.CodeOf(err), "error", err)
}

func (s *Session) clearFailure() {
	s.errMsg = ""
	s.failed = ""
	s.retry = nil
}

// Humanize turns a request error into one line fit for the user.
func Humanize(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "That took too long. Please try again."
	}
	if errors.Is(err, context.Canceled) {
		return "Request cancelled"
	}
	var he *client.HTTPError
	if errors.As(err, &he) && strings.TrimSpace(he.Message) != "" {
		return he.Message
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return "Request failed"
}
