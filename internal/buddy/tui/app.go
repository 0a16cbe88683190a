package tui

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/yungbote/lovabuddy/internal/flow"
	"github.com/yungbote/lovabuddy/internal/platform/logger"
)

const loadingInterval = 4 * time.Second

type Options struct {
	Session *flow.Session
	// Speech is nil when read-aloud is off.
	Speech Speaker
	Voice  string
	Player string

	// Drawing is a data URL sent with the first idea. DOM is the page snapshot used
	// for improvement requests.
	Drawing string
	DOM     string

	// Copy puts the finished prompt on the clipboard. Defaults to the system clipboard.
	Copy func(string) error

	Log *logger.Logger
}

type (
	opDoneMsg     struct{ out flow.Outcome }
	audioReadyMsg struct{ clips map[string][]byte }
	playedMsg     struct{ err error }
	copiedMsg     struct{ err error }
	rotateMsg     struct{ tick int }
)

type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	opts    Options
	session *flow.Session
	log     *logger.Logger

	width  int
	height int

	input     textinput.Model
	spinner   spinner.Model
	improving bool

	loadingIdx  int
	loadingTick int

	clips      map[string][]byte
	stopAudio  context.CancelFunc
	audioError string

	copyStatus string

	quitting bool
}

func NewApp(opts Options) *App {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	if opts.Copy == nil {
		opts.Copy = clipboard.WriteAll
	}
	if opts.Speech != nil && opts.Player == "" {
		opts.Player = detectPlayer()
	}

	input := textinput.New()
	input.Placeholder = "Describe your website idea..."
	input.CharLimit = 500
	input.Width = 60
	input.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = styleLoading

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		ctx:     ctx,
		cancel:  cancel,
		opts:    opts,
		session: opts.Session,
		log:     log.With("component", "tui"),
		width:   80,
		height:  24,
		input:   input,
		spinner: sp,
		clips:   map[string][]byte{},
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(tea.WindowSize(), textinput.Blink, a.spinner.Tick)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		wasTyping := a.typing()
		if cmd := a.handleKey(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
		if a.quitting || !wasTyping {
			return a, tea.Batch(cmds...)
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = min(60, max(20, msg.Width-8))

	case opDoneMsg:
		next, fresh := a.session.Apply(msg.out)
		if !fresh {
			return a, nil
		}
		cmds = append(cmds, a.afterTransition(next))

	case audioReadyMsg:
		for text, clip := range msg.clips {
			a.clips[text] = clip
		}
		if i, _ := a.session.Progress(); i == 1 && a.session.State() == flow.StateAnswering {
			cmds = append(cmds, a.readCurrent())
		}

	case playedMsg:
		if msg.err != nil {
			a.audioError = msg.err.Error()
			a.log.Debug("audio playback failed", "error", msg.err)
		}

	case copiedMsg:
		if msg.err != nil {
			a.copyStatus = "Could not copy: " + msg.err.Error()
			a.log.Warn("clipboard write failed", "error", msg.err)
		} else {
			a.copyStatus = "Copied! Paste it into your website builder."
		}

	case rotateMsg:
		if msg.tick != a.loadingTick || !a.session.State().Busy() {
			return a, nil
		}
		a.loadingIdx++
		return a, a.rotate()

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	if a.typing() {
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

// typing reports whether keystrokes belong to the text box.
func (a *App) typing() bool {
	st := a.session.State()
	return st == flow.StateEntry || (st == flow.StateDone && a.improving) ||
		(st == flow.StateFailed && a.session.Failed() == flow.OpPlan)
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, keys.Quit) {
		return a.quit()
	}

	st := a.session.State()
	if a.typing() {
		switch {
		case key.Matches(msg, keys.Enter):
			return a.submitText()
		case key.Matches(msg, keys.Back):
			if a.improving {
				a.improving = false
				a.input.Reset()
				return nil
			}
			return a.quit()
		}
		return nil
	}

	switch st {
	case flow.StateAnswering:
		return a.handleAnswerKey(msg)

	case flow.StatePlanning, flow.StateFinalizing, flow.StateImprovement:
		if key.Matches(msg, keys.Back) {
			a.restart()
		}

	case flow.StateDone:
		switch {
		case key.Matches(msg, keys.Copy):
			return a.copyPrompt()
		case key.Matches(msg, keys.Improve):
			a.copyStatus = ""
			a.improving = true
			a.input.Reset()
			a.input.Placeholder = "What should change?"
			a.input.Focus()
			return textinput.Blink
		case key.Matches(msg, keys.New):
			a.restart()
			return textinput.Blink
		case key.Matches(msg, keys.Back):
			return a.quit()
		}

	case flow.StateFailed:
		switch {
		case key.Matches(msg, keys.Retry):
			op, err := a.session.Retry()
			if err != nil {
				return nil
			}
			return a.startOp(op)
		case key.Matches(msg, keys.New), key.Matches(msg, keys.Back):
			a.restart()
			return textinput.Blink
		}
	}
	return nil
}

func (a *App) handleAnswerKey(msg tea.KeyMsg) tea.Cmd {
	step, _ := a.session.Current()
	n := len(step.Choices)
	cur := -1
	if sel, ok := a.session.Selection(); ok {
		for i, c := range step.Choices {
			if c.Value == sel.Value {
				cur = i
				break
			}
		}
	}

	switch {
	case key.Matches(msg, keys.Left):
		if cur <= 0 {
			cur = n
		}
		_ = a.session.Select(cur - 1)
	case key.Matches(msg, keys.Right):
		_ = a.session.Select((cur + 1) % n)
	case key.Matches(msg, keys.Enter):
		if cur < 0 {
			return nil
		}
		a.stopPlayback()
		op, err := a.session.Next()
		if err != nil {
			return nil
		}
		if op != nil {
			return a.startOp(op)
		}
		return a.readCurrent()
	case key.Matches(msg, keys.Speak):
		return a.readCurrent()
	case key.Matches(msg, keys.Back):
		a.restart()
		return textinput.Blink
	default:
		if d, err := strconv.Atoi(msg.String()); err == nil && d >= 1 && d <= n {
			_ = a.session.Select(d - 1)
		}
	}
	return nil
}

func (a *App) submitText() tea.Cmd {
	text := strings.TrimSpace(a.input.Value())
	var (
		op  *flow.Op
		err error
	)
	switch {
	case a.improving:
		op, err = a.session.Improve(text, a.opts.DOM, "")
	case text == "" && a.session.State() == flow.StateFailed:
		op, err = a.session.Retry()
	default:
		op, err = a.session.Submit(text, a.opts.Drawing)
	}
	if err != nil {
		a.log.Debug("submit rejected", "error", err)
		return nil
	}
	a.improving = false
	a.input.Blur()
	return a.startOp(op)
}

// startOp runs op off the update loop and starts the loading-message rotation.
func (a *App) startOp(op *flow.Op) tea.Cmd {
	a.loadingIdx = 0
	a.loadingTick++
	ctx := a.ctx
	run := func() tea.Msg { return opDoneMsg{out: op.Run(ctx)} }
	return tea.Batch(run, a.rotate())
}

func (a *App) rotate() tea.Cmd {
	tick := a.loadingTick
	return tea.Tick(loadingInterval, func(time.Time) tea.Msg { return rotateMsg{tick: tick} })
}

// afterTransition reacts to an applied outcome: it runs a follow-up request or starts
// read-aloud for a fresh plan.
func (a *App) afterTransition(next *flow.Op) tea.Cmd {
	if next != nil {
		return a.startOp(next)
	}
	switch a.session.State() {
	case flow.StateAnswering:
		a.clips = map[string][]byte{}
		return a.prefetchAudio()
	case flow.StateFailed:
		if a.session.Failed() == flow.OpPlan {
			a.input.Focus()
			return textinput.Blink
		}
	}
	return nil
}

func (a *App) prefetchAudio() tea.Cmd {
	if a.opts.Speech == nil {
		return nil
	}
	sp, voice, texts, ctx := a.opts.Speech, a.opts.Voice, a.session.ReadAloudTexts(), a.ctx
	return func() tea.Msg {
		return audioReadyMsg{clips: prefetch(ctx, sp, voice, texts)}
	}
}

// readCurrent plays the current question. A clip missing from the preload is fetched
// on demand; the controller never waits for audio.
func (a *App) readCurrent() tea.Cmd {
	if a.opts.Speech == nil {
		return nil
	}
	step, ok := a.session.Current()
	if !ok {
		return nil
	}
	text := step.ReadAloud()
	a.stopPlayback()
	ctx, cancel := context.WithCancel(a.ctx)
	a.stopAudio = cancel

	clip, cached := a.clips[text]
	sp, voice, player := a.opts.Speech, a.opts.Voice, a.opts.Player
	return func() tea.Msg {
		if !cached {
			var err error
			if clip, err = sp.Speak(ctx, text, voice); err != nil {
				return playedMsg{err: err}
			}
		}
		return playedMsg{err: play(ctx, player, clip)}
	}
}

func (a *App) stopPlayback() {
	if a.stopAudio != nil {
		a.stopAudio()
		a.stopAudio = nil
	}
}

func (a *App) copyPrompt() tea.Cmd {
	prompt, write := a.session.Prompt(), a.opts.Copy
	return func() tea.Msg {
		return copiedMsg{err: write(prompt)}
	}
}

func (a *App) restart() {
	a.stopPlayback()
	a.copyStatus = ""
	a.session.Reset()
	a.improving = false
	a.clips = map[string][]byte{}
	a.input.Reset()
	a.input.Placeholder = "Describe your website idea..."
	a.input.Focus()
}

func (a *App) quit() tea.Cmd {
	a.stopPlayback()
	a.cancel()
	a.quitting = true
	return tea.Quit
}

func (a *App) View() string {
	if a.quitting {
		return ""
	}
	switch a.session.State() {
	case flow.StateEntry:
		return a.renderEntry()
	case flow.StatePlanning, flow.StateFinalizing, flow.StateImprovement:
		return a.renderLoading()
	case flow.StateAnswering:
		return a.renderQuestion()
	case flow.StateDone:
		return a.renderDone()
	case flow.StateFailed:
		return a.renderFailed()
	}
	return ""
}
