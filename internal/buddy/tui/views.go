package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yungbote/lovabuddy/internal/cards"
	"github.com/yungbote/lovabuddy/internal/flow"
)

const cardWidth = 24

func (a *App) header() string {
	var b strings.Builder
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, styleLogo.Render("LovaBuddy")))
	b.WriteString("\n\n")
	return b.String()
}

func (a *App) center(s string) string {
	return lipgloss.PlaceHorizontal(a.width, lipgloss.Center, s)
}

func (a *App) boxWidth() int {
	return min(70, a.width-4)
}

func (a *App) renderEntry() string {
	var b strings.Builder
	b.WriteString(a.header())
	b.WriteString(a.center(styleQuestion.Render("What website do you want to make?")))
	b.WriteString("\n\n")
	b.WriteString(a.center(styleBox.Width(a.boxWidth()).Render(a.input.View())))
	b.WriteString("\n")
	if a.opts.Drawing != "" {
		b.WriteString(a.center(styleSubtitle.Render("Your drawing comes along too.")))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(a.center(styleStatusBar.Render("[Enter] Start  [Esc] Quit")))
	return a.centerVertically(b.String())
}

func (a *App) renderLoading() string {
	msgs := a.session.LoadingMessages()
	line := msgs[a.loadingIdx%len(msgs)]

	var b strings.Builder
	b.WriteString(a.header())
	if progress := a.session.ProgressLabel(); progress != "" && a.session.State() != flow.StatePlanning {
		b.WriteString(a.center(styleSubtitle.Render(progress)))
		b.WriteString("\n\n")
	}
	b.WriteString(a.center(a.spinner.View() + " " + styleLoading.Render(line)))
	b.WriteString("\n\n")
	b.WriteString(a.center(styleStatusBar.Render("[Esc] Start over")))
	return a.centerVertically(b.String())
}

func (a *App) renderQuestion() string {
	step, ok := a.session.Current()
	if !ok {
		return ""
	}
	selected := ""
	if sel, ok := a.session.Selection(); ok {
		selected = sel.Value
	}

	var b strings.Builder
	b.WriteString(a.header())
	b.WriteString(a.center(styleSubtitle.Render(a.session.ProgressLabel())))
	b.WriteString("\n\n")
	b.WriteString(a.center(styleQuestion.Width(a.boxWidth()).Align(lipgloss.Center).Render(step.Question)))
	b.WriteString("\n\n")
	b.WriteString(a.center(cards.RenderRow(cards.BuildStep(step, selected), cardWidth, a.width-4)))
	b.WriteString("\n\n")

	hint := "[←/→ or 1-" + strconv.Itoa(len(step.Choices)) + "] Choose  [Enter] Next  [Esc] Start over"
	if a.opts.Speech != nil {
		hint += "  [s] Read aloud"
	}
	b.WriteString(a.center(styleStatusBar.Render(hint)))
	if a.audioError != "" {
		b.WriteString("\n")
		b.WriteString(a.center(styleSubtitle.Render(truncate("audio: "+a.audioError, a.boxWidth()))))
	}
	return b.String()
}

func (a *App) renderDone() string {
	var b strings.Builder
	b.WriteString(a.header())
	b.WriteString(a.center(lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render("Your website recipe is ready!")))
	b.WriteString("\n\n")
	b.WriteString(a.center(styleBox.Width(a.boxWidth()).BorderForeground(colorAccent).Render(a.session.Prompt())))
	b.WriteString("\n")
	if id := a.session.HandoffID(); id != "" {
		b.WriteString(a.center(styleSubtitle.Render("hand-off " + id)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if a.improving {
		b.WriteString(a.center(styleBox.Width(a.boxWidth()).Render(a.input.View())))
		b.WriteString("\n")
		b.WriteString(a.center(styleStatusBar.Render("[Enter] Send  [Esc] Cancel")))
	} else {
		if a.copyStatus != "" {
			b.WriteString(a.center(styleSubtitle.Render(truncate(a.copyStatus, a.boxWidth()))))
			b.WriteString("\n")
		}
		b.WriteString(a.center(styleStatusBar.Render("[c] Copy  [i] Improve  [n] New idea  [Esc] Quit")))
	}
	return a.centerVertically(b.String())
}

func (a *App) renderFailed() string {
	var b strings.Builder
	b.WriteString(a.header())
	b.WriteString(a.center(lipgloss.NewStyle().Foreground(colorError).Bold(true).Render("Oops, something went wrong")))
	b.WriteString("\n\n")
	b.WriteString(a.center(styleBox.Width(a.boxWidth()).BorderForeground(colorError).Render(a.session.Error())))
	b.WriteString("\n\n")
	if a.session.Failed() == flow.OpPlan {
		b.WriteString(a.center(styleBox.Width(a.boxWidth()).Render(a.input.View())))
		b.WriteString("\n")
		b.WriteString(a.center(styleStatusBar.Render("[Enter] Try again  [Esc] Quit")))
	} else {
		b.WriteString(a.center(styleStatusBar.Render("[r] Retry  [n] New idea")))
	}
	return a.centerVertically(b.String())
}

func (a *App) centerVertically(content string) string {
	lines := strings.Count(content, "\n") + 1
	padding := (a.height - lines) / 2
	if padding < 0 {
		padding = 0
	}
	return strings.Repeat("\n", padding) + content
}
