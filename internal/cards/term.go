package cards

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	termInk    = lipgloss.Color("#1E293B")
	termMuted  = lipgloss.Color("#64748B")
	termBorder = lipgloss.Color("#CBD5E1")
	termRing   = lipgloss.Color("#38BDF8")

	styleCard = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(termBorder).
			Padding(0, 1)

	styleCardSelected = styleCard.
				BorderForeground(termRing).
				Bold(true)

	styleLabel = lipgloss.NewStyle().Foreground(termInk)
	styleHint  = lipgloss.NewStyle().Foreground(termMuted)
	styleCheck = lipgloss.NewStyle().Foreground(termRing).Bold(true)
)

// RenderTerminal draws a card as a bordered box of the given outer width.
func RenderTerminal(c Card, width int) string {
	if width < 12 {
		width = 12
	}
	inner := width - 4

	var lines []string
	switch c.Kind {
	case KindColor:
		lines = append(lines, swatchLine(c.Stops, inner), styleLabel.Render(clip(c.Label, inner)))
	case KindFont:
		lines = append(lines,
			styleLabel.Bold(true).Render(clip("Aa "+c.Label, inner)),
			styleHint.Render(clip(c.Family, inner)),
		)
	case KindLayout:
		if c.Layout != nil {
			for _, l := range c.Layout.Lines(3) {
				lines = append(lines, styleHint.Render(l))
			}
		}
		lines = append(lines, styleLabel.Render(clip(c.Label, inner)))
	default:
		label := c.Label
		if c.Emoji != "" {
			label = c.Emoji + " " + label
		}
		lines = append(lines, styleLabel.Render(clip(label, inner)))
	}

	style := styleCard
	if c.Selected {
		style = styleCardSelected
		lines[0] = lipgloss.JoinHorizontal(lipgloss.Top, lines[0], " ", styleCheck.Render("✓"))
	}
	return style.Width(width - 2).Render(strings.Join(lines, "\n"))
}

// RenderRow lays cards side by side, wrapping to a new row when the width runs out.
func RenderRow(cards []Card, cardWidth, totalWidth int) string {
	perRow := totalWidth / cardWidth
	if perRow < 1 {
		perRow = 1
	}
	var rows []string
	for i := 0; i < len(cards); i += perRow {
		end := i + perRow
		if end > len(cards) {
			end = len(cards)
		}
		boxes := make([]string, 0, end-i)
		for _, c := range cards[i:end] {
			boxes = append(boxes, RenderTerminal(c, cardWidth))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// swatchLine paints each stop's share of width as colored blocks.
func swatchLine(stops []Stop, width int) string {
	if len(stops) == 0 {
		return ""
	}
	var b strings.Builder
	used := 0
	for i, s := range stops {
		n := (s.End - s.Start) * width / 100
		if i == len(stops)-1 {
			n = width - used
		}
		if n < 1 {
			n = 1
		}
		used += n
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(s.Color)).Render(strings.Repeat("█", n)))
	}
	return b.String()
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
