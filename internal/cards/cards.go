// Package cards builds the visual form of a question choice. Build is pure; RenderTerminal and
// RenderPNG draw the result for the TUI and the relay respectively.
package cards

import (
	"strings"

	"github.com/yungbote/lovabuddy/internal/domain/design"
)

type Kind string

const (
	KindColor   Kind = "color"
	KindFont    Kind = "font"
	KindLayout  Kind = "layout"
	KindGeneric Kind = "generic"
)

// KindFor picks the renderer. Choice type wins over the step's field, except that any choice on a
// font step previews the font.
func KindFor(field design.Field, c design.Choice) Kind {
	switch {
	case c.Type == design.ChoiceColor:
		return KindColor
	case c.Type == design.ChoiceLayout:
		return KindLayout
	case field == design.FieldFont:
		return KindFont
	default:
		return KindGeneric
	}
}

// Card is everything a renderer needs, already derived from the choice.
type Card struct {
	Kind     Kind
	Label    string
	Emoji    string
	Value    string
	Selected bool

	Stops   []Stop  // color
	Family  string  // font
	FontURL string  // font, empty when the family cannot be fetched from Google Fonts
	Layout  *Layout // layout
}

func Build(field design.Field, c design.Choice, selected bool) Card {
	card := Card{
		Kind:     KindFor(field, c),
		Label:    strings.TrimSpace(c.Label),
		Value:    strings.TrimSpace(c.Value),
		Selected: selected,
	}
	if emojiAllowed(field) {
		card.Emoji = strings.TrimSpace(c.Emoji)
	}
	switch card.Kind {
	case KindColor:
		card.Stops = ConicStops(design.SplitPalette(card.Value))
	case KindFont:
		card.Family = card.Value
		card.FontURL = FontStylesheetURL(card.Value)
	case KindLayout:
		l := LayoutFor(card.Value)
		card.Layout = &l
	}
	return card
}

// BuildStep builds one card per choice, marking the one whose value equals selected.
func BuildStep(s design.Step, selected string) []Card {
	out := make([]Card, len(s.Choices))
	for i, c := range s.Choices {
		out[i] = Build(s.ExpectedField, c, selected != "" && c.Value == selected)
	}
	return out
}

func emojiAllowed(f design.Field) bool {
	return f != design.FieldLayout && f != design.FieldFont && f != design.FieldTone
}
