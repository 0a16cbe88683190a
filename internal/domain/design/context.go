package design

import (
	"encoding/json"
	"strings"
)

// PromptContext is the accumulated description of the website being designed.
// It only grows: Merge never clears a populated attribute with an empty value.
type PromptContext struct {
	BaseIdea      string   `json:"base_idea,omitempty"`
	ThemeColor    string   `json:"theme_color,omitempty"`
	MainCharacter string   `json:"main_character,omitempty"`
	Purpose       string   `json:"purpose,omitempty"`
	Tone          string   `json:"tone,omitempty"`
	Layout        string   `json:"layout,omitempty"`
	Palette       []string `json:"palette,omitempty"`
	Font          string   `json:"font,omitempty"`
}

// Clone returns a deep copy.
func (c PromptContext) Clone() PromptContext {
	out := c
	if c.Palette != nil {
		out.Palette = append([]string(nil), c.Palette...)
	}
	return out
}

// Has reports whether the attribute behind f is populated.
func (c PromptContext) Has(f Field) bool {
	if f == FieldPalette {
		return len(c.Palette) > 0
	}
	return strings.TrimSpace(c.Get(f)) != ""
}

// Get returns the string form of an attribute; palettes are joined with commas.
func (c PromptContext) Get(f Field) string {
	switch f {
	case FieldBaseIdea:
		return c.BaseIdea
	case FieldThemeColor:
		return c.ThemeColor
	case FieldMainCharacter:
		return c.MainCharacter
	case FieldPurpose:
		return c.Purpose
	case FieldTone:
		return c.Tone
	case FieldLayout:
		return c.Layout
	case FieldPalette:
		return strings.Join(c.Palette, ",")
	case FieldFont:
		return c.Font
	}
	return ""
}

// With returns a copy of c with value merged under f. Palette values are split on commas,
// trimmed, and empties dropped. Blank values leave c unchanged.
func (c PromptContext) With(f Field, value string) PromptContext {
	out := c.Clone()
	value = strings.TrimSpace(value)
	if value == "" {
		return out
	}
	switch f {
	case FieldBaseIdea:
		out.BaseIdea = value
	case FieldThemeColor:
		out.ThemeColor = value
	case FieldMainCharacter:
		out.MainCharacter = value
	case FieldPurpose:
		out.Purpose = value
	case FieldTone:
		out.Tone = value
	case FieldLayout:
		out.Layout = value
	case FieldPalette:
		if p := SplitPalette(value); len(p) > 0 {
			out.Palette = p
		}
	case FieldFont:
		out.Font = value
	}
	return out
}

// Merge shallow-merges every populated attribute of other into a copy of c.
func (c PromptContext) Merge(other PromptContext) PromptContext {
	out := c.Clone()
	for _, f := range allFields {
		if other.Has(f) {
			out = out.With(f, other.Get(f))
		}
	}
	return out
}

// Missing lists plannable fields not yet populated, in priority order.
func (c PromptContext) Missing() []Field {
	var out []Field
	for _, f := range FieldPriority {
		if !c.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Details renders the context as indented JSON for prompt templates.
func (c PromptContext) Details() string {
	m := map[string]any{}
	for _, f := range allFields {
		if !c.Has(f) {
			continue
		}
		if f == FieldPalette {
			m[string(f)] = c.Palette
			continue
		}
		m[string(f)] = c.Get(f)
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// SplitPalette splits a comma-separated color list.
func SplitPalette(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
