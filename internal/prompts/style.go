package prompts

import "strings"

const styleMarker = "LOVABUDDY_PROMPT_STYLE_V1"

// applyStyle prepends a short guidance block to a system prompt. It is idempotent.
func applyStyle(system string, jsonOnly bool) string {
	base := strings.TrimSpace(system)
	if base == "" || strings.Contains(base, styleMarker) {
		return base
	}

	var b strings.Builder
	b.WriteString(styleMarker)
	b.WriteString("\nFollow the system and user instructions exactly.")
	if jsonOnly {
		b.WriteString("\nReturn a single JSON object matching the requested shape. No prose, no markdown, no code fences, no extra keys.")
	} else {
		b.WriteString("\nBe concise.")
	}
	b.WriteString("\nKeep reasoning short and answer directly.")
	b.WriteString("\n---\n")
	b.WriteString(base)
	return b.String()
}
