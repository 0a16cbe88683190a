// Package prompts holds the text templates sent to the language model.
package prompts

import (
	"fmt"
	"strings"
)

const DefaultBaseIdea = "a fun website"

// System frames every question-planning call: audience, tone and the choice conventions the
// presentation cards depend on.
func System() string {
	return applyStyle(`You help children and people with special needs describe a website they want to build.
Write in plain, friendly words and short sentences, around a third-grade reading level.

Choice conventions:
- Be inclusive and accessible. No idioms, no sarcasm.
- Palettes: type "color"; value is a comma-separated list of hex colors such as "#ff6b6b,#ffd93d,#6bcb77". Give each palette a playful name ("Sunset Dreams", "Ocean Breeze", "Forest Friends") and keep the colors harmonious with readable contrast.
- Fonts: type "text"; value is one Google Fonts family name without commas ("Poppins", "Nunito", "Playfair Display", "Roboto Mono", "Dancing Script", "Lora"). Offer at least 4 options spanning serif, sans-serif, display, monospace and script.
- Layouts: type "layout"; value is a short id containing one of grid, card, long-scroll, gallery, list, hero, sidebar, split (for example "card-grid"). Offer at most 3 layouts.
- Labels for layout, tone and font are plain words with no emoji. Other choices may carry one emoji.
- Do not ask what is already obvious from the idea.
- Vary your sentence openings.`, true)
}

// Describe asks for a one-line concept summary of a typed idea.
func Describe(text string) string {
	return "Condense this website idea into one short concept phrase. Reply with the phrase only.\n\nIdea: " + strings.TrimSpace(text)
}

// Drawing asks for a caption of a user drawing.
func Drawing() string {
	return "In one short phrase, say what this drawing shows as an idea for a kid-friendly website. Reply with the phrase only."
}

// Plan builds the question-planning request for the current context.
func Plan(baseIdea, details string, withDrawing bool) string {
	baseIdea = strings.TrimSpace(baseIdea)
	if baseIdea == "" {
		baseIdea = DefaultBaseIdea
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Website idea: %q\n", baseIdea)
	fmt.Fprintf(&b, "What we already know (this comes first):\n%s\n\n", details)
	if withDrawing {
		b.WriteString(drawingRules("the details above", "ask about"))
		b.WriteString("\n")
	}
	b.WriteString(`Plan between 3 and 6 questions that fill in only the missing attributes among: palette, layout, font, tone, main_character, purpose.

Reply with JSON only:
{"steps":[{"question":string,"expected_field":"palette"|"layout"|"font"|"tone"|"main_character"|"purpose","choices":[{"label":string,"emoji"?:string,"value":string,"type":"color"|"text"|"icon"|"layout"}]}]}

Steps:
- Skip any attribute that is already known.
- Every step asks about a different expected_field.
- Each step has 3 to 6 choices; a font step has at least 4.
- A palette step has 2 to 5 colors per choice. If a single theme color is known, build palettes around it instead of asking for a theme color.
- A layout step has exactly 3 choices.
- When missing, ask palette first, then layout, then font; add tone, main_character or purpose only to reach at least 3 steps.
- If font is missing there is exactly one font step. If palette is missing there is exactly one palette step.
- Keep labels short and friendly and phrase every question differently.`)
	return b.String()
}

// Final builds the synthesis request turning the collected context into a builder prompt.
func Final(details string) string {
	return `Write a complete, technical prompt for an AI website builder using exactly these details:
` + details + `

The prompt must:
- make this child's idea real; if the idea is interactive, make the interaction work
- add nothing the details do not support
- specify layout, color palette, fonts and functionality
- cover responsive behavior, component structure and visual hierarchy
- cover accessibility and current web standards
- be written for an AI agent, in precise and actionable language

` + outputRules("Create a website for")
}

// ImproveSystem frames an improvement pass around the prompt that produced the current site.
func ImproveSystem(originalPrompt string) string {
	return `You turn user change requests into technical improvement prompts for an AI website builder.
The current website was generated from this prompt:
` + strings.TrimSpace(originalPrompt) + `

Keep the existing design consistent while making the requested changes.`
}

// Improve builds the improvement request from user feedback and an optional DOM snapshot.
func Improve(feedback, currentDOM string, withDrawing bool) string {
	var b strings.Builder
	if dom := strings.TrimSpace(currentDOM); dom != "" {
		b.WriteString("Current page structure (latest build):\n")
		b.WriteString(dom)
		b.WriteString("\n\nBuild on this structure. Refer to its real class names, ids and elements instead of starting over.\n\n")
	}
	b.WriteString("Requested changes:\n")
	b.WriteString(strings.TrimSpace(feedback))
	b.WriteString("\n\n")
	if withDrawing {
		b.WriteString(drawingRules("the requested changes", "reference"))
		b.WriteString("\n")
	}
	b.WriteString(`Write an improvement prompt that:
- identifies the parts of the page the feedback is about
- gives specific, actionable instructions for each change
- includes concrete layout, color and component details
- keeps responsive behavior and accessibility intact

`)
	b.WriteString(outputRules("Update the website to"))
	return b.String()
}

func drawingRules(primary, verb string) string {
	return fmt.Sprintf(`A drawing is attached. Rules for using it:
1. If the drawing is blank, white or has no clear content, ignore it completely as if none was sent.
2. The text in %s is the source of truth. The drawing never overrides or contradicts it.
3. Use the drawing only to add information the text does not already give, and never %s things the text already settles.
`, primary, verb)
}

func outputRules(opening string) string {
	return fmt.Sprintf(`Output rules:
- Output only the prompt text.
- No introduction, commentary or closing remarks. Never begin with "Here is", "Based on", "Of course", "Sure", "I'll" or "Let me".
- No code fences.
- Start directly with the instructions (for example %q) and stop when they end.`, opening+" ...")
}
