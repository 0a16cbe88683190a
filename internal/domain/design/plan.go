package design

import "strconv"

// Field names a PromptContext attribute.
type Field string

const (
	FieldBaseIdea      Field = "base_idea"
	FieldThemeColor    Field = "theme_color"
	FieldMainCharacter Field = "main_character"
	FieldPurpose       Field = "purpose"
	FieldTone          Field = "tone"
	FieldLayout        Field = "layout"
	FieldPalette       Field = "palette"
	FieldFont          Field = "font"
)

// FieldPriority is the order in which missing attributes are asked about. These are the only
// values a plan step may carry as expected_field.
var FieldPriority = []Field{FieldPalette, FieldLayout, FieldFont, FieldTone, FieldMainCharacter, FieldPurpose}

var allFields = []Field{
	FieldBaseIdea, FieldThemeColor, FieldMainCharacter, FieldPurpose,
	FieldTone, FieldLayout, FieldPalette, FieldFont,
}

func (f Field) Plannable() bool {
	for _, p := range FieldPriority {
		if f == p {
			return true
		}
	}
	return false
}

// ChoiceType selects how a choice is presented.
type ChoiceType string

const (
	ChoiceColor  ChoiceType = "color"
	ChoiceText   ChoiceType = "text"
	ChoiceIcon   ChoiceType = "icon"
	ChoiceLayout ChoiceType = "layout"
)

var ChoiceTypes = []ChoiceType{ChoiceColor, ChoiceText, ChoiceIcon, ChoiceLayout}

func (t ChoiceType) Valid() bool {
	for _, v := range ChoiceTypes {
		if t == v {
			return true
		}
	}
	return false
}

const (
	MinSteps       = 3
	MaxSteps       = 6
	MinChoices     = 3
	MaxChoices     = 6
	MinFontChoices = 4
)

type Choice struct {
	Label string     `json:"label"`
	Emoji string     `json:"emoji,omitempty"`
	Value string     `json:"value"`
	Type  ChoiceType `json:"type"`
}

type Step struct {
	Question      string   `json:"question"`
	ExpectedField Field    `json:"expected_field"`
	Choices       []Choice `json:"choices"`
}

// Plan is the ordered list of questions for one planning pass. An empty plan is valid and
// means nothing is left to ask.
type Plan struct {
	Steps []Step `json:"steps"`
}

func (p Plan) Empty() bool { return len(p.Steps) == 0 }

// ReadAloud is the text spoken for a step: the question followed by numbered options.
func (s Step) ReadAloud() string {
	out := s.Question
	for i, c := range s.Choices {
		out += ". Option " + strconv.Itoa(i+1) + ": " + c.Label
	}
	return out
}
