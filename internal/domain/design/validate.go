package design

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrMissingSteps = errors.New("plan is missing steps")
	ErrInvalidPlan  = errors.New("plan failed validation")
)

// ValidationError pinpoints the first offending element of a plan.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidPlan }

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// variants maps each plannable field to the choice types its step may carry.
var variants = map[Field][]ChoiceType{
	FieldPalette:       {ChoiceColor},
	FieldLayout:        {ChoiceLayout},
	FieldFont:          {ChoiceText},
	FieldTone:          {ChoiceText, ChoiceIcon},
	FieldMainCharacter: {ChoiceText, ChoiceIcon},
	FieldPurpose:       {ChoiceText, ChoiceIcon},
}

// fields whose labels are plain words only
var noEmoji = map[Field]bool{FieldLayout: true, FieldTone: true, FieldFont: true}

type rawPlan struct {
	Steps *[]Step `json:"steps"`
}

// DecodePlan parses and validates a plan document. A document without a steps array fails with
// ErrMissingSteps; anything outside the enumerated fields and types fails with a *ValidationError.
func DecodePlan(data []byte) (Plan, error) {
	var raw rawPlan
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return Plan{}, fmt.Errorf("decode plan: %w", err)
	}
	if raw.Steps == nil {
		return Plan{}, ErrMissingSteps
	}
	p := Plan{Steps: *raw.Steps}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// Normalize trims whitespace and strips emoji from fields that must be plain words.
func (p *Plan) Normalize() {
	for i := range p.Steps {
		s := &p.Steps[i]
		s.Question = strings.TrimSpace(s.Question)
		s.ExpectedField = Field(strings.ToLower(strings.TrimSpace(string(s.ExpectedField))))
		for j := range s.Choices {
			c := &s.Choices[j]
			c.Label = strings.TrimSpace(c.Label)
			c.Value = strings.TrimSpace(c.Value)
			c.Emoji = strings.TrimSpace(c.Emoji)
			c.Type = ChoiceType(strings.ToLower(strings.TrimSpace(string(c.Type))))
			if noEmoji[s.ExpectedField] {
				c.Emoji = ""
			}
		}
	}
}

// Validate enforces step and choice counts, unique expected fields and the field/type variants.
func (p Plan) Validate() error {
	if p.Empty() {
		return nil
	}
	if n := len(p.Steps); n < MinSteps || n > MaxSteps {
		return &ValidationError{Path: "steps", Reason: fmt.Sprintf("want %d-%d steps, got %d", MinSteps, MaxSteps, n)}
	}
	seen := map[Field]int{}
	for i, s := range p.Steps {
		path := fmt.Sprintf("steps[%d]", i)
		if s.Question == "" {
			return &ValidationError{Path: path + ".question", Reason: "empty"}
		}
		if !s.ExpectedField.Plannable() {
			return &ValidationError{Path: path + ".expected_field", Reason: fmt.Sprintf("unknown field %q", s.ExpectedField)}
		}
		if prev, dup := seen[s.ExpectedField]; dup {
			return &ValidationError{Path: path + ".expected_field", Reason: fmt.Sprintf("%q already asked by steps[%d]", s.ExpectedField, prev)}
		}
		seen[s.ExpectedField] = i
		if err := validateChoices(path, s, variants[s.ExpectedField]); err != nil {
			return err
		}
	}
	return nil
}

func validateChoices(path string, s Step, allowed []ChoiceType) error {
	min := MinChoices
	if s.ExpectedField == FieldFont {
		min = MinFontChoices
	}
	if n := len(s.Choices); n < min || n > MaxChoices {
		return &ValidationError{Path: path + ".choices", Reason: fmt.Sprintf("want %d-%d choices, got %d", min, MaxChoices, n)}
	}
	for j, c := range s.Choices {
		cp := fmt.Sprintf("%s.choices[%d]", path, j)
		if c.Label == "" || c.Value == "" {
			return &ValidationError{Path: cp, Reason: "label and value are required"}
		}
		if !c.Type.Valid() {
			return &ValidationError{Path: cp + ".type", Reason: fmt.Sprintf("unknown type %q", c.Type)}
		}
		if !typeAllowed(c.Type, allowed) {
			return &ValidationError{Path: cp + ".type", Reason: fmt.Sprintf("type %q not allowed for %s", c.Type, s.ExpectedField)}
		}
		switch s.ExpectedField {
		case FieldPalette:
			colors := SplitPalette(c.Value)
			if len(colors) == 0 {
				return &ValidationError{Path: cp + ".value", Reason: "empty palette"}
			}
			for _, col := range colors {
				if !hexColor.MatchString(col) {
					return &ValidationError{Path: cp + ".value", Reason: fmt.Sprintf("%q is not a hex color", col)}
				}
			}
		case FieldFont:
			if strings.Contains(c.Value, ",") {
				return &ValidationError{Path: cp + ".value", Reason: "font family must be a single name"}
			}
		}
	}
	return nil
}

func typeAllowed(t ChoiceType, allowed []ChoiceType) bool {
	for _, a := range allowed {
		if a == t {
			return true
		}
	}
	return false
}
