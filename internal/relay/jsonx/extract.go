// Package jsonx recovers a JSON object from model output that may be wrapped in prose or fences.
package jsonx

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var ErrNoJSON = errors.New("no JSON object found in model output")

var fenceRe = regexp.MustCompile("(?is)```(?:json)?\\s*\\n(.*?)\\n\\s*```")

// Extract returns the first usable JSON object in text. It tries, in order: the whole text,
// the body of a ```json fenced block, then the first balanced {...} span.
func Extract(text string) (json.RawMessage, error) {
	text = strings.TrimSpace(strings.TrimPrefix(text, "\ufeff"))
	if text == "" {
		return nil, ErrNoJSON
	}
	if json.Valid([]byte(text)) {
		return json.RawMessage(text), nil
	}
	if m := fenceRe.FindStringSubmatch(text); len(m) == 2 {
		inner := strings.TrimSpace(m[1])
		if json.Valid([]byte(inner)) {
			return json.RawMessage(inner), nil
		}
	}
	if span := FirstObject(text); span != "" && json.Valid([]byte(span)) {
		return json.RawMessage(span), nil
	}
	return nil, ErrNoJSON
}

// FirstObject returns the first balanced {...} span in text, ignoring braces inside strings.
func FirstObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
