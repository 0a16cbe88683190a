package engine

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyCandidates means the upstream answered 2xx but produced no candidate at all.
var ErrEmptyCandidates = errors.New("model returned no candidates")

type SchemaType string

const (
	TypeObject SchemaType = "object"
	TypeArray  SchemaType = "array"
	TypeString SchemaType = "string"
)

// Schema is the subset of a response schema the relay needs. Engines translate it to their wire form.
type Schema struct {
	Type       SchemaType
	Properties map[string]*Schema
	// Order lists Properties in the order the model should emit them.
	Order    []string
	Items    *Schema
	Enum     []string
	Required []string
	MinItems int
	MaxItems int
}

type Part struct {
	Text     string
	Data     []byte
	MIMEType string
}

type GenerateRequest struct {
	Model  string
	System string
	Parts  []Part

	Temperature *float32
	TopK        *float32
	TopP        *float32

	// JSON asks for application/json output; Schema further constrains it.
	JSON   bool
	Schema *Schema

	MaxOutputTokens int32
}

type GenerateResponse struct {
	Text         string
	FinishReason string
	// Raw is the upstream response serialized for diagnostics.
	Raw []byte
	// Retried reports that a MAX_TOKENS finish triggered the larger-budget retry.
	Retried bool
}

type Engine interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// UpstreamError is a non-2xx answer from the model API.
type UpstreamError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *UpstreamError) Error() string {
	if e == nil {
		return "upstream error"
	}
	if e.Message == "" {
		return fmt.Sprintf("upstream error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("upstream error: status=%d %s", e.StatusCode, e.Message)
}

// EmptyError carries the raw response that produced no candidates.
type EmptyError struct {
	Raw []byte
}

func (e *EmptyError) Error() string { return ErrEmptyCandidates.Error() }

func (e *EmptyError) Unwrap() error { return ErrEmptyCandidates }
