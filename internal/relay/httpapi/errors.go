package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lovabuddy/internal/platform/apierr"
	"github.com/yungbote/lovabuddy/internal/relay/engine"
	"github.com/yungbote/lovabuddy/internal/relay/handoff"
	"github.com/yungbote/lovabuddy/internal/relay/tts"
)

var (
	errMissingToken = errors.New("missing or invalid token")
	errNoRoute      = apierr.NotFound("route not found")
)

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Raw     string `json:"raw,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// writeError aborts with the JSON error envelope. Internal failures never leak their cause.
func writeError(c *gin.Context, err error) {
	ae := classify(err)
	msg := ae.Error()
	if ae.Status >= 500 && ae.Code == "internal" {
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(ae.Status, errorEnvelope{Error: errorBody{Message: msg, Code: ae.Code, Raw: ae.Raw}})
}

func classify(err error) *apierr.Error {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae
	}
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return apierr.New(http.StatusRequestEntityTooLarge, "invalid_request", errors.New("request body too large"))
	case errors.Is(err, handoff.ErrNotFound):
		return apierr.NotFound(err.Error())
	case errors.Is(err, handoff.ErrAlreadyConsumed):
		return apierr.New(http.StatusConflict, "conflict", err)
	case errors.Is(err, tts.ErrDisabled):
		return apierr.New(http.StatusServiceUnavailable, "unavailable", err)
	case errors.Is(err, tts.ErrEmptyText), errors.Is(err, tts.ErrUnknownVoice),
		errors.Is(err, tts.ErrTextTooLong), errors.Is(err, tts.ErrBatchTooBig):
		return apierr.BadRequest(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return apierr.New(http.StatusGatewayTimeout, "upstream_error", err)
	}
	var (
		empty *engine.EmptyError
		ue    *engine.UpstreamError
	)
	switch {
	case errors.As(err, &empty):
		return apierr.WithRaw(http.StatusUnprocessableEntity, "empty_response", err, truncateRaw(string(empty.Raw)))
	case errors.Is(err, engine.ErrEmptyCandidates):
		return apierr.New(http.StatusUnprocessableEntity, "empty_response", err)
	case errors.As(err, &ue):
		return apierr.New(http.StatusBadGateway, "upstream_error", err)
	}
	return apierr.From(err)
}

const maxRawDump = 2000

func truncateRaw(s string) string {
	if len(s) <= maxRawDump {
		return s
	}
	return s[:maxRawDump]
}
