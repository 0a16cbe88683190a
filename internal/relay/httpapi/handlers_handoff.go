package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lovabuddy/internal/relay/handoff"
)

type handoffResponse struct {
	ID         string          `json:"id"`
	Kind       handoff.Kind    `json:"kind"`
	Prompt     string          `json:"prompt"`
	Context    json.RawMessage `json:"context,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	ExpiresAt  time.Time       `json:"expires_at"`
	ConsumedAt *time.Time      `json:"consumed_at,omitempty"`
}

func toHandoffResponse(x *handoff.Handoff) handoffResponse {
	out := handoffResponse{
		ID:         x.ID,
		Kind:       x.Kind,
		Prompt:     x.Prompt,
		CreatedAt:  x.CreatedAt,
		ExpiresAt:  x.ExpiresAt,
		ConsumedAt: x.ConsumedAt,
	}
	if len(x.Context) > 0 {
		out.Context = json.RawMessage(x.Context)
	}
	return out
}

func (h *handlers) getHandoff(c *gin.Context) {
	if h.deps.Handoffs == nil {
		writeError(c, handoff.ErrNotFound)
		return
	}
	x, err := h.deps.Handoffs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toHandoffResponse(x))
}

func (h *handlers) consumeHandoff(c *gin.Context) {
	if h.deps.Handoffs == nil {
		writeError(c, handoff.ErrNotFound)
		return
	}
	x, err := h.deps.Handoffs.Consume(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	h.deps.Metrics.Handoff(string(x.Kind), "consumed")
	c.JSON(http.StatusOK, gin.H{"id": x.ID, "prompt": x.Prompt})
}
