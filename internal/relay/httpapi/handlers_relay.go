package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lovabuddy/internal/domain/design"
	"github.com/yungbote/lovabuddy/internal/platform/apierr"
	"github.com/yungbote/lovabuddy/internal/relay/service"
)

type describeRequest struct {
	Text string `json:"text"`
}

type drawingRequest struct {
	ImageDataURL string `json:"imageDataUrl"`
}

type baseIdeaResponse struct {
	BaseIdea string `json:"base_idea"`
}

type planRequest struct {
	Context      design.PromptContext `json:"context"`
	DrawingImage string               `json:"drawingImage,omitempty"`
}

type finalRequest struct {
	Context design.PromptContext `json:"context"`
}

type finalResponse struct {
	Prompt    string               `json:"prompt"`
	JSON      design.PromptContext `json:"json"`
	HandoffID string               `json:"handoff_id,omitempty"`
}

type improveRequest struct {
	OriginalPrompt string `json:"originalPrompt"`
	Improvement    string `json:"improvement"`
	CurrentDOM     string `json:"currentDom,omitempty"`
	DrawingImage   string `json:"drawingImage,omitempty"`
}

type improveResponse struct {
	Prompt    string `json:"prompt"`
	HandoffID string `json:"handoff_id,omitempty"`
}

// bind decodes the JSON body, writing an error response on failure.
func bind(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeError(c, err)
	} else {
		writeError(c, apierr.BadRequest("invalid JSON body: "+err.Error()))
	}
	return false
}

func parseImage(c *gin.Context, dataURL string) (*service.Image, bool) {
	img, err := service.ParseDataURL(dataURL)
	if err != nil {
		writeError(c, apierr.BadRequest(err.Error()))
		return nil, false
	}
	return img, true
}

func (h *handlers) describe(c *gin.Context) {
	var req describeRequest
	if !bind(c, &req) {
		return
	}
	idea, err := h.deps.Relay.Describe(c.Request.Context(), req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, baseIdeaResponse{BaseIdea: idea})
}

func (h *handlers) drawing(c *gin.Context) {
	var req drawingRequest
	if !bind(c, &req) {
		return
	}
	img, ok := parseImage(c, req.ImageDataURL)
	if !ok {
		return
	}
	idea, err := h.deps.Relay.AnalyzeImage(c.Request.Context(), img)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, baseIdeaResponse{BaseIdea: idea})
}

func (h *handlers) plan(c *gin.Context) {
	var req planRequest
	if !bind(c, &req) {
		return
	}
	img, ok := parseImage(c, req.DrawingImage)
	if !ok {
		return
	}
	plan, err := h.deps.Relay.PlanQuestions(c.Request.Context(), req.Context, img)
	if err != nil {
		writeError(c, err)
		return
	}
	if plan.Steps == nil {
		plan.Steps = []design.Step{}
	}
	c.JSON(http.StatusOK, plan)
}

func (h *handlers) final(c *gin.Context) {
	var req finalRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.deps.Relay.SynthesizeFinal(c.Request.Context(), req.Context)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, finalResponse{Prompt: out.Prompt, JSON: out.Context, HandoffID: out.HandoffID})
}

func (h *handlers) improve(c *gin.Context) {
	var req improveRequest
	if !bind(c, &req) {
		return
	}
	img, ok := parseImage(c, req.DrawingImage)
	if !ok {
		return
	}
	out, err := h.deps.Relay.Improve(c.Request.Context(), service.ImproveInput{
		OriginalPrompt: req.OriginalPrompt,
		Improvement:    req.Improvement,
		CurrentDOM:     req.CurrentDOM,
		Drawing:        img,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, improveResponse{Prompt: out.Prompt, HandoffID: out.HandoffID})
}
