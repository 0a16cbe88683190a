package httpapi

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lovabuddy/internal/relay/tts"
)

type speakRequest struct {
	Text    string `json:"text"`
	Speaker string `json:"speaker,omitempty"`
}

type batchRequest struct {
	Texts   []string `json:"texts"`
	Speaker string   `json:"speaker,omitempty"`
}

type batchItem struct {
	Text        string `json:"text"`
	AudioBase64 string `json:"audio_base64,omitempty"`
	Error       string `json:"error,omitempty"`
}

type batchResponse struct {
	Speaker string      `json:"speaker"`
	Items   []batchItem `json:"items"`
}

func (h *handlers) speak(c *gin.Context) {
	var req speakRequest
	if !bind(c, &req) {
		return
	}
	if h.deps.Speech == nil {
		writeError(c, tts.ErrDisabled)
		return
	}
	audio, err := h.deps.Speech.Speak(c.Request.Context(), req.Text, req.Speaker)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=86400")
	c.Data(http.StatusOK, "audio/wav", audio)
}

func (h *handlers) speakBatch(c *gin.Context) {
	var req batchRequest
	if !bind(c, &req) {
		return
	}
	if h.deps.Speech == nil {
		writeError(c, tts.ErrDisabled)
		return
	}
	voice, err := h.deps.Speech.ResolveVoice(req.Speaker)
	if err != nil {
		writeError(c, err)
		return
	}
	items, err := h.deps.Speech.Batch(c.Request.Context(), req.Texts, voice)
	if err != nil {
		writeError(c, err)
		return
	}
	out := batchResponse{Speaker: voice, Items: make([]batchItem, len(items))}
	for i, it := range items {
		out.Items[i] = batchItem{Text: it.Text}
		if it.Err != nil {
			out.Items[i].Error = classify(it.Err).Error()
			continue
		}
		out.Items[i].AudioBase64 = base64.StdEncoding.EncodeToString(it.Audio)
	}
	c.JSON(http.StatusOK, out)
}
