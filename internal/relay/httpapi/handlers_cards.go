package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lovabuddy/internal/cards"
	"github.com/yungbote/lovabuddy/internal/domain/design"
	"github.com/yungbote/lovabuddy/internal/platform/apierr"
)

const maxCardSide = 1024

type cardRequest struct {
	Field    design.Field  `json:"field"`
	Choice   design.Choice `json:"choice"`
	Selected bool          `json:"selected"`
	Width    int           `json:"width,omitempty"`
	Height   int           `json:"height,omitempty"`
}

func (h *handlers) renderCard(c *gin.Context) {
	var req cardRequest
	if !bind(c, &req) {
		return
	}
	if req.Choice.Label == "" || !req.Choice.Type.Valid() {
		writeError(c, apierr.BadRequest("choice needs a label and a known type"))
		return
	}
	if req.Width > maxCardSide || req.Height > maxCardSide {
		writeError(c, apierr.BadRequest("card is too large"))
		return
	}
	png, err := cards.RenderPNG(cards.Build(req.Field, req.Choice, req.Selected), req.Width, req.Height)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "image/png", png)
}
