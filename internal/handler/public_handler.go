package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-selftest/internal/bank"
	"github.com/stemsi/exstem-selftest/internal/engine"
	"github.com/stemsi/exstem-selftest/internal/response"
	"github.com/stemsi/exstem-selftest/internal/view"
)

// PublicHandler serves unauthenticated endpoints.
type PublicHandler struct {
	renderer view.Renderer
	log      zerolog.Logger
}

// NewPublicHandler creates a new PublicHandler.
func NewPublicHandler(renderer view.Renderer, log zerolog.Logger) *PublicHandler {
	return &PublicHandler{
		renderer: renderer,
		log:      log.With().Str("component", "public_handler").Logger(),
	}
}

// SampleBank godoc
// GET /api/v1/public/sample-bank
// Returns the instructions screen of the bundled sample bank.
func (h *PublicHandler) SampleBank(c *gin.Context) {
	file, err := bank.Embedded()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to decode embedded bank")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	st := engine.Reduce(engine.NewState(), engine.Load{Questions: file.Questions})
	response.Success(c, http.StatusOK, gin.H{
		"name":        file.Name,
		"description": file.Description,
		"screen":      h.renderer.Render(st),
	})
}
