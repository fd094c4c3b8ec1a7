package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/Huddle/internal/adapters/token"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type tokenQuery struct {
	Room     string `form:"room" binding:"required,max=128"`
	Username string `form:"username" binding:"required,max=64"`
}

func (h *handlers) mintToken(c *gin.Context) {
	var q tokenQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, http.StatusBadRequest, "Missing params")
		return
	}
	grant, err := h.Tokens.Mint(q.Room, q.Username)
	if err != nil {
		if errors.Is(err, token.ErrNotConfigured) {
			writeError(c, http.StatusServiceUnavailable, err.Error())
			return
		}
		log.Error().Err(err).Str("module", "adapters.http").Msg("mint token")
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, grant)
}
