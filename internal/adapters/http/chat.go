package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func (h *handlers) listMessages(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	msgs, err := h.Orch.History(c.Request.Context(), c.Param("roomId"), limit)
	if err != nil {
		if errors.Is(err, orch.ErrBadPayload) {
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Str("module", "adapters.http").Msg("list messages")
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *handlers) roomMembers(c *gin.Context) {
	view, err := h.Orch.Room(c.Param("roomId"))
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, view)
}
