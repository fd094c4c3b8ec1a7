package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type addFriendRequest struct {
	MyID           string `json:"myId" binding:"omitempty,max=36"`
	TargetUsername string `json:"targetUsername" binding:"required,max=36"`
}

func (h *handlers) addFriend(c *gin.Context) {
	var req addFriendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	me := domain.UserID(req.MyID)
	if me == "" {
		id, ok := sessionUser(c)
		if !ok {
			writeError(c, http.StatusUnauthorized, "not logged in")
			return
		}
		me = id
	}

	fr, err := h.Orch.AddFriend(c.Request.Context(), me, req.TargetUsername)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, fr)
	case errors.Is(err, core.ErrNotFound):
		writeError(c, http.StatusNotFound, "User not found")
	case errors.Is(err, core.ErrAlreadyExists):
		writeError(c, http.StatusBadRequest, "Already sent")
	case errors.Is(err, orch.ErrSelfFriend):
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Str("module", "adapters.http").Msg("add friend")
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func (h *handlers) listFriends(c *gin.Context) {
	list, err := h.Orch.Friends(c.Request.Context(), domain.UserID(c.Param("userId")))
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("list friends")
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, list)
}
