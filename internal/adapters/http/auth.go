package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/Huddle/internal/app/account"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func (h *handlers) register(c *gin.Context) {
	var in account.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	u, err := h.Accounts.Register(c.Request.Context(), in)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, u)
	case errors.Is(err, account.ErrUserExists):
		writeError(c, http.StatusBadRequest, "User already exists")
	case errors.Is(err, account.ErrInvalidInput):
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Str("module", "adapters.http").Msg("register")
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func (h *handlers) login(c *gin.Context) {
	var in account.LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	u, err := h.Accounts.Login(c.Request.Context(), in)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			writeError(c, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		log.Error().Err(err).Str("module", "adapters.http").Msg("login")
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserKey, string(u.ID))
	if err := session.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("session save")
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *handlers) logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	_ = session.Save()
	c.Status(http.StatusNoContent)
}

func (h *handlers) me(c *gin.Context) {
	id, ok := sessionUser(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "not logged in")
		return
	}
	u, err := h.Accounts.User(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeError(c, http.StatusUnauthorized, "not logged in")
			return
		}
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, u)
}

func sessionUser(c *gin.Context) (domain.UserID, bool) {
	v, ok := sessions.Default(c).Get(sessionUserKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return domain.UserID(v), true
}

// wsIdentity prefers the logged-in session and falls back to ?userId=.
func (h *handlers) wsIdentity(c *gin.Context) (domain.UserID, bool) {
	if id, ok := sessionUser(c); ok {
		return id, true
	}
	raw := c.Query("userId")
	if len(raw) > domain.MaxUserIDLen {
		return "", false
	}
	return domain.UserID(raw), true
}
