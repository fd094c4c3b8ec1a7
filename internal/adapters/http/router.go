package http

import (
	"context"
	"net/http"

	"github.com/dkeye/Huddle/internal/adapters/signal"
	"github.com/dkeye/Huddle/internal/app/account"
	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/config"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/metrics"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	sessionName    = "HuddleSessions"
	sessionUserKey = "user_id"
)

type Deps struct {
	Orch     *orch.Orchestrator
	Accounts *account.Service
	Tokens   core.TokenIssuer
	Metrics  *metrics.Metrics
}

type handlers struct {
	Deps
	signal *signal.SignalWSController
}

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// SetupRouter wires REST and WebSocket endpoints. ctx bounds the lifetime
// of every WebSocket connection.
func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())

	secret := cfg.Secret
	if secret == "" {
		secret = uuid.NewString() + uuid.NewString()
		log.Warn().Str("module", "adapters.http").Msg("no session secret configured, sessions will not survive restarts")
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   3600 * 24 * 7,
		HttpOnly: true,
		Secure:   cfg.Mode == "release",
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	h := &handlers{
		Deps: deps,
		signal: signal.NewSignalWSController(deps.Orch, signal.Options{
			ReadLimit:      cfg.ReadLimit,
			PingPeriod:     cfg.PingPeriod,
			PongWait:       cfg.PongWait,
			WriteWait:      cfg.WriteWait,
			SendBuffer:     cfg.SendBuffer,
			AllowedOrigins: cfg.AllowedOrigins,
			RateLimit:      cfg.RateLimit.Events,
			RateInterval:   cfg.RateLimit.Interval,
		}),
	}

	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	api := r.Group("/api")
	api.POST("/register", h.register)
	api.POST("/login", h.login)
	api.POST("/logout", h.logout)
	api.GET("/me", h.me)

	api.POST("/friends/add", h.addFriend)
	api.GET("/friends/:userId", h.listFriends)

	api.GET("/messages/:roomId", h.listMessages)
	api.GET("/rooms/:roomId/members", h.roomMembers)

	api.GET("/token", h.mintToken)

	api.GET("/ws", func(c *gin.Context) {
		identity, ok := h.wsIdentity(c)
		if !ok {
			writeError(c, http.StatusBadRequest, "invalid userId")
			return
		}
		h.signal.HandleSignal(ctx, c, identity)
	})

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}

func (h *handlers) health(c *gin.Context) {
	stats := h.Orch.Registry.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": stats.Connections,
		"rooms":       stats.Rooms,
		"calls":       h.Orch.RingingCalls(),
	})
}

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
