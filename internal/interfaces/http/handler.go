// Package http is the operator-facing API: health, stats and
// broadcasts. It never touches game credentials; the single operator
// login comes from the environment.
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/repository"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/usecases"
)

// Broadcaster delivers a message to every linked chat; the bot
// implements it.
type Broadcaster interface {
	Broadcast(ctx context.Context, text string) (sent, total int, err error)
}

type Handler struct {
	auth        *usecases.OpsAuth
	stats       *usecases.StatsService
	broadcaster Broadcaster
}

func NewHandler(auth *usecases.OpsAuth, stats *usecases.StatsService, broadcaster Broadcaster) *Handler {
	return &Handler{auth: auth, stats: stats, broadcaster: broadcaster}
}

func SetupRoutes(r *gin.Engine, h *Handler, mw *Middleware) {
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(1 << 20))

	r.GET("/healthz", h.Health)
	r.POST("/api/login", mw.RateLimitPerIP(rate.Limit(1), 5), h.Login)

	api := r.Group("/api")
	api.Use(mw.AuthRequired())
	{
		api.GET("/stats", h.Stats)
		api.GET("/accounts/:email", h.Lookup)
		api.POST("/broadcast", h.Broadcast)
	}
}

func (h *Handler) Health(c *gin.Context) {
	if _, err := h.stats.Check(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	token, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *Handler) Stats(c *gin.Context) {
	report, err := h.stats.Check(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats query failed"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) Lookup(c *gin.Context) {
	lookup, err := h.stats.Lookup(c.Request.Context(), c.Param("email"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": lookup.Username, "telegram_id": lookup.TelegramID})
}

func (h *Handler) Broadcast(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	sent, total, err := h.broadcaster.Broadcast(c.Request.Context(), req.Text)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "broadcast failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": sent, "total": total})
}
