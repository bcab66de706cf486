package handler

import (
	"errors"
	"net/http"
	"time"

	"livechat/backend/internal/chathub"
	"livechat/backend/internal/intake"
	"livechat/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// Handler serves the lead widget and the attendant console.
type Handler struct {
	Hub       *chathub.Manager
	Storage   storage.Storage
	Functions chathub.Functions
	Secret    []byte
	Localizer chathub.Translator
	Lang      string
	Now       func() time.Time
}

func NewHandler(hub *chathub.Manager, s storage.Storage, functions chathub.Functions, secret []byte, localizer chathub.Translator, lang string) *Handler {
	return &Handler{
		Hub:       hub,
		Storage:   s,
		Functions: functions,
		Secret:    secret,
		Localizer: localizer,
		Lang:      lang,
		Now:       time.Now,
	}
}

// NewRouter wires every route.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "attendants": h.Hub.Count()})
	})

	chat := r.Group("/api/chat")
	{
		chat.POST("/intake", h.Intake)
		chat.POST("/messages", h.ProcessMessage)
		chat.GET("/resume/:visitor_id", h.Resume)
		chat.GET("/status", h.ChatStatus)
		chat.GET("/sessions/:id/timeout", h.TimeoutStatus)
	}

	attendant := r.Group("/api/attendant", h.AuthMiddleware())
	{
		attendant.GET("/ws", h.ServeWebSocket)
		attendant.GET("/sessions", h.ListSessions)
		attendant.GET("/sessions/:id/messages", h.ListMessages)
		attendant.POST("/sessions/:id/messages", h.SendMessage)
		attendant.POST("/sessions/:id/accept", h.AcceptSession)
		attendant.POST("/sessions/:id/end", h.EndSession)
		attendant.POST("/sessions/:id/read", h.MarkRead)
		attendant.GET("/sessions/:id/timeout", h.TimeoutStatus)
		attendant.PUT("/availability", h.UpdateAvailability)
	}
	return r
}

func (h *Handler) lang(c *gin.Context) string {
	if lang := c.Query("lang"); lang != "" {
		return lang
	}
	return h.Lang
}

// statusFor maps domain errors to HTTP statuses.
func statusFor(err error) int {
	var verr *intake.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, chathub.ErrInvalidEndStatus):
		return http.StatusBadRequest
	case errors.Is(err, intake.ErrChatDisabled),
		errors.Is(err, chathub.ErrNotAssigned):
		return http.StatusForbidden
	case errors.Is(err, storage.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, chathub.ErrInvalidTransition),
		errors.Is(err, chathub.ErrAtCapacity),
		errors.Is(err, chathub.ErrOffline):
		return http.StatusConflict
	case errors.Is(err, chathub.ErrSendRejected):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}
