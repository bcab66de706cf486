package handler

import (
	"errors"
	"log"
	"net/http"

	"livechat/backend/internal/intake"
	"livechat/backend/internal/models"
	"livechat/backend/internal/timeout"

	"github.com/gin-gonic/gin"
)

// Intake opens a chat session for the widget.
func (h *Handler) Intake(c *gin.Context) {
	var req models.IntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	resp, err := h.Functions.Intake(c.Request.Context(), req)
	if errors.Is(err, intake.ErrChatDisabled) {
		c.JSON(http.StatusForbidden, gin.H{"error": h.Localizer.GetString(h.lang(c), "chat_disabled")})
		return
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ProcessMessage stores a message from the widget. The route is public, so the message is
// always recorded as written by the lead; attendants send through their console.
func (h *Handler) ProcessMessage(c *gin.Context) {
	var req models.MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}
	req.Data.SenderType = models.SenderLead
	req.Data.SenderID = nil

	resp, err := h.Functions.ProcessMessage(c.Request.Context(), req)
	if err != nil {
		log.Printf("ERROR: Message processing failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal error"})
		return
	}
	if !resp.Success {
		c.JSON(http.StatusUnprocessableEntity, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Resume returns the visitor's session if it was stored less than a day ago.
func (h *Handler) Resume(c *gin.Context) {
	entry, err := h.Storage.GetResume(c.Request.Context(), c.Param("visitor_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if entry == nil || !entry.Fresh(h.Now()) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no session to resume"})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// ChatStatus reports whether the widget may open new chats.
func (h *Handler) ChatStatus(c *gin.Context) {
	enabled, err := h.Storage.IsChatEnabled(c.Request.Context(), c.Query("tenant_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": enabled})
}

// TimeoutStatus evaluates the response-timeout banner of a session.
func (h *Handler) TimeoutStatus(c *gin.Context) {
	last, err := h.Storage.LastAttendantMessageAt(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, timeout.Evaluate(h.Now(), last))
}
