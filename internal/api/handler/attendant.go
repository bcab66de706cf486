package handler

import (
	"net/http"

	"livechat/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type endSessionRequest struct {
	Notes  *string              `json:"notes"`
	Status models.SessionStatus `json:"status"`
}

type sendMessageRequest struct {
	Text     string  `json:"text" binding:"required"`
	TenantID *string `json:"tenant_id"`
}

type availabilityRequest struct {
	Online *bool `json:"online" binding:"required"`
}

// ListSessions returns the attendant's sessions, newest first.
func (h *Handler) ListSessions(c *gin.Context) {
	console := h.Hub.Console(attendantID(c))
	if err := console.Refresh(c.Request.Context()); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": console.Store().ListSessions()})
}

func (h *Handler) ListMessages(c *gin.Context) {
	msgs, err := h.Hub.Console(attendantID(c)).LoadMessages(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *Handler) AcceptSession(c *gin.Context) {
	id := attendantID(c)
	session, err := h.Hub.Console(id).AcceptSession(c.Request.Context(), c.Param("id"), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) EndSession(c *gin.Context) {
	var req endSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	session, err := h.Hub.Console(attendantID(c)).EndSession(c.Request.Context(), c.Param("id"), req.Notes, req.Status)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	msg, err := h.Hub.Console(attendantID(c)).SendMessage(c.Request.Context(), c.Param("id"), req.Text, models.SenderAttendant, req.TenantID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// MarkRead is best-effort and always answers 204.
func (h *Handler) MarkRead(c *gin.Context) {
	h.Hub.Console(attendantID(c)).MarkMessagesAsRead(c.Request.Context(), c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (h *Handler) UpdateAvailability(c *gin.Context) {
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "online is required"})
		return
	}

	avail := h.Hub.Console(attendantID(c)).UpdateAvailability(c.Request.Context(), *req.Online)
	if avail == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "availability was not saved"})
		return
	}
	c.JSON(http.StatusOK, avail)
}
