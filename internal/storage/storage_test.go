package storage

import (
	"testing"
	"time"

	"livechat/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestSessionUpdateColumns(t *testing.T) {
	status := models.StatusEnded
	ended := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	notes := "resolved"

	cols := SessionUpdate{Status: &status, EndedAt: &ended, Notes: &notes}.Columns()

	assert.Equal(t, map[string]interface{}{
		"status":   "ended",
		"ended_at": ended,
		"notes":    "resolved",
	}, cols)
	assert.Empty(t, SessionUpdate{}.Columns())
}

func TestSessionUpdateApply(t *testing.T) {
	status := models.StatusActive
	attendant := "A1"
	session := &models.ChatSession{ID: "S1", Status: models.StatusWaiting}

	SessionUpdate{Status: &status, AttendantID: &attendant}.Apply(session)

	assert.Equal(t, models.StatusActive, session.Status)
	if assert.NotNil(t, session.AttendantID) {
		assert.Equal(t, "A1", *session.AttendantID)
	}
	assert.Nil(t, session.EndedAt)

	attendant = "changed"
	assert.Equal(t, "A1", *session.AttendantID, "Apply must copy pointer values")
}

func TestResumeEntryFresh(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	assert.True(t, ResumeEntry{SessionID: "s", Timestamp: now.Add(-23 * time.Hour)}.Fresh(now))
	assert.False(t, ResumeEntry{SessionID: "s", Timestamp: now.Add(-24 * time.Hour)}.Fresh(now))
	assert.False(t, ResumeEntry{SessionID: "s"}.Fresh(now))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "chat:resume:v1", resumeKey("v1"))
	assert.Equal(t, "chat:enabled:t1", chatEnabledKey("t1"))
	assert.Equal(t, "chat:enabled:default", chatEnabledKey(""))
}
