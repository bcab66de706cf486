package storage

import (
	"time"

	"livechat/backend/internal/models"
)

// SessionUpdate lists the session columns a lifecycle operation changes. Nil fields are
// left untouched.
type SessionUpdate struct {
	Status      *models.SessionStatus
	AttendantID *string
	EndedAt     *time.Time
	Notes       *string
}

// Columns returns the column map passed to gorm's Updates.
func (u SessionUpdate) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if u.Status != nil {
		cols["status"] = string(*u.Status)
	}
	if u.AttendantID != nil {
		cols["attendant_id"] = *u.AttendantID
	}
	if u.EndedAt != nil {
		cols["ended_at"] = *u.EndedAt
	}
	if u.Notes != nil {
		cols["notes"] = *u.Notes
	}
	return cols
}

// Apply copies the update onto an in-memory session.
func (u SessionUpdate) Apply(s *models.ChatSession) {
	if u.Status != nil {
		s.Status = *u.Status
	}
	if u.AttendantID != nil {
		id := *u.AttendantID
		s.AttendantID = &id
	}
	if u.EndedAt != nil {
		t := *u.EndedAt
		s.EndedAt = &t
	}
	if u.Notes != nil {
		n := *u.Notes
		s.Notes = &n
	}
}
