package chathub

import (
	"errors"
	"time"

	"livechat/backend/internal/models"
)

var (
	ErrOffline    = errors.New("attendant is offline")
	ErrAtCapacity = errors.New("attendant is at maximum concurrent chats")
)

// CanAccept reports whether an attendant with the given presence record may take one
// more session. A missing record does not block.
func CanAccept(avail *models.AttendantAvailability) error {
	if avail == nil {
		return nil
	}
	if !avail.IsOnline {
		return ErrOffline
	}
	if avail.CurrentChats >= avail.MaxConcurrentChats {
		return ErrAtCapacity
	}
	return nil
}

// Incremented returns the record to write after an accept. It is computed from the value
// read before the accept, so two concurrent accepts can both write the same count.
func Incremented(prev *models.AttendantAvailability, userID string, now time.Time, defaultMax int) *models.AttendantAvailability {
	if prev == nil {
		return &models.AttendantAvailability{
			UserID:             userID,
			IsOnline:           true,
			CurrentChats:       1,
			MaxConcurrentChats: defaultMax,
			LastSeen:           now,
		}
	}
	next := *prev
	next.CurrentChats++
	next.LastSeen = now
	return &next
}

// Decremented returns the record to write after an active session ended, floored at zero.
func Decremented(prev *models.AttendantAvailability, now time.Time) *models.AttendantAvailability {
	next := *prev
	next.CurrentChats = max(next.CurrentChats-1, 0)
	next.LastSeen = now
	return &next
}

// WentOnline returns the record to write when an attendant comes online.
func WentOnline(prev *models.AttendantAvailability, userID string, now time.Time, defaultMax int) *models.AttendantAvailability {
	if prev == nil {
		return &models.AttendantAvailability{
			UserID:             userID,
			IsOnline:           true,
			MaxConcurrentChats: defaultMax,
			LastSeen:           now,
		}
	}
	next := *prev
	next.IsOnline = true
	next.LastSeen = now
	return &next
}

// WentOffline returns the record to write when an attendant goes offline. The session
// counter is reset with it.
func WentOffline(prev *models.AttendantAvailability, userID string, now time.Time, defaultMax int) *models.AttendantAvailability {
	next := WentOnline(prev, userID, now, defaultMax)
	next.IsOnline = false
	next.CurrentChats = 0
	return next
}
