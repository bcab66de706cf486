package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SenderType identifies which side of the conversation wrote a message.
type SenderType string

const (
	SenderLead      SenderType = "lead"
	SenderAttendant SenderType = "attendant"
	SenderBot       SenderType = "bot"
)

// Valid reports whether t is one of the known sender types.
func (t SenderType) Valid() bool {
	switch t {
	case SenderLead, SenderAttendant, SenderBot:
		return true
	}
	return false
}

// ChatMessage is one append-only message of a ChatSession.
// Messages of a session are ordered by Timestamp ascending.
type ChatMessage struct {
	ID         string     `gorm:"primaryKey;type:uuid" json:"id"`
	SessionID  string     `gorm:"type:uuid;not null;index:idx_session_ts" json:"session_id"`
	SenderType SenderType `gorm:"type:varchar(16);not null" json:"sender_type"`
	SenderID   *string    `json:"sender_id,omitempty"`
	Message    string     `gorm:"type:text;not null" json:"message"`
	Timestamp  time.Time  `gorm:"not null;index:idx_session_ts" json:"timestamp"`
	ReadStatus bool       `gorm:"not null;default:false" json:"read_status"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	return
}
