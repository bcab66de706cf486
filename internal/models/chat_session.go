package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionStatus is the lifecycle state of a ChatSession.
type SessionStatus string

const (
	StatusWaiting   SessionStatus = "waiting"
	StatusActive    SessionStatus = "active"
	StatusEnded     SessionStatus = "ended"
	StatusAbandoned SessionStatus = "abandoned"
)

// IsTerminal reports whether no further transition is possible from s.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusEnded || s == StatusAbandoned
}

// ChatSession is one lead-to-attendant conversation.
// It is created in the waiting state by the chat intake function, moved to active when
// an attendant accepts it, and closed as ended or abandoned. Sessions are never deleted.
type ChatSession struct {
	// ID is the unique identifier of the session (UUID).
	ID string `gorm:"primaryKey;type:uuid" json:"id"`
	// LeadID references the lead who started the conversation.
	LeadID string `gorm:"type:uuid;not null;index" json:"lead_id"`
	// AttendantID is the user that accepted the session. Nil while waiting.
	AttendantID *string `gorm:"index" json:"attendant_id,omitempty"`
	// TenantID scopes the session to one CRM tenant (agency).
	TenantID *string `gorm:"index" json:"tenant_id,omitempty"`
	// Status is one of waiting, active, ended, abandoned.
	Status SessionStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	// Subject is the optional topic the lead typed in the widget.
	Subject *string `json:"subject,omitempty"`
	// StartedAt is when the lead opened the conversation.
	StartedAt time.Time `gorm:"not null;index" json:"started_at"`
	// EndedAt is set when the session leaves active (or waiting, on abandonment).
	EndedAt *time.Time `json:"ended_at,omitempty"`
	// Notes are the closing notes written by the attendant.
	Notes *string `gorm:"type:text" json:"notes,omitempty"`
	// TicketID references the support ticket opened together with the session.
	TicketID *string `gorm:"type:uuid;index" json:"ticket_id,omitempty"`

	// Display enrichment, loaded with Preload.
	Lead   *Lead          `gorm:"foreignKey:LeadID" json:"lead,omitempty"`
	Ticket *SupportTicket `gorm:"foreignKey:TicketID" json:"ticket,omitempty"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

// BeforeCreate fills ID and StartedAt when the caller left them empty.
func (s *ChatSession) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now().UTC()
	}
	return
}

// SessionWithProtocol is the intake function result: the new session plus the
// human-readable protocol number of its support ticket.
type SessionWithProtocol struct {
	ChatSession
	TicketProtocol string `json:"ticket_protocol"`
}
