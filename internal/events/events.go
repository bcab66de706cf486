// Package events publishes chat lifecycle events to the CRM (lead timeline, reports).
package events

import (
	"context"
	"time"
)

// Event types.
const (
	SessionCreated  = "chat.session_created"
	SessionAccepted = "chat.session_accepted"
	SessionEnded    = "chat.session_ended"
	MessageSent     = "chat.message_sent"
)

// Event is one lifecycle fact about a chat session.
type Event struct {
	Type        string    `json:"type"`
	SessionID   string    `json:"session_id"`
	LeadID      string    `json:"lead_id,omitempty"`
	TenantID    *string   `json:"tenant_id,omitempty"`
	AttendantID *string   `json:"attendant_id,omitempty"`
	Protocol    string    `json:"protocol,omitempty"`
	Status      string    `json:"status,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Sink receives lifecycle events. Emit failures never abort the operation that produced
// the event; callers log them.
type Sink interface {
	Emit(ctx context.Context, ev Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Emit(context.Context, Event) error { return nil }
