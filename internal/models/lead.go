package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Lead is a CRM contact. The chat subsystem only creates leads from the widget and
// reads them to enrich the attendant dashboard.
type Lead struct {
	ID        string         `gorm:"primaryKey;type:uuid" json:"id"`
	TenantID  *string        `gorm:"index:idx_lead_tenant_email" json:"tenant_id,omitempty"`
	Name      string         `gorm:"not null" json:"name"`
	Email     string         `gorm:"not null;index:idx_lead_tenant_email" json:"email"`
	Phone     *string        `json:"phone,omitempty"`
	Source    string         `gorm:"type:varchar(32)" json:"source"`
	Tags      pq.StringArray `gorm:"type:text[]" json:"tags"`
	CreatedAt time.Time      `json:"created_at"`
}

func (Lead) TableName() string {
	return "leads"
}

// BeforeCreate generates a UUID for the lead if ID is not set yet.
func (l *Lead) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return
}

type TicketStatus string

const (
	TicketOpen   TicketStatus = "open"
	TicketClosed TicketStatus = "closed"
)

// SupportTicket is opened together with every chat session. Its Protocol is the number
// the lead is told to quote when contacting the agency again.
type SupportTicket struct {
	ID        string         `gorm:"primaryKey;type:uuid" json:"id"`
	Protocol  string         `gorm:"type:varchar(32);uniqueIndex;not null" json:"protocol"`
	SessionID string         `gorm:"type:uuid;index" json:"session_id"`
	LeadID    string         `gorm:"type:uuid;index" json:"lead_id"`
	TenantID  *string        `gorm:"index" json:"tenant_id,omitempty"`
	Subject   *string        `json:"subject,omitempty"`
	Status    TicketStatus   `gorm:"type:varchar(16);not null" json:"status"`
	LeadData  datatypes.JSON `json:"lead_data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func (SupportTicket) TableName() string {
	return "support_tickets"
}

func (t *SupportTicket) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = TicketOpen
	}
	return
}
