package models

import "time"

// AttendantAvailability is the presence record of one attendant.
// CurrentChats is advisory: it is maintained by client-side read-modify-write and is not
// guaranteed to stay within [0, MaxConcurrentChats] under concurrent updates.
type AttendantAvailability struct {
	UserID             string    `gorm:"primaryKey" json:"user_id"`
	IsOnline           bool      `gorm:"not null;default:false" json:"is_online"`
	CurrentChats       int       `gorm:"not null;default:0" json:"current_chats"`
	MaxConcurrentChats int       `gorm:"not null;default:5" json:"max_concurrent_chats"`
	LastSeen           time.Time `json:"last_seen"`
}

func (AttendantAvailability) TableName() string {
	return "attendant_availability"
}
