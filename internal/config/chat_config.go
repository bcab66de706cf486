package config

import "time"

const (
	// Timeout warning breakpoints, measured from the last attendant message.
	AttendedWindow    = 30 * time.Second
	WarningAfter      = 120 * time.Second
	UrgentAfter       = 240 * time.Second
	TimeoutAfter      = 300 * time.Second
	TimeoutTickPeriod = time.Second

	// Capacity
	DefaultMaxConcurrentChats = 5

	// Lead-side resume cache
	ResumeCacheTTL = 24 * time.Hour

	// Messages
	MaxMessageLength = 4000

	// Waiting sessions nobody accepted are abandoned after this long.
	DefaultWaitingAbandonAfter = 15 * time.Minute

	// Attendant tokens
	AttendantTokenTTL = 12 * time.Hour
	TokenIssuer       = "livechat-service"
)
