package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Table names carried by change events.
const (
	TableSessions     = "chat_sessions"
	TableMessages     = "chat_messages"
	TableAvailability = "attendant_availability"
)

// EventKind is the row-level operation reported by the change feed.
type EventKind string

const (
	EventInsert EventKind = "INSERT"
	EventUpdate EventKind = "UPDATE"
)

// ChangeEvent is one row-level notification delivered by the realtime change feed.
// Record holds the new row as JSON.
type ChangeEvent struct {
	Table           string          `json:"table"`
	Type            EventKind       `json:"type"`
	Record          json.RawMessage `json:"record"`
	CommitTimestamp time.Time       `json:"commit_timestamp"`
}

// NewChangeEvent encodes row into a ChangeEvent.
func NewChangeEvent(table string, kind EventKind, row any) (ChangeEvent, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return ChangeEvent{}, fmt.Errorf("encode %s record: %w", table, err)
	}
	return ChangeEvent{Table: table, Type: kind, Record: raw, CommitTimestamp: time.Now().UTC()}, nil
}

// Session decodes the record as a ChatSession.
func (e ChangeEvent) Session() (*ChatSession, error) {
	var s ChatSession
	if err := json.Unmarshal(e.Record, &s); err != nil {
		return nil, fmt.Errorf("decode session record: %w", err)
	}
	return &s, nil
}

// Message decodes the record as a ChatMessage.
func (e ChangeEvent) Message() (*ChatMessage, error) {
	var m ChatMessage
	if err := json.Unmarshal(e.Record, &m); err != nil {
		return nil, fmt.Errorf("decode message record: %w", err)
	}
	return &m, nil
}
