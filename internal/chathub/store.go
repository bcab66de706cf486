package chathub

import (
	"slices"
	"sort"
	"sync"
	"time"

	"livechat/backend/internal/models"
)

// Store is the in-memory working set of one console: the attendant's sessions and the
// message lists of the sessions it has loaded. It is safe for concurrent use; every
// accessor returns copies.
type Store struct {
	mu       sync.RWMutex
	sessions []models.ChatSession
	messages map[string][]models.ChatMessage
}

func NewStore() *Store {
	return &Store{messages: make(map[string][]models.ChatMessage)}
}

// ListSessions returns the sessions ordered by StartedAt, newest first.
func (s *Store) ListSessions() []models.ChatSession {
	s.mu.RLock()
	out := slices.Clone(s.sessions)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// Session returns the session with the given id, if known.
func (s *Store) Session(id string) (models.ChatSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess, true
		}
	}
	return models.ChatSession{}, false
}

// ReplaceSessions swaps the whole session list.
func (s *Store) ReplaceSessions(sessions []models.ChatSession) {
	s.mu.Lock()
	s.sessions = slices.Clone(sessions)
	s.mu.Unlock()
}

// ApplySessionChange inserts or replaces one session by id.
func (s *Store) ApplySessionChange(session models.ChatSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.sessions {
		if s.sessions[i].ID == session.ID {
			s.sessions[i] = session
			return
		}
	}
	s.sessions = append(s.sessions, session)
}

// ListMessages returns the messages of a session ordered by Timestamp ascending.
func (s *Store) ListMessages(sessionID string) []models.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.messages[sessionID])
}

// ReplaceMessages swaps the message list of one session.
func (s *Store) ReplaceMessages(sessionID string, msgs []models.ChatMessage) {
	list := slices.Clone(msgs)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Timestamp.Before(list[j].Timestamp)
	})

	s.mu.Lock()
	s.messages[sessionID] = list
	s.mu.Unlock()
}

// ApplyMessage inserts msg into its session's list keeping timestamp order. A message
// whose id is already present is ignored; the return value reports whether msg was new.
func (s *Store) ApplyMessage(msg models.ChatMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.messages[msg.SessionID]
	for _, m := range list {
		if m.ID == msg.ID {
			return false
		}
	}

	// Equal timestamps keep arrival order.
	idx := sort.Search(len(list), func(i int) bool {
		return list[i].Timestamp.After(msg.Timestamp)
	})
	list = slices.Insert(list, idx, msg)
	s.messages[msg.SessionID] = list
	return true
}

// MarkRead flags the loaded messages of the given senders as read and returns how many
// changed.
func (s *Store) MarkRead(sessionID string, senders []models.SenderType) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	list := s.messages[sessionID]
	for i := range list {
		if !list[i].ReadStatus && slices.Contains(senders, list[i].SenderType) {
			list[i].ReadStatus = true
			n++
		}
	}
	return n
}

// LastAttendantMessageAt returns the timestamp of the newest attendant message of a
// loaded session, or the zero time.
func (s *Store) LastAttendantMessageAt(sessionID string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last time.Time
	for _, m := range s.messages[sessionID] {
		if m.SenderType == models.SenderAttendant && m.Timestamp.After(last) {
			last = m.Timestamp
		}
	}
	return last
}

// Reset drops everything.
func (s *Store) Reset() {
	s.mu.Lock()
	s.sessions = nil
	s.messages = make(map[string][]models.ChatMessage)
	s.mu.Unlock()
}
