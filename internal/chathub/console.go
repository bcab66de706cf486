package chathub

import (
	"context"
	"log"
	"sync"
	"time"

	"livechat/backend/internal/events"
	"livechat/backend/internal/models"
	"livechat/backend/internal/realtime"
	"livechat/backend/internal/storage"
)

// Backend is the persistence the console reads and writes directly.
type Backend interface {
	GetSession(ctx context.Context, id string) (*models.ChatSession, error)
	ListSessionsForAttendant(ctx context.Context, attendantID string) ([]models.ChatSession, error)
	UpdateSession(ctx context.Context, id string, upd storage.SessionUpdate) (*models.ChatSession, error)
	ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	MarkMessagesRead(ctx context.Context, sessionID string, senders []models.SenderType) (int64, error)
	GetAvailability(ctx context.Context, userID string) (*models.AttendantAvailability, error)
	UpsertAvailability(ctx context.Context, avail *models.AttendantAvailability) error
}

// Functions are the server-side operations the console delegates to.
type Functions interface {
	Intake(ctx context.Context, req models.IntakeRequest) (*models.IntakeResponse, error)
	ProcessMessage(ctx context.Context, req models.MessageRequest) (*models.MessageResponse, error)
}

// ChangeKind tells console listeners which part of the store changed.
type ChangeKind string

const (
	ChangeSessions ChangeKind = "sessions"
	ChangeMessages ChangeKind = "messages"
)

type Change struct {
	Kind      ChangeKind
	SessionID string
}

// ConsoleDeps are the collaborators shared by every console.
type ConsoleDeps struct {
	Backend   Backend
	Functions Functions
	Feed      realtime.ChangeFeed
	Events    events.Sink
	Now       func() time.Time
	// DefaultMaxChats seeds the capacity of a presence record created by the console.
	DefaultMaxChats int
}

// Console is the attendant-side chat service: the lifecycle operations, the presence
// bookkeeping that goes with them, and the ingest of change events into its Store.
type Console struct {
	attendantID string
	deps        ConsoleDeps
	notifier    Notifier
	store       *Store

	mu      sync.Mutex
	cancel  context.CancelFunc
	subs    []realtime.Subscription
	channel string
	wg      sync.WaitGroup

	listenersMu sync.RWMutex
	listeners   []func(Change)
}

func NewConsole(attendantID string, deps ConsoleDeps, notifier Notifier) *Console {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Console{
		attendantID: attendantID,
		deps:        deps,
		notifier:    notifier,
		store:       NewStore(),
	}
}

func (c *Console) AttendantID() string { return c.attendantID }
func (c *Console) Store() *Store       { return c.store }

// OnChange registers fn to be called after the store changed.
func (c *Console) OnChange(fn func(Change)) {
	c.listenersMu.Lock()
	c.listeners = append(c.listeners, fn)
	c.listenersMu.Unlock()
}

func (c *Console) changed(kind ChangeKind, sessionID string) {
	c.listenersMu.RLock()
	listeners := c.listeners
	c.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(Change{Kind: kind, SessionID: sessionID})
	}
}

func (c *Console) fail(sessionID string, err error) error {
	log.Printf("ERROR: %v", err)
	c.notifier.Notify(Notification{Kind: NotifyError, SessionID: sessionID, Err: err})
	return err
}

func (c *Console) emit(ctx context.Context, ev events.Event) {
	ev.OccurredAt = c.deps.Now().UTC()
	if err := c.deps.Events.Emit(ctx, ev); err != nil {
		log.Printf("WARN: Failed to emit %s for session %s: %v", ev.Type, ev.SessionID, err)
	}
}

// lookup prefers the local copy and falls back to the backend for sessions the console
// has not loaded.
func (c *Console) lookup(ctx context.Context, id string) (*models.ChatSession, error) {
	if s, ok := c.store.Session(id); ok {
		return &s, nil
	}
	return c.deps.Backend.GetSession(ctx, id)
}

// ownedByOther reports whether s is active under an attendant other than the console's.
func (c *Console) ownedByOther(s *models.ChatSession) bool {
	return s.Status == models.StatusActive && s.AttendantID != nil && *s.AttendantID != c.attendantID
}

// visible reports whether the console shows s: waiting sessions and its own.
func (c *Console) visible(s models.ChatSession) bool {
	return s.Status == models.StatusWaiting || (s.AttendantID != nil && *s.AttendantID == c.attendantID)
}

// CreateSession runs the intake function for a lead and returns the new waiting session
// with its ticket protocol.
func (c *Console) CreateSession(ctx context.Context, lead models.LeadInfo, tenantID *string) (*models.SessionWithProtocol, error) {
	resp, err := c.deps.Functions.Intake(ctx, models.IntakeRequest{LeadData: lead, TenantID: tenantID})
	if err != nil {
		return nil, c.fail("", &IntakeError{Err: err})
	}
	if resp == nil {
		return nil, c.fail("", &IntakeError{Err: ErrEmptyResponse})
	}
	return &resp.Session, nil
}

// AcceptSession moves a waiting session to active and assigns it to attendantID.
func (c *Console) AcceptSession(ctx context.Context, sessionID, attendantID string) (*models.ChatSession, error) {
	session, err := c.lookup(ctx, sessionID)
	if err != nil {
		return nil, c.fail(sessionID, &AcceptError{SessionID: sessionID, Err: err})
	}
	if session.Status != models.StatusWaiting {
		return nil, c.fail(sessionID, &AcceptError{SessionID: sessionID, Err: ErrInvalidTransition})
	}

	// Read before the session write; the increment below is based on this value.
	avail, err := c.deps.Backend.GetAvailability(ctx, attendantID)
	if err != nil {
		log.Printf("WARN: Could not read availability of %s: %v", attendantID, err)
		avail = nil
	}
	if err := CanAccept(avail); err != nil {
		return nil, c.fail(sessionID, &AcceptError{SessionID: sessionID, Err: err})
	}

	status := models.StatusActive
	updated, err := c.deps.Backend.UpdateSession(ctx, sessionID, storage.SessionUpdate{
		Status:      &status,
		AttendantID: &attendantID,
	})
	if err != nil {
		return nil, c.fail(sessionID, &AcceptError{SessionID: sessionID, Err: err})
	}

	c.store.ApplySessionChange(*updated)
	c.writeAvailability(ctx, Incremented(avail, attendantID, c.deps.Now(), c.deps.DefaultMaxChats))
	c.emit(ctx, events.Event{
		Type:        events.SessionAccepted,
		SessionID:   updated.ID,
		LeadID:      updated.LeadID,
		TenantID:    updated.TenantID,
		AttendantID: updated.AttendantID,
		Status:      string(updated.Status),
	})
	c.changed(ChangeSessions, sessionID)
	return updated, nil
}

// EndSession closes a waiting or active session with status ended (the default) or
// abandoned. Ending an active session frees one slot of its attendant.
func (c *Console) EndSession(ctx context.Context, sessionID string, notes *string, status models.SessionStatus) (*models.ChatSession, error) {
	if status == "" {
		status = models.StatusEnded
	}
	if !status.IsTerminal() {
		return nil, c.fail(sessionID, &EndError{SessionID: sessionID, Err: ErrInvalidEndStatus})
	}

	session, err := c.lookup(ctx, sessionID)
	if err != nil {
		return nil, c.fail(sessionID, &EndError{SessionID: sessionID, Err: err})
	}
	if session.Status.IsTerminal() {
		return nil, c.fail(sessionID, &EndError{SessionID: sessionID, Err: ErrInvalidTransition})
	}
	if c.ownedByOther(session) {
		return nil, c.fail(sessionID, &EndError{SessionID: sessionID, Err: ErrNotAssigned})
	}

	endedAt := c.deps.Now().UTC()
	updated, err := c.deps.Backend.UpdateSession(ctx, sessionID, storage.SessionUpdate{
		Status:  &status,
		EndedAt: &endedAt,
		Notes:   notes,
	})
	if err != nil {
		return nil, c.fail(sessionID, &EndError{SessionID: sessionID, Err: err})
	}
	c.store.ApplySessionChange(*updated)

	if session.Status == models.StatusActive && session.AttendantID != nil {
		c.releaseSlot(ctx, *session.AttendantID)
	}

	c.emit(ctx, events.Event{
		Type:        events.SessionEnded,
		SessionID:   updated.ID,
		LeadID:      updated.LeadID,
		TenantID:    updated.TenantID,
		AttendantID: updated.AttendantID,
		Status:      string(updated.Status),
	})
	c.changed(ChangeSessions, sessionID)
	return updated, nil
}

func (c *Console) releaseSlot(ctx context.Context, attendantID string) {
	avail, err := c.deps.Backend.GetAvailability(ctx, attendantID)
	if err != nil {
		log.Printf("WARN: Could not read availability of %s: %v", attendantID, err)
		return
	}
	if avail == nil {
		return
	}
	c.writeAvailability(ctx, Decremented(avail, c.deps.Now()))
}

func (c *Console) writeAvailability(ctx context.Context, avail *models.AttendantAvailability) bool {
	if err := c.deps.Backend.UpsertAvailability(ctx, avail); err != nil {
		log.Printf("ERROR: Failed to update availability of %s: %v", avail.UserID, err)
		return false
	}
	return true
}

// SendMessage sends text into a session through the message function. Attendant messages
// are stamped with the console's attendant id and refused on another attendant's active
// session.
func (c *Console) SendMessage(ctx context.Context, sessionID, text string, sender models.SenderType, tenantID *string) (*models.ChatMessage, error) {
	data := models.SendMessageData{
		SessionID:  sessionID,
		Message:    text,
		SenderType: sender,
		TenantID:   tenantID,
	}
	if sender == models.SenderAttendant {
		session, err := c.lookup(ctx, sessionID)
		if err != nil {
			return nil, c.fail(sessionID, &SendError{SessionID: sessionID, Err: err})
		}
		if c.ownedByOther(session) {
			return nil, c.fail(sessionID, &SendError{SessionID: sessionID, Err: ErrNotAssigned})
		}
		id := c.attendantID
		data.SenderID = &id
	}

	resp, err := c.deps.Functions.ProcessMessage(ctx, models.MessageRequest{Action: models.ActionSendMessage, Data: data})
	if err != nil {
		return nil, c.fail(sessionID, &SendError{SessionID: sessionID, Err: err})
	}
	if resp == nil {
		return nil, c.fail(sessionID, &SendError{SessionID: sessionID, Err: ErrEmptyResponse})
	}
	if !resp.Success {
		return nil, c.fail(sessionID, &SendError{SessionID: sessionID, Reason: resp.Error, Err: ErrSendRejected})
	}

	c.notifier.Notify(Notification{Kind: NotifyMessageSent, SessionID: sessionID})
	if resp.Message != nil && c.store.ApplyMessage(*resp.Message) {
		c.changed(ChangeMessages, sessionID)
	}
	return resp.Message, nil
}

// MarkMessagesAsRead flags the lead and bot messages of a session as read. Failures are
// logged only.
func (c *Console) MarkMessagesAsRead(ctx context.Context, sessionID string) {
	senders := []models.SenderType{models.SenderLead, models.SenderBot}
	if _, err := c.deps.Backend.MarkMessagesRead(ctx, sessionID, senders); err != nil {
		log.Printf("WARN: Failed to mark messages of session %s as read: %v", sessionID, err)
		return
	}
	if c.store.MarkRead(sessionID, senders) > 0 {
		c.changed(ChangeMessages, sessionID)
	}
}

// UpdateAvailability sets the attendant's online flag and returns the written record, or
// nil when the write failed. Going offline resets the session counter.
func (c *Console) UpdateAvailability(ctx context.Context, isOnline bool) *models.AttendantAvailability {
	prev, err := c.deps.Backend.GetAvailability(ctx, c.attendantID)
	if err != nil {
		log.Printf("WARN: Could not read availability of %s: %v", c.attendantID, err)
		prev = nil
	}

	now := c.deps.Now()
	next := WentOnline(prev, c.attendantID, now, c.deps.DefaultMaxChats)
	if !isOnline {
		next = WentOffline(prev, c.attendantID, now, c.deps.DefaultMaxChats)
	}
	if !c.writeAvailability(ctx, next) {
		return nil
	}
	return next
}

// Refresh reloads the attendant's sessions (assigned to it or still waiting).
func (c *Console) Refresh(ctx context.Context) error {
	sessions, err := c.deps.Backend.ListSessionsForAttendant(ctx, c.attendantID)
	if err != nil {
		log.Printf("ERROR: Failed to load sessions for %s: %v", c.attendantID, err)
		return err
	}
	c.store.ReplaceSessions(sessions)
	c.changed(ChangeSessions, "")
	return nil
}

// LoadMessages reloads the message list of one session.
func (c *Console) LoadMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	msgs, err := c.deps.Backend.ListMessages(ctx, sessionID)
	if err != nil {
		log.Printf("ERROR: Failed to load messages of session %s: %v", sessionID, err)
		return nil, err
	}
	c.store.ReplaceMessages(sessionID, msgs)
	c.changed(ChangeMessages, sessionID)
	return c.store.ListMessages(sessionID), nil
}

// IsOwnMessage reports whether msg was written by the viewer. An attendant viewer owns
// the attendant messages carrying its id; the lead viewer (empty attendantID) owns lead
// messages without a sender id.
func IsOwnMessage(msg models.ChatMessage, attendantID string) bool {
	if attendantID != "" {
		return msg.SenderType == models.SenderAttendant && msg.SenderID != nil && *msg.SenderID == attendantID
	}
	return msg.SenderType == models.SenderLead && msg.SenderID == nil
}
