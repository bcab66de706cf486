package chathub

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"livechat/backend/internal/config"
	"livechat/backend/internal/models"
	"livechat/backend/internal/timeout"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// A send command carries up to MaxMessageLength runes of text.
	maxMessageSize = 32 << 10
	sendBufferSize = 64
)

// Frame types written to the attendant.
const (
	FrameSnapshot     = "snapshot"
	FrameMessages     = "messages"
	FrameNotification = "notification"
	FrameTimeout      = "timeout"
	FrameAck          = "ack"
	FrameError        = "error"
)

// Command types read from the attendant.
const (
	CommandAccept       = "accept"
	CommandEnd          = "end"
	CommandSend         = "send"
	CommandRead         = "read"
	CommandAvailability = "availability"
	CommandLoad         = "load"
	CommandRefresh      = "refresh"
)

// Translator resolves notification texts.
type Translator interface {
	GetString(lang, key string) string
}

type NotificationFrame struct {
	Kind  NotificationKind `json:"kind"`
	Sound string           `json:"sound,omitempty"`
	Text  string           `json:"text,omitempty"`
}

// Frame is one server-to-attendant WebSocket message.
type Frame struct {
	Type         string                        `json:"type"`
	RequestID    string                        `json:"request_id,omitempty"`
	SessionID    string                        `json:"session_id,omitempty"`
	Sessions     []models.ChatSession          `json:"sessions,omitempty"`
	Session      *models.ChatSession           `json:"session,omitempty"`
	Messages     []models.ChatMessage          `json:"messages,omitempty"`
	Message      *models.ChatMessage           `json:"message,omitempty"`
	Availability *models.AttendantAvailability `json:"availability,omitempty"`
	Notification *NotificationFrame            `json:"notification,omitempty"`
	Timeout      *timeout.Status               `json:"timeout,omitempty"`
	Error        string                        `json:"error,omitempty"`
}

// Command is one attendant-to-server WebSocket message.
type Command struct {
	Type      string               `json:"type"`
	RequestID string               `json:"request_id,omitempty"`
	SessionID string               `json:"session_id,omitempty"`
	Text      string               `json:"text,omitempty"`
	Notes     *string              `json:"notes,omitempty"`
	Status    models.SessionStatus `json:"status,omitempty"`
	Online    *bool                `json:"online,omitempty"`
	TenantID  *string              `json:"tenant_id,omitempty"`
}

// WebSocketClient connects one attendant browser to its Console. Commands are executed
// concurrently, each in its own goroutine, in the order they arrive.
type WebSocketClient struct {
	UserID string
	Conn   *websocket.Conn
	Hub    *Manager
	Send   chan Frame

	console    *Console
	translator Translator
	lang       string

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	watchersMu sync.Mutex
	watchers   map[string]*timeout.Watcher
	loaded     map[string]bool
}

func NewWebSocketClient(hub *Manager, userID string, conn *websocket.Conn, translator Translator, lang string) *WebSocketClient {
	ctx, cancel := context.WithCancel(context.Background())
	c := &WebSocketClient{
		UserID:     userID,
		Conn:       conn,
		Hub:        hub,
		Send:       make(chan Frame, sendBufferSize),
		translator: translator,
		lang:       lang,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		watchers:   make(map[string]*timeout.Watcher),
		loaded:     make(map[string]bool),
	}
	c.console = hub.NewConsole(userID, NotifierFunc(c.notify))
	c.console.OnChange(c.onChange)
	return c
}

func (c *WebSocketClient) GetUserID() string { return c.UserID }
func (c *WebSocketClient) Console() *Console { return c.console }

// Run starts the pumps, the console subscriptions and the timeout ticker.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
	go func() {
		if err := c.console.Start(c.ctx); err != nil {
			c.push(Frame{Type: FrameError, Error: err.Error()})
		}
	}()
	go c.watchTimeouts()
}

func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.done)
		c.console.Stop()
	})
}

// push queues a frame without blocking. A client whose buffer is full is disconnected.
func (c *WebSocketClient) push(f Frame) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.Send <- f:
	default:
		log.Printf("WARN: Send buffer full for attendant %s, disconnecting", c.UserID)
		go c.Hub.Unregister(c)
	}
}

func (c *WebSocketClient) notify(n Notification) {
	frame := &NotificationFrame{Kind: n.Kind, Sound: n.Kind.Sound()}
	if c.translator != nil {
		frame.Text = c.translator.GetString(c.lang, "notify_"+string(n.Kind))
	}
	f := Frame{Type: FrameNotification, SessionID: n.SessionID, Notification: frame}
	if n.Err != nil {
		f.Error = n.Err.Error()
	}
	c.push(f)
}

func (c *WebSocketClient) onChange(ch Change) {
	switch ch.Kind {
	case ChangeSessions:
		c.push(Frame{Type: FrameSnapshot, Sessions: c.console.Store().ListSessions()})
	case ChangeMessages:
		c.push(Frame{Type: FrameMessages, SessionID: ch.SessionID, Messages: c.console.Store().ListMessages(ch.SessionID)})
	}
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error reading message: %v", err)
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			log.Printf("Error decoding command from attendant %s: %v", c.UserID, err)
			c.push(Frame{Type: FrameError, Error: "invalid command"})
			continue
		}
		go c.handleCommand(cmd)
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case frame := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteJSON(frame); err != nil {
				log.Printf("Error writing frame to attendant %s: %v", c.UserID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleCommand runs one command against the console and answers with an ack frame.
// Failures have already been reported through the notifier.
func (c *WebSocketClient) handleCommand(cmd Command) {
	ctx := c.ctx
	ack := Frame{Type: FrameAck, RequestID: cmd.RequestID, SessionID: cmd.SessionID}
	var err error

	switch cmd.Type {
	case CommandAccept:
		ack.Session, err = c.console.AcceptSession(ctx, cmd.SessionID, c.UserID)
	case CommandEnd:
		ack.Session, err = c.console.EndSession(ctx, cmd.SessionID, cmd.Notes, cmd.Status)
	case CommandSend:
		ack.Message, err = c.console.SendMessage(ctx, cmd.SessionID, cmd.Text, models.SenderAttendant, cmd.TenantID)
	case CommandRead:
		c.console.MarkMessagesAsRead(ctx, cmd.SessionID)
	case CommandAvailability:
		if cmd.Online == nil {
			ack.Type, ack.Error = FrameError, "online is required"
			break
		}
		ack.Availability = c.console.UpdateAvailability(ctx, *cmd.Online)
	case CommandLoad:
		ack.Messages, err = c.console.LoadMessages(ctx, cmd.SessionID)
	case CommandRefresh:
		err = c.console.Refresh(ctx)
	default:
		ack.Type, ack.Error = FrameError, "unknown command "+cmd.Type
	}

	if err != nil {
		ack.Error = err.Error()
	}
	c.push(ack)
}

// watchTimeouts keeps one timeout watcher per active session of the attendant and pushes
// a timeout frame whenever a session's banner state changes.
func (c *WebSocketClient) watchTimeouts() {
	ticker := time.NewTicker(config.TimeoutTickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case now := <-ticker.C:
			c.tickTimeouts(now)
		}
	}
}

func (c *WebSocketClient) tickTimeouts(now time.Time) {
	store := c.console.Store()
	active := make(map[string]bool)

	for _, s := range store.ListSessions() {
		if s.Status != models.StatusActive || s.AttendantID == nil || *s.AttendantID != c.UserID {
			continue
		}
		active[s.ID] = true
		w, needsLoad := c.watcher(s.ID)
		if needsLoad {
			go func(id string) {
				if _, err := c.console.LoadMessages(c.ctx, id); err != nil {
					log.Printf("WARN: Could not load messages of session %s: %v", id, err)
				}
			}(s.ID)
		}
		w.Reset(store.LastAttendantMessageAt(s.ID))
		w.Tick(now)
	}

	c.watchersMu.Lock()
	for id := range c.watchers {
		if !active[id] {
			delete(c.watchers, id)
			delete(c.loaded, id)
		}
	}
	c.watchersMu.Unlock()
}

func (c *WebSocketClient) watcher(sessionID string) (*timeout.Watcher, bool) {
	c.watchersMu.Lock()
	defer c.watchersMu.Unlock()

	if w, ok := c.watchers[sessionID]; ok {
		return w, false
	}
	onChange := func(st timeout.Status) {
		c.push(Frame{Type: FrameTimeout, SessionID: sessionID, Timeout: &st})
	}
	w := timeout.NewWatcher(func(timeout.Status) {
		log.Printf("Session %s reached the response timeout", sessionID)
	}, onChange)
	c.watchers[sessionID] = w
	needsLoad := !c.loaded[sessionID]
	c.loaded[sessionID] = true
	return w, needsLoad
}
