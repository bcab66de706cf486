package chathub

import "log"

// NotificationKind is a user-facing cue raised by the console.
type NotificationKind string

const (
	NotifyNewChat         NotificationKind = "new_chat"
	NotifyIncomingMessage NotificationKind = "incoming_message"
	NotifyMessageSent     NotificationKind = "message_sent"
	NotifyError           NotificationKind = "error"
)

// Sound is the audio cue a client plays for the notification kind.
func (k NotificationKind) Sound() string {
	switch k {
	case NotifyNewChat:
		return "new-chat"
	case NotifyIncomingMessage:
		return "message-received"
	case NotifyMessageSent:
		return "message-sent"
	}
	return ""
}

type Notification struct {
	Kind      NotificationKind
	SessionID string
	// Err is set for NotifyError.
	Err error
}

// Notifier receives console notifications. Notify must not block.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// LogNotifier writes notifications to the standard logger.
type LogNotifier struct{}

func (LogNotifier) Notify(n Notification) {
	if n.Err != nil {
		log.Printf("WARN: Console notification %s (session %s): %v", n.Kind, n.SessionID, n.Err)
		return
	}
	log.Printf("Console notification %s (session %s)", n.Kind, n.SessionID)
}
