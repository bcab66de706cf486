// Package intake implements the two server-side chat functions: the lead intake that
// opens a session with its ticket, and the message processor.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"livechat/backend/internal/config"
	"livechat/backend/internal/events"
	"livechat/backend/internal/models"
	"livechat/backend/internal/storage"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
)

var (
	ErrChatDisabled   = errors.New("chat is disabled")
	ErrNameRequired   = errors.New("name is required")
	ErrInvalidEmail   = errors.New("a valid email is required")
	ErrUnknownAction  = errors.New("unknown action")
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = fmt.Errorf("message exceeds %d characters", config.MaxMessageLength)
	ErrInvalidSender  = errors.New("invalid sender type")
	ErrSessionClosed  = errors.New("session is closed")
)

// ValidationError marks input the caller has to fix; the HTTP layer answers 400 for it.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// Scheduler plans the abandonment check of a new waiting session.
type Scheduler interface {
	ScheduleAbandonCheck(ctx context.Context, sessionID string, after time.Duration) error
}

type Service struct {
	Storage      storage.Storage
	Scheduler    Scheduler
	Events       events.Sink
	AbandonAfter time.Duration
	Now          func() time.Time
}

func NewService(s storage.Storage, scheduler Scheduler, sink events.Sink, abandonAfter time.Duration) *Service {
	if sink == nil {
		sink = events.Nop{}
	}
	return &Service{
		Storage:      s,
		Scheduler:    scheduler,
		Events:       sink,
		AbandonAfter: abandonAfter,
		Now:          time.Now,
	}
}

func tenantKey(tenantID *string) string {
	if tenantID == nil {
		return ""
	}
	return *tenantID
}

// Intake validates the lead data and opens a waiting session with its support ticket.
func (s *Service) Intake(ctx context.Context, req models.IntakeRequest) (*models.IntakeResponse, error) {
	enabled, err := s.Storage.IsChatEnabled(ctx, tenantKey(req.TenantID))
	if err != nil {
		log.Printf("WARN: Could not read chat switch, assuming enabled: %v", err)
	} else if !enabled {
		return nil, ErrChatDisabled
	}

	lead, err := validateLead(req.LeadData)
	if err != nil {
		return nil, &ValidationError{Err: err}
	}
	lead.TenantID = req.TenantID

	now := s.Now().UTC()
	subject := trimmed(req.LeadData.Subject)
	session := &models.ChatSession{
		TenantID:  req.TenantID,
		Status:    models.StatusWaiting,
		Subject:   subject,
		StartedAt: now,
	}

	leadData, err := json.Marshal(req.LeadData)
	if err != nil {
		return nil, fmt.Errorf("encode lead data: %w", err)
	}
	ticket := &models.SupportTicket{
		Protocol: NewProtocol(now),
		TenantID: req.TenantID,
		Subject:  subject,
		LeadData: datatypes.JSON(leadData),
	}

	if err := s.Storage.CreateIntake(ctx, lead, session, ticket); err != nil {
		log.Printf("ERROR: Intake failed for %s: %v", lead.Email, err)
		return nil, err
	}

	// The lead's opening message becomes the first message of the conversation.
	if first := trimmed(req.LeadData.Message); first != nil {
		msg := &models.ChatMessage{
			SessionID:  session.ID,
			SenderType: models.SenderLead,
			Message:    truncate(*first, config.MaxMessageLength),
			Timestamp:  now,
		}
		if err := s.Storage.SaveMessage(ctx, msg); err != nil {
			log.Printf("WARN: Could not store opening message of session %s: %v", session.ID, err)
		}
	}

	if s.Scheduler != nil && s.AbandonAfter > 0 {
		if err := s.Scheduler.ScheduleAbandonCheck(ctx, session.ID, s.AbandonAfter); err != nil {
			log.Printf("WARN: Could not schedule abandonment check for session %s: %v", session.ID, err)
		}
	}

	out := models.SessionWithProtocol{ChatSession: *session, TicketProtocol: ticket.Protocol}

	if req.VisitorID != "" {
		s.saveResume(ctx, req.VisitorID, out, now)
	}

	s.emit(ctx, events.Event{
		Type:      events.SessionCreated,
		SessionID: session.ID,
		LeadID:    lead.ID,
		TenantID:  req.TenantID,
		Protocol:  ticket.Protocol,
		Status:    string(session.Status),
	})

	log.Printf("INFO: Session %s opened for lead %s with protocol %s", session.ID, lead.ID, ticket.Protocol)
	return &models.IntakeResponse{Session: out}, nil
}

func (s *Service) saveResume(ctx context.Context, visitorID string, session models.SessionWithProtocol, now time.Time) {
	data, err := json.Marshal(session)
	if err != nil {
		log.Printf("WARN: Could not encode resume entry: %v", err)
		return
	}
	entry := storage.ResumeEntry{SessionID: session.ID, SessionData: data, Timestamp: now}
	if err := s.Storage.SaveResume(ctx, visitorID, entry); err != nil {
		log.Printf("WARN: Could not save resume entry for visitor %s: %v", visitorID, err)
	}
}

// ProcessMessage stores one message. Input problems are answered with Success=false;
// infrastructure failures are returned as errors.
func (s *Service) ProcessMessage(ctx context.Context, req models.MessageRequest) (*models.MessageResponse, error) {
	if req.Action != models.ActionSendMessage {
		return rejected(ErrUnknownAction), nil
	}
	data := req.Data

	text := strings.TrimSpace(data.Message)
	switch {
	case text == "":
		return rejected(ErrEmptyMessage), nil
	case utf8.RuneCountInString(text) > config.MaxMessageLength:
		return rejected(ErrMessageTooLong), nil
	case !data.SenderType.Valid():
		return rejected(ErrInvalidSender), nil
	}

	session, err := s.Storage.GetSession(ctx, data.SessionID)
	if errors.Is(err, storage.ErrSessionNotFound) {
		return rejected(err), nil
	}
	if err != nil {
		return nil, err
	}
	if session.Status.IsTerminal() {
		return rejected(ErrSessionClosed), nil
	}

	msg := &models.ChatMessage{
		SessionID:  session.ID,
		SenderType: data.SenderType,
		SenderID:   data.SenderID,
		Message:    text,
		Timestamp:  s.Now().UTC(),
	}
	if err := s.Storage.SaveMessage(ctx, msg); err != nil {
		log.Printf("ERROR: Failed to save message for session %s: %v", session.ID, err)
		return nil, err
	}

	s.emit(ctx, events.Event{
		Type:        events.MessageSent,
		SessionID:   session.ID,
		LeadID:      session.LeadID,
		TenantID:    session.TenantID,
		AttendantID: session.AttendantID,
		Status:      string(data.SenderType),
	})
	return &models.MessageResponse{Success: true, Message: msg}, nil
}

func (s *Service) emit(ctx context.Context, ev events.Event) {
	ev.OccurredAt = s.Now().UTC()
	if err := s.Events.Emit(ctx, ev); err != nil {
		log.Printf("WARN: Failed to emit %s for session %s: %v", ev.Type, ev.SessionID, err)
	}
}

func rejected(err error) *models.MessageResponse {
	return &models.MessageResponse{Success: false, Error: err.Error()}
}

// validate is shared by the HTTP intake and Console.CreateSession, which does not go
// through gin binding.
var validate = validator.New()

func validateLead(info models.LeadInfo) (*models.Lead, error) {
	name := strings.TrimSpace(info.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	email := strings.TrimSpace(info.Email)
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, ErrInvalidEmail
	}
	return &models.Lead{
		Name:   name,
		Email:  strings.ToLower(email),
		Phone:  trimmed(info.Phone),
		Source: "chat",
		Tags:   []string{"chat"},
	}, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
