package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"livechat/backend/internal/models"
	"livechat/backend/internal/realtime"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	ErrSessionNotFound = errors.New("chat session not found")
	ErrLeadInvalid     = errors.New("lead name and email are required")
	// ErrStatusChanged is returned by UpdateSessionFrom when the session left the expected
	// status before the write.
	ErrStatusChanged = errors.New("chat session status changed")
)

type Storage interface {
	CreateIntake(ctx context.Context, lead *models.Lead, session *models.ChatSession, ticket *models.SupportTicket) error
	GetSession(ctx context.Context, id string) (*models.ChatSession, error)
	ListSessionsForAttendant(ctx context.Context, attendantID string) ([]models.ChatSession, error)
	ListWaitingSessions(ctx context.Context, startedBefore time.Time) ([]models.ChatSession, error)
	CountWaitingSessions(ctx context.Context) (int64, error)
	UpdateSession(ctx context.Context, id string, upd SessionUpdate) (*models.ChatSession, error)
	UpdateSessionFrom(ctx context.Context, id string, from models.SessionStatus, upd SessionUpdate) (*models.ChatSession, error)

	SaveMessage(ctx context.Context, msg *models.ChatMessage) error
	ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	MarkMessagesRead(ctx context.Context, sessionID string, senders []models.SenderType) (int64, error)
	LastAttendantMessageAt(ctx context.Context, sessionID string) (time.Time, error)

	GetAvailability(ctx context.Context, userID string) (*models.AttendantAvailability, error)
	UpsertAvailability(ctx context.Context, avail *models.AttendantAvailability) error

	SaveResume(ctx context.Context, visitorID string, entry ResumeEntry) error
	GetResume(ctx context.Context, visitorID string) (*ResumeEntry, error)
	IsChatEnabled(ctx context.Context, tenantID string) (bool, error)
	SetChatEnabled(ctx context.Context, tenantID string, enabled bool) error
}

type Service struct {
	DB        *gorm.DB
	Redis     *redis.Client
	Publisher realtime.Publisher
	Now       func() time.Time
}

var _ Storage = (*Service)(nil)

// NewStorageService Constructor. publisher may be nil when change events come from the
// database triggers instead of the application.
func NewStorageService(db *gorm.DB, rdb *redis.Client, publisher realtime.Publisher) *Service {
	return &Service{
		DB:        db,
		Redis:     rdb,
		Publisher: publisher,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// Migrate creates the chat tables. withTriggers also installs the NOTIFY triggers used by
// the postgres change feed.
func Migrate(db *gorm.DB, withTriggers bool) error {
	err := db.AutoMigrate(
		&models.Lead{},
		&models.SupportTicket{},
		&models.ChatSession{},
		&models.ChatMessage{},
		&models.AttendantAvailability{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if withTriggers {
		if err := db.Exec(realtime.TriggerSQL).Error; err != nil {
			return fmt.Errorf("install change triggers: %w", err)
		}
	}
	return nil
}

// publish emits a change event for a committed write. Failures are logged only: the row
// is already stored and subscribers recover with a refetch.
func (s *Service) publish(ctx context.Context, table string, kind models.EventKind, row any) {
	if s.Publisher == nil {
		return
	}
	ev, err := models.NewChangeEvent(table, kind, row)
	if err != nil {
		log.Printf("ERROR: %v", err)
		return
	}
	if err := s.Publisher.Publish(ctx, ev); err != nil {
		log.Printf("ERROR: Failed to publish %s %s event: %v", table, kind, err)
	}
}

// CreateIntake stores a new conversation: it finds or creates the lead by tenant and
// email, then creates the session and its support ticket in one transaction.
func (s *Service) CreateIntake(ctx context.Context, lead *models.Lead, session *models.ChatSession, ticket *models.SupportTicket) error {
	if lead.Name == "" || lead.Email == "" {
		return ErrLeadInvalid
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("email = ?", lead.Email)
		if lead.TenantID != nil {
			q = q.Where("tenant_id = ?", *lead.TenantID)
		} else {
			q = q.Where("tenant_id IS NULL")
		}
		result := q.FirstOrCreate(lead)
		if result.Error != nil {
			return fmt.Errorf("find or create lead: %w", result.Error)
		}
		if result.RowsAffected > 0 {
			log.Printf("INFO: New lead %s created from chat widget.", lead.ID)
		}

		session.LeadID = lead.ID
		if err := tx.Create(session).Error; err != nil {
			return fmt.Errorf("create session: %w", err)
		}

		ticket.SessionID = session.ID
		ticket.LeadID = lead.ID
		if err := tx.Create(ticket).Error; err != nil {
			return fmt.Errorf("create ticket: %w", err)
		}

		session.TicketID = &ticket.ID
		if err := tx.Model(session).Update("ticket_id", ticket.ID).Error; err != nil {
			return fmt.Errorf("link ticket: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Printf("ERROR: Failed to store chat intake for %s: %v", lead.Email, err)
		return err
	}

	session.Lead = lead
	session.Ticket = ticket
	s.publish(ctx, models.TableSessions, models.EventInsert, session)
	return nil
}

func (s *Service) GetSession(ctx context.Context, id string) (*models.ChatSession, error) {
	var session models.ChatSession
	err := s.DB.WithContext(ctx).Preload("Lead").Preload("Ticket").
		Where("id = ?", id).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		log.Printf("ERROR: Failed to get session %s: %v", id, err)
		return nil, err
	}
	return &session, nil
}

// ListSessionsForAttendant returns the sessions an attendant's dashboard shows: every
// waiting session plus the attendant's own, newest first.
func (s *Service) ListSessionsForAttendant(ctx context.Context, attendantID string) ([]models.ChatSession, error) {
	var sessions []models.ChatSession
	err := s.DB.WithContext(ctx).Preload("Lead").Preload("Ticket").
		Where("status = ? OR attendant_id = ?", string(models.StatusWaiting), attendantID).
		Order("started_at desc").
		Find(&sessions).Error
	if err != nil {
		log.Printf("ERROR: Failed to list sessions for %s: %v", attendantID, err)
		return nil, err
	}
	return sessions, nil
}

// ListWaitingSessions returns waiting sessions started before the cutoff, oldest first.
func (s *Service) ListWaitingSessions(ctx context.Context, startedBefore time.Time) ([]models.ChatSession, error) {
	var sessions []models.ChatSession
	err := s.DB.WithContext(ctx).
		Where("status = ? AND started_at < ?", string(models.StatusWaiting), startedBefore).
		Order("started_at asc").
		Find(&sessions).Error
	return sessions, err
}

func (s *Service) CountWaitingSessions(ctx context.Context) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.ChatSession{}).
		Where("status = ?", string(models.StatusWaiting)).
		Count(&n).Error
	return n, err
}

// UpdateSession applies upd without any version check: the last write wins.
func (s *Service) UpdateSession(ctx context.Context, id string, upd SessionUpdate) (*models.ChatSession, error) {
	return s.updateSession(ctx, id, nil, upd)
}

// UpdateSessionFrom applies upd only while the session is still in status from. It
// returns ErrStatusChanged when another write moved the session first.
func (s *Service) UpdateSessionFrom(ctx context.Context, id string, from models.SessionStatus, upd SessionUpdate) (*models.ChatSession, error) {
	return s.updateSession(ctx, id, &from, upd)
}

func (s *Service) updateSession(ctx context.Context, id string, from *models.SessionStatus, upd SessionUpdate) (*models.ChatSession, error) {
	columns := upd.Columns()
	if len(columns) == 0 {
		return s.GetSession(ctx, id)
	}

	q := s.DB.WithContext(ctx).Model(&models.ChatSession{}).Where("id = ?", id)
	if from != nil {
		q = q.Where("status = ?", string(*from))
	}
	result := q.Updates(columns)
	if result.Error != nil {
		log.Printf("ERROR: Failed to update session %s: %v", id, result.Error)
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		if from == nil {
			return nil, ErrSessionNotFound
		}
		if _, err := s.GetSession(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrStatusChanged
	}

	session, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, models.TableSessions, models.EventUpdate, session)
	return session, nil
}
