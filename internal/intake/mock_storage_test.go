package intake_test

import (
	"context"
	"time"

	"livechat/backend/internal/events"
	"livechat/backend/internal/models"
	"livechat/backend/internal/storage"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify mock of storage.Storage.
type MockStorage struct {
	mock.Mock
}

var _ storage.Storage = (*MockStorage)(nil)

func (m *MockStorage) CreateIntake(ctx context.Context, lead *models.Lead, session *models.ChatSession, ticket *models.SupportTicket) error {
	args := m.Called(ctx, lead, session, ticket)
	return args.Error(0)
}

func (m *MockStorage) GetSession(ctx context.Context, id string) (*models.ChatSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatSession), args.Error(1)
}

func (m *MockStorage) ListSessionsForAttendant(ctx context.Context, attendantID string) ([]models.ChatSession, error) {
	args := m.Called(ctx, attendantID)
	return args.Get(0).([]models.ChatSession), args.Error(1)
}

func (m *MockStorage) ListWaitingSessions(ctx context.Context, startedBefore time.Time) ([]models.ChatSession, error) {
	args := m.Called(ctx, startedBefore)
	return args.Get(0).([]models.ChatSession), args.Error(1)
}

func (m *MockStorage) CountWaitingSessions(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) UpdateSession(ctx context.Context, id string, upd storage.SessionUpdate) (*models.ChatSession, error) {
	args := m.Called(ctx, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatSession), args.Error(1)
}

func (m *MockStorage) UpdateSessionFrom(ctx context.Context, id string, from models.SessionStatus, upd storage.SessionUpdate) (*models.ChatSession, error) {
	args := m.Called(ctx, id, from, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatSession), args.Error(1)
}

func (m *MockStorage) SaveMessage(ctx context.Context, msg *models.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockStorage) ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).([]models.ChatMessage), args.Error(1)
}

func (m *MockStorage) MarkMessagesRead(ctx context.Context, sessionID string, senders []models.SenderType) (int64, error) {
	args := m.Called(ctx, sessionID, senders)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) LastAttendantMessageAt(ctx context.Context, sessionID string) (time.Time, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockStorage) GetAvailability(ctx context.Context, userID string) (*models.AttendantAvailability, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AttendantAvailability), args.Error(1)
}

func (m *MockStorage) UpsertAvailability(ctx context.Context, avail *models.AttendantAvailability) error {
	return m.Called(ctx, avail).Error(0)
}

func (m *MockStorage) SaveResume(ctx context.Context, visitorID string, entry storage.ResumeEntry) error {
	return m.Called(ctx, visitorID, entry).Error(0)
}

func (m *MockStorage) GetResume(ctx context.Context, visitorID string) (*storage.ResumeEntry, error) {
	args := m.Called(ctx, visitorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.ResumeEntry), args.Error(1)
}

func (m *MockStorage) IsChatEnabled(ctx context.Context, tenantID string) (bool, error) {
	args := m.Called(ctx, tenantID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) SetChatEnabled(ctx context.Context, tenantID string, enabled bool) error {
	return m.Called(ctx, tenantID, enabled).Error(0)
}

type MockScheduler struct {
	mock.Mock
}

func (m *MockScheduler) ScheduleAbandonCheck(ctx context.Context, sessionID string, after time.Duration) error {
	return m.Called(ctx, sessionID, after).Error(0)
}

type recordingSink struct {
	types []string
}

func (r *recordingSink) Emit(_ context.Context, ev events.Event) error {
	r.types = append(r.types, ev.Type)
	return nil
}
