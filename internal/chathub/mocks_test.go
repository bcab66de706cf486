package chathub_test

import (
	"context"
	"sync"

	"livechat/backend/internal/chathub"
	"livechat/backend/internal/models"
	"livechat/backend/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) GetSession(ctx context.Context, id string) (*models.ChatSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatSession), args.Error(1)
}

func (m *MockBackend) ListSessionsForAttendant(ctx context.Context, attendantID string) ([]models.ChatSession, error) {
	args := m.Called(ctx, attendantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatSession), args.Error(1)
}

func (m *MockBackend) UpdateSession(ctx context.Context, id string, upd storage.SessionUpdate) (*models.ChatSession, error) {
	args := m.Called(ctx, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatSession), args.Error(1)
}

func (m *MockBackend) ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatMessage), args.Error(1)
}

func (m *MockBackend) MarkMessagesRead(ctx context.Context, sessionID string, senders []models.SenderType) (int64, error) {
	args := m.Called(ctx, sessionID, senders)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBackend) GetAvailability(ctx context.Context, userID string) (*models.AttendantAvailability, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AttendantAvailability), args.Error(1)
}

func (m *MockBackend) UpsertAvailability(ctx context.Context, avail *models.AttendantAvailability) error {
	args := m.Called(ctx, avail)
	return args.Error(0)
}

type MockFunctions struct {
	mock.Mock
}

func (m *MockFunctions) Intake(ctx context.Context, req models.IntakeRequest) (*models.IntakeResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IntakeResponse), args.Error(1)
}

func (m *MockFunctions) ProcessMessage(ctx context.Context, req models.MessageRequest) (*models.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MessageResponse), args.Error(1)
}

// recordingNotifier collects notifications for assertions.
type recordingNotifier struct {
	mu    sync.Mutex
	items []chathub.Notification
}

func (r *recordingNotifier) Notify(n chathub.Notification) {
	r.mu.Lock()
	r.items = append(r.items, n)
	r.mu.Unlock()
}

func (r *recordingNotifier) kinds() []chathub.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]chathub.NotificationKind, 0, len(r.items))
	for _, n := range r.items {
		out = append(out, n.Kind)
	}
	return out
}

func (r *recordingNotifier) count(kind chathub.NotificationKind) int {
	n := 0
	for _, k := range r.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

type MockClient struct {
	mock.Mock
	userID  string
	console *chathub.Console
}

func newMockClient(userID string) *MockClient {
	return &MockClient{userID: userID}
}

func (c *MockClient) GetUserID() string         { return c.userID }
func (c *MockClient) Console() *chathub.Console { return c.console }
func (c *MockClient) Run()                      { c.Called() }
func (c *MockClient) Close()                    { c.Called() }

func strPtr(s string) *string { return &s }
