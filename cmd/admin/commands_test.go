package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"livechat/backend/internal/api/handler"
	"livechat/backend/internal/config"
	"livechat/backend/internal/models"
	"livechat/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStorage implements the calls the admin commands make; anything else panics.
type fakeStorage struct {
	storage.Storage

	enabled  map[string]bool
	avail    map[string]*models.AttendantAvailability
	waiting  []models.ChatSession
	sessions map[string]*models.ChatSession
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		enabled:  make(map[string]bool),
		avail:    make(map[string]*models.AttendantAvailability),
		sessions: make(map[string]*models.ChatSession),
	}
}

func (f *fakeStorage) SetChatEnabled(_ context.Context, tenantID string, enabled bool) error {
	f.enabled[tenantID] = enabled
	return nil
}

func (f *fakeStorage) GetAvailability(_ context.Context, userID string) (*models.AttendantAvailability, error) {
	return f.avail[userID], nil
}

func (f *fakeStorage) UpsertAvailability(_ context.Context, a *models.AttendantAvailability) error {
	f.avail[a.UserID] = a
	return nil
}

func (f *fakeStorage) CountWaitingSessions(context.Context) (int64, error) {
	return int64(len(f.waiting)), nil
}

func (f *fakeStorage) ListWaitingSessions(_ context.Context, before time.Time) ([]models.ChatSession, error) {
	var out []models.ChatSession
	for _, s := range f.waiting {
		if s.StartedAt.Before(before) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStorage) GetSession(_ context.Context, id string) (*models.ChatSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, storage.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeStorage) UpdateSessionFrom(_ context.Context, id string, from models.SessionStatus, upd storage.SessionUpdate) (*models.ChatSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, storage.ErrSessionNotFound
	}
	if s.Status != from {
		return nil, storage.ErrStatusChanged
	}
	if upd.Status != nil {
		s.Status = *upd.Status
	}
	return s, nil
}

func run(t *testing.T, fake *fakeStorage, args ...string) (string, error) {
	t.Helper()
	a := &app{
		cfg:     &config.Config{JWTSecret: "secret", DefaultMaxChats: 5},
		storage: fake,
	}
	cmd := newRootCmd(func() (*app, error) { return a, nil })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	out, err := run(t, newFakeStorage(), "token", "A1", "--ttl", "1h")
	require.NoError(t, err)

	id, err := handler.ValidateAttendantToken([]byte("secret"), strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "A1", id)
}

func TestChatCommands(t *testing.T) {
	fake := newFakeStorage()

	_, err := run(t, fake, "chat", "disable", "agency-1")
	require.NoError(t, err)
	out, err := run(t, fake, "chat", "enable")
	require.NoError(t, err)

	assert.False(t, fake.enabled["agency-1"])
	assert.True(t, fake.enabled[""])
	assert.Contains(t, out, "default tenant")
}

func TestAvailabilityCommands(t *testing.T) {
	fake := newFakeStorage()
	fake.avail["A1"] = &models.AttendantAvailability{UserID: "A1", IsOnline: true, CurrentChats: 3, MaxConcurrentChats: 5}

	_, err := run(t, fake, "availability", "set-max", "A1", "8")
	require.NoError(t, err)
	assert.Equal(t, 8, fake.avail["A1"].MaxConcurrentChats)
	assert.Equal(t, 3, fake.avail["A1"].CurrentChats)

	_, err = run(t, fake, "availability", "offline", "A1")
	require.NoError(t, err)
	assert.False(t, fake.avail["A1"].IsOnline)
	assert.Zero(t, fake.avail["A1"].CurrentChats)

	_, err = run(t, fake, "availability", "set-max", "B2", "2")
	require.NoError(t, err)
	require.NotNil(t, fake.avail["B2"])
	assert.Equal(t, 2, fake.avail["B2"].MaxConcurrentChats)
	assert.False(t, fake.avail["B2"].IsOnline)

	_, err = run(t, fake, "availability", "set-max", "A1", "zero")
	assert.Error(t, err)
}

func TestSessionsAbandonStale(t *testing.T) {
	fake := newFakeStorage()
	old := &models.ChatSession{ID: "old", Status: models.StatusWaiting, StartedAt: time.Now().Add(-time.Hour)}
	fresh := &models.ChatSession{ID: "fresh", Status: models.StatusWaiting, StartedAt: time.Now()}
	fake.sessions["old"], fake.sessions["fresh"] = old, fresh
	fake.waiting = []models.ChatSession{*old, *fresh}

	out, err := run(t, fake, "sessions", "abandon-stale", "--older-than", "30m")

	require.NoError(t, err)
	assert.Contains(t, out, "1 sessions abandoned")
	assert.Equal(t, models.StatusAbandoned, old.Status)
	assert.Equal(t, models.StatusWaiting, fresh.Status)
}

func TestSessionsWaiting(t *testing.T) {
	fake := newFakeStorage()
	fake.waiting = []models.ChatSession{{ID: "a"}, {ID: "b"}}

	out, err := run(t, fake, "sessions", "waiting")

	require.NoError(t, err)
	assert.Contains(t, out, "2 sessions waiting")
}
