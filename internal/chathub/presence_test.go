package chathub_test

import (
	"testing"
	"time"

	"livechat/backend/internal/chathub"
	"livechat/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCanAccept(t *testing.T) {
	tests := []struct {
		name  string
		avail *models.AttendantAvailability
		want  error
	}{
		{"no record", nil, nil},
		{"online with room", &models.AttendantAvailability{IsOnline: true, CurrentChats: 4, MaxConcurrentChats: 5}, nil},
		{"at capacity", &models.AttendantAvailability{IsOnline: true, CurrentChats: 5, MaxConcurrentChats: 5}, chathub.ErrAtCapacity},
		{"over capacity", &models.AttendantAvailability{IsOnline: true, CurrentChats: 7, MaxConcurrentChats: 5}, chathub.ErrAtCapacity},
		{"offline", &models.AttendantAvailability{IsOnline: false, MaxConcurrentChats: 5}, chathub.ErrOffline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := chathub.CanAccept(tt.avail)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestIncremented(t *testing.T) {
	now := time.Now()

	fresh := chathub.Incremented(nil, "A1", now, 5)
	assert.Equal(t, "A1", fresh.UserID)
	assert.True(t, fresh.IsOnline)
	assert.Equal(t, 1, fresh.CurrentChats)
	assert.Equal(t, 5, fresh.MaxConcurrentChats)

	prev := &models.AttendantAvailability{UserID: "A1", IsOnline: true, CurrentChats: 2, MaxConcurrentChats: 3}
	next := chathub.Incremented(prev, "A1", now, 5)
	assert.Equal(t, 3, next.CurrentChats)
	assert.Equal(t, 3, next.MaxConcurrentChats)
	assert.Equal(t, 2, prev.CurrentChats, "input must not be modified")
}

func TestDecremented_FloorsAtZero(t *testing.T) {
	now := time.Now()
	prev := &models.AttendantAvailability{UserID: "A1", IsOnline: true, CurrentChats: 0, MaxConcurrentChats: 5}

	assert.Equal(t, 0, chathub.Decremented(prev, now).CurrentChats)

	prev.CurrentChats = 2
	assert.Equal(t, 1, chathub.Decremented(prev, now).CurrentChats)
}

func TestWentOffline_ResetsCounter(t *testing.T) {
	now := time.Now()
	prev := &models.AttendantAvailability{UserID: "A1", IsOnline: true, CurrentChats: 3, MaxConcurrentChats: 5}

	next := chathub.WentOffline(prev, "A1", now, 5)

	assert.False(t, next.IsOnline)
	assert.Zero(t, next.CurrentChats)
	assert.Equal(t, 5, next.MaxConcurrentChats)
	assert.Equal(t, now, next.LastSeen)

	online := chathub.WentOnline(nil, "A2", now, 4)
	assert.True(t, online.IsOnline)
	assert.Equal(t, 4, online.MaxConcurrentChats)
}
