package realtime_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"livechat/backend/internal/models"
	"livechat/backend/internal/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterMatch(t *testing.T) {
	insert := models.ChangeEvent{Table: models.TableMessages, Type: models.EventInsert}
	update := models.ChangeEvent{Table: models.TableSessions, Type: models.EventUpdate}

	tests := []struct {
		name   string
		filter realtime.Filter
		event  models.ChangeEvent
		want   bool
	}{
		{"table and kind", realtime.Filter{Table: models.TableMessages, Kinds: []models.EventKind{models.EventInsert}}, insert, true},
		{"other table", realtime.Filter{Table: models.TableSessions}, insert, false},
		{"all kinds", realtime.Filter{Table: models.TableSessions}, update, true},
		{"other kind", realtime.Filter{Table: models.TableSessions, Kinds: []models.EventKind{models.EventInsert}}, update, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(tt.event))
		})
	}
}

func TestMemoryFeed_DeliversMatchingEvents(t *testing.T) {
	feed := realtime.NewMemory()
	ctx := context.Background()

	sessions, err := feed.Subscribe(ctx, realtime.Filter{Channel: "a", Table: models.TableSessions})
	require.NoError(t, err)
	messages, err := feed.Subscribe(ctx, realtime.Filter{Channel: "b", Table: models.TableMessages, Kinds: []models.EventKind{models.EventInsert}})
	require.NoError(t, err)
	assert.Equal(t, 2, feed.Subscribers())

	ev, err := models.NewChangeEvent(models.TableMessages, models.EventInsert, models.ChatMessage{ID: "m1"})
	require.NoError(t, err)
	require.NoError(t, feed.Publish(ctx, ev))

	select {
	case got := <-messages.Events():
		msg, err := got.Message()
		require.NoError(t, err)
		assert.Equal(t, "m1", msg.ID)
	case <-time.After(time.Second):
		t.Fatal("message subscriber did not receive the event")
	}

	select {
	case <-sessions.Events():
		t.Fatal("session subscriber received a message event")
	default:
	}
}

func TestMemoryFeed_CloseStopsDelivery(t *testing.T) {
	feed := realtime.NewMemory()
	ctx := context.Background()

	sub, err := feed.Subscribe(ctx, realtime.Filter{Channel: "a", Table: models.TableSessions})
	require.NoError(t, err)
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close(), "Close must be idempotent")

	require.NoError(t, feed.Publish(ctx, models.ChangeEvent{Table: models.TableSessions, Type: models.EventInsert}))

	_, ok := <-sub.Events()
	assert.False(t, ok, "Events must be closed after Close")
	assert.Equal(t, 0, feed.Subscribers())
}

func TestChannelName(t *testing.T) {
	assert.Equal(t, "realtime:chat_sessions:UPDATE", realtime.ChannelName(models.TableSessions, models.EventUpdate))
}

func TestDecodeEvent_TriggerPayload(t *testing.T) {
	// Shape produced by json_build_object in TriggerSQL.
	payload := `{"table":"chat_messages","type":"INSERT","record":{"id":"m1","session_id":"s1","sender_type":"lead","sender_id":null,"message":"oi","timestamp":"2026-10-19T12:00:00.123456+00:00","read_status":false},"commit_timestamp":"2026-10-19T12:00:00.2+00:00"}`

	ev, err := realtime.DecodeEvent([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, models.EventInsert, ev.Type)

	msg, err := ev.Message()
	require.NoError(t, err)
	assert.Equal(t, "s1", msg.SessionID)
	assert.Equal(t, models.SenderLead, msg.SenderType)
	assert.Nil(t, msg.SenderID)
}

func TestDecodeEvent_Invalid(t *testing.T) {
	_, err := realtime.DecodeEvent([]byte(`{"record":{}}`))
	assert.Error(t, err)

	_, err = realtime.DecodeEvent([]byte(`not json`))
	assert.Error(t, err)

	raw, _ := json.Marshal(models.ChangeEvent{Table: "t", Type: models.EventUpdate})
	_, err = realtime.DecodeEvent(raw)
	assert.NoError(t, err)
}
