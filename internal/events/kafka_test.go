package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"livechat/backend/internal/events"

	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaSink_EmitEncodesEvent(t *testing.T) {
	producer := mocks.NewSyncProducer(t, events.NewSaramaConfig())
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var ev events.Event
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		if ev.Type != events.SessionAccepted || ev.SessionID != "S1" {
			return errors.New("unexpected event payload")
		}
		return nil
	})
	sink := events.NewKafkaSinkWithProducer(producer, "crm.chat-events")

	attendant := "A1"
	err := sink.Emit(context.Background(), events.Event{
		Type:        events.SessionAccepted,
		SessionID:   "S1",
		AttendantID: &attendant,
		OccurredAt:  time.Now(),
	})

	require.NoError(t, err)
	require.NoError(t, sink.Close())
}

func TestKafkaSink_EmitReturnsProducerError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, events.NewSaramaConfig())
	producer.ExpectSendMessageAndFail(errors.New("broker down"))
	sink := events.NewKafkaSinkWithProducer(producer, "crm.chat-events")

	err := sink.Emit(context.Background(), events.Event{Type: events.SessionEnded, SessionID: "S1"})

	assert.ErrorContains(t, err, "broker down")
	require.NoError(t, sink.Close())
}

func TestNopSink(t *testing.T) {
	assert.NoError(t, events.Nop{}.Emit(context.Background(), events.Event{}))
}
