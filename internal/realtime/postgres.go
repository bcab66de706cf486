package realtime

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"livechat/backend/internal/models"

	"github.com/lib/pq"
)

// NotifyChannel is the Postgres NOTIFY channel written by the change triggers.
const NotifyChannel = "chat_changes"

// TriggerSQL installs row triggers that NOTIFY every insert/update of the chat tables.
// Payloads are limited to 8000 bytes by Postgres.
const TriggerSQL = `
CREATE OR REPLACE FUNCTION notify_chat_change() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify('` + NotifyChannel + `', json_build_object(
		'table', TG_TABLE_NAME,
		'type', TG_OP,
		'record', row_to_json(NEW),
		'commit_timestamp', now()
	)::text);
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS chat_sessions_notify ON chat_sessions;
CREATE TRIGGER chat_sessions_notify AFTER INSERT OR UPDATE ON chat_sessions
	FOR EACH ROW EXECUTE FUNCTION notify_chat_change();

DROP TRIGGER IF EXISTS chat_messages_notify ON chat_messages;
CREATE TRIGGER chat_messages_notify AFTER INSERT ON chat_messages
	FOR EACH ROW EXECUTE FUNCTION notify_chat_change();
`

const (
	minReconnectInterval = 10 * time.Second
	maxReconnectInterval = time.Minute
	listenerPingInterval = 90 * time.Second
)

// PostgresFeed listens to the trigger-fed NOTIFY channel. Reconnection is handled by
// pq.Listener; events raised while disconnected are lost.
type PostgresFeed struct {
	dsn string
}

func NewPostgresFeed(dsn string) *PostgresFeed {
	return &PostgresFeed{dsn: dsn}
}

var _ ChangeFeed = (*PostgresFeed)(nil)

func (p *PostgresFeed) Subscribe(_ context.Context, f Filter) (Subscription, error) {
	listener := pq.NewListener(p.dsn, minReconnectInterval, maxReconnectInterval,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Printf("WARN: %s listener event %d: %v", f.Channel, ev, err)
			}
		})
	if err := listener.Listen(NotifyChannel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("listen %s: %w", NotifyChannel, err)
	}

	s := &pgSub{
		filter:   f,
		listener: listener,
		out:      make(chan models.ChangeEvent, 64),
		done:     make(chan struct{}),
	}
	go s.pump()
	return s, nil
}

type pgSub struct {
	filter    Filter
	listener  *pq.Listener
	out       chan models.ChangeEvent
	done      chan struct{}
	closeOnce sync.Once
}

func (s *pgSub) Events() <-chan models.ChangeEvent { return s.out }

func (s *pgSub) pump() {
	defer close(s.out)
	ping := time.NewTicker(listenerPingInterval)
	defer ping.Stop()

	for {
		select {
		case n, ok := <-s.listener.Notify:
			if !ok {
				return
			}
			// nil is sent after a reconnect; there is nothing to replay.
			if n == nil {
				continue
			}
			ev, err := DecodeEvent([]byte(n.Extra))
			if err != nil {
				log.Printf("ERROR: %s: %v", s.filter.Channel, err)
				continue
			}
			if !s.filter.Match(ev) {
				continue
			}
			select {
			case s.out <- ev:
			case <-s.done:
				return
			}
		case <-ping.C:
			go func() {
				if err := s.listener.Ping(); err != nil {
					log.Printf("WARN: %s listener ping: %v", s.filter.Channel, err)
				}
			}()
		case <-s.done:
			return
		}
	}
}

func (s *pgSub) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.listener.Close()
	})
	return err
}
