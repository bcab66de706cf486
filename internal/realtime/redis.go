package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"livechat/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisFeed fans change events out over Redis Pub/Sub, one channel per table and kind.
type RedisFeed struct {
	client *redis.Client
}

func NewRedisFeed(client *redis.Client) *RedisFeed {
	return &RedisFeed{client: client}
}

var (
	_ ChangeFeed = (*RedisFeed)(nil)
	_ Publisher  = (*RedisFeed)(nil)
)

// ChannelName is the Redis channel carrying events of one table and kind.
func ChannelName(table string, kind models.EventKind) string {
	return fmt.Sprintf("realtime:%s:%s", table, kind)
}

func (r *RedisFeed) Publish(ctx context.Context, ev models.ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}
	return r.client.Publish(ctx, ChannelName(ev.Table, ev.Type), payload).Err()
}

func (r *RedisFeed) Subscribe(ctx context.Context, f Filter) (Subscription, error) {
	kinds := f.kinds()
	channels := make([]string, 0, len(kinds))
	for _, k := range kinds {
		channels = append(channels, ChannelName(f.Table, k))
	}

	pubsub := r.client.Subscribe(ctx, channels...)
	// Wait for the subscription confirmation so errors surface here and not in the pump.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", f.Channel, err)
	}

	s := &redisSub{
		filter: f,
		pubsub: pubsub,
		out:    make(chan models.ChangeEvent, 64),
		done:   make(chan struct{}),
	}
	go s.pump()
	return s, nil
}

type redisSub struct {
	filter    Filter
	pubsub    *redis.PubSub
	out       chan models.ChangeEvent
	done      chan struct{}
	closeOnce sync.Once
}

func (s *redisSub) Events() <-chan models.ChangeEvent { return s.out }

func (s *redisSub) pump() {
	defer close(s.out)
	for msg := range s.pubsub.Channel() {
		ev, err := DecodeEvent([]byte(msg.Payload))
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
	}
}

func (s *redisSub) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}

// DecodeEvent parses a JSON-encoded ChangeEvent.
func DecodeEvent(payload []byte) (models.ChangeEvent, error) {
	var ev models.ChangeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ev, fmt.Errorf("decode change event: %w", err)
	}
	if ev.Table == "" || ev.Type == "" {
		return ev, fmt.Errorf("decode change event: missing table or type")
	}
	return ev, nil
}
