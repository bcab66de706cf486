package realtime

import (
	"context"
	"log"
	"sync"

	"livechat/backend/internal/models"
)

const memoryBuffer = 256

// Memory is an in-process feed for single-instance deployments and tests.
type Memory struct {
	mu   sync.RWMutex
	subs map[*memorySub]struct{}
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[*memorySub]struct{})}
}

var (
	_ ChangeFeed = (*Memory)(nil)
	_ Publisher  = (*Memory)(nil)
)

func (m *Memory) Subscribe(_ context.Context, f Filter) (Subscription, error) {
	s := &memorySub{feed: m, filter: f, ch: make(chan models.ChangeEvent, memoryBuffer)}
	m.mu.Lock()
	m.subs[s] = struct{}{}
	m.mu.Unlock()
	return s, nil
}

// Publish delivers ev to every matching subscriber. A subscriber whose buffer is full
// loses the event.
func (m *Memory) Publish(_ context.Context, ev models.ChangeEvent) error {
	m.mu.RLock()
	targets := make([]*memorySub, 0, len(m.subs))
	for s := range m.subs {
		if s.filter.Match(ev) {
			targets = append(targets, s)
		}
	}
	m.mu.RUnlock()

	for _, s := range targets {
		s.deliver(ev)
	}
	return nil
}

// Subscribers returns the number of open subscriptions.
func (m *Memory) Subscribers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}

type memorySub struct {
	feed   *Memory
	filter Filter

	mu     sync.Mutex
	closed bool
	ch     chan models.ChangeEvent
}

func (s *memorySub) Events() <-chan models.ChangeEvent { return s.ch }

func (s *memorySub) deliver(ev models.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- ev:
	default:
		log.Printf("WARN: realtime channel %s is full, dropping %s %s event", s.filter.Channel, ev.Table, ev.Type)
	}
}

func (s *memorySub) Close() error {
	s.feed.mu.Lock()
	delete(s.feed.subs, s)
	s.feed.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}
