// Package realtime provides the row-level change feed the chat core subscribes to.
// A ChangeFeed delivers INSERT/UPDATE notifications per table; it gives no replay or
// catch-up guarantee, so consumers refetch after reconnecting.
package realtime

import (
	"context"
	"slices"

	"livechat/backend/internal/models"
)

// Filter selects the events a subscription receives.
type Filter struct {
	// Channel identifies the subscriber. A new subscription should use a fresh value so it
	// never collides with an older one that is still draining.
	Channel string
	Table   string
	// Kinds restricts the event kinds; empty means all.
	Kinds []models.EventKind
}

// Match reports whether ev passes the filter.
func (f Filter) Match(ev models.ChangeEvent) bool {
	if f.Table != "" && ev.Table != f.Table {
		return false
	}
	return len(f.Kinds) == 0 || slices.Contains(f.Kinds, ev.Type)
}

func (f Filter) kinds() []models.EventKind {
	if len(f.Kinds) == 0 {
		return []models.EventKind{models.EventInsert, models.EventUpdate}
	}
	return f.Kinds
}

// Subscription is a live stream of change events. Events is closed after Close, or when
// the underlying transport gives up.
type Subscription interface {
	Events() <-chan models.ChangeEvent
	Close() error
}

// ChangeFeed opens subscriptions.
type ChangeFeed interface {
	Subscribe(ctx context.Context, f Filter) (Subscription, error)
}

// Publisher emits change events after the corresponding write has been committed.
type Publisher interface {
	Publish(ctx context.Context, ev models.ChangeEvent) error
}
