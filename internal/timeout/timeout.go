// Package timeout derives the lead-side "is anybody there?" banner from the time of the
// last attendant message. Evaluate is a pure step function; Watcher re-evaluates it every
// tick and fires a callback once when the timeout threshold is crossed.
package timeout

import (
	"context"
	"sync"
	"time"

	"livechat/backend/internal/config"
)

type State string

const (
	// StateNone shows no banner.
	StateNone State = "none"
	// StateAttended shows the "attended" indicator right after an attendant message.
	StateAttended State = "attended"
	// StateWarning shows the countdown banner.
	StateWarning State = "warning"
	// StateTimedOut shows the timeout banner.
	StateTimedOut State = "timeout"
)

// Status is the banner state at one instant.
type Status struct {
	State State `json:"state"`
	// Urgent escalates the warning banner when less than a minute remains.
	Urgent    bool          `json:"urgent"`
	Elapsed   time.Duration `json:"elapsed"`
	Remaining time.Duration `json:"remaining"`
}

// Evaluate computes the banner state for now given the last attendant message time.
// Elapsed time is counted in whole seconds. A zero lastAttendantMessage yields StateNone.
func Evaluate(now, lastAttendantMessage time.Time) Status {
	if lastAttendantMessage.IsZero() {
		return Status{State: StateNone}
	}
	elapsed := now.Sub(lastAttendantMessage).Truncate(time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	st := Status{Elapsed: elapsed}

	switch {
	case elapsed < config.AttendedWindow:
		st.State = StateAttended
	case elapsed < config.WarningAfter:
		st.State = StateNone
	case elapsed < config.TimeoutAfter:
		st.State = StateWarning
		st.Urgent = elapsed > config.UrgentAfter
	default:
		st.State = StateTimedOut
		return st
	}
	st.Remaining = config.TimeoutAfter - elapsed
	return st
}

// Watcher tracks one reference timestamp and fires onTimeout exactly once per crossing
// of the timeout threshold. Changing the reference re-arms it.
type Watcher struct {
	mu        sync.Mutex
	last      time.Time
	fired     bool
	status    Status
	onTimeout func(Status)
	onChange  func(Status)
}

// NewWatcher creates a Watcher. onChange, if not nil, is called whenever the banner state
// or its urgency changes.
func NewWatcher(onTimeout, onChange func(Status)) *Watcher {
	return &Watcher{onTimeout: onTimeout, onChange: onChange, status: Status{State: StateNone}}
}

// Reset sets the reference timestamp. The callback is re-armed only if it differs from
// the current one.
func (w *Watcher) Reset(lastAttendantMessage time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if lastAttendantMessage.Equal(w.last) {
		return
	}
	w.last = lastAttendantMessage
	w.fired = false
}

// Last returns the current reference timestamp.
func (w *Watcher) Last() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Tick re-evaluates the state at now and runs the callbacks outside the lock.
func (w *Watcher) Tick(now time.Time) Status {
	w.mu.Lock()
	st := Evaluate(now, w.last)
	changed := st.State != w.status.State || st.Urgent != w.status.Urgent
	w.status = st
	fire := st.State == StateTimedOut && !w.fired
	if fire {
		w.fired = true
	}
	w.mu.Unlock()

	if changed && w.onChange != nil {
		w.onChange(st)
	}
	if fire && w.onTimeout != nil {
		w.onTimeout(st)
	}
	return st
}

// Run ticks every config.TimeoutTickPeriod until ctx is done.
func (w *Watcher) Run(ctx context.Context, now func() time.Time) {
	ticker := time.NewTicker(config.TimeoutTickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Tick(now())
		}
	}
}
