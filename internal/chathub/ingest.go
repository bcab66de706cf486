package chathub

import (
	"context"
	"fmt"
	"log"

	"livechat/backend/internal/models"
	"livechat/backend/internal/realtime"

	"github.com/google/uuid"
)

// Start subscribes the console to session and message changes and loads the attendant's
// sessions. Starting again first stops the previous subscriptions. Subscription failures
// are logged and returned, never retried. Start does nothing once ctx is done.
func (c *Console) Start(ctx context.Context) error {
	c.Stop()
	if err := ctx.Err(); err != nil {
		return err
	}

	channel := fmt.Sprintf("console:%s:%s", c.attendantID, uuid.NewString())
	subCtx, cancel := context.WithCancel(ctx)

	sessionsSub, err := c.deps.Feed.Subscribe(subCtx, realtime.Filter{
		Channel: channel + ":sessions",
		Table:   models.TableSessions,
		Kinds:   []models.EventKind{models.EventInsert, models.EventUpdate},
	})
	if err != nil {
		cancel()
		log.Printf("ERROR: Session subscription failed for %s: %v", c.attendantID, err)
		return err
	}

	messagesSub, err := c.deps.Feed.Subscribe(subCtx, realtime.Filter{
		Channel: channel + ":messages",
		Table:   models.TableMessages,
		Kinds:   []models.EventKind{models.EventInsert},
	})
	if err != nil {
		sessionsSub.Close()
		cancel()
		log.Printf("ERROR: Message subscription failed for %s: %v", c.attendantID, err)
		return err
	}

	c.mu.Lock()
	c.cancel = cancel
	c.subs = []realtime.Subscription{sessionsSub, messagesSub}
	c.channel = channel
	c.mu.Unlock()

	c.wg.Add(2)
	go c.consume(subCtx, sessionsSub, c.handleSessionEvent)
	go c.consume(subCtx, messagesSub, c.handleMessageEvent)

	// A Stop that ran while subscribing found nothing to close.
	if err := ctx.Err(); err != nil {
		c.Stop()
		return err
	}

	if err := c.Refresh(ctx); err != nil {
		log.Printf("WARN: Initial session load failed for %s: %v", c.attendantID, err)
	}
	return nil
}

// Stop tears down the subscriptions and waits for their consumers to return.
func (c *Console) Stop() {
	c.mu.Lock()
	cancel, subs := c.cancel, c.subs
	c.cancel, c.subs, c.channel = nil, nil, ""
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	for _, sub := range subs {
		if err := sub.Close(); err != nil {
			log.Printf("WARN: Closing subscription for %s: %v", c.attendantID, err)
		}
	}
	c.wg.Wait()
}

// Channel is the identifier of the current subscription set; empty when stopped.
func (c *Console) Channel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

func (c *Console) consume(ctx context.Context, sub realtime.Subscription, handle func(context.Context, models.ChangeEvent)) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				log.Printf("WARN: Change feed closed for %s", c.attendantID)
				return
			}
			handle(ctx, ev)
		}
	}
}

// handleSessionEvent refetches the session list on any session change; a new session
// also raises the new-chat notification.
func (c *Console) handleSessionEvent(ctx context.Context, ev models.ChangeEvent) {
	if ev.Type == models.EventInsert {
		var sessionID string
		if s, err := ev.Session(); err == nil {
			sessionID = s.ID
		}
		c.notifier.Notify(Notification{Kind: NotifyNewChat, SessionID: sessionID})
	}
	if err := c.Refresh(ctx); err != nil {
		log.Printf("WARN: Refresh after %s event failed for %s: %v", ev.Type, c.attendantID, err)
	}
}

// handleMessageEvent appends a new message without refetching. Messages of sessions the
// console does not show are dropped. Only messages written by someone else raise the
// incoming-message notification.
func (c *Console) handleMessageEvent(_ context.Context, ev models.ChangeEvent) {
	msg, err := ev.Message()
	if err != nil {
		log.Printf("WARN: Dropping undecodable message event: %v", err)
		return
	}
	if session, ok := c.store.Session(msg.SessionID); !ok || !c.visible(session) {
		return
	}
	if !c.store.ApplyMessage(*msg) {
		return
	}
	if !IsOwnMessage(*msg, c.attendantID) {
		c.notifier.Notify(Notification{Kind: NotifyIncomingMessage, SessionID: msg.SessionID})
	}
	c.changed(ChangeMessages, msg.SessionID)
}
