package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"livechat/backend/internal/models"
	"livechat/backend/internal/storage"

	"github.com/hibiken/asynq"
)

// Sessions is the storage used by the abandonment check.
type Sessions interface {
	GetSession(ctx context.Context, id string) (*models.ChatSession, error)
	UpdateSessionFrom(ctx context.Context, id string, from models.SessionStatus, upd storage.SessionUpdate) (*models.ChatSession, error)
	ListWaitingSessions(ctx context.Context, startedBefore time.Time) ([]models.ChatSession, error)
}

// AbandonIfWaiting marks the session abandoned when nobody accepted it. It reports
// whether the session was changed.
func AbandonIfWaiting(ctx context.Context, sessions Sessions, sessionID string, now time.Time) (bool, error) {
	session, err := sessions.GetSession(ctx, sessionID)
	if errors.Is(err, storage.ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if session.Status != models.StatusWaiting {
		return false, nil
	}

	status := models.StatusAbandoned
	endedAt := now.UTC()
	_, err = sessions.UpdateSessionFrom(ctx, sessionID, models.StatusWaiting, storage.SessionUpdate{Status: &status, EndedAt: &endedAt})
	if errors.Is(err, storage.ErrStatusChanged) {
		log.Printf("INFO: Session %s left the queue before it could be abandoned", sessionID)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	log.Printf("INFO: Session %s abandoned after waiting since %s", sessionID, session.StartedAt.Format(time.RFC3339))
	return true, nil
}

// SweepWaiting abandons every session still waiting since before cutoff and returns how
// many were changed.
func SweepWaiting(ctx context.Context, sessions Sessions, cutoff, now time.Time) (int, error) {
	stale, err := sessions.ListWaitingSessions(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, s := range stale {
		changed, err := AbandonIfWaiting(ctx, sessions, s.ID, now)
		if err != nil {
			log.Printf("ERROR: Could not abandon session %s: %v", s.ID, err)
			continue
		}
		if changed {
			n++
		}
	}
	return n, nil
}

type AbandonHandler struct {
	Sessions Sessions
	Now      func() time.Time
}

func (h *AbandonHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p abandonPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil || p.SessionID == "" {
		return fmt.Errorf("invalid %s payload: %w", t.Type(), asynq.SkipRetry)
	}
	_, err := AbandonIfWaiting(ctx, h.Sessions, p.SessionID, h.Now())
	return err
}
