// Package worker runs the delayed abandonment check of waiting sessions on asynq.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeAbandonIfWaiting = "chat:abandon_if_waiting"
	Queue                = "chat"
)

type abandonPayload struct {
	SessionID string `json:"session_id"`
}

// NewAbandonTask builds the task that abandons sessionID if it is still waiting.
func NewAbandonTask(sessionID string) (*asynq.Task, error) {
	if sessionID == "" {
		return nil, errors.New("worker: session id is required")
	}
	payload, err := json.Marshal(abandonPayload{SessionID: sessionID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAbandonIfWaiting, payload), nil
}

// Scheduler enqueues abandonment checks.
type Scheduler struct {
	client *asynq.Client
}

func NewScheduler(opt asynq.RedisConnOpt) *Scheduler {
	return &Scheduler{client: asynq.NewClient(opt)}
}

// ScheduleAbandonCheck enqueues the check to run after the given delay. The task is
// not retried.
func (s *Scheduler) ScheduleAbandonCheck(ctx context.Context, sessionID string, after time.Duration) error {
	task, err := NewAbandonTask(sessionID)
	if err != nil {
		return err
	}
	info, err := s.client.EnqueueContext(ctx, task,
		asynq.ProcessIn(after),
		asynq.Queue(Queue),
		asynq.MaxRetry(0),
		asynq.Retention(time.Hour),
	)
	if err != nil {
		return fmt.Errorf("enqueue abandonment check: %w", err)
	}
	log.Printf("INFO: Abandonment check %s for session %s scheduled in %s", info.ID, sessionID, after)
	return nil
}

func (s *Scheduler) Close() error {
	return s.client.Close()
}

// Processor consumes abandonment tasks.
type Processor struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

func NewProcessor(opt asynq.RedisConnOpt, sessions Sessions) *Processor {
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: 2,
		Queues:      map[string]int{Queue: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Printf("ERROR: Task %s failed: %v", task.Type(), err)
		}),
	})
	mux := asynq.NewServeMux()
	mux.Handle(TypeAbandonIfWaiting, &AbandonHandler{Sessions: sessions, Now: time.Now})
	return &Processor{server: srv, mux: mux}
}

// Run processes tasks until ctx is done.
func (p *Processor) Run(ctx context.Context) error {
	if err := p.server.Start(p.mux); err != nil {
		return fmt.Errorf("start task processor: %w", err)
	}
	<-ctx.Done()
	p.server.Shutdown()
	return nil
}
