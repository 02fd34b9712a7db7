package jobs

import (
	"context"
	"time"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/domain"
)

// Enqueuer hands job ids to the worker fleet.
type Enqueuer interface {
	Enqueue(ctx context.Context, ids ...string) error
}

// QueueDepth reports how many ids are still waiting in the queue.
type QueueDepth interface {
	Len(ctx context.Context) (int64, error)
}

// Dequeuer blocks for the next job id. It returns queue.ErrEmpty on timeout.
type Dequeuer interface {
	Pop(ctx context.Context, timeout time.Duration) (string, error)
}

// EventPublisher fans out job state changes to live listeners.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.JobEvent) error
}

// EventSubscriber opens a stream of events for one job.
type EventSubscriber interface {
	Subscribe(ctx context.Context, jobID string) (*Subscription, error)
}

// Refunder credits tokens back to a user.
type Refunder interface {
	Refund(ctx context.Context, userID, jobID string, amount int) error
}

// Actor is the authenticated caller of a service method.
type Actor struct {
	UserID string
	Admin  bool
}

// Subscription delivers events until Close is called or the context ends.
type Subscription struct {
	events <-chan domain.JobEvent
	close  func() error
}

func NewSubscription(events <-chan domain.JobEvent, closeFn func() error) *Subscription {
	return &Subscription{events: events, close: closeFn}
}

func (s *Subscription) Events() <-chan domain.JobEvent { return s.events }

func (s *Subscription) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}
