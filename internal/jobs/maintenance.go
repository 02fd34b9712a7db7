package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/domain"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/infra"
)

const (
	maintenanceBatch  = 100
	leaseExpiredError = "processing lease expired"
)

type MaintenanceOptions struct {
	Jobs            domain.JobRepository
	Users           Refunder
	Queue           Enqueuer
	Events          EventPublisher
	Config          infra.WorkerConfig
	RefundOnFailure bool
	Logger          infra.Logger
}

// Maintenance recovers jobs orphaned by crashed workers or lost queue pushes.
type Maintenance struct {
	jobs   domain.JobRepository
	users  Refunder
	queue  Enqueuer
	depth  QueueDepth
	events EventPublisher
	cfg    infra.WorkerConfig
	refund bool
	logger infra.Logger
}

func NewMaintenance(opts MaintenanceOptions) (*Maintenance, error) {
	if opts.Jobs == nil || opts.Queue == nil {
		return nil, errors.New("jobs: maintenance needs a JobRepository and an Enqueuer")
	}
	depth, _ := opts.Queue.(QueueDepth)
	return &Maintenance{
		jobs:   opts.Jobs,
		depth:  depth,
		users:  opts.Users,
		queue:  opts.Queue,
		events: opts.Events,
		cfg:    opts.Config,
		refund: opts.RefundOnFailure && opts.Users != nil,
		logger: infra.Component(opts.Logger, "jobs.maintenance"),
	}, nil
}

// RunReaper fails PROCESSING jobs whose lease expired every ReaperInterval.
func (m *Maintenance) RunReaper(ctx context.Context) error {
	return every(ctx, m.cfg.ReaperInterval, func() {
		if _, err := m.ReapExpired(ctx); err != nil && ctx.Err() == nil {
			m.logger.Error().Err(err).Msg("reap expired leases")
		}
	})
}

// RunSweeper re-enqueues QUEUED jobs left unclaimed every SweepInterval.
func (m *Maintenance) RunSweeper(ctx context.Context) error {
	return every(ctx, m.cfg.SweepInterval, func() {
		if _, err := m.SweepStale(ctx); err != nil && ctx.Err() == nil {
			m.logger.Error().Err(err).Msg("sweep stale queued jobs")
		}
	})
}

func (m *Maintenance) ReapExpired(ctx context.Context) (int, error) {
	failed, err := m.jobs.FailExpiredLeases(ctx, leaseExpiredError, maintenanceBatch)
	if err != nil {
		return 0, err
	}
	for i := range failed {
		job := &failed[i]
		m.logger.Warn().Str("job_id", job.ID).Str("worker_id", job.WorkerID).Msg("failed job with expired lease")
		if m.events != nil {
			if err := m.events.Publish(ctx, job.Event()); err != nil {
				m.logger.Warn().Err(err).Str("job_id", job.ID).Msg("publish job event")
			}
		}
		if m.refund && job.TokensConsumed > 0 {
			if err := m.users.Refund(ctx, job.UserID, job.ID, job.TokensConsumed); err != nil {
				m.logger.Error().Err(err).Str("job_id", job.ID).Msg("refund failed job")
			}
		}
	}
	return len(failed), nil
}

// SweepStale re-enqueues QUEUED jobs nobody claimed. It does nothing while
// the queue still holds ids, since stale jobs are then most likely waiting in
// the backlog rather than lost.
func (m *Maintenance) SweepStale(ctx context.Context) (int, error) {
	if m.depth != nil {
		n, err := m.depth.Len(ctx)
		if err != nil {
			return 0, err
		}
		if n > 0 {
			m.logger.Debug().Int64("backlog", n).Msg("queue not drained, skipping sweep")
			return 0, nil
		}
	}
	ids, err := m.jobs.ClaimStaleQueued(ctx, m.cfg.StaleQueuedAfter, maintenanceBatch)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := m.queue.Enqueue(ctx, ids...); err != nil {
		return 0, err
	}
	m.logger.Info().Int("count", len(ids)).Msg("re-enqueued stale queued jobs")
	return len(ids), nil
}

func every(ctx context.Context, interval time.Duration, fn func()) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fn()
		}
	}
}
