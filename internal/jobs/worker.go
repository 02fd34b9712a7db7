package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/domain"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/infra"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/providers/video"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/queue"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/storage"
)

// typicalGeneration is the latency the real-mode milestones are spread over.
const typicalGeneration = 2 * time.Minute

const finalWriteTimeout = 10 * time.Second

var errLeaseLost = errors.New("processing lease lost")

type WorkerOptions struct {
	Jobs            domain.JobRepository
	Users           Refunder
	Queue           Dequeuer
	Generator       video.Generator
	Store           storage.ArtifactStore
	Events          EventPublisher
	Config          infra.WorkerConfig
	RefundOnFailure bool
	Logger          infra.Logger
	// Name prefixes the worker ids; a random one is used when empty.
	Name string
	// MockDelay overrides the random mock-mode duration.
	MockDelay func() time.Duration
}

// Worker claims queued jobs and drives them to a terminal state.
type Worker struct {
	jobs      domain.JobRepository
	users     Refunder
	queue     Dequeuer
	generator video.Generator
	store     storage.ArtifactStore
	events    EventPublisher
	cfg       infra.WorkerConfig
	refund    bool
	logger    infra.Logger
	name      string
	mockDelay func() time.Duration
}

func NewWorker(opts WorkerOptions) (*Worker, error) {
	if opts.Jobs == nil {
		return nil, errors.New("jobs: JobRepository is required")
	}
	if opts.Queue == nil {
		return nil, errors.New("jobs: Dequeuer is required")
	}
	if opts.Store == nil {
		return nil, errors.New("jobs: ArtifactStore is required")
	}
	w := &Worker{
		jobs:      opts.Jobs,
		users:     opts.Users,
		queue:     opts.Queue,
		generator: opts.Generator,
		store:     opts.Store,
		events:    opts.Events,
		cfg:       opts.Config,
		refund:    opts.RefundOnFailure && opts.Users != nil,
		logger:    infra.Component(opts.Logger, "jobs.worker"),
		name:      opts.Name,
		mockDelay: opts.MockDelay,
	}
	if w.name == "" {
		w.name = "worker-" + uuid.NewString()[:8]
	}
	if w.mockDelay == nil {
		w.mockDelay = w.randomMockDelay
	}
	return w, nil
}

// Run starts Config.Concurrency consumers and blocks until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	n := max(w.cfg.Concurrency, 1)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		workerID := fmt.Sprintf("%s-%d", w.name, i+1)
		g.Go(func() error {
			return w.consume(gctx, workerID)
		})
	}
	w.logger.Info().Int("concurrency", n).Str("worker", w.name).Msg("worker started")
	return g.Wait()
}

func (w *Worker) consume(ctx context.Context, workerID string) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		jobID, err := w.queue.Pop(ctx, w.cfg.PopTimeout)
		switch {
		case errors.Is(err, queue.ErrEmpty):
			continue
		case ctx.Err() != nil:
			return nil
		case err != nil:
			w.logger.Error().Err(err).Str("worker_id", workerID).Msg("pop video job")
			if !sleep(ctx, time.Second) {
				return nil
			}
			continue
		}
		if err := w.ProcessJob(ctx, workerID, jobID); err != nil {
			w.logger.Error().Err(err).Str("job_id", jobID).Str("worker_id", workerID).Msg("process video job")
		}
	}
}

// ProcessJob claims jobID and runs it to SUCCEEDED or FAILED. A job that is
// already claimed or finished is skipped without error.
func (w *Worker) ProcessJob(ctx context.Context, workerID, jobID string) error {
	logger := w.logger.With().Str("job_id", jobID).Str("worker_id", workerID).Logger()

	job, err := w.jobs.Claim(ctx, jobID, workerID, w.cfg.Lease,
		domain.NewJobLog(domain.LogLevelInfo, "Processing started by "+workerID))
	if errors.Is(err, domain.ErrInvalidTransition) {
		logger.Debug().Msg("job already claimed or finished")
		return nil
	}
	if err != nil {
		return fmt.Errorf("claim job: %w", err)
	}
	w.publish(ctx, job)
	logger.Info().Bool("mock_mode", job.MockMode).Str("model", job.Model).Msg("job claimed")

	runCtx, cancelRun := context.WithCancelCause(ctx)
	defer cancelRun(nil)
	jobCtx, cancelTimeout := context.WithTimeout(runCtx, w.cfg.GenerationTimeout)
	defer cancelTimeout()

	stopHeartbeat := w.heartbeat(jobCtx, cancelRun, job.ID, workerID)
	runErr := w.execute(jobCtx, workerID, job)
	stopHeartbeat()

	if runErr == nil {
		logger.Info().Msg("job succeeded")
		return nil
	}
	if errors.Is(runErr, errLeaseLost) || errors.Is(context.Cause(runCtx), errLeaseLost) {
		logger.Warn().Err(runErr).Msg("abandoning job after losing its lease")
		return nil
	}
	reason := failureReason(jobCtx, runErr, w.cfg.GenerationTimeout)
	logger.Warn().Err(runErr).Str("reason", reason).Msg("job failed")
	return w.fail(ctx, workerID, job, reason)
}

// execute runs one job and converts a panic into an error so the catch-all
// in ProcessJob still records FAILED.
func (w *Worker) execute(ctx context.Context, workerID string, job *domain.VideoJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected error: %v", r)
		}
	}()
	if job.MockMode {
		return w.runMock(ctx, workerID, job)
	}
	return w.runGeneration(ctx, workerID, job)
}

func (w *Worker) runGeneration(ctx context.Context, workerID string, job *domain.VideoJob) error {
	if w.generator == nil {
		return domain.ErrProviderUnconfigured
	}
	req := video.GenerateRequest{
		JobID:           job.ID,
		Model:           job.Model,
		Prompt:          job.Prompt,
		AspectRatio:     job.AspectRatio,
		Resolution:      job.Resolution,
		DurationSeconds: job.DurationSeconds,
		GenerateAudio:   job.GenerateAudio,
	}
	if job.ReferenceImageKey != "" {
		ref, err := w.loadReference(ctx, job.ReferenceImageKey)
		if err != nil {
			return err
		}
		req.ReferenceImage = ref
	}

	genCtx, cancelGen := context.WithCancel(ctx)
	defer cancelGen()
	milestones := newMilestones()
	var progressErr error
	req.OnProgress = func(elapsed time.Duration) {
		if progressErr != nil {
			return
		}
		pct := int(elapsed * 100 / typicalGeneration)
		for _, m := range milestones.reached(pct) {
			msg := fmt.Sprintf("Generating video (%ds elapsed)", int(elapsed.Seconds()))
			if err := w.progress(ctx, workerID, job.ID, m, msg); err != nil {
				progressErr = err
				cancelGen()
				return
			}
		}
	}

	asset, err := w.generator.Generate(genCtx, req)
	if progressErr != nil {
		if asset != nil {
			asset.Body.Close()
		}
		return progressErr
	}
	if err != nil {
		return err
	}
	defer asset.Body.Close()

	if err := w.progress(ctx, workerID, job.ID, domain.ProgressStoring, "Storing video"); err != nil {
		return err
	}
	url, err := w.store.Put(ctx, storage.VideoKey(job.ID), asset.Body, asset.ContentType)
	if err != nil {
		return fmt.Errorf("store video: %w", err)
	}
	return w.complete(ctx, workerID, job, url, "Video generation completed successfully")
}

// runMock spreads a random delay over the same milestones as a real run and
// succeeds with the configured sample video.
func (w *Worker) runMock(ctx context.Context, workerID string, job *domain.VideoJob) error {
	delay := w.mockDelay()
	step := delay / time.Duration(len(domain.ProgressMilestones)+1)
	for _, m := range domain.ProgressMilestones {
		if !sleep(ctx, step) {
			return ctx.Err()
		}
		if err := w.progress(ctx, workerID, job.ID, m, "Generating video (Mock Mode)"); err != nil {
			return err
		}
	}
	if !sleep(ctx, step) {
		return ctx.Err()
	}
	if err := w.progress(ctx, workerID, job.ID, domain.ProgressStoring, "Finalizing video (Mock Mode)"); err != nil {
		return err
	}
	return w.complete(ctx, workerID, job, w.cfg.MockArtifactURL, "Video generation completed successfully (Mock Mode)")
}

func (w *Worker) loadReference(ctx context.Context, key string) (*video.ReferenceImage, error) {
	obj, err := w.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load reference image: %w", err)
	}
	defer obj.Body.Close()
	data, err := io.ReadAll(io.LimitReader(obj.Body, MaxReferenceSize+1))
	if err != nil {
		return nil, fmt.Errorf("read reference image: %w", err)
	}
	if len(data) > MaxReferenceSize {
		return nil, errors.New("reference image exceeds 10 MiB")
	}
	return &video.ReferenceImage{ContentType: obj.ContentType, Data: data}, nil
}

func (w *Worker) progress(ctx context.Context, workerID, jobID string, pct int, message string) error {
	job, err := w.jobs.UpdateProgress(ctx, jobID, workerID, pct, message,
		domain.NewJobLog(domain.LogLevelInfo, fmt.Sprintf("%s (%d%%)", message, pct)))
	if errors.Is(err, domain.ErrInvalidTransition) {
		return errLeaseLost
	}
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	w.publish(ctx, job)
	return nil
}

func (w *Worker) complete(ctx context.Context, workerID string, job *domain.VideoJob, url, message string) error {
	done, err := w.jobs.Complete(ctx, job.ID, workerID, url, message,
		domain.NewJobLog(domain.LogLevelInfo, message))
	if errors.Is(err, domain.ErrInvalidTransition) {
		return errLeaseLost
	}
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	w.publish(ctx, done)
	return nil
}

// fail records FAILED with a context detached from ctx so shutdown and
// timeouts still persist the outcome.
func (w *Worker) fail(ctx context.Context, workerID string, job *domain.VideoJob, reason string) error {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalWriteTimeout)
	defer cancel()

	failed, err := w.jobs.Fail(writeCtx, job.ID, workerID, reason,
		domain.NewJobLog(domain.LogLevelError, "Generation failed: "+reason))
	if errors.Is(err, domain.ErrInvalidTransition) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	w.publish(writeCtx, failed)
	w.refundJob(writeCtx, failed)
	return nil
}

func (w *Worker) refundJob(ctx context.Context, job *domain.VideoJob) {
	if !w.refund || job.TokensConsumed <= 0 {
		return
	}
	if err := w.users.Refund(ctx, job.UserID, job.ID, job.TokensConsumed); err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("refund failed job")
	}
}

// heartbeat extends the lease until the returned stop func is called. Losing
// the lease cancels the run.
func (w *Worker) heartbeat(ctx context.Context, cancel context.CancelCauseFunc, jobID, workerID string) func() {
	interval := w.cfg.Heartbeat
	if interval <= 0 {
		return func() {}
	}
	hbCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
			}
			err := w.jobs.Heartbeat(hbCtx, jobID, workerID, w.cfg.Lease)
			if errors.Is(err, domain.ErrInvalidTransition) {
				cancel(errLeaseLost)
				return
			}
			if err != nil && hbCtx.Err() == nil {
				w.logger.Warn().Err(err).Str("job_id", jobID).Msg("heartbeat")
			}
		}
	}()
	return func() {
		stop()
		<-done
	}
}

func (w *Worker) publish(ctx context.Context, job *domain.VideoJob) {
	if w.events == nil || job == nil {
		return
	}
	if err := w.events.Publish(ctx, job.Event()); err != nil {
		w.logger.Warn().Err(err).Str("job_id", job.ID).Msg("publish job event")
	}
}

func (w *Worker) randomMockDelay() time.Duration {
	lo, hi := w.cfg.MockDelayMin, w.cfg.MockDelayMax
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}

func failureReason(ctx context.Context, err error, timeout time.Duration) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Sprintf("generation timed out after %s", timeout)
	case errors.Is(err, context.Canceled):
		return "generation cancelled: worker shutting down"
	case errors.Is(err, domain.ErrProviderUnconfigured):
		return "video provider is not configured"
	default:
		return err.Error()
	}
}

// milestones hands out each progress milestone once, in order.
type milestones struct {
	next int
}

func newMilestones() *milestones { return &milestones{} }

func (m *milestones) reached(pct int) []int {
	var out []int
	for m.next < len(domain.ProgressMilestones) && pct >= domain.ProgressMilestones[m.next] {
		out = append(out, domain.ProgressMilestones[m.next])
		m.next++
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
