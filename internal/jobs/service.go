package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/domain"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/infra"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/storage"
)

// SubmitInput is the body of a video job submission.
type SubmitInput struct {
	UserID          string  `json:"-" validate:"required"`
	Locale          string  `json:"-"`
	Prompt          string  `json:"prompt" validate:"required,max=2000"`
	Model           string  `json:"model" validate:"veo_model"`
	Resolution      string  `json:"resolution" validate:"veo_resolution"`
	AspectRatio     string  `json:"aspectRatio" validate:"veo_aspect"`
	DurationSeconds int     `json:"durationSeconds" validate:"veo_duration"`
	GenerateAudio   bool    `json:"generateAudio"`
	MockMode        bool    `json:"mockMode"`
	Reference       *Upload `json:"-" validate:"-"`
}

// Upload is a reference image streamed from a multipart request.
type Upload struct {
	ContentType string
	Size        int64
	Body        io.Reader
}

// ApplyDefaults fills omitted generation parameters.
func (in *SubmitInput) ApplyDefaults() {
	in.Prompt = strings.TrimSpace(in.Prompt)
	if in.Model == "" {
		in.Model = domain.DefaultModel
	}
	if in.Resolution == "" {
		in.Resolution = domain.DefaultResolution
	}
	if in.AspectRatio == "" {
		in.AspectRatio = domain.DefaultAspectRatio
	}
	if in.DurationSeconds == 0 {
		in.DurationSeconds = domain.DefaultDuration
	}
	if in.Locale == "" {
		in.Locale = "en"
	}
}

type ServiceOptions struct {
	Jobs      domain.JobRepository
	Store     storage.ArtifactStore
	Queue     Enqueuer
	Events    EventSubscriber
	Validator *Validator
	Billing   infra.BillingConfig
	Logger    infra.Logger
}

// Service implements job submission and the status queries.
type Service struct {
	jobs     domain.JobRepository
	store    storage.ArtifactStore
	queue    Enqueuer
	events   EventSubscriber
	validate *Validator
	billing  infra.BillingConfig
	logger   infra.Logger
}

func NewService(opts ServiceOptions) (*Service, error) {
	if opts.Jobs == nil {
		return nil, errors.New("jobs: JobRepository is required")
	}
	if opts.Queue == nil {
		return nil, errors.New("jobs: Enqueuer is required")
	}
	if opts.Validator == nil {
		opts.Validator = NewValidator()
	}
	return &Service{
		jobs:     opts.Jobs,
		store:    opts.Store,
		queue:    opts.Queue,
		events:   opts.Events,
		validate: opts.Validator,
		billing:  opts.Billing,
		logger:   infra.Component(opts.Logger, "jobs.service"),
	}, nil
}

// Submit validates, bills and records a new job, then hands it to the workers.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*domain.VideoJob, error) {
	in.ApplyDefaults()
	if err := s.validate.ValidateSubmit(in); err != nil {
		return nil, err
	}

	job := &domain.VideoJob{
		ID:              uuid.NewString(),
		UserID:          in.UserID,
		Prompt:          in.Prompt,
		Model:           in.Model,
		Resolution:      in.Resolution,
		AspectRatio:     in.AspectRatio,
		DurationSeconds: in.DurationSeconds,
		GenerateAudio:   in.GenerateAudio,
		MockMode:        in.MockMode,
		Locale:          in.Locale,
		StatusMessage:   "Queued for processing",
	}
	if in.MockMode {
		job.StatusMessage = "Queued for processing (Mock Mode)"
	}

	if in.Reference != nil {
		if s.store == nil {
			return nil, errors.New("jobs: artifact store is not configured")
		}
		key := storage.ReferenceKey(job.ID, in.Reference.ContentType)
		if _, err := s.store.Put(ctx, key, io.LimitReader(in.Reference.Body, MaxReferenceSize), in.Reference.ContentType); err != nil {
			return nil, fmt.Errorf("store reference image: %w", err)
		}
		job.ReferenceImageKey = key
	}

	created, err := s.jobs.CreateCharged(ctx, job, domain.Charge{
		Cost:      s.billing.VideoTokenCost,
		MaxActive: s.billing.MaxActiveJobsPerUser,
	})
	if err != nil {
		if job.ReferenceImageKey != "" {
			if derr := s.store.Delete(context.WithoutCancel(ctx), job.ReferenceImageKey); derr != nil {
				s.logger.Warn().Err(derr).Str("job_id", job.ID).Msg("remove orphaned reference image")
			}
		}
		return nil, err
	}

	if err := s.queue.Enqueue(ctx, created.ID); err != nil {
		// The sweeper re-enqueues QUEUED jobs that sit unclaimed.
		s.logger.Error().Err(err).Str("job_id", created.ID).Msg("enqueue video job")
	}

	s.logger.Info().
		Str("job_id", created.ID).
		Str("user_id", created.UserID).
		Str("model", created.Model).
		Bool("mock_mode", created.MockMode).
		Msg("video job submitted")
	return created, nil
}

// Get returns a job visible to actor.
func (s *Service) Get(ctx context.Context, actor Actor, jobID string) (*domain.VideoJob, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, domain.ErrNotFound
	}
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.OwnedBy(actor.UserID) && !actor.Admin {
		return nil, domain.ErrForbidden
	}
	return job, nil
}

// List pages through the actor's own jobs, newest first.
func (s *Service) List(ctx context.Context, actor Actor, filter domain.JobFilter) ([]domain.VideoJob, int, error) {
	filter.UserID = actor.UserID
	return s.jobs.List(ctx, filter)
}

// Delete removes one of the actor's terminal jobs.
func (s *Service) Delete(ctx context.Context, actor Actor, jobID string) error {
	if _, err := uuid.Parse(jobID); err != nil {
		return domain.ErrNotFound
	}
	if err := s.jobs.Delete(ctx, jobID, actor.UserID); err != nil {
		return err
	}
	s.logger.Info().Str("job_id", jobID).Str("user_id", actor.UserID).Msg("video job deleted")
	return nil
}

// DownloadURL returns the artifact location of a succeeded job.
func (s *Service) DownloadURL(ctx context.Context, actor Actor, jobID string) (string, error) {
	job, err := s.Get(ctx, actor, jobID)
	if err != nil {
		return "", err
	}
	if job.Status != domain.JobStatusSucceeded || job.ArtifactURL == "" {
		return "", domain.ErrJobNotReady
	}
	return job.ArtifactURL, nil
}

// Watch returns the current snapshot and, for non-terminal jobs, a live
// subscription opened before the snapshot was read.
func (s *Service) Watch(ctx context.Context, actor Actor, jobID string) (*domain.VideoJob, *Subscription, error) {
	if _, err := s.Get(ctx, actor, jobID); err != nil {
		return nil, nil, err
	}
	var sub *Subscription
	if s.events != nil {
		var err error
		sub, err = s.events.Subscribe(ctx, jobID)
		if err != nil {
			return nil, nil, err
		}
	}
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		_ = sub.Close()
		return nil, nil, err
	}
	if job.Status.IsTerminal() {
		_ = sub.Close()
		return job, nil, nil
	}
	return job, sub, nil
}
