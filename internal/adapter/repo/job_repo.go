package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/domain"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/infra"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/sqlinline"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	db infra.TxRunner
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(db infra.TxRunner) *JobRepositoryPG {
	return &JobRepositoryPG{db: db}
}

// CreateCharged debits the owner's balance, records the ledger entry and
// inserts the job in one transaction. The user row is locked so concurrent
// submissions by the same user serialize on the balance check.
func (r *JobRepositoryPG) CreateCharged(ctx context.Context, job *domain.VideoJob, charge domain.Charge) (*domain.VideoJob, error) {
	if job == nil {
		return nil, errors.New("job is required")
	}
	created := *job
	created.Status = domain.JobStatusQueued
	created.Progress = domain.ProgressQueued
	created.TokensConsumed = charge.Cost
	if len(created.Logs) == 0 {
		created.Logs = []domain.JobLog{domain.NewJobLog(domain.LogLevelInfo, "Job queued")}
	}
	if created.StatusMessage == "" {
		created.StatusMessage = "Queued for processing"
	}
	logs, err := json.Marshal(created.Logs)
	if err != nil {
		return nil, fmt.Errorf("encode job logs: %w", err)
	}

	err = r.db.InTx(ctx, func(tx infra.SQLExecutor) error {
		var tier domain.SubscriptionTier
		var balance int
		if err := tx.QueryRow(ctx, sqlinline.QLockUserBalance, created.UserID).Scan(&tier, &balance); err != nil {
			return mapDBError(err)
		}

		if charge.MaxActive > 0 {
			var active int
			if err := tx.QueryRow(ctx, sqlinline.QCountActiveVideoJobs, created.UserID).Scan(&active); err != nil {
				return mapDBError(err)
			}
			if active >= charge.MaxActive {
				return domain.ErrTooManyActiveJobs
			}
		}

		after := balance
		if !tier.Unlimited() {
			if balance < charge.Cost {
				return domain.ErrInsufficientBalance
			}
			after = balance - charge.Cost
			if _, err := tx.Exec(ctx, sqlinline.QUpdateUserBalance, created.UserID, after); err != nil {
				return mapDBError(err)
			}
		}

		if err := tx.QueryRow(ctx, sqlinline.QInsertVideoJob,
			created.ID,
			created.UserID,
			created.Prompt,
			created.Model,
			created.Resolution,
			created.AspectRatio,
			created.DurationSeconds,
			created.GenerateAudio,
			created.MockMode,
			created.ReferenceImageKey,
			created.Locale,
			created.StatusMessage,
			logs,
			created.TokensConsumed,
		).Scan(&created.CreatedAt, &created.UpdatedAt); err != nil {
			return mapDBError(err)
		}

		if charge.Cost > 0 {
			if _, err := tx.Exec(ctx, sqlinline.QInsertTokenTransaction,
				created.UserID,
				created.ID,
				string(domain.TxConsumption),
				-charge.Cost,
				balance,
				after,
				"video_generation",
			); err != nil {
				return mapDBError(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.VideoJob, error) {
	return scanJob(r.db.QueryRow(ctx, sqlinline.QSelectVideoJob, jobID))
}

// List returns one page of the user's jobs, newest first, and the total count.
func (r *JobRepositoryPG) List(ctx context.Context, filter domain.JobFilter) ([]domain.VideoJob, int, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.db.QueryRow(ctx, sqlinline.QCountVideoJobs, filter.UserID, string(filter.Status)).Scan(&total); err != nil {
		return nil, 0, mapDBError(err)
	}

	rows, err := r.db.Query(ctx, sqlinline.QListVideoJobs, filter.UserID, string(filter.Status), limit, offset)
	if err != nil {
		return nil, 0, mapDBError(err)
	}
	defer rows.Close()

	jobs := make([]domain.VideoJob, 0, limit)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapDBError(err)
	}
	return jobs, total, nil
}

// Delete removes a terminal job owned by userID. The artifact is left in place.
func (r *JobRepositoryPG) Delete(ctx context.Context, jobID, userID string) error {
	tag, err := r.db.Exec(ctx, sqlinline.QDeleteTerminalVideoJob, jobID, userID)
	if err != nil {
		return mapDBError(err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	job, err := r.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if !job.OwnedBy(userID) {
		return domain.ErrNotFound
	}
	return domain.ErrJobNotTerminal
}

// Claim moves a QUEUED job to PROCESSING under workerID's lease.
func (r *JobRepositoryPG) Claim(ctx context.Context, jobID, workerID string, lease time.Duration, entry domain.JobLog) (*domain.VideoJob, error) {
	logs, err := encodeEntry(entry)
	if err != nil {
		return nil, err
	}
	job, err := scanJob(r.db.QueryRow(ctx, sqlinline.QClaimVideoJob, jobID, workerID, domain.ProgressClaimed, entry.Message, lease.Seconds(), logs))
	return job, transitionErr(err)
}

// UpdateProgress raises progress (never lowers it) and appends a log entry.
func (r *JobRepositoryPG) UpdateProgress(ctx context.Context, jobID, workerID string, progress int, message string, entry domain.JobLog) (*domain.VideoJob, error) {
	logs, err := encodeEntry(entry)
	if err != nil {
		return nil, err
	}
	job, err := scanJob(r.db.QueryRow(ctx, sqlinline.QUpdateVideoJobProgress, jobID, workerID, progress, message, logs))
	return job, transitionErr(err)
}

// Heartbeat extends the processing lease.
func (r *JobRepositoryPG) Heartbeat(ctx context.Context, jobID, workerID string, lease time.Duration) error {
	tag, err := r.db.Exec(ctx, sqlinline.QHeartbeatVideoJob, jobID, workerID, lease.Seconds())
	if err != nil {
		return mapDBError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

// Complete records the artifact and moves the job to SUCCEEDED.
func (r *JobRepositoryPG) Complete(ctx context.Context, jobID, workerID, artifactURL, message string, entry domain.JobLog) (*domain.VideoJob, error) {
	logs, err := encodeEntry(entry)
	if err != nil {
		return nil, err
	}
	job, err := scanJob(r.db.QueryRow(ctx, sqlinline.QCompleteVideoJob, jobID, workerID, artifactURL, message, logs))
	return job, transitionErr(err)
}

// Fail records reason and moves the job to FAILED.
func (r *JobRepositoryPG) Fail(ctx context.Context, jobID, workerID, reason string, entry domain.JobLog) (*domain.VideoJob, error) {
	logs, err := encodeEntry(entry)
	if err != nil {
		return nil, err
	}
	job, err := scanJob(r.db.QueryRow(ctx, sqlinline.QFailVideoJob, jobID, workerID, reason, entry.Message, logs))
	return job, transitionErr(err)
}

// FailExpiredLeases fails PROCESSING jobs whose worker stopped heartbeating.
func (r *JobRepositoryPG) FailExpiredLeases(ctx context.Context, reason string, limit int) ([]domain.VideoJob, error) {
	logs, err := encodeEntry(domain.NewJobLog(domain.LogLevelError, reason))
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, sqlinline.QFailExpiredVideoJobs, reason, limit, logs)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()
	var jobs []domain.VideoJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, mapDBError(rows.Err())
}

// ClaimStaleQueued returns QUEUED jobs untouched for olderThan and bumps their
// updated_at so the next sweep skips them.
func (r *JobRepositoryPG) ClaimStaleQueued(ctx context.Context, olderThan time.Duration, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx, sqlinline.QClaimStaleQueuedVideoJobs, olderThan.Seconds(), limit)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapDBError(err)
		}
		ids = append(ids, id)
	}
	return ids, mapDBError(rows.Err())
}

func encodeEntry(entry domain.JobLog) ([]byte, error) {
	b, err := json.Marshal([]domain.JobLog{entry})
	if err != nil {
		return nil, fmt.Errorf("encode job log: %w", err)
	}
	return b, nil
}

// transitionErr reports a guarded update that matched no row as a rejected transition.
func transitionErr(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrInvalidTransition
	}
	return err
}

func scanJob(row pgx.Row) (*domain.VideoJob, error) {
	var job domain.VideoJob
	var logs []byte
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.Prompt,
		&job.Model,
		&job.Resolution,
		&job.AspectRatio,
		&job.DurationSeconds,
		&job.GenerateAudio,
		&job.MockMode,
		&job.ReferenceImageKey,
		&job.Locale,
		&job.Status,
		&job.StatusMessage,
		&job.Progress,
		&logs,
		&job.Attempt,
		&job.ArtifactURL,
		&job.ErrorMessage,
		&job.TokensConsumed,
		&job.WorkerID,
		&job.LeaseExpiresAt,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.StartedAt,
		&job.CompletedAt,
	); err != nil {
		return nil, mapDBError(err)
	}
	if len(logs) > 0 {
		if err := json.Unmarshal(logs, &job.Logs); err != nil {
			return nil, fmt.Errorf("decode job logs: %w", err)
		}
	}
	return &job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
