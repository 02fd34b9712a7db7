package domain

import (
	"context"
	"time"
)

// Charge describes the billing applied atomically with job creation.
type Charge struct {
	Cost      int
	MaxActive int
}

// JobRepository persists video jobs. Every status write is guarded by the
// expected current status and, once claimed, by the owning worker id.
type JobRepository interface {
	CreateCharged(ctx context.Context, job *VideoJob, charge Charge) (*VideoJob, error)
	GetByID(ctx context.Context, jobID string) (*VideoJob, error)
	List(ctx context.Context, filter JobFilter) ([]VideoJob, int, error)
	Delete(ctx context.Context, jobID, userID string) error

	Claim(ctx context.Context, jobID, workerID string, lease time.Duration, entry JobLog) (*VideoJob, error)
	UpdateProgress(ctx context.Context, jobID, workerID string, progress int, message string, entry JobLog) (*VideoJob, error)
	Heartbeat(ctx context.Context, jobID, workerID string, lease time.Duration) error
	Complete(ctx context.Context, jobID, workerID, artifactURL, message string, entry JobLog) (*VideoJob, error)
	Fail(ctx context.Context, jobID, workerID, reason string, entry JobLog) (*VideoJob, error)

	FailExpiredLeases(ctx context.Context, reason string, limit int) ([]VideoJob, error)
	ClaimStaleQueued(ctx context.Context, olderThan time.Duration, limit int) ([]string, error)
}

// UserRepository defines access methods for users and their token ledger.
type UserRepository interface {
	UpsertGoogleUser(ctx context.Context, user *User, tier SubscriptionTier) (*User, bool, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	SetTier(ctx context.Context, userID string, tier SubscriptionTier) (*User, error)
	GrantTokens(ctx context.Context, userID string, amount int, description string) (*User, error)
	Refund(ctx context.Context, userID, jobID string, amount int) error
	ListTransactions(ctx context.Context, userID string, limit, offset int) ([]TokenTransaction, error)
}

// SettingsRepository stores the defaults singleton and per-user settings.
type SettingsRepository interface {
	GetDefaults(ctx context.Context) (*DefaultSettings, error)
	SeedDefaults(ctx context.Context, d DefaultSettings) (*DefaultSettings, error)
	UpdateDefaults(ctx context.Context, expectedVersion int, d DefaultSettings) (*DefaultSettings, error)
	GetUserSettings(ctx context.Context, userID string) (*UserSettings, error)
	UpsertUserSettings(ctx context.Context, s UserSettings) (*UserSettings, error)
}
