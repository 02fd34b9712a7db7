package domain

import "time"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "QUEUED"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusSucceeded  JobStatus = "SUCCEEDED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Progress checkpoints written by the worker.
const (
	ProgressQueued  = 0
	ProgressClaimed = 5
	ProgressStoring = 90
	ProgressDone    = 100
)

// ProgressMilestones are the coarse steps reported while awaiting generation.
var ProgressMilestones = []int{20, 40, 60, 80}

// ParseJobStatus converts raw input into a JobStatus.
func ParseJobStatus(s string) (JobStatus, bool) {
	st := JobStatus(s)
	return st, st.Valid()
}

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusProcessing, JobStatusSucceeded, JobStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// CanTransition reports whether moving from s to next is allowed.
// PROCESSING -> PROCESSING is the progress update edge.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobStatusQueued:
		return next == JobStatusProcessing
	case JobStatusProcessing:
		return next == JobStatusProcessing || next == JobStatusSucceeded || next == JobStatusFailed
	default:
		return false
	}
}

// LogLevel classifies job log entries.
type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// JobLog is one entry of the append-only job log.
type JobLog struct {
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
}

// NewJobLog stamps a log entry with the current UTC time.
func NewJobLog(level LogLevel, message string) JobLog {
	return JobLog{Timestamp: time.Now().UTC(), Level: level, Message: message}
}

// VideoJob is one video-generation request and its tracked lifecycle.
type VideoJob struct {
	ID                string
	UserID            string
	Prompt            string
	Model             string
	Resolution        string
	AspectRatio       string
	DurationSeconds   int
	GenerateAudio     bool
	MockMode          bool
	ReferenceImageKey string
	Locale            string

	Status        JobStatus
	StatusMessage string
	Progress      int
	Logs          []JobLog
	Attempt       int

	ArtifactURL    string
	ErrorMessage   string
	TokensConsumed int

	WorkerID       string
	LeaseExpiresAt *time.Time

	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// OwnedBy reports whether userID submitted the job.
func (j *VideoJob) OwnedBy(userID string) bool {
	return j != nil && userID != "" && j.UserID == userID
}

// Event returns the state-change event describing the job's current row.
func (j *VideoJob) Event() JobEvent {
	return JobEvent{
		JobID:         j.ID,
		UserID:        j.UserID,
		Status:        j.Status,
		Progress:      j.Progress,
		StatusMessage: j.StatusMessage,
		ArtifactURL:   j.ArtifactURL,
		ErrorMessage:  j.ErrorMessage,
		At:            j.UpdatedAt,
	}
}

// JobEvent is published by the worker after every state write.
type JobEvent struct {
	JobID         string    `json:"jobId"`
	UserID        string    `json:"userId"`
	Status        JobStatus `json:"status"`
	Progress      int       `json:"progressPercentage"`
	StatusMessage string    `json:"statusMessage,omitempty"`
	ArtifactURL   string    `json:"artifactUrl,omitempty"`
	ErrorMessage  string    `json:"errorMessage,omitempty"`
	At            time.Time `json:"at"`
}

// JobFilter narrows job listings.
type JobFilter struct {
	UserID string
	Status JobStatus
	Limit  int
	Offset int
}

// Supported request enumerations.
var (
	SupportedModels = []string{
		"veo-3.1-generate-preview",
		"veo-3.1-fast-generate-preview",
		"veo-3.0-generate-001",
		"veo-3.0-fast-generate-001",
	}
	SupportedResolutions  = []string{"720p", "1080p"}
	SupportedAspectRatios = []string{"16:9", "9:16"}
	SupportedDurations    = []int{4, 6, 8}
)

const (
	DefaultModel       = "veo-3.1-fast-generate-preview"
	DefaultResolution  = "720p"
	DefaultAspectRatio = "16:9"
	DefaultDuration    = 8
)
