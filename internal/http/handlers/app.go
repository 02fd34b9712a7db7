package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/domain"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/infra"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/infra/google"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/jobs"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/middleware"
)

// JobService is the slice of jobs.Service the HTTP layer drives.
type JobService interface {
	Submit(ctx context.Context, in jobs.SubmitInput) (*domain.VideoJob, error)
	Get(ctx context.Context, actor jobs.Actor, jobID string) (*domain.VideoJob, error)
	List(ctx context.Context, actor jobs.Actor, filter domain.JobFilter) ([]domain.VideoJob, int, error)
	Delete(ctx context.Context, actor jobs.Actor, jobID string) error
	DownloadURL(ctx context.Context, actor jobs.Actor, jobID string) (string, error)
	Watch(ctx context.Context, actor jobs.Actor, jobID string) (*domain.VideoJob, *jobs.Subscription, error)
}

// SettingsService is the slice of settings.Service the HTTP layer drives.
type SettingsService interface {
	Current(ctx context.Context) (*domain.DefaultSettings, error)
	Update(ctx context.Context, actorID string, expectedVersion int, patch domain.DefaultsPatch) (*domain.DefaultSettings, error)
	Reset(ctx context.Context, actorID string) (*domain.DefaultSettings, error)
	ApplyToUser(ctx context.Context, userID string) (*domain.UserSettings, error)
	ForUser(ctx context.Context, userID string) (*domain.UserSettings, error)
}

// IdentityVerifier checks Google ID tokens.
type IdentityVerifier interface {
	VerifyIDToken(ctx context.Context, raw string) (*google.Identity, error)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type App struct {
	Jobs     JobService
	Settings SettingsService
	Users    domain.UserRepository
	Verifier IdentityVerifier
	Logger   infra.Logger

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	Checks       map[string]HealthCheck
	SSEKeepAlive time.Duration
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  []domain.FieldError `json:"fields,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, msg string) {
	a.json(w, code, errorBody{Error: errorDetail{Code: errCode, Message: msg}})
}

// fail maps service errors onto HTTP responses. Unknown errors are logged and
// reported as 500 without detail.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		a.json(w, http.StatusUnprocessableEntity, errorBody{Error: errorDetail{
			Code:    "validation_failed",
			Message: "request validation failed",
			Fields:  ve.Fields,
		}})
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", "authentication required")
	case errors.Is(err, domain.ErrForbidden):
		a.error(w, http.StatusForbidden, "forbidden", "access denied")
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrInsufficientBalance):
		a.error(w, http.StatusPaymentRequired, "insufficient_balance", "not enough tokens for this request")
	case errors.Is(err, domain.ErrTooManyActiveJobs):
		a.error(w, http.StatusTooManyRequests, "too_many_active_jobs", "too many jobs in progress")
	case errors.Is(err, domain.ErrJobNotReady):
		a.error(w, http.StatusConflict, "job_not_ready", "video is not available yet")
	case errors.Is(err, domain.ErrJobNotTerminal):
		a.error(w, http.StatusConflict, "job_not_terminal", "job is still in progress")
	case errors.Is(err, domain.ErrConflict):
		a.error(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrUnsupportedTier):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, context.Canceled):
		// client went away; nothing useful to write
	default:
		a.Logger.Error().Err(err).
			Str("path", r.URL.Path).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func (a *App) currentUserID(r *http.Request) string {
	id, _ := middleware.UserIDFromContext(r.Context())
	return id
}

func (a *App) currentActor(r *http.Request) (jobs.Actor, bool) {
	id := a.currentUserID(r)
	if id == "" {
		return jobs.Actor{}, false
	}
	return jobs.Actor{UserID: id, Admin: middleware.RoleFromContext(r.Context()) == domain.UserRoleAdmin}, true
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
