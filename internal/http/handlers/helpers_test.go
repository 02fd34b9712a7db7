package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/domain"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/infra/google"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/jobs"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/middleware"
)

const testJobID = "6f1f0c4e-8d1c-4f5e-9b7a-2c3d4e5f6a7b"

type fakeJobs struct {
	submitted  []jobs.SubmitInput
	refBytes   []byte
	submitErr  error
	job        *domain.VideoJob
	getErr     error
	list       []domain.VideoJob
	total      int
	lastFilter domain.JobFilter
	lastActor  jobs.Actor
	deleteErr  error
	deleted    []string
	url        string
	urlErr     error
	sub        *jobs.Subscription
}

func (f *fakeJobs) Submit(_ context.Context, in jobs.SubmitInput) (*domain.VideoJob, error) {
	if in.Reference != nil {
		f.refBytes, _ = io.ReadAll(in.Reference.Body)
	}
	f.submitted = append(f.submitted, in)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.job, nil
}

func (f *fakeJobs) Get(_ context.Context, actor jobs.Actor, _ string) (*domain.VideoJob, error) {
	f.lastActor = actor
	return f.job, f.getErr
}

func (f *fakeJobs) List(_ context.Context, actor jobs.Actor, filter domain.JobFilter) ([]domain.VideoJob, int, error) {
	f.lastActor = actor
	f.lastFilter = filter
	return f.list, f.total, nil
}

func (f *fakeJobs) Delete(_ context.Context, _ jobs.Actor, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeJobs) DownloadURL(context.Context, jobs.Actor, string) (string, error) {
	return f.url, f.urlErr
}

func (f *fakeJobs) Watch(context.Context, jobs.Actor, string) (*domain.VideoJob, *jobs.Subscription, error) {
	return f.job, f.sub, f.getErr
}

type fakeVerifier struct {
	ident *google.Identity
	err   error
}

func (f fakeVerifier) VerifyIDToken(context.Context, string) (*google.Identity, error) {
	return f.ident, f.err
}

func queuedJob() *domain.VideoJob {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &domain.VideoJob{
		ID:              testJobID,
		UserID:          "user-1",
		Prompt:          "a cat surfing",
		Model:           domain.DefaultModel,
		Resolution:      domain.DefaultResolution,
		AspectRatio:     domain.DefaultAspectRatio,
		DurationSeconds: domain.DefaultDuration,
		Status:          domain.JobStatusQueued,
		StatusMessage:   "Queued for processing",
		Logs:            []domain.JobLog{{Timestamp: now, Level: domain.LogLevelInfo, Message: "Job queued"}},
		TokensConsumed:  50,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func newTestApp() *App {
	return &App{
		Logger:       zerolog.Nop(),
		JWTSecret:    "test-secret",
		JWTIssuer:    "ai-studio",
		JWTTTL:       time.Hour,
		SSEKeepAlive: time.Hour,
	}
}

// serve routes a single request through pattern so chi URL params resolve.
func serve(h http.HandlerFunc, method, pattern string, req *http.Request, userID string, role domain.UserRole) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)
	if userID != "" {
		req = req.WithContext(middleware.ContextWithUser(req.Context(), userID, role))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func mustStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body=%s", rec.Code, want, rec.Body.String())
	}
}
