package jobs

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/domain"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/infra"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/providers/video"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/queue"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/storage"
)

// memJobs is an in-memory JobRepository enforcing the same guards as the SQL.
type memJobs struct {
	mu        sync.Mutex
	jobs      map[string]*domain.VideoJob
	history   map[string][]int
	heartbeat int
}

func newMemJobs(jobs ...domain.VideoJob) *memJobs {
	m := &memJobs{jobs: map[string]*domain.VideoJob{}, history: map[string][]int{}}
	for i := range jobs {
		j := jobs[i]
		m.jobs[j.ID] = &j
	}
	return m
}

func (m *memJobs) snapshot(id string) domain.VideoJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.jobs[id]
}

func (m *memJobs) owned(jobID, workerID string) (*domain.VideoJob, error) {
	j, ok := m.jobs[jobID]
	if !ok || j.Status != domain.JobStatusProcessing || j.WorkerID != workerID {
		return nil, domain.ErrInvalidTransition
	}
	return j, nil
}

func (m *memJobs) CreateCharged(ctx context.Context, job *domain.VideoJob, charge domain.Charge) (*domain.VideoJob, error) {
	return nil, errors.New("not used")
}

func (m *memJobs) GetByID(ctx context.Context, jobID string) (*domain.VideoJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *j
	return &c, nil
}

func (m *memJobs) List(ctx context.Context, filter domain.JobFilter) ([]domain.VideoJob, int, error) {
	return nil, 0, errors.New("not used")
}

func (m *memJobs) Delete(ctx context.Context, jobID, userID string) error {
	return errors.New("not used")
}

func (m *memJobs) Claim(ctx context.Context, jobID, workerID string, lease time.Duration, entry domain.JobLog) (*domain.VideoJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok || j.Status != domain.JobStatusQueued {
		return nil, domain.ErrInvalidTransition
	}
	j.Status = domain.JobStatusProcessing
	j.Progress = domain.ProgressClaimed
	j.WorkerID = workerID
	j.Attempt++
	j.Logs = append(j.Logs, entry)
	m.history[jobID] = append(m.history[jobID], j.Progress)
	c := *j
	return &c, nil
}

func (m *memJobs) UpdateProgress(ctx context.Context, jobID, workerID string, progress int, message string, entry domain.JobLog) (*domain.VideoJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, err := m.owned(jobID, workerID)
	if err != nil {
		return nil, err
	}
	j.Progress = min(max(j.Progress, progress), 99)
	j.StatusMessage = message
	j.Logs = append(j.Logs, entry)
	m.history[jobID] = append(m.history[jobID], j.Progress)
	c := *j
	return &c, nil
}

func (m *memJobs) Heartbeat(ctx context.Context, jobID, workerID string, lease time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heartbeat++
	_, err := m.owned(jobID, workerID)
	return err
}

func (m *memJobs) Complete(ctx context.Context, jobID, workerID, artifactURL, message string, entry domain.JobLog) (*domain.VideoJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, err := m.owned(jobID, workerID)
	if err != nil {
		return nil, err
	}
	j.Status = domain.JobStatusSucceeded
	j.Progress = domain.ProgressDone
	j.ArtifactURL = artifactURL
	j.StatusMessage = message
	j.Logs = append(j.Logs, entry)
	m.history[jobID] = append(m.history[jobID], j.Progress)
	c := *j
	return &c, nil
}

func (m *memJobs) Fail(ctx context.Context, jobID, workerID, reason string, entry domain.JobLog) (*domain.VideoJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, err := m.owned(jobID, workerID)
	if err != nil {
		return nil, err
	}
	j.Status = domain.JobStatusFailed
	j.ErrorMessage = reason
	j.Logs = append(j.Logs, entry)
	c := *j
	return &c, nil
}

func (m *memJobs) FailExpiredLeases(ctx context.Context, reason string, limit int) ([]domain.VideoJob, error) {
	return nil, nil
}

func (m *memJobs) ClaimStaleQueued(ctx context.Context, olderThan time.Duration, limit int) ([]string, error) {
	return nil, nil
}

type stubGenerator struct {
	generate func(ctx context.Context, req video.GenerateRequest) (*video.Asset, error)
}

func (g stubGenerator) Generate(ctx context.Context, req video.GenerateRequest) (*video.Asset, error) {
	return g.generate(ctx, req)
}

type recordingEvents struct {
	mu     sync.Mutex
	events []domain.JobEvent
}

func (r *recordingEvents) Publish(ctx context.Context, e domain.JobEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

type recordingRefunds struct {
	calls []int
}

func (r *recordingRefunds) Refund(ctx context.Context, userID, jobID string, amount int) error {
	r.calls = append(r.calls, amount)
	return nil
}

type sliceQueue struct {
	mu  sync.Mutex
	ids []string
}

func (q *sliceQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	q.mu.Lock()
	if len(q.ids) > 0 {
		id := q.ids[0]
		q.ids = q.ids[1:]
		q.mu.Unlock()
		return id, nil
	}
	q.mu.Unlock()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(timeout):
		return "", queue.ErrEmpty
	}
}

func queuedJob(id string, mock bool) domain.VideoJob {
	return domain.VideoJob{
		ID:              id,
		UserID:          "user-1",
		Prompt:          "a cat surfing",
		Model:           domain.DefaultModel,
		Resolution:      "720p",
		AspectRatio:     "16:9",
		DurationSeconds: 8,
		MockMode:        mock,
		Status:          domain.JobStatusQueued,
		TokensConsumed:  50,
	}
}

func testWorkerConfig() infra.WorkerConfig {
	return infra.WorkerConfig{
		Concurrency:       2,
		PopTimeout:        10 * time.Millisecond,
		Lease:             time.Minute,
		Heartbeat:         time.Hour,
		GenerationTimeout: time.Second,
		MockArtifactURL:   "https://example.com/sample.mp4",
	}
}

type workerDeps struct {
	jobs    *memJobs
	events  *recordingEvents
	refunds *recordingRefunds
	store   *storage.FileStore
}

func newTestWorker(t *testing.T, gen video.Generator, cfg infra.WorkerConfig, refund bool, jobs ...domain.VideoJob) (*Worker, *workerDeps) {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir(), "http://localhost:8080/static")
	require.NoError(t, err)
	deps := &workerDeps{
		jobs:    newMemJobs(jobs...),
		events:  &recordingEvents{},
		refunds: &recordingRefunds{},
		store:   store,
	}
	w, err := NewWorker(WorkerOptions{
		Jobs:            deps.jobs,
		Users:           deps.refunds,
		Queue:           &sliceQueue{},
		Generator:       gen,
		Store:           store,
		Events:          deps.events,
		Config:          cfg,
		RefundOnFailure: refund,
		Logger:          zerolog.Nop(),
		Name:            "test",
		MockDelay:       func() time.Duration { return 0 },
	})
	require.NoError(t, err)
	return w, deps
}

func assertMonotonic(t *testing.T, progress []int) {
	t.Helper()
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1], "progress went backwards: %v", progress)
	}
}

func TestProcessJob_MockModeSucceeds(t *testing.T) {
	w, deps := newTestWorker(t, nil, testWorkerConfig(), false, queuedJob("job-1", true))

	require.NoError(t, w.ProcessJob(context.Background(), "test-1", "job-1"))

	job := deps.jobs.snapshot("job-1")
	assert.Equal(t, domain.JobStatusSucceeded, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, "https://example.com/sample.mp4", job.ArtifactURL)
	assert.Contains(t, job.StatusMessage, "(Mock Mode)")
	assert.Empty(t, job.ErrorMessage)
	assert.Equal(t, []int{5, 20, 40, 60, 80, 90, 100}, deps.jobs.history["job-1"])
	assert.Len(t, deps.events.events, 7)
	assert.Equal(t, domain.JobStatusSucceeded, deps.events.events[6].Status)
}

func TestProcessJob_RealModeStoresArtifact(t *testing.T) {
	gen := stubGenerator{generate: func(ctx context.Context, req video.GenerateRequest) (*video.Asset, error) {
		assert.Equal(t, "a cat surfing", req.Prompt)
		req.OnProgress(30 * time.Second)
		req.OnProgress(90 * time.Second)
		req.OnProgress(10 * time.Minute)
		return &video.Asset{Body: io.NopCloser(strings.NewReader("mp4")), ContentType: "video/mp4"}, nil
	}}
	w, deps := newTestWorker(t, gen, testWorkerConfig(), false, queuedJob("job-2", false))

	require.NoError(t, w.ProcessJob(context.Background(), "test-1", "job-2"))

	job := deps.jobs.snapshot("job-2")
	assert.Equal(t, domain.JobStatusSucceeded, job.Status)
	assert.Equal(t, "http://localhost:8080/static/generated/videos/job-2/video.mp4", job.ArtifactURL)
	assert.Equal(t, []int{5, 20, 40, 60, 80, 90, 100}, deps.jobs.history["job-2"])
	assertMonotonic(t, deps.jobs.history["job-2"])

	obj, err := deps.store.Get(context.Background(), storage.VideoKey("job-2"))
	require.NoError(t, err)
	obj.Body.Close()
}

func TestProcessJob_PassesReferenceImage(t *testing.T) {
	gen := stubGenerator{generate: func(ctx context.Context, req video.GenerateRequest) (*video.Asset, error) {
		require.NotNil(t, req.ReferenceImage)
		assert.Equal(t, "image/png", req.ReferenceImage.ContentType)
		assert.Equal(t, "png-bytes", string(req.ReferenceImage.Data))
		return &video.Asset{Body: io.NopCloser(strings.NewReader("mp4")), ContentType: "video/mp4"}, nil
	}}
	job := queuedJob("job-ref", false)
	job.ReferenceImageKey = storage.ReferenceKey("job-ref", "image/png")
	w, deps := newTestWorker(t, gen, testWorkerConfig(), false, job)
	_, err := deps.store.Put(context.Background(), job.ReferenceImageKey, strings.NewReader("png-bytes"), "image/png")
	require.NoError(t, err)

	require.NoError(t, w.ProcessJob(context.Background(), "test-1", "job-ref"))
	assert.Equal(t, domain.JobStatusSucceeded, deps.jobs.snapshot("job-ref").Status)
}

func TestProcessJob_ProviderErrorFailsAndRefunds(t *testing.T) {
	gen := stubGenerator{generate: func(ctx context.Context, req video.GenerateRequest) (*video.Asset, error) {
		return nil, errors.New("gemini status 400: prompt blocked")
	}}
	w, deps := newTestWorker(t, gen, testWorkerConfig(), true, queuedJob("job-3", false))

	require.NoError(t, w.ProcessJob(context.Background(), "test-1", "job-3"))

	job := deps.jobs.snapshot("job-3")
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "prompt blocked")
	assert.Empty(t, job.ArtifactURL)
	assert.Equal(t, domain.LogLevelError, job.Logs[len(job.Logs)-1].Level)
	assert.Equal(t, []int{50}, deps.refunds.calls)
}

func TestProcessJob_PanicIsRecordedAsFailure(t *testing.T) {
	gen := stubGenerator{generate: func(ctx context.Context, req video.GenerateRequest) (*video.Asset, error) {
		panic("nil map write")
	}}
	w, deps := newTestWorker(t, gen, testWorkerConfig(), false, queuedJob("job-4", false))

	require.NoError(t, w.ProcessJob(context.Background(), "test-1", "job-4"))

	job := deps.jobs.snapshot("job-4")
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "nil map write")
	assert.Empty(t, deps.refunds.calls)
}

func TestProcessJob_TimeoutFails(t *testing.T) {
	gen := stubGenerator{generate: func(ctx context.Context, req video.GenerateRequest) (*video.Asset, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	cfg := testWorkerConfig()
	cfg.GenerationTimeout = 20 * time.Millisecond
	w, deps := newTestWorker(t, gen, cfg, false, queuedJob("job-5", false))

	require.NoError(t, w.ProcessJob(context.Background(), "test-1", "job-5"))

	job := deps.jobs.snapshot("job-5")
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "timed out")
}

func TestProcessJob_SkipsAlreadyClaimed(t *testing.T) {
	job := queuedJob("job-6", true)
	job.Status = domain.JobStatusProcessing
	job.WorkerID = "other"
	w, deps := newTestWorker(t, nil, testWorkerConfig(), false, job)

	require.NoError(t, w.ProcessJob(context.Background(), "test-1", "job-6"))
	assert.Equal(t, "other", deps.jobs.snapshot("job-6").WorkerID)
	assert.Empty(t, deps.events.events)
}

func TestProcessJob_LostLeaseLeavesRowAlone(t *testing.T) {
	var deps *workerDeps
	gen := stubGenerator{generate: func(ctx context.Context, req video.GenerateRequest) (*video.Asset, error) {
		// Simulate the reaper failing the job mid-run.
		deps.jobs.mu.Lock()
		deps.jobs.jobs["job-7"].Status = domain.JobStatusFailed
		deps.jobs.jobs["job-7"].ErrorMessage = leaseExpiredError
		deps.jobs.mu.Unlock()
		req.OnProgress(time.Minute)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	var w *Worker
	w, deps = newTestWorker(t, gen, testWorkerConfig(), true, queuedJob("job-7", false))

	require.NoError(t, w.ProcessJob(context.Background(), "test-1", "job-7"))
	job := deps.jobs.snapshot("job-7")
	assert.Equal(t, leaseExpiredError, job.ErrorMessage)
	assert.Empty(t, deps.refunds.calls)
}

func TestProcessJob_UnconfiguredProvider(t *testing.T) {
	w, deps := newTestWorker(t, nil, testWorkerConfig(), false, queuedJob("job-8", false))
	require.NoError(t, w.ProcessJob(context.Background(), "test-1", "job-8"))
	assert.Equal(t, "video provider is not configured", deps.jobs.snapshot("job-8").ErrorMessage)
}

func TestHeartbeatExtendsLease(t *testing.T) {
	gen := stubGenerator{generate: func(ctx context.Context, req video.GenerateRequest) (*video.Asset, error) {
		time.Sleep(60 * time.Millisecond)
		return &video.Asset{Body: io.NopCloser(strings.NewReader("mp4")), ContentType: "video/mp4"}, nil
	}}
	cfg := testWorkerConfig()
	cfg.Heartbeat = 10 * time.Millisecond
	w, deps := newTestWorker(t, gen, cfg, false, queuedJob("job-9", false))

	require.NoError(t, w.ProcessJob(context.Background(), "test-1", "job-9"))
	deps.jobs.mu.Lock()
	defer deps.jobs.mu.Unlock()
	assert.Positive(t, deps.jobs.heartbeat)
}

func TestRun_DrainsQueueUntilCancelled(t *testing.T) {
	w, deps := newTestWorker(t, nil, testWorkerConfig(), false, queuedJob("job-a", true), queuedJob("job-b", true))
	w.queue = &sliceQueue{ids: []string{"job-a", "job-b", "job-a"}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return deps.jobs.snapshot("job-a").Status == domain.JobStatusSucceeded &&
			deps.jobs.snapshot("job-b").Status == domain.JobStatusSucceeded
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 1, deps.jobs.snapshot("job-a").Attempt)
}

func TestMilestones(t *testing.T) {
	m := newMilestones()
	assert.Empty(t, m.reached(10))
	assert.Equal(t, []int{20, 40}, m.reached(45))
	assert.Empty(t, m.reached(45))
	assert.Equal(t, []int{60, 80}, m.reached(500))
	assert.Empty(t, m.reached(1000))
}

func TestRandomMockDelayStaysInWindow(t *testing.T) {
	tests := []struct {
		name   string
		lo, hi time.Duration
		want   func(t *testing.T, d time.Duration)
	}{
		{
			name: "default window",
			lo:   8 * time.Second,
			hi:   15 * time.Second,
			want: func(t *testing.T, d time.Duration) {
				assert.GreaterOrEqual(t, d, 8*time.Second)
				assert.LessOrEqual(t, d, 15*time.Second)
			},
		},
		{
			name: "equal bounds",
			lo:   10 * time.Second,
			hi:   10 * time.Second,
			want: func(t *testing.T, d time.Duration) { assert.Equal(t, 10*time.Second, d) },
		},
		{
			name: "inverted bounds",
			lo:   12 * time.Second,
			hi:   5 * time.Second,
			want: func(t *testing.T, d time.Duration) { assert.Equal(t, 12*time.Second, d) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Worker{cfg: infra.WorkerConfig{MockDelayMin: tt.lo, MockDelayMax: tt.hi}}
			for i := 0; i < 1000; i++ {
				tt.want(t, w.randomMockDelay())
			}
		})
	}
}
