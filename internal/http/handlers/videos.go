package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/domain"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/jobs"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/middleware"
)

const (
	multipartMemory    = 1 << 20
	maxSubmitBodyBytes = jobs.MaxReferenceSize + 1<<20
	defaultKeepAlive   = 15 * time.Second
)

type jobDTO struct {
	ID                 string          `json:"id"`
	UserID             string          `json:"userId"`
	Status             string          `json:"status"`
	StatusMessage      string          `json:"statusMessage"`
	ProgressPercentage int             `json:"progressPercentage"`
	Prompt             string          `json:"prompt"`
	Model              string          `json:"model"`
	Resolution         string          `json:"resolution"`
	AspectRatio        string          `json:"aspectRatio"`
	DurationSeconds    int             `json:"durationSeconds"`
	GenerateAudio      bool            `json:"generateAudio"`
	MockMode           bool            `json:"mockMode"`
	HasReferenceImage  bool            `json:"hasReferenceImage"`
	Logs               []domain.JobLog `json:"logs"`
	ArtifactURL        string          `json:"artifactUrl,omitempty"`
	ErrorMessage       string          `json:"errorMessage,omitempty"`
	TokensConsumed     int             `json:"tokensConsumed"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
	StartedAt          *time.Time      `json:"startedAt,omitempty"`
	CompletedAt        *time.Time      `json:"completedAt,omitempty"`
}

func toJobDTO(j *domain.VideoJob) jobDTO {
	logs := j.Logs
	if logs == nil {
		logs = []domain.JobLog{}
	}
	return jobDTO{
		ID:                 j.ID,
		UserID:             j.UserID,
		Status:             string(j.Status),
		StatusMessage:      j.StatusMessage,
		ProgressPercentage: j.Progress,
		Prompt:             j.Prompt,
		Model:              j.Model,
		Resolution:         j.Resolution,
		AspectRatio:        j.AspectRatio,
		DurationSeconds:    j.DurationSeconds,
		GenerateAudio:      j.GenerateAudio,
		MockMode:           j.MockMode,
		HasReferenceImage:  j.ReferenceImageKey != "",
		Logs:               logs,
		ArtifactURL:        j.ArtifactURL,
		ErrorMessage:       j.ErrorMessage,
		TokensConsumed:     j.TokensConsumed,
		CreatedAt:          j.CreatedAt,
		UpdatedAt:          j.UpdatedAt,
		StartedAt:          j.StartedAt,
		CompletedAt:        j.CompletedAt,
	}
}

// CreateVideoJob accepts either a JSON body or a multipart form with a
// "payload" JSON part and an optional "referenceImage" file part.
func (a *App) CreateVideoJob(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.fail(w, r, domain.ErrUnauthorized)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSubmitBodyBytes)

	var in jobs.SubmitInput
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		closeRef, err := readMultipartSubmit(r, &in)
		if err != nil {
			a.failDecode(w, r, err)
			return
		}
		defer closeRef()
	} else if err := decodeJSON(r, &in); err != nil {
		a.failDecode(w, r, err)
		return
	}

	in.UserID = userID
	in.Locale = middleware.LocaleFromContext(r.Context())
	job, err := a.Jobs.Submit(r.Context(), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/video-jobs/"+job.ID)
	a.json(w, http.StatusAccepted, toJobDTO(job))
}

func readMultipartSubmit(r *http.Request, in *jobs.SubmitInput) (func(), error) {
	noop := func() {}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return noop, err
	}
	payload := r.FormValue("payload")
	if payload == "" {
		return noop, domain.NewValidationError("payload", "is required")
	}
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(in); err != nil {
		return noop, err
	}

	file, header, err := r.FormFile("referenceImage")
	if errors.Is(err, http.ErrMissingFile) {
		return noop, nil
	}
	if err != nil {
		return noop, err
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		sniff := make([]byte, 512)
		n, _ := io.ReadFull(file, sniff)
		contentType = http.DetectContentType(sniff[:n])
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			_ = file.Close()
			return noop, err
		}
	}
	in.Reference = &jobs.Upload{ContentType: contentType, Size: header.Size, Body: file}
	return func() { _ = file.Close() }, nil
}

func (a *App) failDecode(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		a.fail(w, r, domain.NewValidationError("referenceImage", fmt.Sprintf("must be at most %d MiB", jobs.MaxReferenceSize>>20)))
	case domain.IsValidation(err):
		a.fail(w, r, err)
	default:
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
	}
}

func (a *App) ListVideoJobs(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.currentActor(r)
	if !ok {
		a.fail(w, r, domain.ErrUnauthorized)
		return
	}
	limit, offset, err := pagination(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	filter := domain.JobFilter{Limit: limit, Offset: offset}
	if v := r.URL.Query().Get("status"); v != "" {
		status, ok := domain.ParseJobStatus(strings.ToUpper(v))
		if !ok {
			a.fail(w, r, domain.NewValidationError("status", "must be one of QUEUED, PROCESSING, SUCCEEDED, FAILED"))
			return
		}
		filter.Status = status
	}
	list, total, err := a.Jobs.List(r.Context(), actor, filter)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items := make([]jobDTO, 0, len(list))
	for i := range list {
		items = append(items, toJobDTO(&list[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"jobs": items, "total": total})
}

func (a *App) GetVideoJob(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.currentActor(r)
	if !ok {
		a.fail(w, r, domain.ErrUnauthorized)
		return
	}
	job, err := a.Jobs.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toJobDTO(job))
}

// DownloadVideoJob redirects to the stored artifact of a succeeded job.
func (a *App) DownloadVideoJob(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.currentActor(r)
	if !ok {
		a.fail(w, r, domain.ErrUnauthorized)
		return
	}
	url, err := a.Jobs.DownloadURL(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (a *App) DeleteVideoJob(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.currentActor(r)
	if !ok {
		a.fail(w, r, domain.ErrUnauthorized)
		return
	}
	if err := a.Jobs.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VideoJobEvents streams the job as server-sent events: the current snapshot
// first, then every published change until the job is terminal.
func (a *App) VideoJobEvents(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.currentActor(r)
	if !ok {
		a.fail(w, r, domain.ErrUnauthorized)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		a.error(w, http.StatusInternalServerError, "internal", "streaming unsupported")
		return
	}
	job, sub, err := a.Jobs.Watch(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	defer func() { _ = sub.Close() }()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeSSE(w, "snapshot", toJobDTO(job)); err != nil {
		return
	}
	flusher.Flush()
	if sub == nil {
		return
	}

	keepAlive := a.SSEKeepAlive
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	// The subscription opens before the snapshot is read, so events from
	// that gap may be older than the snapshot.
	lastStatus, lastProgress := job.Status, job.Progress

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case evt, open := <-sub.Events():
			if !open {
				return
			}
			if staleEvent(evt, lastStatus, lastProgress) {
				continue
			}
			lastStatus, lastProgress = evt.Status, evt.Progress
			if err := writeSSE(w, "status", evt); err != nil {
				return
			}
			flusher.Flush()
			if evt.Status.IsTerminal() {
				return
			}
		}
	}
}

// staleEvent reports whether a non-terminal event would move the client
// backwards from what it has already seen.
func staleEvent(evt domain.JobEvent, status domain.JobStatus, progress int) bool {
	if evt.Status.IsTerminal() {
		return false
	}
	if evt.Status == domain.JobStatusQueued && status != domain.JobStatusQueued {
		return true
	}
	return evt.Progress < progress
}

func writeSSE(w io.Writer, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
