package video

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/domain"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/providers/genai"
)

func veoServer(t *testing.T, pendingPolls int32, final string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var polls atomic.Int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			http.Error(w, `{"error":{"code":403,"message":"bad key"}}`, http.StatusForbidden)
			return
		}
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/models/veo-3.1-fast-generate-preview:predictLongRunning"):
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			params := body["parameters"].(map[string]any)
			assert.Equal(t, "16:9", params["aspectRatio"])
			assert.EqualValues(t, 8, params["durationSeconds"])
			_, _ = io.WriteString(w, `{"name":"models/veo/operations/op-1"}`)
		case r.Method == http.MethodGet && r.URL.Path == "/models/veo/operations/op-1":
			if polls.Add(1) <= pendingPolls {
				_, _ = io.WriteString(w, `{"name":"models/veo/operations/op-1","done":false}`)
				return
			}
			_, _ = io.WriteString(w, strings.ReplaceAll(final, "{{base}}", srv.URL))
		case r.URL.Path == "/files/video-1:download":
			w.Header().Set("Content-Type", "video/mp4")
			_, _ = io.WriteString(w, "mp4-data")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &polls
}

func request() GenerateRequest {
	return GenerateRequest{
		JobID:           "job-1",
		Model:           "veo-3.1-fast-generate-preview",
		Prompt:          "a cat surfing",
		AspectRatio:     "16:9",
		Resolution:      "720p",
		DurationSeconds: 8,
	}
}

func TestVeoGeneratorPollsAndDownloads(t *testing.T) {
	final := `{"name":"models/veo/operations/op-1","done":true,"response":{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"{{base}}/files/video-1:download"}}]}}}`
	srv, polls := veoServer(t, 2, final)
	gen := NewVeoGenerator(genai.NewClient(genai.Options{APIKey: "test-key", BaseURL: srv.URL}), 5*time.Millisecond)

	var progressCalls int
	req := request()
	req.OnProgress = func(time.Duration) { progressCalls++ }

	asset, err := gen.Generate(context.Background(), req)
	require.NoError(t, err)
	defer asset.Body.Close()
	data, err := io.ReadAll(asset.Body)
	require.NoError(t, err)
	assert.Equal(t, "mp4-data", string(data))
	assert.Equal(t, "video/mp4", asset.ContentType)
	assert.EqualValues(t, 3, polls.Load())
	assert.Equal(t, 2, progressCalls)
}

func TestVeoGeneratorLegacyResponseShape(t *testing.T) {
	final := `{"name":"models/veo/operations/op-1","done":true,"response":{"generatedVideos":[{"video":{"uri":"{{base}}/files/video-1:download"}}]}}`
	srv, _ := veoServer(t, 0, final)
	gen := NewVeoGenerator(genai.NewClient(genai.Options{APIKey: "test-key", BaseURL: srv.URL}), time.Millisecond)
	asset, err := gen.Generate(context.Background(), request())
	require.NoError(t, err)
	asset.Body.Close()
}

func TestVeoGeneratorOperationError(t *testing.T) {
	final := `{"name":"models/veo/operations/op-1","done":true,"error":{"code":3,"message":"prompt blocked"}}`
	srv, _ := veoServer(t, 0, final)
	gen := NewVeoGenerator(genai.NewClient(genai.Options{APIKey: "test-key", BaseURL: srv.URL}), time.Millisecond)
	_, err := gen.Generate(context.Background(), request())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderFailure)
	assert.Contains(t, err.Error(), "prompt blocked")
}

func TestVeoGeneratorMissingURI(t *testing.T) {
	srv, _ := veoServer(t, 0, `{"name":"models/veo/operations/op-1","done":true,"response":{}}`)
	gen := NewVeoGenerator(genai.NewClient(genai.Options{APIKey: "test-key", BaseURL: srv.URL}), time.Millisecond)
	_, err := gen.Generate(context.Background(), request())
	assert.ErrorIs(t, err, domain.ErrProviderFailure)
}

func TestVeoGeneratorWithoutKey(t *testing.T) {
	srv, _ := veoServer(t, 0, "")
	gen := NewVeoGenerator(genai.NewClient(genai.Options{BaseURL: srv.URL}), time.Millisecond)
	_, err := gen.Generate(context.Background(), request())
	assert.ErrorIs(t, err, domain.ErrProviderUnconfigured)
}

func TestVeoGeneratorHonoursDeadline(t *testing.T) {
	srv, _ := veoServer(t, 1000, "")
	gen := NewVeoGenerator(genai.NewClient(genai.Options{APIKey: "test-key", BaseURL: srv.URL}), 5*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := gen.Generate(ctx, request())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
