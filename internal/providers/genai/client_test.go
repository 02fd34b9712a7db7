package genai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/domain"
)

func TestVideoURI(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "generate video response",
			body: `{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"https://x/files/a:download"}}]}}`,
			want: "https://x/files/a:download",
		},
		{
			name: "generated videos",
			body: `{"generatedVideos":[{"video":{"uri":"https://x/files/b:download"}}]}`,
			want: "https://x/files/b:download",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var resp map[string]any
			require.NoError(t, json.Unmarshal([]byte(tc.body), &resp))
			uri, err := VideoURI(&Operation{Done: true, Response: resp})
			require.NoError(t, err)
			assert.Equal(t, tc.want, uri)
		})
	}

	_, err := VideoURI(&Operation{Done: true})
	assert.ErrorIs(t, err, domain.ErrProviderFailure)
}

func TestStartVideoSendsReferenceImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body predictRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if assert.Len(t, body.Instances, 1) && assert.NotNil(t, body.Instances[0].Image) {
			assert.Equal(t, "image/png", body.Instances[0].Image.MimeType)
			assert.Equal(t, "cG5n", body.Instances[0].Image.BytesBase64Encoded)
		}
		_, _ = io.WriteString(w, `{"name":"operations/1"}`)
	}))
	defer srv.Close()

	key := func(context.Context) (string, error) { return "rotating-key", nil }
	c := NewClient(Options{Key: key, BaseURL: srv.URL})
	op, err := c.StartVideo(context.Background(), VideoRequest{
		Model:         "models/veo-3.0-generate-001",
		Prompt:        "p",
		ImageMimeType: "image/png",
		ImageData:     []byte("png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "operations/1", op.Name)
}

func TestInvokeSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"code":429,"message":"quota exceeded"}}`)
	}))
	defer srv.Close()

	_, err := NewClient(Options{APIKey: "k", BaseURL: srv.URL}).GetOperation(context.Background(), "operations/1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderFailure)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestDownloadOutlivesAPITimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get(apiKeyHeader))
		w.Header().Set("Content-Type", "video/mp4")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "part1-")
		w.(http.Flusher).Flush()
		time.Sleep(200 * time.Millisecond)
		_, _ = io.WriteString(w, "part2")
	}))
	defer srv.Close()

	c := NewClient(Options{
		APIKey:     "k",
		BaseURL:    srv.URL,
		HTTPClient: &http.Client{Timeout: 50 * time.Millisecond},
	})
	body, contentType, err := c.Download(context.Background(), srv.URL+"/files/video.mp4")
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "part1-part2", string(data))
	assert.Equal(t, "video/mp4", contentType)
}

func TestDownloadHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	body, _, err := NewClient(Options{APIKey: "k", BaseURL: srv.URL}).Download(ctx, srv.URL+"/files/video.mp4")
	require.NoError(t, err)
	defer body.Close()
	_, err = io.ReadAll(body)
	assert.Error(t, err)
}
