package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	"github.com/rs/zerolog"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/domain"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/infra"
)

const apiKeyHeader = "x-goog-api-key"

// videoURIExpr locates the generated video in a finished operation. Newer
// API versions nest samples under generateVideoResponse.
const videoURIExpr = "response.generateVideoResponse.generatedSamples[0].video.uri || response.generatedVideos[0].video.uri"

// KeyFunc resolves the API key for a single call.
type KeyFunc func(ctx context.Context) (string, error)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	Key        KeyFunc
	BaseURL    string
	HTTPClient *http.Client
	// DownloadClient fetches generated files. Its body is streamed into
	// storage, so it has no overall timeout by default and is bounded by the
	// caller's context instead.
	DownloadClient *http.Client
	Logger         *infra.Logger
}

// Client is a thin REST client for the Gemini long-running video API.
type Client struct {
	key        KeyFunc
	baseURL    string
	httpClient *http.Client
	download   *http.Client
	logger     *infra.Logger
}

// VideoRequest is the payload of a predictLongRunning call.
type VideoRequest struct {
	Model           string
	Prompt          string
	AspectRatio     string
	Resolution      string
	DurationSeconds int
	GenerateAudio   bool
	ImageMimeType   string
	ImageData       []byte
}

// Operation mirrors google.longrunning.Operation.
type Operation struct {
	Name     string          `json:"name"`
	Done     bool            `json:"done"`
	Error    *OperationError `json:"error,omitempty"`
	Response map[string]any  `json:"response,omitempty"`
}

type OperationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type veoInstance struct {
	Prompt string    `json:"prompt"`
	Image  *veoImage `json:"image,omitempty"`
}

type veoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type veoParameters struct {
	AspectRatio     string `json:"aspectRatio,omitempty"`
	Resolution      string `json:"resolution,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
	GenerateAudio   bool   `json:"generateAudio"`
}

type predictRequest struct {
	Instances  []veoInstance `json:"instances"`
	Parameters veoParameters `json:"parameters"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; a reusable one with sensible timeouts will be created.
func NewClient(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	download := opts.DownloadClient
	if download == nil {
		download = &http.Client{Transport: client.Transport, CheckRedirect: client.CheckRedirect, Jar: client.Jar}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	key := opts.Key
	if key == nil {
		static := strings.TrimSpace(opts.APIKey)
		key = func(context.Context) (string, error) { return static, nil }
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}

	return &Client{
		key:        key,
		baseURL:    baseURL,
		httpClient: client,
		download:   download,
		logger:     logger,
	}
}

// StartVideo submits a generation request and returns the pending operation.
func (c *Client) StartVideo(ctx context.Context, req VideoRequest) (*Operation, error) {
	model := strings.TrimPrefix(strings.TrimSpace(req.Model), "models/")
	if model == "" {
		return nil, errors.New("genai: model is required")
	}
	instance := veoInstance{Prompt: req.Prompt}
	if len(req.ImageData) > 0 {
		instance.Image = &veoImage{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(req.ImageData),
			MimeType:           req.ImageMimeType,
		}
	}
	payload := predictRequest{
		Instances: []veoInstance{instance},
		Parameters: veoParameters{
			AspectRatio:     req.AspectRatio,
			Resolution:      req.Resolution,
			DurationSeconds: req.DurationSeconds,
			GenerateAudio:   req.GenerateAudio,
		},
	}
	var op Operation
	if err := c.invoke(ctx, http.MethodPost, "/models/"+model+":predictLongRunning", payload, &op); err != nil {
		return nil, err
	}
	if op.Name == "" {
		return nil, fmt.Errorf("%w: operation name missing from response", domain.ErrProviderFailure)
	}
	c.logger.Debug().Str("model", model).Str("operation", op.Name).Msg("genai: video operation started")
	return &op, nil
}

// GetOperation fetches the current state of a long-running operation.
func (c *Client) GetOperation(ctx context.Context, name string) (*Operation, error) {
	var op Operation
	if err := c.invoke(ctx, http.MethodGet, "/"+strings.TrimLeft(name, "/"), nil, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// VideoURI extracts the download URI from a finished operation.
func VideoURI(op *Operation) (string, error) {
	if op == nil || op.Response == nil {
		return "", fmt.Errorf("%w: operation completed without a response", domain.ErrProviderFailure)
	}
	// Round-trip through JSON so jmespath sees plain maps and slices.
	raw, err := json.Marshal(map[string]any{"response": op.Response})
	if err != nil {
		return "", fmt.Errorf("genai: encode operation: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("genai: decode operation: %w", err)
	}
	found, err := jmespath.Search(videoURIExpr, doc)
	if err != nil {
		return "", fmt.Errorf("genai: search operation: %w", err)
	}
	uri, _ := found.(string)
	if strings.TrimSpace(uri) == "" {
		return "", fmt.Errorf("%w: no video uri in operation response", domain.ErrProviderFailure)
	}
	return uri, nil
}

// Download opens the generated file. The caller closes the body.
func (c *Client) Download(ctx context.Context, uri string) (io.ReadCloser, string, error) {
	target := uri
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(uri, "/")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}
	if err := c.authorize(ctx, req); err != nil {
		return nil, "", err
	}

	resp, err := c.download.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: download file: %v", domain.ErrProviderFailure, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, "", fmt.Errorf("%w: download file status %d: %s", domain.ErrProviderFailure, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	key, err := c.key(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderUnconfigured, err)
	}
	if key == "" {
		return domain.ErrProviderUnconfigured
	}
	req.Header.Set(apiKeyHeader, key)
	return nil
}

func (c *Client) invoke(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if err := c.authorize(ctx, req); err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: invoke gemini: %v", domain.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		var apiErr geminiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("%w: gemini status %d: %s", domain.ErrProviderFailure, resp.StatusCode, apiErr.Error.Message)
		}
		if len(data) > 0 {
			return fmt.Errorf("%w: gemini status %d: %s", domain.ErrProviderFailure, resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("%w: gemini status %d", domain.ErrProviderFailure, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode gemini response: %v", domain.ErrProviderFailure, err)
	}
	return nil
}
