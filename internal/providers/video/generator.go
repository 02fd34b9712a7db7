package video

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/domain"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/providers/genai"
)

// ProgressFunc is invoked after each unfinished poll with the time spent so far.
type ProgressFunc func(elapsed time.Duration)

type GenerateRequest struct {
	JobID           string
	Model           string
	Prompt          string
	AspectRatio     string
	Resolution      string
	DurationSeconds int
	GenerateAudio   bool
	ReferenceImage  *ReferenceImage
	OnProgress      ProgressFunc
}

type ReferenceImage struct {
	ContentType string
	Data        []byte
}

// Asset is a generated video opened for streaming. Callers must close Body.
type Asset struct {
	Body        io.ReadCloser
	ContentType string
	SourceURI   string
}

type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Asset, error)
}

type veoClient interface {
	StartVideo(ctx context.Context, req genai.VideoRequest) (*genai.Operation, error)
	GetOperation(ctx context.Context, name string) (*genai.Operation, error)
	Download(ctx context.Context, uri string) (io.ReadCloser, string, error)
}

// VeoGenerator drives a Veo long-running operation to completion.
type VeoGenerator struct {
	client       veoClient
	pollInterval time.Duration
}

func NewVeoGenerator(client *genai.Client, pollInterval time.Duration) *VeoGenerator {
	return newVeoGenerator(client, pollInterval)
}

func newVeoGenerator(client veoClient, pollInterval time.Duration) *VeoGenerator {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	return &VeoGenerator{client: client, pollInterval: pollInterval}
}

// Generate starts the operation, polls until it is done and opens the result.
// The overall deadline is the caller's context.
func (g *VeoGenerator) Generate(ctx context.Context, req GenerateRequest) (*Asset, error) {
	vr := genai.VideoRequest{
		Model:           req.Model,
		Prompt:          req.Prompt,
		AspectRatio:     req.AspectRatio,
		Resolution:      req.Resolution,
		DurationSeconds: req.DurationSeconds,
		GenerateAudio:   req.GenerateAudio,
	}
	if req.ReferenceImage != nil {
		vr.ImageMimeType = req.ReferenceImage.ContentType
		vr.ImageData = req.ReferenceImage.Data
	}

	started := time.Now()
	op, err := g.client.StartVideo(ctx, vr)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()
	for !op.Done {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
		name := op.Name
		op, err = g.client.GetOperation(ctx, name)
		if err != nil {
			return nil, err
		}
		if op.Name == "" {
			op.Name = name
		}
		if !op.Done && req.OnProgress != nil {
			req.OnProgress(time.Since(started))
		}
	}

	if op.Error != nil {
		return nil, fmt.Errorf("%w: video generation failed: %s (code %d)", domain.ErrProviderFailure, op.Error.Message, op.Error.Code)
	}
	uri, err := genai.VideoURI(op)
	if err != nil {
		return nil, err
	}
	body, contentType, err := g.client.Download(ctx, uri)
	if err != nil {
		return nil, err
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = "video/mp4"
	}
	return &Asset{Body: body, ContentType: contentType, SourceURI: uri}, nil
}

var _ Generator = (*VeoGenerator)(nil)
