package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/infra"
)

func TestPublicBaseURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com", publicBaseURL(infra.S3Config{Bucket: "b", PublicBaseURL: "https://cdn.example.com"}))
	assert.Equal(t, "http://minio:9000/b", publicBaseURL(infra.S3Config{Bucket: "b", Endpoint: "http://minio:9000/"}))
	assert.Equal(t, "https://b.s3.eu-west-1.amazonaws.com", publicBaseURL(infra.S3Config{Bucket: "b", Region: "eu-west-1"}))
}
