package store

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvatarKey(t *testing.T) {
	assert.Equal(t, "avatars/65f0c0ffee00000000000001.png", avatarKey("65f0c0ffee00000000000001"))
}

func TestMinioErr(t *testing.T) {
	missing := minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}
	assert.ErrorIs(t, minioErr(missing), ErrNotFound)

	denied := minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}
	assert.NotErrorIs(t, minioErr(denied), ErrNotFound)

	other := errors.New("connection reset")
	assert.Equal(t, other, minioErr(other))
}

func TestNewMinioStore_Options(t *testing.T) {
	tests := []struct {
		name    string
		opts    MinioOptions
		wantErr string
	}{
		{"missing endpoint", MinioOptions{Bucket: "avatars"}, "endpoint is required"},
		{"missing bucket", MinioOptions{Endpoint: "minio:9000"}, "bucket is required"},
		{"bad endpoint", MinioOptions{Endpoint: "http://minio:9000/path", Bucket: "avatars"}, "minio:9000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMinioStore(context.Background(), tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
