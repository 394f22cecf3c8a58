package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore keeps avatar images as objects in a MinIO bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// MinioOptions locates the avatar bucket. Region may be empty.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

func (o MinioOptions) validate() error {
	var errs []error
	if o.Endpoint == "" {
		errs = append(errs, errors.New("endpoint is required"))
	}
	if o.Bucket == "" {
		errs = append(errs, errors.New("bucket is required"))
	}
	return errors.Join(errs...)
}

// NewMinioStore connects to MinIO and creates the avatar bucket if needed.
func NewMinioStore(ctx context.Context, o MinioOptions) (*MinioStore, error) {
	if err := o.validate(); err != nil {
		return nil, fmt.Errorf("avatar bucket: %w", err)
	}
	client, err := minio.New(o.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(o.AccessKey, o.SecretKey, ""),
		Secure: o.UseSSL,
		Region: o.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("avatar bucket %s: %w", o.Endpoint, err)
	}

	s := &MinioStore{client: client, bucket: o.Bucket}
	if err := s.ensureBucket(ctx, o.Region); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MinioStore) ensureBucket(ctx context.Context, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("avatar bucket %q: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region})
	// another replica may have created it first
	if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
		return fmt.Errorf("create avatar bucket %q: %w", s.bucket, err)
	}
	return nil
}

const avatarContentType = "image/png"

func avatarKey(userID string) string {
	return "avatars/" + userID + ".png"
}

// PutAvatar uploads the normalized PNG for userID, replacing any previous one.
func (s *MinioStore) PutAvatar(ctx context.Context, userID string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, avatarKey(userID), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: avatarContentType,
	})
	if err != nil {
		return fmt.Errorf("minio put avatar: %w", err)
	}
	return nil
}

// GetAvatar downloads the avatar for userID, or ErrNotFound if there is none.
func (s *MinioStore) GetAvatar(ctx context.Context, userID string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, avatarKey(userID), minio.GetObjectOptions{})
	if err != nil {
		return nil, minioErr(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, minioErr(err)
	}
	return data, nil
}

// DeleteAvatar removes the object; removing a missing object succeeds.
func (s *MinioStore) DeleteAvatar(ctx context.Context, userID string) error {
	return s.client.RemoveObject(ctx, s.bucket, avatarKey(userID), minio.RemoveObjectOptions{})
}

func minioErr(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNotFound
	}
	return err
}
