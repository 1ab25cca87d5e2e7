package MinIO

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint   string `env:"MINIO_ENDPOINT" env-default:"localhost:9000"`
	BucketName string `env:"MINIO_BUCKET_NAME" env-default:"records"`
	AccessKey  string `env:"MINIO_ACCESS_KEY"`
	SecretKey  string `env:"MINIO_SECRET_KEY"`
	UseSSL     bool   `env:"MINIO_USE_SSL" env-default:"false"`
}

type MinIOClient struct {
	Client *minio.Client
	Bucket string
}

func New(ctx context.Context, cfg Config) (*MinIOClient, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	err = client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{})
	if err != nil {
		exists, errBucketExists := client.BucketExists(ctx, cfg.BucketName)
		if !(errBucketExists == nil && exists) {
			return nil, fmt.Errorf("failed to create bucket %q: %w", cfg.BucketName, err)
		}
	}

	return &MinIOClient{
		Client: client,
		Bucket: cfg.BucketName,
	}, nil
}

func (m *MinIOClient) UploadFile(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := m.Client.PutObject(ctx, m.Bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// ListFiles returns the object keys stored under prefix.
func (m *MinIOClient) ListFiles(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range m.Client.ListObjects(ctx, m.Bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// PresignedURL resolves a time-limited fetchable URL for a stored blob.
func (m *MinIOClient) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := m.Client.PresignedGetObject(ctx, m.Bucket, key, expiry, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (m *MinIOClient) DeleteFile(ctx context.Context, key string) error {
	return m.Client.RemoveObject(ctx, m.Bucket, key, minio.RemoveObjectOptions{})
}
