// Package storage keeps resume attachments in an S3-compatible bucket and
// optionally scans them before they are stored.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"trackApply/internal/config"
)

const bucketCheckTimeout = 5 * time.Second

// ResumeBucket stores resumes attached to job applications. Writes go through
// the private endpoint; presigned links are signed for the public one so
// browsers can follow them.
type ResumeBucket struct {
	private *minio.Client
	public  *minio.Client
	name    string
}

// NewResumeBucket connects to MinIO and makes sure the bucket exists.
func NewResumeBucket(ctx context.Context, cfg config.MinIOConfig) (*ResumeBucket, error) {
	creds := credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, "")

	private, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	public, err := publicClient(cfg, creds, private)
	if err != nil {
		return nil, err
	}

	checkCtx, cancel := context.WithTimeout(ctx, bucketCheckTimeout)
	defer cancel()
	if err := ensureBucket(checkCtx, private, cfg); err != nil {
		return nil, err
	}

	return &ResumeBucket{private: private, public: public, name: cfg.Bucket}, nil
}

func publicClient(cfg config.MinIOConfig, creds *credentials.Credentials, fallback *minio.Client) (*minio.Client, error) {
	raw := strings.TrimSpace(cfg.PublicEndpoint)
	if raw == "" {
		return fallback, nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse minio public endpoint: %w", err)
	}
	if parsed.Host == "" {
		return nil, errors.New("minio public endpoint has no host")
	}
	client, err := minio.New(parsed.Host, &minio.Options{
		Creds:  creds,
		Secure: parsed.Scheme == "https",
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init public minio client: %w", err)
	}
	return client, nil
}

func ensureBucket(ctx context.Context, client *minio.Client, cfg config.MinIOConfig) error {
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if exists {
		return nil
	}
	if !cfg.AutoCreateBucket {
		return fmt.Errorf("bucket %q is missing and MINIO_AUTO_CREATE_BUCKET is off", cfg.Bucket)
	}
	if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
		return fmt.Errorf("make bucket %q: %w", cfg.Bucket, err)
	}
	return nil
}

// Put stores a resume under key. The object is served as a download.
func (b *ResumeBucket) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	opts := minio.PutObjectOptions{
		ContentType:        contentType,
		ContentDisposition: "attachment",
	}
	if _, err := b.private.PutObject(ctx, b.name, key, r, size, opts); err != nil {
		return fmt.Errorf("put resume %q: %w", key, err)
	}
	return nil
}

// PresignGet returns a download link for key that stops working after ttl.
func (b *ResumeBucket) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := b.public.PresignedGetObject(ctx, b.name, key, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("presign resume %q: %w", key, err)
	}
	return u.String(), nil
}

// Remove deletes key. A missing object counts as removed.
func (b *ResumeBucket) Remove(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	err := b.private.RemoveObject(ctx, b.name, key, minio.RemoveObjectOptions{})
	if err != nil && !IsMissingObject(err) {
		return fmt.Errorf("remove resume %q: %w", key, err)
	}
	return nil
}

// IsMissingObject reports whether err says the object (or its key) does not exist.
func IsMissingObject(err error) bool {
	if err == nil {
		return false
	}
	var resp minio.ErrorResponse
	if errors.As(err, &resp) && (resp.Code == "NoSuchKey" || resp.Code == "NotFound") {
		return true
	}
	// Some gateways flatten the S3 error into plain text.
	return strings.Contains(strings.ToLower(err.Error()), "specified key does not exist")
}
