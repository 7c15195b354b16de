// Package reports archives batch matching reports in S3-compatible object
// storage.
package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"realty_crm_backend/platform/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	// DownloadURLTTL is how long a presigned report link stays valid.
	DownloadURLTTL = 15 * time.Minute

	contentTypeJSON = "application/json"
	keyTimeLayout   = "20060102T150405Z"
)

// objectStore is the subset of *minio.Client the archive needs.
type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucket, key string, expires time.Duration, params url.Values) (*url.URL, error)
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// MinIOArchive stores one JSON object per batch run, keyed by client and
// start time.
type MinIOArchive struct {
	client objectStore
	bucket string
}

// NewMinIOArchive connects to the configured endpoint.
func NewMinIOArchive(cfg config.MinIOConfig) (*MinIOArchive, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOArchive{client: client, bucket: cfg.GetMinioBucketMatchReports()}, nil
}

// EnsureBucket creates the report bucket if it doesn't exist.
func (a *MinIOArchive) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
	}
	return nil
}

// Archive uploads body and returns its object key.
func (a *MinIOArchive) Archive(ctx context.Context, clientID string, startedAt time.Time, body []byte) (string, error) {
	key, err := ReportKey(clientID, startedAt)
	if err != nil {
		return "", err
	}
	if len(body) == 0 {
		return "", errors.New("empty report")
	}

	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentTypeJSON,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload report %s: %w", key, err)
	}
	return key, nil
}

// LatestKey returns the key of the newest report for a client, or "" when
// none has been archived yet.
func (a *MinIOArchive) LatestKey(ctx context.Context, clientID string) (string, error) {
	prefix, err := clientPrefix(clientID)
	if err != nil {
		return "", err
	}

	latest := ""
	for obj := range a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return "", fmt.Errorf("failed to list reports for %s: %w", clientID, obj.Err)
		}
		// Keys sort chronologically within a client prefix.
		if obj.Key > latest {
			latest = obj.Key
		}
	}
	return latest, nil
}

// DownloadURL creates a presigned URL for one report.
func (a *MinIOArchive) DownloadURL(ctx context.Context, key string) (string, time.Time, error) {
	expiresAt := time.Now().Add(DownloadURLTTL)
	u, err := a.client.PresignedGetObject(ctx, a.bucket, key, DownloadURLTTL, make(url.Values))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate presigned download URL: %w", err)
	}
	return u.String(), expiresAt, nil
}

// ReportKey builds "<clientID>/<UTC start time>.json".
func ReportKey(clientID string, startedAt time.Time) (string, error) {
	prefix, err := clientPrefix(clientID)
	if err != nil {
		return "", err
	}
	return prefix + startedAt.UTC().Format(keyTimeLayout) + ".json", nil
}

func clientPrefix(clientID string) (string, error) {
	id := strings.TrimSpace(clientID)
	if id == "" || strings.ContainsAny(id, `/\`) || id != path.Clean(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("invalid client id %q for report key", clientID)
	}
	return id + "/", nil
}
