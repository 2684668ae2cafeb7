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
)

var (
	// ErrObjectExists is returned by Put when Upsert is false and the path is taken.
	ErrObjectExists = errors.New("object already exists")
	// ErrUnknownBucket is returned for buckets the store was not configured with.
	ErrUnknownBucket = errors.New("unknown bucket")
)

// PutOptions controls object creation.
type PutOptions struct {
	// Upsert allows replacing an existing object at the same path.
	Upsert bool
}

// BlobStore provides access to bucketed binary object storage.
type BlobStore interface {
	Put(ctx context.Context, bucket, path string, r io.Reader, size int64, contentType string, opts PutOptions) error
	PublicURL(bucket, path string) string
	Remove(ctx context.Context, bucket string, paths []string) error
}

// MinioConfig configures MinioStore.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Buckets   []string
	// PublicBaseURL overrides the endpoint when building public URLs,
	// e.g. a CDN in front of the buckets.
	PublicBaseURL string
}

// MinioStore implements BlobStore for MinIO/S3 compatible storage.
type MinioStore struct {
	client     *minio.Client
	buckets    map[string]struct{}
	publicBase string
}

// NewMinioStore connects to MinIO and ensures every configured bucket exists.
func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	if len(cfg.Buckets) == 0 {
		return nil, errors.New("at least one bucket is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	buckets := make(map[string]struct{}, len(cfg.Buckets))
	for _, bucket := range cfg.Buckets {
		exists, err := client.BucketExists(ctx, bucket)
		if err != nil {
			return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
				return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
		buckets[bucket] = struct{}{}
	}
	publicBase := strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if publicBase == "" {
		publicBase = strings.TrimRight(client.EndpointURL().String(), "/")
	}
	return &MinioStore{client: client, buckets: buckets, publicBase: publicBase}, nil
}

// Put uploads an object. Without Upsert an existing object is reported as
// ErrObjectExists and left untouched.
func (m *MinioStore) Put(ctx context.Context, bucket, path string, r io.Reader, size int64, contentType string, opts PutOptions) error {
	if err := m.checkBucket(bucket); err != nil {
		return err
	}
	if !opts.Upsert {
		_, err := m.client.StatObject(ctx, bucket, path, minio.StatObjectOptions{})
		if err == nil {
			return ErrObjectExists
		}
		if minio.ToErrorResponse(err).Code != "NoSuchKey" {
			return fmt.Errorf("stat object: %w", err)
		}
	}
	_, err := m.client.PutObject(ctx, bucket, path, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

// PublicURL returns the path-style URL of an object.
func (m *MinioStore) PublicURL(bucket, path string) string {
	return publicURL(m.publicBase, bucket, path)
}

// Remove deletes the given objects in one batch.
func (m *MinioStore) Remove(ctx context.Context, bucket string, paths []string) error {
	if err := m.checkBucket(bucket); err != nil {
		return err
	}
	objects := make(chan minio.ObjectInfo, len(paths))
	for _, p := range paths {
		objects <- minio.ObjectInfo{Key: p}
	}
	close(objects)
	var errs []error
	for rerr := range m.client.RemoveObjects(ctx, bucket, objects, minio.RemoveObjectsOptions{}) {
		errs = append(errs, fmt.Errorf("remove %s: %w", rerr.ObjectName, rerr.Err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("delete objects: %w", errors.Join(errs...))
	}
	return nil
}

func (m *MinioStore) checkBucket(bucket string) error {
	if _, ok := m.buckets[bucket]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBucket, bucket)
	}
	return nil
}

func publicURL(base, bucket, path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return base + "/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}
