package app

import (
	"context"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
	"time"

	"tutorcore/internal/identity"
	"tutorcore/internal/util"
	"tutorcore/pkg/domain"
	"tutorcore/pkg/ledger"
	"tutorcore/pkg/result"
	"tutorcore/pkg/storage"
)

const (
	mib           = 1024 * 1024
	ledgerTimeout = 2 * time.Second
)

// uploadProfile is a validation profile selected by the isDocument flag.
type uploadProfile struct {
	maxBytes     int64
	allowedTypes []string
}

var (
	imageProfile = uploadProfile{
		maxBytes:     5 * mib,
		allowedTypes: []string{"image/jpeg", "image/jpg", "image/png", "image/webp"},
	}
	documentProfile = uploadProfile{
		maxBytes: 10 * mib,
		allowedTypes: []string{
			"application/pdf",
			"application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"text/plain",
		},
	}
)

// extension used when the original file name has none.
var extensionByType = map[string]string{
	"image/jpeg":         "jpg",
	"image/jpg":          "jpg",
	"image/png":          "png",
	"image/webp":         "webp",
	"application/pdf":    "pdf",
	"application/msword": "doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "docx",
	"text/plain": "txt",
}

// FileInput is an uploaded binary with its declared metadata.
type FileInput struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
}

// UploadInput is the request of UploadFile.
type UploadInput struct {
	File       *FileInput
	Bucket     string
	Folder     string
	IsDocument bool
}

// DeleteInput is the request of DeleteFile.
type DeleteInput struct {
	FilePath string
	Bucket   string
}

// UploadFile validates an upload and places it under the caller's namespace.
// Existing objects are never overwritten.
func (a *App) UploadFile(ctx context.Context, in UploadInput) (domain.StoredFile, error) {
	caller, ok := identity.FromContext(ctx)
	if !ok || !validOwnerSegment(caller.ID) {
		return domain.StoredFile{}, ErrUnauthorized
	}
	if in.File == nil || in.File.Body == nil {
		return domain.StoredFile{}, ErrNoFile
	}
	bucket, err := a.resolveBucket(in.Bucket)
	if err != nil {
		return domain.StoredFile{}, err
	}
	folder, err := normalizeFolder(in.Folder)
	if err != nil {
		return domain.StoredFile{}, err
	}

	profile := imageProfile
	if in.IsDocument {
		profile = documentProfile
	}
	if in.File.Size > profile.maxBytes {
		return domain.StoredFile{}, sizeExceeded(profile)
	}
	contentType := strings.ToLower(strings.TrimSpace(in.File.ContentType))
	if !slices.Contains(profile.allowedTypes, contentType) {
		return domain.StoredFile{}, result.Validation(
			"Invalid file type. Allowed types: " + strings.Join(profile.allowedTypes, ", "))
	}
	if !a.uploadLimiter.Allow(ctx, caller.ID) {
		return domain.StoredFile{}, ErrUploadLimited
	}

	objectPath := fmt.Sprintf("%s/%d-%s.%s",
		caller.ID, a.now().UnixMilli(), a.newToken(), fileExtension(in.File.Name, contentType))
	if folder != "" {
		objectPath = folder + "/" + objectPath
	}

	logger := util.LoggerFromContext(ctx).With("caller_id", caller.ID, "bucket", bucket, "path", objectPath)
	err = a.blobs.Put(ctx, bucket, objectPath, in.File.Body, in.File.Size, contentType, storage.PutOptions{Upsert: false})
	if err != nil {
		logger.Warn("upload failed", "err", err)
		return domain.StoredFile{}, result.ValidationCause(msgUploadFailed, err)
	}
	logger.Info("file uploaded", "size", in.File.Size, "content_type", contentType)
	a.record(ctx, ledger.Entry{
		Op:          ledger.OpUpload,
		Bucket:      bucket,
		Path:        objectPath,
		CallerID:    caller.ID,
		ContentType: contentType,
		Size:        in.File.Size,
	})

	return domain.StoredFile{
		Bucket:      bucket,
		Path:        objectPath,
		ContentType: contentType,
		Size:        in.File.Size,
		URL:         a.blobs.PublicURL(bucket, objectPath),
	}, nil
}

// DeleteFile removes a file previously uploaded by the caller. Ownership is
// proven solely by the "{callerId}/" path prefix.
func (a *App) DeleteFile(ctx context.Context, in DeleteInput) error {
	caller, ok := identity.FromContext(ctx)
	if !ok || !validOwnerSegment(caller.ID) {
		return ErrUnauthorized
	}
	filePath := in.FilePath
	if !strings.HasPrefix(filePath, caller.ID+"/") || hasDotSegment(filePath) {
		return ErrNotFileOwner
	}
	bucket, err := a.resolveBucket(in.Bucket)
	if err != nil {
		return err
	}

	logger := util.LoggerFromContext(ctx).With("caller_id", caller.ID, "bucket", bucket, "path", filePath)
	if err := a.blobs.Remove(ctx, bucket, []string{filePath}); err != nil {
		logger.Warn("delete failed", "err", err)
		return result.ValidationCause(msgDeleteFailed, err)
	}
	logger.Info("file deleted")
	a.record(ctx, ledger.Entry{Op: ledger.OpDelete, Bucket: bucket, Path: filePath, CallerID: caller.ID})
	return nil
}

func sizeExceeded(p uploadProfile) *result.Error {
	return result.Validation(fmt.Sprintf("File size exceeds maximum allowed size of %dMB", p.maxBytes/mib))
}

func (a *App) resolveBucket(bucket string) (string, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return a.defaultBucket, nil
	}
	if _, ok := a.buckets[bucket]; !ok {
		return "", ErrUnknownBucket
	}
	return bucket, nil
}

// record is best-effort: the blob operation already happened. It outlives
// the request so a caller hanging up right after Put still leaves a record.
func (a *App) record(ctx context.Context, e ledger.Entry) {
	e.At = a.now().UTC()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerTimeout)
	defer cancel()
	if err := a.ledger.Record(ctx, e); err != nil {
		util.LoggerFromContext(ctx).Warn("ledger record failed", "op", e.Op, "path", e.Path, "err", err)
	}
}

func normalizeFolder(folder string) (string, error) {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	if folder == "" {
		return "", nil
	}
	if hasDotSegment(folder) {
		return "", ErrInvalidFolder
	}
	return path.Clean(folder), nil
}

func hasDotSegment(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// validOwnerSegment reports whether id can serve as a single path segment.
func validOwnerSegment(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.Contains(id, "/")
}

func fileExtension(name, contentType string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(strings.TrimSpace(name)), "."))
	ext = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, ext)
	if ext != "" {
		return ext
	}
	if ext, ok := extensionByType[contentType]; ok {
		return ext
	}
	return "bin"
}
