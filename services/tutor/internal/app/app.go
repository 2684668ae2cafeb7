package app

import (
	"errors"
	"strings"
	"time"

	"tutorcore/internal/ratelimit"
	"tutorcore/internal/util"
	"tutorcore/pkg/ledger"
	"tutorcore/pkg/storage"
	"tutorcore/pkg/store"
)

const defaultBucket = "uploads"

// Config wires the collaborators of the core. Every client is constructed
// by the process bootstrap and owned by it.
type Config struct {
	Profiles store.ProfileStore
	Blobs    storage.BlobStore
	// Ledger receives upload/delete records; nil disables it.
	Ledger ledger.Recorder
	// UploadLimiter throttles uploads per caller; nil disables throttling.
	UploadLimiter ratelimit.Limiter
	// Buckets lists the namespaces callers may target. Empty means only
	// DefaultBucket.
	Buckets       []string
	DefaultBucket string

	Clock       func() time.Time
	TokenSource func() string
}

// App implements the verification resolver and the file ingestion gate.
type App struct {
	profiles      store.ProfileStore
	blobs         storage.BlobStore
	ledger        ledger.Recorder
	uploadLimiter ratelimit.Limiter
	buckets       map[string]struct{}
	defaultBucket string
	now           func() time.Time
	newToken      func() string
}

// New constructs the application core.
func New(cfg Config) (*App, error) {
	if cfg.Profiles == nil {
		return nil, errors.New("profile store required")
	}
	if cfg.Blobs == nil {
		return nil, errors.New("blob store required")
	}
	bucket := strings.TrimSpace(cfg.DefaultBucket)
	if bucket == "" {
		bucket = defaultBucket
	}
	buckets := map[string]struct{}{bucket: {}}
	for _, b := range cfg.Buckets {
		if b = strings.TrimSpace(b); b != "" {
			buckets[b] = struct{}{}
		}
	}
	a := &App{
		profiles:      cfg.Profiles,
		blobs:         cfg.Blobs,
		ledger:        cfg.Ledger,
		uploadLimiter: cfg.UploadLimiter,
		buckets:       buckets,
		defaultBucket: bucket,
		now:           cfg.Clock,
		newToken:      cfg.TokenSource,
	}
	if a.ledger == nil {
		a.ledger = ledger.Nop{}
	}
	if a.uploadLimiter == nil {
		a.uploadLimiter = ratelimit.Unlimited{}
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.newToken == nil {
		a.newToken = func() string { return util.ShortToken(10) }
	}
	return a, nil
}
