// Package ledger records blob placements and removals on a Redis stream so an
// out-of-band reconciliation sweep can find uploads whose callers never
// received a response.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	OpUpload = "upload"
	OpDelete = "delete"
)

const defaultPageSize = 100

// Entry is one ledger record.
type Entry struct {
	ID          string    `json:"id,omitempty"`
	Op          string    `json:"op"`
	Bucket      string    `json:"bucket"`
	Path        string    `json:"path"`
	CallerID    string    `json:"callerId"`
	ContentType string    `json:"contentType,omitempty"`
	Size        int64     `json:"size,omitempty"`
	At          time.Time `json:"at"`
}

// Recorder appends entries to a ledger.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

type RedisConfig struct {
	Addr     string
	Password string
	Stream   string
	MaxLen   int64
}

// RedisLedger appends entries to a capped Redis stream.
type RedisLedger struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisLedger(cfg RedisConfig) (*RedisLedger, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redis addr required")
	}
	stream := strings.TrimSpace(cfg.Stream)
	if stream == "" {
		stream = "tutor:uploads"
	}
	maxLen := cfg.MaxLen
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &RedisLedger{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password}),
		stream: stream,
		maxLen: maxLen,
	}, nil
}

func (l *RedisLedger) Record(ctx context.Context, e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	return l.client.XAdd(ctx, &redis.XAddArgs{
		Stream: l.stream,
		MaxLen: l.maxLen,
		Approx: true,
		Values: map[string]any{
			"op":           e.Op,
			"bucket":       e.Bucket,
			"path":         e.Path,
			"caller_id":    e.CallerID,
			"content_type": e.ContentType,
			"size":         e.Size,
			"at":           e.At.UnixMilli(),
		},
	}).Err()
}

// Since returns up to count entries recorded at or after the given instant,
// oldest first.
func (l *RedisLedger) Since(ctx context.Context, since time.Time, count int64) ([]Entry, error) {
	return l.rangeFrom(ctx, sinceID(since), count)
}

// SinceAll returns every entry recorded at or after the given instant, oldest
// first, reading the stream pageSize entries at a time.
func (l *RedisLedger) SinceAll(ctx context.Context, since time.Time, pageSize int64) ([]Entry, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	var out []Entry
	start := sinceID(since)
	for {
		page, err := l.rangeFrom(ctx, start, pageSize)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if int64(len(page)) < pageSize {
			return out, nil
		}
		start, err = nextID(page[len(page)-1].ID)
		if err != nil {
			return nil, err
		}
	}
}

func (l *RedisLedger) rangeFrom(ctx context.Context, start string, count int64) ([]Entry, error) {
	if count <= 0 {
		count = defaultPageSize
	}
	msgs, err := l.client.XRangeN(ctx, l.stream, start, "+", count).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, decodeEntry(msg))
	}
	return out, nil
}

func sinceID(since time.Time) string {
	return strconv.FormatInt(since.UnixMilli(), 10) + "-0"
}

// nextID returns the smallest stream ID greater than id.
func nextID(id string) (string, error) {
	ms, seq, ok := strings.Cut(id, "-")
	if !ok {
		return "", fmt.Errorf("malformed stream id %q", id)
	}
	n, err := strconv.ParseUint(seq, 10, 64)
	if err != nil {
		return "", fmt.Errorf("malformed stream id %q: %w", id, err)
	}
	if n == math.MaxUint64 {
		t, err := strconv.ParseUint(ms, 10, 64)
		if err != nil {
			return "", fmt.Errorf("malformed stream id %q: %w", id, err)
		}
		return strconv.FormatUint(t+1, 10) + "-0", nil
	}
	return ms + "-" + strconv.FormatUint(n+1, 10), nil
}

// Close releases the Redis connection.
func (l *RedisLedger) Close() error {
	return l.client.Close()
}

func decodeEntry(msg redis.XMessage) Entry {
	str := func(key string) string {
		v, _ := msg.Values[key].(string)
		return v
	}
	size, _ := strconv.ParseInt(str("size"), 10, 64)
	atMs, _ := strconv.ParseInt(str("at"), 10, 64)
	return Entry{
		ID:          msg.ID,
		Op:          str("op"),
		Bucket:      str("bucket"),
		Path:        str("path"),
		CallerID:    str("caller_id"),
		ContentType: str("content_type"),
		Size:        size,
		At:          time.UnixMilli(atMs).UTC(),
	}
}
