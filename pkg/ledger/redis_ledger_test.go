package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisLedgerRecordAndSince(t *testing.T) {
	redis := miniredis.RunT(t)
	l, err := NewRedisLedger(RedisConfig{Addr: redis.Addr(), Stream: "test:uploads"})
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	defer l.Close()
	ctx := context.Background()
	start := time.Now().Add(-time.Minute)

	if err := l.Record(ctx, Entry{Op: OpUpload, Bucket: "uploads", Path: "u1/1-a.png", CallerID: "u1", ContentType: "image/png", Size: 42}); err != nil {
		t.Fatalf("record upload: %v", err)
	}
	if err := l.Record(ctx, Entry{Op: OpDelete, Bucket: "uploads", Path: "u1/1-a.png", CallerID: "u1"}); err != nil {
		t.Fatalf("record delete: %v", err)
	}

	entries, err := l.Since(ctx, start, 10)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	first := entries[0]
	if first.Op != OpUpload || first.Path != "u1/1-a.png" || first.CallerID != "u1" || first.Size != 42 || first.ContentType != "image/png" {
		t.Fatalf("unexpected first entry: %+v", first)
	}
	if first.At.IsZero() {
		t.Fatalf("expected timestamp to be set")
	}
	if entries[1].Op != OpDelete {
		t.Fatalf("unexpected second entry op: %q", entries[1].Op)
	}
}

func TestRedisLedgerRequiresAddr(t *testing.T) {
	if _, err := NewRedisLedger(RedisConfig{}); err == nil {
		t.Fatalf("expected error for empty redis addr")
	}
}

func TestRedisLedgerFailsWhenRedisDown(t *testing.T) {
	redis := miniredis.RunT(t)
	l, err := NewRedisLedger(RedisConfig{Addr: redis.Addr()})
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	redis.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := l.Record(ctx, Entry{Op: OpUpload, Path: "u1/x.png"}); err == nil {
		t.Fatalf("expected record to fail when redis is down")
	}
}

func TestRedisLedgerSinceAllReadsEveryPage(t *testing.T) {
	redis := miniredis.RunT(t)
	l, err := NewRedisLedger(RedisConfig{Addr: redis.Addr(), Stream: "test:uploads"})
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	defer l.Close()
	ctx := context.Background()
	start := time.Now().Add(-time.Minute)

	for i := 0; i < 5; i++ {
		path := fmt.Sprintf("u1/%d-a.png", i)
		if err := l.Record(ctx, Entry{Op: OpUpload, Bucket: "uploads", Path: path, CallerID: "u1"}); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	for _, pageSize := range []int64{1, 2, 5, 10} {
		entries, err := l.SinceAll(ctx, start, pageSize)
		if err != nil {
			t.Fatalf("page size %d: %v", pageSize, err)
		}
		if len(entries) != 5 {
			t.Fatalf("page size %d: expected 5 entries, got %d", pageSize, len(entries))
		}
		for i, e := range entries {
			if want := fmt.Sprintf("u1/%d-a.png", i); e.Path != want {
				t.Fatalf("page size %d: entry %d path = %q, want %q", pageSize, i, e.Path, want)
			}
		}
	}

	// A single capped read still stops at the cap.
	capped, err := l.Since(ctx, start, 2)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(capped) != 2 {
		t.Fatalf("expected 2 capped entries, got %d", len(capped))
	}
}

func TestNextID(t *testing.T) {
	cases := map[string]string{
		"1700000000000-0":                    "1700000000000-1",
		"1700000000000-41":                   "1700000000000-42",
		"1700000000000-18446744073709551615": "1700000000001-0",
	}
	for in, want := range cases {
		got, err := nextID(in)
		if err != nil {
			t.Fatalf("nextID(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("nextID(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := nextID("garbage"); err == nil {
		t.Fatalf("expected error for malformed id")
	}
}
