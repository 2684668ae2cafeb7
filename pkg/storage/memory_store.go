package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

// Object is a blob held by MemoryStore.
type Object struct {
	Data        []byte
	ContentType string
}

// MemoryStore is an in-process BlobStore for tests and local runs.
type MemoryStore struct {
	mu      sync.Mutex
	base    string
	objects map[string]map[string]Object // bucket -> path -> object
}

// NewMemoryStore creates a store serving the given buckets. Public URLs are
// rooted at baseURL.
func NewMemoryStore(baseURL string, buckets ...string) *MemoryStore {
	objects := make(map[string]map[string]Object, len(buckets))
	for _, b := range buckets {
		objects[b] = make(map[string]Object)
	}
	return &MemoryStore{base: baseURL, objects: objects}
}

func (m *MemoryStore) Put(ctx context.Context, bucket, path string, r io.Reader, size int64, contentType string, opts PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(r, size)); err != nil {
		return fmt.Errorf("put object: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	objs, ok := m.objects[bucket]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBucket, bucket)
	}
	if _, exists := objs[path]; exists && !opts.Upsert {
		return ErrObjectExists
	}
	objs[path] = Object{Data: buf.Bytes(), ContentType: contentType}
	return nil
}

func (m *MemoryStore) PublicURL(bucket, path string) string {
	return publicURL(m.base, bucket, path)
}

// Remove deletes the given paths; missing paths are ignored like S3 does.
func (m *MemoryStore) Remove(ctx context.Context, bucket string, paths []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	objs, ok := m.objects[bucket]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBucket, bucket)
	}
	for _, p := range paths {
		delete(objs, p)
	}
	return nil
}

// Get returns a stored object.
func (m *MemoryStore) Get(bucket, path string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[bucket][path]
	return obj, ok
}

// Paths lists the object paths of a bucket in lexical order.
func (m *MemoryStore) Paths(bucket string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects[bucket]))
	for p := range m.objects[bucket] {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
