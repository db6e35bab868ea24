package store

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
)

// memStore mirrors the Postgres semantics for dev and tests: key-wise merge,
// atomic consume, children-only listing.
type memStore struct {
	mu   sync.Mutex
	docs map[string]map[string]any
}

func NewMemory() Store {
	return &memStore{docs: map[string]map[string]any{}}
}

func (m *memStore) Get(ctx context.Context, path string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[path]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(doc), nil
}

func (m *memStore) Set(ctx context.Context, path string, doc map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[path] = clone(doc)
	return nil
}

func (m *memStore) Merge(ctx context.Context, path string, patch map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.docs[path]
	if !ok {
		cur = map[string]any{}
	}
	merged := clone(cur)
	for k, v := range clone(patch) {
		merged[k] = v
	}
	m.docs[path] = merged
	return nil
}

func (m *memStore) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, path)
	return nil
}

func (m *memStore) Consume(ctx context.Context, path string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[path]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.docs, path)
	return clone(doc), nil
}

func (m *memStore) List(ctx context.Context, prefix string) ([]Document, error) {
	prefix = strings.TrimRight(prefix, "/")
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Document
	for path, doc := range m.docs {
		if !strings.HasPrefix(path, prefix+"/") {
			continue
		}
		if strings.Contains(path[len(prefix)+1:], "/") {
			continue
		}
		out = append(out, Document{Path: path, Doc: clone(doc)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// WithTx is best-effort in memory: writes apply immediately. The store lock
// still keeps individual operations atomic.
func (m *memStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return fn(m)
}

// clone round-trips through JSON so stored documents carry the same value
// types (float64 numbers, map[string]any) as the Postgres implementation.
func clone(doc map[string]any) map[string]any {
	raw, _ := json.Marshal(doc)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	if out == nil {
		out = map[string]any{}
	}
	return out
}
