package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

type memoryEntry struct {
	data    json.RawMessage
	version int64
}

// Memory is an in-memory Store used by tests and as the development backend.
// Bodies are copied on the way in and out so callers can never alias the
// stored bytes.
type Memory struct {
	mu      sync.RWMutex
	records map[Kind]map[string]memoryEntry
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[Kind]map[string]memoryEntry)}
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, kind Kind, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.records[kind][id]
	if !ok {
		return Document{}, appErrors.Clone(appErrors.ErrNotFound, string(kind)+" record not found")
	}
	return Document{Kind: kind, ID: id, Data: cloneBytes(entry.data), Version: entry.version}, nil
}

// Put implements Store.
func (m *Memory) Put(ctx context.Context, kind Kind, id string, data json.RawMessage, expectedVersion int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket := m.records[kind]
	if bucket == nil {
		bucket = make(map[string]memoryEntry)
		m.records[kind] = bucket
	}

	entry, exists := bucket[id]
	switch {
	case expectedVersion == 0:
		if exists {
			return 0, appErrors.Clone(appErrors.ErrVersionConflict, string(kind)+" record already exists")
		}
	case expectedVersion == VersionAny:
		// unconditional write
	default:
		if !exists {
			return 0, appErrors.Clone(appErrors.ErrNotFound, string(kind)+" record not found")
		}
		if entry.version != expectedVersion {
			return 0, appErrors.Clone(appErrors.ErrVersionConflict, "")
		}
	}

	next := entry.version + 1
	bucket[id] = memoryEntry{data: cloneBytes(data), version: next}
	return next, nil
}

// Delete implements Store.
func (m *Memory) Delete(ctx context.Context, kind Kind, id string, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.records[kind][id]
	if !exists {
		return appErrors.Clone(appErrors.ErrNotFound, string(kind)+" record not found")
	}
	if expectedVersion != VersionAny && entry.version != expectedVersion {
		return appErrors.Clone(appErrors.ErrVersionConflict, "")
	}
	delete(m.records[kind], id)
	return nil
}

// List implements Store. Documents come back ordered by id so listings are
// stable across calls.
func (m *Memory) List(ctx context.Context, kind Kind) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	bucket := m.records[kind]
	docs := make([]Document, 0, len(bucket))
	for id, entry := range bucket {
		docs = append(docs, Document{Kind: kind, ID: id, Data: cloneBytes(entry.data), Version: entry.version})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
