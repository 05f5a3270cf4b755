package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

func TestMemoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	version, err := m.Put(ctx, KindStudent, "s1", json.RawMessage(`{"id":"s1"}`), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	doc, err := m.Get(ctx, KindStudent, "s1")
	require.NoError(t, err)
	assert.Equal(t, KindStudent, doc.Kind)
	assert.Equal(t, "s1", doc.ID)
	assert.JSONEq(t, `{"id":"s1"}`, string(doc.Data))
	assert.Equal(t, int64(1), doc.Version)

	// Create of an existing id is a conflict, not an overwrite.
	_, err = m.Put(ctx, KindStudent, "s1", json.RawMessage(`{}`), 0)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrVersionConflict))
}

func TestMemoryGetMissing(t *testing.T) {
	m := NewMemory()
	_, err := m.Get(context.Background(), KindCourse, "nope")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestMemoryConditionalPut(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Put(ctx, KindCourse, "c1", json.RawMessage(`{"v":1}`), 0)
	require.NoError(t, err)

	// Matching version advances it.
	version, err := m.Put(ctx, KindCourse, "c1", json.RawMessage(`{"v":2}`), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	// Stale version is rejected and leaves the record untouched.
	_, err = m.Put(ctx, KindCourse, "c1", json.RawMessage(`{"v":9}`), 1)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrVersionConflict))

	doc, err := m.Get(ctx, KindCourse, "c1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(doc.Data))

	// Conditional update of a missing record reports the miss, not a conflict.
	_, err = m.Put(ctx, KindCourse, "gone", json.RawMessage(`{}`), 3)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestMemoryUnconditionalPut(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	version, err := m.Put(ctx, KindDepartment, "d1", json.RawMessage(`{"v":1}`), VersionAny)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	version, err = m.Put(ctx, KindDepartment, "d1", json.RawMessage(`{"v":2}`), VersionAny)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Put(ctx, KindStudent, "s1", json.RawMessage(`{}`), 0)
	require.NoError(t, err)
	_, err = m.Put(ctx, KindStudent, "s1", json.RawMessage(`{}`), 1)
	require.NoError(t, err)

	// Conditional delete with a stale version fails.
	err = m.Delete(ctx, KindStudent, "s1", 1)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrVersionConflict))

	require.NoError(t, m.Delete(ctx, KindStudent, "s1", 2))

	err = m.Delete(ctx, KindStudent, "s1", VersionAny)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestMemoryListOrderedByID(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for _, id := range []string{"c", "a", "b"} {
		_, err := m.Put(ctx, KindCourse, id, json.RawMessage(`{}`), 0)
		require.NoError(t, err)
	}

	docs, err := m.List(ctx, KindCourse)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "b", docs[1].ID)
	assert.Equal(t, "c", docs[2].ID)

	empty, err := m.List(ctx, KindExamination)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryCopiesBodies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	body := []byte(`{"v":1}`)
	_, err := m.Put(ctx, KindCourse, "c1", body, 0)
	require.NoError(t, err)

	// Mutating the caller's slice must not reach the stored copy.
	body[5] = '9'

	doc, err := m.Get(ctx, KindCourse, "c1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(doc.Data))
}
