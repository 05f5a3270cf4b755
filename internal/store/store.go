// Package store defines the document-oriented entity store the rest of the
// system is built on: keyed records grouped by kind, each carrying a version
// used for optimistic concurrency. The store knows nothing about the
// relationships between records; that discipline lives in internal/relation.
package store

import (
	"context"
	"encoding/json"

	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

// Kind names a record collection.
type Kind string

const (
	KindStudent      Kind = "students"
	KindCourse       Kind = "courses"
	KindDepartment   Kind = "departments"
	KindAnnouncement Kind = "announcements"
	KindExamination  Kind = "examinations"
)

// Document is a stored record with its version. Data is the JSON body of the
// domain model; Version increases by one on every committed write.
type Document struct {
	Kind    Kind            `json:"kind"`
	ID      string          `json:"id"`
	Data    json.RawMessage `json:"data"`
	Version int64           `json:"version"`
}

// VersionAny skips the version check on Put and Delete.
const VersionAny int64 = -1

// Store is the entity store contract.
//
// Put with expectedVersion == 0 creates the record and fails with a version
// conflict if it already exists. A positive expectedVersion is a
// compare-and-swap update: ErrVersionConflict when the stored version
// differs, ErrNotFound when the record is gone. VersionAny writes
// unconditionally over an existing record.
//
// Delete follows the same convention so callers can make removal conditional
// on the record not having changed since they last read it.
type Store interface {
	Get(ctx context.Context, kind Kind, id string) (Document, error)
	Put(ctx context.Context, kind Kind, id string, data json.RawMessage, expectedVersion int64) (int64, error)
	Delete(ctx context.Context, kind Kind, id string, expectedVersion int64) error
	List(ctx context.Context, kind Kind) ([]Document, error)
}

// Decode unmarshals a document body into the given model.
func Decode(doc Document, out interface{}) error {
	if err := json.Unmarshal(doc.Data, out); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "corrupt stored document")
	}
	return nil
}

// Encode marshals a model into a document body.
func Encode(in interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode document")
	}
	return data, nil
}
