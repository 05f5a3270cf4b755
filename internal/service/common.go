package service

import (
	"context"
	"encoding/json"

	"github.com/noah-isme/uni-records-api/internal/store"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

// updateAttempts bounds facade-side retries of version-conflicted updates.
// Conflicts here are transient (another handler touched the record); after
// the budget is spent the caller gets Busy and may retry.
const updateAttempts = 3

// mutateDocument reads a record, applies the caller's transformation, and
// writes it back conditionally on the version it read, retrying conflicts.
func mutateDocument(ctx context.Context, st store.Store, kind store.Kind, id string, apply func(doc store.Document) (json.RawMessage, error)) error {
	var lastErr error
	for attempt := 0; attempt < updateAttempts; attempt++ {
		doc, err := st.Get(ctx, kind, id)
		if err != nil {
			return err
		}
		data, err := apply(doc)
		if err != nil {
			return err
		}
		if _, err := st.Put(ctx, kind, id, data, doc.Version); err != nil {
			if appErrors.HasCode(err, appErrors.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return err
		}
		return nil
	}
	return appErrors.Wrap(lastErr, appErrors.ErrBusy.Code, appErrors.ErrBusy.Status, "record contended, retry later")
}
