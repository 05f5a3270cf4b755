// Package relation owns the bidirectional enrollment edge between students
// and courses. It is the single writer of Student.EnrolledCourseIDs and
// Course.EnrolledStudentIDs: every mutation of either set goes through the
// Manager, which serializes per record, enforces capacity against the
// committed count, and compensates partial writes so no one-sided edge
// outlives a failed operation.
package relation

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-records-api/internal/models"
	"github.com/noah-isme/uni-records-api/internal/store"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

// Outcome is the result of an edge operation. AlreadyEnrolled and
// NotEnrolled are idempotent no-ops, not failures.
type Outcome string

const (
	OutcomeEnrolled        Outcome = "ENROLLED"
	OutcomeAlreadyEnrolled Outcome = "ALREADY_ENROLLED"
	OutcomeUnenrolled      Outcome = "UNENROLLED"
	OutcomeNotEnrolled     Outcome = "NOT_ENROLLED"
)

// EntityKind selects the owning side for CascadeOnDelete.
type EntityKind string

const (
	EntityStudent EntityKind = "student"
	EntityCourse  EntityKind = "course"
)

// Metrics receives domain-level observations from the manager.
type Metrics interface {
	ObserveEdgeOperation(op string, outcome string)
	RecordCompensation()
	RecordLockTimeout()
}

// Options tunes serialization and retry behaviour.
type Options struct {
	// LockWait bounds how long an operation waits for a record's exclusive
	// section before failing with Busy.
	LockWait time.Duration
	// MaxRetries bounds internal retries of version-conflicted writes.
	MaxRetries int
	// RetryBackoff is the delay between such retries.
	RetryBackoff time.Duration
	// CascadePasses bounds how often a cascade re-sweeps a record whose edge
	// set keeps changing underneath it.
	CascadePasses int
}

func (o *Options) applyDefaults() {
	if o.LockWait <= 0 {
		o.LockWait = 2 * time.Second
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 25 * time.Millisecond
	}
	if o.CascadePasses <= 0 {
		o.CascadePasses = 5
	}
}

// Manager enforces the enrollment invariants on top of the entity store.
type Manager struct {
	store   store.Store
	locks   *keyedLimiter
	logger  *zap.Logger
	metrics Metrics
	opts    Options
}

// NewManager constructs a Manager. logger and metrics may be nil.
func NewManager(st store.Store, opts Options, logger *zap.Logger, metrics Metrics) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.applyDefaults()
	return &Manager{store: st, locks: newKeyedLimiter(), logger: logger, metrics: metrics, opts: opts}
}

// errNoChange aborts a mutation that turned out to be a no-op.
var errNoChange = errors.New("no change")

// Enroll adds the student↔course edge. Capacity is checked against the
// committed enrolled count under the course's exclusive section, so the
// first requester to enter wins the last seat.
func (m *Manager) Enroll(ctx context.Context, studentID, courseID string) (Outcome, error) {
	outcome, err := m.enroll(ctx, studentID, courseID)
	m.observe("enroll", outcome, err)
	return outcome, err
}

func (m *Manager) enroll(ctx context.Context, studentID, courseID string) (Outcome, error) {
	release, err := m.lockPair(ctx, courseID, studentID)
	if err != nil {
		return "", err
	}
	defer release()

	course, _, err := m.getCourse(ctx, courseID)
	if err != nil {
		return "", err
	}
	student, _, err := m.getStudent(ctx, studentID)
	if err != nil {
		return "", err
	}

	onCourse := containsID(course.EnrolledStudentIDs, studentID)
	onStudent := containsID(student.EnrolledCourseIDs, courseID)
	if onCourse && onStudent {
		return OutcomeAlreadyEnrolled, nil
	}

	// Course side first: capacity is validated in the same mutation that
	// claims the seat, and re-validated if the write has to be retried.
	courseWrote := false
	err = m.mutateCourse(ctx, courseID, func(c *models.Course) error {
		courseWrote = false
		if containsID(c.EnrolledStudentIDs, studentID) {
			return errNoChange
		}
		if c.EnrolledCount() >= c.MaxCapacity {
			return appErrors.Clone(appErrors.ErrCapacityExceeded, "")
		}
		c.EnrolledStudentIDs = append(c.EnrolledStudentIDs, studentID)
		courseWrote = true
		return nil
	})
	if err != nil {
		return "", err
	}

	err = m.mutateStudent(ctx, studentID, func(s *models.Student) error {
		if containsID(s.EnrolledCourseIDs, courseID) {
			return errNoChange
		}
		s.EnrolledCourseIDs = append(s.EnrolledCourseIDs, courseID)
		return nil
	})
	if err != nil {
		return "", m.compensateCourse(ctx, studentID, courseID, courseWrote, err)
	}

	return OutcomeEnrolled, nil
}

// Unenroll removes the student↔course edge. Removing a non-existent edge is
// a no-op reported as NotEnrolled.
func (m *Manager) Unenroll(ctx context.Context, studentID, courseID string) (Outcome, error) {
	outcome, err := m.unenroll(ctx, studentID, courseID)
	m.observe("unenroll", outcome, err)
	return outcome, err
}

func (m *Manager) unenroll(ctx context.Context, studentID, courseID string) (Outcome, error) {
	release, err := m.lockPair(ctx, courseID, studentID)
	if err != nil {
		return "", err
	}
	defer release()

	course, _, err := m.getCourse(ctx, courseID)
	if err != nil {
		return "", err
	}
	student, _, err := m.getStudent(ctx, studentID)
	if err != nil {
		return "", err
	}

	onCourse := containsID(course.EnrolledStudentIDs, studentID)
	onStudent := containsID(student.EnrolledCourseIDs, courseID)
	if !onCourse && !onStudent {
		return OutcomeNotEnrolled, nil
	}

	if err := m.removeEdgeLocked(ctx, studentID, courseID); err != nil {
		return "", err
	}
	return OutcomeUnenrolled, nil
}

// CascadeOnDelete removes every edge pointing at the record and then deletes
// it. The delete is conditional on the version observed after the last
// sweep, so an edge added in between forces another pass rather than leaving
// a dangling reference. A record whose edge set never settles within the
// configured number of passes surfaces as Busy.
func (m *Manager) CascadeOnDelete(ctx context.Context, kind EntityKind, id string) error {
	switch kind {
	case EntityStudent:
		return m.cascadeStudent(ctx, id)
	case EntityCourse:
		return m.cascadeCourse(ctx, id)
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unknown entity kind")
	}
}

func (m *Manager) cascadeStudent(ctx context.Context, id string) error {
	for pass := 0; pass < m.opts.CascadePasses; pass++ {
		doc, err := m.store.Get(ctx, store.KindStudent, id)
		if err != nil {
			return err
		}
		var student models.Student
		if err := store.Decode(doc, &student); err != nil {
			return err
		}

		if len(student.EnrolledCourseIDs) == 0 {
			err := m.store.Delete(ctx, store.KindStudent, id, doc.Version)
			if appErrors.HasCode(err, appErrors.ErrVersionConflict) {
				continue
			}
			return err
		}

		for _, courseID := range sortedCopy(student.EnrolledCourseIDs) {
			if err := m.removeEdge(ctx, id, courseID); err != nil {
				return err
			}
		}
	}
	m.logger.Warn("cascade delete did not settle",
		zap.String("kind", string(EntityStudent)), zap.String("id", id))
	return appErrors.Clone(appErrors.ErrBusy, "record kept gaining enrollments during delete")
}

func (m *Manager) cascadeCourse(ctx context.Context, id string) error {
	for pass := 0; pass < m.opts.CascadePasses; pass++ {
		doc, err := m.store.Get(ctx, store.KindCourse, id)
		if err != nil {
			return err
		}
		var course models.Course
		if err := store.Decode(doc, &course); err != nil {
			return err
		}

		if len(course.EnrolledStudentIDs) == 0 {
			err := m.store.Delete(ctx, store.KindCourse, id, doc.Version)
			if appErrors.HasCode(err, appErrors.ErrVersionConflict) {
				continue
			}
			return err
		}

		for _, studentID := range sortedCopy(course.EnrolledStudentIDs) {
			if err := m.removeEdge(ctx, studentID, id); err != nil {
				return err
			}
		}
	}
	m.logger.Warn("cascade delete did not settle",
		zap.String("kind", string(EntityCourse)), zap.String("id", id))
	return appErrors.Clone(appErrors.ErrBusy, "record kept gaining enrollments during delete")
}

// removeEdge acquires the pair's exclusive sections and removes whatever
// halves of the edge exist. A missing counterpart record is treated as "edge
// already gone" on that side; the surviving side is still cleaned, which is
// what keeps two racing cascade deletes from stranding a dangling id.
func (m *Manager) removeEdge(ctx context.Context, studentID, courseID string) error {
	release, err := m.lockPair(ctx, courseID, studentID)
	if err != nil {
		return err
	}
	defer release()
	return m.removeEdgeLocked(ctx, studentID, courseID)
}

func (m *Manager) removeEdgeLocked(ctx context.Context, studentID, courseID string) error {
	courseWrote := false
	err := m.mutateCourse(ctx, courseID, func(c *models.Course) error {
		courseWrote = false
		ids, removed := removeID(c.EnrolledStudentIDs, studentID)
		if !removed {
			return errNoChange
		}
		c.EnrolledStudentIDs = ids
		courseWrote = true
		return nil
	})
	if err != nil && !appErrors.HasCode(err, appErrors.ErrNotFound) {
		return err
	}

	err = m.mutateStudent(ctx, studentID, func(s *models.Student) error {
		ids, removed := removeID(s.EnrolledCourseIDs, courseID)
		if !removed {
			return errNoChange
		}
		s.EnrolledCourseIDs = ids
		return nil
	})
	if err != nil && !appErrors.HasCode(err, appErrors.ErrNotFound) {
		// Course side is already updated; re-adding the student there cannot
		// exceed capacity because the seat was theirs a moment ago.
		return m.compensateUnenroll(ctx, studentID, courseID, courseWrote, err)
	}
	return nil
}

// compensateCourse reverts the course-side write of a failed enroll.
func (m *Manager) compensateCourse(ctx context.Context, studentID, courseID string, wrote bool, cause error) error {
	if !wrote {
		return cause
	}
	m.recordCompensation()
	revertErr := m.mutateCourse(ctx, courseID, func(c *models.Course) error {
		ids, removed := removeID(c.EnrolledStudentIDs, studentID)
		if !removed {
			return errNoChange
		}
		c.EnrolledStudentIDs = ids
		return nil
	})
	if revertErr != nil {
		m.logger.Error("enroll compensation failed, edge left one-sided",
			zap.String("student_id", studentID), zap.String("course_id", courseID),
			zap.Error(revertErr), zap.NamedError("cause", cause))
	} else {
		m.logger.Warn("enroll compensated after partial write",
			zap.String("student_id", studentID), zap.String("course_id", courseID),
			zap.Error(cause))
	}
	return appErrors.Wrap(cause, appErrors.ErrInconsistent.Code, appErrors.ErrInconsistent.Status,
		"enrollment write failed after course update")
}

// compensateUnenroll re-adds the course-side membership of a failed
// unenroll.
func (m *Manager) compensateUnenroll(ctx context.Context, studentID, courseID string, wrote bool, cause error) error {
	if !wrote {
		return cause
	}
	m.recordCompensation()
	revertErr := m.mutateCourse(ctx, courseID, func(c *models.Course) error {
		if containsID(c.EnrolledStudentIDs, studentID) {
			return errNoChange
		}
		c.EnrolledStudentIDs = append(c.EnrolledStudentIDs, studentID)
		return nil
	})
	if revertErr != nil {
		m.logger.Error("unenroll compensation failed, edge left one-sided",
			zap.String("student_id", studentID), zap.String("course_id", courseID),
			zap.Error(revertErr), zap.NamedError("cause", cause))
	} else {
		m.logger.Warn("unenroll compensated after partial write",
			zap.String("student_id", studentID), zap.String("course_id", courseID),
			zap.Error(cause))
	}
	return appErrors.Wrap(cause, appErrors.ErrInconsistent.Code, appErrors.ErrInconsistent.Status,
		"unenrollment write failed after course update")
}

// lockPair enters the exclusive sections of a course and a student, always
// course first. Every code path that touches both records uses this helper,
// which is what rules out lock-order deadlocks.
func (m *Manager) lockPair(ctx context.Context, courseID, studentID string) (func(), error) {
	releaseCourse, err := m.locks.acquire(ctx, "course:"+courseID, m.opts.LockWait)
	if err != nil {
		m.recordLockTimeout(err)
		return nil, err
	}
	releaseStudent, err := m.locks.acquire(ctx, "student:"+studentID, m.opts.LockWait)
	if err != nil {
		releaseCourse()
		m.recordLockTimeout(err)
		return nil, err
	}
	return func() {
		releaseStudent()
		releaseCourse()
	}, nil
}

func (m *Manager) getCourse(ctx context.Context, id string) (models.Course, int64, error) {
	doc, err := m.store.Get(ctx, store.KindCourse, id)
	if err != nil {
		return models.Course{}, 0, err
	}
	var course models.Course
	if err := store.Decode(doc, &course); err != nil {
		return models.Course{}, 0, err
	}
	return course, doc.Version, nil
}

func (m *Manager) getStudent(ctx context.Context, id string) (models.Student, int64, error) {
	doc, err := m.store.Get(ctx, store.KindStudent, id)
	if err != nil {
		return models.Student{}, 0, err
	}
	var student models.Student
	if err := store.Decode(doc, &student); err != nil {
		return models.Student{}, 0, err
	}
	return student, doc.Version, nil
}

// mutateCourse applies mutate under optimistic concurrency: read, mutate,
// CAS write, with bounded retries on version conflicts. The caller holds the
// course's exclusive section, so conflicts only come from CRUD updates to
// unrelated fields.
func (m *Manager) mutateCourse(ctx context.Context, id string, mutate func(*models.Course) error) error {
	var lastErr error
	for attempt := 0; attempt <= m.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, m.opts.RetryBackoff); err != nil {
				return err
			}
		}
		doc, err := m.store.Get(ctx, store.KindCourse, id)
		if err != nil {
			return err
		}
		var course models.Course
		if err := store.Decode(doc, &course); err != nil {
			return err
		}
		if err := mutate(&course); err != nil {
			if errors.Is(err, errNoChange) {
				return nil
			}
			return err
		}
		course.UpdatedAt = time.Now().UTC()
		data, err := store.Encode(course)
		if err != nil {
			return err
		}
		if _, err := m.store.Put(ctx, store.KindCourse, id, data, doc.Version); err != nil {
			if appErrors.HasCode(err, appErrors.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return err
		}
		return nil
	}
	return appErrors.Wrap(lastErr, appErrors.ErrBusy.Code, appErrors.ErrBusy.Status, "course record contended")
}

func (m *Manager) mutateStudent(ctx context.Context, id string, mutate func(*models.Student) error) error {
	var lastErr error
	for attempt := 0; attempt <= m.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, m.opts.RetryBackoff); err != nil {
				return err
			}
		}
		doc, err := m.store.Get(ctx, store.KindStudent, id)
		if err != nil {
			return err
		}
		var student models.Student
		if err := store.Decode(doc, &student); err != nil {
			return err
		}
		if err := mutate(&student); err != nil {
			if errors.Is(err, errNoChange) {
				return nil
			}
			return err
		}
		student.UpdatedAt = time.Now().UTC()
		data, err := store.Encode(student)
		if err != nil {
			return err
		}
		if _, err := m.store.Put(ctx, store.KindStudent, id, data, doc.Version); err != nil {
			if appErrors.HasCode(err, appErrors.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return err
		}
		return nil
	}
	return appErrors.Wrap(lastErr, appErrors.ErrBusy.Code, appErrors.ErrBusy.Status, "student record contended")
}

func (m *Manager) observe(op string, outcome Outcome, err error) {
	if m.metrics == nil {
		return
	}
	result := string(outcome)
	if err != nil {
		result = appErrors.FromError(err).Code
	}
	m.metrics.ObserveEdgeOperation(op, result)
}

func (m *Manager) recordCompensation() {
	if m.metrics != nil {
		m.metrics.RecordCompensation()
	}
}

func (m *Manager) recordLockTimeout(err error) {
	if m.metrics != nil && appErrors.HasCode(err, appErrors.ErrBusy) {
		m.metrics.RecordLockTimeout()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) ([]string, bool) {
	for i, v := range ids {
		if v == id {
			out := make([]string, 0, len(ids)-1)
			out = append(out, ids[:i]...)
			out = append(out, ids[i+1:]...)
			return out, true
		}
	}
	return ids, false
}

func sortedCopy(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	sort.Strings(out)
	return out
}
