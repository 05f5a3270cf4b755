package relation

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

// keyedLimiter hands out an exclusive section per key. Acquisition is
// bounded: a caller that cannot enter within the configured wait gets
// ErrBusy instead of blocking indefinitely. Keys for different records never
// contend with each other.
type keyedLimiter struct {
	mu   sync.Mutex
	sems map[string]*refSem
}

type refSem struct {
	sem  *semaphore.Weighted
	refs int
}

func newKeyedLimiter() *keyedLimiter {
	return &keyedLimiter{sems: make(map[string]*refSem)}
}

// acquire enters the exclusive section for key, waiting at most wait. The
// returned release function must be called exactly once.
func (l *keyedLimiter) acquire(ctx context.Context, key string, wait time.Duration) (func(), error) {
	l.mu.Lock()
	entry, ok := l.sems[key]
	if !ok {
		entry = &refSem{sem: semaphore.NewWeighted(1)}
		l.sems[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	acquireCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	if err := entry.sem.Acquire(acquireCtx, 1); err != nil {
		l.put(key, entry)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, appErrors.Clone(appErrors.ErrBusy, "")
		}
		return nil, err
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			entry.sem.Release(1)
			l.put(key, entry)
		})
	}
	return release, nil
}

// put drops one reference and evicts the semaphore once unused.
func (l *keyedLimiter) put(key string, entry *refSem) {
	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.sems, key)
	}
	l.mu.Unlock()
}
