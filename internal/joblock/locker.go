// Package joblock serializes scheduled jobs across process instances using
// the relational store's session-scoped advisory locks.
package joblock

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultRetryInterval = 100 * time.Millisecond

// Outcome reports one WithLock invocation. A run that lost the lock to
// another instance has Acquired=false and a nil Err; that is a skip, not a
// failure.
type Outcome struct {
	Acquired bool
	// Waited is the time spent acquiring (or failing to acquire) the lock,
	// excluding fn's own runtime.
	Waited time.Duration
	Err    error
}

type Locker struct {
	driver        Driver
	log           *zap.Logger
	retryInterval time.Duration
}

func NewLocker(driver Driver, log *zap.Logger) *Locker {
	return &Locker{
		driver:        driver,
		log:           log.Named("joblock"),
		retryInterval: defaultRetryInterval,
	}
}

// TryAcquire polls the non-blocking try-lock until it succeeds or timeout
// elapses. Timing out returns (false, nil): the caller must treat that as
// "another instance is already running this job" and exit without error.
func (l *Locker) TryAcquire(ctx context.Context, identifier string, timeout time.Duration) (bool, error) {
	key := LockKey(identifier)
	deadline := time.Now().Add(timeout)

	for {
		acquired, err := l.driver.TryLock(ctx, key)
		if err != nil {
			return false, err
		}
		if acquired {
			return true, nil
		}
		if !time.Now().Add(l.retryInterval).Before(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(l.retryInterval):
		}
	}
}

func (l *Locker) Release(ctx context.Context, identifier string) error {
	return l.driver.Unlock(ctx, LockKey(identifier))
}

// WithLock runs fn under the named lock. Release happens on every exit
// path; skipping it would hold the lock until the backing session dies.
func (l *Locker) WithLock(ctx context.Context, identifier string, timeout time.Duration, fn func(ctx context.Context) error) Outcome {
	started := time.Now()
	acquired, err := l.TryAcquire(ctx, identifier, timeout)
	waited := time.Since(started)
	if err != nil {
		return Outcome{Acquired: false, Waited: waited, Err: err}
	}
	if !acquired {
		l.log.Info("lock held elsewhere, skipping",
			zap.String("identifier", identifier),
			zap.Duration("timeout", timeout),
		)
		return Outcome{Acquired: false, Waited: waited}
	}

	defer func() {
		// Release with a fresh context so cancellation of the job context
		// cannot leave the lock held.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.Release(releaseCtx, identifier); err != nil {
			l.log.Error("lock release failed",
				zap.String("identifier", identifier),
				zap.Error(err),
			)
		}
	}()

	return Outcome{Acquired: true, Waited: waited, Err: fn(ctx)}
}

var Module = fx.Module("joblock",
	fx.Provide(func(conn *gorm.DB) (Driver, error) {
		return NewPostgresDriver(conn)
	}),
	fx.Provide(NewLocker),
)
