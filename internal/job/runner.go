// Package job drives one battery-reminder run: scan stale locks, look up
// their users, push a reminder to each, record each send.
package job

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lockwatch/internal/db"
	"lockwatch/internal/dynamo"
	"lockwatch/internal/metrics"
)

// LockSource yields the locks whose battery status went unchecked past the
// cutoff.
type LockSource interface {
	FetchStale(ctx context.Context, cutoff time.Time) ([]dynamo.Lock, error)
}

// UserDirectory resolves a lock to the users registered for it.
type UserDirectory interface {
	UsersForLock(ctx context.Context, lockID string) ([]db.UserDevice, error)
}

// Notifier pushes one reminder to one device token.
type Notifier interface {
	Notify(ctx context.Context, token, lockID string) (string, error)
}

// Recorder appends one audit row per sent reminder.
type Recorder interface {
	RecordSent(ctx context.Context, userID uuid.UUID, lockID string) error
}

// Guard optionally suppresses repeat sends for the same user/lock within a
// day. Reserve reports whether this send is the first; guard errors fail
// open and the send proceeds. Release returns a reservation whose send
// failed, so an aborted run does not swallow the user's reminder.
type Guard interface {
	Reserve(ctx context.Context, userID uuid.UUID, lockID string) (bool, error)
	Release(ctx context.Context, userID uuid.UUID, lockID string) error
}

// Config holds run parameters.
type Config struct {
	StaleWindow time.Duration
}

// Runner owns the control flow of one run. All collaborators are injected;
// the zero guard means no dedup, which is the reference behavior.
type Runner struct {
	locks    LockSource
	users    UserDirectory
	notifier Notifier
	recorder Recorder
	guard    Guard
	config   Config
	logger   *zap.Logger

	// now is injectable for tests.
	now func() time.Time
}

func New(locks LockSource, users UserDirectory, notifier Notifier, recorder Recorder, cfg Config, logger *zap.Logger) *Runner {
	if cfg.StaleWindow == 0 {
		cfg.StaleWindow = 30 * 24 * time.Hour
	}

	return &Runner{
		locks:    locks,
		users:    users,
		notifier: notifier,
		recorder: recorder,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// WithGuard enables the cross-run dedup guard.
func (r *Runner) WithGuard(guard Guard) *Runner {
	r.guard = guard
	return r
}

// Run performs one pass. Processing is strictly sequential in the order the
// stores return locks and users. The first error anywhere aborts the whole
// run; there is no per-lock or per-user isolation and no retry.
func (r *Runner) Run(ctx context.Context) error {
	start := r.now()
	cutoff := start.Add(-r.config.StaleWindow)

	r.logger.Info("processing locks not checked since cutoff",
		zap.Time("cutoff", cutoff),
	)

	locks, err := r.locks.FetchStale(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("fetch stale locks: %w", err)
	}
	metrics.LocksStale.Add(float64(len(locks)))

	r.logger.Info("stale locks found", zap.Int("count", len(locks)))

	for _, lock := range locks {
		users, err := r.users.UsersForLock(ctx, lock.LockID)
		if err != nil {
			return fmt.Errorf("lookup users for lock %s: %w", lock.LockID, err)
		}

		for _, user := range users {
			if r.guard != nil {
				first, err := r.guard.Reserve(ctx, user.UserID, lock.LockID)
				if err != nil {
					// Fail open: a broken guard must not block reminders.
					r.logger.Warn("dedup guard unavailable, sending anyway",
						zap.Error(err),
						zap.String("user_id", user.UserID.String()),
						zap.String("lock_id", lock.LockID),
					)
				} else if !first {
					r.logger.Info("reminder already sent today, skipping",
						zap.String("user_id", user.UserID.String()),
						zap.String("lock_id", lock.LockID),
					)
					metrics.SendsSkipped.Inc()
					continue
				}
			}

			if _, err := r.notifier.Notify(ctx, user.FCMID, lock.LockID); err != nil {
				metrics.SendFailures.Inc()
				if r.guard != nil {
					// Nothing was delivered; give the slot back so the
					// operator's re-run reaches this user.
					if relErr := r.guard.Release(ctx, user.UserID, lock.LockID); relErr != nil {
						r.logger.Warn("failed-send reservation not released",
							zap.Error(relErr),
							zap.String("user_id", user.UserID.String()),
							zap.String("lock_id", lock.LockID),
						)
					}
				}
				return fmt.Errorf("notify user %s for lock %s: %w", user.UserID, lock.LockID, err)
			}
			metrics.NotificationsSent.Inc()

			if err := r.recorder.RecordSent(ctx, user.UserID, lock.LockID); err != nil {
				// The push already went out; the audit trail is now short
				// one row and the run still aborts.
				r.logger.Warn("user notified but send not recorded",
					zap.String("user_id", user.UserID.String()),
					zap.String("lock_id", lock.LockID),
				)
				return fmt.Errorf("record send for user %s, lock %s: %w", user.UserID, lock.LockID, err)
			}

			r.logger.Info("notification logged",
				zap.String("user_id", user.UserID.String()),
				zap.String("lock_id", lock.LockID),
			)
		}
	}

	metrics.RunDuration.Set(r.now().Sub(start).Seconds())
	r.logger.Info("job complete",
		zap.Int("stale_locks", len(locks)),
		zap.Duration("elapsed", r.now().Sub(start)),
	)

	return nil
}
