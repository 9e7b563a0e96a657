package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// reservationTTL keeps a day-bucketed key alive long enough to cover every
// schedule that could re-process the same stale lock within that day.
const reservationTTL = 48 * time.Hour

// DedupGuard suppresses repeat reminders for the same user and lock within
// one UTC day. The audit table stays append-only; the guard is a side lookup
// and the job runs fine without it.
type DedupGuard struct {
	client *Client
	logger *zap.Logger

	// now is injectable for tests.
	now func() time.Time
}

// NewDedupGuard creates a guard over an established client.
func NewDedupGuard(client *Client, logger *zap.Logger) *DedupGuard {
	return &DedupGuard{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

func (g *DedupGuard) key(userID uuid.UUID, lockID string) string {
	day := g.now().UTC().Format("2006-01-02")
	return fmt.Sprintf("sent:%s:%s:%s", lockID, userID, day)
}

// Reserve claims the user/lock slot for today. It returns true when this is
// the first send of the day and false when an earlier run already claimed it.
func (g *DedupGuard) Reserve(ctx context.Context, userID uuid.UUID, lockID string) (bool, error) {
	key := g.key(userID, lockID)

	first, err := g.client.rdb.SetNX(ctx, key, "1", reservationTTL).Result()
	if err != nil {
		return false, fmt.Errorf("reserve dedup key: %w", err)
	}

	if !first {
		g.logger.Debug("dedup key already reserved", zap.String("key", key))
	}

	return first, nil
}

// Release drops a reservation whose send never went through, so a same-day
// re-run after an aborted run can still reach the user.
func (g *DedupGuard) Release(ctx context.Context, userID uuid.UUID, lockID string) error {
	if err := g.client.rdb.Del(ctx, g.key(userID, lockID)).Err(); err != nil {
		return fmt.Errorf("release dedup key: %w", err)
	}
	return nil
}
