package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrQuery wraps failures of the lock/user mapping lookup.
var ErrQuery = errors.New("lock user mapping query failed")

// ErrWrite wraps failures of the notification event insert.
var ErrWrite = errors.New("notification event insert failed")

// Repository handles reads from lock_user_mapping and appends to
// notification_events.
type Repository struct {
	db     *DB
	logger *zap.Logger
}

// NewRepository creates a repository over an established pool.
func NewRepository(db *DB, logger *zap.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// UsersForLock returns the users registered to a lock with their device
// tokens. A lock with no users yields an empty slice, not an error. Row order
// comes straight from the database and carries no guarantee.
func (r *Repository) UsersForLock(ctx context.Context, lockID string) ([]UserDevice, error) {
	query := `
		SELECT user_id, fcm_id
		FROM lock_user_mapping
		WHERE lock_id = $1
	`

	rows, err := r.db.Pool().Query(ctx, query, lockID)
	if err != nil {
		r.logger.Error("failed to query users for lock",
			zap.Error(err),
			zap.String("lock_id", lockID),
		)
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	defer rows.Close()

	var users []UserDevice
	for rows.Next() {
		var u UserDevice
		if err := rows.Scan(&u.UserID, &u.FCMID); err != nil {
			return nil, fmt.Errorf("%w: scan row: %w", ErrQuery, err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}

	return users, nil
}

// RecordSent appends one audit row for a notification that was just sent.
// The send timestamp is assigned by the database. There is no idempotence
// key: recording the same user/lock pair twice produces two rows.
func (r *Repository) RecordSent(ctx context.Context, userID uuid.UUID, lockID string) error {
	query := `
		INSERT INTO notification_events (user_id, lock_id, sent_at)
		VALUES ($1, $2, NOW())
	`

	if _, err := r.db.Pool().Exec(ctx, query, userID, lockID); err != nil {
		r.logger.Error("failed to record notification event",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.String("lock_id", lockID),
		)
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	return nil
}
