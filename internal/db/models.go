package db

import (
	"time"

	"github.com/google/uuid"
)

// UserDevice is one row of the lock_user_mapping table: a user registered to
// a lock together with the FCM device token their reminders go to.
type UserDevice struct {
	UserID uuid.UUID `json:"user_id"`
	FCMID  string    `json:"fcm_id"`
}

// NotificationEvent is one audit row in notification_events. Rows are
// append-only; sent_at is assigned by the database at insert time.
type NotificationEvent struct {
	UserID uuid.UUID `json:"user_id"`
	LockID string    `json:"lock_id"`
	SentAt time.Time `json:"sent_at"`
}
