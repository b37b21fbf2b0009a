package notification

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Notification types used across the system.
const (
	TypeInfo    = "INFO"
	TypeSuccess = "SUCCESS"
	TypeWarning = "WARNING"
)

var (
	ErrNotFound  = errors.New("notification not found")
	ErrForbidden = errors.New("not authorized")
)

// Notification maps to the notifications table. Rows are immutable except
// for the is_read flag.
type Notification struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	Type      string    `db:"notification_type" json:"notification_type"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
