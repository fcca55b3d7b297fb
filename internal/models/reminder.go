package models

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status allows no further transition.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusCancelled
}

type Reminder struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"` // LINE user ID of the owner
	Message     string     `json:"message"`
	ScheduledAt time.Time  `json:"scheduled_at"` // UTC
	Status      Status     `json:"status"`
	SentAt      *time.Time `json:"sent_at"` // set exactly once, on pending -> sent
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
