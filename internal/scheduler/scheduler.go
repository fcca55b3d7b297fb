// Package scheduler registers delayed delivery callbacks with an external
// delay-queue service. The service holds no timers itself: at fire time the
// queue POSTs the payload back to our delivery endpoint.
package scheduler

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"remindline/internal/models"
)

// CallbackPath is where the delay queue posts due reminders back to us.
const CallbackPath = "/api/reminder/send"

// Payload is what the delay queue carries and hands back at fire time.
type Payload struct {
	ReminderID string `json:"reminderId"`
	UserID     string `json:"userId"`
	Message    string `json:"message"`
}

// DelayQueue is the slice of the QStash client the scheduler needs.
type DelayQueue interface {
	PublishJSON(ctx context.Context, url string, body any, delay time.Duration) (string, error)
}

type Scheduler struct {
	queue       DelayQueue
	callbackURL string
	log         *zap.Logger
}

func New(queue DelayQueue, appBaseURL string, log *zap.Logger) *Scheduler {
	base := strings.TrimRight(appBaseURL, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return &Scheduler{
		queue:       queue,
		callbackURL: base + CallbackPath,
		log:         log,
	}
}

// Schedule registers a one-shot callback for the reminder's scheduled time.
// Rescheduling does not cancel a previously registered callback for the old
// time; the delivery handler's already-processed check makes the stale
// callback a no-op.
func (s *Scheduler) Schedule(ctx context.Context, reminder *models.Reminder) (string, error) {
	delay := time.Until(reminder.ScheduledAt)
	if delay < 0 {
		delay = 0
	}

	messageID, err := s.queue.PublishJSON(ctx, s.callbackURL, Payload{
		ReminderID: reminder.ID,
		UserID:     reminder.UserID,
		Message:    reminder.Message,
	}, delay)
	if err != nil {
		return "", err
	}

	s.log.Info("scheduled delivery callback",
		zap.String("reminderId", reminder.ID),
		zap.String("messageId", messageID),
		zap.Time("scheduledAt", reminder.ScheduledAt),
		zap.Duration("delay", delay))
	return messageID, nil
}
