// Package delivery performs the actual reminder push and the pending -> sent
// transition. It is invoked from two independent paths, the delay-queue
// callback and the periodic due sweep, so every entry point must tolerate
// duplicate and racing triggers.
package delivery

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"remindline/internal/format"
	"remindline/internal/models"
)

// Store is the slice of the reminder repository delivery needs.
type Store interface {
	GetByID(ctx context.Context, id string) (*models.Reminder, error)
	FindDue(ctx context.Context, now time.Time) ([]*models.Reminder, error)
	MarkSent(ctx context.Context, id string) (bool, error)
}

// Pusher sends a message to a user outside a reply context.
type Pusher interface {
	Push(ctx context.Context, userID, text string) error
}

type Outcome int

const (
	OutcomeSent Outcome = iota
	OutcomeAlreadyProcessed
	OutcomeNotFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeAlreadyProcessed:
		return "already_processed"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

type Service struct {
	store  Store
	pusher Pusher
	tf     *format.TimeFormatter
	log    *zap.Logger
}

func New(store Store, pusher Pusher, tf *format.TimeFormatter, log *zap.Logger) *Service {
	return &Service{store: store, pusher: pusher, tf: tf, log: log}
}

// Deliver pushes one reminder and marks it sent. Idempotent: a reminder that
// is missing or no longer pending is a benign no-op, because the delay queue
// may redeliver the callback and the sweep may race with it. On push failure
// the reminder stays pending and the next sweep retries it.
func (s *Service) Deliver(ctx context.Context, id string) (Outcome, error) {
	reminder, err := s.store.GetByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to load reminder %s: %w", id, err)
	}
	if reminder == nil {
		s.log.Info("delivery for unknown reminder", zap.String("reminderId", id))
		return OutcomeNotFound, nil
	}
	if reminder.Status != models.StatusPending {
		s.log.Info("delivery for already processed reminder",
			zap.String("reminderId", id),
			zap.String("status", string(reminder.Status)))
		return OutcomeAlreadyProcessed, nil
	}

	text := fmt.Sprintf("⏰ 提醒時間：%s\n內容：%s", s.tf.Format(reminder.ScheduledAt), reminder.Message)
	if err := s.pusher.Push(ctx, reminder.UserID, text); err != nil {
		return 0, fmt.Errorf("failed to push reminder %s: %w", id, err)
	}

	won, err := s.store.MarkSent(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to mark reminder %s sent: %w", id, err)
	}
	if !won {
		// The other delivery path transitioned the row between our status
		// check and the update.
		s.log.Warn("lost mark-sent race", zap.String("reminderId", id))
		return OutcomeAlreadyProcessed, nil
	}

	s.log.Info("reminder delivered", zap.String("reminderId", id), zap.String("userId", reminder.UserID))
	return OutcomeSent, nil
}

// SweepItem is one reminder's result within a sweep batch.
type SweepItem struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Sweep delivers every pending reminder whose time has passed. It is the
// backup path for callbacks that never arrive, and the retry path for
// failed pushes. One reminder's failure never aborts the rest of the batch.
func (s *Service) Sweep(ctx context.Context, now time.Time) ([]SweepItem, error) {
	due, err := s.store.FindDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due reminders: %w", err)
	}

	items := make([]SweepItem, 0, len(due))
	for _, reminder := range due {
		outcome, err := s.Deliver(ctx, reminder.ID)
		if err != nil {
			s.log.Error("sweep delivery failed", zap.String("reminderId", reminder.ID), zap.Error(err))
			items = append(items, SweepItem{ID: reminder.ID, Status: "failed", Error: err.Error()})
			continue
		}
		items = append(items, SweepItem{ID: reminder.ID, Status: outcome.String()})
	}
	return items, nil
}
