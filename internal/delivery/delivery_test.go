package delivery

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"remindline/internal/format"
	"remindline/internal/models"
)

type fakeStore struct {
	reminders map[string]*models.Reminder
}

func newFakeStore(reminders ...*models.Reminder) *fakeStore {
	s := &fakeStore{reminders: make(map[string]*models.Reminder)}
	for _, r := range reminders {
		s.reminders[r.ID] = r
	}
	return s
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*models.Reminder, error) {
	r, ok := s.reminders[id]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

func (s *fakeStore) FindDue(_ context.Context, now time.Time) ([]*models.Reminder, error) {
	var due []*models.Reminder
	for _, r := range s.reminders {
		if r.Status == models.StatusPending && !r.ScheduledAt.After(now) {
			copied := *r
			due = append(due, &copied)
		}
	}
	return due, nil
}

func (s *fakeStore) MarkSent(_ context.Context, id string) (bool, error) {
	r, ok := s.reminders[id]
	if !ok || r.Status != models.StatusPending {
		return false, nil
	}
	now := time.Now()
	r.Status = models.StatusSent
	r.SentAt = &now
	return true, nil
}

type fakePusher struct {
	pushed []string // "userID: text"
	fail   bool
}

func (p *fakePusher) Push(_ context.Context, userID, text string) error {
	if p.fail {
		return fmt.Errorf("push channel unavailable")
	}
	p.pushed = append(p.pushed, userID+": "+text)
	return nil
}

func newService(store Store, pusher Pusher) *Service {
	return New(store, pusher, format.NewTimeFormatter("UTC"), zap.NewNop())
}

func pendingReminder(id string, at time.Time) *models.Reminder {
	return &models.Reminder{
		ID:          id,
		UserID:      "user-1",
		Message:     "開會",
		ScheduledAt: at,
		Status:      models.StatusPending,
	}
}

func TestDeliverIdempotent(t *testing.T) {
	t.Parallel()
	store := newFakeStore(pendingReminder("r1", time.Now()))
	pusher := &fakePusher{}
	svc := newService(store, pusher)
	ctx := context.Background()

	outcome, err := svc.Deliver(ctx, "r1")
	if err != nil {
		t.Fatalf("first Deliver: %v", err)
	}
	if outcome != OutcomeSent {
		t.Fatalf("first Deliver outcome = %v, want OutcomeSent", outcome)
	}

	// Simulated redelivery from the delay queue.
	outcome, err = svc.Deliver(ctx, "r1")
	if err != nil {
		t.Fatalf("second Deliver: %v", err)
	}
	if outcome != OutcomeAlreadyProcessed {
		t.Fatalf("second Deliver outcome = %v, want OutcomeAlreadyProcessed", outcome)
	}

	if len(pusher.pushed) != 1 {
		t.Fatalf("expected exactly one push, got %d", len(pusher.pushed))
	}
	r := store.reminders["r1"]
	if r.Status != models.StatusSent {
		t.Fatalf("status = %s, want sent", r.Status)
	}
	if r.SentAt == nil {
		t.Fatalf("sentAt must be set when status is sent")
	}
}

func TestDeliverNotFound(t *testing.T) {
	t.Parallel()
	svc := newService(newFakeStore(), &fakePusher{})

	outcome, err := svc.Deliver(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if outcome != OutcomeNotFound {
		t.Fatalf("outcome = %v, want OutcomeNotFound", outcome)
	}
}

func TestDeliverCancelledIsNoop(t *testing.T) {
	t.Parallel()
	r := pendingReminder("r1", time.Now())
	r.Status = models.StatusCancelled
	store := newFakeStore(r)
	pusher := &fakePusher{}
	svc := newService(store, pusher)

	outcome, err := svc.Deliver(context.Background(), "r1")
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if outcome != OutcomeAlreadyProcessed {
		t.Fatalf("outcome = %v, want OutcomeAlreadyProcessed", outcome)
	}
	if len(pusher.pushed) != 0 {
		t.Fatalf("cancelled reminder must not be pushed")
	}
	if store.reminders["r1"].SentAt != nil {
		t.Fatalf("sentAt must stay unset for cancelled reminder")
	}
}

func TestDeliverPushFailureLeavesPending(t *testing.T) {
	t.Parallel()
	store := newFakeStore(pendingReminder("r1", time.Now()))
	svc := newService(store, &fakePusher{fail: true})

	if _, err := svc.Deliver(context.Background(), "r1"); err == nil {
		t.Fatalf("expected error from failed push")
	}

	r := store.reminders["r1"]
	if r.Status != models.StatusPending {
		t.Fatalf("status = %s, want pending so the sweep can retry", r.Status)
	}
	if r.SentAt != nil {
		t.Fatalf("sentAt must not be set on failed delivery")
	}
}

func TestSweepDeliversOnlyDue(t *testing.T) {
	t.Parallel()
	now := time.Now()
	future := now.Add(time.Hour)
	store := newFakeStore(
		pendingReminder("due", now.Add(-time.Minute)),
		pendingReminder("later", future),
	)
	pusher := &fakePusher{}
	svc := newService(store, pusher)

	items, err := svc.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(items) != 1 || items[0].ID != "due" || items[0].Status != "sent" {
		t.Fatalf("unexpected sweep items: %+v", items)
	}

	if got := store.reminders["later"]; got.Status != models.StatusPending || !got.ScheduledAt.Equal(future) {
		t.Fatalf("future reminder must stay pending at its original time, got %+v", got)
	}
}

func TestSweepReportsPerItemFailures(t *testing.T) {
	t.Parallel()
	now := time.Now()
	store := newFakeStore(
		pendingReminder("r1", now.Add(-2*time.Minute)),
		pendingReminder("r2", now.Add(-time.Minute)),
	)
	// Fail only the first push that comes through.
	pusher := &flakyPusher{failures: 1}
	svc := newService(store, pusher)

	items, err := svc.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected results for both reminders, got %d", len(items))
	}

	var sent, failed int
	for _, item := range items {
		switch item.Status {
		case "sent":
			sent++
		case "failed":
			failed++
			if item.Error == "" {
				t.Fatalf("failed item must carry an error: %+v", item)
			}
		}
	}
	if sent != 1 || failed != 1 {
		t.Fatalf("expected one sent and one failed, got %d sent, %d failed", sent, failed)
	}
}

type flakyPusher struct {
	failures int
	pushed   []string
}

func (p *flakyPusher) Push(_ context.Context, userID, text string) error {
	if p.failures > 0 {
		p.failures--
		return fmt.Errorf("transient push failure")
	}
	p.pushed = append(p.pushed, userID+": "+text)
	return nil
}
