package resolver

import (
	"testing"
	"time"

	"remindline/internal/models"
)

func pendingSet(t *testing.T) []*models.Reminder {
	t.Helper()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	return []*models.Reminder{
		{ID: "a", Message: "開會", ScheduledAt: day.Add(9 * time.Hour)},
		{ID: "b", Message: "繳電話費", ScheduledAt: day.Add(15 * time.Hour)},
	}
}

func TestResolvePrecedence(t *testing.T) {
	t.Parallel()
	pending := pendingSet(t)
	at := func(h, m int) *time.Time {
		ts := time.Date(2026, 3, 10, h, m, 0, 0, time.UTC)
		return &ts
	}

	cases := []struct {
		name    string
		ref     Reference
		rawText string
		wantID  string
	}{
		{"nearest time wins", Reference{At: at(15, 5)}, "", "b"},
		{"time beats keyword", Reference{At: at(8, 50), Keyword: "繳電話費"}, "", "a"},
		{"keyword match", Reference{Keyword: "開會"}, "", "a"},
		{"keyword beats ordinal", Reference{Keyword: "繳電話費"}, "取消第一個", "b"},
		{"ordinal only", Reference{}, "取消第二個提醒", "b"},
		{"english ordinal", Reference{}, "cancel the first one", "a"},
		{"no signal", Reference{}, "取消提醒", ""},
		{"ordinal out of range", Reference{}, "取消第三個", ""},
		{"keyword without match", Reference{Keyword: "運動"}, "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve(pending, tc.ref, tc.rawText)
			gotID := ""
			if got != nil {
				gotID = got.ID
			}
			if gotID != tc.wantID {
				t.Fatalf("Resolve() = %q, want %q", gotID, tc.wantID)
			}
		})
	}
}

func TestResolveTimeTieBreaksEarliest(t *testing.T) {
	t.Parallel()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	pending := []*models.Reminder{
		{ID: "a", Message: "a", ScheduledAt: day.Add(10 * time.Hour)},
		{ID: "b", Message: "b", ScheduledAt: day.Add(14 * time.Hour)},
	}
	// Exactly between the two; the earlier reminder must win.
	mid := day.Add(12 * time.Hour)

	got := Resolve(pending, Reference{At: &mid}, "")
	if got == nil || got.ID != "a" {
		t.Fatalf("expected tie to break to earliest reminder, got %+v", got)
	}
}

func TestResolveEmptyPending(t *testing.T) {
	t.Parallel()
	now := time.Now()
	if got := Resolve(nil, Reference{At: &now, Keyword: "開會"}, "第一個"); got != nil {
		t.Fatalf("expected nil for empty pending set, got %+v", got)
	}
}

func TestParseOrdinal(t *testing.T) {
	t.Parallel()
	cases := []struct {
		text string
		want int
		ok   bool
	}{
		{"取消第一個", 1, true},
		{"第十項", 10, true},
		{"修改第2個提醒", 2, true},
		{"把3個蘋果買回來", 3, true}, // suffix form still matches without 第
		{"the first one", 1, true},
		{"delete the 2nd one", 2, true},
		{"the tenth reminder", 10, true},
		{"the 11th one", 0, false},
		{"明天早上九點提醒我", 0, false},
		{"", 0, false},
	}

	for _, tc := range cases {
		got, ok := ParseOrdinal(tc.text)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseOrdinal(%q) = (%d, %v), want (%d, %v)", tc.text, got, ok, tc.want, tc.ok)
		}
	}
}
