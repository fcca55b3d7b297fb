package ai

import (
	"testing"
	"time"
)

func TestDecodeIntentCreate(t *testing.T) {
	t.Parallel()
	content := `{"intent":"CREATE_REMINDER","reminder":{"datetime":"2026-03-10T09:00:00Z","message":"開會","timezone":"Asia/Taipei"}}`

	intent := decodeIntent(content)
	create, ok := intent.(CreateReminder)
	if !ok {
		t.Fatalf("expected CreateReminder, got %T", intent)
	}
	if create.Message != "開會" || create.Timezone != "Asia/Taipei" {
		t.Fatalf("unexpected fields: %+v", create)
	}
	want := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	if create.At == nil || !create.At.Equal(want) {
		t.Fatalf("datetime = %v, want %v", create.At, want)
	}
}

func TestDecodeIntentCreateBadDatetime(t *testing.T) {
	t.Parallel()
	content := `{"intent":"CREATE_REMINDER","reminder":{"datetime":"明天早上","message":"開會"}}`

	create, ok := decodeIntent(content).(CreateReminder)
	if !ok {
		t.Fatalf("expected CreateReminder")
	}
	// An unparseable time is a clarification case, not an error.
	if create.At != nil {
		t.Fatalf("unparseable datetime must decode to nil, got %v", create.At)
	}
}

func TestDecodeIntentUpdate(t *testing.T) {
	t.Parallel()
	content := `{"intent":"UPDATE_REMINDER","update_reminder":{"message_keyword":"開會","new_datetime":"2026-03-10T15:00:00Z","new_message":"部門會議"}}`

	update, ok := decodeIntent(content).(UpdateReminder)
	if !ok {
		t.Fatalf("expected UpdateReminder")
	}
	if update.Keyword != "開會" || update.NewMessage != "部門會議" || update.TargetAt != nil {
		t.Fatalf("unexpected fields: %+v", update)
	}
	if update.NewAt == nil || !update.NewAt.Equal(time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)) {
		t.Fatalf("new_datetime not decoded: %v", update.NewAt)
	}
}

func TestDecodeIntentCancel(t *testing.T) {
	t.Parallel()
	content := `{"intent":"CANCEL_REMINDER","cancel_reminder":{"datetime":"2026-03-10T09:00:00Z"}}`

	cancel, ok := decodeIntent(content).(CancelReminder)
	if !ok {
		t.Fatalf("expected CancelReminder")
	}
	if cancel.TargetAt == nil || cancel.Keyword != "" {
		t.Fatalf("unexpected fields: %+v", cancel)
	}
}

func TestDecodeIntentConversational(t *testing.T) {
	t.Parallel()
	cases := []struct {
		content string
		check   func(Intent) bool
	}{
		{`{"intent":"LIST_REMINDERS"}`, func(i Intent) bool { _, ok := i.(ListReminders); return ok }},
		{`{"intent":"GENERAL_CHAT","message":"聊聊吧"}`, func(i Intent) bool { c, ok := i.(Chat); return ok && c.Reply == "聊聊吧" }},
		{`{"intent":"SMALL_TALK","message":"你好呀"}`, func(i Intent) bool { c, ok := i.(SmallTalk); return ok && c.Reply == "你好呀" }},
		{`{"intent":"HELP","message":"我會設定提醒"}`, func(i Intent) bool { c, ok := i.(Help); return ok && c.Reply != "" }},
		{`{"intent":"UNKNOWN","message":"再說一次？"}`, func(i Intent) bool { c, ok := i.(Unrecognized); return ok && c.Reply == "再說一次？" }},
	}

	for _, tc := range cases {
		if got := decodeIntent(tc.content); !tc.check(got) {
			t.Fatalf("decodeIntent(%s) = %#v", tc.content, got)
		}
	}
}

func TestDecodeIntentMalformed(t *testing.T) {
	t.Parallel()
	for _, content := range []string{"", "not json", `{"intent":"CREATE_REMINDER"`, `[]`} {
		got := decodeIntent(content)
		unrec, ok := got.(Unrecognized)
		if !ok {
			t.Fatalf("decodeIntent(%q) = %T, want Unrecognized", content, got)
		}
		if unrec.Reply == "" {
			t.Fatalf("Unrecognized must carry user-facing copy")
		}
	}
}

func TestDecodeIntentMissingVariantPayload(t *testing.T) {
	t.Parallel()
	create, ok := decodeIntent(`{"intent":"CREATE_REMINDER"}`).(CreateReminder)
	if !ok {
		t.Fatalf("expected CreateReminder")
	}
	if create.At != nil || create.Message != "" {
		t.Fatalf("missing payload should decode to zero variant, got %+v", create)
	}
}
