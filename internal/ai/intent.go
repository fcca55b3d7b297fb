package ai

import (
	"encoding/json"
	"time"
)

// Intent is the closed set of things the classifier can decide a message
// means. Exactly one concrete type is returned per message; anything the
// model produced that doesn't decode cleanly becomes Unrecognized.
type Intent interface {
	intent()
}

type CreateReminder struct {
	At       *time.Time // nil when no parseable time was extracted
	Message  string
	Timezone string
}

type ListReminders struct{}

type UpdateReminder struct {
	// Reference to the reminder being changed
	TargetAt *time.Time
	Keyword  string
	// The change itself
	NewAt      *time.Time
	NewMessage string
}

type CancelReminder struct {
	TargetAt *time.Time
	Keyword  string
}

type Chat struct{ Reply string }

type SmallTalk struct{ Reply string }

type Help struct{ Reply string }

type Unrecognized struct{ Reply string }

func (CreateReminder) intent() {}
func (ListReminders) intent()  {}
func (UpdateReminder) intent() {}
func (CancelReminder) intent() {}
func (Chat) intent()           {}
func (SmallTalk) intent()      {}
func (Help) intent()           {}
func (Unrecognized) intent()   {}

// Wire layout of the model's JSON output.
type wireResult struct {
	Intent   string      `json:"intent"`
	Reminder *wireCreate `json:"reminder,omitempty"`
	Update   *wireUpdate `json:"update_reminder,omitempty"`
	Cancel   *wireCancel `json:"cancel_reminder,omitempty"`
	Message  string      `json:"message,omitempty"`
}

type wireCreate struct {
	Datetime string `json:"datetime"`
	Message  string `json:"message"`
	Timezone string `json:"timezone,omitempty"`
}

type wireUpdate struct {
	Datetime       string `json:"datetime,omitempty"`
	MessageKeyword string `json:"message_keyword,omitempty"`
	NewDatetime    string `json:"new_datetime"`
	NewMessage     string `json:"new_message,omitempty"`
}

type wireCancel struct {
	Datetime       string `json:"datetime,omitempty"`
	MessageKeyword string `json:"message_keyword,omitempty"`
}

const fallbackReply = "抱歉，我暫時聽不懂這句話，可以換個說法再試一次嗎？"

func decodeIntent(content string) Intent {
	var w wireResult
	if err := json.Unmarshal([]byte(content), &w); err != nil {
		return Unrecognized{Reply: fallbackReply}
	}

	switch w.Intent {
	case "CREATE_REMINDER":
		c := w.Reminder
		if c == nil {
			return CreateReminder{}
		}
		return CreateReminder{
			At:       parseWireTime(c.Datetime),
			Message:  c.Message,
			Timezone: c.Timezone,
		}
	case "LIST_REMINDERS":
		return ListReminders{}
	case "UPDATE_REMINDER":
		u := w.Update
		if u == nil {
			return UpdateReminder{}
		}
		return UpdateReminder{
			TargetAt:   parseWireTime(u.Datetime),
			Keyword:    u.MessageKeyword,
			NewAt:      parseWireTime(u.NewDatetime),
			NewMessage: u.NewMessage,
		}
	case "CANCEL_REMINDER":
		c := w.Cancel
		if c == nil {
			return CancelReminder{}
		}
		return CancelReminder{
			TargetAt: parseWireTime(c.Datetime),
			Keyword:  c.MessageKeyword,
		}
	case "GENERAL_CHAT":
		return Chat{Reply: w.Message}
	case "SMALL_TALK":
		return SmallTalk{Reply: w.Message}
	case "HELP":
		return Help{Reply: w.Message}
	default:
		reply := w.Message
		if reply == "" {
			reply = fallbackReply
		}
		return Unrecognized{Reply: reply}
	}
}

func parseWireTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
