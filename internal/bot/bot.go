// Package bot turns classified intents into reminder operations and
// conversational replies. It is transport-independent: the LINE webhook
// handler feeds it one text message at a time.
package bot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"remindline/internal/ai"
	"remindline/internal/format"
	"remindline/internal/models"
)

// ReminderStore is the slice of the reminder repository the bot needs.
type ReminderStore interface {
	Create(ctx context.Context, reminder *models.Reminder) error
	FindPendingUpcoming(ctx context.Context, userID string, now time.Time) ([]*models.Reminder, error)
	MarkCancelled(ctx context.Context, id string) (bool, error)
	Reschedule(ctx context.Context, id string, newAt time.Time, newMessage *string) (bool, error)
}

type Classifier interface {
	ParseIntent(ctx context.Context, text string) (ai.Intent, error)
}

// Messenger answers the message currently being handled.
type Messenger interface {
	Reply(ctx context.Context, replyToken, text string) error
}

type DelayScheduler interface {
	Schedule(ctx context.Context, reminder *models.Reminder) (string, error)
}

const (
	listLimit    = 20
	clarifyLimit = 5
)

type Bot struct {
	store      ReminderStore
	classifier Classifier
	messenger  Messenger
	sched      DelayScheduler // nil when no delay queue is configured
	tf         *format.TimeFormatter
	minBuffer  time.Duration
	now        func() time.Time
	log        *zap.Logger
}

func New(store ReminderStore, classifier Classifier, messenger Messenger, sched DelayScheduler,
	tf *format.TimeFormatter, minBuffer time.Duration, log *zap.Logger) *Bot {
	return &Bot{
		store:      store,
		classifier: classifier,
		messenger:  messenger,
		sched:      sched,
		tf:         tf,
		minBuffer:  minBuffer,
		now:        time.Now,
		log:        log,
	}
}

// HandleText processes one inbound text message end to end.
func (b *Bot) HandleText(ctx context.Context, userID, replyToken, text string) {
	intent, err := b.classifier.ParseIntent(ctx, text)
	if err != nil {
		b.log.Error("intent classification failed", zap.String("userId", userID), zap.Error(err))
		b.reply(ctx, replyToken, "抱歉，我暫時聽不懂這句話，可以稍後再試一次嗎？")
		return
	}

	switch v := intent.(type) {
	case ai.CreateReminder:
		b.handleCreate(ctx, userID, replyToken, v)
	case ai.ListReminders:
		b.handleList(ctx, userID, replyToken)
	case ai.UpdateReminder:
		b.handleUpdate(ctx, userID, replyToken, v, text)
	case ai.CancelReminder:
		b.handleCancel(ctx, userID, replyToken, v, text)
	case ai.Chat:
		b.replyOrDefault(ctx, replyToken, v.Reply, defaultHelpReply)
	case ai.SmallTalk:
		b.replyOrDefault(ctx, replyToken, v.Reply, defaultHelpReply)
	case ai.Help:
		b.replyOrDefault(ctx, replyToken, v.Reply, defaultHelpReply)
	case ai.Unrecognized:
		b.replyOrDefault(ctx, replyToken, v.Reply, unknownReply)
	default:
		b.reply(ctx, replyToken, unknownReply)
	}
}

const defaultHelpReply = "你好！我是你的提醒小幫手，可以跟我說「幫我明天早上九點提醒開會」來設定提醒。"

const unknownReply = "目前我主要支援這幾件事：\n" +
	"1. 設定提醒：「幫我明天早上 9 點提醒開會」\n" +
	"2. 查詢提醒：「列出我未來的提醒」\n" +
	"3. 修改提醒：「把開會那個提醒改到下午三點」\n" +
	"4. 取消提醒：「取消明天早上 9 點的提醒」\n\n" +
	"也可以直接跟我聊天喔。"

func (b *Bot) reply(ctx context.Context, replyToken, text string) {
	if err := b.messenger.Reply(ctx, replyToken, text); err != nil {
		b.log.Error("failed to send reply", zap.Error(err))
	}
}

func (b *Bot) replyOrDefault(ctx context.Context, replyToken, text, fallback string) {
	if text == "" {
		text = fallback
	}
	b.reply(ctx, replyToken, text)
}
