package bot

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"remindline/internal/ai"
	"remindline/internal/models"
	"remindline/internal/resolver"
)

func (b *Bot) handleCreate(ctx context.Context, userID, replyToken string, in ai.CreateReminder) {
	if in.At == nil || in.Message == "" {
		b.reply(ctx, replyToken, "我沒有抓到正確的時間或提醒內容，可以再說一次「幫我在幾點提醒什麼事」嗎？")
		return
	}

	// Minimum buffer guards against clock skew and fuzzy time parsing.
	diff := in.At.Sub(b.now())
	if diff < b.minBuffer {
		b.reply(ctx, replyToken, fmt.Sprintf(
			"這個時間太接近了（距離現在只有 %d 秒），請給我至少 1 分鐘後的時間來設定提醒喔～",
			int(diff.Seconds())))
		return
	}

	reminder := &models.Reminder{
		UserID:      userID,
		Message:     in.Message,
		ScheduledAt: in.At.UTC(),
		Status:      models.StatusPending,
	}
	if err := b.store.Create(ctx, reminder); err != nil {
		b.log.Error("failed to create reminder", zap.String("userId", userID), zap.Error(err))
		b.reply(ctx, replyToken, "建立提醒失敗，請稍後再試。")
		return
	}

	// A scheduling failure is soft: the row stays pending and the sweep
	// will still pick it up, so we only warn the user.
	if b.sched != nil {
		if _, err := b.sched.Schedule(ctx, reminder); err != nil {
			b.log.Error("failed to schedule delivery callback",
				zap.String("reminderId", reminder.ID), zap.Error(err))
			b.reply(ctx, replyToken, fmt.Sprintf(
				"⚠️ 提醒已記錄，但排程時發生錯誤，送達時間可能會延遲。\n\n提醒內容：%s\n預定時間：%s",
				reminder.Message, b.tf.Format(reminder.ScheduledAt)))
			return
		}
	} else {
		b.log.Warn("delay queue not configured, relying on sweep",
			zap.String("reminderId", reminder.ID))
	}

	b.reply(ctx, replyToken, fmt.Sprintf("好的！我會在 %s 提醒你：「%s」。",
		b.tf.Format(reminder.ScheduledAt), reminder.Message))
}

func (b *Bot) handleList(ctx context.Context, userID, replyToken string) {
	pending, err := b.store.FindPendingUpcoming(ctx, userID, b.now())
	if err != nil {
		b.log.Error("failed to list reminders", zap.String("userId", userID), zap.Error(err))
		b.reply(ctx, replyToken, "取得提醒列表失敗，請稍後再試。")
		return
	}

	if len(pending) == 0 {
		b.reply(ctx, replyToken, "你目前沒有任何尚未觸發的提醒喔。")
		return
	}
	if len(pending) > listLimit {
		pending = pending[:listLimit]
	}

	b.reply(ctx, replyToken, fmt.Sprintf(
		"這是你接下來的提醒（共 %d 個）：\n\n%s\n\n💡 提示：你可以說「修改第一個提醒的時間為下午 3 點」或「取消開會那個提醒」來管理提醒。",
		len(pending), b.formatLines(pending)))
}

func (b *Bot) handleUpdate(ctx context.Context, userID, replyToken string, in ai.UpdateReminder, rawText string) {
	if in.NewAt == nil {
		b.reply(ctx, replyToken, "我沒有抓到新的時間，可以再說一次「把某個提醒改成幾點」嗎？")
		return
	}

	diff := in.NewAt.Sub(b.now())
	if diff < b.minBuffer {
		b.reply(ctx, replyToken, fmt.Sprintf(
			"新的時間太接近了（距離現在只有 %d 秒），請給我至少 1 分鐘後的時間。",
			int(diff.Seconds())))
		return
	}

	pending, err := b.store.FindPendingUpcoming(ctx, userID, b.now())
	if err != nil {
		b.log.Error("failed to load pending reminders", zap.String("userId", userID), zap.Error(err))
		b.reply(ctx, replyToken, "取得提醒列表失敗，請稍後再試。")
		return
	}
	if len(pending) == 0 {
		b.reply(ctx, replyToken, "你目前沒有可以修改的提醒。")
		return
	}

	target := resolver.Resolve(pending, resolver.Reference{At: in.TargetAt, Keyword: in.Keyword}, rawText)
	if target == nil {
		// Updating the wrong reminder is worse than asking; list the
		// candidates instead of guessing.
		clarify := pending
		if len(clarify) > clarifyLimit {
			clarify = clarify[:clarifyLimit]
		}
		b.reply(ctx, replyToken, fmt.Sprintf(
			"我找不到你要修改的提醒。這是你目前的提醒：\n\n%s\n\n請告訴我要修改哪一個（例如：「修改第一個」或「修改開會那個」）。",
			b.formatLines(clarify)))
		return
	}

	oldTime := b.tf.Format(target.ScheduledAt)
	var newMessage *string
	if in.NewMessage != "" {
		newMessage = &in.NewMessage
	}

	won, err := b.store.Reschedule(ctx, target.ID, in.NewAt.UTC(), newMessage)
	if err != nil {
		b.log.Error("failed to reschedule reminder", zap.String("reminderId", target.ID), zap.Error(err))
		b.reply(ctx, replyToken, "修改提醒失敗，請稍後再試。")
		return
	}
	if !won {
		b.reply(ctx, replyToken, "這個提醒剛剛已經觸發或取消了，沒辦法修改。")
		return
	}

	target.ScheduledAt = in.NewAt.UTC()
	if newMessage != nil {
		target.Message = *newMessage
	}

	// Register a callback for the new time. The one for the old time is
	// not cancelled; delivery's already-processed check neutralizes it.
	if b.sched != nil {
		if _, err := b.sched.Schedule(ctx, target); err != nil {
			b.log.Error("failed to reschedule delivery callback",
				zap.String("reminderId", target.ID), zap.Error(err))
		}
	}

	text := fmt.Sprintf("已將提醒從 %s 修改為 %s", oldTime, b.tf.Format(target.ScheduledAt))
	if newMessage != nil {
		text += fmt.Sprintf("，內容改為「%s」", *newMessage)
	}
	b.reply(ctx, replyToken, text+"。")
}

func (b *Bot) handleCancel(ctx context.Context, userID, replyToken string, in ai.CancelReminder, rawText string) {
	pending, err := b.store.FindPendingUpcoming(ctx, userID, b.now())
	if err != nil {
		b.log.Error("failed to load pending reminders", zap.String("userId", userID), zap.Error(err))
		b.reply(ctx, replyToken, "取得提醒列表失敗，請稍後再試。")
		return
	}
	if len(pending) == 0 {
		b.reply(ctx, replyToken, "你目前沒有可以取消的提醒。")
		return
	}

	target := resolver.Resolve(pending, resolver.Reference{At: in.TargetAt, Keyword: in.Keyword}, rawText)
	if target == nil {
		// Cancellation defaults to the earliest pending reminder.
		target = pending[0]
	}

	won, err := b.store.MarkCancelled(ctx, target.ID)
	if err != nil {
		b.log.Error("failed to cancel reminder", zap.String("reminderId", target.ID), zap.Error(err))
		b.reply(ctx, replyToken, "取消提醒失敗，請稍後再試。")
		return
	}
	if !won {
		b.reply(ctx, replyToken, "這個提醒剛剛已經觸發了，來不及取消。")
		return
	}

	b.reply(ctx, replyToken, fmt.Sprintf("已為你取消這個提醒：\n%s —— %s",
		b.tf.Format(target.ScheduledAt), target.Message))
}

func (b *Bot) formatLines(reminders []*models.Reminder) string {
	var sb strings.Builder
	for i, r := range reminders {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%d. %s —— %s", i+1, b.tf.Format(r.ScheduledAt), r.Message)
	}
	return sb.String()
}
