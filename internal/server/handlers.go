package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/line/line-bot-sdk-go/v7/linebot"
	"go.uber.org/zap"

	"remindline/internal/delivery"
	"remindline/internal/scheduler"
)

// handleWebhook is the LINE messaging entry point. Signature validation is
// part of ParseRequest; events within one webhook call are handled
// concurrently, each independently working on its own reminders.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	events, err := s.line.ParseRequest(r)
	if err != nil {
		if errors.Is(err, linebot.ErrInvalidSignature) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid signature"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request"})
		return
	}

	ctx := r.Context()
	var wg sync.WaitGroup
	for _, event := range events {
		if event.Type != linebot.EventTypeMessage || event.Source == nil {
			continue
		}
		userID := event.Source.UserID
		if userID == "" {
			continue
		}
		replyToken := event.ReplyToken

		switch msg := event.Message.(type) {
		case *linebot.TextMessage:
			wg.Add(1)
			go func(text string) {
				defer wg.Done()
				s.bot.HandleText(ctx, userID, replyToken, text)
			}(msg.Text)
		default:
			if err := s.line.Reply(ctx, replyToken, "目前我只支援文字訊息喔～可以用文字跟我設定提醒或聊天。"); err != nil {
				s.log.Error("failed to reply to non-text message", zap.Error(err))
			}
		}
	}
	wg.Wait()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDeliveryCallback receives the delay queue's at-least-once callback
// for a due reminder.
func (s *Server) handleDeliveryCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read body"})
		return
	}

	if err := s.verifier.Verify(r.Header.Get("Upstash-Signature"), body); err != nil {
		s.log.Warn("rejected delivery callback", zap.Error(err))
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		return
	}

	var payload scheduler.Payload
	if err := json.Unmarshal(body, &payload); err != nil || payload.ReminderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing required fields"})
		return
	}

	outcome, err := s.delivery.Deliver(r.Context(), payload.ReminderID)
	if err != nil {
		s.log.Error("delivery callback failed", zap.String("reminderId", payload.ReminderID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	switch outcome {
	case delivery.OutcomeNotFound:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "reminder not found"})
	case delivery.OutcomeAlreadyProcessed:
		writeJSON(w, http.StatusOK, map[string]string{"message": "reminder already processed"})
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"reminderId": payload.ReminderID,
			"message":    "reminder sent successfully",
		})
	}
}

// handleSweep is the fallback path: an external periodic trigger asks us to
// deliver everything that is due right now.
func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	if s.cronSecret != "" && r.Header.Get("Authorization") != "Bearer "+s.cronSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	items, err := s.delivery.Sweep(r.Context(), time.Now())
	if err != nil {
		s.log.Error("sweep failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if len(items) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"message": "no due reminders", "count": 0})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "processed reminders",
		"count":   len(items),
		"results": items,
	})
}
