// Package server exposes the three external entry points over HTTP: the
// LINE webhook, the delay-queue delivery callback, and the due sweep.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"remindline/internal/bot"
	"remindline/internal/delivery"
	"remindline/internal/line"
	"remindline/internal/scheduler"
)

type Server struct {
	bot        *bot.Bot
	line       *line.Client
	delivery   *delivery.Service
	verifier   *scheduler.SignatureVerifier
	cronSecret string
	log        *zap.Logger
	router     chi.Router
}

func New(b *bot.Bot, lineClient *line.Client, deliverySvc *delivery.Service,
	verifier *scheduler.SignatureVerifier, cronSecret string, log *zap.Logger) *Server {
	s := &Server{
		bot:        b,
		line:       lineClient,
		delivery:   deliverySvc,
		verifier:   verifier,
		cronSecret: cronSecret,
		log:        log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/webhook", s.handleWebhook)
	r.Post(scheduler.CallbackPath, s.handleDeliveryCallback)
	r.Get("/api/cron/reminder", s.handleSweep)

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func requestLogger(log *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			t1 := time.Now()
			next.ServeHTTP(ww, r)

			log.Info("request",
				zap.Int("status", ww.Status()),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("size", ww.BytesWritten()),
				zap.Duration("latency", time.Since(t1)),
				zap.String("reqId", middleware.GetReqID(r.Context())))
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
