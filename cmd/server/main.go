package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"remindline/internal/ai"
	"remindline/internal/bot"
	"remindline/internal/config"
	"remindline/internal/database"
	"remindline/internal/delivery"
	"remindline/internal/format"
	"remindline/internal/line"
	"remindline/internal/repository"
	"remindline/internal/scheduler"
	"remindline/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.DatabaseURI)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database ready")

	lineClient, err := line.New(cfg.LineChannelSecret, cfg.LineChannelAccessToken)
	if err != nil {
		logger.Fatal("failed to create LINE client", zap.Error(err))
	}

	aiClient := ai.New(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel)
	logger.Info("AI client initialized", zap.String("model", cfg.AIModel))

	tf := format.NewTimeFormatter(cfg.Timezone)
	reminderRepo := repository.NewReminderRepository(db)

	// Without a delay-queue token the bot still works; delivery then rides
	// on the sweep alone.
	var delaySched bot.DelayScheduler
	if cfg.QStashToken != "" {
		queue := scheduler.NewQStashClient(cfg.QStashURL, cfg.QStashToken)
		delaySched = scheduler.New(queue, cfg.AppBaseURL, logger)
		logger.Info("delay queue client initialized")
	} else {
		logger.Warn("QSTASH_TOKEN not set, reminders delivered by sweep only")
	}

	deliverySvc := delivery.New(reminderRepo, lineClient, tf, logger)
	verifier := scheduler.NewSignatureVerifier(cfg.QStashCurrentSigningKey, cfg.QStashNextSigningKey)
	if !verifier.Enabled() {
		logger.Warn("delivery callback signature verification disabled")
	}

	b := bot.New(reminderRepo, aiClient, lineClient, delaySched, tf, cfg.MinScheduleBuffer, logger)
	srv := server.New(b, lineClient, deliverySvc, verifier, cfg.CronSecret, logger)

	// Optional in-process sweep trigger for deployments without an
	// external cron hitting /api/cron/reminder.
	if cfg.SweepCron != "" {
		c := cron.New()
		_, err := c.AddFunc(cfg.SweepCron, func() {
			items, err := deliverySvc.Sweep(context.Background(), time.Now())
			if err != nil {
				logger.Error("scheduled sweep failed", zap.Error(err))
				return
			}
			if len(items) > 0 {
				logger.Info("scheduled sweep processed reminders", zap.Int("count", len(items)))
			}
		})
		if err != nil {
			logger.Fatal("invalid SWEEP_CRON expression", zap.Error(err))
		}
		c.Start()
		defer c.Stop()
		logger.Info("in-process sweep trigger enabled", zap.String("spec", cfg.SweepCron))
	}

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Handler(),
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", cfg.ListenAddr))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
