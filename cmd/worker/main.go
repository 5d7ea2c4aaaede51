package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/HalimKing/Teacher-to-class-ms-sub001/internal/attendance"
	"github.com/HalimKing/Teacher-to-class-ms-sub001/internal/config"
	"github.com/HalimKing/Teacher-to-class-ms-sub001/internal/metrics"
	"github.com/HalimKing/Teacher-to-class-ms-sub001/internal/queue"
	"github.com/HalimKing/Teacher-to-class-ms-sub001/internal/store"
	"github.com/HalimKing/Teacher-to-class-ms-sub001/internal/timetable"
)

// Worker consumes attendance events for the audit log and periodically
// sweeps the ledger: occurrences that ended with no check-in become
// absent rows, sessions left pending past the grace window become
// incomplete.
func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if cfg.Env == "dev" {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "attendance:events")
	}

	ledger := attendance.NewRepository(db.Client)
	loc := cfg.Location()

	go runSweeper(ctx, ledger, cfg, loc, logger)

	messages, err := q.Consume(ctx)
	if err != nil {
		logger.Fatal("queue consume init failed", zap.Error(err))
	}

	logger.Info("worker started, waiting for messages")
	for msg := range messages {
		switch msg.Type {
		case queue.TypeCheckIn, queue.TypeCheckOut:
			logger.Info("attendance event",
				zap.String("type", msg.Type),
				zap.String("session_id", msg.SessionID),
				zap.String("teacher_id", msg.TeacherID),
				zap.String("date", msg.Date))
		default:
			logger.Warn("unknown message type", zap.String("type", msg.Type))
		}
	}

	logger.Info("worker stopped")
}

// runSweeper resolves stale ledger state on a fixed interval until the
// context is cancelled.
func runSweeper(ctx context.Context, ledger *attendance.Repository, cfg config.App, loc *time.Location, logger *zap.Logger) {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep(ctx, ledger, cfg, loc, logger)
		}
	}
}

func sweep(ctx context.Context, ledger *attendance.Repository, cfg config.App, loc *time.Location, logger *zap.Logger) {
	now := time.Now().In(loc)
	date := now.Format(attendance.DateLayout)
	day := string(timetable.WeekdayOf(now))
	asOf := int(timetable.MinutesOf(now))
	grace := int(cfg.SweepGrace / time.Minute)

	stale, err := ledger.MarkStaleIncomplete(ctx, date, asOf, grace)
	if err != nil {
		logger.Error("stale sweep failed", zap.Error(err))
	} else if stale > 0 {
		metrics.SweptSessions.WithLabelValues(string(attendance.StatusIncomplete)).Add(float64(stale))
		logger.Info("demoted stale sessions", zap.Int64("count", stale), zap.String("date", date))
	}

	absent, err := ledger.InsertAbsences(ctx, date, day, asOf, grace)
	if err != nil {
		logger.Error("absence sweep failed", zap.Error(err))
	} else if absent > 0 {
		metrics.SweptSessions.WithLabelValues(string(attendance.StatusAbsent)).Add(float64(absent))
		logger.Info("recorded absences", zap.Int64("count", absent), zap.String("date", date))
	}
}
