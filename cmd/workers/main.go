package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"rental-portal/admin-portal-backend/internal/bookings"
	"rental-portal/admin-portal-backend/internal/config"
	"rental-portal/admin-portal-backend/internal/jobs"
	"rental-portal/admin-portal-backend/internal/notifications"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON config file")
	once := flag.Bool("once", false, "run every job a single time and exit")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	db, err := sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	db.SetMaxOpenConns(5)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		logger.Fatal("Failed to open gorm session", zap.Error(err))
	}

	// Workers have no websocket hub; notifications land in the inbox only.
	notifier := notifications.NewService(notifications.NewRepository(gormDB), nil, nil, logger)
	bookingService := bookings.NewService(bookings.NewRepository(db), notifier, logger, bookings.Options{})

	scheduler := jobs.NewScheduler(logger, time.UTC)
	if err := scheduler.Add(jobs.CompleteBookingsJob, cfg.Workers.CompleteBookings, jobs.DefaultTimeout,
		jobs.CompleteBookings(bookingService, logger)); err != nil {
		logger.Fatal("Failed to schedule job", zap.Error(err))
	}

	if *once {
		if err := scheduler.Run(context.Background(), jobs.CompleteBookingsJob); err != nil {
			logger.Fatal("Job failed", zap.Error(err))
		}
		return
	}

	if err := scheduler.Start(); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down workers...")
	scheduler.Stop()
}
