package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"rental-portal/admin-portal-backend/internal/auth"
	"rental-portal/admin-portal-backend/internal/bookings"
	"rental-portal/admin-portal-backend/internal/calendar"
	"rental-portal/admin-portal-backend/internal/config"
	"rental-portal/admin-portal-backend/internal/dashboard"
	"rental-portal/admin-portal-backend/internal/jobs"
	"rental-portal/admin-portal-backend/internal/metrics"
	"rental-portal/admin-portal-backend/internal/notifications"
	"rental-portal/admin-portal-backend/internal/notifications/websocket"
	"rental-portal/admin-portal-backend/internal/settings"
	"rental-portal/admin-portal-backend/internal/users"
	"rental-portal/admin-portal-backend/internal/verification"
	"rental-portal/admin-portal-backend/pkg/payments"
	"rental-portal/admin-portal-backend/pkg/ratelimit"
	"rental-portal/admin-portal-backend/pkg/storage"
)

func main() {
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// Connect to database
	dbURL := cfg.Database.GetDatabaseURL()
	logger.Info("Connecting to database",
		zap.String("host", cfg.Database.Host),
		zap.String("db", cfg.Database.DBName))

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		logger.Fatal("Failed to open gorm session", zap.Error(err))
	}

	if cfg.Database.AutoMigrate {
		if err := migrate(ctx, cfg, db, gormDB); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
		logger.Info("Database schema up to date")
	}

	// Verification store
	var propertyRepo verification.Repository
	switch cfg.Verification.Store {
	case "postgres":
		propertyRepo = verification.NewGormRepository(gormDB)
		if n, err := verification.Seed(ctx, propertyRepo); err != nil {
			logger.Warn("Failed to seed properties", zap.Error(err))
		} else if n > 0 {
			logger.Info("Seeded sample properties", zap.Int("count", n))
		}
	default:
		propertyRepo = verification.NewSeededMemoryRepository()
	}
	logger.Info("Verification store ready", zap.String("store", cfg.Verification.Store))

	// Rate limiting
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unavailable, using in-memory rate limits", zap.Error(err))
			redisClient.Close()
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	scheduler := jobs.NewScheduler(logger, time.UTC)
	apiLimiter := newLimiter(redisClient, scheduler, logger, "ratelimit:api", cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.Window)
	resetLimiter := newLimiter(redisClient, scheduler, logger, "ratelimit:password-reset", cfg.RateLimit.PasswordResetLimit, cfg.RateLimit.PasswordResetWindow)

	// Notifications
	wsManager := websocket.NewManager(cfg.Server.AllowedOrigin, logger)
	defer wsManager.Close()

	var mailer notifications.EmailSender
	if cfg.Email.Enabled {
		ses, err := notifications.NewSESSender(ctx, cfg.Email)
		if err != nil {
			logger.Fatal("Failed to initialize email channel", zap.Error(err))
		}
		mailer = ses
		logger.Info("Email notifications enabled", zap.String("from", cfg.Email.FromAddress))
	}

	settingsService := settings.NewService(settings.NewRepository(gormDB), logger)

	notificationService := notifications.NewService(notifications.NewRepository(gormDB), wsManager, mailer, logger)
	notificationService.UsePreferences(settingsService)
	if cfg.SMS.Enabled {
		notificationService.UseSMS(notifications.NewTwilioSender(cfg.SMS))
		logger.Info("SMS notifications enabled")
	}

	// Domain services
	verificationService := verification.NewService(propertyRepo, logger, verification.Options{
		EnforceChecklist: cfg.Verification.EnforceChecklist,
		Notifier:         notificationService,
	})

	userService := users.NewService(users.NewRepository(gormDB), notificationService, logger, users.Options{
		ResetLimiter: resetLimiter,
		Mailer:       mailer,
	})
	userService.OnBlocked(wsManager.DisconnectUser)

	var archive storage.ObjectStore
	if cfg.Storage.Enabled {
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Region:    cfg.Storage.Region,
			Bucket:    cfg.Storage.Bucket,
			Prefix:    cfg.Storage.Prefix,
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
		})
		if err != nil {
			logger.Fatal("Failed to initialize document archive", zap.Error(err))
		}
		archive = s3Store
		logger.Info("Receipt archive enabled", zap.String("bucket", cfg.Storage.Bucket))
	}

	bookingRepo := bookings.NewRepository(db)
	bookingService := bookings.NewService(bookingRepo, notificationService, logger, bookings.Options{
		Archive: archive,
		Gateway: payments.NewGateway(payments.MpesaConfig{
			ConsumerKey:    cfg.Payments.Mpesa.ConsumerKey,
			ConsumerSecret: cfg.Payments.Mpesa.ConsumerSecret,
			ShortCode:      cfg.Payments.Mpesa.ShortCode,
			PassKey:        cfg.Payments.Mpesa.PassKey,
			CallbackURL:    cfg.Payments.Mpesa.CallbackURL,
			Sandbox:        cfg.Payments.Mpesa.Sandbox,
		}),
	})

	calendarService := calendar.NewService(calendar.NewRepository(db), propertyRepo, bookingRepo, logger)

	statsCache := dashboard.NewCache(cfg.Cache.StatsTTL)
	defer statsCache.Close()
	dashboardService := dashboard.NewService(verificationService, userService, bookingService, statsCache, logger)
	verificationService.OnChange(dashboardService.Invalidate)
	userService.OnChange(dashboardService.Invalidate)
	bookingService.OnChange(dashboardService.Invalidate)

	if err := scheduler.Add(jobs.RefreshStatsJob, cfg.Workers.RefreshStats, jobs.DefaultTimeout, jobs.RefreshStats(dashboardService)); err != nil {
		logger.Fatal("Failed to schedule stats refresh", zap.Error(err))
	}

	// Setup Router
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), metrics.Middleware())

	guard := auth.NewGuard(cfg.Security.AuthCookieName, cfg.Security.JWTSecret)

	api := router.Group("/api")
	if cfg.RateLimit.Enabled {
		api.Use(ratelimit.Middleware(apiLimiter, ratelimit.ByClientIP, logger, func() {
			metrics.RateLimited.WithLabelValues("api").Inc()
		}))
	}

	auth.NewHandler(guard, logger).RegisterRoutes(api)

	bookingHandler := bookings.NewHandler(bookingService, logger)
	calendarHandler := calendar.NewHandler(calendarService, logger)
	propertyHandler := verification.NewHandler(verificationService, logger)

	admin := api.Group("/admin", auth.RequireAdmin(guard, logger))
	{
		propertyHandler.RegisterRoutes(admin)
		users.NewHandler(userService, logger).RegisterRoutes(admin)
		bookingHandler.RegisterAdminRoutes(admin)
		dashboard.NewHandler(dashboardService, logger).RegisterRoutes(admin)
	}

	dash := api.Group("/dashboard", auth.RequireRoles(guard, logger))
	{
		propertyHandler.RegisterDashboardRoutes(dash)
		bookingHandler.RegisterDashboardRoutes(dash)
		calendarHandler.RegisterDashboardRoutes(dash)
		notifications.NewHandler(notificationService, wsManager, logger).RegisterRoutes(dash)
		settings.NewHandler(settingsService, logger).RegisterRoutes(dash)
	}

	bookingHandler.RegisterPublicRoutes(api)
	calendarHandler.RegisterPublicRoutes(api)

	router.GET("/metrics", metrics.Handler())

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		health := gin.H{"status": "healthy", "timestamp": time.Now()}
		if err := db.PingContext(c.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
			health["status"] = "degraded"
			health["database"] = "unreachable"
		}
		health["websocketConnections"] = wsManager.GetConnectionCount()
		c.JSON(status, health)
	})

	co := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.Server.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept", "Origin", "Cache-Control", "X-Requested-With"},
		AllowCredentials: true,
	})

	// Start Server
	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      co.Handler(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if err := scheduler.Start(); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", srv.Addr))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func migrate(ctx context.Context, cfg *config.Config, db *sqlx.DB, gormDB *gorm.DB) error {
	if cfg.Verification.Store == "postgres" {
		if err := verification.AutoMigrate(gormDB); err != nil {
			return err
		}
	}
	for _, fn := range []func(*gorm.DB) error{users.AutoMigrate, notifications.AutoMigrate, settings.AutoMigrate} {
		if err := fn(gormDB); err != nil {
			return err
		}
	}
	if err := bookings.EnsureSchema(ctx, db); err != nil {
		return err
	}
	return calendar.EnsureSchema(ctx, db)
}

// newLimiter prefers the shared Redis counter. The in-memory fallback is swept
// by the scheduler so idle clients do not accumulate.
func newLimiter(client *redis.Client, scheduler *jobs.Scheduler, logger *zap.Logger, prefix string, limit int, window time.Duration) ratelimit.Limiter {
	if client != nil {
		return ratelimit.NewRedisLimiter(client, prefix, limit, window)
	}
	limiter := ratelimit.NewMemoryLimiter(limit, window)
	err := scheduler.Add("sweep-"+prefix, "@every 5m", time.Minute, func(context.Context) error {
		limiter.Sweep()
		return nil
	})
	if err != nil {
		logger.Warn("Failed to schedule limiter sweep", zap.Error(err))
	}
	return limiter
}
