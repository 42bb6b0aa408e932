package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/richxcame/attendance-tracker/db"
	"github.com/richxcame/attendance-tracker/internal/attendance"
	"github.com/richxcame/attendance-tracker/internal/fraud"
	"github.com/richxcame/attendance-tracker/internal/geofence"
	"github.com/richxcame/attendance-tracker/internal/notifications"
	"github.com/richxcame/attendance-tracker/pkg/config"
	"github.com/richxcame/attendance-tracker/pkg/database"
	"github.com/richxcame/attendance-tracker/pkg/eventbus"
	"github.com/richxcame/attendance-tracker/pkg/health"
	"github.com/richxcame/attendance-tracker/pkg/logger"
	"github.com/richxcame/attendance-tracker/pkg/redis"
	"github.com/richxcame/attendance-tracker/pkg/tracing"
	ws "github.com/richxcame/attendance-tracker/pkg/websocket"
	"go.uber.org/zap"
)

const (
	serviceName    = "attendance"
	serviceVersion = "1.0.0"

	notificationRetention = 30 * 24 * time.Hour
	cleanupInterval       = 6 * time.Hour
)

// bus is satisfied by both the NATS bus and the in-process fallback
type bus interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Subscribe(ctx context.Context, subject, queue string, handler eventbus.Handler) error
	Healthy() error
	Close()
}

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Server.Environment,
			Release:          serviceName + "@" + serviceVersion,
			AttachStacktrace: true,
		}); err != nil {
			logger.Warn("Failed to initialize Sentry", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, serviceName, cfg.Server.Environment)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	if cfg.Database.RunMigrations {
		if err := database.Migrate(&cfg.Database, db.Migrations, "migrations"); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	pool, err := database.NewPostgresPool(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(pool)

	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	events := connectBus(cfg.NATS)
	defer events.Close()

	// Work areas
	areaStore := geofence.NewStore()
	areaRepo := geofence.NewRepository(pool)
	refresher := geofence.NewRefresher(areaRepo, areaStore, cfg.Geofence.RefreshInterval)
	if err := refresher.Refresh(ctx); err != nil {
		logger.Warn("Initial work area load failed, starting with an empty list", zap.Error(err))
	}
	go refresher.Run(ctx)
	areaService := geofence.NewService(areaRepo, areaStore, refresher)

	// Fraud heuristics
	thresholds, err := fraud.ThresholdsFromConfig(cfg.Fraud)
	if err != nil {
		logger.Fatal("Invalid fraud thresholds", zap.Error(err))
	}
	fraudRepo := fraud.NewRepository(pool)
	history := fraud.NewHistoryCache(redisClient, fraudRepo, thresholds.HistoryLimit)
	fraudService := fraud.NewService(history, fraudRepo, fraudRepo, events, thresholds)

	// Attendance
	attendanceService := attendance.NewService(attendance.NewRepository(pool), fraudService, areaStore, history, events)

	// Notifications
	hub := ws.NewHub()
	go hub.Run()
	defer hub.Stop()

	notificationService := notifications.NewService(
		notifications.NewRepository(pool),
		pushSender(ctx, cfg.Firebase),
		smsSender(cfg.Twilio),
		hub,
	).WithCountCache(redisClient)
	if err := notifications.NewEventHandler(notificationService).RegisterSubscriptions(ctx, events); err != nil {
		logger.Fatal("Failed to subscribe notifications", zap.Error(err))
	}
	go notificationService.RunCleanup(ctx, cleanupInterval, notificationRetention)

	checks := health.DefaultCheckerConfig()
	router := newRouter(cfg, routes{
		attendance:    attendance.NewHandler(attendanceService),
		fraud:         fraud.NewHandler(fraudService),
		workAreas:     geofence.NewAdminHandler(areaService),
		notifications: notifications.NewHandler(notificationService, hub, splitOrigins(cfg.Server.CORSOrigins)),
		readiness: map[string]func() error{
			"database":   health.PingChecker(pool, checks),
			"redis":      health.RedisChecker(redisClient, checks),
			"event_bus":  health.StatusChecker(events),
			"work_areas": health.FreshnessChecker(func() time.Time { return areaStore.Snapshot().LoadedAt() }, 3*cfg.Geofence.RefreshInterval),
		},
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("Attendance service starting",
			zap.String("port", cfg.Server.Port),
			zap.String("environment", cfg.Server.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shut down", zap.Error(err))
	}
	notificationService.Wait()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("Failed to flush traces", zap.Error(err))
	}

	logger.Info("Attendance service stopped")
}

func connectBus(cfg config.NATSConfig) bus {
	if !cfg.Enabled {
		logger.Info("NATS disabled, using in-process event bus")
		return eventbus.NewLocal(serviceName)
	}

	b, err := eventbus.Connect(cfg.URL, serviceName)
	if err != nil {
		logger.Warn("NATS unavailable, using in-process event bus", zap.Error(err))
		return eventbus.NewLocal(serviceName)
	}
	return b
}

func pushSender(ctx context.Context, cfg config.FirebaseConfig) notifications.PushSender {
	if !cfg.Enabled {
		return nil
	}
	client, err := notifications.NewFirebaseClient(ctx, cfg)
	if err != nil {
		logger.Warn("Push notifications disabled", zap.Error(err))
		return nil
	}
	return client
}

func smsSender(cfg config.TwilioConfig) notifications.SMSSender {
	if !cfg.Enabled {
		return nil
	}
	client, err := notifications.NewTwilioClient(cfg)
	if err != nil {
		logger.Warn("SMS notifications disabled", zap.Error(err))
		return nil
	}
	return client
}
