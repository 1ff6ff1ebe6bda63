package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/emrecanisildak/diet/internal/config"
	"github.com/emrecanisildak/diet/internal/handler"
	"github.com/emrecanisildak/diet/internal/metrics"
	"github.com/emrecanisildak/diet/internal/push"
	"github.com/emrecanisildak/diet/internal/registry"
	"github.com/emrecanisildak/diet/internal/repository"
	"github.com/emrecanisildak/diet/internal/scheduler"
	"github.com/emrecanisildak/diet/internal/service"
	pkgconfig "github.com/emrecanisildak/diet/pkg/config"
	"github.com/emrecanisildak/diet/pkg/database"
	"github.com/emrecanisildak/diet/pkg/jwt"
	pkglog "github.com/emrecanisildak/diet/pkg/log"
	"github.com/emrecanisildak/diet/pkg/middleware"
	"github.com/emrecanisildak/diet/pkg/pubsub"
)

func main() {
	// 1. Load configuration
	cfg, v, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// 2. Initialize structured logger, reloading the level on config edits
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty || cfg.Log.Level == "debug",
		ServiceName: cfg.Log.ServiceName,
	})
	logger := pkglog.L()

	if pkgconfig.Watch(v, func(v *viper.Viper) {
		level := v.GetString("log.level")
		pkglog.SetLevel(level)
		logger.Info().Str("level", level).Msg("log level reloaded")
	}) {
		logger.Info().Str("file", v.ConfigFileUsed()).Msg("watching config file")
	}

	// 3. Init DB
	db, err := database.New(cfg.Database.Gorm())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to get underlying sql.DB")
	}
	defer sqlDB.Close()

	if err := database.AutoMigrate(db, repository.Models()...); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database migration completed")

	store := repository.NewGormStore(db)

	// 4. Optional Redis client for the tick lease and the event bus
	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.Redis.Address).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}

	// 5. Domain event publisher
	base, err := pubsub.NewPublisher(cfg.Events, rdb)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Events.Driver).Msg("failed to create event publisher")
	}
	events := pubsub.NewAsyncPublisher(base, cfg.Events.QueueSize, cfg.Events.Timeout, logger)
	logger.Info().Str("driver", cfg.Events.Driver).Msg("event publisher ready")

	// 6. Push gateway
	gateway, err := push.New(cfg.Push, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create push gateway")
	}

	// 7. Metrics and services
	reg := registry.New()
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(promReg)
	m.ObserveConnections(reg.Len)
	m.ObserveDroppedEvents(events.Dropped)

	messages := service.NewMessageService(store, reg, events, m)
	notifications := service.NewNotificationService(store, gateway, service.FanoutConfig{
		Timeout:     cfg.Scheduler.PushTimeout,
		Concurrency: cfg.Scheduler.PushConcurrency,
	}, m)

	// 8. Scheduled notification engine
	loc, err := cfg.Scheduler.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid scheduler timezone")
	}
	opts := []scheduler.Option{
		scheduler.WithLocation(loc),
		scheduler.WithEvents(events),
		scheduler.WithLogger(logger),
		scheduler.WithMetrics(m),
	}
	if cfg.Scheduler.Lease.Enabled {
		opts = append(opts, scheduler.WithLease(
			scheduler.NewRedisLease(rdb, cfg.Scheduler.Lease.Key, cfg.Scheduler.Lease.TTL)))
	}
	engine := scheduler.NewEngine(store, notifications, opts...)
	if cfg.Scheduler.Enabled {
		if err := engine.Start(cfg.Scheduler.Interval); err != nil {
			logger.Fatal().Err(err).Msg("failed to start scheduler")
		}
	} else {
		logger.Warn().Msg("scheduler disabled")
	}

	// 9. Auth
	tokens, err := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL, cfg.Auth.Issuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create token manager")
	}
	auth := middleware.NewAuthenticator(tokens, handler.NewUserLookup(store.Users()),
		cfg.Auth.RoleCacheSize, cfg.Auth.RoleCacheTTL)

	// 10. Setup Gin router + HTTP server
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))

	handler.NewHandler(messages, notifications, auth, reg, gateway).RegisterRoutes(r)
	handler.NewWSHandler(auth, messages, reg, cfg.WebSocket).RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logger.Info().Str("addr", addr).Msg("diet-api starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// 11. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Shutdown order: scheduler, HTTP, live channels, event bus.
	if err := engine.Stop(ctx); err != nil && !errors.Is(err, scheduler.ErrNotRunning) {
		logger.Warn().Err(err).Msg("scheduler stop interrupted")
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("HTTP server forced to shutdown")
	}
	reg.Shutdown()
	if err := events.Close(); err != nil {
		logger.Warn().Err(err).Msg("error closing event publisher")
	}

	logger.Info().Msg("diet-api stopped")
}
