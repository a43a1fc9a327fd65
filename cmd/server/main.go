package main // Entry point package

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-ledger/internal/config"
	"github.com/iliyamo/seat-ledger/internal/database"
	"github.com/iliyamo/seat-ledger/internal/handler"
	"github.com/iliyamo/seat-ledger/internal/middleware"
	"github.com/iliyamo/seat-ledger/internal/notify"
	"github.com/iliyamo/seat-ledger/internal/queue"
	"github.com/iliyamo/seat-ledger/internal/router"
	"github.com/iliyamo/seat-ledger/internal/scheduler"
	"github.com/iliyamo/seat-ledger/internal/service"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg := config.Load() // Load environment config
	cacheCfg := config.LoadCacheConfig()
	rlCfg := config.LoadRateLimitConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Error("database open failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; caching and rate limiting disabled, sweep markers kept in memory")
	} else {
		defer rdb.Close()
	}

	pub := notify.NewPublisher(cfg.AMQP.URL, cfg.AMQP.PublishLimit, log)
	defer pub.Close()
	dispatcher := notify.NewDispatcher(pub, pub, log)

	ledger := service.NewLedger(db, dispatcher, service.Options{
		TxTimeout: cfg.Ledger.TxTimeout,
		Location:  cfg.Ledger.Location,
		Log:       log,
	})

	if cfg.Scheduler.Enabled {
		var marker scheduler.Marker = scheduler.NewMemoryMarker(cfg.Scheduler.MarkerTTL)
		if rdb != nil {
			marker = scheduler.NewRedisMarker(rdb, cfg.Scheduler.MarkerTTL)
		}
		sched := scheduler.New(ledger.SweepStore(), marker, dispatcher, log, scheduler.Config{
			Interval: cfg.Scheduler.Interval,
			Location: cfg.Ledger.Location,
		})
		go sched.Run(ctx)
	}

	if cfg.AMQP.StartSink {
		sink := &queue.Sink{URL: cfg.AMQP.URL, LogPath: cfg.AMQP.ConsumerLog, Log: log}
		go func() {
			if err := sink.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("notification sink stopped", "error", err)
			}
		}()
	}

	lh := handler.NewLedgerHandler(ledger, log)
	lh.OnPlansChanged = func(c echo.Context) {
		if err := middleware.PurgeCache(c.Request().Context(), cacheCfg, rdb); err != nil {
			log.Warn("plan cache purge failed", "error", err)
		}
	}

	e := echo.New() // Create Echo instance
	router.Setup(e, log)
	deps := router.Deps{
		DB:        db,
		Redis:     rdb,
		Ledger:    lh,
		JWTSecret: cfg.JWTSecret,
		Cache:     cacheCfg,
		RateLimit: rlCfg,
		Log:       log,
	}
	router.RegisterRoutes(e, deps)
	router.RegisterLedger(e, deps)
	router.RegisterAdmin(e, deps)

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}
