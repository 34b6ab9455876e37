package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/docwave/docwave-backend/config"
	"github.com/docwave/docwave-backend/internal/bootstrap"
	cronjob "github.com/docwave/docwave-backend/internal/versioning/cron"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	bootstrap.SetGinMode(cfg.App.Environment)

	pool, err := bootstrap.OpenDB(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	ledgerDB, err := bootstrap.OpenLedgerDB(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("ledger db: %v", err)
	}
	defer ledgerDB.Close()

	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	router, retention := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: "docwave-backend",
		Version:     cfg.App.Version,
		DB:          pool,
		LedgerDB:    ledgerDB,
		Redis:       rdb,
		Cfg:         cfg,
	})

	scheduler := cronjob.NewScheduler(retention, cfg.Retention.DailySchedule, cfg.Retention.ThinningSchedule)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("cron: %v", err)
	}
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
