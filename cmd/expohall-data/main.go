package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expohall/internal/config"
	"expohall/internal/database"
	"expohall/internal/docstore"
	httpapi "expohall/internal/http"
	"expohall/internal/logger"
	"expohall/internal/service"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "expohall-data")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 文档库：DB 可用走 PostgreSQL，否则回退内存实现（本地联测不因无 DB 失败）
	var store docstore.Store
	var db *sql.DB
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			pg := docstore.NewPostgresStore(d)
			if err := pg.EnsureSchema(ctx); err != nil {
				log.Fatal("Failed to ensure docstore schema", zap.Error(err))
			}
			db = d
			store = pg
			log.Info("DB enabled for expohall-data")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory docstore", zap.Error(err))
		}
	}
	if store == nil {
		store = docstore.NewMemoryStore()
	}

	floorplan := service.NewFloorplanService(store, log)

	router := httpapi.NewRouter(log)
	router.RegisterFloorplanRoutes(httpapi.NewFloorplanHandler(floorplan, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if db != nil {
		_ = db.Close()
	}
}
