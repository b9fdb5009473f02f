package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/config"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/database"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/handlers"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/services"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/storage"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/downloadtoken"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/logger"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)
	utils.ConfigureResponses(cfg.IsProduction())

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	ctx := context.Background()
	blobs, err := storage.New(ctx, cfg.Storage, db)
	if err != nil {
		log.Fatalf("storage initialization failed: %v", err)
	}
	if err := blobs.EnsureReady(ctx); err != nil {
		log.Fatalf("failed preparing %s storage: %v", blobs.Driver(), err)
	}

	notifications := services.NewNotificationService(db, cfg.Notifications)
	notifications.StartCleanup(cfg.Notifications.CleanupInterval)

	transcoder := services.NewTranscoder(services.NewBimgProcessor(), cfg.Upload)
	queue := services.NewProcessingQueue(db, blobs, transcoder, notifications, cfg.Processing)
	queue.Start()
	if !cfg.SyncProcessing() {
		queue.RecoverStaleJobs(ctx)
	}

	app := handlers.NewApp(cfg, &handlers.Services{
		DB:            db,
		Blobs:         blobs,
		Files:         services.NewFileService(db, blobs),
		Queue:         queue,
		Charts:        services.NewChartService(db, blobs),
		Stats:         services.NewStatsService(db, cfg.Dashboard),
		Notifications: notifications,
		Signer:        downloadtoken.New(cfg.JWT.Secret, cfg.JWT.DownloadLinkTTL),
	})

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]any{
		"port":            cfg.Server.Port,
		"address":         listenAddr,
		"version":         handlers.Version,
		"storage_driver":  blobs.Driver(),
		"db_driver":       cfg.DB.Driver,
		"processing_mode": cfg.Processing.Mode,
		"body_limit_mb":   cfg.Server.BodyLimitMB,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Printf("http shutdown: %v", err)
		}
		if err := queue.Shutdown(shutdownCtx); err != nil {
			log.Print("forced shutdown timeout reached")
		}
		notifications.Stop()
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
