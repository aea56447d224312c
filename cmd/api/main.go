package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/abduss/pipelinedash/internal/config"
	"github.com/abduss/pipelinedash/internal/dashboard"
	"github.com/abduss/pipelinedash/internal/logger"
	"github.com/abduss/pipelinedash/internal/metrics"
	"github.com/abduss/pipelinedash/internal/preview"
	"github.com/abduss/pipelinedash/internal/server"
	"github.com/abduss/pipelinedash/internal/session"
	"github.com/abduss/pipelinedash/internal/settings"
	"github.com/abduss/pipelinedash/internal/storage"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}

	zlog, err := logger.Init()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync()

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal("load config", zap.Error(err))
	}
	metrics.InitMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prefsStore, err := settings.Open(cfg.Settings.Path)
	if err != nil {
		zlog.Fatal("open settings", zap.Error(err))
	}
	defer prefsStore.Close()

	sess := session.New(cfg.Store.MaxConns, zlog)
	defer sess.Close()
	connectFromSaved(ctx, sess, prefsStore, cfg.Store, zlog)

	minioClient, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		zlog.Fatal("connect minio", zap.Error(err))
	}
	if err := storage.CheckBucket(ctx, minioClient, cfg.MinIO.Bucket); err != nil {
		zlog.Warn("preview bucket unavailable", zap.String("bucket", cfg.MinIO.Bucket), zap.Error(err))
	}

	resolver := preview.NewResolver(minioClient, cfg.MinIO.Bucket, cfg.MinIO.PresignTTL, cfg.MinIO.ListLimit, zlog)
	dashboardService := dashboard.NewService(sess, resolver, prefsStore, cfg.Dashboard.Location(), zlog)
	settingsHandler := settings.NewHandler(prefsStore, sess, dashboardService, zlog)

	router := server.NewRouter(server.Dependencies{
		Config:           cfg,
		Store:            sess,
		ObjectStore:      minioClient,
		DashboardService: dashboardService,
		SettingsHandler:  settingsHandler,
		Logger:           zlog,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		zlog.Info("dashboard API listening", zap.String("addr", cfg.Server.Address()))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	zlog.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zlog.Error("shutdown error", zap.Error(err))
	}
}

// connectFromSaved prefers credentials saved by the operator over the
// environment. A failed connection leaves the dashboard unconfigured.
func connectFromSaved(ctx context.Context, sess *session.Session, store *settings.Store, env config.StoreConfig, zlog *zap.Logger) {
	var creds session.Credentials
	if env.Configured() {
		creds = session.Credentials{StoreURL: env.URL, AccessKey: env.AccessKey}
	}

	prefs, err := store.LoadPreferences(ctx)
	if err != nil {
		zlog.Warn("load saved connection", zap.Error(err))
	} else if saved := (session.Credentials{StoreURL: prefs.StoreURL, AccessKey: prefs.AccessKey}); saved.Valid() {
		creds = saved
	}

	if !creds.Valid() {
		zlog.Info("no store connection configured yet")
		return
	}
	if err := sess.Connect(ctx, creds); err != nil {
		zlog.Warn("initial store connection failed", zap.Error(err))
	}
}
