package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"photocurator/internal/config"
	"photocurator/internal/logger"
	"photocurator/internal/repository/sqlite"
	"photocurator/internal/route"
	"photocurator/internal/service"
	"photocurator/internal/service/analyzer"
	"photocurator/internal/service/archive"
	"photocurator/internal/service/caption"
	"photocurator/internal/service/scheduler"
	"photocurator/internal/service/selection"
	"photocurator/internal/service/websocket"
)

type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	hubService *websocket.HubService
	scheduler  *scheduler.Scheduler
	manager    *service.Manager
	background sync.WaitGroup
}

func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)

	if err := prepareFolders(cfg); err != nil {
		return nil, err
	}
	if cfg.SessionSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.SessionSecret = secret
		log.Warning("SESSION_SECRET not set, sessions will not survive a restart")
	}

	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	scorer, err := analyzer.NewAnalyzer(analyzer.DefaultParams(), cfg.CascadePath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create analyzer: %w", err)
	}
	if !scorer.FaceDetection() {
		log.Warning("CASCADE_PATH not set, face detection disabled")
	}

	ledger := sqlite.NewLedgerRepository(db)
	pipeline := selection.NewPipeline(scorer, caption.New(caption.DefaultThresholds()), ledger, log, selection.Options{
		Directory:      cfg.PhotosFolder,
		Limit:          cfg.MaxCandidates,
		PreferEXIFDate: cfg.PreferEXIFDate,
		Dedup:          cfg.DedupCandidates,
	})

	hub := websocket.NewHubService(log)
	mng := service.NewManager(pipeline, ledger, archive.New(cfg.PhotosFolder, cfg.PostedFolder), hub, log)

	sched := scheduler.New(scheduler.Config{
		Weekday:  cfg.ScheduleWeekday,
		Hour:     cfg.ScheduleHour,
		Minute:   cfg.ScheduleMinute,
		Cooldown: cfg.SchedulerCooldown,
	}, mng.RunPass, log)

	return &App{
		config:     cfg,
		logger:     log,
		db:         db,
		hubService: hub,
		scheduler:  sched,
		manager:    mng,
	}, nil
}

// Run serves the curator console and runs the weekly scheduler until ctx is done.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	// Start background services
	go a.hubService.Run(ctx)
	a.goBackground(func() { a.scheduler.Run(ctx) })

	router := route.SetupRoutes(a.manager, a.scheduler, a.config, a.logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: router,
	}

	fmt.Printf("🚀 Photo Curator\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("📁 Photos: %s\n", a.config.PhotosFolder)
	fmt.Printf("📦 Posted: %s\n", a.config.PostedFolder)
	fmt.Printf("⏰ Next run: %s\n", a.scheduler.NextRun().Format("2006/01/02:15:04"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Server shutdown error: %v", err)
	}
	return nil
}

// goBackground runs fn in a goroutine that close waits for.
func (a *App) goBackground(fn func()) {
	a.background.Add(1)
	go func() {
		defer a.background.Done()
		fn()
	}()
}

func (a *App) close() {
	a.background.Wait()
	a.manager.Wait()
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close ledger: %v", err)
	}
	a.logger.Close()
}

// prepareFolders creates the candidate and archive folders.
func prepareFolders(cfg *config.Config) error {
	for _, dir := range []string{cfg.PhotosFolder, cfg.PostedFolder} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create folder %s: %w", dir, err)
		}
	}
	return nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
