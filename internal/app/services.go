package app

import (
	"os"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/docreview-backend/internal/logger"
	"github.com/yungbote/docreview-backend/internal/realtime"
	"github.com/yungbote/docreview-backend/internal/realtime/bus"
	"github.com/yungbote/docreview-backend/internal/scheduler"
	"github.com/yungbote/docreview-backend/internal/services"
	"github.com/yungbote/docreview-backend/internal/worker"
)

type Services struct {
	Auth       services.AuthService
	Notifier   services.NotifierService
	Review     services.ReviewService
	File       services.FileService
	Folder     services.FolderService
	Export     services.ExportService
	Extraction services.ExtractionClient

	Scheduler *scheduler.Scheduler
	Workers   *worker.Pool
	Bus       bus.Bus
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, hub *realtime.Hub, buffer *realtime.Buffer) (Services, error) {
	log.Info("Wiring services...")

	var eventBus bus.Bus
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		redisBus, err := bus.NewRedisBus(log)
		if err != nil {
			return Services{}, err
		}
		eventBus = redisBus
	} else {
		log.Warn("REDIS_ADDR not set; using in-process event bus")
		eventBus = bus.NewMemoryBus()
	}

	notifier := services.NewNotifierService(hub, buffer, eventBus, log)

	extraction, err := services.NewGeminiClient(log)
	if err != nil {
		return Services{}, err
	}

	sched := scheduler.NewScheduler(
		cfg.QueueSize,
		notifier,
		reposet.Review,
		reposet.File,
		reposet.ReviewFile,
		reposet.ReviewColumn,
		reposet.ReviewResult,
		log,
	)

	pool := worker.NewPool(
		cfg.ExtractionWorkers,
		sched.Jobs(),
		extraction,
		reposet.DocumentText,
		reposet.ReviewResult,
		notifier,
		sched,
		cfg.DocCacheTTL,
		log,
	)

	authService := services.NewAuthService(db, log, reposet.User, reposet.UserToken, cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	reviewService := services.NewReviewService(db, log, sched, notifier, reposet.Review, reposet.ReviewColumn, reposet.ReviewFile, reposet.ReviewResult, reposet.File, reposet.Folder)
	fileService := services.NewFileService(db, log, reposet.File, reposet.DocumentText, reposet.Folder)
	folderService := services.NewFolderService(db, log, reposet.Folder, reposet.File)
	exportService := services.NewExportService(log, reviewService)

	return Services{
		Auth:       authService,
		Notifier:   notifier,
		Review:     reviewService,
		File:       fileService,
		Folder:     folderService,
		Export:     exportService,
		Extraction: extraction,
		Scheduler:  sched,
		Workers:    pool,
		Bus:        eventBus,
	}, nil
}
