package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	goredis "github.com/redis/go-redis/v9"
	"google.golang.org/api/drive/v3"

	"luch-agregator/app/controller"
	"luch-agregator/app/router"
	"luch-agregator/config"
	"luch-agregator/db"
	"luch-agregator/logger"
	"luch-agregator/repository"
	"luch-agregator/service"
	"luch-agregator/session"
)

// App holds the wired application and the connections it owns
type App struct {
	Handler http.Handler
	Auth    *service.AuthService

	db    *sql.DB
	redis *goredis.Client
	log   *logger.Logger
}

// Initialize connects to PostgreSQL and Redis, applies migrations and wires every component
func Initialize(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	conn, err := db.InitDB(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.Migrate(cfg, log); err != nil {
		conn.Close()
		return nil, err
	}

	rdb, err := session.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Info("✓ Redis connected", "addr", cfg.RedisAddr)

	a := &App{db: conn, redis: rdb, log: log}
	if err := a.wire(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context, cfg *config.Config) error {
	log := a.log

	// Repositories
	catalogRepo := repository.NewCatalogRepository(a.db, log)
	documentRepo := repository.NewDocumentLogRepository(a.db, log)
	userRepo := repository.NewUserRepository(a.db, log)

	// Services
	catalogService := service.NewCatalogService(catalogRepo, log)
	selectionService := service.NewSelectionService(catalogService, log)
	images := service.NewImageOptimizer(cfg.MediaRoot, cfg.ImageCacheDir, log)

	pdfRenderer, err := service.NewPDFRenderer(service.PDFRendererConfig{
		FontsDir:          cfg.FontsDir,
		ChromePath:        cfg.ChromePath,
		ResolveLocalFiles: cfg.PDFResolveLocalFiles,
		Timeout:           cfg.PDFTimeout,
	}, images, log)
	if err != nil {
		return err
	}
	docxRenderer := service.NewDOCXRenderer(cfg.TemplatesDir, images, log)

	var archive service.DocumentArchiveInterface
	if cfg.ArchiveEnabled() {
		driveService, err := service.NewDriveService(ctx, cfg.DriveCredentialsPath, cfg.DriveFolderID, log)
		if err != nil {
			return err
		}
		archive = driveService
		log.Info("✓ Drive archive enabled", "folder_id", cfg.DriveFolderID)
	} else {
		log.Info("Drive archive disabled")
	}

	offerService := service.NewOfferService(
		selectionService, documentRepo, pdfRenderer, docxRenderer, archive,
		cfg.Offer, cfg.DocumentLocation, log,
	)
	a.Auth = service.NewAuthService(userRepo, log)
	sessions := session.NewManager(a.redis, cfg.SessionTTL, cfg.SessionCookieSecure, log)

	// Create controllers
	controllers := &router.Controllers{
		Auth:        controller.NewAuthController(a.Auth, sessions, log),
		Catalog:     controller.NewCatalogController(catalogService, selectionService, sessions, log),
		Offer:       controller.NewOfferController(offerService, sessions, log),
		DocumentLog: controller.NewDocumentLogController(documentRepo, log),
	}
	a.Handler = router.New(controllers, sessions, log)
	return nil
}

// Close releases the database and Redis connections
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("⚠️  Error closing redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("⚠️  Error closing database", "error", err)
		}
	}
}

// NewMediaSync builds the Drive-backed media sync used by the sync-media command.
// It needs only Drive credentials, not the database or Redis.
func NewMediaSync(ctx context.Context, cfg *config.Config, log *logger.Logger) (*service.MediaSyncService, error) {
	if cfg.DriveCredentialsPath == "" {
		return nil, fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS is not set")
	}
	driveService, err := service.NewDriveService(ctx, cfg.DriveCredentialsPath, "", log, drive.DriveReadonlyScope)
	if err != nil {
		return nil, err
	}
	return service.NewMediaSyncService(driveService, cfg.MediaRoot, log), nil
}
