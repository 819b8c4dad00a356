package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"biblioteca/internal/auth"
	"biblioteca/internal/catalog"
	"biblioteca/internal/config"
	"biblioteca/internal/curation"
	"biblioteca/internal/database"
	"biblioteca/internal/database/books"
	"biblioteca/internal/database/users"
	http_controllers "biblioteca/internal/http"
	"biblioteca/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until an interrupt arrives, then shuts down
// gracefully within the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// Run wires the application and serves it.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting Biblioteca v%s", version)

	if cfg.Catalog.APIKey == "" {
		log.Printf("WARNING: Catalog API key is not set. Admin search will fail until 'CATALOG_API_KEY' is configured.")
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}()

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL handle: %v", err)
	}

	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize sessions: %v", err)
	}

	bookRepo := books.NewRepository(db.DB)
	userRepo := users.NewRepository(db.DB)

	authService := auth.NewService(userRepo, cfg.Auth)
	authHandlers := auth.NewHandlers(authService, sessionManager)

	catalogClient := catalog.NewClient(cfg.Catalog)

	workflow := curation.NewWorkflow(bookRepo, catalogClient, cfg.Curation.SearchDebounce)
	defer workflow.Close()

	// Initial curated-list load. A failure is surfaced through the workflow
	// snapshot, not fatal.
	if err := workflow.Load(context.Background()); err != nil {
		log.Printf("Initial book load failed: %v", err)
	}

	router := http_controllers.NewRouter(http_controllers.RouterDeps{
		Store:        bookRepo,
		Workflow:     workflow,
		AuthHandlers: authHandlers,
		Sessions:     sessionManager,
	})

	var taskClient *tasks.Client
	var reconcileCron *cron.Cron
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.Config{
			Workers:           cfg.Tasks.Workers,
			ReleaseAfter:      cfg.Tasks.ReleaseAfter,
			CleanupInterval:   cfg.Tasks.CleanupInterval,
			RetentionDuration: cfg.Tasks.RetentionDuration,
		})
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		taskClient.Register(tasks.NewReconcileFavoritesQueue(bookRepo))

		taskCtx, cancelTasks := context.WithCancel(context.Background())
		defer cancelTasks()
		go taskClient.Start(taskCtx)

		reconcileCron = cron.New()
		_, err = reconcileCron.AddFunc(cfg.Tasks.ReconcileSchedule, func() {
			if _, err := taskClient.Add(tasks.ReconcileFavoritesTask{}).Save(); err != nil {
				log.Printf("Failed to enqueue favorites reconciliation: %v", err)
			}
		})
		if err != nil {
			log.Fatalf("Invalid reconcile schedule %q: %v", cfg.Tasks.ReconcileSchedule, err)
		}
		reconcileCron.Start()
		log.Printf("Favorites reconciliation scheduled: %s", cfg.Tasks.ReconcileSchedule)
	}

	Serve(router, cfg, func(ctx context.Context) {
		if reconcileCron != nil {
			reconcileCron.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
			if err := taskClient.Close(); err != nil {
				log.Printf("Failed to close task queue: %v", err)
			}
		}
	})
}
