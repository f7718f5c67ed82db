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

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"p9e.in/veritrace/config"
	"p9e.in/veritrace/handlers"
	"p9e.in/veritrace/middleware"
	"p9e.in/veritrace/pkg/blobstore"
	"p9e.in/veritrace/pkg/catalog"
	"p9e.in/veritrace/pkg/declaration"
	"p9e.in/veritrace/pkg/session"
	"p9e.in/veritrace/pkg/store"
	"p9e.in/veritrace/routes"
)

const shutdownTimeout = 15 * time.Second

func serveCommand() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the declaration API",
		Long: `Run the HTTP API: mock login, the five-step declaration workflow,
document uploads, certificates and the credential wallet.

Declarations are stored in postgres when DB_DSN is set and in memory
otherwise.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			if port != "" {
				settings.Port = port
			}
			if err := settings.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, settings, log)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Listen port (overrides PORT)")
	return cmd
}

// openRepository connects to postgres and migrates it, or falls back to the
// in-memory repository when no DSN is configured.
func openRepository(settings config.Settings, log *zap.Logger) (store.Repository, func() error, error) {
	if settings.DSN == "" {
		log.Warn("DB_DSN not set, declarations are kept in memory")
		return store.NewMemory(), func() error { return nil }, nil
	}

	db, err := config.Connect(settings, log)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	if err := config.Migrations(db); err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("could not run migrations: %w", err)
	}
	return store.NewGorm(db, log), sqlDB.Close, nil
}

func serve(ctx context.Context, settings config.Settings, log *zap.Logger) error {
	repo, closeRepo, err := openRepository(settings, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	blobs, closeBlobs, err := blobstore.Open(ctx, blobstore.Config{
		UseGCS:    settings.UseGCS,
		Bucket:    settings.GCSBucket,
		LocalRoot: settings.UploadDir,
	}, log)
	if err != nil {
		return err
	}
	defer closeBlobs()

	// The evict hook needs the API, which needs the manager.
	var api *handlers.API
	sessions := session.NewManager(log,
		session.WithTTL(settings.SessionTTL),
		session.WithFactory(func(owner, _ string) *declaration.Workflow {
			return declaration.New(declaration.WithStore(store.ForOwner(repo, owner)))
		}),
		session.WithEvictHook(func(snap session.Snapshot) { api.DiscardBlobs(snap) }),
	)

	auth := middleware.NewAuth(settings.JWTSecret)
	api = handlers.NewAPI(handlers.Deps{
		Log:      log,
		Auth:     auth,
		Sessions: sessions,
		Repo:     repo,
		Blobs:    blobs,
		Catalog:  catalog.Default(),
	})

	srv := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           routes.RegisterRoutes(api, auth, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Info("server starting", zap.String("port", settings.Port), zap.String("version", Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		return sessions.Run(egCtx)
	})
	eg.Go(func() error {
		<-egCtx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}
