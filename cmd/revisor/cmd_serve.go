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

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/persistorai/revisor/internal/api"
	"github.com/persistorai/revisor/internal/config"
	"github.com/persistorai/revisor/internal/db"
	"github.com/persistorai/revisor/internal/db/migrations"
	"github.com/persistorai/revisor/internal/dbpool"
	"github.com/persistorai/revisor/internal/document"
	"github.com/persistorai/revisor/internal/domain"
	"github.com/persistorai/revisor/internal/revisable"
	"github.com/persistorai/revisor/internal/service"
	"github.com/persistorai/revisor/internal/store"
	"github.com/persistorai/revisor/internal/ws"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the revisor HTTP server",
		Long:  "Serve the REST API using the storage backend and schema file from the environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	log.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	if lvl < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	return log
}

// storage is an opened persistence backend.
type storage struct {
	repo          domain.DocumentRepository
	schemaVersion int
	close         func()
}

func openStorage(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*storage, error) {
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value(), dbpool.Options{MaxConns: int32(cfg.DBMaxConns)}) //nolint:gosec // validated range.
		if err != nil {
			return nil, err
		}
		if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
			pool.Close()
			return nil, err
		}
		return &storage{
			repo:          store.NewDocumentStore(store.Base{Pool: pool, Log: log}),
			schemaVersion: db.SchemaVersion(),
			close:         pool.Close,
		}, nil
	default:
		bcfg := store.DefaultBadgerConfig(cfg.BadgerPath)
		if cfg.BadgerInMemory {
			bcfg.InMemory = true
			bcfg.Path = ""
		}
		bcfg.GCInterval = cfg.BadgerGC
		bs, err := store.OpenBadger(bcfg, log)
		if err != nil {
			return nil, err
		}
		return &storage{
			repo: bs,
			close: func() {
				if err := bs.Close(); err != nil {
					log.WithError(err).Warn("store.close_failed")
				}
			},
		}, nil
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := newLogger(cfg.LogLevel)

	decls, err := document.LoadDeclarations(cfg.SchemaFile)
	if err != nil {
		return err
	}
	catalog, err := document.NewCatalog(decls)
	if err != nil {
		return fmt.Errorf("building schema catalog: %w", err)
	}

	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	g, gctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(log)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	docs := service.NewDocumentService(st.repo, catalog, revisable.NewEngine(log), log)
	docs.SetPublisher(hub)

	handler := api.NewRouter(&api.RouterDeps{
		Log:           log,
		Storage:       st.repo,
		Backend:       cfg.StorageBackend,
		SchemaVersion: st.schemaVersion,
		Documents:     docs,
		History:       service.NewHistoryService(st.repo, catalog, log),
		CORSOrigins:   cfg.CORSOrigins,
		Version:       config.Version,
		Feed:          hub,
		AppCtx:        gctx,
	})

	// No read or write timeouts: feed connections are long-lived.
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"addr":    srv.Addr,
			"backend": cfg.StorageBackend,
			"types":   len(decls),
			"version": config.Version,
		}).Info("server.listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("server.shutting_down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server.stopped")
	return nil
}
