package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"studyzone/internal/auth"
	"studyzone/internal/blob"
	"studyzone/internal/catalog"
	"studyzone/internal/config"
	"studyzone/internal/firebase"
	"studyzone/internal/hasher"
	"studyzone/internal/logger"
	"studyzone/internal/metrics"
	"studyzone/internal/repository"
	"studyzone/internal/repository/inmem"
	"studyzone/internal/router"
	"studyzone/internal/server"
	"studyzone/internal/session"
)

func main() {
	flag.Parse()
	defer glog.Flush()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "studyzone: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	l, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("error creating logger: %w", err)
	}
	defer l.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := openBackends(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer deps.close(l)

	h, err := hasher.New(cfg.PasswordHasher)
	if err != nil {
		return err
	}

	m := metrics.New()
	manager := auth.NewManager(auth.Options{
		Users:               deps.repo,
		Sessions:            deps.sessions,
		Hasher:              h,
		AllowedEmailDomains: cfg.AllowedEmailDomains,
		Logger:              l.Named("auth"),
		Metrics:             m,
	})
	service := catalog.New(catalog.Options{
		Courses: deps.repo,
		Blobs:   deps.blobs,
		Logger:  l.Named("catalog"),
		Metrics: m,
	})

	srv := server.New(cfg, server.Routes(router.New(manager, service, l), m, l), l)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		manager.Restore(gctx)
		return nil
	})
	g.Go(func() error {
		return srv.Run(gctx)
	})

	l.Info("studyzone started",
		zap.String("env", cfg.Env),
		zap.String("backend", cfg.Backend),
		zap.String("blobs", cfg.Blob.Backend),
		zap.String("sessions", cfg.Session.Backend),
	)
	return g.Wait()
}

type backends struct {
	app      *firebase.App
	repo     repository.Repository
	blobs    blob.Store
	sessions session.Store
}

func openBackends(ctx context.Context, cfg *config.ServerConfig, l *zap.Logger) (*backends, error) {
	deps := &backends{}
	ok := false
	defer func() {
		if !ok {
			deps.close(l)
		}
	}()

	firebaseApp := func() (*firebase.App, error) {
		if deps.app != nil {
			return deps.app, nil
		}
		app, err := firebase.NewApp(ctx, cfg.Firebase)
		if err != nil {
			return nil, err
		}
		deps.app = app
		return app, nil
	}

	switch cfg.Backend {
	case config.BackendMemory:
		deps.repo = inmem.New()
	case config.BackendFirebase:
		app, err := firebaseApp()
		if err != nil {
			return nil, err
		}
		deps.repo = repository.NewFirebaseRepository(app.Firestore)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	switch cfg.Blob.Backend {
	case config.BackendMemory:
		deps.blobs = blob.NewMemoryStore()
	case config.BackendFirebase:
		app, err := firebaseApp()
		if err != nil {
			return nil, err
		}
		if err := app.OpenBucket(ctx, cfg.Firebase.StorageBucket); err != nil {
			return nil, err
		}
		deps.blobs = blob.NewFirebaseStore(app.Bucket, app.BucketName)
	case config.BackendB2:
		store, err := blob.NewB2Store(ctx, cfg.Blob.B2AccountID, cfg.Blob.B2AppKey, cfg.Blob.B2Bucket)
		if err != nil {
			return nil, err
		}
		deps.blobs = store
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Blob.Backend)
	}

	switch cfg.Session.Backend {
	case config.BackendMemory:
		deps.sessions = session.NewMemoryStore()
	case config.BackendBolt:
		store, err := session.OpenBolt(cfg.Session.Path, cfg.Session.Key)
		if err != nil {
			return nil, err
		}
		deps.sessions = store
	case config.BackendRedis:
		store, err := session.NewRedisStore(session.RedisOptions{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
			Key:      cfg.Session.Key,
		})
		if err != nil {
			return nil, err
		}
		deps.sessions = store
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}

	ok = true
	return deps, nil
}

func (b *backends) close(l *zap.Logger) {
	if b.sessions != nil {
		if err := b.sessions.Close(); err != nil {
			l.Warn("error closing session store", zap.Error(err))
		}
	}
	if b.app != nil {
		if err := b.app.Close(); err != nil {
			l.Warn("error closing firebase", zap.Error(err))
		}
	}
}
