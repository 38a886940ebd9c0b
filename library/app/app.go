package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/libsys/library/config"
	"github.com/Astemirdum/libsys/library/internal/events"
	"github.com/Astemirdum/libsys/library/internal/handler"
	"github.com/Astemirdum/libsys/library/internal/metadata"
	"github.com/Astemirdum/libsys/library/internal/model"
	"github.com/Astemirdum/libsys/library/internal/repository"
	"github.com/Astemirdum/libsys/library/internal/repository/memory"
	"github.com/Astemirdum/libsys/library/internal/server"
	"github.com/Astemirdum/libsys/library/internal/service"
	"github.com/Astemirdum/libsys/library/migrations"
	"github.com/Astemirdum/libsys/pkg/auth"
	"github.com/Astemirdum/libsys/pkg/kafka"
	"github.com/Astemirdum/libsys/pkg/logger"
	"github.com/Astemirdum/libsys/pkg/postgres"
)

const shutdownTimeout = 5 * time.Second

// Run serves the library API until SIGINT or SIGTERM.
func Run(cfg config.Config) error {
	log := logger.NewLogger(cfg.Log, "library")
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := newRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	opts := make([]service.Option, 0, 2)
	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			return errors.Wrap(err, "kafka.NewProducer")
		}
		pub := events.NewKafkaPublisher(producer, cfg.Kafka.Topic, log)
		defer func() {
			if err := pub.Close(); err != nil {
				log.Warn("kafka producer close", zap.Error(err))
			}
		}()
		opts = append(opts, service.WithPublisher(pub))
	}

	g, gctx := errgroup.WithContext(ctx)

	var enricher *metadata.Enricher
	if cfg.Metadata.Enabled {
		enricher = metadata.NewEnricher(metadata.NewClient(cfg.Metadata, log), repo, cfg.Metadata, log)
		opts = append(opts, service.WithEnricher(enricher))
		g.Go(func() error {
			return enricher.Run(gctx)
		})
	}

	tokens := auth.NewTokenManager(cfg.Auth)
	svc := service.NewService(repo, tokens, log, opts...)

	if cfg.Admin.Email != "" {
		if _, err := svc.SeedAdmin(ctx, model.CreateUserRequest{
			Name:     cfg.Admin.Name,
			Email:    cfg.Admin.Email,
			Password: cfg.Admin.Password,
		}); err != nil {
			return errors.Wrap(err, "seed admin")
		}
	}

	h := handler.New(svc, tokens, log)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr", net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)),
		zap.String("storage", cfg.Storage))

	g.Go(srv.Run)
	g.Go(func() error {
		<-gctx.Done()
		log.Debug("Graceful shutdown")

		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Stop(closeCtx)
	})

	err = g.Wait()
	if enricher != nil {
		enricher.Wait()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("Graceful shutdown finished")
	return nil
}

func newRepository(ctx context.Context, cfg config.Config, log *zap.Logger) (repository.Repository, func(), error) {
	if cfg.Storage == config.StorageMemory {
		return memory.New(), func() {}, nil
	}

	db, err := postgres.NewPostgresDB(ctx, &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		return nil, nil, errors.Wrap(err, "db init")
	}
	pool, err := postgres.NewPool(ctx, &cfg.Database)
	if err != nil {
		_ = db.Close()
		return nil, nil, errors.Wrap(err, "pool init")
	}
	repo, err := repository.NewRepository(db, pool, log)
	if err != nil {
		pool.Close()
		_ = db.Close()
		return nil, nil, errors.Wrap(err, "repo")
	}
	return repo, func() {
		pool.Close()
		_ = db.Close()
	}, nil
}

// Migrate applies pending migrations and prints their status.
func Migrate(cfg config.Config) error {
	if cfg.Storage != config.StoragePostgres {
		return errors.Errorf("migrate: storage %q has no schema", cfg.Storage)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "pgx", cfg.Database.DSN())
	if err != nil {
		return errors.Wrap(err, "sqlx.Connect")
	}
	defer db.Close()

	if err := postgres.Migrate(db, migrations.MigrationFiles); err != nil {
		return err
	}
	return postgres.MigrationStatus(db, migrations.MigrationFiles)
}
