package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/repository"
)

// stores holds the repositories for the configured driver together with the
// backends readiness should ping.
type stores struct {
	tickets    repository.TicketRepository
	complaints repository.ComplaintRepository
	checks     map[string]persistence.Pinger
	closers    []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger, metrics *observability.Metrics) (*stores, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverFile:
		ticketsBlob, err := persistence.NewFileBlob(cfg.Storage.TicketsPath())
		if err != nil {
			return nil, err
		}
		complaintsBlob, err := persistence.NewFileBlob(cfg.Storage.ComplaintsPath())
		if err != nil {
			return nil, err
		}
		return &stores{
			tickets:    repository.NewCSVTicketRepository(ticketsBlob, logger, metrics),
			complaints: repository.NewCSVComplaintRepository(complaintsBlob, logger, metrics),
			checks:     map[string]persistence.Pinger{"storage": ticketsBlob},
		}, nil

	case config.StorageDriverRedis:
		redis := persistence.NewRedis(cfg.Redis, logger)
		return &stores{
			tickets:    repository.NewCSVTicketRepository(redis.Blob(cfg.Storage.TicketsName), logger, metrics),
			complaints: repository.NewCSVComplaintRepository(redis.Blob(cfg.Storage.ComplaintsName), logger, metrics),
			checks:     map[string]persistence.Pinger{"redis": redis},
			closers:    []func(){redis.Close},
		}, nil

	case config.StorageDriverBolt:
		db, err := persistence.OpenBolt(cfg.Storage.BoltPath, logger)
		if err != nil {
			return nil, err
		}
		return &stores{
			tickets:    repository.NewCSVTicketRepository(db.Blob(cfg.Storage.TicketsName), logger, metrics),
			complaints: repository.NewCSVComplaintRepository(db.Blob(cfg.Storage.ComplaintsName), logger, metrics),
			checks:     map[string]persistence.Pinger{"bolt": db},
			closers:    []func(){db.Close},
		}, nil

	case config.StorageDriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg, cfg.Postgres.MigrationsDir, logger); err != nil {
				pg.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		return &stores{
			tickets:    repository.NewPostgresTicketRepository(pg),
			complaints: repository.NewPostgresComplaintRepository(pg),
			checks:     map[string]persistence.Pinger{"postgres": pg},
			closers:    []func(){pg.Close},
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
