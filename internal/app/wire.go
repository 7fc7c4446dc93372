package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/quantfabric/execdb/internal/codec"
	"github.com/quantfabric/execdb/internal/config"
	"github.com/quantfabric/execdb/internal/domain"
	"github.com/quantfabric/execdb/internal/store/postgres"
	execredis "github.com/quantfabric/execdb/internal/store/redis"
)

// Dependencies bundles everything the run modes need.
type Dependencies struct {
	Database domain.ExecutionDatabase
	Journal  domain.EventJournal
	TraderID domain.TraderID
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{TraderID: domain.TraderID(cfg.Trader.ID)}

	// --- Codecs ---
	var (
		commands domain.CommandCodec
		events   domain.EventCodec
	)
	switch strings.ToLower(cfg.Serialization.Format) {
	case "json":
		c := codec.NewJSONCodec()
		commands, events = c, c
	default:
		c := codec.NewMsgPackCodec()
		commands, events = c, c
	}

	// --- PostgreSQL journal (optional) ---
	if cfg.Journal.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Journal.DSN,
			Host:     cfg.Journal.Host,
			Port:     cfg.Journal.Port,
			Database: cfg.Journal.Database,
			User:     cfg.Journal.User,
			Password: cfg.Journal.Password,
			SSLMode:  cfg.Journal.SSLMode,
			MaxConns: cfg.Journal.PoolMaxConns,
			MinConns: cfg.Journal.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Journal.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.Journal = postgres.NewJournalStore(pgClient.Pool())
	}

	// --- Redis ---
	redisClient, err := execredis.New(ctx, execredis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.Database = execredis.NewExecutionDatabase(redisClient, execredis.DatabaseConfig{
		TraderID: deps.TraderID,
		Commands: commands,
		Events:   events,
		Journal:  deps.Journal,
		Logger:   logger,
	})

	return deps, cleanup, nil
}
