package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"nft-floor-lab/internal/config"
	"nft-floor-lab/internal/storage"
	chstore "nft-floor-lab/internal/storage/clickhouse"
	"nft-floor-lab/internal/storage/csvfile"
	"nft-floor-lab/internal/storage/memory"
	"nft-floor-lab/internal/storage/migrations"
	pgstore "nft-floor-lab/internal/storage/postgres"
)

// backends opens database connections lazily and shares them between the
// trade source and the estimate sink.
type backends struct {
	cfg    config.StorageConfig
	logger zerolog.Logger

	pool   *pgstore.Pool
	chConn *chstore.Conn
}

func newBackends(cfg config.StorageConfig, logger zerolog.Logger) *backends {
	return &backends{cfg: cfg, logger: logger}
}

func (b *backends) postgres(ctx context.Context) (*pgstore.Pool, error) {
	if b.pool != nil {
		return b.pool, nil
	}
	pool, err := pgstore.NewPool(ctx, b.cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	b.pool = pool
	return pool, nil
}

func (b *backends) clickhouse(ctx context.Context) (*chstore.Conn, error) {
	if b.chConn != nil {
		return b.chConn, nil
	}
	conn, err := chstore.NewConn(ctx, b.cfg.ClickhouseDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	b.chConn = conn
	return conn, nil
}

// uses reports whether the source or the sink is backend.
func (b *backends) uses(backend string) bool {
	return b.cfg.Source == backend || b.cfg.Sink == backend
}

// migrate applies embedded migrations to every database backend in use.
func (b *backends) migrate(ctx context.Context) error {
	if b.uses(config.BackendPostgres) {
		pool, err := b.postgres(ctx)
		if err != nil {
			return err
		}
		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		if err != nil {
			return fmt.Errorf("postgres migrations: %w", err)
		}
		b.logger.Info().Strs("files", applied).Msg("postgres migrations applied")
	}

	if b.uses(config.BackendClickhouse) {
		conn, applied, err := migrations.RunClickhouseMigrations(ctx, b.cfg.ClickhouseDSN)
		if err != nil {
			return fmt.Errorf("clickhouse migrations: %w", err)
		}
		if b.chConn == nil {
			b.chConn = conn
		} else {
			conn.Close()
		}
		b.logger.Info().Strs("files", applied).Msg("clickhouse migrations applied")
	}
	return nil
}

// tradeSource returns the configured storage.TradeSource.
func (b *backends) tradeSource(ctx context.Context) (storage.TradeSource, error) {
	if b.cfg.Source == config.BackendCSV {
		return csvfile.NewSource(b.cfg.CSVPath), nil
	}
	return b.tradeStore(ctx)
}

// tradeStore returns the writable trade store of the configured source.
func (b *backends) tradeStore(ctx context.Context) (storage.TradeStore, error) {
	switch b.cfg.Source {
	case config.BackendMemory:
		return memory.NewTradeStore(), nil
	case config.BackendPostgres:
		pool, err := b.postgres(ctx)
		if err != nil {
			return nil, err
		}
		return pgstore.NewTradeStore(pool), nil
	case config.BackendClickhouse:
		conn, err := b.clickhouse(ctx)
		if err != nil {
			return nil, err
		}
		return chstore.NewTradeStore(conn), nil
	default:
		return nil, fmt.Errorf("%w: trade store %q", storage.ErrUnsupportedBackend, b.cfg.Source)
	}
}

// floorPriceStore returns the configured sink, or nil for "none".
func (b *backends) floorPriceStore(ctx context.Context) (storage.FloorPriceStore, error) {
	switch b.cfg.Sink {
	case config.BackendNone:
		return nil, nil
	case config.BackendMemory:
		return memory.NewFloorPriceStore(), nil
	case config.BackendPostgres:
		pool, err := b.postgres(ctx)
		if err != nil {
			return nil, err
		}
		return pgstore.NewFloorPriceStore(pool), nil
	case config.BackendClickhouse:
		conn, err := b.clickhouse(ctx)
		if err != nil {
			return nil, err
		}
		return chstore.NewFloorPriceStore(conn), nil
	default:
		return nil, fmt.Errorf("%w: floor price store %q", storage.ErrUnsupportedBackend, b.cfg.Sink)
	}
}

// Close releases every opened connection.
func (b *backends) Close() {
	if b.chConn != nil {
		b.chConn.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}
