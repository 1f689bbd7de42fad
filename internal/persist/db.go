// Package persist is the Postgres binding for worldmodel.Persistence
// (C14), generalized from the teacher's internal/persist package shape:
// one Repo type per aggregate over a shared pgxpool.Pool, with embedded
// goose migrations run at boot. Only cmd/mudserver selects this adapter;
// no core package (C1-C12) imports it directly.
package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mythosmud/mudserver/internal/config"
	"go.uber.org/zap"
)

// DB wraps a pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
	log  *zap.Logger
}

func NewDB(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return &DB{Pool: pool, log: log}, nil
}

func (db *DB) Close() {
	db.Pool.Close()
}

// Store composes every aggregate repo into the single value
// cmd/mudserver wires in as the worldmodel.Persistence implementation.
type Store struct {
	Players    *PlayerRepo
	Rooms      *RoomRepo
	Containers *ContainerRepo
	Professions *ProfessionRepo
}

// NewStore builds a Store bound to db, running embedded migrations
// first.
func NewStore(ctx context.Context, db *DB) (*Store, error) {
	if err := RunMigrations(ctx, db.Pool); err != nil {
		return nil, err
	}
	return &Store{
		Players:     &PlayerRepo{db: db},
		Rooms:       &RoomRepo{db: db},
		Containers:  &ContainerRepo{db: db},
		Professions: &ProfessionRepo{db: db},
	}, nil
}
