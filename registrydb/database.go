// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package registrydb implements the dataset registry on postgres.
package registrydb

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/catalogsync/catalog/dataset"
	"storj.io/catalogsync/private/dbutil/pgutil"
	"storj.io/catalogsync/private/migrate"
)

var (
	mon = monkit.Package()

	// Error is the default registrydb errs class.
	Error = errs.Class("registrydb")
)

// ApplicationName is reported to postgres unless the connection string names one.
const ApplicationName = "catalogsync"

// DB is the registry database.
type DB struct {
	log  *zap.Logger
	pool *pgxpool.Pool
}

// Open connects to the registry database at databaseURL.
func Open(ctx context.Context, log *zap.Logger, databaseURL string) (*DB, error) {
	databaseURL, err := pgutil.CheckApplicationName(databaseURL, ApplicationName)
	if err != nil {
		return nil, Error.Wrap(err)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, Error.Wrap(err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, Error.New("unable to reach registry: %w", err)
	}

	return &DB{log: log, pool: pool}, nil
}

// Close closes the underlying pool.
func (db *DB) Close() error {
	db.pool.Close()
	return nil
}

// Datasets returns the dataset registry.
func (db *DB) Datasets() dataset.DB {
	return &datasets{db: db}
}

// MigrateToLatest creates or upgrades the registry schema.
func (db *DB) MigrateToLatest(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	return db.Migration().Run(ctx, db.log.Named("migrate"), db.pool)
}

// CheckVersion confirms the registry schema is at the latest version.
func (db *DB) CheckVersion(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	return db.Migration().ValidateVersions(ctx, db.log, db.pool)
}

// Migration returns the steps that build the registry schema.
func (db *DB) Migration() *migrate.Migration {
	return &migrate.Migration{
		Table: "versions",
		Steps: []*migrate.Step{
			{
				Description: "Initial setup",
				Version:     0,
				Action: migrate.SQL{
					`CREATE TABLE datasets (
						id bytea NOT NULL,
						schema_id bigint NOT NULL,
						type text NOT NULL,
						name text NOT NULL,
						master_table boolean NOT NULL DEFAULT false,
						query text NOT NULL DEFAULT '',
						stale_at timestamp with time zone,
						deleted_at timestamp with time zone,
						created_at timestamp with time zone NOT NULL,
						updated_at timestamp with time zone NOT NULL,
						PRIMARY KEY ( id )
					)`,
					`CREATE UNIQUE INDEX datasets_schema_id_type_name_index ON datasets ( schema_id, type, name ) WHERE deleted_at IS NULL`,
				},
			},
			{
				Description: "Restrict record types",
				Version:     1,
				Action: migrate.SQL{
					`ALTER TABLE datasets ADD CONSTRAINT datasets_type_check CHECK ( type IN ('GpdbTable', 'GpdbView', 'ChorusView') )`,
				},
			},
		},
	}
}
