// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package migrate_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"storj.io/catalogsync/private/dbutil/pgutil/pgtest"
	"storj.io/catalogsync/private/migrate"
	"storj.io/common/testcontext"
)

func TestValidation(t *testing.T) {
	m := migrate.Migration{
		Table: "versions",
		Steps: []*migrate.Step{
			{Version: 0, Action: migrate.SQL{}},
			{Version: 1, Action: migrate.SQL{}},
			{Version: 2, Action: migrate.SQL{}},
		},
	}
	require.NoError(t, m.ValidTableName())
	require.NoError(t, m.ValidateSteps())

	target := m.TargetVersion(1)
	require.Len(t, target.Steps, 2)
	require.Len(t, m.Steps, 3)

	m.Steps[0], m.Steps[1] = m.Steps[1], m.Steps[0]
	require.Error(t, m.ValidateSteps())

	for _, invalid := range []string{"", "Versions", "versions; DROP", "v1"} {
		m := migrate.Migration{Table: invalid}
		require.Error(t, m.ValidTableName(), invalid)
	}
}

func TestBasicMigration(t *testing.T) {
	ctx := testcontext.New(t)
	db := pgtest.OpenUnique(ctx, t, "migrate")

	dbVersion := func() int {
		var version int
		require.NoError(t, db.QueryRow(ctx, `SELECT MAX(version) FROM versions`).Scan(&version))
		return version
	}

	m := migrate.Migration{
		Table: "versions",
		Steps: []*migrate.Step{
			{
				Description: "Initialize Table",
				Version:     1,
				Action: migrate.SQL{
					`CREATE TABLE users (id int)`,
					`INSERT INTO users (id) VALUES (1)`,
				},
			},
			{
				Description: "Move files",
				Version:     2,
				Action: migrate.Func(func(ctx context.Context, log *zap.Logger, tx pgx.Tx) error {
					_, err := tx.Exec(ctx, `INSERT INTO users (id) VALUES (2)`)
					return err
				}),
			},
		},
	}

	log := zaptest.NewLogger(t)

	version, err := m.CurrentVersion(ctx, db)
	require.NoError(t, err)
	require.Equal(t, -1, version)

	require.Error(t, m.ValidateVersions(ctx, log, db))

	require.NoError(t, m.Run(ctx, log, db))
	require.Equal(t, 2, dbVersion())
	require.NoError(t, m.ValidateVersions(ctx, log, db))

	// running again does nothing
	require.NoError(t, m.Run(ctx, log, db))

	var users int
	require.NoError(t, db.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&users))
	require.Equal(t, 2, users)
}

func TestFailedMigration(t *testing.T) {
	ctx := testcontext.New(t)
	db := pgtest.OpenUnique(ctx, t, "migrate-fail")

	m := migrate.Migration{
		Table: "versions",
		Steps: []*migrate.Step{
			{Description: "Create table", Version: 1, Action: migrate.SQL{`CREATE TABLE users (id int)`}},
			{Description: "Fail", Version: 2, Action: migrate.Func(func(ctx context.Context, log *zap.Logger, tx pgx.Tx) error {
				_, err := tx.Exec(ctx, `INSERT INTO users (id) VALUES (1)`)
				if err != nil {
					return err
				}
				return errs.New("migration failed")
			})},
		},
	}

	err := m.Run(ctx, zaptest.NewLogger(t), db)
	require.Error(t, err)

	version, err := m.CurrentVersion(ctx, db)
	require.NoError(t, err)
	require.Equal(t, 1, version)

	var users int
	require.NoError(t, db.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&users))
	require.Zero(t, users)
}
