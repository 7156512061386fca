// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

// Package migrate applies versioned schema changes to a postgres database.
package migrate

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/catalogsync/private/dbutil/txutil"
)

var (
	// Error is the default migrate errs class.
	Error = errs.Class("migrate")
	// ErrValidateVersionQuery is when there is an error querying version table
	ErrValidateVersionQuery = errs.Class("validate db version query error")
	// ErrValidateVersionMismatch is when the migration version does not match the current database version
	ErrValidateVersionMismatch = errs.Class("validate db version mismatch error")
)

/*

Scenarios it doesn't handle properly.

1. Undoing migrations.

	Intentionally left out, because we do not gain that much from currently.

2. Figuring out what the exact executed steps are.
*/

// Migration describes a migration steps
type Migration struct {
	Table string
	Steps []*Step
}

// Step describes a single step in migration.
type Step struct {
	Description string
	Version     int // Versions should start at 0
	Action      Action
}

// Action is something that needs to be done
type Action interface {
	Run(ctx context.Context, log *zap.Logger, tx pgx.Tx) error
}

// TargetVersion returns migration with steps upto specified version
func (migration *Migration) TargetVersion(version int) *Migration {
	m := *migration
	m.Steps = nil
	for _, step := range migration.Steps {
		if step.Version <= version {
			m.Steps = append(m.Steps, step)
		}
	}
	return &m
}

// ValidTableName checks whether the specified table name is valid
func (migration *Migration) ValidTableName() error {
	matched, err := regexp.MatchString(`^[a-z_]+$`, migration.Table)
	if !matched || err != nil {
		return Error.New("invalid table name: %v", migration.Table)
	}
	return nil
}

// ValidateSteps checks that the version for each migration step increments in order
func (migration *Migration) ValidateSteps() error {
	sorted := sort.SliceIsSorted(migration.Steps, func(i, j int) bool {
		return migration.Steps[i].Version <= migration.Steps[j].Version
	})
	if !sorted {
		return Error.New("steps have incorrect order")
	}
	return nil
}

// ValidateVersions checks that the version of the migration matches the state of the database
func (migration *Migration) ValidateVersions(ctx context.Context, log *zap.Logger, db txutil.Beginner) error {
	dbVersion, err := migration.getLatestVersion(ctx, db)
	if err != nil {
		return ErrValidateVersionQuery.Wrap(err)
	}

	if len(migration.Steps) > 0 {
		last := migration.Steps[len(migration.Steps)-1]
		if last.Version > dbVersion {
			return ErrValidateVersionMismatch.New("expected %d <= %d", last.Version, dbVersion)
		}
		log.Debug("Database version is up to date", zap.Int("version", last.Version))
	} else {
		log.Debug("No Versions")
	}

	return nil
}

// Run runs the migration steps
func (migration *Migration) Run(ctx context.Context, log *zap.Logger, db txutil.Beginner) error {
	err := migration.ValidTableName()
	if err != nil {
		return err
	}

	err = migration.ValidateSteps()
	if err != nil {
		return err
	}

	err = migration.ensureVersionTable(ctx, db)
	if err != nil {
		return Error.New("creating version table failed: %v", err)
	}

	version, err := migration.getLatestVersion(ctx, db)
	if err != nil {
		return Error.Wrap(err)
	}
	initialSetup := version < 0

	for _, step := range migration.Steps {
		if step.Version <= version {
			continue
		}

		stepLog := log.Named(strconv.Itoa(step.Version))
		if !initialSetup {
			stepLog.Info(step.Description)
		}

		err = txutil.WithTx(ctx, db, pgx.TxOptions{}, func(ctx context.Context, tx pgx.Tx) error {
			err := step.Action.Run(ctx, stepLog, tx)
			if err != nil {
				return err
			}
			return migration.addVersion(ctx, tx, step.Version)
		})
		if err != nil {
			return Error.Wrap(err)
		}
	}

	if len(migration.Steps) > 0 {
		last := migration.Steps[len(migration.Steps)-1]
		if initialSetup {
			log.Info("Database Created", zap.Int("version", last.Version))
		} else {
			log.Info("Database Version", zap.Int("version", last.Version))
		}
	} else {
		log.Info("No Versions")
	}

	return nil
}

// ensureVersionTable creates migration.Table table if not exists.
func (migration *Migration) ensureVersionTable(ctx context.Context, db txutil.Beginner) error {
	err := txutil.WithTx(ctx, db, pgx.TxOptions{}, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+migration.Table+` (version int, commited_at text)`) //nolint:misspell
		return err
	})
	return Error.Wrap(err)
}

// getLatestVersion finds the latest version in migration.Table.
// It returns -1 if there aren't rows or version is null.
func (migration *Migration) getLatestVersion(ctx context.Context, db txutil.Beginner) (int, error) {
	var version *int64
	err := txutil.WithTx(ctx, db, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(ctx context.Context, tx pgx.Tx) error {
		return tx.QueryRow(ctx, `SELECT MAX(version) FROM `+migration.Table).Scan(&version)
	})
	if err != nil {
		return -1, Error.Wrap(err)
	}
	if version == nil {
		return -1, nil
	}
	return int(*version), nil
}

// addVersion adds information about a new migration
func (migration *Migration) addVersion(ctx context.Context, tx pgx.Tx, version int) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO `+migration.Table+` (version, commited_at) VALUES ($1, $2)`, //nolint:misspell
		version, time.Now().String(),
	)
	return err
}

// CurrentVersion finds the latest version for the db
func (migration *Migration) CurrentVersion(ctx context.Context, db txutil.Beginner) (int, error) {
	err := migration.ensureVersionTable(ctx, db)
	if err != nil {
		return -1, Error.Wrap(err)
	}
	return migration.getLatestVersion(ctx, db)
}

// SQL statements that are executed on the database
type SQL []string

// Run runs the SQL statements
func (sql SQL) Run(ctx context.Context, log *zap.Logger, tx pgx.Tx) (err error) {
	for _, query := range sql {
		_, err := tx.Exec(ctx, query)
		if err != nil {
			return errs.Wrap(err)
		}
	}
	return nil
}

// Func is an arbitrary operation
type Func func(ctx context.Context, log *zap.Logger, tx pgx.Tx) error

// Run runs the migration
func (fn Func) Run(ctx context.Context, log *zap.Logger, tx pgx.Tx) error {
	return fn(ctx, log, tx)
}
