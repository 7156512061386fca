// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package registrydbtest

// This package should be referenced only in test files!

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"storj.io/catalogsync/private/dbutil/pgutil/pgtest"
	"storj.io/catalogsync/registrydb"
	"storj.io/common/testcontext"
)

// Run creates a migrated registry in a temporary schema and runs test
// against it. The test is skipped when no postgres test database is
// configured.
func Run(t *testing.T, test func(ctx *testcontext.Context, t *testing.T, db *registrydb.DB)) {
	ctx := testcontext.New(t)

	tempDB := pgtest.OpenUnique(ctx, t, t.Name())

	db, err := registrydb.Open(ctx, zaptest.NewLogger(t), tempDB.ConnStr)
	require.NoError(t, err)
	defer ctx.Check(db.Close)

	require.NoError(t, db.MigrateToLatest(ctx))

	test(ctx, t, db)
}
