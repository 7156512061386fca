// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package pgtest_test

import (
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"storj.io/catalogsync/private/dbutil/pgutil"
	"storj.io/catalogsync/private/dbutil/pgutil/pgtest"
	"storj.io/common/testcontext"
)

func TestOpenUnique(t *testing.T) {
	ctx := testcontext.New(t)

	prefix := "name#spaced/Test/DB"
	testDB := pgtest.OpenUnique(ctx, t, prefix)
	require.True(t, strings.HasPrefix(testDB.Schema, prefix))

	schema, err := pgutil.ParseSchemaFromConnstr(testDB.ConnStr)
	require.NoError(t, err)
	require.Equal(t, testDB.Schema, schema)

	// assert new test schema exists and can be connected to again
	otherConn, err := pgx.Connect(ctx, testDB.ConnStr)
	require.NoError(t, err)
	defer ctx.Check(func() error { return otherConn.Close(ctx) })

	var name *string
	err = otherConn.QueryRow(ctx, `SELECT current_schema()`).Scan(&name)
	require.NoErrorf(t, err, "connStr=%q", testDB.ConnStr)
	require.NotNilf(t, name, "PG has no current_schema, which means the one we asked for doesn't exist. connStr=%q", testDB.ConnStr)
	require.Equal(t, testDB.Schema, *name)

	var count int
	err = testDB.QueryRow(ctx, `SELECT COUNT(*) FROM pg_namespace WHERE nspname = current_schema`).Scan(&count)
	require.NoError(t, err)
	require.Equalf(t, 1, count, "Expected 1 schema with matching name, but counted %d", count)
}
