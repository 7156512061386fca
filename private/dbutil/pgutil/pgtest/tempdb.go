// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package pgtest

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"storj.io/catalogsync/private/dbutil/pgutil"
)

// TempDB is a pool limited to a freshly created schema.
type TempDB struct {
	*pgxpool.Pool
	// ConnStr connects to the temporary schema.
	ConnStr string
	// Schema is the name of the temporary schema.
	Schema string
}

// OpenUnique creates a uniquely named schema in the test database and
// returns a pool whose connections use it. The schema is dropped when the
// test finishes.
func OpenUnique(ctx context.Context, t testing.TB, prefix string) *TempDB {
	connstr := PickPostgres(t)

	// postgres limits identifiers to 63 bytes, the suffix needs 13
	if len(prefix) > 50 {
		prefix = prefix[:50]
	}
	schema := prefix + "/" + pgutil.CreateRandomTestingSchemaName(6)
	admin, err := pgx.Connect(ctx, connstr)
	require.NoError(t, err)

	_, err = admin.Exec(ctx, `CREATE SCHEMA `+pgutil.QuoteIdentifier(schema))
	require.NoError(t, err)

	schemaConnStr := pgutil.ConnstrWithSchema(connstr, schema)
	pool, err := pgxpool.New(ctx, schemaConnStr)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx := context.WithoutCancel(ctx)
		pool.Close()
		_, err := admin.Exec(ctx, `DROP SCHEMA `+pgutil.QuoteIdentifier(schema)+` CASCADE`)
		require.NoError(t, err)
		require.NoError(t, admin.Close(ctx))
	})

	return &TempDB{Pool: pool, ConnStr: schemaConnStr, Schema: schema}
}
