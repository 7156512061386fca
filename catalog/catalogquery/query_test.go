// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package catalogquery_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/catalogsync/catalog/catalogquery"
)

const (
	kindRestriction     = `pg_catalog.pg_class.relkind IN ('r', 'v')`
	partitionJoin       = `LEFT OUTER JOIN pg_partition_rule ON pg_catalog.pg_class.oid = pg_partition_rule.parchildrelid AND pg_catalog.pg_class.relhassubclass = 'f'`
	partitionExclusion  = `(pg_catalog.pg_class.relhassubclass = 't' OR pg_partition_rule.parchildrelid IS NULL)`
	namespaceRestricion = `pg_catalog.pg_class.relnamespace IN (SELECT oid FROM pg_namespace WHERE nspname = $1)`
)

func TestRelationsInSchema(t *testing.T) {
	stmt := catalogquery.New("public").RelationsInSchema()
	require.Equal(t,
		`SELECT pg_catalog.pg_class.* FROM pg_catalog.pg_class WHERE `+namespaceRestricion,
		stmt.SQL)
	require.Equal(t, []any{"public"}, stmt.Args)
}

func TestTablesAndViews(t *testing.T) {
	query := catalogquery.New("public")

	stmt, err := query.TablesAndViews(catalogquery.Options{})
	require.NoError(t, err)
	require.Equal(t,
		`SELECT pg_catalog.pg_class.relkind AS type, pg_catalog.pg_class.relname AS name, pg_catalog.pg_class.relhassubclass AS master_table`+
			` FROM pg_catalog.pg_class `+partitionJoin+
			` WHERE `+namespaceRestricion+` AND `+kindRestriction+` AND `+partitionExclusion,
		stmt.SQL)
	require.Equal(t, []any{"public"}, stmt.Args)
}

func TestTablesAndViews_AlwaysRestricted(t *testing.T) {
	query := catalogquery.New("sales")

	for _, opts := range []catalogquery.Options{
		{},
		{Filters: []catalogquery.Filter{{Column: "relname", Pattern: "ord"}}},
		{Sorts: []catalogquery.Sort{{Column: "name", Direction: catalogquery.Descending}}},
		{
			Filters: []catalogquery.Filter{{Column: "name", Pattern: "a"}, {Column: "relkind", Pattern: "v"}},
			Sorts:   []catalogquery.Sort{{Column: "type"}, {Column: "name", Direction: "desc"}},
		},
	} {
		stmt, err := query.TablesAndViews(opts)
		require.NoError(t, err)
		require.Contains(t, stmt.SQL, kindRestriction)
		require.Contains(t, stmt.SQL, partitionJoin)
		require.Contains(t, stmt.SQL, partitionExclusion)
		require.Equal(t, "sales", stmt.Args[0])
		require.Len(t, stmt.Args, 1+len(opts.Filters))
	}
}

func TestTablesAndViews_FiltersAndSorts(t *testing.T) {
	stmt, err := catalogquery.New("public").TablesAndViews(catalogquery.Options{
		Filters: []catalogquery.Filter{
			{Column: "name", Pattern: "Ord"},
			{Column: "relkind", Pattern: "50%_"},
		},
		Sorts: []catalogquery.Sort{
			{Column: "type", Direction: "desc"},
			{Column: "name"},
		},
	})
	require.NoError(t, err)

	require.True(t, strings.HasSuffix(stmt.SQL,
		` AND pg_catalog.pg_class."relname" ILIKE $2`+
			` AND pg_catalog.pg_class."relkind" ILIKE $3`+
			` ORDER BY "type" DESC, "name" ASC`), stmt.SQL)
	require.Equal(t, []any{"public", "%Ord%", `%50\%\_%`}, stmt.Args)
}

func TestTablesAndViews_InvalidOptions(t *testing.T) {
	query := catalogquery.New("public")

	for _, opts := range []catalogquery.Options{
		{Filters: []catalogquery.Filter{{Column: "relname; DROP TABLE x", Pattern: "a"}}},
		{Filters: []catalogquery.Filter{{Column: "", Pattern: "a"}}},
		{Sorts: []catalogquery.Sort{{Column: `name"`}}},
		{Sorts: []catalogquery.Sort{{Column: "name", Direction: "sideways"}}},
	} {
		_, err := query.TablesAndViews(opts)
		require.Error(t, err)
		require.True(t, catalogquery.Error.Has(err))
	}
}

func TestMetadataForRelation(t *testing.T) {
	stmt := catalogquery.New("public").MetadataForRelation("orders")
	require.Equal(t, []any{"public", "orders"}, stmt.Args)

	for _, fragment := range []string{
		`(SELECT count(*) FROM pg_partitions WHERE pg_partitions.schemaname = $1 AND pg_partitions.tablename = $2) AS partition_count`,
		`pg_catalog.pg_class.reltuples AS row_count`,
		`pg_catalog.pg_class.relname AS name`,
		`obj_description(pg_catalog.pg_class.oid) AS description`,
		`pg_views.definition AS definition`,
		`pg_catalog.pg_class.relnatts AS column_count`,
		`pg_stat_last_operation.statime AS last_analyzed`,
		`CASE WHEN position('''' in pg_catalog.pg_class.relname) > 0 THEN 'unknown'` +
			` WHEN position(E'\\' in pg_catalog.pg_class.relname) > 0 THEN 'unknown'` +
			` ELSE CAST(pg_total_relation_size(pg_catalog.pg_class.oid) AS VARCHAR) END AS disk_size`,
		`CASE WHEN pg_catalog.pg_class.relhassubclass = 't' THEN 'MASTER_TABLE'` +
			` WHEN pg_catalog.pg_class.relkind = 'v' THEN 'VIEW'` +
			` WHEN pg_exttable.location IS NULL THEN 'BASE_TABLE'` +
			` WHEN position('gphdfs' in pg_exttable.location[1]) > 0 THEN 'HD_EXT_TABLE'` +
			` ELSE 'EXT_TABLE' END AS table_type`,
		`LEFT OUTER JOIN pg_views ON pg_views.viewname = pg_catalog.pg_class.relname AND pg_views.schemaname = $1`,
		`LEFT OUTER JOIN pg_stat_last_operation ON pg_stat_last_operation.objid = pg_catalog.pg_class.oid AND pg_stat_last_operation.staactionname = 'ANALYZE'`,
		`LEFT OUTER JOIN pg_exttable ON pg_exttable.reloid = pg_catalog.pg_class.oid`,
		`WHERE ` + namespaceRestricion + ` AND pg_catalog.pg_class.relname = $2`,
	} {
		require.Contains(t, stmt.SQL, fragment)
	}
}

func TestPartitionDiskSize(t *testing.T) {
	stmt := catalogquery.New("public").PartitionDiskSize("events")
	require.Equal(t,
		`SELECT CAST(sum(pg_total_relation_size(partitiontablename)) AS VARCHAR) AS disk_size FROM pg_partitions`+
			` WHERE pg_partitions.tablename = $1 AND pg_partitions.schemaname = $2`,
		stmt.SQL)
	require.Equal(t, []any{"events", "public"}, stmt.Args)
}

func TestQueriesDoNotShareState(t *testing.T) {
	public := catalogquery.New("public")
	sales := catalogquery.New("sales")

	first, err := public.TablesAndViews(catalogquery.Options{Filters: []catalogquery.Filter{{Column: "name", Pattern: "a"}}})
	require.NoError(t, err)
	second, err := public.TablesAndViews(catalogquery.Options{})
	require.NoError(t, err)
	third, err := sales.TablesAndViews(catalogquery.Options{})
	require.NoError(t, err)

	require.Len(t, first.Args, 2)
	require.Len(t, second.Args, 1)
	require.Equal(t, second.SQL, third.SQL)
	require.Equal(t, []any{"sales"}, third.Args)
	require.Equal(t, "public", public.SchemaName())
}
