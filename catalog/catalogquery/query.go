// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package catalogquery builds introspection queries against the system
// catalog of a remote analytical database. It never executes them.
package catalogquery

import (
	"regexp"
	"strings"

	"github.com/zeebo/errs"

	"storj.io/catalogsync/private/dbutil/pgutil"
)

// Error is the default catalogquery errs class.
var Error = errs.Class("catalogquery")

// Catalog relations used by the queries.
const (
	schemas       = "pg_namespace"
	relations     = "pg_catalog.pg_class"
	partitions    = "pg_partitions"
	partitionRule = "pg_partition_rule"
	views         = "pg_views"
	extTables     = "pg_exttable"
	lastOperation = "pg_stat_last_operation"
)

// Relation kinds as stored in relkind.
const (
	KindTable = "r"
	KindView  = "v"
)

// Statement is a query together with its positional arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Direction is a sort direction.
type Direction string

const (
	// Ascending sorts from low to high.
	Ascending Direction = "ASC"
	// Descending sorts from high to low.
	Descending Direction = "DESC"
)

// Filter restricts results to relations whose Column contains Pattern,
// ignoring case.
type Filter struct {
	Column  string
	Pattern string
}

// Sort orders results by Column.
type Sort struct {
	Column    string
	Direction Direction
}

// Options configures TablesAndViews.
type Options struct {
	Filters []Filter
	Sorts   []Sort
}

// columnAliases maps projected names onto the catalog columns they come from.
var columnAliases = map[string]string{
	"type":         "relkind",
	"name":         "relname",
	"master_table": "relhassubclass",
}

var rxIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Query builds catalog queries for a single schema.
type Query struct {
	schemaName string
}

// New returns a query builder for schemaName.
func New(schemaName string) Query {
	return Query{schemaName: schemaName}
}

// SchemaName returns the schema the queries are restricted to.
func (q Query) SchemaName() string { return q.schemaName }

// RelationsInSchema returns every relation of the schema.
func (q Query) RelationsInSchema() Statement {
	b := q.relationsInSchema()
	b.columns = []string{relations + ".*"}
	return b.statement()
}

// TablesAndViews returns the tables and views of the schema, excluding
// partition children. Every row has the columns type, name and master_table.
func (q Query) TablesAndViews(opts Options) (Statement, error) {
	b := q.relationsInSchema()
	b.columns = []string{
		relations + ".relkind AS type",
		relations + ".relname AS name",
		relations + ".relhassubclass AS master_table",
	}
	b.joins = append(b.joins,
		"LEFT OUTER JOIN "+partitionRule+
			" ON "+relations+".oid = "+partitionRule+".parchildrelid"+
			" AND "+relations+".relhassubclass = 'f'")
	b.where = append(b.where,
		relations+".relkind IN ("+literal(KindTable)+", "+literal(KindView)+")",
		"("+relations+".relhassubclass = 't' OR "+partitionRule+".parchildrelid IS NULL)")

	for _, filter := range opts.Filters {
		column, err := catalogColumn(filter.Column)
		if err != nil {
			return Statement{}, err
		}
		b.where = append(b.where, relations+"."+column+" ILIKE "+b.arg(pgutil.ContainsPattern(filter.Pattern)))
	}

	for _, sort := range opts.Sorts {
		if !rxIdentifier.MatchString(sort.Column) {
			return Statement{}, Error.New("invalid sort column %q", sort.Column)
		}
		direction, err := normalizeDirection(sort.Direction)
		if err != nil {
			return Statement{}, err
		}
		b.orderBy = append(b.orderBy, pgutil.QuoteIdentifier(sort.Column)+" "+string(direction))
	}

	return b.statement(), nil
}

// MetadataForRelation returns a single row describing relationName with the
// columns partition_count, row_count, name, description, definition,
// column_count, last_analyzed, disk_size and table_type.
func (q Query) MetadataForRelation(relationName string) Statement {
	b := q.relationsInSchema()
	relationPlaceholder := b.arg(relationName)

	b.where = append(b.where, relations+".relname = "+relationPlaceholder)
	b.joins = append(b.joins,
		"LEFT OUTER JOIN "+views+
			" ON "+views+".viewname = "+relations+".relname"+
			" AND "+views+".schemaname = "+schemaArg,
		"LEFT OUTER JOIN "+lastOperation+
			" ON "+lastOperation+".objid = "+relations+".oid"+
			" AND "+lastOperation+".staactionname = 'ANALYZE'",
		"LEFT OUTER JOIN "+extTables+
			" ON "+extTables+".reloid = "+relations+".oid")
	b.columns = []string{
		"(SELECT count(*) FROM " + partitions +
			" WHERE " + partitions + ".schemaname = " + schemaArg +
			" AND " + partitions + ".tablename = " + relationPlaceholder + ") AS partition_count",
		relations + ".reltuples AS row_count",
		relations + ".relname AS name",
		"obj_description(" + relations + ".oid) AS description",
		views + ".definition AS definition",
		relations + ".relnatts AS column_count",
		lastOperation + ".statime AS last_analyzed",
		diskSizeExpr() + " AS disk_size",
		tableTypeExpr() + " AS table_type",
	}
	return b.statement()
}

// PartitionDiskSize returns the total size of every partition of
// relationName as text in the disk_size column.
func (q Query) PartitionDiskSize(relationName string) Statement {
	b := &selectBuilder{
		columns: []string{"CAST(sum(pg_total_relation_size(partitiontablename)) AS VARCHAR) AS disk_size"},
		from:    partitions,
	}
	b.where = append(b.where,
		partitions+".tablename = "+b.arg(relationName),
		partitions+".schemaname = "+b.arg(q.schemaName))
	return b.statement()
}

// schemaArg is the placeholder of the schema name in every query started by
// relationsInSchema.
const schemaArg = "$1"

// relationsInSchema starts a query over the relations of the schema.
func (q Query) relationsInSchema() *selectBuilder {
	b := &selectBuilder{from: relations}
	b.where = append(b.where,
		relations+".relnamespace IN (SELECT oid FROM "+schemas+" WHERE nspname = "+b.arg(q.schemaName)+")")
	return b
}

func catalogColumn(column string) (string, error) {
	if alias, ok := columnAliases[column]; ok {
		column = alias
	}
	if !rxIdentifier.MatchString(column) {
		return "", Error.New("invalid filter column %q", column)
	}
	return pgutil.QuoteIdentifier(column), nil
}

func normalizeDirection(direction Direction) (Direction, error) {
	switch Direction(strings.ToUpper(string(direction))) {
	case "", Ascending:
		return Ascending, nil
	case Descending:
		return Descending, nil
	default:
		return "", Error.New("invalid sort direction %q", direction)
	}
}
