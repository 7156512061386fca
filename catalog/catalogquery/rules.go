// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package catalogquery

import (
	"strconv"
	"strings"
)

// UnknownDiskSize is reported for relations whose size cannot be computed
// safely from their name.
const UnknownDiskSize = "unknown"

// TableType classifies a relation.
type TableType string

const (
	// MasterTable is the parent of a partitioned table.
	MasterTable TableType = "MASTER_TABLE"
	// View is a view.
	View TableType = "VIEW"
	// BaseTable is an ordinary table.
	BaseTable TableType = "BASE_TABLE"
	// HDExtTable is an external table backed by gphdfs.
	HDExtTable TableType = "HD_EXT_TABLE"
	// ExtTable is any other external table.
	ExtTable TableType = "EXT_TABLE"
)

// Relation contains the catalog facts that table type classification uses.
type Relation struct {
	Kind        string
	HasSubclass bool
	// ExternalLocations is empty when the relation has no external table entry.
	ExternalLocations []string
}

// tableTypeRules is evaluated in order, the first matching rule wins.
var tableTypeRules = []struct {
	condition string
	matches   func(Relation) bool
	tableType TableType
}{
	{
		condition: relations + ".relhassubclass = 't'",
		matches:   func(r Relation) bool { return r.HasSubclass },
		tableType: MasterTable,
	},
	{
		condition: relations + ".relkind = 'v'",
		matches:   func(r Relation) bool { return r.Kind == KindView },
		tableType: View,
	},
	{
		condition: extTables + ".location IS NULL",
		matches:   func(r Relation) bool { return len(r.ExternalLocations) == 0 },
		tableType: BaseTable,
	},
	{
		condition: "position('gphdfs' in " + extTables + ".location[1]) > 0",
		matches:   func(r Relation) bool { return strings.Contains(r.ExternalLocations[0], "gphdfs") },
		tableType: HDExtTable,
	},
}

// tableTypeFallback is used when no rule matches.
const tableTypeFallback = ExtTable

// ClassifyTableType returns the table type of a relation.
func ClassifyTableType(relation Relation) TableType {
	for _, rule := range tableTypeRules {
		if rule.matches(relation) {
			return rule.tableType
		}
	}
	return tableTypeFallback
}

// unsizedNameMarkers are characters which make a relation name unusable
// as a pg_total_relation_size argument.
var unsizedNameMarkers = []string{`'`, `\`}

// ClassifyDiskSize returns the reported disk size of a relation.
func ClassifyDiskSize(relationName string, size int64) string {
	for _, marker := range unsizedNameMarkers {
		if strings.Contains(relationName, marker) {
			return UnknownDiskSize
		}
	}
	return strconv.FormatInt(size, 10)
}

// tableTypeExpr is the SQL form of ClassifyTableType.
func tableTypeExpr() string {
	var b strings.Builder
	b.WriteString("CASE")
	for _, rule := range tableTypeRules {
		b.WriteString(" WHEN " + rule.condition + " THEN " + literal(string(rule.tableType)))
	}
	b.WriteString(" ELSE " + literal(string(tableTypeFallback)) + " END")
	return b.String()
}

// diskSizeExpr is the SQL form of ClassifyDiskSize.
func diskSizeExpr() string {
	var b strings.Builder
	b.WriteString("CASE")
	for _, marker := range unsizedNameMarkers {
		b.WriteString(" WHEN position(" + literal(marker) + " in " + relations + ".relname) > 0 THEN " + literal(UnknownDiskSize))
	}
	b.WriteString(" ELSE CAST(pg_total_relation_size(" + relations + ".oid) AS VARCHAR) END")
	return b.String()
}

// literal quotes s as a SQL string constant. Escape string syntax is used
// when s contains a backslash, so the result does not depend on
// standard_conforming_strings.
func literal(s string) string {
	if strings.Contains(s, `\`) {
		return `E'` + strings.NewReplacer(`\`, `\\`, `'`, `''`).Replace(s) + `'`
	}
	return `'` + strings.ReplaceAll(s, `'`, `''`) + `'`
}
