// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package catalogquery

import (
	"strconv"
	"strings"
)

// selectBuilder assembles a SELECT statement with numbered placeholders.
type selectBuilder struct {
	columns []string
	from    string
	joins   []string
	where   []string
	orderBy []string
	args    []any
}

// arg adds an argument and returns its placeholder.
func (b *selectBuilder) arg(value any) string {
	b.args = append(b.args, value)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *selectBuilder) statement() Statement {
	var sql strings.Builder
	sql.WriteString("SELECT ")
	sql.WriteString(strings.Join(b.columns, ", "))
	sql.WriteString(" FROM ")
	sql.WriteString(b.from)
	for _, join := range b.joins {
		sql.WriteString(" ")
		sql.WriteString(join)
	}
	if len(b.where) > 0 {
		sql.WriteString(" WHERE ")
		sql.WriteString(strings.Join(b.where, " AND "))
	}
	if len(b.orderBy) > 0 {
		sql.WriteString(" ORDER BY ")
		sql.WriteString(strings.Join(b.orderBy, ", "))
	}
	return Statement{
		SQL:  sql.String(),
		Args: b.args,
	}
}
