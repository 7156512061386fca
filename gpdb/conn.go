// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package gpdb

import (
	"context"
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"time"

	"storj.io/catalogsync/private/dbutil/pgutil"
)

// Conn is a connection to a single database on a remote instance.
type Conn interface {
	// SelectAll runs a query and returns all of its rows.
	SelectAll(ctx context.Context, query string, args ...any) ([]Row, error)
	// Exec runs a statement and discards its result.
	Exec(ctx context.Context, query string, args ...any) error
	// Close releases the connection.
	Close(ctx context.Context) error
}

// Dialer opens connections.
type Dialer interface {
	Connect(ctx context.Context, params pgutil.ConnParams) (Conn, error)
}

// Row is a single result row keyed by column name.
type Row map[string]any

// String returns the column as text. Missing and NULL columns are "".
func (row Row) String(column string) string {
	s, _ := row.NullString(column)
	return s
}

// NullString returns the column as text and whether it was non-NULL.
func (row Row) NullString(column string) (string, bool) {
	switch v := row.value(column).(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case []byte:
		return string(v), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return fmt.Sprint(v), true
	}
}

// Bool returns the column as a boolean. Text values 't' and 'true' are
// accepted as well.
func (row Row) Bool(column string) bool {
	switch v := row.value(column).(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

// Int64 returns the column as an integer.
func (row Row) Int64(column string) int64 {
	switch v := row.value(column).(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int16:
		return int64(v)
	case int:
		return int64(v)
	case float32:
		return int64(math.Round(float64(v)))
	case float64:
		return int64(math.Round(v))
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
		f, _ := strconv.ParseFloat(v, 64)
		return int64(math.Round(f))
	default:
		return 0
	}
}

// Time returns the column as a timestamp and whether it was non-NULL.
func (row Row) Time(column string) (time.Time, bool) {
	v, ok := row[column].(time.Time)
	return v, ok
}

// Float64 returns the column as a floating point number.
func (row Row) Float64(column string) float64 {
	switch v := row.value(column).(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	case int:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

// value returns the column with driver values, such as numeric, converted
// to their database/sql form.
func (row Row) value(column string) any {
	v := row[column]
	valuer, ok := v.(driver.Valuer)
	if !ok {
		return v
	}
	converted, err := valuer.Value()
	if err != nil {
		return nil
	}
	return converted
}
