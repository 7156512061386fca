// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package gpdb

import (
	"math/big"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"
)

func TestRow(t *testing.T) {
	analyzed := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	row := Row{
		"type":          "r",
		"name":          "orders",
		"definition":    nil,
		"master_table":  true,
		"legacy_flag":   "t",
		"row_count":     float32(1234.4),
		"column_count":  int16(7),
		"count":         int64(3),
		"disk_size":     "8192",
		"last_analyzed": analyzed,
	}

	require.Equal(t, "r", row.String("type"))
	require.Equal(t, "orders", row.String("name"))

	definition, ok := row.NullString("definition")
	require.False(t, ok)
	require.Equal(t, "", definition)
	_, ok = row.NullString("missing")
	require.False(t, ok)

	require.True(t, row.Bool("master_table"))
	require.True(t, row.Bool("legacy_flag"))
	require.False(t, row.Bool("missing"))

	require.Equal(t, int64(1234), row.Int64("row_count"))
	require.Equal(t, int64(7), row.Int64("column_count"))
	require.Equal(t, int64(3), row.Int64("count"))
	require.Equal(t, int64(8192), row.Int64("disk_size"))

	at, ok := row.Time("last_analyzed")
	require.True(t, ok)
	require.Equal(t, analyzed, at)
	_, ok = row.Time("name")
	require.False(t, ok)
}

func TestRow_Numeric(t *testing.T) {
	row := Row{
		"disk_size":    pgtype.Numeric{Int: big.NewInt(1048576), Valid: true},
		"ratio":        pgtype.Numeric{Int: big.NewInt(15), Exp: -1, Valid: true},
		"missing_size": pgtype.Numeric{},
		"attnum":       int32(65),
	}

	require.Equal(t, "1048576", row.String("disk_size"))
	require.Equal(t, int64(1048576), row.Int64("disk_size"))
	require.Equal(t, float64(1048576), row.Float64("disk_size"))

	require.Equal(t, "1.5", row.String("ratio"))
	require.Equal(t, 1.5, row.Float64("ratio"))
	require.Equal(t, int64(2), row.Int64("ratio"))

	_, ok := row.NullString("missing_size")
	require.False(t, ok)
	require.Zero(t, row.Int64("missing_size"))

	require.Equal(t, "65", row.String("attnum"))
	require.Equal(t, int64(65), row.Int64("attnum"))
}

func TestCharText(t *testing.T) {
	require.Equal(t, "r", charText('r'))
	require.Equal(t, "v", charText(byte('v')))
	require.Nil(t, charText(nil))
	require.Equal(t, "x", charText("x"))
}
