// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package dataset_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zeebo/errs"
	"go.uber.org/zap/zaptest"

	"storj.io/catalogsync/catalog/catalogquery"
	"storj.io/catalogsync/catalog/dataset"
	"storj.io/catalogsync/catalog/dataset/datasettest"
	"storj.io/catalogsync/gpdb"
	"storj.io/catalogsync/gpdb/gpdbtest"
	"storj.io/common/testcontext"
)

func TestStatistics(t *testing.T) {
	ctx := testcontext.New(t)

	analyzed := time.Date(2026, 10, 17, 3, 0, 0, 0, time.UTC)
	metadata := func(name string, partitions int64) gpdb.Row {
		return gpdb.Row{
			"partition_count": partitions,
			"row_count":       float32(1500),
			"name":            name,
			"description":     "customer orders",
			"definition":      nil,
			"column_count":    int16(4),
			"last_analyzed":   analyzed,
			"disk_size":       "65536",
			"table_type":      "BASE_TABLE",
		}
	}

	dialer := &gpdbtest.Dialer{
		Handler: func(query string, args []any) ([]gpdb.Row, error) {
			switch {
			case strings.Contains(query, "AS partition_count"):
				name := args[1].(string)
				switch name {
				case "events":
					return []gpdb.Row{metadata(name, 12)}, nil
				case "orders":
					return []gpdb.Row{metadata(name, 0)}, nil
				default:
					return nil, nil
				}
			case strings.Contains(query, "sum(pg_total_relation_size"):
				require.Equal(t, []any{"events", "public"}, args)
				return []gpdb.Row{{"disk_size": "1048576"}}, nil
			default:
				return nil, errs.New("unexpected query %q", query)
			}
		},
	}
	service := newService(t, zaptest.NewLogger(t), datasettest.New(), dialer)

	table := func(name string) dataset.Dataset {
		return dataset.Dataset{ID: testrandUUID(t), SchemaID: testSchema.ID, Name: name, Kind: dataset.KindTable}
	}

	stats, err := service.Statistics(ctx, testAccount, testSchema, table("orders"))
	require.NoError(t, err)
	require.Equal(t, dataset.Statistics{
		Name:         "orders",
		TableType:    catalogquery.BaseTable,
		Description:  "customer orders",
		RowCount:     1500,
		ColumnCount:  4,
		DiskSize:     "65536",
		LastAnalyzed: &analyzed,
	}, stats)

	stats, err = service.Statistics(ctx, testAccount, testSchema, table("events"))
	require.NoError(t, err)
	require.Equal(t, int64(12), stats.PartitionCount)
	require.Equal(t, "1048576", stats.DiskSize)

	_, err = service.Statistics(ctx, testAccount, testSchema, table("missing"))
	require.True(t, dataset.ErrNotFound.Has(err))

	for _, conn := range dialer.Conns() {
		require.Equal(t, 1, conn.CloseCount())
	}
	require.Len(t, dialer.Conns()[1].Statements(), 2)
}

func TestStatistics_NotCatalogBacked(t *testing.T) {
	ctx := testcontext.New(t)

	dialer := &gpdbtest.Dialer{}
	service := newService(t, zaptest.NewLogger(t), datasettest.New(), dialer)

	_, err := service.Statistics(ctx, testAccount, testSchema, dataset.Dataset{
		SchemaID: testSchema.ID, Name: "my_view", Kind: dataset.KindChorusView,
	})
	require.True(t, dataset.ErrValidation.Has(err))

	_, err = service.Statistics(ctx, testAccount, testSchema, dataset.Dataset{
		SchemaID: testSchema.ID + 1, Name: "orders", Kind: dataset.KindTable,
	})
	require.True(t, dataset.ErrValidation.Has(err))

	require.Empty(t, dialer.Params())
}

func TestVerifyInSource(t *testing.T) {
	ctx := testcontext.New(t)

	dialer := &gpdbtest.Dialer{
		Handler: func(query string, args []any) ([]gpdb.Row, error) {
			if query == `EXPLAIN SELECT 1 FROM "public"."orders"` {
				return nil, nil
			}
			return nil, errs.New(`relation does not exist`)
		},
	}
	service := newService(t, zaptest.NewLogger(t), datasettest.New(), dialer)

	orders := dataset.Dataset{SchemaID: testSchema.ID, Name: "orders", Kind: dataset.KindTable}
	require.NoError(t, service.VerifyInSource(ctx, testAccount, testSchema, orders))

	dropped := dataset.Dataset{SchemaID: testSchema.ID, Name: `we"ird`, Kind: dataset.KindView}
	err := service.VerifyInSource(ctx, testAccount, testSchema, dropped)
	require.True(t, dataset.ErrNotFound.Has(err))

	statements := dialer.Conns()[1].Statements()
	require.Equal(t, `EXPLAIN SELECT 1 FROM "public"."we""ird"`, statements[0].Query)
}

func TestVerifyInSource_ConnectionFailure(t *testing.T) {
	ctx := testcontext.New(t)

	dialer := &gpdbtest.Dialer{Err: errs.New(`FATAL: password authentication failed for user "gpadmin"`)}
	service := newService(t, zaptest.NewLogger(t), datasettest.New(), dialer)

	err := service.VerifyInSource(ctx, testAccount, testSchema, dataset.Dataset{
		SchemaID: testSchema.ID, Name: "orders", Kind: dataset.KindTable,
	})
	require.True(t, gpdb.ErrAuthenticationFailed.Has(err))
	require.False(t, dataset.ErrNotFound.Has(err))
}

func TestVerifyInSource_FailuresOutsideStatement(t *testing.T) {
	ctx := testcontext.New(t)

	orders := dataset.Dataset{SchemaID: testSchema.ID, Name: "orders", Kind: dataset.KindTable}

	t.Run("close failure", func(t *testing.T) {
		closeErr := errs.New("connection reset by peer")
		dialer := &gpdbtest.Dialer{CloseErr: closeErr}
		service := newService(t, zaptest.NewLogger(t), datasettest.New(), dialer)

		err := service.VerifyInSource(ctx, testAccount, testSchema, orders)
		require.ErrorIs(t, err, closeErr)
		require.False(t, dataset.ErrNotFound.Has(err))
	})

	t.Run("statement timeout", func(t *testing.T) {
		log := zaptest.NewLogger(t)
		dialer := &gpdbtest.Dialer{
			Handler: func(query string, args []any) ([]gpdb.Row, error) {
				time.Sleep(50 * time.Millisecond)
				return nil, errs.New("canceling statement due to statement timeout")
			},
		}
		connector := gpdb.NewConnector(log, dialer, gpdb.Config{StatementTimeout: time.Millisecond})
		service := dataset.NewService(log, datasettest.New(), connector)

		err := service.VerifyInSource(ctx, testAccount, testSchema, orders)
		require.Error(t, err)
		require.False(t, dataset.ErrNotFound.Has(err))
		require.Contains(t, err.Error(), "statement timeout")
	})
}
