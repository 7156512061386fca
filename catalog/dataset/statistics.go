// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package dataset

import (
	"context"
	"time"

	"storj.io/catalogsync/catalog/catalogquery"
	"storj.io/catalogsync/gpdb"
	"storj.io/catalogsync/private/dbutil/pgutil"
)

// Statistics are catalog facts about a table or view. They are computed on
// demand and never stored in the registry.
type Statistics struct {
	Name           string
	TableType      catalogquery.TableType
	Description    string
	Definition     string
	RowCount       int64
	ColumnCount    int64
	PartitionCount int64
	// DiskSize is the size in bytes as text or catalogquery.UnknownDiskSize.
	DiskSize     string
	LastAnalyzed *time.Time
}

// Statistics reads the catalog statistics of dataset, which must belong to schema.
func (service *Service) Statistics(ctx context.Context, account gpdb.Account, schema gpdb.Schema, dataset Dataset) (_ Statistics, err error) {
	defer mon.Task()(&ctx)(&err)

	if err := checkCatalogBacked(schema, dataset); err != nil {
		return Statistics{}, err
	}

	query := catalogquery.New(schema.Name)

	var stats Statistics
	err = service.connector.WithConnection(ctx, schema.Database.Instance, account, schema.Database.Name,
		func(ctx context.Context, conn gpdb.Conn) error {
			metadata := query.MetadataForRelation(dataset.Name)
			rows, err := conn.SelectAll(ctx, metadata.SQL, metadata.Args...)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return ErrNotFound.New("%s", pgutil.QualifiedName(schema.Name, dataset.Name))
			}

			row := rows[0]
			stats = Statistics{
				Name:           row.String("name"),
				TableType:      catalogquery.TableType(row.String("table_type")),
				Description:    row.String("description"),
				Definition:     row.String("definition"),
				RowCount:       row.Int64("row_count"),
				ColumnCount:    row.Int64("column_count"),
				PartitionCount: row.Int64("partition_count"),
				DiskSize:       row.String("disk_size"),
			}
			if analyzed, ok := row.Time("last_analyzed"); ok {
				stats.LastAnalyzed = &analyzed
			}

			if stats.PartitionCount > 0 {
				partitions := query.PartitionDiskSize(dataset.Name)
				rows, err := conn.SelectAll(ctx, partitions.SQL, partitions.Args...)
				if err != nil {
					return err
				}
				if len(rows) > 0 {
					stats.DiskSize = rows[0].String("disk_size")
				}
			}
			return nil
		})
	if err != nil {
		return Statistics{}, err
	}
	return stats, nil
}

// VerifyInSource checks that dataset can still be queried in its schema.
// ErrNotFound is returned when the statement is rejected. Connection
// failures and timeouts are returned as they are.
func (service *Service) VerifyInSource(ctx context.Context, account gpdb.Account, schema gpdb.Schema, dataset Dataset) (err error) {
	defer mon.Task()(&ctx)(&err)

	if err := checkCatalogBacked(schema, dataset); err != nil {
		return err
	}

	relation := pgutil.QualifiedName(schema.Name, dataset.Name)
	return service.connector.WithConnection(ctx, schema.Database.Instance, account, schema.Database.Name,
		func(ctx context.Context, conn gpdb.Conn) error {
			err := conn.Exec(ctx, "EXPLAIN SELECT 1 FROM "+relation)
			if err != nil && ctx.Err() == nil {
				return ErrNotFound.New("%s: %v", relation, err)
			}
			return err
		})
}

// Lookup returns the live table or view named name in the schema. Tables
// are preferred when both exist.
func (service *Service) Lookup(ctx context.Context, schemaID int64, name string) (_ Dataset, err error) {
	defer mon.Task()(&ctx)(&err)

	for _, kind := range []Kind{KindTable, KindView} {
		dataset, err := service.db.FindByName(ctx, schemaID, kind, name)
		if ErrNotFound.Has(err) {
			continue
		}
		return dataset, err
	}
	return Dataset{}, ErrNotFound.New("%q in schema %d", name, schemaID)
}

func checkCatalogBacked(schema gpdb.Schema, dataset Dataset) error {
	if dataset.SchemaID != schema.ID {
		return ErrValidation.New("dataset %q belongs to schema %d, not %d", dataset.Name, dataset.SchemaID, schema.ID)
	}
	if !dataset.Kind.CatalogBacked() {
		return ErrValidation.New("%s %q has no catalog object", dataset.Kind, dataset.Name)
	}
	return nil
}
