// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package dataset

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storj.io/catalogsync/catalog/catalogquery"
	"storj.io/catalogsync/gpdb"
	"storj.io/common/uuid"
)

// RefreshOptions configures Refresh.
type RefreshOptions struct {
	Filters []catalogquery.Filter
	Sorts   []catalogquery.Sort
	// MarkStale stamps the records missing from the catalog as stale.
	MarkStale bool
}

// Refresh reads the tables and views of schema from its catalog and
// updates the registry to match. It returns the records that are backed by
// a catalog row, in catalog order.
//
// Rows whose write conflicts with the registry or is rejected by it are
// skipped.
func (service *Service) Refresh(ctx context.Context, account gpdb.Account, schema gpdb.Schema, opts RefreshOptions) (_ []Dataset, err error) {
	defer mon.Task()(&ctx)(&err)

	stmt, err := catalogquery.New(schema.Name).TablesAndViews(catalogquery.Options{
		Filters: opts.Filters,
		Sorts:   opts.Sorts,
	})
	if err != nil {
		return nil, Error.Wrap(err)
	}

	var rows []gpdb.Row
	err = service.connector.WithConnection(ctx, schema.Database.Instance, account, schema.Database.Name,
		func(ctx context.Context, conn gpdb.Conn) (err error) {
			rows, err = conn.SelectAll(ctx, stmt.SQL, stmt.Args...)
			return err
		})
	if err != nil {
		return nil, err
	}

	now := service.nowFn()

	found := make(map[uuid.UUID]struct{}, len(rows))
	datasets := make([]Dataset, 0, len(rows))
	for _, row := range rows {
		dataset, err := service.reconcile(ctx, schema.ID, row, now)
		if err != nil {
			if skippableRow(err) {
				mon.Event("refresh_row_skipped")
				service.log.Warn("skipping catalog row",
					zap.Int64("schema", schema.ID),
					zap.String("name", row.String("name")),
					zap.Error(err))
				continue
			}
			return nil, err
		}

		found[dataset.ID] = struct{}{}
		datasets = append(datasets, dataset)
	}

	if opts.MarkStale {
		if err := service.markStale(ctx, schema.ID, found, now); err != nil {
			return nil, err
		}
	}

	return datasets, nil
}

// skippableRow returns whether a failure only concerns the row being written.
func skippableRow(err error) bool {
	return ErrConflict.Has(err) || ErrValidation.Has(err)
}

// reconcile brings the record of a single catalog row up to date.
func (service *Service) reconcile(ctx context.Context, schemaID int64, row gpdb.Row, now time.Time) (Dataset, error) {
	kind := KindForCatalogCode(row.String("type"))
	name := row.String("name")
	masterTable := row.Bool("master_table")

	existing, err := service.db.FindByName(ctx, schemaID, kind, name)
	if ErrNotFound.Has(err) {
		id, err := uuid.New()
		if err != nil {
			return Dataset{}, Error.Wrap(err)
		}
		return service.db.Sync(ctx, SyncWrite{
			create: true,
			dataset: Dataset{
				ID:          id,
				SchemaID:    schemaID,
				Name:        name,
				Kind:        kind,
				MasterTable: masterTable,
				CreatedAt:   now,
				UpdatedAt:   now,
			},
		})
	}
	if err != nil {
		return Dataset{}, err
	}

	if existing.Name == name && existing.MasterTable == masterTable && !existing.Stale() {
		return existing, nil
	}

	updated := existing
	updated.Name = name
	updated.MasterTable = masterTable
	updated.StaleAt = nil
	updated.UpdatedAt = now
	return service.db.Sync(ctx, SyncWrite{dataset: updated})
}

// markStale stamps every live catalog backed record of the schema that is
// not in found.
func (service *Service) markStale(ctx context.Context, schemaID int64, found map[uuid.UUID]struct{}, now time.Time) (err error) {
	defer mon.Task()(&ctx)(&err)

	records, err := service.db.ListBySchema(ctx, schemaID, ListOptions{ExcludeStale: true})
	if err != nil {
		return err
	}

	for _, record := range records {
		if _, ok := found[record.ID]; ok {
			continue
		}
		if !record.Kind.CatalogBacked() {
			continue
		}

		staleAt := now
		record.StaleAt = &staleAt
		record.UpdatedAt = now
		if _, err := service.db.Sync(ctx, SyncWrite{dataset: record}); err != nil {
			if ErrNotFound.Has(err) {
				// deleted since it was listed
				continue
			}
			return err
		}

		mon.Event("dataset_marked_stale")
		service.log.Debug("marked dataset stale",
			zap.Int64("schema", schemaID),
			zap.String("name", record.Name),
			zap.Stringer("id", record.ID))
	}
	return nil
}

// RefreshAll refreshes schemas with at most concurrency refreshes running
// at the same time. Each refresh uses its own connection. The result is
// keyed by schema id.
func (service *Service) RefreshAll(ctx context.Context, account gpdb.Account, schemas []gpdb.Schema, opts RefreshOptions, concurrency int) (_ map[int64][]Dataset, err error) {
	defer mon.Task()(&ctx)(&err)

	results := make([][]Dataset, len(schemas))

	group, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		group.SetLimit(concurrency)
	}
	for i, schema := range schemas {
		group.Go(func() error {
			datasets, err := service.Refresh(ctx, account, schema, opts)
			if err != nil {
				service.log.Error("refresh failed",
					zap.Int64("schema", schema.ID),
					zap.String("name", schema.Name),
					zap.Error(err))
				return err
			}
			results[i] = datasets
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	refreshed := make(map[int64][]Dataset, len(schemas))
	for i, schema := range schemas {
		refreshed[schema.ID] = results[i]
	}
	return refreshed, nil
}
