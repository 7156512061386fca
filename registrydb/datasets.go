// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package registrydb

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"storj.io/catalogsync/catalog/dataset"
	"storj.io/catalogsync/private/dbutil/pgerrcode"
	"storj.io/catalogsync/private/dbutil/pgutil"
	"storj.io/common/uuid"
)

// ensures that datasets implements dataset.DB.
var _ dataset.DB = (*datasets)(nil)

// datasets implements dataset.DB.
type datasets struct {
	db *DB
}

const datasetColumns = `id, schema_id, type, name, master_table, query, stale_at, deleted_at, created_at, updated_at`

// Get implements dataset.DB.
func (d *datasets) Get(ctx context.Context, id uuid.UUID) (_ dataset.Dataset, err error) {
	defer mon.Task()(&ctx)(&err)

	row := d.db.pool.QueryRow(ctx, `
		SELECT `+datasetColumns+` FROM datasets
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return scanDataset(row)
}

// FindByName implements dataset.DB.
func (d *datasets) FindByName(ctx context.Context, schemaID int64, kind dataset.Kind, name string) (_ dataset.Dataset, err error) {
	defer mon.Task()(&ctx)(&err)

	row := d.db.pool.QueryRow(ctx, `
		SELECT `+datasetColumns+` FROM datasets
		WHERE schema_id = $1 AND type = $2 AND name = $3 AND deleted_at IS NULL
	`, schemaID, string(kind), name)
	return scanDataset(row)
}

// ListBySchema implements dataset.DB.
func (d *datasets) ListBySchema(ctx context.Context, schemaID int64, opts dataset.ListOptions) (_ []dataset.Dataset, err error) {
	defer mon.Task()(&ctx)(&err)

	conditions := []string{"schema_id = $1", "deleted_at IS NULL"}
	args := []any{schemaID}
	arg := func(value any) string {
		args = append(args, value)
		return "$" + strconv.Itoa(len(args))
	}

	if opts.ExcludeStale {
		conditions = append(conditions, "stale_at IS NULL")
	}
	if len(opts.Kinds) > 0 {
		kinds := make([]string, 0, len(opts.Kinds))
		for _, kind := range opts.Kinds {
			kinds = append(kinds, string(kind))
		}
		conditions = append(conditions, "type = ANY("+arg(kinds)+")")
	}
	if opts.NameLike != "" {
		conditions = append(conditions, "name ILIKE "+arg(pgutil.ContainsPattern(opts.NameLike)))
	}

	rows, err := d.db.pool.Query(ctx, `
		SELECT `+datasetColumns+` FROM datasets
		WHERE `+strings.Join(conditions, " AND ")+`
		ORDER BY name COLLATE "C", type
	`, args...)
	if err != nil {
		return nil, convertError(err)
	}
	defer rows.Close()

	var list []dataset.Dataset
	for rows.Next() {
		item, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	return list, convertError(rows.Err())
}

// Sync implements dataset.DB.
func (d *datasets) Sync(ctx context.Context, write dataset.SyncWrite) (_ dataset.Dataset, err error) {
	defer mon.Task()(&ctx)(&err)

	item := write.Dataset()
	if write.Create() {
		row := d.db.pool.QueryRow(ctx, `
			INSERT INTO datasets (
				id, schema_id, type, name, master_table, stale_at, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8
			) RETURNING `+datasetColumns,
			item.ID, item.SchemaID, string(item.Kind), item.Name, item.MasterTable,
			item.StaleAt, item.CreatedAt, item.UpdatedAt)
		return scanDataset(row)
	}

	row := d.db.pool.QueryRow(ctx, `
		UPDATE datasets SET
			name = $2, master_table = $3, stale_at = $4, updated_at = $5
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+datasetColumns,
		item.ID, item.Name, item.MasterTable, item.StaleAt, item.UpdatedAt)
	return scanDataset(row)
}

// CreateChorusView implements dataset.DB.
func (d *datasets) CreateChorusView(ctx context.Context, view dataset.NewChorusView) (_ dataset.Dataset, err error) {
	defer mon.Task()(&ctx)(&err)

	row := d.db.pool.QueryRow(ctx, `
		INSERT INTO datasets (
			id, schema_id, type, name, query, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $6
		) RETURNING `+datasetColumns,
		view.ID, view.SchemaID, string(dataset.KindChorusView), view.Name, view.Query, view.CreatedAt)
	return scanDataset(row)
}

// UpdateChorusView implements dataset.DB.
func (d *datasets) UpdateChorusView(ctx context.Context, id uuid.UUID, edit dataset.ChorusViewEdit) (_ dataset.Dataset, err error) {
	defer mon.Task()(&ctx)(&err)

	row := d.db.pool.QueryRow(ctx, `
		UPDATE datasets SET
			name = COALESCE($3, name),
			query = COALESCE($4, query),
			updated_at = $5
		WHERE id = $1 AND type = $2 AND deleted_at IS NULL
		RETURNING `+datasetColumns,
		id, string(dataset.KindChorusView), edit.Name, edit.Query, edit.UpdatedAt)
	return scanDataset(row)
}

// Delete implements dataset.DB.
func (d *datasets) Delete(ctx context.Context, id uuid.UUID, now time.Time) (err error) {
	defer mon.Task()(&ctx)(&err)

	result, err := d.db.pool.Exec(ctx, `
		UPDATE datasets SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`, id, now)
	if err != nil {
		return convertError(err)
	}
	if result.RowsAffected() == 0 {
		return dataset.ErrNotFound.New("%s", id)
	}
	return nil
}

func scanDataset(row pgx.Row) (dataset.Dataset, error) {
	var item dataset.Dataset
	var kind string
	err := row.Scan(
		&item.ID, &item.SchemaID, &kind, &item.Name, &item.MasterTable, &item.Query,
		&item.StaleAt, &item.DeletedAt, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return dataset.Dataset{}, convertError(err)
	}

	item.Kind = dataset.Kind(kind)
	item.StaleAt = utcPtr(item.StaleAt)
	item.DeletedAt = utcPtr(item.DeletedAt)
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	return item, nil
}

// convertError reports missing rows, constraint violations and rejected
// values with the dataset error classes.
func convertError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return dataset.ErrNotFound.Wrap(err)
	case pgerrcode.IsConstraintViolation(err):
		return dataset.ErrConflict.Wrap(err)
	case pgerrcode.IsDataException(err):
		return dataset.ErrValidation.Wrap(err)
	default:
		return Error.Wrap(err)
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
