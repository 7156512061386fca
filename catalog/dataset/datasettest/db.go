// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package datasettest implements an in-memory dataset registry.
package datasettest

import (
	"context"
	"sort"
	"sync"
	"time"

	"storj.io/catalogsync/catalog/dataset"
	"storj.io/common/uuid"
)

var _ dataset.DB = (*DB)(nil)

// DB implements dataset.DB in memory. It enforces the same uniqueness of
// (schema, kind, name) among live records as the real registry.
type DB struct {
	// SyncHook, when set, is called before every Sync; a non-nil result is
	// returned instead of writing.
	SyncHook func(write dataset.SyncWrite) error

	mu        sync.Mutex
	items     map[uuid.UUID]dataset.Dataset
	callCount CallCount
}

// CallCount counts the calls made to DB.
type CallCount struct {
	Get              int
	FindByName       int
	ListBySchema     int
	Sync             int
	CreateChorusView int
	UpdateChorusView int
	Delete           int
}

// New creates an empty registry.
func New() *DB {
	return &DB{items: map[uuid.UUID]dataset.Dataset{}}
}

// CallCount returns the calls made so far.
func (db *DB) CallCount() CallCount {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.callCount
}

// ResetCallCount sets every counter to zero.
func (db *DB) ResetCallCount() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.callCount = CallCount{}
}

// All returns every record, deleted ones included, ordered by name.
func (db *DB) All() []dataset.Dataset {
	db.mu.Lock()
	defer db.mu.Unlock()

	all := make([]dataset.Dataset, 0, len(db.items))
	for _, item := range db.items {
		all = append(all, clone(item))
	}
	sortByName(all)
	return all
}

// Insert stores a record as is. It is meant for seeding test state.
func (db *DB) Insert(item dataset.Dataset) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.items[item.ID] = clone(item)
}

// Get implements dataset.DB.
func (db *DB) Get(ctx context.Context, id uuid.UUID) (dataset.Dataset, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.callCount.Get++

	if err := ctx.Err(); err != nil {
		return dataset.Dataset{}, err
	}

	item, ok := db.items[id]
	if !ok || item.DeletedAt != nil {
		return dataset.Dataset{}, dataset.ErrNotFound.New("%s", id)
	}
	return clone(item), nil
}

// FindByName implements dataset.DB.
func (db *DB) FindByName(ctx context.Context, schemaID int64, kind dataset.Kind, name string) (dataset.Dataset, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.callCount.FindByName++

	if err := ctx.Err(); err != nil {
		return dataset.Dataset{}, err
	}

	item, ok := db.findLive(schemaID, kind, name)
	if !ok {
		return dataset.Dataset{}, dataset.ErrNotFound.New("%s %q", kind, name)
	}
	return clone(item), nil
}

// ListBySchema implements dataset.DB.
func (db *DB) ListBySchema(ctx context.Context, schemaID int64, opts dataset.ListOptions) ([]dataset.Dataset, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.callCount.ListBySchema++

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var list []dataset.Dataset
	for _, item := range db.items {
		if item.SchemaID != schemaID || item.DeletedAt != nil || !opts.Matches(item) {
			continue
		}
		list = append(list, clone(item))
	}
	sortByName(list)
	return list, nil
}

// Sync implements dataset.DB.
func (db *DB) Sync(ctx context.Context, write dataset.SyncWrite) (dataset.Dataset, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.callCount.Sync++

	if err := ctx.Err(); err != nil {
		return dataset.Dataset{}, err
	}
	if db.SyncHook != nil {
		if err := db.SyncHook(write); err != nil {
			return dataset.Dataset{}, err
		}
	}

	item := write.Dataset()
	if write.Create() {
		return db.insert(item)
	}

	existing, ok := db.items[item.ID]
	if !ok || existing.DeletedAt != nil {
		return dataset.Dataset{}, dataset.ErrNotFound.New("%s", item.ID)
	}
	if other, ok := db.findLive(existing.SchemaID, existing.Kind, item.Name); ok && other.ID != item.ID {
		return dataset.Dataset{}, dataset.ErrConflict.New("%s %q already exists", existing.Kind, item.Name)
	}

	existing.Name = item.Name
	existing.MasterTable = item.MasterTable
	existing.StaleAt = cloneTime(item.StaleAt)
	existing.UpdatedAt = item.UpdatedAt
	db.items[existing.ID] = existing
	return clone(existing), nil
}

// CreateChorusView implements dataset.DB.
func (db *DB) CreateChorusView(ctx context.Context, view dataset.NewChorusView) (dataset.Dataset, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.callCount.CreateChorusView++

	if err := ctx.Err(); err != nil {
		return dataset.Dataset{}, err
	}

	return db.insert(dataset.Dataset{
		ID:        view.ID,
		SchemaID:  view.SchemaID,
		Name:      view.Name,
		Kind:      dataset.KindChorusView,
		Query:     view.Query,
		CreatedAt: view.CreatedAt,
		UpdatedAt: view.CreatedAt,
	})
}

// UpdateChorusView implements dataset.DB.
func (db *DB) UpdateChorusView(ctx context.Context, id uuid.UUID, edit dataset.ChorusViewEdit) (dataset.Dataset, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.callCount.UpdateChorusView++

	if err := ctx.Err(); err != nil {
		return dataset.Dataset{}, err
	}

	existing, ok := db.items[id]
	if !ok || existing.DeletedAt != nil || existing.Kind != dataset.KindChorusView {
		return dataset.Dataset{}, dataset.ErrNotFound.New("chorus view %s", id)
	}
	if edit.Name != nil {
		if other, ok := db.findLive(existing.SchemaID, existing.Kind, *edit.Name); ok && other.ID != id {
			return dataset.Dataset{}, dataset.ErrConflict.New("%s %q already exists", existing.Kind, *edit.Name)
		}
		existing.Name = *edit.Name
	}
	if edit.Query != nil {
		existing.Query = *edit.Query
	}
	existing.UpdatedAt = edit.UpdatedAt
	db.items[id] = existing
	return clone(existing), nil
}

// Delete implements dataset.DB.
func (db *DB) Delete(ctx context.Context, id uuid.UUID, now time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.callCount.Delete++

	if err := ctx.Err(); err != nil {
		return err
	}

	existing, ok := db.items[id]
	if !ok || existing.DeletedAt != nil {
		return dataset.ErrNotFound.New("%s", id)
	}
	existing.DeletedAt = &now
	existing.UpdatedAt = now
	db.items[id] = existing
	return nil
}

func (db *DB) insert(item dataset.Dataset) (dataset.Dataset, error) {
	if _, ok := db.items[item.ID]; ok {
		return dataset.Dataset{}, dataset.ErrConflict.New("id %s already exists", item.ID)
	}
	if _, ok := db.findLive(item.SchemaID, item.Kind, item.Name); ok {
		return dataset.Dataset{}, dataset.ErrConflict.New("%s %q already exists", item.Kind, item.Name)
	}
	db.items[item.ID] = clone(item)
	return clone(item), nil
}

func (db *DB) findLive(schemaID int64, kind dataset.Kind, name string) (dataset.Dataset, bool) {
	for _, item := range db.items {
		if item.SchemaID == schemaID && item.Kind == kind && item.Name == name && item.DeletedAt == nil {
			return item, true
		}
	}
	return dataset.Dataset{}, false
}

func clone(item dataset.Dataset) dataset.Dataset {
	item.StaleAt = cloneTime(item.StaleAt)
	item.DeletedAt = cloneTime(item.DeletedAt)
	return item
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func sortByName(items []dataset.Dataset) {
	sort.Slice(items, func(i, k int) bool {
		if items[i].Name == items[k].Name {
			return items[i].Kind < items[k].Kind
		}
		return items[i].Name < items[k].Name
	})
}
