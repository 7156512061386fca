// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package dataset

import (
	"time"

	"storj.io/catalogsync/catalog/catalogquery"
	"storj.io/common/uuid"
)

// Kind is the type of a registry record.
type Kind string

const (
	// KindTable is a table discovered in the catalog.
	KindTable Kind = "GpdbTable"
	// KindView is a view discovered in the catalog.
	KindView Kind = "GpdbView"
	// KindChorusView is a virtual dataset defined only in the registry.
	KindChorusView Kind = "ChorusView"
)

// KindForCatalogCode returns the record kind for a catalog relkind code.
// Catalog rows never produce KindChorusView.
func KindForCatalogCode(code string) Kind {
	if code == catalogquery.KindTable {
		return KindTable
	}
	return KindView
}

// CatalogBacked returns whether records of the kind are maintained by refresh.
func (kind Kind) CatalogBacked() bool {
	return kind == KindTable || kind == KindView
}

// Dataset is a registry record.
type Dataset struct {
	ID       uuid.UUID
	SchemaID int64
	Name     string
	Kind     Kind

	// MasterTable is set for the parent of a partitioned table.
	MasterTable bool
	// Query is the definition of a ChorusView.
	Query string

	StaleAt   *time.Time
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Stale returns whether the backing catalog object was missing on the last refresh.
func (dataset Dataset) Stale() bool {
	return dataset.StaleAt != nil
}
