// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package dataset

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/zeebo/errs"

	"storj.io/common/uuid"
)

var (
	// Error is the default dataset errs class.
	Error = errs.Class("dataset")
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errs.Class("dataset not found")
	// ErrConflict is returned when a write violates a registry constraint.
	ErrConflict = errs.Class("dataset conflict")
	// ErrValidation is returned when a user edit or a stored value is rejected.
	ErrValidation = errs.Class("dataset validation")
)

// DB is the persisted dataset registry.
//
// architecture: Database
type DB interface {
	// Get returns a live record by id.
	Get(ctx context.Context, id uuid.UUID) (Dataset, error)
	// FindByName returns the live record of kind named name in the schema,
	// whether stale or not.
	FindByName(ctx context.Context, schemaID int64, kind Kind, name string) (Dataset, error)
	// ListBySchema returns the live records of the schema ordered by name.
	ListBySchema(ctx context.Context, schemaID int64, opts ListOptions) ([]Dataset, error)

	// Sync writes a catalog derived record.
	Sync(ctx context.Context, write SyncWrite) (Dataset, error)

	// CreateChorusView inserts a ChorusView.
	CreateChorusView(ctx context.Context, view NewChorusView) (Dataset, error)
	// UpdateChorusView changes a live ChorusView.
	UpdateChorusView(ctx context.Context, id uuid.UUID, edit ChorusViewEdit) (Dataset, error)

	// Delete marks a live record as deleted.
	Delete(ctx context.Context, id uuid.UUID, now time.Time) error
}

// ListOptions restricts ListBySchema.
type ListOptions struct {
	// ExcludeStale skips stale records.
	ExcludeStale bool
	// Kinds, when not empty, restricts the result to the listed kinds.
	Kinds []Kind
	// NameLike, when not empty, keeps records whose name contains it, ignoring case.
	NameLike string
}

// Matches returns whether dataset passes the options.
func (opts ListOptions) Matches(dataset Dataset) bool {
	if opts.ExcludeStale && dataset.Stale() {
		return false
	}
	if len(opts.Kinds) > 0 && !containsKind(opts.Kinds, dataset.Kind) {
		return false
	}
	if opts.NameLike != "" && !containsFold(dataset.Name, opts.NameLike) {
		return false
	}
	return true
}

// SyncWrite is a write of catalog derived attributes. It skips user edit
// validation and can only be created by the refresh of this package.
type SyncWrite struct {
	dataset Dataset
	create  bool
}

// Dataset returns the record to store.
func (write SyncWrite) Dataset() Dataset { return write.dataset }

// Create returns whether the record is new.
func (write SyncWrite) Create() bool { return write.create }

// NewChorusView is a user request to create a ChorusView.
type NewChorusView struct {
	ID       uuid.UUID
	SchemaID int64  `validate:"gt=0"`
	Name     string `validate:"required,max=256,datasetname"`
	Query    string `validate:"required,readonlyquery"`

	CreatedAt time.Time
}

// ChorusViewEdit is a user request to change a ChorusView. Nil fields are
// left unchanged.
type ChorusViewEdit struct {
	Name  *string `validate:"omitempty,min=1,max=256,datasetname"`
	Query *string `validate:"omitempty,min=1,readonlyquery"`

	UpdatedAt time.Time
}

func containsKind(kinds []Kind, kind Kind) bool {
	return slices.Contains(kinds, kind)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
