// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package dataset

import (
	"context"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"storj.io/common/uuid"
)

// editValidate checks user edits of ChorusViews.
var editValidate *validator.Validate

func init() {
	editValidate = validator.New()
	_ = editValidate.RegisterValidation("datasetname", validateDatasetName)
	_ = editValidate.RegisterValidation("readonlyquery", validateReadOnlyQuery)
}

// validateDatasetName rejects names with surrounding whitespace or control
// characters.
func validateDatasetName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if strings.TrimSpace(name) != name {
		return false
	}
	return strings.IndexFunc(name, unicode.IsControl) < 0
}

// validateReadOnlyQuery accepts queries starting with SELECT or WITH.
func validateReadOnlyQuery(fl validator.FieldLevel) bool {
	fields := strings.Fields(fl.Field().String())
	if len(fields) == 0 {
		return false
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH":
		return true
	default:
		return false
	}
}

// CreateChorusView validates and stores a new ChorusView.
func (service *Service) CreateChorusView(ctx context.Context, view NewChorusView) (_ Dataset, err error) {
	defer mon.Task()(&ctx)(&err)

	if err := editValidate.Struct(view); err != nil {
		return Dataset{}, ErrValidation.Wrap(err)
	}

	view.ID, err = uuid.New()
	if err != nil {
		return Dataset{}, Error.Wrap(err)
	}
	view.CreatedAt = service.nowFn()

	created, err := service.db.CreateChorusView(ctx, view)
	if err != nil {
		return Dataset{}, err
	}
	service.log.Info("created chorus view",
		zap.Int64("schema", created.SchemaID),
		zap.String("name", created.Name),
		zap.Stringer("id", created.ID))
	return created, nil
}

// UpdateChorusView validates and applies an edit to a ChorusView.
func (service *Service) UpdateChorusView(ctx context.Context, id uuid.UUID, edit ChorusViewEdit) (_ Dataset, err error) {
	defer mon.Task()(&ctx)(&err)

	if err := editValidate.Struct(edit); err != nil {
		return Dataset{}, ErrValidation.Wrap(err)
	}

	existing, err := service.db.Get(ctx, id)
	if err != nil {
		return Dataset{}, err
	}
	if existing.Kind != KindChorusView {
		return Dataset{}, ErrValidation.New("%s %q cannot be edited", existing.Kind, existing.Name)
	}

	edit.UpdatedAt = service.nowFn()
	return service.db.UpdateChorusView(ctx, id, edit)
}

// Delete soft deletes a record. Deleted records are invisible to lookups
// and their names can be reused.
func (service *Service) Delete(ctx context.Context, id uuid.UUID) (err error) {
	defer mon.Task()(&ctx)(&err)

	return service.db.Delete(ctx, id, service.nowFn())
}

// Get returns a live record.
func (service *Service) Get(ctx context.Context, id uuid.UUID) (_ Dataset, err error) {
	defer mon.Task()(&ctx)(&err)

	return service.db.Get(ctx, id)
}

// List returns the live records of a schema.
func (service *Service) List(ctx context.Context, schemaID int64, opts ListOptions) (_ []Dataset, err error) {
	defer mon.Task()(&ctx)(&err)

	return service.db.ListBySchema(ctx, schemaID, opts)
}

// Count returns the number of live records of a schema that are not stale.
func (service *Service) Count(ctx context.Context, schemaID int64) (_ int, err error) {
	defer mon.Task()(&ctx)(&err)

	records, err := service.db.ListBySchema(ctx, schemaID, ListOptions{ExcludeStale: true})
	if err != nil {
		return 0, err
	}
	return len(records), nil
}
