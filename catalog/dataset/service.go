// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package dataset keeps the dataset registry in sync with the catalogs of
// remote instances.
package dataset

import (
	"context"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"go.uber.org/zap"

	"storj.io/catalogsync/gpdb"
)

var mon = monkit.Package()

// Connector opens scoped connections to remote instances.
type Connector interface {
	WithConnection(ctx context.Context, instance gpdb.Instance, account gpdb.Account, databaseName string, fn func(context.Context, gpdb.Conn) error) error
}

var _ Connector = (*gpdb.Connector)(nil)

// Service reconciles the registry with remote catalogs and handles user
// edits of ChorusViews.
type Service struct {
	log       *zap.Logger
	db        DB
	connector Connector

	nowFn func() time.Time
}

// NewService creates a new dataset service.
func NewService(log *zap.Logger, db DB, connector Connector) *Service {
	return &Service{
		log:       log,
		db:        db,
		connector: connector,
		nowFn:     time.Now,
	}
}

// SetNow allows tests to have the Service act as if the current time is
// whatever they want.
func (service *Service) SetNow(nowFn func() time.Time) {
	service.nowFn = nowFn
}
