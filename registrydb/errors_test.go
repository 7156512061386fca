// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package registrydb

import (
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"storj.io/catalogsync/catalog/dataset"
)

func TestConvertError(t *testing.T) {
	require.NoError(t, convertError(nil))

	require.True(t, dataset.ErrNotFound.Has(convertError(pgx.ErrNoRows)))

	conflict := convertError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
	require.True(t, dataset.ErrConflict.Has(conflict))

	invalid := convertError(&pgconn.PgError{Code: pgerrcode.CharacterNotInRepertoire, Message: "invalid byte sequence for encoding \"UTF8\": 0x00"})
	require.True(t, dataset.ErrValidation.Has(invalid))
	require.False(t, dataset.ErrConflict.Has(invalid))

	other := convertError(&pgconn.PgError{Code: pgerrcode.AdminShutdown})
	require.True(t, Error.Has(other))
	require.False(t, dataset.ErrValidation.Has(other))
	require.False(t, dataset.ErrConflict.Has(other))

	plain := errors.New("connection reset")
	require.ErrorIs(t, convertError(plain), plain)
}
