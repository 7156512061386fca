// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package pgerrcode provides helpers for inspecting postgres error codes.
package pgerrcode

import (
	"errors"

	"github.com/jackc/pgerrcode"
)

// sqlStateError is implemented by errors that carry a SQLSTATE code,
// such as *pgconn.PgError.
type sqlStateError interface {
	SQLState() string
}

// FromError returns the 5-character SQLSTATE code of the first postgres
// error in the chain, or "" when there is none.
func FromError(err error) string {
	var stateErr sqlStateError
	if errors.As(err, &stateErr) {
		return stateErr.SQLState()
	}
	return ""
}

// IsConstraintViolation checks whether the error is an integrity
// constraint violation (class 23).
func IsConstraintViolation(err error) bool {
	return pgerrcode.IsIntegrityConstraintViolation(FromError(err))
}

// IsDataException checks whether a value was rejected by the server
// (class 22), such as an invalid byte sequence for the encoding.
func IsDataException(err error) bool {
	return pgerrcode.IsDataException(FromError(err))
}

// IsTooManyConnections checks whether the server refused the connection
// because it ran out of connection slots.
func IsTooManyConnections(err error) bool {
	return FromError(err) == pgerrcode.TooManyConnections
}

// IsRetryable checks whether the transaction failed in a way that running
// it again may succeed.
func IsRetryable(err error) bool {
	switch FromError(err) {
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return true
	default:
		return false
	}
}
