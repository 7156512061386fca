// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package gpdbtest contains scripted fakes of remote instance connections.
package gpdbtest

import (
	"context"
	"sync"

	"storj.io/catalogsync/gpdb"
	"storj.io/catalogsync/private/dbutil/pgutil"
)

// Handler answers a query sent over a fake connection.
type Handler func(query string, args []any) ([]gpdb.Row, error)

// Statement is a query received by a fake connection.
type Statement struct {
	Query string
	Args  []any
}

// Dialer implements gpdb.Dialer with scripted connections.
type Dialer struct {
	// Err, when set, is returned instead of opening a connection.
	Err error
	// Handler answers every query of every connection.
	Handler Handler
	// CloseErr is returned by Close of every connection.
	CloseErr error

	mu     sync.Mutex
	params []pgutil.ConnParams
	conns  []*Conn
}

// Connect implements gpdb.Dialer.
func (dialer *Dialer) Connect(ctx context.Context, params pgutil.ConnParams) (gpdb.Conn, error) {
	dialer.mu.Lock()
	defer dialer.mu.Unlock()

	dialer.params = append(dialer.params, params)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dialer.Err != nil {
		return nil, dialer.Err
	}

	conn := &Conn{handler: dialer.Handler, closeErr: dialer.CloseErr}
	dialer.conns = append(dialer.conns, conn)
	return conn, nil
}

// Params returns the parameters of every connection attempt.
func (dialer *Dialer) Params() []pgutil.ConnParams {
	dialer.mu.Lock()
	defer dialer.mu.Unlock()
	return append([]pgutil.ConnParams(nil), dialer.params...)
}

// Conns returns every connection that was opened.
func (dialer *Dialer) Conns() []*Conn {
	dialer.mu.Lock()
	defer dialer.mu.Unlock()
	return append([]*Conn(nil), dialer.conns...)
}

// Conn implements gpdb.Conn.
type Conn struct {
	handler  Handler
	closeErr error

	mu         sync.Mutex
	statements []Statement
	closed     int
}

// SelectAll implements gpdb.Conn.
func (conn *Conn) SelectAll(ctx context.Context, query string, args ...any) ([]gpdb.Row, error) {
	conn.mu.Lock()
	conn.statements = append(conn.statements, Statement{Query: query, Args: args})
	conn.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if conn.handler == nil {
		return nil, nil
	}
	return conn.handler(query, args)
}

// Exec implements gpdb.Conn.
func (conn *Conn) Exec(ctx context.Context, query string, args ...any) error {
	_, err := conn.SelectAll(ctx, query, args...)
	return err
}

// Close implements gpdb.Conn.
func (conn *Conn) Close(ctx context.Context) error {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	conn.closed++
	return conn.closeErr
}

// Statements returns the statements received so far.
func (conn *Conn) Statements() []Statement {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	return append([]Statement(nil), conn.statements...)
}

// CloseCount returns how many times Close was called.
func (conn *Conn) CloseCount() int {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	return conn.closed
}
