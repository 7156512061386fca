// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package gpdb

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"storj.io/catalogsync/private/dbutil/pgutil"
)

// PGXDialer opens connections using pgx.
type PGXDialer struct{}

// Connect implements Dialer.
func (PGXDialer) Connect(ctx context.Context, params pgutil.ConnParams) (_ Conn, err error) {
	defer mon.Task()(&ctx)(&err)

	config, err := pgx.ParseConfig(pgutil.ConnString(params))
	if err != nil {
		return nil, err
	}

	conn, err := pgx.ConnectConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	return &pgxConn{conn: conn}, nil
}

// pgxConn implements Conn on top of a single pgx connection.
type pgxConn struct {
	conn *pgx.Conn
}

func (c *pgxConn) SelectAll(ctx context.Context, query string, args ...any) (_ []Row, err error) {
	defer mon.Task()(&ctx)(&err)

	rows, err := c.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()

	var result []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}

		row := make(Row, len(fields))
		for i, field := range fields {
			if field.DataTypeOID == pgtype.QCharOID {
				row[field.Name] = charText(values[i])
				continue
			}
			row[field.Name] = values[i]
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (c *pgxConn) Exec(ctx context.Context, query string, args ...any) (err error) {
	defer mon.Task()(&ctx)(&err)

	_, err = c.conn.Exec(ctx, query, args...)
	return err
}

func (c *pgxConn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

// charText converts a "char" value, such as relkind, to text.
func charText(v any) any {
	switch c := v.(type) {
	case rune:
		return string(c)
	case byte:
		return string(rune(c))
	default:
		return v
	}
}
