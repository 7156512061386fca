// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

// Package pgutil contains helpers for building postgres connection
// strings and query text.
package pgutil

import (
	"net"
	"net/url"
	"strconv"

	"github.com/zeebo/errs"
)

// Error is the default pgutil errs class.
var Error = errs.Class("pgutil")

// ConnParams describes how to reach a single postgres database.
type ConnParams struct {
	Host            string
	Port            int
	Database        string
	Username        string
	Password        string
	ApplicationName string
	SSLMode         string
}

// ConnString formats the parameters as a postgres:// URL.
func ConnString(params ConnParams) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(params.Host, strconv.Itoa(params.Port)),
		Path:   "/" + params.Database,
	}
	if params.Username != "" {
		if params.Password != "" {
			u.User = url.UserPassword(params.Username, params.Password)
		} else {
			u.User = url.User(params.Username)
		}
	}

	query := url.Values{}
	if params.ApplicationName != "" {
		query.Set("application_name", params.ApplicationName)
	}
	if params.SSLMode != "" {
		query.Set("sslmode", params.SSLMode)
	}
	u.RawQuery = query.Encode()

	return u.String()
}

// CheckApplicationName ensures that the connection string contains an
// application name. An application name already present is kept as is.
func CheckApplicationName(s string, app string) (string, error) {
	u, err := url.Parse(s)
	if err != nil {
		return "", Error.New("unable to parse connection string: %w", err)
	}

	query := u.Query()
	if query.Get("application_name") != "" {
		return s, nil
	}
	query.Set("application_name", app)
	u.RawQuery = query.Encode()

	return u.String(), nil
}
