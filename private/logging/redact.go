// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

// Package logging contains helpers for safely logging sensitive values.
package logging

import (
	"net/url"
)

// Redacted hides the password of a connection string URL so that it can be
// logged. Values that are not URLs are returned unchanged.
func Redacted(connstr string) string {
	u, err := url.Parse(connstr)
	if err != nil || u.User == nil {
		return connstr
	}
	if _, ok := u.User.Password(); !ok {
		return connstr
	}
	u.User = url.UserPassword(u.User.Username(), "xxxxx")
	return u.String()
}
