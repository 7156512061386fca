// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package pgutil

import (
	"crypto/rand"
	"encoding/hex"
	"net/url"
	"strings"
)

// CreateRandomTestingSchemaName creates a random schema name string.
func CreateRandomTestingSchemaName(n int) string {
	data := make([]byte, n)
	_, _ = rand.Read(data)
	return hex.EncodeToString(data)
}

// ConnstrWithSchema adds schema to a connection string so that every
// connection uses it as search_path.
func ConnstrWithSchema(connstr, schema string) string {
	if strings.Contains(connstr, "?") {
		connstr += "&"
	} else {
		connstr += "?"
	}
	return connstr + "search_path=" + url.QueryEscape(QuoteIdentifier(schema))
}

// ParseSchemaFromConnstr returns the name of the schema parsed from the
// connection string if one is provided.
func ParseSchemaFromConnstr(connstr string) (string, error) {
	u, err := url.Parse(connstr)
	if err != nil {
		return "", Error.New("unable to parse connection string: %w", err)
	}
	schema := u.Query().Get("search_path")
	if schema == "" {
		return "", nil
	}
	return UnquoteIdentifier(schema), nil
}

// UnquoteIdentifier removes the quotes added by QuoteIdentifier.
func UnquoteIdentifier(ident string) string {
	if len(ident) >= 2 && strings.HasPrefix(ident, `"`) && strings.HasSuffix(ident, `"`) {
		return strings.ReplaceAll(ident[1:len(ident)-1], `""`, `"`)
	}
	return ident
}
