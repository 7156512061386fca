// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package main

import (
	"errors"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"
	"github.com/zeebo/errs"

	"storj.io/catalogsync/catalog/catalogquery"
	"storj.io/catalogsync/gpdb"
)

// Config defines the connection settings shared by every command.
type Config struct {
	RegistryDB string
	DebugAddr  string

	Host                string
	Port                int
	Database            string
	MaintenanceDatabase string
	InstanceState       string
	User                string
	Password            string

	GPDB gpdb.Config
}

// BindFlags adds the connection flags to the flagset.
func (config *Config) BindFlags(flag *flag.FlagSet) {
	flag.StringVar(&config.RegistryDB, "registry-db", "", "connection URL for the dataset registry")
	flag.StringVar(&config.DebugAddr, "debug.addr", "", "address to serve monkit statistics on (empty disables)")

	flag.StringVar(&config.Host, "host", "localhost", "host of the remote instance")
	flag.IntVar(&config.Port, "port", 5432, "port of the remote instance")
	flag.StringVar(&config.Database, "database", "", "database to introspect (defaults to the maintenance database)")
	flag.StringVar(&config.MaintenanceDatabase, "maintenance-db", "postgres", "maintenance database of the remote instance")
	flag.StringVar(&config.InstanceState, "instance-state", string(gpdb.StateOnline), "lifecycle state of the remote instance")
	flag.StringVar(&config.User, "user", "", "account used on the remote instance")
	flag.StringVar(&config.Password, "password", "", "password of the account (or CATALOGSYNC_PASSWORD)")

	config.GPDB.BindFlags(flag)
}

// VerifyFlags verifies whether the values provided are valid.
func (config *Config) VerifyFlags() error {
	var errlist errs.Group
	if config.RegistryDB == "" {
		errlist.Add(errors.New("flag '--registry-db' is not set"))
	}
	if config.User == "" {
		errlist.Add(errors.New("flag '--user' is not set"))
	}
	if config.Port <= 0 || config.Port > 65535 {
		errlist.Add(errs.New("flag '--port' is out of range: %d", config.Port))
	}
	switch gpdb.State(config.InstanceState) {
	case gpdb.StateOnline, gpdb.StateProvisioning:
	default:
		errlist.Add(errs.New("flag '--instance-state' is invalid: %q", config.InstanceState))
	}
	return errlist.Err()
}

// Instance returns the configured remote instance.
func (config *Config) Instance() gpdb.Instance {
	return gpdb.Instance{
		Name:                config.Host,
		Host:                config.Host,
		Port:                config.Port,
		MaintenanceDatabase: config.MaintenanceDatabase,
		State:               gpdb.State(config.InstanceState),
	}
}

// Account returns the configured account.
func (config *Config) Account() gpdb.Account {
	return gpdb.Account{Username: config.User, Password: config.Password}
}

// Schema parses an id:name schema reference.
func (config *Config) Schema(ref string) (gpdb.Schema, error) {
	id, name, ok := strings.Cut(ref, ":")
	if !ok || name == "" {
		return gpdb.Schema{}, errs.New("schema %q is not in the form id:name", ref)
	}
	schemaID, err := strconv.ParseInt(id, 10, 64)
	if err != nil || schemaID <= 0 {
		return gpdb.Schema{}, errs.New("schema %q has an invalid id", ref)
	}

	database := config.Database
	if database == "" {
		database = config.MaintenanceDatabase
	}
	return gpdb.Schema{
		ID:   schemaID,
		Name: name,
		Database: gpdb.Database{
			Name:     database,
			Instance: config.Instance(),
		},
	}, nil
}

// RefreshConfig defines the refresh command settings.
type RefreshConfig struct {
	Schemas     []string
	Filters     []string
	Sorts       []string
	MarkStale   bool
	Concurrency int
}

// BindFlags adds the refresh flags to the flagset.
func (config *RefreshConfig) BindFlags(flag *flag.FlagSet) {
	flag.StringArrayVar(&config.Schemas, "schema", nil, "schema to refresh as id:name, can be repeated")
	flag.StringArrayVar(&config.Filters, "filter", nil, "column=pattern restricting the relations, can be repeated")
	flag.StringArrayVar(&config.Sorts, "sort", nil, "column=direction ordering the relations, can be repeated")
	flag.BoolVar(&config.MarkStale, "mark-stale", false, "mark registry entries missing from the catalog as stale")
	flag.IntVar(&config.Concurrency, "concurrency", 4, "number of schemas refreshed at the same time")
}

// VerifyFlags verifies whether the values provided are valid.
func (config *RefreshConfig) VerifyFlags() error {
	var errlist errs.Group
	if len(config.Schemas) == 0 {
		errlist.Add(errors.New("flag '--schema' is not set"))
	}
	if config.Concurrency <= 0 {
		errlist.Add(errs.New("flag '--concurrency' must be positive: %d", config.Concurrency))
	}
	_, err := config.Options()
	errlist.Add(err)
	return errlist.Err()
}

// Options parses the filter and sort flags.
func (config *RefreshConfig) Options() (catalogquery.Options, error) {
	var opts catalogquery.Options
	for _, filter := range config.Filters {
		column, pattern, ok := strings.Cut(filter, "=")
		if !ok || column == "" {
			return catalogquery.Options{}, errs.New("filter %q is not in the form column=pattern", filter)
		}
		opts.Filters = append(opts.Filters, catalogquery.Filter{Column: column, Pattern: pattern})
	}
	for _, sort := range config.Sorts {
		column, direction, _ := strings.Cut(sort, "=")
		if column == "" {
			return catalogquery.Options{}, errs.New("sort %q is not in the form column=direction", sort)
		}
		opts.Sorts = append(opts.Sorts, catalogquery.Sort{Column: column, Direction: catalogquery.Direction(direction)})
	}
	return opts, nil
}

// StatsConfig defines the stats command settings.
type StatsConfig struct {
	Schema   string
	Relation string
	Verify   bool
}

// BindFlags adds the stats flags to the flagset.
func (config *StatsConfig) BindFlags(flag *flag.FlagSet) {
	flag.StringVar(&config.Schema, "schema", "", "schema of the relation as id:name")
	flag.StringVar(&config.Relation, "relation", "", "name of the table or view")
	flag.BoolVar(&config.Verify, "verify", false, "only check that the relation can be queried")
}

// VerifyFlags verifies whether the values provided are valid.
func (config *StatsConfig) VerifyFlags() error {
	var errlist errs.Group
	if config.Schema == "" {
		errlist.Add(errors.New("flag '--schema' is not set"))
	}
	if config.Relation == "" {
		errlist.Add(errors.New("flag '--relation' is not set"))
	}
	return errlist.Err()
}
