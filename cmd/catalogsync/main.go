// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/spf13/cobra"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/catalogsync/catalog/dataset"
	"storj.io/catalogsync/gpdb"
	"storj.io/catalogsync/private/logging"
	"storj.io/catalogsync/private/process"
	"storj.io/catalogsync/registrydb"
)

var mon = monkit.Package()

var (
	rootCmd = &cobra.Command{
		Use:   "catalogsync",
		Short: "keeps a dataset registry in sync with remote database catalogs",
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "create or upgrade the registry schema",
		Args:  cobra.NoArgs,
		RunE:  cmdMigrate,
	}

	refreshCmd = &cobra.Command{
		Use:   "refresh",
		Short: "refresh the registry from the catalog of one or more schemas",
		Args:  cobra.NoArgs,
		RunE:  cmdRefresh,
	}

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "print catalog statistics of a table or view",
		Args:  cobra.NoArgs,
		RunE:  cmdStats,
	}

	config        Config
	refreshConfig RefreshConfig
	statsConfig   StatsConfig
)

func init() {
	rootCmd.AddCommand(migrateCmd, refreshCmd, statsCmd)

	config.BindFlags(rootCmd.PersistentFlags())
	refreshConfig.BindFlags(refreshCmd.Flags())
	statsConfig.BindFlags(statsCmd.Flags())
}

func main() {
	process.Exec(rootCmd)
}

// setup verifies the shared flags and opens the registry.
func setup(cmd *cobra.Command) (ctx context.Context, log *zap.Logger, db *registrydb.DB, cleanup func() error, err error) {
	if err := config.VerifyFlags(); err != nil {
		return nil, nil, nil, nil, err
	}

	log, err = process.NewLogger()
	if err != nil {
		return nil, nil, nil, nil, err
	}

	ctx, cancel := process.Ctx(cmd)

	if err := process.InitDebug(ctx, log.Named("debug"), config.DebugAddr); err != nil {
		log.Error("failed to start debug endpoints", zap.Error(err))
	}

	db, err = registrydb.Open(ctx, log.Named("registry"), config.RegistryDB)
	if err != nil {
		cancel()
		return nil, nil, nil, nil, errs.New("unable to connect %q: %w", logging.Redacted(config.RegistryDB), err)
	}

	cleanup = func() error {
		defer cancel()
		return errs.Combine(db.Close(), log.Sync())
	}
	return ctx, log, db, cleanup, nil
}

func newService(log *zap.Logger, db *registrydb.DB) *dataset.Service {
	connector := gpdb.NewConnector(log.Named("gpdb"), gpdb.PGXDialer{}, config.GPDB)
	return dataset.NewService(log.Named("dataset"), db.Datasets(), connector)
}

func cmdMigrate(cmd *cobra.Command, args []string) (err error) {
	ctx, log, db, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errs.Combine(err, cleanup()) }()

	defer mon.Task()(&ctx)(&err)

	log.Info("migrating registry", zap.String("registry", logging.Redacted(config.RegistryDB)))
	return db.MigrateToLatest(ctx)
}

func cmdRefresh(cmd *cobra.Command, args []string) (err error) {
	if err := refreshConfig.VerifyFlags(); err != nil {
		return err
	}

	ctx, log, db, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errs.Combine(err, cleanup()) }()

	if err := db.CheckVersion(ctx); err != nil {
		return errs.New("registry is not migrated, run 'catalogsync migrate': %w", err)
	}

	return Refresh(ctx, log, newService(log, db), config, refreshConfig, cmd.OutOrStdout())
}

func cmdStats(cmd *cobra.Command, args []string) (err error) {
	if err := statsConfig.VerifyFlags(); err != nil {
		return err
	}

	ctx, log, db, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errs.Combine(err, cleanup()) }()

	return Stats(ctx, newService(log, db), config, statsConfig, cmd.OutOrStdout())
}

// Refresh refreshes the configured schemas and prints the result.
func Refresh(ctx context.Context, log *zap.Logger, service *dataset.Service, config Config, refreshConfig RefreshConfig, out io.Writer) (err error) {
	defer mon.Task()(&ctx)(&err)

	opts, err := refreshConfig.Options()
	if err != nil {
		return err
	}

	var schemas []gpdb.Schema
	for _, ref := range refreshConfig.Schemas {
		schema, err := config.Schema(ref)
		if err != nil {
			return err
		}
		schemas = append(schemas, schema)
	}

	refreshed, err := service.RefreshAll(ctx, config.Account(), schemas, dataset.RefreshOptions{
		Filters:   opts.Filters,
		Sorts:     opts.Sorts,
		MarkStale: refreshConfig.MarkStale,
	}, refreshConfig.Concurrency)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SCHEMA\tTYPE\tNAME\tMASTER\tID")
	for _, schema := range schemas {
		for _, d := range refreshed[schema.ID] {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", schema.Name, d.Kind, d.Name, d.MasterTable, d.ID)
		}
		log.Info("refreshed schema", zap.String("schema", schema.Name), zap.Int("datasets", len(refreshed[schema.ID])))
	}
	return w.Flush()
}

// Stats prints the catalog statistics of the configured relation.
func Stats(ctx context.Context, service *dataset.Service, config Config, statsConfig StatsConfig, out io.Writer) (err error) {
	defer mon.Task()(&ctx)(&err)

	schema, err := config.Schema(statsConfig.Schema)
	if err != nil {
		return err
	}

	d, err := service.Lookup(ctx, schema.ID, statsConfig.Relation)
	if err != nil {
		return err
	}

	if statsConfig.Verify {
		if err := service.VerifyInSource(ctx, config.Account(), schema, d); err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "%s %q is present in %q\n", d.Kind, d.Name, schema.Name)
		return err
	}

	stats, err := service.Statistics(ctx, config.Account(), schema, d)
	if err != nil {
		return err
	}

	fields := map[string]string{
		"name":            stats.Name,
		"table_type":      string(stats.TableType),
		"description":     stats.Description,
		"definition":      stats.Definition,
		"row_count":       fmt.Sprint(stats.RowCount),
		"column_count":    fmt.Sprint(stats.ColumnCount),
		"partition_count": fmt.Sprint(stats.PartitionCount),
		"disk_size":       stats.DiskSize,
		"last_analyzed":   "never",
		"stale":           fmt.Sprint(d.Stale()),
	}
	if stats.LastAnalyzed != nil {
		fields["last_analyzed"] = stats.LastAnalyzed.Format(time.RFC3339)
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, key := range keys {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", key, fields[key])
	}
	return w.Flush()
}
