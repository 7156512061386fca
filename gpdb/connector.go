// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package gpdb opens connections to remote analytical database instances
// and classifies the failures that happen while doing so.
package gpdb

import (
	"context"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/spf13/pflag"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/catalogsync/private/dbutil/pgerrcode"
	"storj.io/catalogsync/private/dbutil/pgutil"
)

var (
	mon = monkit.Package()

	// ErrInstanceStillProvisioning is returned when the instance is not ready to accept connections.
	ErrInstanceStillProvisioning = errs.Class("instance still provisioning")
	// ErrInstanceOverloaded is returned when the instance has no free connection slots.
	ErrInstanceOverloaded = errs.Class("instance overloaded")
	// ErrAuthenticationFailed is returned when the account credentials were rejected.
	ErrAuthenticationFailed = errs.Class("authentication failed")
)

// Config contains the connection settings.
type Config struct {
	ApplicationName  string
	SSLMode          string
	ConnectTimeout   time.Duration
	StatementTimeout time.Duration
}

// BindFlags adds the connection flags to the flagset.
func (config *Config) BindFlags(flag *pflag.FlagSet) {
	flag.StringVar(&config.ApplicationName, "gpdb.application-name", "catalogsync", "application name reported to the remote instance")
	flag.StringVar(&config.SSLMode, "gpdb.ssl-mode", "disable", "sslmode used when connecting to the remote instance")
	flag.DurationVar(&config.ConnectTimeout, "gpdb.connect-timeout", 10*time.Second, "how long to wait for a connection to open (0 waits forever)")
	flag.DurationVar(&config.StatementTimeout, "gpdb.statement-timeout", 0, "how long an operation on an open connection may take (0 waits forever)")
}

// Connector opens scoped connections to remote instances.
type Connector struct {
	log    *zap.Logger
	dialer Dialer
	config Config
}

// NewConnector creates a new connector.
func NewConnector(log *zap.Logger, dialer Dialer, config Config) *Connector {
	return &Connector{
		log:    log,
		dialer: dialer,
		config: config,
	}
}

// WithConnection connects to databaseName on the instance with the account
// credentials and calls fn with the connection. When databaseName is empty
// the instance maintenance database is used. The connection is closed when
// fn returns, regardless of the outcome.
//
// Errors from opening the connection are classified; errors returned by fn
// are logged and returned as they are.
func (connector *Connector) WithConnection(ctx context.Context, instance Instance, account Account, databaseName string, fn func(context.Context, Conn) error) (err error) {
	defer mon.Task()(&ctx)(&err)

	if databaseName == "" {
		databaseName = instance.MaintenanceDatabase
	}

	params := pgutil.ConnParams{
		Host:            instance.Host,
		Port:            instance.Port,
		Database:        databaseName,
		Username:        account.Username,
		Password:        account.Password,
		ApplicationName: connector.config.ApplicationName,
		SSLMode:         connector.config.SSLMode,
	}

	conn, err := connector.connect(ctx, params)
	if err != nil {
		return connector.classify(instance, account, params, err)
	}
	defer func() { err = errs.Combine(err, conn.Close(context.WithoutCancel(ctx))) }()

	opCtx := ctx
	if connector.config.StatementTimeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, connector.config.StatementTimeout)
		defer cancel()
	}

	err = fn(opCtx, conn)
	if err != nil {
		connector.log.Warn("SQL statement invalid",
			zap.String("address", address(params)),
			zap.String("database", params.Database),
			zap.Error(err))
	}
	return err
}

func (connector *Connector) connect(ctx context.Context, params pgutil.ConnParams) (Conn, error) {
	if connector.config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, connector.config.ConnectTimeout)
		defer cancel()
	}
	return connector.dialer.Connect(ctx, params)
}

// classify translates a failure to open a connection into an actionable error.
func (connector *Connector) classify(instance Instance, account Account, params pgutil.ConnParams, err error) error {
	if instance.State == StateProvisioning {
		mon.Event("connect_instance_provisioning")
		return ErrInstanceStillProvisioning.New("instance %q has not finished provisioning", instance.Name)
	}

	message := err.Error()
	if strings.Contains(message, "too many clients") || pgerrcode.IsTooManyConnections(err) {
		mon.Event("connect_instance_overloaded")
		return ErrInstanceOverloaded.Wrap(err)
	}

	connector.log.Error("failed to establish connection",
		zap.String("address", address(params)),
		zap.String("database", params.Database),
		zap.Error(err))

	if authenticationFailure(account.Username).MatchString(message) {
		mon.Event("connect_authentication_failed")
		return ErrAuthenticationFailed.New("Password authentication failed for user '%s'", account.Username)
	}

	return err
}

// authenticationFailure matches the driver message reported when the
// password for username was rejected.
func authenticationFailure(username string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)password authentication failed for user ['"]` + regexp.QuoteMeta(username) + `['"]`)
}

func address(params pgutil.ConnParams) string {
	return net.JoinHostPort(params.Host, strconv.Itoa(params.Port))
}
