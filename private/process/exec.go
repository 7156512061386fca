// Copyright (C) 2018 Storj Labs, Inc.
// See LICENSE for copying information.

// Package process sets up configuration, logging and signal handling for
// command line tools.
package process

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/zeebo/errs"
)

// Error is a process error class.
var Error = errs.Class("process")

// EnvPrefix is the prefix of environment variables that set flags.
const EnvPrefix = "catalogsync"

// Exec runs a *cobra.Command and sets up process configuration like a
// configuration file, environment variables and logging.
func Exec(cmd *cobra.Command) {
	Must(Execute(cmd))
}

// Execute is like Exec but returns the error instead of exiting.
func Execute(cmd *cobra.Command) error {
	configFile := cmd.PersistentFlags().String("config", "", "path to a yaml config file")
	logConfig.BindFlags(cmd.PersistentFlags())

	next := cmd.PersistentPreRunE
	cmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		if err := LoadSettings(c, *configFile); err != nil {
			return err
		}
		if next != nil {
			return next(c, args)
		}
		return nil
	}

	return cmd.Execute()
}

// Viper returns a viper which reads the flags of cmd, CATALOGSYNC_*
// environment variables and configFile when it is not empty.
func Viper(cmd *cobra.Command, configFile string) (*viper.Viper, error) {
	vip := viper.New()
	if err := vip.BindPFlags(cmd.Flags()); err != nil {
		return nil, Error.Wrap(err)
	}

	vip.SetEnvPrefix(EnvPrefix)
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	vip.AutomaticEnv()

	if configFile != "" {
		vip.SetConfigFile(configFile)
		if err := vip.ReadInConfig(); err != nil {
			return nil, Error.New("unable to read config file %q: %w", configFile, err)
		}
	}
	return vip, nil
}

// LoadSettings sets every flag of cmd that was not given on the command
// line from the environment or the config file.
func LoadSettings(cmd *cobra.Command, configFile string) error {
	vip, err := Viper(cmd, configFile)
	if err != nil {
		return err
	}

	var group errs.Group
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed || !vip.IsSet(f.Name) {
			return
		}
		if slice, ok := f.Value.(pflag.SliceValue); ok {
			group.Add(slice.Replace(vip.GetStringSlice(f.Name)))
			return
		}
		group.Add(f.Value.Set(vip.GetString(f.Name)))
	})
	return Error.Wrap(group.Err())
}

// Ctx returns the context of cmd, cancelled on SIGINT or SIGTERM.
func Ctx(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// Must checks for errors.
func Must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
