package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"money/internal/cli"
	"money/internal/config"
	"money/internal/log"
)

// settings maps money.yaml keys and flags onto config fields.
var settings = []struct {
	key   string
	usage string
	apply func(*config.Config, string)
}{
	{"backend", "Storage backend (memory, sqlite, postgres)", func(c *config.Config, v string) { c.DataBackend = v }},
	{"db", "SQLite database path", func(c *config.Config, v string) { c.SQLiteDBPath = v }},
	{"postgres-url", "Postgres connection URL", func(c *config.Config, v string) { c.PostgresURL = v }},
	{"currency", "Currency symbol", func(c *config.Config, v string) { c.CurrencySymbol = v }},
	{"timezone", "Time zone for dates", func(c *config.Config, v string) { c.TimeZone = v }},
	{"log-level", "Log level (debug, info, warn, error)", func(c *config.Config, v string) { c.LogLevel = v }},
}

type rootOptions struct {
	cfgFile string
	v       *viper.Viper
	out     io.Writer
	in      io.Reader
}

func newRootCmd(out io.Writer, in io.Reader) *cobra.Command {
	opts := &rootOptions{v: viper.New(), out: out, in: in}

	root := &cobra.Command{
		Use:           "money-cli",
		Short:         "Track income and expenses from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Show help when no subcommand is provided
			return cmd.Help()
		},
	}
	root.SetOut(out)
	root.SetIn(in)

	fs := root.PersistentFlags()
	fs.StringVarP(&opts.cfgFile, "config", "c", "", "Config file (default is ./money.yaml)")
	for _, s := range settings {
		fs.String(s.key, "", s.usage)
	}
	if err := bindFlags(opts.v, fs); err != nil {
		panic(err)
	}

	root.AddCommand(
		newAddCmd(opts),
		newRemoveCmd(opts),
		newListCmd(opts),
		newStatsCmd(opts),
		newThemeCmd(opts),
		newExportCmd(opts),
	)
	return root
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, s := range settings {
		if err := v.BindPFlag(s.key, fs.Lookup(s.key)); err != nil {
			return fmt.Errorf("bind flag %s: %w", s.key, err)
		}
	}
	return nil
}

// loadConfig reads the environment, then overlays money.yaml and finally
// any flags given on the command line.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.cfgFile != "" {
		o.v.SetConfigFile(o.cfgFile)
	} else {
		o.v.SetConfigName("money")
		o.v.SetConfigType("yaml")
		o.v.AddConfigPath(".")
	}
	if err := o.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if o.cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	for _, s := range settings {
		if o.v.IsSet(s.key) {
			s.apply(cfg, o.v.GetString(s.key))
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withApp bootstraps the application, runs fn and closes the app, which
// saves the ledger.
func (o *rootOptions) withApp(ctx context.Context, fn func(*cli.App) error) (err error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	logger := cli.SetupTerminalLogger(os.Stderr, cfg.LogLevel)

	app, err := cli.Bootstrap(ctx, cfg, logger)
	if err != nil {
		return err
	}
	logger.Debug("Started", "notification", app.Started.Message)
	defer func() {
		if cerr := app.Close(ctx); cerr != nil {
			logger.Error("Final save failed", log.FieldError, cerr)
			if err == nil {
				err = cerr
			}
		}
	}()
	return fn(app)
}
