package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/yuku/dbpool"
	"go.uber.org/zap"

	// Register the drivers selectable with --driver.
	_ "github.com/yuku/dbpool/pgxconn"
	_ "github.com/yuku/dbpool/sqlconn"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	configFile string
	driver     string
	user       string
	password   string
	database   string
	host       string
	port       int
	maxHandles int
	timeout    time.Duration
	logLevel   string
	logFormat  string
	pretty     bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "dbexec",
		Short:         "Run SQL through a pooled executor",
		Long:          `dbexec opens a handle pool for the selected driver, runs one statement and prints the result as JSON.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (YAML); DBPOOL_* environment variables override it")
	flags.StringVar(&opts.driver, "driver", "", "registered driver name (pgx, postgres, mysql, sqlite)")
	flags.StringVar(&opts.user, "user", "", "session user")
	flags.StringVar(&opts.password, "password", "", "session password")
	flags.StringVar(&opts.database, "database", "", "database name, or file path for sqlite")
	flags.StringVar(&opts.host, "host", "", "server host")
	flags.IntVar(&opts.port, "port", 0, "server port")
	flags.IntVar(&opts.maxHandles, "max-handles", 0, "pool capacity")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "statement timeout including handle acquisition (0 = none)")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "console", "log format (console, json)")
	flags.BoolVar(&opts.pretty, "pretty", false, "indent JSON output")

	root.AddCommand(
		newQueryCmd(opts),
		newSingleCmd(opts),
		newStreamCmd(opts),
		newExecCmd(opts),
		newDriversCmd(),
	)
	return root
}

func newDriversCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drivers",
		Short: "List registered drivers",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range dbpool.Drivers() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}

// open builds the executor from the config file, the environment and the
// flags that were set explicitly, in that order of precedence.
func open(cmd *cobra.Command, opts *options) (*dbpool.Executor, error) {
	config, err := dbpool.LoadConfig(opts.configFile)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(opts.logLevel, opts.logFormat)
	if err != nil {
		return nil, err
	}
	config.Logger = logger.Named("dbexec")

	flags := cmd.Flags()
	if flags.Changed("driver") {
		config.Driver = opts.driver
	}
	if flags.Changed("max-handles") {
		config.MaxHandles = opts.maxHandles
	}

	var credOpts []dbpool.Option
	if flags.Changed("user") {
		credOpts = append(credOpts, dbpool.WithUser(opts.user))
	}
	if flags.Changed("password") {
		credOpts = append(credOpts, dbpool.WithPassword(opts.password))
	}
	if flags.Changed("database") {
		credOpts = append(credOpts, dbpool.WithDatabase(opts.database))
	}
	if flags.Changed("host") {
		credOpts = append(credOpts, dbpool.WithHost(opts.host))
	}
	if flags.Changed("port") {
		credOpts = append(credOpts, dbpool.WithPort(opts.port))
	}

	exec, err := dbpool.Open(*config, credOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open executor: %w", err)
	}
	logger.Debug("executor opened",
		zap.String("driver", config.Driver),
		zap.Int("max_handles", exec.Pool().Config().MaxHandles))
	return exec, nil
}

func commandContext(cmd *cobra.Command, opts *options) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, opts.timeout)
}

// statementArgs converts positional arguments after the SQL text to driver arguments.
func statementArgs(args []string) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}
