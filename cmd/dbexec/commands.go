package main

import (
	"github.com/spf13/cobra"
	"github.com/yuku/dbpool"
)

func newQueryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "query SQL [ARG...]",
		Short: "Run a statement and print every row as a JSON array",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExecutor(cmd, opts, func(exec *dbpool.Executor) error {
				ctx, cancel := commandContext(cmd, opts)
				defer cancel()

				rows, err := exec.Query(ctx, args[0], statementArgs(args[1:])...)
				if err != nil {
					return err
				}
				if rows == nil {
					rows = []dbpool.Row{}
				}
				return newPrinter(cmd.OutOrStdout(), opts.pretty).print(rows)
			})
		},
	}
}

func newSingleCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "single SQL [ARG...]",
		Short: "Run a statement and print its first row, or null",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExecutor(cmd, opts, func(exec *dbpool.Executor) error {
				ctx, cancel := commandContext(cmd, opts)
				defer cancel()

				row, err := exec.QuerySingle(ctx, args[0], statementArgs(args[1:])...)
				if err != nil {
					return err
				}
				return newPrinter(cmd.OutOrStdout(), opts.pretty).print(row)
			})
		},
	}
}

func newStreamCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stream SQL [ARG...]",
		Short: "Run a statement and print rows as they arrive, one JSON object per line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExecutor(cmd, opts, func(exec *dbpool.Executor) error {
				ctx, cancel := commandContext(cmd, opts)
				defer cancel()

				p := newPrinter(cmd.OutOrStdout(), false)
				var streamErr error
				exec.QueryMany(ctx, args[0], statementArgs(args[1:]),
					func(row dbpool.Row) error { return p.print(row) },
					func(err error) { streamErr = err },
				)
				return streamErr
			})
		},
	}
}

func newExecCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "exec SQL [ARG...]",
		Short: "Run a statement that returns no rows and print the result summary",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExecutor(cmd, opts, func(exec *dbpool.Executor) error {
				ctx, cancel := commandContext(cmd, opts)
				defer cancel()

				result, err := exec.NonQuery(ctx, args[0], statementArgs(args[1:])...)
				if err != nil {
					return err
				}
				return newPrinter(cmd.OutOrStdout(), opts.pretty).print(execResult{
					RowsAffected: result.RowsAffected,
					LastInsertID: result.LastInsertID,
				})
			})
		},
	}
}

func withExecutor(cmd *cobra.Command, opts *options, fn func(*dbpool.Executor) error) error {
	exec, err := open(cmd, opts)
	if err != nil {
		return err
	}
	defer exec.Close()
	return fn(exec)
}
