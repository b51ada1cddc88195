package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/dshills/modelundo/internal/app"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "modelundo",
		Short: "Run scripted model sessions with transactional undo and redo",
		Long: `modelundo runs Lua scripts against an element model whose every
mutation is recorded, transaction by transaction, into a bounded undo
and redo history.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (.toml, .yaml or .json5)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(newRunCmd(flags), newSnapshotCmd(flags), newCommandsCmd(flags), newVersionCmd())
	return root
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	var (
		watch    bool
		timeout  time.Duration
		snapshot bool
		execs    []string
	)

	cmd := &cobra.Command{
		Use:   "run <script.lua>...",
		Short: "Run Lua scripts in one session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApplication(cmd, flags, app.Options{
				Watch:         watch,
				ScriptTimeout: timeout,
			})
			if err != nil {
				return err
			}
			defer application.Shutdown()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := runScripts(ctx, application, args); err != nil {
				return err
			}
			for _, name := range execs {
				if err := application.ExecuteCommand(ctx, name); err != nil {
					return err
				}
			}
			if snapshot {
				return printSnapshot(cmd, application, "", true)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload the config file while running")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "limit for each script (0 means none)")
	cmd.Flags().BoolVar(&snapshot, "snapshot", false, "print the model snapshot when done")
	cmd.Flags().StringArrayVarP(&execs, "exec", "e", nil, "command or accelerator to execute after the scripts (repeatable)")
	return cmd
}

func newCommandsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "commands [script.lua]...",
		Short: "Run scripts and list the command table",
		Long: `Run the given scripts, then print every command with its accelerator
and whether it is currently enabled. Script print output goes to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApplication(cmd, flags, app.Options{
				Output: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			defer application.Shutdown()

			if err := runScripts(cmd.Context(), application, args); err != nil {
				return err
			}

			commands := application.Commands()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, name := range commands.List() {
				c, _ := commands.Get(name)
				state := "disabled"
				if commands.Enabled(name) {
					state = "enabled"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, c.Accel, state)
			}
			return w.Flush()
		},
	}
}

func newSnapshotCmd(flags *globalFlags) *cobra.Command {
	var (
		query   string
		compact bool
	)

	cmd := &cobra.Command{
		Use:   "snapshot [script.lua]...",
		Short: "Run scripts and print the resulting model as JSON",
		Long: `Run the given scripts, then print the model snapshot. Script print
output goes to stderr. With --query, print only the result of a GJSON
path over the snapshot, for example

  modelundo snapshot build.lua --query 'elements.#(class=="Class")#.id'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Script output goes to stderr so stdout carries only JSON.
			application, err := newApplication(cmd, flags, app.Options{
				Output: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			defer application.Shutdown()

			if err := runScripts(cmd.Context(), application, args); err != nil {
				return err
			}
			return printSnapshot(cmd, application, query, !compact)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "GJSON path to extract from the snapshot")
	cmd.Flags().BoolVar(&compact, "compact", false, "print compact JSON")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "modelundo %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

func newApplication(cmd *cobra.Command, flags *globalFlags, opts app.Options) (*app.Application, error) {
	opts.ConfigPath = flags.configPath
	opts.LogLevel = flags.logLevel
	if opts.Output == nil {
		opts.Output = cmd.OutOrStdout()
	}
	opts.LogOutput = cmd.ErrOrStderr()
	return app.New(opts)
}

func runScripts(ctx context.Context, application *app.Application, paths []string) error {
	for _, path := range paths {
		if err := application.RunScript(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

func printSnapshot(cmd *cobra.Command, application *app.Application, query string, indent bool) error {
	data, err := application.Snapshot()
	if err != nil {
		return err
	}
	if query != "" {
		res := gjson.GetBytes(data, query)
		if !res.Exists() {
			return fmt.Errorf("query %q matched nothing", query)
		}
		data = []byte(res.Raw)
	}

	if indent {
		data = pretty.Pretty(data)
	} else {
		data = append(pretty.Ugly(data), '\n')
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
