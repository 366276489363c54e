package main

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/jobrunner/bootstrap"
	"github.com/kbukum/jobrunner/config"
	"github.com/kbukum/jobrunner/pipeline"
	"github.com/kbukum/jobrunner/status"
	"github.com/kbukum/jobrunner/version"
)

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Run configuration-driven, stage-parallel job pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	f := root.PersistentFlags()
	f.StringVarP(&opts.document, "config", "c", "", "pipeline document (yaml, json or toml)")
	f.StringVar(&opts.serviceConfig, "service-config", "", "service configuration file (default: discovered jobrunner.yml)")
	f.StringVar(&opts.envFile, "env-file", "", ".env file loaded before reading JOBRUNNER_* overrides")
	f.StringVar(&opts.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newValidateCommand(opts),
		newGraphCommand(opts),
		newRunCommand(opts),
		newServeCommand(opts),
		newVersionCommand(),
	)
	return root
}

func newValidateCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the structure of a pipeline document without running it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := opts.initLogging(); err != nil {
				return err
			}
			store, err := opts.openDocument()
			if err != nil {
				return err
			}
			settings, err := pipeline.Validate(store)
			if err != nil {
				return err
			}
			stages := store.AsList(pipeline.KeyPipeline)
			tasks := 0
			for _, st := range stages {
				tasks += len(store.AsList(st))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pipeline %q is valid: %d stages, %d tasks, width %d\n",
				settings.Name, len(stages), tasks, settings.ThreadPoolSize)
			return nil
		},
	}
}

func newGraphCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Print the job dependency graph in DOT format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := opts.initLogging(); err != nil {
				return err
			}
			store, err := opts.openDocument()
			if err != nil {
				return err
			}
			runner, err := pipeline.New(store)
			if err != nil {
				return err
			}
			return runner.WriteDOT(cmd.OutOrStdout())
		},
	}
}

type runOptions struct {
	iterations int
	once       bool
	perfCSV    string
	appendCSV  bool
}

func newRunCommand(opts *globalOptions) *cobra.Command {
	ro := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline in the foreground",
		Long: "Run the pipeline in the foreground until the iteration budget is spent, " +
			"the process is interrupted or a job fails.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runForeground(cmd, opts, ro)
		},
	}
	cmd.Flags().IntVarP(&ro.iterations, "iterations", "n", 0, "number of iterations, 0 runs until interrupted")
	cmd.Flags().BoolVar(&ro.once, "once", false, "run a single iteration")
	cmd.Flags().StringVar(&ro.perfCSV, "perf-csv", "", "write the iteration performance history to this CSV file")
	cmd.Flags().BoolVar(&ro.appendCSV, "append", false, "append to the performance CSV instead of replacing it")
	cmd.MarkFlagsMutuallyExclusive("iterations", "once")
	return cmd
}

func runForeground(cmd *cobra.Command, opts *globalOptions, ro *runOptions) error {
	if ro.iterations < 0 {
		return fmt.Errorf("--iterations must not be negative")
	}
	env, err := opts.newEnvironment(cmd)
	if err != nil {
		return err
	}
	if env.cfg.Status.Enabled {
		srv := status.New(env.cfg.Status, env.cfg.Name, env.runner, env.app.Components.HealthAll, nil)
		if err := env.app.RegisterComponent(status.NewComponent(srv)); err != nil {
			return err
		}
	}

	return env.app.RunTask(cmd.Context(), func(ctx context.Context) error {
		var err error
		if ro.once {
			err = env.runner.RunOnce(ctx)
		} else {
			err = env.runner.Run(ctx, ro.iterations)
		}
		if err != nil && !stderrors.Is(err, context.Canceled) {
			if terr := env.runner.Teardown(context.WithoutCancel(ctx)); terr != nil {
				err = stderrors.Join(err, terr)
			}
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, env.runner.Performance())
		for _, st := range env.runner.Stages() {
			fmt.Fprintln(out, st.Performance())
		}
		if ro.perfCSV != "" {
			if err := env.runner.Performance().SaveCSV(ro.perfCSV, ro.appendCSV); err != nil {
				return err
			}
		}
		return nil
	})
}

func newServeCommand(opts *globalOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline in the background and serve the status API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := opts.newEnvironment(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				env.cfg.Status.Port = port
			}
			if err := env.app.RegisterComponent(pipeline.NewComponent(env.runner)); err != nil {
				return err
			}
			srv := status.New(env.cfg.Status, env.cfg.Name, env.runner, env.app.Components.HealthAll, nil)
			if err := env.app.RegisterComponent(status.NewComponent(srv)); err != nil {
				return err
			}
			return env.app.Run(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "status API port (overrides status.port)")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Full())
		},
	}
}

// environment is what run and serve share: the application with its
// telemetry component registered, and the runner built from the document.
type environment struct {
	cfg    *config.ServiceConfig
	app    *bootstrap.App[*config.ServiceConfig]
	runner *pipeline.Runner
}
