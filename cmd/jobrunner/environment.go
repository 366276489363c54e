package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/jobrunner/bootstrap"
	"github.com/kbukum/jobrunner/config"
	"github.com/kbukum/jobrunner/handlers"
	"github.com/kbukum/jobrunner/job"
	"github.com/kbukum/jobrunner/logger"
	"github.com/kbukum/jobrunner/observability"
	"github.com/kbukum/jobrunner/pipeline"
	"github.com/kbukum/jobrunner/version"
)

const serviceName = "jobrunner"

type globalOptions struct {
	document      string
	serviceConfig string
	envFile       string
	logLevel      string
}

// loadServiceConfig reads the service configuration. Logs go to stderr
// unless configured otherwise so that stdout carries command output only.
func (o *globalOptions) loadServiceConfig() (*config.ServiceConfig, error) {
	var loaderOpts []config.LoaderOption
	if o.serviceConfig != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(o.serviceConfig))
	}
	if o.envFile != "" {
		loaderOpts = append(loaderOpts, config.WithEnvFile(o.envFile))
	}

	cfg := &config.ServiceConfig{}
	if err := config.LoadConfig(serviceName, cfg, loaderOpts...); err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}
	if cfg.Version == "" {
		cfg.Version = version.Short()
	}
	return cfg, nil
}

// initLogging is used by the commands that do not go through bootstrap.
func (o *globalOptions) initLogging() (*config.ServiceConfig, error) {
	cfg, err := o.loadServiceConfig()
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	logger.Init(cfg.Logging, cfg.Name)
	return cfg, nil
}

func (o *globalOptions) openDocument() (*config.Store, error) {
	if o.document == "" {
		return nil, fmt.Errorf("a pipeline document is required (--config)")
	}
	reg := job.NewRegistry()
	if err := handlers.Register(reg); err != nil {
		return nil, err
	}
	return config.NewStore(o.document, reg)
}

func (o *globalOptions) newEnvironment(cmd *cobra.Command) (*environment, error) {
	cfg, err := o.loadServiceConfig()
	if err != nil {
		return nil, err
	}
	app, err := bootstrap.NewApp(cfg, bootstrap.WithSummaryOutput(cmd.ErrOrStderr()))
	if err != nil {
		return nil, err
	}

	tel, err := observability.NewTelemetry(telemetryConfig(cfg))
	if err != nil {
		return nil, err
	}
	if err := app.RegisterComponent(tel); err != nil {
		return nil, err
	}

	store, err := o.openDocument()
	if err != nil {
		return nil, err
	}
	var runnerOpts []pipeline.Option
	if m := tel.Metrics(); m != nil {
		runnerOpts = append(runnerOpts, pipeline.WithMetrics(m))
	}
	if tel.Tracing() {
		runnerOpts = append(runnerOpts, pipeline.WithTracing())
	}
	runner, err := pipeline.New(store, runnerOpts...)
	if err != nil {
		return nil, err
	}
	return &environment{cfg: cfg, app: app, runner: runner}, nil
}

func telemetryConfig(cfg *config.ServiceConfig) observability.TelemetryConfig {
	t := cfg.Telemetry
	return observability.TelemetryConfig{
		Tracing: t.Tracing,
		Metrics: t.Metrics,
		Tracer: observability.TracerConfig{
			ServiceName:    cfg.Name,
			ServiceVersion: cfg.Version,
			Environment:    cfg.Environment,
			Endpoint:       t.Endpoint,
			Insecure:       t.Insecure,
			SampleRate:     t.SampleRate,
		},
		Meter: observability.MeterConfig{
			ServiceName:    cfg.Name,
			ServiceVersion: cfg.Version,
			Environment:    cfg.Environment,
			Endpoint:       t.Endpoint,
			Insecure:       t.Insecure,
			Interval:       t.Interval,
		},
	}
}
