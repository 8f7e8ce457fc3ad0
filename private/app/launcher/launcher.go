// Copyright 2025 Future Networks Research Group
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package launcher includes the shared application execution boilerplate of
// all click servers.
package launcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fnrg-nfv/click/pkg/log"
	"github.com/fnrg-nfv/click/pkg/metrics"
	"github.com/fnrg-nfv/click/pkg/private/prom"
	"github.com/fnrg-nfv/click/pkg/private/serrors"
	"github.com/fnrg-nfv/click/private/app/command"
	libconfig "github.com/fnrg-nfv/click/private/config"
	"github.com/fnrg-nfv/click/private/env"
)

// Configuration keys used by the launcher to access the viper KV store.
const (
	cfgConfigFile                = "config"
	cfgGeneralID                 = "general.id"
	cfgLogConsoleLevel           = "log.console.level"
	cfgLogConsoleFormat          = "log.console.format"
	cfgLogConsoleStacktraceLevel = "log.console.stacktrace_level"
)

// Application models a click server application.
type Application struct {
	// TOMLConfig holds the Go data structure for the application-specific
	// TOML configuration. The Application launcher will check if the
	// TOMLConfig supports additional methods (e.g., custom logging or
	// instance ID) and extract them from the config if that is the case.
	TOMLConfig libconfig.Config

	// Samplers contains additional configuration samplers to be included
	// under the sample subcommand. If empty, no additional samplers are
	// listed.
	Samplers []func(command.Pather) *cobra.Command

	// ShortName is the short name of the application. If empty, the
	// executable name is used. The ShortName could be, for example,
	// "Click Router" for the packet processor.
	ShortName string

	// Main is the custom logic of the application. If nil, no custom logic
	// is executed (and only the setup/teardown harness runs). If Main
	// returns an error, the Run method will return a non-zero exit code.
	Main func(ctx context.Context) error

	// ErrorWriter specifies where error output should be printed. If nil,
	// os.Stderr is used.
	ErrorWriter io.Writer

	// cmd is the Cobra command for a click server application.
	cmd *cobra.Command

	// config contains the Viper configuration KV store.
	config *viper.Viper
}

// Run sets up the common click server harness, and then passes control to
// the Main function (if one exists).
//
// Run uses the following globals:
//
//	os.Args
//
// Run will exit the application if it encounters a fatal error.
func (a *Application) Run() {
	if err := a.run(); err != nil {
		fmt.Fprintf(a.getErrorWriter(), "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func (a *Application) run() error {
	executable := filepath.Base(os.Args[0])
	shortName := a.getShortName(executable)

	a.cmd = newCommandTemplate(executable, shortName, a.TOMLConfig, a.Samplers...)
	a.cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return a.executeCommand(cmd.Context(), shortName)
	}
	a.config = viper.New()
	a.config.SetDefault(cfgLogConsoleLevel, log.DefaultConsoleLevel)
	a.config.SetDefault(cfgLogConsoleFormat, "human")
	a.config.SetDefault(cfgLogConsoleStacktraceLevel, log.DefaultStacktraceLevel)
	a.config.SetDefault(cfgGeneralID, executable)
	// The configuration file location is specified through command-line flags.
	// Once the command-line flags are parsed, we register the location of the
	// config file with the viper config.
	if err := a.config.BindPFlag(cfgConfigFile, a.cmd.Flags().Lookup(cfgConfigFile)); err != nil {
		return err
	}

	// All servers accept SIGTERM to perform clean shutdown (for example, this
	// is used behind the scenes by docker stop to stop containers).
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt)
	signal.Notify(sig, syscall.SIGTERM)
	ctx, cancelF := context.WithCancel(context.Background())
	defer cancelF()
	go func() {
		defer log.HandlePanic()
		s := <-sig
		log.Info("Received signal, exiting...", "signal", s)
		cancelF()

		// If the main goroutine shuts down everything in time, this won't get
		// a chance to run.
		time.AfterFunc(env.ShutdownGraceInterval, func() {
			defer log.HandlePanic()
			panic("Main goroutine did not shut down in time (waited 5s). " +
				"It's probably stuck. Forcing shutdown.")
		})
	}()

	return a.cmd.ExecuteContext(ctx)
}

func (a *Application) getShortName(executable string) string {
	if a.ShortName != "" {
		return a.ShortName
	}
	return executable
}

func (a *Application) executeCommand(ctx context.Context, shortName string) error {
	os.Setenv("TZ", "UTC")

	// Load launcher configurations from the same config file as the custom
	// application configuration.
	a.config.SetConfigType("toml")
	a.config.SetConfigFile(a.config.GetString(cfgConfigFile))
	if err := a.config.ReadInConfig(); err != nil {
		return serrors.Wrap("loading generic server config from file", err,
			"file", a.config.GetString(cfgConfigFile))
	}

	if err := libconfig.LoadFile(a.config.GetString(cfgConfigFile), a.TOMLConfig); err != nil {
		return serrors.Wrap("loading config from file", err,
			"file", a.config.GetString(cfgConfigFile))
	}
	a.TOMLConfig.InitDefaults()

	logEntriesTotal := metrics.NewPromCounterFrom(
		prometheus.CounterOpts{
			Name: "lib_log_emitted_entries_total",
			Help: "Total number of log entries emitted.",
		},
		[]string{"level"},
	)
	opt := log.WithEntriesCounter(log.EntriesCounter{
		Debug: logEntriesTotal.With("level", "debug"),
		Info:  logEntriesTotal.With("level", "info"),
		Error: logEntriesTotal.With("level", "error"),
	})

	if err := log.Setup(a.getLogging(), opt); err != nil {
		return serrors.Wrap("initialize logging", err)
	}
	defer log.Flush()
	if err := env.LogAppStarted(shortName, a.config.GetString(cfgGeneralID)); err != nil {
		return err
	}
	defer env.LogAppStopped(shortName, a.config.GetString(cfgGeneralID))
	defer log.HandlePanic()

	exportBuildInfo()
	prom.ExportElementID(a.config.GetString(cfgGeneralID))
	if err := a.TOMLConfig.Validate(); err != nil {
		return serrors.Wrap("validate config", err)
	}

	if a.Main == nil {
		return nil
	}
	return a.Main(ctx)
}

func (a *Application) getLogging() log.Config {
	return log.Config{
		Console: log.ConsoleConfig{
			Level:           a.config.GetString(cfgLogConsoleLevel),
			Format:          a.config.GetString(cfgLogConsoleFormat),
			StacktraceLevel: a.config.GetString(cfgLogConsoleStacktraceLevel),
		},
	}
}

func (a *Application) getErrorWriter() io.Writer {
	if a.ErrorWriter != nil {
		return a.ErrorWriter
	}
	return os.Stderr
}

// newCommandTemplate returns a cobra command template for a click server
// application.
func newCommandTemplate(executable string, shortName string, config libconfig.Sampler,
	samplers ...func(command.Pather) *cobra.Command) *cobra.Command {

	cmd := &cobra.Command{
		Use:           executable,
		Short:         shortName,
		Example:       fmt.Sprintf("  %s --config %s", executable, "config.toml"),
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.AddCommand(
		command.NewCompletion(cmd),
		command.NewSample(cmd, append(samplers, command.NewSampleConfig(config))...),
		command.NewVersion(cmd),
	)
	cmd.Flags().String(cfgConfigFile, "", "Configuration file (required)")
	if err := cmd.MarkFlagRequired(cfgConfigFile); err != nil {
		panic(err)
	}
	return cmd
}

// exportBuildInfo registers a gauge that carries the version and Go runtime
// of the running binary in its labels.
func exportBuildInfo() {
	g := promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "click_build_info",
			Help: "Build information about the running binary.",
		},
		[]string{"version", "goversion"},
	)
	g.WithLabelValues(env.Version(), runtime.Version()).Set(1)
}
