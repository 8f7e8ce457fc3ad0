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

// Package log provides a thin wrapper around uber/zap. Loggers carry context
// as key/value pairs and are safe for concurrent use.
package log

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fnrg-nfv/click/pkg/private/serrors"
	"github.com/fnrg-nfv/click/private/config"
)

// Level is an alias for the level type used by the underlying zap loggers.
type Level = zapcore.Level

// Default configuration values.
const (
	// DefaultConsoleLevel is the default log level for the console.
	DefaultConsoleLevel = "info"
	// DefaultStacktraceLevel is the default level from which stacktraces are
	// included in log entries.
	DefaultStacktraceLevel = "none"
)

// Config is the configuration for the logger.
type Config struct {
	config.NoValidator
	// Console is the configuration for the console logging.
	Console ConsoleConfig `toml:"console,omitempty"`
}

// InitDefaults populates unset fields in cfg to their default values (if
// they have one).
func (c *Config) InitDefaults() {
	c.Console.initDefaults()
}

// Validate validates the config.
func (c *Config) Validate() error {
	return c.Console.validate()
}

// Sample writes the sample configuration to dst.
func (c *Config) Sample(dst io.Writer, path config.Path, _ config.CtxMap) {
	config.WriteSample(dst, path, nil, &c.Console)
}

// ConfigName returns the name this config should have in a struct embedding
// it.
func (c *Config) ConfigName() string {
	return "log"
}

// ConsoleConfig is the configuration for the console logger.
type ConsoleConfig struct {
	// Level of console logging (defaults to info).
	Level string `toml:"level,omitempty"`
	// Format of the console logging (human|json) (defaults to human).
	Format string `toml:"format,omitempty"`
	// StacktraceLevel sets from which level stacktraces are included in the
	// logs (none|debug|info|error) (defaults to none).
	StacktraceLevel string `toml:"stacktrace_level,omitempty"`
	// DisableCaller stops annotating logs with the calling function's file
	// name and line number.
	DisableCaller bool `toml:"disable_caller,omitempty"`
}

func (c *ConsoleConfig) initDefaults() {
	if c.Level == "" {
		c.Level = DefaultConsoleLevel
	}
	if c.Format == "" {
		c.Format = "human"
	}
	if c.StacktraceLevel == "" {
		c.StacktraceLevel = DefaultStacktraceLevel
	}
}

func (c *ConsoleConfig) validate() error {
	if c.Format != "human" && c.Format != "json" {
		return serrors.New("invalid log format", "format", c.Format)
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return serrors.Wrap("invalid log level", err, "level", c.Level)
	}
	if c.StacktraceLevel != "none" {
		if err := lvl.UnmarshalText([]byte(c.StacktraceLevel)); err != nil {
			return serrors.Wrap("invalid stacktrace level", err,
				"level", c.StacktraceLevel)
		}
	}
	return nil
}

// Sample writes the sample console config to dst.
func (c *ConsoleConfig) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, consoleConfigSample)
}

// ConfigName returns the name of the console config block.
func (c *ConsoleConfig) ConfigName() string {
	return "console"
}

func (c ConsoleConfig) encoderConfig() zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	if c.Format == "json" {
		return ec
	}
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	if isatty.IsTerminal(os.Stderr.Fd()) {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return ec
}

// Setup configures the logging library with the given config.
func Setup(cfg Config, opts ...Option) error {
	cfg.InitDefaults()
	if err := setupConsole(cfg.Console, applyOptions(opts)); err != nil {
		return err
	}
	return nil
}

func setupConsole(cfg ConsoleConfig, opts options) error {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return serrors.Wrap("parsing log level", err, "level", cfg.Level)
	}
	encoding := "console"
	if cfg.Format == "json" {
		encoding = "json"
	}
	zapOpts := append(opts.zapOptions(), zap.AddCallerSkip(1))
	if cfg.StacktraceLevel != "none" {
		stacktraceLevel := zap.NewAtomicLevel()
		if err := stacktraceLevel.UnmarshalText([]byte(cfg.StacktraceLevel)); err != nil {
			return serrors.Wrap("parsing stacktrace level", err,
				"level", cfg.StacktraceLevel)
		}
		zapOpts = append(zapOpts, zap.AddStacktrace(stacktraceLevel))
	}
	zCfg := zap.Config{
		Level:             level,
		DisableCaller:     cfg.DisableCaller,
		DisableStacktrace: true,
		Encoding:          encoding,
		EncoderConfig:     cfg.encoderConfig(),
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
	logger, err := zCfg.Build(zapOpts...)
	if err != nil {
		return serrors.Wrap("creating logger", err)
	}
	zap.ReplaceGlobals(logger)
	ConsoleLevel = WrappedLevel{level: &level}
	return nil
}

// ConsoleLevel allows interacting with the console logging level at runtime.
// It is initialized by Setup and serves HTTP in the format understood by
// zap.AtomicLevel.
var ConsoleLevel WrappedLevel

// WrappedLevel wraps the console logging level.
type WrappedLevel struct {
	level *zap.AtomicLevel
}

// ServeHTTP implements an HTTP endpoint to report on or change the console
// logging level.
func (l WrappedLevel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if l.level == nil {
		http.Error(w, "logging is not initialized", http.StatusInternalServerError)
		return
	}
	l.level.ServeHTTP(w, r)
}

// HandlePanic catches panics and logs them.
func HandlePanic() {
	if msg := recover(); msg != nil {
		// If this flag is set, we are inside a test. Rethrow so that the
		// test fails instead of the process exiting.
		if flag.Lookup("test.v") != nil {
			panic(msg)
		}
		zap.L().Error("Panic", zap.Any("msg", msg), zap.Stack("stacktrace"))
		_ = zap.L().Sync()
		os.Exit(255)
	}
}

// Flush writes the logs to the underlying buffer.
func Flush() error {
	return zap.L().Sync()
}

// Discard sets the logger up to discard all log entries. This is useful for
// testing.
func Discard() {
	zap.ReplaceGlobals(zap.NewNop())
}

// Logger describes the logger interface.
type Logger interface {
	// New creates a Logger with additional context attached.
	New(ctx ...any) Logger
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	// Enabled returns whether messages at the given level are logged.
	Enabled(lvl Level) bool
}

type logger struct {
	logger *zap.Logger
}

// New creates a logger with the given context, based on the root logger.
func New(ctx ...any) Logger {
	if len(ctx) == 0 {
		return Root()
	}
	return &logger{logger: zap.L().With(convertCtx(ctx)...)}
}

// Root returns the root logger. It's a logger without any context.
func Root() Logger {
	return &logger{logger: zap.L()}
}

func (l *logger) New(ctx ...any) Logger {
	return &logger{logger: l.logger.With(convertCtx(ctx)...)}
}

func (l *logger) Debug(msg string, ctx ...any) {
	l.logger.Debug(msg, convertCtx(ctx)...)
}

func (l *logger) Info(msg string, ctx ...any) {
	l.logger.Info(msg, convertCtx(ctx)...)
}

func (l *logger) Error(msg string, ctx ...any) {
	l.logger.Error(msg, convertCtx(ctx)...)
}

func (l *logger) Enabled(lvl Level) bool {
	return l.logger.Core().Enabled(lvl)
}

func (l *logger) WithOptions(opts ...zap.Option) Logger {
	return &logger{logger: l.logger.WithOptions(opts...)}
}

// Debug logs at debug level.
func Debug(msg string, ctx ...any) {
	zap.L().Debug(msg, convertCtx(ctx)...)
}

// Info logs at info level.
func Info(msg string, ctx ...any) {
	zap.L().Info(msg, convertCtx(ctx)...)
}

// Error logs at error level.
func Error(msg string, ctx ...any) {
	zap.L().Error(msg, convertCtx(ctx)...)
}

func convertCtx(ctx []any) []zap.Field {
	fields := make([]zap.Field, 0, len(ctx)/2)
	for i := 0; i+1 < len(ctx); i += 2 {
		fields = append(fields, zap.Any(fmt.Sprint(ctx[i]), ctx[i+1]))
	}
	return fields
}

// SafeDebug logs to the logger if it is non-nil.
func SafeDebug(l Logger, msg string, fields ...any) {
	if l != nil {
		if dl, ok := l.(*logger); ok {
			dl.logger.WithOptions(zap.AddCallerSkip(1)).
				Debug(msg, convertCtx(fields)...)
			return
		}
		l.Debug(msg, fields...)
	}
}

// SafeInfo logs to the logger if it is non-nil.
func SafeInfo(l Logger, msg string, fields ...any) {
	if l != nil {
		if dl, ok := l.(*logger); ok {
			dl.logger.WithOptions(zap.AddCallerSkip(1)).
				Info(msg, convertCtx(fields)...)
			return
		}
		l.Info(msg, fields...)
	}
}

// SafeError logs to the logger if it is non-nil.
func SafeError(l Logger, msg string, fields ...any) {
	if l != nil {
		if dl, ok := l.(*logger); ok {
			dl.logger.WithOptions(zap.AddCallerSkip(1)).
				Error(msg, convertCtx(fields)...)
			return
		}
		l.Error(msg, fields...)
	}
}
