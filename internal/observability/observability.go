// Package observability configures process-wide structured logging.
//
// Logs always go to stderr through a slog text or JSON handler. Optionally
// they are also exported through the OpenTelemetry log SDK, to stdout or to
// an OTLP collector over HTTP or gRPC. Exporter endpoints are configured with
// the standard OTEL_EXPORTER_OTLP_* environment variables.
package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// instrumentationName identifies this module as the log source in exported records.
const instrumentationName = "github.com/florianilch/jwtgate"

// Format is the local log output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Export selects where logs are exported in addition to stderr.
type Export string

const (
	ExportNone     Export = "none"
	ExportStdout   Export = "stdout"
	ExportOTLPHTTP Export = "otlp-http"
	ExportOTLPGRPC Export = "otlp-grpc"
)

// Options describes the logging setup.
type Options struct {
	Level  slog.Level
	Format Format
	Export Export

	// Output receives local logs. Defaults to os.Stderr.
	Output io.Writer
}

// ShutdownFunc flushes and stops exporters.
type ShutdownFunc func(context.Context) error

// Instrument installs the configured logger as slog.Default and returns a
// function that flushes pending exports. The returned function is never nil.
func Instrument(ctx context.Context, opts Options) (ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }

	logger, shutdown, err := NewLogger(ctx, opts)
	if err != nil {
		return noop, err
	}

	slog.SetDefault(logger)
	return shutdown, nil
}

// NewLogger builds a logger for opts without installing it globally.
func NewLogger(ctx context.Context, opts Options) (*slog.Logger, ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	local, err := localHandler(out, opts)
	if err != nil {
		return nil, noop, err
	}

	if opts.Export == "" || opts.Export == ExportNone {
		return slog.New(local), noop, nil
	}

	exporter, err := newExporter(ctx, opts.Export)
	if err != nil {
		return nil, noop, fmt.Errorf("creating %s log exporter: %w", opts.Export, err)
	}

	processor := minsev.NewLogProcessor(sdklog.NewBatchProcessor(exporter), severity(opts.Level))
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(processor))
	global.SetLoggerProvider(provider)

	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		// Written to the local handler only, exporting export failures would loop.
		_ = local.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelWarn, "otel: "+err.Error(), 0))
	}))

	exported := otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(provider))

	return slog.New(fanout{local, exported}), provider.Shutdown, nil
}

func localHandler(out io.Writer, opts Options) (slog.Handler, error) {
	handlerOpts := &slog.HandlerOptions{Level: opts.Level}

	switch opts.Format {
	case FormatText, "":
		return slog.NewTextHandler(out, handlerOpts), nil
	case FormatJSON:
		return slog.NewJSONHandler(out, handlerOpts), nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s", opts.Format)
	}
}

func newExporter(ctx context.Context, export Export) (sdklog.Exporter, error) {
	switch export {
	case ExportStdout:
		return stdoutlog.New()
	case ExportOTLPHTTP:
		return otlploghttp.New(ctx)
	case ExportOTLPGRPC:
		return otlploggrpc.New(ctx)
	default:
		return nil, errors.New("unsupported log export: " + string(export))
	}
}

// severity maps a slog level to the minimum exported severity.
func severity(level slog.Level) minsev.Severity {
	switch {
	case level <= slog.LevelDebug:
		return minsev.SeverityDebug
	case level <= slog.LevelInfo:
		return minsev.SeverityInfo
	case level <= slog.LevelWarn:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
