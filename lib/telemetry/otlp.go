package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// an OpenTelemetry collector running next to the tracker
const (
	DefaultTracesEndpoint  = "http://127.0.0.1:4318/v1/traces"
	DefaultMetricsEndpoint = "http://127.0.0.1:4318/v1/metrics"

	// ticks run every couple of seconds, counters are exported less often
	DefaultExportInterval = 15 * time.Second
)

// OtlpConnConfig picks the grpc exporter when GrpcEndpoint is set and the
// http exporter otherwise.
type OtlpConnConfig struct {
	GrpcEndpoint string            `json:"grpc_endpoint"`
	HttpEndpoint string            `json:"http_endpoint"`
	Headers      map[string]string `json:"headers"`
}

func (c OtlpConnConfig) withDefaultEndpoint(endpoint string) OtlpConnConfig {
	if c.GrpcEndpoint == "" && c.HttpEndpoint == "" {
		c.HttpEndpoint = endpoint
	}
	return c
}

type OtlpConfig struct {
	Traces  OtlpConnConfig `json:"traces"`
	Metrics OtlpConnConfig `json:"metrics"`
	// ExportInterval is a duration string, DefaultExportInterval when empty.
	ExportInterval string `json:"export_interval"`
}

// Config is the contents of telemetry.json5.
type Config struct {
	Otlp OtlpConfig `json:"otlp"`
	// Environment ends up as deployment.environment, ex. "dev".
	Environment string `json:"environment"`
}

// withDefaults fills in what an empty telemetry.json5 leaves out.
func (c Config) withDefaults() Config {
	c.Otlp.Traces = c.Otlp.Traces.withDefaultEndpoint(DefaultTracesEndpoint)
	c.Otlp.Metrics = c.Otlp.Metrics.withDefaultEndpoint(DefaultMetricsEndpoint)
	return c
}

func (c Config) exportInterval() time.Duration {
	interval, err := time.ParseDuration(c.Otlp.ExportInterval)
	if err != nil || interval <= 0 {
		if c.Otlp.ExportInterval != "" {
			slog.Warn("invalid otlp export_interval, using the default", "value", c.Otlp.ExportInterval)
		}
		return DefaultExportInterval
	}
	return interval
}

func newResource(ctx context.Context, serviceName string, config Config) (*resource.Resource, error) {
	attributes := resource.WithAttributes(
		semconv.ServiceName(serviceName),
		semconv.ServiceNamespace("punchsync"),
	)
	options := []resource.Option{
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithProcessPID(),
		attributes,
	}
	if config.Environment != "" {
		options = append(options, resource.WithAttributes(
			semconv.DeploymentEnvironment(config.Environment),
		))
	}
	return resource.New(ctx, options...)
}

func newTraceProvider(ctx context.Context, r *resource.Resource, config Config) (*trace.TracerProvider, error) {
	exporter, err := newSpanExporter(ctx, config.Otlp.Traces)
	if err != nil {
		return nil, err
	}
	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(r),
	), nil
}

func newSpanExporter(ctx context.Context, conn OtlpConnConfig) (trace.SpanExporter, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*3)
	defer cancel()

	if conn.GrpcEndpoint != "" {
		slog.Info("span exporter initialized", "type", "grpc", "endpoint", conn.GrpcEndpoint)
		return otlptracegrpc.New(
			ctx,
			otlptracegrpc.WithEndpointURL(conn.GrpcEndpoint),
			otlptracegrpc.WithHeaders(conn.Headers),
		)
	}
	slog.Info("span exporter initialized", "type", "http", "endpoint", conn.HttpEndpoint)
	return otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpointURL(conn.HttpEndpoint),
		otlptracehttp.WithHeaders(conn.Headers),
	)
}

func newMetricProvider(ctx context.Context, r *resource.Resource, config Config) (*metric.MeterProvider, error) {
	exporter, err := newMetricExporter(ctx, config.Otlp.Metrics)
	if err != nil {
		return nil, err
	}
	reader := metric.NewPeriodicReader(exporter, metric.WithInterval(config.exportInterval()))
	return metric.NewMeterProvider(
		metric.WithReader(reader),
		metric.WithResource(r),
	), nil
}

func newMetricExporter(ctx context.Context, conn OtlpConnConfig) (metric.Exporter, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*3)
	defer cancel()

	if conn.GrpcEndpoint != "" {
		slog.Info("metric exporter initialized", "type", "grpc", "endpoint", conn.GrpcEndpoint)
		return otlpmetricgrpc.New(
			ctx,
			otlpmetricgrpc.WithEndpointURL(conn.GrpcEndpoint),
			otlpmetricgrpc.WithHeaders(conn.Headers),
		)
	}
	slog.Info("metric exporter initialized", "type", "http", "endpoint", conn.HttpEndpoint)
	return otlpmetrichttp.New(
		ctx,
		otlpmetrichttp.WithEndpointURL(conn.HttpEndpoint),
		otlpmetrichttp.WithHeaders(conn.Headers),
	)
}
