package telemetry

import (
	"context"
	"fmt"
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

// Endpoint is one OTLP collector, grpc is preferred when both are set.
type Endpoint struct {
	GrpcEndpoint string            `json:"grpc_endpoint"`
	HttpEndpoint string            `json:"http_endpoint"`
	Headers      map[string]string `json:"headers"`
}

func (e Endpoint) enabled() bool {
	return e.GrpcEndpoint != "" || e.HttpEndpoint != ""
}

func (e Endpoint) protocol() string {
	if e.GrpcEndpoint != "" {
		return "grpc"
	}
	return "http"
}

type OtlpConfig struct {
	Traces  Endpoint `json:"traces"`
	Metrics Endpoint `json:"metrics"`
	// MetricInterval is the export period in seconds, 5 when unset.
	MetricInterval float64 `json:"metric_interval"`
}

// Config is the content of telemetry.json5.
type Config struct {
	Otlp OtlpConfig `json:"otlp"`
	// ServiceVersion is reported with every span and metric.
	ServiceVersion string `json:"service_version"`
}

func newResource(serviceName string, config Config) (*resource.Resource, error) {
	version := config.ServiceVersion
	if version == "" {
		version = "dev"
	}
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
}

// newExporter dials the collector of e with the constructor matching its
// protocol.
func newExporter[T any](
	ctx context.Context,
	signal string,
	e Endpoint,
	grpc func(context.Context) (T, error),
	http func(context.Context) (T, error),
) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*3)
	defer cancel()

	connect := http
	endpoint := e.HttpEndpoint
	if e.protocol() == "grpc" {
		connect = grpc
		endpoint = e.GrpcEndpoint
	}

	exporter, err := connect(ctx)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s exporter at %s: %w", signal, endpoint, err)
	}
	slog.Debug(
		"telemetry exporter initialized",
		"signal", signal,
		"type", e.protocol(),
		"endpoint", endpoint,
		"headers", len(e.Headers) > 0,
	)
	return exporter, nil
}

func newTraceProvider(ctx context.Context, r *resource.Resource, config Config) (*trace.TracerProvider, error) {
	e := config.Otlp.Traces
	exporter, err := newExporter[trace.SpanExporter](
		ctx, "traces", e,
		func(ctx context.Context) (trace.SpanExporter, error) {
			return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(e.GrpcEndpoint), otlptracegrpc.WithHeaders(e.Headers))
		},
		func(ctx context.Context) (trace.SpanExporter, error) {
			return otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(e.HttpEndpoint), otlptracehttp.WithHeaders(e.Headers))
		},
	)
	if err != nil {
		return nil, err
	}
	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(r),
	), nil
}

func newMetricProvider(ctx context.Context, r *resource.Resource, config Config) (*metric.MeterProvider, error) {
	e := config.Otlp.Metrics
	exporter, err := newExporter[metric.Exporter](
		ctx, "metrics", e,
		func(ctx context.Context) (metric.Exporter, error) {
			return otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpointURL(e.GrpcEndpoint), otlpmetricgrpc.WithHeaders(e.Headers))
		},
		func(ctx context.Context) (metric.Exporter, error) {
			return otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(e.HttpEndpoint), otlpmetrichttp.WithHeaders(e.Headers))
		},
	)
	if err != nil {
		return nil, err
	}

	interval := 5 * time.Second
	if config.Otlp.MetricInterval > 0 {
		interval = time.Duration(config.Otlp.MetricInterval * float64(time.Second))
	}
	return metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(interval))),
		metric.WithResource(r),
	), nil
}
