// Package telemetry exports store operation metrics over OTLP.
package telemetry

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kylerisse/metricstore/pkg/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	serviceName    = "metricstore"
	serviceVersion = "1.0.0"
)

// Observer is a store.Observer that can be flushed and shut down.
type Observer interface {
	store.Observer
	Close(ctx context.Context) error
}

// Exporter records store operations as OTLP metrics.
type Exporter struct {
	provider   *sdkmetric.MeterProvider
	operations metric.Int64Counter
	duration   metric.Float64Histogram
}

// NewExporter creates an exporter that pushes to cfg.Endpoint.
func NewExporter(ctx context.Context, cfg Config) (*Exporter, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTEL exporter is disabled or endpoint not configured")
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}
	e, err := newWithReader(ctx, sdkmetric.NewPeriodicReader(exp))
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(e.provider)
	return e, nil
}

func newWithReader(ctx context.Context, reader sdkmetric.Reader) (*Exporter, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)
	meter := provider.Meter(serviceName)

	operations, err := meter.Int64Counter(
		"metricstore_operations_total",
		metric.WithDescription("Store operations by store, op and outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating operations counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		"metricstore_operation_duration_seconds",
		metric.WithDescription("Store operation latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return &Exporter{
		provider:   provider,
		operations: operations,
		duration:   duration,
	}, nil
}

// Observe records one store operation.
func (e *Exporter) Observe(o store.Observation) {
	ctx := context.Background()
	opt := metric.WithAttributes(
		attribute.String("store", o.Store),
		attribute.String("op", string(o.Op)),
		attribute.String("success", strconv.FormatBool(o.Success)),
	)
	e.operations.Add(ctx, 1, opt)
	e.duration.Record(ctx, o.Duration.Seconds(), opt)
}

// Close shuts down the exporter and flushes any pending metrics.
func (e *Exporter) Close(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}

// NoOp is an Observer that does nothing.
type NoOp struct{}

// NewNoOp creates a no-op observer for when export is disabled.
func NewNoOp() *NoOp {
	return &NoOp{}
}

func (*NoOp) Observe(store.Observation) {}

func (*NoOp) Close(context.Context) error {
	return nil
}

// New returns an Exporter when cfg enables export and a NoOp otherwise.
func New(ctx context.Context, cfg Config) (Observer, error) {
	if !cfg.Enabled {
		return NewNoOp(), nil
	}
	return NewExporter(ctx, cfg)
}
