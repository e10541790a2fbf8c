package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/emiliopalmerini/promptlab/internal/domain"
)

const (
	serviceName    = "promptlab"
	serviceVersion = "1.0.0"
)

// Exporter exports engine activity to an OTEL Collector.
type Exporter struct {
	provider       *sdkmetric.MeterProvider
	meter          metric.Meter
	outcomesTotal  metric.Int64Counter
	transfersTotal metric.Int64Counter
	qualityHist    metric.Float64Histogram
	durationHist   metric.Float64Histogram
	lifecycleTotal metric.Int64Counter
}

// NewExporter creates a new OTEL metrics exporter.
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
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	outcomesTotal, err := meter.Int64Counter(
		"promptlab_outcomes_total",
		metric.WithDescription("Call outcomes recorded per test and variant"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating outcomes counter: %w", err)
	}

	transfersTotal, err := meter.Int64Counter(
		"promptlab_operator_transfers_total",
		metric.WithDescription("Calls handed off to a human operator"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transfers counter: %w", err)
	}

	qualityHist, err := meter.Float64Histogram(
		"promptlab_call_quality_score",
		metric.WithDescription("Composite quality score per scored call"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating quality histogram: %w", err)
	}

	durationHist, err := meter.Float64Histogram(
		"promptlab_call_duration_seconds",
		metric.WithDescription("Call duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	lifecycleTotal, err := meter.Int64Counter(
		"promptlab_test_lifecycle_total",
		metric.WithDescription("Test lifecycle events by type"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating lifecycle counter: %w", err)
	}

	return &Exporter{
		provider:       provider,
		meter:          meter,
		outcomesTotal:  outcomesTotal,
		transfersTotal: transfersTotal,
		qualityHist:    qualityHist,
		durationHist:   durationHist,
		lifecycleTotal: lifecycleTotal,
	}, nil
}

// ExportOutcome exports one recorded call outcome.
func (e *Exporter) ExportOutcome(ctx context.Context, testName string, o *domain.CallOutcome) error {
	attrs := []attribute.KeyValue{
		attribute.String("test_id", o.TestID),
		attribute.String("test_name", testName),
		attribute.String("variant", string(o.Variant)),
	}
	if o.Scenario != "" {
		attrs = append(attrs, attribute.String("scenario", o.Scenario))
	}

	opt := metric.WithAttributes(attrs...)

	e.outcomesTotal.Add(ctx, 1, opt)
	if o.Transferred {
		e.transfersTotal.Add(ctx, 1, opt)
	}
	if o.QualityScore != nil {
		e.qualityHist.Record(ctx, *o.QualityScore, opt)
	}
	e.durationHist.Record(ctx, float64(o.DurationSeconds), opt)

	return nil
}

// ExportLifecycle exports a test lifecycle event.
func (e *Exporter) ExportLifecycle(ctx context.Context, testName, event string) error {
	e.lifecycleTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("test_name", testName),
		attribute.String("event", event),
	))
	return nil
}

// Close shuts down the exporter and flushes any pending metrics.
func (e *Exporter) Close(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}
