package metrics

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

	"github.com/actionsum/tasktrack/internal/activity"
)

const (
	serviceName    = "tasktrack"
	serviceVersion = "1.0.0"
)

// Config holds the OTLP exporter settings.
type Config struct {
	Enabled  bool
	Endpoint string
	Insecure bool
}

// Recorder records block delivery outcomes as OpenTelemetry instruments.
// It satisfies activity.DeliveryMetrics.
type Recorder struct {
	provider *sdkmetric.MeterProvider

	delivered   metric.Int64Counter
	dropped     metric.Int64Counter
	hoursFailed metric.Int64Counter
	percentage  metric.Int64Histogram
}

var _ activity.DeliveryMetrics = (*Recorder)(nil)

// New builds a Recorder. When export is disabled the instruments are still
// live but nothing leaves the process.
func New(ctx context.Context, cfg Config) (*Recorder, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return newRecorder(sdkmetric.NewMeterProvider())
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

	return newRecorder(provider)
}

// NewWithReader builds a Recorder that feeds the given reader.
func NewWithReader(reader sdkmetric.Reader) (*Recorder, error) {
	return newRecorder(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
}

func newRecorder(provider *sdkmetric.MeterProvider) (*Recorder, error) {
	meter := provider.Meter(serviceName)

	delivered, err := meter.Int64Counter(
		"tasktrack_blocks_delivered_total",
		metric.WithDescription("Activity blocks accepted by the backend"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating delivered counter: %w", err)
	}

	dropped, err := meter.Int64Counter(
		"tasktrack_blocks_dropped_total",
		metric.WithDescription("Activity blocks dropped after a failed delivery"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	hoursFailed, err := meter.Int64Counter(
		"tasktrack_hours_updates_failed_total",
		metric.WithDescription("Actual-hours updates the backend did not accept"),
		metric.WithUnit("{update}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating hours counter: %w", err)
	}

	percentage, err := meter.Int64Histogram(
		"tasktrack_block_activity_percentage",
		metric.WithDescription("Activity percentage of delivered blocks"),
		metric.WithUnit("%"),
		metric.WithExplicitBucketBoundaries(0, 10, 25, 50, 75, 90, 100),
	)
	if err != nil {
		return nil, fmt.Errorf("creating percentage histogram: %w", err)
	}

	return &Recorder{
		provider:    provider,
		delivered:   delivered,
		dropped:     dropped,
		hoursFailed: hoursFailed,
		percentage:  percentage,
	}, nil
}

func (r *Recorder) BlockDelivered(ctx context.Context, score activity.ActivityScore) {
	r.delivered.Add(ctx, 1)
	r.percentage.Record(ctx, int64(score.ActivityPercentage))
}

func (r *Recorder) BlockDropped(ctx context.Context, reason string) {
	r.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (r *Recorder) HoursUpdateFailed(ctx context.Context) {
	r.hoursFailed.Add(ctx, 1)
}

// Shutdown flushes pending metrics and stops the provider.
func (r *Recorder) Shutdown(ctx context.Context) error {
	return r.provider.Shutdown(ctx)
}
