package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/ReOpAu/react-starter-kit-sub002"

// Metrics holds all application metrics
type Metrics struct {
	RequestCount        metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	CacheHitCount       metric.Int64Counter
	CacheMissCount      metric.Int64Counter
	CacheWriteCount     metric.Int64Counter
	CachePreservedCount metric.Int64Counter
	OperationDuration   metric.Float64Histogram
	OperationErrorCount metric.Int64Counter
	AlertCount          metric.Int64Counter
	TelemetryEventCount metric.Int64Counter
}

// Setup initializes OpenTelemetry. A Prometheus reader is always installed so
// /metrics works; OTLP trace and metric exporters are added when endpoint is set.
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	promExporter, err := prometheus.New()
	if err != nil {
		return nil, err
	}

	meterOpts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExporter),
	}

	var tracerProvider *sdktrace.TracerProvider
	if endpoint != "" {
		traceExporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, err
		}

		metricExporter, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return nil, err
		}
		meterOpts = append(meterOpts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(15*time.Second)),
		))

		tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(traceExporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tracerProvider)
	}

	meterProvider := sdkmetric.NewMeterProvider(meterOpts...)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if err := runtime.Start(runtime.WithMinimumReadMemStatsInterval(time.Second)); err != nil {
		return nil, err
	}

	shutdown := func(ctx context.Context) error {
		var errs []error
		if tracerProvider != nil {
			errs = append(errs, tracerProvider.Shutdown(ctx))
		}
		errs = append(errs, meterProvider.Shutdown(ctx))
		return errors.Join(errs...)
	}

	return shutdown, nil
}

// InitMetrics initializes application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)
	m := &Metrics{}
	var err error

	if m.RequestCount, err = meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Number of HTTP requests"),
	); err != nil {
		return nil, err
	}
	if m.RequestDuration, err = meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.CacheHitCount, err = meter.Int64Counter(
		"address.cache.hit.count",
		metric.WithDescription("Number of result cache hits"),
	); err != nil {
		return nil, err
	}
	if m.CacheMissCount, err = meter.Int64Counter(
		"address.cache.miss.count",
		metric.WithDescription("Number of result cache misses"),
	); err != nil {
		return nil, err
	}
	if m.CacheWriteCount, err = meter.Int64Counter(
		"address.cache.write.count",
		metric.WithDescription("Number of result cache writes"),
	); err != nil {
		return nil, err
	}
	if m.CachePreservedCount, err = meter.Int64Counter(
		"address.cache.preserved.count",
		metric.WithDescription("Number of writes dropped to preserve a larger result set"),
	); err != nil {
		return nil, err
	}
	if m.OperationDuration, err = meter.Float64Histogram(
		"address.operation.duration",
		metric.WithDescription("Orchestration operation duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.OperationErrorCount, err = meter.Int64Counter(
		"address.operation.error.count",
		metric.WithDescription("Number of failed orchestration operations"),
	); err != nil {
		return nil, err
	}
	if m.AlertCount, err = meter.Int64Counter(
		"address.alert.count",
		metric.WithDescription("Number of alerts raised"),
	); err != nil {
		return nil, err
	}
	if m.TelemetryEventCount, err = meter.Int64Counter(
		"address.telemetry.event.count",
		metric.WithDescription("Number of telemetry events emitted"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	tracer := otel.Tracer(instrumentationName)
	return tracer.Start(ctx, spanName)
}

// RecordError records an error in the current span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}

// SetSpanAttributes sets attributes on a span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

// RecordRequestMetric records an HTTP request
func RecordRequestMetric(ctx context.Context, metrics *Metrics, method, path string, statusCode int, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.status_code", statusCode),
	)

	metrics.RequestCount.Add(ctx, 1, attrs)
	metrics.RequestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordCacheAccess records a result cache lookup
func RecordCacheAccess(ctx context.Context, metrics *Metrics, namespace string, hit bool) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("cache.namespace", namespace))
	if hit {
		metrics.CacheHitCount.Add(ctx, 1, attrs)
		return
	}
	metrics.CacheMissCount.Add(ctx, 1, attrs)
}

// RecordCacheWrite records a result cache write or a preserved (dropped) write
func RecordCacheWrite(ctx context.Context, metrics *Metrics, namespace string, preserved bool) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("cache.namespace", namespace))
	if preserved {
		metrics.CachePreservedCount.Add(ctx, 1, attrs)
		return
	}
	metrics.CacheWriteCount.Add(ctx, 1, attrs)
}

// RecordOperation records an orchestration operation sample
func RecordOperation(ctx context.Context, metrics *Metrics, operation string, durationMs float64, failed bool) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("operation", operation))
	metrics.OperationDuration.Record(ctx, durationMs, attrs)
	if failed {
		metrics.OperationErrorCount.Add(ctx, 1, attrs)
	}
}

// RecordAlert records an alert by type and severity
func RecordAlert(ctx context.Context, metrics *Metrics, alertType, severity string) {
	if metrics == nil {
		return
	}
	metrics.AlertCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("alert.type", alertType),
		attribute.String("alert.severity", severity),
	))
}

// RecordTelemetryEvent records a telemetry event by type
func RecordTelemetryEvent(ctx context.Context, metrics *Metrics, eventType string) {
	if metrics == nil {
		return
	}
	metrics.TelemetryEventCount.Add(ctx, 1, metric.WithAttributes(attribute.String("event.type", eventType)))
}
