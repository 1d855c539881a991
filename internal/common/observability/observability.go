// internal/common/observability/observability.go
package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Observability bundles the otel meter and tracer used by the dispatcher and
// listener. A nil *Observability is valid and records nothing.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer

	submitCounter   otelmetric.Int64Counter
	submitDuration  otelmetric.Float64Histogram
	responseCounter otelmetric.Int64Counter
}

// New wires an otel meter backed by the Prometheus exporter and an sdk
// tracer provider. Extra tracer options (span processors, samplers) are
// passed through.
func New(serviceName string, opts ...sdktrace.TracerProviderOption) *Observability {
	return newWithExporter(serviceName, nil, opts...)
}

func newWithExporter(serviceName string, exporterOpts []prometheus.Option, opts ...sdktrace.TracerProviderOption) *Observability {
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)

	o := &Observability{
		tracerProvider: tp,
		tracer:         tp.Tracer(serviceName),
	}

	exporter, err := prometheus.New(exporterOpts...)
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return o
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	meter := provider.Meter(serviceName)

	o.meterProvider = provider
	o.submitCounter, _ = meter.Int64Counter(
		"analysis.submissions",
		otelmetric.WithDescription("Number of analysis submissions"),
	)
	o.submitDuration, _ = meter.Float64Histogram(
		"analysis.submit.duration",
		otelmetric.WithDescription("Submission latency including the wait for a response"),
		otelmetric.WithUnit("ms"),
	)
	o.responseCounter, _ = meter.Int64Counter(
		"analysis.responses",
		otelmetric.WithDescription("Number of response frames handled"),
	)
	return o
}

// StartSpan starts a span on the gateway tracer.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if o == nil || o.tracer == nil {
		return noop.NewTracerProvider().Tracer("").Start(ctx, name)
	}
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (o *Observability) RecordSubmission(ctx context.Context, outcome string, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(attribute.String("outcome", outcome))
	if o.submitCounter != nil {
		o.submitCounter.Add(ctx, 1, attrs)
	}
	if o.submitDuration != nil {
		o.submitDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) RecordResponse(ctx context.Context, outcome string) {
	if o == nil || o.responseCounter == nil {
		return
	}
	o.responseCounter.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("outcome", outcome)))
}

func (o *Observability) Shutdown() {
	if o == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
}
