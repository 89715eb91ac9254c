package telemetry

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

/*
LEARNING: JAEGER INTEGRATION FOR DISTRIBUTED TRACING

Jaeger is a distributed tracing system originally developed by Uber.
It helps you:
1. Visualize request flows through your system
2. Find performance bottlenecks
3. Debug errors with full context
4. Analyze service dependencies

Architecture:
  Your App → OpenTelemetry SDK → Jaeger Exporter → Jaeger Collector → Jaeger UI

OpenTelemetry is vendor-neutral, so you can swap Jaeger for other backends
(like Zipkin, Datadog, New Relic) without changing your code!
*/

// Options describes the service in traces and how many of them to keep.
type Options struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	// SamplingRatio in [0,1]; 1 keeps every trace.
	SamplingRatio float64
}

// InitJaeger initializes Jaeger tracing exporter
// Returns a cleanup function that should be called on shutdown
func InitJaeger(opts Options) (func(context.Context) error, error) {
	// Create Jaeger exporter
	// Learning: This sends traces to Jaeger collector
	exp, err := jaeger.New(
		jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(opts.Endpoint)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}

	// Create resource with service information
	// Learning: Resource identifies your service in Jaeger UI. It is schemaless
	// so it merges with the SDK default regardless of semconv version.
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(opts.ServiceName),
			semconv.ServiceVersion(opts.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// Create trace provider with Jaeger exporter
	// Learning: TracerProvider is the central point for creating tracers
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp), // Batch spans for efficiency
		sdktrace.WithResource(res),
		sdktrace.WithSampler(Sampler(opts.SamplingRatio)),
	)

	// Set global tracer provider
	// Learning: This makes the tracer available throughout your app
	otel.SetTracerProvider(tp)

	log.Printf("✓ Jaeger tracing initialized: %s (sampling %.2f)", opts.Endpoint, opts.SamplingRatio)

	// Return cleanup function
	// Learning: Always flush traces on shutdown!
	return tp.Shutdown, nil
}

// Sampler follows the parent's decision and samples root spans at ratio.
// A ratio of 1 or more samples everything; 0 or less samples nothing.
func Sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

/*
SAMPLING STRATEGIES (Production Considerations)

1. AlwaysSample() - Sample 100% of traces
   - ✅ Good for: Development, debugging
   - ❌ Bad for: High-traffic production (expensive!)

2. TraceIDRatioBased(0.1) - Sample 10% of traces
   - ✅ Good for: Production with high traffic
   - ⚠️  May miss rare errors

3. ParentBased(AlwaysSample()) - Follow parent's sampling decision
   - ✅ Good for: Microservices (consistent across services)

Example production config:
  sdktrace.WithSampler(
      sdktrace.ParentBased(
          sdktrace.TraceIDRatioBased(0.1), // 10% sampling
      ),
  )
*/
