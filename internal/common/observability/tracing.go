package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func newTracerProvider(opts Options) (*sdktrace.TracerProvider, error) {
	ratio := opts.SampleRatio
	if ratio <= 0 {
		ratio = 1
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", opts.ServiceName))),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	}

	if opts.JaegerEndpoint != "" {
		exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(opts.JaegerEndpoint)))
		if err != nil {
			return nil, fmt.Errorf("create jaeger exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exp))
	}
	if opts.SpanProcessor != nil {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(opts.SpanProcessor))
	}

	return sdktrace.NewTracerProvider(tpOpts...), nil
}

// StartSpan starts a child span of whatever span ctx carries.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if o.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// TrackJob opens a span for one job and returns a function that closes it and
// records the job counter and duration with the outcome.
func (o *Observability) TrackJob(ctx context.Context, taskType string, jobKey int64) (context.Context, func(err error)) {
	start := time.Now()
	ctx, span := o.StartSpan(ctx, taskType,
		attribute.String("job.type", taskType),
		attribute.Int64("job.key", jobKey),
	)

	return ctx, func(err error) {
		status := "completed"
		if err != nil {
			status = "failed"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()

		o.RecordJobProcessed(ctx, taskType, status)
		o.RecordJobDuration(ctx, taskType, time.Since(start), status)
	}
}
