package tracing

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentation = "github.com/amaumene/releasarr"

// NewProvider builds a tracer provider that writes finished spans to the
// log at debug level.
func NewProvider(logger zerolog.Logger, ratio float64) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithSyncer(&logExporter{logger: logger}),
	)
}

// Tracer returns the pipeline tracer from provider
func Tracer(provider trace.TracerProvider) trace.Tracer {
	return provider.Tracer(instrumentation)
}

// logExporter implements sdktrace.SpanExporter on top of zerolog
type logExporter struct {
	logger zerolog.Logger
}

func (e *logExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		ev := e.logger.Debug().
			Str("span", s.Name()).
			Str("trace_id", s.SpanContext().TraceID().String()).
			Dur("duration", s.EndTime().Sub(s.StartTime())).
			Str("status", s.Status().Code.String())
		for _, kv := range s.Attributes() {
			ev = withAttr(ev, kv)
		}
		ev.Msg("Span finished")
	}
	return nil
}

func (e *logExporter) Shutdown(context.Context) error {
	return nil
}

func withAttr(ev *zerolog.Event, kv attribute.KeyValue) *zerolog.Event {
	key := string(kv.Key)
	switch kv.Value.Type() {
	case attribute.INT64:
		return ev.Int64(key, kv.Value.AsInt64())
	case attribute.BOOL:
		return ev.Bool(key, kv.Value.AsBool())
	case attribute.FLOAT64:
		return ev.Float64(key, kv.Value.AsFloat64())
	default:
		return ev.Str(key, kv.Value.Emit())
	}
}
