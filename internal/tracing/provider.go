// Package tracing exports spans for batch rows and the profile requests they
// send, and carries W3C trace context on those requests.
package tracing

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/torosent/poi/internal/config"
)

const (
	scopeName          = "github.com/torosent/poi"
	defaultServiceName = "poi"
)

// Resource attribute keys stamped on every exported span.
const (
	RunIDKey   = attribute.Key("poi.run.id")
	CommandKey = attribute.Key("poi.command")
)

// Run identifies the poi invocation whose spans are exported.
type Run struct {
	ID      string
	Command string
	Version string
}

// Provider owns the tracer used for rows and requests. The zero value and a
// nil *Provider record nothing.
type Provider struct {
	tp        *sdktrace.TracerProvider
	tracer    trace.Tracer
	propagate bool
}

// Init sets up span export for run. Without an OTLP endpoint nothing is
// exported, but an explicit propagation setting is still honored. The
// sample rate and protocol are checked before any exporter is dialed.
func Init(ctx context.Context, cfg config.TracingConfig, run Run) (*Provider, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if endpoint == "" {
		return &Provider{propagate: cfg.ShouldPropagate()}, nil
	}

	sampler, err := samplerFor(cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	dial, err := exporterFor(cfg.Protocol)
	if err != nil {
		return nil, err
	}
	res, err := newResource(ctx, cfg, run)
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}
	exporter, err := dial(ctx, endpoint, cfg.Insecure)
	if err != nil {
		return nil, fmt.Errorf("tracing exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return newProvider(tp, cfg.ShouldPropagate()), nil
}

func newProvider(tp *sdktrace.TracerProvider, propagate bool) *Provider {
	return &Provider{tp: tp, tracer: tp.Tracer(scopeName), propagate: propagate}
}

// newResource describes the service and the run. OTEL_SERVICE_NAME applies
// when the config leaves the name empty.
func newResource(ctx context.Context, cfg config.TracingConfig, run Run) (*resource.Resource, error) {
	name := cfg.ServiceName
	if name == "" {
		name = os.Getenv("OTEL_SERVICE_NAME")
	}
	if name == "" {
		name = defaultServiceName
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(name)}
	if run.Version != "" {
		attrs = append(attrs, semconv.ServiceVersion(run.Version))
	}
	if run.ID != "" {
		attrs = append(attrs, RunIDKey.String(run.ID))
	}
	if run.Command != "" {
		attrs = append(attrs, CommandKey.String(run.Command))
	}
	return resource.New(ctx, resource.WithAttributes(attrs...))
}

func samplerFor(rate float64) (sdktrace.Sampler, error) {
	switch {
	case rate < 0 || rate > 1:
		return nil, fmt.Errorf("tracing sample rate must be between 0.0 and 1.0, got %g", rate)
	case rate == 0:
		return sdktrace.NeverSample(), nil
	case rate == 1:
		return sdktrace.AlwaysSample(), nil
	}
	return sdktrace.TraceIDRatioBased(rate), nil
}

type dialFunc func(ctx context.Context, endpoint string, insecure bool) (sdktrace.SpanExporter, error)

func exporterFor(protocol string) (dialFunc, error) {
	switch strings.ToLower(protocol) {
	case "", "grpc":
		return dialGRPC, nil
	case "http":
		return dialHTTP, nil
	}
	return nil, fmt.Errorf("unsupported OTLP protocol %q: use \"grpc\" or \"http\"", protocol)
}

func dialGRPC(ctx context.Context, endpoint string, plaintext bool) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
	if plaintext {
		opts = append(opts,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	return otlptracegrpc.New(ctx, opts...)
}

func dialHTTP(ctx context.Context, endpoint string, plaintext bool) (sdktrace.SpanExporter, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if plaintext {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return otlptracehttp.New(ctx, opts...)
}

// Tracer returns the run's tracer, or a no-op tracer when nothing is exported.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil || p.tracer == nil {
		return noop.NewTracerProvider().Tracer(scopeName)
	}
	return p.tracer
}

// Exporting reports whether spans leave the process.
func (p *Provider) Exporting() bool {
	return p != nil && p.tp != nil
}

// ShouldPropagate reports whether outgoing requests carry trace headers.
func (p *Provider) ShouldPropagate() bool {
	return p != nil && p.propagate
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.Exporting() {
		return nil
	}
	return p.tp.Shutdown(ctx)
}
