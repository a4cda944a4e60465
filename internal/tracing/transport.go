package tracing

import (
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
)

// WrapTransport returns a RoundTripper that opens a client span around every
// request and, when propagation is on, injects the trace headers. A nil base
// uses http.DefaultTransport.
func (p *Provider) WrapTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &transport{base: base, provider: p}
}

type transport struct {
	base     http.RoundTripper
	provider *Provider
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, span := StartRequestSpan(req.Context(), t.provider.Tracer(), req.Method, req.URL.Path)
	span.SetAttributes(
		attribute.String("server.address", req.URL.Hostname()),
		attribute.String("url.full", req.URL.Redacted()),
	)

	outgoing := req.Clone(ctx)
	if t.provider.ShouldPropagate() {
		InjectHTTPHeaders(ctx, outgoing.Header)
	}

	resp, err := t.base.RoundTrip(outgoing)
	if err != nil {
		EndSpan(span, err)
		return nil, err
	}

	status := attribute.Int("http.response.status_code", resp.StatusCode)
	if resp.StatusCode >= http.StatusInternalServerError {
		EndSpan(span, fmt.Errorf("server responded %s", resp.Status), status)
	} else {
		EndSpan(span, nil, status)
	}
	return resp, nil
}
