package request

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/torosent/poi/internal/extractor"
	"github.com/torosent/poi/internal/override"
)

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Response wraps a received HTTP response whose body has not been read.
// Any status code counts as a response; callers decide what non-2xx means.
type Response struct {
	*http.Response
}

// Send merges set into the profile, builds the request and performs exactly
// one network call.
func (p *Profile) Send(ctx context.Context, doer Doer, set override.Set) (*Response, error) {
	prepared, err := p.Prepare(set)
	if err != nil {
		return nil, err
	}
	req, err := prepared.NewRequest(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := doer.Do(req)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: req.URL.Redacted(), Err: err}
	}
	return &Response{Response: resp}, nil
}

// StatusText returns the status line, e.g. "200 OK".
func (r *Response) StatusText() string {
	if r.Status != "" {
		return r.Status
	}
	return fmt.Sprintf("%d %s", r.StatusCode, http.StatusText(r.StatusCode))
}

// HeaderKeys returns the canonical response header names, sorted.
func (r *Response) HeaderKeys() []string {
	keys := make([]string, 0, len(r.Header))
	for key := range r.Header {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Results reads and closes the body, then applies the response profile.
func (r *Response) Results(profile extractor.Profile, logger extractor.Logger) (extractor.Record, error) {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return extractor.Record{}, fmt.Errorf("read response body: %w", err)
	}
	rec, err := extractor.Results(body, profile, logger)
	if err != nil {
		return extractor.Record{}, fmt.Errorf("%s: %w", r.StatusText(), err)
	}
	return rec, nil
}
