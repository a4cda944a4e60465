// Package request implements reusable HTTP request templates that are merged
// with per-invocation overrides before dispatch.
package request

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/torosent/poi/internal/jsonobj"
)

// Profile is an immutable HTTP request template. It is safe to share between
// goroutines; every merge works on copies.
type Profile struct {
	Method  string
	URL     *url.URL
	Params  *jsonobj.Object
	Headers http.Header
	Body    *jsonobj.Object
}

// New builds a validated profile. An empty method defaults to GET. Params and
// body may be nil.
func New(method, rawURL string, params *jsonobj.Object, headers map[string]string, body *jsonobj.Object) (*Profile, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}

	target := strings.TrimSpace(rawURL)
	if target == "" {
		return nil, errors.New("url is required")
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("url: %w", err)
	}

	h := http.Header{}
	for key, value := range headers {
		if err := setHeader(h, key, value); err != nil {
			return nil, err
		}
	}

	p := &Profile{
		Method:  method,
		URL:     u,
		Params:  params,
		Headers: h,
		Body:    body,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the invariants New establishes. It is exported so profiles
// assembled by hand can be checked before use.
func (p *Profile) Validate() error {
	if p == nil {
		return errors.New("profile cannot be nil")
	}
	if p.Method == "" || strings.ContainsAny(p.Method, " \t\r\n") {
		return fmt.Errorf("invalid method %q", p.Method)
	}
	if p.URL == nil {
		return errors.New("url is required")
	}
	if !p.URL.IsAbs() || p.URL.Host == "" {
		return fmt.Errorf("url %q must be absolute", p.URL.String())
	}
	for key, values := range p.Headers {
		if err := validateHeader(key, strings.Join(values, "")); err != nil {
			return err
		}
	}
	return nil
}

// FromURL builds a GET profile from a URL, moving its query string into
// Params. Query values that are valid JSON keep their type.
func FromURL(raw string) (*Profile, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("url: %w", err)
	}

	params := jsonobj.New()
	for _, part := range strings.Split(u.RawQuery, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		if key, err = url.QueryUnescape(key); err != nil {
			return nil, fmt.Errorf("query key: %w", err)
		}
		if value, err = url.QueryUnescape(value); err != nil {
			return nil, fmt.Errorf("query value for %q: %w", key, err)
		}
		if value != "" && gjson.Valid(value) {
			_ = params.Set(key, []byte(value))
			continue
		}
		params.SetString(key, value)
	}

	stripped := *u
	stripped.RawQuery = ""
	stripped.ForceQuery = false

	p := &Profile{
		Method:  http.MethodGet,
		URL:     &stripped,
		Params:  params,
		Headers: http.Header{},
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func setHeader(h http.Header, key, value string) error {
	trimmedKey := strings.TrimSpace(key)
	if err := validateHeader(trimmedKey, value); err != nil {
		return err
	}
	h.Set(http.CanonicalHeaderKey(trimmedKey), value)
	return nil
}

func validateHeader(key, value string) error {
	if key == "" || strings.ContainsAny(key, "\r\n: \t") {
		return fmt.Errorf("invalid header key %q", key)
	}
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("invalid header value for %s", http.CanonicalHeaderKey(key))
	}
	return nil
}
