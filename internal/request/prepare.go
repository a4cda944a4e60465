package request

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/torosent/poi/internal/jsonobj"
	"github.com/torosent/poi/internal/override"
)

// DefaultContentType is applied when neither the profile nor the overrides
// set a Content-Type header.
const DefaultContentType = "application/json"

// ContentType is a supported body encoding.
type ContentType int

const (
	ContentJSON ContentType = iota
	ContentForm
)

func (c ContentType) String() string {
	switch c {
	case ContentJSON:
		return "json"
	case ContentForm:
		return "form"
	default:
		return fmt.Sprintf("content(%d)", int(c))
	}
}

// ParseContentType maps a Content-Type header value to a body encoding.
// Only the media type before ';' is considered, case-insensitively.
func ParseContentType(value string) (ContentType, error) {
	mediaType, _, _ := strings.Cut(value, ";")
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case "application/json":
		return ContentJSON, nil
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return ContentForm, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedContentType, value)
	}
}

// Prepared is the outcome of merging a profile with an override set. It owns
// all of its data.
type Prepared struct {
	Method      string
	URL         *url.URL
	Header      http.Header
	Query       *jsonobj.Object
	Body        []byte
	ContentType ContentType
}

// Prepare merges set into copies of the profile's defaults. Header overrides
// insert or replace, query overrides are stored as JSON strings and body
// overrides must be valid JSON. The profile itself is never modified.
func (p *Profile) Prepare(set override.Set) (*Prepared, error) {
	header := p.Headers.Clone()
	if header == nil {
		header = http.Header{}
	}
	query := p.Params.Clone()
	body := p.Body.Clone()

	err := set.Each(func(kind override.Kind, pair override.Pair) error {
		switch kind {
		case override.KindHeader:
			if err := setHeader(header, pair.Key, pair.Value); err != nil {
				return &OverrideError{Kind: kind, Key: pair.Key, Err: err}
			}
		case override.KindQuery:
			query.SetString(pair.Key, pair.Value)
		case override.KindBody:
			if err := body.Set(pair.Key, []byte(pair.Value)); err != nil {
				return &OverrideError{Kind: kind, Key: pair.Key, Err: jsonobj.ErrInvalidJSON}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(header.Values("Content-Type")) == 0 {
		header.Set("Content-Type", DefaultContentType)
	}
	contentType, err := ParseContentType(header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	target, err := withQuery(p.URL, query)
	if err != nil {
		return nil, err
	}

	var encoded []byte
	if body.Len() > 0 || !bodyless(p.Method) {
		encoded, err = encodeBody(body, contentType)
		if err != nil {
			return nil, err
		}
	}

	return &Prepared{
		Method:      p.Method,
		URL:         target,
		Header:      header,
		Query:       query,
		Body:        encoded,
		ContentType: contentType,
	}, nil
}

// FinalURL returns the final request URL for set without sending anything.
func (p *Profile) FinalURL(set override.Set) (string, error) {
	prepared, err := p.Prepare(set)
	if err != nil {
		return "", err
	}
	return prepared.URL.String(), nil
}

// NewRequest builds an *http.Request bound to ctx.
func (r *Prepared) NewRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header = r.Header.Clone()
	return req, nil
}

func withQuery(base *url.URL, query *jsonobj.Object) (*url.URL, error) {
	target := *base
	encoded, err := query.EncodeForm()
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	if encoded == "" {
		return &target, nil
	}
	if target.RawQuery != "" {
		target.RawQuery += "&" + encoded
	} else {
		target.RawQuery = encoded
	}
	return &target, nil
}

func encodeBody(body *jsonobj.Object, contentType ContentType) ([]byte, error) {
	switch contentType {
	case ContentForm:
		text, err := body.EncodeForm()
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		return []byte(text), nil
	default:
		return body.MarshalJSON()
	}
}

func bodyless(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}
