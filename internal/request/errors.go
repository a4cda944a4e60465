package request

import (
	"errors"
	"fmt"

	"github.com/torosent/poi/internal/override"
)

// ErrUnsupportedContentType is returned when the effective Content-Type has
// no body encoding.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// OverrideError reports an override value that could not be applied.
type OverrideError struct {
	Kind override.Kind
	Key  string
	Err  error
}

func (e *OverrideError) Error() string {
	return fmt.Sprintf("malformed %s override %q: %v", e.Kind, e.Key, e.Err)
}

func (e *OverrideError) Unwrap() error {
	return e.Err
}

// TransportError wraps a failure to obtain any HTTP response.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("HTTP transport: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
