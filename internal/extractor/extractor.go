// Package extractor turns JSON response bodies into flat, ordered records
// using a declarative mapping from dotted paths to output field names.
package extractor

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/torosent/poi/internal/jsonobj"
)

// ErrInvalidJSON is returned when a response body cannot be parsed.
var ErrInvalidJSON = errors.New("response was not valid JSON")

// Logger interface for warning output.
type Logger interface {
	Warn(format string, args ...interface{})
}

// Pick maps a dotted JSON path to an output field name.
type Pick struct {
	// Path is a dotted path such as "geocodes.0.location" or "$.status".
	Path string
	// Field is the name of the output column.
	Field string
}

// Profile lists the response fields to keep. Pick order is the field order
// of every record built from this profile.
type Profile struct {
	Picks []Pick
}

// IsZero reports whether no picks are configured, in which case the whole
// response object is passed through.
func (p Profile) IsZero() bool {
	return len(p.Picks) == 0
}

// Fields returns the configured output field names in order.
func (p Profile) Fields() []string {
	fields := make([]string, len(p.Picks))
	for i, pick := range p.Picks {
		fields[i] = pick.Field
	}
	return fields
}

// Results parses body and applies the profile. Missing paths produce null
// values and are reported to logger when it is non-nil.
func Results(body []byte, p Profile, logger Logger) (Record, error) {
	if !gjson.ValidBytes(body) {
		return Record{}, ErrInvalidJSON
	}
	doc := gjson.ParseBytes(body)

	if p.IsZero() {
		if !doc.IsObject() {
			return Record{}, fmt.Errorf("%w: expected an object, got %s", ErrInvalidJSON, jsonobj.TypeName(doc))
		}
		return passThrough(doc), nil
	}

	rec := NewRecord(len(p.Picks))
	for _, pick := range p.Picks {
		value, ok := lookup(doc, pick.Path)
		if !ok && logger != nil {
			logger.Warn("JSON path not found: %s", pick.Path)
		}
		rec.set(pick.Field, rawOrNull(value, ok))
	}
	return rec, nil
}

func passThrough(doc gjson.Result) Record {
	rec := NewRecord(0)
	obj := jsonobj.FromResult(doc)
	for _, key := range obj.Keys() {
		raw, _ := obj.Get(key)
		rec.set(key, raw)
	}
	return rec
}
