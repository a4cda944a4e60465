// Package jsonobj provides an insertion-ordered JSON object used for the
// open-ended query and body templates of a request profile.
package jsonobj

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrInvalidJSON is returned when input is not well-formed JSON.
	ErrInvalidJSON = errors.New("invalid JSON")
	// ErrNotObject is returned when valid JSON is not an object.
	ErrNotObject = errors.New("JSON value is not an object")
)

type member struct {
	key   string
	value json.RawMessage
}

// Object is a JSON object that remembers key insertion order.
// Replacing an existing key keeps its original position.
type Object struct {
	members []member
	index   map[string]int
}

// New returns an empty object.
func New() *Object {
	return &Object{index: make(map[string]int)}
}

// Parse decodes a JSON object, keeping the document's key order.
func Parse(data []byte) (*Object, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return nil, fmt.Errorf("%w: got %s", ErrNotObject, TypeName(res))
	}
	return FromResult(res), nil
}

// FromResult builds an object from an already parsed gjson object.
// Non-object results yield an empty object.
func FromResult(res gjson.Result) *Object {
	obj := New()
	if !res.IsObject() {
		return obj
	}
	res.ForEach(func(key, value gjson.Result) bool {
		obj.put(key.String(), compact([]byte(value.Raw)))
		return true
	})
	return obj
}

// Set stores a raw JSON value under key. The value must be valid JSON.
func (o *Object) Set(key string, raw json.RawMessage) error {
	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("%w for key %q", ErrInvalidJSON, key)
	}
	o.put(key, compact(raw))
	return nil
}

// SetString stores value as a JSON string.
func (o *Object) SetString(key, value string) {
	o.put(key, Quote(value))
}

func (o *Object) put(key string, raw json.RawMessage) {
	if o.index == nil {
		o.index = make(map[string]int)
	}
	if i, ok := o.index[key]; ok {
		o.members[i].value = raw
		return
	}
	o.index[key] = len(o.members)
	o.members = append(o.members, member{key: key, value: raw})
}

// Get returns the raw value stored under key.
func (o *Object) Get(key string) (json.RawMessage, bool) {
	if o == nil {
		return nil, false
	}
	i, ok := o.index[key]
	if !ok {
		return nil, false
	}
	return o.members[i].value, true
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.members)
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	keys := make([]string, len(o.members))
	for i, m := range o.members {
		keys[i] = m.key
	}
	return keys
}

// Each visits members in order until fn returns false.
func (o *Object) Each(fn func(key string, raw json.RawMessage) bool) {
	if o == nil {
		return
	}
	for _, m := range o.members {
		if !fn(m.key, m.value) {
			return
		}
	}
}

// Clone returns a copy that shares no mutable state with o.
// Cloning a nil object yields an empty one.
func (o *Object) Clone() *Object {
	out := New()
	if o == nil {
		return out
	}
	out.members = make([]member, len(o.members))
	for i, m := range o.members {
		out.members[i] = member{key: m.key, value: append(json.RawMessage(nil), m.value...)}
		out.index[m.key] = i
	}
	return out
}

// MarshalJSON writes the object compactly in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if o != nil {
		for i, m := range o.members {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.Write(Quote(m.key))
			buf.WriteByte(':')
			buf.Write(m.value)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON replaces the receiver's contents with a decoded object.
func (o *Object) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*o = *parsed
	return nil
}

// EncodeForm renders the object as application/x-www-form-urlencoded text,
// keeping insertion order. Nested arrays and objects cannot be encoded.
func (o *Object) EncodeForm() (string, error) {
	if o.Len() == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(o.members))
	for _, m := range o.members {
		value, err := ScalarString(m.value)
		if err != nil {
			return "", fmt.Errorf("form field %q: %w", m.key, err)
		}
		parts = append(parts, url.QueryEscape(m.key)+"="+url.QueryEscape(value))
	}
	return strings.Join(parts, "&"), nil
}

// ScalarString renders a scalar JSON value as plain text: strings without
// quotes, numbers and booleans verbatim, null as the empty string.
func ScalarString(raw json.RawMessage) (string, error) {
	res := gjson.ParseBytes(raw)
	switch res.Type {
	case gjson.Null:
		return "", nil
	case gjson.String:
		return res.Str, nil
	case gjson.Number, gjson.True, gjson.False:
		return res.Raw, nil
	default:
		return "", fmt.Errorf("unsupported %s value", TypeName(res))
	}
}

// TypeName describes the JSON type of a parsed value.
func TypeName(res gjson.Result) string {
	switch res.Type {
	case gjson.Null:
		return "null"
	case gjson.False, gjson.True:
		return "boolean"
	case gjson.Number:
		return "number"
	case gjson.String:
		return "string"
	default:
		if res.IsArray() {
			return "array"
		}
		return "object"
	}
}

// Quote encodes s as a JSON string without HTML escaping.
func Quote(s string) json.RawMessage {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return bytes.TrimRight(buf.Bytes(), "\n")
}

func compact(raw []byte) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return append(json.RawMessage(nil), bytes.TrimSpace(raw)...)
	}
	return buf.Bytes()
}
