package extractor

import (
	"bytes"
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/torosent/poi/internal/jsonobj"
)

// Field is one named value of a record.
type Field struct {
	Name  string
	Value json.RawMessage
}

// Record is a flat, ordered name to JSON value mapping produced from one
// response. Records are built once and then only read.
type Record struct {
	fields []Field
	index  map[string]int
}

// NewRecord returns an empty record with room for n fields.
func NewRecord(n int) Record {
	return Record{
		fields: make([]Field, 0, n),
		index:  make(map[string]int, n),
	}
}

// set replaces the value of an existing field in place or appends a new one.
func (r *Record) set(name string, value json.RawMessage) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[name]; ok {
		r.fields[i].Value = value
		return
	}
	r.index[name] = len(r.fields)
	r.fields = append(r.fields, Field{Name: name, Value: value})
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.fields)
}

// Keys returns field names in order.
func (r Record) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Name
	}
	return keys
}

// Fields returns a copy of the record's fields in order.
func (r Record) Fields() []Field {
	return append([]Field(nil), r.fields...)
}

// Get returns the raw value of a field.
func (r Record) Get(name string) (json.RawMessage, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.fields[i].Value, true
}

// Strings renders each value for tabular output: null as an empty cell,
// strings unquoted, everything else as compact JSON.
func (r Record) Strings() []string {
	out := make([]string, len(r.fields))
	for i, f := range r.fields {
		out[i] = CellString(f.Value)
	}
	return out
}

// CellString renders a single raw JSON value as a table cell.
func CellString(raw json.RawMessage) string {
	res := gjson.ParseBytes(raw)
	switch res.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return res.Str
	default:
		return res.Raw
	}
}

// MarshalJSON writes the record as a JSON object in field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(jsonobj.Quote(f.Name))
		buf.WriteByte(':')
		if len(f.Value) == 0 {
			buf.Write(null)
		} else {
			buf.Write(f.Value)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func compactRaw(raw string) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(raw)); err != nil {
		return json.RawMessage(raw)
	}
	return buf.Bytes()
}
