package feeder

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// NewJSONFeeder reads a JSON array. Elements may be scalars, used as-is, or
// objects, in which case field names the member to use.
func NewJSONFeeder(path, field string) (*SliceFeeder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open JSON file: %w", err)
	}

	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("decode JSON: invalid document")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, fmt.Errorf("decode JSON: expected an array of rows")
	}

	items := doc.Array()
	if len(items) == 0 {
		return nil, fmt.Errorf("JSON file contains empty array")
	}

	rows := make([]string, 0, len(items))
	for i, item := range items {
		switch {
		case item.IsObject():
			if field == "" {
				return nil, fmt.Errorf("record %d is an object; a field name is required", i)
			}
			value := item.Get(gjson.Escape(field))
			if !value.Exists() || value.IsObject() || value.IsArray() {
				return nil, fmt.Errorf("record %d has no scalar field %q", i, field)
			}
			rows = append(rows, value.String())
		case item.IsArray():
			return nil, fmt.Errorf("record %d is an array", i)
		default:
			rows = append(rows, item.String())
		}
	}

	return NewSliceFeeder(rows), nil
}
