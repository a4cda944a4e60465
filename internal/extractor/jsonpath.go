package extractor

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var null = json.RawMessage("null")

// Extract returns the value at a dotted path, or JSON null when any segment
// is missing. It never fails.
//
// Each segment selects an object member by key or, when the current value is
// an array, an element by non-negative index. A leading "$." is ignored and a
// bare "$" selects the whole document.
func Extract(doc gjson.Result, path string) json.RawMessage {
	value, ok := lookup(doc, path)
	return rawOrNull(value, ok)
}

func lookup(doc gjson.Result, path string) (gjson.Result, bool) {
	if !doc.Exists() {
		return gjson.Result{}, false
	}
	if path == "$" {
		return doc, true
	}
	path = strings.TrimPrefix(path, "$.")

	current := doc
	for _, segment := range strings.Split(path, ".") {
		var ok bool
		switch {
		case current.IsObject():
			current, ok = member(current, segment)
		case current.IsArray():
			current, ok = element(current, segment)
		}
		if !ok {
			return gjson.Result{}, false
		}
	}
	return current, true
}

// member does a literal key match so path segments never hit gjson's
// wildcard or modifier syntax.
func member(obj gjson.Result, key string) (gjson.Result, bool) {
	var found gjson.Result
	ok := false
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			found, ok = v, true
			return false
		}
		return true
	})
	return found, ok
}

func element(arr gjson.Result, segment string) (gjson.Result, bool) {
	idx, err := strconv.ParseUint(segment, 10, 0)
	if err != nil {
		return gjson.Result{}, false
	}
	items := arr.Array()
	if idx >= uint64(len(items)) {
		return gjson.Result{}, false
	}
	return items[idx], true
}

func rawOrNull(value gjson.Result, ok bool) json.RawMessage {
	if !ok || value.Raw == "" {
		return null
	}
	return compactRaw(value.Raw)
}
