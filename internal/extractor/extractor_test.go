package extractor

import (
	"errors"
	"testing"

	"github.com/tidwall/gjson"
)

// mockLogger is a test logger that captures warnings
type mockLogger struct {
	warnings []string
}

func (m *mockLogger) Warn(format string, args ...interface{}) {
	m.warnings = append(m.warnings, format)
}

func TestExtract_Simple(t *testing.T) {
	doc := gjson.Parse(`{"id": 123, "name": "John"}`)
	if got := string(Extract(doc, "id")); got != "123" {
		t.Errorf("expected '123', got '%s'", got)
	}
	if got := string(Extract(doc, "name")); got != `"John"` {
		t.Errorf("expected '\"John\"', got '%s'", got)
	}
}

func TestExtract_Nested(t *testing.T) {
	doc := gjson.Parse(`{"user": {"profile": {"name": "Alice"}}}`)
	if got := string(Extract(doc, "user.profile.name")); got != `"Alice"` {
		t.Errorf("expected Alice, got '%s'", got)
	}
	if got := string(Extract(doc, "user.profile")); got != `{"name":"Alice"}` {
		t.Errorf("expected compact object, got '%s'", got)
	}
}

func TestExtract_Array(t *testing.T) {
	doc := gjson.Parse(`{"geocodes": [{"location": "116.4,39.9"}, {"location": "121.4,31.2"}]}`)
	if got := string(Extract(doc, "geocodes.1.location")); got != `"121.4,31.2"` {
		t.Errorf("expected second location, got '%s'", got)
	}
	if got := string(Extract(gjson.Parse(`[10, 20]`), "0")); got != "10" {
		t.Errorf("expected top-level index, got '%s'", got)
	}
}

func TestExtract_DollarPrefix(t *testing.T) {
	doc := gjson.Parse(`{"id": 456}`)
	if got := string(Extract(doc, "$.id")); got != "456" {
		t.Errorf("expected '456', got '%s'", got)
	}
	if got := string(Extract(doc, "$")); got != `{"id":456}` {
		t.Errorf("expected whole document, got '%s'", got)
	}
}

func TestExtract_MissingIsNull(t *testing.T) {
	doc := gjson.Parse(`{"a": {"b": [1, 2]}, "s": "text", "n": null}`)
	paths := []string{
		"missing",
		"a.missing",
		"a.b.2",
		"a.b.-1",
		"a.b.+1",
		"a.b.x",
		"s.length",
		"a.b.0.deeper",
		"",
		"a..b",
		"a.*",
		"a.b.#",
	}
	for _, path := range paths {
		if got := string(Extract(doc, path)); got != "null" {
			t.Errorf("Extract(%q) = %s, want null", path, got)
		}
	}
	if got := string(Extract(doc, "n")); got != "null" {
		t.Errorf("Extract(n) = %s, want null", got)
	}
}

func TestExtract_LiteralKeys(t *testing.T) {
	doc := gjson.Parse(`{"a*": 1, "0": "zero", "x|y": true}`)
	if got := string(Extract(doc, "a*")); got != "1" {
		t.Errorf("Extract(a*) = %s, want 1", got)
	}
	if got := string(Extract(doc, "0")); got != `"zero"` {
		t.Errorf("Extract(0) on object = %s, want \"zero\"", got)
	}
	if got := string(Extract(doc, "x|y")); got != "true" {
		t.Errorf("Extract(x|y) = %s, want true", got)
	}
}

func TestResults_PreservesPickOrder(t *testing.T) {
	profile := Profile{Picks: []Pick{
		{Path: "a.b", Field: "X"},
		{Path: "c", Field: "Y"},
	}}
	rec, err := Results([]byte(`{"c":2,"a":{"b":1}}`), profile, nil)
	if err != nil {
		t.Fatalf("Results() error = %v", err)
	}
	keys := rec.Keys()
	if len(keys) != 2 || keys[0] != "X" || keys[1] != "Y" {
		t.Fatalf("Keys() = %v, want [X Y]", keys)
	}
	values := rec.Strings()
	if values[0] != "1" || values[1] != "2" {
		t.Errorf("Strings() = %v, want [1 2]", values)
	}
	out, _ := rec.MarshalJSON()
	if string(out) != `{"X":1,"Y":2}` {
		t.Errorf("MarshalJSON() = %s", out)
	}
}

func TestResults_MissingPathWarns(t *testing.T) {
	logger := &mockLogger{}
	profile := Profile{Picks: []Pick{{Path: "nope", Field: "field"}}}
	rec, err := Results([]byte(`{"status":"1"}`), profile, logger)
	if err != nil {
		t.Fatalf("Results() error = %v", err)
	}
	if v, _ := rec.Get("field"); string(v) != "null" {
		t.Errorf("field = %s, want null", v)
	}
	if len(logger.warnings) != 1 {
		t.Errorf("expected 1 warning, got %d", len(logger.warnings))
	}
}

func TestResults_PassThrough(t *testing.T) {
	body := `{"status": "1", "count": 2, "geocodes": [{"city": "北京市"}]}`
	rec, err := Results([]byte(body), Profile{}, nil)
	if err != nil {
		t.Fatalf("Results() error = %v", err)
	}
	out, _ := rec.MarshalJSON()
	if string(out) != `{"status":"1","count":2,"geocodes":[{"city":"北京市"}]}` {
		t.Errorf("pass-through = %s", out)
	}
}

func TestResults_InvalidJSON(t *testing.T) {
	_, err := Results([]byte(`<html>`), Profile{Picks: []Pick{{Path: "a", Field: "a"}}}, nil)
	if !errors.Is(err, ErrInvalidJSON) {
		t.Errorf("Results(html) error = %v, want ErrInvalidJSON", err)
	}

	_, err = Results([]byte(`[1,2,3]`), Profile{}, nil)
	if !errors.Is(err, ErrInvalidJSON) {
		t.Errorf("Results(array, pass-through) error = %v, want ErrInvalidJSON", err)
	}
}

func TestResults_DuplicateFieldKeepsLastValue(t *testing.T) {
	profile := Profile{Picks: []Pick{
		{Path: "a", Field: "v"},
		{Path: "b", Field: "w"},
		{Path: "c", Field: "v"},
	}}
	rec, err := Results([]byte(`{"a":1,"b":2,"c":3}`), profile, nil)
	if err != nil {
		t.Fatalf("Results() error = %v", err)
	}
	out, _ := rec.MarshalJSON()
	if string(out) != `{"v":3,"w":2}` {
		t.Errorf("MarshalJSON() = %s", out)
	}
}

func TestCellString(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`null`, ""},
		{`"text"`, "text"},
		{`12.5`, "12.5"},
		{`true`, "true"},
		{`{"a":1}`, `{"a":1}`},
		{`[1,2]`, `[1,2]`},
	}
	for _, tt := range tests {
		if got := CellString([]byte(tt.raw)); got != tt.want {
			t.Errorf("CellString(%s) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestProfileFields(t *testing.T) {
	p := Profile{Picks: []Pick{{Path: "a", Field: "A"}, {Path: "b", Field: "B"}}}
	fields := p.Fields()
	if len(fields) != 2 || fields[0] != "A" || fields[1] != "B" {
		t.Errorf("Fields() = %v", fields)
	}
	if p.IsZero() || !(Profile{}).IsZero() {
		t.Error("IsZero() mismatch")
	}
}
