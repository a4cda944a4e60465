package feeder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func drain(t *testing.T, f Feeder) []string {
	t.Helper()
	var rows []string
	for {
		row, err := f.Next(context.Background())
		if errors.Is(err, ErrExhausted) {
			return rows
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		rows = append(rows, row)
	}
}

func TestCSVFeederFirstColumn(t *testing.T) {
	path := writeFile(t, "cities.csv", "city,province\n北京市,北京\n上海市,上海\n")

	feeder, err := NewCSVFeeder(path, "")
	if err != nil {
		t.Fatalf("NewCSVFeeder() error = %v", err)
	}
	defer feeder.Close()

	if feeder.Len() != 2 {
		t.Errorf("Len() = %d, want 2", feeder.Len())
	}
	if got := strings.Join(drain(t, feeder), ","); got != "北京市,上海市" {
		t.Errorf("rows = %s, want 北京市,上海市", got)
	}
}

func TestCSVFeederNamedColumn(t *testing.T) {
	path := writeFile(t, "cities.csv", "\ufeffid, city\n1, 杭州市\n2, 苏州市\n")

	feeder, err := NewCSVFeeder(path, "city")
	if err != nil {
		t.Fatalf("NewCSVFeeder() error = %v", err)
	}
	if got := strings.Join(drain(t, feeder), ","); got != "杭州市,苏州市" {
		t.Errorf("rows = %s", got)
	}

	if _, err := NewCSVFeeder(path, "missing"); err == nil {
		t.Error("expected error for unknown column")
	}
}

func TestCSVFeederWithMissingFile(t *testing.T) {
	if _, err := NewCSVFeeder("/nonexistent/path/file.csv", ""); err == nil {
		t.Error("NewCSVFeeder() should fail with missing file")
	}
}

func TestCSVFeederWithEmptyFile(t *testing.T) {
	path := writeFile(t, "empty.csv", "")
	if _, err := NewCSVFeeder(path, ""); err == nil {
		t.Error("NewCSVFeeder() should fail with empty file")
	}

	path = writeFile(t, "header.csv", "city\n")
	if _, err := NewCSVFeeder(path, ""); err == nil {
		t.Error("NewCSVFeeder() should fail with header only")
	}
}

func TestJSONFeederStrings(t *testing.T) {
	path := writeFile(t, "cities.json", `["北京市", "上海市", 3]`)

	feeder, err := NewJSONFeeder(path, "")
	if err != nil {
		t.Fatalf("NewJSONFeeder() error = %v", err)
	}
	if got := strings.Join(drain(t, feeder), ","); got != "北京市,上海市,3" {
		t.Errorf("rows = %s", got)
	}
}

func TestJSONFeederObjects(t *testing.T) {
	path := writeFile(t, "cities.json", `[{"city":"广州市","code":1},{"city":"深圳市","code":2}]`)

	feeder, err := NewJSONFeeder(path, "city")
	if err != nil {
		t.Fatalf("NewJSONFeeder() error = %v", err)
	}
	if got := strings.Join(drain(t, feeder), ","); got != "广州市,深圳市" {
		t.Errorf("rows = %s", got)
	}

	if _, err := NewJSONFeeder(path, ""); err == nil {
		t.Error("expected error when objects have no field selected")
	}
	if _, err := NewJSONFeeder(path, "name"); err == nil {
		t.Error("expected error for missing field")
	}
}

func TestJSONFeederWithInvalidJSON(t *testing.T) {
	tests := map[string]string{
		"invalid": `[{"city": "a"`,
		"object":  `{"city": "a"}`,
		"empty":   `[]`,
		"nested":  `[["a"]]`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, "bad.json", content)
			if _, err := NewJSONFeeder(path, "city"); err == nil {
				t.Errorf("NewJSONFeeder() should fail for %s", content)
			}
		})
	}
}

func TestLineFeederSkipsBlankLines(t *testing.T) {
	path := writeFile(t, "cities.txt", "北京市\n\n  上海市  \r\n\n")

	feeder, err := NewLineFeeder(path)
	if err != nil {
		t.Fatalf("NewLineFeeder() error = %v", err)
	}
	if got := strings.Join(drain(t, feeder), ","); got != "北京市,上海市" {
		t.Errorf("rows = %s", got)
	}

	empty := writeFile(t, "empty.txt", "\n\n")
	if _, err := NewLineFeeder(empty); err == nil {
		t.Error("NewLineFeeder() should fail without rows")
	}
}

func TestNewInfersKind(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		kind    string
		want    string
	}{
		{"csv by extension", "a.csv", "city\nx\n", "", "x"},
		{"json by extension", "a.json", `["y"]`, "", "y"},
		{"lines fallback", "a.txt", "z\n", "", "z"},
		{"explicit lines", "a.csv", "city\nx\n", "lines", "city,x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			feeder, err := New(path, tt.kind, "")
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if got := strings.Join(drain(t, feeder), ","); got != tt.want {
				t.Errorf("rows = %s, want %s", got, tt.want)
			}
		})
	}

	if _, err := New("a.xml", "xml", ""); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestFeederConcurrentAccess(t *testing.T) {
	rows := make([]string, 100)
	for i := range rows {
		rows[i] = fmt.Sprintf("row-%d", i)
	}
	feeder := NewSliceFeeder(rows)

	ctx := context.Background()
	const numGoroutines = 50
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make(chan string, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			row, err := feeder.Next(ctx)
			if err != nil {
				t.Errorf("Next() error = %v", err)
				return
			}
			results <- row
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for row := range results {
		if seen[row] {
			t.Errorf("Duplicate row: %s", row)
		}
		seen[row] = true
	}
	if len(seen) != numGoroutines {
		t.Errorf("Got %d rows, want %d", len(seen), numGoroutines)
	}
}

func TestFeederContextCancellation(t *testing.T) {
	feeder := NewSliceFeeder([]string{"a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := feeder.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Next() error = %v, want context.Canceled", err)
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		template string
		row      string
		want     string
	}{
		{"{{row}}人民政府", "北京市", "北京市人民政府"},
		{"{{row}}", "上海市", "上海市"},
		{"", "raw", "raw"},
		{"{{row}}-{{row}}", "a", "a-a"},
		{"fixed", "ignored", "fixed"},
	}
	for _, tt := range tests {
		if got := Render(tt.template, tt.row); got != tt.want {
			t.Errorf("Render(%q, %q) = %q, want %q", tt.template, tt.row, got, tt.want)
		}
	}
}
