// Package feeder supplies batch input rows from CSV, JSON or plain-text files.
package feeder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Feeder provides batch rows in file order.
// Implementations must be safe for concurrent use.
type Feeder interface {
	// Next returns the next row or ErrExhausted when none remain.
	Next(ctx context.Context) (string, error)

	// Close releases any resources held by the feeder.
	Close() error

	// Len returns the total number of rows in the dataset.
	Len() int
}

// ErrExhausted is returned when a feeder has no more rows.
var ErrExhausted = errors.New("feeder exhausted: no more rows available")

// Input kinds accepted by New.
const (
	KindCSV   = "csv"
	KindJSON  = "json"
	KindLines = "lines"
)

// New opens path with the feeder for kind. An empty kind is inferred from the
// file extension, falling back to one row per line.
func New(path, kind, column string) (Feeder, error) {
	if kind == "" {
		kind = kindFromPath(path)
	}
	switch strings.ToLower(kind) {
	case KindCSV:
		return NewCSVFeeder(path, column)
	case KindJSON:
		return NewJSONFeeder(path, column)
	case KindLines, "txt", "text":
		return NewLineFeeder(path)
	default:
		return nil, fmt.Errorf("input type must be 'csv', 'json' or 'lines', got %q", kind)
	}
}

func kindFromPath(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return KindCSV
	case strings.HasSuffix(lower, ".json"):
		return KindJSON
	default:
		return KindLines
	}
}

// SliceFeeder hands out an in-memory list of rows once each.
type SliceFeeder struct {
	rows  []string
	index int
	mu    sync.Mutex
}

// NewSliceFeeder wraps rows. The slice is copied.
func NewSliceFeeder(rows []string) *SliceFeeder {
	return &SliceFeeder{rows: append([]string(nil), rows...)}
}

// Next returns the next row in order.
// Returns ErrExhausted when all rows have been consumed.
func (f *SliceFeeder) Next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.index >= len(f.rows) {
		return "", ErrExhausted
	}

	row := f.rows[f.index]
	f.index++
	return row, nil
}

// Close is a no-op; rows are loaded eagerly.
func (f *SliceFeeder) Close() error {
	return nil
}

// Len returns the total number of rows in the dataset.
func (f *SliceFeeder) Len() int {
	return len(f.rows)
}
