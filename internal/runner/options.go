package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/torosent/poi/internal/extractor"
	"github.com/torosent/poi/internal/feeder"
	"github.com/torosent/poi/internal/override"
)

// Defaults applied by Options.normalize.
const (
	DefaultQueryKey    = "address"
	DefaultInputColumn = "input"
)

// Querier performs one request and returns its extracted record.
type Querier interface {
	Query(ctx context.Context, set override.Set) (extractor.Record, error)
}

// QuerierFunc adapts a function to Querier.
type QuerierFunc func(ctx context.Context, set override.Set) (extractor.Record, error)

func (f QuerierFunc) Query(ctx context.Context, set override.Set) (extractor.Record, error) {
	return f(ctx, set)
}

// Sink receives tabular batch output. The runner serializes all calls.
type Sink interface {
	WriteHeader(fields []string) error
	WriteRow(values []string) error
}

// Recorder receives per-row latency and outcome.
type Recorder interface {
	RecordRow(latency time.Duration, err error)
}

// FailureLogger logs failed rows.
type FailureLogger interface {
	LogFailure(err error)
}

// RowScope wraps the work of one row, e.g. in a trace span. The returned
// function receives the row's outcome.
type RowScope func(ctx context.Context, index int, row string) (context.Context, func(err error))

// RowError identifies the input row a failure belongs to.
type RowError struct {
	Index int
	Row   string
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d (%s): %v", e.Index+1, e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Options configure the Runner.
type Options struct {
	Querier       Querier       // request executor (required)
	Base          override.Set  // overrides shared by every row
	QueryKey      string        // query parameter carrying the row value
	ValueTemplate string        // row value template, {{row}} is the input
	InputColumn   string        // header name of the first output column
	Concurrency   int           // max rows in flight (0 means unbounded)
	KeepGoing     bool          // skip failed rows instead of aborting
	Sink          Sink          // output destination (optional)
	Collector     Recorder      // latency recorder (optional)
	Logger        FailureLogger // failed row logger (optional)
	Scope         RowScope      // per-row wrapper (optional)
}

func (o *Options) normalize() {
	if o.QueryKey == "" {
		o.QueryKey = DefaultQueryKey
	}
	if o.ValueTemplate == "" {
		o.ValueTemplate = feeder.RowPlaceholder
	}
	if o.InputColumn == "" {
		o.InputColumn = DefaultInputColumn
	}
	if o.Concurrency < 0 {
		o.Concurrency = 0
	}
}
