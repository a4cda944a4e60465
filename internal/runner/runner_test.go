package runner_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/torosent/poi/internal/extractor"
	"github.com/torosent/poi/internal/feeder"
	"github.com/torosent/poi/internal/override"
	"github.com/torosent/poi/internal/runner"
)

// recordingSink records writes and flags any concurrent access.
type recordingSink struct {
	active  int32
	overlap int32
	mu      sync.Mutex
	headers [][]string
	rows    [][]string
	lines   []string
	failOn  string
}

func (s *recordingSink) enter() func() {
	if atomic.AddInt32(&s.active, 1) > 1 {
		atomic.StoreInt32(&s.overlap, 1)
	}
	time.Sleep(100 * time.Microsecond)
	return func() { atomic.AddInt32(&s.active, -1) }
}

func (s *recordingSink) WriteHeader(fields []string) error {
	defer s.enter()()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headers = append(s.headers, fields)
	s.lines = append(s.lines, "H:"+strings.Join(fields, ","))
	return nil
}

func (s *recordingSink) WriteRow(values []string) error {
	defer s.enter()()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != "" && values[0] == s.failOn {
		return errors.New("disk full")
	}
	s.rows = append(s.rows, values)
	s.lines = append(s.lines, "R:"+strings.Join(values, ","))
	return nil
}

func mustRecord(t *testing.T, body string) extractor.Record {
	t.Helper()
	rec, err := extractor.Results([]byte(body), extractor.Profile{}, nil)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	return rec
}

func queryValue(set override.Set, key string) string {
	value := ""
	for _, p := range set.Query {
		if p.Key == key {
			value = p.Value
		}
	}
	return value
}

type countingCollector struct {
	calls  int64
	errors int64
}

func (c *countingCollector) RecordRow(_ time.Duration, err error) {
	atomic.AddInt64(&c.calls, 1)
	if err != nil {
		atomic.AddInt64(&c.errors, 1)
	}
}

type recordingLogger struct {
	mu     sync.Mutex
	errors []error
}

func (l *recordingLogger) LogFailure(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, err)
}

func rowsN(n int) []string {
	rows := make([]string, n)
	for i := range rows {
		rows[i] = fmt.Sprintf("city-%02d", i)
	}
	return rows
}

// TestRunnerWritesHeaderOnce ensures one header precedes every row under concurrency.
func TestRunnerWritesHeaderOnce(t *testing.T) {
	sink := &recordingSink{}
	collector := &countingCollector{}
	r := runner.New(runner.Options{
		Querier: runner.QuerierFunc(func(ctx context.Context, set override.Set) (extractor.Record, error) {
			time.Sleep(time.Millisecond)
			return mustRecord(t, fmt.Sprintf(`{"location":"%s","level":"city"}`, queryValue(set, "address"))), nil
		}),
		Sink:      sink,
		Collector: collector,
	})

	res, err := r.Run(context.Background(), feeder.NewSliceFeeder(rowsN(40)))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Total != 40 || res.Written != 40 || res.Failed != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(sink.headers) != 1 {
		t.Fatalf("expected header once, got %d", len(sink.headers))
	}
	if got := strings.Join(sink.headers[0], ","); got != "input,location,level" {
		t.Fatalf("unexpected header %s", got)
	}
	if !strings.HasPrefix(sink.lines[0], "H:") {
		t.Fatalf("header must be the first line, got %s", sink.lines[0])
	}
	if len(sink.rows) != 40 {
		t.Fatalf("expected 40 rows, got %d", len(sink.rows))
	}
	if atomic.LoadInt32(&sink.overlap) != 0 {
		t.Fatalf("sink was accessed concurrently")
	}
	if collector.calls != 40 {
		t.Fatalf("expected 40 recorded requests, got %d", collector.calls)
	}
	for _, row := range sink.rows {
		if row[0] != row[1] {
			t.Fatalf("row value %s paired with record %s", row[0], row[1])
		}
	}
}

// TestRunnerRowIndependence ensures each row sees only its own value.
func TestRunnerRowIndependence(t *testing.T) {
	var base override.Set
	base.Add(override.KindQuery, "key", "abc")
	base.Add(override.KindHeader, "X-App", "poi")

	var mu sync.Mutex
	seen := map[string]override.Set{}

	r := runner.New(runner.Options{
		Querier: runner.QuerierFunc(func(ctx context.Context, set override.Set) (extractor.Record, error) {
			mu.Lock()
			seen[queryValue(set, "address")] = set
			mu.Unlock()
			return mustRecord(t, `{"ok":true}`), nil
		}),
		Base:          base,
		ValueTemplate: "{{row}}人民政府",
	})

	if _, err := r.Run(context.Background(), feeder.NewSliceFeeder([]string{"北京市", "上海市"})); err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, want := range []string{"北京市人民政府", "上海市人民政府"} {
		set, ok := seen[want]
		if !ok {
			t.Fatalf("missing request for %s, saw %v", want, seen)
		}
		if len(set.Query) != 2 || set.Query[0].Key != "key" {
			t.Fatalf("expected base query plus one row value, got %+v", set.Query)
		}
		if len(set.Headers) != 1 {
			t.Fatalf("expected base header, got %+v", set.Headers)
		}
	}
	if len(base.Query) != 1 {
		t.Fatalf("base override set was mutated: %+v", base.Query)
	}
}

// TestRunnerFailFast ensures the first failed row aborts the batch.
func TestRunnerFailFast(t *testing.T) {
	boom := errors.New("connection refused")
	sink := &recordingSink{}
	r := runner.New(runner.Options{
		Querier: runner.QuerierFunc(func(ctx context.Context, set override.Set) (extractor.Record, error) {
			if queryValue(set, "address") == "city-03" {
				return extractor.Record{}, boom
			}
			select {
			case <-time.After(200 * time.Millisecond):
			case <-ctx.Done():
				return extractor.Record{}, ctx.Err()
			}
			return mustRecord(t, `{"ok":true}`), nil
		}),
		Sink: sink,
	})

	start := time.Now()
	res, err := r.Run(context.Background(), feeder.NewSliceFeeder(rowsN(10)))
	var rowErr *runner.RowError
	if !errors.As(err, &rowErr) {
		t.Fatalf("expected RowError, got %v", err)
	}
	if rowErr.Row != "city-03" || rowErr.Index != 3 {
		t.Fatalf("unexpected row error %+v", rowErr)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if res.Failed != 1 {
		t.Fatalf("expected exactly one failed row, got %d", res.Failed)
	}
	if time.Since(start) > 150*time.Millisecond {
		t.Fatalf("expected in-flight rows to be cancelled")
	}
}

// TestRunnerKeepGoing ensures failed rows are skipped and reported together.
func TestRunnerKeepGoing(t *testing.T) {
	sink := &recordingSink{}
	logger := &recordingLogger{}
	r := runner.New(runner.Options{
		Querier: runner.QuerierFunc(func(ctx context.Context, set override.Set) (extractor.Record, error) {
			switch queryValue(set, "address") {
			case "city-01", "city-04":
				return extractor.Record{}, extractor.ErrInvalidJSON
			}
			return mustRecord(t, `{"ok":true}`), nil
		}),
		Sink:        sink,
		KeepGoing:   true,
		Logger:      logger,
		Concurrency: 2,
	})

	res, err := r.Run(context.Background(), feeder.NewSliceFeeder(rowsN(6)))
	if err == nil {
		t.Fatalf("expected joined row errors")
	}
	if !errors.Is(err, extractor.ErrInvalidJSON) {
		t.Fatalf("expected ErrInvalidJSON in %v", err)
	}
	if res.Total != 6 || res.Written != 4 || res.Failed != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(sink.rows) != 4 {
		t.Fatalf("expected 4 rows written, got %d", len(sink.rows))
	}
	if len(logger.errors) != 2 {
		t.Fatalf("expected 2 logged failures, got %d", len(logger.errors))
	}
	msg := err.Error()
	if !strings.Contains(msg, "city-01") || !strings.Contains(msg, "city-04") {
		t.Fatalf("expected both rows in error, got %s", msg)
	}
}

// TestRunnerRespectsConcurrency ensures no more than Concurrency rows run at once.
func TestRunnerRespectsConcurrency(t *testing.T) {
	var inFlight, peak int32
	r := runner.New(runner.Options{
		Querier: runner.QuerierFunc(func(ctx context.Context, set override.Set) (extractor.Record, error) {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return mustRecord(t, `{"ok":true}`), nil
		}),
		Concurrency: 3,
	})

	res, err := r.Run(context.Background(), feeder.NewSliceFeeder(rowsN(20)))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Written != 20 {
		t.Fatalf("expected 20 rows, got %d", res.Written)
	}
	if peak > 3 {
		t.Fatalf("expected at most 3 rows in flight, saw %d", peak)
	}
}

// TestRunnerSinkErrorAborts ensures output failures stop the batch even when keep-going.
func TestRunnerSinkErrorAborts(t *testing.T) {
	sink := &recordingSink{failOn: "city-00"}
	r := runner.New(runner.Options{
		Querier: runner.QuerierFunc(func(ctx context.Context, set override.Set) (extractor.Record, error) {
			return mustRecord(t, `{"ok":true}`), nil
		}),
		Sink:        sink,
		KeepGoing:   true,
		Concurrency: 1,
	})

	_, err := r.Run(context.Background(), feeder.NewSliceFeeder(rowsN(3)))
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected sink error, got %v", err)
	}
}

func TestRunnerRequiresQuerier(t *testing.T) {
	r := runner.New(runner.Options{})
	if _, err := r.Run(context.Background(), feeder.NewSliceFeeder([]string{"a"})); err == nil {
		t.Fatalf("expected error without querier")
	}
}

func TestRunnerEmptyInput(t *testing.T) {
	sink := &recordingSink{}
	r := runner.New(runner.Options{
		Querier: runner.QuerierFunc(func(ctx context.Context, set override.Set) (extractor.Record, error) {
			t.Fatalf("querier should not be called")
			return extractor.Record{}, nil
		}),
		Sink: sink,
	})
	res, err := r.Run(context.Background(), feeder.NewSliceFeeder(nil))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Total != 0 || len(sink.lines) != 0 {
		t.Fatalf("expected no output, got %+v %v", res, sink.lines)
	}
}

func TestRunnerParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := runner.New(runner.Options{
		Querier: runner.QuerierFunc(func(ctx context.Context, set override.Set) (extractor.Record, error) {
			return mustRecord(t, `{"ok":true}`), nil
		}),
	})
	if _, err := r.Run(ctx, feeder.NewSliceFeeder(rowsN(3))); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type scopeKey struct{}

func TestRunnerScopeWrapsEveryRow(t *testing.T) {
	var mu sync.Mutex
	outcomes := map[int]error{}

	r := runner.New(runner.Options{
		Querier: runner.QuerierFunc(func(ctx context.Context, set override.Set) (extractor.Record, error) {
			if ctx.Value(scopeKey{}) == nil {
				return extractor.Record{}, errors.New("scope context not propagated")
			}
			if queryValue(set, "address") == "city-01" {
				return extractor.Record{}, errors.New("boom")
			}
			return mustRecord(t, `{"ok":true}`), nil
		}),
		KeepGoing: true,
		Scope: func(ctx context.Context, index int, row string) (context.Context, func(error)) {
			return context.WithValue(ctx, scopeKey{}, row), func(err error) {
				mu.Lock()
				defer mu.Unlock()
				outcomes[index] = err
			}
		},
	})

	_, err := r.Run(context.Background(), feeder.NewSliceFeeder(rowsN(3)))
	if err == nil {
		t.Fatalf("expected joined row error")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(outcomes) != 3 {
		t.Fatalf("scope finished %d rows, want 3", len(outcomes))
	}
	var rowErr *runner.RowError
	if !errors.As(outcomes[1], &rowErr) || rowErr.Index != 1 {
		t.Fatalf("row 1 outcome = %v, want RowError", outcomes[1])
	}
	if outcomes[0] != nil || outcomes[2] != nil {
		t.Fatalf("unexpected outcomes %v", outcomes)
	}
}

func TestRunnerAlignsRowsToHeader(t *testing.T) {
	sink := &recordingSink{}
	r := runner.New(runner.Options{
		Querier: runner.QuerierFunc(func(ctx context.Context, set override.Set) (extractor.Record, error) {
			if queryValue(set, "address") == "nowhere" {
				return mustRecord(t, `{"info":"INVALID_PARAMS","status":"0"}`), nil
			}
			return mustRecord(t, `{"status":"1","count":"1","geocodes":[{"level":"city"}]}`), nil
		}),
		Concurrency: 1,
		Sink:        sink,
	})

	if _, err := r.Run(context.Background(), feeder.NewSliceFeeder([]string{"北京市", "nowhere"})); err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []string{
		"H:input,status,count,geocodes",
		`R:北京市,1,1,[{"level":"city"}]`,
		"R:nowhere,0,,",
	}
	if strings.Join(sink.lines, "\n") != strings.Join(want, "\n") {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", strings.Join(sink.lines, "\n"), strings.Join(want, "\n"))
	}
}
