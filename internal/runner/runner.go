package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/torosent/poi/internal/extractor"
	"github.com/torosent/poi/internal/feeder"
	"github.com/torosent/poi/internal/override"
)

// Result captures execution summary.
type Result struct {
	Total    int64
	Written  int64
	Failed   int64
	Duration time.Duration
}

// Runner executes a batch. A Runner is single use.
type Runner struct {
	opt Options

	mu     sync.Mutex
	fields []string // record keys of the written header, nil until then

	total   atomic.Int64
	written atomic.Int64
	failed  atomic.Int64

	errMu   sync.Mutex
	rowErrs []error
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt}
}

// Progress reports rows started, written and failed so far.
func (r *Runner) Progress() (total, written, failed int64) {
	return r.total.Load(), r.written.Load(), r.failed.Load()
}

// Run pulls every row from rows and processes them concurrently. It returns
// once all started rows have finished.
func (r *Runner) Run(ctx context.Context, rows feeder.Feeder) (Result, error) {
	start := time.Now()
	if r.opt.Querier == nil {
		return Result{}, errors.New("runner: querier is required")
	}

	g, gctx := errgroup.WithContext(ctx)
	if r.opt.Concurrency > 0 {
		g.SetLimit(r.opt.Concurrency)
	}

	var feedErr error
	for index := 0; ; index++ {
		row, err := rows.Next(gctx)
		if errors.Is(err, feeder.ErrExhausted) {
			break
		}
		if err != nil {
			if gctx.Err() == nil {
				feedErr = fmt.Errorf("read input: %w", err)
			}
			break
		}
		r.total.Add(1)
		g.Go(func() error {
			return r.runRow(gctx, index, row)
		})
	}

	err := g.Wait()
	result := r.result(start)

	switch {
	case err != nil:
		return result, err
	case feedErr != nil:
		return result, feedErr
	case ctx.Err() != nil:
		return result, ctx.Err()
	}

	r.errMu.Lock()
	defer r.errMu.Unlock()
	return result, errors.Join(r.rowErrs...)
}

func (r *Runner) runRow(ctx context.Context, index int, row string) error {
	if ctx.Err() != nil {
		return nil
	}

	done := func(error) {}
	if r.opt.Scope != nil {
		ctx, done = r.opt.Scope(ctx, index, row)
	}
	fatal, err := r.processRow(ctx, index, row)
	done(err)

	if err == nil {
		return nil
	}
	if fatal {
		return err
	}
	r.errMu.Lock()
	r.rowErrs = append(r.rowErrs, err)
	r.errMu.Unlock()
	return nil
}

// processRow queries and writes one row. fatal reports whether the error
// must stop the batch.
func (r *Runner) processRow(ctx context.Context, index int, row string) (fatal bool, err error) {
	set := r.opt.Base.Clone()
	set.Add(override.KindQuery, r.opt.QueryKey, feeder.Render(r.opt.ValueTemplate, row))

	started := time.Now()
	rec, err := r.opt.Querier.Query(ctx, set)
	// Rows cut short by a cancelled batch are not failures of their own.
	if err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return false, nil
	}
	if r.opt.Collector != nil {
		r.opt.Collector.RecordRow(time.Since(started), err)
	}

	if err != nil {
		rowErr := &RowError{Index: index, Row: row, Err: err}
		r.failed.Add(1)
		if r.opt.Logger != nil {
			r.opt.Logger.LogFailure(rowErr)
		}
		return !r.opt.KeepGoing, rowErr
	}

	if err := r.write(row, rec); err != nil {
		return true, &RowError{Index: index, Row: row, Err: fmt.Errorf("write output: %w", err)}
	}
	return false, nil
}

// write emits the header on first use and then the row, as one critical
// section. The first record fixes the columns; later rows are laid out by
// those keys, leaving cells empty for keys a record lacks.
func (r *Runner) write(row string, rec extractor.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.opt.Sink != nil {
		if r.fields == nil {
			fields := rec.Keys()
			if err := r.opt.Sink.WriteHeader(append([]string{r.opt.InputColumn}, fields...)); err != nil {
				return err
			}
			r.fields = fields
		}
		values := make([]string, 0, len(r.fields)+1)
		values = append(values, row)
		for _, key := range r.fields {
			raw, ok := rec.Get(key)
			if !ok {
				values = append(values, "")
				continue
			}
			values = append(values, extractor.CellString(raw))
		}
		if err := r.opt.Sink.WriteRow(values); err != nil {
			return err
		}
	}
	r.written.Add(1)
	return nil
}

func (r *Runner) result(start time.Time) Result {
	return Result{
		Total:    r.total.Load(),
		Written:  r.written.Load(),
		Failed:   r.failed.Load(),
		Duration: time.Since(start),
	}
}
