// Package runner fans one request profile out over many input rows.
//
// Every row gets its own copy of the base override set plus one query
// parameter carrying the row value, and all rows run concurrently:
//
//	query := func(ctx context.Context, set override.Set) (extractor.Record, error) {
//		return profile.Query(ctx, client, set)
//	}
//	r := runner.New(runner.Options{
//		Querier:       runner.QuerierFunc(query),
//		QueryKey:      "address",
//		ValueTemplate: "{{row}}人民政府",
//		Sink:          csvSink,
//	})
//	result, err := r.Run(ctx, rows)
//
// # Output
//
// The first record to complete decides the header: the input column name
// followed by that record's field names. The header is written exactly once
// and every row is written under the same lock, so lines never interleave.
// Row order in the output is completion order.
//
// # Failures
//
// By default the first failed row cancels the batch and is returned as a
// [*RowError]. With [Options.KeepGoing] failed rows are skipped, reported to
// the [FailureLogger], and returned together via errors.Join once every row
// has finished. Sink errors always abort the batch.
//
// [Options.Scope] wraps each row, which is how the command line attaches a
// trace span per row.
package runner
