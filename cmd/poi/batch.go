package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/torosent/poi/internal/config"
	"github.com/torosent/poi/internal/extractor"
	"github.com/torosent/poi/internal/feeder"
	"github.com/torosent/poi/internal/metrics"
	"github.com/torosent/poi/internal/output"
	"github.com/torosent/poi/internal/override"
	"github.com/torosent/poi/internal/runner"
	"github.com/torosent/poi/internal/tracing"
)

const progressInterval = time.Second

type batchOptions struct {
	profile     string
	input       string
	inputType   string
	column      string
	output      string
	key         string
	template    string
	inputColumn string
	extras      []string
}

func newBatchCmd() *cobra.Command {
	var opts batchOptions

	cmd := &cobra.Command{
		Use:   "batch -p PROFILE -i FILE [-o FILE]",
		Short: "Query a profile once per input row and write the records as CSV",
		Long: "batch reads one value per row from a CSV, JSON or text file, sends it as a\n" +
			"query parameter of the profile request and writes one CSV line per row.\n" +
			"The first output column holds the input row, the rest the extracted fields.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatch(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.profile, "profile", "p", "", "Profile name")
	flags.StringVarP(&opts.input, "input", "i", "", "Input file (csv, json or one value per line)")
	flags.StringVar(&opts.inputType, "input-type", "", "Input format: csv, json or lines (default from file extension)")
	flags.StringVar(&opts.column, "column", "", "CSV column or JSON field holding the row value (default first column)")
	flags.StringVarP(&opts.output, "output", "o", "", "Output CSV file (default stdout)")
	flags.StringVar(&opts.key, "key", runner.DefaultQueryKey, "Query parameter that carries the row value")
	flags.StringVar(&opts.template, "template", feeder.RowPlaceholder, "Row value template; "+feeder.RowPlaceholder+" is replaced by the row")
	flags.StringVar(&opts.inputColumn, "input-column", runner.DefaultInputColumn, "Header of the output column holding the input row")
	flags.StringArrayVarP(&opts.extras, "extra", "e", nil, extraUsage)
	config.RegisterBatchFlags(flags)
	_ = cmd.MarkFlagRequired("profile")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runBatch(cmd *cobra.Command, opts batchOptions) (err error) {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	profile, err := e.profile(opts.profile)
	if err != nil {
		return err
	}
	base, err := override.FromTokens(opts.extras)
	if err != nil {
		return err
	}

	rows, err := feeder.New(opts.input, opts.inputType, opts.column)
	if err != nil {
		return err
	}
	defer rows.Close()

	stdout := cmd.OutOrStdout()
	summaryOut := stdout
	var sink runner.Sink
	if opts.output != "" {
		file, createErr := output.CreateCSVFile(opts.output)
		if createErr != nil {
			return createErr
		}
		defer func() {
			if closeErr := file.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close output: %w", closeErr)
			}
		}()
		sink = file
	} else {
		sink = output.NewCSVSink(stdout)
		summaryOut = cmd.ErrOrStderr()
	}

	collector := metrics.NewCollector()
	runOpts := runner.Options{
		Querier: runner.QuerierFunc(func(ctx context.Context, set override.Set) (extractor.Record, error) {
			return profile.Query(ctx, e.client, set)
		}),
		Base:          base,
		QueryKey:      opts.key,
		ValueTemplate: opts.template,
		InputColumn:   opts.inputColumn,
		Concurrency:   e.settings.Concurrency,
		KeepGoing:     e.settings.KeepGoing,
		Sink:          sink,
		Collector:     collector,
	}
	if e.settings.LogErrors {
		runOpts.Logger = e.logger
	}
	if e.tracing.Exporting() {
		runOpts.Scope = rowSpans(e.tracing, profile.Name)
	}

	r := runner.New(runOpts)

	var progress *output.ProgressReporter
	if e.settings.Progress {
		progress = output.NewProgressReporter(r, progressInterval, cmd.ErrOrStderr())
		progress.Start()
	}
	result, runErr := r.Run(cmd.Context(), rows)
	if progress != nil {
		progress.Stop()
	}

	summary := output.Summary{
		RunID:   e.runID,
		Profile: profile.Name,
		Output:  opts.output,
		Written: result.Written,
		Stats:   collector.Stats(result.Duration),
	}
	if e.settings.JSONSummary {
		if err := output.PrintJSONSummary(summaryOut, summary); err != nil {
			return err
		}
	} else {
		output.PrintSummary(summaryOut, summary)
	}

	if runErr != nil {
		return fmt.Errorf("batch %s: %w", e.runID, runErr)
	}
	return nil
}

func rowSpans(provider *tracing.Provider, profile string) runner.RowScope {
	tracer := provider.Tracer()
	return func(ctx context.Context, index int, _ string) (context.Context, func(error)) {
		ctx, span := tracing.StartRowSpan(ctx, tracer, profile, index)
		return ctx, func(err error) {
			tracing.EndSpan(span, err)
		}
	}
}
