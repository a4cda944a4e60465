package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/torosent/poi/internal/metrics"
)

// Summary describes a finished batch.
type Summary struct {
	RunID   string        `json:"run_id"`
	Profile string        `json:"profile"`
	Output  string        `json:"output,omitempty"`
	Written int64         `json:"written"`
	Stats   metrics.Stats `json:"stats"`
}

// PrintSummary outputs a human-readable batch summary.
func PrintSummary(w io.Writer, s Summary) {
	stats := s.Stats
	fmt.Fprintf(w, "\n--- Batch %s (%s) ---\n", s.RunID, s.Profile)
	fmt.Fprintf(w, "Rows:              %d\n", stats.Rows)
	fmt.Fprintf(w, "Written:           %d\n", s.Written)
	fmt.Fprintf(w, "Failed:            %d\n", stats.Failed)
	fmt.Fprintf(w, "Duration:          %s\n", stats.Duration)
	fmt.Fprintf(w, "Rows/sec:          %.2f\n", stats.RowsPerSec)
	if s.Output != "" {
		fmt.Fprintf(w, "Output:            %s\n", s.Output)
	}
	if stats.Rows > 0 {
		lat := stats.Latency
		fmt.Fprintln(w, "\nLatency:")
		fmt.Fprintf(w, "  Min:             %s\n", lat.Min)
		fmt.Fprintf(w, "  Max:             %s\n", lat.Max)
		fmt.Fprintf(w, "  Mean:            %s\n", lat.Mean)
		fmt.Fprintf(w, "  P50:             %s\n", lat.P50)
		fmt.Fprintf(w, "  P90:             %s\n", lat.P90)
		fmt.Fprintf(w, "  P99:             %s\n", lat.P99)
	}
	if breakdown := stats.FailureBreakdown(); len(breakdown) > 0 {
		fmt.Fprintln(w, "\nFailures:")
		for _, row := range breakdown {
			fmt.Fprintf(w, "  %s: %d\n", row.Category, row.Count)
		}
	}
}

// PrintJSONSummary outputs a JSON-formatted batch summary.
func PrintJSONSummary(w io.Writer, s Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
