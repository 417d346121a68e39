package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/cyclicnic/cyclicnic/internal/stats"
)

// Row is one labelled report in the final summary.
type Row struct {
	Label string `json:"label"`
	stats.ReportData
	MeanNs       float64          `json:"mean_ns"`
	Percentiles  map[string]int64 `json:"percentiles,omitempty"`
	TailOverflow uint64           `json:"tail_overflow,omitempty"`
}

// NewRow captures r. Tail percentiles are included when r has a tail.
func NewRow(label string, r *stats.Report) Row {
	d := r.Snapshot()
	row := Row{Label: label, ReportData: d, MeanNs: d.Mean()}
	if t := r.Tail(); t != nil && t.Count() > 0 {
		row.Percentiles = t.Percentiles()
		row.TailOverflow = t.Overflow()
	}
	return row
}

// Summary is the final result of a run.
type Summary struct {
	Duration   time.Duration     `json:"-"`
	DurationNs int64             `json:"duration_ns"`
	Period     time.Duration     `json:"-"`
	PeriodNs   int64             `json:"period_ns"`
	Rows       []Row             `json:"reports"`
	Drops      map[string]uint64 `json:"drops,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Output writes a Summary.
type Output interface {
	Output(Summary, io.Writer) error
}

// OutputFunc adapts a function to Output.
type OutputFunc func(Summary, io.Writer) error

func (fn OutputFunc) Output(s Summary, w io.Writer) error { return fn(s, w) }

// JSONOutput writes the summary as indented JSON.
type JSONOutput struct{}

func (JSONOutput) Output(s Summary, w io.Writer) error {
	s.DurationNs = s.Duration.Nanoseconds()
	s.PeriodNs = s.Period.Nanoseconds()
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// TextOutput writes the final table followed by tail percentiles and drop
// counters.
type TextOutput struct {
	Table *Table
}

func (o TextOutput) Output(s Summary, w io.Writer) error {
	if err := o.Table.WriteHeader(w); err != nil {
		return err
	}
	for _, r := range s.Rows {
		if err := o.Table.WriteRow(w, r.Label, r.ReportData); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "Duration: %s\n", FormatDuration(s.Duration)); err != nil {
		return err
	}
	for _, r := range s.Rows {
		if _, err := io.WriteString(w, MaxLatencySummary(r.Label, r.ReportData)); err != nil {
			return err
		}
	}

	for _, r := range s.Rows {
		if len(r.Percentiles) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s tail:", r.Label)
		for _, p := range stats.TailPercentiles {
			key := stats.PercentileKey(p)
			if v, ok := r.Percentiles[key]; ok {
				fmt.Fprintf(w, " %s=%s", key, formatNanos(v))
			}
		}
		if r.TailOverflow > 0 {
			fmt.Fprintf(w, " overflow=%d", r.TailOverflow)
		}
		fmt.Fprintln(w)
	}

	if len(s.Drops) > 0 {
		fmt.Fprint(w, "Dropped:")
		for _, k := range sortedKeys(s.Drops) {
			fmt.Fprintf(w, " %s=%d", k, s.Drops[k])
		}
		fmt.Fprintln(w)
	}
	_, err := fmt.Fprintln(w)
	return err
}

// formatNanos picks a unit by magnitude.
func formatNanos(ns int64) string {
	d := time.Duration(ns)
	switch {
	case d < time.Microsecond:
		return fmt.Sprintf("%dns", ns)
	case d < time.Millisecond:
		return fmt.Sprintf("%.2fus", float64(ns)/1e3)
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(ns)/1e6)
	default:
		return fmt.Sprintf("%.3fs", float64(ns)/1e9)
	}
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
