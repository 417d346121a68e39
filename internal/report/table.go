// Package report renders stats.ReportData as a coloured terminal table, a
// live in-place view, and text or JSON summaries.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cyclicnic/cyclicnic/internal/stats"
)

const (
	defaultColumnWidth = 10
	wideColumnWidth    = 15
	rowLabelWidth      = 16

	beginRow  = "| "
	separator = " | "
)

// ANSI colours, one per bucket from on-time to worst overrun.
const (
	green       = "\033[32m"
	yellowGreen = "\033[38;5;106m"
	orange      = "\033[38;5;208m"
	red         = "\033[31m"
	boldRed     = "\033[38;5;196m"
	resetColor  = "\033[0m"
)

var bucketColors = [stats.BucketCount]string{green, yellowGreen, orange, red, boldRed}

type column struct {
	label string
	width int
	value func(stats.ReportData) int64
	// colorOf returns the colour for a row, or "" for none.
	colorOf func(stats.ReportData) string
}

// Table formats ReportData rows with fixed columns derived from the bucket
// width.
type Table struct {
	columns []column

	// Color enables ANSI colours. Leave it off when the output is not a
	// terminal.
	Color bool
}

func nsToMicros(ns uint64) int64 { return int64(ns / uint64(time.Microsecond)) }

// NewTable builds the column set. Verbose adds min, mean and median.
func NewTable(bucketWidth uint64, verbose bool) *Table {
	t := &Table{}
	t.columns = append(t.columns, column{
		label: "Count",
		width: wideColumnWidth,
		value: func(d stats.ReportData) int64 { return int64(d.Observations) },
	})

	if verbose {
		t.columns = append(t.columns,
			column{label: "Min", width: defaultColumnWidth, value: func(d stats.ReportData) int64 {
				if d.Observations == 0 {
					return 0
				}
				return nsToMicros(d.Min)
			}},
			column{label: "Mean", width: defaultColumnWidth, value: func(d stats.ReportData) int64 {
				return int64(d.Mean() / float64(time.Microsecond))
			}},
			column{label: "Median", width: defaultColumnWidth, value: func(d stats.ReportData) int64 {
				return int64(d.Median / float64(time.Microsecond))
			}},
		)
	}

	for i := 0; i < stats.BucketCount; i++ {
		width := defaultColumnWidth
		if i == 0 {
			width = wideColumnWidth
		}
		color := bucketColors[i]
		t.columns = append(t.columns, column{
			label: BucketLabel(i, bucketWidth),
			width: width,
			value: func(d stats.ReportData) int64 { return int64(d.Buckets[i]) },
			colorOf: func(d stats.ReportData) string {
				if d.Buckets[i] == 0 {
					return ""
				}
				return color
			},
		})
	}

	t.columns = append(t.columns,
		column{
			label: "Max us",
			width: defaultColumnWidth,
			value: func(d stats.ReportData) int64 { return nsToMicros(d.MaxOverrun()) },
			colorOf: func(d stats.ReportData) string {
				return bucketColors[stats.BucketIndex(d.MaxOverrun(), bucketWidth)]
			},
		},
		column{
			label: "Max Index",
			width: wideColumnWidth,
			value: func(d stats.ReportData) int64 { return int64(d.MaxIndex) },
		},
	)
	return t
}

// BucketLabel returns "< Nus" for bounded buckets and ">= Nus" for the last.
func BucketLabel(i int, bucketWidth uint64) string {
	bound := float64(stats.BucketUpperBound(i, bucketWidth)) / float64(time.Microsecond)
	if i >= stats.BucketCount-1 {
		return fmt.Sprintf(">= %.0fus", bound)
	}
	return fmt.Sprintf("< %.0fus", bound)
}

// WriteHeader writes the label row and the divider.
func (t *Table) WriteHeader(w io.Writer) error {
	var b bytes.Buffer
	b.WriteString(beginRow)
	fmt.Fprintf(&b, "%*s%s", rowLabelWidth, "Label", separator)
	for _, c := range t.columns {
		fmt.Fprintf(&b, "%*s%s", c.width, c.label, separator)
	}
	b.WriteString("\n|")
	b.WriteString(strings.Repeat("-", rowLabelWidth+2))
	b.WriteByte('+')
	for _, c := range t.columns {
		b.WriteString(strings.Repeat("-", c.width+2))
		b.WriteByte('+')
	}
	b.WriteByte('\n')
	_, err := w.Write(b.Bytes())
	return err
}

// WriteRow writes one labelled row.
func (t *Table) WriteRow(w io.Writer, label string, d stats.ReportData) error {
	var b bytes.Buffer
	b.WriteString(beginRow)
	fmt.Fprintf(&b, "%*s%s", rowLabelWidth, label, separator)
	for _, c := range t.columns {
		v := c.value(d)
		color := ""
		if t.Color && c.colorOf != nil {
			color = c.colorOf(d)
		}
		if color != "" {
			b.WriteString(color)
		}
		fmt.Fprintf(&b, "%*d", c.width, v)
		if color != "" {
			b.WriteString(resetColor)
		}
		b.WriteString(separator)
	}
	b.WriteByte('\n')
	_, err := w.Write(b.Bytes())
	return err
}

// MaxLatencySummary describes the worst cycle of a row in one line.
func MaxLatencySummary(label string, d stats.ReportData) string {
	if d.Observations == 0 {
		return fmt.Sprintf("%s: no observations\n", label)
	}
	return fmt.Sprintf("%s: max %dus (target %dus, +%dus) at iteration %d\n",
		label, nsToMicros(d.Max), nsToMicros(d.Target), nsToMicros(d.MaxOverrun()), d.MaxIndex)
}

// FormatDuration renders d as HH:MM:SS.mmm.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d.%03d",
		ms/3_600_000, ms/60_000%60, ms/1000%60, ms%1000)
}
