package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/term"
	"golang.org/x/time/rate"

	"github.com/cyclicnic/cyclicnic/internal/stats"
)

// RefreshInterval paces live redraws at 20 Hz.
const RefreshInterval = 50 * time.Millisecond

// Source is one labelled row of the live view. Data is read without
// synchronisation while the loops write it, so a row may briefly mix two
// consecutive snapshots.
type Source struct {
	Label string
	Data  *stats.ReportData
}

// Live redraws the table in place on a terminal.
type Live struct {
	w       io.Writer
	table   *Table
	sources []Source
	start   time.Time
	limiter *rate.Limiter
	tty     bool
	lines   int
}

// NewLive returns a Live writing to w. Colours and in-place redraws are only
// used when w is a terminal.
func NewLive(w io.Writer, table *Table, sources []Source, start time.Time) *Live {
	tty := IsTerminal(w)
	table.Color = tty
	return &Live{
		w:       w,
		table:   table,
		sources: sources,
		start:   start,
		limiter: rate.NewLimiter(rate.Every(RefreshInterval), 1),
		tty:     tty,
	}
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// Run redraws until ctx is done. On a non-terminal it draws nothing and
// only waits.
func (l *Live) Run(ctx context.Context) error {
	if !l.tty {
		<-ctx.Done()
		return nil
	}
	for {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil
		}
		if err := l.Render(time.Now()); err != nil {
			return err
		}
	}
}

// Render draws the current state, replacing the previous drawing on a
// terminal.
func (l *Live) Render(now time.Time) error {
	var b bytes.Buffer
	if l.tty && l.lines > 0 {
		fmt.Fprintf(&b, "\033[%dA\033[J", l.lines)
	}

	body := l.body(now)
	b.Write(body)
	l.lines = bytes.Count(body, []byte("\n"))

	_, err := l.w.Write(b.Bytes())
	return err
}

func (l *Live) body(now time.Time) []byte {
	var b bytes.Buffer
	l.table.WriteHeader(&b)
	var summary bytes.Buffer
	for _, s := range l.sources {
		if s.Data == nil {
			continue
		}
		d := *s.Data
		l.table.WriteRow(&b, s.Label, d)
		summary.WriteString(MaxLatencySummary(s.Label, d))
	}
	fmt.Fprintf(&b, "Duration: %s\n", FormatDuration(now.Sub(l.start)))
	b.Write(summary.Bytes())
	b.WriteString("\n\n")
	return b.Bytes()
}

// Clear erases the last drawing so a final report can take its place.
func (l *Live) Clear() error {
	if !l.tty || l.lines == 0 {
		return nil
	}
	_, err := fmt.Fprintf(l.w, "\033[%dA\033[J", l.lines)
	l.lines = 0
	return err
}
