//go:build linux
// +build linux

package main

import (
	"fmt"
	"io"
	"sort"
	"time"
)

// profiles defines preset cycle rates for common fieldbus setups. A zero
// BucketWidth means period/8.
var profiles = map[string]Config{
	// Standard EtherCAT cycle rates
	"500hz": {Period: 2 * time.Millisecond},
	"1khz":  {Period: time.Millisecond},
	"2khz":  {Period: 500 * time.Microsecond},
	"4khz":  {Period: 250 * time.Microsecond},
	"8khz":  {Period: 125 * time.Microsecond},

	// Fixed-length runs
	"smoke": {
		Period:     time.Millisecond,
		Iterations: 5000, // 5 seconds
	},
	"soak": {
		Period:     time.Millisecond,
		Iterations: 3600 * 1000, // 1 hour
	},

	// Motion control with a tight 10us grid
	"motion": {
		Period:      250 * time.Microsecond,
		BucketWidth: 10 * time.Microsecond,
	},
}

// printProfiles lists profiles ordered by period, then name.
func printProfiles(w io.Writer) {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := profiles[names[i]], profiles[names[j]]
		if a.Period != b.Period {
			return a.Period > b.Period
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		p := profiles[name]
		width := p.BucketWidth
		if width == 0 {
			width = p.Period / bucketWidthDivisor
		}
		line := fmt.Sprintf("  %-8s period %5dus  bucket %v", name, p.Period.Microseconds(), width)
		if p.Iterations > 0 {
			line += fmt.Sprintf("  %d iterations", p.Iterations)
		}
		fmt.Fprintln(w, line)
	}
}
