// quantilecheck compares the streaming P² estimate against the exact
// quantile of values piped through stdin, one per line.
// Usage: seq 1 10000 | shuf | go run ./cmd/quantilecheck --quantile 0.99
package main

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/cyclicnic/cyclicnic/internal/quantile"
)

func main() {
	q := flag.Float64P("quantile", "q", 0.5, "Quantile to estimate (0 < q < 1)")
	flag.Parse()

	if *q <= 0 || *q >= 1 {
		fmt.Fprintf(os.Stderr, "error: invalid --quantile: %v\n", *q)
		os.Exit(1)
	}

	est := quantile.New(*q)
	var values []float64

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipping %q: %v\n", line, err)
			continue
		}
		est.Add(v)
		values = append(values, v)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if len(values) == 0 {
		return
	}

	sort.Float64s(values)
	exact := values[int(math.Ceil(*q*float64(len(values))))-1]
	estimate := est.Quantile()

	relErr := 0.0
	if exact != 0 {
		relErr = math.Abs(estimate-exact) / math.Abs(exact) * 100
	}
	fmt.Printf("Count: %d | Estimate: %g | Exact: %g | Error: %.2f%%\n", len(values), estimate, exact, relErr)
}
