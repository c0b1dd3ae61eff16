package ioformat

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/DRuanli/PHANTOM/core"
)

// WriteResults writes the output file format: a header block of
// comment lines followed by one CSV line per result:
//
//	<rank>,{item1, item2, ...},<expected_utility>,<upper_bound>,<has_negative>
//
// with items lexicographically sorted inside the braces, six-digit
// fractional formatting for numbers, and a boolean literal for the flag.
func WriteResults(w io.Writer, results []core.Itemset, elapsed time.Duration, timestamp time.Time) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "# PHANTOM Mining Results")
	fmt.Fprintf(bw, "# Execution Time: %d ms\n", elapsed.Milliseconds())
	fmt.Fprintf(bw, "# Timestamp: %s\n", timestamp.Format(time.RFC3339))

	for i, x := range results {
		items := make([]string, len(x.Items))
		copy(items, x.Items)
		sort.Strings(items)

		fmt.Fprintf(bw, "%d,{%s},%s,%s,%t\n",
			i+1,
			strings.Join(items, ", "),
			formatFloat(x.EU),
			formatFloat(x.UB),
			x.HasNeg,
		)
	}

	return bw.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
