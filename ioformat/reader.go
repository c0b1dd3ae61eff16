// Package ioformat implements PHANTOM's input-file parser and
// output-file writer: the line-oriented uncertain-transaction format
// and the CSV results format.
package ioformat

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/DRuanli/PHANTOM/core"
)

// ErrMalformedLine wraps a parse failure with its 1-based line number
// and the offending text, so callers can surface an actionable error
// without the coordinator ever starting.
type ErrMalformedLine struct {
	Line int
	Text string
	Err  error
}

func (e *ErrMalformedLine) Error() string {
	return fmt.Sprintf("line %d: %q: %v", e.Line, e.Text, e.Err)
}

func (e *ErrMalformedLine) Unwrap() error { return e.Err }

// ReadDatabase parses the input file format:
//
//	<tid> <existence_probability> <item>:<prob>:<utility> <item>:<prob>:<utility> ...
//
// Tokens are whitespace-delimited; item-triplet fields are
// colon-separated. Lines that are blank or start with '#' are ignored.
// NaN/Inf probabilities or utilities are rejected (the same guard
// against numerical anomalies poisoning downstream bounds).
func ReadDatabase(r io.Reader) (*core.Database, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var txs []core.Transaction
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		tx, err := parseLine(line)
		if err != nil {
			return nil, &ErrMalformedLine{Line: lineNo, Text: line, Err: err}
		}
		if err := tx.Validate(); err != nil {
			return nil, &ErrMalformedLine{Line: lineNo, Text: line, Err: err}
		}
		txs = append(txs, tx)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	return core.NewDatabase(txs), nil
}

func parseLine(line string) (core.Transaction, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return core.Transaction{}, fmt.Errorf("expected at least <tid> <prob>, got %d fields", len(fields))
	}

	tid := fields[0]
	prob, err := parseFloat(fields[1])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("existence probability: %w", err)
	}

	items := make(map[string]core.ItemFact, len(fields)-2)
	for _, token := range fields[2:] {
		parts := strings.Split(token, ":")
		if len(parts) != 3 {
			return core.Transaction{}, fmt.Errorf("item triplet %q must be item:prob:utility", token)
		}
		item := parts[0]
		if item == "" {
			return core.Transaction{}, fmt.Errorf("item triplet %q has empty item identifier", token)
		}
		itemProb, err := parseFloat(parts[1])
		if err != nil {
			return core.Transaction{}, fmt.Errorf("item %s probability: %w", item, err)
		}
		utility, err := parseFloat(parts[2])
		if err != nil {
			return core.Transaction{}, fmt.Errorf("item %s utility: %w", item, err)
		}
		if _, dup := items[item]; dup {
			return core.Transaction{}, fmt.Errorf("item %s appears more than once", item)
		}
		items[item] = core.ItemFact{Prob: itemProb, Utility: utility}
	}

	return core.Transaction{TID: tid, Prob: prob, Items: items}, nil
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("value %q is NaN/Inf", s)
	}
	return v, nil
}
