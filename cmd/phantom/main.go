// Command phantom mines the top-K highest expected-utility itemsets
// from an uncertain transactional database file and writes the ranked
// results to an output file.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzip"

	phantom "github.com/DRuanli/PHANTOM"
	"github.com/DRuanli/PHANTOM/core"
	"github.com/DRuanli/PHANTOM/ioformat"
	"github.com/DRuanli/PHANTOM/resource"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "phantom:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("phantom", flag.ContinueOnError)

	k := fs.Int("k", 10, "number of top itemsets to mine")
	processors := fs.Int("p", 4, "number of parallel mining processors")
	input := fs.String("i", "", "input database file (stdin when omitted; gz:// prefix for gzip)")
	output := fs.String("o", "results/output.txt", "output results file (gz:// prefix for gzip)")
	fs.IntVar(k, "topk", 10, "alias for -k")
	fs.IntVar(processors, "processors", 4, "alias for -p")
	fs.StringVar(input, "input", "", "alias for -i")
	fs.StringVar(output, "output", "results/output.txt", "alias for -o")
	strictBounds := fs.Bool("strict", false, "force the upper bound's optimism factor to 1.0")
	alpha := fs.Float64("alpha", 0, "uncertainty-discount factor; 0 uses the package default")
	jsonLogs := fs.Bool("json-logs", false, "emit structured logs as JSON instead of text")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: phantom [-i <input>] [-o <output>] [-k N] [-p N]\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := phantom.NewTextLogger(slog.LevelInfo)
	if *jsonLogs {
		logger = phantom.NewJSONLogger(slog.LevelInfo)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rc := resourceControllerFromEnv()

	var db *core.Database
	var err error
	if *input == "" {
		db, err = ioformat.ReadDatabase(os.Stdin)
	} else {
		db, err = readDatabaseFile(ctx, *input, rc)
	}
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	opts := []phantom.Option{
		phantom.WithLogger(logger),
		phantom.WithResourceController(rc),
	}
	if *strictBounds {
		opts = append(opts, phantom.WithStrictBounds())
	}
	if *alpha != 0 {
		opts = append(opts, phantom.WithAlpha(*alpha))
	}

	coordinator := phantom.NewCoordinator(*processors, opts...)

	start := time.Now()
	results, err := coordinator.Mine(ctx, db, *k)
	if err != nil {
		return fmt.Errorf("mining: %w", err)
	}
	elapsed := time.Since(start)

	if err := writeResultsFile(ctx, *output, results, elapsed, rc); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	fmt.Printf("mined %d itemsets in %s, written to %s\n", len(results), elapsed, *output)
	return nil
}

// readDatabaseFile opens path, transparently decompressing it if it
// carries a gz:// prefix, and parses it as an uncertain transactional
// database. When rc configures an IO throughput ceiling, reads are
// metered through it.
func readDatabaseFile(ctx context.Context, path string, rc *resource.Controller) (*core.Database, error) {
	gz := strings.HasPrefix(path, "gz://")
	path = strings.TrimPrefix(path, "gz://")

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if rc != nil {
		r = resource.NewRateLimitedReader(r, rc, ctx)
	}
	if gz {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	return ioformat.ReadDatabase(r)
}

func writeResultsFile(ctx context.Context, path string, results []core.Itemset, elapsed time.Duration, rc *resource.Controller) error {
	gz := strings.HasPrefix(path, "gz://")
	path = strings.TrimPrefix(path, "gz://")

	if dir := dirOf(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var w io.Writer = f
	if rc != nil {
		w = resource.NewRateLimitedWriter(w, rc, ctx)
	}
	if gz {
		zw := gzip.NewWriter(w)
		if err := ioformat.WriteResults(zw, results, elapsed, time.Now().UTC()); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	}

	return ioformat.WriteResults(w, results, elapsed, time.Now().UTC())
}

func dirOf(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

// resourceControllerFromEnv builds a resource.Controller from
// PHANTOM_MAX_MEMORY_BYTES, PHANTOM_MAX_BACKGROUND_WORKERS, and
// PHANTOM_MAX_IO_BYTES_PER_SEC, or returns nil if none are set.
func resourceControllerFromEnv() *resource.Controller {
	memStr := os.Getenv("PHANTOM_MAX_MEMORY_BYTES")
	workersStr := os.Getenv("PHANTOM_MAX_BACKGROUND_WORKERS")
	ioStr := os.Getenv("PHANTOM_MAX_IO_BYTES_PER_SEC")
	if memStr == "" && workersStr == "" && ioStr == "" {
		return nil
	}

	var cfg resource.Config
	if memStr != "" {
		if v, err := strconv.ParseInt(memStr, 10, 64); err == nil {
			cfg.MemoryLimitBytes = v
		}
	}
	if workersStr != "" {
		if v, err := strconv.ParseInt(workersStr, 10, 64); err == nil {
			cfg.MaxBackgroundWorkers = v
		}
	}
	if ioStr != "" {
		if v, err := strconv.ParseInt(ioStr, 10, 64); err == nil {
			cfg.IOLimitBytesPerSec = v
		}
	}
	return resource.NewController(cfg)
}
