// SPDX-License-Identifier: Apache-2.0
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"dil/grammar"
	"dil/internal/config"
	"dil/internal/driver"
	"dil/internal/errors"
	"dil/internal/ir"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	colorMode := flag.String("color", "", "colorize output: auto, always or never")
	workers := flag.Int("workers", 0, "number of functions lowered concurrently")
	function := flag.String("function", "", "print only the graph of this function (e.g. ::main or Point::dist2)")
	quiet := flag.Bool("quiet", false, "do not print graphs")
	stats := flag.Bool("stats", false, "print per-function opcode statistics")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dil-cli [flags] <file.dil>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	path := flag.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *colorMode != "" {
		cfg.Color = config.ColorMode(*colorMode)
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	configureOutput(cfg)

	startTime := time.Now()

	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read file: %v\n", err)
		os.Exit(1)
	}
	reporter := errors.NewErrorReporter(path, string(source))

	lib, diagnostics := grammar.Read(path, string(source))
	if len(diagnostics) > 0 {
		for _, d := range diagnostics {
			fmt.Print(reporter.FormatError(d))
		}
		color.Red("Reading failed after %s", formatDuration(time.Since(startTime)))
		os.Exit(1)
	}

	table, err := driver.NewTable(cfg, lib)
	if err != nil {
		fmt.Print(reporter.Report(err))
		color.Red("Symbol table construction failed after %s", formatDuration(time.Since(startTime)))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := driver.New(table, nil, cfg).LowerAll(ctx)
	if err != nil {
		color.Red("Lowering aborted: %v", err)
		os.Exit(1)
	}

	for _, res := range report.Results {
		if res.Graph == nil {
			continue
		}
		if *function != "" && res.Function.QualifiedName() != *function {
			continue
		}
		if !*quiet {
			fmt.Print(printGraph(res.Graph))
		}
		if *stats {
			fmt.Println(formatStats(res.Graph))
		}
	}

	for _, res := range report.Failures() {
		if lerr, ok := errors.AsLowering(res.Err); ok {
			fmt.Print(reporter.FormatError(lerr.Diagnostic()))
		} else {
			fmt.Print(reporter.Report(res.Err))
		}
	}

	formattedDuration := formatDuration(time.Since(startTime))
	if len(report.Failures()) == 0 {
		color.Green("Successfully lowered %s in %s: %s", path, formattedDuration, report.Summary)
	} else {
		color.Red("Lowering failed after %s: %s", formattedDuration, report.Summary)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func configureOutput(cfg *config.Config) {
	switch cfg.Color {
	case config.ColorAlways:
		color.NoColor = false
	case config.ColorNever:
		color.NoColor = true
	}

	var logPath *string
	if cfg.Log.File != "" {
		logPath = &cfg.Log.File
	}
	commonlog.Configure(cfg.Log.Verbosity, logPath)
}

func printGraph(g *ir.Graph) string {
	p := ir.NewPrinter()
	if !color.NoColor {
		p = ir.NewColorPrinter()
	}
	p.PrintGraph(g)
	return p.String()
}

func formatStats(g *ir.Graph) string {
	s := g.Stats()
	var b strings.Builder
	fmt.Fprintf(&b, "  %d blocks (%d joins, %d targets, %d catches), %d loops, %d instructions\n",
		s.Blocks, s.Joins, s.Targets, s.Catches, s.Loops, s.Instructions)
	fmt.Fprintf(&b, "  %d may throw, %d of them guarded\n", s.Throwing, s.Guarded)
	for _, op := range s.SortedOpcodes() {
		fmt.Fprintf(&b, "  %-20s %d\n", op, s.Opcodes[op])
	}
	return b.String()
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
