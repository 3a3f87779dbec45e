// Package driver lowers whole libraries. Functions are independent once the
// symbol table is built, so they are lowered on a bounded pool of workers,
// each owning its own graph builder.
package driver

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"dil/internal/ast"
	"dil/internal/config"
	"dil/internal/constant"
	"dil/internal/ir"
	"dil/internal/lower"
	"dil/internal/symbols"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("dil.driver")

// Result is the outcome of lowering one function. Exactly one of Graph and
// Err is set.
type Result struct {
	Function *symbols.Function
	Graph    *ir.Graph
	Err      error
	Elapsed  time.Duration
}

// Summary aggregates a run.
type Summary struct {
	Functions    int
	Closures     int
	Failed       int
	Blocks       int
	Instructions int
	Loops        int
	Elapsed      time.Duration
}

// Report holds one result per lowered function: library members in
// declaration order, then closures discovered while lowering them.
type Report struct {
	Results []*Result
	Summary Summary
}

// Failures returns the results that carry an error.
func (r *Report) Failures() []*Result {
	var out []*Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Graph returns the graph built for the function with the given qualified
// name, or nil.
func (r *Report) Graph(name string) *ir.Graph {
	for _, res := range r.Results {
		if res.Graph != nil && res.Function.QualifiedName() == name {
			return res.Graph
		}
	}
	return nil
}

type Driver struct {
	table *symbols.Table
	pool  *constant.Pool
	cfg   *config.Config
}

func New(table *symbols.Table, pool *constant.Pool, cfg *config.Config) *Driver {
	if cfg == nil {
		cfg = config.Default()
	}
	if pool == nil {
		pool = constant.NewPool()
	}
	return &Driver{table: table, pool: pool, cfg: cfg}
}

// NewTable builds a symbol table holding the core manifest, the manifests
// named by cfg and lib.
func NewTable(cfg *config.Config, lib *ast.Library) (*symbols.Table, error) {
	table, err := symbols.NewCoreTable()
	if err != nil {
		return nil, err
	}
	for _, path := range cfg.Manifests {
		if err := table.LoadManifestFile(path); err != nil {
			return nil, err
		}
	}
	if lib != nil {
		if err := table.AddLibrary(lib); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// LowerAll lowers every lowerable library member, then the closures those
// graphs allocate, round by round until no new closure appears. A failing
// function does not stop the others; only cancellation aborts the run.
func (d *Driver) LowerAll(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{}

	var pending []*symbols.Function
	for _, fn := range d.table.Functions() {
		if fn.IsLowerable() {
			pending = append(pending, fn)
		}
	}

	seen := make(map[*symbols.Function]bool)
	for round := 0; len(pending) > 0; round++ {
		log.Debugf("round %d: lowering %d functions", round, len(pending))
		for _, fn := range pending {
			seen[fn] = true
		}

		results := d.Lower(ctx, pending)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.Results = append(report.Results, results...)

		pending = nil
		for _, res := range results {
			if res.Graph == nil {
				continue
			}
			for _, closure := range res.Graph.Closures {
				if !seen[closure] {
					seen[closure] = true
					pending = append(pending, closure)
				}
			}
		}
		sort.SliceStable(pending, func(i, j int) bool {
			return pending[i].QualifiedName() < pending[j].QualifiedName()
		})
	}

	report.Summary = summarize(report.Results)
	report.Summary.Elapsed = time.Since(start)
	log.Infof("lowered %d functions (%d closures), %d failed, in %s",
		report.Summary.Functions, report.Summary.Closures, report.Summary.Failed, report.Summary.Elapsed)
	return report, nil
}

// Lower builds a graph for each function. Results are in input order. With
// one worker everything runs on the calling goroutine.
func (d *Driver) Lower(ctx context.Context, fns []*symbols.Function) []*Result {
	results := make([]*Result, len(fns))
	workers := min(d.cfg.Workers, len(fns))
	if workers <= 1 {
		b := lower.NewBuilder(d.table, d.pool, d.cfg)
		for i, fn := range fns {
			results[i] = d.lowerOne(ctx, b, fn)
		}
		return results
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b := lower.NewBuilder(d.table, d.pool, d.cfg)
			for i := range jobs {
				results[i] = d.lowerOne(ctx, b, fns[i])
			}
		}()
	}

	for i := range fns {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}

func (d *Driver) lowerOne(ctx context.Context, b *lower.Builder, fn *symbols.Function) *Result {
	res := &Result{Function: fn}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	start := time.Now()
	res.Graph, res.Err = b.BuildGraph(fn)
	res.Elapsed = time.Since(start)
	if res.Err != nil {
		log.Errorf("%s: %s", fn.QualifiedName(), res.Err)
	} else {
		log.Debugf("%s: %d blocks in %s", fn.QualifiedName(), len(res.Graph.Blocks), res.Elapsed)
	}
	return res
}

func summarize(results []*Result) Summary {
	var s Summary
	for _, res := range results {
		s.Functions++
		if res.Function.Kind == symbols.ClosureFunction || res.Function.Kind == symbols.ImplicitClosure {
			s.Closures++
		}
		if res.Err != nil {
			s.Failed++
			continue
		}
		stats := res.Graph.Stats()
		s.Blocks += stats.Blocks
		s.Instructions += stats.Instructions
		s.Loops += stats.Loops
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("%d functions (%d closures), %d blocks, %d instructions, %d loops, %d failed",
		s.Functions, s.Closures, s.Blocks, s.Instructions, s.Loops, s.Failed)
}
