package driver

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dil/grammar"
	"dil/internal/config"
	"dil/internal/errors"
	"dil/internal/symbols"
)

func load(t *testing.T, cfg *config.Config, source string) *Driver {
	t.Helper()
	lib, diags := grammar.Read("test.dil", source)
	require.Empty(t, diags)
	table, err := NewTable(cfg, lib)
	require.NoError(t, err)
	return New(table, nil, cfg)
}

func withWorkers(n int) *config.Config {
	cfg := config.Default()
	cfg.Workers = n
	return cfg
}

func TestLowerAllIncludesClosures(t *testing.T) {
	d := load(t, withWorkers(4), `
library t;
fun main() {
  var n = 0;
  var inc = fun () {
    var twice = fun () => n = n + 2;
    return twice();
  };
  inc();
  return n;
}
fun other(x) => x;
`)
	report, err := d.LowerAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Failures())
	assert.Equal(t, 4, report.Summary.Functions)
	assert.Equal(t, 2, report.Summary.Closures)

	require.Len(t, report.Results, 4)
	assert.Equal(t, "::main", report.Results[0].Function.QualifiedName())
	assert.Equal(t, "::other", report.Results[1].Function.QualifiedName())
	assert.Equal(t, symbols.ClosureFunction, report.Results[2].Function.Kind)
	assert.Same(t, report.Results[2].Function, report.Results[3].Function.Parent)
	assert.NotNil(t, report.Graph("::main"))
}

func TestFailuresAreIsolated(t *testing.T) {
	d := load(t, withWorkers(2), `
library t;
fun good() => 1;
fun bad() {
  yield 1;
}
fun alsoGood() => 2;
`)
	report, err := d.LowerAll(context.Background())
	require.NoError(t, err)

	failures := report.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "::bad", failures[0].Function.QualifiedName())
	assert.Nil(t, failures[0].Graph)
	le, ok := errors.AsLowering(failures[0].Err)
	require.True(t, ok)
	assert.Equal(t, errors.UnsupportedConstruct, le.Kind)
	assert.Equal(t, "::bad", le.Function)

	assert.NotNil(t, report.Graph("::good"))
	assert.NotNil(t, report.Graph("::alsoGood"))
	assert.Equal(t, 1, report.Summary.Failed)
}

func TestSerialAndParallelRunsAgree(t *testing.T) {
	source, err := os.ReadFile("../../examples/shapes.dil")
	require.NoError(t, err)

	run := func(workers int) map[string]int {
		d := load(t, withWorkers(workers), string(source))
		report, err := d.LowerAll(context.Background())
		require.NoError(t, err)
		require.Empty(t, report.Failures())
		blocks := make(map[string]int)
		for _, res := range report.Results {
			blocks[res.Function.QualifiedName()] = res.Graph.MaxBlockID
		}
		return blocks
	}

	serial := run(1)
	assert.NotEmpty(t, serial)
	assert.Equal(t, serial, run(8))
}

func TestCancelledRun(t *testing.T) {
	d := load(t, withWorkers(2), `
library t;
fun main() => 1;
`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.LowerAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewTableLoadsManifests(t *testing.T) {
	path := t.TempDir() + "/extra.yaml"
	require.NoError(t, os.WriteFile(path, []byte(`
functions:
  - {name: log, parameters: 1}
`), 0o644))

	cfg := config.Default()
	cfg.Manifests = []string{path}
	d := load(t, cfg, `
library t;
fun main() {
  log("hi");
}
`)
	report, err := d.LowerAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Failures())

	cfg.Manifests = []string{path + ".missing"}
	_, err = NewTable(cfg, nil)
	assert.Error(t, err)
}

func TestMutuallyDependentConstantsFail(t *testing.T) {
	d := load(t, withWorkers(4), `
library t;
const x = y;
const y = x;
fun a() => x;
fun b() => y;
`)

	done := make(chan *Report, 1)
	go func() {
		report, err := d.LowerAll(context.Background())
		assert.NoError(t, err)
		done <- report
	}()

	var report *Report
	select {
	case report = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("lowering x = y and y = x did not finish")
	}

	failed := make(map[string]errors.Kind)
	for _, res := range report.Failures() {
		le, ok := errors.AsLowering(res.Err)
		require.True(t, ok, "unexpected error %v", res.Err)
		failed[res.Function.QualifiedName()] = le.Kind
	}
	assert.Equal(t, errors.NotAConstant, failed["::a"])
	assert.Contains(t, failed, "::b")
	assert.Equal(t, errors.NotAConstant, failed["::b"])
}

func TestTearOffsAreLoweredOnce(t *testing.T) {
	d := load(t, withWorkers(2), `
library t;
fun main() {
  var f = helper;
  var g = helper;
  return f(2);
}
fun other() => helper;
fun helper(x) => x;
`)
	report, err := d.LowerAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Failures())
	assert.Equal(t, 4, report.Summary.Functions)
	assert.Equal(t, 1, report.Summary.Closures)

	g := report.Graph("::helper#tearoff")
	require.NotNil(t, g)
	assert.Equal(t, symbols.ImplicitClosure, g.Function.Kind)
	assert.Equal(t, 1, g.Count("StaticCall"))
}
