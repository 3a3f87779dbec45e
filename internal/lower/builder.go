// Package lower builds target IR graphs from source IR member bodies.
//
// A Builder walks one body with a simulated expression stack and produces
// fragments that are concatenated into a graph. Structured control flow is
// tracked with chains of context records (breakable blocks, switches,
// try-finally and try-catch regions) that are pushed while their body is
// translated and popped on the way out.
package lower

import (
	"github.com/tliron/commonlog"

	"dil/internal/ast"
	"dil/internal/config"
	"dil/internal/constant"
	"dil/internal/errors"
	"dil/internal/ir"
	"dil/internal/scope"
	"dil/internal/symbols"
)

var log = commonlog.GetLogger("dil.lower")

// depths counts the constructs enclosing the current position. The scope
// analyzer counts the same way, so the counters index its synthetic
// variables and the loop count matches Scope.LoopDepth. A for statement's
// initializers are outside its loop.
type depths struct {
	loop     int
	try      int
	catch    int
	forIn    int
	switches int
}

// Builder lowers one function at a time. It is not safe for concurrent use;
// every worker owns its own builder.
type Builder struct {
	bridge    symbols.Bridge
	evaluator *constant.Evaluator
	pool      *constant.Pool
	cfg       *config.Config

	function *symbols.Function
	result   *scope.Result
	info     *scope.FunctionInfo
	this     *scope.Variable

	graphEntry   *ir.GraphEntry
	nextBlockID  int
	nextInstrID  int
	nextTemp     int
	nextTryIndex int
	closures     []*symbols.Function

	stack            []*stackValue
	pendingArguments int

	contextDepth int
	depth        depths
	// pos is the position of the statement or expression being translated.
	pos ast.Position

	breakable   *breakableBlock
	switchBlock *switchBlock
	tryFinally  *tryFinallyBlock
	tryCatch    *tryCatchBlock
	catchBlock  *catchBlock

	// onStatement is called after every translated statement.
	onStatement func(stmt ast.Statement, depth int)
}

// NewBuilder creates a builder. The pool is shared by every builder of a
// program; the evaluator is private to the builder.
func NewBuilder(bridge symbols.Bridge, pool *constant.Pool, cfg *config.Config) *Builder {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Builder{
		bridge:    bridge,
		evaluator: constant.NewEvaluator(bridge, pool),
		pool:      pool,
		cfg:       cfg,
	}
}

func (b *Builder) reset(fn *symbols.Function) {
	b.function = fn
	b.result = nil
	b.info = nil
	b.this = nil
	b.graphEntry = nil
	b.nextBlockID = b.cfg.FirstBlockID
	b.nextInstrID = 1
	b.nextTemp = 1
	b.nextTryIndex = 0
	b.closures = nil
	b.stack = b.stack[:0]
	b.pendingArguments = 0
	b.contextDepth = -1
	b.depth = depths{}
	b.pos = memberPos(fn)
	b.breakable = nil
	b.switchBlock = nil
	b.tryFinally = nil
	b.tryCatch = nil
	b.catchBlock = nil
}

// BuildGraph lowers fn. A fatal error aborts the function and is returned
// tagged with its name; no partial graph is produced.
func (b *Builder) BuildGraph(fn *symbols.Function) (graph *ir.Graph, err error) {
	defer func() {
		if err != nil {
			graph = nil
			err = errors.WithFunction(err, fn.QualifiedName())
		}
	}()
	defer errors.Recover(&err)

	b.reset(fn)
	b.graphEntry = ir.NewGraphEntry(b.allocateBlockID())

	if fn.IsExternal {
		errors.Fatal(errors.MalformedIR, memberPos(fn), "external function '%s' has no body", fn.QualifiedName())
	}

	normal := ir.NewFunctionEntry(b.allocateBlockID())
	b.emitEntry(normal)
	b.graphEntry.Normal = normal

	var body ir.Fragment
	switch fn.Kind {
	case symbols.ImplicitGetter:
		body = b.buildImplicitGetter(fn)
	case symbols.ImplicitSetter:
		body = b.buildImplicitSetter(fn)
	case symbols.StaticInitializer:
		body = b.buildStaticInitializer(fn)
	case symbols.ClosureFunction:
		body = b.buildClosure(fn)
	case symbols.ImplicitClosure:
		body = b.buildImplicitClosure(fn)
	case symbols.RegularFunction, symbols.GetterFunction, symbols.SetterFunction,
		symbols.FactoryFunction, symbols.ConstructorFunction:
		body = b.buildMember(fn)
	default:
		errors.Fatal(errors.UnsupportedConstruct, memberPos(fn), "cannot lower %s '%s'", fn.Kind, fn.QualifiedName())
	}
	if body.IsOpen() {
		errors.Fatal(errors.MalformedIR, memberPos(fn), "body of '%s' does not end in a return", fn.QualifiedName())
	}
	if depth := b.stackDepth(); depth != 0 {
		errors.Fatal(errors.MalformedIR, memberPos(fn), "%d values left on the expression stack", depth)
	}
	fragmentFrom(normal).Append(body)

	graph = ir.NewGraph(fn, b.graphEntry)
	graph.Closures = b.closures
	graph.TryIndexCount = b.nextTryIndex
	graph.MaxBlockID = b.nextBlockID - 1
	if err := graph.Discover(); err != nil {
		errors.Fatal(errors.MalformedIR, memberPos(fn), "%v", err)
	}

	log.Debugf("built %s: %d blocks, %d closures", fn.QualifiedName(), len(graph.Blocks), len(graph.Closures))
	return graph, nil
}

// analyze runs the scope analyzer on the member fn belongs to.
func (b *Builder) analyze(member ast.Node) *scope.Result {
	result, err := scope.NewAnalyzer(b.evaluator).Analyze(member, nil)
	if err != nil {
		errors.Raise(err)
	}
	return result
}

func (b *Builder) allocateBlockID() int {
	id := b.nextBlockID
	b.nextBlockID++
	return id
}

func (b *Builder) allocateTryIndex() int {
	index := b.nextTryIndex
	b.nextTryIndex++
	return index
}

func (b *Builder) currentTryIndex() int {
	if b.tryCatch == nil {
		return ir.InvalidTryIndex
	}
	return b.tryCatch.tryIndex
}

func (b *Builder) buildTargetEntry() *ir.TargetEntry {
	return b.emitEntry(ir.NewTargetEntry(b.allocateBlockID(), b.currentTryIndex())).(*ir.TargetEntry)
}

func (b *Builder) buildJoinEntry() *ir.JoinEntry {
	return b.buildJoinEntryAt(b.currentTryIndex())
}

func (b *Builder) buildJoinEntryAt(tryIndex int) *ir.JoinEntry {
	return b.emitEntry(ir.NewJoinEntry(b.allocateBlockID(), tryIndex)).(*ir.JoinEntry)
}

func (b *Builder) emitEntry(entry ir.BlockEntry) ir.BlockEntry {
	ir.SetID(entry, b.nextInstrID)
	b.nextInstrID++
	return entry
}

func (b *Builder) position() ast.Position { return b.pos }

func memberPos(fn *symbols.Function) ast.Position {
	if fn.Node != nil {
		return fn.Node.Pos
	}
	if fn.Member != nil {
		return fn.Member.NodePos()
	}
	return ast.Position{}
}

func fatalf(node ast.Node, kind errors.Kind, format string, args ...any) {
	pos := ast.Position{}
	if node != nil {
		pos = node.NodePos()
	}
	errors.Fatal(kind, pos, format, args...)
}
