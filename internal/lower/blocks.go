package lower

import (
	"dil/internal/ast"
	"dil/internal/errors"
	"dil/internal/ir"
	"dil/internal/scope"
)

// breakableBlock is the target of breaks to one labeled statement. The join
// is created on the first break.
type breakableBlock struct {
	outer        *breakableBlock
	label        *ast.LabeledStatement
	destination  *ir.JoinEntry
	outerFinally *tryFinallyBlock
	contextDepth int
	tryIndex     int
}

func (b *Builder) pushBreakable(label *ast.LabeledStatement) (*breakableBlock, func()) {
	block := &breakableBlock{
		outer:        b.breakable,
		label:        label,
		outerFinally: b.tryFinally,
		contextDepth: b.contextDepth,
		tryIndex:     b.currentTryIndex(),
	}
	b.breakable = block
	return block, func() { b.breakable = block.outer }
}

func (bb *breakableBlock) hadJumper() bool { return bb.destination != nil }

func (b *Builder) breakDestination(stmt *ast.BreakStatement) (*ir.JoinEntry, *tryFinallyBlock, int) {
	for block := b.breakable; block != nil; block = block.outer {
		if block.label == stmt.Target {
			if block.destination == nil {
				block.destination = b.buildJoinEntryAt(block.tryIndex)
			}
			return block.destination, block.outerFinally, block.contextDepth
		}
	}
	fatalf(stmt, errors.MalformedIR, "break to a label that does not enclose it")
	return nil, nil, 0
}

// switchBlock holds the lazily created joins of one switch, keyed by case
// index. Multi-expression cases, fallthrough and continue share them.
type switchBlock struct {
	outer        *switchBlock
	cases        map[*ast.SwitchCase]int
	destinations map[int]*ir.JoinEntry
	outerFinally *tryFinallyBlock
	contextDepth int
	tryIndex     int
}

func (b *Builder) pushSwitch(stmt *ast.SwitchStatement) (*switchBlock, func()) {
	block := &switchBlock{
		outer:        b.switchBlock,
		cases:        make(map[*ast.SwitchCase]int, len(stmt.Cases)),
		destinations: make(map[int]*ir.JoinEntry),
		outerFinally: b.tryFinally,
		contextDepth: b.contextDepth,
		tryIndex:     b.currentTryIndex(),
	}
	for i, c := range stmt.Cases {
		block.cases[c] = i
	}
	b.switchBlock = block
	return block, func() { b.switchBlock = block.outer }
}

func (sb *switchBlock) hadJumper(index int) bool {
	_, ok := sb.destinations[index]
	return ok
}

func (sb *switchBlock) destination(b *Builder, index int) *ir.JoinEntry {
	join, ok := sb.destinations[index]
	if !ok {
		join = b.buildJoinEntryAt(sb.tryIndex)
		sb.destinations[index] = join
	}
	return join
}

func (b *Builder) continueDestination(stmt *ast.ContinueSwitchStatement) (*ir.JoinEntry, *tryFinallyBlock, int) {
	for block := b.switchBlock; block != nil; block = block.outer {
		if index, ok := block.cases[stmt.Target]; ok {
			return block.destination(b, index), block.outerFinally, block.contextDepth
		}
	}
	fatalf(stmt, errors.MalformedIR, "continue to a switch case that does not enclose it")
	return nil, nil, 0
}

// tryFinallyBlock records what is needed to replay a finalizer from a jump
// out of its body: the frame depth, the handler index outside the try and
// the construct depths the finalizer was analyzed at.
type tryFinallyBlock struct {
	outer        *tryFinallyBlock
	finalizer    ast.Statement
	contextDepth int
	tryIndex     int
	depth        depths
}

func (b *Builder) pushTryFinally(finalizer ast.Statement, depth depths) func() {
	block := &tryFinallyBlock{
		outer:        b.tryFinally,
		finalizer:    finalizer,
		contextDepth: b.contextDepth,
		tryIndex:     b.currentTryIndex(),
		depth:        depth,
	}
	b.tryFinally = block
	return func() { b.tryFinally = block.outer }
}

type tryCatchBlock struct {
	outer    *tryCatchBlock
	tryIndex int
}

func (b *Builder) pushTryCatch(tryIndex int) func() {
	block := &tryCatchBlock{outer: b.tryCatch, tryIndex: tryIndex}
	b.tryCatch = block
	return func() { b.tryCatch = block.outer }
}

// catchBlock is the handler a rethrow inside a catch clause refers to.
type catchBlock struct {
	outer         *catchBlock
	exception     *scope.Variable
	stackTrace    *scope.Variable
	catchTryIndex int
}

func (b *Builder) pushCatch(exception, stackTrace *scope.Variable, catchTryIndex int) func() {
	block := &catchBlock{outer: b.catchBlock, exception: exception, stackTrace: stackTrace, catchTryIndex: catchTryIndex}
	b.catchBlock = block
	return func() { b.catchBlock = block.outer }
}

// translateFinalizer translates a finalizer at the depths it was analyzed
// at, restoring the builder's depths afterwards.
func (b *Builder) translateFinalizer(finalizer ast.Statement, depth depths) ir.Fragment {
	saved := b.depth
	b.depth = depth
	defer func() { b.depth = saved }()
	return b.translateStatement(finalizer)
}

// translateFinallyFinalizers inlines every finalizer between the current
// position and outerFinally, innermost first. targetContextDepth is the
// frame depth expected at the jump target, or -1 when returning.
func (b *Builder) translateFinallyFinalizers(outerFinally *tryFinallyBlock, targetContextDepth int) ir.Fragment {
	savedFinally := b.tryFinally
	savedTryCatch := b.tryCatch
	savedContextDepth := b.contextDepth
	defer func() {
		b.tryFinally = savedFinally
		b.tryCatch = savedTryCatch
		b.contextDepth = savedContextDepth
	}()

	var f ir.Fragment
	for b.tryFinally != outerFinally {
		if b.tryFinally == nil {
			errors.Fatal(errors.MalformedIR, b.position(), "jump target is not enclosed by the current finalizers")
		}
		block := b.tryFinally

		f = f.Append(b.adjustContextTo(block.contextDepth))

		// The finalizer runs in the handler region outside its try.
		changed := false
		for b.currentTryIndex() != block.tryIndex {
			b.tryCatch = b.tryCatch.outer
			changed = true
		}
		if changed {
			join := b.buildJoinEntry()
			f = f.Append(b.gotoJoin(join))
			f = ir.Fragment{Entry: f.Entry, Exit: join}
		}

		b.tryFinally = block.outer
		f = f.Append(b.translateFinalizer(block.finalizer, block.depth))
		if f.IsClosed() {
			break
		}
	}

	if f.IsOpen() && targetContextDepth != -1 {
		f = f.Append(b.adjustContextTo(targetContextDepth))
	}
	return f
}
