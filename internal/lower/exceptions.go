package lower

import (
	"dil/internal/ast"
	"dil/internal/errors"
	"dil/internal/ir"
	"dil/internal/symbols"
)

// tryEntry starts a try body in a fresh block carrying tryIndex. The frame
// is saved first so handlers can restore it.
func (b *Builder) tryEntry(tryIndex int) ir.Fragment {
	var f ir.Fragment
	if b.info.UsesContexts {
		f = b.loadLocal(b.info.CurrentContext)
		f = f.Append(b.storeLocal(b.info.CatchContextVariables[b.depth.try]))
		f = f.Append(b.drop())
	}
	entry := ir.NewJoinEntry(b.allocateBlockID(), tryIndex)
	b.emitEntry(entry)
	f = f.Append(b.gotoJoin(entry))
	return ir.Fragment{Entry: f.Entry, Exit: entry}
}

// catchEntry creates the handler block for tryIndex. It belongs to the
// region enclosing the try.
func (b *Builder) catchEntry(tryIndex int, guards []string) ir.Fragment {
	exception := b.info.ExceptionVariables[b.depth.catch-1]
	stackTrace := b.info.StackTraceVariables[b.depth.catch-1]
	entry := ir.NewCatchBlockEntry(b.allocateBlockID(), b.currentTryIndex(), tryIndex, exception, stackTrace)
	entry.Guards = guards
	b.emitEntry(entry)
	b.graphEntry.Catches = append(b.graphEntry.Catches, entry)

	f := fragmentFrom(entry)
	if b.info.UsesContexts {
		f = f.Append(b.loadLocal(b.info.CatchContextVariables[b.depth.try]))
		f = f.Append(b.storeLocal(b.info.CurrentContext))
		f = f.Append(b.drop())
	}
	return f
}

// rethrowCurrent rethrows the exception held by the innermost handler.
func (b *Builder) rethrowCurrent(tryIndex int) ir.Fragment {
	f := b.loadLocal(b.info.ExceptionVariables[b.depth.catch-1])
	f = f.Append(b.pushArgument())
	f = f.Append(b.loadLocal(b.info.StackTraceVariables[b.depth.catch-1]))
	f = f.Append(b.pushArgument())
	f = f.Append(b.rethrowException(tryIndex))
	b.drop()
	return f
}

func (b *Builder) visitTryCatch(stmt *ast.TryCatch) ir.Fragment {
	for i, c := range stmt.Catches {
		if c.Guard == "" && i != len(stmt.Catches)-1 {
			fatalf(c, errors.MalformedIR, "catch-all clause must be the last clause")
		}
	}

	tryIndex := b.allocateTryIndex()
	tryBody := b.tryEntry(tryIndex)
	afterTry := b.buildJoinEntry()
	reached := false

	b.depth.try++
	pop := b.pushTryCatch(tryIndex)
	tryBody = tryBody.Append(b.translateStatement(stmt.Body))
	pop()
	b.depth.try--
	if tryBody.IsOpen() {
		tryBody.Append(b.gotoJoin(afterTry))
		reached = true
	}

	b.depth.catch++
	defer func() { b.depth.catch-- }()

	var guards []string
	for _, c := range stmt.Catches {
		if c.Guard != "" {
			guards = append(guards, c.Guard)
		}
	}
	exception := b.info.ExceptionVariables[b.depth.catch-1]
	stackTrace := b.info.StackTraceVariables[b.depth.catch-1]
	catchBody := b.catchEntry(tryIndex, guards)

	for _, c := range stmt.Catches {
		handler := b.enterScope(c)
		if c.Exception != nil {
			handler = handler.Append(b.loadLocal(exception))
			handler = handler.Append(b.storeVariable(b.lookupVariable(c, c.Exception)))
			handler = handler.Append(b.drop())
		}
		if c.StackTrace != nil {
			handler = handler.Append(b.loadLocal(stackTrace))
			handler = handler.Append(b.storeVariable(b.lookupVariable(c, c.StackTrace)))
			handler = handler.Append(b.drop())
		}

		popCatch := b.pushCatch(exception, stackTrace, tryIndex)
		handler = handler.Append(b.translateStatement(c.Body))
		popCatch()
		// exitScope runs for its depth adjustment even after a closed body.
		handler = handler.Append(b.exitScope(c))
		if handler.IsOpen() {
			handler = handler.Append(b.gotoJoin(afterTry))
			reached = true
		}

		if c.Guard == "" {
			catchBody = catchBody.Append(handler)
			continue
		}
		class := b.bridge.ResolveClass(c.Guard)
		catchBody = catchBody.Append(b.loadLocal(exception))
		catchBody = catchBody.Append(b.pushArgument())
		catchBody = catchBody.Append(b.constant(b.pool.Type(class)))
		catchBody = catchBody.Append(b.pushArgument())
		catchBody = catchBody.Append(b.boolConstant(false))
		catchBody = catchBody.Append(b.pushArgument())
		catchBody = catchBody.Append(b.instanceCall(symbols.InstanceOfFn, 3, nil))
		branch, matched, next := b.branchIfTrue(false)
		catchBody.Append(branch)
		fragmentFrom(matched).Append(handler)
		catchBody = fragmentFrom(next)
	}

	if catchBody.IsOpen() {
		catchBody.Append(b.rethrowCurrent(tryIndex))
	}

	if !reached {
		return tryBody.Closed()
	}
	return ir.Fragment{Entry: tryBody.Entry, Exit: afterTry}
}

func (b *Builder) visitTryFinally(stmt *ast.TryFinally) ir.Fragment {
	tryIndex := b.allocateTryIndex()
	tryBody := b.tryEntry(tryIndex)
	afterTry := b.buildJoinEntry()

	// The finalizer is analyzed once, as if inside a catch clause of this
	// try. Every copy is translated at those depths.
	finalizerDepth := b.depth
	finalizerDepth.catch++

	b.depth.try++
	popFinally := b.pushTryFinally(stmt.Finalizer, finalizerDepth)
	popTryCatch := b.pushTryCatch(tryIndex)
	tryBody = tryBody.Append(b.translateStatement(stmt.Body))
	popTryCatch()
	popFinally()
	b.depth.try--

	reached := false
	if tryBody.IsOpen() {
		finallyEntry := b.buildJoinEntry()
		tryBody.Append(b.gotoJoin(finallyEntry))
		normal := fragmentFrom(finallyEntry).Append(b.translateFinalizer(stmt.Finalizer, finalizerDepth))
		if normal.IsOpen() {
			normal.Append(b.gotoJoin(afterTry))
			reached = true
		}
	}

	b.depth.catch++
	handler := b.catchEntry(tryIndex, nil)
	handler = handler.Append(b.translateStatement(stmt.Finalizer))
	if handler.IsOpen() {
		handler.Append(b.rethrowCurrent(tryIndex))
	}
	b.depth.catch--

	if !reached {
		return tryBody.Closed()
	}
	return ir.Fragment{Entry: tryBody.Entry, Exit: afterTry}
}
