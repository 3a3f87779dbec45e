package lower

import (
	"dil/internal/constant"
	"dil/internal/ir"
	"dil/internal/scope"
	"dil/internal/symbols"
)

func (b *Builder) constant(v constant.Value) ir.Fragment {
	return b.define(&ir.Constant{Value: v})
}

func (b *Builder) nullConstant() ir.Fragment { return b.constant(b.pool.Null()) }

func (b *Builder) intConstant(i int) ir.Fragment { return b.constant(b.pool.Int(int64(i))) }

func (b *Builder) boolConstant(v bool) ir.Fragment { return b.constant(b.pool.Bool(v)) }

// loadLocal reads a stack slot. Captured variables go through loadVariable.
func (b *Builder) loadLocal(v *scope.Variable) ir.Fragment {
	return b.define(&ir.LoadLocal{Variable: v})
}

// storeLocal writes the top of the stack to a stack slot and leaves the
// stored value on the stack.
func (b *Builder) storeLocal(v *scope.Variable) ir.Fragment {
	value := b.popValue()
	return b.define(&ir.StoreLocal{Variable: v, Value: value})
}

func (b *Builder) allocateObject(class *symbols.Class) ir.Fragment {
	return b.define(&ir.AllocateObject{Class: class})
}

func (b *Builder) allocateContext(slots int) ir.Fragment {
	return b.define(&ir.AllocateContext{Slots: slots})
}

func (b *Builder) cloneContext() ir.Fragment {
	context := b.popValue()
	return b.define(&ir.CloneContext{Context: context})
}

func (b *Builder) loadField(slot ir.Slot) ir.Fragment {
	instance := b.popValue()
	return b.define(&ir.LoadField{Instance: instance, Slot: slot})
}

// storeField pops the value and then the instance.
func (b *Builder) storeField(slot ir.Slot) ir.Fragment {
	value := b.popValue()
	instance := b.popValue()
	return ir.Single(b.emit(&ir.StoreField{Instance: instance, Slot: slot, Value: value}))
}

func (b *Builder) loadStaticField(field *symbols.Field) ir.Fragment {
	return b.define(&ir.LoadStaticField{Field: field})
}

func (b *Builder) storeStaticField(field *symbols.Field) ir.Fragment {
	value := b.popValue()
	return ir.Single(b.emit(&ir.StoreStaticField{Field: field, Value: value}))
}

func (b *Builder) initStaticField(field *symbols.Field) ir.Fragment {
	return ir.Single(b.emit(&ir.InitStaticField{Field: field}))
}

func (b *Builder) staticCall(fn *symbols.Function, argc int, names []string) ir.Fragment {
	args := b.getArguments(argc)
	return b.define(&ir.StaticCall{Function: fn, Arguments: args, ArgumentNames: names})
}

func (b *Builder) instanceCall(name string, argc int, names []string) ir.Fragment {
	args := b.getArguments(argc)
	return b.define(&ir.InstanceCall{Name: name, Arguments: args, ArgumentNames: names})
}

func (b *Builder) strictCompare(negate bool) ir.Fragment {
	right := b.popValue()
	left := b.popValue()
	return b.define(&ir.StrictCompare{Kind: compareKind(negate), Left: left, Right: right})
}

func (b *Builder) booleanNegate() ir.Fragment {
	value := b.popValue()
	return b.define(&ir.BooleanNegate{Value: value})
}

func (b *Builder) createArray() ir.Fragment {
	length := b.popValue()
	return b.define(&ir.CreateArray{Length: length})
}

// storeIndexed pops the value, the index and then the array.
func (b *Builder) storeIndexed() ir.Fragment {
	value := b.popValue()
	index := b.popValue()
	array := b.popValue()
	return ir.Single(b.emit(&ir.StoreIndexed{Array: array, Index: index, Value: value}))
}

func (b *Builder) checkStackOverflow() ir.Fragment {
	if !b.cfg.StackOverflowChecks {
		return ir.Fragment{}
	}
	return ir.Single(b.emit(&ir.CheckStackOverflow{LoopDepth: b.depth.loop}))
}

func (b *Builder) returnValue() ir.Fragment {
	value := b.popValue()
	return ir.Single(b.emit(&ir.Return{Value: value})).Closed()
}

// throwException leaves the Throw on the stack as the value of the
// expression it ends.
func (b *Builder) throwException() ir.Fragment {
	exception := b.popValue()
	throw := b.emit(&ir.Throw{Exception: exception})
	b.push(throw)
	return ir.Single(throw).Closed()
}

func (b *Builder) rethrowException(catchTryIndex int) ir.Fragment {
	stackTrace := b.popValue()
	exception := b.popValue()
	rethrow := b.emit(&ir.ReThrow{Exception: exception, StackTrace: stackTrace, CatchTryIndex: catchTryIndex})
	b.push(rethrow)
	return ir.Single(rethrow).Closed()
}

func (b *Builder) gotoJoin(target *ir.JoinEntry) ir.Fragment {
	return ir.Single(b.emit(&ir.Goto{Target: target})).Closed()
}

// branchIfTrue compares the top of the stack against true.
func (b *Builder) branchIfTrue(negate bool) (ir.Fragment, *ir.TargetEntry, *ir.TargetEntry) {
	f := b.boolConstant(true)
	branch, then, otherwise := b.branchIfEqual(negate)
	return f.Append(branch), then, otherwise
}

func (b *Builder) branchIfNull(negate bool) (ir.Fragment, *ir.TargetEntry, *ir.TargetEntry) {
	f := b.nullConstant()
	branch, then, otherwise := b.branchIfEqual(negate)
	return f.Append(branch), then, otherwise
}

func (b *Builder) branchIfEqual(negate bool) (ir.Fragment, *ir.TargetEntry, *ir.TargetEntry) {
	right := b.popValue()
	left := b.popValue()
	then := b.buildTargetEntry()
	otherwise := b.buildTargetEntry()
	branch := b.emit(&ir.Branch{Kind: compareKind(negate), Left: left, Right: right, True: then, False: otherwise})
	return ir.Single(branch).Closed(), then, otherwise
}

func compareKind(negate bool) ir.CompareKind {
	if negate {
		return ir.StrictNotEqual
	}
	return ir.StrictEqual
}

// fragmentFrom starts a fragment at a block entry.
func fragmentFrom(entry ir.BlockEntry) ir.Fragment {
	return ir.Single(entry)
}
