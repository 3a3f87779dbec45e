package lower

import (
	"fmt"

	"dil/internal/errors"
	"dil/internal/ir"
	"dil/internal/scope"
)

// stackValue is one entry of the simulated expression stack.
type stackValue struct {
	def ir.Instruction
	// temp is set once the entry has been named by makeTemporary.
	temp *scope.Variable
}

func (b *Builder) emit(i ir.Instruction) ir.Instruction {
	ir.SetID(i, b.nextInstrID)
	b.nextInstrID++
	return i
}

func (b *Builder) push(def ir.Instruction) {
	ir.SetTemp(def, b.nextTemp)
	b.nextTemp++
	b.stack = append(b.stack, &stackValue{def: def})
}

func (b *Builder) pop() *stackValue {
	if len(b.stack) == 0 {
		errors.Fatal(errors.MalformedIR, b.position(), "expression stack underflow")
	}
	top := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	return top
}

func (b *Builder) popValue() *ir.Value {
	return ir.NewValue(b.pop().def)
}

// define emits a definition and pushes its value.
func (b *Builder) define(def ir.Instruction) ir.Fragment {
	b.emit(def)
	b.push(def)
	return ir.Single(def)
}

// drop discards the top of the stack. Only named temporaries and values
// read from locals need an explicit DropTemps.
func (b *Builder) drop() ir.Fragment {
	top := b.pop()
	if top.temp == nil && !ir.ReadsLocal(top.def) {
		return ir.Fragment{}
	}
	return ir.Single(b.emit(&ir.DropTemps{Count: 1, Dropped: []*ir.Value{ir.NewValue(top.def)}}))
}

// makeTemporary names the top of the stack so it can be reloaded with
// LoadLocal while more values are pushed above it.
func (b *Builder) makeTemporary() *scope.Variable {
	if len(b.stack) == 0 {
		errors.Fatal(errors.MalformedIR, b.position(), "no value to name")
	}
	top := b.stack[len(b.stack)-1]
	if top.temp == nil {
		top.temp = &scope.Variable{
			Name:     fmt.Sprintf(":t%d", len(b.stack)-1),
			Function: b.info,
			Local:    -1,
		}
	}
	return top.temp
}

func (b *Builder) pushArgument() ir.Fragment {
	value := b.popValue()
	b.pendingArguments++
	return b.define(&ir.PushArgument{Value: value})
}

// getArguments pops count pushed arguments, first argument first.
func (b *Builder) getArguments(count int) []*ir.Value {
	if count > b.pendingArguments {
		errors.Fatal(errors.MalformedIR, b.position(), "call takes %d arguments but %d are pending", count, b.pendingArguments)
	}
	args := make([]*ir.Value, count)
	for i := count - 1; i >= 0; i-- {
		top := b.pop()
		if _, ok := top.def.(*ir.PushArgument); !ok {
			errors.Fatal(errors.MalformedIR, b.position(), "call argument %d was not pushed", i)
		}
		args[i] = ir.NewValue(top.def)
	}
	b.pendingArguments -= count
	return args
}

// stackDepth returns the number of live stack entries.
func (b *Builder) stackDepth() int { return len(b.stack) }
