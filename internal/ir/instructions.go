// Package ir is the target IR: a control-flow graph of blocks, each a chain
// of instructions starting at a block entry and ending at a terminator.
//
// Instructions are linked through next/previous pointers while the graph is
// built. Values are produced by definitions and consumed by later
// instructions through Value uses.
package ir

import (
	"fmt"
	"strings"

	"dil/internal/constant"
	"dil/internal/scope"
	"dil/internal/symbols"
)

// Instruction is implemented by every target IR instruction, block entries
// included.
type Instruction interface {
	GetID() int
	// Opcode is the instruction name used by the printer.
	Opcode() string
	// Inputs are the values the instruction consumes, in order.
	Inputs() []*Value
	Next() Instruction
	Previous() Instruction
	String() string
	GetEffects() []Effect

	base() *instr
}

type instr struct {
	id   int
	ssa  int
	next Instruction
	prev Instruction
}

func (i *instr) GetID() int            { return i.id }
func (i *instr) Next() Instruction     { return i.next }
func (i *instr) Previous() Instruction { return i.prev }
func (i *instr) base() *instr          { return i }

// SetID assigns the instruction id. Ids are unique within a graph.
func SetID(i Instruction, id int) { i.base().id = id }

// LinkTo makes b the successor of a within a block.
func LinkTo(a, b Instruction) {
	a.base().next = b
	b.base().prev = a
}

// IsDefinition reports whether the instruction produces a value.
func IsDefinition(i Instruction) bool {
	switch i.(type) {
	case *Constant, *LoadLocal, *StoreLocal, *PushArgument, *AllocateObject,
		*AllocateContext, *CloneContext, *LoadField, *LoadStaticField,
		*StaticCall, *InstanceCall, *StrictCompare, *BooleanNegate, *CreateArray:
		return true
	}
	return false
}

// IsTerminator reports whether the instruction ends its block.
func IsTerminator(i Instruction) bool {
	switch i.(type) {
	case *Goto, *Branch, *Return, *Throw, *ReThrow:
		return true
	}
	return false
}

// SetTemp assigns the SSA temp name of a definition.
func SetTemp(i Instruction, index int) { i.base().ssa = index }

// Temp returns the SSA temp index of a definition, or 0 when unassigned.
func Temp(i Instruction) int { return i.base().ssa }

// Value is one use of a definition.
type Value struct {
	Definition Instruction
}

func NewValue(def Instruction) *Value { return &Value{Definition: def} }

func (v *Value) String() string {
	if v == nil || v.Definition == nil {
		return "<nil>"
	}
	return fmt.Sprintf("v%d", Temp(v.Definition))
}

func values(vs []*Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

// Constant materializes a canonical constant.
type Constant struct {
	instr
	Value constant.Value
}

// LoadLocal reads a stack variable of the function.
type LoadLocal struct {
	instr
	Variable *scope.Variable
}

// StoreLocal writes a stack variable. Its value is the stored value.
type StoreLocal struct {
	instr
	Variable *scope.Variable
	Value    *Value
}

// DropTemps discards the top Count values of the expression stack.
type DropTemps struct {
	instr
	Count   int
	Dropped []*Value
}

// PushArgument marks a value as an outgoing argument of the next call.
type PushArgument struct {
	instr
	Value *Value
}

type AllocateObject struct {
	instr
	Class *symbols.Class
}

// AllocateContext creates a capture frame with Slots variable slots.
type AllocateContext struct {
	instr
	Slots int
}

// CloneContext copies a frame so a loop iteration gets fresh captures.
type CloneContext struct {
	instr
	Context *Value
}

type LoadField struct {
	instr
	Instance *Value
	Slot     Slot
}

type StoreField struct {
	instr
	Instance *Value
	Slot     Slot
	Value    *Value
}

type LoadStaticField struct {
	instr
	Field *symbols.Field
}

type StoreStaticField struct {
	instr
	Field *symbols.Field
	Value *Value
}

// InitStaticField runs the initializer of a lazily initialized static field
// if it has not run yet.
type InitStaticField struct {
	instr
	Field *symbols.Field
}

type StaticCall struct {
	instr
	Function      *symbols.Function
	Arguments     []*Value
	ArgumentNames []string
}

// InstanceCall dispatches on the class of the first argument.
type InstanceCall struct {
	instr
	Name          string
	Arguments     []*Value
	ArgumentNames []string
}

type CompareKind int

const (
	StrictEqual CompareKind = iota
	StrictNotEqual
)

func (k CompareKind) String() string {
	if k == StrictNotEqual {
		return "!=="
	}
	return "==="
}

// StrictCompare compares by identity and produces a bool.
type StrictCompare struct {
	instr
	Kind  CompareKind
	Left  *Value
	Right *Value
}

type BooleanNegate struct {
	instr
	Value *Value
}

// CreateArray allocates a fixed length backing array.
type CreateArray struct {
	instr
	Length *Value
}

type StoreIndexed struct {
	instr
	Array *Value
	Index *Value
	Value *Value
}

// CheckStackOverflow is emitted in prologues (LoopDepth 0) and at loop
// back edges.
type CheckStackOverflow struct {
	instr
	LoopDepth int
}

type Return struct {
	instr
	Value *Value
}

type Throw struct {
	instr
	Exception *Value
}

// ReThrow rethrows an exception caught by the handler with CatchTryIndex,
// preserving its stack trace.
type ReThrow struct {
	instr
	Exception     *Value
	StackTrace    *Value
	CatchTryIndex int
}

type Goto struct {
	instr
	Target *JoinEntry
}

// Branch compares Left and Right and continues at True or False.
type Branch struct {
	instr
	Kind  CompareKind
	Left  *Value
	Right *Value
	True  *TargetEntry
	False *TargetEntry
}

func (*Constant) Opcode() string           { return "Constant" }
func (*LoadLocal) Opcode() string          { return "LoadLocal" }
func (*StoreLocal) Opcode() string         { return "StoreLocal" }
func (*DropTemps) Opcode() string          { return "DropTemps" }
func (*PushArgument) Opcode() string       { return "PushArgument" }
func (*AllocateObject) Opcode() string     { return "AllocateObject" }
func (*AllocateContext) Opcode() string    { return "AllocateContext" }
func (*CloneContext) Opcode() string       { return "CloneContext" }
func (*LoadField) Opcode() string          { return "LoadField" }
func (*StoreField) Opcode() string         { return "StoreField" }
func (*LoadStaticField) Opcode() string    { return "LoadStaticField" }
func (*StoreStaticField) Opcode() string   { return "StoreStaticField" }
func (*InitStaticField) Opcode() string    { return "InitStaticField" }
func (*StaticCall) Opcode() string         { return "StaticCall" }
func (*InstanceCall) Opcode() string       { return "InstanceCall" }
func (*StrictCompare) Opcode() string      { return "StrictCompare" }
func (*BooleanNegate) Opcode() string      { return "BooleanNegate" }
func (*CreateArray) Opcode() string        { return "CreateArray" }
func (*StoreIndexed) Opcode() string       { return "StoreIndexed" }
func (*CheckStackOverflow) Opcode() string { return "CheckStackOverflow" }
func (*Return) Opcode() string             { return "Return" }
func (*Throw) Opcode() string              { return "Throw" }
func (*ReThrow) Opcode() string            { return "ReThrow" }
func (*Goto) Opcode() string               { return "Goto" }
func (*Branch) Opcode() string             { return "Branch" }

func (*Constant) Inputs() []*Value           { return nil }
func (*LoadLocal) Inputs() []*Value          { return nil }
func (i *StoreLocal) Inputs() []*Value       { return []*Value{i.Value} }
func (i *DropTemps) Inputs() []*Value        { return i.Dropped }
func (i *PushArgument) Inputs() []*Value     { return []*Value{i.Value} }
func (*AllocateObject) Inputs() []*Value     { return nil }
func (*AllocateContext) Inputs() []*Value    { return nil }
func (i *CloneContext) Inputs() []*Value     { return []*Value{i.Context} }
func (i *LoadField) Inputs() []*Value        { return []*Value{i.Instance} }
func (i *StoreField) Inputs() []*Value       { return []*Value{i.Instance, i.Value} }
func (*LoadStaticField) Inputs() []*Value    { return nil }
func (i *StoreStaticField) Inputs() []*Value { return []*Value{i.Value} }
func (*InitStaticField) Inputs() []*Value    { return nil }
func (i *StaticCall) Inputs() []*Value       { return i.Arguments }
func (i *InstanceCall) Inputs() []*Value     { return i.Arguments }
func (i *StrictCompare) Inputs() []*Value    { return []*Value{i.Left, i.Right} }
func (i *BooleanNegate) Inputs() []*Value    { return []*Value{i.Value} }
func (i *CreateArray) Inputs() []*Value      { return []*Value{i.Length} }
func (i *StoreIndexed) Inputs() []*Value     { return []*Value{i.Array, i.Index, i.Value} }
func (*CheckStackOverflow) Inputs() []*Value { return nil }
func (i *Return) Inputs() []*Value           { return []*Value{i.Value} }
func (i *Throw) Inputs() []*Value            { return []*Value{i.Exception} }
func (i *ReThrow) Inputs() []*Value          { return []*Value{i.Exception, i.StackTrace} }
func (*Goto) Inputs() []*Value               { return nil }
func (i *Branch) Inputs() []*Value           { return []*Value{i.Left, i.Right} }

func (i *Constant) String() string { return fmt.Sprintf("Constant(%s)", i.Value) }

func (i *LoadLocal) String() string { return fmt.Sprintf("LoadLocal(%s)", i.Variable.Name) }

func (i *StoreLocal) String() string {
	return fmt.Sprintf("StoreLocal(%s, %s)", i.Variable.Name, i.Value)
}

func (i *DropTemps) String() string { return fmt.Sprintf("DropTemps(%d)", i.Count) }

func (i *PushArgument) String() string { return fmt.Sprintf("PushArgument(%s)", i.Value) }

func (i *AllocateObject) String() string { return fmt.Sprintf("AllocateObject(%s)", i.Class.Name) }

func (i *AllocateContext) String() string { return fmt.Sprintf("AllocateContext(%d)", i.Slots) }

func (i *CloneContext) String() string { return fmt.Sprintf("CloneContext(%s)", i.Context) }

func (i *LoadField) String() string {
	return fmt.Sprintf("LoadField(%s, %s)", i.Instance, i.Slot)
}

func (i *StoreField) String() string {
	return fmt.Sprintf("StoreField(%s, %s, %s)", i.Instance, i.Slot, i.Value)
}

func (i *LoadStaticField) String() string {
	return fmt.Sprintf("LoadStaticField(%s)", i.Field.QualifiedName())
}

func (i *StoreStaticField) String() string {
	return fmt.Sprintf("StoreStaticField(%s, %s)", i.Field.QualifiedName(), i.Value)
}

func (i *InitStaticField) String() string {
	return fmt.Sprintf("InitStaticField(%s)", i.Field.QualifiedName())
}

func (i *StaticCall) String() string {
	return fmt.Sprintf("StaticCall(%s%s)", i.Function.QualifiedName(), callArguments(i.Arguments, i.ArgumentNames))
}

func (i *InstanceCall) String() string {
	return fmt.Sprintf("InstanceCall(%s%s)", i.Name, callArguments(i.Arguments, i.ArgumentNames))
}

func callArguments(args []*Value, names []string) string {
	if len(args) == 0 {
		return ""
	}
	s := ", " + values(args)
	if len(names) > 0 {
		s += ", names: [" + strings.Join(names, ", ") + "]"
	}
	return s
}

func (i *StrictCompare) String() string {
	return fmt.Sprintf("StrictCompare(%s %s %s)", i.Left, i.Kind, i.Right)
}

func (i *BooleanNegate) String() string { return fmt.Sprintf("BooleanNegate(%s)", i.Value) }

func (i *CreateArray) String() string { return fmt.Sprintf("CreateArray(%s)", i.Length) }

func (i *StoreIndexed) String() string {
	return fmt.Sprintf("StoreIndexed(%s, %s, %s)", i.Array, i.Index, i.Value)
}

func (i *CheckStackOverflow) String() string {
	return fmt.Sprintf("CheckStackOverflow(depth: %d)", i.LoopDepth)
}

func (i *Return) String() string { return fmt.Sprintf("Return(%s)", i.Value) }

func (i *Throw) String() string { return fmt.Sprintf("Throw(%s)", i.Exception) }

func (i *ReThrow) String() string {
	return fmt.Sprintf("ReThrow(%s, %s, try: %d)", i.Exception, i.StackTrace, i.CatchTryIndex)
}

func (i *Goto) String() string { return fmt.Sprintf("Goto(B%d)", i.Target.BlockID()) }

func (i *Branch) String() string {
	return fmt.Sprintf("Branch(%s %s %s, B%d, B%d)", i.Left, i.Kind, i.Right, i.True.BlockID(), i.False.BlockID())
}

// SlotKind names the storage a LoadField or StoreField accesses.
type SlotKind int

const (
	InstanceFieldSlot SlotKind = iota
	ContextParentSlot
	ContextVariableSlot
	ClosureFunctionSlot
	ClosureContextSlot
)

// Slot is a field of an object: a declared instance field or a slot of a
// capture frame or closure.
type Slot struct {
	Kind  SlotKind
	Field *symbols.Field
	Index int
}

func FieldSlot(f *symbols.Field) Slot {
	return Slot{Kind: InstanceFieldSlot, Field: f, Index: f.Offset}
}

func ContextVariable(index int) Slot { return Slot{Kind: ContextVariableSlot, Index: index} }

var (
	ContextParent   = Slot{Kind: ContextParentSlot}
	ClosureFunction = Slot{Kind: ClosureFunctionSlot}
	ClosureContext  = Slot{Kind: ClosureContextSlot}
)

func (s Slot) String() string {
	switch s.Kind {
	case InstanceFieldSlot:
		return s.Field.QualifiedName()
	case ContextParentSlot:
		return "Context.parent"
	case ContextVariableSlot:
		return fmt.Sprintf("Context[%d]", s.Index)
	case ClosureFunctionSlot:
		return "Closure.function"
	default:
		return "Closure.context"
	}
}
