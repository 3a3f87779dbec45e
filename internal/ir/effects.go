package ir

// This file implements GetEffects for every instruction.
// Effects describe what an instruction touches besides its own result: the
// function's locals, the heap, or control flow.

// Effect represents the side effects of an instruction
type Effect interface {
	EffectKind() string
}

type AccessType string

const (
	Read     AccessType = "read"
	Write    AccessType = "write"
	Allocate AccessType = "allocate"
)

// PureEffect indicates no side effects
type PureEffect struct{}

func (*PureEffect) EffectKind() string { return "pure" }

// LocalEffect is an access to a stack variable of the function.
type LocalEffect struct {
	Type     AccessType
	Variable string
}

func (*LocalEffect) EffectKind() string { return "local" }

// HeapEffect is an access to an object, a frame or a static field. Region
// is empty when any region may be touched.
type HeapEffect struct {
	Type   AccessType
	Region string
}

func (*HeapEffect) EffectKind() string { return "heap" }

// CallEffect marks a call whose effects are unknown.
type CallEffect struct {
	Target string
}

func (*CallEffect) EffectKind() string { return "call" }

// ControlEffect marks instructions that leave the block.
type ControlEffect struct {
	Throws bool
}

func (*ControlEffect) EffectKind() string { return "control" }

var pure = []Effect{&PureEffect{}}

func (*Constant) GetEffects() []Effect { return pure }

func (i *LoadLocal) GetEffects() []Effect {
	return []Effect{&LocalEffect{Type: Read, Variable: i.Variable.Name}}
}

func (i *StoreLocal) GetEffects() []Effect {
	return []Effect{&LocalEffect{Type: Write, Variable: i.Variable.Name}}
}

func (*DropTemps) GetEffects() []Effect    { return pure }
func (*PushArgument) GetEffects() []Effect { return pure }

func (i *AllocateObject) GetEffects() []Effect {
	return []Effect{&HeapEffect{Type: Allocate, Region: i.Class.Name}}
}

func (*AllocateContext) GetEffects() []Effect {
	return []Effect{&HeapEffect{Type: Allocate, Region: "context"}}
}

func (*CloneContext) GetEffects() []Effect {
	return []Effect{&HeapEffect{Type: Read, Region: "context"}, &HeapEffect{Type: Allocate, Region: "context"}}
}

func (i *LoadField) GetEffects() []Effect {
	return []Effect{&HeapEffect{Type: Read, Region: i.Slot.String()}}
}

func (i *StoreField) GetEffects() []Effect {
	return []Effect{&HeapEffect{Type: Write, Region: i.Slot.String()}}
}

func (i *LoadStaticField) GetEffects() []Effect {
	return []Effect{&HeapEffect{Type: Read, Region: i.Field.QualifiedName()}}
}

func (i *StoreStaticField) GetEffects() []Effect {
	return []Effect{&HeapEffect{Type: Write, Region: i.Field.QualifiedName()}}
}

// InitStaticField runs arbitrary initializer code on first use.
func (i *InitStaticField) GetEffects() []Effect {
	return []Effect{
		&CallEffect{Target: i.Field.QualifiedName()},
		&HeapEffect{Type: Write, Region: i.Field.QualifiedName()},
		&ControlEffect{Throws: true},
	}
}

func (i *StaticCall) GetEffects() []Effect {
	return []Effect{&CallEffect{Target: i.Function.QualifiedName()}, &ControlEffect{Throws: true}}
}

func (i *InstanceCall) GetEffects() []Effect {
	return []Effect{&CallEffect{Target: i.Name}, &ControlEffect{Throws: true}}
}

func (*StrictCompare) GetEffects() []Effect { return pure }
func (*BooleanNegate) GetEffects() []Effect { return pure }

func (*CreateArray) GetEffects() []Effect {
	return []Effect{&HeapEffect{Type: Allocate, Region: "array"}}
}

func (*StoreIndexed) GetEffects() []Effect {
	return []Effect{&HeapEffect{Type: Write, Region: "array"}}
}

func (*CheckStackOverflow) GetEffects() []Effect {
	return []Effect{&ControlEffect{Throws: true}}
}

func (*Return) GetEffects() []Effect  { return []Effect{&ControlEffect{}} }
func (*Throw) GetEffects() []Effect   { return []Effect{&ControlEffect{Throws: true}} }
func (*ReThrow) GetEffects() []Effect { return []Effect{&ControlEffect{Throws: true}} }
func (*Goto) GetEffects() []Effect    { return []Effect{&ControlEffect{}} }
func (*Branch) GetEffects() []Effect  { return []Effect{&ControlEffect{}} }

func (*blockBase) GetEffects() []Effect { return pure }

// IsPure reports whether i has no effect besides producing its value.
func IsPure(i Instruction) bool {
	for _, e := range i.GetEffects() {
		if _, ok := e.(*PureEffect); !ok {
			return false
		}
	}
	return true
}

// MayThrow reports whether i can transfer control to a handler.
func MayThrow(i Instruction) bool {
	for _, e := range i.GetEffects() {
		if c, ok := e.(*ControlEffect); ok && c.Throws {
			return true
		}
	}
	return false
}

// ReadsLocal reports whether i produces its value by reading a stack variable.
func ReadsLocal(i Instruction) bool {
	for _, e := range i.GetEffects() {
		if l, ok := e.(*LocalEffect); ok && l.Type == Read {
			return true
		}
	}
	return false
}
