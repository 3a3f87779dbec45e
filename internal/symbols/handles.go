package symbols

import (
	stderrors "errors"
	"fmt"
	"sync"

	"dil/internal/ast"
)

// Class is a resolved class handle.
type Class struct {
	Name  string
	Super *Class
	Node  *ast.Class

	fields []*Field
}

// InstanceFields returns the instance fields of the class, inherited fields first.
func (c *Class) InstanceFields() []*Field {
	var out []*Field
	if c.Super != nil {
		out = c.Super.InstanceFields()
	}
	for _, f := range c.fields {
		if !f.IsStatic {
			out = append(out, f)
		}
	}
	return out
}

// IsSubclassOf reports whether c is other or inherits from it.
func (c *Class) IsSubclassOf(other *Class) bool {
	for k := c; k != nil; k = k.Super {
		if k == other {
			return true
		}
	}
	return false
}

// Fields returns the fields declared by the class itself.
func (c *Class) Fields() []*Field { return c.fields }

func (c *Class) String() string { return c.Name }

type memoState int

const (
	memoSentinel memoState = iota
	memoComputing
	memoComputed
)

// ErrCyclicInitializer is returned by Memoize when a computation re-enters itself.
var ErrCyclicInitializer = stderrors.New("initializer depends on its own value")

// Field is a resolved field handle. Static fields carry a memoized value slot
// shared by every lowering that reads them.
type Field struct {
	Name     string
	Owner    *Class
	IsStatic bool
	IsConst  bool
	IsFinal  bool
	Node     *ast.Field

	// Offset is the slot of an instance field within InstanceFields of its owner.
	Offset int

	mu     sync.Mutex
	cond   *sync.Cond
	state  memoState
	holder any
	value  any
	err    error
}

// QualifiedName renders the field as "Class::name" or "::name".
func (f *Field) QualifiedName() string {
	return qualify(f.Owner, f.Name)
}

// Initializer returns the declared initializer, if any.
func (f *Field) Initializer() ast.Expr {
	if f.Node == nil {
		return nil
	}
	return f.Node.Initializer
}

// waits records, across all fields, which holder computes each field and
// which field each holder is blocked on. Memoize consults it before blocking
// so that holders computing each other's fields fail instead of deadlocking.
// Lock order is Field.mu, then waits.mu.
var waits = struct {
	mu     sync.Mutex
	owner  map[*Field]any
	waitOn map[any]*Field
}{owner: make(map[*Field]any), waitOn: make(map[any]*Field)}

// blockOn registers holder as waiting for f unless that closes a cycle of
// holders waiting on each other.
func blockOn(holder any, f *Field) bool {
	waits.mu.Lock()
	defer waits.mu.Unlock()

	for g := f; g != nil; {
		owner, ok := waits.owner[g]
		if !ok {
			break
		}
		if owner == holder {
			return false
		}
		g = waits.waitOn[owner]
	}
	waits.waitOn[holder] = f
	return true
}

func unblock(holder any) {
	waits.mu.Lock()
	delete(waits.waitOn, holder)
	waits.mu.Unlock()
}

func setOwner(f *Field, holder any) {
	waits.mu.Lock()
	if holder == nil {
		delete(waits.owner, f)
	} else {
		waits.owner[f] = holder
	}
	waits.mu.Unlock()
}

// Memoize runs compute at most once for the field. Concurrent callers wait
// for the first computation and observe its result. A call that would wait,
// directly or through other holders, on a computation of its own holder
// reports ErrCyclicInitializer.
func (f *Field) Memoize(holder any, compute func() (any, error)) (any, error) {
	f.mu.Lock()
	if f.cond == nil {
		f.cond = sync.NewCond(&f.mu)
	}

	for {
		switch f.state {
		case memoComputed:
			value, err := f.value, f.err
			f.mu.Unlock()
			return value, err

		case memoComputing:
			if !blockOn(holder, f) {
				f.mu.Unlock()
				return nil, fmt.Errorf("%s: %w", f.QualifiedName(), ErrCyclicInitializer)
			}
			f.cond.Wait()
			unblock(holder)

		case memoSentinel:
			f.state = memoComputing
			f.holder = holder
			setOwner(f, holder)
			f.mu.Unlock()

			value, err := f.compute(compute)

			f.mu.Lock()
			f.state = memoComputed
			f.holder = nil
			setOwner(f, nil)
			f.value, f.err = value, err
			f.cond.Broadcast()
			f.mu.Unlock()
			return value, err
		}
	}
}

// compute resets the slot when the computation panics so waiters are not stranded.
func (f *Field) compute(fn func() (any, error)) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			f.mu.Lock()
			f.state = memoSentinel
			f.holder = nil
			setOwner(f, nil)
			f.cond.Broadcast()
			f.mu.Unlock()
			panic(r)
		}
	}()
	return fn()
}

// Memoized returns the memoized value, if it has been computed.
func (f *Field) Memoized() (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != memoComputed || f.err != nil {
		return nil, false
	}
	return f.value, true
}

type FunctionKind int

const (
	RegularFunction FunctionKind = iota
	GetterFunction
	SetterFunction
	ConstructorFunction
	FactoryFunction
	ImplicitGetter
	ImplicitSetter
	StaticInitializer
	ClosureFunction
	ImplicitClosure
)

func (k FunctionKind) String() string {
	switch k {
	case GetterFunction:
		return "getter"
	case SetterFunction:
		return "setter"
	case ConstructorFunction:
		return "constructor"
	case FactoryFunction:
		return "factory"
	case ImplicitGetter:
		return "implicit getter"
	case ImplicitSetter:
		return "implicit setter"
	case StaticInitializer:
		return "static initializer"
	case ClosureFunction:
		return "closure"
	case ImplicitClosure:
		return "implicit closure"
	default:
		return "function"
	}
}

// Function is a resolved function handle. Name is mangled.
type Function struct {
	Name       string
	Owner      *Class
	Kind       FunctionKind
	IsStatic   bool
	IsConst    bool
	IsExternal bool

	// Node is the body to lower; nil for external and implicit functions.
	Node *ast.FunctionNode
	// Member is the declaration the function was created from.
	Member ast.Member
	// Field backs implicit accessors and static initializers.
	Field *Field
	// Parent is the enclosing function of a closure.
	Parent *Function
	// Target is the function an implicit closure forwards to.
	Target *Function

	// Intrinsic names a function the constant evaluator may fold.
	Intrinsic string

	PositionalCount int
	RequiredCount   int
	NamedParameters []string
}

// QualifiedName renders the function as "Class::name" or "::name".
func (f *Function) QualifiedName() string {
	if f.Kind == ClosureFunction && f.Parent != nil {
		return f.Parent.QualifiedName() + "." + f.Name
	}
	if f.Kind == ImplicitClosure && f.Target != nil {
		return f.Target.QualifiedName() + "#tearoff"
	}
	return qualify(f.Owner, f.Name)
}

func (f *Function) String() string { return f.QualifiedName() }

// Outermost returns the member a closure is nested in, or f itself.
func (f *Function) Outermost() *Function {
	for f.Parent != nil {
		f = f.Parent
	}
	return f
}

// HasReceiver reports whether the function is invoked with `this`.
func (f *Function) HasReceiver() bool {
	outer := f.Outermost()
	if outer.Owner == nil || outer.IsStatic {
		return false
	}
	return outer.Kind != FactoryFunction && outer.Kind != StaticInitializer
}

// IsLowerable reports whether a graph can be built for the function.
func (f *Function) IsLowerable() bool {
	if f.IsExternal {
		return false
	}
	switch f.Kind {
	case ImplicitGetter, ImplicitSetter, StaticInitializer:
		return f.Field != nil
	default:
		return f.Node != nil
	}
}

// Constructor returns the constructor declaration, if the function is one.
func (f *Function) Constructor() *ast.Constructor {
	ctor, _ := f.Member.(*ast.Constructor)
	return ctor
}

func qualify(owner *Class, name string) string {
	if owner == nil {
		return "::" + name
	}
	return owner.Name + "::" + name
}
