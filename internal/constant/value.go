// Package constant evaluates compile-time constant expressions into
// canonical values. Structurally equal constants obtained from the same Pool
// are the same pointer, so identity comparison is value comparison.
package constant

import (
	"math"
	"strconv"
	"strings"

	"dil/internal/symbols"
)

type Kind int

const (
	NullKind Kind = iota
	BoolKind
	IntKind
	DoubleKind
	StringKind
	SymbolKind
	TypeKind
	ListKind
	MapKind
	InstanceKind
	FunctionKind
)

var kindNames = [...]string{
	NullKind:     "Null",
	BoolKind:     "bool",
	IntKind:      "int",
	DoubleKind:   "double",
	StringKind:   "String",
	SymbolKind:   "Symbol",
	TypeKind:     "Type",
	ListKind:     "List",
	MapKind:      "Map",
	InstanceKind: "Instance",
	FunctionKind: "Function",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Value is a canonical constant. Values are immutable.
type Value interface {
	Kind() Kind
	// ID is unique within the pool the value was interned in.
	ID() int
	String() string
}

type canonical struct {
	id int
}

func (c canonical) ID() int { return c.id }

type Null struct{ canonical }

type Bool struct {
	canonical
	Value bool
}

type Int struct {
	canonical
	Value int64
}

type Double struct {
	canonical
	Value float64
}

type String struct {
	canonical
	Value string
}

type Symbol struct {
	canonical
	Name string
}

type Type struct {
	canonical
	Class *symbols.Class
}

type List struct {
	canonical
	Elements []Value
}

// Map keeps entries in insertion order.
type Map struct {
	canonical
	Keys   []Value
	Values []Value
}

// Instance is a constant object. Fields are indexed by field offset.
type Instance struct {
	canonical
	Class  *symbols.Class
	Fields []Value
}

// Function is the code object of a function. Closures store it in their
// function slot.
type Function struct {
	canonical
	Function *symbols.Function
}

func (*Null) Kind() Kind     { return NullKind }
func (*Bool) Kind() Kind     { return BoolKind }
func (*Int) Kind() Kind      { return IntKind }
func (*Double) Kind() Kind   { return DoubleKind }
func (*String) Kind() Kind   { return StringKind }
func (*Symbol) Kind() Kind   { return SymbolKind }
func (*Type) Kind() Kind     { return TypeKind }
func (*List) Kind() Kind     { return ListKind }
func (*Map) Kind() Kind      { return MapKind }
func (*Instance) Kind() Kind { return InstanceKind }
func (*Function) Kind() Kind { return FunctionKind }

func (*Null) String() string { return "null" }

func (b *Bool) String() string { return strconv.FormatBool(b.Value) }

func (i *Int) String() string { return strconv.FormatInt(i.Value, 10) }

func (d *Double) String() string { return formatDouble(d.Value) }

func (s *String) String() string { return strconv.Quote(s.Value) }

func (s *Symbol) String() string { return "#" + s.Name }

func (t *Type) String() string { return "type " + t.Class.Name }

func (f *Function) String() string { return "&" + f.Function.QualifiedName() }

func (l *List) String() string {
	return "const [" + joinValues(l.Elements) + "]"
}

func (m *Map) String() string {
	entries := make([]string, len(m.Keys))
	for i := range m.Keys {
		entries[i] = m.Keys[i].String() + ": " + m.Values[i].String()
	}
	return "const {" + strings.Join(entries, ", ") + "}"
}

func (o *Instance) String() string {
	fields := o.Class.InstanceFields()
	parts := make([]string, len(o.Fields))
	for i, v := range o.Fields {
		name := strconv.Itoa(i)
		if i < len(fields) {
			name = fields[i].Name
		}
		parts[i] = name + ": " + v.String()
	}
	return "const " + o.Class.Name + "{" + strings.Join(parts, ", ") + "}"
}

func joinValues(values []Value) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

func formatDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// Text converts a primitive constant to the text string interpolation
// produces. It reports false for aggregates.
func Text(v Value) (string, bool) {
	switch v := v.(type) {
	case *String:
		return v.Value, true
	case *Null, *Bool, *Int, *Double:
		return v.String(), true
	default:
		return "", false
	}
}
