package constant

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"dil/internal/symbols"
)

// Pool interns constants. It is safe for concurrent use and is normally
// shared by every lowering of a program.
type Pool struct {
	mu     sync.Mutex
	values map[string]Value
	next   int
}

func NewPool() *Pool {
	return &Pool{values: make(map[string]Value)}
}

// Len returns the number of distinct constants interned so far.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.values)
}

func (p *Pool) intern(key string, create func(c canonical) Value) Value {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.values[key]; ok {
		return v
	}
	p.next++
	v := create(canonical{id: p.next})
	p.values[key] = v
	return v
}

func (p *Pool) Null() Value {
	return p.intern("n", func(c canonical) Value { return &Null{c} })
}

func (p *Pool) Bool(b bool) Value {
	return p.intern("b:"+strconv.FormatBool(b), func(c canonical) Value { return &Bool{c, b} })
}

func (p *Pool) Int(i int64) Value {
	return p.intern("i:"+strconv.FormatInt(i, 10), func(c canonical) Value { return &Int{c, i} })
}

// Double interns by bit pattern, so 0.0 and -0.0 are distinct constants.
func (p *Pool) Double(f float64) Value {
	key := "d:" + strconv.FormatUint(math.Float64bits(f), 16)
	return p.intern(key, func(c canonical) Value { return &Double{c, f} })
}

func (p *Pool) String(s string) Value {
	return p.intern("s:"+strconv.Quote(s), func(c canonical) Value { return &String{c, s} })
}

func (p *Pool) Symbol(name string) Value {
	return p.intern("y:"+name, func(c canonical) Value { return &Symbol{c, name} })
}

func (p *Pool) Type(class *symbols.Class) Value {
	return p.intern("t:"+class.Name, func(c canonical) Value { return &Type{c, class} })
}

// List interns a list whose elements are already canonical.
func (p *Pool) List(elements []Value) Value {
	elements = append([]Value(nil), elements...)
	return p.intern("l:"+ids(elements), func(c canonical) Value { return &List{c, elements} })
}

// Map interns a map whose keys and values are already canonical.
func (p *Pool) Map(keys, values []Value) Value {
	keys = append([]Value(nil), keys...)
	values = append([]Value(nil), values...)
	key := "m:" + ids(keys) + "|" + ids(values)
	return p.intern(key, func(c canonical) Value { return &Map{c, keys, values} })
}

// Instance interns an object whose fields are already canonical.
func (p *Pool) Instance(class *symbols.Class, fields []Value) Value {
	fields = append([]Value(nil), fields...)
	key := "o:" + class.Name + ":" + ids(fields)
	return p.intern(key, func(c canonical) Value { return &Instance{c, class, fields} })
}

// Function interns the code object of fn. Identity is the handle, so two
// local functions sharing a name stay distinct.
func (p *Pool) Function(fn *symbols.Function) Value {
	return p.intern(fmt.Sprintf("f:%p", fn), func(c canonical) Value { return &Function{c, fn} })
}

func ids(values []Value) string {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v.ID()))
	}
	return b.String()
}
