package symbols

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"dil/internal/ast"
	"dil/internal/errors"
)

type memberKey struct {
	class string
	name  string
}

func refOf(class *Class, name string) memberKey {
	if class == nil {
		return memberKey{name: name}
	}
	return memberKey{class: class.Name, name: name}
}

// Table is the in-memory symbol table shared by every lowering of a program.
// Lookups are safe for concurrent use; registration is not expected to race
// with lowering.
type Table struct {
	mu sync.RWMutex

	classes      map[string]*Class
	fields       map[memberKey]*Field
	functions    map[memberKey]*Function
	constructors map[memberKey]*Function
	closures     map[*ast.FunctionNode]*Function
	tearOffs     map[*Function]*Function

	// lowerable functions in declaration order
	members []*Function
}

// NewTable creates an empty symbol table.
func NewTable() *Table {
	return &Table{
		classes:      make(map[string]*Class),
		fields:       make(map[memberKey]*Field),
		functions:    make(map[memberKey]*Function),
		constructors: make(map[memberKey]*Function),
		closures:     make(map[*ast.FunctionNode]*Function),
		tearOffs:     make(map[*Function]*Function),
	}
}

// NewCoreTable creates a table preloaded with the core manifest.
func NewCoreTable() (*Table, error) {
	t := NewTable()
	if err := t.LoadCore(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) addField(f *Field) {
	if f.Owner != nil {
		f.Owner.fields = append(f.Owner.fields, f)
	}
	t.fields[refOf(f.Owner, f.Name)] = f
}

// AddLibrary registers every class and member declared by lib. Classes
// without an explicit superclass extend Object.
func (t *Table) AddLibrary(lib *ast.Library) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	declared := make([]*Class, 0, len(lib.Classes))
	for _, c := range lib.Classes {
		if _, exists := t.classes[c.Name]; exists {
			return errors.New(errors.MalformedIR, c.Pos, "class %s is already defined", c.Name)
		}
		class := &Class{Name: c.Name, Node: c}
		t.classes[c.Name] = class
		declared = append(declared, class)
	}

	for _, class := range declared {
		superName := class.Node.Super
		if superName == "" && class.Name != ObjectClass {
			superName = ObjectClass
		}
		if superName == "" {
			continue
		}
		super, ok := t.classes[superName]
		if !ok {
			return t.unresolved(class.Node.Pos, "class", superName, t.classNames())
		}
		class.Super = super
	}
	for _, class := range declared {
		if err := checkHierarchy(class); err != nil {
			return err
		}
	}

	for _, f := range lib.Fields {
		if err := t.declareField(nil, f); err != nil {
			return err
		}
	}
	for _, p := range lib.Procedures {
		if err := t.declareProcedure(nil, p); err != nil {
			return err
		}
	}
	for _, class := range declared {
		for _, f := range class.Node.Fields {
			if err := t.declareField(class, f); err != nil {
				return err
			}
		}
		for _, ctor := range class.Node.Constructors {
			if err := t.declareConstructor(class, ctor); err != nil {
				return err
			}
		}
		for _, p := range class.Node.Procedures {
			if err := t.declareProcedure(class, p); err != nil {
				return err
			}
		}
	}

	for _, class := range declared {
		for i, f := range class.InstanceFields() {
			if f.Owner == class {
				f.Offset = i
			}
		}
	}
	return nil
}

func checkHierarchy(class *Class) error {
	seen := make(map[*Class]bool)
	for k := class; k != nil; k = k.Super {
		if seen[k] {
			return errors.New(errors.MalformedIR, class.Node.Pos, "class %s inherits from itself", class.Name)
		}
		seen[k] = true
	}
	return nil
}

func (t *Table) declareField(owner *Class, node *ast.Field) error {
	key := refOf(owner, node.Name)
	if _, exists := t.fields[key]; exists {
		return errors.New(errors.MalformedIR, node.Pos, "field %s is already defined", qualify(owner, node.Name))
	}
	field := &Field{
		Name:     node.Name,
		Owner:    owner,
		IsStatic: node.IsStatic || owner == nil,
		IsConst:  node.IsConst,
		IsFinal:  node.IsFinal || node.IsConst,
		Node:     node,
	}
	t.addField(field)

	getter := &Function{
		Name:     GetterName(node.Name),
		Owner:    owner,
		Kind:     ImplicitGetter,
		IsStatic: field.IsStatic,
		Member:   node,
		Field:    field,
	}
	if err := t.declareFunction(getter, node.Pos); err != nil {
		return err
	}

	if !field.IsFinal {
		setter := &Function{
			Name:            SetterName(node.Name),
			Owner:           owner,
			Kind:            ImplicitSetter,
			IsStatic:        field.IsStatic,
			Member:          node,
			Field:           field,
			PositionalCount: 1,
			RequiredCount:   1,
		}
		if err := t.declareFunction(setter, node.Pos); err != nil {
			return err
		}
	}

	if field.IsStatic && !field.IsConst && node.Initializer != nil {
		init := &Function{
			Name:     InitializerName(node.Name),
			Owner:    owner,
			Kind:     StaticInitializer,
			IsStatic: true,
			Member:   node,
			Field:    field,
		}
		if err := t.declareFunction(init, node.Pos); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) declareProcedure(owner *Class, node *ast.Procedure) error {
	fn := &Function{
		Name:       node.Name,
		Owner:      owner,
		Kind:       RegularFunction,
		IsStatic:   node.IsStatic || owner == nil,
		IsExternal: node.IsExternal,
		Node:       node.Function,
		Member:     node,
	}
	setParameters(fn, node.Function)

	switch node.Kind {
	case ast.GetterProcedure:
		fn.Kind = GetterFunction
		fn.Name = GetterName(node.Name)
	case ast.SetterProcedure:
		fn.Kind = SetterFunction
		fn.Name = SetterName(node.Name)
	case ast.FactoryProcedure:
		if owner == nil {
			return errors.New(errors.MalformedIR, node.Pos, "factory %s must be declared in a class", node.Name)
		}
		fn.Kind = FactoryFunction
		fn.IsStatic = true
		fn.Name = FactoryName(owner.Name, node.Name)
		key := refOf(owner, node.Name)
		if _, exists := t.constructors[key]; exists {
			return errors.New(errors.MalformedIR, node.Pos, "constructor %s is already defined", fn.Name)
		}
		t.constructors[key] = fn
		t.members = append(t.members, fn)
		return nil
	}
	return t.declareFunction(fn, node.Pos)
}

func (t *Table) declareConstructor(owner *Class, node *ast.Constructor) error {
	key := refOf(owner, node.Name)
	if _, exists := t.constructors[key]; exists {
		return errors.New(errors.MalformedIR, node.Pos, "constructor %s is already defined", ConstructorName(owner.Name, node.Name))
	}
	fn := &Function{
		Name:    ConstructorName(owner.Name, node.Name),
		Owner:   owner,
		Kind:    ConstructorFunction,
		IsConst: node.IsConst,
		Node:    node.Function,
		Member:  node,
	}
	setParameters(fn, node.Function)
	t.constructors[key] = fn
	t.members = append(t.members, fn)
	return nil
}

func (t *Table) declareFunction(fn *Function, pos ast.Position) error {
	key := refOf(fn.Owner, fn.Name)
	if _, exists := t.functions[key]; exists {
		return errors.New(errors.MalformedIR, pos, "%s is already defined", fn.QualifiedName())
	}
	t.functions[key] = fn
	t.members = append(t.members, fn)
	return nil
}

func setParameters(fn *Function, node *ast.FunctionNode) {
	if node == nil {
		return
	}
	fn.PositionalCount = len(node.Positional)
	fn.RequiredCount = node.RequiredCount
	for _, p := range node.Named {
		fn.NamedParameters = append(fn.NamedParameters, p.Name)
	}
}

// Functions returns every function registered from a library, in
// declaration order. External and manifest functions are not included.
func (t *Table) Functions() []*Function {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Function, len(t.members))
	copy(out, t.members)
	return out
}

// Class returns a class by name, or nil.
func (t *Table) Class(name string) *Class {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.classes[name]
}

func (t *Table) ResolveClass(name string) *Class {
	if c := t.Class(name); c != nil {
		return c
	}
	t.mu.RLock()
	names := t.classNames()
	t.mu.RUnlock()
	errors.Raise(t.unresolved(ast.Position{}, "class", name, names))
	return nil
}

// LookupField finds a field, walking superclasses for class members.
func (t *Table) LookupField(ref ast.MemberRef) *Field {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if ref.IsTopLevel() {
		return t.fields[memberKey{name: ref.Name}]
	}
	for class := t.classes[ref.Class]; class != nil; class = class.Super {
		if f, ok := t.fields[refOf(class, ref.Name)]; ok {
			return f
		}
	}
	return nil
}

// LookupFunction finds a function by mangled name, walking superclasses for
// class members.
func (t *Table) LookupFunction(ref ast.MemberRef) *Function {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if ref.IsTopLevel() {
		return t.functions[memberKey{name: ref.Name}]
	}
	for class := t.classes[ref.Class]; class != nil; class = class.Super {
		if fn, ok := t.functions[refOf(class, ref.Name)]; ok {
			return fn
		}
	}
	return nil
}

func (t *Table) ResolveField(ref ast.MemberRef) *Field {
	if f := t.LookupField(ref); f != nil {
		return f
	}
	errors.Raise(t.unresolvedMember("field", ref))
	return nil
}

func (t *Table) ResolveFunction(ref ast.MemberRef) *Function {
	if fn := t.LookupFunction(ref); fn != nil {
		return fn
	}
	errors.Raise(t.unresolvedMember("function", ref))
	return nil
}

// ResolveConstructor resolves a constructor or factory. ref.Name is the
// unmangled constructor name; the unnamed constructor is "".
func (t *Table) ResolveConstructor(ref ast.MemberRef) *Function {
	t.mu.RLock()
	class := t.classes[ref.Class]
	fn := t.constructors[memberKey{class: ref.Class, name: ref.Name}]
	t.mu.RUnlock()
	if fn != nil {
		return fn
	}
	if class == nil {
		t.ResolveClass(ref.Class)
	}
	name := ConstructorName(ref.Class, ref.Name)
	errors.Raise(t.unresolved(ast.Position{}, "constructor", name, t.constructorNames(ref.Class)))
	return nil
}

// ClosureFunction returns the descriptor of a nested function, creating it
// the first time node is seen.
func (t *Table) ClosureFunction(parent *Function, node *ast.FunctionNode, name string) *Function {
	t.mu.RLock()
	fn, ok := t.closures[node]
	t.mu.RUnlock()
	if ok {
		return fn
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if fn, ok := t.closures[node]; ok {
		return fn
	}
	fn = &Function{
		Name:   name,
		Owner:  parent.Owner,
		Kind:   ClosureFunction,
		Node:   node,
		Member: parent.Member,
		Parent: parent,
	}
	setParameters(fn, node)
	t.closures[node] = fn
	return fn
}

// ImplicitClosureFunction returns the descriptor of target's tear-off,
// creating it on first use.
func (t *Table) ImplicitClosureFunction(target *Function) *Function {
	t.mu.RLock()
	fn, ok := t.tearOffs[target]
	t.mu.RUnlock()
	if ok {
		return fn
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if fn, ok := t.tearOffs[target]; ok {
		return fn
	}
	fn = &Function{
		Name:            target.Name,
		Owner:           target.Owner,
		Kind:            ImplicitClosure,
		IsStatic:        true,
		Member:          target.Member,
		Target:          target,
		PositionalCount: target.PositionalCount,
		RequiredCount:   target.RequiredCount,
		NamedParameters: slices.Clone(target.NamedParameters),
	}
	t.tearOffs[target] = fn
	return fn
}

// Closures returns every closure descriptor created so far, ordered by name.
func (t *Table) Closures() []*Function {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Function, 0, len(t.closures)+len(t.tearOffs))
	for _, fn := range t.closures {
		out = append(out, fn)
	}
	for _, fn := range t.tearOffs {
		out = append(out, fn)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].QualifiedName() < out[j].QualifiedName()
	})
	return out
}

func (t *Table) ReportFatalError(kind errors.Kind, pos ast.Position, format string, args ...any) {
	errors.Fatal(kind, pos, format, args...)
}

func (t *Table) unresolvedMember(what string, ref ast.MemberRef) *errors.LoweringError {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !ref.IsTopLevel() {
		if _, ok := t.classes[ref.Class]; !ok {
			return t.unresolved(ast.Position{}, "class", ref.Class, t.classNames())
		}
	}
	var candidates []string
	for key := range t.fields {
		if key.class == ref.Class {
			candidates = append(candidates, key.name)
		}
	}
	for key := range t.functions {
		if key.class == ref.Class {
			candidates = append(candidates, Unmangle(key.name))
		}
	}
	return t.unresolved(ast.Position{}, what, qualifyName(ref.Class, ref.Name), candidates)
}

func (t *Table) unresolved(pos ast.Position, what, name string, candidates []string) *errors.LoweringError {
	err := errors.New(errors.UnresolvedSymbol, pos, "cannot resolve %s '%s'", what, name)
	sort.Strings(candidates)
	err.Similar = errors.FindSimilarNames(Unmangle(name), dedupe(candidates))
	return err
}

func (t *Table) classNames() []string {
	names := make([]string, 0, len(t.classes))
	for name := range t.classes {
		names = append(names, name)
	}
	return names
}

func (t *Table) constructorNames(class string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var names []string
	for key, fn := range t.constructors {
		if key.class == class {
			names = append(names, fn.Name)
		}
	}
	return names
}

func qualifyName(class, name string) string {
	return fmt.Sprintf("%s::%s", class, name)
}

func dedupe(names []string) []string {
	out := names[:0]
	for i, name := range names {
		if i == 0 || names[i-1] != name {
			out = append(out, name)
		}
	}
	return out
}
