package lower

import (
	"dil/internal/ast"
	"dil/internal/errors"
	"dil/internal/ir"
	"dil/internal/scope"
)

// lookupVariable returns the analyzed variable of decl.
func (b *Builder) lookupVariable(node ast.Node, decl *ast.VariableDeclaration) *scope.Variable {
	v := b.result.Variable(decl)
	if v == nil {
		fatalf(node, errors.MalformedIR, "variable '%s' has no scope", decl.Name)
	}
	return v
}

// loadVariable pushes the value of v, following parent links to its frame
// when it is captured.
func (b *Builder) loadVariable(v *scope.Variable) ir.Fragment {
	if !v.Captured {
		return b.loadLocal(v)
	}
	f := b.loadContextAt(v.Level)
	return f.Append(b.loadField(ir.ContextVariable(v.Index)))
}

// storeVariable writes the top of the stack to v and leaves the value on
// the stack.
func (b *Builder) storeVariable(v *scope.Variable) ir.Fragment {
	if !v.Captured {
		return b.storeLocal(v)
	}
	value := b.makeTemporary()
	f := b.loadContextAt(v.Level)
	f = f.Append(b.loadLocal(value))
	return f.Append(b.storeField(ir.ContextVariable(v.Index)))
}

// loadContextAt pushes the frame at level, walking one parent link per
// level between it and the current frame.
func (b *Builder) loadContextAt(level int) ir.Fragment {
	if level < 0 || level > b.contextDepth {
		errors.Fatal(errors.MalformedIR, b.position(), "no frame at level %d (current level %d)", level, b.contextDepth)
	}
	f := b.loadLocal(b.info.CurrentContext)
	for delta := b.contextDepth - level; delta > 0; delta-- {
		f = f.Append(b.loadField(ir.ContextParent))
	}
	return f
}

// pushContext allocates a frame for s and makes it current.
func (b *Builder) pushContext(s *scope.Scope) ir.Fragment {
	f := b.allocateContext(len(s.ContextVariables))
	context := b.makeTemporary()
	if b.contextDepth >= 0 {
		f = f.Append(b.loadLocal(context))
		f = f.Append(b.loadLocal(b.info.CurrentContext))
		f = f.Append(b.storeField(ir.ContextParent))
	}
	f = f.Append(b.storeLocal(b.info.CurrentContext))
	f = f.Append(b.drop())
	b.contextDepth = s.ContextLevel
	return f
}

func (b *Builder) popContext() ir.Fragment {
	f := b.loadLocal(b.info.CurrentContext)
	f = f.Append(b.loadField(ir.ContextParent))
	f = f.Append(b.storeLocal(b.info.CurrentContext))
	f = f.Append(b.drop())
	b.contextDepth--
	return f
}

// adjustContextTo makes the frame at level current.
func (b *Builder) adjustContextTo(level int) ir.Fragment {
	if level >= b.contextDepth {
		return ir.Fragment{}
	}
	var f ir.Fragment
	if level < 0 {
		f = b.nullConstant()
	} else {
		f = b.loadContextAt(level)
	}
	f = f.Append(b.storeLocal(b.info.CurrentContext))
	f = f.Append(b.drop())
	b.contextDepth = level
	return f
}

// enterScope allocates the frame of the scope introduced by node, if any.
func (b *Builder) enterScope(node ast.Node) ir.Fragment {
	s := b.result.Scope(node)
	if s == nil || !s.HasContext() {
		return ir.Fragment{}
	}
	if b.contextDepth != s.ContextLevel-1 {
		fatalf(node, errors.MalformedIR, "entering frame level %d from level %d", s.ContextLevel, b.contextDepth)
	}
	if b.depth.loop != s.LoopDepth {
		fatalf(node, errors.MalformedIR, "entering frame at loop depth %d, analyzed at %d", b.depth.loop, s.LoopDepth)
	}
	return b.pushContext(s)
}

// exitScope pops the frame of node. The depth is adjusted even when the
// returned fragment is appended to closed code.
func (b *Builder) exitScope(node ast.Node) ir.Fragment {
	s := b.result.Scope(node)
	if s == nil || !s.HasContext() {
		return ir.Fragment{}
	}
	return b.popContext()
}

// copyParameters moves captured parameters from their incoming slots into
// the current frame.
func (b *Builder) copyParameters(params []*scope.Variable) ir.Fragment {
	var f ir.Fragment
	for _, p := range params {
		if p == nil || !p.Captured {
			continue
		}
		incoming := &scope.Variable{Name: p.Name, Decl: p.Decl, Function: p.Function, Local: p.Local}
		f = f.Append(b.loadLocal(incoming))
		f = f.Append(b.storeVariable(p))
		f = f.Append(b.drop())
	}
	return f
}

// cloneCurrentContext gives the next loop iteration a copy of the frame.
func (b *Builder) cloneCurrentContext() ir.Fragment {
	f := b.loadLocal(b.info.CurrentContext)
	f = f.Append(b.cloneContext())
	f = f.Append(b.storeLocal(b.info.CurrentContext))
	return f.Append(b.drop())
}
