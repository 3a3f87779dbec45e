package scope

// allocate assigns frames to scopes and slots to captured variables. Scopes
// are visited in creation order, so parents are always done first.
func (a *Analyzer) allocate() {
	base := -1
	if a.enclosing != nil {
		base = a.enclosing.ContextLevel
	}

	for _, s := range a.result.order {
		outer := base
		if s.Parent != nil && s.Parent != a.enclosing {
			outer = s.Parent.ContextLevel
		}

		s.ContextVariables = s.ContextVariables[:0]
		for _, v := range s.Variables {
			if v.Captured {
				s.ContextVariables = append(s.ContextVariables, v)
			}
		}

		s.owns = s.forced || len(s.ContextVariables) > 0
		s.ContextLevel = outer
		if s.owns {
			s.ContextLevel = outer + 1
		}
		for i, v := range s.ContextVariables {
			v.Level = s.ContextLevel
			v.Index = i
		}

		fn := s.Function
		if fn.Scope == s {
			fn.EntryContextLevel = outer
		}
		if s.owns || fn.EntryContextLevel >= 0 {
			fn.UsesContexts = true
		}
	}
}
