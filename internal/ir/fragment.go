package ir

// Fragment is a partial graph with a single entry and at most one exit.
// A fragment is open when code appended to it will execute: it is empty or
// has an exit. A closed fragment ends in a terminator.
type Fragment struct {
	Entry Instruction
	Exit  Instruction
}

// Single wraps one instruction as an open fragment.
func Single(i Instruction) Fragment {
	return Fragment{Entry: i, Exit: i}
}

func (f Fragment) IsEmpty() bool  { return f.Entry == nil }
func (f Fragment) IsOpen() bool   { return f.Entry == nil || f.Exit != nil }
func (f Fragment) IsClosed() bool { return !f.IsOpen() }

// Closed drops the exit, keeping the entry.
func (f Fragment) Closed() Fragment {
	return Fragment{Entry: f.Entry}
}

// Append concatenates other after f. Appending to a closed fragment leaves
// it unchanged.
func (f Fragment) Append(other Fragment) Fragment {
	if f.Entry == nil {
		return other
	}
	if f.Exit == nil || other.Entry == nil {
		return f
	}
	LinkTo(f.Exit, other.Entry)
	return Fragment{Entry: f.Entry, Exit: other.Exit}
}

// Add appends one instruction.
func (f Fragment) Add(next Instruction) Fragment {
	if f.Entry == nil {
		return Single(next)
	}
	if f.Exit == nil {
		return f
	}
	LinkTo(f.Exit, next)
	return Fragment{Entry: f.Entry, Exit: next}
}
