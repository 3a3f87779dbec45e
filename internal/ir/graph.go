package ir

import (
	"fmt"
	"sort"

	"dil/internal/symbols"
)

// Graph is the lowered form of one function.
type Graph struct {
	Function *symbols.Function
	Entry    *GraphEntry

	// Blocks are the reachable blocks in reverse postorder, filled by
	// Discover.
	Blocks []BlockEntry
	// BackEdges are the edges to a block still being visited, one per loop.
	BackEdges []Edge

	// Closures are the nested functions whose closures the graph allocates.
	Closures []*symbols.Function

	MaxBlockID    int
	TryIndexCount int
}

// Edge is a control-flow edge between two blocks.
type Edge struct {
	From BlockEntry
	To   BlockEntry
}

func NewGraph(fn *symbols.Function, entry *GraphEntry) *Graph {
	return &Graph{Function: fn, Entry: entry}
}

// Discover computes the reachable blocks, their predecessors and the back
// edges, and checks that every block ends in exactly one terminator.
func (g *Graph) Discover() error {
	g.Blocks = g.Blocks[:0]
	g.BackEdges = nil

	const (
		unvisited = iota
		active
		done
	)
	state := make(map[BlockEntry]int)
	seen := make(map[int]BlockEntry)
	var postorder []BlockEntry
	var err error

	var visit func(b BlockEntry)
	visit = func(b BlockEntry) {
		state[b] = active
		base := b.entry()
		base.preds = nil
		if other, dup := seen[base.blockID]; dup && err == nil {
			err = fmt.Errorf("blocks %s and %s share id B%d", other.Opcode(), b.Opcode(), base.blockID)
		}
		seen[base.blockID] = b
		if e := g.checkBlock(b); e != nil && err == nil {
			err = e
		}

		for _, succ := range Successors(b) {
			switch state[succ] {
			case unvisited:
				visit(succ)
			case active:
				g.BackEdges = append(g.BackEdges, Edge{From: b, To: succ})
			}
			succ.entry().preds = append(succ.entry().preds, b)
		}
		state[b] = done
		postorder = append(postorder, b)
	}
	visit(g.Entry)

	for i := len(postorder) - 1; i >= 0; i-- {
		g.Blocks = append(g.Blocks, postorder[i])
	}
	for _, b := range g.Blocks {
		if b.BlockID() > g.MaxBlockID {
			g.MaxBlockID = b.BlockID()
		}
	}
	return err
}

func (g *Graph) checkBlock(b BlockEntry) error {
	base := b.entry()
	base.last = b
	if _, isGraph := b.(*GraphEntry); isGraph {
		return nil
	}

	for i := b.Next(); i != nil; i = i.Next() {
		if next, ok := i.(BlockEntry); ok {
			return fmt.Errorf("block B%d falls into block B%d without a jump", base.blockID, next.BlockID())
		}
		base.last = i
		if IsTerminator(i) && i.Next() != nil {
			return fmt.Errorf("block B%d continues after %s", base.blockID, i.Opcode())
		}
	}
	if !IsTerminator(base.last) {
		return fmt.Errorf("block B%d does not end in a terminator", base.blockID)
	}
	return nil
}

// Block returns the reachable block with id, or nil.
func (g *Graph) Block(id int) BlockEntry {
	for _, b := range g.Blocks {
		if b.BlockID() == id {
			return b
		}
	}
	return nil
}

// Instructions returns the instructions of b after its entry.
func Instructions(b BlockEntry) []Instruction {
	var out []Instruction
	for i := b.Next(); i != nil; i = i.Next() {
		out = append(out, i)
	}
	return out
}

// Walk calls fn for every instruction of every reachable block, entries
// included, in block order.
func (g *Graph) Walk(fn func(block BlockEntry, i Instruction)) {
	for _, b := range g.Blocks {
		fn(b, b)
		for _, i := range Instructions(b) {
			fn(b, i)
		}
	}
}

// Stats summarizes a discovered graph.
type Stats struct {
	Blocks       int
	Joins        int
	Targets      int
	Catches      int
	Loops        int
	Instructions int
	// Throwing counts instructions that may throw; Guarded those of them
	// covered by a handler.
	Throwing int
	Guarded  int
	Opcodes  map[string]int
}

func (g *Graph) Stats() Stats {
	s := Stats{Blocks: len(g.Blocks), Loops: len(g.BackEdges), Opcodes: make(map[string]int)}
	for _, b := range g.Blocks {
		switch b.(type) {
		case *JoinEntry:
			s.Joins++
		case *TargetEntry:
			s.Targets++
		case *CatchBlockEntry:
			s.Catches++
		}
		for _, i := range Instructions(b) {
			s.Instructions++
			s.Opcodes[i.Opcode()]++
			if MayThrow(i) {
				s.Throwing++
				if b.TryIndex() != InvalidTryIndex {
					s.Guarded++
				}
			}
		}
	}
	return s
}

// Count returns how many reachable instructions have opcode.
func (g *Graph) Count(opcode string) int {
	n := 0
	g.Walk(func(_ BlockEntry, i Instruction) {
		if i.Opcode() == opcode {
			n++
		}
	})
	return n
}

// SortedOpcodes returns the opcodes of s in name order.
func (s Stats) SortedOpcodes() []string {
	names := make([]string, 0, len(s.Opcodes))
	for name := range s.Opcodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
