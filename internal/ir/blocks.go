package ir

import (
	"fmt"
	"strings"

	"dil/internal/constant"
	"dil/internal/scope"
)

// InvalidTryIndex is the handler index of code outside every try block.
const InvalidTryIndex = -1

// BlockEntry is the first instruction of a block.
type BlockEntry interface {
	Instruction
	BlockID() int
	// TryIndex is the handler index the block belongs to.
	TryIndex() int
	Predecessors() []BlockEntry
	// Last is the terminator, or the last instruction of an unterminated
	// chain. It is only valid after Discover.
	Last() Instruction

	entry() *blockBase
}

type blockBase struct {
	instr
	blockID  int
	tryIndex int
	preds    []BlockEntry
	last     Instruction
}

func (b *blockBase) BlockID() int               { return b.blockID }
func (b *blockBase) TryIndex() int              { return b.tryIndex }
func (b *blockBase) Predecessors() []BlockEntry { return b.preds }
func (b *blockBase) Last() Instruction          { return b.last }
func (b *blockBase) entry() *blockBase          { return b }

func (*blockBase) Inputs() []*Value { return nil }

func (b *blockBase) header(kind string) string {
	s := fmt.Sprintf("B%d[%s]", b.blockID, kind)
	if b.tryIndex != InvalidTryIndex {
		s += fmt.Sprintf(" try_idx %d", b.tryIndex)
	}
	return s
}

// GraphEntry is the root of a graph. Its successors are the normal entry and
// every catch entry.
type GraphEntry struct {
	blockBase
	Normal  *FunctionEntry
	Catches []*CatchBlockEntry
	// Defaults holds one constant per optional parameter.
	Defaults []constant.Value
}

// FunctionEntry starts the function body.
type FunctionEntry struct {
	blockBase
}

// TargetEntry is the successor of one side of a Branch.
type TargetEntry struct {
	blockBase
}

// JoinEntry is reached by one or more Gotos.
type JoinEntry struct {
	blockBase
}

// CatchBlockEntry is entered when an exception is thrown in the region with
// CatchTryIndex.
type CatchBlockEntry struct {
	blockBase
	CatchTryIndex int
	// Guards are the class names tested by the handler; empty means
	// catch-all.
	Guards     []string
	Exception  *scope.Variable
	StackTrace *scope.Variable
}

func NewGraphEntry(id int) *GraphEntry {
	return &GraphEntry{blockBase: blockBase{blockID: id, tryIndex: InvalidTryIndex}}
}

func NewFunctionEntry(id int) *FunctionEntry {
	return &FunctionEntry{blockBase{blockID: id, tryIndex: InvalidTryIndex}}
}

func NewTargetEntry(id, tryIndex int) *TargetEntry {
	return &TargetEntry{blockBase{blockID: id, tryIndex: tryIndex}}
}

func NewJoinEntry(id, tryIndex int) *JoinEntry {
	return &JoinEntry{blockBase{blockID: id, tryIndex: tryIndex}}
}

func NewCatchBlockEntry(id, tryIndex, catchTryIndex int, exception, stackTrace *scope.Variable) *CatchBlockEntry {
	return &CatchBlockEntry{
		blockBase:     blockBase{blockID: id, tryIndex: tryIndex},
		CatchTryIndex: catchTryIndex,
		Exception:     exception,
		StackTrace:    stackTrace,
	}
}

func (*GraphEntry) Opcode() string      { return "GraphEntry" }
func (*FunctionEntry) Opcode() string   { return "FunctionEntry" }
func (*TargetEntry) Opcode() string     { return "TargetEntry" }
func (*JoinEntry) Opcode() string       { return "JoinEntry" }
func (*CatchBlockEntry) Opcode() string { return "CatchBlockEntry" }

func (g *GraphEntry) String() string    { return g.header("graph") }
func (f *FunctionEntry) String() string { return f.header("function") }
func (t *TargetEntry) String() string   { return t.header("target") }
func (j *JoinEntry) String() string     { return j.header("join") }

func (c *CatchBlockEntry) String() string {
	s := c.header("catch") + fmt.Sprintf(" handles %d", c.CatchTryIndex)
	if len(c.Guards) > 0 {
		s += " (" + strings.Join(c.Guards, ", ") + ")"
	}
	return s
}

// Successors returns the blocks control can reach from b.
func Successors(b BlockEntry) []BlockEntry {
	if g, ok := b.(*GraphEntry); ok {
		succs := make([]BlockEntry, 0, 1+len(g.Catches))
		if g.Normal != nil {
			succs = append(succs, g.Normal)
		}
		for _, c := range g.Catches {
			succs = append(succs, c)
		}
		return succs
	}

	switch last := lastOf(b).(type) {
	case *Goto:
		return []BlockEntry{last.Target}
	case *Branch:
		return []BlockEntry{last.True, last.False}
	}
	return nil
}

func lastOf(b BlockEntry) Instruction {
	var last Instruction = b
	for next := last.Next(); next != nil; next = next.Next() {
		last = next
	}
	return last
}
