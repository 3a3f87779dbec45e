package ir

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Printer renders graphs as text for humans. The format is not parsed back.
type Printer struct {
	indent int
	output strings.Builder

	colored bool
	block   *color.Color
	opcode  *color.Color
	temp    *color.Color
}

// NewPrinter creates a new IR printer
func NewPrinter() *Printer {
	return &Printer{indent: 0}
}

// NewColorPrinter creates a printer that highlights block headers, temps and
// opcodes regardless of the terminal.
func NewColorPrinter() *Printer {
	p := &Printer{
		colored: true,
		block:   color.New(color.FgCyan, color.Bold),
		opcode:  color.New(color.FgYellow),
		temp:    color.New(color.FgGreen),
	}
	p.block.EnableColor()
	p.opcode.EnableColor()
	p.temp.EnableColor()
	return p
}

// Print returns the string representation of a graph
func Print(g *Graph) string {
	p := NewPrinter()
	p.PrintGraph(g)
	return p.output.String()
}

// String returns everything printed so far.
func (p *Printer) String() string {
	return p.output.String()
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("  ")
	}
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

// PrintGraph appends g to the output. Graphs must be discovered first.
func (p *Printer) PrintGraph(g *Graph) {
	name := "<anonymous>"
	kind := "function"
	if g.Function != nil {
		name = g.Function.QualifiedName()
		kind = g.Function.Kind.String()
	}
	p.writeLine("graph %s (%s)", name, kind)
	p.indent++
	for _, b := range g.Blocks {
		p.printBlock(b)
	}
	p.indent--
}

func (p *Printer) printBlock(b BlockEntry) {
	header := b.String()
	if preds := b.Predecessors(); len(preds) > 0 {
		ids := make([]string, len(preds))
		for i, pred := range preds {
			ids[i] = fmt.Sprintf("B%d", pred.BlockID())
		}
		header += " pred(" + strings.Join(ids, ", ") + ")"
	}
	if p.colored {
		header = p.block.Sprint(header)
	}
	p.writeLine("%s", header)

	p.indent++
	if g, ok := b.(*GraphEntry); ok {
		if len(g.Defaults) > 0 {
			defaults := make([]string, len(g.Defaults))
			for i, d := range g.Defaults {
				defaults[i] = d.String()
			}
			p.writeLine("defaults [%s]", strings.Join(defaults, ", "))
		}
		succs := make([]string, 0, 1+len(g.Catches))
		for _, s := range Successors(g) {
			succs = append(succs, fmt.Sprintf("B%d", s.BlockID()))
		}
		p.writeLine("succ(%s)", strings.Join(succs, ", "))
	}
	for _, i := range Instructions(b) {
		p.writeLine("%s", p.instruction(i))
	}
	p.indent--
}

func (p *Printer) instruction(i Instruction) string {
	text := i.String()
	if p.colored {
		op := i.Opcode()
		text = p.opcode.Sprint(op) + strings.TrimPrefix(text, op)
	}
	if !IsDefinition(i) || Temp(i) == 0 {
		return text
	}
	temp := fmt.Sprintf("v%d", Temp(i))
	if p.colored {
		temp = p.temp.Sprint(temp)
	}
	return temp + " <- " + text
}
