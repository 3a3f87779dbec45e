package lower

import (
	"dil/internal/ast"
	"dil/internal/errors"
	"dil/internal/ir"
)

// visitSwitch translates the case bodies first so that continue, fallthrough
// and multi-expression cases can request a join for a body before the case
// tests are built.
func (b *Builder) visitSwitch(stmt *ast.SwitchStatement) ir.Fragment {
	switchVariable := b.info.SwitchVariables[b.depth.switches]

	head := b.translateExpression(stmt.Expression)
	head = head.Append(b.storeLocal(switchVariable))
	head = head.Append(b.drop())

	for i, c := range stmt.Cases {
		if c.IsDefault && i != len(stmt.Cases)-1 {
			fatalf(c, errors.MalformedIR, "default case must be the last case of a switch")
		}
	}

	block, pop := b.pushSwitch(stmt)
	b.depth.switches++
	defer func() {
		b.depth.switches--
		pop()
	}()

	last := len(stmt.Cases) - 1
	bodies := make([]ir.Fragment, len(stmt.Cases))
	for i, c := range stmt.Cases {
		body := b.translateStatement(c.Body)
		if body.IsEmpty() {
			// Bodies need an instruction to link to.
			body = b.nullConstant()
			body = body.Append(b.drop())
		}
		if !c.IsDefault && body.IsOpen() && i < last {
			body = body.Append(b.gotoJoin(block.destination(b, i+1)))
		}
		if len(c.Expressions) > 1 {
			block.destination(b, i)
		}
		bodies[i] = body
	}

	current := head
	for i, c := range stmt.Cases {
		if block.hadJumper(i) {
			bodies[i] = fragmentFrom(block.destination(b, i)).Append(bodies[i])
		}

		if c.IsDefault {
			if block.hadJumper(i) {
				current = current.Append(b.gotoJoin(block.destination(b, i)))
				current = ir.Fragment{Entry: current.Entry, Exit: bodies[i].Exit}
			} else {
				current = current.Append(bodies[i])
			}
			continue
		}

		for _, expr := range c.Expressions {
			value := b.evaluator.MustEvaluate(expr)
			current = current.Append(b.constant(value))
			current = current.Append(b.pushArgument())
			current = current.Append(b.loadLocal(switchVariable))
			current = current.Append(b.pushArgument())
			current = current.Append(b.instanceCall("==", 2, nil))
			branch, then, otherwise := b.branchIfTrue(false)
			current = current.Append(branch)
			current = ir.Fragment{Entry: current.Entry, Exit: otherwise}

			if block.hadJumper(i) {
				fragmentFrom(then).Append(b.gotoJoin(block.destination(b, i)))
			} else {
				fragmentFrom(then).Append(bodies[i])
			}
		}
	}

	if len(stmt.Cases) > 0 && !stmt.Cases[last].IsDefault && bodies[last].IsOpen() {
		join := b.buildJoinEntry()
		current.Append(b.gotoJoin(join))
		bodies[last].Append(b.gotoJoin(join))
		current = ir.Fragment{Entry: current.Entry, Exit: join}
	}
	return current
}
