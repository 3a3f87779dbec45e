package constant

import (
	"math"

	"dil/internal/ast"
)

// dispatch folds the operator methods of the primitive classes.
func (e *Evaluator) dispatch(site ast.Expr, receiver Value, name string, args []Value) Value {
	switch len(args) {
	case 0:
		if v := e.unary(receiver, name); v != nil {
			return v
		}
	case 1:
		if name == "==" {
			return e.pool.Bool(equals(receiver, args[0]))
		}
		if v := e.binary(site, receiver, name, args[0]); v != nil {
			return v
		}
	}
	notConstant(site, "'%s' on %s is not a constant operation", name, receiver.Kind())
	return nil
}

func (e *Evaluator) unary(receiver Value, name string) Value {
	switch r := receiver.(type) {
	case *Int:
		switch name {
		case "unary-":
			return e.pool.Int(-r.Value)
		case "~":
			return e.pool.Int(^r.Value)
		case "toString":
			return e.pool.String(r.String())
		}
	case *Double:
		switch name {
		case "unary-":
			return e.pool.Double(-r.Value)
		case "toString":
			return e.pool.String(r.String())
		}
	case *Bool:
		if name == "toString" {
			return e.pool.String(r.String())
		}
	case *String:
		if name == "toString" {
			return r
		}
	}
	return nil
}

func (e *Evaluator) binary(site ast.Expr, receiver Value, name string, arg Value) Value {
	switch r := receiver.(type) {
	case *Int:
		if a, ok := arg.(*Int); ok {
			return e.intOp(site, r.Value, name, a.Value)
		}
		if a, ok := arg.(*Double); ok {
			return e.doubleOp(float64(r.Value), name, a.Value)
		}
	case *Double:
		switch a := arg.(type) {
		case *Int:
			return e.doubleOp(r.Value, name, float64(a.Value))
		case *Double:
			return e.doubleOp(r.Value, name, a.Value)
		}
	case *Bool:
		if a, ok := arg.(*Bool); ok {
			switch name {
			case "&":
				return e.pool.Bool(r.Value && a.Value)
			case "|":
				return e.pool.Bool(r.Value || a.Value)
			case "^":
				return e.pool.Bool(r.Value != a.Value)
			}
		}
	case *String:
		if a, ok := arg.(*String); ok && name == "+" {
			return e.pool.String(r.Value + a.Value)
		}
	}
	return nil
}

func (e *Evaluator) intOp(site ast.Expr, a int64, name string, b int64) Value {
	switch name {
	case "+":
		return e.pool.Int(a + b)
	case "-":
		return e.pool.Int(a - b)
	case "*":
		return e.pool.Int(a * b)
	case "/":
		return e.pool.Double(float64(a) / float64(b))
	case "~/":
		if b == 0 {
			notConstant(site, "integer division by zero")
		}
		return e.pool.Int(a / b)
	case "%":
		if b == 0 {
			notConstant(site, "integer division by zero")
		}
		r := a % b
		if r < 0 {
			if b < 0 {
				r -= b
			} else {
				r += b
			}
		}
		return e.pool.Int(r)
	case "&":
		return e.pool.Int(a & b)
	case "|":
		return e.pool.Int(a | b)
	case "^":
		return e.pool.Int(a ^ b)
	case "<<":
		if b < 0 {
			notConstant(site, "negative shift count")
		}
		return e.pool.Int(a << uint64(b))
	case ">>":
		if b < 0 {
			notConstant(site, "negative shift count")
		}
		return e.pool.Int(a >> uint64(b))
	case "<":
		return e.pool.Bool(a < b)
	case "<=":
		return e.pool.Bool(a <= b)
	case ">":
		return e.pool.Bool(a > b)
	case ">=":
		return e.pool.Bool(a >= b)
	}
	return nil
}

func (e *Evaluator) doubleOp(a float64, name string, b float64) Value {
	switch name {
	case "+":
		return e.pool.Double(a + b)
	case "-":
		return e.pool.Double(a - b)
	case "*":
		return e.pool.Double(a * b)
	case "/":
		return e.pool.Double(a / b)
	case "%":
		r := math.Mod(a, b)
		if r < 0 {
			r += math.Abs(b)
		}
		return e.pool.Double(r)
	case "<":
		return e.pool.Bool(a < b)
	case "<=":
		return e.pool.Bool(a <= b)
	case ">":
		return e.pool.Bool(a > b)
	case ">=":
		return e.pool.Bool(a >= b)
	}
	return nil
}

// equals is == on constants: numbers compare by value, everything else by
// canonical identity.
func equals(a, b Value) bool {
	switch x := a.(type) {
	case *Int:
		switch y := b.(type) {
		case *Int:
			return x.Value == y.Value
		case *Double:
			return float64(x.Value) == y.Value
		}
	case *Double:
		switch y := b.(type) {
		case *Int:
			return x.Value == float64(y.Value)
		case *Double:
			return x.Value == y.Value
		}
	}
	return a == b
}
