package emit

import (
	"fmt"
	"math"
	"strings"

	"progen/pkg/ir"
	"progen/pkg/symbols"
	"progen/pkg/types"
	"progen/pkg/value"
)

func (p *Printer) printStmt(stmt ir.Stmt) {
	switch s := stmt.(type) {
	case *ir.ScopeStmt:
		p.line("{")
		p.indent++
		for _, inner := range s.Stmts {
			p.printStmt(inner)
		}
		p.indent--
		p.line("}")

	case *ir.ExprStmt:
		p.writeIndent()
		p.printExpr(s.E)
		fmt.Fprintln(p.w, ";")

	case *ir.IfElseStmt:
		p.writeIndent()
		fmt.Fprint(p.w, "if (")
		p.printExpr(s.Cond)
		fmt.Fprintln(p.w, ") {")
		p.indent++
		for _, inner := range s.Then.Stmts {
			p.printStmt(inner)
		}
		p.indent--
		if s.Else != nil {
			p.line("} else {")
			p.indent++
			for _, inner := range s.Else.Stmts {
				p.printStmt(inner)
			}
			p.indent--
		}
		p.line("}")

	case *ir.LoopSeqStmt:
		for _, loop := range s.Loops {
			p.openLoop(loop.Head)
			for _, inner := range loop.Body.Stmts {
				p.printStmt(inner)
			}
			p.closeLoop()
		}

	case *ir.LoopNestStmt:
		for _, it := range s.Iters {
			p.openLoop(it)
		}
		for _, inner := range s.Body.Stmts {
			p.printStmt(inner)
		}
		for range s.Iters {
			p.closeLoop()
		}

	default:
		panic(fmt.Sprintf("emit: unhandled statement %T", stmt))
	}
}

func (p *Printer) openLoop(it *ir.Iterator) {
	t := it.Type.Name()
	p.line("for (%s %s = %d; %s < %d; %s += %d) {",
		t, it.Name, it.Start, it.Name, it.End, it.Name, it.Step)
	p.indent++
}

func (p *Printer) closeLoop() {
	p.indent--
	p.line("}")
}

func (p *Printer) printExpr(expr ir.Expr) {
	switch e := expr.(type) {
	case *ir.AssignExpr:
		p.printExpr(e.Target)
		fmt.Fprint(p.w, " = ")
		p.printExpr(e.RHS)

	case *ir.ConstExpr:
		fmt.Fprint(p.w, exprLiteral(e.V))

	case *ir.VarUse:
		fmt.Fprint(p.w, scalarRef(e.Var))

	case *ir.ArrayUse:
		fmt.Fprint(p.w, arrayRef(e.Arr))
		for _, it := range e.Idx {
			fmt.Fprintf(p.w, "[%s]", it.Name)
		}

	case *ir.BinaryExpr:
		fmt.Fprint(p.w, "(")
		p.printExpr(e.L)
		fmt.Fprintf(p.w, " %s ", e.Op)
		p.printExpr(e.R)
		fmt.Fprint(p.w, ")")

	case *ir.UnaryExpr:
		fmt.Fprintf(p.w, "(%s", e.Op)
		p.printExpr(e.E)
		fmt.Fprint(p.w, ")")

	case *ir.CastExpr:
		fmt.Fprintf(p.w, "((%s)", e.To.Name())
		p.printExpr(e.E)
		fmt.Fprint(p.w, ")")

	case *ir.CallExpr:
		fmt.Fprintf(p.w, "%s(%s)", e.Name, strings.Join(e.Args, ", "))

	default:
		panic(fmt.Sprintf("emit: unhandled expression %T", expr))
	}
}

// scalarRef renders the access path of a scalar: plain name, aggregate
// member access, private-member accessor, or pointer dereference.
func scalarRef(v *symbols.Variable) string {
	switch v.Kind {
	case symbols.KindStructMbr:
		return symbols.StaticStructName + "." + v.Name
	case symbols.KindDynStructMbr:
		return symbols.DynStructName + "->" + v.Name
	case symbols.KindClassMbr:
		return symbols.StaticClassName + "." + v.Name
	case symbols.KindClassPrivMbr:
		return symbols.StaticClassName + ".get_" + v.Name + "()"
	case symbols.KindDynClassMbr:
		return symbols.DynClassName + "->" + v.Name
	case symbols.KindPointer:
		return "(*" + v.Name + ")"
	}
	return v.Name
}

func arrayRef(a *symbols.Array) string {
	switch a.Kind {
	case symbols.KindStructMbr:
		return symbols.StaticStructName + "." + a.Name
	case symbols.KindDynStructMbr:
		return symbols.DynStructName + "->" + a.Name
	case symbols.KindClassMbr:
		return symbols.StaticClassName + "." + a.Name
	case symbols.KindDynClassMbr:
		return symbols.DynClassName + "->" + a.Name
	}
	return a.Name
}

// declLiteral renders a value as an initializer. Initializers convert to
// the declared type, so no wrapping cast is needed.
func declLiteral(v value.Value) string {
	t := v.Typ
	if t.Size == types.IBool {
		if v.Bits != 0 {
			return "true"
		}
		return "false"
	}
	if t.IsSigned() {
		return signedLiteral(v.Int64(), t.Size == types.I64)
	}
	switch t.Size {
	case types.I64:
		return fmt.Sprintf("%dULL", v.Bits)
	case types.I32:
		return fmt.Sprintf("%dU", v.Bits)
	}
	return fmt.Sprintf("%d", v.Bits)
}

// exprLiteral renders a value for use inside an expression, where the
// literal's own type takes part in the usual arithmetic conversions. Types
// narrower than int get an explicit cast so their promotion behavior is
// exactly the declared type's.
func exprLiteral(v value.Value) string {
	t := v.Typ
	switch t.Size {
	case types.I8, types.I16:
		return fmt.Sprintf("((%s)%s)", t.Name(), declLiteral(v))
	}
	return declLiteral(v)
}

// signedLiteral spells a signed constant, dodging the most-negative-value
// trap: the C++ grammar has no negative literals, so INT_MIN spelled
// directly would overflow during negation.
func signedLiteral(n int64, wide bool) string {
	if n == math.MinInt64 {
		return "(-9223372036854775807LL - 1LL)"
	}
	if wide {
		return fmt.Sprintf("%dLL", n)
	}
	if n == math.MinInt32 {
		return "(-2147483647 - 1)"
	}
	return fmt.Sprintf("%d", n)
}
