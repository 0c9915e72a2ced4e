package populate

import (
	"progen/pkg/funcspec"
	"progen/pkg/ir"
	"progen/pkg/rng"
	"progen/pkg/symbols"
	"progen/pkg/types"
	"progen/pkg/value"
)

// ubSite pinpoints the node whose evaluation hit undefined behavior
type ubSite struct {
	bin  *ir.BinaryExpr
	un   *ir.UnaryExpr
	kind value.UBKind
}

// eval abstractly interprets an expression. alt selects the alternate value
// track for reads of multi-track arrays; everything else is track-invariant.
func (e *Engine) eval(x ir.Expr, alt bool) (value.Value, *ubSite) {
	switch n := x.(type) {
	case *ir.ConstExpr:
		return n.V, nil
	case *ir.VarUse:
		return n.Var.Cur, nil
	case *ir.ArrayUse:
		if alt && n.Arr.TrackAxis >= 0 {
			return n.Arr.CurAlt, nil
		}
		return n.Arr.CurMain, nil
	case *ir.CallExpr:
		return n.V, nil
	case *ir.CastExpr:
		v, site := e.eval(n.E, alt)
		if site != nil {
			return value.Value{}, site
		}
		return v.Cast(n.To), nil
	case *ir.UnaryExpr:
		v, site := e.eval(n.E, alt)
		if site != nil {
			return value.Value{}, site
		}
		r, ub := value.Unary(n.Op, v)
		if ub != value.UBNone {
			return value.Value{}, &ubSite{un: n, kind: ub}
		}
		return r, nil
	case *ir.BinaryExpr:
		l, site := e.eval(n.L, alt)
		if site != nil {
			return value.Value{}, site
		}
		r, site := e.eval(n.R, alt)
		if site != nil {
			return value.Value{}, site
		}
		v, ub := value.Binary(n.Op, l, r)
		if ub != value.UBNone {
			return value.Value{}, &ubSite{bin: n, kind: ub}
		}
		return v, nil
	}
	panic("populate: eval of a non-value expression")
}

// settle evaluates an expression, rebuilding undefined-behavior sites until
// both tracks are clean, and returns the main-track value. A handful of
// rebuilds always converges; the constant fallback is a safety net.
func (e *Engine) settle(x *ir.Expr, ctx popCtx) value.Value {
	for attempt := 0; attempt < 32; attempt++ {
		v, site := e.eval(*x, false)
		if site == nil && ctx.allowMul {
			_, site = e.eval(*x, true)
		}
		if site == nil {
			return v
		}
		e.rebuild(site)
	}
	fallback := value.New(types.Int(), uint64(e.rnd.IntIn(0, 255)))
	*x = &ir.ConstExpr{V: fallback}
	return fallback
}

// rebuild replaces the offending operand of a UB site with a construct that
// is defined by construction: nonzero divisors, in-range shift amounts, and
// unsigned wraparound instead of signed overflow.
func (e *Engine) rebuild(site *ubSite) {
	u64 := types.IntType{Size: types.I64, Sign: types.Unsigned}
	switch site.kind {
	case value.UBDivZero, value.UBModZero:
		site.bin.R = &ir.ConstExpr{V: value.New(types.Int(), uint64(e.rnd.IntIn(1, 16)))}
	case value.UBShiftOut:
		site.bin.L = &ir.CastExpr{To: types.UInt(), E: site.bin.L}
		site.bin.R = &ir.ConstExpr{V: value.New(types.Int(), uint64(e.rnd.IntIn(0, 7)))}
	case value.UBSignedOvf:
		if site.un != nil {
			site.un.E = &ir.CastExpr{To: u64, E: site.un.E}
			return
		}
		site.bin.L = &ir.CastExpr{To: u64, E: site.bin.L}
		site.bin.R = &ir.CastExpr{To: u64, E: site.bin.R}
	default:
		panic("populate: rebuild of a defined expression")
	}
}

// genArith builds a random expression over in-scope, live, type-compatible
// operands. It never returns nil: a constant leaf is always available.
func (e *Engine) genArith(ctx popCtx, depth int) ir.Expr {
	if depth <= 0 || e.rnd.Flip(35) {
		return e.genLeaf(ctx)
	}
	switch roll := e.rnd.IntIn(0, 99); {
	case roll < 70:
		op := value.BinOp(e.rnd.IntIn(0, int(value.MaxBinOp)-1))
		return &ir.BinaryExpr{
			Op: op,
			L:  e.genArith(ctx, depth-1),
			R:  e.genArith(ctx, depth-1),
		}
	case roll < 90:
		op := value.UnOp(e.rnd.IntIn(0, int(value.MaxUnOp)-1))
		return &ir.UnaryExpr{Op: op, E: e.genArith(ctx, depth-1)}
	default:
		return &ir.CastExpr{To: e.randScalarType(), E: e.genArith(ctx, depth-1)}
	}
}

func (e *Engine) genLeaf(ctx popCtx) ir.Expr {
	vars := e.reg.LiveInputVars()
	arrays := e.eligibleArrays(ctx)
	total := len(vars) + len(arrays)
	if total == 0 || e.rnd.Flip(25) {
		t := e.randScalarType()
		return &ir.ConstExpr{V: e.randValue(t)}
	}
	pick := e.rnd.IntIn(0, total-1)
	if pick < len(vars) {
		return &ir.VarUse{Var: vars[pick]}
	}
	arr := arrays[pick-len(vars)]
	return &ir.ArrayUse{Arr: arr, Idx: copyIters(ctx.iters)}
}

func copyIters(iters []*ir.Iterator) []*ir.Iterator {
	out := make([]*ir.Iterator, len(iters))
	copy(out, iters)
	return out
}

// eligibleArrays returns input arrays readable in this context: shaped
// exactly to the active iteration space, and either single-track or tracked
// on the context's own selecting axis. Anything else would not be
// loop-invariant and is skipped.
func (e *Engine) eligibleArrays(ctx popCtx) []*symbols.Array {
	if len(ctx.iters) == 0 {
		return nil
	}
	var out []*symbols.Array
	for _, a := range e.reg.Input.Arrays() {
		if a.Dead || !dimsEqual(a.Type.Dims, ctx.dims) {
			continue
		}
		if a.TrackAxis >= 0 && !(ctx.allowMul && a.TrackAxis == ctx.mulPos) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// dimsUsable reports whether an iteration space can shape an array: a
// degenerate loop contributes a zero extent no array can carry.
func dimsUsable(dims []int) bool {
	for _, d := range dims {
		if d <= 0 {
			return false
		}
	}
	return true
}

func dimsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// genExprStmt produces one populated statement for a structural leaf, or
// nil when no viable target exists.
func (e *Engine) genExprStmt(ctx popCtx) ir.Stmt {
	if len(e.funcs) > 0 && e.rnd.Flip(e.pol.ExtCallPct) {
		return e.genCallStmt(ctx)
	}

	if len(ctx.iters) > 0 && len(ctx.dims) <= e.pol.ArrayDimsMax &&
		dimsUsable(ctx.dims) && e.rnd.Flip(50) {
		return e.genArrayAssign(ctx)
	}
	return e.genScalarAssign(ctx)
}

func (e *Engine) genScalarAssign(ctx popCtx) ir.Stmt {
	target := e.pickOutputVar(ctx)

	rhs := e.genArith(ctx, e.pol.MaxArithDepth)
	mainV := e.settle(&rhs, ctx).Cast(target.Type)
	altV := mainV
	if ctx.allowMul {
		raw, site := e.eval(rhs, true)
		if site != nil {
			panic("populate: settled expression re-raised UB")
		}
		altV = raw.Cast(target.Type)
	}

	if ctx.taken {
		target.Cur = e.finalScalarValue(ctx, mainV, altV)
	}
	return &ir.ExprStmt{E: &ir.AssignExpr{Target: &ir.VarUse{Var: target}, RHS: rhs}}
}

// finalScalarValue resolves which track a scalar holds after the loop
// finishes: the value written on the last iteration of the track-selecting
// axis.
func (e *Engine) finalScalarValue(ctx popCtx, mainV, altV value.Value) value.Value {
	if !ctx.allowMul || mainV == altV {
		return mainV
	}
	last := ctx.dims[ctx.mulPos] - 1
	if last%e.pol.ValsNumber == e.pol.MainValIdx {
		return mainV
	}
	return altV
}

func (e *Engine) pickOutputVar(ctx popCtx) *symbols.Variable {
	existing := e.reg.LiveOutputVars()
	if len(existing) > 0 && !e.rnd.Flip(e.pol.NewOutVarPct) {
		return existing[e.rnd.IntIn(0, len(existing)-1)]
	}
	return e.newOutputVar()
}

func (e *Engine) newOutputVar() *symbols.Variable {
	kind := e.randOutputKind()
	t := e.randScalarType()
	init := e.randValue(t)
	v := &symbols.Variable{
		Name: e.reg.NextVarName(),
		Type: t,
		Init: init,
		Cur:  init,
		Kind: kind,
	}
	if kind == symbols.KindNormal {
		// Outputs are written, so the read-only modifiers are out.
		for {
			v.Mod = rng.Choose(e.rnd, e.modTab)
			if v.Mod != symbols.ModConst && v.Mod != symbols.ModConstexpr {
				break
			}
		}
	} else {
		v.Mod = rng.Choose(e.rnd, e.mbrModTab)
	}
	e.reg.Output.AddVar(v)
	return v
}

// randOutputKind draws a placement for an output scalar. Pointers stay on
// the input side, and private class members are read-only through their
// accessors, so neither can be written.
func (e *Engine) randOutputKind() symbols.VarKind {
	for {
		k := rng.Choose(e.rnd, e.kindTab)
		if k != symbols.KindPointer && k != symbols.KindClassPrivMbr {
			return k
		}
	}
}

func (e *Engine) genArrayAssign(ctx popCtx) ir.Stmt {
	target := e.pickOutputArray(ctx)

	rhs := e.genArith(ctx, e.pol.MaxArithDepth)
	mainV := e.settle(&rhs, ctx).Cast(target.Type.Base)
	altV := mainV
	if ctx.allowMul {
		raw, site := e.eval(rhs, true)
		if site != nil {
			panic("populate: settled expression re-raised UB")
		}
		altV = raw.Cast(target.Type.Base)
	}

	if ctx.taken {
		target.CurMain = mainV
		target.CurAlt = altV
	}
	use := &ir.ArrayUse{Arr: target, Idx: copyIters(ctx.iters)}
	return &ir.ExprStmt{E: &ir.AssignExpr{Target: use, RHS: rhs}}
}

func (e *Engine) pickOutputArray(ctx popCtx) *symbols.Array {
	var reusable []*symbols.Array
	for _, a := range e.reg.Output.Arrays() {
		if a.Dead || !dimsEqual(a.Type.Dims, ctx.dims) {
			continue
		}
		if ctx.allowMul != (a.TrackAxis >= 0) {
			continue
		}
		if a.TrackAxis >= 0 && a.TrackAxis != ctx.mulPos {
			continue
		}
		reusable = append(reusable, a)
	}
	if len(reusable) > 0 && !e.rnd.Flip(e.pol.NewOutVarPct) {
		return reusable[e.rnd.IntIn(0, len(reusable)-1)]
	}

	t := e.randScalarType()
	arr := &symbols.Array{
		Name:      e.reg.NextArrName(),
		Type:      types.NewArray(t, ctx.dims),
		Kind:      e.randArrayKind(),
		TrackAxis: -1,
	}
	arr.InitMain = e.randValue(t)
	arr.InitAlt = arr.InitMain
	if ctx.allowMul {
		arr.TrackAxis = ctx.mulPos
		arr.InitAlt = e.randValue(t)
	}
	arr.CurMain, arr.CurAlt = arr.InitMain, arr.InitAlt
	arr.Alignment = e.randAlignment()
	e.reg.Output.AddArray(arr)
	return arr
}

// genCallStmt splices a call to a vetted external function. The documented
// output is taken verbatim as the new current value; the body is opaque to
// the abstract interpreter.
func (e *Engine) genCallStmt(ctx popCtx) ir.Stmt {
	f := &e.funcs[e.rnd.IntIn(0, len(e.funcs)-1)]
	ret, ok := funcspec.MapType(f.ReturnType)
	if !ok {
		return nil
	}
	outV := f.OutputValue()

	init := e.randValue(ret)
	out := &symbols.Variable{
		Name: e.reg.NextVarName(),
		Type: ret,
		Init: init,
		Cur:  init,
		Kind: symbols.KindNormal,
	}
	e.reg.Output.AddVar(out)

	if !e.usedSeen[f.Name] {
		e.usedSeen[f.Name] = true
		e.used = append(e.used, f)
	}
	if ctx.taken {
		out.Cur = outV
	}
	call := &ir.CallExpr{Name: f.Name, Args: append([]string(nil), f.Inputs...), Ret: ret, V: outV}
	return &ir.ExprStmt{E: &ir.AssignExpr{Target: &ir.VarUse{Var: out}, RHS: call}}
}
