// Package populate walks a content-free scope skeleton and fills it with
// declarations, assignments, pointer operations, and external calls, while
// abstractly interpreting every expression it inserts. When population
// finishes, every output entity's current value is exactly what the emitted
// program will compute under a correct compiler.
//
// Right-hand sides read only input entities, which are never written, so
// every generated expression is loop-invariant apart from multi-track array
// reads; a single abstract evaluation per track is therefore exact for
// every runtime iteration.
package populate

import (
	"progen/pkg/funcspec"
	"progen/pkg/ir"
	"progen/pkg/policy"
	"progen/pkg/rng"
	"progen/pkg/symbols"
	"progen/pkg/tracker"
	"progen/pkg/types"
	"progen/pkg/value"
)

// Engine performs the population pass for one program
type Engine struct {
	pol   *policy.Policy
	rnd   *rng.Source
	reg   *symbols.Registry
	trk   *tracker.Tracker
	funcs []funcspec.Function

	kindTab   []rng.Prob[symbols.VarKind]
	ownTab    []rng.Prob[symbols.Ownership]
	modTab    []rng.Prob[symbols.DeclMod]
	mbrModTab []rng.Prob[symbols.DeclMod]
	iterTab   []rng.Prob[types.IntType]

	used     []*funcspec.Function
	usedSeen map[string]bool
}

// popCtx carries the population state that changes with nesting
type popCtx struct {
	iters    []*ir.Iterator
	dims     []int
	taken    bool
	allowMul bool
	mulPos   int // position of the track-selecting iterator, -1 when none
}

// NewEngine creates a population engine over the shared random source
func NewEngine(pol *policy.Policy, rnd *rng.Source, reg *symbols.Registry,
	trk *tracker.Tracker, funcs []funcspec.Function) *Engine {
	return &Engine{
		pol:   pol,
		rnd:   rnd,
		reg:   reg,
		trk:   trk,
		funcs: funcs,
		kindTab: []rng.Prob[symbols.VarKind]{
			{ID: symbols.KindNormal, Weight: pol.WeightKindNormal},
			{ID: symbols.KindStructMbr, Weight: pol.WeightKindStructMbr},
			{ID: symbols.KindClassMbr, Weight: pol.WeightKindClassMbr},
			{ID: symbols.KindClassPrivMbr, Weight: pol.WeightKindClassPriv},
			{ID: symbols.KindDynStructMbr, Weight: pol.WeightKindDynStruct},
			{ID: symbols.KindDynClassMbr, Weight: pol.WeightKindDynClass},
			{ID: symbols.KindPointer, Weight: pol.WeightKindPointer},
		},
		ownTab: []rng.Prob[symbols.Ownership]{
			{ID: symbols.OwnExclusive, Weight: pol.WeightOwnExclusive},
			{ID: symbols.OwnShared, Weight: pol.WeightOwnShared},
			{ID: symbols.OwnUnique, Weight: pol.WeightOwnUnique},
		},
		modTab: []rng.Prob[symbols.DeclMod]{
			{ID: symbols.ModNone, Weight: pol.WeightModNone},
			{ID: symbols.ModStatic, Weight: pol.WeightModStatic},
			{ID: symbols.ModThreadLocal, Weight: pol.WeightModThreadLocal},
			{ID: symbols.ModConst, Weight: pol.WeightModConst},
			{ID: symbols.ModConstexpr, Weight: pol.WeightModConstexpr},
			{ID: symbols.ModAlign8, Weight: pol.WeightModAlign8},
			{ID: symbols.ModAlign16, Weight: pol.WeightModAlign16},
		},
		// Aggregate members take only alignment modifiers.
		mbrModTab: []rng.Prob[symbols.DeclMod]{
			{ID: symbols.ModNone, Weight: pol.WeightModNone},
			{ID: symbols.ModAlign8, Weight: pol.WeightModAlign8},
			{ID: symbols.ModAlign16, Weight: pol.WeightModAlign16},
		},
		iterTab: []rng.Prob[types.IntType]{
			{ID: types.Int(), Weight: 70},
			{ID: types.IntType{Size: types.I64, Sign: types.Signed}, Weight: 30},
		},
		usedSeen: make(map[string]bool),
	}
}

// UsedFunctions returns the external functions actually spliced into the
// program, in first-use order.
func (e *Engine) UsedFunctions() []*funcspec.Function { return e.used }

// Run populates the tree: input entities first, then every statement.
func (e *Engine) Run(tree *ir.ScopeStmt) error {
	n := e.rnd.IntIn(e.pol.MinInpVars, e.pol.MaxInpVars)
	for i := 0; i < n; i++ {
		if err := e.createInputVar(); err != nil {
			return err
		}
	}

	e.populateScope(tree, popCtx{taken: true, mulPos: -1})

	// An input the program can read but the compiler cannot see through:
	// its value is only known at link time of the harness's choosing.
	zero := &symbols.Variable{
		Name: "zero",
		Type: types.Int(),
		Init: value.New(types.Int(), 0),
		Cur:  value.New(types.Int(), 0),
		Kind: symbols.KindNormal,
	}
	e.reg.Input.AddVar(zero)
	return nil
}

func (e *Engine) createInputVar() error {
	kind := rng.Choose(e.rnd, e.kindTab)
	t := e.randScalarType()
	init := e.randValue(t)
	v := &symbols.Variable{
		Type: t,
		Init: init,
		Cur:  init,
		Kind: kind,
	}
	switch kind {
	case symbols.KindPointer:
		v.Name = e.reg.NextPtrName()
		v.Own = rng.Choose(e.rnd, e.ownTab)
		v.PassedAsParam = true
		if err := e.trk.RecordAlloc(v.Name, v.Own); err != nil {
			return err
		}
	case symbols.KindNormal:
		v.Name = e.reg.NextVarName()
		v.Mod = rng.Choose(e.rnd, e.modTab)
		v.Dead = e.pol.AllowDeadData && e.rnd.Flip(e.pol.DeadVarPct)
		if v.Dead {
			// A dead slot's value is deliberately unspecified: it is
			// declared and initialized but its current value must never
			// feed an expression, and reading it panics.
			v.Cur = value.Undefined(t)
		}
		v.PassedAsParam = !v.Dead && v.Mod == symbols.ModNone &&
			e.rnd.Flip(e.pol.PassAsParamPct)
	default:
		v.Name = e.reg.NextVarName()
		v.Mod = rng.Choose(e.rnd, e.mbrModTab)
	}
	e.reg.Input.AddVar(v)
	return nil
}

func (e *Engine) randScalarType() types.IntType {
	all := types.ScalarTypes()
	return all[e.rnd.IntIn(0, len(all)-1)]
}

func (e *Engine) randValue(t types.IntType) value.Value {
	return value.New(t, e.rnd.Uint64())
}

func (e *Engine) populateScope(scope *ir.ScopeStmt, ctx popCtx) {
	out := scope.Stmts[:0]
	for _, s := range scope.Stmts {
		switch st := s.(type) {
		case *ir.StubStmt:
			if gen := e.genExprStmt(ctx); gen != nil {
				out = append(out, gen)
			}
			// No viable operands: the optional statement is skipped,
			// never emitted malformed.
		case *ir.IfElseStmt:
			e.populateIfElse(st, ctx)
			out = append(out, st)
		case *ir.LoopSeqStmt:
			e.populateLoopSeq(st, ctx)
			out = append(out, st)
		case *ir.LoopNestStmt:
			e.populateLoopNest(st, ctx)
			out = append(out, st)
		case *ir.ScopeStmt:
			e.populateScope(st, ctx)
			out = append(out, st)
		default:
			out = append(out, s)
		}
	}
	scope.Stmts = out
}

func (e *Engine) populateIfElse(stmt *ir.IfElseStmt, ctx popCtx) {
	// Branch conditions never read multi-track data: a condition that
	// diverged between tracks would make takenness itself track-dependent.
	condCtx := ctx
	condCtx.allowMul = false
	cond := e.genArith(condCtx, e.pol.MaxArithDepth)
	if cond == nil {
		cond = &ir.ConstExpr{V: value.New(types.Bool(), 1)}
	}
	v := e.settle(&cond, condCtx)
	if v.Typ.Size != types.IBool {
		cond = &ir.CastExpr{To: types.Bool(), E: cond}
		v = v.Cast(types.Bool())
	}
	stmt.Cond = cond
	stmt.Taken = v.Bool()

	thenCtx := ctx
	thenCtx.taken = ctx.taken && stmt.Taken
	e.populateScope(stmt.Then, thenCtx)
	if stmt.Else != nil {
		elseCtx := ctx
		elseCtx.taken = ctx.taken && !stmt.Taken
		e.populateScope(stmt.Else, elseCtx)
	}
}

func (e *Engine) populateLoopSeq(stmt *ir.LoopSeqStmt, ctx popCtx) {
	for _, loop := range stmt.Loops {
		inner := ctx
		loop.Head = e.newIterator()
		inner.iters = appendIter(ctx.iters, loop.Head)
		inner.dims = appendDim(ctx.dims, loop.Head.End)
		if loop.Head.Degenerate {
			inner.taken = false
		}
		e.rollMulVals(&inner, loop.Head)
		e.createLoopArrays(inner)
		e.populateScope(loop.Body, inner)
	}
}

func (e *Engine) populateLoopNest(stmt *ir.LoopNestStmt, ctx popCtx) {
	inner := ctx
	for i := 0; i < stmt.Depth; i++ {
		it := e.newIterator()
		stmt.Iters = append(stmt.Iters, it)
		inner.iters = appendIter(inner.iters, it)
		inner.dims = appendDim(inner.dims, it.End)
		if it.Degenerate {
			inner.taken = false
		}
		e.rollMulVals(&inner, it)
	}
	e.createLoopArrays(inner)
	e.populateScope(stmt.Body, inner)
}

// appendIter copies on append so sibling contexts never share backing arrays
func appendIter(iters []*ir.Iterator, it *ir.Iterator) []*ir.Iterator {
	out := make([]*ir.Iterator, 0, len(iters)+1)
	out = append(out, iters...)
	return append(out, it)
}

func appendDim(dims []int, d int) []int {
	out := make([]int, 0, len(dims)+1)
	out = append(out, dims...)
	return append(out, d)
}

func (e *Engine) newIterator() *ir.Iterator {
	it := &ir.Iterator{
		Name: e.reg.NextIterName(),
		Type: rng.Choose(e.rnd, e.iterTab),
		Step: 1,
	}
	if e.rnd.Flip(e.pol.DegenLoopPct) {
		it.Degenerate = true
		return it
	}
	it.End = e.rnd.IntIn(e.pol.IterEndMin, e.pol.IterEndMax)
	return it
}

// rollMulVals decides whether this loop level selects between the two value
// tracks. At most one level per nesting chain does.
func (e *Engine) rollMulVals(ctx *popCtx, it *ir.Iterator) {
	if ctx.allowMul || e.pol.ValsNumber < 2 || it.Degenerate {
		return
	}
	if e.rnd.Flip(e.pol.MulValsPct) {
		ctx.allowMul = true
		ctx.mulPos = len(ctx.iters) - 1
	}
}

// createLoopArrays declares fresh input arrays shaped to the active
// iteration space, so every element access through the iterators is in
// bounds by construction.
func (e *Engine) createLoopArrays(ctx popCtx) {
	if len(ctx.dims) == 0 || len(ctx.dims) > e.pol.ArrayDimsMax || !dimsUsable(ctx.dims) {
		return
	}
	n := e.rnd.IntIn(0, e.pol.NewArraysMax)
	for i := 0; i < n; i++ {
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
		arr.PassedAsParam = arr.Kind == symbols.KindNormal &&
			e.rnd.Flip(e.pol.PassAsParamPct)
		e.reg.Input.AddArray(arr)
	}
}

// randAlignment draws an over-alignment for an array, zero for natural
// alignment.
func (e *Engine) randAlignment() int {
	if len(e.pol.AlignSizes) == 0 || !e.rnd.Flip(20) {
		return 0
	}
	return e.pol.AlignSizes[e.rnd.IntIn(0, len(e.pol.AlignSizes)-1)]
}

// randArrayKind draws a placement for an array; pointers never hold arrays
func (e *Engine) randArrayKind() symbols.VarKind {
	for {
		k := rng.Choose(e.rnd, e.kindTab)
		if k != symbols.KindPointer && k != symbols.KindClassPrivMbr {
			return k
		}
	}
}
