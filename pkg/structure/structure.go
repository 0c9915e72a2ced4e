// Package structure builds the control-flow skeleton of a program: nested
// scopes, branch shapes, and loop shapes, with no semantic content. Keeping
// this separate from population lets structural properties be tuned and
// reproduced independently of what the leaves compute.
package structure

import (
	"progen/pkg/ir"
	"progen/pkg/policy"
	"progen/pkg/rng"
)

type stmtKind int

const (
	kindExpr stmtKind = iota
	kindLoopSeq
	kindLoopNest
	kindIfElse
)

// Builder produces scope-tree skeletons under a statement budget
type Builder struct {
	pol       *policy.Policy
	rnd       *rng.Source
	stmtCount int
	kinds     []rng.Prob[stmtKind]
}

type genCtx struct {
	loopDepth int
	ifDepth   int
}

// NewBuilder creates a skeleton builder over the shared random source
func NewBuilder(pol *policy.Policy, rnd *rng.Source) *Builder {
	return &Builder{
		pol: pol,
		rnd: rnd,
		kinds: []rng.Prob[stmtKind]{
			{ID: kindExpr, Weight: pol.WeightExpr},
			{ID: kindLoopSeq, Weight: pol.WeightLoopSeq},
			{ID: kindLoopNest, Weight: pol.WeightLoopNest},
			{ID: kindIfElse, Weight: pol.WeightIfElse},
		},
	}
}

// Build generates the top-level scope skeleton. The result is fully shaped
// and content-free: every leaf is a stub awaiting population.
func (b *Builder) Build() *ir.ScopeStmt {
	return b.genScope(genCtx{})
}

// StmtCount reports how much of the statement budget the skeleton consumed
func (b *Builder) StmtCount() int { return b.stmtCount }

func (b *Builder) genScope(ctx genCtx) *ir.ScopeStmt {
	scope := &ir.ScopeStmt{}
	n := b.rnd.IntIn(b.pol.ScopeStmtMin, b.pol.ScopeStmtMax)
	for i := 0; i < n; i++ {
		kind := rng.Choose(b.rnd, b.kinds)

		// Budget checks mirror the cost of each construct: a loop
		// sequence or branch adds at least two statements, a nest at
		// least three.
		exhausted := b.stmtCount+1 >= b.pol.StmtNumLimit
		exhausted = exhausted || ((kind == kindLoopSeq || kind == kindIfElse) &&
			b.stmtCount+2 >= b.pol.StmtNumLimit)
		exhausted = exhausted || (kind == kindLoopNest &&
			b.stmtCount+3 >= b.pol.StmtNumLimit)
		if exhausted {
			break
		}

		var stmt ir.Stmt
		switch {
		case kind == kindLoopSeq && ctx.loopDepth < b.pol.LoopDepthLimit:
			stmt = b.genLoopSeq(ctx)
		case kind == kindLoopNest && ctx.loopDepth+2 <= b.pol.LoopDepthLimit:
			stmt = b.genLoopNest(ctx)
		case kind == kindIfElse && ctx.ifDepth+1 <= b.pol.IfElseDepthLimit:
			stmt = b.genIfElse(ctx)
		default:
			stmt = &ir.StubStmt{}
			b.stmtCount++
		}
		scope.Stmts = append(scope.Stmts, stmt)
	}
	return scope
}

func (b *Builder) genLoopSeq(ctx genCtx) *ir.LoopSeqStmt {
	loopNum := b.rnd.IntIn(1, b.pol.LoopSeqMax)
	seq := &ir.LoopSeqStmt{}
	inner := ctx
	inner.loopDepth++
	for i := 0; i < loopNum; i++ {
		seq.Loops = append(seq.Loops, &ir.Loop{Body: b.genScope(inner)})
	}
	b.stmtCount += loopNum
	return seq
}

func (b *Builder) genLoopNest(ctx genCtx) *ir.LoopNestStmt {
	depth := 2
	if b.pol.LoopNestDepthMax > 2 {
		depth = b.rnd.IntIn(2, b.pol.LoopNestDepthMax)
	}
	if room := b.pol.LoopDepthLimit - ctx.loopDepth; depth > room {
		depth = room
	}
	inner := ctx
	inner.loopDepth += depth
	b.stmtCount += depth
	return &ir.LoopNestStmt{Depth: depth, Body: b.genScope(inner)}
}

func (b *Builder) genIfElse(ctx genCtx) *ir.IfElseStmt {
	inner := ctx
	inner.ifDepth++
	stmt := &ir.IfElseStmt{Then: b.genScope(inner)}
	if b.rnd.Flip(b.pol.ElseBranchPct) {
		stmt.Else = b.genScope(inner)
	}
	b.stmtCount++
	return stmt
}
