package structure

import (
	"bytes"
	"testing"

	"progen/pkg/ir"
	"progen/pkg/policy"
	"progen/pkg/rng"
)

func TestBudgetRespected(t *testing.T) {
	pol := policy.Default()
	for seed := uint64(1); seed <= 50; seed++ {
		b := NewBuilder(&pol, rng.New(seed))
		b.Build()
		if got := b.StmtCount(); got > pol.StmtNumLimit {
			t.Fatalf("seed %d: %d statements over budget %d", seed, got, pol.StmtNumLimit)
		}
	}
}

func TestSameSeedSameSkeleton(t *testing.T) {
	pol := policy.Default()
	var a, b bytes.Buffer
	ir.DumpStructure(&a, NewBuilder(&pol, rng.New(9)).Build())
	ir.DumpStructure(&b, NewBuilder(&pol, rng.New(9)).Build())
	if a.String() != b.String() {
		t.Fatal("two builds from the same seed produced different skeletons")
	}
}

func TestDepthLimits(t *testing.T) {
	pol := policy.Default()
	pol.StmtNumLimit = 200
	for seed := uint64(1); seed <= 20; seed++ {
		tree := NewBuilder(&pol, rng.New(seed)).Build()
		checkDepth(t, tree, 0, 0, &pol)
	}
}

func checkDepth(t *testing.T, scope *ir.ScopeStmt, loopDepth, ifDepth int, pol *policy.Policy) {
	t.Helper()
	if loopDepth > pol.LoopDepthLimit {
		t.Fatalf("loop nesting %d exceeds limit %d", loopDepth, pol.LoopDepthLimit)
	}
	if ifDepth > pol.IfElseDepthLimit {
		t.Fatalf("branch nesting %d exceeds limit %d", ifDepth, pol.IfElseDepthLimit)
	}
	for _, s := range scope.Stmts {
		switch st := s.(type) {
		case *ir.LoopSeqStmt:
			for _, l := range st.Loops {
				checkDepth(t, l.Body, loopDepth+1, ifDepth, pol)
			}
		case *ir.LoopNestStmt:
			checkDepth(t, st.Body, loopDepth+st.Depth, ifDepth, pol)
		case *ir.IfElseStmt:
			checkDepth(t, st.Then, loopDepth, ifDepth+1, pol)
			if st.Else != nil {
				checkDepth(t, st.Else, loopDepth, ifDepth+1, pol)
			}
		case *ir.ScopeStmt:
			checkDepth(t, st, loopDepth, ifDepth, pol)
		}
	}
}

func TestOnlyStubLeaves(t *testing.T) {
	pol := policy.Default()
	tree := NewBuilder(&pol, rng.New(3)).Build()
	var walk func(*ir.ScopeStmt)
	walk = func(scope *ir.ScopeStmt) {
		for _, s := range scope.Stmts {
			switch st := s.(type) {
			case *ir.StubStmt:
			case *ir.LoopSeqStmt:
				for _, l := range st.Loops {
					walk(l.Body)
				}
			case *ir.LoopNestStmt:
				walk(st.Body)
			case *ir.IfElseStmt:
				walk(st.Then)
				if st.Else != nil {
					walk(st.Else)
				}
			case *ir.ScopeStmt:
				walk(st)
			default:
				t.Fatalf("skeleton contains populated node %T", s)
			}
		}
	}
	walk(tree)
}
