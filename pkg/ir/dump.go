package ir

import (
	"fmt"
	"io"
	"strings"
)

// DumpStructure writes the shape of the tree without its content, one line
// per structural node. Usable both before and after population.
func DumpStructure(w io.Writer, scope *ScopeStmt) {
	dumpScope(w, scope, 0)
}

func dumpScope(w io.Writer, scope *ScopeStmt, depth int) {
	pad := strings.Repeat("  ", depth)
	fmt.Fprintf(w, "%sscope (%d stmts)\n", pad, len(scope.Stmts))
	for _, s := range scope.Stmts {
		switch st := s.(type) {
		case *StubStmt:
			fmt.Fprintf(w, "%s  stub\n", pad)
		case *ExprStmt:
			fmt.Fprintf(w, "%s  expr\n", pad)
		case *IfElseStmt:
			fmt.Fprintf(w, "%s  if-else (else: %v)\n", pad, st.Else != nil)
			dumpScope(w, st.Then, depth+2)
			if st.Else != nil {
				dumpScope(w, st.Else, depth+2)
			}
		case *LoopSeqStmt:
			fmt.Fprintf(w, "%s  loop-seq (%d loops)\n", pad, len(st.Loops))
			for _, l := range st.Loops {
				dumpScope(w, l.Body, depth+2)
			}
		case *LoopNestStmt:
			fmt.Fprintf(w, "%s  loop-nest (depth %d)\n", pad, st.Depth)
			dumpScope(w, st.Body, depth+2)
		case *ScopeStmt:
			dumpScope(w, st, depth+1)
		}
	}
}
