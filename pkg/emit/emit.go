// Package emit renders a generated program as a single self-contained C++
// translation unit. The emitted source and the generator's abstract
// interpretation must agree on every value: the checksum printed at runtime
// under a correct compiler equals the one computed ahead of time.
package emit

import (
	"fmt"
	"io"
	"strings"

	"progen/pkg/generator"
	"progen/pkg/policy"
	"progen/pkg/symbols"
)

// Printer writes C++ source for one program
type Printer struct {
	w      io.Writer
	indent int
	prog   *generator.Program
}

// NewPrinter creates a printer over the given writer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) writeIndent() {
	fmt.Fprint(p.w, strings.Repeat("    ", p.indent))
}

func (p *Printer) line(format string, args ...any) {
	p.writeIndent()
	fmt.Fprintf(p.w, format, args...)
	fmt.Fprintln(p.w)
}

func (p *Printer) blank() { fmt.Fprintln(p.w) }

// PrintProgram writes the complete translation unit
func (p *Printer) PrintProgram(prog *generator.Program) {
	p.prog = prog

	p.printHeader()
	p.printIncludes()
	p.printCheckHelpers()
	p.printExternalFunctions()
	p.printAggregates()
	p.printDeclarations()
	p.printInit()
	p.printChecksum()
	p.printTest()
	p.printRelease()
	p.printMain()
}

func (p *Printer) printHeader() {
	pol := p.prog.Pol
	p.line("/*")
	p.line(" * This test program was generated automatically.")
	p.line(" * Seed: %d", p.prog.Seed)
	p.line(" * Checking: %s", pol.CheckAlgo)
	p.line(" * Values per entity: %d (main index %d)", pol.ValsNumber, pol.MainValIdx)
	p.line(" * Statements: %d", p.prog.StmtCount)
	p.line(" */")
	p.blank()
}

func (p *Printer) printIncludes() {
	p.line("#include <stdio.h>")
	for _, v := range p.prog.Reg.Input.VarsByKind(symbols.KindPointer) {
		if v.Own == symbols.OwnShared || v.Own == symbols.OwnUnique {
			p.line("#include <memory>")
			break
		}
	}
	p.blank()
}

func (p *Printer) printCheckHelpers() {
	if p.prog.Pol.CheckAlgo == policy.Asserts {
		p.line("bool value_mismatch = false;")
		p.blank()
		return
	}
	p.line("unsigned long long int seed = 0ULL;")
	p.line("void hash(unsigned long long int *seed, unsigned long long int const v) {")
	p.line("    *seed ^= v + 0x9e3779b9 + ((*seed)<<6) + ((*seed)>>2);")
	p.line("}")
	p.blank()
}

func (p *Printer) printExternalFunctions() {
	for _, f := range p.prog.UsedFuncs {
		for _, m := range f.Misc {
			p.line("%s", m)
		}
		p.line("%s", strings.TrimRight(f.Body, "\n"))
		p.blank()
	}
}

// printAggregates emits the four aggregate type definitions, omitting any
// that ended up with no members.
func (p *Printer) printAggregates() {
	p.printStructDef(symbols.StaticStructType, symbols.KindStructMbr)
	p.printStructDef(symbols.DynStructTypeName, symbols.KindDynStructMbr)
	p.printGlobalClass()
	p.printDynamicClass()
}

func (p *Printer) members(kind symbols.VarKind) ([]*symbols.Variable, []*symbols.Array) {
	reg := p.prog.Reg
	vars := append([]*symbols.Variable{}, reg.Input.VarsByKind(kind)...)
	vars = append(vars, reg.Output.VarsByKind(kind)...)
	arrays := append([]*symbols.Array{}, reg.Input.ArraysByKind(kind)...)
	arrays = append(arrays, reg.Output.ArraysByKind(kind)...)
	return vars, arrays
}

func (p *Printer) printStructDef(typeName string, kind symbols.VarKind) {
	vars, arrays := p.members(kind)
	if len(vars)+len(arrays) == 0 {
		return
	}
	p.line("struct %s {", typeName)
	p.indent++
	for _, v := range vars {
		p.line("%s%s %s;", v.Mod.Prefix(), v.Type.Name(), v.Name)
	}
	for _, a := range arrays {
		p.line("%s%s %s%s;", alignPrefix(a.Alignment), a.Type.Base.Name(), a.Name, dimsSuffix(a.Type.Dims))
	}
	p.indent--
	p.line("};")
	p.blank()
}

func (p *Printer) printGlobalClass() {
	pubVars, pubArrays := p.members(symbols.KindClassMbr)
	privVars, _ := p.members(symbols.KindClassPrivMbr)
	if len(pubVars)+len(pubArrays)+len(privVars) == 0 {
		return
	}
	p.line("class %s {", symbols.StaticClassType)
	p.line("public:")
	p.indent++
	for _, v := range pubVars {
		p.line("%s%s %s;", v.Mod.Prefix(), v.Type.Name(), v.Name)
	}
	for _, a := range pubArrays {
		p.line("%s%s %s%s;", alignPrefix(a.Alignment), a.Type.Base.Name(), a.Name, dimsSuffix(a.Type.Dims))
	}
	for _, v := range privVars {
		p.line("%s get_%s() { return %s; }", v.Type.Name(), v.Name, v.Name)
	}
	p.indent--
	if len(privVars) > 0 {
		p.line("private:")
		p.indent++
		for _, v := range privVars {
			p.line("%s%s %s = %s;", v.Mod.Prefix(), v.Type.Name(), v.Name, declLiteral(v.Init))
		}
		p.indent--
	}
	p.line("};")
	p.blank()
}

// printDynamicClass emits a class whose members initialize in the
// constructor. Those members deliberately stay out of init() and the
// checksum.
func (p *Printer) printDynamicClass() {
	vars, arrays := p.members(symbols.KindDynClassMbr)
	if len(vars)+len(arrays) == 0 {
		return
	}
	p.line("class %s {", symbols.DynClassTypeName)
	p.line("public:")
	p.indent++
	p.writeIndent()
	fmt.Fprintf(p.w, "%s()", symbols.DynClassTypeName)
	for i, v := range vars {
		if i == 0 {
			fmt.Fprint(p.w, " : ")
		} else {
			fmt.Fprint(p.w, ", ")
		}
		fmt.Fprintf(p.w, "%s(%s)", v.Name, declLiteral(v.Init))
	}
	fmt.Fprintln(p.w, " {")
	p.indent++
	for _, a := range arrays {
		p.printArrayFill(a, a.Name)
	}
	p.indent--
	p.line("}")
	for _, v := range vars {
		p.line("%s%s %s;", v.Mod.Prefix(), v.Type.Name(), v.Name)
	}
	for _, a := range arrays {
		p.line("%s%s %s%s;", alignPrefix(a.Alignment), a.Type.Base.Name(), a.Name, dimsSuffix(a.Type.Dims))
	}
	p.indent--
	p.line("};")
	p.blank()
}

// printDeclarations emits every free-standing global: scalars with their
// initializers, pointers with their allocations, arrays uninitialized until
// init() fills them.
func (p *Printer) printDeclarations() {
	reg := p.prog.Reg
	vars, arrays := p.members(symbols.KindStructMbr)
	if len(vars)+len(arrays) > 0 {
		p.line("%s %s;", symbols.StaticStructType, symbols.StaticStructName)
	}
	vars, arrays = p.members(symbols.KindDynStructMbr)
	if len(vars)+len(arrays) > 0 {
		p.line("%s * %s = new %s;", symbols.DynStructTypeName, symbols.DynStructName, symbols.DynStructTypeName)
	}
	pubVars, pubArrays := p.members(symbols.KindClassMbr)
	privVars, _ := p.members(symbols.KindClassPrivMbr)
	if len(pubVars)+len(pubArrays)+len(privVars) > 0 {
		p.line("%s %s;", symbols.StaticClassType, symbols.StaticClassName)
	}
	vars, arrays = p.members(symbols.KindDynClassMbr)
	if len(vars)+len(arrays) > 0 {
		p.line("%s * %s = new %s();", symbols.DynClassTypeName, symbols.DynClassName, symbols.DynClassTypeName)
	}

	for _, v := range reg.Input.VarsByKind(symbols.KindNormal) {
		p.line("%s%s %s = %s;", v.Mod.Prefix(), v.Type.Name(), v.Name, declLiteral(v.Init))
	}
	for _, v := range reg.Output.VarsByKind(symbols.KindNormal) {
		p.line("%s%s %s = %s;", v.Mod.Prefix(), v.Type.Name(), v.Name, declLiteral(v.Init))
	}
	for _, v := range reg.Input.VarsByKind(symbols.KindPointer) {
		p.printPointerDecl(v)
	}
	for _, a := range reg.Input.ArraysByKind(symbols.KindNormal) {
		p.line("%s%s %s%s;", alignPrefix(a.Alignment), a.Type.Base.Name(), a.Name, dimsSuffix(a.Type.Dims))
	}
	for _, a := range reg.Output.ArraysByKind(symbols.KindNormal) {
		p.line("%s%s %s%s;", alignPrefix(a.Alignment), a.Type.Base.Name(), a.Name, dimsSuffix(a.Type.Dims))
	}
	p.blank()
}

func (p *Printer) printPointerDecl(v *symbols.Variable) {
	t := v.Type.Name()
	lit := declLiteral(v.Init)
	switch v.Own {
	case symbols.OwnExclusive:
		p.line("%s * %s = new %s(%s);", t, v.Name, t, lit)
	case symbols.OwnShared:
		p.line("std::shared_ptr<%s> %s = std::make_shared<%s>(%s);", t, v.Name, t, lit)
	case symbols.OwnUnique:
		p.line("std::unique_ptr<%s> %s = std::make_unique<%s>(%s);", t, v.Name, t, lit)
	}
}

// printInit emits init(): aggregate scalar members get their initial
// values, and every array is filled element by element. Private class
// members and the dynamic class initialize elsewhere.
func (p *Printer) printInit() {
	p.line("void init() {")
	p.indent++
	for _, kind := range []symbols.VarKind{symbols.KindStructMbr, symbols.KindDynStructMbr, symbols.KindClassMbr} {
		vars, _ := p.members(kind)
		for _, v := range vars {
			p.line("%s = %s;", scalarRef(v), declLiteral(v.Init))
		}
	}
	for _, kind := range []symbols.VarKind{symbols.KindNormal, symbols.KindStructMbr, symbols.KindDynStructMbr, symbols.KindClassMbr} {
		_, arrays := p.members(kind)
		for _, a := range arrays {
			p.printArrayFill(a, arrayRef(a))
		}
	}
	p.indent--
	p.line("}")
	p.blank()
}

// printArrayFill writes the nested loops assigning an array's initial
// values, with the per-element track selection where the array carries two.
func (p *Printer) printArrayFill(a *symbols.Array, name string) {
	idx := p.openElementLoops(a)
	if a.TrackAxis >= 0 {
		p.line("%s%s = (i_%d %% %d == %d) ? %s : %s;", name, idx,
			a.TrackAxis, p.prog.Pol.ValsNumber, p.prog.Pol.MainValIdx,
			declLiteral(a.InitMain), declLiteral(a.InitAlt))
	} else {
		p.line("%s%s = %s;", name, idx, declLiteral(a.InitMain))
	}
	p.closeElementLoops(a)
}

// openElementLoops emits one for loop per dimension and returns the index
// expression text for the element they select.
func (p *Printer) openElementLoops(a *symbols.Array) string {
	var idx strings.Builder
	for d, n := range a.Type.Dims {
		p.line("for (int i_%d = 0; i_%d < %d; ++i_%d) {", d, d, n, d)
		p.indent++
		fmt.Fprintf(&idx, "[i_%d]", d)
	}
	return idx.String()
}

func (p *Printer) closeElementLoops(a *symbols.Array) {
	for range a.Type.Dims {
		p.indent--
		p.line("}")
	}
}

// printChecksum emits checksum(): outputs only, variables before arrays,
// creation order within each, matching the oracle's fold exactly. Asserts
// mode walks the oracle's expectation list in lockstep: an entity is off
// only when it matches neither its final nor its initial value, on either
// track.
func (p *Printer) printChecksum() {
	asserts := p.prog.Pol.CheckAlgo == policy.Asserts
	expected := p.prog.Expected
	p.line("void checksum() {")
	p.indent++
	for _, v := range p.prog.Reg.Output.Vars() {
		if v.Kind == symbols.KindDynClassMbr || v.Dead {
			continue
		}
		if asserts {
			exp := expected[0]
			expected = expected[1:]
			p.line("value_mismatch |= %s != %s && %s != %s;",
				scalarRef(v), exprLiteral(exp.Final), scalarRef(v), exprLiteral(exp.Init))
		} else {
			p.line("hash(&seed, (unsigned long long int)%s);", scalarRef(v))
		}
	}
	for _, a := range p.prog.Reg.Output.Arrays() {
		if a.Kind == symbols.KindDynClassMbr || a.Dead {
			continue
		}
		idx := p.openElementLoops(a)
		elem := arrayRef(a) + idx
		if asserts {
			exp := expected[0]
			expected = expected[1:]
			cmp := fmt.Sprintf("value_mismatch |= %s != %s && %s != %s",
				elem, exprLiteral(exp.Final), elem, exprLiteral(exp.Init))
			if exp.HasAlt {
				cmp += fmt.Sprintf(" && %s != %s && %s != %s",
					elem, exprLiteral(exp.FinalAlt), elem, exprLiteral(exp.InitAlt))
			}
			p.line("%s;", cmp)
		} else {
			p.line("hash(&seed, (unsigned long long int)%s);", elem)
		}
		p.closeElementLoops(a)
	}
	p.indent--
	p.line("}")
	p.blank()
}

// testParams returns the entities handed to test() as arguments, in
// creation order: scalars and pointers first, then arrays.
func (p *Printer) testParams() ([]*symbols.Variable, []*symbols.Array) {
	var vars []*symbols.Variable
	var arrays []*symbols.Array
	for _, v := range p.prog.Reg.Input.Vars() {
		if v.PassedAsParam {
			vars = append(vars, v)
		}
	}
	for _, a := range p.prog.Reg.Input.Arrays() {
		if a.PassedAsParam {
			arrays = append(arrays, a)
		}
	}
	return vars, arrays
}

func (p *Printer) printTest() {
	vars, arrays := p.testParams()
	p.writeIndent()
	fmt.Fprint(p.w, "void test(")
	first := true
	sep := func() {
		if !first {
			fmt.Fprint(p.w, ", ")
		}
		first = false
	}
	for _, v := range vars {
		sep()
		t := v.Type.Name()
		switch {
		case v.Kind != symbols.KindPointer:
			fmt.Fprintf(p.w, "%s %s", t, v.Name)
		case v.Own == symbols.OwnExclusive:
			fmt.Fprintf(p.w, "%s * %s", t, v.Name)
		case v.Own == symbols.OwnShared:
			fmt.Fprintf(p.w, "std::shared_ptr<%s> %s", t, v.Name)
		case v.Own == symbols.OwnUnique:
			fmt.Fprintf(p.w, "std::unique_ptr<%s> %s", t, v.Name)
		}
	}
	for _, a := range arrays {
		sep()
		fmt.Fprintf(p.w, "%s %s%s", a.Type.Base.Name(), a.Name, dimsSuffix(a.Type.Dims))
	}
	fmt.Fprintln(p.w, ") {")
	p.indent++
	for _, s := range p.prog.Tree.Stmts {
		p.printStmt(s)
	}
	p.indent--
	p.line("}")
	p.blank()
}

// printRelease emits the teardown for every allocation the program made:
// exclusive pointers get their one delete each, then the dynamic
// aggregates. Shared and unique pointers release through their holders.
func (p *Printer) printRelease() {
	p.line("void Release() {")
	p.indent++
	for _, o := range p.prog.Obligations {
		if o.Own == symbols.OwnExclusive {
			p.line("delete %s;", o.Name)
		}
	}
	vars, arrays := p.members(symbols.KindDynStructMbr)
	if len(vars)+len(arrays) > 0 {
		p.line("delete %s;", symbols.DynStructName)
	}
	vars, arrays = p.members(symbols.KindDynClassMbr)
	if len(vars)+len(arrays) > 0 {
		p.line("delete %s;", symbols.DynClassName)
	}
	p.indent--
	p.line("}")
	p.blank()
}

func (p *Printer) printMain() {
	vars, arrays := p.testParams()
	p.line("int main() {")
	p.indent++
	p.line("init();")
	p.writeIndent()
	fmt.Fprint(p.w, "test(")
	first := true
	for _, v := range vars {
		if !first {
			fmt.Fprint(p.w, ", ")
		}
		first = false
		if v.Kind == symbols.KindPointer && v.Own == symbols.OwnUnique {
			fmt.Fprintf(p.w, "std::move(%s)", v.Name)
		} else {
			fmt.Fprint(p.w, v.Name)
		}
	}
	for _, a := range arrays {
		if !first {
			fmt.Fprint(p.w, ", ")
		}
		first = false
		fmt.Fprint(p.w, a.Name)
	}
	fmt.Fprintln(p.w, ");")
	p.line("checksum();")
	switch p.prog.Pol.CheckAlgo {
	case policy.Hash:
		p.line("printf(\"checksum = %%llu\\n\", seed);")
	case policy.Precompute:
		p.line("printf(\"checksum = %%llu\\n\", seed);")
		p.line("if (seed != %dULL)", p.prog.Checksum)
		p.line("    printf(\"checksum mismatch: expected %d, got %%llu\\n\", seed);", p.prog.Checksum)
	case policy.Asserts:
		p.line("if (value_mismatch)")
		p.line("    printf(\"value mismatch\\n\");")
	}
	p.line("Release();")
	p.line("return 0;")
	p.indent--
	p.line("}")
}

func alignPrefix(n int) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("alignas(%d) ", n)
}

func dimsSuffix(dims []int) string {
	var b strings.Builder
	for _, d := range dims {
		fmt.Fprintf(&b, " [%d]", d)
	}
	return b.String()
}
