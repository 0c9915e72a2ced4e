// Package symbols owns every entity the generator declares: scalars, arrays,
// pointers, and the members of the four aggregate instances. It is the
// single source of truth for entity kinds and liveness; per-kind indices are
// built at declaration time, never as an emission side effect.
package symbols

import (
	"fmt"

	"progen/pkg/types"
	"progen/pkg/value"
)

// VarKind is the closed set of placements an entity can have. A kind is
// fixed at creation and never changes.
type VarKind int

const (
	KindNormal VarKind = iota
	KindStructMbr
	KindClassMbr
	KindClassPrivMbr
	KindDynStructMbr
	KindDynClassMbr
	KindPointer
	MaxVarKind
)

func (k VarKind) String() string {
	names := []string{"normal", "struct-member", "class-member", "class-private-member",
		"dyn-struct-member", "dyn-class-member", "pointer"}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

// Ownership is a pointer's release discipline
type Ownership int

const (
	OwnNone Ownership = iota
	// OwnExclusive requires exactly one explicit release statement.
	OwnExclusive
	// OwnShared releases implicitly through the ownership discipline.
	OwnShared
	// OwnUnique transfers by move and releases implicitly in the holder.
	OwnUnique
)

func (o Ownership) String() string {
	names := []string{"none", "exclusive", "shared", "unique"}
	if int(o) < len(names) {
		return names[o]
	}
	return "?"
}

// DeclMod is a declaration modifier for free-standing entities
type DeclMod int

const (
	ModNone DeclMod = iota
	ModStatic
	ModThreadLocal
	ModConst
	ModConstexpr
	ModAlign8
	ModAlign16
)

// Prefix returns the declaration prefix text, empty for ModNone
func (m DeclMod) Prefix() string {
	switch m {
	case ModStatic:
		return "static "
	case ModThreadLocal:
		return "thread_local "
	case ModConst:
		return "const "
	case ModConstexpr:
		return "constexpr "
	case ModAlign8:
		return "alignas(8) "
	case ModAlign16:
		return "alignas(16) "
	}
	return ""
}

// Names of the four aggregate instances. Each program has exactly one static
// and one dynamic instance per aggregate kind.
const (
	StaticStructName  = "struct_1"
	DynStructName     = "struct_2"
	StaticClassName   = "object_1"
	DynClassName      = "object_2"
	StaticStructType  = "GlobalStruct"
	DynStructTypeName = "DynamicStruct"
	StaticClassType   = "GlobalClass"
	DynClassTypeName  = "DynamicClass"
)

// Variable is a scalar entity. Cur is mutated only by generated assignment
// statements during population; nothing else writes it.
type Variable struct {
	Name string
	Type types.IntType
	Init value.Value
	Cur  value.Value
	Kind VarKind
	Own  Ownership
	Mod  DeclMod
	Dead bool

	// PassedAsParam marks inputs handed to the test function as arguments
	// instead of external declarations.
	PassedAsParam bool
}

// Array is an array entity. When TrackAxis >= 0 the array carries two value
// tracks, selected per element by the index modulus rule on that axis.
type Array struct {
	Name      string
	Type      types.ArrayType
	InitMain  value.Value
	InitAlt   value.Value
	CurMain   value.Value
	CurAlt    value.Value
	Kind      VarKind
	Dead      bool
	Alignment int
	TrackAxis int

	PassedAsParam bool
}

// MarkDead flags the variable as unreadable dead data
func (v *Variable) MarkDead() { v.Dead = true }

// MarkDead flags the array as unreadable dead data
func (a *Array) MarkDead() { a.Dead = true }

// Table is an ordered-by-creation collection of entities with set semantics
// on names.
type Table struct {
	vars    []*Variable
	arrays  []*Array
	names   map[string]struct{}
	varKind map[VarKind][]*Variable
	arrKind map[VarKind][]*Array
}

// NewTable creates an empty symbol table
func NewTable() *Table {
	return &Table{
		names:   make(map[string]struct{}),
		varKind: make(map[VarKind][]*Variable),
		arrKind: make(map[VarKind][]*Array),
	}
}

func (t *Table) reserve(name string) {
	if _, dup := t.names[name]; dup {
		// Names come from the registry's own supply, so a duplicate is a
		// generator defect.
		panic(fmt.Sprintf("symbols: duplicate entity name %q", name))
	}
	t.names[name] = struct{}{}
}

// AddVar records a variable, indexing it by kind
func (t *Table) AddVar(v *Variable) {
	t.reserve(v.Name)
	t.vars = append(t.vars, v)
	t.varKind[v.Kind] = append(t.varKind[v.Kind], v)
}

// AddArray records an array, indexing it by kind
func (t *Table) AddArray(a *Array) {
	t.reserve(a.Name)
	t.arrays = append(t.arrays, a)
	t.arrKind[a.Kind] = append(t.arrKind[a.Kind], a)
}

// Vars returns all variables in creation order
func (t *Table) Vars() []*Variable { return t.vars }

// Arrays returns all arrays in creation order
func (t *Table) Arrays() []*Array { return t.arrays }

// VarsByKind returns the variables of one kind in creation order
func (t *Table) VarsByKind(k VarKind) []*Variable { return t.varKind[k] }

// ArraysByKind returns the arrays of one kind in creation order
func (t *Table) ArraysByKind(k VarKind) []*Array { return t.arrKind[k] }

// Registry holds the externally-supplied input table, the externally-visible
// output table, and the name supply both draw from.
type Registry struct {
	Input  *Table
	Output *Table

	varSeq  int
	arrSeq  int
	iterSeq int
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{Input: NewTable(), Output: NewTable()}
}

// NextVarName hands out the next scalar name
func (r *Registry) NextVarName() string {
	r.varSeq++
	return fmt.Sprintf("var_%d", r.varSeq)
}

// NextPtrName hands out the next pointer name
func (r *Registry) NextPtrName() string {
	r.varSeq++
	return fmt.Sprintf("ptr_%d", r.varSeq)
}

// NextArrName hands out the next array name
func (r *Registry) NextArrName() string {
	r.arrSeq++
	return fmt.Sprintf("arr_%d", r.arrSeq)
}

// NextIterName hands out the next loop iterator name
func (r *Registry) NextIterName() string {
	r.iterSeq++
	return fmt.Sprintf("i_%d", r.iterSeq)
}

// LiveInputVars returns input scalars eligible as expression operands: alive,
// and not deliberately unspecified. Dead entities may be declared but are
// never read.
func (r *Registry) LiveInputVars() []*Variable {
	var out []*Variable
	for _, v := range r.Input.Vars() {
		if v.Dead || !v.Cur.Defined {
			continue
		}
		out = append(out, v)
	}
	return out
}

// LiveOutputVars returns output scalars eligible for reassignment
func (r *Registry) LiveOutputVars() []*Variable {
	var out []*Variable
	for _, v := range r.Output.Vars() {
		if v.Dead {
			continue
		}
		out = append(out, v)
	}
	return out
}
