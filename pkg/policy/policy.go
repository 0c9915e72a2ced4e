// Package policy holds every knob that shapes generation: entity counts,
// structural limits, and the weighted distributions the random passes draw
// from. A Policy plus a seed fully determines the generated program.
package policy

import (
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// CheckAlgo selects how the emitted program verifies its output
type CheckAlgo int

const (
	// Hash folds every output into a running hash printed at exit.
	Hash CheckAlgo = iota
	// Precompute is Hash plus an embedded expected value the program
	// compares itself against.
	Precompute
	// Asserts compares each output against its expected value directly,
	// OR-accumulating a mismatch flag.
	Asserts
)

func (a CheckAlgo) String() string {
	names := []string{"hash", "precompute", "asserts"}
	if int(a) < len(names) {
		return names[a]
	}
	return "?"
}

// ParseCheckAlgo maps a configuration string onto a CheckAlgo
func ParseCheckAlgo(s string) (CheckAlgo, error) {
	switch s {
	case "hash":
		return Hash, nil
	case "precompute":
		return Precompute, nil
	case "asserts":
		return Asserts, nil
	}
	return 0, errors.WithHint(
		errors.Newf("unsupported check algorithm %q", s),
		"supported algorithms are hash, precompute, asserts")
}

// UnmarshalYAML accepts the textual algorithm names in config files
func (a *CheckAlgo) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	algo, err := ParseCheckAlgo(s)
	if err != nil {
		return err
	}
	*a = algo
	return nil
}

// Policy is the full configuration surface consumed by the generation core.
// All weights are relative within their own distribution.
type Policy struct {
	// Input entity counts
	MinInpVars int `yaml:"min_inp_vars"`
	MaxInpVars int `yaml:"max_inp_vars"`

	// Structural limits
	StmtNumLimit     int `yaml:"stmt_num_limit"`
	LoopDepthLimit   int `yaml:"loop_depth_limit"`
	IfElseDepthLimit int `yaml:"if_else_depth_limit"`
	ScopeStmtMin     int `yaml:"scope_stmt_min"`
	ScopeStmtMax     int `yaml:"scope_stmt_max"`
	LoopSeqMax       int `yaml:"loop_seq_max"`
	LoopNestDepthMax int `yaml:"loop_nest_depth_max"`
	MaxArithDepth    int `yaml:"max_arith_depth"`

	// Loop iteration spaces and per-loop arrays
	IterEndMin     int `yaml:"iter_end_min"`
	IterEndMax     int `yaml:"iter_end_max"`
	NewArraysMax   int `yaml:"new_arrays_max"`
	DegenLoopPct   int `yaml:"degen_loop_pct"`
	ElseBranchPct  int `yaml:"else_branch_pct"`
	MulValsPct     int `yaml:"mul_vals_pct"`
	PassAsParamPct int `yaml:"pass_as_param_pct"`
	DeadVarPct     int `yaml:"dead_var_pct"`
	NewOutVarPct   int `yaml:"new_out_var_pct"`
	ExtCallPct     int `yaml:"ext_call_pct"`

	// Multi-value array tracks
	ValsNumber int `yaml:"vals_number"`
	MainValIdx int `yaml:"main_val_idx"`

	// Statement kind weights for the structure pass
	WeightExpr     int `yaml:"weight_expr"`
	WeightLoopSeq  int `yaml:"weight_loop_seq"`
	WeightLoopNest int `yaml:"weight_loop_nest"`
	WeightIfElse   int `yaml:"weight_if_else"`

	// Variable kind weights for input declaration
	WeightKindNormal      int `yaml:"weight_kind_normal"`
	WeightKindStructMbr   int `yaml:"weight_kind_struct_mbr"`
	WeightKindClassMbr    int `yaml:"weight_kind_class_mbr"`
	WeightKindClassPriv   int `yaml:"weight_kind_class_priv"`
	WeightKindDynStruct   int `yaml:"weight_kind_dyn_struct"`
	WeightKindDynClass    int `yaml:"weight_kind_dyn_class"`
	WeightKindPointer     int `yaml:"weight_kind_pointer"`
	WeightOwnExclusive    int `yaml:"weight_own_exclusive"`
	WeightOwnShared       int `yaml:"weight_own_shared"`
	WeightOwnUnique       int `yaml:"weight_own_unique"`
	WeightModNone         int `yaml:"weight_mod_none"`
	WeightModStatic       int `yaml:"weight_mod_static"`
	WeightModThreadLocal  int `yaml:"weight_mod_thread_local"`
	WeightModConst        int `yaml:"weight_mod_const"`
	WeightModConstexpr    int `yaml:"weight_mod_constexpr"`
	WeightModAlign8       int `yaml:"weight_mod_align8"`
	WeightModAlign16      int `yaml:"weight_mod_align16"`

	// Array shapes
	ArrayDimsMax int `yaml:"array_dims_max"`

	// Emission-facing switches the core honors during generation
	AllowDeadData bool      `yaml:"allow_dead_data"`
	CheckAlgo     CheckAlgo `yaml:"check_algo"`
	AlignSizes    []int     `yaml:"align_sizes"`
}

// Default returns the baseline policy. Values follow the original tool's
// defaults where it had them and stay small enough to keep generated
// programs readable.
func Default() Policy {
	return Policy{
		MinInpVars: 5,
		MaxInpVars: 10,

		StmtNumLimit:     25,
		LoopDepthLimit:   3,
		IfElseDepthLimit: 2,
		ScopeStmtMin:     2,
		ScopeStmtMax:     5,
		LoopSeqMax:       3,
		LoopNestDepthMax: 2,
		MaxArithDepth:    4,

		IterEndMin:     4,
		IterEndMax:     12,
		NewArraysMax:   2,
		DegenLoopPct:   5,
		ElseBranchPct:  40,
		MulValsPct:     30,
		PassAsParamPct: 50,
		DeadVarPct:     10,
		NewOutVarPct:   40,
		ExtCallPct:     20,

		ValsNumber: 2,
		MainValIdx: 0,

		WeightExpr:     60,
		WeightLoopSeq:  15,
		WeightLoopNest: 10,
		WeightIfElse:   15,

		WeightKindNormal:    40,
		WeightKindStructMbr: 10,
		WeightKindClassMbr:  10,
		WeightKindClassPriv: 5,
		WeightKindDynStruct: 10,
		WeightKindDynClass:  10,
		WeightKindPointer:   15,
		WeightOwnExclusive:  40,
		WeightOwnShared:     30,
		WeightOwnUnique:     30,

		WeightModNone:        70,
		WeightModStatic:      5,
		WeightModThreadLocal: 5,
		WeightModConst:       5,
		WeightModConstexpr:   5,
		WeightModAlign8:      5,
		WeightModAlign16:     5,

		ArrayDimsMax: 2,

		AllowDeadData: false,
		CheckAlgo:     Hash,
		AlignSizes:    []int{16, 32, 64},
	}
}

// Load reads a YAML policy file over the defaults and validates the result.
// An empty path returns the validated defaults.
func Load(path string) (Policy, error) {
	pol := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Policy{}, errors.Wrapf(err, "reading policy config %s", path)
		}
		if err := yaml.Unmarshal(data, &pol); err != nil {
			return Policy{}, errors.Wrapf(err, "parsing policy config %s", path)
		}
	}
	if err := pol.Validate(); err != nil {
		return Policy{}, err
	}
	return pol, nil
}

// Validate rejects configurations the generator cannot honor. These are
// fatal: a bad policy aborts the run before any generation happens.
func (p *Policy) Validate() error {
	if p.MinInpVars < 1 || p.MaxInpVars < p.MinInpVars {
		return errors.Newf("input variable range [%d, %d] is invalid", p.MinInpVars, p.MaxInpVars)
	}
	if p.StmtNumLimit < 1 {
		return errors.Newf("statement budget %d must be positive", p.StmtNumLimit)
	}
	if p.LoopDepthLimit < 1 || p.IfElseDepthLimit < 0 {
		return errors.Newf("nesting limits (loop %d, if %d) are invalid", p.LoopDepthLimit, p.IfElseDepthLimit)
	}
	if p.ScopeStmtMin < 1 || p.ScopeStmtMax < p.ScopeStmtMin {
		return errors.Newf("scope statement range [%d, %d] is invalid", p.ScopeStmtMin, p.ScopeStmtMax)
	}
	if p.LoopSeqMax < 1 {
		return errors.Newf("loop sequence limit %d must be positive", p.LoopSeqMax)
	}
	if p.LoopNestDepthMax < 2 {
		return errors.Newf("loop nest depth limit %d must be at least 2", p.LoopNestDepthMax)
	}
	if p.NewArraysMax < 0 {
		return errors.Newf("per-loop array count %d must be non-negative", p.NewArraysMax)
	}
	if p.IterEndMin < 1 || p.IterEndMax < p.IterEndMin {
		return errors.Newf("iteration space range [%d, %d] is invalid", p.IterEndMin, p.IterEndMax)
	}
	if p.MaxArithDepth < 1 {
		return errors.Newf("expression depth %d must be positive", p.MaxArithDepth)
	}
	if p.ArrayDimsMax < 1 {
		return errors.Newf("array dimension limit %d must be positive", p.ArrayDimsMax)
	}
	if p.ValsNumber < 1 {
		return errors.Newf("value track count %d must be positive", p.ValsNumber)
	}
	if p.MainValIdx < 0 || p.MainValIdx >= p.ValsNumber {
		return errors.WithHint(
			errors.Newf("main value index %d is outside the %d configured tracks", p.MainValIdx, p.ValsNumber),
			"main_val_idx must satisfy 0 <= main_val_idx < vals_number")
	}
	if p.CheckAlgo < Hash || p.CheckAlgo > Asserts {
		return errors.Newf("unsupported check algorithm %d", int(p.CheckAlgo))
	}
	if len(p.AlignSizes) == 0 {
		return errors.New("at least one alignment size is required")
	}
	for _, a := range p.AlignSizes {
		switch a {
		case 8, 16, 32, 64:
		default:
			return errors.WithHint(
				errors.Newf("malformed alignment size %d", a),
				"alignment sizes must be one of 8, 16, 32, 64")
		}
	}
	if p.WeightExpr <= 0 {
		return errors.New("weight_expr must be positive so scopes can always fall back to plain statements")
	}
	if p.WeightKindNormal <= 0 {
		return errors.New("weight_kind_normal must be positive so free-standing inputs always exist")
	}
	if p.WeightOwnExclusive+p.WeightOwnShared+p.WeightOwnUnique <= 0 {
		return errors.New("pointer ownership distribution has no selectable entries")
	}
	if p.WeightModNone <= 0 {
		return errors.New("weight_mod_none must be positive")
	}
	for _, pct := range []int{p.DegenLoopPct, p.ElseBranchPct, p.MulValsPct,
		p.PassAsParamPct, p.DeadVarPct, p.NewOutVarPct, p.ExtCallPct} {
		if pct < 0 || pct > 100 {
			return errors.Newf("probability %d is outside [0, 100]", pct)
		}
	}
	return nil
}
