package policy

import (
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	pol := Default()
	if err := pol.Validate(); err != nil {
		t.Fatalf("default policy is invalid: %v", err)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	pol, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if pol.MinInpVars != 8 || pol.MaxInpVars != 12 {
		t.Errorf("input var range = [%d, %d]", pol.MinInpVars, pol.MaxInpVars)
	}
	if pol.StmtNumLimit != 40 {
		t.Errorf("stmt_num_limit = %d", pol.StmtNumLimit)
	}
	if pol.ValsNumber != 3 || pol.MainValIdx != 2 {
		t.Errorf("track config = %d/%d", pol.ValsNumber, pol.MainValIdx)
	}
	if pol.CheckAlgo != Asserts {
		t.Errorf("check_algo = %v", pol.CheckAlgo)
	}
	if !pol.AllowDeadData {
		t.Error("allow_dead_data not applied")
	}
	if len(pol.AlignSizes) != 2 || pol.AlignSizes[0] != 8 {
		t.Errorf("align_sizes = %v", pol.AlignSizes)
	}
	// Untouched keys keep their defaults.
	if pol.MaxArithDepth != Default().MaxArithDepth {
		t.Errorf("max_arith_depth = %d, want default", pol.MaxArithDepth)
	}
}

func TestLoadEmptyPathIsDefault(t *testing.T) {
	pol, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if pol.StmtNumLimit != Default().StmtNumLimit {
		t.Error("empty path did not yield defaults")
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join("testdata", "no_such.yaml")); err == nil {
		t.Fatal("missing config file was accepted")
	}
}

func TestParseCheckAlgo(t *testing.T) {
	for s, want := range map[string]CheckAlgo{"hash": Hash, "precompute": Precompute, "asserts": Asserts} {
		got, err := ParseCheckAlgo(s)
		if err != nil || got != want {
			t.Errorf("ParseCheckAlgo(%q) = %v, %v", s, got, err)
		}
	}
	if _, err := ParseCheckAlgo("crc32"); err == nil {
		t.Error("unknown algorithm was accepted")
	}
}

func TestValidateRejections(t *testing.T) {
	tweak := func(f func(*Policy)) Policy {
		pol := Default()
		f(&pol)
		return pol
	}
	cases := []struct {
		name string
		pol  Policy
	}{
		{"inverted input range", tweak(func(p *Policy) { p.MaxInpVars = p.MinInpVars - 1 })},
		{"zero statement budget", tweak(func(p *Policy) { p.StmtNumLimit = 0 })},
		{"main index out of tracks", tweak(func(p *Policy) { p.MainValIdx = p.ValsNumber })},
		{"zero tracks", tweak(func(p *Policy) { p.ValsNumber = 0 })},
		{"bad alignment", tweak(func(p *Policy) { p.AlignSizes = []int{24} })},
		{"no expression weight", tweak(func(p *Policy) { p.WeightExpr = 0 })},
		{"no normal kind weight", tweak(func(p *Policy) { p.WeightKindNormal = 0 })},
		{"probability above 100", tweak(func(p *Policy) { p.DeadVarPct = 101 })},
		{"empty iteration range", tweak(func(p *Policy) { p.IterEndMin = 0 })},
		{"zero loop sequence limit", tweak(func(p *Policy) { p.LoopSeqMax = 0 })},
		{"loop nest shallower than two", tweak(func(p *Policy) { p.LoopNestDepthMax = 1 })},
		{"negative per-loop array count", tweak(func(p *Policy) { p.NewArraysMax = -1 })},
	}
	for _, c := range cases {
		if err := c.pol.Validate(); err == nil {
			t.Errorf("%s: accepted", c.name)
		}
	}
}
