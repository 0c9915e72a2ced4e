package funcspec

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"progen/pkg/types"
)

func TestLoadGoodSet(t *testing.T) {
	funcs := Load(filepath.Join("testdata", "functions.yaml"), zap.NewNop().Sugar())
	if len(funcs) != 2 {
		t.Fatalf("loaded %d functions, want 2", len(funcs))
	}
	f := funcs[0]
	if f.Name != "mul_add" || len(f.Inputs) != 2 {
		t.Fatalf("first record = %+v", f)
	}
	out := f.OutputValue()
	if out.Typ != types.Int() || out.Int64() != 17 {
		t.Fatalf("OutputValue() = %v", out)
	}
	if got := funcs[1].OutputValue(); got.Typ != types.UInt() || got.Bits != 2290649224 {
		t.Fatalf("second OutputValue() = %v", got)
	}
}

func TestLoadDiscardsWholeSetOnOneBadRecord(t *testing.T) {
	funcs := Load(filepath.Join("testdata", "bad_functions.yaml"), zap.NewNop().Sugar())
	if funcs != nil {
		t.Fatalf("a set with one unmappable record must be discarded entirely, got %d records", len(funcs))
	}
}

func TestLoadMissingFileYieldsNoFunctions(t *testing.T) {
	funcs := Load(filepath.Join("testdata", "no_such.yaml"), zap.NewNop().Sugar())
	if funcs != nil {
		t.Fatalf("missing file yielded %d records", len(funcs))
	}
}

func TestMapType(t *testing.T) {
	cases := []struct {
		name string
		want types.IntType
	}{
		{"int", types.Int()},
		{"unsigned  int", types.UInt()},
		{"long long", types.IntType{Size: types.I64, Sign: types.Signed}},
		{"unsigned long long int", types.IntType{Size: types.I64, Sign: types.Unsigned}},
		{"bool", types.Bool()},
	}
	for _, c := range cases {
		got, ok := MapType(c.name)
		if !ok || got != c.want {
			t.Errorf("MapType(%q) = %v, %v", c.name, got, ok)
		}
	}
	if _, ok := MapType("double"); ok {
		t.Error("MapType accepted a floating-point type")
	}
}

func TestParseLiteralSuffixes(t *testing.T) {
	u64 := types.IntType{Size: types.I64, Sign: types.Unsigned}
	v, err := ParseLiteral("18446744073709551615ULL", u64)
	if err != nil {
		t.Fatal(err)
	}
	if v.Bits != ^uint64(0) {
		t.Fatalf("ULL literal = %#x", v.Bits)
	}
	i64 := types.IntType{Size: types.I64, Sign: types.Signed}
	v, err = ParseLiteral("-42LL", i64)
	if err != nil {
		t.Fatal(err)
	}
	if v.Int64() != -42 {
		t.Fatalf("LL literal = %d", v.Int64())
	}
	v, err = ParseLiteral("0x10U", types.UInt())
	if err != nil {
		t.Fatal(err)
	}
	if v.Bits != 16 {
		t.Fatalf("hex literal = %d", v.Bits)
	}
	if _, err := ParseLiteral("maybe", types.Bool()); err == nil {
		t.Error("bad bool literal was accepted")
	}
}

func TestValidateArityMismatch(t *testing.T) {
	f := Function{
		Name:       "f",
		ParamTypes: []string{"int", "int"},
		ReturnType: "int",
		Body:       "int f(int a, int b) { return a; }",
		Inputs:     []string{"1"},
		Output:     "1",
	}
	if err := f.Validate(); err == nil {
		t.Fatal("arity mismatch was accepted")
	}
}
