package checksum

import (
	"testing"

	"progen/pkg/policy"
	"progen/pkg/symbols"
	"progen/pkg/types"
	"progen/pkg/value"
)

func TestMixFormula(t *testing.T) {
	if got, want := Mix(0, 255), uint64(255+0x9e3779b9); got != want {
		t.Fatalf("Mix(0, 255) = %#x, want %#x", got, want)
	}
	// The accumulator feeds back into the next step.
	s := Mix(0, 1)
	if got, want := Mix(s, 2), s^(2+0x9e3779b9+(s<<6)+(s>>2)); got != want {
		t.Fatalf("chained Mix = %#x, want %#x", got, want)
	}
}

func outVar(name string, n int64) *symbols.Variable {
	v := value.NewInt(types.Int(), n)
	return &symbols.Variable{Name: name, Type: types.Int(), Init: v, Cur: v}
}

// A program whose single output is the 8-bit result of 5 + 250 folds to
// Mix(0, 255); one more step past the width boundary folds to Mix(0, 0).
func TestFoldNarrowSum(t *testing.T) {
	pol := policy.Default()
	u8 := types.IntType{Size: types.I8, Sign: types.Unsigned}

	for _, tc := range []struct {
		x    uint64
		want uint64
	}{
		{5, 255},
		{6, 0},
	} {
		x := value.New(u8, tc.x)
		sum, ub := value.Binary(value.Add, x, value.New(types.Int(), 250))
		if ub != value.UBNone {
			t.Fatalf("5 + 250 raised %v", ub)
		}
		y := sum.Cast(u8)
		if y.Bits != tc.want {
			t.Fatalf("x=%d: y = %d, want %d", tc.x, y.Bits, tc.want)
		}

		out := symbols.NewTable()
		out.AddVar(&symbols.Variable{Name: "var_1", Type: u8, Init: y, Cur: y})
		o := New(&pol)
		o.Fold(out)
		if got := o.Sum(); got != Mix(0, tc.want) {
			t.Fatalf("x=%d: Sum() = %#x, want %#x", tc.x, got, Mix(0, tc.want))
		}
	}
}

func TestFoldOrderVarsThenArrays(t *testing.T) {
	pol := policy.Default()
	out := symbols.NewTable()
	out.AddVar(outVar("var_1", 10))
	out.AddVar(outVar("var_2", -3))
	arr := &symbols.Array{
		Name:      "arr_1",
		Type:      types.NewArray(types.UInt(), []int{2}),
		CurMain:   value.New(types.UInt(), 7),
		CurAlt:    value.New(types.UInt(), 7),
		TrackAxis: -1,
	}
	out.AddArray(arr)

	o := New(&pol)
	o.Fold(out)

	want := Mix(0, 10)
	want = Mix(want, value.NewInt(types.Int(), -3).Uint64())
	want = Mix(want, 7)
	want = Mix(want, 7)
	if got := o.Sum(); got != want {
		t.Fatalf("Sum() = %#x, want %#x", got, want)
	}
}

func TestFoldSkipsDeadAndDynClass(t *testing.T) {
	pol := policy.Default()
	out := symbols.NewTable()
	out.AddVar(outVar("var_1", 1))
	dead := outVar("var_2", 99)
	dead.Dead = true
	out.AddVar(dead)
	ctor := outVar("var_3", 42)
	ctor.Kind = symbols.KindDynClassMbr
	out.AddVar(ctor)

	o := New(&pol)
	o.Fold(out)
	if got, want := o.Sum(), Mix(0, 1); got != want {
		t.Fatalf("Sum() = %#x, want only the live normal entity folded (%#x)", got, want)
	}
}

func TestFoldArrayTrackSelection(t *testing.T) {
	pol := policy.Default()
	pol.ValsNumber = 2
	pol.MainValIdx = 0
	arr := &symbols.Array{
		Name:      "arr_1",
		Type:      types.NewArray(types.UInt(), []int{4}),
		CurMain:   value.New(types.UInt(), 100),
		CurAlt:    value.New(types.UInt(), 200),
		TrackAxis: 0,
	}
	out := symbols.NewTable()
	out.AddArray(arr)

	o := New(&pol)
	o.Fold(out)

	// Indices 0 and 2 hold the main track, 1 and 3 the alternate.
	want := uint64(0)
	for _, v := range []uint64{100, 200, 100, 200} {
		want = Mix(want, v)
	}
	if got := o.Sum(); got != want {
		t.Fatalf("Sum() = %#x, want %#x", got, want)
	}
}

func TestFoldTrackOnOuterAxis(t *testing.T) {
	pol := policy.Default()
	pol.ValsNumber = 2
	pol.MainValIdx = 1
	arr := &symbols.Array{
		Name:      "arr_1",
		Type:      types.NewArray(types.UInt(), []int{2, 2}),
		CurMain:   value.New(types.UInt(), 5),
		CurAlt:    value.New(types.UInt(), 6),
		TrackAxis: 0,
	}
	out := symbols.NewTable()
	out.AddArray(arr)

	o := New(&pol)
	o.Fold(out)

	// Row-major: [0][0] [0][1] [1][0] [1][1]; main where i0 % 2 == 1.
	want := uint64(0)
	for _, v := range []uint64{6, 6, 5, 5} {
		want = Mix(want, v)
	}
	if got := o.Sum(); got != want {
		t.Fatalf("Sum() = %#x, want %#x", got, want)
	}
}

func TestAssertsModeRecordsExpectations(t *testing.T) {
	pol := policy.Default()
	pol.CheckAlgo = policy.Asserts
	out := symbols.NewTable()
	out.AddVar(outVar("var_1", 10))
	arr := &symbols.Array{
		Name:      "arr_1",
		Type:      types.NewArray(types.UInt(), []int{3}),
		InitMain:  value.New(types.UInt(), 1),
		InitAlt:   value.New(types.UInt(), 2),
		CurMain:   value.New(types.UInt(), 3),
		CurAlt:    value.New(types.UInt(), 4),
		TrackAxis: 0,
	}
	out.AddArray(arr)

	o := New(&pol)
	o.Fold(out)

	exp := o.Expected()
	if len(exp) != 2 {
		t.Fatalf("got %d expectations, want 2", len(exp))
	}
	if exp[0].Name != "var_1" || exp[0].IsArray {
		t.Errorf("first expectation = %+v", exp[0])
	}
	if exp[1].Name != "arr_1" || !exp[1].IsArray || !exp[1].HasAlt {
		t.Errorf("second expectation = %+v", exp[1])
	}
	if exp[1].Final.Bits != 3 || exp[1].FinalAlt.Bits != 4 {
		t.Errorf("array expectation tracks = %+v", exp[1])
	}
	if o.Sum() != 0 {
		t.Error("asserts mode should leave the hash accumulator untouched")
	}
}
