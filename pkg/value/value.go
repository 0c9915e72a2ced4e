// Package value implements the abstract value representation. Every
// arithmetic operation mirrors the target language bit-for-bit: results are
// truncated to the destination width, and any operation that would be
// undefined behavior in the emitted program is reported instead of computed,
// so the population pass can rebuild the expression before emission.
package value

import (
	"fmt"
	"math"

	"progen/pkg/types"
)

// Value is a typed bit pattern. Bits always holds the pattern truncated to
// the width of Typ. Defined distinguishes real values from slots that are
// deliberately left unspecified and must never be read.
type Value struct {
	Typ     types.IntType
	Bits    uint64
	Defined bool
}

// UBKind classifies why an operation cannot be emitted as-is
type UBKind int

const (
	UBNone UBKind = iota
	UBDivZero
	UBModZero
	UBSignedOvf
	UBShiftOut // shift amount negative or >= width, or shift of a negative value
)

func (u UBKind) String() string {
	names := []string{"ok", "div-by-zero", "mod-by-zero", "signed-overflow", "shift-out-of-range"}
	if int(u) < len(names) {
		return names[u]
	}
	return "?"
}

// BinOp enumerates binary operators over abstract values
type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Mod
	Shl
	Shr
	BitAnd
	BitOr
	BitXor
	Eq
	Ne
	Lt
	Gt
	Le
	Ge
	LogAnd
	LogOr
	MaxBinOp
)

func (op BinOp) String() string {
	names := []string{"+", "-", "*", "/", "%", "<<", ">>", "&", "|", "^",
		"==", "!=", "<", ">", "<=", ">=", "&&", "||"}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// UnOp enumerates unary operators
type UnOp int

const (
	Plus UnOp = iota
	Neg
	BitNot
	LogNot
	MaxUnOp
)

func (op UnOp) String() string {
	names := []string{"+", "-", "~", "!"}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// New builds a defined value from a raw pattern, truncating to width
func New(t types.IntType, bits uint64) Value {
	if t.Size == types.IBool {
		if bits != 0 {
			bits = 1
		}
	} else {
		bits &= t.Mask()
	}
	return Value{Typ: t, Bits: bits, Defined: true}
}

// NewInt builds a defined value from a signed quantity
func NewInt(t types.IntType, v int64) Value {
	return New(t, uint64(v))
}

// Undefined builds a placeholder for a never-read slot
func Undefined(t types.IntType) Value {
	return Value{Typ: t}
}

// Int64 returns the value under signed interpretation (sign-extended)
func (v Value) Int64() int64 {
	if !v.Typ.IsSigned() {
		return int64(v.Bits)
	}
	w := v.Typ.Width()
	if w >= 64 {
		return int64(v.Bits)
	}
	shift := 64 - w
	return int64(v.Bits<<shift) >> shift
}

// Uint64 returns the value after the target-language conversion to a 64-bit
// unsigned integer: signed values sign-extend, then reinterpret. This is the
// quantity the emitted hash helper receives.
func (v Value) Uint64() uint64 {
	if v.Typ.IsSigned() {
		return uint64(v.Int64())
	}
	return v.Bits
}

// IsZero reports whether every value bit is zero
func (v Value) IsZero() bool { return v.Bits == 0 }

// Bool reports the value under conversion to bool
func (v Value) Bool() bool { return v.Bits != 0 }

func (v Value) String() string {
	if !v.Defined {
		return "<undef>"
	}
	if v.Typ.IsSigned() {
		return fmt.Sprintf("%d:%s", v.Int64(), v.Typ.Name())
	}
	return fmt.Sprintf("%d:%s", v.Bits, v.Typ.Name())
}

// Cast converts the value to another integral type with truncation or
// sign extension, never failing. Conversions are always defined in the
// emitted dialect.
func (v Value) Cast(to types.IntType) Value {
	v.mustDefined()
	if to.Size == types.IBool {
		if v.Bits != 0 {
			return New(to, 1)
		}
		return New(to, 0)
	}
	if v.Typ.IsSigned() {
		return New(to, uint64(v.Int64()))
	}
	return New(to, v.Bits)
}

func (v Value) mustDefined() {
	if !v.Defined {
		panic("value: read of an unspecified value")
	}
}

func signedMin(t types.IntType) int64 {
	w := t.Width()
	if w >= 64 {
		return math.MinInt64
	}
	return -(int64(1) << (w - 1))
}

func signedMax(t types.IntType) int64 {
	w := t.Width()
	if w >= 64 {
		return math.MaxInt64
	}
	return int64(1)<<(w-1) - 1
}

func fits(t types.IntType, v int64) bool {
	return v >= signedMin(t) && v <= signedMax(t)
}

// Binary applies op to a and b after integer promotion and the usual
// arithmetic conversions, mirroring target semantics exactly. A non-UBNone
// result means the operation would be undefined at runtime and the caller
// must rebuild the expression; the returned value is unusable in that case.
func Binary(op BinOp, a, b Value) (Value, UBKind) {
	a.mustDefined()
	b.mustDefined()
	switch op {
	case Eq, Ne, Lt, Gt, Le, Ge:
		return compare(op, a, b), UBNone
	case LogAnd:
		return New(types.Bool(), boolBit(a.Bool() && b.Bool())), UBNone
	case LogOr:
		return New(types.Bool(), boolBit(a.Bool() || b.Bool())), UBNone
	case Shl, Shr:
		return shift(op, a, b)
	}

	ct := types.Common(a.Typ, b.Typ)
	x, y := a.Cast(ct), b.Cast(ct)

	if !ct.IsSigned() {
		return unsignedArith(op, ct, x, y)
	}
	return signedArith(op, ct, x, y)
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func compare(op BinOp, a, b Value) Value {
	ct := types.Common(a.Typ, b.Typ)
	x, y := a.Cast(ct), b.Cast(ct)
	var res bool
	if ct.IsSigned() {
		l, r := x.Int64(), y.Int64()
		res = cmpOrd(op, l < r, l == r)
	} else {
		l, r := x.Bits, y.Bits
		res = cmpOrd(op, l < r, l == r)
	}
	return New(types.Bool(), boolBit(res))
}

func cmpOrd(op BinOp, lt, eq bool) bool {
	switch op {
	case Eq:
		return eq
	case Ne:
		return !eq
	case Lt:
		return lt
	case Gt:
		return !lt && !eq
	case Le:
		return lt || eq
	case Ge:
		return !lt
	}
	panic("value: bad comparison op")
}

// shift follows C semantics: the result type is the promoted left operand,
// the right operand only supplies the amount.
func shift(op BinOp, a, b Value) (Value, UBKind) {
	rt := a.Typ.Promoted()
	x := a.Cast(rt)
	amount := b.Cast(b.Typ.Promoted()).Int64()
	width := int64(rt.Width())

	if amount < 0 || amount >= width {
		return Value{}, UBShiftOut
	}
	if rt.IsSigned() && x.Int64() < 0 {
		return Value{}, UBShiftOut
	}
	if op == Shl {
		if rt.IsSigned() {
			r := x.Int64() << uint(amount)
			// Undo-check: a left shift that loses bits overflows the
			// signed result.
			if r>>uint(amount) != x.Int64() || !fits(rt, r) {
				return Value{}, UBSignedOvf
			}
			return NewInt(rt, r), UBNone
		}
		return New(rt, x.Bits<<uint(amount)), UBNone
	}
	if rt.IsSigned() {
		return NewInt(rt, x.Int64()>>uint(amount)), UBNone
	}
	return New(rt, x.Bits>>uint(amount)), UBNone
}

func unsignedArith(op BinOp, ct types.IntType, x, y Value) (Value, UBKind) {
	l, r := x.Bits, y.Bits
	switch op {
	case Add:
		return New(ct, l+r), UBNone
	case Sub:
		return New(ct, l-r), UBNone
	case Mul:
		return New(ct, l*r), UBNone
	case Div:
		if r == 0 {
			return Value{}, UBDivZero
		}
		return New(ct, l/r), UBNone
	case Mod:
		if r == 0 {
			return Value{}, UBModZero
		}
		return New(ct, l%r), UBNone
	case BitAnd:
		return New(ct, l&r), UBNone
	case BitOr:
		return New(ct, l|r), UBNone
	case BitXor:
		return New(ct, l^r), UBNone
	}
	panic("value: bad arithmetic op")
}

func signedArith(op BinOp, ct types.IntType, x, y Value) (Value, UBKind) {
	l, r := x.Int64(), y.Int64()
	switch op {
	case Add:
		s := l + r
		if (r > 0 && s < l) || (r < 0 && s > l) || !fits(ct, s) {
			return Value{}, UBSignedOvf
		}
		return NewInt(ct, s), UBNone
	case Sub:
		s := l - r
		if (r < 0 && s < l) || (r > 0 && s > l) || !fits(ct, s) {
			return Value{}, UBSignedOvf
		}
		return NewInt(ct, s), UBNone
	case Mul:
		if l != 0 && r != 0 {
			s := l * r
			if s/l != r || !fits(ct, s) {
				return Value{}, UBSignedOvf
			}
			return NewInt(ct, s), UBNone
		}
		return NewInt(ct, 0), UBNone
	case Div:
		if r == 0 {
			return Value{}, UBDivZero
		}
		if l == signedMin(ct) && r == -1 {
			return Value{}, UBSignedOvf
		}
		return NewInt(ct, l/r), UBNone
	case Mod:
		if r == 0 {
			return Value{}, UBModZero
		}
		if l == signedMin(ct) && r == -1 {
			return Value{}, UBSignedOvf
		}
		return NewInt(ct, l%r), UBNone
	case BitAnd:
		return New(ct, x.Bits&y.Bits), UBNone
	case BitOr:
		return New(ct, x.Bits|y.Bits), UBNone
	case BitXor:
		return New(ct, x.Bits^y.Bits), UBNone
	}
	panic("value: bad arithmetic op")
}

// Unary applies op to a after integer promotion
func Unary(op UnOp, a Value) (Value, UBKind) {
	a.mustDefined()
	switch op {
	case LogNot:
		return New(types.Bool(), boolBit(!a.Bool())), UBNone
	case Plus:
		pt := a.Typ.Promoted()
		return a.Cast(pt), UBNone
	case BitNot:
		pt := a.Typ.Promoted()
		return New(pt, ^a.Cast(pt).Bits), UBNone
	case Neg:
		pt := a.Typ.Promoted()
		x := a.Cast(pt)
		if pt.IsSigned() {
			if x.Int64() == signedMin(pt) {
				return Value{}, UBSignedOvf
			}
			return NewInt(pt, -x.Int64()), UBNone
		}
		return New(pt, -x.Bits), UBNone
	}
	panic("value: bad unary op")
}
