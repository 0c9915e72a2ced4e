// Package types defines the numeric, array, and aggregate type model used
// throughout generation. Every type is fully resolved at construction; the
// rest of the generator never sees a partial type.
package types

import "fmt"

// Type is the interface for all generated types
type Type interface {
	implType()
	Name() string
}

// Signedness represents signed/unsigned for integer types
type Signedness int

const (
	Signed Signedness = iota
	Unsigned
)

func (s Signedness) String() string {
	if s == Signed {
		return "signed"
	}
	return "unsigned"
}

// IntSize represents the size of integer types
type IntSize int

const (
	IBool IntSize = iota
	I8
	I16
	I32
	I64
)

func (s IntSize) String() string {
	names := []string{"ibool", "i8", "i16", "i32", "i64"}
	if int(s) < len(names) {
		return names[s]
	}
	return "?"
}

// IntType represents a fixed-width integral type
type IntType struct {
	Size IntSize
	Sign Signedness
}

// ArrayType represents an array with fixed positive dimensions
type ArrayType struct {
	Base IntType
	Dims []int
}

// Member is a single named slot of an aggregate
type Member struct {
	Name    string
	Type    Type
	Private bool
}

// AggregateType represents a struct or class body
type AggregateType struct {
	TypeName string
	Members  []Member
}

// Marker methods for Type interface
func (IntType) implType()       {}
func (ArrayType) implType()     {}
func (AggregateType) implType() {}

// Name returns the C++ spelling of the type
func (t IntType) Name() string {
	switch t.Size {
	case IBool:
		return "bool"
	case I8:
		if t.Sign == Unsigned {
			return "unsigned char"
		}
		return "signed char"
	case I16:
		if t.Sign == Unsigned {
			return "unsigned short"
		}
		return "short"
	case I32:
		if t.Sign == Unsigned {
			return "unsigned int"
		}
		return "int"
	case I64:
		if t.Sign == Unsigned {
			return "unsigned long long int"
		}
		return "long long int"
	}
	return "?"
}

func (t ArrayType) Name() string {
	name := t.Base.Name()
	for _, d := range t.Dims {
		name += fmt.Sprintf(" [%d]", d)
	}
	return name
}

func (t AggregateType) Name() string { return t.TypeName }

// Width returns the size of the type in bits. bool occupies one value bit.
func (t IntType) Width() uint {
	switch t.Size {
	case IBool:
		return 1
	case I8:
		return 8
	case I16:
		return 16
	case I32:
		return 32
	case I64:
		return 64
	}
	return 0
}

// IsSigned reports whether the type uses two's-complement interpretation
func (t IntType) IsSigned() bool {
	return t.Sign == Signed && t.Size != IBool
}

// Mask returns the bit mask covering the value bits of the type
func (t IntType) Mask() uint64 {
	w := t.Width()
	if w >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << w) - 1
}

// Promoted returns the type after C integer promotion: anything with rank
// below int becomes int.
func (t IntType) Promoted() IntType {
	if t.Size < I32 {
		return IntType{Size: I32, Sign: Signed}
	}
	return t
}

// Common returns the result of the usual arithmetic conversions applied to
// two promoted operand types.
func Common(a, b IntType) IntType {
	a, b = a.Promoted(), b.Promoted()
	if a == b {
		return a
	}
	if a.Size == b.Size {
		// Same rank, mixed signedness: unsigned wins.
		return IntType{Size: a.Size, Sign: Unsigned}
	}
	hi, lo := a, b
	if b.Size > a.Size {
		hi, lo = b, a
	}
	if hi.Sign == Unsigned || lo.Sign == Signed {
		return hi
	}
	// Signed type of higher rank represents the whole unsigned lower-rank
	// range for the widths supported here (32 vs 64).
	return hi
}

// Bool returns the bool type
func Bool() IntType { return IntType{Size: IBool, Sign: Unsigned} }

// Int returns the signed 32-bit int type
func Int() IntType { return IntType{Size: I32, Sign: Signed} }

// UInt returns the unsigned 32-bit int type
func UInt() IntType { return IntType{Size: I32, Sign: Unsigned} }

// NewArray builds an array type. Dimensions must be positive; a violation is
// a generator defect, not a recoverable condition.
func NewArray(base IntType, dims []int) ArrayType {
	if len(dims) == 0 {
		panic("types: array with no dimensions")
	}
	for _, d := range dims {
		if d <= 0 {
			panic(fmt.Sprintf("types: non-positive array dimension %d", d))
		}
	}
	out := make([]int, len(dims))
	copy(out, dims)
	return ArrayType{Base: base, Dims: out}
}

// Elems returns the total element count of the array
func (t ArrayType) Elems() int {
	n := 1
	for _, d := range t.Dims {
		n *= d
	}
	return n
}

// ScalarTypes lists every integral type the generator draws operands from.
// Order is fixed; random selection indexes into it.
func ScalarTypes() []IntType {
	return []IntType{
		{Size: IBool, Sign: Unsigned},
		{Size: I8, Sign: Signed},
		{Size: I8, Sign: Unsigned},
		{Size: I16, Sign: Signed},
		{Size: I16, Sign: Unsigned},
		{Size: I32, Sign: Signed},
		{Size: I32, Sign: Unsigned},
		{Size: I64, Sign: Signed},
		{Size: I64, Sign: Unsigned},
	}
}
