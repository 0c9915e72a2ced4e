// Package funcspec loads pre-vetted external function specifications from
// YAML. Each record carries an opaque body and a literal input/output pair;
// the population pass splices calls in and trusts the documented output
// verbatim, so nothing here is ever re-derived by the oracle.
package funcspec

import (
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"progen/pkg/types"
	"progen/pkg/value"
)

// Function is one injectable function specification
type Function struct {
	Name       string   `yaml:"function_name"`
	ParamTypes []string `yaml:"parameter_types"`
	ReturnType string   `yaml:"return_type"`
	Body       string   `yaml:"function"`
	Inputs     []string `yaml:"input"`
	Output     string   `yaml:"output"`
	Misc       []string `yaml:"misc"`
}

// MapType resolves a specification type name onto the generator's type
// model. Type names are opaque strings; only these spellings are accepted.
func MapType(name string) (types.IntType, bool) {
	switch strings.Join(strings.Fields(name), " ") {
	case "bool", "_Bool":
		return types.Bool(), true
	case "signed char", "char":
		return types.IntType{Size: types.I8, Sign: types.Signed}, true
	case "unsigned char":
		return types.IntType{Size: types.I8, Sign: types.Unsigned}, true
	case "short", "short int", "signed short":
		return types.IntType{Size: types.I16, Sign: types.Signed}, true
	case "unsigned short", "unsigned short int":
		return types.IntType{Size: types.I16, Sign: types.Unsigned}, true
	case "int", "signed int":
		return types.Int(), true
	case "unsigned", "unsigned int":
		return types.UInt(), true
	case "long long", "long long int", "signed long long":
		return types.IntType{Size: types.I64, Sign: types.Signed}, true
	case "unsigned long long", "unsigned long long int":
		return types.IntType{Size: types.I64, Sign: types.Unsigned}, true
	}
	return types.IntType{}, false
}

// ParseLiteral interprets a literal value text under the given type,
// accepting the integer suffixes the specification bodies use.
func ParseLiteral(text string, t types.IntType) (value.Value, error) {
	s := strings.TrimSpace(text)
	if t.Size == types.IBool {
		switch s {
		case "true", "1":
			return value.New(t, 1), nil
		case "false", "0":
			return value.New(t, 0), nil
		}
		return value.Value{}, errors.Newf("bad bool literal %q", text)
	}
	upper := strings.ToUpper(s)
	for _, suffix := range []string{"ULL", "LLU", "LL", "UL", "LU", "U", "L"} {
		if strings.HasSuffix(upper, suffix) {
			s = s[:len(s)-len(suffix)]
			break
		}
	}
	if t.IsSigned() {
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return value.Value{}, errors.Wrapf(err, "bad literal %q", text)
		}
		return value.NewInt(t, v), nil
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return value.Value{}, errors.Wrapf(err, "bad literal %q", text)
	}
	return value.New(t, v), nil
}

// Validate checks one record for structural soundness: mappable types, a
// parsable output literal, matching input arity.
func (f *Function) Validate() error {
	if f.Name == "" {
		return errors.New("function record without a name")
	}
	if f.Body == "" {
		return errors.Newf("function %s has no body", f.Name)
	}
	ret, ok := MapType(f.ReturnType)
	if !ok {
		return errors.Newf("function %s has unmappable return type %q", f.Name, f.ReturnType)
	}
	if _, err := ParseLiteral(f.Output, ret); err != nil {
		return errors.Wrapf(err, "function %s output", f.Name)
	}
	if len(f.Inputs) != len(f.ParamTypes) {
		return errors.Newf("function %s has %d inputs for %d parameters",
			f.Name, len(f.Inputs), len(f.ParamTypes))
	}
	for i, p := range f.ParamTypes {
		pt, ok := MapType(p)
		if !ok {
			return errors.Newf("function %s has unmappable parameter type %q", f.Name, p)
		}
		if _, err := ParseLiteral(f.Inputs[i], pt); err != nil {
			return errors.Wrapf(err, "function %s input %d", f.Name, i)
		}
	}
	return nil
}

// OutputValue returns the documented result as an abstract value. Only
// valid after Validate has accepted the record.
func (f *Function) OutputValue() value.Value {
	ret, ok := MapType(f.ReturnType)
	if !ok {
		panic("funcspec: OutputValue on an unvalidated record")
	}
	v, err := ParseLiteral(f.Output, ret)
	if err != nil {
		panic("funcspec: OutputValue on an unvalidated record")
	}
	return v
}

// Load reads the function specifications at path. Injected functions are an
// optional enhancement: a missing file yields no functions, and any
// structural problem discards the entire set rather than aborting the run.
func Load(path string, log *zap.SugaredLogger) []Function {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warnw("discarding external functions", "path", path, "error", err)
		}
		return nil
	}
	var funcs []Function
	if err := yaml.Unmarshal(data, &funcs); err != nil {
		log.Warnw("discarding external functions", "path", path, "error", err)
		return nil
	}
	for i := range funcs {
		if err := funcs[i].Validate(); err != nil {
			log.Warnw("discarding external functions", "path", path, "error", err)
			return nil
		}
	}
	return funcs
}
