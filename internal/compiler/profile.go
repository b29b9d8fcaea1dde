package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/thisme/internal/ir"
)

// CompileSource compiles a CUE document holding a top-level profile struct.
// A profile without a name field takes the file's base name.
//
//	profile: {
//		operators: { "$": "secret", "like": "custom" }
//		seed: [{ path: "wallet.$", args: ["s"] }]
//	}
func CompileSource(filename string, src []byte) (*ir.Profile, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	pv := v.LookupPath(cue.ParsePath("profile"))
	if !pv.Exists() {
		return nil, &CompileError{
			Field:   "profile",
			Message: "profile is required",
			Pos:     v.Pos(),
		}
	}

	p, err := CompileProfile(pv)
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	return p, nil
}

// LoadProfile reads and compiles a profile file.
func LoadProfile(path string) (*ir.Profile, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return CompileSource(path, src)
}

// CompileProfile parses a CUE profile struct into an ir.Profile. Operator
// definitions come out sorted by token so a profile applies the same way
// regardless of field order.
func CompileProfile(v cue.Value) (*ir.Profile, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	p := &ir.Profile{}

	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		p.Name = name
	}

	ops, err := parseOperators(v)
	if err != nil {
		return nil, err
	}
	p.Operators = ops

	seed, err := parseSeed(v)
	if err != nil {
		return nil, err
	}
	p.Seed = seed

	return p, nil
}

func parseOperators(v cue.Value) ([]ir.OperatorDef, error) {
	opsVal := v.LookupPath(cue.ParsePath("operators"))
	if !opsVal.Exists() {
		return nil, nil
	}

	iter, err := opsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var defs []ir.OperatorDef
	for iter.Next() {
		tok := iter.Selector().Unquoted()
		kind, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   "operators." + tok,
				Message: "kind must be a string",
				Pos:     iter.Value().Pos(),
			}
		}
		defs = append(defs, ir.OperatorDef{Token: tok, Kind: kind})
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].Token < defs[j].Token })
	return defs, nil
}

func parseSeed(v cue.Value) ([]ir.SeedWrite, error) {
	seedVal := v.LookupPath(cue.ParsePath("seed"))
	if !seedVal.Exists() {
		return nil, nil
	}

	iter, err := seedVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var writes []ir.SeedWrite
	for i := 0; iter.Next(); i++ {
		item := iter.Value()
		field := fmt.Sprintf("seed[%d]", i)

		pathVal := item.LookupPath(cue.ParsePath("path"))
		if !pathVal.Exists() {
			return nil, &CompileError{Field: field + ".path", Message: "path is required", Pos: item.Pos()}
		}
		path, err := pathVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}

		w := ir.SeedWrite{Path: path, Args: ir.IRArray{}}
		if argsVal := item.LookupPath(cue.ParsePath("args")); argsVal.Exists() {
			args, err := decodeValue(argsVal, field+".args")
			if err != nil {
				return nil, err
			}
			list, ok := args.(ir.IRArray)
			if !ok {
				return nil, &CompileError{Field: field + ".args", Message: "args must be a list", Pos: argsVal.Pos()}
			}
			w.Args = list
		}
		writes = append(writes, w)
	}
	return writes, nil
}

// decodeValue converts a concrete CUE value to IR. Floats are rejected so
// seed values hash the same everywhere.
func decodeValue(v cue.Value, field string) (ir.IRValue, error) {
	switch v.Kind() {
	case cue.NullKind:
		return ir.IRNull{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRBool(b), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRInt(n), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRString(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := ir.IRArray{}
		for i := 0; iter.Next(); i++ {
			elem, err := decodeValue(iter.Value(), fmt.Sprintf("%s[%d]", field, i))
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := ir.IRObject{}
		for iter.Next() {
			key := iter.Selector().Unquoted()
			elem, err := decodeValue(iter.Value(), field+"."+key)
			if err != nil {
				return nil, err
			}
			out[key] = elem
		}
		return out, nil
	case cue.FloatKind:
		return nil, &CompileError{
			Field:   field,
			Message: "float values are not supported - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("value must be concrete, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
