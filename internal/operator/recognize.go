package operator

import (
	"fmt"
	"strings"

	"github.com/roach88/thisme/internal/ir"
)

// matcher inspects a call. It returns (nil, nil) when the call does not
// fit, so the next matcher is tried.
type matcher func(r *Registry, path ir.Path, expr any) (Call, error)

// matchers in priority order. The first match wins.
var matchers = []matcher{
	matchDefine,
	matchEval,
	matchQuery,
	matchRemove,
	matchSecret,
	matchNoise,
	matchPointer,
	matchIdentity,
}

// Recognize classifies a call. The returned Call is never nil; a call no
// operator claims is a PlainWrite. The only error is an identity call
// with an invalid username.
func Recognize(r *Registry, path ir.Path, expr any) (Call, error) {
	for _, m := range matchers {
		c, err := m(r, path, expr)
		if err != nil {
			return nil, err
		}
		if c != nil {
			return c, nil
		}
	}
	return PlainWrite{Path: path.Clone()}, nil
}

// leafOf returns the scope and leaf when the leaf is bound to kind.
func leafOf(r *Registry, path ir.Path, kind Kind) (ir.Path, bool) {
	scope, leaf, ok := path.Split()
	if !ok || !r.Is(leaf, kind) {
		return nil, false
	}
	return scope, true
}

func matchDefine(_ *Registry, path ir.Path, expr any) (Call, error) {
	if len(path) != 1 || path[0] != ir.OpDefine {
		return nil, nil
	}
	list, ok := AsList(expr)
	if !ok || len(list) < 2 {
		return nil, nil
	}
	op := strings.TrimSpace(Stringify(list[0]))
	kind := strings.TrimSpace(Stringify(list[1]))
	if op == "" || kind == "" || op == ir.OpDefine {
		return nil, nil
	}
	return DefineCall{Op: op, Kind: Kind(kind)}, nil
}

func matchEval(r *Registry, path ir.Path, expr any) (Call, error) {
	scope, ok := leafOf(r, path, KindEval)
	if !ok {
		return nil, nil
	}
	if thunk, ok := AsThunk(expr); ok {
		return EvalThunkCall{Target: scope, Thunk: thunk}, nil
	}
	list, ok := AsList(expr)
	if !ok || len(list) < 2 {
		return nil, nil
	}
	name := strings.TrimSpace(Stringify(list[0]))
	body := strings.TrimSpace(Stringify(list[1]))
	if name == "" || body == "" {
		return nil, nil
	}
	return EvalAssignCall{Target: scope, Name: name, Expr: body}, nil
}

func matchQuery(r *Registry, path ir.Path, expr any) (Call, error) {
	scope, ok := leafOf(r, path, KindQuery)
	if !ok {
		return nil, nil
	}
	list, ok := AsList(expr)
	if !ok || len(list) == 0 {
		return nil, nil
	}

	pathsArg := list
	var fn Transform
	if first, isList := AsList(list[0]); isList {
		second, hasFn := Transform(nil), false
		if len(list) > 1 {
			second, hasFn = AsTransform(list[1])
		}
		// [paths] or [paths, fn] is a tuple; anything else is variadic paths.
		if len(list) == 1 || hasFn {
			pathsArg = first
			fn = second
		}
	}

	var paths []ir.Path
	for _, p := range pathsArg {
		s := strings.TrimSpace(Stringify(p))
		if s != "" {
			paths = append(paths, ir.ParsePath(s))
		}
	}
	if len(paths) == 0 {
		return nil, nil
	}
	return QueryCall{Target: scope, Paths: paths, Transform: fn}, nil
}

func matchRemove(r *Registry, path ir.Path, expr any) (Call, error) {
	scope, ok := leafOf(r, path, KindRemove)
	if !ok {
		return nil, nil
	}
	switch expr.(type) {
	case nil, ir.IRNull:
		return RemoveCall{Target: scope}, nil
	}
	if s, ok := AsString(expr); ok {
		return RemoveCall{Target: scope.Append(ir.ParsePath(s)...)}, nil
	}
	return nil, nil
}

func matchSecret(r *Registry, path ir.Path, expr any) (Call, error) {
	scope, ok := leafOf(r, path, KindSecret)
	if !ok {
		return nil, nil
	}
	s, ok := AsString(expr)
	if !ok {
		return nil, nil
	}
	return SecretCall{Scope: scope, Secret: s}, nil
}

func matchNoise(r *Registry, path ir.Path, expr any) (Call, error) {
	scope, ok := leafOf(r, path, KindNoise)
	if !ok {
		return nil, nil
	}
	s, ok := AsString(expr)
	if !ok {
		return nil, nil
	}
	return NoiseCall{Scope: scope, Noise: s}, nil
}

func matchPointer(r *Registry, path ir.Path, expr any) (Call, error) {
	scope, ok := leafOf(r, path, KindPointer)
	if !ok {
		return nil, nil
	}
	s, ok := AsString(expr)
	if !ok {
		return nil, nil
	}
	target := strings.TrimPrefix(strings.TrimSpace(s), ".")
	if target == "" {
		return nil, nil
	}
	return PointerCall{Target: scope, Pointer: target}, nil
}

func matchIdentity(r *Registry, path ir.Path, expr any) (Call, error) {
	scope, ok := leafOf(r, path, KindIdentity)
	if !ok {
		return nil, nil
	}
	s, ok := AsString(expr)
	if !ok {
		return nil, nil
	}
	id, err := NormalizeUsername(s)
	if err != nil {
		if ve, ok := err.(*ValidationError); ok {
			ve.Path = path.String()
		}
		return nil, err
	}
	return IdentityCall{Target: scope, ID: id}, nil
}

// AsString returns the string held by a Go string or IRString.
func AsString(expr any) (string, bool) {
	switch v := expr.(type) {
	case string:
		return v, true
	case ir.IRString:
		return string(v), true
	}
	return "", false
}

// AsList returns the elements of a sequence expression.
func AsList(expr any) ([]any, bool) {
	switch v := expr.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	case []ir.IRValue:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out, true
	case ir.IRArray:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out, true
	}
	return nil, false
}

// AsThunk recognizes eval thunks, named or literal.
func AsThunk(expr any) (Thunk, bool) {
	switch v := expr.(type) {
	case Thunk:
		return v, v != nil
	case func() any:
		return v, v != nil
	case func() ir.IRValue:
		if v == nil {
			return nil, false
		}
		return func() any { return v() }, true
	}
	return nil, false
}

// AsTransform recognizes query transforms, named or literal.
func AsTransform(expr any) (Transform, bool) {
	switch v := expr.(type) {
	case Transform:
		return v, v != nil
	case func(...ir.IRValue) any:
		return v, v != nil
	}
	return nil, false
}

// IsCallable reports whether expr is a thunk or transform.
func IsCallable(expr any) bool {
	if _, ok := AsThunk(expr); ok {
		return true
	}
	_, ok := AsTransform(expr)
	return ok
}

// Stringify coerces an expression element to a label string.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil, ir.IRNull:
		return ""
	case string:
		return val
	case ir.IRString:
		return string(val)
	case ir.IRInt:
		return fmt.Sprintf("%d", int64(val))
	case ir.IRBool:
		return fmt.Sprintf("%t", bool(val))
	case fmt.Stringer:
		return val.String()
	}
	return fmt.Sprint(v)
}
