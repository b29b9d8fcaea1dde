package kernel

import (
	"regexp"
	"strings"

	"github.com/roach88/thisme/internal/ir"
	"github.com/roach88/thisme/internal/operator"
)

// ReplyKind tells a caller what Dispatch produced.
type ReplyKind int

const (
	// ReplyAccessor means "continue chaining at Reply.Path".
	ReplyAccessor ReplyKind = iota

	// ReplyValue carries an operator result in Reply.Value.
	ReplyValue

	// ReplyRead carries a root read; Found is false when hidden.
	ReplyRead
)

// Reply is the result of one dispatched call.
type Reply struct {
	Kind    ReplyKind
	Path    ir.Path
	Value   ir.IRValue
	Found   bool
	Thought *ir.Thought
}

var bareLabel = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// isReadRequest reports whether a lone root string argument is a read:
// dotted, operator-prefixed, or a single bare label.
func isReadRequest(s string) bool {
	s = strings.TrimSpace(s)
	return strings.Contains(s, ".") ||
		strings.HasPrefix(s, ir.OpSecret) ||
		strings.HasPrefix(s, ir.OpNoise) ||
		strings.HasPrefix(s, ir.OpIdentity) ||
		bareLabel.MatchString(s)
}

// normalizeArgs collapses call arguments into one expression:
// none is undefined, one is itself, more become a list.
func normalizeArgs(args []any) any {
	switch len(args) {
	case 0:
		return nil
	case 1:
		return args[0]
	}
	out := make([]any, len(args))
	copy(out, args)
	return out
}

// Dispatch routes a call made through an accessor at path.
//
// At the root, a single string that looks like a path is a read, no
// arguments return the root accessor, and anything else is a root
// postulate. Elsewhere the call is postulated; a committed record chains
// to the operator's scope (or the path itself for plain writes), and an
// operator value is returned as is.
func (k *Kernel) Dispatch(path ir.Path, args ...any) (Reply, error) {
	if path.IsRoot() {
		if len(args) == 1 {
			if s, ok := operator.AsString(args[0]); ok && isReadRequest(s) {
				v, found := k.Read(ir.ParsePath(strings.TrimSpace(s)))
				return Reply{Kind: ReplyRead, Value: v, Found: found}, nil
			}
		}
		if len(args) == 0 {
			return Reply{Kind: ReplyAccessor, Path: ir.Root}, nil
		}

		out, err := k.Postulate(ir.Root, normalizeArgs(args))
		if err != nil {
			return Reply{}, err
		}
		if out.Value != nil {
			return Reply{Kind: ReplyValue, Value: out.Value, Found: true}, nil
		}
		return Reply{Kind: ReplyAccessor, Path: ir.Root, Thought: out.Thought}, nil
	}

	out, err := k.Postulate(path, normalizeArgs(args))
	if err != nil {
		return Reply{}, err
	}

	if out.Thought != nil {
		chain := path.Clone()
		if scope, leaf, ok := path.Split(); ok {
			if _, isOp := k.operators.Kind(leaf); isOp {
				chain = scope
			}
		}
		return Reply{Kind: ReplyAccessor, Path: chain, Thought: out.Thought}, nil
	}
	if out.Value != nil {
		return Reply{Kind: ReplyValue, Value: out.Value, Found: true}, nil
	}
	return Reply{Kind: ReplyAccessor, Path: path.Clone()}, nil
}
