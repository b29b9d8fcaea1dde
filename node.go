package thisme

import (
	"github.com/roach88/thisme/internal/ir"
	"github.com/roach88/thisme/internal/kernel"
)

// Node is an immutable path bound to a kernel. Extending a node never
// touches the kernel; only Call and Get do.
type Node struct {
	k    *kernel.Kernel
	path ir.Path
}

// At returns the node for this path extended by labels. A label holding
// dots is split, so At("a.b") equals At("a", "b").
func (n Node) At(labels ...string) Node {
	next := n.path.Clone()
	for _, l := range labels {
		next = append(next, ir.ParsePath(l)...)
	}
	return Node{k: n.k, path: next}
}

// Path returns the dotted path of n ("" for the root).
func (n Node) Path() string {
	return n.path.String()
}

// Kernel returns the kernel n is bound to.
func (n Node) Kernel() *Kernel {
	return n.k
}

// Get reads a dotted path relative to n. ok is false when the value is
// hidden.
func (n Node) Get(dotted string) (Value, bool) {
	return n.k.Read(n.path.Append(ir.ParsePath(dotted)...))
}

// ResultKind tells what a Call produced.
type ResultKind int

const (
	// Chained: continue from Result.Node.
	Chained ResultKind = iota

	// Computed: an operator returned Result.Value.
	Computed

	// Read: a root read; Result.Found is false when hidden.
	Read
)

// Result is the outcome of Node.Call.
type Result struct {
	Kind    ResultKind
	Node    Node
	Value   Value
	Found   bool
	Thought *Thought
}

// Call invokes n with args: no arguments is undefined, one argument is the
// expression, several become a list. At the root a single path-like string
// is a read.
func (n Node) Call(args ...any) (Result, error) {
	reply, err := n.k.Dispatch(n.path, args...)
	if err != nil {
		return Result{}, err
	}

	switch reply.Kind {
	case kernel.ReplyValue:
		return Result{Kind: Computed, Value: reply.Value, Found: reply.Found}, nil
	case kernel.ReplyRead:
		return Result{Kind: Read, Value: reply.Value, Found: reply.Found}, nil
	}
	return Result{
		Kind:    Chained,
		Node:    Node{k: n.k, path: reply.Path},
		Thought: reply.Thought,
	}, nil
}

// MustCall is Call for chains in tests and examples; it panics on error.
func (n Node) MustCall(args ...any) Node {
	r, err := n.Call(args...)
	if err != nil {
		panic(err)
	}
	if r.Kind != Chained {
		return n
	}
	return r.Node
}
