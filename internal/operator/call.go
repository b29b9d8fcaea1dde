package operator

import "github.com/roach88/thisme/internal/ir"

// Thunk is a deferred computation for the eval operator.
type Thunk func() any

// Transform combines query results. Hidden reads arrive as nil.
type Transform func(values ...ir.IRValue) any

// Call is the sealed result of recognition. Exactly one variant is
// produced per (path, expression) pair.
type Call interface {
	call()
}

// DefineCall binds a new operator token: path ["+"], expression [op, kind].
type DefineCall struct {
	Op   string
	Kind Kind
}

// EvalThunkCall runs Thunk and, outside the root, writes its result at Target.
type EvalThunkCall struct {
	Target ir.Path
	Thunk  Thunk
}

// EvalAssignCall writes Expr verbatim at Target.Name.
type EvalAssignCall struct {
	Target ir.Path
	Name   string
	Expr   string
}

// QueryCall reads Paths and, outside the root, writes the result at Target.
type QueryCall struct {
	Target    ir.Path
	Paths     []ir.Path
	Transform Transform // nil means "return the values as a list"
}

// RemoveCall deletes the subtree rooted at Target.
type RemoveCall struct {
	Target ir.Path
}

// SecretCall declares Secret at Scope (the root when Scope is empty).
type SecretCall struct {
	Scope  ir.Path
	Secret string
}

// NoiseCall declares Noise at Scope, cutting secret inheritance from above.
type NoiseCall struct {
	Scope ir.Path
	Noise string
}

// PointerCall stores a pointer marker to Pointer at Target (the call path
// without its operator leaf).
type PointerCall struct {
	Target  ir.Path
	Pointer string
}

// IdentityCall stores an identity reference at Target.
type IdentityCall struct {
	Target ir.Path
	ID     string
}

// PlainWrite commits the expression at the full call path.
type PlainWrite struct {
	Path ir.Path
}

func (DefineCall) call()     {}
func (EvalThunkCall) call()  {}
func (EvalAssignCall) call() {}
func (QueryCall) call()      {}
func (RemoveCall) call()     {}
func (SecretCall) call()     {}
func (NoiseCall) call()      {}
func (PointerCall) call()    {}
func (IdentityCall) call()   {}
func (PlainWrite) call()     {}
