package operator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/thisme/internal/ir"
)

// Kind is the semantic role of an operator token.
type Kind string

const (
	KindSecret   Kind = "secret"
	KindNoise    Kind = "noise"
	KindPointer  Kind = "pointer"
	KindIdentity Kind = "identity"
	KindEval     Kind = "eval"
	KindQuery    Kind = "query"
	KindRemove   Kind = "remove"
	KindCustom   Kind = "custom"
)

// ValidKinds lists the kinds a profile may bind.
var ValidKinds = map[Kind]bool{
	KindSecret:   true,
	KindNoise:    true,
	KindPointer:  true,
	KindIdentity: true,
	KindEval:     true,
	KindQuery:    true,
	KindRemove:   true,
	KindCustom:   true,
}

// Registry maps operator tokens to kinds for one kernel instance.
// The define token "+" is never stored and cannot be rebound.
//
// Thread-safety: NOT safe for concurrent mutation; owned by a single kernel.
type Registry struct {
	kinds map[string]Kind
}

// NewRegistry creates a registry holding the default bindings.
func NewRegistry() *Registry {
	return &Registry{kinds: map[string]Kind{
		ir.OpSecret:   KindSecret,
		ir.OpNoise:    KindNoise,
		ir.OpPointer:  KindPointer,
		ir.OpArrow:    KindPointer,
		ir.OpIdentity: KindIdentity,
		ir.OpEval:     KindEval,
		ir.OpQuery:    KindQuery,
		ir.OpRemove:   KindRemove,
	}}
}

// Kind returns the kind bound to token.
func (r *Registry) Kind(token string) (Kind, bool) {
	k, ok := r.kinds[token]
	return k, ok
}

// Is reports whether token is bound to kind.
func (r *Registry) Is(token string, kind Kind) bool {
	k, ok := r.kinds[token]
	return ok && k == kind
}

// Define binds token to kind, replacing any previous binding.
// Unknown kind strings are stored as given; they simply never match a
// recognizer.
func (r *Registry) Define(token string, kind Kind) error {
	token = strings.TrimSpace(token)
	if token == "" || kind == "" {
		return &ValidationError{Code: ErrCodeInvalidArgument, Message: "operator token and kind must be non-empty"}
	}
	if token == ir.OpDefine {
		return &ValidationError{
			Code:    ErrCodeInvalidArgument,
			Message: fmt.Sprintf("operator %q is reserved", ir.OpDefine),
		}
	}
	r.kinds[token] = kind
	return nil
}

// Tokens returns all bound tokens in sorted order.
func (r *Registry) Tokens() []string {
	tokens := make([]string, 0, len(r.kinds))
	for token := range r.kinds {
		tokens = append(tokens, token)
	}
	slices.Sort(tokens)
	return tokens
}
