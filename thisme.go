// Package thisme is a path-addressed semantic store. Callers build paths
// label by label and call them with arguments; any subtree can be placed
// under a secret so its contents live only inside an encrypted branch blob.
//
//	k, me, err := thisme.New(thisme.WithIdentity("jabellae", ""))
//	me.At("ledger", "host").Call("localhost:8161")
//	me.At("wallet", "_").Call("secret")
//	me.At("wallet", "income").Call(100)
//	v, ok := me.Get("wallet.income") // 100, true
//	_, ok = me.Get("wallet")         // hidden
//
// The kernel behind a Node is not safe for concurrent use; hosts serialize
// access per identity.
package thisme

import (
	"github.com/roach88/thisme/internal/ir"
	"github.com/roach88/thisme/internal/kernel"
)

// Kernel owns the commit log, derived index, scopes and branch blobs.
type Kernel = kernel.Kernel

// Option configures a Kernel.
type Option = kernel.Option

// Value types accepted and returned by the store.
type (
	Value    = ir.IRValue
	Null     = ir.IRNull
	String   = ir.IRString
	Int      = ir.IRInt
	Bool     = ir.IRBool
	Array    = ir.IRArray
	Object   = ir.IRObject
	Pointer  = ir.IRPointer
	Identity = ir.IRIdentity
	Thought  = ir.Thought
)

// Kernel options.
var (
	WithLogger             = kernel.WithLogger
	WithClock              = kernel.WithClock
	WithNow                = kernel.WithNow
	WithSessionIDGenerator = kernel.WithSessionIDGenerator
	WithIdentity           = kernel.WithIdentity
	WithSeed               = kernel.WithSeed
)

// New creates a kernel and returns it with its root node.
func New(opts ...Option) (*Kernel, Node, error) {
	k, err := kernel.New(opts...)
	if err != nil {
		return nil, Node{}, err
	}
	return k, Root(k), nil
}

// Root returns the root node of k.
func Root(k *Kernel) Node {
	return Node{k: k, path: ir.Root}
}
