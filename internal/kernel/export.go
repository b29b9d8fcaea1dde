package kernel

import (
	"github.com/roach88/thisme/internal/cipher"
	"github.com/roach88/thisme/internal/ir"
)

// Export is a full snapshot of a kernel for hosts.
type Export struct {
	IdentityRoot string       `json:"identity_root,omitempty"`
	PublicKey    string       `json:"public_key,omitempty"`
	IdentityHash string       `json:"identity_hash,omitempty"`
	Thoughts     []ir.Thought `json:"thoughts"`
	Payload      ir.IRObject  `json:"payload"`
}

// Export returns the commit log and a payload tree of indexed raw values
// (ciphertext stays ciphertext) with each scope's current branch blob at
// its scope root. A node that holds a value and also has children keeps
// its own value under the empty key.
func (k *Kernel) Export() Export {
	root := &payloadNode{}
	for key, v := range k.index {
		if v != nil {
			root.place(ir.ParsePath(key), v)
		}
	}
	for scope, blob := range k.Branches() {
		root.place(ir.ParsePath(scope), ir.IRString(blob))
	}

	payload := root.object()
	if root.hasValue {
		payload[""] = root.value
	}

	exp := Export{
		Thoughts: k.Thoughts(),
		Payload:  payload,
	}
	if k.identity != nil {
		exp.IdentityRoot = k.identity.IdentityRoot
		exp.PublicKey = k.identity.PublicKey
		exp.IdentityHash = k.identity.IdentityHash
	}
	return exp
}

type payloadNode struct {
	value    ir.IRValue
	hasValue bool
	children map[string]*payloadNode
}

func (n *payloadNode) place(path ir.Path, v ir.IRValue) {
	cur := n
	for _, part := range path {
		if cur.children == nil {
			cur.children = make(map[string]*payloadNode)
		}
		next, ok := cur.children[part]
		if !ok {
			next = &payloadNode{}
			cur.children[part] = next
		}
		cur = next
	}
	cur.value, cur.hasValue = v, true
}

func (n *payloadNode) object() ir.IRObject {
	out := make(ir.IRObject, len(n.children))
	for label, child := range n.children {
		out[label] = child.export()
	}
	return out
}

func (n *payloadNode) export() ir.IRValue {
	if len(n.children) == 0 {
		return n.value
	}
	out := n.object()
	if n.hasValue {
		out[""] = n.value
	}
	return out
}

// ExportBranch returns what Read returns for the dotted path, with any
// nested ciphertext decrypted under the effective secret of where it sits.
func (k *Kernel) ExportBranch(dotted string) (ir.IRValue, bool) {
	path := ir.ParsePath(dotted)
	v, ok := k.Read(path)
	if !ok {
		return nil, false
	}
	return k.decryptNested(path, v, 0), true
}

func (k *Kernel) decryptNested(path ir.Path, v ir.IRValue, depth int) ir.IRValue {
	if depth > maxPointerHops {
		return v
	}
	switch val := v.(type) {
	case ir.IRString:
		if !cipher.IsBlobString(string(val)) {
			return v
		}
		eff := k.EffectiveSecret(path)
		if eff == "" {
			return v
		}
		if dec, ok := cipher.Decrypt(string(val), eff, path); ok {
			return k.decryptNested(path, dec, depth+1)
		}
		return v
	case ir.IRObject:
		out := make(ir.IRObject, len(val))
		for key, child := range val {
			out[key] = k.decryptNested(path.Append(key), child, depth)
		}
		return out
	case ir.IRArray:
		out := make(ir.IRArray, len(val))
		for i, child := range val {
			out[i] = k.decryptNested(path, child, depth)
		}
		return out
	}
	return v
}
