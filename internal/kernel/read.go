package kernel

import (
	"github.com/roach88/thisme/internal/cipher"
	"github.com/roach88/thisme/internal/ir"
)

// Read resolves path. ok is false when the value is hidden.
//
// Under a secret scope the read is served from the scope's branch blob:
// the scope root itself is hidden, a scope without effective secret reads
// as null, and a missing or undecryptable blob is hidden. Elsewhere the
// index is consulted, pointers are followed, and ciphertext is decrypted
// with the effective secret of the requested path.
func (k *Kernel) Read(path ir.Path) (ir.IRValue, bool) {
	return k.read(path, 0)
}

func (k *Kernel) read(path ir.Path, depth int) (ir.IRValue, bool) {
	if depth > maxPointerHops {
		return nil, false
	}

	if scope, ok := k.branchScope(path); ok {
		return k.readBranch(path, scope, depth)
	}

	resolved, raw, status := k.resolveIndex(path)
	switch status {
	case lookupExhausted:
		return nil, false
	case lookupMissing:
		if !resolved.Equal(path) {
			// A pointer led to a path the index does not hold directly,
			// such as a secret branch or a pointer-aliased subtree.
			return k.read(resolved, depth+1)
		}
		if next, redirected := k.ancestorPointer(path); redirected {
			return k.read(next, depth+1)
		}
		return nil, false
	}

	switch v := raw.(type) {
	case nil:
		return nil, false
	case ir.IRIdentity:
		return v, true
	case ir.IRString:
		if !cipher.IsBlobString(string(v)) {
			return v, true
		}
		eff := k.EffectiveSecret(path)
		if eff == "" {
			return ir.IRNull{}, true
		}
		dec, ok := cipher.Decrypt(string(v), eff, resolved)
		if !ok {
			return ir.IRNull{}, true
		}
		return dec, true
	}
	return raw, true
}

func (k *Kernel) readBranch(path, scope ir.Path, depth int) (ir.IRValue, bool) {
	if len(path) == len(scope) {
		return nil, false
	}

	scopeSecret := k.EffectiveSecret(scope)
	if scopeSecret == "" {
		return ir.IRNull{}, true
	}
	blob, ok := k.branches.get(scope.String(), scopeSecret)
	if !ok {
		return nil, false
	}
	dec, ok := cipher.Decrypt(blob, scopeSecret, scope)
	if !ok {
		k.logger.Debug("branch decrypt failed", "scope", scope.String())
		return nil, false
	}

	var ref ir.IRValue = dec
	rel := path[len(scope):]
	for i, part := range rel {
		switch node := ref.(type) {
		case ir.IRPointer:
			return k.read(ir.ParsePath(node.Target).Append(rel[i:]...), depth+1)
		case ir.IRObject:
			child, ok := node[part]
			if !ok {
				return nil, false
			}
			ref = child
		default:
			return nil, false
		}
	}

	if ptr, ok := ref.(ir.IRPointer); ok {
		return k.read(ir.ParsePath(ptr.Target), depth+1)
	}
	return ref, true
}
