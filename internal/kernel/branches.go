package kernel

import (
	"github.com/roach88/thisme/internal/cipher"
	"github.com/roach88/thisme/internal/ir"
)

// selfKey holds a value written exactly at a scope root inside its branch.
const selfKey = "expression"

// branchStore holds encrypted branch blobs per scope root. Each scope keeps
// one blob per scope secret (a "universe"), so re-declaring an earlier
// secret brings that branch back unchanged.
type branchStore struct {
	blobs map[string]map[string]string // dotted scope -> scope secret -> blob
}

func newBranchStore() *branchStore {
	return &branchStore{blobs: make(map[string]map[string]string)}
}

func (b *branchStore) get(scope, scopeSecret string) (string, bool) {
	blob, ok := b.blobs[scope][scopeSecret]
	return blob, ok
}

func (b *branchStore) put(scope, scopeSecret, blob string) {
	universes, ok := b.blobs[scope]
	if !ok {
		universes = make(map[string]string)
		b.blobs[scope] = universes
	}
	universes[scopeSecret] = blob
}

// removeUnder drops every universe of every scope at or under prefix.
func (b *branchStore) removeUnder(prefix string) {
	for scope := range b.blobs {
		if ir.IsAtOrUnder(scope, prefix) {
			delete(b.blobs, scope)
		}
	}
}

// pruneEnclosing deletes target from every universe of each scope strictly
// above it. Scope interiors never reach the index, so a tombstone alone
// would leave the old value readable from the blob.
func (k *Kernel) pruneEnclosing(target ir.Path) error {
	for i := len(target) - 1; i >= 1; i-- {
		scope := target[:i]
		universes, ok := k.branches.blobs[scope.String()]
		if !ok {
			continue
		}
		rel := target[i:]
		for secret, blob := range universes {
			dec, ok := cipher.Decrypt(blob, secret, scope)
			if !ok {
				continue
			}
			branch, ok := dec.(ir.IRObject)
			if !ok || !deleteNested(branch, rel) {
				continue
			}
			next, err := cipher.Encrypt(branch, secret, scope)
			if err != nil {
				return err
			}
			universes[secret] = next
		}
	}
	return nil
}

func (b *branchStore) scopes() []string {
	out := make([]string, 0, len(b.blobs))
	for scope := range b.blobs {
		out = append(out, scope)
	}
	return out
}

// Branches returns the blob of each scope's current universe, keyed by
// dotted scope root.
func (k *Kernel) Branches() map[string]string {
	out := make(map[string]string)
	for _, scope := range k.branches.scopes() {
		secret := k.EffectiveSecret(ir.ParsePath(scope))
		if blob, ok := k.branches.get(scope, secret); ok {
			out[scope] = blob
		}
	}
	return out
}

// RestoreBranch installs a persisted blob as the current universe of scope.
// Used by hosts that rehydrate a kernel whose secrets were re-declared.
func (k *Kernel) RestoreBranch(scope ir.Path, blob string) bool {
	secret := k.EffectiveSecret(scope)
	if secret == "" || !cipher.IsBlobString(blob) {
		return false
	}
	k.branches.put(scope.String(), secret, blob)
	return true
}

// branchWrite decrypts the scope's current universe, sets rel to value and
// re-encrypts. It returns the scope secret and the new blob; blob is ""
// when the scope has no effective secret and nothing should be stored.
func (k *Kernel) branchWrite(scope, rel ir.Path, value ir.IRValue) (string, string, error) {
	scopeSecret := k.EffectiveSecret(scope)

	branch := ir.IRObject{}
	if scopeSecret != "" {
		if blob, ok := k.branches.get(scope.String(), scopeSecret); ok {
			if dec, ok := cipher.Decrypt(blob, scopeSecret, scope); ok {
				if obj, ok := dec.(ir.IRObject); ok {
					branch = obj
				}
			} else {
				k.logger.Debug("branch decrypt failed", "scope", scope.String())
			}
		}
	}

	if len(rel) == 0 {
		setChild(branch, selfKey, value)
	} else {
		setNested(branch, rel, value)
	}

	if scopeSecret == "" {
		return "", "", nil
	}
	blob, err := cipher.Encrypt(branch, scopeSecret, scope)
	if err != nil {
		return "", "", err
	}
	return scopeSecret, blob, nil
}

// setNested sets rel inside obj, replacing non-object intermediates.
func setNested(obj ir.IRObject, rel ir.Path, value ir.IRValue) {
	ref := obj
	for _, part := range rel[:len(rel)-1] {
		next, ok := ref[part].(ir.IRObject)
		if !ok {
			next = ir.IRObject{}
			ref[part] = next
		}
		ref = next
	}
	setChild(ref, rel[len(rel)-1], value)
}

// deleteNested removes rel from obj and reports whether anything was there.
func deleteNested(obj ir.IRObject, rel ir.Path) bool {
	ref := obj
	for _, part := range rel[:len(rel)-1] {
		next, ok := ref[part].(ir.IRObject)
		if !ok {
			return false
		}
		ref = next
	}
	last := rel[len(rel)-1]
	if _, ok := ref[last]; !ok {
		return false
	}
	delete(ref, last)
	return true
}

// setChild assigns value; an undefined value removes the key, matching how
// an undefined field disappears from the JSON encoding.
func setChild(obj ir.IRObject, key string, value ir.IRValue) {
	if value == nil {
		delete(obj, key)
		return
	}
	obj[key] = value
}
