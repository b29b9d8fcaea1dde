package kernel

import "github.com/roach88/thisme/internal/ir"

// maxPointerHops bounds pointer resolution in the index plane.
const maxPointerHops = 8

func (k *Kernel) rebuildIndex() {
	k.index = buildIndex(k.thoughts, func(p ir.Path) bool {
		_, ok := k.branchScope(p)
		return ok
	})
}

// buildIndex replays thoughts in order. A tombstone deletes every entry at
// or under its path (all entries for the root); records inside a secret
// scope are skipped; any other record sets its path to its stored value.
func buildIndex(thoughts []ir.Thought, inScope func(ir.Path) bool) map[string]ir.IRValue {
	next := make(map[string]ir.IRValue)
	for _, t := range thoughts {
		if t.IsTombstone() {
			for key := range next {
				if ir.IsAtOrUnder(key, t.Path) {
					delete(next, key)
				}
			}
			continue
		}
		if inScope(ir.ParsePath(t.Path)) {
			continue
		}
		next[t.Path] = t.Value
	}
	return next
}

// ReplayIndex derives the index from a log alone.
//
// Secret scope roots are reconstructed from the redacted "_" declarations
// and the "-" tombstones that follow them; an empty declaration closes a
// scope, so a persisted log rebuilds the
// same index the live kernel holds.
func ReplayIndex(thoughts []ir.Thought) map[string]ir.IRValue {
	scopes := make(map[string]bool)
	for _, t := range thoughts {
		switch {
		case t.IsTombstone():
			for scope := range scopes {
				if ir.IsAtOrUnder(scope, t.Path) {
					delete(scopes, scope)
				}
			}
		case t.Operator == ir.OpSecret && t.Path != "":
			if ir.Equal(t.Expression, ir.IRString("")) {
				delete(scopes, t.Path)
			} else {
				scopes[t.Path] = true
			}
		}
	}

	return buildIndex(thoughts, func(p ir.Path) bool {
		for i := len(p); i >= 1; i-- {
			if scopes[p[:i].String()] {
				return true
			}
		}
		return false
	})
}

// lookup is the outcome of an index resolution.
type lookup int

const (
	lookupFound lookup = iota
	lookupMissing
	lookupExhausted
)

// resolveIndex looks path up in the index, following pointer markers
// stored exactly at the looked-up path. It returns the last path looked
// up, which is where a found value was stored.
func (k *Kernel) resolveIndex(path ir.Path) (ir.Path, ir.IRValue, lookup) {
	cur := path
	for hop := 0; hop < maxPointerHops; hop++ {
		raw, ok := k.index[cur.String()]
		if !ok {
			return cur, nil, lookupMissing
		}
		ptr, isPtr := raw.(ir.IRPointer)
		if !isPtr {
			return cur, raw, lookupFound
		}
		cur = ir.ParsePath(ptr.Target)
	}
	return cur, nil, lookupExhausted
}

// ancestorPointer finds the deepest proper, non-root ancestor of path that
// holds a pointer and rewrites path through it.
func (k *Kernel) ancestorPointer(path ir.Path) (ir.Path, bool) {
	for i := len(path) - 1; i >= 1; i-- {
		if ptr, ok := k.index[path[:i].String()].(ir.IRPointer); ok {
			return ir.ParsePath(ptr.Target).Append(path[i:]...), true
		}
	}
	return nil, false
}
