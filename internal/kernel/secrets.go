package kernel

import "github.com/roach88/thisme/internal/ir"

const rootSeed = "root"

// EffectiveSecret derives the secret governing path from every secret and
// noise declared along it.
//
// The deepest noise on the path (including the root) restarts the chain
// from hash("noise::"+noise); without noise a root secret seeds it. Each
// non-empty secret declared from depth 1 down to path is then folded in,
// skipping secrets above a non-root noise. A chain that never moved from
// the initial seed yields "".
func (k *Kernel) EffectiveSecret(path ir.Path) string {
	noiseKey, noiseValue, hasNoise := "", "", false
	if v, ok := k.noises[""]; ok {
		noiseValue, hasNoise = v, true
	}
	for i := 1; i <= len(path); i++ {
		key := path[:i].String()
		if v, ok := k.noises[key]; ok {
			noiseKey, noiseValue, hasNoise = key, v, true
		}
	}

	seed := rootSeed
	if noiseValue != "" {
		seed = ir.HashString("noise::" + noiseValue)
	} else if s := k.secrets[""]; s != "" {
		seed = ir.HashString(seed + "::" + s)
	}

	for i := 1; i <= len(path); i++ {
		key := path[:i].String()
		s := k.secrets[key]
		if s == "" {
			continue
		}
		if hasNoise && !ir.IsAtOrUnder(key, noiseKey) {
			continue
		}
		seed = ir.HashString(seed + "::" + s)
	}

	if seed == rootSeed {
		return ""
	}
	return seed
}

// branchScope returns the deepest non-root path prefix carrying a
// non-empty secret. A root secret alone is not a branch scope.
func (k *Kernel) branchScope(path ir.Path) (ir.Path, bool) {
	for i := len(path); i >= 1; i-- {
		if k.secrets[path[:i].String()] != "" {
			return path[:i].Clone(), true
		}
	}
	return nil, false
}
