package kernel

import (
	"fmt"

	"github.com/roach88/thisme/internal/ir"
	"github.com/roach88/thisme/internal/operator"
)

// Apply loads a compiled operator profile: every token definition in
// order, then every seed write through Dispatch. Definitions are checked
// before anything is applied.
func (k *Kernel) Apply(p ir.Profile) error {
	for _, def := range p.Operators {
		if def.Token == "" || def.Token == ir.OpDefine {
			return fmt.Errorf("profile %s: operator %q is reserved", p.Name, def.Token)
		}
		if !operator.ValidKinds[operator.Kind(def.Kind)] {
			return fmt.Errorf("profile %s: operator %q: unknown kind %q", p.Name, def.Token, def.Kind)
		}
	}

	for _, def := range p.Operators {
		if _, err := k.Postulate(ir.Path{ir.OpDefine}, []any{def.Token, def.Kind}); err != nil {
			return fmt.Errorf("profile %s: define %q: %w", p.Name, def.Token, err)
		}
		if kind, ok := k.operators.Kind(def.Token); !ok || string(kind) != def.Kind {
			return fmt.Errorf("profile %s: operator %q was not bound", p.Name, def.Token)
		}
	}

	for i, seed := range p.Seed {
		args := make([]any, len(seed.Args))
		for j, a := range seed.Args {
			args[j] = a
		}
		if _, err := k.Dispatch(ir.ParsePath(seed.Path), args...); err != nil {
			return fmt.Errorf("profile %s: seed[%d] %q: %w", p.Name, i, seed.Path, err)
		}
	}

	k.logger.Info("profile applied",
		"profile", p.Name,
		"operators", len(p.Operators),
		"seed", len(p.Seed),
	)
	return nil
}
