package kernel

import (
	"fmt"

	"github.com/roach88/thisme/internal/cipher"
	"github.com/roach88/thisme/internal/ir"
	"github.com/roach88/thisme/internal/operator"
)

// Outcome reports what one Postulate did. Both fields nil means the call
// had an effect without a record (define) or produced nothing.
type Outcome struct {
	// Thought is the record appended to the log, if any.
	Thought *ir.Thought

	// Value is an operator result returned instead of a record
	// (eval thunk or query at the root).
	Value ir.IRValue
}

// Postulate applies one call at path. Operator recognition happens first;
// an unrecognized call is a plain write.
func (k *Kernel) Postulate(path ir.Path, expr any) (Outcome, error) {
	return k.postulate(path, expr, "")
}

func (k *Kernel) postulate(path ir.Path, expr any, op string) (Outcome, error) {
	call, err := operator.Recognize(k.operators, path, expr)
	if err != nil {
		return Outcome{}, err
	}

	switch c := call.(type) {
	case operator.DefineCall:
		if err := k.operators.Define(c.Op, c.Kind); err != nil {
			return Outcome{}, err
		}
		k.logger.Debug("operator defined", "token", c.Op, "kind", c.Kind)
		return Outcome{}, nil

	case operator.EvalThunkCall:
		v, err := k.toValue(c.Target, c.Thunk())
		if err != nil {
			return Outcome{}, err
		}
		if c.Target.IsRoot() {
			return Outcome{Value: v}, nil
		}
		return k.postulate(c.Target, v, ir.OpEval)

	case operator.EvalAssignCall:
		return k.postulate(c.Target.Append(c.Name), c.Expr, ir.OpEval)

	case operator.QueryCall:
		out, err := k.query(c)
		if err != nil {
			return Outcome{}, err
		}
		if c.Target.IsRoot() {
			return Outcome{Value: out}, nil
		}
		return k.postulate(c.Target, out, ir.OpQuery)

	case operator.RemoveCall:
		t, err := k.removeSubtree(c.Target)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Thought: &t}, nil

	case operator.SecretCall:
		k.secrets[c.Scope.String()] = c.Secret
		return k.declare(c.Scope, ir.OpSecret, c.Secret)

	case operator.NoiseCall:
		k.noises[c.Scope.String()] = c.Noise
		return k.declare(c.Scope, ir.OpNoise, c.Noise)

	case operator.PointerCall:
		if op == "" {
			op = ir.OpPointer
		}
		return k.write(c.Target, ir.IRPointer{Target: c.Pointer}, op)

	case operator.IdentityCall:
		if op == "" {
			op = ir.OpIdentity
		}
		return k.write(c.Target, ir.IRIdentity{ID: c.ID}, op)

	case operator.PlainWrite:
		v, err := k.toValue(c.Path, expr)
		if err != nil {
			return Outcome{}, err
		}
		return k.write(c.Path, v, op)
	}

	return Outcome{}, fmt.Errorf("unhandled operator call %T", call)
}

// query reads every requested path; hidden reads become nil for a
// transform and null in the default list result.
func (k *Kernel) query(c operator.QueryCall) (ir.IRValue, error) {
	values := make([]ir.IRValue, len(c.Paths))
	for i, p := range c.Paths {
		values[i], _ = k.Read(p)
	}

	if c.Transform != nil {
		return k.toValue(c.Target, c.Transform(values...))
	}

	out := make(ir.IRArray, len(values))
	for i, v := range values {
		if v == nil {
			v = ir.IRNull{}
		}
		out[i] = v
	}
	return out, nil
}

// write commits value at target. Under a secret scope the value goes into
// the scope's branch blob and the record keeps the plain expression;
// outside any scope an effective secret encrypts the stored value, except
// for markers and eval/query results.
func (k *Kernel) write(target ir.Path, value ir.IRValue, op string) (Outcome, error) {
	eff := k.EffectiveSecret(target)
	stored := value

	var (
		branchScope  ir.Path
		branchSecret string
		branchBlob   string
	)
	if scope, ok := k.branchScope(target); ok {
		secret, blob, err := k.branchWrite(scope, target[len(scope):], value)
		if err != nil {
			return Outcome{}, err
		}
		branchScope, branchSecret, branchBlob = scope, secret, blob
	} else if eff != "" && !ir.IsMarker(value) && op != ir.OpEval && op != ir.OpQuery {
		blob, err := cipher.Encrypt(value, eff, target)
		if err != nil {
			return Outcome{}, err
		}
		stored = ir.IRString(blob)
	}

	t, err := k.newThought(target.String(), op, value, stored, eff)
	if err != nil {
		return Outcome{}, err
	}
	if branchBlob != "" {
		k.branches.put(branchScope.String(), branchSecret, branchBlob)
	}
	k.append(t)
	return Outcome{Thought: &t}, nil
}

// declare commits a redacted secret or noise declaration at scope. An
// empty declaration keeps an empty expression so a replay can tell it
// opens no scope.
func (k *Kernel) declare(scope ir.Path, op, declared string) (Outcome, error) {
	redacted := ir.IRString(ir.Redacted)
	expr := redacted
	if declared == "" {
		expr = ir.IRString("")
	}
	t, err := k.newThought(scope.String(), op, expr, redacted, k.EffectiveSecret(scope))
	if err != nil {
		return Outcome{}, err
	}
	k.append(t)
	return Outcome{Thought: &t}, nil
}

// removeSubtree drops every secret, noise and branch at or under target,
// prunes target out of the branches of enclosing scopes and appends a
// tombstone. The root target clears everything.
func (k *Kernel) removeSubtree(target ir.Path) (ir.Thought, error) {
	if err := k.pruneEnclosing(target); err != nil {
		return ir.Thought{}, err
	}

	prefix := target.String()
	for key := range k.secrets {
		if ir.IsAtOrUnder(key, prefix) {
			delete(k.secrets, key)
		}
	}
	for key := range k.noises {
		if ir.IsAtOrUnder(key, prefix) {
			delete(k.noises, key)
		}
	}
	k.branches.removeUnder(prefix)

	tomb := ir.IRString(ir.OpRemove)
	t, err := k.newThought(prefix, ir.OpRemove, tomb, tomb, k.EffectiveSecret(target))
	if err != nil {
		return ir.Thought{}, err
	}
	k.append(t)
	return t, nil
}

func (k *Kernel) newThought(path, op string, expression, value ir.IRValue, eff string) (ir.Thought, error) {
	hash, err := ir.Fingerprint(path, op, expression, value, eff)
	if err != nil {
		return ir.Thought{}, operator.NewUnsupportedValueError(path, err)
	}
	return ir.Thought{
		Seq:             k.clock.Next(),
		Path:            path,
		Operator:        op,
		Expression:      expression,
		Value:           value,
		EffectiveSecret: eff,
		Hash:            hash,
		Timestamp:       k.now().UnixMilli(),
	}, nil
}

func (k *Kernel) append(t ir.Thought) {
	k.thoughts = append(k.thoughts, t)
	k.rebuildIndex()
	k.logger.Debug("thought committed",
		"seq", t.Seq,
		"path", t.Path,
		"operator", t.Operator,
		"hash", t.Hash,
	)
}

func (k *Kernel) toValue(path ir.Path, v any) (ir.IRValue, error) {
	iv, err := ir.FromGo(v)
	if err != nil {
		return nil, operator.NewUnsupportedValueError(path.String(), err)
	}
	return iv, nil
}
