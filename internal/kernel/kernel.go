package kernel

import (
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/roach88/thisme/internal/ir"
	"github.com/roach88/thisme/internal/operator"
)

// Kernel owns one semantic namespace: its operator registry, secret and
// noise declarations, branch blobs, commit log and derived index.
//
// INVARIANTS:
//   - thoughts is append-only; seq is strictly increasing
//   - index is a pure function of thoughts and the current secret scopes
//   - every Postulate appends at most one Thought
//   - raw secrets and noises are never logged or committed
type Kernel struct {
	operators *operator.Registry
	secrets   map[string]string // dotted scope -> declared secret
	noises    map[string]string // dotted scope -> declared noise
	branches  *branchStore
	index     map[string]ir.IRValue
	thoughts  []ir.Thought

	clock      Sequencer
	now        func() time.Time
	logger     *slog.Logger
	sessionGen SessionIDGenerator
	session    ir.Session
	identity   *Identity

	// construction-time writes
	username   string
	rootSecret string
	seed       any
	hasSeed    bool
}

// Option configures a Kernel.
type Option func(*Kernel)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(k *Kernel) {
		k.logger = l
	}
}

// WithClock sets the logical clock used for seq values.
func WithClock(c Sequencer) Option {
	return func(k *Kernel) {
		k.clock = c
	}
}

// WithNow sets the wall-clock source for record timestamps.
func WithNow(now func() time.Time) Option {
	return func(k *Kernel) {
		k.now = now
	}
}

// WithSessionIDGenerator sets how the session id is chosen.
// Defaults to UUIDv7Generator.
func WithSessionIDGenerator(g SessionIDGenerator) Option {
	return func(k *Kernel) {
		k.sessionGen = g
	}
}

// WithIdentity creates the identity-bearing variant: the root identity is
// set to username and, when secret is non-empty, secret is declared at the
// root. Derived identity fields appear in Export.
func WithIdentity(username, secret string) Option {
	return func(k *Kernel) {
		k.username = username
		k.rootSecret = secret
	}
}

// WithSeed commits expr as one root-level write during construction.
func WithSeed(expr any) Option {
	return func(k *Kernel) {
		k.seed = expr
		k.hasSeed = true
	}
}

// New creates a Kernel with default operator bindings and an empty log.
//
// Returns an error only when a construction-time write is rejected
// (invalid identity username, unsupported seed value).
func New(opts ...Option) (*Kernel, error) {
	k := &Kernel{
		operators:  operator.NewRegistry(),
		secrets:    make(map[string]string),
		noises:     make(map[string]string),
		branches:   newBranchStore(),
		index:      make(map[string]ir.IRValue),
		clock:      NewClock(),
		now:        time.Now,
		logger:     slog.Default(),
		sessionGen: UUIDv7Generator{},
	}

	for _, opt := range opts {
		opt(k)
	}

	k.session = ir.Session{
		ID:        k.sessionGen.Generate(),
		CreatedAt: k.now().UnixMilli(),
	}

	if k.username != "" {
		username, err := operator.NormalizeUsername(k.username)
		if err != nil {
			return nil, fmt.Errorf("kernel identity: %w", err)
		}
		id := DeriveIdentity(username, k.rootSecret)
		k.identity = &id
		k.session.IdentityRoot = id.IdentityRoot
		k.session.PublicKey = id.PublicKey
		k.session.IdentityHash = id.IdentityHash

		if _, err := k.Postulate(ir.Path{ir.OpIdentity}, username); err != nil {
			return nil, fmt.Errorf("kernel identity: %w", err)
		}
		if k.rootSecret != "" {
			if _, err := k.Postulate(ir.Path{ir.OpSecret}, k.rootSecret); err != nil {
				return nil, fmt.Errorf("kernel root secret: %w", err)
			}
		}
	}

	if k.hasSeed {
		if _, err := k.Postulate(ir.Root, k.seed); err != nil {
			return nil, fmt.Errorf("kernel seed: %w", err)
		}
	}

	k.rebuildIndex()
	return k, nil
}

// Thoughts returns a copy of the commit log in append order.
func (k *Kernel) Thoughts() []ir.Thought {
	out := make([]ir.Thought, len(k.thoughts))
	copy(out, k.thoughts)
	return out
}

// Index returns a snapshot of the derived index (dotted path -> raw value).
func (k *Kernel) Index() map[string]ir.IRValue {
	return maps.Clone(k.index)
}

// OperatorKind returns the kind bound to token.
func (k *Kernel) OperatorKind(token string) (operator.Kind, bool) {
	return k.operators.Kind(token)
}

// Operators returns all bound operator tokens in sorted order.
func (k *Kernel) Operators() []string {
	return k.operators.Tokens()
}

// Session describes this kernel for persistence.
func (k *Kernel) Session() ir.Session {
	return k.session
}

// Identity returns the derived identity of the identity-bearing variant.
func (k *Kernel) Identity() (Identity, bool) {
	if k.identity == nil {
		return Identity{}, false
	}
	return *k.identity, true
}

// Seq returns the last seq stamped by this kernel's clock.
func (k *Kernel) Seq() int64 {
	return k.clock.Current()
}
