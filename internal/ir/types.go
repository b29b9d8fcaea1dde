package ir

import (
	"encoding/json"
	"fmt"
)

// Thought is one immutable commit record in a kernel's log.
type Thought struct {
	Seq             int64   `json:"seq"`                  // Logical clock, strictly increasing
	Path            string  `json:"path"`                 // Dotted target path, "" for root
	Operator        string  `json:"operator,omitempty"`   // Operator token, "" for a plain write
	Expression      IRValue `json:"expression,omitempty"` // What the caller wrote
	Value           IRValue `json:"value,omitempty"`      // What was stored (possibly ciphertext)
	EffectiveSecret string  `json:"effective_secret"`     // Derived seed, never the raw secret
	Hash            string  `json:"hash"`                 // Fingerprint, 8 hex digits
	Timestamp       int64   `json:"timestamp"`            // Unix milliseconds
}

// IsTombstone reports whether t records a removal.
func (t Thought) IsTombstone() bool {
	return t.Operator == OpRemove
}

// UnmarshalJSON decodes a Thought, restoring IRValue fields.
func (t *Thought) UnmarshalJSON(data []byte) error {
	var raw struct {
		Seq             int64           `json:"seq"`
		Path            string          `json:"path"`
		Operator        string          `json:"operator"`
		Expression      json.RawMessage `json:"expression"`
		Value           json.RawMessage `json:"value"`
		EffectiveSecret string          `json:"effective_secret"`
		Hash            string          `json:"hash"`
		Timestamp       int64           `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	expr, err := decodeOptional(raw.Expression)
	if err != nil {
		return fmt.Errorf("thought expression: %w", err)
	}
	val, err := decodeOptional(raw.Value)
	if err != nil {
		return fmt.Errorf("thought value: %w", err)
	}

	*t = Thought{
		Seq:             raw.Seq,
		Path:            raw.Path,
		Operator:        raw.Operator,
		Expression:      expr,
		Value:           val,
		EffectiveSecret: raw.EffectiveSecret,
		Hash:            raw.Hash,
		Timestamp:       raw.Timestamp,
	}
	return nil
}

func decodeOptional(data json.RawMessage) (IRValue, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return UnmarshalIRValue(data)
}

// Canonical operator tokens recorded in the log. A plain write records no
// operator, even at a custom token.
const (
	OpSecret   = "_"
	OpNoise    = "~"
	OpPointer  = "__"
	OpArrow    = "->"
	OpIdentity = "@"
	OpEval     = "="
	OpQuery    = "?"
	OpRemove   = "-"
	OpDefine   = "+"
)

// Redacted is the value of secret and noise declarations, and their
// expression unless the declared string was empty.
const Redacted = "***"

// Session describes one kernel instance as persisted by a host.
type Session struct {
	ID           string `json:"id"`
	IdentityRoot string `json:"identity_root,omitempty"`
	PublicKey    string `json:"public_key,omitempty"`
	IdentityHash string `json:"identity_hash,omitempty"`
	CreatedAt    int64  `json:"created_at"` // Unix milliseconds
}

// Profile is a compiled operator profile: token definitions applied in
// order, followed by seed writes.
type Profile struct {
	Name      string        `json:"name"`
	Operators []OperatorDef `json:"operators"`
	Seed      []SeedWrite   `json:"seed,omitempty"`
}

// OperatorDef binds a token to a semantic kind.
type OperatorDef struct {
	Token string `json:"token"`
	Kind  string `json:"kind"`
}

// SeedWrite is a postulate applied when a profile is loaded.
type SeedWrite struct {
	Path string  `json:"path"`
	Args IRArray `json:"args"`
}
