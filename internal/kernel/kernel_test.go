package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/thisme/internal/cipher"
	"github.com/roach88/thisme/internal/ir"
	"github.com/roach88/thisme/internal/operator"
	"github.com/roach88/thisme/internal/testutil"
)

func newTestKernel(t *testing.T, opts ...Option) *Kernel {
	t.Helper()
	base := []Option{
		WithLogger(testutil.DiscardLogger()),
		WithClock(testutil.NewDeterministicClock()),
		WithNow(testutil.FixedTime(testutil.Epoch)),
		WithSessionIDGenerator(testutil.NewFixedSessionGenerator("test-session")),
	}
	k, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return k
}

func p(dotted string) ir.Path {
	return ir.ParsePath(dotted)
}

// call postulates at a dotted path and requires success.
func call(t *testing.T, k *Kernel, dotted string, expr any) Outcome {
	t.Helper()
	out, err := k.Postulate(p(dotted), expr)
	require.NoError(t, err)
	return out
}

func mustRead(t *testing.T, k *Kernel, dotted string) ir.IRValue {
	t.Helper()
	v, ok := k.Read(p(dotted))
	require.True(t, ok, "expected %q to be readable", dotted)
	return v
}

func assertHidden(t *testing.T, k *Kernel, dotted string) {
	t.Helper()
	v, ok := k.Read(p(dotted))
	assert.False(t, ok, "expected %q to be hidden, got %v", dotted, v)
	assert.Nil(t, v)
}

func TestNew_Empty(t *testing.T) {
	k := newTestKernel(t)

	assert.Empty(t, k.Thoughts())
	assert.Empty(t, k.Index())
	assert.Empty(t, k.Branches())
	assert.Equal(t, "test-session", k.Session().ID)
	assert.Equal(t, testutil.Epoch.UnixMilli(), k.Session().CreatedAt)

	_, ok := k.Identity()
	assert.False(t, ok)

	assert.Equal(t, []string{"-", "->", "=", "?", "@", "_", "__", "~"}, k.Operators())
}

func TestNew_Seed(t *testing.T) {
	k := newTestKernel(t, WithSeed(map[string]any{"kind": "person"}))

	thoughts := k.Thoughts()
	require.Len(t, thoughts, 1)
	assert.Equal(t, "", thoughts[0].Path)
	assert.Equal(t, int64(1), thoughts[0].Seq)
	assert.Equal(t, ir.IRObject{"kind": ir.IRString("person")}, mustRead(t, k, ""))
}

func TestNew_SeedRejectsFloat(t *testing.T) {
	_, err := New(WithLogger(testutil.DiscardLogger()), WithSeed(1.5))
	require.Error(t, err)
	assert.Equal(t, operator.ErrCodeUnsupportedValue, operator.ErrorCode(err))
}

func TestNew_Identity(t *testing.T) {
	k := newTestKernel(t, WithIdentity("Jabellae", "pw"))

	id, ok := k.Identity()
	require.True(t, ok)
	assert.Equal(t, "jabellae", id.Username)

	root := "0x" + cipher.Keccak256Hex("pw"+"jabellae")
	public := "0x" + cipher.Keccak256Hex(root+"::public")
	assert.Equal(t, root, id.IdentityRoot)
	assert.Equal(t, public, id.PublicKey)
	assert.Equal(t, "0x"+cipher.Keccak256Hex("jabellae::"+public), id.IdentityHash)
	assert.Equal(t, id.IdentityRoot, k.Session().IdentityRoot)

	thoughts := k.Thoughts()
	require.Len(t, thoughts, 2)
	assert.Equal(t, ir.OpIdentity, thoughts[0].Operator)
	assert.Equal(t, ir.IRIdentity{ID: "jabellae"}, thoughts[0].Value)
	assert.Equal(t, ir.OpSecret, thoughts[1].Operator)
	assert.Equal(t, ir.IRString(ir.Redacted), thoughts[1].Value)
	assert.NotEmpty(t, thoughts[1].EffectiveSecret)
}

func TestNew_IdentityWithoutSecret(t *testing.T) {
	k := newTestKernel(t, WithIdentity("jabellae", ""))

	require.Len(t, k.Thoughts(), 1)
	assert.Equal(t, ir.IRIdentity{ID: "jabellae"}, mustRead(t, k, ""))
}

func TestNew_IdentityInvalidUsername(t *testing.T) {
	_, err := New(WithLogger(testutil.DiscardLogger()), WithIdentity("no", "pw"))
	require.Error(t, err)
	assert.Equal(t, operator.ErrCodeInvalidUsername, operator.ErrorCode(err))
}

func TestDeriveIdentity_Deterministic(t *testing.T) {
	a := DeriveIdentity("alice", "one")
	b := DeriveIdentity("alice", "two")

	assert.NotEqual(t, a.IdentityRoot, b.IdentityRoot)
	assert.NotEqual(t, a.PublicKey, b.PublicKey)
	assert.Equal(t, a, DeriveIdentity("alice", "one"))
}

// The end-to-end example: plain ledger data next to a secret wallet.
func TestKernel_LedgerAndWallet(t *testing.T) {
	k := newTestKernel(t, WithIdentity("jabellae", ""))

	call(t, k, "ledger.host", "localhost:8161")
	assert.Equal(t, ir.IRString("localhost:8161"), mustRead(t, k, "ledger.host"))

	call(t, k, "wallet._", "secret")
	call(t, k, "wallet.income", 100)

	assertHidden(t, k, "wallet")
	assert.Equal(t, ir.IRInt(100), mustRead(t, k, "wallet.income"))
	assert.Contains(t, k.Branches(), "wallet")
}

func TestKernel_ThoughtsAreSequencedAndVerifiable(t *testing.T) {
	k := newTestKernel(t)

	call(t, k, "a", "1")
	call(t, k, "box._", "k")
	call(t, k, "box.x", 2)
	call(t, k, "a.-", nil)

	thoughts := k.Thoughts()
	require.Len(t, thoughts, 4)
	for i, th := range thoughts {
		assert.Equal(t, int64(i+1), th.Seq)
		assert.Equal(t, testutil.Epoch.UnixMilli(), th.Timestamp)
		ok, err := ir.VerifyThought(th)
		require.NoError(t, err)
		assert.True(t, ok, "thought %d fingerprint", i)
	}
	assert.Equal(t, int64(4), k.Seq())
}

func TestKernel_SameCallsSameLog(t *testing.T) {
	run := func() []ir.Thought {
		k := newTestKernel(t)
		call(t, k, "_", "root")
		call(t, k, "profile.name", "ana")
		call(t, k, "vault._", "v")
		call(t, k, "vault.pin", 1234)
		call(t, k, "link.__", "profile.name")
		return k.Thoughts()
	}
	assert.Equal(t, run(), run())
}

func TestKernel_ThoughtsIsCopy(t *testing.T) {
	k := newTestKernel(t)
	call(t, k, "a", "x")

	thoughts := k.Thoughts()
	thoughts[0].Path = "tampered"
	assert.Equal(t, "a", k.Thoughts()[0].Path)
}
