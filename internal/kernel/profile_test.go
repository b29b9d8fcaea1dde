package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/thisme/internal/ir"
	"github.com/roach88/thisme/internal/operator"
)

func TestApply(t *testing.T) {
	k := newTestKernel(t)

	err := k.Apply(ir.Profile{
		Name: "social",
		Operators: []ir.OperatorDef{
			{Token: "$", Kind: "secret"},
			{Token: "like", Kind: "custom"},
		},
		Seed: []ir.SeedWrite{
			{Path: "ledger.host", Args: ir.IRArray{ir.IRString("localhost:8161")}},
			{Path: "wallet.$", Args: ir.IRArray{ir.IRString("s")}},
			{Path: "wallet.income", Args: ir.IRArray{ir.IRInt(100)}},
			{Path: "tags", Args: ir.IRArray{ir.IRString("a"), ir.IRString("b")}},
		},
	})
	require.NoError(t, err)

	kind, ok := k.OperatorKind("like")
	require.True(t, ok)
	assert.Equal(t, operator.KindCustom, kind)

	assert.Equal(t, ir.IRString("localhost:8161"), mustRead(t, k, "ledger.host"))
	assertHidden(t, k, "wallet")
	assert.Equal(t, ir.IRInt(100), mustRead(t, k, "wallet.income"))
	assert.Equal(t, ir.IRArray{ir.IRString("a"), ir.IRString("b")}, mustRead(t, k, "tags"))
	assert.Len(t, k.Thoughts(), 4)
}

func TestApply_SeedFailureNamesTheWrite(t *testing.T) {
	k := newTestKernel(t)

	err := k.Apply(ir.Profile{
		Name: "bad",
		Seed: []ir.SeedWrite{
			{Path: "ok", Args: ir.IRArray{ir.IRInt(1)}},
			{Path: "owner.@", Args: ir.IRArray{ir.IRString("x")}},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `seed[1] "owner.@"`)
	assert.Equal(t, operator.ErrCodeInvalidUsername, operator.ErrorCode(err))
	assert.Len(t, k.Thoughts(), 1)
}

func TestApply_ReservedToken(t *testing.T) {
	k := newTestKernel(t)

	err := k.Apply(ir.Profile{
		Name:      "reserved",
		Operators: []ir.OperatorDef{{Token: "+", Kind: "secret"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserved")
	assert.Empty(t, k.Thoughts())

	err = k.Apply(ir.Profile{
		Name:      "unknown",
		Operators: []ir.OperatorDef{{Token: "%", Kind: "teleport"}},
	})
	require.Error(t, err)
	_, ok := k.OperatorKind("%")
	assert.False(t, ok)
}
