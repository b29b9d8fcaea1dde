package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/thisme/internal/ir"
	"github.com/roach88/thisme/internal/operator"
)

func TestIsReadRequest(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"ledger.host", true},
		{" padded.path ", true},
		{"username", true},
		{"a-b_c9", true},
		{"_secret", true},
		{"~noise", true},
		{"@someone", true},
		{"hello world", false},
		{"9lives", false},
		{"", false},
		{"-", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isReadRequest(tt.in), "%q", tt.in)
	}
}

func TestNormalizeArgs(t *testing.T) {
	assert.Nil(t, normalizeArgs(nil))
	assert.Equal(t, "x", normalizeArgs([]any{"x"}))
	assert.Equal(t, []any{"a", 1}, normalizeArgs([]any{"a", 1}))
}

func TestDispatch_RootRead(t *testing.T) {
	k := newTestKernel(t)
	call(t, k, "ledger.host", "localhost:8161")

	r, err := k.Dispatch(ir.Root, "ledger.host")
	require.NoError(t, err)
	assert.Equal(t, ReplyRead, r.Kind)
	assert.True(t, r.Found)
	assert.Equal(t, ir.IRString("localhost:8161"), r.Value)

	r, err = k.Dispatch(ir.Root, "unknown")
	require.NoError(t, err)
	assert.Equal(t, ReplyRead, r.Kind)
	assert.False(t, r.Found)

	assert.Len(t, k.Thoughts(), 1, "reads commit nothing")
}

func TestDispatch_RootNoArgs(t *testing.T) {
	k := newTestKernel(t)

	r, err := k.Dispatch(ir.Root)
	require.NoError(t, err)
	assert.Equal(t, ReplyAccessor, r.Kind)
	assert.True(t, r.Path.IsRoot())
	assert.Empty(t, k.Thoughts())
}

func TestDispatch_RootWrite(t *testing.T) {
	k := newTestKernel(t)

	r, err := k.Dispatch(ir.Root, "hello world")
	require.NoError(t, err)
	assert.Equal(t, ReplyAccessor, r.Kind)
	require.NotNil(t, r.Thought)
	assert.Equal(t, "", r.Thought.Path)
	assert.Equal(t, ir.IRString("hello world"), mustRead(t, k, ""))

	r, err = k.Dispatch(ir.Root, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, ir.IRArray{ir.IRString("a"), ir.IRString("b")}, r.Thought.Value)
}

func TestDispatch_RootRejectsCallable(t *testing.T) {
	k := newTestKernel(t)

	_, err := k.Dispatch(ir.Root, func() any { return 1 })
	require.Error(t, err)
	assert.Equal(t, operator.ErrCodeUnsupportedValue, operator.ErrorCode(err))
	assert.Empty(t, k.Thoughts())
}

func TestDispatch_ChainsToScopeAfterOperator(t *testing.T) {
	k := newTestKernel(t)

	r, err := k.Dispatch(p("wallet._"), "s")
	require.NoError(t, err)
	assert.Equal(t, ReplyAccessor, r.Kind)
	assert.Equal(t, p("wallet"), r.Path)

	r, err = k.Dispatch(p("wallet.income"), 100)
	require.NoError(t, err)
	assert.Equal(t, p("wallet.income"), r.Path)

	r, err = k.Dispatch(p("old.-"))
	require.NoError(t, err)
	assert.Equal(t, p("old"), r.Path)
	require.NotNil(t, r.Thought)
	assert.True(t, r.Thought.IsTombstone())
}

func TestDispatch_CustomTokenChainsToScope(t *testing.T) {
	k := newTestKernel(t)
	_, err := k.Dispatch(p("+"), "like", "custom")
	require.NoError(t, err)

	r, err := k.Dispatch(p("post.like"), "alice")
	require.NoError(t, err)
	assert.Equal(t, p("post"), r.Path)
	assert.Equal(t, "post.like", r.Thought.Path)
}

func TestDispatch_OperatorValues(t *testing.T) {
	k := newTestKernel(t)
	call(t, k, "a", 1)

	r, err := k.Dispatch(p("="), func() any { return "computed" })
	require.NoError(t, err)
	assert.Equal(t, ReplyValue, r.Kind)
	assert.Equal(t, ir.IRString("computed"), r.Value)

	r, err = k.Dispatch(p("?"), "a", "missing")
	require.NoError(t, err)
	assert.Equal(t, ReplyValue, r.Kind)
	assert.Equal(t, ir.IRArray{ir.IRInt(1), ir.IRNull{}}, r.Value)
}

func TestDispatch_DefineStaysOnPath(t *testing.T) {
	k := newTestKernel(t)

	r, err := k.Dispatch(p("+"), "$", "secret")
	require.NoError(t, err)
	assert.Equal(t, ReplyAccessor, r.Kind)
	assert.Nil(t, r.Thought)
	assert.Equal(t, p("+"), r.Path)
}

func TestDispatch_InvalidIdentity(t *testing.T) {
	k := newTestKernel(t)

	_, err := k.Dispatch(p("owner.@"), "x")
	require.Error(t, err)
	assert.True(t, operator.IsValidationError(err))
	assert.Empty(t, k.Thoughts())
}
