package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/thisme/internal/ir"
)

func pointerSeed(path, target string) ir.SeedWrite {
	return ir.SeedWrite{Path: path, Args: ir.IRArray{ir.IRString(target)}}
}

func TestAnalyzeCycles_Empty(t *testing.T) {
	assert.Empty(t, AnalyzeCycles(&ir.Profile{}))
}

func TestAnalyzeCycles_Chain(t *testing.T) {
	p := &ir.Profile{Seed: []ir.SeedWrite{
		pointerSeed("a.__", "b"),
		pointerSeed("b.->", "c"),
		{Path: "c", Args: ir.IRArray{ir.IRInt(1)}},
	}}
	assert.Empty(t, AnalyzeCycles(p))
}

func TestAnalyzeCycles_TwoNodeCycle(t *testing.T) {
	p := &ir.Profile{Seed: []ir.SeedWrite{
		pointerSeed("b.__", "a"),
		pointerSeed("a.__", "b"),
	}}

	warnings := AnalyzeCycles(p)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"a", "b", "a"}, warnings[0].Path)
	assert.Equal(t, "warning", warnings[0].Level)
	assert.Contains(t, warnings[0].Message, "a -> b -> a")
}

func TestAnalyzeCycles_SelfLoopThroughAncestor(t *testing.T) {
	p := &ir.Profile{Seed: []ir.SeedWrite{
		pointerSeed("a.__", "a.inner"),
	}}

	warnings := AnalyzeCycles(p)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"a", "a"}, warnings[0].Path)
}

func TestAnalyzeCycles_CustomPointerToken(t *testing.T) {
	p := &ir.Profile{
		Operators: []ir.OperatorDef{{Token: "=>", Kind: "pointer"}},
		Seed: []ir.SeedWrite{
			pointerSeed("x.=>", "y"),
			pointerSeed("y.=>", ".x"),
		},
	}

	warnings := AnalyzeCycles(p)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"x", "y", "x"}, warnings[0].Path)
}

func TestAnalyzeCycles_RebindingDropsDefaultPointer(t *testing.T) {
	p := &ir.Profile{
		Operators: []ir.OperatorDef{{Token: "__", Kind: "custom"}},
		Seed: []ir.SeedWrite{
			pointerSeed("a.__", "b"),
			pointerSeed("b.__", "a"),
		},
	}
	assert.Empty(t, AnalyzeCycles(p))
}
