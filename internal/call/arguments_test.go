package call

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArguments_GetPositional(t *testing.T) {
	args := NewArguments("a", "b", "c")

	tests := []struct {
		position int
		want     any
	}{
		{0, "a"},
		{2, "c"},
		{-1, "c"},
		{-3, "a"},
	}

	for _, tt := range tests {
		got, err := args.Get(tt.position)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "position %d", tt.position)
	}
}

func TestArguments_UndefinedPosition(t *testing.T) {
	args := NewArguments("a")

	_, err := args.Get(1)
	assert.True(t, IsUndefinedArgument(err))

	_, err = args.Get(-2)
	assert.True(t, IsUndefinedArgument(err))

	err = args.Set(5, "x")
	assert.True(t, IsUndefinedArgument(err))
	assert.Contains(t, err.Error(), "position 5")
}

func TestArguments_MutationIsVisibleToAllHolders(t *testing.T) {
	args := NewArguments(1, 2)
	holder := args

	require.NoError(t, args.Set(0, 10))
	got, err := holder.Get(0)
	require.NoError(t, err)
	assert.Equal(t, 10, got)

	detached := args.Copy()
	require.NoError(t, detached.Set(1, 20))
	got, _ = args.Get(1)
	assert.Equal(t, 2, got, "copy must not share cells")
}

func TestArguments_Named(t *testing.T) {
	args := NewArgumentsFrom(Argument{Value: "pos"}, Named("id", 7), Named("name", "x"))

	assert.Equal(t, 3, args.Len())
	assert.True(t, args.HasNamed("id"))
	assert.Equal(t, "id", args.Name(1))
	assert.Equal(t, "", args.Name(0))

	got, err := args.GetNamed("id")
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	byPosition, _ := args.Get(1)
	assert.Equal(t, 7, byPosition, "named slots are also positional")

	args.SetNamed("id", 8)
	byPosition, _ = args.Get(1)
	assert.Equal(t, 8, byPosition)

	args.SetNamed("extra", true)
	assert.Equal(t, 4, args.Len())

	_, err = args.GetNamed("missing")
	assert.True(t, IsUndefinedArgument(err))
}

func TestArguments_RepeatedNameOverwrites(t *testing.T) {
	args := NewArgumentsFrom(Named("a", 1), Named("a", 2))

	assert.Equal(t, 1, args.Len())
	got, _ := args.GetNamed("a")
	assert.Equal(t, 2, got)
}

func TestArguments_NilBehavesEmpty(t *testing.T) {
	var args *Arguments

	assert.Equal(t, 0, args.Len())
	assert.Empty(t, args.Values())
	assert.False(t, args.Has(0))
	assert.False(t, args.HasNamed("x"))
	assert.Equal(t, "()", args.String())
}

func TestArguments_String(t *testing.T) {
	args := NewArgumentsFrom(Argument{Value: "a"}, Named("n", 1))
	assert.Equal(t, `("a", n: 1)`, args.String())
}
