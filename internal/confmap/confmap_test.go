package confmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() Tree {
	return Tree{
		"scalar": 1,
		"nested": Tree{
			"inner": Tree{"leaf": "a"},
			"list":  []any{1, Tree{"x": 2}},
		},
	}
}

func TestDeepCopyIsolation(t *testing.T) {
	orig := sample()
	cp := DeepCopy(orig)

	require.Equal(t, orig, cp)

	// Mutating the copy at every level must leave the original untouched.
	cp["scalar"] = 99
	cp["nested"].(Tree)["inner"].(Tree)["leaf"] = "mutated"
	cp["nested"].(Tree)["list"].([]any)[1].(Tree)["x"] = 42

	assert.Equal(t, 1, orig["scalar"])
	assert.Equal(t, "a", orig["nested"].(Tree)["inner"].(Tree)["leaf"])
	assert.Equal(t, 2, orig["nested"].(Tree)["list"].([]any)[1].(Tree)["x"])
}

func TestDeepCopyNil(t *testing.T) {
	assert.Nil(t, DeepCopy(nil))
}

func TestGet(t *testing.T) {
	tr := sample()

	v, ok := Get(tr, "nested", "inner", "leaf")
	require.True(t, ok)
	assert.Equal(t, "a", v)

	_, ok = Get(tr, "nested", "missing", "leaf")
	assert.False(t, ok)

	_, ok = Get(tr, "scalar", "leaf") // descending through a scalar
	assert.False(t, ok)

	_, ok = Get(tr)
	assert.False(t, ok)
}

func TestSet(t *testing.T) {
	tr := sample()

	require.NoError(t, Set(tr, 7, "nested", "inner", "leaf"))
	v, _ := Get(tr, "nested", "inner", "leaf")
	assert.Equal(t, 7, v)

	// New leaf under an existing parent is allowed.
	require.NoError(t, Set(tr, "new", "nested", "fresh"))
	v, _ = Get(tr, "nested", "fresh")
	assert.Equal(t, "new", v)

	// Missing intermediate segments are an error, not an auto-vivify.
	err := Set(tr, 1, "nested", "nope", "leaf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"nope"`)

	assert.Error(t, Set(tr, 1))
}
