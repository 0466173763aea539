// Package confmap provides the nested string-keyed configuration tree that
// per-job configs are assembled from, together with deep-copy and path-access
// helpers.
//
// Why a dedicated package?
//
// Job variants must never share mutable structure with the template they were
// expanded from, or with each other. Centralizing the copy and mutation
// primitives here means the expansion code has exactly one way to duplicate a
// tree and exactly one way to write into it, and both are tested for the
// isolation property directly.
package confmap

import "fmt"

// Tree is a nested string-keyed configuration structure. Leaf values are
// scalars, []any slices, or nested Trees.
type Tree = map[string]any

// DeepCopy returns a fully independent copy of t. Nested Trees and []any
// slices are copied recursively; scalar leaves are copied by value.
func DeepCopy(t Tree) Tree {
	if t == nil {
		return nil
	}
	out := make(Tree, len(t))
	for k, v := range t {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch vv := v.(type) {
	case Tree:
		return DeepCopy(vv)
	case []any:
		out := make([]any, len(vv))
		for i, e := range vv {
			out[i] = copyValue(e)
		}
		return out
	case []int:
		out := make([]int, len(vv))
		copy(out, vv)
		return out
	case []string:
		out := make([]string, len(vv))
		copy(out, vv)
		return out
	default:
		return v
	}
}

// Get returns the value at the given path, descending through nested Trees.
func Get(t Tree, path ...string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	cur := t
	for _, key := range path[:len(path)-1] {
		next, ok := cur[key].(Tree)
		if !ok {
			return nil, false
		}
		cur = next
	}
	v, ok := cur[path[len(path)-1]]
	return v, ok
}

// Has reports whether the full path exists in t.
func Has(t Tree, path ...string) bool {
	_, ok := Get(t, path...)
	return ok
}

// Set writes value at the given path. Every intermediate segment must already
// exist and be a Tree; the final key may be new. This keeps writes from
// silently inventing structure the template never declared.
func Set(t Tree, value any, path ...string) error {
	if len(path) == 0 {
		return fmt.Errorf("confmap: empty path")
	}
	cur := t
	for i, key := range path[:len(path)-1] {
		next, ok := cur[key].(Tree)
		if !ok {
			return fmt.Errorf("confmap: path segment %q not found at %v", key, path[:i+1])
		}
		cur = next
	}
	cur[path[len(path)-1]] = value
	return nil
}
