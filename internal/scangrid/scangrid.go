// Package scangrid expands a base job configuration against a set of scan
// axes into independent per-job variants.
//
// Why deep-copy per variant?
//
// The one bug class this package exists to prevent is aliasing: handing the
// same nested map to two sibling jobs, so that a later mutation of one job's
// config silently rewrites another's. Every variant is produced by a full
// deep copy of the template before any axis value is applied, and the
// isolation is covered by tests rather than left as a convention.
package scangrid

import (
	"fmt"

	"github.com/vk/scangridgo/internal/confmap"
)

// Axis is one scan dimension: an ordered list of candidate values written to
// a target path inside each variant. An axis with a nil Path contributes its
// value to derivations only (for values that shape derived fields but are not
// themselves part of the job config).
type Axis struct {
	Name   string
	Path   []string
	Values []any
}

// Derivation computes an index-dependent field from the chosen axis values
// and writes it at Path in each variant.
type Derivation struct {
	Path   []string
	Render func(picks map[string]any) any
}

// NameFunc maps a zero-based running job index to its identifier.
type NameFunc func(index int) string

// SequentialNames returns the standard zero-padded naming scheme, e.g.
// SequentialNames("xtrack_", 4) yields xtrack_0000, xtrack_0001, ...
func SequentialNames(prefix string, width int) NameFunc {
	return func(index int) string {
		return fmt.Sprintf("%s%0*d", prefix, width, index)
	}
}

// Result holds the expanded variants keyed by identifier, plus the exact
// enumeration order and the axis values each variant was built from.
type Result struct {
	Variants map[string]confmap.Tree
	Order    []string
	Picks    map[string]map[string]any
}

// Expand enumerates the Cartesian product of the axes in declared order, the
// last axis varying fastest, and produces one fully isolated variant per
// combination. With no axes it produces exactly one variant: "no scan
// requested" is the absence of axes, never an axis with zero values.
func Expand(base confmap.Tree, axes []Axis, name NameFunc, derivations []Derivation) (*Result, error) {
	if err := validateAxes(base, axes); err != nil {
		return nil, err
	}

	total := 1
	for _, ax := range axes {
		total *= len(ax.Values)
	}

	res := &Result{
		Variants: make(map[string]confmap.Tree, total),
		Order:    make([]string, 0, total),
		Picks:    make(map[string]map[string]any, total),
	}

	// Odometer over axis indices; the last axis ticks first.
	counters := make([]int, len(axes))
	for idx := 0; idx < total; idx++ {
		variant := confmap.DeepCopy(base)
		picks := make(map[string]any, len(axes))

		for i, ax := range axes {
			v := ax.Values[counters[i]]
			picks[ax.Name] = v
			if ax.Path != nil {
				if err := confmap.Set(variant, v, ax.Path...); err != nil {
					return nil, fmt.Errorf("applying axis %q: %w", ax.Name, err)
				}
			}
		}

		for _, d := range derivations {
			if err := confmap.Set(variant, d.Render(picks), d.Path...); err != nil {
				return nil, fmt.Errorf("applying derivation at %v: %w", d.Path, err)
			}
		}

		id := name(idx)
		if _, dup := res.Variants[id]; dup {
			return nil, fmt.Errorf("duplicate job identifier %q produced by naming function", id)
		}
		res.Variants[id] = variant
		res.Order = append(res.Order, id)
		res.Picks[id] = picks

		tick(counters, axes)
	}

	return res, nil
}

func validateAxes(base confmap.Tree, axes []Axis) error {
	seen := make(map[string]struct{}, len(axes))
	for _, ax := range axes {
		if ax.Name == "" {
			return fmt.Errorf("scan axis with empty name")
		}
		if _, dup := seen[ax.Name]; dup {
			return fmt.Errorf("duplicate scan axis %q", ax.Name)
		}
		seen[ax.Name] = struct{}{}
		if len(ax.Values) == 0 {
			return &InvalidAxisError{Axis: ax.Name}
		}
		if ax.Path != nil && !confmap.Has(base, ax.Path...) {
			return &PathResolutionError{Axis: ax.Name, Path: ax.Path}
		}
	}
	return nil
}

// tick advances the odometer by one step, carrying from the last axis toward
// the first.
func tick(counters []int, axes []Axis) {
	for i := len(counters) - 1; i >= 0; i-- {
		counters[i]++
		if counters[i] < len(axes[i].Values) {
			return
		}
		counters[i] = 0
	}
}
