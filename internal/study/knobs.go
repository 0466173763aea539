// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file centralizes the generic decoding of the open-ended study
// attributes: the knobs block and scan-axis value lists.
//
// Why decode these by hand?
//
// The machine knob set is not fixed (crossing angles, separations, crab
// cavities, octupoles, and whatever the optics of the day defines), and axis
// values may be integers, floats or strings. Both therefore bypass gohcl's
// struct mapping and are evaluated as cty values with their own type
// validation, so a misconfigured study fails at parse time with a message
// naming the offending attribute.
package study

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// parseKnobs evaluates every attribute of the knobs block as a number.
func parseKnobs(body hcl.Body) (map[string]float64, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("decoding knobs block: %w", diags)
	}

	knobs := make(map[string]float64, len(attrs))

	// Deterministic error reporting: complain about the alphabetically first
	// bad knob, not a map-order-dependent one.
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		val, valDiags := attrs[name].Expr.Value(nil)
		if valDiags.HasErrors() {
			return nil, fmt.Errorf("evaluating knob %q: %w", name, valDiags)
		}
		if val.Type() != cty.Number {
			return nil, fmt.Errorf("knob %q must be a number", name)
		}
		f, _ := val.AsBigFloat().Float64()
		knobs[name] = f
	}
	return knobs, nil
}

// parseAxes evaluates the values expression of each explicit scan axis.
func parseAxes(hclAxes []*hclAxis) ([]Axis, error) {
	axes := make([]Axis, 0, len(hclAxes))
	for _, ha := range hclAxes {
		if len(ha.Path) == 0 {
			return nil, fmt.Errorf("scan axis %q has an empty path", ha.Name)
		}

		val, diags := ha.Values.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("evaluating values of scan axis %q: %w", ha.Name, diags)
		}
		ty := val.Type()
		if !ty.IsTupleType() && !ty.IsListType() && !ty.IsSetType() {
			return nil, fmt.Errorf("values of scan axis %q must be a list", ha.Name)
		}

		var values []any
		it := val.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			gv, err := fromCty(elem)
			if err != nil {
				return nil, fmt.Errorf("scan axis %q: %w", ha.Name, err)
			}
			values = append(values, gv)
		}

		axes = append(axes, Axis{Name: ha.Name, Path: ha.Path, Values: values})
	}
	return axes, nil
}

// fromCty converts a scalar cty value to its Go counterpart. Whole numbers
// come back as int so that zero-padded formatting of indices works.
func fromCty(v cty.Value) (any, error) {
	switch v.Type() {
	case cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			i, _ := bf.Int64()
			return int(i), nil
		}
		f, _ := bf.Float64()
		return f, nil
	case cty.String:
		return v.AsString(), nil
	case cty.Bool:
		return v.True(), nil
	default:
		return nil, fmt.Errorf("unsupported value type %s", v.Type().FriendlyName())
	}
}
