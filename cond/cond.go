// Copyright (c) 2026, The Psylab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package cond defines the experimental condition records that trial
sequencers and staircase runners present: fixed bundles of named field
values with an optional presentation weight, loaded from delimited
condition tables or built as full factorial crossings.
*/
package cond

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// WeightField is the reserved field name holding the presentation weight
// of a condition.  It remains readable as an ordinary numeric field.
const WeightField = "weight"

// Condition is one experimental condition: an ordered, fixed set of named
// field values (float64 or string), plus an optional integer presentation
// weight (default 1).  The field set is fixed at construction -- there is
// no dynamic attribute lookup, values are read through explicit accessors.
type Condition struct {
	fields []string
	vals   map[string]interface{}
	weight int
}

// New makes a Condition from the given field values, with fields ordered
// alphabetically.  Values must be numeric (any int or float type, stored
// as float64) or string.  A numeric WeightField value sets the weight,
// which must be a positive whole number.
func New(vals map[string]interface{}) (Condition, error) {
	fields := make([]string, 0, len(vals))
	for nm := range vals {
		fields = append(fields, nm)
	}
	sort.Strings(fields)
	return NewOrdered(fields, vals)
}

// NewOrdered makes a Condition with the given explicit field order.
// Every field must have a value in vals, and vals must not contain
// extra entries.
func NewOrdered(fields []string, vals map[string]interface{}) (Condition, error) {
	if len(fields) != len(vals) {
		return Condition{}, fmt.Errorf("cond.NewOrdered: %d field names for %d values", len(fields), len(vals))
	}
	cd := Condition{fields: make([]string, len(fields)), vals: make(map[string]interface{}, len(vals)), weight: 1}
	copy(cd.fields, fields)
	for _, nm := range fields {
		if err := ValidName(nm); err != nil {
			return Condition{}, err
		}
		vl, ok := vals[nm]
		if !ok {
			return Condition{}, fmt.Errorf("cond.NewOrdered: field %q has no value", nm)
		}
		cv, err := coerce(nm, vl)
		if err != nil {
			return Condition{}, err
		}
		cd.vals[nm] = cv
	}
	if wv, ok := cd.vals[WeightField]; ok {
		wf, isNum := wv.(float64)
		if !isNum {
			return Condition{}, fmt.Errorf("cond.NewOrdered: %s field must be numeric, got %q", WeightField, wv)
		}
		wt := int(wf)
		if float64(wt) != wf || wt < 1 {
			return Condition{}, fmt.Errorf("cond.NewOrdered: %s must be a positive whole number, got %g", WeightField, wf)
		}
		cd.weight = wt
	}
	return cd, nil
}

// coerce narrows a raw value to the float64 / string storage types.
func coerce(nm string, vl interface{}) (interface{}, error) {
	switch v := vl.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return v, nil
	default:
		return nil, fmt.Errorf("cond: field %q has unsupported value type %T", nm, vl)
	}
}

// Fields returns the ordered field names.  The returned slice is shared --
// do not modify.
func (cd *Condition) Fields() []string {
	return cd.fields
}

// Has returns true if the condition has the named field.
func (cd *Condition) Has(name string) bool {
	_, ok := cd.vals[name]
	return ok
}

// Float returns the named field as a float64, false if absent or
// non-numeric.
func (cd *Condition) Float(name string) (float64, bool) {
	v, ok := cd.vals[name].(float64)
	return v, ok
}

// Str returns the named field as a string, false if absent or numeric.
func (cd *Condition) Str(name string) (string, bool) {
	v, ok := cd.vals[name].(string)
	return v, ok
}

// Value returns the raw value (float64 or string) of the named field.
func (cd *Condition) Value(name string) (interface{}, bool) {
	v, ok := cd.vals[name]
	return v, ok
}

// Weight returns the presentation weight (>= 1).
func (cd *Condition) Weight() int {
	return cd.weight
}

// String renders the condition as its label field if present, otherwise
// as comma-separated name=value pairs in field order.
func (cd *Condition) String() string {
	if lb, ok := cd.Str("label"); ok {
		return lb
	}
	var sb strings.Builder
	for i, nm := range cd.fields {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(nm)
		sb.WriteString("=")
		switch v := cd.vals[nm].(type) {
		case float64:
			fmt.Fprintf(&sb, "%g", v)
		case string:
			sb.WriteString(v)
		}
	}
	return sb.String()
}

// ValidName checks that a field name is usable as a condition field:
// non-empty, starting with a letter or underscore, containing only
// letters, digits, and underscores.
func ValidName(name string) error {
	if name == "" {
		return fmt.Errorf("cond.ValidName: empty field name")
	}
	for i, r := range name {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return fmt.Errorf("cond.ValidName: field name %q is not valid at character %q", name, r)
	}
	return nil
}

// Factorial builds the full crossing of the given factors: one condition
// per combination of one value from each factor.  Factor names are
// crossed in alphabetical order with the last factor varying fastest, so
// the output order is deterministic.  Values follow the same rules as New.
func Factorial(factors map[string][]interface{}) ([]Condition, error) {
	if len(factors) == 0 {
		return nil, fmt.Errorf("cond.Factorial: no factors given")
	}
	names := make([]string, 0, len(factors))
	for nm := range factors {
		if err := ValidName(nm); err != nil {
			return nil, err
		}
		if len(factors[nm]) == 0 {
			return nil, fmt.Errorf("cond.Factorial: factor %q has no levels", nm)
		}
		names = append(names, nm)
	}
	sort.Strings(names)
	n := 1
	for _, nm := range names {
		n *= len(factors[nm])
	}
	conds := make([]Condition, 0, n)
	idx := make([]int, len(names))
	for {
		vals := make(map[string]interface{}, len(names))
		for fi, nm := range names {
			vals[nm] = factors[nm][idx[fi]]
		}
		cd, err := NewOrdered(names, vals)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cd)
		fi := len(names) - 1
		for fi >= 0 {
			idx[fi]++
			if idx[fi] < len(factors[names[fi]]) {
				break
			}
			idx[fi] = 0
			fi--
		}
		if fi < 0 {
			break
		}
	}
	return conds, nil
}
