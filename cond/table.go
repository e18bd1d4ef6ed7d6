// Copyright (c) 2026, The Psylab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cond

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/emer/etable/etable"
	"github.com/emer/etable/etensor"
)

// FromTable converts an etable.Table into a condition list, one condition
// per row, one field per column.  String columns become string fields,
// everything else becomes float64.  A cell in a string column that parses
// as a number becomes a numeric field for that row, matching how
// hand-edited condition files mix types within a column.  A WeightField
// column sets per-condition weights.  Returns the conditions and the
// column (field) names in table order.
func FromTable(dt *etable.Table) ([]Condition, []string, error) {
	if dt == nil || dt.NumCols() == 0 {
		return nil, nil, fmt.Errorf("cond.FromTable: nil or empty table")
	}
	fields := make([]string, dt.NumCols())
	for ci := range dt.Cols {
		nm := dt.ColNames[ci]
		if err := ValidName(nm); err != nil {
			return nil, nil, fmt.Errorf("cond.FromTable: column %d: %v", ci, err)
		}
		fields[ci] = nm
	}
	conds := make([]Condition, 0, dt.Rows)
	for ri := 0; ri < dt.Rows; ri++ {
		vals := make(map[string]interface{}, len(fields))
		for ci, nm := range fields {
			col := dt.Cols[ci]
			if col.DataType() == etensor.STRING {
				sv := dt.CellString(nm, ri)
				if fv, err := strconv.ParseFloat(sv, 64); err == nil {
					vals[nm] = fv
				} else {
					vals[nm] = sv
				}
			} else {
				vals[nm] = dt.CellFloat(nm, ri)
			}
		}
		cd, err := NewOrdered(fields, vals)
		if err != nil {
			return nil, nil, fmt.Errorf("cond.FromTable: row %d: %v", ri, err)
		}
		conds = append(conds, cd)
	}
	return conds, fields, nil
}

// OpenCSV reads a delimited condition table from the given file and
// converts it with FromTable.  Files ending in .csv are comma separated,
// anything else is tab separated.
func OpenCSV(fname string) ([]Condition, []string, error) {
	fp, err := os.Open(fname)
	if err != nil {
		return nil, nil, fmt.Errorf("cond.OpenCSV: %v", err)
	}
	defer fp.Close()
	delim := etable.Tab
	if strings.HasSuffix(strings.ToLower(fname), ".csv") {
		delim = etable.Comma
	}
	dt := &etable.Table{}
	if err := dt.ReadCSV(fp, delim); err != nil {
		return nil, nil, fmt.Errorf("cond.OpenCSV: %s: %v", fname, err)
	}
	return FromTable(dt)
}
