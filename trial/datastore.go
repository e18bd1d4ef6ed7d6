// Copyright (c) 2026, The Psylab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trial

import (
	"fmt"
	"log"
	"strconv"

	"github.com/emer/etable/etensor"
)

// Missing is the placeholder recorded in promoted string columns for
// cells that were never written.
const Missing = "--"

// Column is one data key's storage: a [rows, reps] tensor that starts
// numeric with every cell flagged missing, and is promoted in place to
// string on the first non-numeric write.  Exactly one of Num, Str is
// non-nil.
type Column struct {
	Num *etensor.Float64 `desc:"numeric storage, nil once promoted"`
	Str *etensor.String  `desc:"string storage after promotion, nil before"`
}

// DataStore holds per-trial data arrays organized by condition row and
// repetition, with explicit missing-cell flags.  Rows correspond to the
// weight-expanded condition block, so a condition with weight w owns w
// consecutive rows.
type DataStore struct {
	Rows int      `desc:"number of condition rows (weight-expanded block length)"`
	Reps int      `desc:"number of repetitions (columns per row)"`
	Keys []string `desc:"data keys in creation order"`

	cols map[string]*Column
}

// NewDataStore makes a store with the given shape and no keys.
func NewDataStore(rows, reps int) *DataStore {
	ds := &DataStore{Rows: rows, Reps: reps}
	ds.cols = make(map[string]*Column)
	return ds
}

// AddKey creates a numeric column for the given key with every cell
// missing.  It is a no-op if the key already exists.
func (ds *DataStore) AddKey(key string) {
	if _, ok := ds.cols[key]; ok {
		return
	}
	ds.cols[key] = &Column{Num: ds.newNum(ds.Rows, ds.Reps)}
	ds.Keys = append(ds.Keys, key)
}

func (ds *DataStore) newNum(rows, reps int) *etensor.Float64 {
	tsr := etensor.NewFloat64([]int{rows, reps}, nil, []string{"Cond", "Rep"})
	for i := 0; i < tsr.Len(); i++ {
		tsr.SetNull1D(i, true)
	}
	return tsr
}

// Add writes a value at [row, rep] for the given key, creating the key
// if needed.  Numeric values (any int or float type, bool as 0/1) go to
// numeric columns; anything else promotes the column to string first.
// A position outside the current shape grows the whole store, preserving
// contents, and logs a diagnostic -- it is never an error.
func (ds *DataStore) Add(key string, row, rep int, value interface{}) {
	ds.AddKey(key)
	if row >= ds.Rows || rep >= ds.Reps {
		nr, np := ds.Rows, ds.Reps
		if row >= nr {
			nr = row + 1
		}
		if rep >= np {
			np = rep + 1
		}
		log.Printf("trial.DataStore: growing arrays from [%d, %d] to [%d, %d] for key %s", ds.Rows, ds.Reps, nr, np, key)
		ds.grow(nr, np)
	}
	cl := ds.cols[key]
	fv, isNum := numValue(value)
	if cl.Num != nil {
		if isNum {
			cl.Num.Set([]int{row, rep}, fv)
			cl.Num.SetNull([]int{row, rep}, false)
			return
		}
		ds.promote(key)
	}
	cl.Str.Set([]int{row, rep}, renderValue(value))
	cl.Str.SetNull([]int{row, rep}, false)
}

// promote converts the key's column to string in place: written numeric
// values are rendered, missing cells become the Missing placeholder and
// stay flagged missing.
func (ds *DataStore) promote(key string) {
	cl := ds.cols[key]
	if cl.Str != nil {
		return
	}
	st := etensor.NewString([]int{ds.Rows, ds.Reps}, nil, []string{"Cond", "Rep"})
	for i := 0; i < st.Len(); i++ {
		if cl.Num.IsNull1D(i) {
			st.Values[i] = Missing
			st.SetNull1D(i, true)
		} else {
			st.Values[i] = strconv.FormatFloat(cl.Num.Values[i], 'g', -1, 64)
		}
	}
	cl.Str = st
	cl.Num = nil
}

// grow resizes every column to [rows, reps], preserving existing cells.
func (ds *DataStore) grow(rows, reps int) {
	for _, key := range ds.Keys {
		cl := ds.cols[key]
		if cl.Num != nil {
			nt := ds.newNum(rows, reps)
			for r := 0; r < ds.Rows; r++ {
				for p := 0; p < ds.Reps; p++ {
					if !cl.Num.IsNull([]int{r, p}) {
						nt.Set([]int{r, p}, cl.Num.Value([]int{r, p}))
						nt.SetNull([]int{r, p}, false)
					}
				}
			}
			cl.Num = nt
		} else {
			nt := etensor.NewString([]int{rows, reps}, nil, []string{"Cond", "Rep"})
			for i := 0; i < nt.Len(); i++ {
				nt.Values[i] = Missing
				nt.SetNull1D(i, true)
			}
			for r := 0; r < ds.Rows; r++ {
				for p := 0; p < ds.Reps; p++ {
					if !cl.Str.IsNull([]int{r, p}) {
						nt.Set([]int{r, p}, cl.Str.Value([]int{r, p}))
						nt.SetNull([]int{r, p}, false)
					}
				}
			}
			cl.Str = nt
		}
	}
	ds.Rows = rows
	ds.Reps = reps
}

// Has returns true if the key exists.
func (ds *DataStore) Has(key string) bool {
	_, ok := ds.cols[key]
	return ok
}

// Numeric returns true if the key exists and has not been promoted.
func (ds *DataStore) Numeric(key string) bool {
	cl, ok := ds.cols[key]
	return ok && cl.Num != nil
}

// IsMissing returns true if the cell was never written (or the key or
// position does not exist).
func (ds *DataStore) IsMissing(key string, row, rep int) bool {
	cl, ok := ds.cols[key]
	if !ok || row < 0 || row >= ds.Rows || rep < 0 || rep >= ds.Reps {
		return true
	}
	if cl.Num != nil {
		return cl.Num.IsNull([]int{row, rep})
	}
	return cl.Str.IsNull([]int{row, rep})
}

// Float returns the numeric value at [row, rep], false if the cell is
// missing or the column is not numeric.
func (ds *DataStore) Float(key string, row, rep int) (float64, bool) {
	cl, ok := ds.cols[key]
	if !ok || cl.Num == nil || ds.IsMissing(key, row, rep) {
		return 0, false
	}
	return cl.Num.Value([]int{row, rep}), true
}

// Value returns the string rendering of the value at [row, rep], false
// if the cell is missing.
func (ds *DataStore) Value(key string, row, rep int) (string, bool) {
	if ds.IsMissing(key, row, rep) {
		return Missing, false
	}
	cl := ds.cols[key]
	if cl.Num != nil {
		return strconv.FormatFloat(cl.Num.Value([]int{row, rep}), 'g', -1, 64), true
	}
	return cl.Str.Value([]int{row, rep}), true
}

// Tensor returns the key's backing tensor for external serializers, nil
// if the key does not exist.
func (ds *DataStore) Tensor(key string) etensor.Tensor {
	cl, ok := ds.cols[key]
	if !ok {
		return nil
	}
	if cl.Num != nil {
		return cl.Num
	}
	return cl.Str
}

// Sum totals the written numeric cells of the key over rows in
// [rowLo, rowHi) across all repetitions.
func (ds *DataStore) Sum(key string, rowLo, rowHi int) float64 {
	cl, ok := ds.cols[key]
	if !ok || cl.Num == nil {
		return 0
	}
	if rowLo < 0 {
		rowLo = 0
	}
	if rowHi > ds.Rows {
		rowHi = ds.Rows
	}
	sum := 0.0
	for r := rowLo; r < rowHi; r++ {
		for p := 0; p < ds.Reps; p++ {
			if !cl.Num.IsNull([]int{r, p}) {
				sum += cl.Num.Value([]int{r, p})
			}
		}
	}
	return sum
}

func numValue(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func renderValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
