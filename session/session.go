// Copyright (c) 2026, The Psylab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package session aggregates data from any number of attached loops
(trial sequencers, staircases) into one chronological wide-format
etable.Table: one row per committed entry, one column per data name,
with cells never written left missing.  Loops hold an explicit pointer
to the session they were attached to -- there is no global registry.
*/
package session

import (
	"fmt"
	"strconv"

	"github.com/emer/etable/etable"
	"github.com/emer/etable/etensor"
)

// Missing is the placeholder recorded in string columns for cells that
// were never written.
const Missing = "--"

// Loop is the interface loops must satisfy to be attached to a Session.
type Loop interface {
	// Name returns the loop's name, used to prefix its data columns.
	Name() string

	// IsFinished returns true when the loop has no more trials to run.
	IsFinished() bool

	// SetSession gives the loop the session it should mirror data into.
	SetSession(se *Session)
}

// CurInfoer is an optional interface: loops that implement it contribute
// their current state (counters, current condition, intensity) to each
// committed entry, via the given add callback.
type CurInfoer interface {
	CurInfo(add func(name string, value interface{}))
}

// Session accumulates named data values for the current entry (trial)
// and commits them as rows of a wide-format table.
type Session struct {
	Nm    string            `desc:"name of the session, set in metadata of the table"`
	Info  map[string]string `desc:"constant annotations (participant, date) recorded on every row"`
	Loops []Loop            `desc:"attached loops, in attachment order"`
	Table *etable.Table     `desc:"the chronological wide-format dataset, one row per committed entry"`

	cur     map[string]interface{}
	curKeys []string
}

// NewSession makes a new named session with an empty table.
func NewSession(name string) *Session {
	se := &Session{Nm: name, Info: make(map[string]string)}
	se.Table = &etable.Table{}
	se.Table.SetMetaData("name", name)
	se.cur = make(map[string]interface{})
	return se
}

func (se *Session) Name() string {
	return se.Nm
}

// Attach registers a loop with this session and injects the session
// pointer into it, so the loop's own AddData mirrors here.
func (se *Session) Attach(lp Loop) {
	se.Loops = append(se.Loops, lp)
	lp.SetSession(se)
}

// AddData records a named value for the current entry.  Committing is
// deferred until NextEntry, so a value written twice within one entry
// keeps the last write.
func (se *Session) AddData(name string, value interface{}) {
	if _, ok := se.cur[name]; !ok {
		se.curKeys = append(se.curKeys, name)
	}
	se.cur[name] = value
}

// NextEntry commits the current accumulated entry as a new table row and
// clears the accumulator.  Unfinished attached loops that expose current
// state contribute it first, then the session Info annotations, then the
// accumulated values.  Columns are created on demand, typed by the first
// value seen; a numeric column receiving a non-numeric value is promoted
// to string in place.
func (se *Session) NextEntry() {
	for _, lp := range se.Loops {
		if ci, ok := lp.(CurInfoer); ok && !lp.IsFinished() {
			ci.CurInfo(se.AddData)
		}
	}
	row := se.Table.Rows
	se.Table.SetNumRows(row + 1)
	for _, col := range se.Table.Cols {
		col.SetNull1D(row, true)
		if col.DataType() == etensor.STRING {
			col.SetString1D(row, Missing)
		}
	}
	for nm, vl := range se.Info {
		se.setCell(nm, row, vl)
	}
	for _, nm := range se.curKeys {
		se.setCell(nm, row, se.cur[nm])
	}
	se.cur = make(map[string]interface{})
	se.curKeys = nil
}

// setCell writes one value into the named column at the given row,
// creating or promoting the column as needed.
func (se *Session) setCell(name string, row int, value interface{}) {
	ci := se.colIdx(name)
	if ci < 0 {
		ci = se.addCol(name, value)
	}
	col := se.Table.Cols[ci]
	fv, isNum := numVal(value)
	if col.DataType() != etensor.STRING {
		if isNum {
			col.SetFloat1D(row, fv)
			col.SetNull1D(row, false)
			return
		}
		col = se.promoteCol(ci)
	}
	col.SetString1D(row, strVal(value))
	col.SetNull1D(row, false)
}

func (se *Session) colIdx(name string) int {
	for ci, nm := range se.Table.ColNames {
		if nm == name {
			return ci
		}
	}
	return -1
}

// addCol appends a new column typed by the first value, with all
// existing rows marked missing.
func (se *Session) addCol(name string, value interface{}) int {
	rows := se.Table.Rows
	var tsr etensor.Tensor
	if _, isNum := numVal(value); isNum {
		tsr = etensor.NewFloat64([]int{rows}, nil, nil)
	} else {
		st := etensor.NewString([]int{rows}, nil, nil)
		for i := 0; i < rows; i++ {
			st.Values[i] = Missing
		}
		tsr = st
	}
	for i := 0; i < rows; i++ {
		tsr.SetNull1D(i, true)
	}
	se.Table.AddCol(tsr, name)
	return len(se.Table.Cols) - 1
}

// promoteCol converts a numeric column to string in place, rendering
// written values and mapping missing cells to the Missing placeholder.
func (se *Session) promoteCol(ci int) etensor.Tensor {
	old := se.Table.Cols[ci]
	n := old.Len()
	st := etensor.NewString([]int{n}, nil, nil)
	for i := 0; i < n; i++ {
		if old.IsNull1D(i) {
			st.Values[i] = Missing
			st.SetNull1D(i, true)
		} else {
			st.Values[i] = strconv.FormatFloat(old.FloatVal1D(i), 'g', -1, 64)
		}
	}
	se.Table.Cols[ci] = st
	return st
}

// numVal reports whether the value is numeric, returning it as float64.
func numVal(value interface{}) (float64, bool) {
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

// strVal renders any value for a string column.
func strVal(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
