// Copyright (c) 2026, The Psylab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cond

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/emer/etable/etable"
	"github.com/emer/etable/etensor"
)

func condTable() *etable.Table {
	dt := &etable.Table{}
	dt.SetMetaData("name", "CondTest")
	ori := etensor.NewFloat64([]int{3}, nil, nil)
	lbl := etensor.NewString([]int{3}, nil, nil)
	wt := etensor.NewFloat64([]int{3}, nil, nil)
	dt.AddCol(ori, "ori")
	dt.AddCol(lbl, "label")
	dt.AddCol(wt, "weight")
	dt.SetNumRows(3)
	oris := []float64{0, 45, 90}
	lbls := []string{"horiz", "oblique", "vert"}
	wts := []float64{1, 2, 1}
	for ri := 0; ri < 3; ri++ {
		ori.SetFloat1D(ri, oris[ri])
		lbl.SetString1D(ri, lbls[ri])
		wt.SetFloat1D(ri, wts[ri])
	}
	return dt
}

func TestFromTable(t *testing.T) {
	cs, fields, err := FromTable(condTable())
	if err != nil {
		t.Fatalf("FromTable err: %v\n", err)
	}
	corFields := []string{"ori", "label", "weight"}
	for i := range corFields {
		if fields[i] != corFields[i] {
			t.Errorf("field %d: %v, cor: %v\n", i, fields[i], corFields[i])
		}
	}
	if len(cs) != 3 {
		t.Fatalf("len: %v, cor: 3\n", len(cs))
	}
	corWts := []int{1, 2, 1}
	for i, cd := range cs {
		if cd.Weight() != corWts[i] {
			t.Errorf("cond %d weight: %v, cor: %v\n", i, cd.Weight(), corWts[i])
		}
	}
	if v, _ := cs[1].Float("ori"); v != 45 {
		t.Errorf("cond 1 ori: %v, cor: 45\n", v)
	}
	if v, _ := cs[2].Str("label"); v != "vert" {
		t.Errorf("cond 2 label: %v, cor: vert\n", v)
	}
}

func TestFromTableMixedColumn(t *testing.T) {
	dt := &etable.Table{}
	col := etensor.NewString([]int{2}, nil, nil)
	dt.AddCol(col, "sf")
	dt.SetNumRows(2)
	col.SetString1D(0, "1.5")
	col.SetString1D(1, "high")
	cs, _, err := FromTable(dt)
	if err != nil {
		t.Fatalf("FromTable err: %v\n", err)
	}
	// numeric-looking cells in a string column become numeric fields
	if v, ok := cs[0].Float("sf"); !ok || v != 1.5 {
		t.Errorf("row 0 sf: %v %v, cor: 1.5 true\n", v, ok)
	}
	if v, ok := cs[1].Str("sf"); !ok || v != "high" {
		t.Errorf("row 1 sf: %v %v, cor: high true\n", v, ok)
	}
}

func TestFromTableBadName(t *testing.T) {
	dt := &etable.Table{}
	dt.AddCol(etensor.NewFloat64([]int{1}, nil, nil), "bad name")
	dt.Rows = 1
	if _, _, err := FromTable(dt); err == nil {
		t.Errorf("bad column name should have failed\n")
	}
}

func TestOpenCSV(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "conds.csv")
	data := "ori,label\n0,horiz\n90,vert\n"
	if err := os.WriteFile(fn, []byte(data), 0644); err != nil {
		t.Fatalf("write err: %v\n", err)
	}
	cs, fields, err := OpenCSV(fn)
	if err != nil {
		t.Fatalf("OpenCSV err: %v\n", err)
	}
	if len(fields) != 2 || len(cs) != 2 {
		t.Fatalf("fields: %v, conds: %v\n", fields, len(cs))
	}
	if v, _ := cs[1].Float("ori"); v != 90 {
		t.Errorf("cond 1 ori: %v, cor: 90\n", v)
	}
	if v, _ := cs[0].Str("label"); v != "horiz" {
		t.Errorf("cond 0 label: %v, cor: horiz\n", v)
	}
}
