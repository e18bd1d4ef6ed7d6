// Copyright (c) 2026, The Psylab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"testing"
)

// loopStub is a minimal Loop + CurInfoer for session tests.
type loopStub struct {
	nm       string
	finished bool
	sess     *Session
	trial    int
}

func (ls *loopStub) Name() string           { return ls.nm }
func (ls *loopStub) IsFinished() bool       { return ls.finished }
func (ls *loopStub) SetSession(se *Session) { ls.sess = se }
func (ls *loopStub) CurInfo(add func(name string, value interface{})) {
	add(ls.nm+".thisN", ls.trial)
}

func TestAddDataLastWriteWins(t *testing.T) {
	se := NewSession("Test")
	se.AddData("rt", 0.41)
	se.AddData("rt", 0.52)
	se.NextEntry()
	if se.Table.Rows != 1 {
		t.Fatalf("rows: %v, cor: 1\n", se.Table.Rows)
	}
	if v := se.Table.CellFloat("rt", 0); v != 0.52 {
		t.Errorf("rt: %v, cor: 0.52\n", v)
	}
}

func TestChronology(t *testing.T) {
	se := NewSession("Test")
	se.Info["participant"] = "s01"
	for i := 0; i < 3; i++ {
		se.AddData("trial", i)
		se.AddData("resp", i%2)
		se.NextEntry()
	}
	if se.Table.Rows != 3 {
		t.Fatalf("rows: %v, cor: 3\n", se.Table.Rows)
	}
	for i := 0; i < 3; i++ {
		if v := se.Table.CellFloat("trial", i); v != float64(i) {
			t.Errorf("row %d trial: %v, cor: %v\n", i, v, i)
		}
		if v := se.Table.CellString("participant", i); v != "s01" {
			t.Errorf("row %d participant: %v, cor: s01\n", i, v)
		}
	}
}

func TestAccumulatorCleared(t *testing.T) {
	se := NewSession("Test")
	se.AddData("rt", 0.3)
	se.NextEntry()
	se.AddData("resp", 1)
	se.NextEntry()
	// rt was only written for entry 0: row 1 must be null
	ci := -1
	for i, nm := range se.Table.ColNames {
		if nm == "rt" {
			ci = i
		}
	}
	if ci < 0 {
		t.Fatalf("rt column missing\n")
	}
	if !se.Table.Cols[ci].IsNull1D(1) {
		t.Errorf("row 1 rt should be null\n")
	}
	if se.Table.Cols[ci].IsNull1D(0) {
		t.Errorf("row 0 rt should not be null\n")
	}
}

func TestColumnPromotion(t *testing.T) {
	se := NewSession("Test")
	se.AddData("cond", 1.5)
	se.NextEntry()
	se.AddData("cond", "high")
	se.NextEntry()
	if v := se.Table.CellString("cond", 0); v != "1.5" {
		t.Errorf("row 0 cond: %v, cor: 1.5\n", v)
	}
	if v := se.Table.CellString("cond", 1); v != "high" {
		t.Errorf("row 1 cond: %v, cor: high\n", v)
	}
}

func TestLateColumnBackfill(t *testing.T) {
	se := NewSession("Test")
	se.AddData("trial", 0)
	se.NextEntry()
	se.AddData("trial", 1)
	se.AddData("late", 7.0)
	se.NextEntry()
	ci := -1
	for i, nm := range se.Table.ColNames {
		if nm == "late" {
			ci = i
		}
	}
	if ci < 0 {
		t.Fatalf("late column missing\n")
	}
	if !se.Table.Cols[ci].IsNull1D(0) {
		t.Errorf("row 0 of a late column should be null\n")
	}
	if v := se.Table.CellFloat("late", 1); v != 7 {
		t.Errorf("row 1 late: %v, cor: 7\n", v)
	}
}

func TestCurInfoPull(t *testing.T) {
	se := NewSession("Test")
	ls := &loopStub{nm: "seq", trial: 4}
	se.Attach(ls)
	if ls.sess != se {
		t.Fatalf("Attach should inject the session\n")
	}
	se.NextEntry()
	if v := se.Table.CellFloat("seq.thisN", 0); v != 4 {
		t.Errorf("seq.thisN: %v, cor: 4\n", v)
	}
	// finished loops no longer contribute
	ls.finished = true
	ls.trial = 5
	se.AddData("resp", 1)
	se.NextEntry()
	ci := -1
	for i, nm := range se.Table.ColNames {
		if nm == "seq.thisN" {
			ci = i
		}
	}
	if !se.Table.Cols[ci].IsNull1D(1) {
		t.Errorf("finished loop should not contribute to row 1\n")
	}
}
