// Copyright (c) 2026, The Psylab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stair

import (
	"testing"

	"github.com/psylab/adapt/cond"
	"github.com/psylab/adapt/session"
	"github.com/psylab/adapt/trial"
)

func multiConds(t *testing.T, vals ...map[string]interface{}) []cond.Condition {
	var cs []cond.Condition
	for _, vl := range vals {
		cd, err := cond.New(vl)
		if err != nil {
			t.Fatalf("cond.New err: %v\n", err)
		}
		cs = append(cs, cd)
	}
	return cs
}

func TestMultiStairSequential(t *testing.T) {
	cs := multiConds(t,
		map[string]interface{}{"label": "low", "startVal": 0.3, "nTrials": 2, "stepSizes": 0.05, "stepType": "lin"},
		map[string]interface{}{"label": "high", "startVal": 0.7, "nTrials": 4, "stepSizes": 0.05, "stepType": "lin"},
	)
	mr, err := NewMultiStair("ms", Simple, trial.Sequential, cs, 10)
	if err != nil {
		t.Fatalf("NewMultiStair err: %v\n", err)
	}
	if len(mr.Stairs) != 2 || len(mr.Running) != 2 {
		t.Fatalf("stairs: %v running: %v, cor: 2 2\n", len(mr.Stairs), len(mr.Running))
	}
	// alternating responses finish each staircase at its own nTrials
	seen := map[string]int{}
	var labels []string
	for {
		_, cd, ok := mr.Next()
		if !ok {
			break
		}
		lb, _ := cd.Str("label")
		labels = append(labels, lb)
		mr.AddResponse(seen[lb] % 2)
		seen[lb]++
		if mr.TotalTrials > 20 {
			t.Fatalf("multistair did not finish\n")
		}
	}
	corLabels := []string{"low", "high", "low", "high", "high", "high"}
	if len(labels) != len(corLabels) {
		t.Fatalf("labels: %v, cor: %v\n", labels, corLabels)
	}
	for i := range corLabels {
		if labels[i] != corLabels[i] {
			t.Errorf("trial %d label: %v, cor: %v\n", i, labels[i], corLabels[i])
		}
	}
	if mr.TotalTrials != 6 {
		t.Errorf("TotalTrials: %v, cor: 6\n", mr.TotalTrials)
	}
	if !mr.IsFinished() {
		t.Errorf("multistair should be finished\n")
	}
}

func TestMultiStairRandomPasses(t *testing.T) {
	cs := multiConds(t,
		map[string]interface{}{"label": "a", "startVal": 0.3},
		map[string]interface{}{"label": "b", "startVal": 0.5},
		map[string]interface{}{"label": "c", "startVal": 0.7},
	)
	mr, err := NewMultiStair("ms", Simple, trial.Random, cs, 50)
	if err != nil {
		t.Fatalf("NewMultiStair err: %v\n", err)
	}
	// every pass presents each running staircase exactly once
	for p := 0; p < 4; p++ {
		pass := map[string]int{}
		for i := 0; i < 3; i++ {
			_, cd, ok := mr.Next()
			if !ok {
				t.Fatalf("multistair finished early\n")
			}
			lb, _ := cd.Str("label")
			pass[lb]++
			mr.AddResponse(i % 2)
		}
		for _, lb := range []string{"a", "b", "c"} {
			if pass[lb] != 1 {
				t.Errorf("pass %d counts: %v, cor: one each\n", p, pass)
			}
		}
	}
}

func TestMultiStairConditionOverrides(t *testing.T) {
	cs := multiConds(t, map[string]interface{}{
		"label": "a", "startVal": 0.5,
		"nUp": 2, "nDown": 4, "nReversals": 5,
		"stepSizes": "0.1, 0.05, 0.01", "stepType": "db",
		"minVal": 0.0, "maxVal": 1.0,
	})
	mr, err := NewMultiStair("ms", Simple, trial.Sequential, cs, 10)
	if err != nil {
		t.Fatalf("NewMultiStair err: %v\n", err)
	}
	st, ok := mr.Stairs[0].(*Stair)
	if !ok {
		t.Fatalf("stair type: %T, cor: *Stair\n", mr.Stairs[0])
	}
	if st.Params.NUp != 2 || st.Params.NDown != 4 || st.Params.NReversals != 5 {
		t.Errorf("rule params: %v %v %v, cor: 2 4 5\n", st.Params.NUp, st.Params.NDown, st.Params.NReversals)
	}
	corSteps := []float64{0.1, 0.05, 0.01}
	if len(st.Params.StepSizes) != 3 {
		t.Fatalf("step sizes: %v, cor: %v\n", st.Params.StepSizes, corSteps)
	}
	for i := range corSteps {
		if st.Params.StepSizes[i] != corSteps[i] {
			t.Errorf("step %d: %v, cor: %v\n", i, st.Params.StepSizes[i], corSteps[i])
		}
	}
	if st.Params.StepType != Db {
		t.Errorf("step type: %v, cor: Db\n", st.Params.StepType)
	}
	if !st.Params.UseMin || !st.Params.UseMax || st.Params.Max != 1 {
		t.Errorf("bounds not applied: %v %v %v\n", st.Params.UseMin, st.Params.UseMax, st.Params.Max)
	}
	if st.Condition() == nil {
		t.Errorf("condition should be attached to the staircase\n")
	}
}

func TestMultiStairQuest(t *testing.T) {
	cs := multiConds(t,
		map[string]interface{}{"label": "a", "startVal": 0.5, "startValSd": 0.25, "pThreshold": 0.75, "nTrials": 5},
	)
	mr, err := NewMultiStair("ms", QuestStair, trial.Sequential, cs, 10)
	if err != nil {
		t.Fatalf("NewMultiStair err: %v\n", err)
	}
	qs, ok := mr.Stairs[0].(*Quest)
	if !ok {
		t.Fatalf("stair type: %T, cor: *Quest\n", mr.Stairs[0])
	}
	if qs.Params.PThreshold != 0.75 || qs.NTrials != 5 {
		t.Errorf("quest params: %v %v, cor: 0.75 5\n", qs.Params.PThreshold, qs.NTrials)
	}
	n := 0
	for {
		_, _, ok := mr.Next()
		if !ok {
			break
		}
		mr.AddResponse(n % 2)
		n++
		if n > 20 {
			t.Fatalf("multistair did not finish\n")
		}
	}
	if n != 5 {
		t.Errorf("trials: %v, cor: 5\n", n)
	}
}

func TestMultiStairSessionMirror(t *testing.T) {
	cs := multiConds(t, map[string]interface{}{"label": "a", "startVal": 0.5})
	mr, err := NewMultiStair("ms", Simple, trial.Sequential, cs, 10)
	if err != nil {
		t.Fatalf("NewMultiStair err: %v\n", err)
	}
	se := session.NewSession("Test")
	se.Attach(mr)
	mr.Next()
	mr.AddResponse(1)
	se.NextEntry()
	if v := se.Table.CellFloat("ms.response", 0); v != 1 {
		t.Errorf("ms.response: %v, cor: 1\n", v)
	}
	if v := se.Table.CellString("ms.label", 0); v != "a" {
		t.Errorf("ms.label: %v, cor: a\n", v)
	}
}

func TestNewMultiStairErrors(t *testing.T) {
	if _, err := NewMultiStair("x", Simple, trial.Sequential, nil, 10); err == nil {
		t.Errorf("empty conditions should have failed\n")
	}
	cs := multiConds(t, map[string]interface{}{"startVal": 0.5})
	if _, err := NewMultiStair("x", Simple, trial.Sequential, cs, 10); err == nil {
		t.Errorf("missing label should have failed\n")
	}
	cs = multiConds(t, map[string]interface{}{"label": "a"})
	if _, err := NewMultiStair("x", Simple, trial.Sequential, cs, 10); err == nil {
		t.Errorf("missing startVal should have failed\n")
	}
	cs = multiConds(t,
		map[string]interface{}{"label": "a", "startVal": 0.5},
		map[string]interface{}{"label": "a", "startVal": 0.3},
	)
	if _, err := NewMultiStair("x", Simple, trial.Sequential, cs, 10); err == nil {
		t.Errorf("duplicate labels should have failed\n")
	}
	cs = multiConds(t, map[string]interface{}{"label": "a", "startVal": 0.5})
	if _, err := NewMultiStair("x", QuestStair, trial.Sequential, cs, 10); err == nil {
		t.Errorf("quest without startValSd should have failed\n")
	}
	if _, err := NewMultiStair("x", StairTypesN, trial.Sequential, cs, 10); err == nil {
		t.Errorf("bad staircase type should have failed\n")
	}
}
