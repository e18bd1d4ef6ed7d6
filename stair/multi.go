// Copyright (c) 2026, The Psylab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stair

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/emer/emergent/erand"
	"github.com/psylab/adapt/cond"
	"github.com/psylab/adapt/session"
	"github.com/psylab/adapt/trial"
)

// MultiStair interleaves several staircases, one per condition, running
// them in passes: each unfinished staircase is presented once per pass,
// in condition order (Sequential) or a fresh shuffle (Random), until all
// of them have finished.
//
// Each condition must carry a startVal and a label field; QuestStair
// conditions also need startValSd.  Further fields override the
// per-staircase parameters: nTrials, nUp, nDown, nReversals, stepSizes,
// stepType, minVal, maxVal for Simple, and pThreshold, beta, delta,
// gamma, grain, range, stopInterval for QuestStair.
type MultiStair struct {
	Nm          string           `desc:"name, prefixes the interleaved response column in the session"`
	Type        StairTypes       `desc:"kind of staircase run for every condition"`
	Method      trial.Methods    `desc:"pass ordering: Sequential or Random"`
	Conds       []cond.Condition `desc:"one condition per staircase"`
	NTrials     int              `desc:"default trial count for conditions that do not override it"`
	Stairs      []Staircase      `desc:"all staircases, in condition order"`
	Running     []Staircase      `desc:"staircases that have not yet finished"`
	Current     Staircase        `desc:"staircase owning the current trial, nil before the first Next"`
	TotalTrials int              `desc:"trials run across all staircases"`
	Sess        *session.Session `desc:"session the interleaved responses mirror to"`

	thisPass []Staircase
}

// NewMultiStair makes an interleaved set of staircases, one per
// condition.
func NewMultiStair(name string, typ StairTypes, method trial.Methods, conds []cond.Condition, nTrials int) (*MultiStair, error) {
	if typ < 0 || typ >= StairTypesN {
		return nil, fmt.Errorf("stair.NewMultiStair: %s: unknown staircase type %d", name, typ)
	}
	if len(conds) == 0 {
		return nil, fmt.Errorf("stair.NewMultiStair: %s: conditions are required: supply a list, each with at least startVal and label fields", name)
	}
	if method == trial.FullRandom {
		log.Printf("stair.NewMultiStair: %s: FullRandom is not meaningful for interleaved staircases, using Random\n", name)
		method = trial.Random
	}
	if method != trial.Sequential && method != trial.Random {
		return nil, fmt.Errorf("stair.NewMultiStair: %s: method must be Sequential or Random, got %s", name, method)
	}
	mr := &MultiStair{Nm: name, Type: typ, Method: method, NTrials: nTrials}
	mr.Conds = append(mr.Conds, conds...)
	labels := map[string]bool{}
	for i := range mr.Conds {
		cd := &mr.Conds[i]
		lb, ok := cd.Str("label")
		if !ok {
			return nil, fmt.Errorf("stair.NewMultiStair: %s: condition %d: every condition needs a label field", name, i)
		}
		if labels[lb] {
			return nil, fmt.Errorf("stair.NewMultiStair: %s: duplicate condition label %q", name, lb)
		}
		labels[lb] = true
		if _, ok := cd.Float("startVal"); !ok {
			return nil, fmt.Errorf("stair.NewMultiStair: %s: condition %q: every condition needs a startVal field", name, lb)
		}
		var sc Staircase
		var err error
		switch typ {
		case Simple:
			sc, err = mr.makeSimple(lb, cd)
		case QuestStair:
			sc, err = mr.makeQuest(lb, cd)
		}
		if err != nil {
			return nil, err
		}
		sc.SetCondition(cd)
		mr.Stairs = append(mr.Stairs, sc)
		mr.Running = append(mr.Running, sc)
	}
	return mr, nil
}

func (mr *MultiStair) makeSimple(label string, cd *cond.Condition) (Staircase, error) {
	pr := &StairParams{}
	pr.Defaults()
	pr.NTrials = mr.NTrials
	pr.StartVal, _ = cd.Float("startVal")
	if v, ok := cd.Float("nTrials"); ok {
		pr.NTrials = int(v)
	}
	if v, ok := cd.Float("nUp"); ok {
		pr.NUp = int(v)
	}
	if v, ok := cd.Float("nDown"); ok {
		pr.NDown = int(v)
	}
	if v, ok := cd.Float("nReversals"); ok {
		pr.NReversals = int(v)
	}
	if ss, ok, err := condStepSizes(cd); err != nil {
		return nil, fmt.Errorf("stair.NewMultiStair: %s: condition %q: %v", mr.Nm, label, err)
	} else if ok {
		pr.StepSizes = ss
	}
	if sv, ok := cd.Str("stepType"); ok {
		st, err := parseStepType(sv)
		if err != nil {
			return nil, fmt.Errorf("stair.NewMultiStair: %s: condition %q: %v", mr.Nm, label, err)
		}
		pr.StepType = st
	}
	if v, ok := cd.Float("minVal"); ok {
		pr.Min = v
		pr.UseMin = true
	}
	if v, ok := cd.Float("maxVal"); ok {
		pr.Max = v
		pr.UseMax = true
	}
	return NewStair(label, pr)
}

func (mr *MultiStair) makeQuest(label string, cd *cond.Condition) (Staircase, error) {
	pr := &QuestParams{}
	pr.Defaults()
	pr.NTrials = mr.NTrials
	pr.StartVal, _ = cd.Float("startVal")
	sd, ok := cd.Float("startValSd")
	if !ok {
		return nil, fmt.Errorf("stair.NewMultiStair: %s: condition %q: QuestStair conditions need a startValSd field", mr.Nm, label)
	}
	pr.StartValSD = sd
	if v, ok := cd.Float("nTrials"); ok {
		pr.NTrials = int(v)
	}
	if v, ok := cd.Float("pThreshold"); ok {
		pr.PThreshold = v
	}
	if v, ok := cd.Float("beta"); ok {
		pr.Beta = v
	}
	if v, ok := cd.Float("delta"); ok {
		pr.Delta = v
	}
	if v, ok := cd.Float("gamma"); ok {
		pr.Gamma = v
	}
	if v, ok := cd.Float("grain"); ok {
		pr.Grain = v
	}
	if v, ok := cd.Float("range"); ok {
		pr.Range = v
	}
	if v, ok := cd.Float("stopInterval"); ok {
		pr.StopInterval = v
	}
	if v, ok := cd.Float("minVal"); ok {
		pr.Min = v
		pr.UseMin = true
	}
	if v, ok := cd.Float("maxVal"); ok {
		pr.Max = v
		pr.UseMax = true
	}
	return NewQuest(label, pr)
}

// Next returns the intensity and condition for the next trial, false
// once every staircase has finished.  Staircases that finish mid-pass
// are skipped for the rest of it.
func (mr *MultiStair) Next() (float64, *cond.Condition, bool) {
	for {
		if len(mr.thisPass) == 0 {
			if len(mr.Running) == 0 {
				mr.Current = nil
				return 0, nil, false
			}
			mr.startPass()
		}
		sc := mr.thisPass[0]
		mr.thisPass = mr.thisPass[1:]
		if sc.IsFinished() {
			continue
		}
		inten, ok := sc.Next()
		if !ok {
			mr.remove(sc)
			continue
		}
		mr.Current = sc
		return inten, sc.Condition(), true
	}
}

// startPass refills the pass from the running staircases, shuffled when
// the method is Random.
func (mr *MultiStair) startPass() {
	mr.thisPass = append(mr.thisPass[:0], mr.Running...)
	if mr.Method == trial.Random {
		idx := make([]int, len(mr.thisPass))
		for i := range idx {
			idx[i] = i
		}
		erand.PermuteInts(idx)
		shuf := make([]Staircase, len(idx))
		for i, p := range idx {
			shuf[i] = mr.Running[p]
		}
		mr.thisPass = shuf
	}
}

// AddResponse records the outcome of the current trial on the staircase
// that owns it, dropping that staircase from the rotation if the
// response finished it.
func (mr *MultiStair) AddResponse(result int, intensity ...float64) {
	if mr.Current == nil {
		log.Printf("stair.MultiStair: %s: AddResponse with no current trial\n", mr.Nm)
		return
	}
	mr.Current.AddResponse(result, intensity...)
	mr.TotalTrials++
	if mr.Sess != nil {
		mr.Sess.AddData(mr.Nm+".response", result)
	}
	if mr.Current.IsFinished() {
		mr.remove(mr.Current)
	}
}

// AddOther records a named auxiliary value on the current staircase.
func (mr *MultiStair) AddOther(name string, value float64) {
	if mr.Current == nil {
		log.Printf("stair.MultiStair: %s: AddOther with no current trial\n", mr.Nm)
		return
	}
	mr.Current.AddOther(name, value)
}

// remove drops a staircase from the running set and the current pass.
func (mr *MultiStair) remove(sc Staircase) {
	for i, r := range mr.Running {
		if r == sc {
			mr.Running = append(mr.Running[:i], mr.Running[i+1:]...)
			break
		}
	}
	for i, r := range mr.thisPass {
		if r == sc {
			mr.thisPass = append(mr.thisPass[:i], mr.thisPass[i+1:]...)
			break
		}
	}
}

// Name returns the runner name.
func (mr *MultiStair) Name() string {
	return mr.Nm
}

// IsFinished returns true once every staircase has finished.
func (mr *MultiStair) IsFinished() bool {
	return len(mr.Running) == 0
}

// SetSession attaches the session the interleaved responses mirror to.
// The member staircases keep their own sessions; attach them separately
// if per-staircase mirroring is wanted.
func (mr *MultiStair) SetSession(se *session.Session) {
	mr.Sess = se
}

// CurInfo contributes the current trial state to a session entry.
func (mr *MultiStair) CurInfo(add func(name string, value interface{})) {
	if mr.Current == nil {
		return
	}
	add(mr.Nm+".thisN", mr.TotalTrials)
	add(mr.Nm+".intensity", mr.Current.CurIntensity())
	if cd := mr.Current.Condition(); cd != nil {
		for _, fn := range cd.Fields() {
			if v, ok := cd.Value(fn); ok {
				add(mr.Nm+"."+fn, v)
			}
		}
	}
	if cf, ok := mr.Current.(session.CurInfoer); ok {
		cf.CurInfo(add)
	}
}

// condStepSizes reads a stepSizes condition field: a single number, or a
// string of comma or space separated numbers.
func condStepSizes(cd *cond.Condition) ([]float64, bool, error) {
	if v, ok := cd.Float("stepSizes"); ok {
		return []float64{v}, true, nil
	}
	sv, ok := cd.Str("stepSizes")
	if !ok {
		return nil, false, nil
	}
	fs := strings.FieldsFunc(sv, func(r rune) bool { return r == ',' || r == ' ' })
	var ss []float64
	for _, f := range fs {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, false, fmt.Errorf("bad stepSizes entry %q", f)
		}
		ss = append(ss, v)
	}
	if len(ss) == 0 {
		return nil, false, fmt.Errorf("empty stepSizes field")
	}
	return ss, true, nil
}

// parseStepType reads a stepType condition field, case-insensitively.
func parseStepType(s string) (StepTypes, error) {
	switch strings.ToLower(s) {
	case "lin", "linear":
		return Lin, nil
	case "log":
		return Log, nil
	case "db":
		return Db, nil
	}
	return 0, fmt.Errorf("bad stepType %q: want lin, log, or db", s)
}
