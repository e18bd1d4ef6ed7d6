// Copyright (c) 2026, The Psylab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package stair implements adaptive intensity-selection procedures: the
classic N-up/N-down staircase (Stair), the QUEST Bayesian threshold
estimator (Quest), the Psi joint threshold/slope estimator (Psi), and a
MultiStair runner that interleaves several staircases in shuffled passes.

All procedures share the same driving loop: call Next for the intensity
to present, run the trial, then call AddResponse with 1 (correct /
detected) or 0, until Next returns false.
*/
package stair

import (
	"math"

	"github.com/emer/etable/minmax"
	"github.com/psylab/adapt/cond"
	"github.com/psylab/adapt/session"
)

// Staircase is the interface satisfied by all adaptive procedures here,
// and what a MultiStair interleaves.
type Staircase interface {
	// Name returns the staircase name (label).
	Name() string

	// Next advances to the next trial and returns the intensity to
	// present, false when the procedure is finished.
	Next() (float64, bool)

	// AddResponse records the outcome of the current trial: 1 for
	// correct / detected, 0 otherwise.  An optional intensity overrides
	// the one Next returned, for when the stimulus actually shown
	// differed (quantized display levels).
	AddResponse(result int, intensity ...float64)

	// AddOther records a named auxiliary value for the current trial.
	AddOther(name string, value float64)

	// CurIntensity returns the most recently presented intensity.
	CurIntensity() float64

	// IsFinished returns true once the procedure's stopping rule is met.
	IsFinished() bool

	// Condition returns the condition this staircase was built from,
	// nil if none.
	Condition() *cond.Condition

	// SetCondition associates a condition with this staircase.
	SetCondition(cd *cond.Condition)

	// SetSession attaches the session that responses and data mirror to.
	SetSession(se *session.Session)
}

// Base is the state shared by all staircase procedures.
type Base struct {
	Nm          string               `desc:"name (label) of the staircase, prefixes its session data columns"`
	NTrials     int                  `desc:"minimum number of trials before the stopping rule can fire"`
	ThisTrialN  int                  `desc:"0-based index of the current trial, -1 before the first Next"`
	Intensities []float64            `desc:"intensity presented on each trial, in order"`
	Responses   []int                `desc:"response recorded on each trial, in order"`
	Other       map[string][]float64 `desc:"auxiliary per-trial data, NaN for trials with no value"`
	OtherKeys   []string             `desc:"auxiliary data keys in creation order"`
	Bounds      minmax.F64           `desc:"intensity clamp bounds, applied per UseMin / UseMax"`
	UseMin      bool                 `desc:"clamp intensities at Bounds.Min"`
	UseMax      bool                 `desc:"clamp intensities at Bounds.Max"`
	Finished    bool                 `desc:"true once the stopping rule has been met"`

	Cond *cond.Condition
	Sess *session.Session
}

func (st *Base) initBase(name string) {
	st.Nm = name
	st.ThisTrialN = -1
	st.Other = make(map[string][]float64)
}

func (st *Base) Name() string {
	return st.Nm
}

func (st *Base) IsFinished() bool {
	return st.Finished
}

func (st *Base) SetSession(se *session.Session) {
	st.Sess = se
}

func (st *Base) SetCondition(cd *cond.Condition) {
	st.Cond = cd
}

func (st *Base) Condition() *cond.Condition {
	return st.Cond
}

// CurIntensity returns the most recently presented intensity, 0 before
// the first trial.
func (st *Base) CurIntensity() float64 {
	if len(st.Intensities) == 0 {
		return 0
	}
	return st.Intensities[len(st.Intensities)-1]
}

// AddOther records a named auxiliary value for the current trial,
// NaN-padding any prior trials the key was not written on.
func (st *Base) AddOther(name string, value float64) {
	if _, ok := st.Other[name]; !ok {
		st.Other[name] = nil
		st.OtherKeys = append(st.OtherKeys, name)
	}
	n := st.ThisTrialN
	if n < 0 {
		n = 0
	}
	sl := st.Other[name]
	for len(sl) < n {
		sl = append(sl, math.NaN())
	}
	if len(sl) == n {
		sl = append(sl, value)
	} else {
		sl[n] = value
	}
	st.Other[name] = sl
	st.mirror(name, value)
}

// padOtherTo NaN-pads every auxiliary key to n entries, keeping them
// aligned with the trial count as trials advance.
func (st *Base) padOtherTo(n int) {
	for _, key := range st.OtherKeys {
		sl := st.Other[key]
		for len(sl) < n {
			sl = append(sl, math.NaN())
		}
		st.Other[key] = sl
	}
}

// clampMax applies the upper bound if in use.
func (st *Base) clampMax(v float64) float64 {
	if st.UseMax && v > st.Bounds.Max {
		return st.Bounds.Max
	}
	return v
}

// clampMin applies the lower bound if in use.
func (st *Base) clampMin(v float64) float64 {
	if st.UseMin && v < st.Bounds.Min {
		return st.Bounds.Min
	}
	return v
}

// clamp applies both bounds.
func (st *Base) clamp(v float64) float64 {
	return st.clampMin(st.clampMax(v))
}

// mirror forwards a named value into the attached session, if any.
func (st *Base) mirror(name string, value interface{}) {
	if st.Sess != nil {
		st.Sess.AddData(st.Nm+"."+name, value)
	}
}
