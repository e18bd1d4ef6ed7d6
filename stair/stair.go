// Copyright (c) 2026, The Psylab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stair

import (
	"fmt"
	"log"
	"math"
)

// StairParams is the configuration for an N-up/N-down Stair.
type StairParams struct {
	StartVal    float64   `desc:"intensity presented on the first trial"`
	NUp         int       `def:"1" desc:"consecutive incorrect responses before intensity goes up"`
	NDown       int       `def:"3" desc:"consecutive correct responses before intensity goes down"`
	StepSizes   []float64 `desc:"step size per reversal, advancing one entry per reversal and holding at the last; single entry = fixed step"`
	StepType    StepTypes `def:"Db" desc:"domain the step is applied in"`
	NReversals  int       `desc:"minimum reversals before finishing; 0 = number of step sizes; silently raised to the number of step sizes"`
	NTrials     int       `desc:"minimum number of trials before finishing"`
	Min         float64   `desc:"lower intensity clamp, used if UseMin"`
	Max         float64   `desc:"upper intensity clamp, used if UseMax"`
	UseMin      bool      `desc:"clamp intensities at Min"`
	UseMax      bool      `desc:"clamp intensities at Max"`
	InitialRule bool      `def:"true" desc:"apply an implicit 1-up/1-down rule until the first reversal"`
}

func (sp *StairParams) Defaults() {
	sp.NUp = 1
	sp.NDown = 3
	sp.StepSizes = []float64{4}
	sp.StepType = Db
	sp.InitialRule = true
}

// Stair is the classic N-up/N-down staircase: intensity goes down after
// NDown consecutive correct responses, up after NUp consecutive
// incorrect ones, with an implicit 1-up/1-down rule until the first
// reversal.  It finishes when at least NReversals reversals and NTrials
// trials have occurred.
type Stair struct {
	Base
	Params StairParams `desc:"configuration, fixed at construction"`

	CorrectCounter      int        `desc:"signed length of the current response run: positive correct, negative incorrect"`
	CurrentDirection    Directions `desc:"direction intensity is currently moving"`
	StepSizeCurrent     float64    `desc:"step size in effect, advanced per reversal when multiple sizes given"`
	ReversalTrials      []int      `desc:"0-based trial numbers at which each reversal occurred"`
	ReversalIntensities []float64  `desc:"intensity at each reversal"`

	variableStep  bool
	initialFlip   bool // wrong answer during the initial rule: force one up-step
	nextIntensity float64
}

// NewStair makes a staircase from the given params (nil = defaults).
func NewStair(name string, pr *StairParams) (*Stair, error) {
	st := &Stair{}
	st.initBase(name)
	if pr == nil {
		st.Params.Defaults()
	} else {
		st.Params = *pr
	}
	if len(st.Params.StepSizes) == 0 {
		return nil, fmt.Errorf("stair.NewStair: %s: no step sizes", name)
	}
	if st.Params.NUp < 1 || st.Params.NDown < 1 {
		return nil, fmt.Errorf("stair.NewStair: %s: nUp and nDown must be >= 1, got %d, %d", name, st.Params.NUp, st.Params.NDown)
	}
	if st.Params.StepType < 0 || st.Params.StepType >= StepTypesN {
		return nil, fmt.Errorf("stair.NewStair: %s: unknown step type %d", name, st.Params.StepType)
	}
	st.variableStep = len(st.Params.StepSizes) > 1
	st.StepSizeCurrent = st.Params.StepSizes[0]
	if st.Params.NReversals < len(st.Params.StepSizes) {
		if st.Params.NReversals > 0 {
			log.Printf("stair.Stair: %s: increasing minimum reversals from %d to the number of step sizes, %d", name, st.Params.NReversals, len(st.Params.StepSizes))
		}
		st.Params.NReversals = len(st.Params.StepSizes)
	}
	st.NTrials = st.Params.NTrials
	st.Bounds.Set(st.Params.Min, st.Params.Max)
	st.UseMin = st.Params.UseMin
	st.UseMax = st.Params.UseMax
	st.CurrentDirection = Start
	st.nextIntensity = st.Params.StartVal
	return st, nil
}

// Next advances to the next trial and returns the intensity to present,
// false when the staircase is finished.
func (st *Stair) Next() (float64, bool) {
	if st.Finished {
		return 0, false
	}
	st.ThisTrialN++
	st.padOtherTo(st.ThisTrialN)
	st.Intensities = append(st.Intensities, st.nextIntensity)
	return st.nextIntensity, true
}

// AddResponse records the outcome of the current trial and computes the
// next intensity.  An optional intensity overrides the recorded one when
// the stimulus actually presented differed from what Next returned.
func (st *Stair) AddResponse(result int, intensity ...float64) {
	st.Responses = append(st.Responses, result)
	if len(intensity) > 0 && len(st.Intensities) > 0 {
		st.Intensities[len(st.Intensities)-1] = intensity[0]
	}
	n := len(st.Responses)
	onRun := n > 1 && st.Responses[n-2] == result
	if result == 1 {
		if onRun {
			st.CorrectCounter++
		} else {
			st.CorrectCounter = 1
		}
	} else {
		if onRun {
			st.CorrectCounter--
		} else {
			st.CorrectCounter = -1
		}
	}
	st.mirror("response", result)
	st.calculateNextIntensity()
}

// calculateNextIntensity applies the up/down rules to the latest
// response: detect a reversal, check the stopping rule, advance the step
// size on reversal, then step the intensity.
func (st *Stair) calculateNextIntensity() {
	reversal := false
	last := st.Responses[len(st.Responses)-1]
	if len(st.ReversalIntensities) == 0 && st.Params.InitialRule {
		// 1-up 1-down until the first reversal
		if last == 1 {
			reversal = st.CurrentDirection == Up
			st.CurrentDirection = Down
		} else {
			reversal = st.CurrentDirection == Down
			st.CurrentDirection = Up
		}
	} else if st.CorrectCounter >= st.Params.NDown {
		reversal = st.CurrentDirection != Down
		st.CurrentDirection = Down
	} else if st.CorrectCounter <= -st.Params.NUp {
		reversal = st.CurrentDirection != Up
		st.CurrentDirection = Up
	}

	if reversal {
		st.ReversalTrials = append(st.ReversalTrials, st.ThisTrialN)
		if len(st.ReversalIntensities) == 0 {
			// the step after the first reversal still follows the 1-up
			// 1-down rule
			st.initialFlip = true
		}
		st.ReversalIntensities = append(st.ReversalIntensities, st.Intensities[len(st.Intensities)-1])
	}

	if len(st.ReversalIntensities) >= st.Params.NReversals && len(st.Intensities) >= st.NTrials {
		st.Finished = true
	}

	if reversal && st.variableStep {
		if len(st.ReversalIntensities) >= len(st.Params.StepSizes) {
			st.StepSizeCurrent = st.Params.StepSizes[len(st.Params.StepSizes)-1]
		} else {
			st.StepSizeCurrent = st.Params.StepSizes[len(st.ReversalIntensities)]
		}
	}

	if (len(st.ReversalIntensities) == 0 || st.initialFlip) && st.Params.InitialRule {
		st.initialFlip = false
		if last == 1 {
			st.intensityDec()
		} else {
			st.intensityInc()
		}
	} else if st.CorrectCounter >= st.Params.NDown {
		st.intensityDec()
	} else if st.CorrectCounter <= -st.Params.NUp {
		st.intensityInc()
	}
}

// intensityInc raises the intensity one step and resets the run counter.
func (st *Stair) intensityInc() {
	switch st.Params.StepType {
	case Db:
		st.nextIntensity *= math.Pow(10, st.StepSizeCurrent/20)
	case Log:
		st.nextIntensity *= math.Pow(10, st.StepSizeCurrent)
	case Lin:
		st.nextIntensity += st.StepSizeCurrent
	}
	st.nextIntensity = st.clampMax(st.nextIntensity)
	st.CorrectCounter = 0
}

// intensityDec lowers the intensity one step and resets the run counter.
func (st *Stair) intensityDec() {
	switch st.Params.StepType {
	case Db:
		st.nextIntensity /= math.Pow(10, st.StepSizeCurrent/20)
	case Log:
		st.nextIntensity /= math.Pow(10, st.StepSizeCurrent)
	case Lin:
		st.nextIntensity -= st.StepSizeCurrent
	}
	st.nextIntensity = st.clampMin(st.nextIntensity)
	st.CorrectCounter = 0
}

// CurInfo contributes the current trial state to a session entry.
func (st *Stair) CurInfo(add func(name string, value interface{})) {
	if st.ThisTrialN < 0 {
		return
	}
	add(st.Nm+".thisTrialN", st.ThisTrialN)
	add(st.Nm+".intensity", st.CurIntensity())
	add(st.Nm+".direction", st.CurrentDirection.String())
	add(st.Nm+".stepSize", st.StepSizeCurrent)
}
