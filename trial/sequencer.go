// Copyright (c) 2026, The Psylab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package trial provides the Sequencer, which expands a weighted condition
list into a presentation order (sequential, per-block random, or fully
random across the whole run) and steps through it one trial at a time,
plus the missing-aware DataStore it records per-trial data into.
*/
package trial

import (
	"fmt"
	"math/rand"

	"github.com/emer/emergent/env"
	"github.com/emer/emergent/erand"
	"github.com/emer/etable/etensor"
	"github.com/psylab/adapt/cond"
	"github.com/psylab/adapt/session"
)

// Sequencer presents a list of conditions nReps times each (times their
// weights), in the order given by Method.  Use Next to draw trials until
// it returns false, AddData to record per-trial results.
type Sequencer struct {
	Nm     string           `desc:"name of the sequencer, prefixes its session data columns"`
	Conds  []cond.Condition `desc:"the conditions presented"`
	NReps  int              `desc:"number of repetitions of the full weighted set"`
	Method Methods          `desc:"presentation order method"`
	Seed   int64            `desc:"random seed applied once before the first shuffle, 0 = leave generator state alone"`

	Trial      env.Ctr         `desc:"trial within the current block"`
	Rep        env.Ctr         `desc:"repetition (block) counter"`
	ThisN      int             `desc:"total trials drawn so far, -1 before the first"`
	NRemaining int             `desc:"trials left to draw"`
	ThisIndex  int             `desc:"condition list index of the current trial"`
	ThisCond   *cond.Condition `desc:"the current condition, nil before first Next and after finish"`
	Finished   bool            `desc:"true once every trial has been drawn"`

	Data *DataStore       `desc:"per-trial data organized [condition row, repetition]"`
	Sess *session.Session `desc:"attached session aggregator, nil if none"`

	seq   *etensor.Int
	wtSum []int
}

// NewSequencer validates the configuration and builds the full
// presentation sequence up front.  Weights multiply a condition's
// presentations within each repetition; a condition without a weight
// field counts once.
func NewSequencer(name string, conds []cond.Condition, nReps int, method Methods, seed int64) (*Sequencer, error) {
	if len(conds) == 0 {
		return nil, fmt.Errorf("trial.NewSequencer: %s: no conditions", name)
	}
	if nReps < 1 {
		return nil, fmt.Errorf("trial.NewSequencer: %s: nReps must be >= 1, got %d", name, nReps)
	}
	if method < 0 || method >= MethodsN {
		return nil, fmt.Errorf("trial.NewSequencer: %s: unknown method %d", name, method)
	}
	ss := &Sequencer{Nm: name, Conds: conds, NReps: nReps, Method: method, Seed: seed}
	ss.wtSum = make([]int, len(conds)+1)
	for ci := range conds {
		ss.wtSum[ci+1] = ss.wtSum[ci] + conds[ci].Weight()
	}
	blockLen := ss.wtSum[len(conds)]
	ss.Trial.Scale = env.Trial
	ss.Trial.Max = blockLen
	ss.Trial.Init()
	ss.Trial.Cur = -1 // so that first Next = 0
	ss.Rep.Scale = env.Epoch
	ss.Rep.Max = nReps
	ss.Rep.Init()
	ss.ThisN = -1
	ss.NRemaining = blockLen * nReps
	ss.ThisIndex = -1
	ss.Data = NewDataStore(blockLen, nReps)
	ss.Data.AddKey("ran")
	ss.Data.AddKey("order")
	ss.makeSequence()
	return ss, nil
}

func (ss *Sequencer) Name() string {
	return ss.Nm
}

func (ss *Sequencer) IsFinished() bool {
	return ss.Finished
}

// SetSession attaches the session that AddData mirrors into.
func (ss *Sequencer) SetSession(se *session.Session) {
	ss.Sess = se
}

// BlockLen returns the weight-expanded block length (trials per rep).
func (ss *Sequencer) BlockLen() int {
	return ss.wtSum[len(ss.Conds)]
}

// Total returns the total number of trials in the run.
func (ss *Sequencer) Total() int {
	return ss.BlockLen() * ss.NReps
}

// makeSequence fills seq[trialInBlock][rep] with condition indices.
// The seed, when non-zero, is applied once so only the first shuffle of
// a run is pinned; subsequent shuffles continue the generator.
func (ss *Sequencer) makeSequence() {
	blockLen := ss.BlockLen()
	base := make([]int, 0, blockLen)
	for ci := range ss.Conds {
		for w := 0; w < ss.Conds[ci].Weight(); w++ {
			base = append(base, ci)
		}
	}
	ss.seq = etensor.NewInt([]int{blockLen, ss.NReps}, nil, []string{"Trial", "Rep"})
	if ss.Seed != 0 {
		rand.Seed(ss.Seed)
	}
	switch ss.Method {
	case Sequential:
		for r := 0; r < ss.NReps; r++ {
			for b := 0; b < blockLen; b++ {
				ss.seq.Set([]int{b, r}, base[b])
			}
		}
	case Random:
		ord := make([]int, blockLen)
		for r := 0; r < ss.NReps; r++ {
			copy(ord, base)
			erand.PermuteInts(ord)
			for b := 0; b < blockLen; b++ {
				ss.seq.Set([]int{b, r}, ord[b])
			}
		}
	case FullRandom:
		flat := make([]int, 0, blockLen*ss.NReps)
		for r := 0; r < ss.NReps; r++ {
			flat = append(flat, base...)
		}
		erand.PermuteInts(flat)
		for p, ci := range flat {
			ss.seq.Set([]int{p % blockLen, p / blockLen}, ci)
		}
	}
}

// Next advances to the next trial and returns its condition, or
// (nil, false) when the run is finished.  Each draw records ran = 1 and
// order = ThisN at the trial's data position.
func (ss *Sequencer) Next() (*cond.Condition, bool) {
	if ss.Finished {
		return nil, false
	}
	if ss.Trial.Incr() {
		if ss.Rep.Incr() {
			ss.Finished = true
			ss.ThisCond = nil
			return nil, false
		}
	}
	ss.ThisN++
	ss.NRemaining--
	ss.ThisIndex = ss.seq.Value([]int{ss.Trial.Cur, ss.Rep.Cur})
	ss.ThisCond = &ss.Conds[ss.ThisIndex]
	row, rep := ss.nextPos()
	ss.Data.Add("ran", row, rep, 1.0)
	row, rep = ss.curPos()
	ss.Data.Add("order", row, rep, float64(ss.ThisN))
	return ss.ThisCond, true
}

// drawCount returns how many times the given condition has been drawn so
// far, by summing its ran cells.  This is what makes positions correct
// under FullRandom, where repetitions of a condition ignore block
// boundaries.
func (ss *Sequencer) drawCount(ci int) int {
	return int(ss.Data.Sum("ran", ss.wtSum[ci], ss.wtSum[ci+1]))
}

// nextPos returns the data position the current draw should write to,
// before its ran cell is recorded.
func (ss *Sequencer) nextPos() (row, rep int) {
	n := ss.drawCount(ss.ThisIndex)
	w := ss.Conds[ss.ThisIndex].Weight()
	return ss.wtSum[ss.ThisIndex] + n%w, n / w
}

// curPos returns the data position of the current trial, after its ran
// cell has been recorded.
func (ss *Sequencer) curPos() (row, rep int) {
	n := ss.drawCount(ss.ThisIndex)
	w := ss.Conds[ss.ThisIndex].Weight()
	return ss.wtSum[ss.ThisIndex] + (n-1)%w, (n - 1) / w
}

// AddData records a named value for the current trial at its data
// position, and mirrors it into the attached session if any.
func (ss *Sequencer) AddData(name string, value interface{}) error {
	if ss.ThisN < 0 || ss.ThisCond == nil {
		return fmt.Errorf("trial.Sequencer: %s: AddData(%s) with no current trial", ss.Nm, name)
	}
	row, rep := ss.curPos()
	ss.Data.Add(name, row, rep, value)
	if ss.Sess != nil {
		ss.Sess.AddData(ss.Nm+"."+name, value)
	}
	return nil
}

// PeekFuture returns the condition n draws ahead of the current trial in
// chronological order, nil if out of range.  n = 0 is the current trial.
func (ss *Sequencer) PeekFuture(n int) *cond.Condition {
	p := ss.ThisN + n
	if p < 0 || p >= ss.Total() {
		return nil
	}
	blockLen := ss.BlockLen()
	ci := ss.seq.Value([]int{p % blockLen, p / blockLen})
	return &ss.Conds[ci]
}

// PeekPast returns the condition n draws behind the current trial,
// nil if out of range.
func (ss *Sequencer) PeekPast(n int) *cond.Condition {
	if n < 0 {
		n = -n
	}
	return ss.PeekFuture(-n)
}

// CurInfo contributes the current trial's counters and condition fields
// to a session entry.
func (ss *Sequencer) CurInfo(add func(name string, value interface{})) {
	if ss.ThisCond == nil {
		return
	}
	add(ss.Nm+".thisN", ss.ThisN)
	add(ss.Nm+".thisRepN", ss.Rep.Cur)
	add(ss.Nm+".thisTrialN", ss.Trial.Cur)
	add(ss.Nm+".thisIndex", ss.ThisIndex)
	for _, fd := range ss.ThisCond.Fields() {
		if vl, ok := ss.ThisCond.Value(fd); ok {
			add(ss.Nm+"."+fd, vl)
		}
	}
}
