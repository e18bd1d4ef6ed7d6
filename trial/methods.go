// Copyright (c) 2026, The Psylab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trial

import (
	"github.com/goki/ki/kit"
)

// Methods are the presentation-order generation methods for a Sequencer.
type Methods int

//go:generate stringer -type=Methods

var KiT_Methods = kit.Enums.AddEnum(MethodsN, false, nil)

func (ev Methods) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *Methods) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	// Sequential presents conditions in list order, identically in every
	// repetition.
	Sequential Methods = iota

	// Random shuffles the weight-expanded condition list independently
	// within each repetition, so each block contains every condition its
	// weighted number of times.
	Random

	// FullRandom shuffles the entire run (all repetitions) flat, so a
	// condition's presentations are unconstrained by block boundaries.
	FullRandom

	MethodsN
)
