// Copyright (c) 2026, The Psylab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stair

import (
	"github.com/goki/ki/kit"
)

// StepTypes are the domains a staircase step is applied in.
type StepTypes int

//go:generate stringer -type=StepTypes

var KiT_StepTypes = kit.Enums.AddEnum(StepTypesN, false, nil)

func (ev StepTypes) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *StepTypes) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	// Lin adds or subtracts the step size directly.
	Lin StepTypes = iota

	// Log multiplies or divides by 10^step (step in log10 units).
	Log

	// Db multiplies or divides by 10^(step/20) (step in decibels).
	Db

	StepTypesN
)

// Directions is the direction a staircase is currently moving intensity.
type Directions int

//go:generate stringer -type=Directions

var KiT_Directions = kit.Enums.AddEnum(DirectionsN, false, nil)

func (ev Directions) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *Directions) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	// Start is the state before any response has moved the staircase.
	Start Directions = iota

	// Down means intensity is decreasing.
	Down

	// Up means intensity is increasing.
	Up

	DirectionsN
)

// NextMethods are the posterior summaries a Quest staircase can use to
// pick the next intensity.
type NextMethods int

//go:generate stringer -type=NextMethods

var KiT_NextMethods = kit.Enums.AddEnum(NextMethodsN, false, nil)

func (ev NextMethods) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *NextMethods) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	// Quantile tests at the posterior quantile of QuantileOrder (the
	// default, per Pelli 1987).
	Quantile NextMethods = iota

	// Mean tests at the posterior mean.
	Mean

	// Mode tests at the posterior mode.
	Mode

	NextMethodsN
)

// StairTypes are the staircase procedures a MultiStair can interleave.
type StairTypes int

//go:generate stringer -type=StairTypes

var KiT_StairTypes = kit.Enums.AddEnum(StairTypesN, false, nil)

func (ev StairTypes) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *StairTypes) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	// Simple is the N-up/N-down Stair procedure.
	Simple StairTypes = iota

	// QuestStair is the Quest Bayesian procedure.
	QuestStair

	StairTypesN
)
