// Copyright (c) 2026, The Psylab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stair

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// questEps guards the log terms in the optimal quantile order when the
// psychometric function touches 0 or 1.
const questEps = 1.0e-10

// QuestParams is the configuration for a Quest staircase (Watson &
// Pelli 1983).  Beta, Delta and Gamma are the Weibull psychometric
// function parameters.
type QuestParams struct {
	StartVal     float64     `desc:"prior threshold estimate (initial guess)"`
	StartValSD   float64     `desc:"standard deviation of the initial guess; be generous"`
	PThreshold   float64     `def:"0.82" desc:"threshold criterion as probability of response 1"`
	Beta         float64     `def:"3.5" desc:"steepness of the psychometric function"`
	Delta        float64     `def:"0.01" desc:"fraction of trials the observer responds blindly"`
	Gamma        float64     `def:"0.5" desc:"fraction of response 1 at very low intensity (chance rate)"`
	Grain        float64     `def:"0.01" desc:"quantization of the internal posterior table"`
	Range        float64     `desc:"intensity span of the internal table, centered on StartVal; 0 = 500 grains"`
	NTrials      int         `desc:"maximum number of trials, 0 = no trial limit (StopInterval must then be set)"`
	StopInterval float64     `desc:"stop once the 5-95% confidence interval is narrower than this; 0 = off"`
	Method       NextMethods `desc:"posterior summary used to pick the next intensity"`
	Min          float64     `desc:"lower intensity clamp, used if UseMin"`
	Max          float64     `desc:"upper intensity clamp, used if UseMax"`
	UseMin       bool        `desc:"clamp intensities at Min"`
	UseMax       bool        `desc:"clamp intensities at Max"`
}

func (qp *QuestParams) Defaults() {
	qp.PThreshold = 0.82
	qp.Beta = 3.5
	qp.Delta = 0.01
	qp.Gamma = 0.5
	qp.Grain = 0.01
	qp.Method = Quantile
}

// Quest is a Bayesian adaptive staircase: it maintains a posterior over
// threshold offsets around the initial guess, updates it after every
// response through a Weibull psychometric function, and tests the next
// trial at the posterior quantile, mean, or mode.
type Quest struct {
	Base
	Params QuestParams `desc:"configuration, fixed at construction"`

	QuantileOrder float64 `desc:"posterior quantile tested by the Quantile method, derived per Pelli 1987 from the psychometric range"`

	dim           int
	x             []float64    // dim+1 threshold offsets around StartVal
	pdf           []float64    // posterior over x, kept normalized
	s2            [2][]float64 // response likelihood lookup, [response][2dim+1]
	nextIntensity float64
}

// NewQuest makes a Quest staircase from the given params (nil pointer is
// invalid here since StartValSD is required).  It returns an error if
// the psychometric function over the table range cannot bracket
// PThreshold, or if no stopping rule is configured.
func NewQuest(name string, pr *QuestParams) (*Quest, error) {
	if pr == nil {
		return nil, fmt.Errorf("stair.NewQuest: %s: nil params", name)
	}
	qs := &Quest{}
	qs.initBase(name)
	qs.Params = *pr
	if qs.Params.StartValSD <= 0 {
		return nil, fmt.Errorf("stair.NewQuest: %s: startValSd must be > 0, got %g", name, qs.Params.StartValSD)
	}
	if qs.Params.Grain <= 0 {
		return nil, fmt.Errorf("stair.NewQuest: %s: grain must be > 0, got %g", name, qs.Params.Grain)
	}
	if qs.Params.NTrials <= 0 && qs.Params.StopInterval <= 0 {
		return nil, fmt.Errorf("stair.NewQuest: %s: nTrials and/or stopInterval must be specified", name)
	}
	if qs.Params.Method < 0 || qs.Params.Method >= NextMethodsN {
		return nil, fmt.Errorf("stair.NewQuest: %s: unknown next-intensity method %d", name, qs.Params.Method)
	}
	qs.NTrials = qs.Params.NTrials
	qs.Bounds.Set(qs.Params.Min, qs.Params.Max)
	qs.UseMin = qs.Params.UseMin
	qs.UseMax = qs.Params.UseMax

	dim := 500.0
	if qs.Params.Range > 0 {
		dim = qs.Params.Range / qs.Params.Grain
	}
	qs.dim = 2 * int(math.Ceil(dim/2)) // even

	qs.x = make([]float64, qs.dim+1)
	qs.pdf = make([]float64, qs.dim+1)
	for i := range qs.x {
		qs.x[i] = float64(i-qs.dim/2) * qs.Params.Grain
		qs.pdf[i] = math.Exp(-0.5 * sqr(qs.x[i]/qs.Params.StartValSD))
	}
	floats.Scale(1/floats.Sum(qs.pdf), qs.pdf)

	// psychometric function on the double-length grid, then shift it so
	// the table midpoint yields PThreshold
	n2 := 2*qs.dim + 1
	x2 := make([]float64, n2)
	p2 := make([]float64, n2)
	for j := range x2 {
		x2[j] = float64(j-qs.dim) * qs.Params.Grain
		p2[j] = qs.weibull(x2[j])
	}
	if p2[0] >= qs.Params.PThreshold || p2[n2-1] <= qs.Params.PThreshold {
		return nil, fmt.Errorf("stair.NewQuest: %s: psychometric function range [%.2f %.2f] omits %.2f threshold", name, p2[0], p2[n2-1], qs.Params.PThreshold)
	}
	var mx, mp []float64 // strictly monotonic subset
	for j := 0; j < n2-1; j++ {
		if p2[j+1] != p2[j] {
			mx = append(mx, x2[j])
			mp = append(mp, p2[j])
		}
	}
	if len(mp) < 2 {
		return nil, fmt.Errorf("stair.NewQuest: %s: psychometric function has only %d strictly monotonic points", name, len(mp))
	}
	xThreshold := interp(mp, mx, qs.Params.PThreshold)
	for j := range p2 {
		p2[j] = qs.weibull(x2[j] + xThreshold)
	}
	qs.s2[0] = make([]float64, n2)
	qs.s2[1] = make([]float64, n2)
	for j := 0; j < n2; j++ {
		qs.s2[1][j] = p2[n2-1-j]
		qs.s2[0][j] = 1 - p2[n2-1-j]
	}

	// optimal quantile order depends only on the psychometric min and max
	pL, pH := p2[0], p2[n2-1]
	pE := pH*math.Log(pH+questEps) - pL*math.Log(pL+questEps) +
		(1-pH+questEps)*math.Log(1-pH+questEps) - (1-pL+questEps)*math.Log(1-pL+questEps)
	pE = 1 / (1 + math.Exp(pE/(pL-pH)))
	qs.QuantileOrder = (pE - pL) / (pH - pL)

	qs.nextIntensity = qs.Params.StartVal
	return qs, nil
}

// weibull is the response-1 probability at threshold offset x.
func (qs *Quest) weibull(x float64) float64 {
	pr := &qs.Params
	return pr.Delta*pr.Gamma + (1-pr.Delta)*(1-(1-pr.Gamma)*math.Exp(-math.Pow(10, pr.Beta*x)))
}

// Next advances to the next trial and returns the intensity to test at,
// false when the stopping rule has been met.
func (qs *Quest) Next() (float64, bool) {
	if qs.Finished {
		return 0, false
	}
	qs.ThisTrialN++
	qs.padOtherTo(qs.ThisTrialN)
	qs.Intensities = append(qs.Intensities, qs.nextIntensity)
	return qs.nextIntensity, true
}

// AddResponse records the outcome of the current trial, updates the
// posterior, and picks the next intensity.  An optional intensity
// overrides the tested one if the stimulus actually shown differed.
func (qs *Quest) AddResponse(result int, intensity ...float64) {
	inten := qs.nextIntensity
	if len(intensity) > 0 {
		inten = intensity[0]
		if len(qs.Intensities) > 0 {
			qs.Intensities[len(qs.Intensities)-1] = inten
		}
	}
	qs.update(inten, result)
	qs.Responses = append(qs.Responses, result)
	qs.mirror("response", result)
	qs.checkFinished()
	if !qs.Finished {
		qs.calculateNextIntensity()
	}
}

// update multiplies the posterior by the response likelihood at the
// given intensity and renormalizes.
func (qs *Quest) update(inten float64, result int) {
	if result != 0 {
		result = 1
	}
	shift := int(math.Round((inten - qs.Params.StartVal) / qs.Params.Grain))
	off := qs.dim/2 - shift
	if off < 0 {
		off = 0
	}
	if off > qs.dim {
		off = qs.dim
	}
	for k := range qs.pdf {
		qs.pdf[k] *= qs.s2[result][off+k]
	}
	if sum := floats.Sum(qs.pdf); sum > 0 {
		floats.Scale(1/sum, qs.pdf)
	}
}

// calculateNextIntensity picks the next test intensity from the
// posterior per the configured method and clamps it to the bounds.
func (qs *Quest) calculateNextIntensity() {
	switch qs.Params.Method {
	case Mean:
		qs.nextIntensity = qs.Mean()
	case Mode:
		qs.nextIntensity = qs.Mode()
	case Quantile:
		qs.nextIntensity = qs.Quantile(qs.QuantileOrder)
	}
	qs.nextIntensity = qs.clamp(qs.nextIntensity)
}

// checkFinished applies the stopping rule: trial budget exhausted, or
// the 5-95% confidence interval narrower than StopInterval.
func (qs *Quest) checkFinished() {
	switch {
	case qs.NTrials > 0 && len(qs.Intensities) >= qs.NTrials:
		qs.Finished = true
	case qs.Params.StopInterval > 0 && qs.ConfIntervalWidth() < qs.Params.StopInterval:
		qs.Finished = true
	default:
		qs.Finished = false
	}
}

// ImportData replays intensity/response pairs collected elsewhere
// (a prior run, another procedure) into the posterior, extending the
// trial budget so they do not consume it.
func (qs *Quest) ImportData(intensities []float64, responses []int) error {
	if len(intensities) != len(responses) {
		return fmt.Errorf("stair.Quest: %s: ImportData lengths differ: %d intensities, %d responses", qs.Nm, len(intensities), len(responses))
	}
	if qs.NTrials > 0 {
		qs.NTrials += len(intensities)
	}
	for i, inten := range intensities {
		if _, ok := qs.Next(); !ok {
			break // stopInterval already satisfied
		}
		qs.AddResponse(responses[i], inten)
	}
	return nil
}

// Mean returns the posterior mean threshold estimate.
func (qs *Quest) Mean() float64 {
	sum := floats.Sum(qs.pdf)
	if sum == 0 {
		return qs.Params.StartVal
	}
	return qs.Params.StartVal + floats.Dot(qs.pdf, qs.x)/sum
}

// Mode returns the posterior mode threshold estimate.
func (qs *Quest) Mode() float64 {
	mi := 0
	for k := range qs.pdf {
		if qs.pdf[k] > qs.pdf[mi] {
			mi = k
		}
	}
	return qs.Params.StartVal + qs.x[mi]
}

// SD returns the posterior standard deviation.
func (qs *Quest) SD() float64 {
	sum := floats.Sum(qs.pdf)
	if sum == 0 {
		return 0
	}
	mean := floats.Dot(qs.pdf, qs.x) / sum
	sq := 0.0
	for k := range qs.pdf {
		sq += qs.pdf[k] * qs.x[k] * qs.x[k]
	}
	return math.Sqrt(sq/sum - mean*mean)
}

// Quantile returns the threshold estimate at the given posterior
// quantile order in (0, 1).
func (qs *Quest) Quantile(q float64) float64 {
	n := len(qs.pdf)
	cum := make([]float64, n)
	floats.CumSum(cum, qs.pdf)
	total := cum[n-1]
	if total <= 0 {
		return qs.Params.StartVal
	}
	target := q * total
	k := 0
	for k < n && cum[k] < target {
		k++
	}
	if k == 0 {
		return qs.Params.StartVal + qs.x[0]
	}
	if k >= n {
		return qs.Params.StartVal + qs.x[n-1]
	}
	frac := (target - cum[k-1]) / (cum[k] - cum[k-1])
	return qs.Params.StartVal + qs.x[k-1] + frac*(qs.x[k]-qs.x[k-1])
}

// ConfInterval returns the 5% and 95% posterior quantiles.
func (qs *Quest) ConfInterval() (lo, hi float64) {
	return qs.Quantile(0.05), qs.Quantile(0.95)
}

// ConfIntervalWidth returns the width of the 5-95% confidence interval.
func (qs *Quest) ConfIntervalWidth() float64 {
	lo, hi := qs.ConfInterval()
	return math.Abs(hi - lo)
}

// CurInfo contributes the current trial state to a session entry.
func (qs *Quest) CurInfo(add func(name string, value interface{})) {
	if qs.ThisTrialN < 0 {
		return
	}
	add(qs.Nm+".thisTrialN", qs.ThisTrialN)
	add(qs.Nm+".intensity", qs.CurIntensity())
	add(qs.Nm+".mean", qs.Mean())
	add(qs.Nm+".sd", qs.SD())
}

func sqr(v float64) float64 {
	return v * v
}

// interp linearly interpolates y at the given point over the strictly
// increasing xs with values ys, clamping outside the range.
func interp(xs, ys []float64, x float64) float64 {
	n := len(xs)
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[n-1] {
		return ys[n-1]
	}
	k := 1
	for k < n && xs[k] < x {
		k++
	}
	frac := (x - xs[k-1]) / (xs[k] - xs[k-1])
	return ys[k-1] + frac*(ys[k]-ys[k-1])
}
