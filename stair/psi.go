// Copyright (c) 2026, The Psylab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stair

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/emer/etable/etensor"
	"github.com/emer/etable/minmax"
	"gonum.org/v1/gonum/stat/distuv"
)

// PsiParams is the configuration for a Psi staircase (Kontsevich &
// Tyler 1999).  The psychometric function is a cumulative Gaussian with
// location Alpha and slope Beta; for a Yes/No task (ExpectedMin 0)
//
//	Y(x) = .5*Delta + (1-Delta) * Phi((x-Alpha)/Beta)
//
// and for 2AFC (ExpectedMin 0.5)
//
//	Y(x) = .5*Delta + (1-Delta) * (.5 + .5*Phi((x-Alpha)/Beta))
type PsiParams struct {
	NTrials         int              `desc:"number of trials to run"`
	IntensRange     minmax.F64       `desc:"inclusive endpoints of the stimulus intensity range"`
	AlphaRange      minmax.F64       `desc:"inclusive endpoints of the location (alpha) search range"`
	BetaRange       minmax.F64       `desc:"inclusive endpoints of the slope (beta) search range, must be positive"`
	IntensPrecision float64          `desc:"step size of the intensity range (Lin), or number of steps (Log)"`
	AlphaPrecision  float64          `desc:"step size of the alpha range"`
	BetaPrecision   float64          `desc:"step size of the beta range"`
	Delta           float64          `desc:"guess (lapse) rate"`
	StepType        StepTypes        `def:"Lin" desc:"spacing of the intensity candidates, Lin or Log"`
	ExpectedMin     float64          `def:"0.5" desc:"expected lower asymptote: 0 for Yes/No, 0.5 for 2AFC"`
	Prior           *etensor.Float64 `desc:"optional prior over (alpha, beta), replacing the uniform default; must be shaped [len(alpha), len(beta)]"`
}

func (pp *PsiParams) Defaults() {
	pp.StepType = Lin
	pp.ExpectedMin = 0.5
	pp.Delta = 0.02
}

// Psi estimates both location and slope of the psychometric function by
// grid approximation of the joint posterior, presenting each trial at
// the intensity that minimizes the expected posterior entropy.
type Psi struct {
	Base
	Params PsiParams `desc:"configuration, fixed at construction"`

	X         []float64        `desc:"candidate intensities"`
	Alpha     []float64        `desc:"location grid"`
	Beta      []float64        `desc:"slope grid"`
	Posterior *etensor.Float64 `desc:"posterior over (alpha, beta), kept normalized"`

	pf            []float64 // P(response 1 | x, alpha, beta), [x][alpha][beta]
	nextIdx       int
	nextIntensity float64
}

// NewPsi makes a Psi staircase.  Only Yes/No (ExpectedMin 0) and 2AFC
// (ExpectedMin 0.5) designs are supported; anything else is an error.
func NewPsi(name string, pr *PsiParams) (*Psi, error) {
	if pr == nil {
		return nil, fmt.Errorf("stair.NewPsi: %s: nil params", name)
	}
	ps := &Psi{}
	ps.initBase(name)
	ps.Params = *pr
	if ps.Params.ExpectedMin != 0 && ps.Params.ExpectedMin != 0.5 {
		return nil, fmt.Errorf("stair.NewPsi: %s: only Yes/No and 2AFC designs are supported: expectedMin must be 0 or 0.5, got %g", name, ps.Params.ExpectedMin)
	}
	if ps.Params.NTrials <= 0 {
		return nil, fmt.Errorf("stair.NewPsi: %s: nTrials must be > 0, got %d", name, ps.Params.NTrials)
	}
	if ps.Params.StepType != Lin && ps.Params.StepType != Log {
		return nil, fmt.Errorf("stair.NewPsi: %s: intensity step type must be Lin or Log, got %s", name, ps.Params.StepType)
	}
	if ps.Params.BetaRange.Min <= 0 {
		return nil, fmt.Errorf("stair.NewPsi: %s: beta range must be positive, got min %g", name, ps.Params.BetaRange.Min)
	}
	var err error
	if ps.Params.StepType == Log {
		ps.X, err = logRange(ps.Params.IntensRange, int(ps.Params.IntensPrecision))
	} else {
		ps.X, err = linRange(ps.Params.IntensRange, ps.Params.IntensPrecision)
	}
	if err != nil {
		return nil, fmt.Errorf("stair.NewPsi: %s: intensity range: %v", name, err)
	}
	if ps.Alpha, err = linRange(ps.Params.AlphaRange, ps.Params.AlphaPrecision); err != nil {
		return nil, fmt.Errorf("stair.NewPsi: %s: alpha range: %v", name, err)
	}
	if ps.Beta, err = linRange(ps.Params.BetaRange, ps.Params.BetaPrecision); err != nil {
		return nil, fmt.Errorf("stair.NewPsi: %s: beta range: %v", name, err)
	}
	ps.NTrials = ps.Params.NTrials
	ps.Bounds = ps.Params.IntensRange
	ps.UseMin = true
	ps.UseMax = true

	na, nb := len(ps.Alpha), len(ps.Beta)
	ps.Posterior = etensor.NewFloat64([]int{na, nb}, nil, []string{"Alpha", "Beta"})
	if ps.Params.Prior != nil {
		if ps.Params.Prior.Dim(0) != na || ps.Params.Prior.Dim(1) != nb {
			return nil, fmt.Errorf("stair.NewPsi: %s: prior shaped [%d, %d], want [%d, %d]", name, ps.Params.Prior.Dim(0), ps.Params.Prior.Dim(1), na, nb)
		}
		copy(ps.Posterior.Values, ps.Params.Prior.Values)
		normalize(ps.Posterior.Values)
	} else {
		u := 1.0 / float64(na*nb)
		for i := range ps.Posterior.Values {
			ps.Posterior.Values[i] = u
		}
	}

	// precompute the psychometric lookup over the whole grid
	nrm := distuv.Normal{Mu: 0, Sigma: 1}
	ps.pf = make([]float64, len(ps.X)*na*nb)
	for xi, x := range ps.X {
		for ai, a := range ps.Alpha {
			for bi, b := range ps.Beta {
				cdf := nrm.CDF((x - a) / b)
				if ps.Params.ExpectedMin == 0.5 {
					cdf = 0.5 + 0.5*cdf
				}
				ps.pf[(xi*na+ai)*nb+bi] = 0.5*ps.Params.Delta + (1-ps.Params.Delta)*cdf
			}
		}
	}
	ps.chooseNext()
	return ps, nil
}

// Next advances to the next trial and returns the intensity to present,
// false once NTrials have run.
func (ps *Psi) Next() (float64, bool) {
	if ps.NTrials > 0 && len(ps.Intensities) >= ps.NTrials {
		ps.Finished = true
	}
	if ps.Finished {
		return 0, false
	}
	ps.ThisTrialN++
	ps.padOtherTo(ps.ThisTrialN)
	ps.Intensities = append(ps.Intensities, ps.nextIntensity)
	return ps.nextIntensity, true
}

// AddResponse records the outcome of the current trial, updates the
// posterior at the intensity Psi chose, and picks the next intensity.
// An optional intensity overrides the recorded one but not the update,
// since the posterior lookup is precomputed on Psi's own grid.
func (ps *Psi) AddResponse(result int, intensity ...float64) {
	ps.Responses = append(ps.Responses, result)
	if len(intensity) > 0 && len(ps.Intensities) > 0 {
		ps.Intensities[len(ps.Intensities)-1] = intensity[0]
	}
	ps.mirror("response", result)
	na, nb := len(ps.Alpha), len(ps.Beta)
	base := ps.nextIdx * na * nb
	for i := range ps.Posterior.Values {
		lk := ps.pf[base+i]
		if result == 0 {
			lk = 1 - lk
		}
		ps.Posterior.Values[i] *= lk
	}
	normalize(ps.Posterior.Values)
	ps.chooseNext()
}

// chooseNext evaluates every candidate intensity with a one-step
// lookahead and keeps the one minimizing the expected posterior entropy.
func (ps *Psi) chooseNext() {
	na, nb := len(ps.Alpha), len(ps.Beta)
	n := na * nb
	postS := make([]float64, n)
	postF := make([]float64, n)
	best := math.Inf(1)
	for xi := range ps.X {
		base := xi * n
		pSucc := 0.0
		for i := 0; i < n; i++ {
			s := ps.Posterior.Values[i] * ps.pf[base+i]
			postS[i] = s
			postF[i] = ps.Posterior.Values[i] - s
			pSucc += s
		}
		exp := pSucc*entropy(postS) + (1-pSucc)*entropy(postF)
		if exp < best {
			best = exp
			ps.nextIdx = xi
		}
	}
	ps.nextIntensity = ps.X[ps.nextIdx]
}

// EstimateLambda returns the maximum-likelihood (location, slope) pair.
func (ps *Psi) EstimateLambda() (alpha, beta float64) {
	nb := len(ps.Beta)
	mi := 0
	for i := range ps.Posterior.Values {
		if ps.Posterior.Values[i] > ps.Posterior.Values[mi] {
			mi = i
		}
	}
	return ps.Alpha[mi/nb], ps.Beta[mi%nb]
}

// EstimateThreshold returns the intensity at which the estimated
// psychometric function reaches the given response probability.  A
// (location, slope) pair can be supplied to avoid recomputing the
// maximum-likelihood estimate.
func (ps *Psi) EstimateThreshold(thresh float64, lamb ...float64) (float64, error) {
	var a, b float64
	if len(lamb) == 2 {
		a, b = lamb[0], lamb[1]
	} else {
		a, b = ps.EstimateLambda()
	}
	p := (thresh - 0.5*ps.Params.Delta) / (1 - ps.Params.Delta)
	if ps.Params.ExpectedMin == 0.5 {
		p = (p - 0.5) / 0.5
	}
	if p <= 0 || p >= 1 {
		return 0, fmt.Errorf("stair.Psi: %s: threshold probability %g is outside the psychometric range", ps.Nm, thresh)
	}
	nrm := distuv.Normal{Mu: 0, Sigma: 1}
	return a + b*nrm.Quantile(p), nil
}

// posteriorFile is the JSON form of a saved posterior.
type posteriorFile struct {
	Alpha  []float64
	Beta   []float64
	Values []float64
}

// SavePosterior writes the posterior grid as JSON, for resuming or
// seeding a later run through PsiParams.Prior.
func (ps *Psi) SavePosterior(w io.Writer) error {
	pf := posteriorFile{Alpha: ps.Alpha, Beta: ps.Beta, Values: ps.Posterior.Values}
	enc := json.NewEncoder(w)
	if err := enc.Encode(&pf); err != nil {
		return fmt.Errorf("stair.Psi: %s: SavePosterior: %v", ps.Nm, err)
	}
	return nil
}

// LoadPosterior reads a posterior saved with SavePosterior, returning a
// tensor usable as PsiParams.Prior.
func LoadPosterior(r io.Reader) (*etensor.Float64, error) {
	var pf posteriorFile
	dec := json.NewDecoder(r)
	if err := dec.Decode(&pf); err != nil {
		return nil, fmt.Errorf("stair.LoadPosterior: %v", err)
	}
	na, nb := len(pf.Alpha), len(pf.Beta)
	if na*nb != len(pf.Values) {
		return nil, fmt.Errorf("stair.LoadPosterior: %d values for a [%d, %d] grid", len(pf.Values), na, nb)
	}
	tsr := etensor.NewFloat64([]int{na, nb}, nil, []string{"Alpha", "Beta"})
	copy(tsr.Values, pf.Values)
	return tsr, nil
}

// CurInfo contributes the current trial state to a session entry.
func (ps *Psi) CurInfo(add func(name string, value interface{})) {
	if ps.ThisTrialN < 0 {
		return
	}
	a, b := ps.EstimateLambda()
	add(ps.Nm+".thisTrialN", ps.ThisTrialN)
	add(ps.Nm+".intensity", ps.CurIntensity())
	add(ps.Nm+".alpha", a)
	add(ps.Nm+".beta", b)
}

// linRange builds an inclusive range with the given step size.
func linRange(rng minmax.F64, step float64) ([]float64, error) {
	if step <= 0 {
		return nil, fmt.Errorf("step must be > 0, got %g", step)
	}
	if rng.Max < rng.Min {
		return nil, fmt.Errorf("max %g < min %g", rng.Max, rng.Min)
	}
	n := int(math.Floor((rng.Max-rng.Min)/step+1e-9)) + 1
	vs := make([]float64, n)
	for i := range vs {
		vs[i] = rng.Min + float64(i)*step
	}
	return vs, nil
}

// logRange builds n logarithmically spaced values across the range.
func logRange(rng minmax.F64, n int) ([]float64, error) {
	if n < 2 {
		return nil, fmt.Errorf("log spacing needs at least 2 steps, got %d", n)
	}
	if rng.Min <= 0 || rng.Max <= rng.Min {
		return nil, fmt.Errorf("log spacing needs 0 < min < max, got [%g, %g]", rng.Min, rng.Max)
	}
	lo, hi := math.Log10(rng.Min), math.Log10(rng.Max)
	vs := make([]float64, n)
	for i := range vs {
		vs[i] = math.Pow(10, lo+float64(i)*(hi-lo)/float64(n-1))
	}
	return vs, nil
}

// normalize scales the slice to sum to 1, in place.
func normalize(vs []float64) {
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	if sum <= 0 {
		return
	}
	for i := range vs {
		vs[i] /= sum
	}
}

// entropy returns the Shannon entropy of an unnormalized distribution.
func entropy(vs []float64) float64 {
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	if sum <= 0 {
		return 0
	}
	h := 0.0
	for _, v := range vs {
		if v > 0 {
			p := v / sum
			h -= p * math.Log(p)
		}
	}
	return h
}
