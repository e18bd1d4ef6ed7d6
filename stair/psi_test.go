// Copyright (c) 2026, The Psylab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stair

import (
	"bytes"
	"math"
	"testing"

	"github.com/emer/etable/etensor"
	"github.com/emer/etable/minmax"
)

func psiParams() *PsiParams {
	pr := &PsiParams{}
	pr.Defaults()
	pr.NTrials = 25
	pr.IntensRange = minmax.F64{Min: 0, Max: 1}
	pr.IntensPrecision = 0.05
	pr.AlphaRange = minmax.F64{Min: 0, Max: 1}
	pr.AlphaPrecision = 0.05
	pr.BetaRange = minmax.F64{Min: 0.05, Max: 1}
	pr.BetaPrecision = 0.05
	pr.Delta = 0.02
	pr.ExpectedMin = 0.5
	return pr
}

func TestPsiGrids(t *testing.T) {
	ps, err := NewPsi("test", psiParams())
	if err != nil {
		t.Fatalf("NewPsi err: %v\n", err)
	}
	if len(ps.X) != 21 {
		t.Errorf("intensity grid: %v points, cor: 21\n", len(ps.X))
	}
	if len(ps.Alpha) != 21 {
		t.Errorf("alpha grid: %v points, cor: 21\n", len(ps.Alpha))
	}
	if len(ps.Beta) != 20 {
		t.Errorf("beta grid: %v points, cor: 20\n", len(ps.Beta))
	}
	sum := 0.0
	for _, v := range ps.Posterior.Values {
		sum += v
	}
	if math.Abs(sum-1) > difTol {
		t.Errorf("prior sum: %v, cor: 1\n", sum)
	}
}

func TestPsiRun(t *testing.T) {
	ps, err := NewPsi("test", psiParams())
	if err != nil {
		t.Fatalf("NewPsi err: %v\n", err)
	}
	n := 0
	for {
		v, ok := ps.Next()
		if !ok {
			break
		}
		if v < 0 || v > 1 {
			t.Errorf("trial %d intensity %v outside the range\n", n, v)
		}
		r := 0
		if v >= 0.4 {
			r = 1
		}
		ps.AddResponse(r)
		n++
		if n > 100 {
			t.Fatalf("psi did not finish\n")
		}
	}
	if n != 25 {
		t.Errorf("trials: %v, cor: 25\n", n)
	}
	sum := 0.0
	for _, v := range ps.Posterior.Values {
		sum += v
	}
	if math.Abs(sum-1) > 1.0e-6 {
		t.Errorf("posterior sum after run: %v, cor: 1\n", sum)
	}
	a, b := ps.EstimateLambda()
	if a < 0 || a > 1 {
		t.Errorf("alpha estimate %v outside its range\n", a)
	}
	if b < 0.05 || b > 1 {
		t.Errorf("beta estimate %v outside its range\n", b)
	}
	th, err := ps.EstimateThreshold(0.75)
	if err != nil {
		t.Fatalf("EstimateThreshold err: %v\n", err)
	}
	if math.Abs(th-0.4) > 0.25 {
		t.Errorf("threshold estimate: %v, cor: near 0.4\n", th)
	}
}

func TestPsiEstimateThresholdLambda(t *testing.T) {
	ps, err := NewPsi("test", psiParams())
	if err != nil {
		t.Fatalf("NewPsi err: %v\n", err)
	}
	// with an explicit lambda the answer is exactly invertible:
	// p = .5*delta + (1-delta)*(.5 + .5*Phi), at Phi = 0 the threshold
	// probability is .5*delta + (1-delta)*.75... so query the midpoint
	th, err := ps.EstimateThreshold(0.5*ps.Params.Delta+(1-ps.Params.Delta)*0.75, 0.4, 0.2)
	if err != nil {
		t.Fatalf("EstimateThreshold err: %v\n", err)
	}
	if math.Abs(th-0.4) > 1.0e-9 {
		t.Errorf("threshold: %v, cor: 0.4\n", th)
	}
	if _, err := ps.EstimateThreshold(0.01, 0.4, 0.2); err == nil {
		t.Errorf("threshold below the floor should have failed\n")
	}
}

func TestPsiLogSpacing(t *testing.T) {
	pr := psiParams()
	pr.StepType = Log
	pr.IntensRange = minmax.F64{Min: 0.01, Max: 1}
	pr.IntensPrecision = 10 // number of steps for log spacing
	ps, err := NewPsi("test", pr)
	if err != nil {
		t.Fatalf("NewPsi err: %v\n", err)
	}
	if len(ps.X) != 10 {
		t.Fatalf("intensity grid: %v points, cor: 10\n", len(ps.X))
	}
	if math.Abs(ps.X[0]-0.01) > difTol || math.Abs(ps.X[9]-1) > difTol {
		t.Errorf("endpoints: %v, %v, cor: 0.01, 1\n", ps.X[0], ps.X[9])
	}
	// ratios between adjacent points are constant
	r0 := ps.X[1] / ps.X[0]
	for i := 2; i < len(ps.X); i++ {
		if math.Abs(ps.X[i]/ps.X[i-1]-r0) > 1.0e-9 {
			t.Errorf("spacing not logarithmic at point %d\n", i)
		}
	}
}

func TestPsiPosteriorRoundTrip(t *testing.T) {
	ps, err := NewPsi("test", psiParams())
	if err != nil {
		t.Fatalf("NewPsi err: %v\n", err)
	}
	for i := 0; i < 5; i++ {
		ps.Next()
		ps.AddResponse(i % 2)
	}
	var buf bytes.Buffer
	if err := ps.SavePosterior(&buf); err != nil {
		t.Fatalf("SavePosterior err: %v\n", err)
	}
	tsr, err := LoadPosterior(&buf)
	if err != nil {
		t.Fatalf("LoadPosterior err: %v\n", err)
	}
	if tsr.Dim(0) != len(ps.Alpha) || tsr.Dim(1) != len(ps.Beta) {
		t.Fatalf("loaded shape: [%v, %v], cor: [%v, %v]\n", tsr.Dim(0), tsr.Dim(1), len(ps.Alpha), len(ps.Beta))
	}
	for i, v := range ps.Posterior.Values {
		if tsr.Values[i] != v {
			t.Fatalf("value %d: %v, cor: %v\n", i, tsr.Values[i], v)
		}
	}
	// a loaded posterior seeds a new run
	pr := psiParams()
	pr.Prior = tsr
	ps2, err := NewPsi("resumed", pr)
	if err != nil {
		t.Fatalf("NewPsi with prior err: %v\n", err)
	}
	for i, v := range ps2.Posterior.Values {
		if math.Abs(v-ps.Posterior.Values[i]) > difTol {
			t.Fatalf("resumed posterior differs at %d\n", i)
		}
	}
}

func TestNewPsiErrors(t *testing.T) {
	if _, err := NewPsi("x", nil); err == nil {
		t.Errorf("nil params should have failed\n")
	}
	pr := psiParams()
	pr.ExpectedMin = 0.3
	if _, err := NewPsi("x", pr); err == nil {
		t.Errorf("expectedMin 0.3 should have failed\n")
	}
	pr = psiParams()
	pr.NTrials = 0
	if _, err := NewPsi("x", pr); err == nil {
		t.Errorf("nTrials 0 should have failed\n")
	}
	pr = psiParams()
	pr.BetaRange = minmax.F64{Min: 0, Max: 1}
	if _, err := NewPsi("x", pr); err == nil {
		t.Errorf("beta range starting at 0 should have failed\n")
	}
	pr = psiParams()
	pr.IntensPrecision = 0
	if _, err := NewPsi("x", pr); err == nil {
		t.Errorf("zero intensity precision should have failed\n")
	}
	pr = psiParams()
	pr.Prior = etensor.NewFloat64([]int{3, 3}, nil, []string{"Alpha", "Beta"})
	if _, err := NewPsi("x", pr); err == nil {
		t.Errorf("misshapen prior should have failed\n")
	}
}
