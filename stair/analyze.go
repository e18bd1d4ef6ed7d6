// Copyright (c) 2026, The Psylab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stair

import (
	"sort"
)

// FuncFromStaircase bins the trial record of a staircase into a
// measured psychometric function: for each bin it returns the mean
// intensity, the proportion of response 1, and the trial count.
// bins <= 0 groups by unique intensity value; otherwise trials are
// sorted by intensity and split into bins equal-count chunks.
func FuncFromStaircase(intensities []float64, responses []int, bins int) (intens, propCorr []float64, ns []int) {
	n := len(intensities)
	if n == 0 || len(responses) < n {
		return nil, nil, nil
	}
	type pair struct {
		inten float64
		resp  int
	}
	ps := make([]pair, n)
	for i := range ps {
		ps[i] = pair{intensities[i], responses[i]}
	}
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].inten < ps[j].inten })

	if bins <= 0 {
		for i := 0; i < n; {
			j := i
			sum := 0
			for j < n && ps[j].inten == ps[i].inten {
				sum += ps[j].resp
				j++
			}
			intens = append(intens, ps[i].inten)
			propCorr = append(propCorr, float64(sum)/float64(j-i))
			ns = append(ns, j-i)
			i = j
		}
		return intens, propCorr, ns
	}

	if bins > n {
		bins = n
	}
	for b := 0; b < bins; b++ {
		lo := b * n / bins
		hi := (b + 1) * n / bins
		if hi <= lo {
			continue
		}
		isum, rsum := 0.0, 0
		for _, p := range ps[lo:hi] {
			isum += p.inten
			rsum += p.resp
		}
		cnt := hi - lo
		intens = append(intens, isum/float64(cnt))
		propCorr = append(propCorr, float64(rsum)/float64(cnt))
		ns = append(ns, cnt)
	}
	return intens, propCorr, ns
}
