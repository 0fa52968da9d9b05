// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beaglephase

import "gonum.org/v1/gonum/floats"

// rescale32 normalizes v (float32, per spec.md §4.6 "all computations in
// 32-bit floats") so its entries sum to 1, returning the pre-rescale sum so
// callers can reconstruct un-normalized magnitudes (needed by the
// recombination-intensity regression of §4.6). gonum/floats operates on
// float64, so the vector is bridged through a scratch buffer; this mirrors
// the teacher's general practice of leaning on gonum.org/v1/gonum for
// vector reductions (chisquare.go, glm.go) rather than hand-rolling sum
// loops.
func rescale32(v []float32, scratch []float64) (sum float64) {
	if cap(scratch) < len(v) {
		scratch = make([]float64, len(v))
	}
	scratch = scratch[:len(v)]
	for i, x := range v {
		scratch[i] = float64(x)
	}
	sum = floats.Sum(scratch)
	if sum <= 0 {
		panicBug("non-positive HMM row sum %g after rescale", sum)
	}
	floats.Scale(1/sum, scratch)
	for i := range v {
		v[i] = float32(scratch[i])
		if isNaN32(v[i]) {
			panicBug("NaN in HMM row after rescale at index %d", i)
		}
	}
	return sum
}

func isNaN32(f float32) bool { return f != f }
