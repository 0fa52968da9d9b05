// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beaglephase

import (
	"sync"

	"gopkg.in/check.v1"
)

type regressSuite struct{}

var _ = check.Suite(&regressSuite{})

// closedFormSlope computes beta directly from the defining sums, to check
// Regress's atomic accumulation against an independent implementation.
func closedFormSlope(xs, ys []float64) float64 {
	var sx, sy, sxx, sxy float64
	n := float64(len(xs))
	for i := range xs {
		sx += xs[i]
		sy += ys[i]
		sxx += xs[i] * xs[i]
		sxy += xs[i] * ys[i]
	}
	return (n*sxy - sx*sy) / (n*sxx - sx*sx)
}

func (s *regressSuite) TestSlopeMatchesClosedForm(c *check.C) {
	xs := []float64{1.47, 1.51, 1.55, 1.58, 1.61, 1.64, 1.66, 1.69, 1.71, 1.73, 1.75, 1.77, 1.79, 1.81, 1.83}
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = 61.27 * x
	}
	ys[0] = 52.21
	ys[len(ys)-1] = 74.46

	var r Regress
	for i := range xs {
		r.Add(xs[i], ys[i])
	}
	got, ok := r.Slope()
	c.Assert(ok, check.Equals, true)
	c.Check(got, check.Equals, closedFormSlope(xs, ys))
	c.Check(r.Count(), check.Equals, int64(len(xs)))
}

func (s *regressSuite) TestSlopeDegenerateBelowTwoPoints(c *check.C) {
	var r Regress
	_, ok := r.Slope()
	c.Check(ok, check.Equals, false)

	r.Add(1.0, 2.0)
	_, ok = r.Slope()
	c.Check(ok, check.Equals, false)
}

func (s *regressSuite) TestSlopeDegenerateSingleX(c *check.C) {
	var r Regress
	r.Add(1.0, 5.0)
	r.Add(1.0, 9.0)
	_, ok := r.Slope()
	c.Check(ok, check.Equals, false)
}

// TestConcurrentAdd exercises the atomic CAS-loop accumulators under
// concurrent writers, the way recombination-factor reestimation accumulates
// one Regress across every sample's phasing goroutine within an iteration.
func (s *regressSuite) TestConcurrentAdd(c *check.C) {
	var r Regress
	var wg sync.WaitGroup
	const nGoroutines, perGoroutine = 20, 50
	for g := 0; g < nGoroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				x := float64(g*perGoroutine + i)
				r.Add(x, 3*x+1)
			}
		}(g)
	}
	wg.Wait()
	c.Check(r.Count(), check.Equals, int64(nGoroutines*perGoroutine))
	beta, ok := r.Slope()
	c.Assert(ok, check.Equals, true)
	c.Check(beta > 2.999 && beta < 3.001, check.Equals, true)
}
