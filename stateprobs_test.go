// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beaglephase

import "gopkg.in/check.v1"

type stateProbsSuite struct{}

var _ = check.Suite(&stateProbsSuite{})

func (s *stateProbsSuite) TestNewStateProbsDropsEntriesBelowThreshold(c *check.C) {
	clusters := []Cluster{{Pos: 0}, {Pos: 1}}
	hapIndices := [][]int32{{10, 20, 30}, {10, 20, 30}}
	// 3 states: thr = min(0.005, 0.9999/3) = 0.005. State 2 stays below
	// threshold at both c and c+1, so it should be dropped entirely.
	post := [][]float32{
		{0.9, 0.099, 0.001},
		{0.9, 0.099, 0.001},
	}
	sp := newStateProbs(clusters, hapIndices, post)
	c.Assert(sp.NClusters(), check.Equals, 2)
	c.Check(sp.NStates(0), check.Equals, 2)
	for k := 0; k < sp.NStates(0); k++ {
		c.Check(sp.RefHap(0, k) != 30, check.Equals, true)
	}
}

func (s *stateProbsSuite) TestNewStateProbsKeepsLastClusterProbsP1EqualsProbs(c *check.C) {
	clusters := []Cluster{{Pos: 0}, {Pos: 1}}
	hapIndices := [][]int32{{1, 2}, {1, 2}}
	post := [][]float32{
		{0.5, 0.5},
		{0.9, 0.1},
	}
	sp := newStateProbs(clusters, hapIndices, post)
	for k := 0; k < sp.NStates(1); k++ {
		c.Check(sp.ProbsP1(1, k), check.Equals, sp.Probs(1, k))
	}
}

func (s *stateProbsSuite) TestNewStateProbsRetainsStateAboveThresholdAtEitherCluster(c *check.C) {
	clusters := []Cluster{{Pos: 0}, {Pos: 1}}
	hapIndices := [][]int32{{7, 8}, {7, 8}}
	// state 1 is below threshold at c=0 but above it at c=1, so it must
	// still be retained at cluster 0 (the ProbsP1 lookahead).
	post := [][]float32{
		{0.999, 0.001},
		{0.01, 0.99},
	}
	sp := newStateProbs(clusters, hapIndices, post)
	c.Check(sp.NStates(0), check.Equals, 2)
}

func (s *stateProbsSuite) TestNewStateProbsEmptyClustersYieldsEmptyStateProbs(c *check.C) {
	sp := newStateProbs(nil, nil, nil)
	c.Check(sp.NClusters(), check.Equals, 0)
}
