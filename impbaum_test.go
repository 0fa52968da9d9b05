// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beaglephase

import "gopkg.in/check.v1"

type impBaumSuite struct{}

var _ = check.Suite(&impBaumSuite{})

func (s *impBaumSuite) TestRunConcentratesMassOnMatchingState(c *check.C) {
	clusters := []Cluster{
		{Pos: 0, ErrProb: 1e-4, PRecomb: 0},
		{Pos: 1, ErrProb: 1e-4, PRecomb: 0.01},
		{Pos: 2, ErrProb: 1e-4, PRecomb: 0.01},
	}
	hapIndices := [][]int32{{0, 1}, {0, 1}, {0, 1}}
	// reference state 0 always carries allele 1; state 1 always carries
	// allele 0. Target carries allele 1 at every cluster, so state 0
	// should dominate the posterior throughout.
	refAllele := func(c, k int) int {
		if k == 0 {
			return 1
		}
		return 0
	}
	targAllele := func(c int) int { return 1 }

	baum := NewImpLSBaum(2)
	sp := baum.Run(clusters, hapIndices, refAllele, targAllele)

	c.Assert(sp.NClusters(), check.Equals, 3)
	for cl := 0; cl < 3; cl++ {
		found := false
		for k := 0; k < sp.NStates(cl); k++ {
			if sp.RefHap(cl, k) == 0 {
				found = true
				c.Check(sp.Probs(cl, k) > 0.9, check.Equals, true)
			}
		}
		c.Check(found, check.Equals, true)
	}
}

func (s *impBaumSuite) TestRunHandlesUntypedClusterAsUninformative(c *check.C) {
	clusters := []Cluster{
		{Pos: 0, ErrProb: 1e-4, PRecomb: 0},
		{Pos: 1, ErrProb: 1e-4, PRecomb: 0.01},
	}
	hapIndices := [][]int32{{0, 1}, {0, 1}}
	refAllele := func(c, k int) int {
		if k == 0 {
			return 1
		}
		return 0
	}
	// cluster 0 is untyped (-1); cluster 1 observes allele 1, favoring
	// state 0.
	targAllele := func(c int) int {
		if c == 0 {
			return -1
		}
		return 1
	}
	baum := NewImpLSBaum(2)
	sp := baum.Run(clusters, hapIndices, refAllele, targAllele)
	c.Assert(sp.NClusters(), check.Equals, 2)
}

func (s *impBaumSuite) TestSparsityThresholdCapsAtPointZeroZeroFive(c *check.C) {
	c.Check(sparsityThreshold(2), check.Equals, float32(0.005))
	big := sparsityThreshold(100000)
	c.Check(big < 0.005, check.Equals, true)
}

func (s *impBaumSuite) TestStateProbsFactoryBuildsConsistentClusterCount(c *check.C) {
	clusters := []Cluster{{Pos: 0, ErrProb: 0, PRecomb: 0}}
	hapIndices := [][]int32{{5, 6}}
	refAllele := func(c, k int) int { return k }
	targAllele := func(c int) int { return 0 }

	factory := NewStateProbsFactory(2)
	sp := factory.Build(clusters, hapIndices, refAllele, targAllele)
	c.Check(sp.NClusters(), check.Equals, 1)
}
