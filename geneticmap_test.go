// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beaglephase

import "gopkg.in/check.v1"

type geneticMapSuite struct{}

var _ = check.Suite(&geneticMapSuite{})

func points(rows [][3]float64) []struct {
	Chrom int
	Pos   int
	CM    float64
} {
	out := make([]struct {
		Chrom int
		Pos   int
		CM    float64
	}, len(rows))
	for i, r := range rows {
		out[i] = struct {
			Chrom int
			Pos   int
			CM    float64
		}{Chrom: int(r[0]), Pos: int(r[1]), CM: r[2]}
	}
	return out
}

func (s *geneticMapSuite) TestGenPosInterpolatesBetweenPoints(c *check.C) {
	gm := NewGeneticMap(points([][3]float64{
		{1, 1000, 0.0},
		{1, 2000, 1.0},
		{1, 3000, 3.0},
	}))
	c.Check(gm.GenPos(1, 1000), check.Equals, 0.0)
	c.Check(gm.GenPos(1, 1500), check.Equals, 0.5)
	c.Check(gm.GenPos(1, 2500), check.Equals, 2.0)
	c.Check(gm.GenPos(1, 3000), check.Equals, 3.0)
}

func (s *geneticMapSuite) TestGenPosExtrapolatesOutsideRange(c *check.C) {
	gm := NewGeneticMap(points([][3]float64{
		{1, 1000, 0.0},
		{1, 2000, 1.0},
	}))
	c.Check(gm.GenPos(1, 500), check.Equals, -0.5)
	c.Check(gm.GenPos(1, 2500), check.Equals, 1.5)
}

func (s *geneticMapSuite) TestGenPosUnknownChromReturnsZero(c *check.C) {
	gm := NewGeneticMap(points([][3]float64{{1, 1000, 0.0}}))
	c.Check(gm.GenPos(99, 500), check.Equals, 0.0)
}

func (s *geneticMapSuite) TestBasePosIsInverseOfGenPos(c *check.C) {
	gm := NewGeneticMap(points([][3]float64{
		{1, 1000, 0.0},
		{1, 2000, 1.0},
		{1, 3000, 3.0},
	}))
	c.Check(gm.BasePos(1, 0.5), check.Equals, 1500)
	c.Check(gm.BasePos(1, 2.0), check.Equals, 2500)
}

func (s *geneticMapSuite) TestUnsortedInputIsSortedPerChromosome(c *check.C) {
	gm := NewGeneticMap(points([][3]float64{
		{1, 3000, 3.0},
		{1, 1000, 0.0},
		{1, 2000, 1.0},
	}))
	c.Check(gm.GenPos(1, 1500), check.Equals, 0.5)
}
