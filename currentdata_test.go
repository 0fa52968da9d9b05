// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beaglephase

import "gopkg.in/check.v1"

type currentDataSuite struct{}

var _ = check.Suite(&currentDataSuite{})

func (s *currentDataSuite) TestNewCurrentDataBuildsTargetMaps(c *check.C) {
	refMarkers := []Marker{
		{ChromIndex: 1, Pos: 1, Alleles: []string{"A", "G"}},
		{ChromIndex: 1, Pos: 2, Alleles: []string{"A", "G"}},
		{ChromIndex: 1, Pos: 3, Alleles: []string{"A", "G"}},
		{ChromIndex: 1, Pos: 4, Alleles: []string{"A", "G"}},
	}
	typed := []bool{true, false, true, false}
	cmAt := []float64{0, 0.5, 1.0, 1.5}

	cd := NewCurrentData(refMarkers, typed, cmAt, 3, 1e6, 100)

	c.Check(cd.Markers.NMarkers(), check.Equals, 4)
	c.Check(cd.TargMarkers.NMarkers(), check.Equals, 2)
	c.Check(cd.TargToRef, check.DeepEquals, []int{0, 2})
	c.Check(cd.RefToTarg, check.DeepEquals, []int{0, -1, 1, -1})
}

func (s *currentDataSuite) TestGenDistClampedToMinimum(c *check.C) {
	refMarkers := []Marker{
		{ChromIndex: 1, Pos: 1}, {ChromIndex: 1, Pos: 2}, {ChromIndex: 1, Pos: 3},
	}
	typed := []bool{true, true, true}
	cmAt := []float64{0, 0, 1.0} // identical cM between markers 0 and 1

	cd := NewCurrentData(refMarkers, typed, cmAt, 0, 1e6, 100)
	c.Check(cd.GenDist[0], check.Equals, 1e-7)
	c.Check(cd.GenDist[1], check.Equals, 1e-7)
	c.Check(cd.GenDist[2], check.Equals, 1.0)
}

func (s *currentDataSuite) TestIntensityFormula(c *check.C) {
	cd := NewCurrentData(nil, nil, nil, 0, 2e6, 50)
	c.Check(cd.Intensity, check.Equals, 0.04*2e6/(2*50))
}

func (s *currentDataSuite) TestOutputRangeUsesSpliceBookkeeping(c *check.C) {
	refMarkers := make([]Marker, 10)
	typed := make([]bool, 10)
	cmAt := make([]float64, 10)
	for i := range refMarkers {
		refMarkers[i] = Marker{ChromIndex: 1, Pos: i}
		typed[i] = true
		cmAt[i] = float64(i)
	}
	cd := NewCurrentData(refMarkers, typed, cmAt, 4, 1e6, 100)
	cd.SetPrevSplice(2)

	start, end := cd.OutputRange()
	c.Check(start, check.Equals, 1)
	c.Check(end, check.Equals, (10+4)/2)
}
