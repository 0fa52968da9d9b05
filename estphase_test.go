// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beaglephase

import "gopkg.in/check.v1"

type estPhaseSuite struct{}

var _ = check.Suite(&estPhaseSuite{})

func threeMarkers() *Markers {
	return NewMarkers([]Marker{
		{ChromIndex: 1, Pos: 1, Alleles: []string{"A", "G"}},
		{ChromIndex: 1, Pos: 2, Alleles: []string{"A", "G"}},
		{ChromIndex: 1, Pos: 3, Alleles: []string{"A", "G"}},
	})
}

func (s *estPhaseSuite) TestNewEstPhaseFirstHetNeverListedUnphased(c *check.C) {
	ms := threeMarkers()
	calls := []TargetGT{
		{A1: 0, A2: 1, IsPhased: false}, // first het: fixes reference orientation
		{A1: 0, A2: 1, IsPhased: false}, // second het: unresolved
		{A1: 1, A2: 1, IsPhased: false}, // homozygous
	}
	ep := NewEstPhase(ms, calls)
	c.Check(ep.UnphasedHet(), check.DeepEquals, []int{1})
	c.Check(ep.H1().Allele(ms, 0), check.Equals, 0)
	c.Check(ep.H2().Allele(ms, 0), check.Equals, 1)
}

func (s *estPhaseSuite) TestNewEstPhaseRecordsMissing(c *check.C) {
	ms := threeMarkers()
	calls := []TargetGT{
		{A1: 0, A2: 0},
		{A1: -1, A2: -1},
		{A1: 1, A2: 1},
	}
	ep := NewEstPhase(ms, calls)
	c.Check(ep.Missing(), check.DeepEquals, []int{1})
	c.Check(ep.IsMissingAt(1), check.Equals, true)
	c.Check(ep.IsMissingAt(0), check.Equals, false)
}

func (s *estPhaseSuite) TestNewEstPhasePreservesAlreadyPhasedCalls(c *check.C) {
	ms := threeMarkers()
	calls := []TargetGT{
		{A1: 1, A2: 0, IsPhased: true},
		{A1: 0, A2: 1, IsPhased: false},
		{A1: 0, A2: 0},
	}
	ep := NewEstPhase(ms, calls)
	c.Check(ep.H1().Allele(ms, 0), check.Equals, 1)
	c.Check(ep.H2().Allele(ms, 0), check.Equals, 0)
	// first het in the het-tracking sense is marker 1, not marker 0,
	// since marker 0 arrived already phased and isn't tracked as "the
	// first het" for unphasedHet bookkeeping.
	c.Check(ep.UnphasedHet(), check.HasLen, 0)
}

func (s *estPhaseSuite) TestFlipRangeSwapsHaplotypes(c *check.C) {
	ms := threeMarkers()
	calls := []TargetGT{
		{A1: 0, A2: 1},
		{A1: 0, A2: 1},
		{A1: 1, A2: 0},
	}
	ep := NewEstPhase(ms, calls)
	ep.FlipRange(ms, 1, 3)
	c.Check(ep.H1().Allele(ms, 0), check.Equals, 0)
	c.Check(ep.H2().Allele(ms, 0), check.Equals, 1)
	c.Check(ep.H1().Allele(ms, 1), check.Equals, 1)
	c.Check(ep.H2().Allele(ms, 1), check.Equals, 0)
	c.Check(ep.H1().Allele(ms, 2), check.Equals, 0)
	c.Check(ep.H2().Allele(ms, 2), check.Equals, 1)
}

func (s *estPhaseSuite) TestRemoveResolvedFiltersUnphasedHet(c *check.C) {
	ms := NewMarkers(make([]Marker, 5))
	calls := []TargetGT{
		{A1: 0, A2: 1}, {A1: 0, A2: 1}, {A1: 0, A2: 1}, {A1: 0, A2: 1}, {A1: 0, A2: 1},
	}
	ep := NewEstPhase(ms, calls)
	c.Check(ep.UnphasedHet(), check.DeepEquals, []int{1, 2, 3, 4})

	ep.RemoveResolved(map[int]bool{2: true, 4: true})
	c.Check(ep.UnphasedHet(), check.DeepEquals, []int{1, 3})
}

func (s *estPhaseSuite) TestSetAllele(c *check.C) {
	ms := threeMarkers()
	ep := NewEstPhase(ms, []TargetGT{{A1: 0, A2: 0}, {A1: 0, A2: 0}, {A1: 0, A2: 0}})
	ep.SetAllele(ms, 1, 1, 1)
	ep.SetAllele(ms, 1, 2, 0)
	c.Check(ep.H1().Allele(ms, 1), check.Equals, 1)
	c.Check(ep.H2().Allele(ms, 1), check.Equals, 0)
}
