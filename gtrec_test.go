// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beaglephase

import "gopkg.in/check.v1"

type gtrecSuite struct{}

var _ = check.Suite(&gtrecSuite{})

func (s *gtrecSuite) TestAlleleCodedRecAllele(c *check.C) {
	m := Marker{ChromIndex: 1, Pos: 1, Alleles: []string{"A", "C", "G"}}
	rec := NewAlleleCodedRec(m, 6, 0, [][]int32{
		{1, 3}, // allele 1 on haps 1,3
		{5},    // allele 2 on hap 5
	})
	c.Check(rec.Allele(0), check.Equals, 0)
	c.Check(rec.Allele(1), check.Equals, 1)
	c.Check(rec.Allele(2), check.Equals, 0)
	c.Check(rec.Allele(3), check.Equals, 1)
	c.Check(rec.Allele(4), check.Equals, 0)
	c.Check(rec.Allele(5), check.Equals, 2)
	c.Check(rec.NHaps(), check.Equals, 6)
}

func (s *gtrecSuite) TestSeqCodedRecAllele(c *check.C) {
	rec := &RefGTRec{
		Marker:      Marker{ChromIndex: 1, Pos: 1, Alleles: []string{"A", "G"}},
		Kind:        SeqCoded,
		HapToSeq:    []int32{0, 1, 0, 1},
		SeqToAllele: []int32{0, 1},
	}
	c.Check(rec.Allele(0), check.Equals, 0)
	c.Check(rec.Allele(1), check.Equals, 1)
	c.Check(rec.Allele(2), check.Equals, 0)
	c.Check(rec.Allele(3), check.Equals, 1)
	c.Check(rec.NHaps(), check.Equals, 4)
}

func (s *gtrecSuite) TestTargetGTMissingAndHet(c *check.C) {
	missing := TargetGT{A1: -1, A2: 0}
	c.Check(missing.IsMissing(), check.Equals, true)
	c.Check(missing.IsHet(), check.Equals, false)

	het := TargetGT{A1: 0, A2: 1}
	c.Check(het.IsMissing(), check.Equals, false)
	c.Check(het.IsHet(), check.Equals, true)

	hom := TargetGT{A1: 1, A2: 1}
	c.Check(hom.IsHet(), check.Equals, false)
}

func (s *gtrecSuite) TestContainsSorted(c *check.C) {
	s1 := []int32{2, 5, 9, 20}
	c.Check(containsSorted(s1, 9), check.Equals, true)
	c.Check(containsSorted(s1, 6), check.Equals, false)
	c.Check(containsSorted(nil, 1), check.Equals, false)
}
