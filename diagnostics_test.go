// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beaglephase

import (
	"bytes"

	"gopkg.in/check.v1"
)

type diagnosticsSuite struct{}

var _ = check.Suite(&diagnosticsSuite{})

func (s *diagnosticsSuite) TestCheckpointRoundTripsUncompressed(c *check.C) {
	cp := &WindowCheckpoint{
		ChromIndex:   2,
		WindowCM:     10.5,
		RecombFactor: 0.0013,
		Haplotypes: []CheckpointHaplotype{
			{Sample: 0, H1Words: []uint64{1, 2}, H2Words: []uint64{3}, UnphasedHet: []int{1, 2}, Missing: []int{5}},
		},
	}
	var buf bytes.Buffer
	c.Assert(WriteCheckpoint(&buf, cp, false), check.IsNil)

	got, err := ReadCheckpoint(&buf, false)
	c.Assert(err, check.IsNil)
	c.Check(got.ChromIndex, check.Equals, cp.ChromIndex)
	c.Check(got.WindowCM, check.Equals, cp.WindowCM)
	c.Check(got.RecombFactor, check.Equals, cp.RecombFactor)
	c.Assert(got.Haplotypes, check.HasLen, 1)
	c.Check(got.Haplotypes[0].H1Words, check.DeepEquals, cp.Haplotypes[0].H1Words)
	c.Check(got.Haplotypes[0].UnphasedHet, check.DeepEquals, cp.Haplotypes[0].UnphasedHet)
}

func (s *diagnosticsSuite) TestCheckpointRoundTripsCompressed(c *check.C) {
	cp := &WindowCheckpoint{ChromIndex: 1, Haplotypes: []CheckpointHaplotype{{Sample: 3}}}
	var buf bytes.Buffer
	c.Assert(WriteCheckpoint(&buf, cp, true), check.IsNil)

	got, err := ReadCheckpoint(&buf, true)
	c.Assert(err, check.IsNil)
	c.Check(got.ChromIndex, check.Equals, 1)
	c.Assert(got.Haplotypes, check.HasLen, 1)
	c.Check(got.Haplotypes[0].Sample, check.Equals, 3)
}

func (s *diagnosticsSuite) TestSnapshotEstPhaseCapturesHaplotypeWordsAndBookkeeping(c *check.C) {
	ms := NewMarkers([]Marker{
		{ChromIndex: 1, Pos: 1, Alleles: []string{"A", "G"}},
		{ChromIndex: 1, Pos: 2, Alleles: []string{"A", "G"}},
	})
	calls := []TargetGT{{A1: 0, A2: 1}, {A1: -1, A2: -1}}
	ep := NewEstPhase(ms, calls)

	snap := snapshotEstPhase(4, ep)
	c.Check(snap.Sample, check.Equals, 4)
	c.Check(snap.Missing, check.DeepEquals, []int{1})
	c.Check(snap.H1Words, check.DeepEquals, haplotypeWords(ep.H1()))
}
