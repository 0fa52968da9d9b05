// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beaglephase

import "gopkg.in/check.v1"

type windowSuite struct{}

var _ = check.Suite(&windowSuite{})

func recAt(chrom, pos int, cm float64) WindowRecord {
	return WindowRecord{Chrom: chrom, Pos: pos, CM: cm}
}

func (s *windowSuite) TestNewWindowItRejectsOverlapTooLarge(c *check.C) {
	_, err := NewWindowIt(nil, 10, 10)
	c.Assert(err, check.NotNil)

	_, err = NewWindowIt(nil, 10, 9.5)
	c.Assert(err, check.NotNil)

	_, err = NewWindowIt(nil, 10, 4)
	c.Assert(err, check.IsNil)
}

func (s *windowSuite) TestSingleWindowWhenChromShorterThanWindowCM(c *check.C) {
	recs := []WindowRecord{recAt(1, 100, 0), recAt(1, 200, 1), recAt(1, 300, 2)}
	it, err := NewWindowIt(recs, 10, 1)
	c.Assert(err, check.IsNil)
	c.Assert(it.HasNext(), check.Equals, true)

	w, err := it.Next()
	c.Assert(err, check.IsNil)
	c.Check(len(w.RecList), check.Equals, 3)
	c.Check(w.LastWindowOnChrom, check.Equals, true)
	c.Check(w.LastWindow, check.Equals, true)
	c.Check(it.HasNext(), check.Equals, false)
}

func (s *windowSuite) TestOverlappingWindowsSpliceWithoutGaps(c *check.C) {
	var recs []WindowRecord
	for i := 0; i < 30; i++ {
		recs = append(recs, recAt(1, 100*i, float64(i)))
	}
	it, err := NewWindowIt(recs, 10, 2)
	c.Assert(err, check.IsNil)

	var windows []Window
	for it.HasNext() {
		w, err := it.Next()
		c.Assert(err, check.IsNil)
		windows = append(windows, w)
	}
	c.Assert(len(windows) > 1, check.Equals, true)

	// every record index covered by the full input is represented in at
	// least one window, and consecutive windows overlap rather than skip.
	first := windows[0]
	c.Check(first.RecList[0].Pos, check.Equals, 0)
	for i := 1; i < len(windows); i++ {
		prev := windows[i-1].RecList
		c.Check(windows[i].RecList[0].Pos <= prev[len(prev)-1].Pos, check.Equals, true)
	}
	last := windows[len(windows)-1]
	c.Check(last.RecList[len(last.RecList)-1].Pos, check.Equals, 2900)
	c.Check(last.LastWindowOnChrom, check.Equals, true)
	c.Check(last.LastWindow, check.Equals, true)
}

func (s *windowSuite) TestChromosomeBoundaryEndsWindow(c *check.C) {
	recs := []WindowRecord{
		recAt(1, 100, 0), recAt(1, 200, 1),
		recAt(2, 100, 0), recAt(2, 200, 1),
	}
	it, err := NewWindowIt(recs, 10, 1)
	c.Assert(err, check.IsNil)

	w1, err := it.Next()
	c.Assert(err, check.IsNil)
	c.Check(len(w1.RecList), check.Equals, 2)
	c.Check(w1.LastWindowOnChrom, check.Equals, true)
	c.Check(w1.LastWindow, check.Equals, false)

	c.Assert(it.HasNext(), check.Equals, true)
	w2, err := it.Next()
	c.Assert(err, check.IsNil)
	c.Check(len(w2.RecList), check.Equals, 2)
	c.Check(w2.RecList[0].Chrom, check.Equals, 2)
	c.Check(w2.LastWindow, check.Equals, true)
}

func (s *windowSuite) TestNextOnExhaustedIteratorReturnsEmptyWindowError(c *check.C) {
	recs := []WindowRecord{recAt(1, 100, 0)}
	it, err := NewWindowIt(recs, 10, 1)
	c.Assert(err, check.IsNil)
	_, err = it.Next()
	c.Assert(err, check.IsNil)
	c.Assert(it.HasNext(), check.Equals, false)

	_, err = it.Next()
	c.Assert(err, check.NotNil)
	_, ok := err.(*EmptyWindowError)
	c.Check(ok, check.Equals, true)
}
