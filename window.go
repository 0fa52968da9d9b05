// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beaglephase

// WindowRecord is the minimal per-record information the windowing logic
// needs: which chromosome/position it sits at (via genetic position) and a
// reference to the underlying record, which the caller interprets.
type WindowRecord struct {
	Chrom int
	Pos   int
	CM    float64
	Rec   interface{}
}

// Window is a slice of the record stream together with the overlap
// bookkeeping needed to splice consecutive windows into one chromosome-wide
// output (spec.md §4.1).
type Window struct {
	RecList []WindowRecord

	// OverlapEnd is the first record index past the overlap with the
	// previous window (0 for the first window on a chromosome).
	OverlapEnd int
	// OverlapStart is the first record index inside the overlap with the
	// next window (== len(RecList) if there is no next window or the
	// chromosome changes).
	OverlapStart int

	LastWindowOnChrom bool
	LastWindow        bool
}

// WindowIt iterates a position-ordered record stream, producing Windows per
// spec.md §4.1's construction rule.
type WindowIt struct {
	recs      []WindowRecord
	windowCM  float64
	overlapCM float64

	pos              int // index of the first not-yet-windowed record
	err              error
	prevOverlapCount int // # of records carried over from the previous window's tail
}

// NewWindowIt validates 1.1*overlapCM < windowCM (spec.md §4.1) and
// constructs an iterator over recs, which must already be position-ordered
// and single-chromosome-contiguous (chromosome boundaries are detected by a
// change in Chrom between consecutive records).
func NewWindowIt(recs []WindowRecord, windowCM, overlapCM float64) (*WindowIt, error) {
	if 1.1*overlapCM >= windowCM {
		return nil, &ValidationError{Msg: "1.1*overlap_cM must be < window_cM"}
	}
	return &WindowIt{recs: recs, windowCM: windowCM, overlapCM: overlapCM}, nil
}

// HasNext reports whether another window remains.
func (it *WindowIt) HasNext() bool {
	return it.err == nil && it.pos < len(it.recs)
}

// Next returns the next Window. It is only valid to call while HasNext is
// true.
func (it *WindowIt) Next() (Window, error) {
	start := it.pos
	if start >= len(it.recs) {
		return Window{}, &EmptyWindowError{}
	}
	chrom := it.recs[start].Chrom
	cmStart := it.recs[start].CM

	end := start
	for end < len(it.recs) && it.recs[end].Chrom == chrom && it.recs[end].CM <= cmStart+it.windowCM {
		end++
	}
	// end now points past the last record within [cmStart, cmStart+windowCM].
	lastOnChrom := end >= len(it.recs) || it.recs[end].Chrom != chrom

	w := Window{
		RecList:           append([]WindowRecord(nil), it.recs[start:end]...),
		OverlapEnd:         0,
		LastWindowOnChrom: lastOnChrom,
		LastWindow:        end >= len(it.recs),
	}
	if it.pos > 0 && it.recs[start-1].Chrom == chrom {
		// not the first window on this chromosome: everything up to
		// overlapStart(W-1) that still lands in this record range was
		// already emitted as overlap by the previous window's
		// OverlapStart; OverlapEnd marks where that hand-off ends.
		w.OverlapEnd = it.prevOverlapCount
	}

	if lastOnChrom {
		w.OverlapStart = len(w.RecList)
	} else {
		cmEnd := cmStart + it.windowCM
		if n := len(w.RecList); n > 0 {
			cmEnd = w.RecList[n-1].CM
		}
		target := cmEnd - it.overlapCM
		idx := 0
		for idx < len(w.RecList) && w.RecList[idx].CM < target {
			idx++
		}
		// ties by base_pos collapse downward to the first record at
		// that position.
		for idx > 0 && w.RecList[idx-1].Pos == w.RecList[idx].Pos {
			idx--
		}
		w.OverlapStart = idx
	}

	it.prevOverlapCount = len(w.RecList) - w.OverlapStart
	it.pos = start + w.OverlapStart
	if w.OverlapStart == len(w.RecList) {
		// degenerate: no overlap region (last window), advance past
		// the whole window so HasNext terminates.
		it.pos = end
	}
	return w, nil
}
