// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

// Package diffnote reports how much a sample's haplotype orientation
// changed between two phasing iterations, for diagnostic logging. Each
// marker's orientation collapses to a single byte ('a' if h1 carries allele
// 0 at a heterozygous marker, 'b' otherwise, '.' at markers that are not
// heterozygous); diffing two
// iterations' orientation strings localizes exactly which marker ranges
// flipped, rather than reporting a single "N markers changed" count.
package diffnote

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Segment is one contiguous run of markers whose orientation changed
// between two orientation strings, in marker-index coordinates (0-based,
// into the string that was diffed).
type Segment struct {
	Start, End int // half-open
	Before     string
	After      string
}

// String renders a Segment the way the teacher's hgvs.Variant renders a
// sequence variant: a position range plus the two orientations, e.g.
// "12_15:aabb>bbaa".
func (s Segment) String() string {
	if s.End-s.Start == 1 {
		return fmt.Sprintf("%d:%s>%s", s.Start, s.Before, s.After)
	}
	return fmt.Sprintf("%d_%d:%s>%s", s.Start, s.End-1, s.Before, s.After)
}

// Diff compares two orientation strings of equal length (one byte per
// marker) and returns the changed segments, merging adjacent single-marker
// changes into runs the way hgvs/diff.go merges consecutive diff ops of the
// same type before reporting a variant.
func Diff(before, after string) []Segment {
	if len(before) != len(after) {
		// orientation strings are only ever compared within the same
		// window between consecutive iterations, so a length
		// mismatch means a caller bug, not a real diff; report the
		// whole range rather than panicking.
		return []Segment{{Start: 0, End: maxLen(before, after), Before: before, After: after}}
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	diffs = cleanup(diffs)

	var segs []Segment
	pos := 0
	for i := 0; i < len(diffs); {
		for i < len(diffs) && diffs[i].Type == diffmatchpatch.DiffEqual {
			pos += len(diffs[i].Text)
			i++
		}
		if i >= len(diffs) {
			break
		}
		seg := Segment{Start: pos}
		for i < len(diffs) && diffs[i].Type != diffmatchpatch.DiffEqual {
			if diffs[i].Type == diffmatchpatch.DiffDelete {
				seg.Before += diffs[i].Text
			} else {
				seg.After += diffs[i].Text
			}
			i++
		}
		seg.End = pos + len(seg.Before)
		if seg.End == seg.Start {
			seg.End = seg.Start + len(seg.After)
		}
		pos = seg.End
		segs = append(segs, seg)
	}
	return segs
}

// cleanup merges consecutive diff ops of the same type, the same
// normalization hgvs/diff.go applies before turning diffmatchpatch output
// into reportable variants.
func cleanup(in []diffmatchpatch.Diff) []diffmatchpatch.Diff {
	out := make([]diffmatchpatch.Diff, 0, len(in))
	for i := 0; i < len(in); i++ {
		d := in[i]
		for i < len(in)-1 && in[i].Type == in[i+1].Type {
			d.Text += in[i+1].Text
			i++
		}
		out = append(out, d)
	}
	return out
}

func maxLen(a, b string) int {
	if len(a) > len(b) {
		return len(a)
	}
	return len(b)
}

// OrientationString builds the per-marker orientation string for one
// sample's haplotype pair: byte 'a' at index m iff h1 carries allele 0 at
// m, 'b' otherwise. h1Allele reads the allele on the sample's h1 at marker
// m; isHet reports whether marker m
// was heterozygous for this sample (homozygous and missing markers carry no
// orientation, and are rendered '.', so a pure allele flip there never
// shows up as a spurious diff segment).
func OrientationString(nMarkers int, isHet func(m int) bool, h1Allele func(m int) int) string {
	var sb strings.Builder
	sb.Grow(nMarkers)
	for m := 0; m < nMarkers; m++ {
		switch {
		case !isHet(m):
			sb.WriteByte('.')
		case h1Allele(m) == 0:
			sb.WriteByte('a')
		default:
			sb.WriteByte('b')
		}
	}
	return sb.String()
}
