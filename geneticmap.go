// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beaglephase

import "sort"

// mapPoint is one row of a tabulated genetic map.
type mapPoint struct {
	chrom int
	pos   int
	cm    float64
}

// GeneticMap is a piecewise-linear function relating base-pair position to
// centiMorgan distance per chromosome (spec.md §3 "GeneticMap"). genPos is
// monotone non-decreasing in pos for a fixed chromosome.
type GeneticMap struct {
	byChrom map[int][]mapPoint
}

// NewGeneticMap builds a GeneticMap from tabulated (chrom, pos, cm) points.
// Points need not be pre-sorted; NewGeneticMap sorts them per chromosome.
func NewGeneticMap(points []struct {
	Chrom int
	Pos   int
	CM    float64
}) *GeneticMap {
	gm := &GeneticMap{byChrom: map[int][]mapPoint{}}
	for _, p := range points {
		gm.byChrom[p.Chrom] = append(gm.byChrom[p.Chrom], mapPoint{p.Chrom, p.Pos, p.CM})
	}
	for c, pts := range gm.byChrom {
		sort.Slice(pts, func(i, j int) bool { return pts[i].pos < pts[j].pos })
		gm.byChrom[c] = pts
	}
	return gm
}

// GenPos returns the genetic position (cM) of basePos on chrom, by linear
// interpolation between tabulated points. Extrapolates linearly from the
// first/last segment's slope outside the tabulated range.
func (gm *GeneticMap) GenPos(chrom, basePos int) float64 {
	pts := gm.byChrom[chrom]
	if len(pts) == 0 {
		return 0
	}
	if len(pts) == 1 {
		return pts[0].cm
	}
	i := sort.Search(len(pts), func(i int) bool { return pts[i].pos >= basePos })
	switch {
	case i == 0:
		return lerp(pts[0], pts[1], basePos)
	case i == len(pts):
		return lerp(pts[len(pts)-2], pts[len(pts)-1], basePos)
	case pts[i].pos == basePos:
		return pts[i].cm
	default:
		return lerp(pts[i-1], pts[i], basePos)
	}
}

func lerp(a, b mapPoint, pos int) float64 {
	if b.pos == a.pos {
		return a.cm
	}
	frac := float64(pos-a.pos) / float64(b.pos-a.pos)
	return a.cm + frac*(b.cm-a.cm)
}

// BasePos returns the inverse of GenPos: the base-pair position on chrom
// whose genetic position is cm, by linear interpolation.
func (gm *GeneticMap) BasePos(chrom int, cm float64) int {
	pts := gm.byChrom[chrom]
	if len(pts) == 0 {
		return 0
	}
	if len(pts) == 1 {
		return pts[0].pos
	}
	i := sort.Search(len(pts), func(i int) bool { return pts[i].cm >= cm })
	switch {
	case i == 0:
		return lerpInv(pts[0], pts[1], cm)
	case i == len(pts):
		return lerpInv(pts[len(pts)-2], pts[len(pts)-1], cm)
	case pts[i].cm == cm:
		return pts[i].pos
	default:
		return lerpInv(pts[i-1], pts[i], cm)
	}
}

func lerpInv(a, b mapPoint, cm float64) int {
	if b.cm == a.cm {
		return a.pos
	}
	frac := (cm - a.cm) / (b.cm - a.cm)
	return a.pos + int(frac*float64(b.pos-a.pos)+0.5)
}
