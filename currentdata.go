// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beaglephase

import "math"

// CurrentData is the coherent view of a single Window: the aligned
// target/reference marker index maps, the splice points to the neighboring
// windows, and the per-marker derived quantities (genetic distance, base
// recombination intensity) the HMMs need (spec.md §4.2).
type CurrentData struct {
	Markers     *Markers // full reference-marker set for this window
	TargMarkers *Markers // target-typed subset

	// RefToTarg[i] is the target-marker index typed at reference marker
	// i, or -1 if marker i is untyped in the target.
	RefToTarg []int
	// TargToRef[j] is the reference-marker index of target marker j.
	TargToRef []int

	NextSpliceStart int // splice point to the next window, in reference-marker indices
	PrevSpliceStart int // splice point from the previous window

	Intensity float64 // base recombination factor for phasing

	// GenDist[k] = max(|cm[k]-cm[k-1]|, 1e-7), GenDist[0] is the (clamped)
	// distance from the previous marker conceptually outside the window.
	GenDist []float64

	NAllSamples int
	Ne          float64
}

// NewCurrentData builds a CurrentData from the full reference marker set
// visible in the window, the subset typed in the target, and window/overlap
// bookkeeping. cmAt supplies each reference marker's genetic position.
func NewCurrentData(refMarkers []Marker, targetTyped []bool, cmAt []float64,
	nextOverlapStart int, ne float64, nAllSamples int) *CurrentData {

	ms := NewMarkers(refMarkers)
	refToTarg := make([]int, len(refMarkers))
	var targMarkerList []Marker
	targToRef := []int{}
	for i, typed := range targetTyped {
		if typed {
			refToTarg[i] = len(targToRef)
			targToRef = append(targToRef, i)
			targMarkerList = append(targMarkerList, refMarkers[i])
		} else {
			refToTarg[i] = -1
		}
	}

	genDist := make([]float64, len(refMarkers))
	for k := range refMarkers {
		if k == 0 {
			genDist[k] = 1e-7
			continue
		}
		d := math.Abs(cmAt[k] - cmAt[k-1])
		if d < 1e-7 {
			d = 1e-7
		}
		genDist[k] = d
	}

	cd := &CurrentData{
		Markers:         ms,
		TargMarkers:     NewMarkers(targMarkerList),
		RefToTarg:       refToTarg,
		TargToRef:       targToRef,
		NextSpliceStart: (len(refMarkers) + nextOverlapStart) / 2,
		GenDist:         genDist,
		NAllSamples:     nAllSamples,
		Ne:              ne,
	}
	cd.Intensity = 0.04 * ne / (2 * float64(nAllSamples))
	return cd
}

// SetPrevSplice records the splice point inherited from the previous
// window's overlap/2 computation (spec.md §4.2 "prevSpliceStart =
// overlap/2"); called by the engine once it knows the previous window's
// overlap size.
func (cd *CurrentData) SetPrevSplice(overlap int) {
	cd.PrevSpliceStart = overlap / 2
}

// OutputRange returns the half-open reference-marker index range
// [PrevSpliceStart, NextSpliceStart) that this window is responsible for
// emitting, per spec.md §4.2's contract.
func (cd *CurrentData) OutputRange() (start, end int) {
	return cd.PrevSpliceStart, cd.NextSpliceStart
}
