// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beaglephase

import "sort"

// CandidateStates is the per-target-haplotype fixed-width table of
// reference-haplotype slots over a window (spec.md §3 "Candidate state
// table", §4.5). For phasing, StateAlleles[marker][k] holds the allele the
// k-th slot's occupant carries; for imputation, HapIndices[cluster][k] and
// AlMatch[cluster][k] are populated instead.
type CandidateStates struct {
	NStates int

	// Phasing view.
	StateAlleles [][]int // [marker][k] -> allele

	// Imputation view.
	HapIndices [][]int32 // [cluster][k] -> reference haplotype index
	AlMatch    [][]bool  // [cluster][k] -> state allele == target allele
}

// BuildPhaseStates turns per-step IBS sets for one target haplotype into a
// marker-indexed slot table, by round-robin assignment into a bounded
// number of slots managed by a SlotHeap (spec.md §4.5).
//
// ibsPerStep[s] is the IBS donor set (reference haplotype indices, global
// numbering minus nTarget) for step s; stepToMarker maps a step index to
// its first marker index in the window; refAllele(marker, hap) returns the
// reference allele carried at that marker.
func BuildPhaseStates(nStates, nSteps, nMarkers int, ibsPerStep func(step int) []int32,
	stepToMarker func(step int) int, refAllele func(marker int, hap int32) int) *CandidateStates {

	heap := NewSlotHeap(nStates)
	toMarker := stepStart(stepToMarker)
	for s := 0; s < nSteps; s++ {
		for _, hap := range ibsPerStep(s) {
			heap.Update(hap, s, toMarker)
		}
	}
	runsPerSlot := heap.Flush(nSteps-1, toMarker)

	cs := &CandidateStates{NStates: len(runsPerSlot), StateAlleles: make([][]int, nMarkers)}
	for m := range cs.StateAlleles {
		cs.StateAlleles[m] = make([]int, cs.NStates)
	}
	for k, runs := range runsPerSlot {
		for _, run := range runs {
			end := run.End
			if end > nMarkers {
				end = nMarkers
			}
			for m := run.Start; m < end; m++ {
				cs.StateAlleles[m][k] = refAllele(m, run.Hap)
			}
		}
	}
	return cs
}

// BuildImpStates is BuildPhaseStates' cluster-granularity counterpart:
// slots persist across target-marker clusters instead of raw markers, and
// the output additionally records, per cluster and slot, whether the
// state's allele matches the target's observed allele at that cluster
// (AlMatch, spec.md §3).
func BuildImpStates(nStates, nSteps, nClusters int, ibsPerStep func(step int) []int32,
	stepToCluster func(step int) int, refAllele func(cluster int, hap int32) int,
	targAllele func(cluster int) int) *CandidateStates {

	heap := NewSlotHeap(nStates)
	toCluster := stepStart(stepToCluster)
	for s := 0; s < nSteps; s++ {
		for _, hap := range ibsPerStep(s) {
			heap.Update(hap, s, toCluster)
		}
	}
	runsPerSlot := heap.Flush(nSteps-1, toCluster)

	cs := &CandidateStates{
		NStates:    len(runsPerSlot),
		HapIndices: make([][]int32, nClusters),
		AlMatch:    make([][]bool, nClusters),
	}
	for c := range cs.HapIndices {
		cs.HapIndices[c] = make([]int32, cs.NStates)
		cs.AlMatch[c] = make([]bool, cs.NStates)
	}
	for k, runs := range runsPerSlot {
		for _, run := range runs {
			end := run.End
			if end > nClusters {
				end = nClusters
			}
			for c := run.Start; c < end; c++ {
				cs.HapIndices[c][k] = run.Hap
				cs.AlMatch[c][k] = refAllele(c, run.Hap) == targAllele(c)
			}
		}
	}
	return cs
}

// mergeIBSWithDonation applies spec.md §4.4's donation rule when a parent
// class must grow an undersized child before finalizing it: donors are
// drawn from the wider candidate pool (here, the IBS set at the previous,
// shallower refinement depth) until the child reaches `want` members or the
// pool is exhausted.
func mergeIBSWithDonation(seed int64, pool []int32, have []int32, want int) []int32 {
	out := donateToUndersized(seed, pool, have, want)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
