// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beaglephase

import "sort"

// IBSParams bounds one IBS partitioning pass (spec.md §4.4). Phasing and
// imputation each compute their own IBSParams from Config; see
// PhaseIBSParams / ImpIBSParams below.
type IBSParams struct {
	NHapsPerStep int
	IBSThreshold int
	NSteps       int
	Seed         int64
}

// PhaseIBSParams derives the IBS bounds used while phasing.
// nHapsPerStep = (phase_states / (phase_segment/step)) / 2, since phasing
// allocates two state-table slots per haplotype pair (spec.md §4.4).
func PhaseIBSParams(cfg Config, burnin bool) IBSParams {
	stepsPerSegment := cfg.PhaseSegmentCM / cfg.StepCM
	nHapsPerStep := int(float64(cfg.PhaseStates)/stepsPerSegment/2 + 0.5)
	if nHapsPerStep < 1 {
		nHapsPerStep = 1
	}
	threshold := nHapsPerStep + 2
	if burnin {
		threshold = 20 * nHapsPerStep
	}
	return IBSParams{NHapsPerStep: nHapsPerStep, IBSThreshold: threshold, NSteps: cfg.NSteps, Seed: cfg.Seed}
}

// ImpIBSParams derives the IBS bounds used while imputing.
// nHapsPerStep = imp_states / (imp_segment/step).
func ImpIBSParams(cfg Config) IBSParams {
	stepsPerSegment := cfg.ImpSegmentCM / cfg.StepCM
	nHapsPerStep := int(float64(cfg.ImpStates)/stepsPerSegment + 0.5)
	if nHapsPerStep < 1 {
		nHapsPerStep = 1
	}
	return IBSParams{NHapsPerStep: nHapsPerStep, IBSThreshold: nHapsPerStep, NSteps: cfg.NSteps, Seed: cfg.Seed}
}

// ibsClass is one node of the recursive-refinement tree: the set of
// haplotype indices (global numbering: targets then references) sharing a
// code over [stepStart, stepStart+depth) steps.
type ibsClass struct {
	members []int32
}

// BuildIBS runs the recursive-refinement algorithm of spec.md §4.4 over the
// coded steps codedSteps[0:nSteps), for a single starting step index
// firstStep, returning, for every target haplotype present in the starting
// step's partition, its IBS set (bounded to at most p.NHapsPerStep members,
// other than itself).
//
// codeAt(step, hap) returns the coded sequence id for hap at the given
// step; nTarget is the number of target haplotypes (which sort first in the
// global haplotype numbering).
func BuildIBS(p IBSParams, firstStep int, nSteps int, nTarget, nHaps int,
	codeAt func(step int, hap int) int32) map[int32][]int32 {

	// partition all haplotypes (targets and references) by their code at
	// the first step.
	byCode := map[int32][]int32{}
	for h := int32(0); h < int32(nHaps); h++ {
		c := codeAt(firstStep, int(h))
		byCode[c] = append(byCode[c], h)
	}

	result := map[int32][]int32{}
	depth := 1
	classes := make([]ibsClass, 0, len(byCode))
	for _, members := range byCode {
		classes = append(classes, ibsClass{members: members})
	}

	finalize := func(cls ibsClass) {
		for _, h := range cls.members {
			if int(h) >= nTarget {
				continue // only targets need an IBS result
			}
			donors := make([]int32, 0, len(cls.members)-1)
			for _, o := range cls.members {
				if o != h {
					donors = append(donors, o)
				}
			}
			result[h] = boundDonors(p, firstStep, h, donors)
		}
	}

	for len(classes) > 0 && depth < nSteps {
		var next []ibsClass
		for _, cls := range classes {
			if len(cls.members) <= p.IBSThreshold {
				finalize(cls)
				continue
			}
			// refine by the code at the next step.
			byNext := map[int32][]int32{}
			step := firstStep + depth
			for _, h := range cls.members {
				c := codeAt(step, int(h))
				byNext[c] = append(byNext[c], h)
			}
			for _, members := range byNext {
				next = append(next, ibsClass{members: members})
			}
		}
		classes = next
		depth++
	}
	// whatever remains after nSteps refinements (or ran out of steps) is
	// finalized as-is, oversized classes sampled down inside finalize via
	// boundDonors.
	for _, cls := range classes {
		finalize(cls)
	}
	return result
}

// boundDonors trims donors to at most p.NHapsPerStep entries, sampling
// uniformly at random (seeded by seed+firstChild, spec.md §4.4) when
// oversized, and returns the result sorted ascending.
func boundDonors(p IBSParams, firstStep int, targHap int32, donors []int32) []int32 {
	if len(donors) <= p.NHapsPerStep {
		out := append([]int32(nil), donors...)
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
		return out
	}
	var firstChild int64
	if len(donors) > 0 {
		firstChild = int64(donors[0])
	}
	r := seededRand(p.Seed, int64(firstStep), firstChild)
	idx := sampleWithoutReplacement(r, len(donors), p.NHapsPerStep)
	out := make([]int32, len(idx))
	for i, j := range idx {
		out[i] = donors[j]
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// donateToUndersized grows an undersized IBS class by drawing donors
// uniformly at random from its parent class (seeded by
// seed+parent[0]+child[0], spec.md §4.4), deduplicating against the
// existing members via binary search (the same technique as the teacher's
// lis.go predecessor bookkeeping: a sorted array plus a binary search for
// membership).
func donateToUndersized(seed int64, parent, child []int32, want int) []int32 {
	out := append([]int32(nil), child...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	if len(out) >= want || len(parent) == 0 {
		return out
	}
	var parentFirst, childFirst int64
	if len(parent) > 0 {
		parentFirst = int64(parent[0])
	}
	if len(child) > 0 {
		childFirst = int64(child[0])
	}
	r := seededRand(seed, parentFirst, childFirst)
	order := sampleWithoutReplacement(r, len(parent), len(parent))
	for _, idx := range order {
		if len(out) >= want {
			break
		}
		cand := parent[idx]
		if !containsSortedI32(out, cand) {
			out = insertSortedI32(out, cand)
		}
	}
	return out
}

func containsSortedI32(s []int32, v int32) bool {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= v })
	return i < len(s) && s[i] == v
}

func insertSortedI32(s []int32, v int32) []int32 {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= v })
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
