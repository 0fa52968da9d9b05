// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beaglephase

import "sort"

// EstPhase is the per-window, per-sample persistent phasing state (spec.md
// §3 "EstPhase"). It is created at window entry from an initial phasing
// guess, mutated in place by each phasing iteration, and its h1/h2
// snapshots are read by IBS construction and by the splice with the next
// window.
//
// Per spec.md §5's "single-writer-per-sample contract enforced by the outer
// iteration scheduler", EstPhase carries no internal locking: the iteration
// loop in engine.go guarantees that at most one worker touches a given
// sample's EstPhase at a time, and the loop itself is a full barrier between
// iterations.
type EstPhase struct {
	h1, h2 Haplotype

	// unphasedHet holds marker indices with an unphased, non-missing,
	// heterozygous genotype, sorted ascending. The sample's first
	// heterozygous site is never included: it defines the reference
	// phase and is never flipped.
	unphasedHet []int

	// missing holds marker indices with at least one missing allele,
	// sorted ascending.
	missing []int
}

// NewEstPhase builds the initial EstPhase for one target sample from its raw
// genotype calls at the markers of the current window. Heterozygous,
// unphased genotypes are seeded with an arbitrary but fixed orientation
// (A1 on h1); phased genotypes are stored as given; missing alleles are
// recorded and left as 0 in the packed haplotype pending imputation.
func NewEstPhase(ms *Markers, calls []TargetGT) *EstPhase {
	ep := &EstPhase{
		h1: NewHaplotype(ms),
		h2: NewHaplotype(ms),
	}
	seenHet := false
	for m, g := range calls {
		switch {
		case g.IsMissing():
			ep.missing = append(ep.missing, m)
			continue
		case g.IsHet() && !g.IsPhased:
			if !seenHet {
				seenHet = true
			} else {
				ep.unphasedHet = append(ep.unphasedHet, m)
			}
			ep.h1.SetAllele(ms, m, g.A1)
			ep.h2.SetAllele(ms, m, g.A2)
		default:
			ep.h1.SetAllele(ms, m, g.A1)
			ep.h2.SetAllele(ms, m, g.A2)
		}
	}
	return ep
}

// H1, H2 return snapshots of the sample's current packed haplotypes.
func (ep *EstPhase) H1() Haplotype { return ep.h1 }
func (ep *EstPhase) H2() Haplotype { return ep.h2 }

// UnphasedHet returns the sorted list of still-unresolved heterozygous
// marker indices.
func (ep *EstPhase) UnphasedHet() []int { return ep.unphasedHet }

// Missing returns the sorted list of marker indices with a missing allele.
func (ep *EstPhase) Missing() []int { return ep.missing }

// IsMissingAt reports whether marker m was originally missing for this
// sample, independent of any argmax value the phasing HMM has since written
// into h1/h2 at that position.
func (ep *EstPhase) IsMissingAt(m int) bool { return sortedIndexOf(ep.missing, m) >= 0 }

// SetAllele overwrites the allele at marker m on haplotype hapNum (1 or 2).
// Used both by phase-flip resolution and by missing-allele imputation.
func (ep *EstPhase) SetAllele(ms *Markers, m, hapNum, allele int) {
	if hapNum == 1 {
		ep.h1.SetAllele(ms, m, allele)
	} else {
		ep.h2.SetAllele(ms, m, allele)
	}
}

// FlipRange swaps h1<->h2 at every marker in [from, to),
// implementing the "flip h1<->h2 at u_j and all subsequent markers up to the
// next heterozygote" rule of spec.md §4.6. Callers pass the flip boundary
// and the exclusive upper bound (the next heterozygote's index, or
// ms.NMarkers() if there is none).
func (ep *EstPhase) FlipRange(ms *Markers, from, to int) {
	for m := from; m < to; m++ {
		a1 := ep.h1.Allele(ms, m)
		a2 := ep.h2.Allele(ms, m)
		ep.h1.SetAllele(ms, m, a2)
		ep.h2.SetAllele(ms, m, a1)
	}
}

// RemoveResolved deletes the given marker indices from the unphased-het
// list (post-burn-in confidence filtering, spec.md §4.6).
func (ep *EstPhase) RemoveResolved(resolved map[int]bool) {
	out := ep.unphasedHet[:0]
	for _, m := range ep.unphasedHet {
		if !resolved[m] {
			out = append(out, m)
		}
	}
	ep.unphasedHet = out
}

// sortedIndexOf returns the position of m in a sorted slice, or -1.
func sortedIndexOf(sorted []int, m int) int {
	i := sort.SearchInts(sorted, m)
	if i < len(sorted) && sorted[i] == m {
		return i
	}
	return -1
}
