// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beaglephase

// StateProbs is an immutable per-target-haplotype sparse view of the
// imputation HMM's cluster state posteriors (spec.md §4.7, §4.9). At each
// cluster c, only states with the probability exceeding
// T = min(0.005, 0.9999/nStates) at c or at c+1 are retained; for each
// retained state, both its probability at c (Probs) and at c+1 (ProbsP1)
// are stored, with the convention ProbsP1(nClusters-1,k) == Probs(nClusters-1,k).
type StateProbs struct {
	refHap  [][]int32
	probs   [][]float32
	probsP1 [][]float32
}

func sparsityThreshold(nStates int) float32 {
	t := 0.9999 / float64(nStates)
	if t > 0.005 {
		t = 0.005
	}
	return float32(t)
}

// newStateProbs builds the sparse representation from dense per-cluster
// posteriors (post[c][k]) and the slot->reference-haplotype mapping
// (hapIndices[c][k]).
func newStateProbs(clusters []Cluster, hapIndices [][]int32, post [][]float32) *StateProbs {
	nC := len(clusters)
	sp := &StateProbs{
		refHap:  make([][]int32, nC),
		probs:   make([][]float32, nC),
		probsP1: make([][]float32, nC),
	}
	if nC == 0 {
		return sp
	}
	nStates := len(post[0])
	thr := sparsityThreshold(nStates)
	for c := 0; c < nC; c++ {
		for k := 0; k < nStates; k++ {
			p := post[c][k]
			var pp1 float32
			if c+1 < nC {
				pp1 = post[c+1][k]
			} else {
				pp1 = p
			}
			if p > thr || pp1 > thr {
				sp.refHap[c] = append(sp.refHap[c], hapIndices[c][k])
				sp.probs[c] = append(sp.probs[c], p)
				sp.probsP1[c] = append(sp.probsP1[c], pp1)
			}
		}
	}
	return sp
}

// NClusters returns the number of clusters spanned.
func (sp *StateProbs) NClusters() int { return len(sp.refHap) }

// NStates returns the number of sparse entries retained at cluster c.
func (sp *StateProbs) NStates(c int) int { return len(sp.refHap[c]) }

// RefHap returns the reference haplotype index of the k-th retained state
// at cluster c.
func (sp *StateProbs) RefHap(c, k int) int32 { return sp.refHap[c][k] }

// Probs returns the posterior probability of the k-th retained state at
// cluster c.
func (sp *StateProbs) Probs(c, k int) float32 { return sp.probs[c][k] }

// ProbsP1 returns the posterior probability of the k-th retained state at
// cluster c+1 (or, at the last cluster, the same value as Probs).
func (sp *StateProbs) ProbsP1(c, k int) float32 { return sp.probsP1[c][k] }

// StateProbsFactory builds StateProbs for a batch of target haplotypes,
// sharing the underlying ImpLSBaum scratch across calls from the same
// worker (spec.md §5 "each worker owns its own scratch buffers").
type StateProbsFactory struct {
	baum *ImpLSBaum
}

// NewStateProbsFactory returns a factory backed by a fresh ImpLSBaum sized
// for nStates.
func NewStateProbsFactory(nStates int) *StateProbsFactory {
	return &StateProbsFactory{baum: NewImpLSBaum(nStates)}
}

// Build runs the imputation HMM for one target haplotype and returns its
// StateProbs.
func (f *StateProbsFactory) Build(clusters []Cluster, hapIndices [][]int32,
	refAllele func(c, k int) int, targAllele func(c int) int) *StateProbs {
	return f.baum.Run(clusters, hapIndices, refAllele, targAllele)
}
