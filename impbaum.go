// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beaglephase

// ImpLSBaum is the post-phasing imputation HMM (spec.md §4.7): a
// forward/backward Li & Stephens HMM evaluated at target-marker clusters,
// producing sparse per-cluster state probabilities for one target
// haplotype.
type ImpLSBaum struct {
	nStates int
	scratch []float64
}

// NewImpLSBaum allocates scratch sized for nStates states.
func NewImpLSBaum(nStates int) *ImpLSBaum {
	return &ImpLSBaum{nStates: nStates, scratch: make([]float64, nStates)}
}

// Run computes, for one target haplotype, the normalized forward*backward
// state posterior at every cluster, then thins it to the sparse
// representation of spec.md §4.7: a state survives at cluster c iff its
// posterior exceeds T at c or at c+1, where T = min(0.005, 0.9999/nStates).
//
// refAllele(c,k) is the reference allele of state k's occupant at cluster
// c; targAllele(c) is the target haplotype's observed allele at cluster c
// (-1 if untyped/missing there); clusters supplies errProb/pRecomb.
func (b *ImpLSBaum) Run(clusters []Cluster, hapIndices [][]int32,
	refAllele func(c int, k int) int, targAllele func(c int) int) *StateProbs {

	nC := len(clusters)
	fwd := make([][]float32, nC)
	bwd := make([]float32, b.nStates)
	for k := range bwd {
		bwd[k] = 1
	}

	// forward pass
	prev := make([]float32, b.nStates)
	for k := range prev {
		prev[k] = 1.0 / float32(b.nStates)
	}
	for c := 0; c < nC; c++ {
		row := make([]float32, b.nStates)
		obs := targAllele(c)
		for k := 0; k < b.nStates; k++ {
			e := clusters[c].ErrProb
			var pe float32
			if refAllele(c, k) == obs || obs < 0 {
				pe = float32(1 - e)
				if obs < 0 {
					pe = 1
				}
			} else {
				pe = float32(e)
			}
			row[k] = pe
		}
		if c > 0 {
			hmmStep(prev, row, clusters[c].PRecomb, b.scratch)
			copy(row, prev)
		} else {
			for k := range row {
				row[k] *= prev[k]
			}
		}
		rescale32(row, b.scratch)
		copy(prev, row)
		fwd[c] = row
	}

	// backward pass + posterior: the normalized posterior of cluster c is
	// stored in post[c]; fwd[c] is left as it is.
	post := make([][]float32, nC)
	bwdVec := make([]float32, b.nStates)
	for k := range bwdVec {
		bwdVec[k] = 1
	}
	for c := nC - 1; c >= 0; c-- {
		p := make([]float32, b.nStates)
		var sum float64
		for k := 0; k < b.nStates; k++ {
			p[k] = fwd[c][k] * bwdVec[k]
			sum += float64(p[k])
		}
		if sum <= 0 {
			panicBug("non-positive imputation posterior at cluster %d", c)
		}
		for k := range p {
			p[k] = float32(float64(p[k]) / sum)
		}
		post[c] = p

		if c > 0 {
			obs := targAllele(c)
			e := clusters[c].ErrProb
			row := make([]float32, b.nStates)
			for k := 0; k < b.nStates; k++ {
				if refAllele(c, k) == obs || obs < 0 {
					if obs < 0 {
						row[k] = 1
					} else {
						row[k] = float32(1 - e)
					}
				} else {
					row[k] = float32(e)
				}
			}
			bwdStepBackward(bwdVec, row, clusters[c].PRecomb, b.scratch)
			rescale32(bwdVec, b.scratch)
		}
	}

	return newStateProbs(clusters, hapIndices, post)
}
