// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beaglephase

import (
	"encoding/binary"

	"github.com/spaolacci/murmur3"
)

// IndexArray is a dense integer array keyed by haplotype index within a
// window, used throughout the coder/IBS machinery as the "map" the spec
// calls for in its "per-slot heap" design note (spec.md §9): a plain array
// is cheaper and simpler than a hash map when keys are dense small
// integers.
type IndexArray []int32

// NewIndexArray allocates an IndexArray of n entries, all set to fill.
func NewIndexArray(n int, fill int32) IndexArray {
	a := make(IndexArray, n)
	for i := range a {
		a[i] = fill
	}
	return a
}

// HaplotypeCoder collapses identical allele sequences over a marker range
// into small integer codes (spec.md §4.3). One HaplotypeCoder is built per
// window and reused across steps.
type HaplotypeCoder struct {
	cd       *CurrentData
	nTarget  int // number of target haplotypes (2 * nTargetSamples)
	nRef     int // number of reference haplotypes
	targetAt func(marker, hap int) int
	refAt    func(marker, hap int) int
}

// NewHaplotypeCoder builds a coder over the given window view. targetAt and
// refAt return the allele carried by target/reference haplotype hap at
// reference-marker index marker (-1 for missing target alleles, which are
// coded as never matching any sequence id).
func NewHaplotypeCoder(cd *CurrentData, nTarget, nRef int, targetAt, refAt func(marker, hap int) int) *HaplotypeCoder {
	return &HaplotypeCoder{cd: cd, nTarget: nTarget, nRef: nRef, targetAt: targetAt, refAt: refAt}
}

// seqKey is a first-pass bucket key combining the parent sequence id and
// the observed allele at one marker, murmur3-hashed the way the teacher's
// taglib.go turns a biological k-mer into a dense map key. The 64-bit hash
// is used directly as the key of the per-marker id map, with no exact
// comparison afterwards, so two distinct (seq, allele) pairs whose hashes
// collide would share one id.
func seqKey(seq int32, allele int) uint64 {
	var buf [12]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(seq))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(allele))
	return murmur3.Sum64(buf[:8])
}

// CodeStep assigns each haplotype (targets first, by index [0,nTarget), then
// references [0,nRef)) an integer in [0, seqCnt) such that two haplotypes
// share a code iff they carry identical alleles at every marker in
// [start,end). Code 0 is reserved for "sequence not seen among target
// haplotypes" (spec.md §4.3), letting IBS construction prune reference-only
// sequences cheaply.
func (c *HaplotypeCoder) CodeStep(start, end int) (hapToSeq []int32, seqCnt int32) {
	targetSeq := make([]int32, c.nTarget)
	for i := range targetSeq {
		targetSeq[i] = 1
	}
	refSeq := make([]int32, c.nRef)
	for i := range refSeq {
		refSeq[i] = 1
	}
	nextID := int32(2) // 0 reserved, 1 is the initial "everyone identical" seed

	for m := start; m < end; m++ {
		seen := map[uint64]int32{}
		// target haplotypes walk first, minting fresh ids for unseen
		// (seq, allele) pairs.
		for h := 0; h < c.nTarget; h++ {
			a := c.targetAt(m, h)
			if a < 0 || targetSeq[h] == 0 {
				targetSeq[h] = 0
				continue
			}
			key := seqKey(targetSeq[h], a)
			id, ok := seen[key]
			if !ok {
				id = nextID
				nextID++
				seen[key] = id
			}
			targetSeq[h] = id
		}
		// reference haplotypes reuse the same map but never create
		// new ids; unseen pairs collapse to 0.
		for h := 0; h < c.nRef; h++ {
			a := c.refAt(m, h)
			key := seqKey(refSeq[h], a)
			if id, ok := seen[key]; ok {
				refSeq[h] = id
			} else {
				refSeq[h] = 0
			}
		}
	}

	hapToSeq = make([]int32, c.nTarget+c.nRef)
	copy(hapToSeq[:c.nTarget], targetSeq)
	copy(hapToSeq[c.nTarget:], refSeq)
	// renumber to a dense [0,seqCnt) range, keeping 0 fixed.
	remap := map[int32]int32{0: 0}
	next := int32(1)
	for _, s := range hapToSeq {
		if _, ok := remap[s]; !ok {
			remap[s] = next
			next++
		}
	}
	for i, s := range hapToSeq {
		hapToSeq[i] = remap[s]
	}
	return hapToSeq, next
}

// sharedPartition identifies, for the sequence-coded fast path, the set of
// reference records whose HapToSeq all originate from the same partition
// build. Open question resolution (spec.md §9 / SPEC_FULL.md): we verify
// this by comparing partitionID, not by re-deriving or structurally
// comparing HapToSeq, and fall back to per-marker coding on any mismatch.
func sharedPartition(recs []*RefGTRec) (id int64, ok bool) {
	if len(recs) == 0 || recs[0].Kind != SeqCoded {
		return 0, false
	}
	id = recs[0].partitionID
	for _, r := range recs {
		if r.Kind != SeqCoded || r.partitionID != id {
			return 0, false
		}
	}
	return id, true
}

// CodeSeqCodedRef is the sequence-coded reference fast path (spec.md §4.3):
// when every reference record in [start,end) shares one hap->seq partition,
// every reference haplotype's allele sequence over the whole range is
// already collapsed onto a small set of distinct partition sequence ids
// (recs[0].HapToSeq), so only those representatives need to be matched
// against the target haplotypes marker-by-marker, instead of every
// individual reference haplotype. Falls back to CodeStep when the
// assumption doesn't hold.
func (c *HaplotypeCoder) CodeSeqCodedRef(start, end int, recs []*RefGTRec) (hapToSeq []int32, seqCnt int32) {
	if _, ok := sharedPartition(recs); !ok {
		return c.CodeStep(start, end)
	}

	refHapToSeq := recs[0].HapToSeq // shared across every record in [start,end)
	nDistinct := 0
	for _, seq := range refHapToSeq {
		if int(seq)+1 > nDistinct {
			nDistinct = int(seq) + 1
		}
	}

	targetSeq := make([]int32, c.nTarget)
	for i := range targetSeq {
		targetSeq[i] = 1
	}
	distinctSeq := make([]int32, nDistinct)
	for i := range distinctSeq {
		distinctSeq[i] = 1
	}
	nextID := int32(2)

	for i, rec := range recs {
		m := start + i
		seen := map[uint64]int32{}
		for h := 0; h < c.nTarget; h++ {
			a := c.targetAt(m, h)
			if a < 0 || targetSeq[h] == 0 {
				targetSeq[h] = 0
				continue
			}
			key := seqKey(targetSeq[h], a)
			id, ok := seen[key]
			if !ok {
				id = nextID
				nextID++
				seen[key] = id
			}
			targetSeq[h] = id
		}
		for seq := 0; seq < nDistinct; seq++ {
			a := int(rec.SeqToAllele[seq])
			key := seqKey(distinctSeq[seq], a)
			if id, ok := seen[key]; ok {
				distinctSeq[seq] = id
			} else {
				distinctSeq[seq] = 0
			}
		}
	}

	hapToSeq = make([]int32, c.nTarget+c.nRef)
	copy(hapToSeq[:c.nTarget], targetSeq)
	for h, seq := range refHapToSeq {
		hapToSeq[c.nTarget+h] = distinctSeq[seq]
	}

	remap := map[int32]int32{0: 0}
	next := int32(1)
	for _, s := range hapToSeq {
		if _, ok := remap[s]; !ok {
			remap[s] = next
			next++
		}
	}
	for i, s := range hapToSeq {
		hapToSeq[i] = remap[s]
	}
	return hapToSeq, next
}
