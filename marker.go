// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beaglephase

import (
	"math/bits"
	"sort"
)

// Marker is a genomic site: a chromosome index, a base-pair position and an
// ordered list of allele labels. nAlleles is len(Alleles); markers are
// totally ordered by (ChromIndex, Pos, Alleles).
type Marker struct {
	ChromIndex int
	Pos        int
	Alleles    []string
}

// NAlleles returns the number of distinct alleles at this marker (A >= 1).
func (m *Marker) NAlleles() int {
	if len(m.Alleles) == 0 {
		return 1
	}
	return len(m.Alleles)
}

// bitsPerAllele is ceil(log2(A)); A==1 still costs one bit so a monomorphic
// marker can still represent "no call" bookkeeping uniformly with the rest
// of the packed array.
func bitsPerAllele(nAlleles int) int {
	if nAlleles <= 1 {
		return 1
	}
	return bits.Len(uint(nAlleles - 1))
}

// less orders two markers by (ChromIndex, Pos, Alleles).
func (m Marker) less(o Marker) bool {
	if m.ChromIndex != o.ChromIndex {
		return m.ChromIndex < o.ChromIndex
	}
	if m.Pos != o.Pos {
		return m.Pos < o.Pos
	}
	n := len(m.Alleles)
	if len(o.Alleles) < n {
		n = len(o.Alleles)
	}
	for i := 0; i < n; i++ {
		if m.Alleles[i] != o.Alleles[i] {
			return m.Alleles[i] < o.Alleles[i]
		}
	}
	return len(m.Alleles) < len(o.Alleles)
}

// Markers is an ordered, O(1)-indexable sequence of Marker with a
// precomputed prefix sum of per-marker haplotype bits, used to pack one
// allele per marker into 64-bit words (spec.md §3 "Markers").
type Markers struct {
	list      []Marker
	bitsAt    []int // bitsAt[i] = bitsPerAllele(list[i].NAlleles())
	prefixSum []int // prefixSum[i] = sum(bitsAt[0:i]); len == len(list)+1
}

// NewMarkers builds a Markers from an ordered marker list. The caller must
// supply markers already sorted by (ChromIndex, Pos, Alleles); NewMarkers
// neither re-sorts nor checks the order or the chromosome of the markers it
// is given.
func NewMarkers(list []Marker) *Markers {
	ms := &Markers{
		list:      list,
		bitsAt:    make([]int, len(list)),
		prefixSum: make([]int, len(list)+1),
	}
	for i, m := range list {
		ms.bitsAt[i] = bitsPerAllele(m.NAlleles())
		ms.prefixSum[i+1] = ms.prefixSum[i] + ms.bitsAt[i]
	}
	return ms
}

// NMarkers returns the number of markers.
func (ms *Markers) NMarkers() int { return len(ms.list) }

// Marker returns the marker at index i.
func (ms *Markers) Marker(i int) Marker { return ms.list[i] }

// SumHapBits returns the number of bits required to encode one allele at
// each of the first i markers (spec.md §3 "sumHapBits(i)").
func (ms *Markers) SumHapBits(i int) int { return ms.prefixSum[i] }

// BitsAt returns the number of bits used to encode an allele at marker i.
func (ms *Markers) BitsAt(i int) int { return ms.bitsAt[i] }

// IndexOfPos returns the index of the first marker at or after pos on the
// given chromosome, via binary search (markers are position-ordered).
func (ms *Markers) IndexOfPos(chrom, pos int) int {
	return sort.Search(len(ms.list), func(i int) bool {
		m := ms.list[i]
		if m.ChromIndex != chrom {
			return m.ChromIndex > chrom
		}
		return m.Pos >= pos
	})
}

// Haplotype is a packed sequence of alleles, one per marker in some Markers,
// stored as a sequence of 64-bit words per spec.md §3.
type Haplotype struct {
	words []uint64
}

// NewHaplotype allocates a packed haplotype sized for ms.
func NewHaplotype(ms *Markers) Haplotype {
	nbits := ms.SumHapBits(ms.NMarkers())
	return Haplotype{words: make([]uint64, (nbits+63)/64)}
}

// Allele returns the allele index (0-based) stored for marker i.
func (h Haplotype) Allele(ms *Markers, i int) int {
	bitOff := ms.SumHapBits(i)
	width := ms.BitsAt(i)
	return int(extractBits(h.words, bitOff, width))
}

// SetAllele stores allele (0-based) for marker i.
func (h Haplotype) SetAllele(ms *Markers, i int, allele int) {
	bitOff := ms.SumHapBits(i)
	width := ms.BitsAt(i)
	setBits(h.words, bitOff, width, uint64(allele))
}

func extractBits(words []uint64, bitOff, width int) uint64 {
	wordIdx := bitOff / 64
	bitIdx := uint(bitOff % 64)
	mask := uint64(1)<<uint(width) - 1
	v := words[wordIdx] >> bitIdx
	if bitIdx+uint(width) > 64 {
		v |= words[wordIdx+1] << (64 - bitIdx)
	}
	return v & mask
}

func setBits(words []uint64, bitOff, width int, value uint64) {
	wordIdx := bitOff / 64
	bitIdx := uint(bitOff % 64)
	mask := uint64(1)<<uint(width) - 1
	value &= mask
	words[wordIdx] &^= mask << bitIdx
	words[wordIdx] |= value << bitIdx
	if bitIdx+uint(width) > 64 {
		overflow := 64 - bitIdx
		words[wordIdx+1] &^= mask >> overflow
		words[wordIdx+1] |= value >> overflow
	}
}
