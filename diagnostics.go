// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beaglephase

import (
	"bufio"
	"encoding/gob"
	"io"
	"io/ioutil"

	"github.com/klauspost/pgzip"
	"github.com/kshedden/gonpy"
)

// WindowCheckpoint is a restartable snapshot of one window's phasing state,
// written between windows so a crashed run can resume without re-phasing
// completed windows. Framed exactly like the teacher's gob.go: a gob stream,
// optionally pgzip-compressed.
type WindowCheckpoint struct {
	ChromIndex int
	WindowCM   float64
	RecombFactor float64
	Haplotypes []CheckpointHaplotype
}

// CheckpointHaplotype is one sample's packed haplotype pair plus its
// still-unresolved heterozygote and missing-allele bookkeeping, everything
// EstPhase needs to resume mid-window.
type CheckpointHaplotype struct {
	Sample      int
	H1Words     []uint64
	H2Words     []uint64
	UnphasedHet []int
	Missing     []int
}

// WriteCheckpoint gob-encodes cp to w, pgzip-compressing when gz is true.
func WriteCheckpoint(w io.Writer, cp *WindowCheckpoint, gz bool) error {
	var zw io.WriteCloser = nopWriteCloser{w}
	if gz {
		zw = pgzip.NewWriter(w)
	}
	if err := gob.NewEncoder(zw).Encode(cp); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// ReadCheckpoint is WriteCheckpoint's inverse.
func ReadCheckpoint(r io.Reader, gz bool) (*WindowCheckpoint, error) {
	zr := ioutil.NopCloser(r)
	if gz {
		gzr, err := pgzip.NewReader(bufio.NewReaderSize(r, 1<<20))
		if err != nil {
			return nil, err
		}
		zr = gzr
	}
	var cp WindowCheckpoint
	if err := gob.NewDecoder(zr).Decode(&cp); err != nil {
		return nil, err
	}
	return &cp, zr.Close()
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// snapshotEstPhase captures ep's resumable state for checkpointing.
func snapshotEstPhase(sample int, ep *EstPhase) CheckpointHaplotype {
	return CheckpointHaplotype{
		Sample:      sample,
		H1Words:     haplotypeWords(ep.H1()),
		H2Words:     haplotypeWords(ep.H2()),
		UnphasedHet: append([]int(nil), ep.UnphasedHet()...),
		Missing:     append([]int(nil), ep.Missing()...),
	}
}

func haplotypeWords(h Haplotype) []uint64 { return append([]uint64(nil), h.words...) }

// DumpStateProbsNpy writes one target haplotype's dense
// cluster-by-reference-haplotype probability matrix (NClusters rows,
// nDistinctHaps columns) to a NumPy .npy file for offline inspection, the
// way the teacher's exportnumpy.go dumped tile-variant matrices via gonpy.
// Each retained state's probability is added to column
// refHapIndex(RefHap(c,k)); states whose column falls outside
// [0,nDistinctHaps) are skipped.
func DumpStateProbsNpy(w io.Writer, sp *StateProbs, refHapIndex func(refHap int32) int, nDistinctHaps int) error {
	nC := sp.NClusters()
	data := make([]float64, nC*nDistinctHaps)
	for c := 0; c < nC; c++ {
		for k := 0; k < sp.NStates(c); k++ {
			col := refHapIndex(sp.RefHap(c, k))
			if col < 0 || col >= nDistinctHaps {
				continue
			}
			data[c*nDistinctHaps+col] += float64(sp.Probs(c, k))
		}
	}
	wr, err := gonpy.NewWriter(w)
	if err != nil {
		return err
	}
	wr.Shape = []int{nC, nDistinctHaps}
	return wr.WriteFloat64(data)
}
