// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beaglephase

import "math"

// Cluster groups adjacent target markers within cluster_cM into one HMM
// emission for imputation, provided they also lie within the same
// reference sequence-coded block (spec.md §3 "Target-marker clusters").
type Cluster struct {
	TargStart, TargEnd int // half-open, target-marker indices
	RefStart, RefEnd   int // half-open, reference-marker indices
	Pos                float64 // genetic midpoint
	ErrProb            float64
	PRecomb            float64 // transition probability into this cluster
}

// BuildClusters partitions the target markers of cd into clusters per
// spec.md §3. targCM[j] is the genetic position of target marker j;
// samePartition(j) reports whether target markers j-1 and j fall in the
// same reference sequence-coded block (always true if reference records
// are allele-coded, since that predicate only constrains sequence-coded
// runs).
func BuildClusters(cd *CurrentData, targCM []float64, samePartition func(j int) bool,
	clusterCM, err, ne float64, nHaps, nRefMarkers int) []Cluster {

	n := len(cd.TargToRef)
	if n == 0 {
		return nil
	}
	var clusters []Cluster
	start := 0
	for start < n {
		end := start + 1
		for end < n && targCM[end]-targCM[start] <= clusterCM && samePartition(end) {
			end++
		}
		refStart := cd.TargToRef[start]
		mid := (targCM[start] + targCM[end-1]) / 2
		clusters = append(clusters, Cluster{
			TargStart: start, TargEnd: end,
			RefStart: refStart,
			Pos:      mid,
			ErrProb:  math.Min(0.5, err*float64(end-start)),
		})
		start = end
	}
	// RefEnd tiles clusters across the full reference-marker range rather
	// than stopping at each cluster's own last typed marker, so untyped
	// reference markers between two clusters' typed prefixes still belong
	// to exactly one cluster (clustEndRef marks the typed/untyped split
	// within that wider span).
	for i := range clusters {
		if i+1 < len(clusters) {
			clusters[i].RefEnd = clusters[i+1].RefStart
		} else {
			clusters[i].RefEnd = nRefMarkers
		}
	}
	for i := range clusters {
		if i == 0 {
			clusters[i].PRecomb = 0
			continue
		}
		delta := clusters[i].Pos - clusters[i-1].Pos
		clusters[i].PRecomb = 1 - math.Exp(-4*ne/float64(nHaps)*delta)
	}
	return clusters
}
