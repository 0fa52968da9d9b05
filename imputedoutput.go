// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beaglephase

// ImputedRecord is one sample's posterior summary at one reference marker
// (spec.md §4.8 step 4). Dosage[a] is the expected alt-allele-a count
// (0..2); AP1/AP2 are per-haplotype allele probabilities (only populated
// when requested); GP is the diploid genotype probability vector in
// canonical lower-triangular order (only populated when requested).
type ImputedRecord struct {
	Marker   int // reference-marker index
	Sample   int
	CalledA1 int
	CalledA2 int
	Dosage   []float64 // indexed by alt allele, 1-based alleles collapse to index a-1
	AP1, AP2 []float64 // optional, indexed by allele (including ref at 0)
	GP       []float64 // optional
}

// MarkerInfo is the per-marker aggregate summary (spec.md §4.8 step 5).
type MarkerInfo struct {
	Marker  int
	AF      []float64 // per alt allele
	DR2     []float64 // per alt allele
	Imputed bool
}

// PosteriorAggregator holds the settings of the §4.8 aggregation (allele
// count, AP/GP flags); it has no methods. The aggregation itself is done by
// the package functions AggregateHaplotype, CombinePair and AggregateMarker,
// which take their settings as arguments and do not use this type. This is
// the engine's equivalent of the teacher's ImputedVcfWriter, renamed because
// VCF writing itself is a spec.md §1 non-goal: the aggregation emits
// abstract ImputedRecord/MarkerInfo values, not VCF lines.
type PosteriorAggregator struct {
	nAlleles int // alleles at the reference marker range being aggregated (including ref)
	ap, gp   bool
}

// NewPosteriorAggregator configures aggregation for a marker range with
// nAlleles alleles (including the reference allele), optionally emitting
// AP/GP fields.
func NewPosteriorAggregator(nAlleles int, ap, gp bool) *PosteriorAggregator {
	return &PosteriorAggregator{nAlleles: nAlleles, ap: ap, gp: gp}
}

// alleleProbsAtMarker expands one haplotype's sparse cluster-c state
// probabilities into a dense per-allele vector at reference marker m, by
// mapping each retained reference haplotype onto its RefHapHash dedup index
// and reading the allele that index carries at m.
func alleleProbsAtMarker(sp *StateProbs, c int, hash *RefHapHash, marker int, nAlleles int) []float64 {
	out := make([]float64, nAlleles)
	for k := 0; k < sp.NStates(c); k++ {
		idx := hash.Hap2Index(int(sp.RefHap(c, k)))
		out[hash.Allele(idx, marker)] += float64(sp.Probs(c, k))
	}
	return out
}

// aheadAlleleProbsAtMarker is alleleProbsAtMarker's counterpart for the
// look-ahead posterior: it reads cluster c's own sparse state set (same
// RefHap(c,k) occupants as alleleProbsAtMarker) but weighs each by
// ProbsP1(c,k), the posterior mass that occupant carries at cluster c+1.
// Using cluster c's own states -- rather than a second lookup into cluster
// c+1's independently-occupied sparse set -- keeps the interpolation
// attributing look-ahead mass to the same reference haplotype ProbsP1 was
// built to track (stateprobs.go's newStateProbs).
func aheadAlleleProbsAtMarker(sp *StateProbs, c int, hash *RefHapHash, marker int, nAlleles int) []float64 {
	out := make([]float64, nAlleles)
	for k := 0; k < sp.NStates(c); k++ {
		idx := hash.Hap2Index(int(sp.RefHap(c, k)))
		out[hash.Allele(idx, marker)] += float64(sp.ProbsP1(c, k))
	}
	return out
}

// clustEndRef returns the exclusive reference-marker bound of the typed
// prefix of cluster c, before its interpolated untyped tail begins. The
// cluster's typed target markers map 1:1 onto the leading reference markers
// of its [RefStart,RefEnd) span (spec.md §3).
func clustEndRef(c Cluster) int {
	return c.RefStart + (c.TargEnd - c.TargStart)
}

// AggregateHaplotype computes per-reference-marker allele probabilities for
// one target haplotype across the reference-marker span owned by clusters,
// per spec.md §4.8 steps 1-3:
//
//   - markers in the typed prefix of a cluster use that cluster's
//     probability directly;
//   - markers in the untyped tail linearly interpolate between this
//     cluster's and the next cluster's probabilities, weighted by genetic
//     position;
//   - a reference marker directly typed in the target is overwritten with a
//     delta distribution at the observed phased allele.
//
// cumPos[m] is the cumulative genetic position at reference marker m;
// observedAt(m) returns (allele, true) if marker m was directly typed for
// this haplotype, else (0, false).
func AggregateHaplotype(clusters []Cluster, sp *StateProbs, hash *RefHapHash, nAllelesAt func(m int) int,
	cumPos []float64, observedAt func(m int) (int, bool)) [][]float64 {

	var totalRef int
	for _, c := range clusters {
		if c.RefEnd > totalRef {
			totalRef = c.RefEnd
		}
	}
	out := make([][]float64, totalRef)

	for ci, c := range clusters {
		typedEnd := clustEndRef(c)
		for m := c.RefStart; m < c.RefEnd; m++ {
			nAlleles := nAllelesAt(m)
			var p []float64
			switch {
			case m < typedEnd:
				p = alleleProbsAtMarker(sp, ci, hash, m, nAlleles)
			case ci+1 < len(clusters):
				pC := alleleProbsAtMarker(sp, ci, hash, m, nAlleles)
				pC1 := aheadAlleleProbsAtMarker(sp, ci, hash, m, nAlleles)
				wt := 1.0
				lo, hi := typedEnd-1, clusters[ci+1].RefStart
				if lo >= 0 && hi < len(cumPos) && cumPos[hi] != cumPos[lo] {
					wt = (cumPos[hi] - cumPos[m]) / (cumPos[hi] - cumPos[lo])
				}
				p = make([]float64, nAlleles)
				for a := range p {
					p[a] = wt*pC[a] + (1-wt)*pC1[a]
				}
			default:
				p = alleleProbsAtMarker(sp, ci, hash, m, nAlleles)
			}
			if a, ok := observedAt(m); ok {
				p = make([]float64, nAlleles)
				p[a] = 1
			}
			out[m] = p
		}
	}
	return out
}

// CombinePair builds the per-marker ImputedRecord for a sample from its two
// haplotypes' per-marker allele-probability vectors (spec.md §4.8 step 4).
func CombinePair(marker, sample int, a1Probs, a2Probs []float64, ap, gp bool) ImputedRecord {
	nAlleles := len(a1Probs)
	calledA1, calledA2 := calledGenotype(a1Probs, a2Probs)
	dosage := make([]float64, nAlleles-1)
	for a := 1; a < nAlleles; a++ {
		dosage[a-1] = a1Probs[a] + a2Probs[a]
	}
	rec := ImputedRecord{Marker: marker, Sample: sample, CalledA1: calledA1, CalledA2: calledA2, Dosage: dosage}
	if ap {
		rec.AP1 = append([]float64(nil), a1Probs...)
		rec.AP2 = append([]float64(nil), a2Probs...)
	}
	if gp {
		rec.GP = diploidGenotypeProbs(a1Probs, a2Probs)
	}
	return rec
}

// calledGenotype returns the lexicographically-smallest argmax pair (i<=j)
// of the outer product a1 (x) a2 (spec.md §8 invariant 6).
func calledGenotype(a1, a2 []float64) (int, int) {
	best := -1.0
	var bi, bj int
	for i := 0; i < len(a1); i++ {
		for j := 0; j < len(a2); j++ {
			p := a1[i] * a2[j]
			lo, hi := i, j
			if lo > hi {
				lo, hi = hi, lo
			}
			if p > best || (p == best && (lo < bi || (lo == bi && hi < bj))) {
				best = p
				bi, bj = lo, hi
			}
		}
	}
	return bi, bj
}

// diploidGenotypeProbs returns GP[g] in canonical lower-triangular order
// (g = i*(i+1)/2+j for j<=i), combining a1[i]*a2[j]+a1[j]*a2[i] off the
// diagonal and the single product on it (spec.md §4.8 step 4).
func diploidGenotypeProbs(a1, a2 []float64) []float64 {
	n := len(a1)
	out := make([]float64, 0, n*(n+1)/2)
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			if i == j {
				out = append(out, a1[i]*a2[j])
			} else {
				out = append(out, a1[i]*a2[j]+a1[j]*a2[i])
			}
		}
	}
	return out
}

// AggregateMarker computes AF and DR2 across samples' dosages at one
// reference marker (spec.md §4.8 step 5). dosages[s][a] is sample s's
// dosage for alt allele a (0-based among alts).
func AggregateMarker(marker int, dosages [][]float64, nAlts int) MarkerInfo {
	info := MarkerInfo{Marker: marker, AF: make([]float64, nAlts), DR2: make([]float64, nAlts)}
	n := len(dosages)
	for a := 0; a < nAlts; a++ {
		var sum, sumSq float64
		for _, d := range dosages {
			x := 0.0
			if a < len(d) {
				x = d[a]
			}
			sum += x
			sumSq += x * x
		}
		info.AF[a] = sum / (2 * float64(n))
		mean := sum * sum / (2 * float64(n))
		num := sumSq - mean
		den := sum - mean
		var dr2 float64
		if den != 0 {
			dr2 = num / den
		}
		if dr2 < 0 {
			dr2 = 0
		}
		info.DR2[a] = dr2
	}
	return info
}
