// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beaglephase

import "sort"

// Engine drives the per-window phasing and imputation pipeline of spec.md
// §4-§5. It holds nothing but configuration; all mutable state for a single
// window lives in WindowInput, so one Engine can drive many windows
// concurrently if a caller chooses to (spec.md §5 "the spec permits but does
// not require windows to be processed in parallel").
type Engine struct {
	cfg Config
	gm  *GeneticMap
}

// NewEngine validates cfg and returns an Engine bound to it and to the
// supplied genetic map.
func NewEngine(cfg Config, gm *GeneticMap) (*Engine, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errs[0]
	}
	return &Engine{cfg: cfg, gm: gm}, nil
}

// WindowInput is the coherent per-window view the engine phases and
// imputes: a CurrentData alignment, one reference record per reference
// marker, and the live per-sample phasing state the iteration loop mutates
// in place.
type WindowInput struct {
	CD      *CurrentData
	RefRecs []*RefGTRec // len == CD.Markers.NMarkers(), aligned by index
	Targets []*EstPhase // one per target sample
}

func (w *WindowInput) nTarget() int { return 2 * len(w.Targets) }
func (w *WindowInput) nRef() int {
	if len(w.RefRecs) == 0 {
		return 0
	}
	return w.RefRecs[0].NHaps()
}

// targetAllele reads the live allele haplotype h (global numbering: sample
// s's two haplotypes are 2*s and 2*s+1) carries at reference marker m,
// through the sample's current EstPhase -- so haplotype coding always sees
// the orientation the last completed iteration settled on.
func (w *WindowInput) targetAllele(m, h int) int {
	s, hapNum := h/2, h%2+1
	ep := w.Targets[s]
	if hapNum == 1 {
		return ep.H1().Allele(w.CD.Markers, m)
	}
	return ep.H2().Allele(w.CD.Markers, m)
}

func (w *WindowInput) refAllele(m, h int) int {
	return w.RefRecs[m].Allele(h)
}

// cumulativeCM returns, for every reference marker, the genetic position
// relative to the window's first marker, by summing CurrentData.GenDist.
func cumulativeCM(cd *CurrentData) []float64 {
	n := cd.Markers.NMarkers()
	cum := make([]float64, n)
	for i := 1; i < n; i++ {
		cum[i] = cum[i-1] + cd.GenDist[i]
	}
	return cum
}

// stepBoundaries divides a window's reference markers into steps of at
// least stepCM genetic width each (spec.md §4.4's "step" granularity for
// IBS partitioning), returning each step's first marker index.
func stepBoundaries(cum []float64, stepCM float64) []int {
	if len(cum) == 0 {
		return nil
	}
	bounds := []int{0}
	last := cum[0]
	for i := 1; i < len(cum); i++ {
		if cum[i]-last >= stepCM {
			bounds = append(bounds, i)
			last = cum[i]
		}
	}
	return bounds
}

func stepEnd(bounds []int, s, n int) int {
	if s+1 < len(bounds) {
		return bounds[s+1]
	}
	return n
}

// filterRefDonors keeps only global-numbered donors that are reference
// haplotypes (index >= nTarget), rebasing them to reference-local indices.
// BuildIBS's recursive refinement partitions targets and references
// together, so a target haplotype's IBS class can include other targets;
// phasing's candidate-state table, per spec.md §4.5, is built from
// reference haplotypes only.
func filterRefDonors(donors []int32, nTarget int) []int32 {
	out := make([]int32, 0, len(donors))
	for _, d := range donors {
		if int(d) >= nTarget {
			out = append(out, d-int32(nTarget))
		}
	}
	return out
}

// mergeSortedUniqueI32 merges two ascending, duplicate-free int32 slices
// into one.
func mergeSortedUniqueI32(a, b []int32) []int32 {
	out := make([]int32, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i, j = i+1, j+1
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// buildCodeAt codes every target and reference haplotype once per step
// range, returning a function giving the coded sequence id of a haplotype
// at a given step (coder.go's hapToSeq numbering: targets [0,nTarget) then
// references [nTarget,nTarget+nRef)).
func buildCodeAt(w *WindowInput, bounds []int) func(step, hap int) int32 {
	n := w.CD.Markers.NMarkers()
	coder := NewHaplotypeCoder(w.CD, w.nTarget(), w.nRef(), w.targetAllele, w.refAllele)
	codes := make([][]int32, len(bounds))
	for s := range bounds {
		start, end := bounds[s], stepEnd(bounds, s, n)
		hapToSeq, _ := coder.CodeSeqCodedRef(start, end, w.RefRecs[start:end])
		codes[s] = hapToSeq
	}
	return func(step, hap int) int32 { return codes[step][hap] }
}

// Snapshot captures win's current per-sample phasing state into a
// WindowCheckpoint, for callers that want to persist progress between
// windows (diagnostics.go's WriteCheckpoint/ReadCheckpoint).
func (e *Engine) Snapshot(win *WindowInput, chromIndex int, windowCM, recombFactor float64) *WindowCheckpoint {
	haps := make([]CheckpointHaplotype, len(win.Targets))
	for s, ep := range win.Targets {
		haps[s] = snapshotEstPhase(s, ep)
	}
	return &WindowCheckpoint{
		ChromIndex:   chromIndex,
		WindowCM:     windowCM,
		RecombFactor: recombFactor,
		Haplotypes:   haps,
	}
}

// Phase runs the burnin+iteration loop of spec.md §4.6 over win, mutating
// every sample's EstPhase in place. Each iteration is a full barrier:
// samples are processed concurrently within an iteration (bounded to
// cfg.NThreads in flight) but the next iteration never starts until every
// sample's worker from this one has returned, since IBS/candidate-state
// construction for iteration i+1 needs a consistent snapshot of iteration
// i's output (spec.md §5 "Ordering guarantees").
func (e *Engine) Phase(win *WindowInput) error {
	cd := win.CD
	cum := cumulativeCM(cd)
	bounds := stepBoundaries(cum, e.cfg.StepCM)
	if len(bounds) == 0 {
		return nil
	}
	nTarget, nRef := win.nTarget(), win.nRef()
	totalIters := e.cfg.Burnin + e.cfg.Iterations
	recombFactor := cd.Intensity
	wlog := WindowLogger(0, cum[0], cum[len(cum)-1])
	regress := &Regress{}

	for iter := 0; iter < totalIters; iter++ {
		burnin := iter < e.cfg.Burnin
		collectRegression := burnin && iter >= e.cfg.Burnin-3
		codeAt := buildCodeAt(win, bounds)
		ibsParams := PhaseIBSParams(e.cfg, burnin)
		ibs := BuildIBS(ibsParams, 0, len(bounds), nTarget, nTarget+nRef, codeAt)
		remaining := totalIters - iter - 1
		if burnin {
			remaining = 0
		}

		th := &throttle{Max: e.cfg.NThreads}
		for s := range win.Targets {
			s := s
			th.Acquire()
			go func() {
				defer th.Release()
				th.Report(e.phaseSample(win, bounds, ibs, nTarget, s, recombFactor, cd.GenDist,
					regress, collectRegression, remaining))
			}()
		}
		if err := th.Wait(); err != nil {
			return err
		}

		if burnin && iter == e.cfg.Burnin-1 {
			recombFactor = reestimateRecombFactor(regress, recombFactor, cd.Ne, cd.NAllSamples)
			wlog.WithField("recomb_factor", recombFactor).Debug("reestimated recombination intensity")
		}
	}
	wlog.WithField("iterations", totalIters).Debug("phasing complete")
	return nil
}

// phaseSample builds one sample's shared candidate-state table from the
// window's IBS result and runs PhaseBaum1 over it, applying post-burn-in
// confidence filtering to the sample's EstPhase.
func (e *Engine) phaseSample(win *WindowInput, bounds []int, ibs map[int32][]int32, nTarget, sample int,
	recombFactor float64, genDist []float64, regress *Regress, collectRegression bool, remainingIters int) error {

	ep := win.Targets[sample]
	h1, h2 := int32(2*sample), int32(2*sample+1)
	donors := mergeSortedUniqueI32(filterRefDonors(ibs[h1], nTarget), filterRefDonors(ibs[h2], nTarget))
	ibsPerStep := func(int) []int32 { return donors }
	stepToMarker := func(s int) int { return bounds[s] }
	refAllele := func(m int, hap int32) int { return win.RefRecs[m].Allele(int(hap)) }

	cs := BuildPhaseStates(e.cfg.PhaseStates, len(bounds), win.CD.Markers.NMarkers(), ibsPerStep, stepToMarker, refAllele)
	if cs.NStates == 0 {
		return nil
	}

	obsAt := func(hapNum, m int) int {
		if ep.IsMissingAt(m) {
			return -1
		}
		if hapNum == 1 {
			return ep.H1().Allele(win.CD.Markers, m)
		}
		return ep.H2().Allele(win.CD.Markers, m)
	}

	hets := ep.UnphasedHet()
	pb := NewPhaseBaum1(cs.NStates, win.CD.Markers.NMarkers())
	result := pb.Run(ep, win.CD.Markers, cs, obsAt, float32(e.cfg.Err), recombFactor, genDist, regress, collectRegression)

	threshold, ok := confidenceThreshold(result.LRs, len(hets), remainingIters)
	if ok {
		resolved := map[int]bool{}
		for i, lr := range result.LRs {
			if lr >= threshold {
				resolved[hets[i]] = true
			}
		}
		ep.RemoveResolved(resolved)
	}
	return nil
}

// ImputeResult is the per-window output of Impute: one ImputedRecord per
// (sample, reference marker) in the window's output range, plus one
// MarkerInfo per reference marker in that range.
type ImputeResult struct {
	Records []ImputedRecord
	Markers []MarkerInfo
}

// clusterRepMarker returns the reference marker used to represent cluster
// c's reference-allele lookups: its first reference marker, matching the
// cluster's own ErrProb/PRecomb, which are also computed against the
// cluster's midpoint rather than per-marker.
func clusterRepMarker(c Cluster) int { return c.RefStart }

// Impute runs the post-phasing imputation HMM of spec.md §4.7-§4.8 over
// win, which must already have been Phase'd to a stable orientation. It
// returns per-sample, per-marker posterior records for every reference
// marker in win.CD.OutputRange(), and the corresponding marker-level AF/DR2
// summaries.
func (e *Engine) Impute(win *WindowInput) (*ImputeResult, error) {
	cd := win.CD
	if !e.cfg.Impute {
		return &ImputeResult{}, nil
	}
	nTarget, nRef := win.nTarget(), win.nRef()
	cum := cumulativeCM(cd)
	bounds := stepBoundaries(cum, e.cfg.StepCM)
	if len(bounds) == 0 || len(cd.TargToRef) == 0 {
		return &ImputeResult{}, nil
	}

	targCM := make([]float64, len(cd.TargToRef))
	for j, refIdx := range cd.TargToRef {
		targCM[j] = cum[refIdx]
	}
	samePartition := func(j int) bool {
		if j <= 0 {
			return true
		}
		r1, r2 := win.RefRecs[cd.TargToRef[j-1]], win.RefRecs[cd.TargToRef[j]]
		if r1.Kind != SeqCoded || r2.Kind != SeqCoded {
			return true
		}
		return r1.partitionID == r2.partitionID
	}
	clusters := BuildClusters(cd, targCM, samePartition, e.cfg.ClusterCM, e.cfg.Err, e.cfg.Ne, nRef, cd.Markers.NMarkers())
	if len(clusters) == 0 {
		return &ImputeResult{}, nil
	}
	stepToCluster := stepToClusterFn(bounds, clusters, cd.Markers.NMarkers())

	codeAt := buildCodeAt(win, bounds)
	ibsParams := ImpIBSParams(e.cfg)
	ibs := BuildIBS(ibsParams, 0, len(bounds), nTarget, nTarget+nRef, codeAt)

	hash := NewRefHapHash(cd.Markers, 0, cd.Markers.NMarkers(), func(hap, m int) int { return win.RefRecs[m].Allele(hap) }, e.cfg.Seed)

	start, end := cd.OutputRange()
	nAllelesAt := func(m int) int { return cd.Markers.Marker(m).NAlleles() }

	hapProbs := make([][][]float64, nTarget) // [hap][refMarker][allele]
	th := &throttle{Max: e.cfg.NThreads}
	for h := 0; h < nTarget; h++ {
		h := h
		th.Acquire()
		go func() {
			defer th.Release()
			donors := filterRefDonors(ibs[int32(h)], nTarget)
			refAllele := func(c int, hap int32) int {
				return win.RefRecs[clusterRepMarker(clusters[c])].Allele(int(hap))
			}
			targAllele := func(c int) int {
				m := clusters[c].TargStart
				return win.targetAllele(cd.TargToRef[m], h)
			}
			cs := BuildImpStates(e.cfg.ImpStates, len(bounds), len(clusters), func(int) []int32 { return donors },
				stepToCluster, refAllele, targAllele)
			if cs.NStates == 0 {
				return
			}
			factory := NewStateProbsFactory(cs.NStates)
			sp := factory.Build(clusters, cs.HapIndices,
				func(c, k int) int { return refAllele(c, cs.HapIndices[c][k]) }, targAllele)

			sample := h / 2
			observedAt := func(m int) (int, bool) {
				j := cd.RefToTarg[m]
				if j < 0 {
					return 0, false
				}
				if win.Targets[sample].IsMissingAt(cd.TargToRef[j]) {
					return 0, false
				}
				return win.targetAllele(m, h), true
			}
			hapProbs[h] = AggregateHaplotype(clusters, sp, hash, nAllelesAt, cum, observedAt)
		}()
	}
	if err := th.Wait(); err != nil {
		return nil, err
	}

	var records []ImputedRecord
	dosagesByMarker := make([][][]float64, end-start)
	for m := start; m < end; m++ {
		dosagesByMarker[m-start] = make([][]float64, 0, len(win.Targets))
	}
	for sample := range win.Targets {
		h1, h2 := 2*sample, 2*sample+1
		if hapProbs[h1] == nil || hapProbs[h2] == nil {
			continue
		}
		for m := start; m < end; m++ {
			rec := CombinePair(m, sample, hapProbs[h1][m], hapProbs[h2][m], e.cfg.AP, e.cfg.GP)
			records = append(records, rec)
			dosagesByMarker[m-start] = append(dosagesByMarker[m-start], rec.Dosage)
		}
	}

	var markers []MarkerInfo
	for m := start; m < end; m++ {
		nAlts := nAllelesAt(m) - 1
		if nAlts < 0 {
			nAlts = 0
		}
		info := AggregateMarker(m, dosagesByMarker[m-start], nAlts)
		info.Imputed = cd.RefToTarg[m] < 0
		markers = append(markers, info)
	}

	return &ImputeResult{Records: records, Markers: markers}, nil
}

// stepToClusterFn maps a step index to the index of the cluster containing
// its first reference marker, by binary search over cluster boundaries.
func stepToClusterFn(bounds []int, clusters []Cluster, nMarkers int) func(step int) int {
	starts := make([]int, len(clusters))
	for i, c := range clusters {
		starts[i] = c.RefStart
	}
	return func(step int) int {
		m := bounds[step]
		i := sort.Search(len(starts), func(i int) bool { return starts[i] > m }) - 1
		if i < 0 {
			i = 0
		}
		if i >= len(clusters) {
			i = len(clusters) - 1
		}
		return i
	}
}
