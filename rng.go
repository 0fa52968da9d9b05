// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beaglephase

import "golang.org/x/exp/rand"

// seededRand derives a thread-confined PRNG from the global seed and local
// indices (spec.md §5 "Thread-confined RNGs" / §9 design note). Every
// stochastic decision in the engine -- IBS donor draws and RefHapHash tag
// generation -- goes through this so runs are reproducible
// under a fixed seed regardless of thread schedule, the same discipline the
// teacher's chisquare.go applies via golang.org/x/exp/rand.NewSource.
func seededRand(seed int64, salts ...int64) *rand.Rand {
	s := uint64(seed)
	for _, salt := range salts {
		// splitmix64-style avalanche so nearby salts don't produce
		// correlated streams.
		s ^= uint64(salt) + 0x9e3779b97f4a7c15 + (s << 6) + (s >> 2)
	}
	return rand.New(rand.NewSource(s))
}

// sampleWithoutReplacement returns k indices drawn uniformly at random
// from [0,n) without replacement, using r. Used by IBS's bounded-donor
// selection (spec.md §4.4).
func sampleWithoutReplacement(r *rand.Rand, n, k int) []int {
	if k >= n {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + r.Intn(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	out := make([]int, k)
	copy(out, pool[:k])
	return out
}
