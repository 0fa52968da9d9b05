// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

// Package beaglephase implements the haplotype phasing and
// genotype-imputation engine described by the Beagle 5.0 algorithm: given a
// panel of phased reference haplotypes, a cohort of target samples with
// possibly unphased or missing genotypes at a subset of the reference
// markers, and a genetic map, it produces phased diploid haplotypes for
// every target sample together with posterior allele and genotype
// probabilities at markers untyped in the target.
//
// The package consumes per-window views (WindowInput: reference records as
// RefGTRec, target samples as EstPhase) and produces
// abstract posterior records (ImputedRecord); VCF/BGZF I/O, tabix range
// reads, pedigree parsing, reference compression, cluster job distribution
// and CLI argument parsing are not part of this package.
package beaglephase
