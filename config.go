// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beaglephase

import (
	"fmt"
	"io"
	"io/ioutil"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// Config enumerates the tunable parameters of the engine (spec.md §6).
// Field names match the parameter names of the source algorithm; yaml tags
// follow the lower-case-with-hyphens convention the teacher repo uses for
// its own arvados-config-driven flags.
type Config struct {
	Burnin     int     `yaml:"burnin"`
	Iterations int     `yaml:"iterations"`

	PhaseStates    int     `yaml:"phase-states"`
	PhaseSegmentCM float64 `yaml:"phase-segment-cm"`

	Impute      bool    `yaml:"impute"`
	ImpStates   int     `yaml:"imp-states"`
	ImpSegmentCM float64 `yaml:"imp-segment-cm"`
	ClusterCM   float64 `yaml:"cluster-cm"`

	AP bool `yaml:"ap"`
	GP bool `yaml:"gp"`

	Ne  float64 `yaml:"ne"`
	Err float64 `yaml:"err"`

	WindowCM  float64 `yaml:"window-cm"`
	OverlapCM float64 `yaml:"overlap-cm"`

	Seed     int64 `yaml:"seed"`
	NThreads int   `yaml:"nthreads"`

	StepCM  float64 `yaml:"step-cm"`
	NSteps  int     `yaml:"nsteps"`
}

// DefaultConfig returns a Config populated with the documented defaults
// (spec.md §6). Callers typically load a parameter file over a copy of this.
func DefaultConfig() Config {
	return Config{
		Burnin:         0,
		Iterations:     0,
		PhaseStates:    280,
		PhaseSegmentCM: 4.0,
		Impute:         true,
		ImpStates:      1600,
		ImpSegmentCM:   6.0,
		ClusterCM:      0.005,
		AP:             false,
		GP:             false,
		Ne:             1e6,
		Err:            1e-4,
		WindowCM:       40,
		OverlapCM:      4,
		Seed:           -99999,
		NThreads:       1,
		StepCM:         0.1,
		NSteps:         7,
	}
}

// LoadConfig reads a YAML parameter file over DefaultConfig's values.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	buf, err := ioutil.ReadAll(r)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate collects every violation of the invariants listed in spec.md §6
// and §7, rather than stopping at the first one, so a caller can report the
// whole set of problems at once.
func (c Config) Validate() []error {
	var errs []error
	if c.Burnin < 0 {
		errs = append(errs, &ValidationError{Msg: "burnin must be >= 0"})
	}
	if c.Iterations < 0 {
		errs = append(errs, &ValidationError{Msg: "iterations must be >= 0"})
	}
	if c.WindowCM <= 0 {
		errs = append(errs, &ValidationError{Msg: "window_cM must be > 0"})
	}
	if c.OverlapCM < 0 {
		errs = append(errs, &ValidationError{Msg: "overlap_cM must be >= 0"})
	}
	if 1.1*c.OverlapCM >= c.WindowCM {
		errs = append(errs, &ValidationError{Msg: fmt.Sprintf(
			"1.1*overlap_cM (%g) must be < window_cM (%g)", 1.1*c.OverlapCM, c.WindowCM)})
	}
	if c.PhaseStates <= 0 {
		errs = append(errs, &ValidationError{Msg: "phase_states must be > 0"})
	}
	if c.Impute && c.ImpStates <= 0 {
		errs = append(errs, &ValidationError{Msg: "imp_states must be > 0 when impute is enabled"})
	}
	if c.ClusterCM < 0 {
		errs = append(errs, &ValidationError{Msg: "cluster_cM must be >= 0"})
	}
	if c.Ne <= 0 {
		errs = append(errs, &ValidationError{Msg: "ne must be > 0"})
	}
	if c.Err < 0 || c.Err >= 1 {
		errs = append(errs, &ValidationError{Msg: "err must be in [0,1)"})
	}
	if c.StepCM <= 0 {
		errs = append(errs, &ValidationError{Msg: "step_cM must be > 0"})
	}
	if c.NSteps <= 0 {
		errs = append(errs, &ValidationError{Msg: "nsteps must be > 0"})
	}
	if c.NThreads <= 0 {
		errs = append(errs, &ValidationError{Msg: "nthreads must be > 0"})
	}
	return errs
}

// nMarkersPerStep clamps the number of markers per IBS step to at least 1.
//
// Open question (spec.md §9): the source falls back to nSamples*4 when the
// computed step size would be zero, which reads like a typo for clamping
// the step count itself. We clamp to max(1, computed) and log once.
func nMarkersPerStep(computed int, warnedOnce *bool) int {
	if computed < 1 {
		if warnedOnce != nil && !*warnedOnce {
			*warnedOnce = true
			log.Warn("nMarkersPerStep computed as < 1; clamping to 1")
		}
		return 1
	}
	return computed
}
