// SPDX-FileCopyrightText: 2025 The paramtune Authors
// SPDX-License-Identifier: Apache-2.0

// Package random implements the one SearchAlgorithm that is in scope for
// this module: independent uniform sampling over the parameter domain. It
// is a direct port of the original random-sampling algorithm — unlike
// model-based optimization, whose mathematics are out of scope everywhere
// in this module.
package random

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/paramtune/paramtune/api"
)

// Search samples every candidate independently and uniformly from the
// parameter domain. All num_evals candidates are generated up front by
// GenInitialParams, since evaluations are independent of one another;
// GenNewParams always signals that the search is over on its first call,
// matching the original's single-shot generation.
type Search struct {
	paramsToTune     []api.ParameterSpec
	paramsToTryFirst []*api.ParameterSet
	numEvals         int
	rng              *rand.Rand
}

// New builds a Search over paramsToTune. rng must be supplied by the
// caller (never a package-level generator, per the governing design note on
// eliminating global mutable RNG state): construct it with
// rand.New(rand.NewSource(seed)) for reproducible runs. paramsToTryFirst may
// be nil or empty; its entries are emitted ahead of the randomly sampled
// batch. numEvals must be positive.
func New(paramsToTune []api.ParameterSpec, paramsToTryFirst []*api.ParameterSet, numEvals int, rng *rand.Rand) (*Search, error) {
	if numEvals <= 0 {
		return nil, fmt.Errorf("random search: num_evals must be positive, got %d", numEvals)
	}
	if rng == nil {
		return nil, fmt.Errorf("random search: an explicit *rand.Rand is required")
	}
	for _, spec := range paramsToTune {
		switch spec.Kind {
		case api.KindRange, api.KindLogRange, api.KindValues:
		default:
			return nil, fmt.Errorf("random search: parameter %q has unrecognized kind %v", spec.Name, spec.Kind)
		}
	}

	return &Search{
		paramsToTune:     paramsToTune,
		paramsToTryFirst: paramsToTryFirst,
		numEvals:         numEvals,
		rng:              rng,
	}, nil
}

// GenInitialParams returns paramsToTryFirst followed by numEvals
// independently sampled ParameterSets.
func (s *Search) GenInitialParams() []*api.ParameterSet {
	out := make([]*api.ParameterSet, 0, len(s.paramsToTryFirst)+s.numEvals)
	out = append(out, s.paramsToTryFirst...)
	for i := 0; i < s.numEvals; i++ {
		out = append(out, s.sampleParams())
	}
	return out
}

// GenNewParams always signals the search is over: every candidate was
// already generated by GenInitialParams, so there is nothing left to
// produce in response to feedback.
func (s *Search) GenNewParams(result float64, params *api.ParameterSet, evaluationSucceeded bool) ([]*api.ParameterSet, bool) {
	return nil, false
}

func (s *Search) sampleParams() *api.ParameterSet {
	ps := api.NewParameterSet()
	for _, spec := range s.paramsToTune {
		switch spec.Kind {
		case api.KindRange:
			ps.Set(spec.Name, spec.Min+s.rng.Float64()*(spec.Max-spec.Min))
		case api.KindLogRange:
			logMin, logMax := math.Log(spec.Min), math.Log(spec.Max)
			ps.Set(spec.Name, math.Exp(logMin+s.rng.Float64()*(logMax-logMin)))
		case api.KindValues:
			ps.Set(spec.Name, spec.Values[s.rng.Intn(len(spec.Values))])
		}
	}
	return ps
}
