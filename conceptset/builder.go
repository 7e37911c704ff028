// Copyright 2026 The Samply Community
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package conceptset

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samply/cohortctl/logger"
)

// Querier looks up rows of the concept and concept_ancestor tables.
type Querier interface {
	ConceptsByIDs(ctx context.Context, ids []int64) ([]Concept, error)
	ConceptsByNames(ctx context.Context, names []string) ([]Concept, error)
	// Descendants returns the descendants of the given ancestors.
	Descendants(ctx context.Context, ids []int64) ([]Concept, error)
}

// Spec describes a concept set to build.
type Spec struct {
	Name               string
	ConceptIDs         []int64
	ConceptNames       []string
	IncludeDescendants bool
}

// Builder resolves specs into concept sets and registers them.
type Builder struct {
	registry *Registry
	querier  Querier
}

func NewBuilder(registry *Registry, querier Querier) *Builder {
	return &Builder{registry: registry, querier: querier}
}

// Build resolves spec. Concepts found by name come first, then those found by
// id, then descendants; duplicates keep their first position. The concept set
// is registered only if it could be resolved.
func (b *Builder) Build(ctx context.Context, spec Spec) (*ConceptSet, error) {
	if spec.Name == "" {
		return nil, ErrUnnamedConceptSet
	}
	if len(spec.ConceptIDs) == 0 && len(spec.ConceptNames) == 0 {
		return nil, errors.Wrapf(ErrEmptyConceptSet, "concept set %q", spec.Name)
	}
	start := time.Now()

	var byName []Concept
	if len(spec.ConceptNames) > 0 {
		var err error
		byName, err = b.querier.ConceptsByNames(ctx, spec.ConceptNames)
		if err != nil {
			return nil, errors.Wrapf(err, "concept set %q: resolve concept names", spec.Name)
		}
	}

	var byID []Concept
	if len(spec.ConceptIDs) > 0 {
		var err error
		byID, err = b.querier.ConceptsByIDs(ctx, spec.ConceptIDs)
		if err != nil {
			return nil, errors.Wrapf(err, "concept set %q: resolve concept ids", spec.Name)
		}
	}

	ids := uniqueIDs(spec.ConceptIDs, byName)
	if len(ids) == 0 {
		return nil, errors.Wrapf(ErrNoConceptsFound, "concept set %q", spec.Name)
	}

	var descendants []Concept
	if spec.IncludeDescendants {
		var err error
		descendants, err = b.querier.Descendants(ctx, ids)
		if err != nil {
			return nil, errors.Wrapf(err, "concept set %q: resolve descendants", spec.Name)
		}
	}

	concepts := merge(byName, byID, descendants)
	if len(concepts) == 0 {
		return nil, errors.Wrapf(ErrNoConceptsFound, "concept set %q", spec.Name)
	}

	cs := &ConceptSet{
		id:                 b.registry.register(spec.Name),
		name:               spec.Name,
		includeDescendants: spec.IncludeDescendants,
		concepts:           concepts,
	}
	logger.Logger.Debugw("Built concept set",
		logger.FieldConceptSet, cs.name,
		logger.FieldConceptSetID, cs.id,
		logger.FieldCount, len(concepts),
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return cs, nil
}

// uniqueIDs returns the given ids followed by the ids of the concepts found
// by name, without duplicates.
func uniqueIDs(ids []int64, byName []Concept) []int64 {
	seen := make(map[int64]bool, len(ids)+len(byName))
	out := make([]int64, 0, len(ids)+len(byName))
	add := func(id int64) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range ids {
		add(id)
	}
	for _, c := range byName {
		add(c.ID)
	}
	return out
}

func merge(lists ...[]Concept) []Concept {
	seen := make(map[int64]bool)
	var out []Concept
	for _, list := range lists {
		for _, c := range list {
			if !seen[c.ID] {
				seen[c.ID] = true
				out = append(out, c)
			}
		}
	}
	return out
}
