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
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuerier struct {
	concepts    map[int64]Concept
	descendants map[int64][]int64
	err         error
	calls       []string
}

func (q *fakeQuerier) ConceptsByIDs(_ context.Context, ids []int64) ([]Concept, error) {
	q.calls = append(q.calls, "ids")
	if q.err != nil {
		return nil, q.err
	}
	var out []Concept
	for _, id := range ids {
		if c, ok := q.concepts[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (q *fakeQuerier) ConceptsByNames(_ context.Context, names []string) ([]Concept, error) {
	q.calls = append(q.calls, "names")
	var out []Concept
	for _, name := range names {
		for _, c := range q.concepts {
			if c.Name == name {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (q *fakeQuerier) Descendants(_ context.Context, ids []int64) ([]Concept, error) {
	q.calls = append(q.calls, "descendants")
	var out []Concept
	for _, id := range ids {
		for _, d := range q.descendants[id] {
			out = append(out, q.concepts[d])
		}
	}
	return out, nil
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{
		concepts: map[int64]Concept{
			201820:  {ID: 201820, Name: "Diabetes mellitus", DomainID: "Condition"},
			201826:  {ID: 201826, Name: "Type 2 diabetes mellitus", DomainID: "Condition"},
			4193704: {ID: 4193704, Name: "Type 2 diabetes mellitus without complication", DomainID: "Condition"},
		},
		descendants: map[int64][]int64{
			201820: {201820, 201826, 4193704},
		},
	}
}

func TestBuilder_Build(t *testing.T) {
	ctx := context.Background()

	t.Run("names before ids", func(t *testing.T) {
		registry := NewRegistry()
		cs, err := NewBuilder(registry, newFakeQuerier()).Build(ctx, Spec{
			Name:         "Diabetes",
			ConceptIDs:   []int64{201826},
			ConceptNames: []string{"Diabetes mellitus"},
		})
		require.NoError(t, err)

		assert.Equal(t, 1, cs.ID())
		assert.Equal(t, "Diabetes", cs.Name())
		require.Equal(t, 2, cs.Len())
		assert.Equal(t, int64(201820), cs.Concepts()[0].ID)
		assert.Equal(t, int64(201826), cs.Concepts()[1].ID)
	})

	t.Run("with descendants", func(t *testing.T) {
		q := newFakeQuerier()
		cs, err := NewBuilder(NewRegistry(), q).Build(ctx, Spec{
			Name:               "Diabetes",
			ConceptNames:       []string{"Diabetes mellitus"},
			IncludeDescendants: true,
		})
		require.NoError(t, err)

		assert.Equal(t, 3, cs.Len())
		assert.True(t, cs.IncludeDescendants())
		assert.Equal(t, []string{"names", "descendants"}, q.calls)
	})

	t.Run("ids are sequential", func(t *testing.T) {
		registry := NewRegistry()
		b := NewBuilder(registry, newFakeQuerier())
		first, err := b.Build(ctx, Spec{Name: "A", ConceptIDs: []int64{201820}})
		require.NoError(t, err)
		second, err := b.Build(ctx, Spec{Name: "B", ConceptIDs: []int64{201826}})
		require.NoError(t, err)

		assert.Equal(t, 1, first.ID())
		assert.Equal(t, 2, second.ID())
		assert.Equal(t, []Entry{{1, "A"}, {2, "B"}}, registry.Entries())
		name, ok := registry.Name(2)
		assert.True(t, ok)
		assert.Equal(t, "B", name)
	})

	t.Run("empty spec", func(t *testing.T) {
		_, err := NewBuilder(NewRegistry(), newFakeQuerier()).Build(ctx, Spec{Name: "Empty"})
		assert.True(t, errors.Is(err, ErrEmptyConceptSet))
	})

	t.Run("unnamed spec", func(t *testing.T) {
		_, err := NewBuilder(NewRegistry(), newFakeQuerier()).Build(ctx, Spec{ConceptIDs: []int64{1}})
		assert.True(t, errors.Is(err, ErrUnnamedConceptSet))
	})

	t.Run("nothing found does not register", func(t *testing.T) {
		registry := NewRegistry()
		_, err := NewBuilder(registry, newFakeQuerier()).Build(ctx, Spec{
			Name:         "Unknown",
			ConceptNames: []string{"Unknown disease"},
		})
		assert.True(t, errors.Is(err, ErrNoConceptsFound))
		assert.Empty(t, registry.Entries())
	})

	t.Run("querier error", func(t *testing.T) {
		q := newFakeQuerier()
		q.err = errors.New("connection refused")
		_, err := NewBuilder(NewRegistry(), q).Build(ctx, Spec{Name: "Diabetes", ConceptIDs: []int64{201820}})
		require.Error(t, err)
		assert.Equal(t, `concept set "Diabetes": resolve concept ids: connection refused`, err.Error())
	})
}

func TestRegistry_Declare(t *testing.T) {
	registry := NewRegistry()
	cs, err := registry.Declare("ER visit")
	require.NoError(t, err)

	assert.Equal(t, 1, cs.ID())
	assert.Equal(t, "ER visit", cs.Name())
	assert.Zero(t, cs.Len())

	_, err = registry.Declare("")
	assert.True(t, errors.Is(err, ErrUnnamedConceptSet))
}

func TestConceptSet_NilName(t *testing.T) {
	var cs *ConceptSet
	assert.Equal(t, "", cs.Name())
}
