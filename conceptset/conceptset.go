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

// Package conceptset builds named sets of OMOP concepts. Concepts are resolved
// by id or name through a Querier and optionally extended by all their
// descendants.
package conceptset

import (
	"slices"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

var (
	ErrUnnamedConceptSet = errors.New("concept set requires a name")
	ErrEmptyConceptSet   = errors.New("concept set requires at least one concept id or concept name")
	ErrNoConceptsFound   = errors.New("no concepts could be found for the concept set")
)

// Concept is a row of the OMOP CDM concept table.
type Concept struct {
	ID              int64
	Name            string
	DomainID        string
	VocabularyID    string
	ConceptClassID  string
	StandardConcept string
	ConceptCode     string
}

// ConceptSet is a named, resolved collection of concepts. Its id and name are
// fixed at construction.
type ConceptSet struct {
	id                 int
	name               string
	includeDescendants bool
	concepts           []Concept
}

func (cs *ConceptSet) ID() int {
	return cs.id
}

// Name returns the display name. It is safe to call on a nil ConceptSet.
func (cs *ConceptSet) Name() string {
	if cs == nil {
		return ""
	}
	return cs.name
}

func (cs *ConceptSet) IncludeDescendants() bool {
	return cs.includeDescendants
}

// Concepts returns the resolved concepts. Declared concept sets have none.
func (cs *ConceptSet) Concepts() []Concept {
	return slices.Clone(cs.concepts)
}

func (cs *ConceptSet) Len() int {
	return len(cs.concepts)
}

// Entry is one registered concept set.
type Entry struct {
	ID   int
	Name string
}

// Registry allocates sequential concept set ids, starting at 1, and keeps
// their names. Use one registry per cohort definition or test.
type Registry struct {
	mu    sync.Mutex
	next  int
	names map[int]string
}

func NewRegistry() *Registry {
	return &Registry{names: make(map[int]string)}
}

func (r *Registry) register(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.names[r.next] = name
	return r.next
}

// Declare registers a concept set that only carries a name. It serves
// descriptions when no vocabulary database is available.
func (r *Registry) Declare(name string) (*ConceptSet, error) {
	if name == "" {
		return nil, ErrUnnamedConceptSet
	}
	return &ConceptSet{id: r.register(name), name: name}, nil
}

// Name returns the name registered for id.
func (r *Registry) Name(id int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, ok := r.names[id]
	return name, ok
}

// Entries returns all registered concept sets ordered by id.
func (r *Registry) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := make([]Entry, 0, len(r.names))
	for id, name := range r.names {
		entries = append(entries, Entry{ID: id, Name: name})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ID < entries[j].ID
	})
	return entries
}
