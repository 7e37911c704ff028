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

package cohort

import (
	"slices"
)

// Quantifier tells how many criteria of a group have to match.
type Quantifier string

const (
	QuantifierAll     Quantifier = "all"
	QuantifierAny     Quantifier = "any"
	QuantifierAtLeast Quantifier = "at least"
	QuantifierAtMost  Quantifier = "at most"
)

func (q Quantifier) Valid() bool {
	switch q {
	case QuantifierAll, QuantifierAny, QuantifierAtLeast, QuantifierAtMost:
		return true
	}
	return false
}

// EventLimit selects which of several qualifying events of a person are kept.
type EventLimit string

const (
	AllEvents     EventLimit = "all events"
	EarliestEvent EventLimit = "earliest event"
	LatestEvent   EventLimit = "latest event"
)

func (l EventLimit) Valid() bool {
	switch l {
	case AllEvents, EarliestEvent, LatestEvent:
		return true
	}
	return false
}

// SubgroupCriteria is a quantifier over an ordered list of criteria. The
// quantifier is carried for renderers, it is not evaluated here.
type SubgroupCriteria struct {
	quantifier Quantifier
	criteria   []Criterion
}

// NewSubgroupCriteria creates an empty subgroup.
func NewSubgroupCriteria(q Quantifier) (*SubgroupCriteria, error) {
	if !q.Valid() {
		return nil, invalidf("unknown subgroup quantifier %q", q)
	}
	return &SubgroupCriteria{quantifier: q}, nil
}

func (s *SubgroupCriteria) Quantifier() Quantifier {
	return s.quantifier
}

// AddCriterion appends c. A group criterion that contains s is rejected so
// that the criteria always form a tree.
func (s *SubgroupCriteria) AddCriterion(c Criterion) error {
	if isNilCriterion(c) {
		return invalidf("subgroup: criterion must not be nil")
	}
	if g, ok := c.(*GroupCriterion); ok && g.group.contains(s) {
		return invalidf("subgroup: a group must not contain itself")
	}
	s.criteria = append(s.criteria, c)
	return nil
}

// Criteria returns the criteria in insertion order.
func (s *SubgroupCriteria) Criteria() []Criterion {
	return slices.Clone(s.criteria)
}

// Leaves returns the criteria of s. Nested group criteria are returned as
// they are, not expanded.
func (s *SubgroupCriteria) Leaves() []Criterion {
	return s.Criteria()
}

func (s *SubgroupCriteria) contains(other *SubgroupCriteria) bool {
	if s == other {
		return true
	}
	for _, c := range s.criteria {
		if g, ok := c.(*GroupCriterion); ok && g.group.contains(other) {
			return true
		}
	}
	return false
}

// NamedGroupCriteria is a user defined inclusion rule: a name, a free text
// description and one or more subgroups.
type NamedGroupCriteria struct {
	name        string
	description string
	groups      []*SubgroupCriteria
}

func NewNamedGroupCriteria(name, description string) *NamedGroupCriteria {
	return &NamedGroupCriteria{name: name, description: description}
}

func (n *NamedGroupCriteria) Name() string {
	return n.name
}

func (n *NamedGroupCriteria) Description() string {
	return n.description
}

func (n *NamedGroupCriteria) AddGroupCriteria(g *SubgroupCriteria) error {
	if g == nil {
		return invalidf("named group %q: subgroup must not be nil", n.name)
	}
	n.groups = append(n.groups, g)
	return nil
}

func (n *NamedGroupCriteria) GroupCriteria() []*SubgroupCriteria {
	return slices.Clone(n.groups)
}

// InclusionCriteria is the ordered list of inclusion rules together with the
// limit applied to qualifying events.
type InclusionCriteria struct {
	limit EventLimit
	named []*NamedGroupCriteria
}

func NewInclusionCriteria(limit EventLimit) (*InclusionCriteria, error) {
	if !limit.Valid() {
		return nil, invalidf("unknown qualifying event limit %q", limit)
	}
	return &InclusionCriteria{limit: limit}, nil
}

// Limit returns the limit applied to qualifying events.
func (i *InclusionCriteria) Limit() EventLimit {
	return i.limit
}

func (i *InclusionCriteria) AddNamedCriteria(n *NamedGroupCriteria) error {
	if n == nil {
		return invalidf("inclusion criteria: named group must not be nil")
	}
	i.named = append(i.named, n)
	return nil
}

func (i *InclusionCriteria) NamedCriteria() []*NamedGroupCriteria {
	return slices.Clone(i.named)
}

// Leaves walks every named group, every subgroup and returns their criteria
// in insertion order.
func (i *InclusionCriteria) Leaves() []Criterion {
	var out []Criterion
	for _, n := range i.named {
		for _, g := range n.groups {
			out = append(out, g.criteria...)
		}
	}
	return out
}
