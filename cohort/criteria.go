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
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Shape tells which fields a criterion domain carries.
type Shape int

const (
	// ConceptOnly criteria reference a concept set.
	ConceptOnly Shape = iota
	// ExtraOnly criteria have no concept set but may be restricted to the
	// same visit occurrence.
	ExtraOnly
	// ConceptExtra criteria have both.
	ConceptExtra
)

func (s Shape) String() string {
	switch s {
	case ConceptOnly:
		return "concept"
	case ExtraOnly:
		return "extra"
	case ConceptExtra:
		return "concept+extra"
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// Domain is a clinical domain a criterion can be defined on.
type Domain struct {
	name  string
	shape Shape
}

func (d Domain) Name() string {
	return d.name
}

func (d Domain) Shape() Shape {
	return d.shape
}

func (d Domain) String() string {
	return d.name
}

var (
	ConditionEraDomain        = Domain{"condition era", ConceptOnly}
	ConditionOccurrenceDomain = Domain{"condition occurrence", ConceptExtra}
	DeathDomain               = Domain{"death occurrence", ConceptOnly}
	DeviceExposureDomain      = Domain{"device exposure", ConceptExtra}
	DoseEraDomain             = Domain{"dose era", ConceptOnly}
	DrugEraDomain             = Domain{"drug era", ConceptOnly}
	DrugExposureDomain        = Domain{"drug exposure", ConceptExtra}
	LocationRegionDomain      = Domain{"location region", ConceptOnly}
	MeasurementDomain         = Domain{"measurement", ConceptExtra}
	ObservationDomain         = Domain{"observation", ConceptExtra}
	ObservationPeriodDomain   = Domain{"observation periods", ExtraOnly}
	PayerPlanPeriodDomain     = Domain{"payer plan period", ExtraOnly}
	ProcedureOccurrenceDomain = Domain{"procedure occurrence", ConceptExtra}
	SpecimenDomain            = Domain{"specimen", ConceptOnly}
	VisitOccurrenceDomain     = Domain{"visit occurrence", ConceptExtra}
	VisitDetailDomain         = Domain{"visit detail", ConceptExtra}

	// GroupDomain is the domain of a nested group of criteria.
	GroupDomain = Domain{name: "group"}
)

var domains = []Domain{
	ConditionEraDomain, ConditionOccurrenceDomain, DeathDomain, DeviceExposureDomain,
	DoseEraDomain, DrugEraDomain, DrugExposureDomain, LocationRegionDomain,
	MeasurementDomain, ObservationDomain, ObservationPeriodDomain, PayerPlanPeriodDomain,
	ProcedureOccurrenceDomain, SpecimenDomain, VisitOccurrenceDomain, VisitDetailDomain,
}

// Domains returns all criterion domains except GroupDomain.
func Domains() []Domain {
	out := make([]Domain, len(domains))
	copy(out, domains)
	return out
}

// LookupDomain finds a criterion domain by its name.
func LookupDomain(name string) (Domain, bool) {
	for _, d := range domains {
		if d.name == name {
			return d, true
		}
	}
	return Domain{}, false
}

const sameVisitLine = "restrict to the same visit occurrence"

// Criterion is a single countable, time-windowed condition. The set of
// implementations is closed: ConceptCriterion, ExtraCriterion,
// ConceptExtraCriterion and GroupCriterion.
type Criterion interface {
	Domain() Domain
	Describe() []string
	criterion()
}

func conceptClause(d Domain, name string, ok bool) string {
	if !ok {
		return fmt.Sprintf("%s %s", Article(d.name), d.name)
	}
	return fmt.Sprintf("%s %s of %s", Article(d.name), d.name, name)
}

// ConceptCriterion is a criterion on a concept set, e.g. a condition era.
type ConceptCriterion struct {
	domain         Domain
	conceptSetName string
	hasConceptSet  bool
	options        Options
}

// NewConceptCriterion creates a criterion of a ConceptOnly domain. cs may be
// nil in which case the description omits the concept set.
func NewConceptCriterion(d Domain, cs ConceptSetRef, opts Options) (*ConceptCriterion, error) {
	if err := checkShape(d, ConceptOnly); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, d.name)
	}
	name, ok := conceptSetName(cs)
	return &ConceptCriterion{domain: d, conceptSetName: name, hasConceptSet: ok, options: opts}, nil
}

func (c *ConceptCriterion) Domain() Domain {
	return c.domain
}

// ConceptSetName returns the name of the referenced concept set and whether
// there is one.
func (c *ConceptCriterion) ConceptSetName() (string, bool) {
	return c.conceptSetName, c.hasConceptSet
}

func (c *ConceptCriterion) Options() Options {
	return c.options
}

func (c *ConceptCriterion) Describe() []string {
	lines := []string{conceptClause(c.domain, c.conceptSetName, c.hasConceptSet)}
	return append(lines, c.options.Describe()...)
}

func (*ConceptCriterion) criterion() {}

// ExtraCriterion is a criterion without a concept set, e.g. an observation
// period.
type ExtraCriterion struct {
	domain    Domain
	options   Options
	sameVisit bool
}

// NewExtraCriterion creates a criterion of an ExtraOnly domain.
func NewExtraCriterion(d Domain, opts Options, sameVisit bool) (*ExtraCriterion, error) {
	if err := checkShape(d, ExtraOnly); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, d.name)
	}
	return &ExtraCriterion{domain: d, options: opts, sameVisit: sameVisit}, nil
}

func (c *ExtraCriterion) Domain() Domain {
	return c.domain
}

func (c *ExtraCriterion) Options() Options {
	return c.options
}

func (c *ExtraCriterion) SameVisit() bool {
	return c.sameVisit
}

func (c *ExtraCriterion) Describe() []string {
	lines := []string{fmt.Sprintf("%s with the following criteria: ", c.domain.name)}
	lines = append(lines, c.options.Describe()...)
	if c.sameVisit {
		lines = append(lines, sameVisitLine)
	}
	return lines
}

func (*ExtraCriterion) criterion() {}

// ConceptExtraCriterion is a criterion on a concept set that can also be
// restricted to the same visit occurrence, e.g. a drug exposure.
type ConceptExtraCriterion struct {
	domain         Domain
	conceptSetName string
	hasConceptSet  bool
	options        Options
	sameVisit      bool
}

// NewConceptExtraCriterion creates a criterion of a ConceptExtra domain. cs
// may be nil in which case the description omits the concept set.
func NewConceptExtraCriterion(d Domain, cs ConceptSetRef, opts Options, sameVisit bool) (*ConceptExtraCriterion, error) {
	if err := checkShape(d, ConceptExtra); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, d.name)
	}
	name, ok := conceptSetName(cs)
	return &ConceptExtraCriterion{
		domain:         d,
		conceptSetName: name,
		hasConceptSet:  ok,
		options:        opts,
		sameVisit:      sameVisit,
	}, nil
}

func (c *ConceptExtraCriterion) Domain() Domain {
	return c.domain
}

func (c *ConceptExtraCriterion) ConceptSetName() (string, bool) {
	return c.conceptSetName, c.hasConceptSet
}

func (c *ConceptExtraCriterion) Options() Options {
	return c.options
}

func (c *ConceptExtraCriterion) SameVisit() bool {
	return c.sameVisit
}

func (c *ConceptExtraCriterion) Describe() []string {
	lines := []string{conceptClause(c.domain, c.conceptSetName, c.hasConceptSet)}
	lines = append(lines, c.options.Describe()...)
	if c.sameVisit {
		lines = append(lines, sameVisitLine)
	}
	return lines
}

func (*ConceptExtraCriterion) criterion() {}

// GroupCriterion nests a subgroup of criteria as a single criterion.
type GroupCriterion struct {
	group *SubgroupCriteria
}

// NewGroupCriterion wraps g. The group is owned by the criterion afterwards.
func NewGroupCriterion(g *SubgroupCriteria) (*GroupCriterion, error) {
	if g == nil {
		return nil, invalidf("group criterion requires a subgroup")
	}
	return &GroupCriterion{group: g}, nil
}

func (c *GroupCriterion) Domain() Domain {
	return GroupDomain
}

func (c *GroupCriterion) Group() *SubgroupCriteria {
	return c.group
}

func (c *GroupCriterion) Describe() []string {
	lines := []string{fmt.Sprintf("having %s of the following criteria:", c.group.Quantifier())}
	for _, child := range c.group.Criteria() {
		for _, line := range child.Describe() {
			lines = append(lines, "  "+strings.ReplaceAll(line, "\n", "\n  "))
		}
	}
	return lines
}

func (*GroupCriterion) criterion() {}

// isNilCriterion reports whether c is nil or a nil pointer to one of the
// criterion arms.
func isNilCriterion(c Criterion) bool {
	switch c := c.(type) {
	case nil:
		return true
	case *ConceptCriterion:
		return c == nil
	case *ExtraCriterion:
		return c == nil
	case *ConceptExtraCriterion:
		return c == nil
	case *GroupCriterion:
		return c == nil
	}
	return false
}

func checkShape(d Domain, want Shape) error {
	if d.name == "" {
		return invalidf("criterion requires a domain")
	}
	if d == GroupDomain {
		return invalidf("group criteria are created with NewGroupCriterion")
	}
	if d.shape != want {
		return invalidf("%s is a %s criterion, not %s", d.name, d.shape, want)
	}
	return nil
}
