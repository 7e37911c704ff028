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

package cmd

import (
	"context"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/samply/cohortctl/cohort"
	"github.com/samply/cohortctl/conceptset"
	"github.com/samply/cohortctl/data"
)

// CohortDefinition is a validated cohort definition ready to be described.
type CohortDefinition struct {
	Name        string
	Description string
	ConceptSets []*conceptset.ConceptSet
	Entry       *cohort.CohortEntryEvent
	// Inclusion is nil unless the document has inclusion rules.
	Inclusion *cohort.InclusionCriteria
	Exit      *cohort.CohortExitEvent
}

// Criteria returns the number of leaf criteria of the restriction and the
// inclusion rules.
func (d *CohortDefinition) Criteria() int {
	n := 0
	if list, err := d.Entry.EntryCriteria().CriteriaList(); err == nil {
		n += len(list.Leaves())
	}
	if d.Inclusion != nil {
		n += len(d.Inclusion.Leaves())
	}
	return n
}

// resolveFunc turns the concept set section of a document into a ConceptSet.
type resolveFunc func(ctx context.Context, cs data.ConceptSet) (*conceptset.ConceptSet, error)

// declareConceptSets resolves concept sets by name only.
func declareConceptSets(registry *conceptset.Registry) resolveFunc {
	return func(_ context.Context, cs data.ConceptSet) (*conceptset.ConceptSet, error) {
		return registry.Declare(cs.Name)
	}
}

// buildConceptSets resolves concept sets against the vocabulary.
func buildConceptSets(builder *conceptset.Builder) resolveFunc {
	return func(ctx context.Context, cs data.ConceptSet) (*conceptset.ConceptSet, error) {
		return builder.Build(ctx, conceptset.Spec{
			Name:               cs.Name,
			ConceptIDs:         cs.ConceptIDs,
			ConceptNames:       cs.ConceptNames,
			IncludeDescendants: cs.IncludeDescendants,
		})
	}
}

type definitionBuilder struct {
	conceptSets map[string]*conceptset.ConceptSet
}

func (b *definitionBuilder) conceptSet(name string) (cohort.ConceptSetRef, error) {
	if name == "" {
		return nil, nil
	}
	cs, ok := b.conceptSets[name]
	if !ok {
		return nil, errors.Newf("unknown concept set %q", name)
	}
	return cs, nil
}

// BuildDefinition builds the cohort described by d. Errors name the path of
// the offending element in the document.
func BuildDefinition(ctx context.Context, d *data.Definition, resolve resolveFunc) (*CohortDefinition, error) {
	b := &definitionBuilder{conceptSets: make(map[string]*conceptset.ConceptSet, len(d.ConceptSets))}
	definition := &CohortDefinition{Name: d.Name, Description: d.Description}

	for i, spec := range d.ConceptSets {
		if _, ok := b.conceptSets[spec.Name]; ok {
			return nil, errors.Newf("error in conceptSets[%d]: duplicate concept set %q", i, spec.Name)
		}
		cs, err := resolve(ctx, spec)
		if err != nil {
			return nil, errors.Wrapf(err, "error in conceptSets[%d]", i)
		}
		b.conceptSets[spec.Name] = cs
		definition.ConceptSets = append(definition.ConceptSets, cs)
	}

	entry, err := b.entry(d.Entry)
	if err != nil {
		return nil, errors.Wrap(err, "error in entry")
	}
	definition.Entry = entry
	if d.Entry.Inclusion != nil {
		if definition.Inclusion, err = entry.EntryCriteria().InclusionCriteria(); err != nil {
			return nil, err
		}
	}

	exit, err := b.exit(d.Exit)
	if err != nil {
		return nil, errors.Wrap(err, "error in exit")
	}
	definition.Exit = exit
	return definition, nil
}

func (b *definitionBuilder) entry(e data.Entry) (*cohort.CohortEntryEvent, error) {
	limit := cohort.EventLimit(e.Limit)
	if limit == "" {
		limit = cohort.EarliestEvent
	}
	cfg := cohort.EntryCriteriaConfig{
		Limit:             limit,
		ObservationBefore: cohort.Days(e.ObservationBefore),
		ObservationAfter:  cohort.Days(e.ObservationAfter),
		RestrictInitial:   e.Restrict != nil || e.Inclusion != nil,
	}
	if e.Restrict != nil {
		cfg.RestrictQuantifier = cohort.Quantifier(e.Restrict.Having)
	}
	if e.Inclusion != nil {
		cfg.QualifyingLimit = cohort.EventLimit(e.Inclusion.Limit)
	}
	criteria, err := cohort.NewEntryCriteria(cfg)
	if err != nil {
		return nil, err
	}

	if len(e.Events) == 0 {
		return nil, errors.New("missing events")
	}
	events := make([]cohort.EntryEvent, 0, len(e.Events))
	for i, ev := range e.Events {
		event, err := b.entryEvent(ev)
		if err != nil {
			return nil, errors.Wrapf(err, "events[%d]", i)
		}
		events = append(events, event)
	}

	if e.Restrict != nil {
		list, err := criteria.CriteriaList()
		if err != nil {
			return nil, err
		}
		if err := b.addCriteria(list, e.Restrict.Criteria); err != nil {
			return nil, errors.Wrap(err, "restrict")
		}
	}
	if e.Inclusion != nil {
		inclusion, err := criteria.InclusionCriteria()
		if err != nil {
			return nil, err
		}
		for i, rule := range e.Inclusion.Rules {
			if err := b.addRule(inclusion, rule); err != nil {
				return nil, errors.Wrapf(err, "inclusion: rules[%d]", i)
			}
		}
	}

	return cohort.NewCohortEntryEvent(criteria, events...)
}

func (b *definitionBuilder) entryEvent(ev data.Event) (cohort.EntryEvent, error) {
	t := cohort.EventType(ev.Type)
	if !t.HasConceptSet() {
		if ev.ConceptSet != "" {
			return nil, errors.Newf("%s events take no concept set", t)
		}
		return cohort.NewSpecialEntryEvent(t)
	}
	cs, err := b.conceptSet(ev.ConceptSet)
	if err != nil {
		return nil, err
	}
	return cohort.NewEntryEvent(t, cs)
}

func (b *definitionBuilder) addRule(inclusion *cohort.InclusionCriteria, rule data.Rule) error {
	if rule.Name == "" {
		return errors.New("missing rule name")
	}
	named := cohort.NewNamedGroupCriteria(rule.Name, rule.Description)
	for i, g := range rule.Groups {
		group, err := b.group(g)
		if err != nil {
			return errors.Wrapf(err, "groups[%d]", i)
		}
		if err := named.AddGroupCriteria(group); err != nil {
			return errors.Wrapf(err, "groups[%d]", i)
		}
	}
	return inclusion.AddNamedCriteria(named)
}

func (b *definitionBuilder) group(g data.Group) (*cohort.SubgroupCriteria, error) {
	q := cohort.Quantifier(g.Having)
	if q == "" {
		q = cohort.QuantifierAll
	}
	group, err := cohort.NewSubgroupCriteria(q)
	if err != nil {
		return nil, err
	}
	if err := b.addCriteria(group, g.Criteria); err != nil {
		return nil, err
	}
	return group, nil
}

func (b *definitionBuilder) addCriteria(group *cohort.SubgroupCriteria, criteria []data.Criterion) error {
	for i, c := range criteria {
		criterion, err := b.criterion(c)
		if err != nil {
			return errors.Wrapf(err, "criteria[%d]", i)
		}
		if err := group.AddCriterion(criterion); err != nil {
			return errors.Wrapf(err, "criteria[%d]", i)
		}
	}
	return nil
}

func (b *definitionBuilder) criterion(c data.Criterion) (cohort.Criterion, error) {
	if c.Group != nil {
		if c.Domain != "" || c.ConceptSet != "" || c.Options != nil {
			return nil, errors.New("a group criterion takes no domain, concept set or options")
		}
		group, err := b.group(*c.Group)
		if err != nil {
			return nil, errors.Wrap(err, "group")
		}
		return cohort.NewGroupCriterion(group)
	}

	domain, ok := cohort.LookupDomain(c.Domain)
	if !ok {
		return nil, errors.Newf("unknown domain %q", c.Domain)
	}
	opts, err := options(c.Options)
	if err != nil {
		return nil, errors.Wrap(err, "options")
	}

	switch domain.Shape() {
	case cohort.ConceptOnly:
		if c.SameVisit {
			return nil, errors.Newf("%s criteria can't be restricted to the same visit", domain)
		}
		cs, err := b.conceptSet(c.ConceptSet)
		if err != nil {
			return nil, err
		}
		return cohort.NewConceptCriterion(domain, cs, opts)
	case cohort.ExtraOnly:
		if c.ConceptSet != "" {
			return nil, errors.Newf("%s criteria take no concept set", domain)
		}
		return cohort.NewExtraCriterion(domain, opts, c.SameVisit)
	default:
		cs, err := b.conceptSet(c.ConceptSet)
		if err != nil {
			return nil, err
		}
		return cohort.NewConceptExtraCriterion(domain, cs, opts, c.SameVisit)
	}
}

// options overlays o onto the default options.
func options(o *data.Options) (cohort.Options, error) {
	opts := cohort.DefaultOptions()
	if o == nil {
		return opts, nil
	}
	if o.Occurrence != "" {
		opts.Occurrence = cohort.Occurrence(o.Occurrence)
	}
	if o.Count != nil {
		opts.Count = cohort.Count(*o.Count)
	}
	if o.Counting != "" {
		opts.Counting = cohort.Counting(o.Counting)
	}
	if o.DistinctBy != "" {
		opts.DistinctBy = cohort.DistinctBy(o.DistinctBy)
	}
	if o.EventTime != "" {
		opts.EventTime = cohort.EventTime(o.EventTime)
	}
	if o.StartRelation != "" {
		opts.StartRelation = cohort.Relation(o.StartRelation)
	}
	if o.EndRelation != "" {
		opts.EndRelation = cohort.Relation(o.EndRelation)
	}
	if o.IndexPoint != "" {
		opts.IndexPoint = cohort.IndexPoint(o.IndexPoint)
	}
	opts.AllowOutsideObservationPeriod = o.AllowOutsideObservationPeriod

	var err error
	if opts.StartWindow, err = window(o.StartWindow, opts.StartWindow); err != nil {
		return opts, errors.Wrap(err, "startWindow")
	}
	if opts.EndWindow, err = window(o.EndWindow, opts.EndWindow); err != nil {
		return opts, errors.Wrap(err, "endWindow")
	}
	return opts, nil
}

// window decodes a YAML window which is either "all" or a number of days.
func window(v any, def cohort.Window) (cohort.Window, error) {
	switch w := v.(type) {
	case nil:
		return def, nil
	case string:
		if w == "all" {
			return cohort.AllDays, nil
		}
	case int:
		return cohort.DaysWindow(cohort.Days(w)), nil
	case int64:
		return cohort.DaysWindow(cohort.Days(w)), nil
	case uint64:
		if w <= math.MaxInt32 {
			return cohort.DaysWindow(cohort.Days(w)), nil
		}
	case float64:
		if w == math.Trunc(w) && math.Abs(w) <= math.MaxInt32 {
			return cohort.DaysWindow(cohort.Days(w)), nil
		}
	}
	return def, errors.Newf("%v is neither \"all\" nor a number of days", v)
}

func (b *definitionBuilder) exit(e data.Exit) (*cohort.CohortExitEvent, error) {
	p, err := b.persistence(e.Persistence)
	if err != nil {
		return nil, errors.Wrap(err, "persistence")
	}
	censoring := make([]cohort.CensoringEvent, 0, len(e.Censoring))
	for i, ev := range e.Censoring {
		event, err := b.censoringEvent(ev)
		if err != nil {
			return nil, errors.Wrapf(err, "censoring[%d]", i)
		}
		censoring = append(censoring, event)
	}
	return cohort.NewCohortExitEvent(p, censoring...)
}

func (b *definitionBuilder) persistence(p data.Persistence) (cohort.EventPersistence, error) {
	switch p.Type {
	case "", cohort.EndOfContinuousObservation{}.PersistenceType():
		return cohort.EndOfContinuousObservation{}, nil
	case (*cohort.FixedDuration)(nil).PersistenceType():
		if p.OffsetDays == nil {
			return nil, errors.New("missing offsetDays")
		}
		return cohort.NewFixedDuration(cohort.OffsetAnchor(p.OffsetFrom), cohort.Days(*p.OffsetDays))
	case (*cohort.EndOfDrugExposure)(nil).PersistenceType():
		cs, err := b.conceptSet(p.ConceptSet)
		if err != nil {
			return nil, err
		}
		cfg := cohort.DrugExposureConfig{
			ConceptSet:         cs,
			PersistenceWindow:  cohort.Days(p.PersistenceWindow),
			SurveillanceWindow: cohort.Days(p.SurveillanceWindow),
			ForceDuration:      p.ForceDuration,
		}
		if p.DrugExposureWindow != nil {
			days := cohort.Days(*p.DrugExposureWindow)
			cfg.DrugExposureWindow = &days
		}
		return cohort.NewEndOfDrugExposure(cfg)
	default:
		return nil, errors.Newf("unknown persistence type %q", p.Type)
	}
}

func (b *definitionBuilder) censoringEvent(ev data.Event) (cohort.CensoringEvent, error) {
	t := cohort.EventType(ev.Type)
	if !t.HasConceptSet() {
		if ev.ConceptSet != "" {
			return nil, errors.Newf("%s events take no concept set", t)
		}
		return cohort.NewSpecialCensoringEvent(t)
	}
	cs, err := b.conceptSet(ev.ConceptSet)
	if err != nil {
		return nil, err
	}
	return cohort.NewCensoringEvent(t, cs)
}
