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
	"slices"
)

// EventType is the kind of clinical event an entry or censoring event is
// defined on.
type EventType string

const (
	ConditionEraEvent        EventType = "condition era"
	ConditionOccurrenceEvent EventType = "condition occurrence"
	DeathEvent               EventType = "death occurrence"
	DeviceExposureEvent      EventType = "device exposure"
	DoseEraEvent             EventType = "dose era"
	DrugEraEvent             EventType = "drug era"
	DrugExposureEvent        EventType = "drug exposure"
	MeasurementEvent         EventType = "measurement"
	ObservationEvent         EventType = "observation"
	ObservationPeriodEvent   EventType = "observation period"
	PayerPlanPeriodEvent     EventType = "payer plan period"
	ProcedureOccurrenceEvent EventType = "procedure occurrence"
	SpecimenEvent            EventType = "specimen"
	VisitOccurrenceEvent     EventType = "visit occurrence"
	VisitDetailEvent         EventType = "visit detail"
)

// conceptEventTypes can reference a concept set.
var conceptEventTypes = []EventType{
	ConditionEraEvent, ConditionOccurrenceEvent, DeathEvent, DeviceExposureEvent,
	DoseEraEvent, DrugEraEvent, DrugExposureEvent, MeasurementEvent, ObservationEvent,
	ProcedureOccurrenceEvent, SpecimenEvent, VisitOccurrenceEvent, VisitDetailEvent,
}

// HasConceptSet reports whether events of type t reference a concept set.
func (t EventType) HasConceptSet() bool {
	return slices.Contains(conceptEventTypes, t)
}

// EntryEvent is an event that can start cohort membership. Implementations
// are NormalEntryEvent and SpecialEntryEvent.
type EntryEvent interface {
	EventType() EventType
	Article() string
	Describe() []string
	entryEvent()
}

// NormalEntryEvent is an entry event that may reference a concept set.
type NormalEntryEvent struct {
	eventType      EventType
	conceptSetName string
	hasConceptSet  bool
}

// NewEntryEvent creates an entry event of a concept set bearing type. cs may
// be nil.
func NewEntryEvent(t EventType, cs ConceptSetRef) (*NormalEntryEvent, error) {
	if !t.HasConceptSet() {
		return nil, invalidf("entry event %q does not take a concept set", t)
	}
	name, ok := conceptSetName(cs)
	return &NormalEntryEvent{eventType: t, conceptSetName: name, hasConceptSet: ok}, nil
}

func (e *NormalEntryEvent) EventType() EventType {
	return e.eventType
}

func (e *NormalEntryEvent) Article() string {
	return Article(string(e.eventType))
}

func (e *NormalEntryEvent) ConceptSetName() (string, bool) {
	return e.conceptSetName, e.hasConceptSet
}

func (e *NormalEntryEvent) Describe() []string {
	if !e.hasConceptSet {
		return []string{fmt.Sprintf("%s %s.", e.Article(), e.eventType)}
	}
	return []string{fmt.Sprintf("%s %s of: %s.", e.Article(), e.eventType, e.conceptSetName)}
}

func (*NormalEntryEvent) entryEvent() {}

// SpecialEntryEvent is an entry event that never has a concept set.
type SpecialEntryEvent struct {
	eventType EventType
}

func NewSpecialEntryEvent(t EventType) (*SpecialEntryEvent, error) {
	if t != ObservationPeriodEvent && t != PayerPlanPeriodEvent {
		return nil, invalidf("entry event %q is not an observation or payer plan period", t)
	}
	return &SpecialEntryEvent{eventType: t}, nil
}

func ObservationPeriodEntry() *SpecialEntryEvent {
	return &SpecialEntryEvent{eventType: ObservationPeriodEvent}
}

func PayerPlanPeriodEntry() *SpecialEntryEvent {
	return &SpecialEntryEvent{eventType: PayerPlanPeriodEvent}
}

func (e *SpecialEntryEvent) EventType() EventType {
	return e.eventType
}

func (e *SpecialEntryEvent) Article() string {
	return Article(string(e.eventType))
}

func (e *SpecialEntryEvent) Describe() []string {
	return []string{fmt.Sprintf("%s %s.", e.Article(), e.eventType)}
}

func (*SpecialEntryEvent) entryEvent() {}

func isNilEntryEvent(e EntryEvent) bool {
	switch e := e.(type) {
	case nil:
		return true
	case *NormalEntryEvent:
		return e == nil
	case *SpecialEntryEvent:
		return e == nil
	}
	return false
}

// EntryCriteriaConfig holds the settings of an EntryCriteria.
type EntryCriteriaConfig struct {
	Limit             EventLimit
	ObservationBefore Days
	ObservationAfter  Days

	// RestrictInitial enables the restriction sub-criteria.
	RestrictInitial bool
	// RestrictQuantifier defaults to QuantifierAll.
	RestrictQuantifier Quantifier
	// QualifyingLimit is the inclusion criteria limit and defaults to
	// EarliestEvent.
	QualifyingLimit EventLimit
}

// EntryCriteria qualifies which events start cohort membership.
type EntryCriteria struct {
	limit             EventLimit
	observationBefore Days
	observationAfter  Days
	restrictInitial   bool

	// both set iff restrictInitial
	criteriaList *SubgroupCriteria
	inclusion    *InclusionCriteria
}

// NewEntryCriteria validates cfg. If initial events are restricted, an empty
// subgroup and empty inclusion criteria are allocated for the caller to fill.
func NewEntryCriteria(cfg EntryCriteriaConfig) (*EntryCriteria, error) {
	if !cfg.Limit.Valid() {
		return nil, invalidf("entry criteria: unknown initial event limit %q", cfg.Limit)
	}
	if !cfg.ObservationBefore.Valid() {
		return nil, invalidf("entry criteria: continuous observation before index of %d days is not one of %v",
			cfg.ObservationBefore, ValidDays())
	}
	if !cfg.ObservationAfter.Valid() {
		return nil, invalidf("entry criteria: continuous observation after index of %d days is not one of %v",
			cfg.ObservationAfter, ValidDays())
	}
	ec := &EntryCriteria{
		limit:             cfg.Limit,
		observationBefore: cfg.ObservationBefore,
		observationAfter:  cfg.ObservationAfter,
		restrictInitial:   cfg.RestrictInitial,
	}
	if !cfg.RestrictInitial {
		return ec, nil
	}

	q := cfg.RestrictQuantifier
	if q == "" {
		q = QuantifierAll
	}
	criteriaList, err := NewSubgroupCriteria(q)
	if err != nil {
		return nil, err
	}
	limit := cfg.QualifyingLimit
	if limit == "" {
		limit = EarliestEvent
	}
	inclusion, err := NewInclusionCriteria(limit)
	if err != nil {
		return nil, err
	}
	ec.criteriaList = criteriaList
	ec.inclusion = inclusion
	return ec, nil
}

func (e *EntryCriteria) Limit() EventLimit {
	return e.limit
}

func (e *EntryCriteria) ObservationBefore() Days {
	return e.observationBefore
}

func (e *EntryCriteria) ObservationAfter() Days {
	return e.observationAfter
}

func (e *EntryCriteria) RestrictInitial() bool {
	return e.restrictInitial
}

// CriteriaList returns the subgroup restricting initial events. It fails
// with ErrRestrictionDisabled if initial events are not restricted.
func (e *EntryCriteria) CriteriaList() (*SubgroupCriteria, error) {
	if !e.restrictInitial {
		return nil, ErrRestrictionDisabled
	}
	return e.criteriaList, nil
}

// InclusionCriteria returns the inclusion rules. It fails with
// ErrRestrictionDisabled if initial events are not restricted.
func (e *EntryCriteria) InclusionCriteria() (*InclusionCriteria, error) {
	if !e.restrictInitial {
		return nil, ErrRestrictionDisabled
	}
	return e.inclusion, nil
}

// CohortEntryEvent combines the entry events with the criteria applied to
// them.
type CohortEntryEvent struct {
	events   []EntryEvent
	criteria *EntryCriteria
}

// NewCohortEntryEvent requires criteria. events may be empty.
func NewCohortEntryEvent(criteria *EntryCriteria, events ...EntryEvent) (*CohortEntryEvent, error) {
	if criteria == nil {
		return nil, invalidf("cohort entry event requires entry criteria")
	}
	for i, e := range events {
		if isNilEntryEvent(e) {
			return nil, invalidf("cohort entry event: entry event %d is nil", i+1)
		}
	}
	return &CohortEntryEvent{events: slices.Clone(events), criteria: criteria}, nil
}

func (c *CohortEntryEvent) EntryEvents() []EntryEvent {
	return slices.Clone(c.events)
}

func (c *CohortEntryEvent) EntryCriteria() *EntryCriteria {
	return c.criteria
}

// Lines returns the description line by line.
func (c *CohortEntryEvent) Lines() []string {
	var lines []string
	for _, e := range c.events {
		lines = append(lines, e.Describe()...)
	}

	ec := c.criteria
	lines = append(lines,
		fmt.Sprintf("With continuous observation of at least %d days before and %d days after event index date.",
			ec.observationBefore, ec.observationAfter),
		fmt.Sprintf("Limit initial events to: %s per person.", ec.limit))

	if ec.restrictInitial && ec.criteriaList != nil {
		lines = append(lines, fmt.Sprintf("Restrict initial events to: having %s of the following criteria:",
			ec.criteriaList.quantifier))
		for i, crit := range ec.criteriaList.criteria {
			lines = append(lines, fmt.Sprintf("  - Criterion %d (%s)", i+1, crit.Domain()))
		}
	}
	return lines
}

// Describe returns the newline joined description.
func (c *CohortEntryEvent) Describe() string {
	return JoinLines(c.Lines())
}
