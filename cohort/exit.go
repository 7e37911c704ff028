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

// EventPersistence tells how long cohort membership lasts after entry.
// Implementations are EndOfContinuousObservation, FixedDuration and
// EndOfDrugExposure.
type EventPersistence interface {
	PersistenceType() string
	Describe() []string
	persistence()
}

func persistenceHeader(p EventPersistence) string {
	return "Event will persist until: " + p.PersistenceType()
}

// EndOfContinuousObservation keeps persons in the cohort until their
// observation period ends.
type EndOfContinuousObservation struct{}

func (EndOfContinuousObservation) PersistenceType() string {
	return "end of continuous observation"
}

func (p EndOfContinuousObservation) Describe() []string {
	return []string{persistenceHeader(p)}
}

func (EndOfContinuousObservation) persistence() {}

// OffsetAnchor is the date of the initial event a fixed duration is counted
// from.
type OffsetAnchor string

const (
	OffsetStartDate OffsetAnchor = "start date"
	OffsetEndDate   OffsetAnchor = "end date"
)

func (a OffsetAnchor) Valid() bool {
	return a == OffsetStartDate || a == OffsetEndDate
}

// FixedDuration keeps persons in the cohort for a number of days relative to
// the initial event.
type FixedDuration struct {
	offsetFrom OffsetAnchor
	offsetDays Days
}

func NewFixedDuration(from OffsetAnchor, days Days) (*FixedDuration, error) {
	if !from.Valid() {
		return nil, invalidf("FIXED_DURATION requires offset_from to be %q or %q, got %q",
			OffsetStartDate, OffsetEndDate, from)
	}
	if !days.Valid() {
		return nil, invalidf("FIXED_DURATION requires offset_days to be one of %v, got %d", ValidDays(), days)
	}
	return &FixedDuration{offsetFrom: from, offsetDays: days}, nil
}

func (*FixedDuration) PersistenceType() string {
	return "fixed duration relative to initial event"
}

func (p *FixedDuration) OffsetFrom() OffsetAnchor {
	return p.offsetFrom
}

func (p *FixedDuration) OffsetDays() Days {
	return p.offsetDays
}

func (p *FixedDuration) Describe() []string {
	return []string{
		persistenceHeader(p),
		fmt.Sprintf("Offset from: %s", p.offsetFrom),
		fmt.Sprintf("Number of days offset: %d days", p.offsetDays),
	}
}

func (*FixedDuration) persistence() {}

// DrugExposureConfig holds the settings of an EndOfDrugExposure persistence.
type DrugExposureConfig struct {
	// ConceptSet contains the drugs of interest and is required.
	ConceptSet ConceptSetRef
	// PersistenceWindow is the maximum gap in days between exposure records
	// of one era.
	PersistenceWindow Days
	// SurveillanceWindow is added to the end of the era.
	SurveillanceWindow Days
	// ForceDuration replaces the days supply of each record with
	// DrugExposureWindow, which is then required.
	ForceDuration      bool
	DrugExposureWindow *Days
}

// EndOfDrugExposure keeps persons in the cohort until the end of a
// continuous drug exposure.
type EndOfDrugExposure struct {
	drugConceptSetName string
	persistenceWindow  Days
	surveillanceWindow Days
	forceDuration      bool
	drugExposureWindow Days
}

func NewEndOfDrugExposure(cfg DrugExposureConfig) (*EndOfDrugExposure, error) {
	name, ok := conceptSetName(cfg.ConceptSet)
	if !ok {
		return nil, invalidf("END_OF_DRUG_EXPOSURE requires a named drug_concept_set")
	}
	if !cfg.PersistenceWindow.Valid() {
		return nil, invalidf("END_OF_DRUG_EXPOSURE requires persistence_window to be one of %v, got %d",
			ValidDays(), cfg.PersistenceWindow)
	}
	if !cfg.SurveillanceWindow.Valid() {
		return nil, invalidf("END_OF_DRUG_EXPOSURE requires surveillance_window to be one of %v, got %d",
			ValidDays(), cfg.SurveillanceWindow)
	}
	p := &EndOfDrugExposure{
		drugConceptSetName: name,
		persistenceWindow:  cfg.PersistenceWindow,
		surveillanceWindow: cfg.SurveillanceWindow,
		forceDuration:      cfg.ForceDuration,
	}
	if cfg.ForceDuration {
		if cfg.DrugExposureWindow == nil {
			return nil, invalidf("END_OF_DRUG_EXPOSURE requires drug_exposure_window when force_duration is true")
		}
		if !cfg.DrugExposureWindow.Valid() {
			return nil, invalidf("END_OF_DRUG_EXPOSURE requires drug_exposure_window to be one of %v, got %d",
				ValidDays(), *cfg.DrugExposureWindow)
		}
		p.drugExposureWindow = *cfg.DrugExposureWindow
	}
	return p, nil
}

func (*EndOfDrugExposure) PersistenceType() string {
	return "end of a continuous drug exposure"
}

func (p *EndOfDrugExposure) DrugConceptSetName() string {
	return p.drugConceptSetName
}

func (p *EndOfDrugExposure) Describe() []string {
	lines := []string{
		persistenceHeader(p),
		fmt.Sprintf("Concept set containing the drug(s) of interest: %s", p.drugConceptSetName),
		fmt.Sprintf("Persistence window: allow for a maximum of %d days between exposure records "+
			"when inferring the era of persistence exposure", p.persistenceWindow),
		fmt.Sprintf("Surveillance window: add %d days to the end of the era of persistence exposure "+
			"as an additional period of surveillance prior to cohort exit.", p.surveillanceWindow),
	}
	if p.forceDuration {
		lines = append(lines, fmt.Sprintf("Force drug exposure days supply to: %d days.", p.drugExposureWindow))
	} else {
		lines = append(lines, "Use days supply and exposure end date for exposure duration.")
	}
	return lines
}

func (*EndOfDrugExposure) persistence() {}

// isNilPersistence reports whether p is nil or a nil pointer to one of the
// persistence arms.
func isNilPersistence(p EventPersistence) bool {
	switch p := p.(type) {
	case nil:
		return true
	case *EndOfContinuousObservation:
		return p == nil
	case *FixedDuration:
		return p == nil
	case *EndOfDrugExposure:
		return p == nil
	}
	return false
}

// CensoringHeader introduces the censoring events of a cohort. Censoring
// events describe themselves without it; renderers print it once above them.
const CensoringHeader = "Exit Cohort based on the following criteria:"

// CensoringEvent is an event that ends cohort membership regardless of the
// persistence rule. Implementations are NormalCensoringEvent and
// SpecialCensoringEvent.
type CensoringEvent interface {
	EventType() EventType
	Article() string
	Describe() []string
	censoringEvent()
}

// NormalCensoringEvent is a censoring event on a concept set.
type NormalCensoringEvent struct {
	eventType      EventType
	conceptSetName string
	hasConceptSet  bool
}

func NewCensoringEvent(t EventType, cs ConceptSetRef) (*NormalCensoringEvent, error) {
	if !t.HasConceptSet() {
		return nil, invalidf("censoring event %q does not take a concept set", t)
	}
	name, ok := conceptSetName(cs)
	return &NormalCensoringEvent{eventType: t, conceptSetName: name, hasConceptSet: ok}, nil
}

func (e *NormalCensoringEvent) EventType() EventType {
	return e.eventType
}

func (e *NormalCensoringEvent) Article() string {
	return Article(string(e.eventType))
}

func (e *NormalCensoringEvent) ConceptSetName() (string, bool) {
	return e.conceptSetName, e.hasConceptSet
}

func (e *NormalCensoringEvent) Describe() []string {
	if !e.hasConceptSet {
		return []string{fmt.Sprintf("%s %s", e.Article(), e.eventType)}
	}
	return []string{fmt.Sprintf("%s %s of %s", e.Article(), e.eventType, e.conceptSetName)}
}

func (*NormalCensoringEvent) censoringEvent() {}

// SpecialCensoringEvent is a censoring event without concept set. The only
// one ATLAS offers is the payer plan period.
type SpecialCensoringEvent struct {
	eventType EventType
}

func PayerPlanPeriodExit() *SpecialCensoringEvent {
	return &SpecialCensoringEvent{eventType: PayerPlanPeriodEvent}
}

func NewSpecialCensoringEvent(t EventType) (*SpecialCensoringEvent, error) {
	if t != PayerPlanPeriodEvent {
		return nil, invalidf("censoring event %q is not a payer plan period", t)
	}
	return PayerPlanPeriodExit(), nil
}

func (e *SpecialCensoringEvent) EventType() EventType {
	return e.eventType
}

func (e *SpecialCensoringEvent) Article() string {
	return Article(string(e.eventType))
}

func (e *SpecialCensoringEvent) Describe() []string {
	return []string{fmt.Sprintf("%s %s", e.Article(), e.eventType)}
}

func (*SpecialCensoringEvent) censoringEvent() {}

func isNilCensoringEvent(c CensoringEvent) bool {
	switch c := c.(type) {
	case nil:
		return true
	case *NormalCensoringEvent:
		return c == nil
	case *SpecialCensoringEvent:
		return c == nil
	}
	return false
}

// CohortExitEvent combines the persistence rule with the censoring events.
type CohortExitEvent struct {
	persistence EventPersistence
	censoring   []CensoringEvent
}

func NewCohortExitEvent(p EventPersistence, censoring ...CensoringEvent) (*CohortExitEvent, error) {
	if isNilPersistence(p) {
		return nil, invalidf("cohort exit event requires an event persistence")
	}
	for i, c := range censoring {
		if isNilCensoringEvent(c) {
			return nil, invalidf("cohort exit event: censoring event %d is nil", i+1)
		}
	}
	return &CohortExitEvent{persistence: p, censoring: slices.Clone(censoring)}, nil
}

func (c *CohortExitEvent) EventPersistence() EventPersistence {
	return c.persistence
}

func (c *CohortExitEvent) CensoringEvents() []CensoringEvent {
	return slices.Clone(c.censoring)
}

// Describe returns the persistence lines followed by one line per censoring
// event.
func (c *CohortExitEvent) Describe() []string {
	lines := c.persistence.Describe()
	for _, ce := range c.censoring {
		lines = append(lines, ce.Describe()...)
	}
	return lines
}
