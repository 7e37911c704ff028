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
	"strconv"
)

// Days is a number of days as offered by the ATLAS day pickers.
type Days int

var validDays = []Days{0, 1, 7, 14, 21, 30, 60, 90, 120, 180, 365, 548, 730, 1095}

// Valid reports whether d is one of the day counts ATLAS offers.
func (d Days) Valid() bool {
	return slices.Contains(validDays, d)
}

// ValidDays returns the day counts ATLAS offers in ascending order.
func ValidDays() []Days {
	return slices.Clone(validDays)
}

// Window is one side of a time window relative to the index date. It is
// either a number of days or the sentinel AllDays.
type Window struct {
	all  bool
	days Days
}

// AllDays is the unbounded window rendered as "all".
var AllDays = Window{all: true}

// DaysWindow returns a window of d days.
func DaysWindow(d Days) Window {
	return Window{days: d}
}

// IsAll reports whether w is the AllDays sentinel.
func (w Window) IsAll() bool {
	return w.all
}

// Days returns the number of days of a bounded window.
func (w Window) Days() Days {
	return w.days
}

func (w Window) Valid() bool {
	return w.all || w.days.Valid()
}

func (w Window) String() string {
	if w.all {
		return "all"
	}
	return strconv.Itoa(int(w.days))
}

// Count is the number of occurrences a criterion asks for.
type Count int

var validCounts = []Count{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 20, 50, 100}

func (c Count) Valid() bool {
	return slices.Contains(validCounts, c)
}

type Occurrence string

const (
	OccurrenceAtLeast Occurrence = "at least"
	OccurrenceExactly Occurrence = "exactly"
	OccurrenceAtMost  Occurrence = "at most"
)

func (o Occurrence) Valid() bool {
	switch o {
	case OccurrenceAtLeast, OccurrenceExactly, OccurrenceAtMost:
		return true
	}
	return false
}

type Counting string

const (
	UsingAll      Counting = "using all"
	UsingDistinct Counting = "using distinct"
)

func (c Counting) Valid() bool {
	return c == UsingAll || c == UsingDistinct
}

// DistinctBy is only meaningful when counting UsingDistinct.
type DistinctBy string

const (
	DistinctStandardConcept DistinctBy = "Standard Concept"
	DistinctStartDate       DistinctBy = "Start Date"
)

func (d DistinctBy) Valid() bool {
	return d == DistinctStandardConcept || d == DistinctStartDate
}

type EventTime string

const (
	EventStarts EventTime = "event starts"
	EventEnds   EventTime = "event ends"
)

func (e EventTime) Valid() bool {
	return e == EventStarts || e == EventEnds
}

type Relation string

const (
	Before Relation = "before"
	After  Relation = "after"
)

func (r Relation) Valid() bool {
	return r == Before || r == After
}

type IndexPoint string

const (
	IndexStartDate IndexPoint = "index start date"
	IndexEndDate   IndexPoint = "index end date"
)

func (p IndexPoint) Valid() bool {
	return p == IndexStartDate || p == IndexEndDate
}

// Options is the counting and temporal block shared by most criteria.
type Options struct {
	Occurrence Occurrence
	Count      Count
	Counting   Counting
	DistinctBy DistinctBy
	EventTime  EventTime

	StartWindow   Window
	StartRelation Relation
	EndWindow     Window
	EndRelation   Relation
	IndexPoint    IndexPoint

	AllowOutsideObservationPeriod bool
}

// DefaultOptions returns the options ATLAS preselects for a new criterion:
// at least 1 occurrence of all events starting at any time around the index
// start date.
func DefaultOptions() Options {
	return Options{
		Occurrence:    OccurrenceAtLeast,
		Count:         1,
		Counting:      UsingAll,
		DistinctBy:    DistinctStandardConcept,
		EventTime:     EventStarts,
		StartWindow:   AllDays,
		StartRelation: Before,
		EndWindow:     AllDays,
		EndRelation:   After,
		IndexPoint:    IndexStartDate,
	}
}

// Validate checks every field against the values ATLAS allows.
func (o Options) Validate() error {
	if !o.Occurrence.Valid() {
		return invalidf("options: unknown occurrence qualifier %q", o.Occurrence)
	}
	if !o.Count.Valid() {
		return invalidf("options: occurrence count %d is not one of %v", o.Count, validCounts)
	}
	if !o.Counting.Valid() {
		return invalidf("options: unknown counting mode %q", o.Counting)
	}
	if o.Counting == UsingDistinct && !o.DistinctBy.Valid() {
		return invalidf("options: counting %q requires distinct_by to be %q or %q",
			UsingDistinct, DistinctStandardConcept, DistinctStartDate)
	}
	if !o.EventTime.Valid() {
		return invalidf("options: unknown temporal anchor %q", o.EventTime)
	}
	if !o.StartWindow.Valid() || !o.EndWindow.Valid() {
		return invalidf("options: window days must be \"all\" or one of %v", ValidDays())
	}
	if !o.StartRelation.Valid() || !o.EndRelation.Valid() {
		return invalidf("options: window relation must be %q or %q", Before, After)
	}
	if !o.IndexPoint.Valid() {
		return invalidf("options: unknown index date point %q", o.IndexPoint)
	}
	return nil
}

// Describe renders the occurrence clause, the temporal clause and, if
// allowed, the observation period line.
func (o Options) Describe() []string {
	lines := make([]string, 0, 3)
	if o.Counting == UsingAll {
		lines = append(lines, fmt.Sprintf("with %s %d %s occurrences of:", o.Occurrence, o.Count, o.Counting))
	} else {
		lines = append(lines, fmt.Sprintf("with %s %d %s %s:", o.Occurrence, o.Count, o.Counting, o.DistinctBy))
	}
	lines = append(lines, fmt.Sprintf("where %s between\n%s days %s and %s days %s %s",
		o.EventTime, o.StartWindow, o.StartRelation, o.EndWindow, o.EndRelation, o.IndexPoint))
	if o.AllowOutsideObservationPeriod {
		lines = append(lines, "allow events from outside observation period")
	}
	return lines
}
