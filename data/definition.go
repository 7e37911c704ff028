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

// Package data holds the YAML form of a cohort definition.
package data

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-yaml"
)

type ConceptSet struct {
	Name               string   `yaml:"name"`
	ConceptIDs         []int64  `yaml:"conceptIds"`
	ConceptNames       []string `yaml:"conceptNames"`
	IncludeDescendants bool     `yaml:"includeDescendants"`
}

// Options of a criterion. Empty fields keep the ATLAS defaults. Windows are
// either a number of days or the word "all".
type Options struct {
	Occurrence                    string `yaml:"occurrence"`
	Count                         *int   `yaml:"count"`
	Counting                      string `yaml:"counting"`
	DistinctBy                    string `yaml:"distinctBy"`
	EventTime                     string `yaml:"eventTime"`
	StartWindow                   any    `yaml:"startWindow"`
	StartRelation                 string `yaml:"startRelation"`
	EndWindow                     any    `yaml:"endWindow"`
	EndRelation                   string `yaml:"endRelation"`
	IndexPoint                    string `yaml:"indexPoint"`
	AllowOutsideObservationPeriod bool   `yaml:"allowOutsideObservationPeriod"`
}

// Criterion is either a domain criterion or a nested group.
type Criterion struct {
	Domain     string   `yaml:"domain"`
	ConceptSet string   `yaml:"conceptSet"`
	SameVisit  bool     `yaml:"sameVisit"`
	Options    *Options `yaml:"options"`
	Group      *Group   `yaml:"group"`
}

type Group struct {
	Having   string      `yaml:"having"`
	Criteria []Criterion `yaml:"criteria"`
}

type Rule struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Groups      []Group `yaml:"groups"`
}

type Inclusion struct {
	Limit string `yaml:"limit"`
	Rules []Rule `yaml:"rules"`
}

type Event struct {
	Type       string `yaml:"type"`
	ConceptSet string `yaml:"conceptSet"`
}

type Entry struct {
	Events            []Event    `yaml:"events"`
	Limit             string     `yaml:"limit"`
	ObservationBefore int        `yaml:"observationBefore"`
	ObservationAfter  int        `yaml:"observationAfter"`
	Restrict          *Group     `yaml:"restrict"`
	Inclusion         *Inclusion `yaml:"inclusion"`
}

type Persistence struct {
	Type               string `yaml:"type"`
	OffsetFrom         string `yaml:"offsetFrom"`
	OffsetDays         *int   `yaml:"offsetDays"`
	ConceptSet         string `yaml:"conceptSet"`
	PersistenceWindow  int    `yaml:"persistenceWindow"`
	SurveillanceWindow int    `yaml:"surveillanceWindow"`
	ForceDuration      bool   `yaml:"forceDuration"`
	DrugExposureWindow *int   `yaml:"drugExposureWindow"`
}

type Exit struct {
	Persistence Persistence `yaml:"persistence"`
	Censoring   []Event     `yaml:"censoring"`
}

type Definition struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	ConceptSets []ConceptSet `yaml:"conceptSets"`
	Entry       Entry        `yaml:"entry"`
	Exit        Exit         `yaml:"exit"`
}

// ReadDefinition reads a cohort definition from a YAML file. Unknown keys are
// rejected.
func ReadDefinition(filename string) (*Definition, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseDefinition(file)
}

func ParseDefinition(b []byte) (*Definition, error) {
	definition := Definition{}
	if err := yaml.UnmarshalWithOptions(b, &definition, yaml.DisallowUnknownField()); err != nil {
		return nil, errors.Wrap(err, "invalid cohort definition")
	}
	return &definition, nil
}
