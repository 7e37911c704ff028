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

// Package cohort models ATLAS-style cohort definitions: entry events, criteria
// used to restrict them, and the rules that end cohort membership. Every
// composite renders itself into the human-readable lines ATLAS shows for a
// cohort definition.
//
// All types are built through constructors that validate their fields and are
// immutable afterwards, except for the grouping containers which are
// append-only.
package cohort

import (
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
)

// ErrInvalidConfiguration marks every error returned by a constructor of this
// package because a field or a combination of fields is not valid.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ErrRestrictionDisabled is returned when the restriction sub-criteria of an
// EntryCriteria are requested although initial events are not restricted.
var ErrRestrictionDisabled = errors.New("initial event restriction is disabled")

func invalidf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidConfiguration)
}

// ConceptSetRef is the only view the engine has on a concept set: its display
// name. A nil ref or a ref with an empty name counts as no concept set.
type ConceptSetRef interface {
	Name() string
}

// conceptSetName derives the display name once, at construction.
func conceptSetName(cs ConceptSetRef) (string, bool) {
	if cs == nil {
		return "", false
	}
	name := cs.Name()
	if name == "" {
		return "", false
	}
	return name, true
}

// Article returns "an" if s starts with a vowel and "a" otherwise.
func Article(s string) string {
	for _, r := range s {
		switch unicode.ToLower(r) {
		case 'a', 'e', 'i', 'o', 'u':
			return "an"
		}
		return "a"
	}
	return "a"
}

// JoinLines joins description lines the way the aggregate descriptions do.
func JoinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
