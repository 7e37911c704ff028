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

package util

import (
	"testing"

	fm "github.com/samply/golang-fhir-models/fhir-models/fhir"
	"github.com/stretchr/testify/assert"
)

func TestServerError(t *testing.T) {
	text := "text-133546"
	diagnostics := "diagnostics-131023"

	t.Run("Empty", func(t *testing.T) {
		err := &ServerError{StatusCode: 400, OperationOutcome: &fm.OperationOutcome{}}
		assert.Equal(t, "StatusCode  : 400\n", err.Error())
	})

	t.Run("WithOneIssue", func(t *testing.T) {
		err := &ServerError{
			StatusCode:       400,
			OperationOutcome: &fm.OperationOutcome{Issue: []fm.OperationOutcomeIssue{{}}},
		}
		assert.Equal(t, `StatusCode  : 400
Severity    : Fatal
Code        : Content invalid against the specification or a profile.
`, err.Error())
	})

	t.Run("WithDetailsAndDiagnostics", func(t *testing.T) {
		err := &ServerError{
			StatusCode: 422,
			OperationOutcome: &fm.OperationOutcome{
				Issue: []fm.OperationOutcomeIssue{{
					Details:     &fm.CodeableConcept{Text: &text},
					Diagnostics: &diagnostics,
				}},
			},
		}
		assert.Equal(t, `StatusCode  : 422
Severity    : Fatal
Code        : Content invalid against the specification or a profile.
Details     : text-133546
Diagnostics : diagnostics-131023
`, err.Error())
	})

	t.Run("WithTwoExpressions", func(t *testing.T) {
		err := &ServerError{
			StatusCode: 400,
			OperationOutcome: &fm.OperationOutcome{
				Issue: []fm.OperationOutcomeIssue{{Expression: []string{"Library.url", "Library.status"}}},
			},
		}
		assert.Equal(t, `StatusCode  : 400
Severity    : Fatal
Code        : Content invalid against the specification or a profile.
Expression  : Library.url, Library.status
`, err.Error())
	})

	t.Run("WithBody", func(t *testing.T) {
		err := &ServerError{StatusCode: 502, Body: "Bad Gateway\nupstream down"}
		assert.Equal(t, "StatusCode  : 502\nBody        : Bad Gateway\n              upstream down\n", err.Error())
	})
}

func TestFmtOperationOutcomes(t *testing.T) {
	t.Run("TwoOutcomes", func(t *testing.T) {
		outcome := &fm.OperationOutcome{Issue: []fm.OperationOutcomeIssue{{}}}
		assert.Equal(t, `Severity    : Fatal
Code        : Content invalid against the specification or a profile.
---
Severity    : Fatal
Code        : Content invalid against the specification or a profile.
`, FmtOperationOutcomes([]*fm.OperationOutcome{outcome, outcome}))
	})

	t.Run("TwoIssues", func(t *testing.T) {
		outcome := &fm.OperationOutcome{Issue: []fm.OperationOutcomeIssue{{}, {}}}
		assert.Equal(t, `Severity    : Fatal
Code        : Content invalid against the specification or a profile.
---
Severity    : Fatal
Code        : Content invalid against the specification or a profile.
`, FmtOperationOutcomes([]*fm.OperationOutcome{outcome}))
	})
}

func TestIndent(t *testing.T) {
	assert.Equal(t, "  a\n  b", Indent(2, "a\nb"))
	assert.Equal(t, "a\n  b", IndentExceptFirstLine(2, "a\nb"))
}
