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
	"fmt"
	"strings"
	"text/template"

	fm "github.com/samply/golang-fhir-models/fhir-models/fhir"
)

// ServerError represents an unsuccessful response of a FHIR server.
type ServerError struct {
	StatusCode       int
	OperationOutcome *fm.OperationOutcome
	// Body holds the raw response if it was no OperationOutcome.
	Body string
}

func (e *ServerError) Error() string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("StatusCode  : %d\n", e.StatusCode))
	if e.OperationOutcome != nil {
		builder.WriteString(FmtOperationOutcomes([]*fm.OperationOutcome{e.OperationOutcome}))
	}
	if len(e.Body) > 0 {
		builder.WriteString(fmt.Sprintf("Body        : %s\n", IndentExceptFirstLine(14, e.Body)))
	}
	return builder.String()
}

var outcomeTemplate = template.Must(template.New("outcomes").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(`{{ define "issue" -}}
Severity    : {{ .Severity.Display }}
Code        : {{ .Code.Definition }}
{{ with .Details -}}
{{ with .Text -}}
Details     : {{ . }}
{{ end -}}
{{ end -}}
{{ with .Diagnostics -}}
Diagnostics : {{ . }}
{{ end -}}
{{ with .Expression -}}
Expression  : {{ join . ", " }}
{{ end -}}
{{ end -}}

{{ range $index, $outcome := . -}}
{{ range $i, $issue := $outcome.Issue -}}
{{ if or $index $i }}---
{{ end -}}
{{ template "issue" $issue -}}
{{ end -}}
{{ end -}}
`))

// FmtOperationOutcomes renders the issues of all outcomes separated by dashes.
func FmtOperationOutcomes(outcomes []*fm.OperationOutcome) string {
	builder := strings.Builder{}
	if err := outcomeTemplate.Execute(&builder, outcomes); err != nil {
		return err.Error()
	}
	return builder.String()
}

// Indent prefixes every line of v with the given number of spaces.
func Indent(spaces int, v string) string {
	pad := strings.Repeat(" ", spaces)
	return pad + IndentExceptFirstLine(spaces, v)
}

func IndentExceptFirstLine(spaces int, v string) string {
	pad := strings.Repeat(" ", spaces)
	return strings.ReplaceAll(v, "\n", "\n"+pad)
}
