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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/samply/cohortctl/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const t2dmDescription = `Type 2 diabetes on metformin
New users of metformin with a prior type 2 diabetes diagnosis.

Concept Sets
1. Type 2 diabetes
2. Metformin
3. Insulin

Cohort Entry Events
a drug exposure of: Metformin.
With continuous observation of at least 365 days before and 0 days after event index date.
Limit initial events to: earliest event per person.
Restrict initial events to: having all of the following criteria:
  - Criterion 1 (condition occurrence)

Inclusion Criteria
Limit qualifying events to: earliest event per person.
1. No prior insulin
   Exclude persons already treated with insulin.
   having all of the following criteria:
     a drug exposure of Insulin
     with exactly 0 using all occurrences of:
     where event starts between
     365 days before and 1 days before index start date

Cohort Exit
Event will persist until: end of a continuous drug exposure
Concept set containing the drug(s) of interest: Metformin
Persistence window: allow for a maximum of 30 days between exposure records when inferring the era of persistence exposure
Surveillance window: add 0 days to the end of the era of persistence exposure as an additional period of surveillance prior to cohort exit.
Use days supply and exposure end date for exposure duration.
Exit Cohort based on the following criteria:
a death occurrence
`

func TestDescribeFile(t *testing.T) {
	description, definition, err := describeFile(context.Background(), t2dmDefinition)
	require.NoError(t, err)

	assert.Equal(t, t2dmDescription, description)
	assert.Equal(t, "Type 2 diabetes on metformin", definition.Name)
}

func TestRenderDescription_Minimal(t *testing.T) {
	definition, err := buildYaml(t, `
name: Observed persons
entry:
  events:
    - type: observation period
`)
	require.NoError(t, err)

	builder := strings.Builder{}
	require.NoError(t, RenderDescription(&builder, definition))
	assert.Equal(t, `Observed persons

Cohort Entry Events
an observation period.
With continuous observation of at least 0 days before and 0 days after event index date.
Limit initial events to: earliest event per person.

Cohort Exit
Event will persist until: end of continuous observation
`, builder.String())
}

func TestDescribeCmd(t *testing.T) {
	t.Run("stdout", func(t *testing.T) {
		stdout, _, err := execute(t, "describe", t2dmDefinition)
		require.NoError(t, err)
		assert.Equal(t, t2dmDescription, stdout)
	})

	t.Run("two files are separated by a blank line", func(t *testing.T) {
		stdout, _, err := execute(t, "describe", "--no-progress", t2dmDefinition, t2dmDefinition)
		require.NoError(t, err)
		assert.Equal(t, t2dmDescription+"\n"+t2dmDescription, stdout)
	})

	t.Run("output file and stats", func(t *testing.T) {
		output := filepath.Join(t.TempDir(), "description.txt")

		stdout, stderr, err := execute(t, "describe", "--no-progress", "--stats", "-o", output, t2dmDefinition)
		require.NoError(t, err)

		assert.Empty(t, stdout)
		content, err := os.ReadFile(output)
		require.NoError(t, err)
		assert.Equal(t, t2dmDescription, string(content))
		assert.Contains(t, stderr, "Definitions  : 1\n")
		assert.Contains(t, stderr, "Criteria     : min 2, mean 2.00, median 2, max 2\n")
		assert.Contains(t, stderr, "Concept Sets : min 3, mean 3.00, median 3, max 3\n")
	})

	t.Run("existing output file", func(t *testing.T) {
		output := filepath.Join(t.TempDir(), "description.txt")
		require.NoError(t, os.WriteFile(output, []byte("keep"), 0644))

		_, _, err := execute(t, "describe", "-o", output, t2dmDefinition)
		assert.True(t, errors.Is(err, util.ErrOutputFileExists))
	})

	t.Run("invalid definition names the file", func(t *testing.T) {
		_, _, err := execute(t, "describe", "--no-progress", t2dmDefinition, "../data/testdata/invalid.yaml")
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), "../data/testdata/invalid.yaml: error in entry"))
	})

	t.Run("missing argument", func(t *testing.T) {
		_, _, err := execute(t, "describe")
		assert.Error(t, err)
	})
}

func TestFmtDescriptionStatistics(t *testing.T) {
	statistics := util.CalculateDescriptionStatistics([]float64{10, 20}, []float64{1, 3}, []float64{0, 2})
	assert.Equal(t, `Definitions  : 2
Lines        : min 10, mean 15.00, median 10, max 20
Criteria     : min 1, mean 2.00, median 1, max 3
Concept Sets : min 0, mean 1.00, median 0, max 2
Written      : 2.00 KiB
Duration     : 5ms
`, fmtDescriptionStatistics(statistics, 2048, 5000000))
}
