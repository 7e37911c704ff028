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
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInclusionCriteria_Leaves(t *testing.T) {
	const n, m, k = 3, 2, 4

	inclusion, err := NewInclusionCriteria(LatestEvent)
	require.NoError(t, err)

	var want []Criterion
	for i := 0; i < n; i++ {
		named := NewNamedGroupCriteria(fmt.Sprintf("rule %d", i), "")
		for j := 0; j < m; j++ {
			sub, err := NewSubgroupCriteria(QuantifierAll)
			require.NoError(t, err)
			for l := 0; l < k; l++ {
				c, err := NewConceptCriterion(ConditionEraDomain, conceptSet(fmt.Sprintf("%d-%d-%d", i, j, l)), DefaultOptions())
				require.NoError(t, err)
				require.NoError(t, sub.AddCriterion(c))
				want = append(want, c)
			}
			require.NoError(t, named.AddGroupCriteria(sub))
		}
		require.NoError(t, inclusion.AddNamedCriteria(named))
	}

	leaves := inclusion.Leaves()
	assert.Len(t, leaves, n*m*k)
	assert.Equal(t, want, leaves)

	var walked []Criterion
	for _, named := range inclusion.NamedCriteria() {
		for _, sub := range named.GroupCriteria() {
			walked = append(walked, sub.Criteria()...)
		}
	}
	assert.Equal(t, want, walked)
	assert.Equal(t, LatestEvent, inclusion.Limit())
}

func TestSubgroupCriteria(t *testing.T) {
	t.Run("invalid quantifier", func(t *testing.T) {
		_, err := NewSubgroupCriteria("most")
		assert.True(t, errors.Is(err, ErrInvalidConfiguration))
	})

	t.Run("nil criterion", func(t *testing.T) {
		sub, err := NewSubgroupCriteria(QuantifierAtMost)
		require.NoError(t, err)
		assert.Error(t, sub.AddCriterion(nil))
		assert.Error(t, sub.AddCriterion((*ConceptCriterion)(nil)))
		assert.Error(t, sub.AddCriterion((*GroupCriterion)(nil)))
		assert.Empty(t, sub.Leaves())
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		sub, err := NewSubgroupCriteria(QuantifierAtLeast)
		require.NoError(t, err)
		c, err := NewExtraCriterion(ObservationPeriodDomain, DefaultOptions(), false)
		require.NoError(t, err)
		require.NoError(t, sub.AddCriterion(c))

		criteria := sub.Criteria()
		criteria[0] = nil
		assert.NotNil(t, sub.Criteria()[0])
	})
}

func TestNamedGroupCriteria(t *testing.T) {
	named := NewNamedGroupCriteria("Group 1", "Patients with Diabetes and ER Visits")
	assert.Equal(t, "Group 1", named.Name())
	assert.Equal(t, "Patients with Diabetes and ER Visits", named.Description())
	assert.Error(t, named.AddGroupCriteria(nil))
	assert.Empty(t, named.GroupCriteria())
}

func TestInclusionCriteria_Invalid(t *testing.T) {
	_, err := NewInclusionCriteria("first event")
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))

	inclusion, err := NewInclusionCriteria(EarliestEvent)
	require.NoError(t, err)
	assert.Error(t, inclusion.AddNamedCriteria(nil))
}
