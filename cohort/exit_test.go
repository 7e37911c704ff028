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
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func days(d Days) *Days {
	return &d
}

func TestFixedDuration(t *testing.T) {
	p, err := NewFixedDuration(OffsetStartDate, 30)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Event will persist until: fixed duration relative to initial event",
		"Offset from: start date",
		"Number of days offset: 30 days",
	}, p.Describe())

	t.Run("missing offset from", func(t *testing.T) {
		_, err := NewFixedDuration("", 30)
		assert.True(t, errors.Is(err, ErrInvalidConfiguration))
	})

	t.Run("invalid offset days", func(t *testing.T) {
		_, err := NewFixedDuration(OffsetEndDate, 31)
		assert.True(t, errors.Is(err, ErrInvalidConfiguration))
	})
}

func TestEndOfDrugExposure(t *testing.T) {
	t.Run("forced duration", func(t *testing.T) {
		p, err := NewEndOfDrugExposure(DrugExposureConfig{
			ConceptSet:         conceptSet("Ibuprofen"),
			PersistenceWindow:  21,
			SurveillanceWindow: 60,
			ForceDuration:      true,
			DrugExposureWindow: days(7),
		})
		require.NoError(t, err)

		assert.Equal(t, []string{
			"Event will persist until: end of a continuous drug exposure",
			"Concept set containing the drug(s) of interest: Ibuprofen",
			"Persistence window: allow for a maximum of 21 days between exposure records when inferring the era of persistence exposure",
			"Surveillance window: add 60 days to the end of the era of persistence exposure as an additional period of surveillance prior to cohort exit.",
			"Force drug exposure days supply to: 7 days.",
		}, p.Describe())
	})

	t.Run("days supply", func(t *testing.T) {
		p, err := NewEndOfDrugExposure(DrugExposureConfig{
			ConceptSet:         conceptSet("Paracetamol"),
			PersistenceWindow:  30,
			SurveillanceWindow: 60,
		})
		require.NoError(t, err)

		lines := p.Describe()
		assert.Equal(t, "Use days supply and exposure end date for exposure duration.", lines[len(lines)-1])
		assert.Equal(t, "Paracetamol", p.DrugConceptSetName())
	})

	t.Run("missing concept set", func(t *testing.T) {
		_, err := NewEndOfDrugExposure(DrugExposureConfig{})
		assert.True(t, errors.Is(err, ErrInvalidConfiguration))

		_, err = NewEndOfDrugExposure(DrugExposureConfig{ConceptSet: conceptSet("")})
		assert.True(t, errors.Is(err, ErrInvalidConfiguration))
	})

	t.Run("forced duration without window", func(t *testing.T) {
		_, err := NewEndOfDrugExposure(DrugExposureConfig{
			ConceptSet:    conceptSet("Ibuprofen"),
			ForceDuration: true,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidConfiguration))
		assert.Equal(t, "END_OF_DRUG_EXPOSURE requires drug_exposure_window when force_duration is true", err.Error())
	})

	t.Run("invalid windows", func(t *testing.T) {
		for _, cfg := range []DrugExposureConfig{
			{ConceptSet: conceptSet("x"), PersistenceWindow: 3},
			{ConceptSet: conceptSet("x"), SurveillanceWindow: 3},
			{ConceptSet: conceptSet("x"), ForceDuration: true, DrugExposureWindow: days(3)},
		} {
			_, err := NewEndOfDrugExposure(cfg)
			assert.True(t, errors.Is(err, ErrInvalidConfiguration))
		}
	})
}

func TestCensoringEvents(t *testing.T) {
	era, err := NewCensoringEvent(DrugEraEvent, conceptSet("Ibuprofen"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a drug era of Ibuprofen"}, era.Describe())

	observation, err := NewCensoringEvent(ObservationEvent, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"an observation"}, observation.Describe())

	assert.Equal(t, []string{"a payer plan period"}, PayerPlanPeriodExit().Describe())

	_, err = NewCensoringEvent(PayerPlanPeriodEvent, nil)
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
	_, err = NewSpecialCensoringEvent(ObservationPeriodEvent)
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
}

func TestCohortExitEvent_Describe(t *testing.T) {
	t.Run("end of continuous observation only", func(t *testing.T) {
		exit, err := NewCohortExitEvent(EndOfContinuousObservation{})
		require.NoError(t, err)

		assert.Equal(t, []string{"Event will persist until: end of continuous observation"}, exit.Describe())
	})

	t.Run("with censoring events", func(t *testing.T) {
		p, err := NewFixedDuration(OffsetStartDate, 30)
		require.NoError(t, err)
		condition, err := NewCensoringEvent(ConditionEraEvent, conceptSet("Diabetes"))
		require.NoError(t, err)
		drug, err := NewCensoringEvent(DrugEraEvent, conceptSet("Ibuprofen"))
		require.NoError(t, err)

		exit, err := NewCohortExitEvent(p, condition, PayerPlanPeriodExit(), drug)
		require.NoError(t, err)

		assert.Equal(t, []string{
			"Event will persist until: fixed duration relative to initial event",
			"Offset from: start date",
			"Number of days offset: 30 days",
			"a condition era of Diabetes",
			"a payer plan period",
			"a drug era of Ibuprofen",
		}, exit.Describe())
		assert.Len(t, exit.CensoringEvents(), 3)
	})

	t.Run("requires persistence", func(t *testing.T) {
		_, err := NewCohortExitEvent(nil)
		assert.True(t, errors.Is(err, ErrInvalidConfiguration))
	})

	t.Run("rejects nil pointer arms", func(t *testing.T) {
		for _, p := range []EventPersistence{
			(*FixedDuration)(nil),
			(*EndOfDrugExposure)(nil),
			(*EndOfContinuousObservation)(nil),
		} {
			_, err := NewCohortExitEvent(p)
			assert.True(t, errors.Is(err, ErrInvalidConfiguration), "%T", p)
		}

		_, err := NewCohortExitEvent(EndOfContinuousObservation{}, (*NormalCensoringEvent)(nil))
		assert.True(t, errors.Is(err, ErrInvalidConfiguration))
		_, err = NewCohortExitEvent(EndOfContinuousObservation{}, (*SpecialCensoringEvent)(nil))
		assert.True(t, errors.Is(err, ErrInvalidConfiguration))
	})
}
