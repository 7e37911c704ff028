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
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the distribution of one measure over a set of cohort
// definitions.
type Summary struct {
	Min, Mean, Median, Max float64
}

// DescriptionStatistics summarizes the descriptions rendered by one run.
type DescriptionStatistics struct {
	Definitions int
	Lines       Summary
	Criteria    Summary
	ConceptSets Summary
}

// CalculateDescriptionStatistics calculates the statistics for the given
// per-definition line, criteria and concept set counts. All slices must have
// the same length.
func CalculateDescriptionStatistics(lines, criteria, conceptSets []float64) DescriptionStatistics {
	return DescriptionStatistics{
		Definitions: len(lines),
		Lines:       summarize(lines),
		Criteria:    summarize(criteria),
		ConceptSets: summarize(conceptSets),
	}
}

func summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return Summary{
		Min:    floats.Min(sorted),
		Mean:   stat.Mean(sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Max:    floats.Max(sorted),
	}
}

// FmtBytesHumanReadable takes an amount of bytes and returns them in a human readable form
// up to a unit of PiB.
func FmtBytesHumanReadable(bytes float32) string {
	units := []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

	var unitIdx int
	for bytes > 1024 && unitIdx < len(units)-1 {
		bytes = bytes / 1024
		unitIdx++
	}

	return fmt.Sprintf("%.2f %s", bytes, units[unitIdx])
}

// FmtDurationHumanReadable prints durations under a minute with millisecond
// precision and longer ones with second precision.
func FmtDurationHumanReadable(d time.Duration) string {
	if d < time.Minute {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}
