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
	_ "embed"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samply/cohortctl/cohort"
	"github.com/samply/cohortctl/conceptset"
	"github.com/samply/cohortctl/data"
	"github.com/samply/cohortctl/logger"
	"github.com/samply/cohortctl/util"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

//go:embed description.tmpl
var descriptionTemplate string

var descriptionTmpl = template.Must(template.New("description").Funcs(template.FuncMap{
	"inc": func(i int) int {
		return i + 1
	},
	"indent": util.Indent,
}).Parse(descriptionTemplate))

type conceptSetView struct {
	ID   int
	Name string
}

type ruleView struct {
	Name        string
	Description string
	Lines       []string
}

type descriptionView struct {
	Name            string
	Description     string
	ConceptSets     []conceptSetView
	Entry           []string
	InclusionLimit  cohort.EventLimit
	Inclusion       []ruleView
	Persistence     []string
	CensoringHeader string
	Censoring       []string
}

func newDescriptionView(d *CohortDefinition) (descriptionView, error) {
	view := descriptionView{
		Name:            d.Name,
		Description:     d.Description,
		Entry:           d.Entry.Lines(),
		Persistence:     d.Exit.EventPersistence().Describe(),
		CensoringHeader: cohort.CensoringHeader,
	}
	for _, cs := range d.ConceptSets {
		view.ConceptSets = append(view.ConceptSets, conceptSetView{ID: cs.ID(), Name: cs.Name()})
	}
	if d.Inclusion != nil {
		view.InclusionLimit = d.Inclusion.Limit()
		for _, rule := range d.Inclusion.NamedCriteria() {
			rv := ruleView{Name: rule.Name(), Description: rule.Description()}
			for _, group := range rule.GroupCriteria() {
				gc, err := cohort.NewGroupCriterion(group)
				if err != nil {
					return view, err
				}
				rv.Lines = append(rv.Lines, gc.Describe()...)
			}
			view.Inclusion = append(view.Inclusion, rv)
		}
	}
	for _, c := range d.Exit.CensoringEvents() {
		view.Censoring = append(view.Censoring, c.Describe()...)
	}
	return view, nil
}

// RenderDescription writes the human readable description of d to wr.
func RenderDescription(wr io.Writer, d *CohortDefinition) error {
	view, err := newDescriptionView(d)
	if err != nil {
		return err
	}
	return descriptionTmpl.Execute(wr, view)
}

func loadDefinition(ctx context.Context, filename string, resolve resolveFunc) (*CohortDefinition, error) {
	d, err := data.ReadDefinition(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", filename)
	}
	definition, err := BuildDefinition(ctx, d, resolve)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", filename)
	}
	return definition, nil
}

// describeFile loads and renders one definition. Concept sets are only
// declared, so every description numbers its concept sets from 1.
func describeFile(ctx context.Context, filename string) (string, *CohortDefinition, error) {
	definition, err := loadDefinition(ctx, filename, declareConceptSets(conceptset.NewRegistry()))
	if err != nil {
		return "", nil, err
	}
	builder := strings.Builder{}
	if err := RenderDescription(&builder, definition); err != nil {
		return "", nil, errors.Wrapf(err, "%s", filename)
	}
	return builder.String(), definition, nil
}

var describeOutputFile string
var showStats bool

var describeCmd = &cobra.Command{
	Use:   "describe [definition-file]...",
	Short: "Describes cohort definitions in human readable form",
	Long: `Reads cohort definitions in YAML form and prints their entry events,
inclusion criteria and exit criteria the way ATLAS describes them.

Descriptions of multiple files are separated by a blank line.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if describeOutputFile != "" {
			file, err := util.CreateOutputFile(describeOutputFile)
			if err != nil {
				return err
			}
			defer file.Close()
			out = file
		}

		var bar *progressBar
		if len(args) > 1 && !config.GetBool("no-progress") {
			bar = newProgressBar(cmd.ErrOrStderr(), len(args))
			defer bar.finish()
		}

		start := time.Now()
		var lines, criteria, conceptSets []float64
		var written int
		for i, filename := range args {
			description, definition, err := describeFile(cmd.Context(), filename)
			if err != nil {
				logger.Logger.Debugw("Could not describe cohort definition",
					logger.FieldFile, filename,
					logger.FieldError, err)
				return err
			}
			if i > 0 {
				description = "\n" + description
			}
			n, err := io.WriteString(out, description)
			written += n
			if err != nil {
				return err
			}

			logger.Logger.Infow("Described cohort definition",
				logger.FieldFile, filename,
				logger.FieldDefinition, definition.Name)
			lines = append(lines, float64(strings.Count(description, "\n")))
			criteria = append(criteria, float64(definition.Criteria()))
			conceptSets = append(conceptSets, float64(len(definition.ConceptSets)))
			bar.increment()
		}

		if showStats {
			bar.finish()
			statistics := util.CalculateDescriptionStatistics(lines, criteria, conceptSets)
			fmt.Fprint(cmd.ErrOrStderr(), fmtDescriptionStatistics(statistics, written, time.Since(start)))
		}
		return nil
	},
}

// progressBar counts processed files. A nil progressBar does nothing.
type progressBar struct {
	progress *mpb.Progress
	bar      *mpb.Bar
}

func newProgressBar(w io.Writer, total int) *progressBar {
	progress := mpb.New(mpb.WithOutput(w))
	bar := progress.AddBar(int64(total),
		mpb.BarRemoveOnComplete(),
		mpb.PrependDecorators(decor.Name("describe", decor.WC{W: 9})),
		mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")),
	)
	return &progressBar{progress: progress, bar: bar}
}

func (b *progressBar) increment() {
	if b != nil {
		b.bar.Increment()
	}
}

// finish aborts an incomplete bar and waits for the last render.
func (b *progressBar) finish() {
	if b == nil || b.progress == nil {
		return
	}
	if !b.bar.Completed() {
		b.bar.Abort(true)
	}
	b.progress.Wait()
	b.progress = nil
}

func fmtSummary(s util.Summary) string {
	return fmt.Sprintf("min %.0f, mean %.2f, median %.0f, max %.0f", s.Min, s.Mean, s.Median, s.Max)
}

func fmtDescriptionStatistics(s util.DescriptionStatistics, written int, duration time.Duration) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("Definitions  : %d\n", s.Definitions))
	builder.WriteString(fmt.Sprintf("Lines        : %s\n", fmtSummary(s.Lines)))
	builder.WriteString(fmt.Sprintf("Criteria     : %s\n", fmtSummary(s.Criteria)))
	builder.WriteString(fmt.Sprintf("Concept Sets : %s\n", fmtSummary(s.ConceptSets)))
	builder.WriteString(fmt.Sprintf("Written      : %s\n", util.FmtBytesHumanReadable(float32(written))))
	builder.WriteString(fmt.Sprintf("Duration     : %s\n", util.FmtDurationHumanReadable(duration)))
	return builder.String()
}

func init() {
	rootCmd.AddCommand(describeCmd)

	describeCmd.Flags().StringVarP(&describeOutputFile, "output", "o", "", "write the descriptions to this file instead of stdout")
	describeCmd.Flags().BoolVar(&showStats, "stats", false, "print statistics about the descriptions to stderr")
}
